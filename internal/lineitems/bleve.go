package lineitems

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"sort"
	"strings"
	"time"

	"github.com/blevesearch/bleve/v2"
	"github.com/blevesearch/bleve/v2/analysis/analyzer/standard"
	blevequery "github.com/blevesearch/bleve/v2/search/query"
	"github.com/salamony4all/boq/internal/models"
)

const (
	docType         = "item"
	batchSize       = 500
	descBoost       = 2.0
	fuzzyDistance   = 2
	payloadField    = "payload"
	extractionField = "extraction_id"
)

// itemDoc is the shape stored in Bleve. Payload carries the full line item
// as JSON so hits can be returned without a second lookup.
type itemDoc struct {
	ExtractionID string `json:"extraction_id"`
	FileName     string `json:"file_name"`
	RowIndex     int    `json:"row_index"`
	Description  string `json:"description"`
	Content      string `json:"content"`
	Payload      string `json:"payload"`
}

// BleveIndex implements Index using Bleve.
type BleveIndex struct {
	index bleve.Index
}

// NewBleveIndex creates or opens a Bleve index at path.
// An existing index is reused; remove the directory after changing the mapping.
func NewBleveIndex(path string) (*BleveIndex, error) {
	im := bleve.NewIndexMapping()

	docMapping := bleve.NewDocumentMapping()
	textFieldMapping := bleve.NewTextFieldMapping()
	// standard analyzer: lowercase + tokenize, no stemming, so "chairs" does not match "chair"
	// unless fuzzy search is on.
	textFieldMapping.Analyzer = standard.Name
	docMapping.AddFieldMappingsAt("description", textFieldMapping)
	docMapping.AddFieldMappingsAt("content", textFieldMapping)

	keywordFieldMapping := bleve.NewKeywordFieldMapping()
	docMapping.AddFieldMappingsAt(extractionField, keywordFieldMapping)
	docMapping.AddFieldMappingsAt("file_name", keywordFieldMapping)

	docMapping.AddFieldMappingsAt("row_index", bleve.NewNumericFieldMapping())

	payloadMapping := bleve.NewTextFieldMapping()
	payloadMapping.Index = false
	payloadMapping.IncludeInAll = false
	payloadMapping.IncludeTermVectors = false
	docMapping.AddFieldMappingsAt(payloadField, payloadMapping)

	im.AddDocumentMapping(docType, docMapping)
	im.DefaultType = docType
	im.DefaultMapping = docMapping

	if _, err := os.Stat(path); err == nil {
		index, openErr := bleve.Open(path)
		if openErr != nil {
			return nil, fmt.Errorf("failed to open Bleve index: %w", openErr)
		}
		return &BleveIndex{index: index}, nil
	}

	index, err := bleve.New(path, im)
	if err != nil {
		return nil, fmt.Errorf("failed to create Bleve index: %w", err)
	}
	return &BleveIndex{index: index}, nil
}

// IndexExtraction replaces every line item of ext in the index and returns how
// many were written.
func (b *BleveIndex) IndexExtraction(ctx context.Context, ext *models.Extraction, classifier Classifier) (int, error) {
	if ext == nil {
		return 0, fmt.Errorf("extraction is nil")
	}
	if err := b.DeleteExtraction(ctx, ext.ID); err != nil {
		return 0, err
	}

	items := ItemsFromExtraction(ext, classifier)
	batch := b.index.NewBatch()
	for _, item := range items {
		doc, err := newItemDoc(item)
		if err != nil {
			return 0, err
		}
		if err := batch.Index(ItemID(item.ExtractionID, item.RowIndex), doc); err != nil {
			return 0, fmt.Errorf("failed to add item to batch: %w", err)
		}
		if batch.Size() >= batchSize {
			if err := ctx.Err(); err != nil {
				return 0, err
			}
			if err := b.index.Batch(batch); err != nil {
				return 0, fmt.Errorf("failed to index items: %w", err)
			}
			batch.Reset()
		}
	}
	if batch.Size() > 0 {
		if err := b.index.Batch(batch); err != nil {
			return 0, fmt.Errorf("failed to index items: %w", err)
		}
	}
	return len(items), nil
}

func newItemDoc(item *models.LineItem) (*itemDoc, error) {
	payload, err := json.Marshal(item)
	if err != nil {
		return nil, fmt.Errorf("failed to encode line item: %w", err)
	}
	keys := make([]string, 0, len(item.Fields))
	for k := range item.Fields {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	parts := make([]string, 0, len(keys)+1)
	parts = append(parts, item.Description)
	for _, k := range keys {
		if v := item.Fields[k]; v != item.Description {
			parts = append(parts, v)
		}
	}
	return &itemDoc{
		ExtractionID: item.ExtractionID,
		FileName:     item.FileName,
		RowIndex:     item.RowIndex,
		Description:  item.Description,
		Content:      strings.Join(parts, " "),
		Payload:      string(payload),
	}, nil
}

// Search finds line items matching q. Description matches rank above matches
// in other columns.
func (b *BleveIndex) Search(ctx context.Context, q models.ItemQuery) (*models.ItemSearchResponse, error) {
	if err := q.Validate(); err != nil {
		return nil, err
	}
	start := time.Now()

	var textQuery blevequery.Query
	if q.FuzzyEnabled {
		desc := buildFuzzyQuery(q.Query, fuzzyDistance, "description", descBoost)
		content := buildFuzzyQuery(q.Query, fuzzyDistance, "content", 1)
		textQuery = bleve.NewDisjunctionQuery(desc, content)
	} else {
		desc := bleve.NewMatchQuery(q.Query)
		desc.SetField("description")
		desc.SetBoost(descBoost)
		content := bleve.NewMatchQuery(q.Query)
		content.SetField("content")
		textQuery = bleve.NewDisjunctionQuery(desc, content)
	}
	if q.ExtractionID != "" {
		tq := bleve.NewTermQuery(q.ExtractionID)
		tq.SetField(extractionField)
		textQuery = bleve.NewConjunctionQuery(textQuery, tq)
	}

	req := bleve.NewSearchRequest(textQuery)
	req.Size = q.Limit
	req.Fields = []string{payloadField}
	results, err := b.index.SearchInContext(ctx, req)
	if err != nil {
		return nil, fmt.Errorf("Bleve search failed: %w", err)
	}

	hits := make([]*models.LineItemHit, 0, len(results.Hits))
	for i, hit := range results.Hits {
		item, err := decodePayload(hit.Fields[payloadField])
		if err != nil {
			return nil, fmt.Errorf("hit %s: %w", hit.ID, err)
		}
		hits = append(hits, &models.LineItemHit{ID: hit.ID, Item: item, Score: hit.Score, Rank: i + 1})
	}
	return &models.ItemSearchResponse{
		Hits:      hits,
		Total:     results.Total,
		QueryTime: time.Since(start).Milliseconds(),
		Query:     q.Query,
		Fuzzy:     q.FuzzyEnabled,
	}, nil
}

func decodePayload(v interface{}) (*models.LineItem, error) {
	s, ok := v.(string)
	if !ok {
		return nil, fmt.Errorf("stored payload missing")
	}
	var item models.LineItem
	if err := json.Unmarshal([]byte(s), &item); err != nil {
		return nil, fmt.Errorf("failed to decode line item: %w", err)
	}
	return &item, nil
}

// tokenizeQuery splits query into lowercase terms, filtering out empty strings.
func tokenizeQuery(query string) []string {
	return strings.Fields(strings.ToLower(query))
}

// buildFuzzyQuery creates a disjunction of FuzzyQueries, one per query term,
// restricted to field.
func buildFuzzyQuery(queryStr string, fuzziness int, field string, boost float64) blevequery.Query {
	terms := tokenizeQuery(queryStr)
	if len(terms) == 0 {
		mq := bleve.NewMatchQuery(queryStr)
		mq.SetField(field)
		mq.SetBoost(boost)
		return mq
	}

	queries := make([]blevequery.Query, 0, len(terms))
	for _, term := range terms {
		fq := bleve.NewFuzzyQuery(term)
		fq.SetFuzziness(fuzziness)
		fq.SetField(field)
		fq.SetBoost(boost)
		queries = append(queries, fq)
	}
	if len(queries) == 1 {
		return queries[0]
	}
	return bleve.NewDisjunctionQuery(queries...)
}

// DeleteExtraction removes every line item that belongs to extractionID.
func (b *BleveIndex) DeleteExtraction(ctx context.Context, extractionID string) error {
	for {
		if err := ctx.Err(); err != nil {
			return err
		}
		tq := bleve.NewTermQuery(extractionID)
		tq.SetField(extractionField)
		req := bleve.NewSearchRequest(tq)
		req.Size = batchSize
		results, err := b.index.SearchInContext(ctx, req)
		if err != nil {
			return fmt.Errorf("failed to find items of %s: %w", extractionID, err)
		}
		if len(results.Hits) == 0 {
			return nil
		}
		batch := b.index.NewBatch()
		for _, hit := range results.Hits {
			batch.Delete(hit.ID)
		}
		if err := b.index.Batch(batch); err != nil {
			return fmt.Errorf("failed to delete items of %s: %w", extractionID, err)
		}
	}
}

// Close closes the Bleve index.
func (b *BleveIndex) Close() error {
	return b.index.Close()
}

// DocCount returns the total number of documents in the index.
func (b *BleveIndex) DocCount() (uint64, error) {
	return b.index.DocCount()
}
