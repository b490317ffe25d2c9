package models

import "fmt"

// LineItem is one data row of an extraction, flattened for search.
type LineItem struct {
	ExtractionID string            `json:"extraction_id"`
	FileName     string            `json:"file_name"`
	RowIndex     int               `json:"row_index"`
	Description  string            `json:"description"`
	Fields       map[string]string `json:"fields,omitempty"`
	ImageURLs    []string          `json:"image_urls,omitempty"`
	IsSummary    bool              `json:"is_summary,omitempty"`
}

// LineItemHit is a single line-item search match.
type LineItemHit struct {
	ID    string    `json:"id"`
	Item  *LineItem `json:"item"`
	Score float64   `json:"score"`
	Rank  int       `json:"rank"`
}

// ItemQuery is a line-item search request.
type ItemQuery struct {
	Query        string `json:"query"`
	Limit        int    `json:"limit,omitempty"`
	FuzzyEnabled bool   `json:"fuzzy_enabled,omitempty"`
	ExtractionID string `json:"extraction_id,omitempty"`
}

// Validate rejects an empty query and clamps the limit to 1..100 (default 10).
func (q *ItemQuery) Validate() error {
	if q.Query == "" {
		return fmt.Errorf("query cannot be empty")
	}
	if q.Limit <= 0 {
		q.Limit = 10
	}
	if q.Limit > 100 {
		q.Limit = 100
	}
	return nil
}

// ItemSearchResponse is the response for a line-item search.
type ItemSearchResponse struct {
	Hits      []*LineItemHit `json:"hits"`
	Total     uint64         `json:"total"`
	QueryTime int64          `json:"query_time_ms"`
	Query     string         `json:"query"`
	Fuzzy     bool           `json:"fuzzy,omitempty"`
}
