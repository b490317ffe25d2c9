// Package lineitems indexes extracted BOQ rows so they can be searched across
// every stored extraction.
package lineitems

import (
	"context"
	"fmt"
	"strings"

	"github.com/salamony4all/boq/internal/extract"
	"github.com/salamony4all/boq/internal/models"
)

// Index defines line-item indexing and search operations.
type Index interface {
	IndexExtraction(ctx context.Context, ext *models.Extraction, classifier Classifier) (int, error)
	Search(ctx context.Context, q models.ItemQuery) (*models.ItemSearchResponse, error)
	DeleteExtraction(ctx context.Context, extractionID string) error
	Close() error
	// DocCount returns the number of indexed line items.
	DocCount() (uint64, error)
}

// Classifier maps a header cell to its column category.
type Classifier interface {
	Classify(text string) (extract.Category, bool)
}

// ItemID is the document id of row rowIndex within an extraction.
func ItemID(extractionID string, rowIndex int) string {
	return fmt.Sprintf("%s#%d", extractionID, rowIndex)
}

// ItemsFromExtraction turns the data rows of an extraction into line items.
// Summary rows are skipped; their totals are not searchable items.
func ItemsFromExtraction(ext *models.Extraction, classifier Classifier) []*models.LineItem {
	if ext == nil || ext.Result == nil {
		return nil
	}
	var items []*models.LineItem
	for _, table := range ext.Result.Tables {
		names := columnNames(table.Header, table.ColumnCount)
		descCol := descriptionColumn(table.Header, classifier)
		for i, row := range table.Rows {
			if row.IsSummary {
				continue
			}
			item := &models.LineItem{
				ExtractionID: ext.ID,
				FileName:     ext.FileName,
				RowIndex:     i,
				Fields:       make(map[string]string),
				ImageURLs:    []string{},
			}
			for c, cell := range row.Cells {
				if cell.Value != "" && c < len(names) {
					item.Fields[names[c]] = cell.Value
				}
				for _, img := range cell.Images {
					item.ImageURLs = append(item.ImageURLs, img.URL)
				}
			}
			if descCol >= 0 && descCol < len(row.Cells) {
				item.Description = row.Cells[descCol].Value
			}
			if item.Description == "" {
				item.Description = longestValue(row.Cells)
			}
			if item.Description == "" && len(item.ImageURLs) == 0 {
				continue
			}
			items = append(items, item)
		}
	}
	return items
}

func columnNames(header []string, width int) []string {
	if len(header) > width {
		width = len(header)
	}
	names := make([]string, width)
	seen := make(map[string]int, width)
	for i := range names {
		name := ""
		if i < len(header) {
			name = strings.TrimSpace(header[i])
		}
		if name == "" {
			name = fmt.Sprintf("Column %d", i+1)
		}
		seen[name]++
		if n := seen[name]; n > 1 {
			name = fmt.Sprintf("%s (%d)", name, n)
		}
		names[i] = name
	}
	return names
}

// descriptionColumn returns the first header column classified as a
// description, or -1.
func descriptionColumn(header []string, classifier Classifier) int {
	if classifier == nil {
		return -1
	}
	for i, h := range header {
		if cat, ok := classifier.Classify(h); ok && cat == extract.CategoryDescription {
			return i
		}
	}
	return -1
}

func longestValue(cells []models.Cell) string {
	best := ""
	for _, c := range cells {
		if len(c.Value) > len(best) {
			best = c.Value
		}
	}
	return best
}
