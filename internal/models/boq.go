// Package models defines the bill-of-quantities extraction structures shared by the
// pipeline, storage, and HTTP layers.
package models

// ImageAnchor places one embedded image at a 1-based (row, column) of a worksheet.
// Several anchors may share the same coordinates.
type ImageAnchor struct {
	SheetID   int    `json:"sheetId"`
	Row       int    `json:"row"`
	Column    int    `json:"column"`
	URL       string `json:"url"`
	Extension string `json:"extension"`
}

// ImageRef is the per-cell view of an anchored image.
type ImageRef struct {
	URL       string `json:"url"`
	Extension string `json:"extension"`
}

// Cell is one normalized cell of a table row.
type Cell struct {
	Value    string     `json:"value"`
	Images   []ImageRef `json:"images"`
	IsMerged bool       `json:"isMerged"`
}

// HasContent reports whether the cell carries text or at least one image.
func (c Cell) HasContent() bool {
	return c.Value != "" || len(c.Images) > 0
}

// Row is a data row of a detected table.
type Row struct {
	Cells     []Cell `json:"cells"`
	IsHeader  bool   `json:"isHeader"`
	IsSummary bool   `json:"isSummary"`
}

// Valid reports whether at least one cell has text or an image.
func (r Row) Valid() bool {
	for _, c := range r.Cells {
		if c.HasContent() {
			return true
		}
	}
	return false
}

// Table is a detected tabular region. Header is nil until a header row is found.
type Table struct {
	SheetName   string   `json:"sheetName"`
	Header      []string `json:"header"`
	Rows        []Row    `json:"rows"`
	ColumnCount int      `json:"columnCount"`
}

// ExtractionResult is the pipeline output handed to the UI and export layers.
type ExtractionResult struct {
	Tables      []Table `json:"tables"`
	TotalTables int     `json:"totalTables"`
}

// RowCount returns the number of data rows across all tables.
func (r *ExtractionResult) RowCount() int {
	n := 0
	for _, t := range r.Tables {
		n += len(t.Rows)
	}
	return n
}

// ImageCount returns the number of images attached to cells across all tables.
func (r *ExtractionResult) ImageCount() int {
	n := 0
	for _, t := range r.Tables {
		for _, row := range t.Rows {
			for _, c := range row.Cells {
				n += len(c.Images)
			}
		}
	}
	return n
}
