package extract

import "github.com/salamony4all/boq/internal/models"

// DefaultCombinedSheetName names the single stitched table.
const DefaultCombinedSheetName = "Combined BOQ"

// stitcher accumulates per-sheet tables into one. The first header it sees is
// canonical and is never replaced.
type stitcher struct {
	name   string
	header []string
	rows   []models.Row
	sheets []string
}

func newStitcher(name string) *stitcher {
	return &stitcher{name: name, rows: []models.Row{}}
}

// add appends t's rows, conformed to the canonical width. A nil table adds nothing.
func (s *stitcher) add(t *models.Table) {
	if t == nil {
		return
	}
	if s.header == nil {
		s.header = t.Header
	}
	s.sheets = append(s.sheets, t.SheetName)
	width := len(s.header)
	for _, r := range t.Rows {
		r.Cells = conform(r.Cells, width)
		if !r.Valid() {
			continue
		}
		s.rows = append(s.rows, r)
	}
}

func (s *stitcher) result() *models.ExtractionResult {
	return &models.ExtractionResult{
		Tables: []models.Table{{
			SheetName:   s.name,
			Header:      s.header,
			Rows:        s.rows,
			ColumnCount: len(s.header),
		}},
		TotalTables: 1,
	}
}

// conform pads with empty cells or truncates so len(cells) == width.
func conform(cells []models.Cell, width int) []models.Cell {
	if len(cells) == width {
		return cells
	}
	out := make([]models.Cell, width)
	n := copy(out, cells)
	for i := n; i < width; i++ {
		out[i] = models.Cell{Images: []models.ImageRef{}}
	}
	return out
}
