package extract

import "github.com/salamony4all/boq/internal/models"

type anchorKey struct {
	sheetID, row, col int
}

// AnchorIndex looks up image anchors by exact (sheetId, row, column). It is
// built once per workbook and read-only afterwards.
type AnchorIndex struct {
	cells map[anchorKey][]models.ImageRef
	n     int
}

// NewAnchorIndex indexes anchors, preserving their order within each cell.
func NewAnchorIndex(anchors []models.ImageAnchor) *AnchorIndex {
	ix := &AnchorIndex{cells: make(map[anchorKey][]models.ImageRef, len(anchors))}
	for _, a := range anchors {
		k := anchorKey{sheetID: a.SheetID, row: a.Row, col: a.Column}
		ix.cells[k] = append(ix.cells[k], models.ImageRef{URL: a.URL, Extension: a.Extension})
		ix.n++
	}
	return ix
}

// Lookup returns a copy of the images anchored at the given cell, or nil.
func (ix *AnchorIndex) Lookup(sheetID, row, col int) []models.ImageRef {
	if ix == nil {
		return nil
	}
	refs := ix.cells[anchorKey{sheetID: sheetID, row: row, col: col}]
	if len(refs) == 0 {
		return nil
	}
	out := make([]models.ImageRef, len(refs))
	copy(out, refs)
	return out
}

// Len returns the number of indexed anchors.
func (ix *AnchorIndex) Len() int {
	if ix == nil {
		return 0
	}
	return ix.n
}
