package extract

import (
	"regexp"

	"github.com/salamony4all/boq/internal/models"
	"github.com/salamony4all/boq/internal/ooxml"
)

// Phase is the detector's position within a worksheet.
type Phase int

const (
	// SeekingHeader is the initial phase: no header row has been seen yet.
	SeekingHeader Phase = iota
	// InTable is terminal for a worksheet; the detector never returns to seeking.
	InTable
)

func (p Phase) String() string {
	switch p {
	case SeekingHeader:
		return "seeking_header"
	case InTable:
		return "in_table"
	default:
		return "unknown"
	}
}

// DetectorState is threaded through Step. The zero value is the initial state.
type DetectorState struct {
	Phase     Phase
	Header    []string
	HeaderRow int
}

// summaryPattern matches a cell that is only a total label, e.g. "Sub-Total" or
// "Grand Total Amount:".
var summaryPattern = regexp.MustCompile(`(?i)^(sub[\s-]*total|grand\s+total|net\s+total|total)(\s+(amount|cost|value|price))?\s*:?$`)

// Detector turns one worksheet's row stream into a table. It holds no mutable
// state of its own; all progress lives in DetectorState.
type Detector struct {
	matcher *Matcher
	sheetID int
	anchors *AnchorIndex
	merged  []ooxml.CellRange
}

// NewDetector returns a detector for the sheet with sheetID. anchors and merged
// may be nil.
func NewDetector(m *Matcher, sheetID int, anchors *AnchorIndex, merged []ooxml.CellRange) *Detector {
	return &Detector{matcher: m, sheetID: sheetID, anchors: anchors, merged: merged}
}

// Step consumes one row. It returns the next state and, for a retained data row,
// the assembled Row.
func (d *Detector) Step(state DetectorState, raw RawRow) (DetectorState, *models.Row) {
	texts := raw.Texts()

	switch state.Phase {
	case SeekingHeader:
		if !d.matcher.IsHeader(texts) {
			return state, nil
		}
		return DetectorState{Phase: InTable, Header: headerFrom(texts), HeaderRow: raw.Number}, nil

	case InTable:
		if d.matcher.IsHeader(texts) {
			return state, nil
		}
		row := d.buildRow(raw.Number, texts, len(state.Header))
		if !row.Valid() {
			return state, nil
		}
		return state, &row
	}
	return state, nil
}

func (d *Detector) buildRow(number int, texts []string, width int) models.Row {
	row := models.Row{Cells: make([]models.Cell, width)}
	for col := 1; col <= width; col++ {
		cell := models.Cell{
			Images:   d.anchors.Lookup(d.sheetID, number, col),
			IsMerged: d.isMerged(number, col),
		}
		if col < len(texts) {
			cell.Value = texts[col]
		}
		if cell.Images == nil {
			cell.Images = []models.ImageRef{}
		}
		row.Cells[col-1] = cell
	}
	for _, c := range row.Cells {
		if c.Value != "" && summaryPattern.MatchString(c.Value) {
			row.IsSummary = true
			break
		}
	}
	return row
}

func (d *Detector) isMerged(row, col int) bool {
	for _, r := range d.merged {
		if r.Contains(row, col) {
			return true
		}
	}
	return false
}

// headerFrom trims trailing empty columns off a 1-indexed text row.
func headerFrom(texts []string) []string {
	last := 0
	for i := 1; i < len(texts); i++ {
		if texts[i] != "" {
			last = i
		}
	}
	header := make([]string, last)
	copy(header, texts[1:last+1])
	return header
}

// DetectTable runs d over src. It returns nil when the sheet never reaches a
// header or yields no data rows.
func (d *Detector) DetectTable(src RowSource, sheetName string) (*models.Table, error) {
	var (
		state DetectorState
		rows  []models.Row
	)
	for src.Next() {
		var row *models.Row
		state, row = d.Step(state, src.Row())
		if row != nil {
			rows = append(rows, *row)
		}
	}
	if err := src.Err(); err != nil {
		return nil, err
	}

	if state.Phase != InTable || len(rows) == 0 {
		return nil, nil
	}
	return &models.Table{
		SheetName:   sheetName,
		Header:      state.Header,
		Rows:        rows,
		ColumnCount: len(state.Header),
	}, nil
}
