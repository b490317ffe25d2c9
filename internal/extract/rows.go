package extract

import (
	"fmt"

	"github.com/xuri/excelize/v2"
)

// RawRow is one worksheet row as read from the source. Number is 1-based and
// Values is 1-indexed: Values[0] is always unused.
type RawRow struct {
	Number int
	Values []any
}

// Width is the highest column index carrying a value slot.
func (r RawRow) Width() int {
	if len(r.Values) == 0 {
		return 0
	}
	return len(r.Values) - 1
}

// Value returns the raw value at 1-based column col, or nil.
func (r RawRow) Value(col int) any {
	if col < 1 || col >= len(r.Values) {
		return nil
	}
	return r.Values[col]
}

// Texts returns the normalized text of every column, 1-indexed like Values.
func (r RawRow) Texts() []string {
	out := make([]string, len(r.Values))
	for i := 1; i < len(r.Values); i++ {
		out[i] = ExtractText(r.Values[i])
	}
	return out
}

// RowSource is a forward-only row stream. Rows already returned are never
// revisited.
type RowSource interface {
	Next() bool
	Row() RawRow
	Err() error
	Close() error
}

// SheetRows streams a worksheet through excelize's row iterator so only the
// current row is held in memory.
type SheetRows struct {
	rows *excelize.Rows
	opts []excelize.Options
	n    int
	cur  RawRow
	err  error
}

// OpenSheetRows starts streaming sheet from f.
func OpenSheetRows(f *excelize.File, sheet string, opts ...excelize.Options) (*SheetRows, error) {
	rows, err := f.Rows(sheet)
	if err != nil {
		return nil, fmt.Errorf("open rows for sheet %q: %w", sheet, err)
	}
	return &SheetRows{rows: rows, opts: opts}, nil
}

// Next advances to the following row. Gaps in the sheet are yielded as empty
// rows so Number always matches the worksheet row.
func (s *SheetRows) Next() bool {
	if s.err != nil || !s.rows.Next() {
		return false
	}
	s.n++
	cols, err := s.rows.Columns(s.opts...)
	if err != nil {
		s.err = fmt.Errorf("read row %d: %w", s.n, err)
		return false
	}
	values := make([]any, len(cols)+1)
	for i, c := range cols {
		values[i+1] = c
	}
	s.cur = RawRow{Number: s.n, Values: values}
	return true
}

func (s *SheetRows) Row() RawRow { return s.cur }

func (s *SheetRows) Err() error {
	if s.err != nil {
		return s.err
	}
	return s.rows.Error()
}

func (s *SheetRows) Close() error { return s.rows.Close() }

// SliceRows is an in-memory RowSource, used for sources that are already
// paged, such as a single PDF page.
type SliceRows struct {
	rows []RawRow
	i    int
}

// NewSliceRows returns a RowSource over rows.
func NewSliceRows(rows []RawRow) *SliceRows {
	return &SliceRows{rows: rows, i: -1}
}

func (s *SliceRows) Next() bool {
	if s.i+1 >= len(s.rows) {
		return false
	}
	s.i++
	return true
}

func (s *SliceRows) Row() RawRow  { return s.rows[s.i] }
func (s *SliceRows) Err() error   { return nil }
func (s *SliceRows) Close() error { return nil }
