package extract

import (
	"testing"

	"github.com/salamony4all/boq/internal/models"
)

func cells(values ...string) []models.Cell {
	out := make([]models.Cell, len(values))
	for i, v := range values {
		out[i] = models.Cell{Value: v, Images: []models.ImageRef{}}
	}
	return out
}

func TestStitcher_HeaderSetOnce(t *testing.T) {
	st := newStitcher("Combined BOQ")
	st.add(nil)
	st.add(&models.Table{
		SheetName: "Ground",
		Header:    []string{"Item", "Qty"},
		Rows:      []models.Row{{Cells: cells("Chair", "10")}},
	})
	st.add(&models.Table{
		SheetName: "First",
		Header:    []string{"Code", "Description", "Unit"},
		Rows: []models.Row{
			{Cells: cells("C1", "Sofa", "Nos")},
			{Cells: cells("", "", "only-in-third-column")},
		},
	})
	st.add(&models.Table{
		SheetName: "Second",
		Header:    []string{"Qty"},
		Rows:      []models.Row{{Cells: cells("4")}},
	})

	res := st.result()
	table := res.Tables[0]
	if table.SheetName != "Combined BOQ" || res.TotalTables != 1 {
		t.Errorf("unexpected wrapper %+v", res)
	}
	if len(table.Header) != 2 || table.Header[0] != "Item" {
		t.Errorf("header = %v", table.Header)
	}
	if len(table.Rows) != 3 {
		t.Fatalf("expected 3 rows, got %d: %+v", len(table.Rows), table.Rows)
	}
	for i, r := range table.Rows {
		if len(r.Cells) != 2 {
			t.Errorf("row %d has %d cells", i, len(r.Cells))
		}
	}
	if table.Rows[2].Cells[0].Value != "4" || table.Rows[2].Cells[1].Images == nil {
		t.Errorf("padded row = %+v", table.Rows[2])
	}
	if len(st.sheets) != 3 {
		t.Errorf("sheets = %v", st.sheets)
	}
}

func TestStitcher_Empty(t *testing.T) {
	res := newStitcher("Combined BOQ").result()
	table := res.Tables[0]
	if table.Header != nil || table.ColumnCount != 0 || table.Rows == nil || len(table.Rows) != 0 {
		t.Errorf("unexpected empty result %+v", table)
	}
}
