package extract

import (
	"testing"
	"time"

	"github.com/xuri/excelize/v2"
)

func TestExtractText(t *testing.T) {
	tests := []struct {
		name string
		in   any
		want string
	}{
		{"nil", nil, ""},
		{"string trimmed", "  Executive Chair \n", "Executive Chair"},
		{"empty string", "", ""},
		{"bytes", []byte(" Nos "), "Nos"},
		{"float", 1500.5, "1500.5"},
		{"whole float", float64(10), "10"},
		{"int", 42, "42"},
		{"int64", int64(7), "7"},
		{"bool", true, "true"},
		{"date", time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC), "2024-03-01"},
		{"datetime", time.Date(2024, 3, 1, 9, 30, 0, 0, time.UTC), "2024-03-01 09:30:00"},
		{"rich text", RichText{{Text: " Ergonomic "}, {Text: "Chair "}}, "Ergonomic Chair"},
		{"rich text runs", []excelize.RichTextRun{{Text: "Mesh"}, {Text: " back"}}, "Mesh back"},
		{"hyperlink", Hyperlink{Text: " Catalogue ", Target: "https://example.com/c"}, "Catalogue"},
		{"hyperlink without text", &Hyperlink{Target: "https://example.com/c"}, "https://example.com/c"},
		{"nil hyperlink", (*Hyperlink)(nil), ""},
		{"formula", Formula{Expr: "B2*C2", Result: 150.0}, "150"},
		{"formula string result", &Formula{Expr: "A1", Result: " 12 pcs "}, "12 pcs"},
		{"nested formula", Formula{Result: RichText{{Text: "x"}}}, "x"},
		{"other", struct{ A int }{3}, "{3}"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := ExtractText(tt.in); got != tt.want {
				t.Errorf("ExtractText(%#v) = %q, want %q", tt.in, got, tt.want)
			}
		})
	}
}

func TestExtractText_Idempotent(t *testing.T) {
	inputs := []any{nil, " a ", 3.25, RichText{{Text: "b "}}, Hyperlink{Text: "c"}, Formula{Result: 1}}
	for _, in := range inputs {
		first := ExtractText(in)
		if second := ExtractText(in); first != second {
			t.Errorf("ExtractText(%#v) not stable: %q then %q", in, first, second)
		}
		if again := ExtractText(first); again != first {
			t.Errorf("ExtractText of normalized %q = %q", first, again)
		}
	}
}
