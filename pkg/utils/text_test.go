package utils

import (
	"testing"
)

func TestTruncate(t *testing.T) {
	tests := []struct {
		in   string
		max  int
		want string
	}{
		{"hello", 10, "hello"},
		{"hello world", 5, "hello..."},
		{"x", 0, "x"},
		{"Ø 50mm façade", 6, "Ø 50mm..."},
	}
	for _, tt := range tests {
		if got := Truncate(tt.in, tt.max); got != tt.want {
			t.Errorf("Truncate(%q, %d) = %q, want %q", tt.in, tt.max, got, tt.want)
		}
	}
}

func TestSingleLine(t *testing.T) {
	if got := SingleLine("Executive chair\n  with\tarmrests "); got != "Executive chair with armrests" {
		t.Errorf("SingleLine = %q", got)
	}
}

func TestPadRight(t *testing.T) {
	if got := PadRight("Qty", 6); got != "Qty   " {
		t.Errorf("PadRight = %q", got)
	}
	if got := PadRight("Description", 4); got != "Description" {
		t.Errorf("PadRight should not cut, got %q", got)
	}
	if got := PadRight("m²", 3); got != "m² " {
		t.Errorf("PadRight counts runes, got %q", got)
	}
}
