package extract

import (
	"errors"
	"fmt"
	"math"
	"os"
	"sort"
	"strings"

	"github.com/ledongthuc/pdf"
)

var errUnreadablePage = errors.New("unreadable page content")

const (
	defaultFontSize = 10.0
	// cellGapEm is the horizontal gap, in font sizes, that separates two cells.
	cellGapEm = 1.2
	// wordGapEm is the gap above which a space is inserted between glyphs.
	wordGapEm = 0.2
)

// PDFRows streams a PDF's text lines as rows, one page in memory at a time.
// Row numbers run continuously across pages.
type PDFRows struct {
	file    *os.File
	reader  *pdf.Reader
	page    int
	pages   int
	pending [][]string
	n       int
	cur     RawRow
	skipped []int
}

// OpenPDFRows opens the PDF at path.
func OpenPDFRows(path string) (*PDFRows, error) {
	f, r, err := pdf.Open(path)
	if err != nil {
		if f != nil {
			f.Close()
		}
		return nil, fmt.Errorf("open PDF: %w", err)
	}
	return &PDFRows{file: f, reader: r, pages: r.NumPage()}, nil
}

func (p *PDFRows) Next() bool {
	for len(p.pending) == 0 {
		if p.page >= p.pages {
			return false
		}
		p.page++
		lines, err := p.readPage(p.page)
		if err != nil {
			p.skipped = append(p.skipped, p.page)
			continue
		}
		p.pending = lines
	}

	cells := p.pending[0]
	p.pending = p.pending[1:]
	p.n++
	values := make([]any, len(cells)+1)
	for i, c := range cells {
		values[i+1] = c
	}
	p.cur = RawRow{Number: p.n, Values: values}
	return true
}

func (p *PDFRows) Row() RawRow { return p.cur }
func (p *PDFRows) Err() error  { return nil }

// SkippedPages lists 1-based pages whose content could not be decoded.
func (p *PDFRows) SkippedPages() []int { return p.skipped }

func (p *PDFRows) Close() error { return p.file.Close() }

// readPage decodes one page. The pdf package panics on some malformed content
// streams; that is reported as an error for the page.
func (p *PDFRows) readPage(i int) (lines [][]string, err error) {
	defer func() {
		if r := recover(); r != nil {
			lines, err = nil, fmt.Errorf("page %d: %w: %v", i, errUnreadablePage, r)
		}
	}()
	page := p.reader.Page(i)
	if page.V.IsNull() {
		return nil, nil
	}
	return groupLines(page.Content().Text), nil
}

// groupLines clusters positioned glyphs into baselines (top to bottom) and
// splits each baseline into cells on wide horizontal gaps.
func groupLines(texts []pdf.Text) [][]string {
	glyphs := make([]pdf.Text, 0, len(texts))
	for _, t := range texts {
		if t.S != "" {
			glyphs = append(glyphs, t)
		}
	}
	if len(glyphs) == 0 {
		return nil
	}
	sort.SliceStable(glyphs, func(i, j int) bool {
		if glyphs[i].Y != glyphs[j].Y {
			return glyphs[i].Y > glyphs[j].Y
		}
		return glyphs[i].X < glyphs[j].X
	})

	var lines [][]string
	start := 0
	for i := 1; i <= len(glyphs); i++ {
		if i < len(glyphs) && math.Abs(glyphs[i].Y-glyphs[start].Y) <= lineTolerance(glyphs[start]) {
			continue
		}
		if cells := splitCells(glyphs[start:i]); len(cells) > 0 {
			lines = append(lines, cells)
		}
		start = i
	}
	return lines
}

func lineTolerance(t pdf.Text) float64 {
	return math.Max(fontSize(t)*0.4, 1.5)
}

func fontSize(t pdf.Text) float64 {
	if t.FontSize > 0 {
		return t.FontSize
	}
	return defaultFontSize
}

func glyphWidth(t pdf.Text) float64 {
	if t.W > 0 {
		return t.W
	}
	return fontSize(t) * 0.5 * float64(len([]rune(t.S)))
}

func splitCells(line []pdf.Text) []string {
	sorted := make([]pdf.Text, len(line))
	copy(sorted, line)
	sort.SliceStable(sorted, func(i, j int) bool { return sorted[i].X < sorted[j].X })

	var (
		cells   []string
		b       strings.Builder
		prevEnd = math.Inf(-1)
	)
	flush := func() {
		cells = append(cells, strings.TrimSpace(b.String()))
		b.Reset()
	}
	for _, g := range sorted {
		fs := fontSize(g)
		gap := g.X - prevEnd
		switch {
		case b.Len() > 0 && gap > cellGapEm*fs:
			flush()
		case b.Len() > 0 && gap > wordGapEm*fs && !strings.HasSuffix(b.String(), " "):
			b.WriteByte(' ')
		}
		if strings.TrimSpace(g.S) == "" {
			if b.Len() > 0 && !strings.HasSuffix(b.String(), " ") {
				b.WriteByte(' ')
			}
		} else {
			b.WriteString(g.S)
		}
		prevEnd = g.X + glyphWidth(g)
	}
	flush()

	for _, c := range cells {
		if c != "" {
			return cells
		}
	}
	return nil
}
