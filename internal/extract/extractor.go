// Package extract turns BOQ workbooks and PDFs into a single stitched table with
// images attached to the cells they are anchored on.
package extract

import (
	"context"
	"fmt"
	"path/filepath"
	"strings"

	"github.com/xuri/excelize/v2"
	"go.uber.org/zap"

	"github.com/salamony4all/boq/internal/models"
	"github.com/salamony4all/boq/internal/ooxml"
	"github.com/salamony4all/boq/internal/storage"
)

// Extractor drives the whole pipeline for one file at a time. It keeps no state
// between calls and may be shared.
type Extractor struct {
	images       *ImageExtractor
	keywords     Keywords
	matcher      *Matcher
	combinedName string
	rawValues    bool
	logger       *zap.Logger
}

// Option configures an Extractor.
type Option func(*Extractor)

// WithLogger sets the logger for recoverable errors.
func WithLogger(l *zap.Logger) Option {
	return func(e *Extractor) { e.logger = l }
}

// WithKeywords replaces the header vocabulary.
func WithKeywords(k Keywords) Option {
	return func(e *Extractor) { e.keywords = k }
}

// WithCombinedSheetName sets the name of the stitched table.
func WithCombinedSheetName(name string) Option {
	return func(e *Extractor) {
		if name != "" {
			e.combinedName = name
		}
	}
}

// WithRawCellValues reads unformatted cell values instead of display text.
func WithRawCellValues(raw bool) Option {
	return func(e *Extractor) { e.rawValues = raw }
}

// WithImageExtractor replaces the image extractor built from the sink.
func WithImageExtractor(x *ImageExtractor) Option {
	return func(e *Extractor) { e.images = x }
}

// NewExtractor returns an extractor saving images through sink.
func NewExtractor(sink storage.MediaSink, opts ...Option) (*Extractor, error) {
	e := &Extractor{
		keywords:     DefaultKeywords(),
		combinedName: DefaultCombinedSheetName,
		logger:       zap.NewNop(),
	}
	for _, opt := range opts {
		opt(e)
	}
	if e.images == nil {
		e.images = NewImageExtractor(sink, WithImageLogger(e.logger))
	}
	m, err := NewMatcher(e.keywords)
	if err != nil {
		return nil, err
	}
	e.matcher = m
	return e, nil
}

// Matcher returns the compiled header vocabulary.
func (e *Extractor) Matcher() *Matcher { return e.matcher }

// Format returns the source format for path: "xlsx", "pdf" or "".
func Format(path string) string {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".xlsx", ".xlsm":
		return "xlsx"
	case ".pdf":
		return "pdf"
	default:
		return ""
	}
}

// ExtractFile dispatches on the file extension.
func (e *Extractor) ExtractFile(ctx context.Context, path string) (*models.ExtractionResult, error) {
	switch Format(path) {
	case "xlsx":
		return e.ExtractWorkbook(ctx, path)
	case "pdf":
		return e.ExtractPDF(ctx, path)
	default:
		return nil, fmt.Errorf("%s: %w", filepath.Base(path), ErrUnsupportedFormat)
	}
}

// ExtractWorkbook extracts every worksheet of the workbook at path into one
// stitched table. Only a ContainerError (or cancellation) fails the call; damaged
// sheets, relationships and images are logged and skipped.
func (e *Extractor) ExtractWorkbook(ctx context.Context, path string) (*models.ExtractionResult, error) {
	c, err := ooxml.Open(path)
	if err != nil {
		return nil, err
	}
	defer c.Close()

	index := NewAnchorIndex(e.images.Extract(ctx, c))

	refs, err := c.ResolveSheets()
	if err != nil {
		e.logger.Warn("sheet manifest unresolved", zap.String("file", path), zap.Error(err))
	}
	byName := make(map[string]ooxml.SheetRef, len(refs))
	for _, r := range refs {
		byName[r.Name] = r
	}

	f, err := excelize.OpenFile(path)
	if err != nil {
		return nil, &ooxml.ContainerError{Path: path, Err: err}
	}
	defer f.Close()

	st := newStitcher(e.combinedName)
	for _, name := range f.GetSheetList() {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		ref := byName[name]
		var merged []ooxml.CellRange
		if ref.Path != "" {
			if merged, err = c.ResolveMergedRanges(ref.Path); err != nil {
				e.logger.Debug("merged ranges unresolved", zap.String("sheet", name), zap.Error(err))
			}
		}

		table, err := e.processSheet(f, name, NewDetector(e.matcher, ref.SheetID, index, merged))
		if err != nil {
			e.logger.Warn("sheet skipped", zap.Error(&SheetProcessingError{Sheet: name, Err: err}))
			continue
		}
		if table == nil {
			e.logger.Debug("no table found", zap.String("sheet", name))
			continue
		}
		e.logger.Debug("table detected",
			zap.String("sheet", name),
			zap.Int("sheet_id", ref.SheetID),
			zap.Int("columns", table.ColumnCount),
			zap.Int("rows", len(table.Rows)))
		st.add(table)
	}
	return st.result(), nil
}

// processSheet streams one sheet through d. Panics from malformed sheet XML are
// returned as errors so the sheet can be skipped.
func (e *Extractor) processSheet(f *excelize.File, name string, d *Detector) (table *models.Table, err error) {
	defer func() {
		if r := recover(); r != nil {
			table, err = nil, fmt.Errorf("panic: %v", r)
		}
	}()

	var opts []excelize.Options
	if e.rawValues {
		opts = append(opts, excelize.Options{RawCellValue: true})
	}
	src, err := OpenSheetRows(f, name, opts...)
	if err != nil {
		return nil, err
	}
	table, err = d.DetectTable(src, name)
	if cerr := src.Close(); cerr != nil && err == nil {
		err = cerr
	}
	return table, err
}

// ExtractPDF extracts a PDF BOQ. The whole document is read as one sheet so
// repeated page headers are dropped by the detector.
func (e *Extractor) ExtractPDF(ctx context.Context, path string) (*models.ExtractionResult, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	info, inspectErr := InspectPDF(path)
	src, err := OpenPDFRows(path)
	if err != nil {
		if inspectErr != nil {
			err = fmt.Errorf("%w (%v)", err, inspectErr)
		}
		return nil, &ooxml.ContainerError{Path: path, Err: err}
	}
	defer src.Close()

	switch {
	case inspectErr != nil:
		// text is often still readable from PDFs that fail validation
		e.logger.Debug("pdf validation failed", zap.String("path", path), zap.Error(inspectErr))
	case len(info.ImagePages) > 0:
		e.logger.Warn("pdf images are not anchored to rows",
			zap.String("file", filepath.Base(path)),
			zap.Ints("pages", info.ImagePages),
		)
	}

	st := newStitcher(e.combinedName)
	table, err := NewDetector(e.matcher, 0, nil, nil).DetectTable(src, filepath.Base(path))
	if err != nil {
		return nil, err
	}
	for _, page := range src.SkippedPages() {
		e.logger.Warn("pdf page skipped", zap.Error(&SheetProcessingError{
			Sheet: fmt.Sprintf("%s page %d", filepath.Base(path), page),
			Err:   errUnreadablePage,
		}))
	}
	st.add(table)
	return st.result(), nil
}
