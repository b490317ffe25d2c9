package extract

import (
	"context"
	"path"
	"strconv"
	"strings"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/salamony4all/boq/internal/models"
	"github.com/salamony4all/boq/internal/ooxml"
	"github.com/salamony4all/boq/internal/storage"
)

// DefaultImageBatchSize bounds concurrent image saves.
const DefaultImageBatchSize = 5

// ImageExtractor persists a workbook's embedded media and maps each picture to
// the cell it is anchored on.
type ImageExtractor struct {
	sink      storage.MediaSink
	batchSize int
	now       func() time.Time
	logger    *zap.Logger
}

// ImageOption configures an ImageExtractor.
type ImageOption func(*ImageExtractor)

// WithBatchSize sets the number of concurrent saves (default 5).
func WithBatchSize(n int) ImageOption {
	return func(x *ImageExtractor) {
		if n > 0 {
			x.batchSize = n
		}
	}
}

// WithClock overrides the clock used for the run timestamp prefix.
func WithClock(now func() time.Time) ImageOption {
	return func(x *ImageExtractor) { x.now = now }
}

// WithImageLogger sets the logger for dropped images and relationship gaps.
func WithImageLogger(l *zap.Logger) ImageOption {
	return func(x *ImageExtractor) { x.logger = l }
}

// NewImageExtractor returns an extractor saving through sink.
func NewImageExtractor(sink storage.MediaSink, opts ...ImageOption) *ImageExtractor {
	x := &ImageExtractor{
		sink:      sink,
		batchSize: DefaultImageBatchSize,
		now:       time.Now,
		logger:    zap.NewNop(),
	}
	for _, opt := range opts {
		opt(x)
	}
	return x
}

// Extract saves every entry under xl/media/ and returns one anchor per picture
// placement whose media was saved. Save failures drop the image; relationship
// failures drop the affected sheet's anchors. Neither fails the call.
func (x *ImageExtractor) Extract(ctx context.Context, c *ooxml.Container) []models.ImageAnchor {
	media := c.MediaEntries()
	if len(media) == 0 {
		return nil
	}

	urls := x.saveAll(ctx, c, media)
	saved := make(map[string]string, len(media))
	for i, p := range media {
		if urls[i] != "" {
			saved[p] = urls[i]
		}
	}
	if len(saved) == 0 {
		return nil
	}

	sheets, err := c.ResolveSheets()
	if err != nil {
		x.logger.Debug("sheet manifest unresolved; images left unanchored", zap.Error(err))
	}

	var anchors []models.ImageAnchor
	for _, sheet := range sheets {
		anchors = append(anchors, x.sheetAnchors(c, sheet, saved)...)
	}
	x.logger.Debug("images extracted",
		zap.Int("media", len(media)),
		zap.Int("saved", len(saved)),
		zap.Int("anchors", len(anchors)))
	return anchors
}

// saveAll saves media with at most batchSize saves in flight. urls[i] is left
// empty when media[i] failed.
func (x *ImageExtractor) saveAll(ctx context.Context, c *ooxml.Container, media []string) []string {
	prefix := strconv.FormatInt(x.now().UnixNano(), 10)
	urls := make([]string, len(media))

	var g errgroup.Group
	g.SetLimit(x.batchSize)
	for i, name := range media {
		i, name := i, name
		g.Go(func() error {
			url, err := x.saveOne(ctx, c, name, prefix+"_"+path.Base(name))
			if err != nil {
				x.logger.Warn("image dropped", zap.Error(&ImageSaveError{Media: name, Err: err}))
				return nil
			}
			urls[i] = url
			return nil
		})
	}
	_ = g.Wait()
	return urls
}

func (x *ImageExtractor) saveOne(ctx context.Context, c *ooxml.Container, entry, name string) (string, error) {
	data, err := c.ReadEntry(entry)
	if err != nil {
		return "", err
	}
	return x.sink.Save(ctx, name, data)
}

func (x *ImageExtractor) sheetAnchors(c *ooxml.Container, sheet ooxml.SheetRef, saved map[string]string) []models.ImageAnchor {
	drawing, err := c.ResolveDrawingForSheet(sheet.Path)
	if err != nil {
		x.logger.Debug("sheet relationships unresolved", zap.String("sheet", sheet.Name), zap.Error(err))
		return nil
	}
	if drawing == "" {
		return nil
	}
	rels, err := c.ResolveMediaForDrawing(drawing)
	if err != nil {
		x.logger.Debug("drawing relationships unresolved", zap.String("sheet", sheet.Name), zap.Error(err))
		return nil
	}
	placed, err := c.ResolveAnchors(drawing)
	if err != nil {
		x.logger.Debug("drawing unreadable", zap.String("sheet", sheet.Name), zap.Error(err))
		return nil
	}

	var out []models.ImageAnchor
	for _, a := range placed {
		mediaPath, ok := rels[a.RelID]
		if !ok {
			continue
		}
		url, ok := saved[mediaPath]
		if !ok {
			continue
		}
		out = append(out, models.ImageAnchor{
			SheetID:   sheet.SheetID,
			Row:       a.Row,
			Column:    a.Column,
			URL:       url,
			Extension: strings.ToLower(strings.TrimPrefix(path.Ext(mediaPath), ".")),
		})
	}
	return out
}
