// Package ingest runs extraction for uploaded and inbox files and keeps the
// record store and the line-item index in step.
package ingest

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/salamony4all/boq/internal/extract"
	"github.com/salamony4all/boq/internal/fileid"
	"github.com/salamony4all/boq/internal/lineitems"
	"github.com/salamony4all/boq/internal/models"
	"github.com/salamony4all/boq/internal/storage"
)

// FileExtractor turns a BOQ file into an extraction result.
type FileExtractor interface {
	ExtractFile(ctx context.Context, path string) (*models.ExtractionResult, error)
}

// Ingester extracts files, stores the records and indexes their line items.
type Ingester struct {
	extractor  FileExtractor
	store      storage.Storage
	items      lineitems.Index
	classifier lineitems.Classifier
	logger     *zap.Logger
}

// Option configures an Ingester.
type Option func(*Ingester)

// WithLogger sets the logger.
func WithLogger(l *zap.Logger) Option {
	return func(in *Ingester) {
		if l != nil {
			in.logger = l
		}
	}
}

// WithClassifier sets the header classifier used to find description columns
// when indexing line items.
func WithClassifier(c lineitems.Classifier) Option {
	return func(in *Ingester) { in.classifier = c }
}

// NewIngester creates an ingester. items may be nil, in which case line items
// are not indexed.
func NewIngester(extractor FileExtractor, store storage.Storage, items lineitems.Index, opts ...Option) *Ingester {
	in := &Ingester{
		extractor: extractor,
		store:     store,
		items:     items,
		logger:    zap.NewNop(),
	}
	if m, ok := extractor.(interface{ Matcher() *extract.Matcher }); ok {
		in.classifier = m.Matcher()
	}
	for _, opt := range opts {
		opt(in)
	}
	return in
}

// IngestFile extracts the file at path and stores it under id, generating a
// new id when id is empty. fileName is the user-facing name; it defaults to
// the base name of path.
func (in *Ingester) IngestFile(ctx context.Context, path, fileName, id string) (*models.Extraction, error) {
	if id == "" {
		id = uuid.New().String()
	}
	if fileName == "" {
		fileName = filepath.Base(path)
	}
	return in.ingest(ctx, &models.Extraction{
		ID:         id,
		FileName:   fileName,
		SourcePath: path,
	})
}

func (in *Ingester) ingest(ctx context.Context, ext *models.Extraction) (*models.Extraction, error) {
	ext.Format = extract.Format(ext.SourcePath)
	if ext.Format == "" {
		return nil, fmt.Errorf("%s: %w", ext.FileName, extract.ErrUnsupportedFormat)
	}

	in.logger.Debug("ingest extracting file",
		zap.String("id", ext.ID),
		zap.String("path", ext.SourcePath),
		zap.String("format", ext.Format))

	result, err := in.extractor.ExtractFile(ctx, ext.SourcePath)
	if err != nil {
		return nil, fmt.Errorf("extract %s: %w", ext.FileName, err)
	}
	ext.Result = result

	if existing, getErr := in.store.GetExtraction(ctx, ext.ID); getErr == nil {
		ext.CreatedAt = existing.CreatedAt
	}
	if err := in.store.CreateExtraction(ctx, ext); err != nil {
		return nil, fmt.Errorf("failed to store extraction: %w", err)
	}

	if in.items != nil {
		n, err := in.items.IndexExtraction(ctx, ext, in.classifier)
		if err != nil {
			// the record is stored; Reindex rebuilds the item index from it
			in.logger.Warn("failed to index line items", zap.String("id", ext.ID), zap.Error(err))
		} else {
			in.logger.Debug("ingest indexed line items", zap.String("id", ext.ID), zap.Int("items", n))
		}
	}

	in.logger.Info("extraction stored",
		zap.String("id", ext.ID),
		zap.String("file", ext.FileName),
		zap.Int("rows", ext.RowCount),
		zap.Int("images", ext.ImageCount))
	return ext, nil
}

// IngestInboxFile extracts a watched file under its deterministic id. The
// file is skipped (and skipped reported true) when the stored extraction was
// made from the same path, modification time and size. When allowedExts is
// non-empty the extension must be listed.
func (in *Ingester) IngestInboxFile(ctx context.Context, path string, allowedExts []string) (ext *models.Extraction, skipped bool, err error) {
	absPath, err := filepath.Abs(path)
	if err != nil {
		return nil, false, fmt.Errorf("absolute path: %w", err)
	}
	if len(allowedExts) > 0 && !extensionAllowed(filepath.Ext(absPath), allowedExts) {
		return nil, false, fmt.Errorf("extension %q not in allowed list", filepath.Ext(absPath))
	}
	info, err := os.Stat(absPath)
	if err != nil {
		return nil, false, fmt.Errorf("stat file: %w", err)
	}
	if !info.Mode().IsRegular() {
		return nil, false, fmt.Errorf("not a regular file: %s", absPath)
	}

	id := fileid.ExtractionID(absPath)
	if existing, getErr := in.store.GetExtraction(ctx, id); getErr == nil &&
		existing.SourcePath == absPath &&
		existing.SourceMtime == info.ModTime().UnixNano() &&
		existing.SourceSize == info.Size() {
		in.logger.Debug("ingest skipping unchanged file", zap.String("path", absPath))
		return existing, true, nil
	}

	ext, err = in.ingest(ctx, &models.Extraction{
		ID:          id,
		FileName:    filepath.Base(absPath),
		SourcePath:  absPath,
		SourceMtime: info.ModTime().UnixNano(),
		SourceSize:  info.Size(),
	})
	return ext, false, err
}

// IngestDirectory ingests every matching file under dir and returns how many
// were extracted. Files that fail are logged and skipped.
func (in *Ingester) IngestDirectory(ctx context.Context, dir string, allowedExts []string, recursive bool) (int, error) {
	absDir, err := filepath.Abs(dir)
	if err != nil {
		return 0, fmt.Errorf("absolute path: %w", err)
	}
	info, err := os.Stat(absDir)
	if err != nil {
		return 0, fmt.Errorf("stat directory: %w", err)
	}
	if !info.IsDir() {
		return 0, fmt.Errorf("not a directory: %s", absDir)
	}

	n := 0
	err = filepath.WalkDir(absDir, func(path string, d os.DirEntry, walkErr error) error {
		if walkErr != nil {
			return walkErr
		}
		if err := ctx.Err(); err != nil {
			return err
		}
		if d.IsDir() {
			if path != absDir && !recursive {
				return filepath.SkipDir
			}
			return nil
		}
		if !extensionAllowed(filepath.Ext(path), allowedExts) || isTempFile(d.Name()) {
			return nil
		}
		_, skipped, err := in.IngestInboxFile(ctx, path, allowedExts)
		if err != nil {
			in.logger.Warn("failed to ingest inbox file", zap.String("path", path), zap.Error(err))
			return nil
		}
		if !skipped {
			n++
		}
		return nil
	})
	return n, err
}

// Delete removes an extraction record and its line items.
func (in *Ingester) Delete(ctx context.Context, id string) error {
	in.logger.Debug("ingest deleting extraction", zap.String("id", id))
	if in.items != nil {
		if err := in.items.DeleteExtraction(ctx, id); err != nil {
			return fmt.Errorf("failed to delete line items: %w", err)
		}
	}
	if err := in.store.DeleteExtraction(ctx, id); err != nil {
		return fmt.Errorf("failed to delete extraction: %w", err)
	}
	return nil
}

// RemoveInboxFile deletes the extraction made from the inbox file at path.
// A file that was never extracted is not an error.
func (in *Ingester) RemoveInboxFile(ctx context.Context, path string) error {
	absPath, err := filepath.Abs(path)
	if err != nil {
		return fmt.Errorf("absolute path: %w", err)
	}
	err = in.Delete(ctx, fileid.ExtractionID(absPath))
	if errors.Is(err, storage.ErrNotFound) {
		return nil
	}
	return err
}

// Reindex rebuilds the line-item index from every stored extraction.
func (in *Ingester) Reindex(ctx context.Context) (int, error) {
	if in.items == nil {
		return 0, nil
	}
	const page = 100
	total := 0
	for offset := 0; ; offset += page {
		list, err := in.store.ListExtractions(ctx, offset, page)
		if err != nil {
			return total, fmt.Errorf("list extractions: %w", err)
		}
		for _, summary := range list {
			ext, err := in.store.GetExtraction(ctx, summary.ID)
			if err != nil {
				return total, err
			}
			n, err := in.items.IndexExtraction(ctx, ext, in.classifier)
			if err != nil {
				return total, fmt.Errorf("index %s: %w", ext.ID, err)
			}
			total += n
		}
		if len(list) < page {
			return total, nil
		}
	}
}

func extensionAllowed(ext string, allowed []string) bool {
	extNorm := strings.ToLower(strings.TrimPrefix(ext, "."))
	for _, a := range allowed {
		if strings.ToLower(strings.TrimPrefix(a, ".")) == extNorm {
			return true
		}
	}
	return false
}

// isTempFile reports office lock files such as "~$boq.xlsx".
func isTempFile(name string) bool {
	return strings.HasPrefix(name, "~$") || strings.HasPrefix(name, ".~lock.")
}
