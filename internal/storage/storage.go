// Package storage persists extraction records and the images pulled out of
// uploaded workbooks.
package storage

import (
	"context"
	"errors"

	"github.com/salamony4all/boq/internal/models"
)

// ErrNotFound is returned when a record does not exist.
var ErrNotFound = errors.New("not found")

// Storage defines extraction record persistence.
type Storage interface {
	CreateExtraction(ctx context.Context, ext *models.Extraction) error
	GetExtraction(ctx context.Context, id string) (*models.Extraction, error)
	// ListExtractions returns summaries (no result payload), newest first.
	ListExtractions(ctx context.Context, offset, limit int) ([]*models.Extraction, error)
	DeleteExtraction(ctx context.Context, id string) error

	CountExtractions(ctx context.Context) (int64, error)

	Close() error
}
