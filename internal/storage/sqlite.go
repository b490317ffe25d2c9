package storage

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "github.com/mattn/go-sqlite3"

	"github.com/salamony4all/boq/internal/models"
)

// SQLiteStorage implements Storage using SQLite.
type SQLiteStorage struct {
	db *sql.DB
}

// NewSQLiteStorage opens or creates a SQLite database at dbPath and initializes the schema.
// Parent directories are created if they do not exist.
func NewSQLiteStorage(dbPath string) (*SQLiteStorage, error) {
	if dir := filepath.Dir(dbPath); dir != "." {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return nil, fmt.Errorf("failed to create database directory: %w", err)
		}
	}
	db, err := sql.Open("sqlite3", dbPath)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	if _, err := db.Exec("PRAGMA journal_mode=WAL"); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to enable WAL: %w", err)
	}

	if err := initSchema(db); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to initialize schema: %w", err)
	}

	return &SQLiteStorage{db: db}, nil
}

func initSchema(db *sql.DB) error {
	schema := `
	CREATE TABLE IF NOT EXISTS extractions (
		id TEXT PRIMARY KEY,
		file_name TEXT NOT NULL,
		source_path TEXT,
		source_mtime INTEGER NOT NULL DEFAULT 0,
		source_size INTEGER NOT NULL DEFAULT 0,
		format TEXT NOT NULL,
		row_count INTEGER NOT NULL DEFAULT 0,
		image_count INTEGER NOT NULL DEFAULT 0,
		result TEXT NOT NULL,
		created_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP,
		updated_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP
	);

	CREATE INDEX IF NOT EXISTS idx_extractions_created_at ON extractions(created_at);
	CREATE INDEX IF NOT EXISTS idx_extractions_source_path ON extractions(source_path);
	`
	_, err := db.Exec(schema)
	return err
}

// CreateExtraction inserts ext, replacing any record with the same id.
// A re-extracted inbox file keeps its id but gets a fresh result.
func (s *SQLiteStorage) CreateExtraction(ctx context.Context, ext *models.Extraction) error {
	if ext.Result == nil {
		return fmt.Errorf("extraction %s has no result", ext.ID)
	}
	resultJSON, err := json.Marshal(ext.Result)
	if err != nil {
		return fmt.Errorf("failed to marshal result: %w", err)
	}

	now := time.Now()
	if ext.CreatedAt.IsZero() {
		ext.CreatedAt = now
	}
	ext.UpdatedAt = now
	ext.RowCount = ext.Result.RowCount()
	ext.ImageCount = ext.Result.ImageCount()

	_, err = s.db.ExecContext(ctx,
		`INSERT INTO extractions (id, file_name, source_path, source_mtime, source_size, format, row_count, image_count, result, created_at, updated_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		 ON CONFLICT(id) DO UPDATE SET
		   file_name = excluded.file_name,
		   source_path = excluded.source_path,
		   source_mtime = excluded.source_mtime,
		   source_size = excluded.source_size,
		   format = excluded.format,
		   row_count = excluded.row_count,
		   image_count = excluded.image_count,
		   result = excluded.result,
		   updated_at = excluded.updated_at`,
		ext.ID, ext.FileName, ext.SourcePath, ext.SourceMtime, ext.SourceSize, ext.Format, ext.RowCount, ext.ImageCount,
		string(resultJSON), ext.CreatedAt, ext.UpdatedAt,
	)
	return err
}

// GetExtraction returns an extraction with its full result.
func (s *SQLiteStorage) GetExtraction(ctx context.Context, id string) (*models.Extraction, error) {
	var ext models.Extraction
	var sourcePath sql.NullString
	var resultJSON string

	err := s.db.QueryRowContext(ctx,
		`SELECT id, file_name, source_path, source_mtime, source_size, format, row_count, image_count, result, created_at, updated_at
		 FROM extractions WHERE id = ?`, id,
	).Scan(&ext.ID, &ext.FileName, &sourcePath, &ext.SourceMtime, &ext.SourceSize, &ext.Format, &ext.RowCount, &ext.ImageCount,
		&resultJSON, &ext.CreatedAt, &ext.UpdatedAt)

	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("extraction %s: %w", id, ErrNotFound)
	}
	if err != nil {
		return nil, err
	}
	ext.SourcePath = sourcePath.String

	var result models.ExtractionResult
	if err := json.Unmarshal([]byte(resultJSON), &result); err != nil {
		return nil, fmt.Errorf("failed to unmarshal result: %w", err)
	}
	ext.Result = &result
	return &ext, nil
}

// ListExtractions returns extraction summaries with offset and limit.
func (s *SQLiteStorage) ListExtractions(ctx context.Context, offset, limit int) ([]*models.Extraction, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, file_name, source_path, source_mtime, source_size, format, row_count, image_count, created_at, updated_at
		 FROM extractions ORDER BY created_at DESC LIMIT ? OFFSET ?`,
		limit, offset,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var list []*models.Extraction
	for rows.Next() {
		var ext models.Extraction
		var sourcePath sql.NullString
		if err := rows.Scan(&ext.ID, &ext.FileName, &sourcePath, &ext.SourceMtime, &ext.SourceSize, &ext.Format, &ext.RowCount,
			&ext.ImageCount, &ext.CreatedAt, &ext.UpdatedAt); err != nil {
			return nil, err
		}
		ext.SourcePath = sourcePath.String
		list = append(list, &ext)
	}
	return list, rows.Err()
}

// DeleteExtraction removes an extraction by ID.
func (s *SQLiteStorage) DeleteExtraction(ctx context.Context, id string) error {
	result, err := s.db.ExecContext(ctx, `DELETE FROM extractions WHERE id = ?`, id)
	if err != nil {
		return err
	}
	n, _ := result.RowsAffected()
	if n == 0 {
		return fmt.Errorf("extraction %s: %w", id, ErrNotFound)
	}
	return nil
}

// CountExtractions returns the number of stored extractions.
func (s *SQLiteStorage) CountExtractions(ctx context.Context) (int64, error) {
	var n int64
	err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM extractions`).Scan(&n)
	return n, err
}

// Close closes the database.
func (s *SQLiteStorage) Close() error {
	return s.db.Close()
}
