package models

import "time"

// Extraction is a stored extraction run: the uploaded file plus its result.
type Extraction struct {
	ID         string `json:"id" db:"id"`
	FileName   string `json:"file_name" db:"file_name"`
	SourcePath string `json:"source_path,omitempty" db:"source_path"`
	// SourceMtime and SourceSize identify the inbox file version that was
	// extracted; zero for uploads.
	SourceMtime int64             `json:"source_mtime,omitempty" db:"source_mtime"`
	SourceSize  int64             `json:"source_size,omitempty" db:"source_size"`
	Format      string            `json:"format" db:"format"`
	RowCount    int               `json:"row_count" db:"row_count"`
	ImageCount  int               `json:"image_count" db:"image_count"`
	Result      *ExtractionResult `json:"result,omitempty" db:"result"`
	CreatedAt   time.Time         `json:"created_at" db:"created_at"`
	UpdatedAt   time.Time         `json:"updated_at" db:"updated_at"`
}

// Summary returns a copy of e without the result payload, for listings.
func (e *Extraction) Summary() *Extraction {
	s := *e
	s.Result = nil
	return &s
}
