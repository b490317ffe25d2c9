package extract

import (
	"errors"
	"fmt"
)

// ErrUnsupportedFormat is returned for files that are neither workbooks nor PDFs.
var ErrUnsupportedFormat = errors.New("unsupported file format")

// ImageSaveError reports a single media part that could not be persisted. The
// image is dropped and extraction continues.
type ImageSaveError struct {
	Media string
	Err   error
}

func (e *ImageSaveError) Error() string {
	return fmt.Sprintf("save image %q: %v", e.Media, e.Err)
}

func (e *ImageSaveError) Unwrap() error {
	return e.Err
}

// SheetProcessingError reports a worksheet that failed mid-stream. The sheet
// contributes no rows; remaining sheets are still processed.
type SheetProcessingError struct {
	Sheet string
	Err   error
}

func (e *SheetProcessingError) Error() string {
	return fmt.Sprintf("process sheet %q: %v", e.Sheet, e.Err)
}

func (e *SheetProcessingError) Unwrap() error {
	return e.Err
}
