package storage

import (
	"errors"
	"io/fs"
	"os"
	"path/filepath"
)

// UsageReport breaks down on-disk usage of the service's data paths.
type UsageReport struct {
	DatabaseBytes  int64 `json:"database_bytes"`
	ItemIndexBytes int64 `json:"item_index_bytes"`
	UploadBytes    int64 `json:"upload_bytes"`
	ImageBytes     int64 `json:"image_bytes"`
	TotalBytes     int64 `json:"total_bytes"`
}

// Usage measures each path. The database path also counts its WAL and shm files.
func Usage(dbPath, itemIndexPath, uploadDir, imageDir string) (*UsageReport, error) {
	var r UsageReport
	var err error
	if dbPath != "" {
		if r.DatabaseBytes, err = DiskUsageBytes(dbPath, dbPath+"-wal", dbPath+"-shm"); err != nil {
			return nil, err
		}
	}
	if r.ItemIndexBytes, err = DiskUsageBytes(itemIndexPath); err != nil {
		return nil, err
	}
	if r.UploadBytes, err = DiskUsageBytes(uploadDir); err != nil {
		return nil, err
	}
	if r.ImageBytes, err = DiskUsageBytes(imageDir); err != nil {
		return nil, err
	}
	r.TotalBytes = r.DatabaseBytes + r.ItemIndexBytes + r.UploadBytes + r.ImageBytes
	return &r, nil
}

// DiskUsageBytes returns the total size in bytes of the given files or
// directories. Missing paths count as zero.
func DiskUsageBytes(paths ...string) (int64, error) {
	var total int64
	for _, p := range paths {
		if p == "" {
			continue
		}
		err := filepath.WalkDir(p, func(_ string, d fs.DirEntry, err error) error {
			if err != nil {
				return err
			}
			if d.IsDir() {
				return nil
			}
			info, err := d.Info()
			if err != nil {
				return err
			}
			total += info.Size()
			return nil
		})
		if err != nil && !errors.Is(err, os.ErrNotExist) {
			return 0, err
		}
	}
	return total, nil
}
