// Package fileid derives deterministic extraction ids for inbox files.
package fileid

import (
	"crypto/sha256"
	"encoding/hex"
	"path/filepath"
	"strings"
)

const (
	prefix  = "inbox-"
	hashLen = 24
)

// ExtractionID returns a stable extraction id for the given absolute path.
// The same path always yields the same id, so re-saving a workbook replaces
// its previous extraction and removing it deletes that record.
func ExtractionID(absolutePath string) string {
	normalized := filepath.Clean(absolutePath)
	hash := sha256.Sum256([]byte(normalized))
	return prefix + hex.EncodeToString(hash[:])[:hashLen]
}

// IsInboxID reports whether id was produced by ExtractionID.
func IsInboxID(id string) bool {
	return strings.HasPrefix(id, prefix) && len(id) == len(prefix)+hashLen
}
