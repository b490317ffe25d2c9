// Package ooxml reads the parts of a spreadsheet ZIP container that the extraction
// pipeline needs: the workbook manifest, relationship files, drawings and media.
package ooxml

import (
	"archive/zip"
	"errors"
	"fmt"
	"io"
	"sort"
	"strings"
)

const (
	workbookPart = "xl/workbook.xml"
	mediaDir     = "xl/media/"
)

// ErrEntryNotFound is returned when a named part does not exist in the archive.
var ErrEntryNotFound = errors.New("entry not found")

// Container is an open workbook archive with random access to named entries.
// Nothing is unpacked to disk.
type Container struct {
	path  string
	zr    *zip.ReadCloser
	files map[string]*zip.File
	names []string
}

// Open opens path as an OOXML workbook container.
func Open(path string) (*Container, error) {
	zr, err := zip.OpenReader(path)
	if err != nil {
		return nil, &ContainerError{Path: path, Err: err}
	}

	c := &Container{
		path:  path,
		zr:    zr,
		files: make(map[string]*zip.File, len(zr.File)),
		names: make([]string, 0, len(zr.File)),
	}
	for _, f := range zr.File {
		name := strings.TrimPrefix(f.Name, "/")
		if _, dup := c.files[name]; dup {
			continue
		}
		c.files[name] = f
		c.names = append(c.names, name)
	}

	if !c.Has(workbookPart) {
		zr.Close()
		return nil, &ContainerError{Path: path, Err: fmt.Errorf("missing %s: not a spreadsheet workbook", workbookPart)}
	}
	return c, nil
}

// Path returns the file the container was opened from.
func (c *Container) Path() string {
	return c.path
}

// Entries lists entry names in archive order.
func (c *Container) Entries() []string {
	out := make([]string, len(c.names))
	copy(out, c.names)
	return out
}

// Has reports whether name exists in the archive.
func (c *Container) Has(name string) bool {
	_, ok := c.files[name]
	return ok
}

// OpenEntry opens a streaming reader on the named entry.
func (c *Container) OpenEntry(name string) (io.ReadCloser, error) {
	f, ok := c.files[name]
	if !ok {
		return nil, fmt.Errorf("%s: %w", name, ErrEntryNotFound)
	}
	return f.Open()
}

// ReadEntry returns the raw bytes of the named entry.
func (c *Container) ReadEntry(name string) ([]byte, error) {
	rc, err := c.OpenEntry(name)
	if err != nil {
		return nil, err
	}
	defer rc.Close()

	data, err := io.ReadAll(rc)
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", name, err)
	}
	return data, nil
}

// MediaEntries lists every entry under xl/media/, sorted by name.
func (c *Container) MediaEntries() []string {
	var out []string
	for _, name := range c.names {
		if strings.HasPrefix(name, mediaDir) && !strings.HasSuffix(name, "/") {
			out = append(out, name)
		}
	}
	sort.Strings(out)
	return out
}

// Close releases the underlying file handle.
func (c *Container) Close() error {
	return c.zr.Close()
}
