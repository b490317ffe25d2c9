package storage

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"os"
	"path"
	"path/filepath"
	"strings"
	"time"
)

// MediaSink persists one image and returns the URL it can be fetched from.
// Implementations must be safe for concurrent use; each call writes its own name.
type MediaSink interface {
	Save(ctx context.Context, name string, data []byte) (string, error)
}

// DiskMediaSink writes images under a local directory that the HTTP server
// exposes at URLPrefix.
type DiskMediaSink struct {
	dir       string
	urlPrefix string
}

// NewDiskMediaSink creates dir if needed.
func NewDiskMediaSink(dir, urlPrefix string) (*DiskMediaSink, error) {
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create image directory: %w", err)
	}
	return &DiskMediaSink{dir: dir, urlPrefix: strings.TrimSuffix(urlPrefix, "/")}, nil
}

// Dir returns the directory images are written to.
func (s *DiskMediaSink) Dir() string { return s.dir }

// Save writes data to dir/name. Existing files are never overwritten.
func (s *DiskMediaSink) Save(ctx context.Context, name string, data []byte) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	name = filepath.Base(name)
	f, err := os.OpenFile(filepath.Join(s.dir, name), os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0644)
	if err != nil {
		return "", err
	}
	if _, err := f.Write(data); err != nil {
		f.Close()
		return "", err
	}
	if err := f.Close(); err != nil {
		return "", err
	}
	return s.urlPrefix + "/" + url.PathEscape(name), nil
}

// BlobMediaSink uploads images to a remote blob store with a bearer token.
type BlobMediaSink struct {
	baseURL string
	prefix  string
	token   string
	client  *http.Client
}

// NewBlobMediaSink returns a sink that PUTs to baseURL/prefix+name.
func NewBlobMediaSink(baseURL, prefix, token string) *BlobMediaSink {
	return &BlobMediaSink{
		baseURL: strings.TrimSuffix(baseURL, "/"),
		prefix:  strings.Trim(prefix, "/"),
		token:   token,
		client:  &http.Client{Timeout: 60 * time.Second},
	}
}

type blobResponse struct {
	URL      string `json:"url"`
	Pathname string `json:"pathname"`
}

// Save uploads data and returns the public URL reported by the store.
func (s *BlobMediaSink) Save(ctx context.Context, name string, data []byte) (string, error) {
	pathname := path.Base(name)
	if s.prefix != "" {
		pathname = s.prefix + "/" + pathname
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPut, s.baseURL+"/"+pathname, bytes.NewReader(data))
	if err != nil {
		return "", err
	}
	req.Header.Set("Authorization", "Bearer "+s.token)
	req.Header.Set("x-api-version", "7")
	req.Header.Set("x-content-type", http.DetectContentType(data))
	req.Header.Set("x-add-random-suffix", "0")

	resp, err := s.client.Do(req)
	if err != nil {
		return "", fmt.Errorf("blob upload: %w", err)
	}
	defer resp.Body.Close()
	body, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return "", fmt.Errorf("read blob response: %w", err)
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return "", fmt.Errorf("blob upload: status %d: %s", resp.StatusCode, strings.TrimSpace(string(body)))
	}

	var br blobResponse
	if err := json.Unmarshal(body, &br); err != nil {
		return "", fmt.Errorf("decode blob response: %w", err)
	}
	if br.URL == "" {
		return "", fmt.Errorf("blob upload: response has no url")
	}
	return br.URL, nil
}

// MediaOptions selects and configures a sink.
type MediaOptions struct {
	ImageDir       string
	ImageURLPrefix string
	BlobTokenEnv   string
	BlobBaseURL    string
	BlobPrefix     string
}

// NewMediaSink returns a blob sink when the token environment variable is set,
// otherwise a disk sink.
func NewMediaSink(opts MediaOptions) (MediaSink, error) {
	if opts.BlobTokenEnv != "" {
		if token := os.Getenv(opts.BlobTokenEnv); token != "" {
			return NewBlobMediaSink(opts.BlobBaseURL, opts.BlobPrefix, token), nil
		}
	}
	return NewDiskMediaSink(opts.ImageDir, opts.ImageURLPrefix)
}
