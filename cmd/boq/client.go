package main

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/url"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/salamony4all/boq/internal/cli"
	"github.com/salamony4all/boq/internal/models"
)

// apiClient talks to a running boq server. Used whenever --server is set so the
// CLI does not contend with the server for the SQLite and Bleve locks.
type apiClient struct {
	baseURL string
	http    *http.Client
}

func newAPIClient(baseURL string) *apiClient {
	return &apiClient{
		baseURL: strings.TrimRight(baseURL, "/"),
		http:    &http.Client{Timeout: 5 * time.Minute},
	}
}

// do sends req and decodes a JSON body into out when the status is want.
func (c *apiClient) do(req *http.Request, want int, out interface{}) error {
	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != want {
		b, _ := io.ReadAll(resp.Body)
		return fmt.Errorf("server returned %d: %s", resp.StatusCode, apiErrorMessage(b))
	}
	if out == nil {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decode response: %w", err)
	}
	return nil
}

// apiErrorMessage returns the "error" field of a JSON error body, or the raw body.
func apiErrorMessage(body []byte) string {
	var e struct {
		Error string `json:"error"`
	}
	if json.Unmarshal(body, &e) == nil && e.Error != "" {
		return e.Error
	}
	return strings.TrimSpace(string(body))
}

func (c *apiClient) get(id string) (*models.Extraction, error) {
	req, err := http.NewRequest(http.MethodGet, c.baseURL+"/api/v1/extractions/"+url.PathEscape(id), nil)
	if err != nil {
		return nil, err
	}
	var ext models.Extraction
	if err := c.do(req, http.StatusOK, &ext); err != nil {
		return nil, err
	}
	return &ext, nil
}

func (c *apiClient) list(offset, limit int) (*cli.ExtractionList, error) {
	v := url.Values{}
	v.Set("offset", strconv.Itoa(offset))
	v.Set("limit", strconv.Itoa(limit))
	req, err := http.NewRequest(http.MethodGet, c.baseURL+"/api/v1/extractions?"+v.Encode(), nil)
	if err != nil {
		return nil, err
	}
	var list cli.ExtractionList
	if err := c.do(req, http.StatusOK, &list); err != nil {
		return nil, err
	}
	return &list, nil
}

func (c *apiClient) delete(id string) error {
	req, err := http.NewRequest(http.MethodDelete, c.baseURL+"/api/v1/extractions/"+url.PathEscape(id), nil)
	if err != nil {
		return err
	}
	return c.do(req, http.StatusOK, nil)
}

// upload posts the file at path as a multipart "file" field.
func (c *apiClient) upload(path string) (*models.Extraction, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	var body bytes.Buffer
	mw := multipart.NewWriter(&body)
	part, err := mw.CreateFormFile("file", filepath.Base(path))
	if err != nil {
		return nil, err
	}
	if _, err := io.Copy(part, f); err != nil {
		return nil, fmt.Errorf("read %s: %w", path, err)
	}
	if err := mw.Close(); err != nil {
		return nil, err
	}

	req, err := http.NewRequest(http.MethodPost, c.baseURL+"/api/v1/extractions", &body)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", mw.FormDataContentType())
	var ext models.Extraction
	if err := c.do(req, http.StatusCreated, &ext); err != nil {
		return nil, err
	}
	return &ext, nil
}

func (c *apiClient) search(q *models.ItemQuery) (*models.ItemSearchResponse, error) {
	v := url.Values{}
	v.Set("q", q.Query)
	if q.Limit > 0 {
		v.Set("limit", strconv.Itoa(q.Limit))
	}
	if q.FuzzyEnabled {
		v.Set("fuzzy", "true")
	}
	if q.ExtractionID != "" {
		v.Set("extraction_id", q.ExtractionID)
	}
	req, err := http.NewRequest(http.MethodGet, c.baseURL+"/api/v1/items/search?"+v.Encode(), nil)
	if err != nil {
		return nil, err
	}
	var resp models.ItemSearchResponse
	if err := c.do(req, http.StatusOK, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

func (c *apiClient) status() (*statusResponse, error) {
	req, err := http.NewRequest(http.MethodGet, c.baseURL+"/api/v1/status", nil)
	if err != nil {
		return nil, err
	}
	var s statusResponse
	if err := c.do(req, http.StatusOK, &s); err != nil {
		return nil, err
	}
	return &s, nil
}

func (c *apiClient) listInbox() ([]string, error) {
	req, err := http.NewRequest(http.MethodGet, c.baseURL+"/api/v1/inbox/directories", nil)
	if err != nil {
		return nil, err
	}
	var out struct {
		Directories []string `json:"directories"`
	}
	if err := c.do(req, http.StatusOK, &out); err != nil {
		return nil, err
	}
	return out.Directories, nil
}

func (c *apiClient) addInbox(path string, sync bool) error {
	body, err := json.Marshal(map[string]interface{}{"path": path, "sync": sync})
	if err != nil {
		return err
	}
	req, err := http.NewRequest(http.MethodPost, c.baseURL+"/api/v1/inbox/directories", bytes.NewReader(body))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")
	return c.do(req, http.StatusCreated, nil)
}

func (c *apiClient) removeInbox(path string) error {
	req, err := http.NewRequest(http.MethodDelete, c.baseURL+"/api/v1/inbox/directories?path="+url.QueryEscape(path), nil)
	if err != nil {
		return err
	}
	return c.do(req, http.StatusOK, nil)
}
