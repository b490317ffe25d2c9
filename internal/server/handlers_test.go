package server

import (
	"bytes"
	"encoding/json"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/xuri/excelize/v2"
	"go.uber.org/zap"

	"github.com/salamony4all/boq/internal/config"
	"github.com/salamony4all/boq/internal/extract"
	"github.com/salamony4all/boq/internal/ingest"
	"github.com/salamony4all/boq/internal/lineitems"
	"github.com/salamony4all/boq/internal/models"
	"github.com/salamony4all/boq/internal/storage"
)

type mockInboxService struct {
	dirs []string
}

func (m *mockInboxService) Directories() []string {
	return append([]string(nil), m.dirs...)
}

func (m *mockInboxService) AddDirectory(path string, _ bool) error {
	for _, d := range m.dirs {
		if d == path {
			return nil
		}
	}
	m.dirs = append(m.dirs, path)
	return nil
}

func (m *mockInboxService) RemoveDirectory(path string) error {
	for i, d := range m.dirs {
		if d == path {
			m.dirs = append(m.dirs[:i], m.dirs[i+1:]...)
			return nil
		}
	}
	return nil
}

type testServer struct {
	srv     *Server
	handler http.Handler
	cfg     *config.Config
	dir     string
}

func newTestServer(t *testing.T, inbox InboxService, configPath string) *testServer {
	t.Helper()
	dir := t.TempDir()
	cfg := &config.Config{}
	cfg.Storage.DatabasePath = filepath.Join(dir, "db", "boq.db")
	cfg.Storage.ItemIndexPath = filepath.Join(dir, "items")
	cfg.Storage.UploadDir = filepath.Join(dir, "uploads")
	cfg.Storage.ImageDir = filepath.Join(dir, "uploads", "images")
	cfg.Storage.ImageURLPrefix = "/uploads/images"
	config.ApplyDefaults(cfg)
	cfg.Server.MaxUploadMB = 1

	store, err := storage.NewSQLiteStorage(cfg.Storage.DatabasePath)
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { _ = store.Close() })
	items, err := lineitems.NewBleveIndex(cfg.Storage.ItemIndexPath)
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { _ = items.Close() })
	sink, err := storage.NewDiskMediaSink(cfg.Storage.ImageDir, cfg.Storage.ImageURLPrefix)
	if err != nil {
		t.Fatal(err)
	}
	ex, err := extract.NewExtractor(sink)
	if err != nil {
		t.Fatal(err)
	}
	in := ingest.NewIngester(ex, store, items)
	srv := NewServer(in, store, items, cfg, zap.NewNop(), inbox, configPath)
	return &testServer{srv: srv, handler: srv.Routes(), cfg: cfg, dir: dir}
}

func (ts *testServer) do(t *testing.T, req *http.Request) *httptest.ResponseRecorder {
	t.Helper()
	w := httptest.NewRecorder()
	ts.handler.ServeHTTP(w, req)
	return w
}

func workbookBytes(t *testing.T) []byte {
	t.Helper()
	f := excelize.NewFile()
	defer f.Close()
	rows := [][]any{
		{"BILL OF QUANTITIES"},
		{"S.No", "Description", "Qty", "Rate"},
		{"1", "Executive chair", "10", "150"},
		{"2", "Meeting table", "2", "900"},
	}
	for i, r := range rows {
		cell, _ := excelize.CoordinatesToCellName(1, i+1)
		row := r
		if err := f.SetSheetRow("Sheet1", cell, &row); err != nil {
			t.Fatal(err)
		}
	}
	buf, err := f.WriteToBuffer()
	if err != nil {
		t.Fatal(err)
	}
	return buf.Bytes()
}

func uploadRequest(t *testing.T, field, name string, data []byte) *http.Request {
	t.Helper()
	var body bytes.Buffer
	mw := multipart.NewWriter(&body)
	part, err := mw.CreateFormFile(field, name)
	if err != nil {
		t.Fatal(err)
	}
	if _, err := part.Write(data); err != nil {
		t.Fatal(err)
	}
	if err := mw.Close(); err != nil {
		t.Fatal(err)
	}
	req := httptest.NewRequest(http.MethodPost, "/api/v1/extractions", &body)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	return req
}

func decode(t *testing.T, w *httptest.ResponseRecorder, v interface{}) {
	t.Helper()
	if err := json.NewDecoder(w.Body).Decode(v); err != nil {
		t.Fatalf("decode response: %v (body %q)", err, w.Body.String())
	}
}

func TestExtractionLifecycle(t *testing.T) {
	ts := newTestServer(t, nil, "")

	w := ts.do(t, uploadRequest(t, "file", "Office Fitout.xlsx", workbookBytes(t)))
	if w.Code != http.StatusCreated {
		t.Fatalf("upload status = %d, body %s", w.Code, w.Body.String())
	}
	var created models.Extraction
	decode(t, w, &created)
	if created.ID == "" || created.FileName != "Office Fitout.xlsx" || created.Format != "xlsx" {
		t.Errorf("created = %+v", created.Summary())
	}
	if created.Result == nil || created.Result.TotalTables != 1 || len(created.Result.Tables[0].Rows) != 2 {
		t.Fatalf("result = %+v", created.Result)
	}
	if created.Result.Tables[0].SheetName != "Combined BOQ" {
		t.Errorf("sheet name = %q", created.Result.Tables[0].SheetName)
	}
	if _, err := os.Stat(created.SourcePath); err != nil {
		t.Errorf("upload not kept on disk: %v", err)
	}

	w = ts.do(t, httptest.NewRequest(http.MethodGet, "/api/v1/extractions/"+created.ID, nil))
	if w.Code != http.StatusOK {
		t.Fatalf("get status = %d", w.Code)
	}

	w = ts.do(t, httptest.NewRequest(http.MethodGet, "/api/v1/extractions?limit=5", nil))
	if w.Code != http.StatusOK {
		t.Fatalf("list status = %d", w.Code)
	}
	var list struct {
		Extractions []models.Extraction `json:"extractions"`
		Total       int64               `json:"total"`
		Limit       int                 `json:"limit"`
	}
	decode(t, w, &list)
	if list.Total != 1 || len(list.Extractions) != 1 || list.Limit != 5 {
		t.Errorf("list = %+v", list)
	}
	if list.Extractions[0].Result != nil {
		t.Error("list entries should not carry results")
	}

	w = ts.do(t, httptest.NewRequest(http.MethodGet, "/api/v1/items/search?q=chair", nil))
	if w.Code != http.StatusOK {
		t.Fatalf("search status = %d, body %s", w.Code, w.Body.String())
	}
	var search models.ItemSearchResponse
	decode(t, w, &search)
	if len(search.Hits) != 1 || search.Hits[0].Item.ExtractionID != created.ID {
		t.Errorf("search hits = %+v", search.Hits)
	}

	w = ts.do(t, httptest.NewRequest(http.MethodDelete, "/api/v1/extractions/"+created.ID, nil))
	if w.Code != http.StatusOK {
		t.Fatalf("delete status = %d", w.Code)
	}
	if _, err := os.Stat(created.SourcePath); !os.IsNotExist(err) {
		t.Errorf("upload should be removed with its record, stat err = %v", err)
	}
	w = ts.do(t, httptest.NewRequest(http.MethodGet, "/api/v1/extractions/"+created.ID, nil))
	if w.Code != http.StatusNotFound {
		t.Errorf("get after delete = %d, want 404", w.Code)
	}
	w = ts.do(t, httptest.NewRequest(http.MethodDelete, "/api/v1/extractions/"+created.ID, nil))
	if w.Code != http.StatusNotFound {
		t.Errorf("second delete = %d, want 404", w.Code)
	}
}

func TestCreateExtraction_Errors(t *testing.T) {
	ts := newTestServer(t, nil, "")
	tests := []struct {
		name string
		req  *http.Request
		want int
	}{
		{"unsupported extension", uploadRequest(t, "file", "notes.docx", []byte("hello")), http.StatusUnsupportedMediaType},
		{"corrupt workbook", uploadRequest(t, "file", "broken.xlsx", []byte("not a zip")), http.StatusUnprocessableEntity},
		{"missing file field", uploadRequest(t, "upload", "boq.xlsx", []byte("x")), http.StatusBadRequest},
		{"too large", uploadRequest(t, "file", "big.xlsx", bytes.Repeat([]byte("a"), 2<<20)), http.StatusRequestEntityTooLarge},
		{"not multipart", httptest.NewRequest(http.MethodPost, "/api/v1/extractions", strings.NewReader("{}")), http.StatusBadRequest},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := ts.do(t, tt.req)
			if w.Code != tt.want {
				t.Errorf("status = %d, want %d (body %s)", w.Code, tt.want, w.Body.String())
			}
		})
	}

	entries, _ := os.ReadDir(ts.cfg.Storage.UploadDir)
	for _, e := range entries {
		if !e.IsDir() {
			t.Errorf("failed upload left %s behind", e.Name())
		}
	}
}

func TestListExtractions_InvalidParams(t *testing.T) {
	ts := newTestServer(t, nil, "")
	for _, q := range []string{"offset=-1", "offset=abc", "limit=0", "limit=x"} {
		w := ts.do(t, httptest.NewRequest(http.MethodGet, "/api/v1/extractions?"+q, nil))
		if w.Code != http.StatusBadRequest {
			t.Errorf("%s: status = %d, want 400", q, w.Code)
		}
	}
}

func TestSearchItems_Validation(t *testing.T) {
	ts := newTestServer(t, nil, "")
	for _, q := range []string{"", "q=", "q=chair&fuzzy=maybe", "q=chair&limit=ten"} {
		w := ts.do(t, httptest.NewRequest(http.MethodGet, "/api/v1/items/search?"+q, nil))
		if w.Code != http.StatusBadRequest {
			t.Errorf("%q: status = %d, want 400", q, w.Code)
		}
	}

	ts.srv.items = nil
	w := httptest.NewRecorder()
	ts.srv.handleSearchItems(w, httptest.NewRequest(http.MethodGet, "/api/v1/items/search?q=chair", nil))
	if w.Code != http.StatusNotImplemented {
		t.Errorf("status without index = %d, want 501", w.Code)
	}
}

func TestHandleHealthAndStatus(t *testing.T) {
	ts := newTestServer(t, &mockInboxService{dirs: []string{"/srv/inbox"}}, "")

	w := ts.do(t, httptest.NewRequest(http.MethodGet, "/health", nil))
	if w.Code != http.StatusOK {
		t.Errorf("health = %d", w.Code)
	}

	w = ts.do(t, httptest.NewRequest(http.MethodGet, "/api/v1/status", nil))
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d", w.Code)
	}
	var out struct {
		Extractions int64                  `json:"extractions"`
		LineItems   uint64                 `json:"line_items"`
		DiskUsage   *storage.UsageReport   `json:"disk_usage"`
		Config      map[string]interface{} `json:"config"`
	}
	decode(t, w, &out)
	if out.Extractions != 0 || out.DiskUsage == nil {
		t.Errorf("status = %+v", out)
	}
	if out.Config["combined_sheet_name"] != "Combined BOQ" {
		t.Errorf("config = %v", out.Config)
	}
	dirs, _ := out.Config["inbox_directories"].([]interface{})
	if len(dirs) != 1 {
		t.Errorf("inbox_directories = %v", out.Config["inbox_directories"])
	}
}

func TestServesStoredImages(t *testing.T) {
	ts := newTestServer(t, nil, "")
	if err := os.MkdirAll(ts.cfg.Storage.ImageDir, 0755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(filepath.Join(ts.cfg.Storage.ImageDir, "1_image1.png"), []byte("png"), 0644); err != nil {
		t.Fatal(err)
	}
	w := ts.do(t, httptest.NewRequest(http.MethodGet, "/uploads/images/1_image1.png", nil))
	if w.Code != http.StatusOK || w.Body.String() != "png" {
		t.Errorf("image status = %d body %q", w.Code, w.Body.String())
	}
}

func TestHandleInboxDirectoriesList(t *testing.T) {
	ts := newTestServer(t, &mockInboxService{dirs: []string{"/tmp/boq"}}, "")
	w := ts.do(t, httptest.NewRequest(http.MethodGet, "/api/v1/inbox/directories", nil))
	if w.Code != http.StatusOK {
		t.Errorf("status: got %d", w.Code)
	}
	var out struct {
		Directories []string `json:"directories"`
	}
	decode(t, w, &out)
	if len(out.Directories) != 1 || out.Directories[0] != "/tmp/boq" {
		t.Errorf("directories: got %v", out.Directories)
	}
}

func TestHandleInboxDirectories_NotEnabled(t *testing.T) {
	ts := newTestServer(t, nil, "")
	for _, method := range []string{http.MethodGet, http.MethodPost, http.MethodDelete} {
		w := ts.do(t, httptest.NewRequest(method, "/api/v1/inbox/directories", strings.NewReader(`{"path":"/x"}`)))
		if w.Code != http.StatusNotImplemented {
			t.Errorf("%s: status = %d, want 501", method, w.Code)
		}
	}
}

func TestHandleInboxDirectoriesAddRemove_Persists(t *testing.T) {
	configPath := filepath.Join(t.TempDir(), "config.yaml")
	mock := &mockInboxService{}
	ts := newTestServer(t, mock, configPath)
	inboxDir := t.TempDir()

	body, _ := json.Marshal(map[string]interface{}{"path": inboxDir, "sync": false})
	w := ts.do(t, httptest.NewRequest(http.MethodPost, "/api/v1/inbox/directories", bytes.NewReader(body)))
	if w.Code != http.StatusCreated {
		t.Fatalf("add status = %d, body %s", w.Code, w.Body.String())
	}
	if len(mock.dirs) != 1 || mock.dirs[0] != inboxDir {
		t.Errorf("mock dirs = %v", mock.dirs)
	}
	saved, err := config.Load(configPath)
	if err != nil {
		t.Fatalf("Load saved config: %v", err)
	}
	if len(saved.Inbox.Directories) != 1 || saved.Inbox.Directories[0] != inboxDir {
		t.Errorf("persisted directories = %v", saved.Inbox.Directories)
	}

	w = ts.do(t, httptest.NewRequest(http.MethodDelete, "/api/v1/inbox/directories?path="+inboxDir, nil))
	if w.Code != http.StatusOK {
		t.Fatalf("remove status = %d", w.Code)
	}
	if len(mock.dirs) != 0 {
		t.Errorf("mock dirs after remove = %v", mock.dirs)
	}
}

func TestHandleInboxDirectoriesAdd_Errors(t *testing.T) {
	ts := newTestServer(t, &mockInboxService{}, "")
	file := filepath.Join(t.TempDir(), "boq.xlsx")
	if err := os.WriteFile(file, []byte("x"), 0644); err != nil {
		t.Fatal(err)
	}
	tests := []struct {
		name string
		body string
		want int
	}{
		{"invalid json", "{", http.StatusBadRequest},
		{"missing path", `{}`, http.StatusBadRequest},
		{"not found", `{"path":"/definitely/not/here"}`, http.StatusNotFound},
		{"not a directory", `{"path":"` + file + `"}`, http.StatusBadRequest},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := ts.do(t, httptest.NewRequest(http.MethodPost, "/api/v1/inbox/directories", strings.NewReader(tt.body)))
			if w.Code != tt.want {
				t.Errorf("status = %d, want %d", w.Code, tt.want)
			}
		})
	}
	w := ts.do(t, httptest.NewRequest(http.MethodDelete, "/api/v1/inbox/directories", nil))
	if w.Code != http.StatusBadRequest {
		t.Errorf("remove without path = %d, want 400", w.Code)
	}
}
