package main

import (
	"errors"
	"net/http/httptest"
	"os"
	"path/filepath"
	"reflect"
	"strings"
	"testing"

	"github.com/xuri/excelize/v2"
	"go.uber.org/zap"

	"github.com/salamony4all/boq/internal/config"
	"github.com/salamony4all/boq/internal/models"
	"github.com/salamony4all/boq/internal/server"
)

func TestReorderArgs(t *testing.T) {
	tests := []struct {
		name     string
		args     []string
		expected []string
	}{
		{
			name:     "flags after query are moved first",
			args:     []string{"executive chair", "-limit", "5"},
			expected: []string{"-limit", "5", "executive chair"},
		},
		{
			name:     "flags first returns unchanged",
			args:     []string{"-fuzzy", "executive chair"},
			expected: []string{"-fuzzy", "executive chair"},
		},
		{
			name:     "positional only returns unchanged",
			args:     []string{"office.xlsx"},
			expected: []string{"office.xlsx"},
		},
		{
			name:     "empty args returns unchanged",
			args:     []string{},
			expected: []string{},
		},
		{
			name:     "multiple positionals then flags",
			args:     []string{"task", "chair", "--output", "json"},
			expected: []string{"--output", "json", "task", "chair"},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := reorderArgs(tt.args)
			if !reflect.DeepEqual(got, tt.expected) {
				t.Errorf("reorderArgs() = %v, want %v", got, tt.expected)
			}
		})
	}
}

func TestBuildSearchQuery(t *testing.T) {
	tests := []struct {
		name     string
		args     []string
		expected string
	}{
		{"single word", []string{"chair"}, "chair"},
		{"multiple words", []string{"executive", "chair"}, "executive chair"},
		{"single quoted phrase", []string{"executive chair"}, "executive chair"},
		{"empty args", []string{}, ""},
		{"blank args", []string{"  ", "  "}, ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := buildSearchQuery(tt.args); got != tt.expected {
				t.Errorf("buildSearchQuery(%v) = %q, want %q", tt.args, got, tt.expected)
			}
		})
	}
}

func TestSearchWithFallback(t *testing.T) {
	var calls []bool
	search := func(q *models.ItemQuery) (*models.ItemSearchResponse, error) {
		calls = append(calls, q.FuzzyEnabled)
		if q.FuzzyEnabled {
			return &models.ItemSearchResponse{Total: 1, Fuzzy: true}, nil
		}
		return &models.ItemSearchResponse{}, nil
	}

	resp, err := searchWithFallback(search, &models.ItemQuery{Query: "chiar"})
	if err != nil {
		t.Fatal(err)
	}
	if !resp.Fuzzy || resp.Total != 1 {
		t.Errorf("expected fuzzy fallback response, got %+v", resp)
	}
	if !reflect.DeepEqual(calls, []bool{false, true}) {
		t.Errorf("calls = %v", calls)
	}

	calls = nil
	if _, err := searchWithFallback(search, &models.ItemQuery{Query: "chiar", FuzzyEnabled: true}); err != nil {
		t.Fatal(err)
	}
	if len(calls) != 1 {
		t.Errorf("fuzzy query should not be retried, calls = %v", calls)
	}

	failing := func(q *models.ItemQuery) (*models.ItemSearchResponse, error) {
		return nil, errors.New("index closed")
	}
	if _, err := searchWithFallback(failing, &models.ItemQuery{Query: "x"}); err == nil {
		t.Error("expected error")
	}
}

func TestLoadConfig_prefersCwdConfigWhenDefaultPath(t *testing.T) {
	dir := t.TempDir()
	configPath := filepath.Join(dir, "config.yaml")
	content := `
debug: true
storage:
  database_path: "./extractions.db"
`
	if err := os.WriteFile(configPath, []byte(content), 0600); err != nil {
		t.Fatal(err)
	}
	origWd, err := os.Getwd()
	if err != nil {
		t.Fatal(err)
	}
	defer func() { _ = os.Chdir(origWd) }()
	if err := os.Chdir(dir); err != nil {
		t.Fatal(err)
	}

	cfg, resolved, err := loadConfig(defaultConfigPath)
	if err != nil {
		t.Fatal(err)
	}
	resolvedCanon, _ := filepath.EvalSymlinks(resolved)
	configPathCanon, _ := filepath.EvalSymlinks(configPath)
	if resolvedCanon != configPathCanon {
		t.Errorf("resolved path = %s, want %s", resolved, configPath)
	}
	if !cfg.Debug {
		t.Error("debug should be true from cwd config.yaml")
	}
	if !filepath.IsAbs(cfg.Storage.DatabasePath) {
		t.Errorf("database path not expanded: %s", cfg.Storage.DatabasePath)
	}
}

func TestLoadConfig_missingDefaultUsesDefaults(t *testing.T) {
	if _, err := os.Stat(defaultConfigPath); err == nil {
		t.Skip("a system config exists at the default path")
	}
	origWd, err := os.Getwd()
	if err != nil {
		t.Fatal(err)
	}
	defer func() { _ = os.Chdir(origWd) }()
	if err := os.Chdir(t.TempDir()); err != nil {
		t.Fatal(err)
	}

	cfg, resolved, err := loadConfig(defaultConfigPath)
	if err != nil {
		t.Fatal(err)
	}
	if resolved != "" {
		t.Errorf("resolved = %q, want empty", resolved)
	}
	if cfg.Server.Port != 8080 || cfg.Extract.CombinedSheetName != "Combined BOQ" {
		t.Errorf("defaults not applied: %+v", cfg)
	}
}

func TestLoadConfig_explicitPathMustExist(t *testing.T) {
	if _, _, err := loadConfig(filepath.Join(t.TempDir(), "missing.yaml")); err == nil {
		t.Error("expected error for a missing explicit config")
	}

	dir := t.TempDir()
	configPath := filepath.Join(dir, "config.yaml")
	if err := os.WriteFile(configPath, []byte("server:\n  host: \"127.0.0.1\"\n  port: 9000\n"), 0600); err != nil {
		t.Fatal(err)
	}
	cfg, resolved, err := loadConfig(configPath)
	if err != nil {
		t.Fatal(err)
	}
	if resolved != configPath || cfg.Server.Addr() != "127.0.0.1:9000" {
		t.Errorf("loadConfig() = %+v, %s", cfg.Server, resolved)
	}
}

// newTestAPI wires the same components the server command uses, over temp dirs.
func newTestAPI(t *testing.T) (*apiClient, string) {
	t.Helper()
	t.Setenv("BLOB_READ_WRITE_TOKEN", "")
	dir := t.TempDir()
	cfg := &config.Config{Storage: config.StorageConfig{
		DatabasePath:  filepath.Join(dir, "db", "extractions.db"),
		ItemIndexPath: filepath.Join(dir, "indices", "items.bleve"),
		UploadDir:     filepath.Join(dir, "uploads"),
		ImageDir:      filepath.Join(dir, "uploads", "images"),
	}}
	config.ApplyDefaults(cfg)

	components, err := initializeComponents(cfg, zap.NewNop())
	if err != nil {
		t.Fatalf("initializeComponents: %v", err)
	}
	t.Cleanup(components.Close)

	srv := server.NewServer(components.Ingester, components.Storage, components.Items, cfg, zap.NewNop(), nil, "")
	ts := httptest.NewServer(srv.Routes())
	t.Cleanup(ts.Close)
	return newAPIClient(ts.URL + "/"), dir
}

func writeBOQ(t *testing.T, path string) {
	t.Helper()
	f := excelize.NewFile()
	defer f.Close()
	rows := [][]any{
		{"S.No", "Description", "Qty", "Unit"},
		{"1", "Executive chair with armrests", "10", "Nos"},
		{"2", "Meeting table", "2", "Nos"},
	}
	for i, r := range rows {
		cell, _ := excelize.CoordinatesToCellName(1, i+1)
		row := r
		if err := f.SetSheetRow("Sheet1", cell, &row); err != nil {
			t.Fatal(err)
		}
	}
	if err := f.SaveAs(path); err != nil {
		t.Fatal(err)
	}
}

func TestAPIClient_RoundTrip(t *testing.T) {
	client, dir := newTestAPI(t)
	path := filepath.Join(dir, "office.xlsx")
	writeBOQ(t, path)

	ext, err := client.upload(path)
	if err != nil {
		t.Fatalf("upload: %v", err)
	}
	if ext.ID == "" || ext.FileName != "office.xlsx" || ext.Format != "xlsx" {
		t.Fatalf("upload returned %+v", ext)
	}

	list, err := client.list(0, 10)
	if err != nil {
		t.Fatal(err)
	}
	if list.Total != 1 || len(list.Extractions) != 1 || list.Extractions[0].ID != ext.ID {
		t.Errorf("list = %+v", list)
	}

	got, err := client.get(ext.ID)
	if err != nil {
		t.Fatal(err)
	}
	if got.Result == nil || got.Result.TotalTables != 1 {
		t.Errorf("get result = %+v", got.Result)
	}

	resp, err := client.search(&models.ItemQuery{Query: "chair", Limit: 5})
	if err != nil {
		t.Fatal(err)
	}
	if resp.Total != 1 || resp.Hits[0].Item.ExtractionID != ext.ID {
		t.Errorf("search = %+v", resp)
	}

	resp, err = searchWithFallback(client.search, &models.ItemQuery{Query: "chiar"})
	if err != nil {
		t.Fatal(err)
	}
	if !resp.Fuzzy || resp.Total == 0 {
		t.Errorf("expected a fuzzy fallback hit, got %+v", resp)
	}

	status, err := client.status()
	if err != nil {
		t.Fatal(err)
	}
	if status.Extractions != 1 || status.LineItems == nil || *status.LineItems == 0 || status.DiskUsage == nil {
		t.Errorf("status = %+v", status)
	}

	if err := client.delete(ext.ID); err != nil {
		t.Fatal(err)
	}
	if _, err := client.get(ext.ID); err == nil || !strings.Contains(err.Error(), "404") {
		t.Errorf("get after delete: %v", err)
	}
}

func TestAPIClient_Errors(t *testing.T) {
	client, dir := newTestAPI(t)

	notes := filepath.Join(dir, "notes.txt")
	if err := os.WriteFile(notes, []byte("not a boq"), 0644); err != nil {
		t.Fatal(err)
	}
	if _, err := client.upload(notes); err == nil || !strings.Contains(err.Error(), "415") {
		t.Errorf("upload txt: %v", err)
	}

	if _, err := client.listInbox(); err == nil || !strings.Contains(err.Error(), "501") {
		t.Errorf("listInbox without inbox: %v", err)
	}
	if err := client.delete("missing"); err == nil || !strings.Contains(err.Error(), "404") {
		t.Errorf("delete missing: %v", err)
	}
}

func TestAPIErrorMessage(t *testing.T) {
	if got := apiErrorMessage([]byte(`{"error":"extraction not found"}`)); got != "extraction not found" {
		t.Errorf("got %q", got)
	}
	if got := apiErrorMessage([]byte("bad gateway\n")); got != "bad gateway" {
		t.Errorf("got %q", got)
	}
}
