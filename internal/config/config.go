// Package config provides configuration loading and structs for the BOQ extraction service.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"
)

// Config holds all configuration for the application.
type Config struct {
	Debug   bool          `yaml:"debug"`
	Server  ServerConfig  `yaml:"server"`
	Storage StorageConfig `yaml:"storage"`
	Extract ExtractConfig `yaml:"extract"`
	Inbox   InboxConfig   `yaml:"inbox"`
}

// ServerConfig holds HTTP server settings.
type ServerConfig struct {
	Host        string `yaml:"host"`
	Port        int    `yaml:"port"`
	MaxUploadMB int64  `yaml:"max_upload_mb"`
}

// StorageConfig holds paths for the record database, the line-item index and media.
type StorageConfig struct {
	DatabasePath   string     `yaml:"database_path"`
	ItemIndexPath  string     `yaml:"item_index_path"`
	UploadDir      string     `yaml:"upload_dir"`
	ImageDir       string     `yaml:"image_dir"`
	ImageURLPrefix string     `yaml:"image_url_prefix"`
	Blob           BlobConfig `yaml:"blob"`
}

// BlobConfig selects remote image storage. It is used only when the environment
// variable named by TokenEnv is non-empty.
type BlobConfig struct {
	TokenEnv string `yaml:"token_env"`
	BaseURL  string `yaml:"base_url"`
	Prefix   string `yaml:"prefix"`
}

// ExtractConfig tunes the extraction pipeline.
type ExtractConfig struct {
	BatchSize         int                 `yaml:"batch_size"`
	HeaderThreshold   int                 `yaml:"header_threshold"`
	RawCellValues     bool                `yaml:"raw_cell_values"`
	CombinedSheetName string              `yaml:"combined_sheet_name"`
	HeaderKeywords    map[string][]string `yaml:"header_keywords,omitempty"`
}

// InboxConfig holds the watched drop-folder settings.
type InboxConfig struct {
	Directories []string `yaml:"directories"`
	Extensions  []string `yaml:"extensions"`
	Recursive   *bool    `yaml:"recursive"`
}

// RecursiveOrDefault returns whether to watch recursively; defaults to true when unset.
func (w *InboxConfig) RecursiveOrDefault() bool {
	if w.Recursive != nil {
		return *w.Recursive
	}
	return true
}

// Addr returns host:port.
func (s ServerConfig) Addr() string {
	return fmt.Sprintf("%s:%d", s.Host, s.Port)
}

// Load reads and parses the config file at path, expands paths, and applies defaults.
// Returns an error if the file cannot be read or parsed.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config: %w", err)
	}

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}

	ApplyDefaults(&cfg)

	configDir := filepath.Dir(path)
	cfg.Storage.DatabasePath = expandPath(cfg.Storage.DatabasePath, configDir)
	cfg.Storage.ItemIndexPath = expandPath(cfg.Storage.ItemIndexPath, configDir)
	cfg.Storage.UploadDir = expandPath(cfg.Storage.UploadDir, configDir)
	cfg.Storage.ImageDir = expandPath(cfg.Storage.ImageDir, configDir)
	for i := range cfg.Inbox.Directories {
		cfg.Inbox.Directories[i] = expandPath(cfg.Inbox.Directories[i], configDir)
	}

	return &cfg, nil
}

// Save writes the config to path. Used for persisting inbox directory add/remove.
func Save(path string, cfg *Config) error {
	data, err := yaml.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}
	if err := os.WriteFile(path, data, 0600); err != nil {
		return fmt.Errorf("failed to write config: %w", err)
	}
	return nil
}

// expandPath converts a path to absolute. Paths starting with "./" are relative to configDir;
// other relative paths are relative to the home directory.
func expandPath(path string, configDir string) string {
	if path == "" || filepath.IsAbs(path) {
		return path
	}
	if strings.HasPrefix(path, "./") || path == "." {
		return filepath.Join(configDir, path)
	}
	if home, err := os.UserHomeDir(); err == nil {
		return filepath.Join(home, path)
	}
	return path
}
