package config

const defaultDataRoot = "/usr/local/var/boq/data"

// ApplyDefaults sets default values for any zero values in cfg.
func ApplyDefaults(cfg *Config) {
	if cfg.Server.Host == "" {
		cfg.Server.Host = "localhost"
	}
	if cfg.Server.Port == 0 {
		cfg.Server.Port = 8080
	}
	if cfg.Server.MaxUploadMB == 0 {
		cfg.Server.MaxUploadMB = 50
	}
	if cfg.Storage.DatabasePath == "" {
		cfg.Storage.DatabasePath = defaultDataRoot + "/db/extractions.db"
	}
	if cfg.Storage.ItemIndexPath == "" {
		cfg.Storage.ItemIndexPath = defaultDataRoot + "/indices/items.bleve"
	}
	if cfg.Storage.UploadDir == "" {
		cfg.Storage.UploadDir = defaultDataRoot + "/uploads"
	}
	if cfg.Storage.ImageDir == "" {
		cfg.Storage.ImageDir = defaultDataRoot + "/uploads/images"
	}
	if cfg.Storage.ImageURLPrefix == "" {
		cfg.Storage.ImageURLPrefix = "/uploads/images"
	}
	if cfg.Storage.Blob.TokenEnv == "" {
		cfg.Storage.Blob.TokenEnv = "BLOB_READ_WRITE_TOKEN"
	}
	if cfg.Storage.Blob.BaseURL == "" {
		cfg.Storage.Blob.BaseURL = "https://blob.vercel-storage.com"
	}
	if cfg.Storage.Blob.Prefix == "" {
		cfg.Storage.Blob.Prefix = "boq-images"
	}
	if cfg.Extract.BatchSize == 0 {
		cfg.Extract.BatchSize = 5
	}
	if cfg.Extract.HeaderThreshold == 0 {
		cfg.Extract.HeaderThreshold = 2
	}
	if cfg.Extract.CombinedSheetName == "" {
		cfg.Extract.CombinedSheetName = "Combined BOQ"
	}
	if cfg.Inbox.Extensions == nil {
		cfg.Inbox.Extensions = []string{".xlsx", ".xlsm", ".pdf"}
	}
	// Recursive defaults to true when unset (nil).
	if len(cfg.Inbox.Directories) > 0 && cfg.Inbox.Recursive == nil {
		t := true
		cfg.Inbox.Recursive = &t
	}
}
