// Package main is the boq CLI entry point.
package main

import (
	"context"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"sort"
	"strings"
	"syscall"
	"time"

	"go.uber.org/zap"

	"github.com/salamony4all/boq/internal/cli"
	"github.com/salamony4all/boq/internal/config"
	"github.com/salamony4all/boq/internal/extract"
	"github.com/salamony4all/boq/internal/ingest"
	"github.com/salamony4all/boq/internal/lineitems"
	"github.com/salamony4all/boq/internal/models"
	"github.com/salamony4all/boq/internal/server"
	"github.com/salamony4all/boq/internal/storage"
	"github.com/salamony4all/boq/internal/watcher"
	"github.com/salamony4all/boq/pkg/utils"
)

var version = "dev"

const (
	defaultConfigPath = "/usr/local/etc/boq/config.yaml"
	defaultServerURL  = "http://localhost:8080"
)

// loadConfig loads config from path. When path is the default and a config.yaml
// exists in the current directory, that file is used instead. A missing default
// config is not an error: defaults apply. Returns the path actually used.
func loadConfig(path string) (*config.Config, string, error) {
	if path == defaultConfigPath {
		if cwd, cwdErr := os.Getwd(); cwdErr == nil {
			fallback := filepath.Join(cwd, "config.yaml")
			if _, statErr := os.Stat(fallback); statErr == nil {
				cfg, loadErr := config.Load(fallback)
				if loadErr != nil {
					return nil, "", loadErr
				}
				return cfg, fallback, nil
			}
		}
		if _, statErr := os.Stat(path); errors.Is(statErr, os.ErrNotExist) {
			cfg := &config.Config{}
			config.ApplyDefaults(cfg)
			return cfg, "", nil
		}
	}
	cfg, err := config.Load(path)
	if err != nil {
		return nil, "", err
	}
	return cfg, path, nil
}

func main() {
	if len(os.Args) < 2 {
		printUsage()
		os.Exit(1)
	}
	command := os.Args[1]
	switch command {
	case "server":
		runServer()
	case "extract":
		runExtract()
	case "list":
		runList()
	case "show":
		runShow()
	case "delete":
		runDelete()
	case "search":
		runSearch()
	case "status":
		runStatus()
	case "reindex":
		runReindex()
	case "inbox":
		runInbox()
	case "version", "--version", "-v":
		fmt.Printf("boq version %s\n", version)
	case "help", "--help", "-h":
		printUsage()
	default:
		fmt.Fprintf(os.Stderr, "Unknown command: %s\n", command)
		printUsage()
		os.Exit(1)
	}
}

func fatalf(format string, args ...interface{}) {
	fmt.Fprintf(os.Stderr, format+"\n", args...)
	os.Exit(1)
}

func parseFormat(s string) cli.OutputFormat {
	format, err := cli.ParseOutputFormat(s)
	if err != nil {
		fatalf("%v", err)
	}
	return format
}

// openLocal loads config and initializes components for commands that work on
// local storage. The caller must call the returned cleanup.
func openLocal(configPath string, debug bool) (*config.Config, *Components, func()) {
	cfg, _, err := loadConfig(configPath)
	if err != nil {
		fatalf("Failed to load config: %v", err)
	}
	// one-shot commands only surface warnings unless debugging
	var logger *zap.Logger
	if cfg.Debug || debug {
		logger, err = utils.NewLogger(true)
	} else {
		logger, err = utils.NewQuietLogger()
	}
	if err != nil {
		fatalf("Failed to create logger: %v", err)
	}
	components, err := initializeComponents(cfg, logger)
	if err != nil {
		_ = logger.Sync()
		fatalf("Failed to initialize: %v", err)
	}
	return cfg, components, func() {
		components.Close()
		_ = logger.Sync()
	}
}

func runServer() {
	fs := flag.NewFlagSet("server", flag.ExitOnError)
	configPath := fs.String("config", defaultConfigPath, "config file path")
	debug := fs.Bool("debug", false, "enable debug logging (inbox events, per-file extraction)")
	_ = fs.Parse(os.Args[2:])

	cfg, resolvedConfigPath, err := loadConfig(*configPath)
	if err != nil {
		fatalf("Failed to load config: %v", err)
	}
	debugMode := cfg.Debug || *debug
	logger, err := utils.NewLogger(debugMode)
	if err != nil {
		fatalf("Failed to create logger: %v", err)
	}
	defer logger.Sync()

	logger.Info("config loaded",
		zap.String("config_path", resolvedConfigPath),
		zap.Bool("debug", debugMode),
	)

	components, err := initializeComponents(cfg, logger)
	if err != nil {
		logger.Fatal("Failed to initialize components", zap.Error(err))
	}
	defer components.Close()

	in := components.Ingester
	exts := cfg.Inbox.Extensions
	inbox := watcher.NewInbox(
		cfg.Inbox.Directories,
		exts,
		cfg.Inbox.RecursiveOrDefault(),
		watcher.Handler{
			OnChange: func(path string) {
				if _, _, err := in.IngestInboxFile(context.Background(), path, exts); err != nil {
					logger.Warn("inbox ingest failed", zap.String("path", path), zap.Error(err))
				}
			},
			OnRemove: func(path string) {
				if err := in.RemoveInboxFile(context.Background(), path); err != nil {
					logger.Warn("inbox remove failed", zap.String("path", path), zap.Error(err))
				}
			},
		},
		watcher.WithLogger(logger),
	)
	watchCtx, watchCancel := context.WithCancel(context.Background())
	defer watchCancel()
	if err := inbox.Start(watchCtx); err != nil {
		logger.Fatal("Failed to start inbox watcher", zap.Error(err))
	}
	go inbox.SyncExistingFiles()

	srv := server.NewServer(in, components.Storage, components.Items, cfg, logger, inbox, resolvedConfigPath)
	go func() {
		if err := srv.Start(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Fatal("Server failed", zap.Error(err))
		}
	}()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)
	<-sigChan

	logger.Info("Shutting down...")
	watchCancel()
	inbox.Stop()
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	_ = srv.Stop(ctx)
}

func runExtract() {
	fs := flag.NewFlagSet("extract", flag.ExitOnError)
	configPath := fs.String("config", defaultConfigPath, "config file path")
	serverURL := fs.String("server", "", "upload to this server instead of extracting locally")
	outputFormat := fs.String("output", "text", "output format: text, compact, or json")
	save := fs.Bool("save", false, "store the extraction and index its line items")
	recursive := fs.Bool("recursive", true, "descend into subdirectories when extracting a directory")
	debug := fs.Bool("debug", false, "enable debug logging")
	_ = fs.Parse(reorderArgs(os.Args[2:]))

	if fs.NArg() < 1 {
		fatalf("Usage: boq extract [flags] <file-or-directory>")
	}
	path := fs.Arg(0)
	format := parseFormat(*outputFormat)

	if *serverURL != "" {
		ext, err := newAPIClient(*serverURL).upload(path)
		if err != nil {
			fatalf("Upload failed: %v", err)
		}
		if err := cli.WriteExtraction(os.Stdout, ext, format); err != nil {
			fatalf("Output failed: %v", err)
		}
		return
	}

	info, err := os.Stat(path)
	if err != nil {
		fatalf("Failed to stat path: %v", err)
	}

	cfg, components, cleanup := openLocal(*configPath, *debug)
	defer cleanup()
	ctx := context.Background()

	if info.IsDir() {
		n, err := components.Ingester.IngestDirectory(ctx, path, cfg.Inbox.Extensions, *recursive)
		if err != nil {
			fatalf("Extracting directory failed: %v", err)
		}
		fmt.Printf("Extracted %d file(s) from %s\n", n, path)
		return
	}

	if *save {
		abs, _ := filepath.Abs(path)
		ext, err := components.Ingester.IngestFile(ctx, abs, filepath.Base(path), "")
		if err != nil {
			fatalf("Extraction failed: %v", err)
		}
		if err := cli.WriteExtraction(os.Stdout, ext, format); err != nil {
			fatalf("Output failed: %v", err)
		}
		return
	}

	result, err := components.Extractor.ExtractFile(ctx, path)
	if err != nil {
		fatalf("Extraction failed: %v", err)
	}
	if err := cli.WriteExtractionResult(os.Stdout, result, format); err != nil {
		fatalf("Output failed: %v", err)
	}
}

func runList() {
	fs := flag.NewFlagSet("list", flag.ExitOnError)
	configPath := fs.String("config", defaultConfigPath, "config file path (direct storage mode)")
	serverURL := fs.String("server", defaultServerURL, "server URL (empty = use direct storage)")
	offset := fs.Int("offset", 0, "number of extractions to skip")
	limit := fs.Int("limit", 20, "number of extractions to show")
	outputFormat := fs.String("output", "text", "output format: text, compact, or json")
	_ = fs.Parse(os.Args[2:])
	format := parseFormat(*outputFormat)

	var list *cli.ExtractionList
	if *serverURL != "" {
		var err error
		if list, err = newAPIClient(*serverURL).list(*offset, *limit); err != nil {
			fatalf("List failed: %v", err)
		}
	} else {
		_, components, cleanup := openLocal(*configPath, false)
		defer cleanup()
		ctx := context.Background()
		exts, err := components.Storage.ListExtractions(ctx, *offset, *limit)
		if err != nil {
			fatalf("List failed: %v", err)
		}
		total, err := components.Storage.CountExtractions(ctx)
		if err != nil {
			fatalf("Count failed: %v", err)
		}
		list = &cli.ExtractionList{Extractions: exts, Total: total, Offset: *offset, Limit: *limit}
	}
	if err := cli.WriteExtractionList(os.Stdout, list, format); err != nil {
		fatalf("Output failed: %v", err)
	}
}

func runShow() {
	fs := flag.NewFlagSet("show", flag.ExitOnError)
	configPath := fs.String("config", defaultConfigPath, "config file path (direct storage mode)")
	serverURL := fs.String("server", defaultServerURL, "server URL (empty = use direct storage)")
	outputFormat := fs.String("output", "text", "output format: text, compact, or json")
	_ = fs.Parse(reorderArgs(os.Args[2:]))

	if fs.NArg() < 1 {
		fatalf("Usage: boq show [flags] <extraction-id>")
	}
	id := fs.Arg(0)
	format := parseFormat(*outputFormat)

	var ext *models.Extraction
	if *serverURL != "" {
		var err error
		if ext, err = newAPIClient(*serverURL).get(id); err != nil {
			fatalf("Show failed: %v", err)
		}
	} else {
		_, components, cleanup := openLocal(*configPath, false)
		defer cleanup()
		var err error
		if ext, err = components.Storage.GetExtraction(context.Background(), id); err != nil {
			fatalf("Show failed: %v", err)
		}
	}
	if err := cli.WriteExtraction(os.Stdout, ext, format); err != nil {
		fatalf("Output failed: %v", err)
	}
}

func runDelete() {
	fs := flag.NewFlagSet("delete", flag.ExitOnError)
	configPath := fs.String("config", defaultConfigPath, "config file path (direct storage mode)")
	serverURL := fs.String("server", defaultServerURL, "server URL (empty = use direct storage)")
	_ = fs.Parse(reorderArgs(os.Args[2:]))

	if fs.NArg() < 1 {
		fatalf("Usage: boq delete [flags] <extraction-id>")
	}
	id := fs.Arg(0)

	if *serverURL != "" {
		if err := newAPIClient(*serverURL).delete(id); err != nil {
			fatalf("Deletion failed: %v", err)
		}
	} else {
		_, components, cleanup := openLocal(*configPath, false)
		defer cleanup()
		if err := components.Ingester.Delete(context.Background(), id); err != nil {
			fatalf("Deletion failed: %v", err)
		}
	}
	fmt.Printf("Extraction deleted: %s\n", id)
}

// printSearchUsage prints search subcommand usage.
func printSearchUsage(fs *flag.FlagSet) {
	fmt.Fprintf(fs.Output(), "Usage: boq search [flags] <query>\n\n")
	fmt.Fprintf(fs.Output(), "Query is all remaining arguments joined by spaces.\n\n")
	fs.PrintDefaults()
	fmt.Fprintf(fs.Output(), `
When an exact search finds nothing, it is retried once with --fuzzy.

Examples:
  boq search executive chair
  boq search --fuzzy exectuve chiar
  boq search --extraction 3f2a... --limit 50 workstation
`)
}

// buildSearchQuery joins all positional args with spaces so multi-word queries
// work the same with or without shell quoting.
func buildSearchQuery(args []string) string {
	return strings.TrimSpace(strings.Join(args, " "))
}

// reorderArgs moves flags (and their values) that appear after the positional
// arguments to the front, since flag.Parse stops at the first non-flag argument.
func reorderArgs(args []string) []string {
	for i, a := range args {
		if len(a) > 0 && a[0] == '-' {
			if i == 0 {
				return args
			}
			reordered := make([]string, 0, len(args))
			reordered = append(reordered, args[i:]...)
			reordered = append(reordered, args[:i]...)
			return reordered
		}
	}
	return args
}

func runSearch() {
	fs := flag.NewFlagSet("search", flag.ExitOnError)
	configPath := fs.String("config", defaultConfigPath, "config file path (direct storage mode)")
	serverURL := fs.String("server", defaultServerURL, "server URL (empty = use direct storage)")
	limit := fs.Int("limit", 10, "number of results")
	fuzzy := fs.Bool("fuzzy", false, "enable fuzzy matching for typo tolerance")
	extractionID := fs.String("extraction", "", "only search line items of this extraction")
	outputFormat := fs.String("output", "text", "output format: text, compact, or json")
	fs.Usage = func() { printSearchUsage(fs) }
	_ = fs.Parse(reorderArgs(os.Args[2:]))

	queryStr := buildSearchQuery(fs.Args())
	if queryStr == "" {
		printSearchUsage(fs)
		os.Exit(1)
	}
	format := parseFormat(*outputFormat)

	query := &models.ItemQuery{
		Query:        queryStr,
		Limit:        *limit,
		FuzzyEnabled: *fuzzy,
		ExtractionID: *extractionID,
	}

	var search func(q *models.ItemQuery) (*models.ItemSearchResponse, error)
	if *serverURL != "" {
		client := newAPIClient(*serverURL)
		search = client.search
	} else {
		_, components, cleanup := openLocal(*configPath, false)
		defer cleanup()
		search = func(q *models.ItemQuery) (*models.ItemSearchResponse, error) {
			return components.Items.Search(context.Background(), *q)
		}
	}

	response, err := searchWithFallback(search, query)
	if err != nil {
		fatalf("Search failed: %v", err)
	}
	if err := cli.WriteItemSearch(os.Stdout, response, format); err != nil {
		fatalf("Output failed: %v", err)
	}
}

// searchWithFallback runs q and, if nothing matched and fuzzy matching was off,
// retries once with fuzzy matching.
func searchWithFallback(search func(*models.ItemQuery) (*models.ItemSearchResponse, error), q *models.ItemQuery) (*models.ItemSearchResponse, error) {
	response, err := search(q)
	if err != nil {
		return nil, err
	}
	if q.FuzzyEnabled || response.Total > 0 {
		return response, nil
	}
	fq := *q
	fq.FuzzyEnabled = true
	fuzzyResponse, err := search(&fq)
	if err != nil || fuzzyResponse.Total == 0 {
		return response, nil
	}
	return fuzzyResponse, nil
}

// statusResponse is the shape of GET /api/v1/status.
type statusResponse struct {
	Extractions int64                  `json:"extractions"`
	LineItems   *uint64                `json:"line_items,omitempty"`
	DiskUsage   *storage.UsageReport   `json:"disk_usage,omitempty"`
	Config      map[string]interface{} `json:"config,omitempty"`
}

func runStatus() {
	fs := flag.NewFlagSet("status", flag.ExitOnError)
	configPath := fs.String("config", defaultConfigPath, "config file path (direct storage mode)")
	serverURL := fs.String("server", defaultServerURL, "server URL (empty = use direct storage)")
	outputFormat := fs.String("output", "text", "output format: text or json")
	_ = fs.Parse(os.Args[2:])
	format := parseFormat(*outputFormat)

	var status *statusResponse
	if *serverURL != "" {
		var err error
		if status, err = newAPIClient(*serverURL).status(); err != nil {
			fatalf("Status failed: %v", err)
		}
	} else {
		cfg, components, cleanup := openLocal(*configPath, false)
		defer cleanup()
		var err error
		if status, err = localStatus(context.Background(), cfg, components); err != nil {
			fatalf("Status failed: %v", err)
		}
	}

	if format != cli.OutputText {
		if err := writeJSON(status, format); err != nil {
			fatalf("Output failed: %v", err)
		}
		return
	}
	writeStatusText(status)
}

func localStatus(ctx context.Context, cfg *config.Config, c *Components) (*statusResponse, error) {
	count, err := c.Storage.CountExtractions(ctx)
	if err != nil {
		return nil, fmt.Errorf("count extractions: %w", err)
	}
	status := &statusResponse{
		Extractions: count,
		Config: map[string]interface{}{
			"database_path":   cfg.Storage.DatabasePath,
			"item_index_path": cfg.Storage.ItemIndexPath,
			"upload_dir":      cfg.Storage.UploadDir,
			"image_dir":       cfg.Storage.ImageDir,
		},
	}
	if n, err := c.Items.DocCount(); err == nil {
		status.LineItems = &n
	}
	st := cfg.Storage
	if usage, err := storage.Usage(st.DatabasePath, st.ItemIndexPath, st.UploadDir, st.ImageDir); err == nil {
		status.DiskUsage = usage
	}
	return status, nil
}

func writeJSON(v interface{}, format cli.OutputFormat) error {
	enc := json.NewEncoder(os.Stdout)
	if format == cli.OutputJSON {
		enc.SetIndent("", "  ")
	}
	return enc.Encode(v)
}

func writeStatusText(status *statusResponse) {
	fmt.Printf("extractions:        %d   # stored extraction records\n", status.Extractions)
	if status.LineItems != nil {
		fmt.Printf("line_items:         %d   # rows in the search index\n", *status.LineItems)
	}
	if status.DiskUsage != nil {
		fmt.Printf("disk_usage_bytes:   %d   # database + index + uploads + images\n", status.DiskUsage.TotalBytes)
	}
	if len(status.Config) > 0 {
		fmt.Println()
		fmt.Println("# configuration")
		keys := make([]string, 0, len(status.Config))
		for k := range status.Config {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		for _, k := range keys {
			fmt.Printf("%-19s %v\n", k+":", status.Config[k])
		}
	}
}

func runReindex() {
	fs := flag.NewFlagSet("reindex", flag.ExitOnError)
	configPath := fs.String("config", defaultConfigPath, "config file path")
	debug := fs.Bool("debug", false, "enable debug logging")
	_ = fs.Parse(os.Args[2:])

	_, components, cleanup := openLocal(*configPath, *debug)
	defer cleanup()
	n, err := components.Ingester.Reindex(context.Background())
	if err != nil {
		fatalf("Reindex failed: %v", err)
	}
	fmt.Printf("Reindexed %d extraction(s)\n", n)
}

func runInbox() {
	if len(os.Args) < 3 {
		fmt.Println("Usage: boq inbox <add|remove|list> [path]")
		fmt.Println("  boq inbox add <path>     Watch a drop folder for BOQ files")
		fmt.Println("  boq inbox remove <path>  Stop watching a drop folder")
		fmt.Println("  boq inbox list           List watched drop folders")
		os.Exit(1)
	}
	sub := os.Args[2]
	fs := flag.NewFlagSet("inbox", flag.ExitOnError)
	serverURL := fs.String("server", defaultServerURL, "server URL")
	noSync := fs.Bool("no-sync", false, "do not extract files already in the folder (add only)")
	_ = fs.Parse(reorderArgs(os.Args[3:]))
	client := newAPIClient(*serverURL)

	switch sub {
	case "add":
		if fs.NArg() < 1 {
			fatalf("Usage: boq inbox add <path>")
		}
		path, _ := filepath.Abs(fs.Arg(0))
		if err := client.addInbox(path, !*noSync); err != nil {
			fatalf("Add failed: %v", err)
		}
		fmt.Printf("Added: %s\n", path)
	case "remove":
		if fs.NArg() < 1 {
			fatalf("Usage: boq inbox remove <path>")
		}
		path, _ := filepath.Abs(fs.Arg(0))
		if err := client.removeInbox(path); err != nil {
			fatalf("Remove failed: %v", err)
		}
		fmt.Printf("Removed: %s\n", path)
	case "list":
		dirs, err := client.listInbox()
		if err != nil {
			fatalf("List failed: %v", err)
		}
		for _, d := range dirs {
			fmt.Println(d)
		}
	default:
		fatalf("Unknown inbox subcommand: %s", sub)
	}
}

// Components holds initialized services.
type Components struct {
	Storage   storage.Storage
	Items     lineitems.Index
	Extractor *extract.Extractor
	Ingester  *ingest.Ingester
}

// Close releases the record store and the item index.
func (c *Components) Close() {
	if c.Items != nil {
		_ = c.Items.Close()
	}
	if c.Storage != nil {
		_ = c.Storage.Close()
	}
}

func initializeComponents(cfg *config.Config, logger *zap.Logger) (*Components, error) {
	sink, err := storage.NewMediaSink(storage.MediaOptions{
		ImageDir:       cfg.Storage.ImageDir,
		ImageURLPrefix: cfg.Storage.ImageURLPrefix,
		BlobTokenEnv:   cfg.Storage.Blob.TokenEnv,
		BlobBaseURL:    cfg.Storage.Blob.BaseURL,
		BlobPrefix:     cfg.Storage.Blob.Prefix,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to initialize media sink: %w", err)
	}
	if _, ok := sink.(*storage.BlobMediaSink); ok {
		logger.Info("images will be uploaded to blob storage", zap.String("base_url", cfg.Storage.Blob.BaseURL))
	}

	keywords := extract.DefaultKeywords().Merge(cfg.Extract.HeaderKeywords, cfg.Extract.HeaderThreshold)
	extractor, err := extract.NewExtractor(sink,
		extract.WithLogger(logger),
		extract.WithKeywords(keywords),
		extract.WithCombinedSheetName(cfg.Extract.CombinedSheetName),
		extract.WithRawCellValues(cfg.Extract.RawCellValues),
		extract.WithImageExtractor(extract.NewImageExtractor(sink,
			extract.WithBatchSize(cfg.Extract.BatchSize),
			extract.WithImageLogger(logger),
		)),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize extractor: %w", err)
	}

	store, err := storage.NewSQLiteStorage(cfg.Storage.DatabasePath)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize storage: %w", err)
	}

	if err := os.MkdirAll(filepath.Dir(cfg.Storage.ItemIndexPath), 0755); err != nil {
		_ = store.Close()
		return nil, fmt.Errorf("failed to create item index directory: %w", err)
	}
	items, err := lineitems.NewBleveIndex(cfg.Storage.ItemIndexPath)
	if err != nil {
		_ = store.Close()
		return nil, fmt.Errorf("failed to initialize item index: %w", err)
	}

	in := ingest.NewIngester(extractor, store, items, ingest.WithLogger(logger))

	return &Components{
		Storage:   store,
		Items:     items,
		Extractor: extractor,
		Ingester:  in,
	}, nil
}

func printUsage() {
	fmt.Println(`boq - Bill of Quantities table and image extraction

Usage:
  boq server [flags]               Start the HTTP API and inbox watcher
  boq extract [flags] <file|dir>   Extract tables and images from a BOQ workbook or PDF
  boq list [flags]                 List stored extractions
  boq show [flags] <id>            Show a stored extraction
  boq delete [flags] <id>          Delete a stored extraction
  boq search [flags] <query>       Search line items across extractions
  boq status [flags]               Show storage and index status
  boq reindex [flags]              Rebuild the line-item index from stored extractions
  boq inbox <add|remove|list>      Manage watched drop folders
  boq version                      Show version
  boq help                         Show this help

Server Flags:
  --config string    Config file path (default: /usr/local/etc/boq/config.yaml)
  --debug            Enable debug logging

Extract Flags:
  --config string    Config file path
  --output string    Output format: text, compact, or json (default: text)
  --save             Store the extraction and index its line items
  --server string    Upload to a running server instead of extracting locally
  --recursive        Descend into subdirectories when given a directory (default: true)

List/Show/Delete/Search/Status Flags:
  --server string    Server URL (default: http://localhost:8080). Use --server "" for direct storage.
  --config string    Config file path (direct storage mode)
  --output string    Output format (list, show, search, status)

Search Flags:
  --limit int           Number of results (default: 10)
  --fuzzy               Enable fuzzy matching for typo tolerance
  --extraction string   Only search this extraction's line items

Examples:
  boq server
  boq extract office-fitout.xlsx
  boq extract --save --output json office-fitout.xlsx
  boq search "executive chair"
  boq show 3f2a9c1e-...
  boq inbox add ~/Dropbox/boq`)
}
