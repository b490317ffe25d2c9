// Package server provides the HTTP API for BOQ extraction.
package server

import (
	"context"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"go.uber.org/zap"

	"github.com/salamony4all/boq/internal/config"
	"github.com/salamony4all/boq/internal/ingest"
	"github.com/salamony4all/boq/internal/lineitems"
	"github.com/salamony4all/boq/internal/storage"
)

// InboxService manages the watched inbox directories at runtime.
type InboxService interface {
	Directories() []string
	AddDirectory(path string, syncExisting bool) error
	RemoveDirectory(path string) error
}

// Server is the HTTP server for the extraction API.
type Server struct {
	ingester *ingest.Ingester
	storage  storage.Storage
	items    lineitems.Index
	inbox    InboxService

	config     *config.Config
	configPath string
	configMu   sync.Mutex

	logger *zap.Logger
	server *http.Server
}

// NewServer creates a server with the given dependencies. items and inbox may
// be nil; their endpoints then answer 501. When configPath is set, inbox
// directory changes are saved back to it.
func NewServer(
	in *ingest.Ingester,
	store storage.Storage,
	items lineitems.Index,
	cfg *config.Config,
	logger *zap.Logger,
	inbox InboxService,
	configPath string,
) *Server {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Server{
		ingester:   in,
		storage:    store,
		items:      items,
		inbox:      inbox,
		config:     cfg,
		configPath: configPath,
		logger:     logger,
	}
}

// Routes returns the API handler.
func (s *Server) Routes() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)
	r.Use(middleware.Timeout(5 * time.Minute))
	r.Use(middleware.Compress(5))

	r.Route("/api/v1", func(r chi.Router) {
		r.Route("/extractions", func(r chi.Router) {
			r.Post("/", s.handleCreateExtraction)
			r.Get("/", s.handleListExtractions)
			r.Get("/{id}", s.handleGetExtraction)
			r.Delete("/{id}", s.handleDeleteExtraction)
		})
		r.Get("/items/search", s.handleSearchItems)
		r.Get("/inbox/directories", s.handleInboxDirectoriesList)
		r.Post("/inbox/directories", s.handleInboxDirectoriesAdd)
		r.Delete("/inbox/directories", s.handleInboxDirectoriesRemove)
		r.Get("/status", s.handleStatus)
	})
	r.Get("/health", s.handleHealth)

	// images saved by the disk sink are served under their URL prefix
	if prefix := strings.TrimRight(s.config.Storage.ImageURLPrefix, "/"); strings.HasPrefix(prefix, "/") {
		fs := http.StripPrefix(prefix+"/", http.FileServer(http.Dir(s.config.Storage.ImageDir)))
		r.Handle(prefix+"/*", fs)
	}
	return r
}

// Start starts the HTTP server and blocks until it stops.
func (s *Server) Start() error {
	addr := s.config.Server.Addr()
	s.server = &http.Server{
		Addr:              addr,
		Handler:           s.Routes(),
		ReadHeaderTimeout: 10 * time.Second,
	}
	s.logger.Info("Starting server", zap.String("addr", addr))
	return s.server.ListenAndServe()
}

// Stop gracefully shuts down the server.
func (s *Server) Stop(ctx context.Context) error {
	if s.server != nil {
		return s.server.Shutdown(ctx)
	}
	return nil
}
