package server

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/salamony4all/boq/internal/config"
	"github.com/salamony4all/boq/internal/extract"
	"github.com/salamony4all/boq/internal/fileid"
	"github.com/salamony4all/boq/internal/models"
	"github.com/salamony4all/boq/internal/ooxml"
	"github.com/salamony4all/boq/internal/storage"
)

const (
	defaultListLimit = 20
	maxListLimit     = 100
	multipartMemory  = 32 << 20
)

func (s *Server) handleCreateExtraction(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, s.config.Server.MaxUploadMB<<20)
	if err := r.ParseMultipartForm(multipartMemory); err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			s.respondError(w, http.StatusRequestEntityTooLarge,
				fmt.Sprintf("file exceeds %d MB", s.config.Server.MaxUploadMB))
			return
		}
		s.respondError(w, http.StatusBadRequest, "invalid multipart body")
		return
	}
	defer func() { _ = r.MultipartForm.RemoveAll() }()

	file, header, err := r.FormFile("file")
	if err != nil {
		s.respondError(w, http.StatusBadRequest, "file is required")
		return
	}
	defer file.Close()

	name := filepath.Base(header.Filename)
	if extract.Format(name) == "" {
		s.respondError(w, http.StatusUnsupportedMediaType, "only .xlsx, .xlsm and .pdf files are supported")
		return
	}

	id := uuid.New().String()
	dst, err := s.saveUpload(file, id+strings.ToLower(filepath.Ext(name)))
	if err != nil {
		s.logger.Error("failed to save upload", zap.Error(err))
		s.respondError(w, http.StatusInternalServerError, "failed to save upload")
		return
	}

	s.logger.Debug("extraction request", zap.String("id", id), zap.String("file", name), zap.Int64("size", header.Size))
	ext, err := s.ingester.IngestFile(r.Context(), dst, name, id)
	if err != nil {
		_ = os.Remove(dst)
		s.respondIngestError(w, err)
		return
	}
	s.respondJSON(w, http.StatusCreated, ext)
}

func (s *Server) saveUpload(src io.Reader, name string) (string, error) {
	dir := s.config.Storage.UploadDir
	if err := os.MkdirAll(dir, 0755); err != nil {
		return "", err
	}
	path := filepath.Join(dir, name)
	f, err := os.OpenFile(path, os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0644)
	if err != nil {
		return "", err
	}
	if _, err := io.Copy(f, src); err != nil {
		f.Close()
		_ = os.Remove(path)
		return "", err
	}
	return path, f.Close()
}

func (s *Server) respondIngestError(w http.ResponseWriter, err error) {
	var ce *ooxml.ContainerError
	switch {
	case errors.Is(err, extract.ErrUnsupportedFormat):
		s.respondError(w, http.StatusUnsupportedMediaType, err.Error())
	case errors.As(err, &ce):
		s.logger.Warn("unreadable upload", zap.Error(err))
		s.respondError(w, http.StatusUnprocessableEntity, err.Error())
	default:
		s.logger.Error("extraction failed", zap.Error(err))
		s.respondError(w, http.StatusInternalServerError, err.Error())
	}
}

func (s *Server) handleListExtractions(w http.ResponseWriter, r *http.Request) {
	offset, err := queryInt(r, "offset", 0)
	if err != nil || offset < 0 {
		s.respondError(w, http.StatusBadRequest, "invalid offset")
		return
	}
	limit, err := queryInt(r, "limit", defaultListLimit)
	if err != nil || limit <= 0 {
		s.respondError(w, http.StatusBadRequest, "invalid limit")
		return
	}
	if limit > maxListLimit {
		limit = maxListLimit
	}

	ctx := r.Context()
	list, err := s.storage.ListExtractions(ctx, offset, limit)
	if err != nil {
		s.logger.Error("list extractions failed", zap.Error(err))
		s.respondError(w, http.StatusInternalServerError, err.Error())
		return
	}
	total, err := s.storage.CountExtractions(ctx)
	if err != nil {
		s.logger.Error("count extractions failed", zap.Error(err))
		s.respondError(w, http.StatusInternalServerError, err.Error())
		return
	}
	if list == nil {
		list = []*models.Extraction{}
	}
	s.respondJSON(w, http.StatusOK, map[string]interface{}{
		"extractions": list,
		"total":       total,
		"offset":      offset,
		"limit":       limit,
	})
}

func (s *Server) handleGetExtraction(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	ext, err := s.storage.GetExtraction(r.Context(), id)
	if errors.Is(err, storage.ErrNotFound) {
		s.respondError(w, http.StatusNotFound, "extraction not found")
		return
	}
	if err != nil {
		s.logger.Error("get extraction failed", zap.String("id", id), zap.Error(err))
		s.respondError(w, http.StatusInternalServerError, err.Error())
		return
	}
	s.respondJSON(w, http.StatusOK, ext)
}

func (s *Server) handleDeleteExtraction(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	ctx := r.Context()
	s.logger.Debug("delete extraction request", zap.String("id", id))

	ext, err := s.storage.GetExtraction(ctx, id)
	if errors.Is(err, storage.ErrNotFound) {
		s.respondError(w, http.StatusNotFound, "extraction not found")
		return
	}
	if err != nil {
		s.respondError(w, http.StatusInternalServerError, err.Error())
		return
	}
	if err := s.ingester.Delete(ctx, id); err != nil {
		s.logger.Error("deletion failed", zap.Error(err))
		s.respondError(w, http.StatusInternalServerError, err.Error())
		return
	}
	// uploaded copies belong to the record; inbox files belong to the user
	if !fileid.IsInboxID(id) && ext.SourcePath != "" && filepath.Dir(ext.SourcePath) == filepath.Clean(s.config.Storage.UploadDir) {
		if err := os.Remove(ext.SourcePath); err != nil && !os.IsNotExist(err) {
			s.logger.Warn("failed to remove upload", zap.String("path", ext.SourcePath), zap.Error(err))
		}
	}
	s.respondJSON(w, http.StatusOK, map[string]string{"id": id, "status": "deleted"})
}

func (s *Server) handleSearchItems(w http.ResponseWriter, r *http.Request) {
	if s.items == nil {
		s.respondError(w, http.StatusNotImplemented, "line-item search not enabled")
		return
	}
	q := r.URL.Query()
	query := models.ItemQuery{
		Query:        strings.TrimSpace(q.Get("q")),
		ExtractionID: q.Get("extraction_id"),
	}
	limit, err := queryInt(r, "limit", 0)
	if err != nil {
		s.respondError(w, http.StatusBadRequest, "invalid limit")
		return
	}
	query.Limit = limit
	if v := q.Get("fuzzy"); v != "" {
		fuzzy, err := strconv.ParseBool(v)
		if err != nil {
			s.respondError(w, http.StatusBadRequest, "invalid fuzzy flag")
			return
		}
		query.FuzzyEnabled = fuzzy
	}
	if err := query.Validate(); err != nil {
		s.respondError(w, http.StatusBadRequest, err.Error())
		return
	}

	s.logger.Debug("item search request", zap.String("query", query.Query), zap.Int("limit", query.Limit), zap.Bool("fuzzy", query.FuzzyEnabled))
	resp, err := s.items.Search(r.Context(), query)
	if err != nil {
		s.logger.Error("item search failed", zap.Error(err))
		s.respondError(w, http.StatusInternalServerError, err.Error())
		return
	}
	s.respondJSON(w, http.StatusOK, resp)
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	s.respondJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) handleStatus(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	count, err := s.storage.CountExtractions(ctx)
	if err != nil {
		s.logger.Error("status: count extractions failed", zap.Error(err))
		s.respondError(w, http.StatusInternalServerError, err.Error())
		return
	}
	resp := map[string]interface{}{
		"extractions": count,
	}
	if s.items != nil {
		if n, err := s.items.DocCount(); err == nil {
			resp["line_items"] = n
		}
	}

	st := s.config.Storage
	if usage, err := storage.Usage(st.DatabasePath, st.ItemIndexPath, st.UploadDir, st.ImageDir); err == nil {
		resp["disk_usage"] = usage
	} else {
		s.logger.Warn("status: disk usage failed", zap.Error(err))
	}

	configInfo := map[string]interface{}{
		"database_path":       st.DatabasePath,
		"item_index_path":     st.ItemIndexPath,
		"upload_dir":          st.UploadDir,
		"image_dir":           st.ImageDir,
		"max_upload_mb":       s.config.Server.MaxUploadMB,
		"batch_size":          s.config.Extract.BatchSize,
		"header_threshold":    s.config.Extract.HeaderThreshold,
		"combined_sheet_name": s.config.Extract.CombinedSheetName,
	}
	if s.inbox != nil {
		configInfo["inbox_directories"] = s.inbox.Directories()
	}
	resp["config"] = configInfo
	s.respondJSON(w, http.StatusOK, resp)
}

func (s *Server) handleInboxDirectoriesList(w http.ResponseWriter, r *http.Request) {
	if s.inbox == nil {
		s.respondError(w, http.StatusNotImplemented, "inbox not enabled")
		return
	}
	s.respondJSON(w, http.StatusOK, map[string]interface{}{"directories": s.inbox.Directories()})
}

type inboxAddRequest struct {
	Path string `json:"path"`
	Sync *bool  `json:"sync,omitempty"`
}

func (s *Server) handleInboxDirectoriesAdd(w http.ResponseWriter, r *http.Request) {
	if s.inbox == nil {
		s.respondError(w, http.StatusNotImplemented, "inbox not enabled")
		return
	}
	var req inboxAddRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.respondError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if req.Path == "" {
		s.respondError(w, http.StatusBadRequest, "path is required")
		return
	}
	abs, err := filepath.Abs(req.Path)
	if err != nil {
		s.respondError(w, http.StatusBadRequest, "invalid path")
		return
	}
	info, err := os.Stat(abs)
	if err != nil {
		if os.IsNotExist(err) {
			s.respondError(w, http.StatusNotFound, "directory not found")
			return
		}
		s.respondError(w, http.StatusInternalServerError, err.Error())
		return
	}
	if !info.IsDir() {
		s.respondError(w, http.StatusBadRequest, "path is not a directory")
		return
	}
	syncExisting := true
	if req.Sync != nil {
		syncExisting = *req.Sync
	}
	s.logger.Debug("inbox add directory request", zap.String("path", abs), zap.Bool("sync_existing", syncExisting))
	if err := s.inbox.AddDirectory(abs, syncExisting); err != nil {
		s.logger.Error("inbox add directory failed", zap.Error(err))
		s.respondError(w, http.StatusInternalServerError, err.Error())
		return
	}
	s.persistInbox()
	s.respondJSON(w, http.StatusCreated, map[string]string{"path": abs, "status": "added"})
}

func (s *Server) handleInboxDirectoriesRemove(w http.ResponseWriter, r *http.Request) {
	if s.inbox == nil {
		s.respondError(w, http.StatusNotImplemented, "inbox not enabled")
		return
	}
	path := r.URL.Query().Get("path")
	if path == "" {
		var body struct {
			Path string `json:"path"`
		}
		if err := json.NewDecoder(r.Body).Decode(&body); err == nil && body.Path != "" {
			path = body.Path
		}
	}
	if path == "" {
		s.respondError(w, http.StatusBadRequest, "path is required (query or body)")
		return
	}
	abs, err := filepath.Abs(path)
	if err != nil {
		s.respondError(w, http.StatusBadRequest, "invalid path")
		return
	}
	s.logger.Debug("inbox remove directory request", zap.String("path", abs))
	if err := s.inbox.RemoveDirectory(abs); err != nil {
		s.logger.Error("inbox remove directory failed", zap.Error(err))
		s.respondError(w, http.StatusInternalServerError, err.Error())
		return
	}
	s.persistInbox()
	s.respondJSON(w, http.StatusOK, map[string]string{"path": abs, "status": "removed"})
}

// persistInbox writes the current inbox directories back to the config file.
func (s *Server) persistInbox() {
	if s.configPath == "" {
		return
	}
	s.configMu.Lock()
	defer s.configMu.Unlock()
	s.config.Inbox.Directories = s.inbox.Directories()
	if err := config.Save(s.configPath, s.config); err != nil {
		s.logger.Warn("failed to persist inbox config", zap.Error(err))
	}
}

func queryInt(r *http.Request, key string, def int) (int, error) {
	v := r.URL.Query().Get(key)
	if v == "" {
		return def, nil
	}
	return strconv.Atoi(v)
}

func (s *Server) respondJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(data)
}

func (s *Server) respondError(w http.ResponseWriter, status int, message string) {
	s.respondJSON(w, status, map[string]string{"error": message})
}
