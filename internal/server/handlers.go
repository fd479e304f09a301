package server

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"go.uber.org/zap"

	"github.com/hyperjump/vecsearch/internal/dataset"
	"github.com/hyperjump/vecsearch/internal/models"
	"github.com/hyperjump/vecsearch/internal/search"
	"github.com/hyperjump/vecsearch/internal/storage"
	"github.com/hyperjump/vecsearch/internal/vector"
)

func (s *Server) handleSearch(w http.ResponseWriter, r *http.Request) {
	var query models.SearchQuery
	if err := json.NewDecoder(r.Body).Decode(&query); err != nil {
		s.respondError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	s.logger.Debug("search request",
		zap.String("request_id", RequestIDFrom(r.Context())),
		zap.String("query", query.Query),
		zap.Int("k", query.K),
	)
	response, err := s.engine.Search(r.Context(), &query)
	if err != nil {
		status := statusFor(err)
		if status >= http.StatusInternalServerError {
			s.logger.Error("search failed", zap.String("request_id", RequestIDFrom(r.Context())), zap.Error(err))
		}
		s.respondError(w, status, err.Error())
		return
	}
	s.respondJSON(w, http.StatusOK, response)
}

// statusFor maps engine errors to HTTP status codes.
func statusFor(err error) int {
	switch {
	case errors.Is(err, models.ErrEmptyQuery),
		errors.Is(err, models.ErrInvalidK),
		errors.Is(err, vector.ErrDimensionMismatch):
		return http.StatusBadRequest
	case errors.Is(err, context.DeadlineExceeded):
		return http.StatusGatewayTimeout
	case errors.Is(err, search.ErrNoDataset):
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	s.respondJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

type statusResponse struct {
	Dir            string              `json:"dir"`
	Descriptor     *dataset.Descriptor `json:"descriptor"`
	Metadata       int                 `json:"metadata_entries"`
	IndexSize      int                 `json:"index_size"`
	Backend        string              `json:"backend"`
	Metric         string              `json:"metric"`
	Files          []storage.FileUsage `json:"files"`
	DiskUsageBytes int64               `json:"disk_usage_bytes"`
	Uptime         string              `json:"uptime"`
}

func (s *Server) handleStatus(w http.ResponseWriter, r *http.Request) {
	ds := s.engine.Dataset()
	if ds == nil {
		s.respondError(w, http.StatusServiceUnavailable, search.ErrNoDataset.Error())
		return
	}
	resp := statusResponse{
		Dir:        ds.Layout.Dir,
		Descriptor: ds.Descriptor,
		Metadata:   ds.Metadata.Len(),
		IndexSize:  ds.Index.Len(),
		Backend:    string(ds.Index.Backend()),
		Metric:     ds.Index.Metric().String(),
		Uptime:     time.Since(s.started).Round(time.Second).String(),
	}
	files, total, err := storage.DatasetUsage(ds.Layout.Dir, ds.Layout.Files()...)
	if err != nil {
		s.logger.Warn("status: disk usage failed", zap.Error(err))
	} else {
		resp.Files = files
		resp.DiskUsageBytes = total
	}
	s.respondJSON(w, http.StatusOK, resp)
}

func (s *Server) handleReload(w http.ResponseWriter, r *http.Request) {
	if err := s.Reload(r.Context()); err != nil {
		s.logger.Error("reload failed", zap.Error(err))
		s.respondError(w, http.StatusInternalServerError, err.Error())
		return
	}
	s.respondJSON(w, http.StatusOK, map[string]string{"status": "reloaded"})
}

func (s *Server) respondJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(data)
}

func (s *Server) respondError(w http.ResponseWriter, status int, message string) {
	s.respondJSON(w, status, map[string]string{"error": message})
}
