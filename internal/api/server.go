// Package api exposes study-package generation and progress analytics over
// HTTP with JSON responses.
package api

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/p-n-ai/pai-studypack/internal/generation"
	"github.com/p-n-ai/pai-studypack/internal/progress"
	"github.com/p-n-ai/pai-studypack/internal/subject"
)

const defaultMaxUploadSize = 20 << 20

// Check reports whether a dependency is ready to serve traffic.
type Check func(ctx context.Context) error

// Config holds the services behind the HTTP surface.
type Config struct {
	Pipeline      *generation.Pipeline
	Recorder      *progress.Recorder
	Aggregator    *progress.Aggregator
	Queries       *progress.Queries
	MaxUploadSize int64            // bytes per generation request (default 20 MiB)
	ReadyChecks   map[string]Check // consulted by /readyz
}

// Server routes HTTP requests to the services.
type Server struct {
	pipeline   *generation.Pipeline
	recorder   *progress.Recorder
	aggregator *progress.Aggregator
	queries    *progress.Queries
	maxUpload  int64
	checks     map[string]Check
}

func NewServer(cfg Config) *Server {
	maxUpload := cfg.MaxUploadSize
	if maxUpload <= 0 {
		maxUpload = defaultMaxUploadSize
	}
	return &Server{
		pipeline:   cfg.Pipeline,
		recorder:   cfg.Recorder,
		aggregator: cfg.Aggregator,
		queries:    cfg.Queries,
		maxUpload:  maxUpload,
		checks:     cfg.ReadyChecks,
	}
}

// Handler returns the HTTP router.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("GET /healthz", s.handleHealthz)
	mux.HandleFunc("GET /readyz", s.handleReadyz)

	mux.HandleFunc("POST /api/subjects", s.handleGenerate)
	mux.HandleFunc("GET /api/subjects", s.handleListSubjects)
	mux.HandleFunc("GET /api/subjects/progress", s.handleListProgress)
	mux.HandleFunc("GET /api/subjects/{subjectID}/topics", s.handleListTopics)
	mux.HandleFunc("GET /api/subjects/{subjectID}/topics/{topicID}", s.handleGetTopic)
	mux.HandleFunc("POST /api/subjects/{subjectID}/topics/{topicID}/completion", s.handleCompletion)
	mux.HandleFunc("GET /api/subjects/{subjectID}/progress", s.handleRecompute)
	mux.HandleFunc("GET /api/subjects/{subjectID}/analytics", s.handleTopicAnalytics)
	mux.HandleFunc("GET /api/subjects/{subjectID}/report.xlsx", s.handleReport)
	mux.HandleFunc("GET /api/analytics/subjects", s.handleSubjectAnalytics)
	return mux
}

func (s *Server) handleHealthz(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) handleReadyz(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
	defer cancel()

	failed := map[string]string{}
	for name, check := range s.checks {
		if err := check(ctx); err != nil {
			slog.Warn("readiness check failed", "check", name, "error", err)
			failed[name] = err.Error()
		}
	}
	if len(failed) > 0 {
		writeJSON(w, http.StatusServiceUnavailable, map[string]any{"status": "unavailable", "failed": failed})
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "ready"})
}

type messageResponse struct {
	Message string `json:"message"`
	Error   string `json:"error,omitempty"`
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		slog.Error("writing response", "error", err)
	}
}

// writeError maps domain errors to status codes. Anything unrecognised is
// a 500 carrying the cause.
func writeError(w http.ResponseWriter, r *http.Request, err error) {
	var status int
	var msg string
	switch {
	case errors.Is(err, subject.ErrSubjectNotFound):
		status, msg = http.StatusNotFound, "Subject not found"
	case errors.Is(err, subject.ErrTopicNotFound):
		status, msg = http.StatusNotFound, "Topic not found"
	case errors.Is(err, generation.ErrInvalidRequest), errors.Is(err, progress.ErrInvalidSubmission), errors.Is(err, errBadRequest):
		status, msg = http.StatusBadRequest, "Invalid request"
	case errors.Is(err, subject.ErrVersionConflict):
		status, msg = http.StatusConflict, "Subject was modified concurrently, try again"
	case errors.Is(err, generation.ErrTopicExtractionFailed), errors.Is(err, generation.ErrTopicGenerationFailed):
		status, msg = http.StatusInternalServerError, "Study package generation failed"
	case errors.Is(err, generation.ErrUpstreamService):
		status, msg = http.StatusInternalServerError, "Upstream service failed"
	default:
		status, msg = http.StatusInternalServerError, "Internal Server Error"
	}

	if status >= 500 {
		slog.Error("request failed", "method", r.Method, "path", r.URL.Path, "error", err)
	} else {
		slog.Debug("request rejected", "method", r.Method, "path", r.URL.Path, "status", status, "error", err)
	}
	writeJSON(w, status, messageResponse{Message: msg, Error: err.Error()})
}
