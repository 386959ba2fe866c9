// Package httpapi exposes the inspector engine as a JSON HTTP API.
package httpapi

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	inspector "github.com/vals/anndata-design-inspector"
	"github.com/vals/anndata-design-inspector/internal/adapters/cache"
	"github.com/vals/anndata-design-inspector/pkg/domain"
	"github.com/vals/anndata-design-inspector/pkg/grammar"
	"github.com/vals/anndata-design-inspector/pkg/nesting"
)

// Server wraps the inspector Engine and serves it over HTTP.
type Server struct {
	engine   *inspector.Engine
	logger   *slog.Logger
	reports  cache.Cache
	cacheTTL time.Duration
}

// Option configures the Server.
type Option func(*Server)

// WithReportCache caches inspection reports keyed by file identity.
func WithReportCache(c cache.Cache, ttl time.Duration) Option {
	return func(s *Server) {
		s.reports = c
		s.cacheTTL = ttl
	}
}

// NewServer creates the HTTP adapter over the given engine.
func NewServer(engine *inspector.Engine, logger *slog.Logger, opts ...Option) *Server {
	s := &Server{
		engine:   engine,
		logger:   logger,
		cacheTTL: 15 * time.Minute,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Handler builds the chi router with all routes mounted.
func (s *Server) Handler() http.Handler {
	r := chi.NewRouter()
	r.Use(s.metricsMiddleware)

	r.Post("/v1/classify", s.handleClassify)
	r.Post("/v1/grammar", s.handleGrammar)
	r.Post("/v1/inspect", s.handleInspect)
	r.Get("/healthz", s.handleHealth)
	r.Get("/info", s.handleInfo)
	r.Handle("/metrics", promhttp.Handler())

	return enableCORS(r)
}

// ListenAndServe runs the server until ctx is cancelled, then shuts down
// gracefully.
func (s *Server) ListenAndServe(ctx context.Context, addr string) error {
	httpServer := &http.Server{
		Addr:    addr,
		Handler: s.Handler(),
	}

	serverErrors := make(chan error, 1)
	go func() {
		s.logger.Info("HTTP server listening", "address", addr)
		serverErrors <- httpServer.ListenAndServe()
	}()

	select {
	case err := <-serverErrors:
		return err
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()

		s.logger.Info("shutdown signal received, shutting down server")
		if err := httpServer.Shutdown(shutdownCtx); err != nil {
			return fmt.Errorf("could not stop server gracefully: %w", err)
		}
		return nil
	}
}

// ClassifyRequest carries two raw label sets.
type ClassifyRequest struct {
	ParentLabels []string `json:"parent_labels"`
	ChildLabels  []string `json:"child_labels"`
}

// GrammarResponse is the successful /v1/grammar body.
type GrammarResponse struct {
	Grammar string `json:"grammar"`
}

// InspectRequest names a file on the server's filesystem.
type InspectRequest struct {
	Path string `json:"path"`
}

// ErrorResponse is the body of every non-2xx response.
type ErrorResponse struct {
	Error  string `json:"error"`
	Rule   string `json:"rule,omitempty"`
	Factor string `json:"factor,omitempty"`
}

func (s *Server) handleClassify(w http.ResponseWriter, r *http.Request) {
	var body ClassifyRequest
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		s.writeError(w, http.StatusBadRequest, ErrorResponse{Error: "invalid request body"})
		s.logger.Warn("classify: invalid request body", "err", err)
		return
	}

	res := nesting.Classify(body.ParentLabels, body.ChildLabels)
	s.writeJSON(w, http.StatusOK, res)
}

func (s *Server) handleGrammar(w http.ResponseWriter, r *http.Request) {
	var design domain.Design
	if err := json.NewDecoder(r.Body).Decode(&design); err != nil {
		s.writeError(w, http.StatusBadRequest, ErrorResponse{Error: "invalid design document"})
		s.logger.Warn("grammar: invalid design document", "err", err)
		return
	}

	out, err := grammar.Serialize(&design)
	if err != nil {
		resp := ErrorResponse{Error: err.Error()}
		if invalid, ok := domain.AsInvalidDesign(err); ok {
			resp.Rule = invalid.Rule
			resp.Factor = invalid.Factor
		}
		s.writeError(w, http.StatusUnprocessableEntity, resp)
		return
	}
	s.writeJSON(w, http.StatusOK, GrammarResponse{Grammar: out})
}

func (s *Server) handleInspect(w http.ResponseWriter, r *http.Request) {
	var body InspectRequest
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil || body.Path == "" {
		s.writeError(w, http.StatusBadRequest, ErrorResponse{Error: "request must name a file path"})
		return
	}

	if report, ok := s.cachedReport(r.Context(), body.Path); ok {
		s.writeJSON(w, http.StatusOK, report)
		return
	}

	report, err := s.engine.Inspect(r.Context(), body.Path)
	if err != nil {
		status := http.StatusInternalServerError
		resp := ErrorResponse{Error: err.Error()}
		if invalid, ok := domain.AsInvalidDesign(err); ok {
			status = http.StatusUnprocessableEntity
			resp.Rule = invalid.Rule
			resp.Factor = invalid.Factor
		} else if errors.Is(err, domain.ErrFactorNotFound) {
			status = http.StatusNotFound
		}
		s.writeError(w, status, resp)
		s.logger.Error("inspect failed", "path", body.Path, "err", err)
		return
	}

	s.storeReport(r.Context(), body.Path, report)
	s.writeJSON(w, http.StatusOK, report)
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	s.writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) handleInfo(w http.ResponseWriter, r *http.Request) {
	s.writeJSON(w, http.StatusOK, map[string]string{
		"app":     "adi-http",
		"version": inspector.Version,
	})
}

// cachedReport returns a previously stored report when the file is unchanged.
func (s *Server) cachedReport(ctx context.Context, path string) (*inspector.Report, bool) {
	if s.reports == nil {
		return nil, false
	}
	key, err := inspector.CacheKey(path)
	if err != nil {
		return nil, false
	}
	raw, hit, err := s.reports.Get(ctx, key)
	if err != nil {
		s.logger.Warn("report cache read failed", "err", err)
		return nil, false
	}
	if !hit {
		return nil, false
	}
	var report inspector.Report
	if err := json.Unmarshal(raw, &report); err != nil {
		return nil, false
	}
	s.logger.Debug("report cache hit", "path", path)
	return &report, true
}

func (s *Server) storeReport(ctx context.Context, path string, report *inspector.Report) {
	if s.reports == nil {
		return
	}
	key, err := inspector.CacheKey(path)
	if err != nil {
		return
	}
	raw, err := json.Marshal(report)
	if err != nil {
		return
	}
	if err := s.reports.Set(ctx, key, raw, s.cacheTTL); err != nil {
		s.logger.Warn("report cache write failed", "err", err)
	}
}

func (s *Server) writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		s.logger.Error("response encode failed", "err", err)
	}
}

func (s *Server) writeError(w http.ResponseWriter, status int, resp ErrorResponse) {
	s.writeJSON(w, status, resp)
}

func enableCORS(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", "*")
		w.Header().Set("Access-Control-Allow-Methods", "GET, POST, OPTIONS")
		w.Header().Set("Access-Control-Allow-Headers", "Content-Type")
		if r.Method == "OPTIONS" {
			w.WriteHeader(http.StatusOK)
			return
		}
		next.ServeHTTP(w, r)
	})
}
