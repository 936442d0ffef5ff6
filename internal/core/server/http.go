package server

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net"
	"net/http"
	"strconv"
	"time"

	"github.com/gorilla/mux"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/solatis/gfb/internal/core/api"
	"github.com/solatis/gfb/internal/core/auth"
	"github.com/solatis/gfb/internal/export"
	"github.com/solatis/gfb/internal/query"
)

// HTTPServer serves the compile API, health and metrics over HTTP.
type HTTPServer struct {
	addr          string
	timeout       time.Duration
	maxBytes      int64
	service       *api.Service
	authenticator *auth.Authenticator
	logger        *slog.Logger
	server        *http.Server
	now           func() time.Time
}

// HTTPOptions configures NewHTTPServer.
type HTTPOptions struct {
	Addr           string
	RequestTimeout time.Duration
	MaxDocumentKB  int
	Authenticator  *auth.Authenticator // nil serves /v1 anonymously
	Logger         *slog.Logger
}

// NewHTTPServer creates the HTTP API server.
func NewHTTPServer(service *api.Service, opts HTTPOptions) (*HTTPServer, error) {
	if service == nil {
		return nil, fmt.Errorf("service cannot be nil")
	}
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}

	s := &HTTPServer{
		addr:          opts.Addr,
		timeout:       opts.RequestTimeout,
		maxBytes:      int64(opts.MaxDocumentKB) * 1024,
		service:       service,
		authenticator: opts.Authenticator,
		logger:        logger,
		now:           time.Now,
	}
	s.server = &http.Server{
		Addr:              opts.Addr,
		Handler:           s.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}
	return s, nil
}

// Handler returns the routed handler.
func (s *HTTPServer) Handler() http.Handler {
	router := mux.NewRouter()
	router.Use(s.loggingMiddleware)

	router.HandleFunc("/healthz", s.handleHealth).Methods(http.MethodGet)
	router.Handle("/metrics", promhttp.Handler()).Methods(http.MethodGet)

	v1 := router.PathPrefix("/v1").Subrouter()
	if s.authenticator != nil {
		v1.Use(s.authenticator.Middleware)
	}
	v1.Use(s.timeoutMiddleware)
	v1.HandleFunc("/compile", s.handleCompile).Methods(http.MethodPost)
	v1.HandleFunc("/export", s.handleExport).Methods(http.MethodPost)
	v1.HandleFunc("/filters", s.handleListFilters).Methods(http.MethodGet)

	return router
}

// Start listens on the configured address until Shutdown.
func (s *HTTPServer) Start(ctx context.Context) error {
	listener, err := net.Listen("tcp", s.addr)
	if err != nil {
		return fmt.Errorf("failed to bind %s: %w", s.addr, err)
	}
	s.logger.Info("HTTP server listening", "addr", listener.Addr().String())
	if err := s.server.Serve(listener); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

// Shutdown stops accepting requests and waits for in-flight ones.
func (s *HTTPServer) Shutdown(ctx context.Context) error {
	if err := s.server.Shutdown(ctx); err != nil {
		return fmt.Errorf("HTTP shutdown: %w", err)
	}
	s.logger.Info("HTTP server stopped")
	return nil
}

// Middleware functions

func (s *HTTPServer) loggingMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		next.ServeHTTP(w, r)
		s.logger.Debug("HTTP request",
			"method", r.Method,
			"path", r.URL.Path,
			"remote", r.RemoteAddr,
			"duration", time.Since(start))
	})
}

func (s *HTTPServer) timeoutMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ctx := api.WithTransport(r.Context(), "http")
		if s.timeout > 0 {
			var cancel context.CancelFunc
			ctx, cancel = context.WithTimeout(ctx, s.timeout)
			defer cancel()
		}
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// Handlers

func (s *HTTPServer) handleHealth(w http.ResponseWriter, r *http.Request) {
	s.writeJSON(w, http.StatusOK, map[string]interface{}{
		"status":   "ok",
		"registry": s.service.HasRegistry(),
	})
}

// CompiledFilterResponse is one label of a compile response.
type CompiledFilterResponse struct {
	Label     string                 `json:"label"`
	Queries   []string               `json:"queries"`
	Actions   []string               `json:"actions"`
	Resources []query.FilterResource `json:"resources"`
}

// CompileResponse is the body of POST /v1/compile.
type CompileResponse struct {
	Filters []CompiledFilterResponse `json:"filters"`
	ETag    string                   `json:"etag,omitempty"`
}

// FilterRecordResponse is one stored query.
type FilterRecordResponse struct {
	FilterID  string    `json:"filter_id"`
	Label     string    `json:"label"`
	Position  int       `json:"position"`
	Query     string    `json:"query"`
	Actions   []string  `json:"actions"`
	CreatedAt time.Time `json:"created_at"`
}

// ListFiltersResponse is the body of GET /v1/filters.
type ListFiltersResponse struct {
	Filters []FilterRecordResponse `json:"filters"`
	ETag    string                 `json:"etag"`
}

func (s *HTTPServer) handleCompile(w http.ResponseWriter, r *http.Request) {
	doc, ok := s.readDocument(w, r)
	if !ok {
		return
	}
	persist, _ := strconv.ParseBool(r.URL.Query().Get("persist"))
	labelID := r.URL.Query().Get("label_id")

	result, err := s.service.Compile(r.Context(), auth.AccountIDFromContext(r.Context()), doc, persist)
	if err != nil {
		s.writeError(w, api.HTTPStatus(err), err.Error())
		return
	}

	resp := CompileResponse{Filters: make([]CompiledFilterResponse, 0, len(result.Filters)), ETag: result.ETag}
	for _, f := range result.Filters {
		resp.Filters = append(resp.Filters, CompiledFilterResponse{
			Label:     f.Label,
			Queries:   f.Queries,
			Actions:   f.ActionNames(),
			Resources: f.Resources(labelID),
		})
	}
	if result.ETag != "" {
		w.Header().Set("ETag", strconv.Quote(result.ETag))
	}
	s.writeJSON(w, http.StatusOK, resp)
}

func (s *HTTPServer) handleExport(w http.ResponseWriter, r *http.Request) {
	doc, ok := s.readDocument(w, r)
	if !ok {
		return
	}

	result, err := s.service.Compile(r.Context(), auth.AccountIDFromContext(r.Context()), doc, false)
	if err != nil {
		s.writeError(w, api.HTTPStatus(err), err.Error())
		return
	}

	w.Header().Set("Content-Type", "application/atom+xml; charset=utf-8")
	w.Header().Set("Content-Disposition", `attachment; filename="mailFilters.xml"`)
	if err := export.Write(w, result.Filters, s.now()); err != nil {
		s.logger.Error("failed to write export", "error", err)
	}
}

func (s *HTTPServer) handleListFilters(w http.ResponseWriter, r *http.Request) {
	records, etag, err := s.service.Filters(r.Context(), auth.AccountIDFromContext(r.Context()))
	if err != nil {
		s.writeError(w, api.HTTPStatus(err), err.Error())
		return
	}

	quoted := strconv.Quote(etag)
	w.Header().Set("ETag", quoted)
	if match := r.Header.Get("If-None-Match"); match == quoted || match == etag {
		w.WriteHeader(http.StatusNotModified)
		return
	}

	resp := ListFiltersResponse{Filters: make([]FilterRecordResponse, 0, len(records)), ETag: etag}
	for _, rec := range records {
		actions := rec.ActionNames()
		if actions == nil {
			actions = []string{}
		}
		resp.Filters = append(resp.Filters, FilterRecordResponse{
			FilterID:  string(rec.FilterID),
			Label:     rec.Label,
			Position:  rec.Position,
			Query:     rec.Query,
			Actions:   actions,
			CreatedAt: rec.CreatedAt.UTC(),
		})
	}
	s.writeJSON(w, http.StatusOK, resp)
}

// readDocument reads the request body, enforcing the document size limit.
func (s *HTTPServer) readDocument(w http.ResponseWriter, r *http.Request) ([]byte, bool) {
	body := r.Body
	if s.maxBytes > 0 {
		body = http.MaxBytesReader(w, r.Body, s.maxBytes)
	}
	doc, err := io.ReadAll(body)
	if err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			s.writeError(w, http.StatusRequestEntityTooLarge, fmt.Sprintf("document exceeds %d bytes", s.maxBytes))
			return nil, false
		}
		s.writeError(w, http.StatusBadRequest, "failed to read request body")
		return nil, false
	}
	if len(doc) == 0 {
		s.writeError(w, http.StatusBadRequest, "request body must contain a filter document")
		return nil, false
	}
	return doc, true
}

func (s *HTTPServer) writeJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		s.logger.Error("failed to encode JSON response", "error", err)
	}
}

func (s *HTTPServer) writeError(w http.ResponseWriter, status int, message string) {
	s.writeJSON(w, status, map[string]string{"error": message})
}
