// Package server exposes a record document store over HTTP.
//
// Routes:
//
//	GET    /healthz                              liveness and build info
//	GET    /api/v1/documents                     list entries, newest first
//	GET    /api/v1/documents/{key}               read a document
//	PUT    /api/v1/documents/{key}               store a document
//	DELETE /api/v1/documents/{key}               delete a document
//	GET    /api/v1/documents/{key}/graph.{ext}   dependency graph (svg or dot)
//	GET    /metrics                              Prometheus metrics, when enabled
//
// Errors are JSON objects {"error": "...", "code": "..."}.
package server

import (
	"context"
	"encoding/json"
	stderrors "errors"
	"net/http"
	"time"

	"github.com/charmbracelet/log"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/matzehuels/rigstash/pkg/buildinfo"
	"github.com/matzehuels/rigstash/pkg/errors"
	"github.com/matzehuels/rigstash/pkg/observability"
	"github.com/matzehuels/rigstash/pkg/record"
	"github.com/matzehuels/rigstash/pkg/render/nodelink"
	"github.com/matzehuels/rigstash/pkg/store"
)

// =============================================================================
// Default Values
// =============================================================================

const (
	// DefaultMaxBodyBytes bounds uploaded documents.
	DefaultMaxBodyBytes = 32 << 20

	// DefaultReadTimeout bounds reading a request.
	DefaultReadTimeout = 30 * time.Second

	shutdownTimeout = 10 * time.Second
)

// Options configures a Server.
type Options struct {
	Logger *log.Logger
	// Metrics, when set, is served at /metrics.
	Metrics      http.Handler
	MaxBodyBytes int64
	ReadTimeout  time.Duration
}

// ValidateAndSetDefaults fills in defaults.
func (o *Options) ValidateAndSetDefaults() error {
	if o.MaxBodyBytes < 0 || o.ReadTimeout < 0 {
		return errors.New(errors.ErrCodeInvalidConfig, "server limits must not be negative")
	}
	if o.Logger == nil {
		o.Logger = log.Default()
	}
	if o.MaxBodyBytes == 0 {
		o.MaxBodyBytes = DefaultMaxBodyBytes
	}
	if o.ReadTimeout == 0 {
		o.ReadTimeout = DefaultReadTimeout
	}
	return nil
}

// Server serves a document store.
type Server struct {
	store  store.Store
	opts   Options
	router chi.Router
}

var _ http.Handler = (*Server)(nil)

// New creates a server over st.
func New(st store.Store, opts Options) (*Server, error) {
	if err := opts.ValidateAndSetDefaults(); err != nil {
		return nil, err
	}
	s := &Server{store: st, opts: opts}
	s.router = s.routes()
	return s, nil
}

func (s *Server) routes() chi.Router {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(s.instrument)
	r.Use(middleware.Recoverer)

	r.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, struct {
			Status string         `json:"status"`
			Build  buildinfo.Info `json:"build"`
		}{"ok", buildinfo.Get()})
	})
	if s.opts.Metrics != nil {
		r.Method(http.MethodGet, "/metrics", s.opts.Metrics)
	}

	r.Route("/api/v1/documents", func(r chi.Router) {
		r.Get("/", s.listDocuments)
		r.Route("/{key}", func(r chi.Router) {
			r.Get("/", s.getDocument)
			r.Put("/", s.putDocument)
			r.Delete("/", s.deleteDocument)
			r.Get("/graph.{ext}", s.getGraph)
		})
	})
	return r
}

// ServeHTTP implements http.Handler.
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.router.ServeHTTP(w, r)
}

// ListenAndServe serves on addr until ctx is cancelled, then shuts down
// gracefully.
func (s *Server) ListenAndServe(ctx context.Context, addr string) error {
	srv := &http.Server{
		Addr:              addr,
		Handler:           s,
		ReadTimeout:       s.opts.ReadTimeout,
		ReadHeaderTimeout: s.opts.ReadTimeout,
	}

	errc := make(chan error, 1)
	go func() { errc <- srv.ListenAndServe() }()
	s.opts.Logger.Info("serving", "addr", addr)

	select {
	case err := <-errc:
		return err
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	s.opts.Logger.Info("shutting down")
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return err
	}
	if err := <-errc; err != nil && !stderrors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

// =============================================================================
// Middleware
// =============================================================================

// instrument logs every request and reports it to the HTTP hooks under
// its route pattern.
func (s *Server) instrument(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		next.ServeHTTP(ww, r)

		route := r.URL.Path
		if rc := chi.RouteContext(r.Context()); rc != nil && rc.RoutePattern() != "" {
			route = rc.RoutePattern()
		}
		status := ww.Status()
		if status == 0 {
			status = http.StatusOK
		}
		hooks := observability.HTTP()
		hooks.OnRequest(r.Context(), r.Method, route)
		hooks.OnResponse(r.Context(), r.Method, route, status, time.Since(start))

		s.opts.Logger.Debug("request",
			"method", r.Method,
			"route", route,
			"status", status,
			"bytes", ww.BytesWritten(),
			"duration", time.Since(start),
			"request_id", middleware.GetReqID(r.Context()))
	})
}

// =============================================================================
// Handlers
// =============================================================================

func (s *Server) listDocuments(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), store.OpTimeout)
	defer cancel()

	entries, err := s.store.List(ctx)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	if entries == nil {
		entries = []store.Entry{}
	}
	writeJSON(w, http.StatusOK, entries)
}

func (s *Server) getDocument(w http.ResponseWriter, r *http.Request) {
	doc, entry, err := s.fetch(r)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	w.Header().Set("ETag", `"`+entry.Hash+`"`)
	if err := record.Write(doc, w); err != nil {
		s.opts.Logger.Warn("write response", "key", entry.Key, "error", err)
	}
}

func (s *Server) putDocument(w http.ResponseWriter, r *http.Request) {
	key := chi.URLParam(r, "key")
	if err := errors.ValidateStoreKey(key); err != nil {
		s.writeError(w, r, err)
		return
	}
	doc, err := record.Read(http.MaxBytesReader(w, r.Body, s.opts.MaxBodyBytes))
	if err != nil {
		if errors.GetCode(err) == "" {
			err = errors.Wrap(errors.ErrCodeInvalidRecord, err, "read document")
		}
		s.writeError(w, r, err)
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), store.OpTimeout)
	defer cancel()
	entry, err := s.store.Put(ctx, key, doc)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	s.opts.Logger.Info("stored document", "key", entry.Key, "nodes", entry.Nodes, "revision", entry.ID)
	writeJSON(w, http.StatusCreated, entry)
}

func (s *Server) deleteDocument(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), store.OpTimeout)
	defer cancel()

	if err := s.store.Delete(ctx, chi.URLParam(r, "key")); err != nil {
		s.writeError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) getGraph(w http.ResponseWriter, r *http.Request) {
	ext := chi.URLParam(r, "ext")
	if ext != "svg" && ext != "dot" {
		s.writeError(w, r, errors.New(errors.ErrCodeNotFound, "no graph format %q", ext))
		return
	}
	doc, _, err := s.fetch(r)
	if err != nil {
		s.writeError(w, r, err)
		return
	}

	q := r.URL.Query()
	opts := nodelink.Options{
		Detailed:    q.Get("detailed") == "true",
		Connections: q.Get("connections") == "true",
	}
	dot := nodelink.ToDOT(nodelink.Graph(doc, opts), opts)
	if ext == "dot" {
		w.Header().Set("Content-Type", "text/vnd.graphviz")
		_, _ = w.Write([]byte(dot))
		return
	}

	svg, err := nodelink.RenderSVG(dot)
	if err != nil {
		s.writeError(w, r, errors.Wrap(errors.ErrCodeInternal, err, "render graph"))
		return
	}
	w.Header().Set("Content-Type", "image/svg+xml")
	_, _ = w.Write(svg)
}

func (s *Server) fetch(r *http.Request) (*record.Document, store.Entry, error) {
	ctx, cancel := context.WithTimeout(r.Context(), store.OpTimeout)
	defer cancel()
	return s.store.Get(ctx, chi.URLParam(r, "key"))
}

// =============================================================================
// Responses
// =============================================================================

type errorResponse struct {
	Error string `json:"error"`
	Code  string `json:"code,omitempty"`
}

func (s *Server) writeError(w http.ResponseWriter, r *http.Request, err error) {
	status := statusOf(err)
	if status >= http.StatusInternalServerError {
		s.opts.Logger.Error("request failed", "method", r.Method, "path", r.URL.Path, "error", err)
	}
	writeJSON(w, status, errorResponse{Error: errors.UserMessage(err), Code: string(errors.GetCode(err))})
}

// statusOf maps an error to an HTTP status.
func statusOf(err error) int {
	var maxBytes *http.MaxBytesError
	switch {
	case store.IsNotFound(err), errors.Is(err, errors.ErrCodeNotFound):
		return http.StatusNotFound
	case stderrors.As(err, &maxBytes):
		return http.StatusRequestEntityTooLarge
	}
	switch errors.GetCode(err) {
	case errors.ErrCodeInvalidInput, errors.ErrCodeInvalidRecord, errors.ErrCodeInvalidName,
		errors.ErrCodeInvalidPath, errors.ErrCodeUnknownType:
		return http.StatusBadRequest
	}
	return http.StatusInternalServerError
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
