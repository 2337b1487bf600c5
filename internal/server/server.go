// Package server exposes configured data sources over HTTP so a host can
// run queries and browse schemas without linking the runners in.
package server

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/koustreak/hiverunner/internal/config"
	"github.com/koustreak/hiverunner/internal/errs"
	"github.com/koustreak/hiverunner/internal/logger"
	"github.com/koustreak/hiverunner/internal/runner"
)

const maxBodyBytes = 1 << 20

// Source is a named, configured runner.
type Source struct {
	Name   string
	Runner runner.Runner

	// Settings is shown by the listing endpoint and must already be
	// redacted.
	Settings config.Settings
}

// Server routes HTTP requests to data sources.
type Server struct {
	router   chi.Router
	variants []runner.Variant
	sources  map[string]Source
	names    []string
	log      *logger.Logger
}

// New builds the router. variants feed GET /api/runners.
func New(variants []runner.Variant, sources []Source, log *logger.Logger) *Server {
	if log == nil {
		log = logger.Nop()
	}
	s := &Server{
		router:   chi.NewRouter(),
		variants: variants,
		sources:  make(map[string]Source, len(sources)),
		log:      log,
	}
	for _, src := range sources {
		if _, dup := s.sources[src.Name]; !dup {
			s.names = append(s.names, src.Name)
		}
		s.sources[src.Name] = src
	}
	s.routes()
	return s
}

func (s *Server) routes() {
	r := s.router
	r.Use(middleware.RequestID)
	r.Use(middleware.Recoverer)
	r.Use(s.requestLogger)

	r.Get("/healthz", s.handleHealth)
	r.Route("/api", func(r chi.Router) {
		r.Get("/runners", s.handleRunners)
		r.Get("/datasources", s.handleSources)
		r.Route("/datasources/{name}", func(r chi.Router) {
			r.Post("/query", s.handleQuery)
			r.Get("/schema", s.handleSchema)
			r.Post("/test", s.handleTest)
		})
	})
}

// ServeHTTP implements http.Handler.
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.router.ServeHTTP(w, r)
}

// ListenAndServe serves on addr until ctx is cancelled, then drains
// in-flight requests.
func (s *Server) ListenAndServe(ctx context.Context, addr string) error {
	srv := &http.Server{
		Addr:              addr,
		Handler:           s,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		s.log.Infof("listening on %s", addr)
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			return err
		}
		if err := <-errCh; !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	}
}

func (s *Server) requestLogger(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		log := s.log.With().Str("request_id", middleware.GetReqID(r.Context())).Logger()

		next.ServeHTTP(ww, r.WithContext(log.WithContext(r.Context())))

		log.InfoWith("http_request", map[string]interface{}{
			"method":      r.Method,
			"path":        r.URL.Path,
			"status":      ww.Status(),
			"bytes":       ww.BytesWritten(),
			"duration_ms": time.Since(start).Milliseconds(),
		})
	})
}

// writeJSON writes a JSON response.
func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

// writeError writes {"error": msg, "kind": kind} with a status chosen by
// the error kind.
func writeError(w http.ResponseWriter, err error) {
	kind := errs.KindOf(err)
	writeJSON(w, statusFor(kind), map[string]string{
		"error": errs.Message(err),
		"kind":  kind.String(),
	})
}

// statusClientClosed is the de facto status for a request the client
// abandoned.
const statusClientClosed = 499

func statusFor(kind errs.ErrKind) int {
	switch kind {
	case errs.ErrKindInvalidInput:
		return http.StatusBadRequest
	case errs.ErrKindQueryFailed, errs.ErrKindNoData:
		return http.StatusUnprocessableEntity
	case errs.ErrKindConnectionFailed, errs.ErrKindMetastoreFailed, errs.ErrKindSchemaFailed:
		return http.StatusBadGateway
	case errs.ErrKindTimeout:
		return http.StatusGatewayTimeout
	case errs.ErrKindCancelled:
		return statusClientClosed
	default:
		return http.StatusInternalServerError
	}
}
