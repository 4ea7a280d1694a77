package server

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"go.uber.org/zap"

	"github.com/courierbot/courier/internal/core/ratelimit"
	apperrors "github.com/courierbot/courier/internal/errors"
	"github.com/courierbot/courier/internal/observability"
	"github.com/courierbot/courier/internal/server/handlers"
	servermw "github.com/courierbot/courier/internal/server/middleware"
)

// Options configures the status server.
type Options struct {
	Host           string
	Port           int
	ReadTimeout    time.Duration
	WriteTimeout   time.Duration
	IdleTimeout    time.Duration
	Version        string
	Table          ratelimit.Admin
	Clock          func() time.Time
	HealthCheckers map[string]handlers.HealthChecker
}

// Server represents the HTTP server
type Server struct {
	router *chi.Mux
	server *http.Server
	opts   Options
	health *handlers.HealthManager
}

// New creates a new HTTP server instance
func New(opts Options) *Server {
	if opts.Table == nil {
		opts.Table = ratelimit.Shared()
	}

	r := chi.NewRouter()
	r.Use(middleware.RealIP)

	// RequestID → Metrics → Recovery
	r.Use(servermw.RequestID)
	r.Use(servermw.RequestMetrics)
	r.Use(servermw.Recovery)

	r.NotFound(func(w http.ResponseWriter, req *http.Request) {
		writeError(w, req, apperrors.NewNotFoundError("The requested resource was not found"))
	})
	r.MethodNotAllowed(func(w http.ResponseWriter, req *http.Request) {
		writeError(w, req, apperrors.NewMethodNotAllowedError("The requested method is not allowed for this resource"))
	})

	health := handlers.NewHealthManager(opts.Version)
	for name, checker := range opts.HealthCheckers {
		health.RegisterChecker(name, checker)
	}

	s := &Server{
		router: r,
		opts:   opts,
		health: health,
		server: &http.Server{
			Addr:         fmt.Sprintf("%s:%d", opts.Host, opts.Port),
			Handler:      r,
			ReadTimeout:  orDefault(opts.ReadTimeout, 30*time.Second),
			WriteTimeout: orDefault(opts.WriteTimeout, 30*time.Second),
			IdleTimeout:  orDefault(opts.IdleTimeout, 120*time.Second),
		},
	}

	handlers.SetHTTPErrorResponder(writeError)
	s.registerRoutes()

	return s
}

// Start starts the HTTP server and blocks until it stops.
func (s *Server) Start() error {
	observability.ServerLogger.Info("Starting HTTP server",
		zap.String("host", s.opts.Host),
		zap.Int("port", s.opts.Port),
		zap.String("addr", s.server.Addr))

	return s.server.ListenAndServe()
}

// Shutdown gracefully shuts down the HTTP server
func (s *Server) Shutdown(ctx context.Context) error {
	observability.ServerLogger.Info("Shutting down HTTP server")
	return s.server.Shutdown(ctx)
}

// Handler exposes the underlying router for testing and instrumentation
func (s *Server) Handler() http.Handler {
	return s.router
}

// Port returns the configured port
func (s *Server) Port() int {
	return s.opts.Port
}

// writeError renders err as the JSON error body, stamping the route path so
// callers of the admin API can tell which endpoint refused them.
func writeError(w http.ResponseWriter, r *http.Request, err error) {
	envelope := apperrors.EnsureEnvelope(err)
	if r != nil && envelope.Path == "" {
		envelope = envelope.WithPath(r.URL.Path)
	}
	apperrors.RespondWithEnvelope(w, r, envelope)
}

func orDefault(d, fallback time.Duration) time.Duration {
	if d > 0 {
		return d
	}
	return fallback
}
