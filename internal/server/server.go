package server

import (
	"context"
	"errors"
	"log/slog"
	"net"
	"net/http"
	"os"
	"time"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	prom "github.com/prometheus/client_golang/prometheus"

	"git.home.luguber.info/inful/docchrome/internal/config"
	derrors "git.home.luguber.info/inful/docchrome/internal/foundation/errors"
	"git.home.luguber.info/inful/docchrome/internal/logfields"
	"git.home.luguber.info/inful/docchrome/internal/metrics"
	"git.home.luguber.info/inful/docchrome/internal/rustdoc"
	"git.home.luguber.info/inful/docchrome/internal/server/middleware"
)

const shutdownTimeout = 10 * time.Second

// Server serves rewritten documentation pages.
type Server struct {
	cfg      *config.Config
	store    rustdoc.TemplateStore
	root     *os.Root
	logger   *slog.Logger
	adapter  *derrors.HTTPErrorAdapter
	recorder metrics.Recorder
	registry *prom.Registry
	router   *chi.Mux
	http     *http.Server
}

// New creates a server for cfg.Server.DocsRoot. When metrics are enabled a
// private Prometheus registry backs /metrics; Recorder exposes it so other
// components (the template store) can share it.
func New(cfg *config.Config, store rustdoc.TemplateStore, logger *slog.Logger) (*Server, error) {
	if logger == nil {
		logger = slog.Default()
	}
	root, err := os.OpenRoot(cfg.Server.DocsRoot)
	if err != nil {
		return nil, derrors.WrapError(err, derrors.CategoryConfig, "open docs root").
			WithContext("docs_root", cfg.Server.DocsRoot).
			Build()
	}

	s := &Server{
		cfg:      cfg,
		store:    store,
		root:     root,
		logger:   logger,
		adapter:  derrors.NewHTTPErrorAdapter(logger),
		recorder: metrics.NoopRecorder{},
		router:   chi.NewRouter(),
	}
	if cfg.Metrics.Enabled {
		s.registry = prom.NewRegistry()
		s.recorder = metrics.NewPrometheusRecorder(s.registry)
	}
	s.setupRoutes()

	s.http = &http.Server{
		Addr:              cfg.Server.Addr,
		Handler:           s.router,
		ReadTimeout:       cfg.Server.ReadTimeout,
		ReadHeaderTimeout: cfg.Server.ReadTimeout,
		WriteTimeout:      cfg.Server.WriteTimeout,
		IdleTimeout:       60 * time.Second,
	}
	return s, nil
}

func (s *Server) setupRoutes() {
	s.router.Use(chimw.RealIP)
	s.router.Use(middleware.RequestID)
	s.router.Use(middleware.Chain(s.logger, s.adapter))

	s.router.Get("/health", s.handleHealth)
	if s.registry != nil {
		s.router.Method(http.MethodGet, "/metrics", metrics.HTTPHandler(s.registry))
	}
	s.router.Get("/*", s.handlePage)
	s.router.Head("/*", s.handlePage)
}

// Handler returns the root handler, for tests and embedding.
func (s *Server) Handler() http.Handler { return s.router }

// Recorder returns the metrics recorder used by the server.
func (s *Server) Recorder() metrics.Recorder { return s.recorder }

// ListenAndServe serves until ctx is canceled, then shuts down gracefully.
func (s *Server) ListenAndServe(ctx context.Context) error {
	ln, err := net.Listen("tcp", s.http.Addr)
	if err != nil {
		_ = s.root.Close()
		return derrors.WrapError(err, derrors.CategoryRuntime, "listen").
			WithContext("addr", s.http.Addr).
			Build()
	}
	return s.Serve(ctx, ln)
}

// Serve serves on ln until ctx is canceled.
func (s *Server) Serve(ctx context.Context, ln net.Listener) error {
	defer s.root.Close()

	errCh := make(chan error, 1)
	go func() {
		s.logger.Info("Serving documentation",
			logfields.Addr(ln.Addr().String()),
			logfields.Dir(s.cfg.Server.DocsRoot))
		errCh <- s.http.Serve(ln)
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return derrors.WrapError(err, derrors.CategoryRuntime, "serve").Build()
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	s.logger.Info("Shutting down server")
	if err := s.http.Shutdown(shutdownCtx); err != nil {
		return derrors.WrapError(err, derrors.CategoryRuntime, "shutdown").Build()
	}
	return nil
}

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte(`{"status":"healthy"}`))
}
