// Package server implements the antispoof HTTP API.
package server

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"slices"
	"strings"
	"sync"
	"time"

	"github.com/haivivi/antispoof/pkg/antispoof"
	"github.com/haivivi/antispoof/pkg/history"
	"github.com/haivivi/antispoof/pkg/metrics"
	"github.com/haivivi/antispoof/pkg/storage"
)

// Config holds the HTTP and staging settings.
type Config struct {
	Address         string
	ReadTimeout     time.Duration
	WriteTimeout    time.Duration
	ShutdownTimeout time.Duration

	MaxUploadBytes    int64
	AllowedExtensions []string

	MaxFileAge      time.Duration
	CleanupInterval time.Duration
}

// ModelStatus reports whether a classifier is available.
// *antispoof.SwapModel satisfies it.
type ModelStatus interface {
	Loaded() bool
}

// Deps are the components the server drives. Archive, History and
// Metrics are optional.
type Deps struct {
	Engine  *antispoof.Engine
	Loader  antispoof.Loader
	Model   ModelStatus
	Staging *storage.Local
	Archive storage.FileStore
	History history.Store
	Metrics *metrics.Metrics
	Logger  *slog.Logger
}

// Server is the HTTP API.
type Server struct {
	cfg  Config
	deps Deps
	log  *slog.Logger
	mux  *http.ServeMux

	// now is replaced in tests.
	now func() time.Time

	mu       sync.Mutex
	listener net.Listener
}

// New validates deps and builds the route table.
func New(cfg Config, deps Deps) (*Server, error) {
	if deps.Engine == nil || deps.Loader == nil || deps.Staging == nil {
		return nil, errors.New("server: engine, loader and staging are required")
	}
	if deps.Logger == nil {
		deps.Logger = slog.Default()
	}
	if cfg.MaxUploadBytes <= 0 {
		cfg.MaxUploadBytes = 50 << 20
	}
	if len(cfg.AllowedExtensions) == 0 {
		cfg.AllowedExtensions = []string{".wav", ".mp3", ".flac", ".ogg", ".m4a"}
	}
	if cfg.ShutdownTimeout <= 0 {
		cfg.ShutdownTimeout = 10 * time.Second
	}
	s := &Server{
		cfg:  cfg,
		deps: deps,
		log:  deps.Logger.With("component", "http"),
		mux:  http.NewServeMux(),
		now:  time.Now,
	}
	s.setupRoutes()
	return s, nil
}

// Handler returns the root handler.
func (s *Server) Handler() http.Handler {
	return s.mux
}

func (s *Server) setupRoutes() {
	s.mux.HandleFunc("GET /{$}", s.withMetrics("/", s.handleRoot))
	s.mux.HandleFunc("GET /health", s.withMetrics("/health", s.handleHealth))
	s.mux.HandleFunc("POST /predict", s.withMetrics("/predict", s.handlePredict))
	s.mux.HandleFunc("GET /predictions", s.withMetrics("/predictions", s.handleListPredictions))
	s.mux.HandleFunc("GET /predictions/{id}", s.withMetrics("/predictions/{id}", s.handleGetPrediction))
	s.mux.HandleFunc("POST /cleanup", s.withMetrics("/cleanup", s.handleCleanup))
	if s.deps.Metrics != nil {
		s.mux.Handle("GET /metrics", s.deps.Metrics.Handler())
	}
}

// withMetrics records latency and status per endpoint.
func (s *Server) withMetrics(endpoint string, h http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		ww := &responseWriter{ResponseWriter: w, status: http.StatusOK}
		h(ww, r)
		if s.deps.Metrics != nil {
			s.deps.Metrics.ObserveHTTP(r.Method, endpoint, ww.status, time.Since(start).Seconds())
		}
		if ww.status >= 500 {
			s.log.Error("request failed", "method", r.Method, "path", r.URL.Path, "status", ww.status)
		}
	}
}

type responseWriter struct {
	http.ResponseWriter
	status int
}

func (rw *responseWriter) WriteHeader(code int) {
	rw.status = code
	rw.ResponseWriter.WriteHeader(code)
}

func (s *Server) allowed(ext string) bool {
	return slices.Contains(s.cfg.AllowedExtensions, strings.ToLower(ext))
}

// Sweep removes staging files older than MaxFileAge.
func (s *Server) Sweep(ctx context.Context) (int, error) {
	maxAge := s.cfg.MaxFileAge
	if maxAge <= 0 {
		maxAge = time.Hour
	}
	removed, err := s.deps.Staging.Sweep(ctx, maxAge)
	if n := len(removed); n > 0 {
		s.log.Info("swept staging files", "count", n, "max_age", maxAge)
		if s.deps.Metrics != nil {
			s.deps.Metrics.FilesSwept.Add(float64(n))
		}
	}
	return len(removed), err
}

func (s *Server) sweepLoop(ctx context.Context) {
	interval := s.cfg.CleanupInterval
	if interval <= 0 {
		interval = 30 * time.Minute
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if _, err := s.Sweep(ctx); err != nil && ctx.Err() == nil {
				s.log.Warn("staging sweep failed", "error", err)
			}
		}
	}
}

// Addr returns the bound address once Run is listening.
func (s *Server) Addr() net.Addr {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.listener == nil {
		return nil
	}
	return s.listener.Addr()
}

// Run serves until ctx is done, then shuts down gracefully. A sweep runs
// at startup and every CleanupInterval.
func (s *Server) Run(ctx context.Context) error {
	ln, err := net.Listen("tcp", s.cfg.Address)
	if err != nil {
		return fmt.Errorf("server: listen %s: %w", s.cfg.Address, err)
	}
	s.mu.Lock()
	s.listener = ln
	s.mu.Unlock()

	srv := &http.Server{
		Handler:      s.mux,
		ReadTimeout:  s.cfg.ReadTimeout,
		WriteTimeout: s.cfg.WriteTimeout,
		IdleTimeout:  60 * time.Second,
		ErrorLog:     slog.NewLogLogger(s.log.Handler(), slog.LevelWarn),
	}

	if _, err := s.Sweep(ctx); err != nil {
		s.log.Warn("startup sweep failed", "error", err)
	}
	sweepCtx, stopSweep := context.WithCancel(ctx)
	defer stopSweep()
	go s.sweepLoop(sweepCtx)

	errCh := make(chan error, 1)
	go func() {
		s.log.Info("starting HTTP API server", "address", ln.Addr().String())
		if err := srv.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	s.log.Info("shutting down HTTP API server")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), s.cfg.ShutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("server: shutdown: %w", err)
	}
	return <-errCh
}
