// Package server exposes the render metrics over HTTP for the -metrics-addr
// flag. It serves two read-only endpoints: /metrics in the Prometheus text
// format and /healthz.
package server

import (
	"context"
	"errors"
	"net"
	"net/http"
	"time"

	"github.com/agbru/raysplit/internal/logging"
	"github.com/agbru/raysplit/internal/metrics"
)

const (
	readHeaderTimeout = 5 * time.Second
	shutdownTimeout   = 5 * time.Second
)

// Server serves the metrics of one process.
type Server struct {
	metrics  *metrics.Render
	logger   logging.Logger
	security SecurityConfig
	http     *http.Server
	ln       net.Listener
}

// New binds addr and prepares the HTTP server. It does not serve until
// Start is called.
//
// Parameters:
//   - addr: The listen address, e.g. ":9090" or "127.0.0.1:0".
//   - m: The collectors to expose.
//   - logger: Receives request errors and lifecycle events.
//
// Returns:
//   - *Server: The bound server.
//   - error: The listen error, if any.
func New(addr string, m *metrics.Render, logger logging.Logger) (*Server, error) {
	ln, err := net.Listen("tcp", addr)
	if err != nil {
		return nil, err
	}
	s := &Server{
		metrics:  m,
		logger:   logger,
		security: DefaultSecurityConfig(),
		ln:       ln,
	}
	s.http = &http.Server{
		Handler:           s.routes(),
		ReadHeaderTimeout: readHeaderTimeout,
	}
	return s, nil
}

// Addr returns the bound address.
func (s *Server) Addr() string { return s.ln.Addr().String() }

func (s *Server) routes() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/metrics", SecurityMiddleware(s.security, s.handleMetrics))
	mux.HandleFunc("/healthz", SecurityMiddleware(s.security, s.handleHealth))
	return mux
}

// Start serves until ctx is canceled, then shuts down gracefully. It
// returns immediately; the returned channel yields the serve error, or nil
// after a clean shutdown, and is then closed.
func (s *Server) Start(ctx context.Context) <-chan error {
	done := make(chan error, 1)
	go func() {
		defer close(done)
		err := s.http.Serve(s.ln)
		if errors.Is(err, http.ErrServerClosed) {
			err = nil
		}
		done <- err
	}()
	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), shutdownTimeout)
		defer cancel()
		if err := s.http.Shutdown(shutdownCtx); err != nil {
			s.logger.Error("metrics server shutdown", err)
		}
	}()
	s.logger.Info("serving metrics", logging.String("addr", s.Addr()))
	return done
}

func (s *Server) handleMetrics(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet && r.Method != http.MethodHead {
		s.logger.Debug("rejected metrics request", logging.String("method", r.Method))
		w.Header().Set("Allow", "GET, HEAD")
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}
	if s.metrics == nil {
		http.Error(w, "metrics disabled", http.StatusServiceUnavailable)
		return
	}
	s.metrics.WritePrometheus(w, r)
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	_, _ = w.Write([]byte("ok\n"))
}
