package web

import (
	"context"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"sync"
	"time"

	"focusmon/internal/config"
	"focusmon/internal/database"
)

// Server serves the JSON API on cfg.Web.Host:cfg.Web.Port
type Server struct {
	handler http.Handler
	server  *http.Server
	logger  *slog.Logger

	mu       sync.Mutex
	listener net.Listener
}

func NewServer(cfg *config.Config, repo *database.Repository, source FocusSource, logger *slog.Logger) *Server {
	h := NewHandler(cfg, repo, source, logger)
	mux := http.NewServeMux()
	h.SetupRoutes(mux)

	s := &Server{logger: h.logger}
	s.handler = s.withCORS(s.withLogging(mux))
	s.server = &http.Server{
		Addr:         net.JoinHostPort(cfg.Web.Host, fmt.Sprint(cfg.Web.Port)),
		Handler:      s.handler,
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 10 * time.Second,
		IdleTimeout:  60 * time.Second,
	}
	return s
}

// Start listens and serves until Shutdown. It returns http.ErrServerClosed
// after a clean shutdown
func (s *Server) Start() error {
	ln, err := net.Listen("tcp", s.server.Addr)
	if err != nil {
		return fmt.Errorf("failed to listen on %s: %w", s.server.Addr, err)
	}

	s.mu.Lock()
	s.listener = ln
	s.mu.Unlock()

	s.logger.Info("web API listening", "address", "http://"+ln.Addr().String())
	return s.server.Serve(ln)
}

func (s *Server) Shutdown(ctx context.Context) error {
	s.logger.Info("shutting down web server")
	return s.server.Shutdown(ctx)
}

// GetAddress is the bound address once Start is listening, else the
// configured one
func (s *Server) GetAddress() string {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.listener != nil {
		return s.listener.Addr().String()
	}
	return s.server.Addr
}

func (s *Server) withLogging(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
		next.ServeHTTP(rec, r)
		s.logger.Debug("request",
			"method", r.Method,
			"path", r.URL.Path,
			"status", rec.status,
			"duration", time.Since(start))
	})
}

// withCORS answers preflight requests; the JSON responses carry the
// matching headers themselves
func (s *Server) withCORS(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method == http.MethodOptions {
			setCORSHeaders(w)
			w.WriteHeader(http.StatusNoContent)
			return
		}
		next.ServeHTTP(w, r)
	})
}

type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (r *statusRecorder) WriteHeader(status int) {
	r.status = status
	r.ResponseWriter.WriteHeader(status)
}
