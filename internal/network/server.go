package network

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"sync"
	"time"

	"github.com/drip/config"
	"github.com/drip/internal/logger"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"
)

const shutdownTimeout = 10 * time.Second

func srvLogger() *zap.SugaredLogger {
	return logger.Named("http")
}

// Server exposes JSON-RPC on "/", events on "/ws" and prometheus
// metrics on "/metrics".
type Server struct {
	cfg      config.HTTPConfig
	router   chi.Router
	ws       *WsManager
	server   *http.Server
	listener net.Listener
	mu       sync.Mutex
}

func NewServer(cfg config.HTTPConfig, exec Executor, ws *WsManager) *Server {
	s := &Server{
		cfg:    cfg,
		router: chi.NewRouter(),
		ws:     ws,
	}
	s.router.Use(middleware.RequestID)
	s.router.Use(middleware.Recoverer)

	rpc := NewHandler(exec, cfg.CORS)
	s.router.Post("/", rpc.ServeHTTP)
	s.router.Options("/", rpc.ServeHTTP)
	s.router.Get("/ws", ws.ServeHTTP)
	s.router.Handle("/metrics", promhttp.Handler())
	s.router.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		fmt.Fprintf(w, `{"status":"ok","clients":%d}`, ws.Len())
	})
	return s
}

// Router returns the chi router for testing.
func (s *Server) Router() chi.Router {
	return s.router
}

// Listen binds the configured address. Port 0 picks a free port.
func (s *Server) Listen() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	ln, err := net.Listen("tcp", s.cfg.Addr())
	if err != nil {
		return fmt.Errorf("failed to listen on %s: %w", s.cfg.Addr(), err)
	}
	s.listener = ln
	s.server = &http.Server{
		Handler:      s.router,
		ReadTimeout:  time.Duration(s.cfg.ReadTimeout) * time.Second,
		WriteTimeout: time.Duration(s.cfg.WriteTimeout) * time.Second,
	}
	return nil
}

// Addr is the bound address, valid after Listen.
func (s *Server) Addr() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.listener == nil {
		return ""
	}
	return s.listener.Addr().String()
}

// Start serves until ctx is cancelled, then shuts down gracefully.
func (s *Server) Start(ctx context.Context) error {
	if s.Addr() == "" {
		if err := s.Listen(); err != nil {
			return err
		}
	}

	go s.ws.Start(ctx)

	errc := make(chan error, 1)
	go func() {
		srvLogger().Infow("Starting http server", "addr", s.Addr())
		if err := s.server.Serve(s.listener); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errc <- err
		}
		close(errc)
	}()

	select {
	case err := <-errc:
		if err != nil {
			srvLogger().Errorw("HTTP server error", "err", err)
			return err
		}
		return nil
	case <-ctx.Done():
		return s.Stop()
	}
}

// Stop gracefully stops the server.
func (s *Server) Stop() error {
	s.mu.Lock()
	server := s.server
	s.mu.Unlock()
	if server == nil {
		return nil
	}

	ctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()

	srvLogger().Infow("Shutting down http server")
	if err := server.Shutdown(ctx); err != nil {
		srvLogger().Errorw("HTTP server shutdown error", "err", err)
		return err
	}
	srvLogger().Infow("HTTP server stopped")
	return nil
}
