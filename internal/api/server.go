package api

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/http"

	"tank-duel/internal/config"
	"tank-duel/internal/relay"

	"github.com/go-chi/chi/v5"
)

// Server is the relay's HTTP surface: the WebSocket endpoint plus status routes.
type Server struct {
	cfg        config.RelayConfig
	hub        *relay.Hub
	router     *chi.Mux
	httpServer *http.Server
}

// NewServer creates the relay server with Prometheus-backed metrics.
//
// IMPORTANT: Nothing listens until Start() is called. Use Router() with
// httptest in tests.
func NewServer(cfg config.RelayConfig) *Server {
	s := &Server{
		cfg: cfg,
		hub: relay.NewHub(cfg, RelayMetrics{}),
	}

	s.router = NewRouter(RouterConfig{
		Relay:       s.hub,
		Admission:   AdmissionFromRelay(cfg),
		CORSOrigins: cfg.AllowedOrigins,
	})

	// Built up front so Shutdown never races Start
	s.httpServer = &http.Server{
		Addr:    fmt.Sprintf(":%d", cfg.Port),
		Handler: s.router,
	}
	return s
}

// Start listens on the configured port and blocks until the server stops.
// Returns nil after a graceful Shutdown, including one that ran before Start.
func (s *Server) Start() error {
	addr := s.httpServer.Addr
	log.Printf("🌐 Relay listening on %s", addr)
	log.Printf("🔗 WebSocket: ws://localhost%s/ws", addr)

	if err := s.httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return fmt.Errorf("relay listen: %w", err)
	}
	return nil
}

// Router returns the HTTP handler for use with httptest.
func (s *Server) Router() http.Handler {
	return s.router
}

// Hub returns the slot hub
func (s *Server) Hub() *relay.Hub {
	return s.hub
}

// Shutdown stops accepting requests and disconnects both participants.
func (s *Server) Shutdown(ctx context.Context) error {
	// Hijacked sockets are not tracked by http.Server
	err := s.httpServer.Shutdown(ctx)
	s.hub.Close()
	return err
}
