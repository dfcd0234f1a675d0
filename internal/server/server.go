// This file implements the process lifecycle: backend and endpoint wiring,
// HTTP routing for health, API and branch feeds, and ordered shutdown.

package server

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"sync/atomic"
	"time"

	"github.com/sirupsen/logrus"

	"playerbridge/internal/config"
	"playerbridge/internal/core/bus"
	"playerbridge/internal/core/classify"
	"playerbridge/internal/core/player"
	"playerbridge/internal/logger"
	"playerbridge/internal/svc/api"
	"playerbridge/internal/svc/health"
	"playerbridge/internal/svc/wsbranch"
)

// Server wraps the HTTP servers and the player endpoint they expose.
type Server struct {
	cfg          *config.Config
	log          *logrus.Entry
	registry     *bus.Registry
	endpoint     *player.Endpoint
	handler      http.Handler
	healthServer *http.Server
	httpServer   *http.Server
	closing      atomic.Bool
}

// New builds the backend, the endpoint and both HTTP servers.
// Nothing plays and nothing listens until Start is called.
func New(cfg *config.Config, l *logrus.Logger) (*Server, error) {
	log := logger.Component(l, "server")
	registry := bus.NewRegistry()

	g, p, err := newBackend(cfg, registry, logger.Component(l, "backend"))
	if err != nil {
		return nil, fmt.Errorf("create %s backend: %w", cfg.Player.Backend, err)
	}
	classifier, err := classify.Parse(cfg.Player.AudioCaps, cfg.Player.VideoCaps)
	if err != nil {
		p.Close()
		return nil, fmt.Errorf("parse reference caps: %w", err)
	}
	endpoint, err := player.New(player.Config{
		Name:       cfg.Player.Name,
		URI:        cfg.Player.URI,
		Classifier: classifier,
		Graph:      g,
		Pipeline:   p,
		Log:        logger.Component(l, "player"),
	})
	if err != nil {
		p.Close()
		return nil, fmt.Errorf("create endpoint: %w", err)
	}

	s := &Server{
		cfg:      cfg,
		log:      log,
		registry: registry,
		endpoint: endpoint,
	}

	healthSvc := health.New(s.ready)
	healthMux := http.NewServeMux()
	healthSvc.RegisterRoutes(healthMux)

	mux := http.NewServeMux()
	healthSvc.RegisterRoutes(mux)
	api.NewService(registry, endpoint, cfg.Player.Backend, logger.Component(l, "api")).RegisterRoutes(mux)
	wsbranch.NewService(registry, uint32(cfg.Branches.SubscriberBuffer), logger.Component(l, "wsbranch")).RegisterRoutes(mux)
	s.handler = mux

	s.healthServer = &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.Server.HealthPort),
		Handler:           healthMux,
		ReadHeaderTimeout: 5 * time.Second,
	}
	s.httpServer = &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.Server.HTTPPort),
		Handler:           mux,
		ReadHeaderTimeout: 5 * time.Second,
	}
	return s, nil
}

// Handler returns the API and feed handler served on the HTTP port.
func (s *Server) Handler() http.Handler {
	return s.handler
}

// Endpoint returns the player endpoint.
func (s *Server) Endpoint() *player.Endpoint {
	return s.endpoint
}

// Registry returns the branch registry.
func (s *Server) Registry() *bus.Registry {
	return s.registry
}

func (s *Server) ready() error {
	if s.closing.Load() {
		return errors.New("shutting down")
	}
	return nil
}

// Autostart starts the endpoint when configuration asks for it.
// A failure is logged and recorded on the endpoint; the server keeps running.
func (s *Server) Autostart() {
	if !s.cfg.Player.Autostart {
		return
	}
	if err := s.endpoint.Start(); err != nil {
		s.log.WithError(err).Error("autostart failed")
	}
}

// Start serves health and HTTP requests, autostarting the endpoint first.
// This method blocks until either server stops; it returns http.ErrServerClosed after Shutdown.
func (s *Server) Start() error {
	s.Autostart()

	errCh := make(chan error, 2)
	for _, srv := range []*http.Server{s.healthServer, s.httpServer} {
		go func(srv *http.Server) {
			s.log.WithField("addr", srv.Addr).Info("listening")
			errCh <- srv.ListenAndServe()
		}(srv)
	}
	return <-errCh
}

// Shutdown stops accepting requests, then closes the endpoint.
// Returns the first error encountered.
func (s *Server) Shutdown(ctx context.Context) error {
	s.closing.Store(true)

	var first error
	for _, srv := range []*http.Server{s.httpServer, s.healthServer} {
		if err := srv.Shutdown(ctx); err != nil && first == nil {
			first = err
		}
	}
	if err := s.endpoint.Close(); err != nil && first == nil {
		first = err
	}
	return first
}

// ShutdownWithTimeout stops the server with a fixed 5-second timeout.
// This is a convenience wrapper around Shutdown.
func (s *Server) ShutdownWithTimeout() error {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	return s.Shutdown(ctx)
}
