// Package server assembles the meeting registry, the room hub and the HTTP
// routes into one runnable Server.
package server

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"

	"github.com/Tyrowin/talknow/internal/meeting"
)

// Server owns one registry and one hub. Several servers can live in the same
// process without sharing state.
type Server struct {
	cfg      Config
	log      *slog.Logger
	registry *meeting.Registry
	hub      *Hub
	handler  http.Handler
}

// Option customizes a Server built by New.
type Option func(*options)

type options struct {
	registry *meeting.Registry
	policy   BroadcastPolicy
}

// WithRegistry makes the server use an existing registry instead of building
// one from the configuration.
func WithRegistry(registry *meeting.Registry) Option {
	return func(o *options) { o.registry = registry }
}

// WithBroadcastPolicy replaces the default AllowAll policy.
func WithBroadcastPolicy(policy BroadcastPolicy) Option {
	return func(o *options) { o.policy = policy }
}

// New builds a Server. The hub is not started until Run (or Hub().Run).
func New(log *slog.Logger, cfg Config, opts ...Option) *Server {
	var o options
	for _, opt := range opts {
		opt(&o)
	}

	registry := o.registry
	if registry == nil {
		registry = meeting.NewRegistry(log, meeting.Options{TTL: cfg.MeetingTTL})
	}
	if cfg.MeetingTTL <= 0 {
		log.Warn("Meetings never expire; memory grows with every created meeting")
	}

	hub := NewHub(log, cfg, o.policy)
	api := NewAPI(log, cfg, registry, hub)

	return &Server{
		cfg:      cfg,
		log:      log,
		registry: registry,
		hub:      hub,
		handler:  SetupRoutes(api),
	}
}

// Handler returns the routed HTTP handler.
func (s *Server) Handler() http.Handler { return s.handler }

// Hub returns the room hub.
func (s *Server) Hub() *Hub { return s.hub }

// Registry returns the meeting registry.
func (s *Server) Registry() *meeting.Registry { return s.registry }

// Run starts the hub and the HTTP listener, and shuts both down when ctx is
// cancelled.
func (s *Server) Run(ctx context.Context) error {
	go s.hub.Run()
	s.log.Info("Hub started and ready to manage WebSocket connections")

	httpServer := CreateServer(s.cfg.Port, s.handler)

	errChan := make(chan error, 1)
	go func() {
		if err := StartServer(s.log, httpServer); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errChan <- fmt.Errorf("http server error: %w", err)
		}
	}()

	var runErr error
	select {
	case <-ctx.Done():
		s.log.Info("Shutting down gracefully...")
	case runErr = <-errChan:
	}

	if err := ShutdownServer(s.log, httpServer, s.cfg.ShutdownTimeout); err != nil {
		runErr = errors.Join(runErr, err)
	}
	if err := s.hub.Shutdown(s.cfg.ShutdownTimeout); err != nil {
		runErr = errors.Join(runErr, fmt.Errorf("hub shutdown: %w", err))
	}
	return runErr
}
