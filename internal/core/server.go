// Package core is the HTTP chassis of the CareWatch API: a chi router with
// the cross-cutting middleware, the JSON envelope helpers and request
// validation. Domain handlers register themselves through V1RouteRegistrars.
package core

import (
	"context"
	"errors"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"carewatch/internal/config"
)

// RouteRegistrar mounts a group of handlers under /v1.
type RouteRegistrar func(r chi.Router)

// Server holds the router and the dependencies shared by all handlers.
type Server struct {
	Config    *config.Config
	Logger    *slog.Logger
	Validator *Validator

	// HealthProbes are run by GET /health.
	HealthProbes []HealthProbe

	// V1RouteRegistrars are applied in order by MountRoutes.
	V1RouteRegistrars []RouteRegistrar

	// closers run on Shutdown in reverse registration order.
	closers []func()

	router *chi.Mux
}

// NewServer validates the required dependencies and prepares an empty router.
// Call MountRoutes after the registrars and probes are set.
func NewServer(cfg *config.Config, logger *slog.Logger) (*Server, error) {
	if cfg == nil {
		return nil, errors.New("config must not be nil")
	}
	if logger == nil {
		return nil, errors.New("logger must not be nil")
	}
	return &Server{
		Config:    cfg,
		Logger:    logger,
		Validator: NewValidator(logger),
		router:    chi.NewRouter(),
	}, nil
}

// Handler returns the root http.Handler.
func (s *Server) Handler() http.Handler { return s.router }

// Router exposes the chi mux for tests.
func (s *Server) Router() *chi.Mux { return s.router }

// OnShutdown registers fn to run during Shutdown.
func (s *Server) OnShutdown(fn func()) {
	s.closers = append(s.closers, fn)
}

// Shutdown releases resources registered with OnShutdown, newest first.
func (s *Server) Shutdown(ctx context.Context) error {
	s.Logger.InfoContext(ctx, "server shutdown initiated")
	for i := len(s.closers) - 1; i >= 0; i-- {
		s.closers[i]()
	}
	s.closers = nil
	s.Logger.InfoContext(ctx, "server shutdown complete")
	return nil
}
