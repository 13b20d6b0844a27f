// Package main is the entry point for the CareWatch API server.
//
// It loads configuration, builds the engine (database pool, notification
// transports, evaluator and analyzer), mounts the alert, condition and
// on-demand check handlers on the core chassis and serves HTTP until SIGINT
// or SIGTERM.
package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"carewatch/internal/api/handlers"
	"carewatch/internal/app"
	"carewatch/internal/config"
	"carewatch/internal/core"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "fatal: %v\n", err)
		os.Exit(1)
	}
}

// services are the domain dependencies of the HTTP surface.
type services struct {
	Alerts     handlers.AlertService
	Conditions handlers.ConditionService
	Checker    handlers.AlertChecker
	Analyzer   handlers.AnomalyAnalyzer
	Database   core.Pinger
}

func run() error {
	cfg, err := config.LoadConfig()
	if err != nil {
		return fmt.Errorf("loading configuration: %w", err)
	}

	logger := app.NewLogger(cfg.LogLevel)
	logger.Info("carewatch API starting",
		"environment", cfg.Environment,
		"version", cfg.Build.Version,
		"commit", cfg.Build.Commit,
		"port", cfg.Server.Port,
	)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	engine, err := app.New(ctx, cfg, logger, "")
	if err != nil {
		return err
	}

	srv, err := buildServer(cfg, logger, services{
		Alerts:     engine.Alerts,
		Conditions: engine.Alerts,
		Checker:    engine.Evaluator,
		Analyzer:   engine.Analyzer,
		Database:   engine.Pool,
	})
	if err != nil {
		engine.Close()
		return fmt.Errorf("creating server: %w", err)
	}
	srv.OnShutdown(engine.Close)

	return serve(ctx, cfg.Server, srv, logger)
}

// buildServer wires the handlers onto a new core.Server and mounts the
// routes.
func buildServer(cfg *config.Config, logger *slog.Logger, svc services) (*core.Server, error) {
	srv, err := core.NewServer(cfg, logger)
	if err != nil {
		return nil, err
	}

	if svc.Database != nil {
		srv.HealthProbes = append(srv.HealthProbes, core.NewPingProbe("database", svc.Database))
	}

	alertHandler := handlers.NewAlertHandler(svc.Alerts, srv.Validator, logger)
	conditionHandler := handlers.NewConditionHandler(svc.Conditions, srv.Validator, logger)
	checkHandler := handlers.NewCheckHandler(svc.Checker, svc.Analyzer, logger)

	srv.V1RouteRegistrars = append(srv.V1RouteRegistrars,
		alertHandler.RegisterRoutes,
		conditionHandler.RegisterRoutes,
		checkHandler.RegisterRoutes,
	)

	srv.MountRoutes()
	return srv, nil
}

// serve runs the HTTP server until ctx is cancelled, then drains in-flight
// requests within the configured shutdown timeout.
func serve(ctx context.Context, sc config.ServerConfig, srv *core.Server, logger *slog.Logger) error {
	httpServer := &http.Server{
		Addr:              ":" + sc.Port,
		Handler:           srv.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
		// Leave headroom over the per-request context timeout so the
		// handler can still write its error response.
		WriteTimeout: sc.RequestTimeout + 5*time.Second,
		IdleTimeout:  120 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Info("HTTP server listening", "addr", httpServer.Addr)
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		if err != nil {
			_ = srv.Shutdown(context.Background())
			return fmt.Errorf("HTTP server error: %w", err)
		}
		return nil
	case <-ctx.Done():
	}

	logger.Info("shutdown signal received")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), sc.ShutdownTimeout)
	defer cancel()

	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		logger.Error("HTTP server shutdown error", "error", err)
	}
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("server cleanup error", "error", err)
	}
	logger.Info("server stopped")
	return nil
}
