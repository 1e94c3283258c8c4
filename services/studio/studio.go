// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

// Package studio assembles the StipulaForge backend: the analysis gateway,
// the interpreter websocket, the project store and the HTTP surface that
// serves them.
package studio

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"golang.org/x/sync/errgroup"

	"github.com/AleutianAI/StipulaForge/pkg/config"
	"github.com/AleutianAI/StipulaForge/services/analysis"
	"github.com/AleutianAI/StipulaForge/services/interpreter"
	"github.com/AleutianAI/StipulaForge/services/studio/observability"
	"github.com/AleutianAI/StipulaForge/services/studio/projects"
	"github.com/AleutianAI/StipulaForge/services/studio/routes"
)

// Service owns every long-lived component of the backend.
type Service struct {
	cfg      config.Config
	logger   *slog.Logger
	registry *interpreter.Registry
	store    projects.Store
	gateway  *analysis.Gateway
	promReg  *prometheus.Registry
	router   *gin.Engine
}

// New builds a Service from a validated configuration.
//
// # Description
//
// Opens the project store, creates a private Prometheus registry with the Go
// and process collectors, and registers all routes. Nothing listens until
// Run is called.
//
// # Outputs
//
//   - *Service: Ready to Run. Call Close when done.
//   - error: The project store could not be opened.
func New(cfg config.Config, logger *slog.Logger) (*Service, error) {
	if logger == nil {
		logger = slog.Default()
	}
	if cfg.Server.GinMode != "" {
		gin.SetMode(cfg.Server.GinMode)
	}

	store, err := projects.Open(cfg.Store.Driver, cfg.Store.Path, logger)
	if err != nil {
		return nil, fmt.Errorf("open project store: %w", err)
	}

	promReg := prometheus.NewRegistry()
	promReg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	metrics := observability.NewMetrics(promReg)

	s := &Service{
		cfg:      cfg,
		logger:   logger,
		registry: interpreter.NewRegistry(),
		store:    store,
		gateway:  analysis.NewGateway(cfg.Analysis.Config, logger),
		promReg:  promReg,
		router:   gin.New(),
	}
	metrics.RegisterRunningInterpreters(s.registry.Running)

	s.router.Use(gin.Recovery())
	routes.SetupRoutes(s.router, routes.Deps{
		ServiceName:    cfg.Telemetry.ServiceName,
		Analyzer:       s.gateway,
		Interpreter:    cfg.Interpreter,
		Registry:       s.registry,
		Store:          store,
		Metrics:        metrics,
		Gatherer:       promReg,
		AllowedOrigins: cfg.Server.AllowedOrigins,
		AnalyzeRate:    cfg.Analysis.RateLimit,
		AnalyzeBurst:   cfg.Analysis.Burst,
		Logger:         logger,
	})
	return s, nil
}

// Router exposes the HTTP handler, mainly for tests.
func (s *Service) Router() *gin.Engine { return s.router }

// Registerer is where telemetry.Init should bridge otel metrics so they
// appear on /metrics.
func (s *Service) Registerer() prometheus.Registerer { return s.promReg }

// Registry returns the live interpreter sessions.
func (s *Service) Registry() *interpreter.Registry { return s.registry }

// Run listens on the configured port until ctx is cancelled.
func (s *Service) Run(ctx context.Context) error {
	ln, err := net.Listen("tcp", fmt.Sprintf(":%d", s.cfg.Server.Port))
	if err != nil {
		return fmt.Errorf("listen: %w", err)
	}
	return s.Serve(ctx, ln)
}

// Serve handles HTTP on ln until ctx is cancelled, then shuts down.
//
// # Description
//
// On cancellation the server stops accepting requests, waits up to
// ShutdownTimeout for in-flight ones, and kills every running interpreter.
// A listener error ends Serve with that error.
func (s *Service) Serve(ctx context.Context, ln net.Listener) error {
	srv := &http.Server{
		Handler:           s.router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		s.logger.Info("studio listening", slog.String("addr", ln.Addr().String()))
		if err := srv.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("serve: %w", err)
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		timeout := s.cfg.Server.ShutdownTimeout
		if timeout <= 0 {
			timeout = 10 * time.Second
		}
		shutdownCtx, cancel := context.WithTimeout(context.Background(), timeout)
		defer cancel()

		s.logger.Info("studio shutting down", slog.Int("sessions", s.registry.Len()))
		return errors.Join(srv.Shutdown(shutdownCtx), s.registry.CloseAll(shutdownCtx))
	})
	return g.Wait()
}

// Close releases the project store.
func (s *Service) Close() error {
	return s.store.Close()
}
