// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package routes

import (
	"log/slog"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.opentelemetry.io/contrib/instrumentation/github.com/gin-gonic/gin/otelgin"

	"github.com/AleutianAI/StipulaForge/services/interpreter"
	"github.com/AleutianAI/StipulaForge/services/studio/handlers"
	"github.com/AleutianAI/StipulaForge/services/studio/middleware"
	"github.com/AleutianAI/StipulaForge/services/studio/observability"
	"github.com/AleutianAI/StipulaForge/services/studio/projects"
)

// Deps carries everything the HTTP surface needs.
type Deps struct {
	ServiceName string

	Analyzer    handlers.Analyzer
	Interpreter interpreter.Config
	Registry    *interpreter.Registry

	// Store enables the /v1/projects routes when non-nil.
	Store projects.Store

	Metrics  *observability.Metrics
	Gatherer prometheus.Gatherer

	AllowedOrigins []string

	// AnalyzeRate is requests per second per process on /v1/analyze.
	// Zero disables the limit.
	AnalyzeRate  float64
	AnalyzeBurst int

	Logger *slog.Logger
}

// SetupRoutes registers the middleware chain and all endpoints on router.
func SetupRoutes(router *gin.Engine, deps Deps) {
	if deps.ServiceName == "" {
		deps.ServiceName = "stipula-studio"
	}
	if deps.Logger == nil {
		deps.Logger = slog.Default()
	}

	router.Use(otelgin.Middleware(deps.ServiceName))
	router.Use(middleware.RequestLogger(deps.Logger))
	router.Use(middleware.CORS(deps.AllowedOrigins))
	if deps.Metrics != nil {
		router.Use(deps.Metrics.Middleware())
	}

	router.GET("/health", handlers.HealthCheck(deps.Registry, deps.Analyzer))
	if deps.Gatherer != nil {
		router.GET("/metrics", gin.WrapH(promhttp.HandlerFor(deps.Gatherer, promhttp.HandlerOpts{})))
	}

	v1 := router.Group("/v1")
	{
		analyze := []gin.HandlerFunc{}
		if deps.AnalyzeRate > 0 {
			analyze = append(analyze, middleware.RateLimit(deps.AnalyzeRate, deps.AnalyzeBurst, func(c *gin.Context) {
				if deps.Metrics != nil {
					deps.Metrics.RateLimitedTotal.WithLabelValues(c.FullPath()).Inc()
				}
			}))
		}
		analyze = append(analyze, handlers.HandleAnalyze(deps.Analyzer, deps.Metrics, deps.Logger))
		v1.POST("/analyze", analyze...)

		v1.POST("/render", handlers.HandleRender())
		v1.GET("/interpreter/ws", handlers.HandleInterpreterWebSocket(handlers.InterpreterDeps{
			Session:        deps.Interpreter,
			Registry:       deps.Registry,
			AllowedOrigins: deps.AllowedOrigins,
			Metrics:        deps.Metrics,
			Logger:         deps.Logger,
		}))

		if deps.Store != nil {
			p := v1.Group("/projects")
			{
				p.GET("", handlers.ListProjects(deps.Store))
				p.PUT("/:name", handlers.PutProject(deps.Store, deps.Logger))
				p.GET("/:name", handlers.GetProject(deps.Store))
				p.GET("/:name/render", handlers.RenderProject(deps.Store))
				p.DELETE("/:name", handlers.DeleteProject(deps.Store))
			}
		}
	}

	router.NoRoute(func(c *gin.Context) {
		c.JSON(http.StatusNotFound, gin.H{"error": "not found"})
	})
}
