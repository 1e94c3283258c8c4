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
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/AleutianAI/StipulaForge/pkg/logging"
	"github.com/AleutianAI/StipulaForge/services/analysis"
	"github.com/AleutianAI/StipulaForge/services/interpreter"
	"github.com/AleutianAI/StipulaForge/services/studio/observability"
	"github.com/AleutianAI/StipulaForge/services/studio/projects"
)

// ============================================================================
// Test Setup
// ============================================================================

func init() {
	gin.SetMode(gin.TestMode)
}

type stubAnalyzer struct{}

func (stubAnalyzer) Analyze(context.Context, string, analysis.Mode) (string, error) {
	return "no issues", nil
}

func (stubAnalyzer) Tools() []analysis.Tool {
	return []analysis.Tool{analysis.ToolUnreachability}
}

func newRouter(t *testing.T, mutate func(*Deps)) *gin.Engine {
	t.Helper()
	reg := prometheus.NewRegistry()
	deps := Deps{
		Analyzer:       stubAnalyzer{},
		Registry:       interpreter.NewRegistry(),
		Store:          projects.NewMemoryStore(),
		Metrics:        observability.NewMetrics(reg),
		Gatherer:       reg,
		AllowedOrigins: []string{"*"},
		Logger:         logging.Nop().Slog(),
	}
	if mutate != nil {
		mutate(&deps)
	}
	router := gin.New()
	SetupRoutes(router, deps)
	return router
}

func hasRoute(router *gin.Engine, method, path string) bool {
	for _, r := range router.Routes() {
		if r.Method == method && r.Path == path {
			return true
		}
	}
	return false
}

// ============================================================================
// SetupRoutes Tests
// ============================================================================

func TestSetupRoutes_RegistersCoreRoutes(t *testing.T) {
	router := newRouter(t, nil)

	expected := []struct {
		method string
		path   string
	}{
		{"GET", "/health"},
		{"GET", "/metrics"},
		{"POST", "/v1/analyze"},
		{"POST", "/v1/render"},
		{"GET", "/v1/interpreter/ws"},
		{"GET", "/v1/projects"},
		{"PUT", "/v1/projects/:name"},
		{"GET", "/v1/projects/:name"},
		{"GET", "/v1/projects/:name/render"},
		{"DELETE", "/v1/projects/:name"},
	}
	for _, e := range expected {
		assert.True(t, hasRoute(router, e.method, e.path), "missing %s %s", e.method, e.path)
	}
}

func TestSetupRoutes_ProjectRoutesNeedStore(t *testing.T) {
	router := newRouter(t, func(d *Deps) { d.Store = nil })

	assert.False(t, hasRoute(router, "GET", "/v1/projects"))
	assert.False(t, hasRoute(router, "PUT", "/v1/projects/:name"))
	assert.True(t, hasRoute(router, "POST", "/v1/render"))
}

func TestSetupRoutes_HealthEndpoint(t *testing.T) {
	router := newRouter(t, nil)

	w := httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/health", nil))

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `"status":"ok"`)
	assert.NotEmpty(t, w.Header().Get("X-Request-ID"))
}

func TestSetupRoutes_MetricsExposeRequests(t *testing.T) {
	router := newRouter(t, nil)

	w := httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/health", nil))
	require.Equal(t, http.StatusOK, w.Code)

	w = httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "stipula_http_requests_total")
}

func TestSetupRoutes_AnalyzeRateLimited(t *testing.T) {
	router := newRouter(t, func(d *Deps) {
		d.AnalyzeRate = 0.001
		d.AnalyzeBurst = 1
	})

	send := func() int {
		w := httptest.NewRecorder()
		req := httptest.NewRequest(http.MethodPost, "/v1/analyze", strings.NewReader(`{"code":"x"}`))
		req.Header.Set("Content-Type", "application/json")
		router.ServeHTTP(w, req)
		return w.Code
	}

	assert.Equal(t, http.StatusOK, send())
	assert.Equal(t, http.StatusTooManyRequests, send())
}

func TestSetupRoutes_CORSPreflight(t *testing.T) {
	router := newRouter(t, func(d *Deps) { d.AllowedOrigins = []string{"http://studio.local"} })

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodOptions, "/v1/render", nil)
	req.Header.Set("Origin", "http://studio.local")
	req.Header.Set("Access-Control-Request-Method", "POST")
	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusNoContent, w.Code)
	assert.Equal(t, "http://studio.local", w.Header().Get("Access-Control-Allow-Origin"))
}

func TestSetupRoutes_NoRoute(t *testing.T) {
	router := newRouter(t, nil)

	w := httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/v2/nothing", nil))

	assert.Equal(t, http.StatusNotFound, w.Code)
}
