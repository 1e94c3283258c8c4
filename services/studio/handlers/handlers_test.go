// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package handlers

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/AleutianAI/StipulaForge/pkg/logging"
	"github.com/AleutianAI/StipulaForge/services/analysis"
	"github.com/AleutianAI/StipulaForge/services/interpreter"
	"github.com/AleutianAI/StipulaForge/services/studio/datatypes"
	"github.com/AleutianAI/StipulaForge/services/studio/observability"
	"github.com/AleutianAI/StipulaForge/services/studio/projects"
)

// ============================================================================
// Test Setup
// ============================================================================

func init() {
	gin.SetMode(gin.TestMode)
}

func testLogger() *slog.Logger {
	return logging.Nop().Slog()
}

type fakeAnalyzer struct {
	out    string
	err    error
	source string
	mode   analysis.Mode
}

func (f *fakeAnalyzer) Analyze(_ context.Context, source string, mode analysis.Mode) (string, error) {
	f.source = source
	f.mode = mode
	return f.out, f.err
}

func (f *fakeAnalyzer) Tools() []analysis.Tool {
	return []analysis.Tool{analysis.ToolUnreachability, analysis.ToolLiquidity}
}

func doJSON(router http.Handler, method, path, body string) *httptest.ResponseRecorder {
	w := httptest.NewRecorder()
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	router.ServeHTTP(w, req)
	return w
}

func decodeError(t *testing.T, w *httptest.ResponseRecorder) string {
	t.Helper()
	var resp datatypes.ErrorResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	return resp.Error
}

// ============================================================================
// Health Tests
// ============================================================================

func TestHealthCheck(t *testing.T) {
	registry := interpreter.NewRegistry()
	require.NoError(t, registry.Add(interpreter.NewSession("a", interpreter.Config{}, interpreter.EmitterFunc(func(interpreter.Outbound) error { return nil }), nil)))

	router := gin.New()
	router.GET("/health", HealthCheck(registry, &fakeAnalyzer{}))

	w := doJSON(router, http.MethodGet, "/health", "")
	require.Equal(t, http.StatusOK, w.Code)

	var resp datatypes.HealthResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Equal(t, "ok", resp.Status)
	assert.Equal(t, 1, resp.ActiveSessions)
	assert.Equal(t, 0, resp.RunningSessions)
	assert.Equal(t, []string{"unreachability", "liquidity"}, resp.Tools)
}

// ============================================================================
// Analyze Tests
// ============================================================================

func TestHandleAnalyze_Success(t *testing.T) {
	tests := []struct {
		name        string
		body        string
		wantTool    analysis.Tool
		wantVerbose bool
	}{
		{"defaults", `{"code":"stipula A {}"}`, analysis.ToolUnreachability, false},
		{"short false", `{"code":"x","short":false}`, analysis.ToolUnreachability, true},
		{"verbose liquidity", `{"code":"x","tool":"liquidity","verbose":true}`, analysis.ToolLiquidity, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			fake := &fakeAnalyzer{out: "report"}
			router := gin.New()
			router.POST("/v1/analyze", HandleAnalyze(fake, nil, testLogger()))

			w := doJSON(router, http.MethodPost, "/v1/analyze", tt.body)
			require.Equal(t, http.StatusOK, w.Code, w.Body.String())

			var resp datatypes.AnalyzeResponse
			require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
			assert.Equal(t, "report", resp.Output)
			assert.Equal(t, tt.wantTool, fake.mode.Tool)
			assert.Equal(t, tt.wantVerbose, fake.mode.Verbose)
		})
	}
}

func TestHandleAnalyze_Errors(t *testing.T) {
	tests := []struct {
		name     string
		body     string
		err      error
		wantCode int
		wantMsg  string
	}{
		{"missing code", `{}`, nil, http.StatusBadRequest, ""},
		{"not json", `code=1`, nil, http.StatusBadRequest, ""},
		{"bad tool", `{"code":"x","tool":"gas"}`, nil, http.StatusBadRequest, ""},
		{"stderr verbatim", `{"code":"x"}`, &analysis.Failure{Tool: analysis.ToolUnreachability, Stderr: "Traceback: boom\n"}, http.StatusInternalServerError, "Traceback: boom\n"},
		{"unconfigured tool", `{"code":"x"}`, fmt.Errorf("%w: liquidity", analysis.ErrUnknownTool), http.StatusBadRequest, ""},
		{"spawn", `{"code":"x"}`, fmt.Errorf("%w: python not found", analysis.ErrSpawn), http.StatusServiceUnavailable, ""},
		{"timeout", `{"code":"x"}`, analysis.ErrTimeout, http.StatusGatewayTimeout, ""},
		{"cancelled", `{"code":"x"}`, context.Canceled, statusClientClosed, ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			router := gin.New()
			router.POST("/v1/analyze", HandleAnalyze(&fakeAnalyzer{err: tt.err}, nil, testLogger()))

			w := doJSON(router, http.MethodPost, "/v1/analyze", tt.body)
			assert.Equal(t, tt.wantCode, w.Code)
			if tt.wantMsg != "" {
				assert.Equal(t, tt.wantMsg, decodeError(t, w))
			}
		})
	}
}

func TestHandleAnalyze_Metrics(t *testing.T) {
	metrics := observability.NewMetrics(prometheus.NewRegistry())
	router := gin.New()
	router.POST("/ok", HandleAnalyze(&fakeAnalyzer{out: "fine"}, metrics, testLogger()))
	router.POST("/fail", HandleAnalyze(&fakeAnalyzer{err: &analysis.Failure{Stderr: "x"}}, metrics, testLogger()))

	doJSON(router, http.MethodPost, "/ok", `{"code":"x","tool":"liquidity"}`)
	doJSON(router, http.MethodPost, "/fail", `{"code":"x"}`)

	assert.Equal(t, 1.0, testutil.ToFloat64(metrics.AnalysisTotal.WithLabelValues("liquidity", "ok")))
	assert.Equal(t, 1.0, testutil.ToFloat64(metrics.AnalysisTotal.WithLabelValues("unreachability", "failure")))
}

// ============================================================================
// Render Tests
// ============================================================================

const demoSnapshot = `{
  "cont": {
    "name": "Demo",
    "assets": ["coin"],
    "fields": [],
    "parties": ["Alice"],
    "agreements": [],
    "firstState": "Init",
    "functions": [],
    "HOinputs": [{"name": "input_code_1", "code": "stipula Helper {}"}]
  }
}`

func TestHandleRender_ModelMode(t *testing.T) {
	router := gin.New()
	router.POST("/v1/render", HandleRender())

	w := doJSON(router, http.MethodPost, "/v1/render", demoSnapshot)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	var resp datatypes.RenderResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.True(t, strings.HasPrefix(resp.Code, "stipula Demo {"), resp.Code)
	assert.Contains(t, resp.Code, "asset coin")
	assert.Contains(t, resp.Code, "party Alice")
	assert.Contains(t, resp.Code, "init Init")
	assert.Equal(t, []datatypes.HOInputFile{{Name: "input_code_1", Content: "stipula Helper {}"}}, resp.HOInputs)
}

func TestHandleRender_TextMode(t *testing.T) {
	router := gin.New()
	router.POST("/v1/render", HandleRender())

	body := `{"cont":{"name":"Demo"},"editedCode":"stipula Edited {}","textMode":true}`
	w := doJSON(router, http.MethodPost, "/v1/render", body)
	require.Equal(t, http.StatusOK, w.Code)

	var resp datatypes.RenderResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Equal(t, "stipula Edited {}", resp.Code)
	assert.NotNil(t, resp.HOInputs)
	assert.Empty(t, resp.HOInputs)
}

func TestHandleRender_BadSnapshot(t *testing.T) {
	router := gin.New()
	router.POST("/v1/render", HandleRender())

	w := doJSON(router, http.MethodPost, "/v1/render", `{"cont":`)
	assert.Equal(t, http.StatusBadRequest, w.Code)

	big := bytes.Repeat([]byte(" "), maxSnapshotBytes+1)
	w = doJSON(router, http.MethodPost, "/v1/render", string(big))
	assert.Equal(t, http.StatusRequestEntityTooLarge, w.Code)
}

// ============================================================================
// Project Tests
// ============================================================================

func projectRouter(store projects.Store) *gin.Engine {
	router := gin.New()
	g := router.Group("/v1/projects")
	g.GET("", ListProjects(store))
	g.PUT("/:name", PutProject(store, testLogger()))
	g.GET("/:name", GetProject(store))
	g.GET("/:name/render", RenderProject(store))
	g.DELETE("/:name", DeleteProject(store))
	return router
}

func TestProjects_Lifecycle(t *testing.T) {
	router := projectRouter(projects.NewMemoryStore())

	w := doJSON(router, http.MethodPut, "/v1/projects/demo", demoSnapshot)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	var put datatypes.ProjectResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &put))
	assert.Equal(t, "demo", put.Name)
	assert.Contains(t, string(put.Snapshot), `"Demo"`)

	w = doJSON(router, http.MethodGet, "/v1/projects/demo", "")
	require.Equal(t, http.StatusOK, w.Code)

	w = doJSON(router, http.MethodGet, "/v1/projects/demo/render", "")
	require.Equal(t, http.StatusOK, w.Code)
	var rendered datatypes.RenderResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &rendered))
	assert.True(t, strings.HasPrefix(rendered.Code, "stipula Demo {"))

	w = doJSON(router, http.MethodGet, "/v1/projects", "")
	require.Equal(t, http.StatusOK, w.Code)
	var list struct {
		Projects []projects.Summary `json:"projects"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &list))
	require.Len(t, list.Projects, 1)
	assert.Equal(t, "demo", list.Projects[0].Name)

	w = doJSON(router, http.MethodDelete, "/v1/projects/demo", "")
	assert.Equal(t, http.StatusNoContent, w.Code)

	w = doJSON(router, http.MethodGet, "/v1/projects/demo", "")
	assert.Equal(t, http.StatusNotFound, w.Code)
	w = doJSON(router, http.MethodDelete, "/v1/projects/demo", "")
	assert.Equal(t, http.StatusNotFound, w.Code)
	w = doJSON(router, http.MethodGet, "/v1/projects/demo/render", "")
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestProjects_PutRejectsBadInput(t *testing.T) {
	router := projectRouter(projects.NewMemoryStore())

	w := doJSON(router, http.MethodPut, "/v1/projects/demo", `not json`)
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = doJSON(router, http.MethodPut, "/v1/projects/bad%20name", demoSnapshot)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestProjects_ListEmpty(t *testing.T) {
	router := projectRouter(projects.NewMemoryStore())

	w := doJSON(router, http.MethodGet, "/v1/projects", "")
	require.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"projects":[]}`, w.Body.String())
}
