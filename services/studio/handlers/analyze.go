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
	"context"
	"errors"
	"log/slog"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/AleutianAI/StipulaForge/pkg/telemetry"
	"github.com/AleutianAI/StipulaForge/services/analysis"
	"github.com/AleutianAI/StipulaForge/services/studio/datatypes"
	"github.com/AleutianAI/StipulaForge/services/studio/observability"
)

// statusClientClosed is reported when the caller went away mid-run.
const statusClientClosed = 499

// Analyzer runs contract analyses. *analysis.Gateway implements it.
type Analyzer interface {
	Analyze(ctx context.Context, source string, mode analysis.Mode) (string, error)
	Tools() []analysis.Tool
}

// HandleAnalyze runs one analyzer over the posted source.
//
// # Description
//
// Responses:
//
//   - 200 {output}: the report; short mode substitutes "No issues found."
//     for an empty report.
//   - 400: missing code, unknown or unconfigured tool.
//   - 500 {error}: the analyzer wrote to stderr; error is that text verbatim.
//   - 503: the analyzer could not be launched.
//   - 504: the configured timeout elapsed.
func HandleAnalyze(analyzer Analyzer, metrics *observability.Metrics, logger *slog.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		var req datatypes.AnalyzeRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			abortWithError(c, http.StatusBadRequest, "invalid request: "+err.Error())
			return
		}
		tool, err := analysis.ParseTool(req.Tool)
		if err != nil {
			abortWithError(c, http.StatusBadRequest, err.Error())
			return
		}
		mode := analysis.Mode{Tool: tool, Verbose: req.IsVerbose()}

		ctx := c.Request.Context()
		out, err := analyzer.Analyze(ctx, req.Code, mode)
		outcome := "ok"
		defer func() {
			if metrics != nil {
				metrics.AnalysisTotal.WithLabelValues(string(tool), outcome).Inc()
			}
		}()

		if err == nil {
			c.JSON(http.StatusOK, datatypes.AnalyzeResponse{Output: out})
			return
		}

		logAttrs := append([]any{
			slog.String("tool", string(tool)),
			slog.Bool("verbose", mode.Verbose),
			slog.String("error", err.Error()),
		}, telemetry.LogAttrs(ctx)...)

		var failure *analysis.Failure
		switch {
		case errors.As(err, &failure):
			outcome = "failure"
			logger.Info("analysis reported errors", logAttrs...)
			abortWithError(c, http.StatusInternalServerError, failure.Stderr)
		case errors.Is(err, analysis.ErrUnknownTool):
			outcome = "error"
			abortWithError(c, http.StatusBadRequest, err.Error())
		case errors.Is(err, analysis.ErrSpawn):
			outcome = "unavailable"
			logger.Error("analysis tool unavailable", logAttrs...)
			abortWithError(c, http.StatusServiceUnavailable, err.Error())
		case errors.Is(err, analysis.ErrTimeout):
			outcome = "error"
			logger.Warn("analysis timed out", logAttrs...)
			abortWithError(c, http.StatusGatewayTimeout, err.Error())
		case errors.Is(err, context.Canceled):
			outcome = "error"
			c.AbortWithStatus(statusClientClosed)
		default:
			outcome = "error"
			logger.Error("analysis failed", logAttrs...)
			abortWithError(c, http.StatusInternalServerError, err.Error())
		}
	}
}
