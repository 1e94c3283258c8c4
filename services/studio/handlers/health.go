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
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/AleutianAI/StipulaForge/services/interpreter"
	"github.com/AleutianAI/StipulaForge/services/studio/datatypes"
)

// HealthCheck reports liveness, interpreter session counts and the
// configured analyzers.
func HealthCheck(registry *interpreter.Registry, analyzer Analyzer) gin.HandlerFunc {
	return func(c *gin.Context) {
		resp := datatypes.HealthResponse{
			Status:          "ok",
			ActiveSessions:  registry.Len(),
			RunningSessions: registry.Running(),
			Tools:           []string{},
		}
		if analyzer != nil {
			for _, t := range analyzer.Tools() {
				resp.Tools = append(resp.Tools, string(t))
			}
		}
		c.JSON(http.StatusOK, resp)
	}
}
