// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

// Package handlers implements the studio's HTTP and websocket endpoints.
//
// Every constructor takes its dependencies explicitly and returns a
// gin.HandlerFunc. Failures are answered with datatypes.ErrorResponse.
package handlers

import (
	"github.com/gin-gonic/gin"

	"github.com/AleutianAI/StipulaForge/services/studio/datatypes"
)

func abortWithError(c *gin.Context, status int, msg string) {
	c.AbortWithStatusJSON(status, datatypes.ErrorResponse{Error: msg})
}
