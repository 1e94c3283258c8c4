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
	"io"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/AleutianAI/StipulaForge/services/contract"
	"github.com/AleutianAI/StipulaForge/services/contract/codegen"
	"github.com/AleutianAI/StipulaForge/services/studio/datatypes"
)

// maxSnapshotBytes bounds posted project documents.
const maxSnapshotBytes = 8 << 20

// HandleRender turns a posted project snapshot into contract source and
// higher-order input files. A snapshot in text mode returns its edited code.
func HandleRender() gin.HandlerFunc {
	return func(c *gin.Context) {
		snap, ok := readSnapshot(c)
		if !ok {
			return
		}
		c.JSON(http.StatusOK, renderSnapshot(snap))
	}
}

func readSnapshot(c *gin.Context) (*contract.Snapshot, bool) {
	body, err := io.ReadAll(io.LimitReader(c.Request.Body, maxSnapshotBytes+1))
	if err != nil {
		abortWithError(c, http.StatusBadRequest, "read body: "+err.Error())
		return nil, false
	}
	if len(body) > maxSnapshotBytes {
		abortWithError(c, http.StatusRequestEntityTooLarge, "snapshot too large")
		return nil, false
	}
	snap, err := contract.DecodeSnapshot(body)
	if err != nil {
		abortWithError(c, http.StatusBadRequest, err.Error())
		return nil, false
	}
	return snap, true
}

func renderSnapshot(snap *contract.Snapshot) datatypes.RenderResponse {
	project := contract.ProjectFromSnapshot(snap, codegen.Render)

	resp := datatypes.RenderResponse{Code: project.Code(), HOInputs: []datatypes.HOInputFile{}}
	project.View(func(c *contract.Contract) {
		for _, in := range c.Inputs() {
			resp.HOInputs = append(resp.HOInputs, datatypes.HOInputFile{
				Name:    in.Name,
				Content: codegen.RenderHigherOrderInput(in),
			})
		}
	})
	return resp
}
