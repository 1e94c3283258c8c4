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
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/AleutianAI/StipulaForge/services/contract"
	"github.com/AleutianAI/StipulaForge/services/studio/datatypes"
	"github.com/AleutianAI/StipulaForge/services/studio/projects"
)

// PutProject validates and stores the posted snapshot under :name. The
// stored document is the normalized re-encoding.
func PutProject(store projects.Store, logger *slog.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		name := c.Param("name")
		if !projects.ValidName(name) {
			abortWithError(c, http.StatusBadRequest, projects.ErrInvalidName.Error())
			return
		}
		snap, ok := readSnapshot(c)
		if !ok {
			return
		}
		data, err := snap.Encode()
		if err != nil {
			abortWithError(c, http.StatusInternalServerError, err.Error())
			return
		}

		ctx := c.Request.Context()
		if err := store.Put(ctx, name, data); err != nil {
			logger.Error("store project", slog.String("project", name), slog.String("error", err.Error()))
			abortWithError(c, http.StatusInternalServerError, "store project failed")
			return
		}
		rec, err := store.Get(ctx, name)
		if err != nil {
			abortWithError(c, http.StatusInternalServerError, err.Error())
			return
		}
		c.JSON(http.StatusOK, projectResponse(rec))
	}
}

// GetProject returns the stored snapshot for :name.
func GetProject(store projects.Store) gin.HandlerFunc {
	return func(c *gin.Context) {
		rec, ok := loadProject(c, store)
		if !ok {
			return
		}
		c.JSON(http.StatusOK, projectResponse(rec))
	}
}

// RenderProject renders the stored snapshot for :name.
func RenderProject(store projects.Store) gin.HandlerFunc {
	return func(c *gin.Context) {
		rec, ok := loadProject(c, store)
		if !ok {
			return
		}
		snap, err := contract.DecodeSnapshot(rec.Snapshot)
		if err != nil {
			abortWithError(c, http.StatusInternalServerError, err.Error())
			return
		}
		c.JSON(http.StatusOK, renderSnapshot(snap))
	}
}

// DeleteProject removes :name.
func DeleteProject(store projects.Store) gin.HandlerFunc {
	return func(c *gin.Context) {
		err := store.Delete(c.Request.Context(), c.Param("name"))
		switch {
		case errors.Is(err, projects.ErrNotFound):
			abortWithError(c, http.StatusNotFound, err.Error())
		case err != nil:
			abortWithError(c, http.StatusInternalServerError, err.Error())
		default:
			c.Status(http.StatusNoContent)
		}
	}
}

// ListProjects returns every stored project summary.
func ListProjects(store projects.Store) gin.HandlerFunc {
	return func(c *gin.Context) {
		list, err := store.List(c.Request.Context())
		if err != nil {
			abortWithError(c, http.StatusInternalServerError, err.Error())
			return
		}
		c.JSON(http.StatusOK, gin.H{"projects": list})
	}
}

func loadProject(c *gin.Context, store projects.Store) (projects.Record, bool) {
	rec, err := store.Get(c.Request.Context(), c.Param("name"))
	switch {
	case errors.Is(err, projects.ErrNotFound):
		abortWithError(c, http.StatusNotFound, err.Error())
		return rec, false
	case err != nil:
		abortWithError(c, http.StatusInternalServerError, err.Error())
		return rec, false
	}
	return rec, true
}

func projectResponse(rec projects.Record) datatypes.ProjectResponse {
	return datatypes.ProjectResponse{
		Name:      rec.Name,
		UpdatedAt: rec.UpdatedAt,
		Snapshot:  json.RawMessage(rec.Snapshot),
	}
}
