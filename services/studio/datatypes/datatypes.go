// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

// Package datatypes holds the request and response bodies of the studio API.
package datatypes

import (
	"encoding/json"
	"time"
)

// AnalyzeRequest is the body of POST /v1/analyze.
//
// Verbose selects the verbose report. Short is accepted as its inverse for
// clients that send {code, short}; when both are present Verbose wins.
type AnalyzeRequest struct {
	Code    string `json:"code" binding:"required"`
	Tool    string `json:"tool" binding:"omitempty,oneof=unreachability liquidity"`
	Verbose *bool  `json:"verbose"`
	Short   *bool  `json:"short"`
}

// IsVerbose resolves Verbose and Short. The default is the short report.
func (r AnalyzeRequest) IsVerbose() bool {
	if r.Verbose != nil {
		return *r.Verbose
	}
	if r.Short != nil {
		return !*r.Short
	}
	return false
}

// AnalyzeResponse carries the analyzer report.
type AnalyzeResponse struct {
	Output string `json:"output"`
}

// HOInputFile is one rendered higher-order input.
type HOInputFile struct {
	Name    string `json:"name"`
	Content string `json:"content"`
}

// RenderResponse is the body returned by POST /v1/render.
type RenderResponse struct {
	Code     string        `json:"code"`
	HOInputs []HOInputFile `json:"hoInputs"`
}

// ProjectResponse is a stored project with its snapshot document.
type ProjectResponse struct {
	Name      string          `json:"name"`
	UpdatedAt time.Time       `json:"updated_at"`
	Snapshot  json.RawMessage `json:"snapshot"`
}

// HealthResponse is the body of GET /health.
type HealthResponse struct {
	Status          string   `json:"status"`
	ActiveSessions  int      `json:"active_sessions"`
	RunningSessions int      `json:"running_sessions"`
	Tools           []string `json:"tools"`
}

// ErrorResponse is the body of every failed request.
type ErrorResponse struct {
	Error string `json:"error"`
}
