// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package analysis

import (
	"errors"
	"fmt"
)

// Sentinel errors for analysis runs.
var (
	// ErrUnknownTool indicates a tool name with no configuration.
	ErrUnknownTool = errors.New("unknown analysis tool")

	// ErrSpawn indicates the tool process could not be launched.
	ErrSpawn = errors.New("analysis tool could not be started")

	// ErrTimeout indicates the tool exceeded the configured timeout.
	ErrTimeout = errors.New("analysis tool timed out")
)

// Failure is returned when the tool wrote to stderr. Stderr is kept verbatim
// so callers can show it unchanged.
type Failure struct {
	// Tool is the analyzer that failed.
	Tool Tool

	// Stderr is the raw diagnostic output.
	Stderr string

	// ExitCode is the process exit status, or -1 if it was killed.
	ExitCode int
}

// Error implements the error interface.
func (f *Failure) Error() string {
	return fmt.Sprintf("%s analysis failed (exit %d): %s", f.Tool, f.ExitCode, f.Stderr)
}
