// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package interpreter

import "errors"

// Sentinel errors for session operations.
var (
	// ErrAlreadyRunning indicates START while a process is registered.
	ErrAlreadyRunning = errors.New("interpreter already running")

	// ErrNotRunning indicates STOP with no registered process.
	ErrNotRunning = errors.New("no interpreter to stop")

	// ErrNotWritable indicates SEND_INPUT when no process stdin is open.
	ErrNotWritable = errors.New("interpreter not running or stdin not writable")

	// ErrSpawn indicates the temp files could not be written or the process
	// could not be launched.
	ErrSpawn = errors.New("failed to start interpreter")

	// ErrSessionClosed indicates use of a session after its connection closed.
	ErrSessionClosed = errors.New("session closed")

	// ErrMalformedMessage indicates an inbound frame that is not valid JSON.
	ErrMalformedMessage = errors.New("malformed message")

	// ErrUnknownMessage indicates an inbound frame with an unknown type.
	ErrUnknownMessage = errors.New("unknown message type")

	// ErrInvalidPayload indicates a known type with an unusable payload.
	ErrInvalidPayload = errors.New("invalid payload")

	// ErrDuplicateConnection indicates a registry already holds the id.
	ErrDuplicateConnection = errors.New("connection already registered")
)
