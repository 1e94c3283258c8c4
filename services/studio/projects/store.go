// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

// Package projects persists named contract project snapshots.
//
// A snapshot is stored as the JSON document produced by
// contract.Snapshot.Encode. Stores do not interpret it; handlers decode and
// re-encode before saving so every stored document is normalized.
package projects

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"regexp"
	"time"
)

var (
	// ErrNotFound is returned when no project has the requested name.
	ErrNotFound = errors.New("project not found")

	// ErrInvalidName is returned for names outside [A-Za-z0-9_.-]{1,128}.
	ErrInvalidName = errors.New("invalid project name")

	// ErrUnknownDriver is returned by Open for an unsupported driver.
	ErrUnknownDriver = errors.New("unknown project store driver")
)

var namePattern = regexp.MustCompile(`^[A-Za-z0-9_.-]{1,128}$`)

// ValidName reports whether name may be used as a project key.
func ValidName(name string) bool {
	return namePattern.MatchString(name) && name != "." && name != ".."
}

// Summary describes a stored project without its document.
type Summary struct {
	Name      string    `json:"name"`
	UpdatedAt time.Time `json:"updated_at"`
	Size      int       `json:"size"`
}

// Record is a stored project.
type Record struct {
	Summary
	Snapshot []byte `json:"-"`
}

// Store persists project snapshots. Implementations are safe for
// concurrent use.
type Store interface {
	// Put creates or replaces the project.
	Put(ctx context.Context, name string, snapshot []byte) error

	// Get returns the project or ErrNotFound.
	Get(ctx context.Context, name string) (Record, error)

	// Delete removes the project or returns ErrNotFound.
	Delete(ctx context.Context, name string) error

	// List returns every project ordered by name.
	List(ctx context.Context) ([]Summary, error)

	// Close releases the backing resources.
	Close() error
}

// Open creates the store selected by driver: "badger", "sqlite" or "memory".
// path is a directory for badger and a file for sqlite.
func Open(driver, path string, logger *slog.Logger) (Store, error) {
	switch driver {
	case "badger":
		return OpenBadger(path, logger)
	case "sqlite":
		return OpenSQLite(path)
	case "memory":
		return NewMemoryStore(), nil
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownDriver, driver)
	}
}

func checkName(name string) error {
	if !ValidName(name) {
		return fmt.Errorf("%w: %q", ErrInvalidName, name)
	}
	return nil
}
