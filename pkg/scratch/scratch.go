// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

// Package scratch manages short-lived files handed to external tools.
//
// A Set owns every file written through it. Remove deletes them all exactly
// once; later calls are no-ops. Removal failures are logged and returned but
// callers are expected to treat them as non-fatal.
package scratch

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"sync"
)

// ErrReleased is returned by Write after the set has been removed.
var ErrReleased = errors.New("scratch set already released")

// Set is a group of temporary files with a shared lifetime.
//
// Thread Safety: Set is safe for concurrent use.
type Set struct {
	dir    string
	logger *slog.Logger

	mu      sync.Mutex
	paths   []string
	removed bool
}

// New creates an empty Set rooted at dir. An empty dir means os.TempDir().
// A nil logger falls back to slog.Default().
func New(dir string, logger *slog.Logger) *Set {
	if dir == "" {
		dir = os.TempDir()
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Set{dir: dir, logger: logger}
}

// Dir returns the directory files are created in.
func (s *Set) Dir() string {
	return s.dir
}

// Write creates a uniquely named file and fills it with content.
//
// # Inputs
//
//   - pattern: os.CreateTemp pattern; the last "*" is replaced by a random token.
//   - content: File body.
//
// # Outputs
//
//   - string: Absolute path of the new file, already tracked by the set.
//   - error: Non-nil if the directory or file could not be written. A file that
//     was created but not fully written is removed before returning.
func (s *Set) Write(pattern, content string) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.removed {
		return "", ErrReleased
	}
	if err := os.MkdirAll(s.dir, 0750); err != nil {
		return "", fmt.Errorf("create scratch dir: %w", err)
	}

	f, err := os.CreateTemp(s.dir, pattern)
	if err != nil {
		return "", fmt.Errorf("create scratch file: %w", err)
	}
	path := f.Name()

	_, werr := f.WriteString(content)
	cerr := f.Close()
	if err := errors.Join(werr, cerr); err != nil {
		_ = os.Remove(path)
		return "", fmt.Errorf("write scratch file %s: %w", path, err)
	}

	s.paths = append(s.paths, path)
	return path, nil
}

// Paths returns a copy of the tracked paths in creation order.
func (s *Set) Paths() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]string, len(s.paths))
	copy(out, s.paths)
	return out
}

// Released reports whether Remove has run.
func (s *Set) Released() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.removed
}

// Remove deletes every tracked file. Only the first call does any work.
//
// Files that are already gone are not reported. Every other failure is logged
// at warn level and the failures are joined into the returned error.
func (s *Set) Remove() error {
	s.mu.Lock()
	if s.removed {
		s.mu.Unlock()
		return nil
	}
	s.removed = true
	paths := s.paths
	s.paths = nil
	s.mu.Unlock()

	var errs []error
	for _, path := range paths {
		if err := os.Remove(path); err != nil && !errors.Is(err, os.ErrNotExist) {
			s.logger.Warn("failed to remove scratch file", "path", path, "error", err)
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}
