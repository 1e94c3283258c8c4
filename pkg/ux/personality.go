// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package ux

import (
	"os"
	"strings"
	"sync"

	"github.com/mattn/go-isatty"
)

// Level controls how rich CLI output is.
type Level string

const (
	// LevelRich enables colors, icons and boxes.
	LevelRich Level = "rich"

	// LevelPlain keeps icons but drops colors and borders.
	LevelPlain Level = "plain"

	// LevelMachine prints prefixed plain text for scripts.
	LevelMachine Level = "machine"
)

var (
	currentLevel = LevelRich
	levelMu      sync.RWMutex
)

// GetLevel returns the current output level.
func GetLevel() Level {
	levelMu.RLock()
	defer levelMu.RUnlock()
	return currentLevel
}

// SetLevel changes the output level.
func SetLevel(l Level) {
	levelMu.Lock()
	defer levelMu.Unlock()
	currentLevel = l
}

// ParseLevel converts a name to a Level. Unknown names map to LevelPlain.
func ParseLevel(s string) Level {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "rich", "full", "r":
		return LevelRich
	case "machine", "quiet", "q":
		return LevelMachine
	default:
		return LevelPlain
	}
}

// InitLevel picks the level from STIPULA_OUTPUT, falling back to machine
// output when stdout is not a terminal.
func InitLevel() {
	if env := os.Getenv("STIPULA_OUTPUT"); env != "" {
		SetLevel(ParseLevel(env))
		return
	}
	if !IsTerminal(os.Stdout) {
		SetLevel(LevelMachine)
		return
	}
	SetLevel(LevelRich)
}

// IsTerminal reports whether f is attached to a terminal.
func IsTerminal(f *os.File) bool {
	if f == nil {
		return false
	}
	return isatty.IsTerminal(f.Fd()) || isatty.IsCygwinTerminal(f.Fd())
}

// ShouldShowProgress reports whether spinners should animate.
func ShouldShowProgress() bool {
	return GetLevel() != LevelMachine
}
