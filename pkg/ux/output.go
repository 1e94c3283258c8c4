// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

// Package ux styles the stipula CLI's terminal output.
//
// Output adapts to where it goes: colors, icons and boxes on a terminal,
// plain "OK:"/"WARN:"/"ERROR:" prefixed lines when piped or when
// STIPULA_OUTPUT=machine.
package ux

import (
	"fmt"
	"io"
	"os"
	"sync"

	"github.com/charmbracelet/lipgloss"
)

// Stipula palette
var (
	ColorIndigo   = lipgloss.Color("#5B5BD6")
	ColorViolet   = lipgloss.Color("#8E7CF0")
	ColorLavender = lipgloss.Color("#C4B8FF")
	ColorSlate    = lipgloss.Color("#5A6270")

	ColorSuccess = lipgloss.Color("#3CCB7F")
	ColorWarning = lipgloss.Color("#F4D03F")
	ColorError   = lipgloss.Color("#E74C3C")
)

// Styles are the pre-configured lipgloss styles.
var Styles = struct {
	Title     lipgloss.Style
	Bold      lipgloss.Style
	Muted     lipgloss.Style
	Success   lipgloss.Style
	Warning   lipgloss.Style
	Error     lipgloss.Style
	Highlight lipgloss.Style

	Box      lipgloss.Style
	ErrorBox lipgloss.Style
}{
	Title:     lipgloss.NewStyle().Bold(true).Foreground(ColorViolet),
	Bold:      lipgloss.NewStyle().Bold(true),
	Muted:     lipgloss.NewStyle().Foreground(ColorSlate),
	Success:   lipgloss.NewStyle().Foreground(ColorSuccess),
	Warning:   lipgloss.NewStyle().Foreground(ColorWarning),
	Error:     lipgloss.NewStyle().Foreground(ColorError),
	Highlight: lipgloss.NewStyle().Foreground(ColorLavender).Bold(true),

	Box: lipgloss.NewStyle().
		Border(lipgloss.RoundedBorder()).
		BorderForeground(ColorIndigo).
		Padding(0, 1),
	ErrorBox: lipgloss.NewStyle().
		Border(lipgloss.RoundedBorder()).
		BorderForeground(ColorError).
		Padding(0, 1),
}

// Icon is a status glyph.
type Icon string

const (
	IconSuccess Icon = "✓"
	IconWarning Icon = "⚠"
	IconError   Icon = "✗"
	IconArrow   Icon = "→"
	IconBullet  Icon = "•"
)

// Render returns the icon with its status color.
func (i Icon) Render() string {
	switch i {
	case IconSuccess:
		return Styles.Success.Render(string(i))
	case IconWarning:
		return Styles.Warning.Render(string(i))
	case IconError:
		return Styles.Error.Render(string(i))
	default:
		return string(i)
	}
}

var (
	outMu  sync.Mutex
	stdout io.Writer = os.Stdout
	stderr io.Writer = os.Stderr
)

// SetOutput redirects normal and error output. Nil keeps the current writer.
func SetOutput(out, errOut io.Writer) {
	outMu.Lock()
	defer outMu.Unlock()
	if out != nil {
		stdout = out
	}
	if errOut != nil {
		stderr = errOut
	}
}

func writers() (io.Writer, io.Writer) {
	outMu.Lock()
	defer outMu.Unlock()
	return stdout, stderr
}

// Title prints a styled heading. Machine mode prints nothing.
func Title(text string) {
	if GetLevel() == LevelMachine {
		return
	}
	out, _ := writers()
	fmt.Fprintln(out, Styles.Title.Render(text))
}

// Success prints a success line.
func Success(text string) {
	out, _ := writers()
	switch GetLevel() {
	case LevelMachine:
		fmt.Fprintf(out, "OK: %s\n", text)
	case LevelPlain:
		fmt.Fprintf(out, "%s %s\n", IconSuccess, text)
	default:
		fmt.Fprintf(out, "%s %s\n", IconSuccess.Render(), Styles.Success.Render(text))
	}
}

// Warning prints a warning line on the error stream.
func Warning(text string) {
	_, errOut := writers()
	switch GetLevel() {
	case LevelMachine:
		fmt.Fprintf(errOut, "WARN: %s\n", text)
	case LevelPlain:
		fmt.Fprintf(errOut, "%s %s\n", IconWarning, text)
	default:
		fmt.Fprintf(errOut, "%s %s\n", IconWarning.Render(), Styles.Warning.Render(text))
	}
}

// Error prints an error line on the error stream.
func Error(text string) {
	_, errOut := writers()
	switch GetLevel() {
	case LevelMachine:
		fmt.Fprintf(errOut, "ERROR: %s\n", text)
	case LevelPlain:
		fmt.Fprintf(errOut, "%s %s\n", IconError, text)
	default:
		fmt.Fprintf(errOut, "%s %s\n", IconError.Render(), Styles.Error.Render(text))
	}
}

// Info prints an informational line.
func Info(text string) {
	out, _ := writers()
	if GetLevel() == LevelMachine {
		fmt.Fprintln(out, text)
		return
	}
	fmt.Fprintf(out, "%s %s\n", Styles.Muted.Render("│"), text)
}

// Box prints content under a title inside a rounded border. Analyzer
// reports go through here so they stay readable on a terminal.
func Box(title, content string) {
	out, _ := writers()
	if GetLevel() != LevelRich {
		fmt.Fprintf(out, "%s\n%s\n", title, content)
		return
	}
	fmt.Fprintln(out, Styles.Box.Render(Styles.Title.Render(title)+"\n"+content))
}

// ErrorBox is Box on the error stream with error styling.
func ErrorBox(title, content string) {
	_, errOut := writers()
	if GetLevel() != LevelRich {
		fmt.Fprintf(errOut, "%s\n%s\n", title, content)
		return
	}
	fmt.Fprintln(errOut, Styles.ErrorBox.Render(Styles.Error.Bold(true).Render(title)+"\n"+content))
}

// FileStatus prints one file with its outcome.
func FileStatus(path string, status Icon, reason string) {
	out, _ := writers()
	switch GetLevel() {
	case LevelMachine:
		fmt.Fprintf(out, "%s\t%s\t%s\n", status, path, reason)
	case LevelPlain:
		fmt.Fprintf(out, "%s %s\n", status, path)
	default:
		if reason != "" {
			fmt.Fprintf(out, "%s %s %s\n", status.Render(), path, Styles.Muted.Render("("+reason+")"))
		} else {
			fmt.Fprintf(out, "%s %s\n", status.Render(), path)
		}
	}
}
