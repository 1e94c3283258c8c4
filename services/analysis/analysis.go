// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

// Package analysis runs the external Stipula analyzers on source text.
//
// Each call to Gateway.Analyze writes the source to a fresh temporary file,
// runs one analyzer process to completion and removes the file on every
// path. The tool contract is simple: empty stderr means success and stdout
// is the report; any stderr means failure and stderr is the diagnostic.
//
// The Gateway holds no per-request state, so concurrent calls need no
// coordination beyond unique temp file names.
package analysis

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os/exec"
	"strings"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"

	"github.com/AleutianAI/StipulaForge/pkg/scratch"
)

// NoIssues replaces an empty short-mode report.
const NoIssues = "No issues found."

// Tool names an analyzer.
type Tool string

const (
	// ToolUnreachability finds unreachable states and dead functions.
	ToolUnreachability Tool = "unreachability"

	// ToolLiquidity checks that assets cannot get frozen in the contract.
	ToolLiquidity Tool = "liquidity"
)

// ParseTool resolves a tool name. Empty selects ToolUnreachability.
func ParseTool(s string) (Tool, error) {
	switch t := Tool(strings.ToLower(strings.TrimSpace(s))); t {
	case "":
		return ToolUnreachability, nil
	case ToolUnreachability, ToolLiquidity:
		return t, nil
	default:
		return "", fmt.Errorf("%w: %q", ErrUnknownTool, s)
	}
}

// Mode selects the analyzer and its report style.
type Mode struct {
	Tool    Tool
	Verbose bool
}

// ToolConfig describes how to launch one analyzer. The process is run as
// Command Args... <source file> Flags..., where Flags is ShortFlags or
// VerboseFlags depending on the mode.
type ToolConfig struct {
	Command      string   `yaml:"command"`
	Args         []string `yaml:"args"`
	WorkDir      string   `yaml:"work_dir"`
	ShortFlags   []string `yaml:"short_flags"`
	VerboseFlags []string `yaml:"verbose_flags"`
}

// Config configures a Gateway.
type Config struct {
	// TempDir holds the per-request source files. Empty uses os.TempDir().
	TempDir string `yaml:"temp_dir"`

	// Timeout bounds a single run. Zero disables it; the caller's context
	// still applies.
	Timeout time.Duration `yaml:"timeout"`

	// Tools maps each analyzer to its launch configuration.
	Tools map[Tool]ToolConfig `yaml:"tools"`
}

// DefaultConfig returns the launch lines of the stock analyzers.
func DefaultConfig() Config {
	return Config{
		Tools: map[Tool]ToolConfig{
			ToolUnreachability: {
				Command:      "python",
				Args:         []string{"analyzer.py"},
				ShortFlags:   []string{"--readable", "--compact"},
				VerboseFlags: []string{"--readable"},
			},
			ToolLiquidity: {
				Command:      "python",
				Args:         []string{"main.py"},
				VerboseFlags: []string{"-v"},
			},
		},
	}
}

// Gateway runs analyzers. It is safe for concurrent use.
type Gateway struct {
	config Config
	logger *slog.Logger
}

// NewGateway creates a Gateway. A nil logger falls back to slog.Default().
func NewGateway(config Config, logger *slog.Logger) *Gateway {
	if logger == nil {
		logger = slog.Default()
	}
	return &Gateway{config: config, logger: logger}
}

// Tools returns the configured analyzer names.
func (g *Gateway) Tools() []Tool {
	tools := make([]Tool, 0, len(g.config.Tools))
	for _, t := range []Tool{ToolUnreachability, ToolLiquidity} {
		if _, ok := g.config.Tools[t]; ok {
			tools = append(tools, t)
		}
	}
	return tools
}

// Analyze runs the analyzer selected by mode on source.
//
// # Description
//
// Writes source to a uniquely named temporary file, runs the tool once and
// waits for it to exit. The temporary file is removed before Analyze
// returns, whatever the outcome. Nothing is retried.
//
// # Inputs
//
//   - ctx: Cancels the run. Cancellation kills the tool process.
//   - source: Contract source text, passed through untouched.
//   - mode: Tool and verbosity.
//
// # Outputs
//
//   - string: The tool's stdout. In short mode, an empty or header-only
//     report becomes NoIssues.
//   - error: ErrUnknownTool, ErrSpawn, ErrTimeout, ctx.Err(), or *Failure
//     when the tool wrote to stderr.
func (g *Gateway) Analyze(ctx context.Context, source string, mode Mode) (string, error) {
	tc, ok := g.config.Tools[mode.Tool]
	if !ok {
		return "", fmt.Errorf("%w: %q", ErrUnknownTool, mode.Tool)
	}

	ctx, span := startRunSpan(ctx, mode)
	defer span.End()
	start := time.Now()

	files := scratch.New(g.config.TempDir, g.logger)
	defer func() { _ = files.Remove() }()

	path, err := files.Write("contract_*.stipula", source)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "write source")
		return "", fmt.Errorf("%w: %v", ErrSpawn, err)
	}

	if g.config.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, g.config.Timeout)
		defer cancel()
	}

	args := append([]string{}, tc.Args...)
	args = append(args, path)
	if mode.Verbose {
		args = append(args, tc.VerboseFlags...)
	} else {
		args = append(args, tc.ShortFlags...)
	}

	var stdout, stderr bytes.Buffer
	cmd := exec.CommandContext(ctx, tc.Command, args...)
	cmd.Dir = tc.WorkDir
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr
	cmd.WaitDelay = time.Second

	g.logger.Debug("running analyzer",
		slog.String("tool", string(mode.Tool)),
		slog.String("command", tc.Command),
		slog.String("path", path),
	)
	runErr := cmd.Run()

	var outcome string
	defer func() { recordRun(ctx, mode.Tool, outcome, time.Since(start)) }()

	if ctxErr := ctx.Err(); ctxErr != nil {
		span.SetStatus(codes.Error, ctxErr.Error())
		if errors.Is(ctxErr, context.DeadlineExceeded) {
			outcome = "timeout"
			return "", fmt.Errorf("%w after %s", ErrTimeout, g.config.Timeout)
		}
		outcome = "cancelled"
		return "", ctxErr
	}

	var exitErr *exec.ExitError
	if runErr != nil && !errors.As(runErr, &exitErr) {
		outcome = "spawn_error"
		span.RecordError(runErr)
		span.SetStatus(codes.Error, "spawn")
		g.logger.Warn("analyzer could not be started",
			slog.String("tool", string(mode.Tool)),
			slog.String("error", runErr.Error()),
		)
		return "", fmt.Errorf("%w: %v", ErrSpawn, runErr)
	}

	exitCode := 0
	if cmd.ProcessState != nil {
		exitCode = cmd.ProcessState.ExitCode()
	}
	span.SetAttributes(attribute.Int("analysis.exit_code", exitCode))

	if stderr.Len() > 0 {
		outcome = "failure"
		span.SetStatus(codes.Error, "stderr")
		return "", &Failure{Tool: mode.Tool, Stderr: stderr.String(), ExitCode: exitCode}
	}

	outcome = "ok"
	report := stdout.String()
	if !mode.Verbose && headersOnly(report) {
		return NoIssues, nil
	}
	return report, nil
}

// headersOnly reports whether every non-blank line of report is a section
// header ending in ':'.
func headersOnly(report string) bool {
	for _, line := range strings.Split(report, "\n") {
		line = strings.TrimSpace(line)
		if line != "" && !strings.HasSuffix(line, ":") {
			return false
		}
	}
	return true
}
