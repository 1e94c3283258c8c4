// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

// Package config loads StipulaForge configuration from YAML and the
// environment.
//
// Precedence, lowest first: Default(), the YAML file, environment variables.
// A tool entry given in YAML replaces the whole default entry for that tool.
package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"gopkg.in/yaml.v3"

	"github.com/AleutianAI/StipulaForge/pkg/telemetry"
	"github.com/AleutianAI/StipulaForge/services/analysis"
	"github.com/AleutianAI/StipulaForge/services/interpreter"
)

// EnvConfigPath names the variable consulted when no path is given.
const EnvConfigPath = "STIPULA_CONFIG"

// Config is the complete studio configuration.
type Config struct {
	Server      ServerConfig       `yaml:"server"`
	Interpreter interpreter.Config `yaml:"interpreter"`
	Analysis    AnalysisConfig     `yaml:"analysis"`
	Store       StoreConfig        `yaml:"store"`
	Telemetry   telemetry.Config   `yaml:"telemetry"`
	Logging     LoggingConfig      `yaml:"logging"`
}

// ServerConfig configures the HTTP listener.
type ServerConfig struct {
	Port            int           `yaml:"port" validate:"min=1,max=65535"`
	GinMode         string        `yaml:"gin_mode" validate:"omitempty,oneof=debug release test"`
	AllowedOrigins  []string      `yaml:"allowed_origins"`
	ShutdownTimeout time.Duration `yaml:"shutdown_timeout" validate:"min=0"`
}

// AnalysisConfig adds request throttling to the gateway configuration.
type AnalysisConfig struct {
	analysis.Config `yaml:",inline"`

	// RateLimit is the sustained analyze requests per second per server.
	// Zero disables limiting.
	RateLimit float64 `yaml:"rate_limit" validate:"min=0"`

	// Burst is the limiter bucket size.
	Burst int `yaml:"burst" validate:"min=0"`
}

// StoreConfig selects the project snapshot store.
type StoreConfig struct {
	Driver string `yaml:"driver" validate:"oneof=badger sqlite memory"`
	Path   string `yaml:"path" validate:"required_unless=Driver memory"`
}

// LoggingConfig configures pkg/logging.
type LoggingConfig struct {
	Level string `yaml:"level" validate:"omitempty,oneof=debug info warn warning error"`
	JSON  bool   `yaml:"json"`
	Dir   string `yaml:"dir"`
}

// Default returns the built-in configuration.
func Default() Config {
	return Config{
		Server: ServerConfig{
			Port:            4000,
			GinMode:         "release",
			AllowedOrigins:  []string{"*"},
			ShutdownTimeout: 10 * time.Second,
		},
		Interpreter: interpreter.DefaultConfig(),
		Analysis: AnalysisConfig{
			Config:    analysis.DefaultConfig(),
			RateLimit: 5,
			Burst:     10,
		},
		Store: StoreConfig{
			Driver: "badger",
			Path:   "~/.stipula/projects",
		},
		Telemetry: telemetry.DefaultConfig(),
		Logging:   LoggingConfig{Level: "info"},
	}
}

var validate = validator.New()

// Load builds a Config from defaults, an optional YAML file and the
// environment.
//
// # Inputs
//
//   - path: YAML file. Empty falls back to $STIPULA_CONFIG; if that is also
//     empty or names a missing file, only defaults and environment apply. An
//     explicit path that does not exist is an error.
//
// # Outputs
//
//   - Config: The validated configuration.
//   - error: Read, parse, environment or validation failure.
func Load(path string) (Config, error) {
	cfg := Default()

	explicit := path != ""
	if !explicit {
		path = os.Getenv(EnvConfigPath)
	}
	if path != "" {
		data, err := os.ReadFile(path)
		switch {
		case err == nil:
			if err := yaml.Unmarshal(data, &cfg); err != nil {
				return Config{}, fmt.Errorf("parse config %s: %w", path, err)
			}
		case errors.Is(err, os.ErrNotExist) && !explicit:
		default:
			return Config{}, fmt.Errorf("read config: %w", err)
		}
	}

	if err := cfg.applyEnv(); err != nil {
		return Config{}, err
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// Validate checks field constraints.
func (c Config) Validate() error {
	if err := validate.Struct(c); err != nil {
		return fmt.Errorf("invalid config: %w", err)
	}
	for tool, tc := range c.Analysis.Tools {
		if tc.Command == "" {
			return fmt.Errorf("invalid config: analysis tool %s has no command", tool)
		}
	}
	return nil
}

func (c *Config) applyEnv() error {
	if v := os.Getenv("STIPULA_PORT"); v != "" {
		port, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("STIPULA_PORT: %w", err)
		}
		c.Server.Port = port
	}
	if v := os.Getenv("STIPULA_TEMP_DIR"); v != "" {
		c.Interpreter.TempDir = v
		c.Analysis.TempDir = v
	}
	if v := os.Getenv("STIPULA_INTERPRETER_CMD"); v != "" {
		c.Interpreter.Command, c.Interpreter.Args = splitCommand(v)
	}
	if v := os.Getenv("STIPULA_ANALYZER_CMD"); v != "" {
		c.setToolCommand(analysis.ToolUnreachability, v)
	}
	if v := os.Getenv("STIPULA_LIQUIDITY_CMD"); v != "" {
		c.setToolCommand(analysis.ToolLiquidity, v)
	}
	if v := os.Getenv("STIPULA_STORE_DRIVER"); v != "" {
		c.Store.Driver = v
	}
	if v := os.Getenv("STIPULA_STORE_PATH"); v != "" {
		c.Store.Path = v
	}
	if v := os.Getenv("STIPULA_LOG_LEVEL"); v != "" {
		c.Logging.Level = v
	}
	if v := os.Getenv("OTEL_EXPORTER_OTLP_ENDPOINT"); v != "" {
		c.Telemetry.OTLPEndpoint = v
	}
	if v := os.Getenv("OTEL_TRACES_EXPORTER"); v != "" {
		c.Telemetry.TraceExporter = v
	}
	return nil
}

// setToolCommand replaces the launch line of tool, keeping its flags.
func (c *Config) setToolCommand(tool analysis.Tool, line string) {
	if c.Analysis.Tools == nil {
		c.Analysis.Tools = make(map[analysis.Tool]analysis.ToolConfig)
	}
	tc := c.Analysis.Tools[tool]
	tc.Command, tc.Args = splitCommand(line)
	c.Analysis.Tools[tool] = tc
}

// splitCommand splits a whitespace separated command line. Quoting is not
// supported.
func splitCommand(line string) (string, []string) {
	fields := strings.Fields(line)
	if len(fields) == 0 {
		return "", nil
	}
	return fields[0], fields[1:]
}
