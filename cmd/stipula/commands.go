// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package main

import (
	"errors"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/AleutianAI/StipulaForge/pkg/config"
	"github.com/AleutianAI/StipulaForge/pkg/logging"
	"github.com/AleutianAI/StipulaForge/pkg/ux"
)

// version is set at build time with -ldflags "-X main.version=...".
var version = "dev"

// errReported marks failures that were already printed to the user.
var errReported = errors.New("reported")

// globalFlags are shared by every subcommand.
type globalFlags struct {
	configPath string
	logLevel   string
	logJSON    bool
	output     string
}

func newRootCmd() *cobra.Command {
	flags := &globalFlags{}

	root := &cobra.Command{
		Use:           "stipula",
		Short:         "Stipula contract studio backend and tools",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRun: func(cmd *cobra.Command, _ []string) {
			if cmd.Flags().Changed("output") {
				ux.SetLevel(ux.ParseLevel(flags.output))
			}
		},
	}

	pf := root.PersistentFlags()
	pf.StringVarP(&flags.configPath, "config", "c", "", "YAML config file (default $STIPULA_CONFIG)")
	pf.StringVar(&flags.logLevel, "log-level", "", "override the configured log level")
	pf.BoolVar(&flags.logJSON, "log-json", false, "force JSON logs (default when stderr is not a terminal)")
	pf.StringVar(&flags.output, "output", "", "CLI output style: rich, plain or machine")

	root.AddCommand(
		newServeCmd(flags),
		newRenderCmd(flags),
		newAnalyzeCmd(flags),
		newVersionCmd(),
	)
	return root
}

// loadConfig reads the configuration and applies the global flag overrides.
func loadConfig(flags *globalFlags) (config.Config, error) {
	cfg, err := config.Load(flags.configPath)
	if err != nil {
		return cfg, err
	}
	if flags.logLevel != "" {
		cfg.Logging.Level = flags.logLevel
	}
	if flags.logJSON || !ux.IsTerminal(os.Stderr) {
		cfg.Logging.JSON = true
	}
	return cfg, nil
}

func newLogger(cfg config.Config, service string) (*logging.Logger, error) {
	level, err := logging.ParseLevel(cfg.Logging.Level)
	if err != nil {
		return nil, err
	}
	return logging.New(logging.Config{
		Level:   level,
		LogDir:  cfg.Logging.Dir,
		Service: service,
		JSON:    cfg.Logging.JSON,
	}), nil
}

func newVersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print the version",
		Args:  cobra.NoArgs,
		Run: func(cmd *cobra.Command, _ []string) {
			fmt.Fprintf(cmd.OutOrStdout(), "stipula %s\n", version)
		},
	}
}
