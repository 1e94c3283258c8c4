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

	"github.com/AleutianAI/StipulaForge/pkg/ux"
	"github.com/AleutianAI/StipulaForge/services/analysis"
)

func newAnalyzeCmd(flags *globalFlags) *cobra.Command {
	var (
		tool    string
		verbose bool
	)

	cmd := &cobra.Command{
		Use:   "analyze <contract.stipula>",
		Short: "Run a static analyzer on a contract file",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			source, err := os.ReadFile(args[0])
			if err != nil {
				return err
			}
			t, err := analysis.ParseTool(tool)
			if err != nil {
				return err
			}

			cfg, err := loadConfig(flags)
			if err != nil {
				return err
			}
			logger, err := newLogger(cfg, "cli")
			if err != nil {
				return err
			}
			defer logger.Close()

			gateway := analysis.NewGateway(cfg.Analysis.Config, logger.Slog())
			mode := analysis.Mode{Tool: t, Verbose: verbose}

			spin := ux.NewSpinner(fmt.Sprintf("running %s analysis", t))
			spin.Start()
			report, err := gateway.Analyze(cmd.Context(), string(source), mode)
			spin.Stop()

			title := fmt.Sprintf("%s analysis of %s", t, args[0])
			var failure *analysis.Failure
			switch {
			case errors.As(err, &failure):
				ux.ErrorBox(title, failure.Stderr)
				return errReported
			case err != nil:
				return err
			}
			ux.Box(title, report)
			return nil
		},
	}

	cmd.Flags().StringVarP(&tool, "tool", "t", string(analysis.ToolUnreachability), "unreachability or liquidity")
	cmd.Flags().BoolVarP(&verbose, "verbose", "v", false, "full report instead of the short form")
	return cmd
}
