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
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/spf13/cobra"

	"github.com/AleutianAI/StipulaForge/pkg/ux"
	"github.com/AleutianAI/StipulaForge/services/contract"
	"github.com/AleutianAI/StipulaForge/services/contract/codegen"
)

// watchDebounce collapses the burst of events an editor save produces.
const watchDebounce = 150 * time.Millisecond

func newRenderCmd(_ *globalFlags) *cobra.Command {
	var (
		outDir string
		watch  bool
	)

	cmd := &cobra.Command{
		Use:   "render <project.json>",
		Short: "Generate Stipula source from a saved project",
		Long: `Render reads a project file and prints the generated contract.

With --out the contract and every higher-order input are written as
.stipula files into the directory. With --watch the project is rendered
again whenever the file changes.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			path := args[0]
			if err := renderOnce(cmd.OutOrStdout(), path, outDir); err != nil {
				return err
			}
			if !watch {
				return nil
			}
			ux.Info(fmt.Sprintf("watching %s", path))
			return watchFile(cmd.Context(), path, func() {
				if err := renderOnce(cmd.OutOrStdout(), path, outDir); err != nil {
					ux.Error(err.Error())
				}
			})
		},
	}

	cmd.Flags().StringVarP(&outDir, "out", "o", "", "write .stipula files into this directory")
	cmd.Flags().BoolVarP(&watch, "watch", "w", false, "re-render when the project file changes")
	return cmd
}

// renderedFile is one generated source file.
type renderedFile struct {
	name    string
	content string
}

// renderProject returns the contract followed by its higher-order inputs.
func renderProject(data []byte) ([]renderedFile, error) {
	snap, err := contract.DecodeSnapshot(data)
	if err != nil {
		return nil, err
	}
	project := contract.ProjectFromSnapshot(snap, codegen.Render)

	var files []renderedFile
	project.View(func(c *contract.Contract) {
		files = append(files, renderedFile{name: fileStem(c.Name, "contract")})
		for _, in := range c.Inputs() {
			files = append(files, renderedFile{
				name:    fileStem(in.Name, "input"),
				content: codegen.RenderHigherOrderInput(in),
			})
		}
	})
	files[0].content = project.Code()
	return files, nil
}

func renderOnce(stdout io.Writer, path, outDir string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return err
	}
	files, err := renderProject(data)
	if err != nil {
		return fmt.Errorf("%s: %w", path, err)
	}

	if outDir == "" {
		_, err := io.WriteString(stdout, files[0].content)
		return err
	}

	if err := checkDistinctNames(files); err != nil {
		return fmt.Errorf("%s: %w", path, err)
	}
	if err := os.MkdirAll(outDir, 0o755); err != nil {
		return err
	}
	for _, f := range files {
		target := filepath.Join(outDir, f.name+".stipula")
		if err := os.WriteFile(target, []byte(f.content), 0o644); err != nil {
			ux.FileStatus(target, ux.IconError, err.Error())
			return err
		}
		ux.FileStatus(target, ux.IconSuccess, fmt.Sprintf("%d bytes", len(f.content)))
	}
	return nil
}

// checkDistinctNames fails when two rendered files would share a file name,
// which happens when the contract is named after one of its inputs.
func checkDistinctNames(files []renderedFile) error {
	seen := make(map[string]bool, len(files))
	for _, f := range files {
		if seen[f.name] {
			return fmt.Errorf("output file %s.stipula would be written twice; rename the contract", f.name)
		}
		seen[f.name] = true
	}
	return nil
}

// fileStem turns a contract or input name into a safe file name.
func fileStem(name, fallback string) string {
	stem := strings.Map(func(r rune) rune {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9', r == '_', r == '-':
			return r
		case r == ' ':
			return '_'
		default:
			return -1
		}
	}, strings.TrimSpace(name))
	if stem == "" {
		return fallback
	}
	return stem
}

// watchFile calls onChange after path is written, created or replaced,
// until ctx is cancelled. The parent directory is watched so that editors
// that save through a rename keep being followed.
func watchFile(ctx context.Context, path string, onChange func()) error {
	abs, err := filepath.Abs(path)
	if err != nil {
		return err
	}

	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("create watcher: %w", err)
	}
	defer watcher.Close()

	if err := watcher.Add(filepath.Dir(abs)); err != nil {
		return fmt.Errorf("watch %s: %w", filepath.Dir(abs), err)
	}

	timer := time.NewTimer(time.Hour)
	timer.Stop()
	defer timer.Stop()

	for {
		select {
		case <-ctx.Done():
			return nil
		case event, ok := <-watcher.Events:
			if !ok {
				return nil
			}
			if filepath.Clean(event.Name) != abs {
				continue
			}
			if event.Has(fsnotify.Write) || event.Has(fsnotify.Create) || event.Has(fsnotify.Rename) {
				timer.Reset(watchDebounce)
			}
		case err, ok := <-watcher.Errors:
			if !ok {
				return nil
			}
			ux.Warning(fmt.Sprintf("watch: %v", err))
		case <-timer.C:
			if _, err := os.Stat(abs); err == nil {
				onChange()
			}
		}
	}
}
