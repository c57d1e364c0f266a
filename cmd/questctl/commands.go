// Copyright (C) 2025 QUEST Contributors
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

package main

import (
	"github.com/spf13/cobra"

	"github.com/deepaksaipendyala/QUEST/internal/config"
)

// --- Global Command Variables ---
var (
	configPath string

	rootCmd = &cobra.Command{
		Use:   "questctl",
		Short: "Drives a closed-loop, metric-driven unit test synthesis run",
		Long: `questctl orchestrates the Drafter/Critic/Refiner loop that turns
one target source module into a test suite meeting configured coverage
and mutation-score targets, persisting one artifact directory per run.`,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return config.Load(configPath)
		},
	}

	runCmd = &cobra.Command{
		Use:   "run [code-file]",
		Short: "Runs the synthesis loop against a target source file",
		Args:  cobra.ExactArgs(1),
		RunE:  runSynthesis, // defined in cmd_run.go
	}

	inspectCmd = &cobra.Command{
		Use:   "inspect [run-id]",
		Short: "Prints a completed run's summary and events log",
		Args:  cobra.ExactArgs(1),
		RunE:  runInspect, // defined in cmd_inspect.go
	}
)

func init() {
	rootCmd.PersistentFlags().StringVar(&configPath, "config", "config.yaml", "path to the QUEST config file")

	runCmd.Flags().String("run-id", "", "run identifier; a timestamp-derived one is generated when omitted")
	runCmd.Flags().String("repo", "", "repository identifier passed to the runner")
	runCmd.Flags().String("version", "", "repository version/commit passed to the runner")
	runCmd.Flags().String("artifacts-dir", "./runs", "base directory for per-run artifact subdirectories")
	runCmd.Flags().String("cache-dir", "", "optional context-mining cache directory; empty disables caching")

	rootCmd.AddCommand(runCmd)
	rootCmd.AddCommand(inspectCmd)
}
