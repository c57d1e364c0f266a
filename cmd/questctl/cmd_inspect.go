// Copyright (C) 2025 QUEST Contributors
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

package main

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/deepaksaipendyala/QUEST/internal/orchestrator"
)

// runInspect is inspectCmd's RunE: it prints a completed run's
// run_summary.json and events.log back to the caller, for spot-checking
// a run without having to open the artifact directory by hand.
func runInspect(cmd *cobra.Command, args []string) error {
	runID := args[0]
	artifactsDir, _ := cmd.Flags().GetString("artifacts-dir")
	if artifactsDir == "" {
		artifactsDir = "./runs"
	}
	dir := filepath.Join(artifactsDir, runID)

	summaryPath := filepath.Join(dir, "run_summary.json")
	data, err := os.ReadFile(summaryPath)
	if err != nil {
		return fmt.Errorf("questctl: reading %s: %w", summaryPath, err)
	}
	var summary orchestrator.RunSummary
	if err := json.Unmarshal(data, &summary); err != nil {
		return fmt.Errorf("questctl: parsing %s: %w", summaryPath, err)
	}

	fmt.Printf("run %s\n", summary.RunID)
	fmt.Printf("  reason:          %s\n", summary.Reason)
	fmt.Printf("  iterations:      %d\n", summary.Iterations)
	fmt.Printf("  final coverage:  %.1f\n", summary.FinalCoverage)
	fmt.Printf("  final mutation:  %.1f\n", summary.FinalMutation)
	fmt.Printf("  total cost:      %.4f\n", summary.TotalCost)
	fmt.Printf("  tokens in/out:   %d/%d\n", summary.InputTokens, summary.OutputTokens)
	fmt.Printf("  wall ms total:   %d\n", summary.WallMS.TotalMS)

	eventsPath := filepath.Join(dir, "events.log")
	if events, err := os.ReadFile(eventsPath); err == nil {
		fmt.Println("\nevents:")
		fmt.Println(string(events))
	}

	return nil
}

func init() {
	inspectCmd.Flags().String("artifacts-dir", "./runs", "base directory runs were written under")
}
