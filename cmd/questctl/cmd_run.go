// Copyright (C) 2025 QUEST Contributors
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"time"

	"github.com/spf13/cobra"
	"go.opentelemetry.io/otel"

	"github.com/deepaksaipendyala/QUEST/internal/agents"
	"github.com/deepaksaipendyala/QUEST/internal/config"
	"github.com/deepaksaipendyala/QUEST/internal/contextmining"
	"github.com/deepaksaipendyala/QUEST/internal/llm"
	"github.com/deepaksaipendyala/QUEST/internal/orchestrator"
	"github.com/deepaksaipendyala/QUEST/internal/runner"
	"github.com/deepaksaipendyala/QUEST/internal/staticanalysis"
	"github.com/deepaksaipendyala/QUEST/internal/telemetry"
	"github.com/deepaksaipendyala/QUEST/pkg/logging"
)

// runSynthesis is runCmd's RunE: it wires config.Global's collaborators
// into an orchestrator.Deps and drives one run to termination. Grounded
// on the teacher's cmd/aleutian commands pattern of a thin RunE that
// assembles collaborators from the loaded config and hands off to a
// single entry-point call.
func runSynthesis(cmd *cobra.Command, args []string) error {
	codeFile := args[0]
	cfg := config.Global

	codeSrc, err := os.ReadFile(codeFile)
	if err != nil {
		return fmt.Errorf("questctl: reading %s: %w", codeFile, err)
	}

	log := logging.New(logging.Config{Service: "questctl"})
	defer log.Close()

	runID, _ := cmd.Flags().GetString("run-id")
	if runID == "" {
		runID = orchestrator.NewRunID()
	}
	repo, _ := cmd.Flags().GetString("repo")
	version, _ := cmd.Flags().GetString("version")
	artifactsDir, _ := cmd.Flags().GetString("artifacts-dir")
	cacheDir, _ := cmd.Flags().GetString("cache-dir")

	var shutdown func(context.Context) error
	if cfg.Observability.Enable {
		telCfg := telemetry.DefaultConfig()
		telCfg.ServiceName = cfg.Observability.ServiceName
		telCfg.PrometheusPort = cfg.Observability.PrometheusPort
		shutdown, err = telemetry.Init(cmd.Context(), telCfg)
		if err != nil {
			return fmt.Errorf("questctl: telemetry init: %w", err)
		}
		defer shutdown(context.Background())

		if handler := telemetry.MetricsHandler(); handler != nil {
			addr := fmt.Sprintf(":%d", cfg.Observability.PrometheusPort)
			mux := http.NewServeMux()
			mux.Handle("/metrics", handler)
			metricsSrv := &http.Server{Addr: addr, Handler: mux}
			go func() {
				if err := metricsSrv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
					log.Warn("metrics server stopped", "error", err)
				}
			}()
			defer metricsSrv.Close()
		}
	}

	gateway, err := buildGateway(cfg)
	if err != nil {
		return fmt.Errorf("questctl: building model gateway: %w", err)
	}

	runnerClient := buildRunner(cfg)

	var linters *staticanalysis.LinterRunner
	if cfg.StaticAnalysis.Enable && len(cfg.StaticAnalysis.Tools) > 0 {
		linters = staticanalysis.NewLinterRunner()
		linters.DetectAvailable(cfg.StaticAnalysis.Tools)
	}

	var cache *contextmining.Cache
	if cacheDir != "" {
		cache, err = contextmining.OpenCache(cacheDir)
		if err != nil {
			return fmt.Errorf("questctl: opening context cache: %w", err)
		}
		defer cache.Close()
	}

	deps := orchestrator.Deps{
		Miner:            contextmining.NewMiner(),
		Cache:            cache,
		Analyzer:         staticanalysis.NewAnalyzer(linters),
		Drafter:          agents.NewLLMDrafter(gateway),
		Refiner:          agents.NewLLMRefiner(gateway),
		Critic:           agents.NewRuleBasedCritic(),
		Runner:           runnerClient,
		Gateway:          gateway,
		Config:           cfg,
		ArtifactsBaseDir: artifactsDir,
	}

	if cfg.Observability.Enable {
		metrics, err := telemetry.NewMetrics(otel.Meter("questctl"))
		if err != nil {
			return fmt.Errorf("questctl: building metrics: %w", err)
		}
		deps.Metrics = metrics
	}

	log.Info("starting run", "run_id", runID, "code_file", codeFile)
	start := time.Now()

	o := orchestrator.New(deps)
	var summary orchestrator.RunSummary
	runErr := spinWhileContext(cmd.Context(), fmt.Sprintf("synthesizing tests for %s", codeFile), func() error {
		_, s, err := o.Run(cmd.Context(), orchestrator.RunInput{
			RunID:    runID,
			Repo:     repo,
			Version:  version,
			CodeFile: codeFile,
			CodeSrc:  codeSrc,
		})
		summary = s
		return err
	})
	if runErr != nil {
		return fmt.Errorf("questctl: run %s: %w", runID, runErr)
	}

	log.Info("run finished",
		"run_id", runID,
		"reason", summary.Reason,
		"iterations", summary.Iterations,
		"final_coverage", summary.FinalCoverage,
		"final_mutation", summary.FinalMutation,
		"wall_time", time.Since(start),
	)
	fmt.Printf("run %s finished: %s (iterations=%d coverage=%.1f mutation=%.1f)\n",
		runID, summary.Reason, summary.Iterations, summary.FinalCoverage, summary.FinalMutation)
	return nil
}

// buildGateway constructs the Model Gateway's underlying Client per
// cfg.LLM.Provider, mirroring spec.md §6's provider enum.
func buildGateway(cfg config.Config) (*llm.Gateway, error) {
	if cfg.LLM.Dry || cfg.LLM.Provider == "dry" {
		return llm.NewGateway(llm.NewDryClient(), cfg.LLM.Model, true), nil
	}

	switch cfg.LLM.Provider {
	case "anthropic":
		client, err := llm.NewAnthropicClient()
		if err != nil {
			return nil, err
		}
		return llm.NewGateway(client, cfg.LLM.Model, false), nil
	case "openai":
		client, err := llm.NewOpenAIClient()
		if err != nil {
			return nil, err
		}
		return llm.NewGateway(client, cfg.LLM.Model, false), nil
	default:
		return nil, fmt.Errorf("unknown llm provider %q", cfg.LLM.Provider)
	}
}

// buildRunner constructs the Runner Client: a dry in-process stand-in
// when runner_url is "dry" (spec.md §6), otherwise an HTTP client.
func buildRunner(cfg config.Config) runner.Client {
	if cfg.RunnerURL == "" || cfg.RunnerURL == "dry" {
		return runner.NewDryClient(cfg.Targets.Coverage, cfg.Targets.Mutation)
	}
	client := runner.NewHTTPClient(cfg.RunnerURL, cfg.RunnerCodeURL, cfg.RunnerTimeout())
	return client.WithValidation(cfg.Runner.EnableValidation)
}
