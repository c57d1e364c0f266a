// Copyright (C) 2025 QUEST Contributors
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

package telemetry

import (
	"fmt"

	"go.opentelemetry.io/otel/metric"
)

// Metrics holds the counters and histograms a run emits, grouped the
// way the teacher's Metrics struct groups HTTP/graph/Weaviate/MCTS
// metrics by subsystem. All instruments use the "quest_" prefix.
type Metrics struct {
	// --- Orchestrator attempt metrics ---

	AttemptsTotal     metric.Int64Counter
	AttemptDuration    metric.Float64Histogram
	RunsTotal          metric.Int64Counter
	RunFinishReason     metric.Int64Counter

	// --- Agent call metrics ---

	DraftDuration  metric.Float64Histogram
	RefineDuration metric.Float64Histogram
	AgentCallsTotal metric.Int64Counter

	// --- Runner metrics ---

	RunnerCallsTotal    metric.Int64Counter
	RunnerCallDuration  metric.Float64Histogram
	Coverage            metric.Float64Histogram
	MutationScore       metric.Float64Histogram

	// --- Critic/router metrics ---

	RouterDecisionsTotal metric.Int64Counter
	StagnationCount      metric.Int64Histogram

	// --- Reliability metrics ---

	ReliabilityPreLevelTotal  metric.Int64Counter
	ReliabilityPostLevelTotal metric.Int64Counter
}

// NewMetrics constructs every instrument against meter, grounded on the
// teacher's NewMetrics(meter) constructor shape.
func NewMetrics(meter metric.Meter) (*Metrics, error) {
	m := &Metrics{}
	var err error

	m.AttemptsTotal, err = meter.Int64Counter(
		"quest_attempts_total",
		metric.WithDescription("Total draft/refine attempts executed"),
		metric.WithUnit("{attempt}"),
	)
	if err != nil {
		return nil, fmt.Errorf("create attempts_total: %w", err)
	}

	m.AttemptDuration, err = meter.Float64Histogram(
		"quest_attempt_duration_seconds",
		metric.WithDescription("Wall-clock duration of one DRAFT/ANALYZE/EXECUTE/CRITIQUE cycle"),
		metric.WithUnit("s"),
		metric.WithExplicitBucketBoundaries(0.5, 1, 2, 5, 10, 20, 30, 60, 120, 300),
	)
	if err != nil {
		return nil, fmt.Errorf("create attempt_duration: %w", err)
	}

	m.RunsTotal, err = meter.Int64Counter(
		"quest_runs_total",
		metric.WithDescription("Total synthesis runs started"),
		metric.WithUnit("{run}"),
	)
	if err != nil {
		return nil, fmt.Errorf("create runs_total: %w", err)
	}

	m.RunFinishReason, err = meter.Int64Counter(
		"quest_run_finish_reason_total",
		metric.WithDescription("Runs finished, by reason (targets-met, stagnation, max-iterations, ...)"),
		metric.WithUnit("{run}"),
	)
	if err != nil {
		return nil, fmt.Errorf("create run_finish_reason_total: %w", err)
	}

	m.DraftDuration, err = meter.Float64Histogram(
		"quest_draft_duration_seconds",
		metric.WithDescription("Drafter model call duration"),
		metric.WithUnit("s"),
	)
	if err != nil {
		return nil, fmt.Errorf("create draft_duration: %w", err)
	}

	m.RefineDuration, err = meter.Float64Histogram(
		"quest_refine_duration_seconds",
		metric.WithDescription("Refiner model call duration"),
		metric.WithUnit("s"),
	)
	if err != nil {
		return nil, fmt.Errorf("create refine_duration: %w", err)
	}

	m.AgentCallsTotal, err = meter.Int64Counter(
		"quest_agent_calls_total",
		metric.WithDescription("Drafter/Refiner calls, by outcome (ok, fatal, graceful)"),
		metric.WithUnit("{call}"),
	)
	if err != nil {
		return nil, fmt.Errorf("create agent_calls_total: %w", err)
	}

	m.RunnerCallsTotal, err = meter.Int64Counter(
		"quest_runner_calls_total",
		metric.WithDescription("Sandboxed execution calls, by success"),
		metric.WithUnit("{call}"),
	)
	if err != nil {
		return nil, fmt.Errorf("create runner_calls_total: %w", err)
	}

	m.RunnerCallDuration, err = meter.Float64Histogram(
		"quest_runner_call_duration_seconds",
		metric.WithDescription("Sandboxed execution round-trip duration"),
		metric.WithUnit("s"),
	)
	if err != nil {
		return nil, fmt.Errorf("create runner_call_duration: %w", err)
	}

	m.Coverage, err = meter.Float64Histogram(
		"quest_attempt_coverage_percent",
		metric.WithDescription("Reported coverage percentage per attempt"),
		metric.WithUnit("%"),
		metric.WithExplicitBucketBoundaries(0, 10, 20, 30, 40, 50, 60, 70, 80, 90, 100),
	)
	if err != nil {
		return nil, fmt.Errorf("create attempt_coverage_percent: %w", err)
	}

	m.MutationScore, err = meter.Float64Histogram(
		"quest_attempt_mutation_score_percent",
		metric.WithDescription("Reported mutation kill rate per attempt"),
		metric.WithUnit("%"),
		metric.WithExplicitBucketBoundaries(0, 10, 20, 30, 40, 50, 60, 70, 80, 90, 100),
	)
	if err != nil {
		return nil, fmt.Errorf("create attempt_mutation_score_percent: %w", err)
	}

	m.RouterDecisionsTotal, err = meter.Int64Counter(
		"quest_router_decisions_total",
		metric.WithDescription("Router decisions, by value (REFINE, FINISH)"),
		metric.WithUnit("{decision}"),
	)
	if err != nil {
		return nil, fmt.Errorf("create router_decisions_total: %w", err)
	}

	m.StagnationCount, err = meter.Int64Histogram(
		"quest_stagnation_count",
		metric.WithDescription("Consecutive no-progress attempts at the moment the Critic evaluates"),
		metric.WithUnit("{attempt}"),
	)
	if err != nil {
		return nil, fmt.Errorf("create stagnation_count: %w", err)
	}

	m.ReliabilityPreLevelTotal, err = meter.Int64Counter(
		"quest_reliability_pre_level_total",
		metric.WithDescription("Pre-execution reliability judgments, by level"),
		metric.WithUnit("{attempt}"),
	)
	if err != nil {
		return nil, fmt.Errorf("create reliability_pre_level_total: %w", err)
	}

	m.ReliabilityPostLevelTotal, err = meter.Int64Counter(
		"quest_reliability_post_level_total",
		metric.WithDescription("Post-execution reliability judgments, by level"),
		metric.WithUnit("{attempt}"),
	)
	if err != nil {
		return nil, fmt.Errorf("create reliability_post_level_total: %w", err)
	}

	return m, nil
}
