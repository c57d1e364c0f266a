// Copyright (C) 2025 QUEST Contributors
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

// Package orchestrator implements the Orchestrator (C9): the state
// machine that drives one run end to end, persists its artifacts, and
// asks the Router (C10) what to do next. Grounded on the teacher's
// services/code_buddy/agent/mcts.PlanningOrchestrator — a small struct
// holding its collaborators plus a config value, with one entry-point
// method that loops until a termination condition fires.
package orchestrator

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/deepaksaipendyala/QUEST/internal/agents"
	"github.com/deepaksaipendyala/QUEST/internal/config"
	"github.com/deepaksaipendyala/QUEST/internal/contextmining"
	"github.com/deepaksaipendyala/QUEST/internal/domain"
	"github.com/deepaksaipendyala/QUEST/internal/llm"
	"github.com/deepaksaipendyala/QUEST/internal/reliability"
	"github.com/deepaksaipendyala/QUEST/internal/router"
	"github.com/deepaksaipendyala/QUEST/internal/runner"
	"github.com/deepaksaipendyala/QUEST/internal/staticanalysis"
	"github.com/deepaksaipendyala/QUEST/internal/telemetry"
	"github.com/deepaksaipendyala/QUEST/pkg/logging"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

// Deps bundles every collaborator the state machine needs. Each is an
// interface or a thin struct built in its own package; Orchestrator owns
// none of their internals.
type Deps struct {
	Miner     *contextmining.Miner
	Cache     *contextmining.Cache // optional; nil disables caching
	Analyzer  *staticanalysis.Analyzer
	Drafter   agents.Drafter
	Refiner   agents.Refiner
	Critic    agents.Critic
	Runner    runner.Client
	Gateway   *llm.Gateway // used for the critic's optional supervisor pass
	Config    config.Config
	ArtifactsBaseDir string
	Metrics   *telemetry.Metrics // optional; nil disables metrics emission
}

// RunInput names the run's target and its artifact home.
type RunInput struct {
	RunID     string
	Repo      string
	Version   string
	CodeFile  string
	CodeSrc   []byte
}

// Orchestrator drives one run's DRAFT→ANALYZE→EXECUTE→CRITIQUE→ROUTE loop.
type Orchestrator struct {
	deps Deps
}

// New builds an Orchestrator over deps.
func New(deps Deps) *Orchestrator {
	return &Orchestrator{deps: deps}
}

// NewRunID returns a timestamp+uuid-suffix run_id (spec.md §3).
func NewRunID() string {
	return fmt.Sprintf("run-%d-%s", time.Now().UnixNano()/int64(time.Millisecond), uuid.New().String()[:8])
}

// Run executes the state machine to termination and returns the final
// run state alongside the written run_summary. A non-nil error is
// returned when the run directory cannot be created, or when the model
// call on attempt 0 fails with ConfigurationMissing, UpstreamTimeout or
// UpstreamError.
func (o *Orchestrator) Run(ctx context.Context, in RunInput) (domain.RunState, RunSummary, error) {
	cfg := o.deps.Config
	writer, err := NewArtifactWriter(o.deps.ArtifactsBaseDir, in.RunID)
	if err != nil {
		return domain.RunState{}, RunSummary{}, fmt.Errorf("orchestrator: %w", err)
	}
	events := newEventLogger(writer, in.RunID)

	state := domain.RunState{
		RunID:          in.RunID,
		TargetCoverage: cfg.Targets.Coverage,
		TargetMutation: cfg.Targets.Mutation,
		MaxIterations:  cfg.MaxIterations,
		MaxTotalCost:   cfg.MaxTotalCost,
	}
	summary := RunSummary{RunID: in.RunID}

	events.record(0, stateInit, true, 0, 0)
	if o.deps.Metrics != nil {
		o.deps.Metrics.RunsTotal.Add(ctx, 1)
	}

	pack, err := o.mineContext(ctx, in.CodeSrc)
	if err != nil {
		logging.Default().Warn("context mining failed, proceeding with an empty context pack", "error", err)
	}
	framework := contextmining.PrimaryFramework(pack)
	_ = writer.WriteJSON("context.json", pack)
	_ = writer.WriteText("target_code", string(in.CodeSrc))

	decodingOpts := llm.DecodingOptions{
		Model:          cfg.LLM.Model,
		Temperature:    cfg.LLM.Decoding.Temperature,
		TopP:           cfg.LLM.Decoding.TopP,
		MaxTokens:      cfg.LLM.Decoding.MaxTokens,
		TimeoutSeconds: cfg.LLM.TimeoutSeconds,
	}

	var (
		current     domain.TestArtifact
		critique    domain.Critique
		reason      string
		lastAttempt int
	)

	for attempt := 0; ; attempt++ {
		lastAttempt = attempt
		state.AttemptIndex = attempt
		attemptStart := time.Now()
		var phaseMS phaseTimings

		artifact, meta, fatalReason, gracefulReason := o.draftOrRefine(ctx, attempt, pack, in, framework, current, critique, decodingOpts, &phaseMS)
		if fatalReason != "" {
			o.recordAgentCall(ctx, attempt, "fatal")
			o.writeFatal(writer, events, attempt, fatalReason)
			summary.Reason = fatalReason
			summary.Iterations = attempt
			return state, summary, fmt.Errorf("orchestrator: %w: %s", errFatal, fatalReason)
		}
		if gracefulReason != "" {
			o.recordAgentCall(ctx, attempt, "graceful")
			reason = gracefulReason
			lastAttempt = attempt - 1
			break
		}
		o.recordAgentCall(ctx, attempt, "ok")
		current = artifact

		req := runner.Request{Repo: in.Repo, Version: in.Version, CodeFile: in.CodeFile, TestSrc: current.Text}
		_ = writer.WriteJSON(attemptFilename(attempt, "request.json"), req)
		_ = writer.WriteText(attemptFilename(attempt, "test_src"), current.Text)
		_ = writer.WriteJSON(attemptFilename(attempt, "llm_metadata.json"), meta)

		draftOrRefineState := stateDraft
		if attempt > 0 {
			draftOrRefineState = stateRefine
		}
		events.record(attempt, draftOrRefineState, true, 0, 0)

		analyzeStart := time.Now()
		static, err := o.deps.Analyzer.Analyze(ctx, current, cfg.StaticAnalysis)
		if err != nil {
			logging.Default().Warn("static analysis failed, treating as invalid syntax", "error", err)
			static = domain.StaticReport{SyntaxOK: false, SyntaxError: err.Error()}
		}
		pre := reliability.PredictPre(meta.Entropy, meta.AvgLogprob, meta.OutputTokens, static, cfg.Reliability)
		phaseMS.AnalyzeMS = time.Since(analyzeStart).Milliseconds()
		_ = writer.WriteJSON(attemptFilename(attempt, "static.json"), static)
		_ = writer.WriteJSON(attemptFilename(attempt, "pre_reliability.json"), pre)
		events.record(attempt, stateAnalyze, true, 0, 0)

		executeStart := time.Now()
		resp, err := o.deps.Runner.Execute(ctx, req)
		if err != nil {
			logging.Default().Warn("runner error, substituting a synthetic failed response", "error", err)
			resp = domain.RunnerResponse{Success: false, ExitCode: -1, Coverage: -1, MutationScore: -1, MutationNum: -1, TestError: err.Error()}
		}
		phaseMS.ExecuteMS = time.Since(executeStart).Milliseconds()
		_ = writer.WriteJSON(attemptFilename(attempt, "response.json"), resp)
		events.record(attempt, stateExecute, resp.Success, resp.Coverage, resp.MutationScore)

		post := reliability.PredictPost(pre.Level, resp, static, cfg.Targets.Coverage, cfg.Targets.Mutation, cfg.Reliability.LintDowngradeThreshold)
		_ = writer.WriteJSON(attemptFilename(attempt, "post_reliability.json"), post)

		if o.deps.Metrics != nil {
			o.deps.Metrics.RunnerCallsTotal.Add(ctx, 1, metric.WithAttributes(attribute.Bool("success", resp.Success)))
			o.deps.Metrics.RunnerCallDuration.Record(ctx, float64(phaseMS.ExecuteMS)/1000)
			o.deps.Metrics.Coverage.Record(ctx, resp.Coverage)
			o.deps.Metrics.MutationScore.Record(ctx, resp.MutationScore)
			o.deps.Metrics.ReliabilityPreLevelTotal.Add(ctx, 1, metric.WithAttributes(attribute.String("level", string(pre.Level))))
			o.deps.Metrics.ReliabilityPostLevelTotal.Add(ctx, 1, metric.WithAttributes(attribute.String("level", string(post.Level))))
		}

		critiqueStart := time.Now()
		critique, state.StagnationCount = o.deps.Critic.Critique(ctx, agents.CriticInput{
			Runner:          resp,
			Static:          static,
			Pre:             pre,
			Post:            post,
			TargetCoverage:  cfg.Targets.Coverage,
			TargetMutation:  cfg.Targets.Mutation,
			LastCoverage:    state.LastCoverage,
			HasLastCoverage: state.HasLastCoverage,
			LastMutation:    state.LastMutation,
			HasLastMutation: state.HasLastMutation,
			StagnationCount: state.StagnationCount,
			CurrentTestText: current.Text,
			UseLLM:          cfg.Supervisor.UseLLM,
			Gateway:         o.deps.Gateway,
			Opts:            decodingOpts,
		})
		phaseMS.CritiqueMS = time.Since(critiqueStart).Milliseconds()
		_ = writer.WriteJSON(attemptFilename(attempt, "critique.json"), critique)
		if critique.LLMSupervisorMetadata != nil {
			_ = writer.WriteJSON(attemptFilename(attempt, "supervisor_llm_metadata.json"), critique.LLMSupervisorMetadata)
		}
		events.record(attempt, stateCritique, true, resp.Coverage, resp.MutationScore)

		if resp.Coverage > state.BestCoverage {
			state.BestCoverage = resp.Coverage
		}
		if resp.MutationScore > state.BestMutation {
			state.BestMutation = resp.MutationScore
		}
		state.LastCoverage = resp.Coverage
		state.HasLastCoverage = true
		if resp.MutationScore >= 0 {
			state.LastMutation = resp.MutationScore
			state.HasLastMutation = true
		}
		state.History = append(state.History, domain.CovMutPoint{Coverage: resp.Coverage, Mutation: resp.MutationScore})
		if meta.EstimatedCost != nil {
			state.AccumulatedCost += *meta.EstimatedCost
			summary.TotalCost += *meta.EstimatedCost
		}
		summary.InputTokens += meta.InputTokens
		summary.OutputTokens += meta.OutputTokens
		phaseMS.TotalMS = time.Since(attemptStart).Milliseconds()
		state.AccumulatedWallMS += phaseMS.TotalMS
		summary.addPhase(phaseMS)

		_ = writer.WriteJSON(attemptFilename(attempt, "metrics.json"), attemptMetrics{
			Attempt:      attempt,
			Phases:       phaseMS,
			Cost:         valueOr(meta.EstimatedCost, 0),
			InputTokens:  meta.InputTokens,
			OutputTokens: meta.OutputTokens,
			Coverage:     resp.Coverage,
			Mutation:     resp.MutationScore,
		})

		decision := router.Decide(critique, attempt+1, cfg.MaxIterations)
		events.record(attempt, stateRoute, true, resp.Coverage, resp.MutationScore)

		if o.deps.Metrics != nil {
			o.deps.Metrics.AttemptsTotal.Add(ctx, 1)
			o.deps.Metrics.AttemptDuration.Record(ctx, float64(phaseMS.TotalMS)/1000)
			o.deps.Metrics.RouterDecisionsTotal.Add(ctx, 1, metric.WithAttributes(attribute.String("decision", string(decision))))
			o.deps.Metrics.StagnationCount.Record(ctx, int64(state.StagnationCount))
		}

		if budgetExceeded(state, cfg) {
			reason = "budget-exceeded"
			break
		}

		if decision == domain.DecisionFinish {
			reason = finishReason(critique, attempt+1, cfg.MaxIterations)
			break
		}
	}

	summary.Iterations = lastAttempt + 1
	summary.FinalCoverage = state.BestCoverage
	summary.FinalMutation = state.BestMutation
	summary.Reason = reason

	events.finish(reason, lastAttempt)
	_ = writer.WriteJSON("run_summary.json", summary)
	if o.deps.Metrics != nil {
		o.deps.Metrics.RunFinishReason.Add(ctx, 1, metric.WithAttributes(attribute.String("reason", reason)))
	}

	return state, summary, nil
}

// recordAgentCall emits the agent_calls_total counter for one
// draft/refine call, labeled by outcome.
func (o *Orchestrator) recordAgentCall(ctx context.Context, attempt int, outcome string) {
	if o.deps.Metrics == nil {
		return
	}
	kind := "draft"
	if attempt > 0 {
		kind = "refine"
	}
	o.deps.Metrics.AgentCallsTotal.Add(ctx, 1, metric.WithAttributes(
		attribute.String("kind", kind),
		attribute.String("outcome", outcome),
	))
}

// errFatal is returned (wrapped) when the model gateway fails on attempt
// 0 with ConfigurationMissing, UpstreamTimeout, or UpstreamError — the
// fatal termination paths spec.md §4.9/§7 describe.
var errFatal = errors.New("model gateway failure on attempt 0")

func (o *Orchestrator) mineContext(ctx context.Context, source []byte) (domain.ContextPack, error) {
	if o.deps.Cache != nil {
		return o.deps.Miner.MineCached(ctx, source, "", o.deps.Cache)
	}
	return o.deps.Miner.Mine(ctx, source, "")
}

func (o *Orchestrator) writeFatal(writer *ArtifactWriter, events *eventLogger, attempt int, reason string) {
	events.record(attempt, stateDraft, false, 0, 0)
	events.finish(reason, attempt)
	_ = writer.WriteJSON("run_summary.json", RunSummary{Reason: reason, Iterations: attempt})
}

func valueOr(p *float64, fallback float64) float64 {
	if p == nil {
		return fallback
	}
	return *p
}

func budgetExceeded(state domain.RunState, cfg config.Config) bool {
	if cfg.MaxTotalCost > 0 && state.AccumulatedCost > cfg.MaxTotalCost {
		return true
	}
	if cfg.MaxTotalWallSeconds > 0 && state.AccumulatedWallMS > int64(cfg.MaxTotalWallSeconds)*1000 {
		return true
	}
	return false
}

// finishReason names why the router decided FINISH, for events.log and
// run_summary.json (spec.md §8's scenario reasons).
func finishReason(critique domain.Critique, attemptsDone, maxIterations int) string {
	switch {
	case attemptsDone >= maxIterations:
		return "max-iterations"
	case critique.NoProgress:
		return "stagnation"
	default:
		return "targets-met"
	}
}
