// Copyright (C) 2025 QUEST Contributors
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

package orchestrator

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/deepaksaipendyala/QUEST/internal/domain"
	"github.com/deepaksaipendyala/QUEST/internal/llm"
	"github.com/deepaksaipendyala/QUEST/internal/questerr"
	"github.com/deepaksaipendyala/QUEST/pkg/logging"
)

// phaseTimings is one attempt's wall-clock breakdown, written into
// attempt_<k>.metrics.json and summed into run_summary.json.
type phaseTimings struct {
	AnalyzeMS  int64 `json:"analyze_ms"`
	ExecuteMS  int64 `json:"execute_ms"`
	CritiqueMS int64 `json:"critique_ms"`
	TotalMS    int64 `json:"total_ms"`
}

// attemptMetrics is the content of attempt_<k>.metrics.json.
type attemptMetrics struct {
	Attempt      int          `json:"attempt"`
	Phases       phaseTimings `json:"phases"`
	Cost         float64      `json:"cost"`
	InputTokens  int          `json:"input_tokens"`
	OutputTokens int          `json:"output_tokens"`
	Coverage     float64      `json:"coverage"`
	Mutation     float64      `json:"mutation_score"`
}

// RunSummary is the content of the once-per-run run_summary.json
// (spec.md §4.9: "totals: iterations, cost, input/output tokens,
// wall-clock per phase, final coverage and mutation").
type RunSummary struct {
	RunID         string       `json:"run_id"`
	Iterations    int          `json:"iterations"`
	TotalCost     float64      `json:"total_cost"`
	InputTokens   int          `json:"input_tokens"`
	OutputTokens  int          `json:"output_tokens"`
	WallMS        phaseTimings `json:"wall_ms"`
	FinalCoverage float64      `json:"final_coverage"`
	FinalMutation float64      `json:"final_mutation"`
	Reason        string       `json:"reason"`
}

func (s *RunSummary) addPhase(p phaseTimings) {
	s.WallMS.AnalyzeMS += p.AnalyzeMS
	s.WallMS.ExecuteMS += p.ExecuteMS
	s.WallMS.CritiqueMS += p.CritiqueMS
	s.WallMS.TotalMS += p.TotalMS
}

// draftOrRefine runs attempt 0's Drafter call or a later attempt's
// Refiner call, classifying the model gateway's error kinds per
// spec.md §7: ConfigurationMissing/UpstreamTimeout/UpstreamError are
// fatal on attempt 0 and end the loop gracefully on any later attempt.
// Any other error, or a recovered panic, degrades to an empty test
// artifact so the pipeline's own syntax check drives a repair
// instruction instead (spec.md §7: "any uncaught exception in an agent
// ... treated as a failed attempt").
func (o *Orchestrator) draftOrRefine(
	ctx context.Context,
	attempt int,
	pack domain.ContextPack,
	in RunInput,
	framework domain.FrameworkHint,
	current domain.TestArtifact,
	critique domain.Critique,
	opts llm.DecodingOptions,
	phaseMS *phaseTimings,
) (artifact domain.TestArtifact, meta domain.LLMMetadata, fatalReason, gracefulReason string) {
	var err error
	callStart := time.Now()

	func() {
		defer func() {
			if r := recover(); r != nil {
				logging.Default().Warn("agent panicked, treating as a failed attempt", "panic", r, "attempt", attempt)
				err = fmt.Errorf("agent panic: %v", r)
			}
		}()
		if attempt == 0 {
			artifact, meta, err = o.deps.Drafter.Draft(ctx, pack, in.Repo, in.Version, in.CodeFile, framework, opts)
		} else {
			artifact, meta, err = o.deps.Refiner.Refine(ctx, current, critique, pack, opts)
		}
	}()

	if o.deps.Metrics != nil {
		elapsed := time.Since(callStart).Seconds()
		if attempt == 0 {
			o.deps.Metrics.DraftDuration.Record(ctx, elapsed)
		} else {
			o.deps.Metrics.RefineDuration.Record(ctx, elapsed)
		}
	}

	if err == nil {
		return artifact, meta, "", ""
	}

	reason := classifyModelError(err)
	if reason != "" {
		if attempt == 0 {
			return domain.TestArtifact{}, domain.LLMMetadata{}, reason, ""
		}
		return domain.TestArtifact{}, domain.LLMMetadata{}, "", reason
	}

	logging.Default().Warn("draft/refine failed, substituting an empty test artifact", "error", err, "attempt", attempt)
	return domain.TestArtifact{Text: "", Framework: framework}, domain.LLMMetadata{}, "", ""
}

// classifyModelError maps a model-gateway error to its events.log/
// run_summary reason, or "" if it is not one of the three kinds
// spec.md §7 singles out.
func classifyModelError(err error) string {
	switch {
	case errors.Is(err, questerr.ErrConfigurationMissing):
		return "configuration-missing"
	case errors.Is(err, questerr.ErrUpstreamTimeout):
		return "upstream-timeout"
	case errors.Is(err, questerr.ErrUpstreamError):
		return "upstream-error"
	default:
		return ""
	}
}
