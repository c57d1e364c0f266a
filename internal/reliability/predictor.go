// Copyright (C) 2025 QUEST Contributors
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

// Package reliability implements the Reliability Predictor (C4):
// pre-execution scoring from uncertainty and static signals, and
// post-execution scoring from execution metrics against target
// thresholds. Grounded on the teacher's preference for small, pure
// scoring functions over thresholds held in config (see
// services/code_buddy/agent/mcts/orchestrator.go's budget/degradation
// checks, which follow the same "accumulate reasons in firing order"
// shape this package uses for its rationale strings).
package reliability

import (
	"fmt"
	"strings"

	"github.com/deepaksaipendyala/QUEST/internal/config"
	"github.com/deepaksaipendyala/QUEST/internal/domain"
)

// PredictPre computes the pre-execution reliability record from a
// model-call's entropy and the static report already computed for this
// attempt (spec.md §4.4).
func PredictPre(entropy *float64, avgLogprob *float64, tokenCount int, static domain.StaticReport, cfg config.ReliabilityConfig) domain.PreReliabilityRecord {
	level := levelFromEntropy(entropy, cfg)
	var firedRules []string

	if !static.SyntaxOK {
		level = domain.ReliabilityLow
		firedRules = append(firedRules, "syntax_ok=false forces low")
	} else {
		if static.LintIssueCount >= cfg.LintDowngradeThreshold && cfg.LintDowngradeThreshold > 0 {
			level = capAtMostMedium(level)
			firedRules = append(firedRules, fmt.Sprintf("lint_issue_count=%d >= %d caps at medium", static.LintIssueCount, cfg.LintDowngradeThreshold))
		}
		if cfg.ComplexityCeiling > 0 && static.CyclomaticComplexity > cfg.ComplexityCeiling {
			level = capAtMostMedium(level)
			firedRules = append(firedRules, fmt.Sprintf("cyclomatic_complexity=%d > ceiling %d caps at medium", static.CyclomaticComplexity, cfg.ComplexityCeiling))
		}
	}

	rationale := "entropy-derived level, no downgrades fired"
	if len(firedRules) > 0 {
		rationale = strings.Join(firedRules, "; ")
	}

	return domain.PreReliabilityRecord{
		Level:       level,
		Entropy:     entropy,
		AvgLogprob:  avgLogprob,
		TokenCount:  tokenCount,
		Rationale:   rationale,
		Static:      static,
		LintSummary: static.LintIssueCount,
	}
}

func levelFromEntropy(entropy *float64, cfg config.ReliabilityConfig) domain.ReliabilityLevelPre {
	if entropy == nil {
		return domain.ReliabilityUnknown
	}
	switch {
	case *entropy <= cfg.EntropyHigh:
		return domain.ReliabilityHigh
	case *entropy <= cfg.EntropyMedium:
		return domain.ReliabilityMedium
	default:
		return domain.ReliabilityLow
	}
}

// capAtMostMedium never upgrades a level; it only ever lowers high to
// medium, and leaves medium, low, and unknown untouched.
func capAtMostMedium(level domain.ReliabilityLevelPre) domain.ReliabilityLevelPre {
	if level == domain.ReliabilityHigh {
		return domain.ReliabilityMedium
	}
	return level
}

// PredictPost computes the post-execution reliability record from the
// runner's response, the static report, and target thresholds
// (spec.md §4.4). Reasons are appended in the exact firing order the
// spec enumerates, and the critique lists them in the same order.
func PredictPost(preLevel domain.ReliabilityLevelPre, resp domain.RunnerResponse, static domain.StaticReport, targetCoverage, targetMutation float64, lintDowngradeThreshold int) domain.PostReliabilityRecord {
	level := domain.ReliabilityPass
	var reasons []string

	atMostNeedsReview := func() {
		if level == domain.ReliabilityPass || level == domain.ReliabilityTrusted {
			level = domain.ReliabilityNeedsReview
		}
	}

	if !resp.Success {
		level = domain.ReliabilityDiscard
		reasons = append(reasons, "execution did not succeed")
	}
	if resp.TestError != "" {
		atMostNeedsReview()
		reasons = append(reasons, "runner reported a test error")
	}
	if resp.Coverage < targetCoverage {
		atMostNeedsReview()
		reasons = append(reasons, fmt.Sprintf("coverage %.1f below target %.1f", resp.Coverage, targetCoverage))
	}
	if targetMutation > 0 && resp.MutationScore < targetMutation {
		atMostNeedsReview()
		reasons = append(reasons, fmt.Sprintf("mutation score %.1f below target %.1f", resp.MutationScore, targetMutation))
	}
	if lintDowngradeThreshold > 0 && static.LintIssueCount >= lintDowngradeThreshold {
		atMostNeedsReview()
		reasons = append(reasons, fmt.Sprintf("lint_issue_count=%d unresolved", static.LintIssueCount))
	}

	if level == domain.ReliabilityPass && preLevel == domain.ReliabilityHigh {
		level = domain.ReliabilityTrusted
	}

	return domain.PostReliabilityRecord{
		PreLevel:       preLevel,
		Level:          level,
		Reasons:        reasons,
		Coverage:       resp.Coverage,
		TargetCoverage: targetCoverage,
		MutationScore:  resp.MutationScore,
		TargetMutation: targetMutation,
		Success:        resp.Success,
		LintSummary:    static.LintIssueCount,
	}
}
