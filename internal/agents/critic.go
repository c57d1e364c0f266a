// Copyright (C) 2025 QUEST Contributors
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

package agents

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/deepaksaipendyala/QUEST/internal/domain"
	"github.com/deepaksaipendyala/QUEST/internal/llm"
	"github.com/deepaksaipendyala/QUEST/pkg/logging"
)

// progressCoverageDelta and progressMutationDelta are the minimum gains
// over the prior attempt for an attempt to count as progress (spec.md
// §4.6). An attempt that makes progress leaves the stagnation count as
// it is; one that does not, with a target still missed, increments it.
// These are constants and are not read from config.
const (
	progressCoverageDelta = 1.0
	progressMutationDelta = 2.0
	stagnationNoProgressAt = 2
)

// noTestsMarkers are stdout substrings the sandbox's test runners are
// known to emit when a module contains zero collected tests.
var noTestsMarkers = []string{"collected 0 items", "no tests ran", "no tests collected"}

// CriticInput bundles everything the rule-based algorithm needs to judge
// one attempt (spec.md §4.6).
type CriticInput struct {
	Runner domain.RunnerResponse
	Static domain.StaticReport
	Pre    domain.PreReliabilityRecord
	Post   domain.PostReliabilityRecord

	TargetCoverage float64
	TargetMutation float64

	// LastCoverage/LastMutation are the immediately preceding attempt's
	// values (spec.md §4.6: "compute deltas against prior attempt"), not
	// the run's best-so-far. The Has* flags are false on the attempt
	// that establishes the baseline, so that attempt's delta is zero
	// and it does not count toward stagnation.
	LastCoverage    float64
	HasLastCoverage bool
	LastMutation    float64
	HasLastMutation bool

	// StagnationCount is the count carried over from the run state
	// before this attempt; Critique returns the updated count for the
	// caller to persist.
	StagnationCount int

	CurrentTestText string

	// UseLLM requests the optional model-assisted suggestions pass
	// (spec.md §4.6's "supervisor" step). Gateway may be nil when false.
	UseLLM  bool
	Gateway *llm.Gateway
	Opts    llm.DecodingOptions
}

// Critic is the Critic collaborator (C6).
type Critic interface {
	Critique(ctx context.Context, in CriticInput) (domain.Critique, int)
}

// RuleBasedCritic implements Critic with the deterministic rule
// algorithm spec.md §4.6 specifies, plus an optional model-assisted
// suggestions pass that never overrides the rule-based verdict.
type RuleBasedCritic struct{}

// NewRuleBasedCritic returns a RuleBasedCritic.
func NewRuleBasedCritic() *RuleBasedCritic {
	return &RuleBasedCritic{}
}

// Critique implements Critic. It never throws: any panic inside the
// optional model-assisted pass collapses into the rule-based verdict
// already computed, since that verdict alone is enough to keep the loop
// moving (spec.md §4.6 failure semantics).
func (c *RuleBasedCritic) Critique(ctx context.Context, in CriticInput) (critique domain.Critique, newStagnation int) {
	critique.CompileError = !in.Runner.Success || !in.Static.SyntaxOK
	critique.NoTests = hasNoTestsMarker(in.Runner.Stdout)
	critique.LowCoverage = in.Runner.Coverage < in.TargetCoverage
	critique.LowMutation = in.TargetMutation > 0 && (in.Runner.MutationScore < in.TargetMutation || in.Runner.MutationScore < 0)
	critique.MutationScore = in.Runner.MutationScore
	critique.LintIssueCount = in.Static.LintIssueCount
	critique.LintMissingTools = missingLintTools(in.Static.Lints)
	critique.MissingLines = in.Runner.CoverageDetails.MissingLines

	coverageBaseline := in.Runner.Coverage
	if in.HasLastCoverage {
		coverageBaseline = in.LastCoverage
	}
	critique.CoverageDelta = in.Runner.Coverage - coverageBaseline

	critique.MutationDelta = 0
	if in.Runner.MutationScore >= 0 {
		mutationBaseline := in.Runner.MutationScore
		if in.HasLastMutation {
			mutationBaseline = in.LastMutation
		}
		critique.MutationDelta = in.Runner.MutationScore - mutationBaseline
	}

	madeProgress := critique.CoverageDelta >= progressCoverageDelta || critique.MutationDelta >= progressMutationDelta
	newStagnation = in.StagnationCount
	if in.HasLastCoverage && !madeProgress && (critique.LowCoverage || critique.LowMutation) {
		newStagnation++
	}
	critique.NoProgress = newStagnation >= stagnationNoProgressAt

	critique.Instructions = buildInstructions(critique, in)

	if in.UseLLM && in.Gateway != nil {
		func() {
			defer func() {
				if r := recover(); r != nil {
					logging.Default().Warn("supervisor critique panicked, falling back to rule-based verdict", "panic", r)
				}
			}()
			suggestions, meta, err := runSupervisor(ctx, in.Gateway, in.Opts, critique, in.CurrentTestText)
			if err != nil {
				logging.Default().Warn("supervisor critique failed, falling back to rule-based verdict", "error", err)
				return
			}
			critique.LLMSuggestions = suggestions
			critique.LLMSupervisorMetadata = &meta
		}()
	}

	return critique, newStagnation
}

// buildInstructions builds the Refiner's instruction list in the strict
// priority order spec.md §4.6 specifies: syntax, then lint/type, then
// runner failure, then missing tests, then missing coverage lines, then
// mutation shortfall, then leftover TODO markers, then reliability
// reasons, then the runner's raw error text.
func buildInstructions(critique domain.Critique, in CriticInput) []string {
	var instr []string

	if !in.Static.SyntaxOK {
		instr = append(instr, fmt.Sprintf("fix the syntax error: %s", in.Static.SyntaxError))
	}

	if in.Static.LintIssueCount > 0 {
		instr = append(instr, fmt.Sprintf("resolve %d lint/type-checker issue(s) reported against the test module", in.Static.LintIssueCount))
	}

	if !in.Runner.Success && in.Static.SyntaxOK {
		instr = append(instr, "the test module failed to execute in the sandbox; ensure it imports correctly and every test method runs without raising")
	}

	if critique.NoTests {
		instr = append(instr, "no tests were collected; ensure at least one test case subclasses the expected base class and every test method name starts with test_")
	}

	if critique.LowCoverage && len(critique.MissingLines) > 0 {
		instr = append(instr, fmt.Sprintf("add coverage for the currently unexercised lines: %s", formatLineList(critique.MissingLines)))
	} else if critique.LowCoverage {
		instr = append(instr, fmt.Sprintf("coverage is %.1f%%, below the %.1f%% target; add tests for untested branches", in.Runner.Coverage, in.TargetCoverage))
	}

	if critique.LowMutation {
		instr = append(instr, fmt.Sprintf("mutation kill rate is %.1f%%, below the %.1f%% target; add assertions that would fail under a mutated implementation, not just a crashing one", in.Runner.MutationScore, in.TargetMutation))
	}

	if in.Static.TodoCount > 0 {
		instr = append(instr, fmt.Sprintf("resolve %d leftover TODO marker(s) in the test module before it is considered done", in.Static.TodoCount))
	}

	if in.Pre.Level == domain.ReliabilityLow && in.Pre.Rationale != "" {
		instr = append(instr, fmt.Sprintf("reliability concern: %s", in.Pre.Rationale))
	}
	for _, reason := range in.Post.Reasons {
		instr = append(instr, fmt.Sprintf("reliability concern: %s", reason))
	}

	if txt := visibleRunnerError(in.Runner); txt != "" {
		instr = append(instr, fmt.Sprintf("runner reported: %s", txt))
	}

	return instr
}

// missingLintTools names the configured tools a StaticReport reports as
// unavailable, so a lint_issue_count of 0 can be told apart from "every
// tool ran clean" versus "no tool actually ran".
func missingLintTools(lints []domain.LintRecord) []string {
	var missing []string
	for _, l := range lints {
		if !l.Available {
			missing = append(missing, l.Tool)
		}
	}
	return missing
}

func visibleRunnerError(resp domain.RunnerResponse) string {
	if resp.TestError != "" {
		return resp.TestError
	}
	return excerptStderr(resp.Stderr)
}

func excerptStderr(s string) string {
	const maxLen = 500
	s = strings.TrimSpace(s)
	if s == "" {
		return ""
	}
	if len(s) > maxLen {
		return s[:maxLen] + "..."
	}
	return s
}

func formatLineList(lines []int) string {
	const maxShown = 20
	if len(lines) <= maxShown {
		return fmt.Sprintf("%v", lines)
	}
	return fmt.Sprintf("%v (and %d more)", lines[:maxShown], len(lines)-maxShown)
}

func hasNoTestsMarker(stdout string) bool {
	lower := strings.ToLower(stdout)
	for _, marker := range noTestsMarkers {
		if strings.Contains(lower, marker) {
			return true
		}
	}
	return false
}

// runSupervisor asks the gateway for structured suggestions and parses
// them leniently: a malformed or non-JSON reply is not an error the
// caller needs to see, since the rule-based critique already stands on
// its own.
func runSupervisor(ctx context.Context, gateway *llm.Gateway, opts llm.DecodingOptions, critique domain.Critique, testText string) (*domain.LLMSuggestions, domain.LLMMetadata, error) {
	prompt := buildSupervisorPrompt(critique, testText)

	text, meta, err := gateway.Complete(ctx, prompt, opts, false)
	if err != nil {
		return nil, domain.LLMMetadata{}, err
	}

	var suggestions domain.LLMSuggestions
	if err := json.Unmarshal([]byte(strings.TrimSpace(text)), &suggestions); err != nil {
		return nil, meta, fmt.Errorf("parse supervisor suggestions: %w", err)
	}
	return &suggestions, meta, nil
}
