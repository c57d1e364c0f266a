// Copyright (C) 2025 QUEST Contributors
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

package agents

import (
	"context"
	"testing"

	"github.com/deepaksaipendyala/QUEST/internal/domain"
	"github.com/deepaksaipendyala/QUEST/internal/llm"
)

func TestRuleBasedCritic_Critique_CompileErrorFromRunnerFailure(t *testing.T) {
	c := NewRuleBasedCritic()
	critique, _ := c.Critique(context.Background(), CriticInput{
		Runner: domain.RunnerResponse{Success: false},
		Static: domain.StaticReport{SyntaxOK: true},
	})
	if !critique.CompileError {
		t.Error("Critique() CompileError = false, want true when the runner reports failure")
	}
}

func TestRuleBasedCritic_Critique_CompileErrorFromBadSyntax(t *testing.T) {
	c := NewRuleBasedCritic()
	critique, _ := c.Critique(context.Background(), CriticInput{
		Runner: domain.RunnerResponse{Success: true},
		Static: domain.StaticReport{SyntaxOK: false, SyntaxError: "unexpected indent"},
	})
	if !critique.CompileError {
		t.Error("Critique() CompileError = false, want true on invalid syntax")
	}
	if len(critique.Instructions) == 0 || critique.Instructions[0] != "fix the syntax error: unexpected indent" {
		t.Errorf("Critique() Instructions[0] = %v, want the syntax fix as the top priority", critique.Instructions)
	}
}

func TestRuleBasedCritic_Critique_LintMissingToolsNamesUnavailableLinters(t *testing.T) {
	c := NewRuleBasedCritic()
	critique, _ := c.Critique(context.Background(), CriticInput{
		Runner: domain.RunnerResponse{Success: true, Coverage: 100},
		Static: domain.StaticReport{
			SyntaxOK: true,
			Lints: []domain.LintRecord{
				{Tool: "ruff", Available: true, IssueCount: 0},
				{Tool: "mypy", Available: false},
			},
		},
	})
	if got, want := critique.LintMissingTools, []string{"mypy"}; len(got) != 1 || got[0] != want[0] {
		t.Errorf("Critique() LintMissingTools = %v, want %v", got, want)
	}
}

func TestRuleBasedCritic_Critique_TodoCountAddsInstruction(t *testing.T) {
	c := NewRuleBasedCritic()
	critique, _ := c.Critique(context.Background(), CriticInput{
		Runner: domain.RunnerResponse{Success: true, Coverage: 100},
		Static: domain.StaticReport{SyntaxOK: true, TodoCount: 3},
	})
	found := false
	for _, instr := range critique.Instructions {
		if instr == "resolve 3 leftover TODO marker(s) in the test module before it is considered done" {
			found = true
		}
	}
	if !found {
		t.Errorf("Critique() Instructions = %v, want a TODO-resolution instruction for TodoCount = 3", critique.Instructions)
	}
}

func TestRuleBasedCritic_Critique_NoTestsDetectedFromStdoutMarker(t *testing.T) {
	c := NewRuleBasedCritic()
	critique, _ := c.Critique(context.Background(), CriticInput{
		Runner: domain.RunnerResponse{Success: true, Stdout: "collected 0 items"},
		Static: domain.StaticReport{SyntaxOK: true},
	})
	if !critique.NoTests {
		t.Error("Critique() NoTests = false, want true for a 'collected 0 items' stdout marker")
	}
}

func TestRuleBasedCritic_Critique_LowCoverageAndLowMutation(t *testing.T) {
	c := NewRuleBasedCritic()
	critique, _ := c.Critique(context.Background(), CriticInput{
		Runner:         domain.RunnerResponse{Success: true, Coverage: 30, MutationScore: 10},
		Static:         domain.StaticReport{SyntaxOK: true},
		TargetCoverage: 80,
		TargetMutation: 60,
	})
	if !critique.LowCoverage {
		t.Error("Critique() LowCoverage = false, want true for 30 < target 80")
	}
	if !critique.LowMutation {
		t.Error("Critique() LowMutation = false, want true for 10 < target 60")
	}
}

func TestRuleBasedCritic_Critique_ZeroMutationTargetDisablesLowMutation(t *testing.T) {
	c := NewRuleBasedCritic()
	critique, _ := c.Critique(context.Background(), CriticInput{
		Runner:         domain.RunnerResponse{Success: true, Coverage: 90, MutationScore: -1},
		Static:         domain.StaticReport{SyntaxOK: true},
		TargetCoverage: 80,
		TargetMutation: 0,
	})
	if critique.LowMutation {
		t.Error("Critique() LowMutation = true, want false when mutation testing is disabled (target 0)")
	}
}

func TestRuleBasedCritic_Critique_InstructionPriorityOrder(t *testing.T) {
	c := NewRuleBasedCritic()
	critique, _ := c.Critique(context.Background(), CriticInput{
		Runner: domain.RunnerResponse{
			Success:         true,
			Coverage:        30,
			MutationScore:   10,
			CoverageDetails: domain.CoverageDetails{MissingLines: []int{5, 6}},
			TestError:       "AssertionError at line 12",
		},
		Static:         domain.StaticReport{SyntaxOK: false, SyntaxError: "bad indent", LintIssueCount: 2},
		Post:           domain.PostReliabilityRecord{Reasons: []string{"coverage below target"}},
		TargetCoverage: 80,
		TargetMutation: 60,
	})

	want := []string{
		"fix the syntax error: bad indent",
		"resolve 2 lint/type-checker issue(s) reported against the test module",
		"add coverage for the currently unexercised lines: [5 6]",
		"mutation kill rate is 10.0%, below the 60.0% target; add assertions that would fail under a mutated implementation, not just a crashing one",
		"reliability concern: coverage below target",
		"runner reported: AssertionError at line 12",
	}
	if len(critique.Instructions) != len(want) {
		t.Fatalf("Critique() Instructions = %v, want %v", critique.Instructions, want)
	}
	for i, w := range want {
		if critique.Instructions[i] != w {
			t.Errorf("Critique() Instructions[%d] = %q, want %q", i, critique.Instructions[i], w)
		}
	}
}

func TestRuleBasedCritic_Critique_ProgressDoesNotIncrementStagnation(t *testing.T) {
	c := NewRuleBasedCritic()
	critique, newStagnation := c.Critique(context.Background(), CriticInput{
		Runner:          domain.RunnerResponse{Success: true, Coverage: 50, MutationScore: 20},
		Static:          domain.StaticReport{SyntaxOK: true},
		TargetCoverage:  80,
		TargetMutation:  60,
		LastCoverage:    40,
		HasLastCoverage: true,
		LastMutation:    20,
		HasLastMutation: true,
		StagnationCount: 1,
	})
	if newStagnation != 1 {
		t.Errorf("Critique() newStagnation = %d, want unchanged at 1 after a 10-point coverage gain", newStagnation)
	}
	if critique.NoProgress {
		t.Error("Critique() NoProgress = true, want false: progress was made this attempt")
	}
}

func TestRuleBasedCritic_Critique_StagnationAccumulatesToNoProgress(t *testing.T) {
	c := NewRuleBasedCritic()
	critique, newStagnation := c.Critique(context.Background(), CriticInput{
		Runner:          domain.RunnerResponse{Success: true, Coverage: 50, MutationScore: 20},
		Static:          domain.StaticReport{SyntaxOK: true},
		TargetCoverage:  80,
		TargetMutation:  60,
		LastCoverage:    50,
		HasLastCoverage: true,
		LastMutation:    20,
		HasLastMutation: true,
		StagnationCount: 1,
	})
	if newStagnation != 2 {
		t.Fatalf("Critique() newStagnation = %d, want 2 after a second attempt with no gain", newStagnation)
	}
	if !critique.NoProgress {
		t.Error("Critique() NoProgress = false, want true once stagnation reaches the threshold")
	}
}

func TestRuleBasedCritic_Critique_SupervisorFailureFallsBackSilently(t *testing.T) {
	c := NewRuleBasedCritic()
	stub := &stubLLMClient{result: llm.CompletionResult{Text: "not json"}}
	gw := llm.NewGateway(stub, "m", true)

	critique, _ := c.Critique(context.Background(), CriticInput{
		Runner:  domain.RunnerResponse{Success: true, Coverage: 90, MutationScore: 90},
		Static:  domain.StaticReport{SyntaxOK: true},
		UseLLM:  true,
		Gateway: gw,
	})
	if critique.LLMSuggestions != nil {
		t.Error("Critique() LLMSuggestions non-nil, want nil when the supervisor reply does not parse")
	}
}

func TestRuleBasedCritic_Critique_SupervisorSuccessAttachesSuggestions(t *testing.T) {
	c := NewRuleBasedCritic()
	stub := &stubLLMClient{result: llm.CompletionResult{Text: `{"priority_issues": ["add edge case tests"]}`}}
	gw := llm.NewGateway(stub, "m", true)

	critique, _ := c.Critique(context.Background(), CriticInput{
		Runner:  domain.RunnerResponse{Success: true, Coverage: 90, MutationScore: 90},
		Static:  domain.StaticReport{SyntaxOK: true},
		UseLLM:  true,
		Gateway: gw,
	})
	if critique.LLMSuggestions == nil || len(critique.LLMSuggestions.PriorityIssues) != 1 {
		t.Errorf("Critique() LLMSuggestions = %+v, want a parsed priority issue", critique.LLMSuggestions)
	}
	if critique.LLMSupervisorMetadata == nil {
		t.Error("Critique() LLMSupervisorMetadata = nil, want the supervisor call's metadata attached")
	}
}
