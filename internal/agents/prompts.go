// Copyright (C) 2025 QUEST Contributors
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

// Package agents implements the Drafter (C5), Critic (C6), and Refiner
// (C7). Grounded on the teacher's three-collaborator-interface shape
// (services/llm.LLMClient, services/code_buddy/agent/mcts's strategy
// interfaces) rather than any one concrete prompt builder — the teacher
// never writes unit-test-synthesis prompts, so the prompt text itself is
// built fresh, in the teacher's strings.Builder idiom, from the
// framework guardrails spec.md §4.5/§4.7 enumerate.
package agents

import (
	"fmt"
	"strings"

	"github.com/deepaksaipendyala/QUEST/internal/domain"
)

const (
	goalLine = "Goal: maximize branch coverage and mutation kill rate for the target module below."

	globalConstraints = "Constraints: prefer real temporary-directory I/O over mocks when the target is I/O-bound; " +
		"no network access; no database access; output only raw source code, no markdown code fences."
)

func frameworkConstraints(framework domain.FrameworkHint) string {
	switch framework {
	case domain.FrameworkUnittestDjango:
		return "Framework: subclass django.test.TestCase. Do not import pytest. Use self.assertX methods and " +
			"unittest.mock for mocking."
	case domain.FrameworkPytest:
		return "Framework: pytest. Function-style test functions and fixtures are allowed."
	default:
		return "Framework: subclass unittest.TestCase. Do not import pytest. Use self.assertX methods and " +
			"unittest.mock for mocking."
	}
}

func refinerFrameworkConstraints(framework domain.FrameworkHint) string {
	switch framework {
	case domain.FrameworkPytest:
		return "Preserve the existing pytest style and remain consistent with the current module."
	default:
		return "Preserve the existing unittest style. Do not add an __main__ entry point that triggers the " +
			"runner directly. Avoid network and database access. Keep existing imports unless a change is " +
			"strictly necessary."
	}
}

// buildDraftPrompt assembles the Drafter's prompt (spec.md §4.5).
func buildDraftPrompt(pack domain.ContextPack, repo, version, targetFile string, framework domain.FrameworkHint) string {
	var b strings.Builder
	b.WriteString(goalLine)
	b.WriteString("\n\n")
	fmt.Fprintf(&b, "Repository: %s @ %s\nTarget file: %s\n\n", repo, version, targetFile)
	b.WriteString(frameworkConstraints(framework))
	b.WriteString("\n")
	b.WriteString(globalConstraints)
	b.WriteString("\n\n")

	if len(pack.Symbols) > 0 {
		fmt.Fprintf(&b, "Symbols under test: %s\n\n", strings.Join(pack.Symbols, ", "))
	}
	if len(pack.Docstrings) > 0 {
		b.WriteString("Docstrings:\n")
		for _, d := range pack.Docstrings {
			fmt.Fprintf(&b, "- %s\n", d)
		}
		b.WriteString("\n")
	}

	b.WriteString("Target source:\n")
	b.WriteString(pack.CodeSrc)
	b.WriteString("\n\nWrite a complete test module now.")
	return b.String()
}

// buildRefinePrompt assembles the Refiner's prompt (spec.md §4.7).
func buildRefinePrompt(currentTest string, instructions []string, pack domain.ContextPack, framework domain.FrameworkHint) string {
	if len(instructions) == 0 {
		instructions = []string{"improve coverage and robustness without breaking passing tests"}
	}

	var b strings.Builder
	b.WriteString(goalLine)
	b.WriteString("\n\n")
	b.WriteString(refinerFrameworkConstraints(framework))
	b.WriteString("\n")
	b.WriteString(globalConstraints)
	b.WriteString("\n\n")

	b.WriteString("Instructions, in priority order:\n")
	for i, instr := range instructions {
		fmt.Fprintf(&b, "%d. %s\n", i+1, instr)
	}
	b.WriteString("\n")

	if len(pack.Symbols) > 0 {
		fmt.Fprintf(&b, "Symbols under test: %s\n\n", strings.Join(pack.Symbols, ", "))
	}

	b.WriteString("Current test module:\n")
	b.WriteString(currentTest)
	b.WriteString("\n\nRewrite the test module now, addressing every instruction above.")
	return b.String()
}

// buildSupervisorPrompt asks the gateway for structured model-assisted
// critique suggestions under the six categories spec.md §4.6 enumerates.
func buildSupervisorPrompt(critique domain.Critique, testText string) string {
	var b strings.Builder
	b.WriteString("You are reviewing a synthesized unit-test module. Respond with a single JSON object with the " +
		"keys priority_issues, coverage_suggestions, mutation_suggestions, code_quality_suggestions, " +
		"test_strategy_suggestions, and next_steps, each an array of short strings. Output only the JSON object, " +
		"no markdown fences.\n\n")
	fmt.Fprintf(&b, "Rule-based findings: compile_error=%v low_coverage=%v low_mutation=%v lint_issue_count=%d\n\n",
		critique.CompileError, critique.LowCoverage, critique.LowMutation, critique.LintIssueCount)
	b.WriteString("Test module:\n")
	b.WriteString(testText)
	return b.String()
}
