// Copyright (C) 2025 QUEST Contributors
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

// Package router implements the Router (C10): a pure, total decision
// function over a Critique and attempt counters. Grounded on the
// teacher's preference for small pure decision functions inside a
// larger orchestrator (services/code_buddy/agent/mcts/orchestrator.go
// decides between strategies the same way — a short ordered chain of
// guard clauses, never a lookup table).
package router

import "github.com/deepaksaipendyala/QUEST/internal/domain"

// Decide returns exactly one of domain.DecisionRefine or
// domain.DecisionFinish for every input, in the priority order spec.md
// §4.10 enumerates.
func Decide(critique domain.Critique, attemptsDone, maxIterations int) domain.RouterDecision {
	if attemptsDone >= maxIterations {
		return domain.DecisionFinish
	}
	if critique.NoProgress {
		return domain.DecisionFinish
	}
	if critique.CompileError {
		return domain.DecisionRefine
	}
	if !critique.LowCoverage && !critique.LowMutation {
		return domain.DecisionFinish
	}
	return domain.DecisionRefine
}
