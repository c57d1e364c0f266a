// Copyright (C) 2025 QUEST Contributors
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

package orchestrator

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"testing"

	"github.com/deepaksaipendyala/QUEST/internal/agents"
	"github.com/deepaksaipendyala/QUEST/internal/config"
	"github.com/deepaksaipendyala/QUEST/internal/contextmining"
	"github.com/deepaksaipendyala/QUEST/internal/domain"
	"github.com/deepaksaipendyala/QUEST/internal/llm"
	"github.com/deepaksaipendyala/QUEST/internal/questerr"
	"github.com/deepaksaipendyala/QUEST/internal/runner"
	"github.com/deepaksaipendyala/QUEST/internal/staticanalysis"
)

const validTestText = "import unittest\n\nclass ExampleTest(unittest.TestCase):\n    def test_ok(self):\n        self.assertTrue(True)\n"

const targetSource = "class Example:\n    def run(self):\n        return 1\n"

// fixedTextAgent is a scripted Drafter+Refiner that always returns the
// same source text, used by scenarios that only care about the
// runner/critic/router behavior, not draft content.
type fixedTextAgent struct {
	text string
}

func (a *fixedTextAgent) Draft(_ context.Context, _ domain.ContextPack, _, _, _ string, framework domain.FrameworkHint, _ llm.DecodingOptions) (domain.TestArtifact, domain.LLMMetadata, error) {
	return domain.TestArtifact{Text: a.text, Framework: framework}, domain.LLMMetadata{Model: "fake"}, nil
}

func (a *fixedTextAgent) Refine(_ context.Context, current domain.TestArtifact, _ domain.Critique, _ domain.ContextPack, _ llm.DecodingOptions) (domain.TestArtifact, domain.LLMMetadata, error) {
	return domain.TestArtifact{Text: a.text, Framework: current.Framework}, domain.LLMMetadata{Model: "fake"}, nil
}

// sequencedAgent drafts invalidText on attempt 0 and refines to validText
// on every later attempt (scenario S3).
type sequencedAgent struct {
	invalidText string
	validText   string
}

func (a *sequencedAgent) Draft(_ context.Context, _ domain.ContextPack, _, _, _ string, framework domain.FrameworkHint, _ llm.DecodingOptions) (domain.TestArtifact, domain.LLMMetadata, error) {
	return domain.TestArtifact{Text: a.invalidText, Framework: framework}, domain.LLMMetadata{Model: "fake"}, nil
}

func (a *sequencedAgent) Refine(_ context.Context, current domain.TestArtifact, _ domain.Critique, _ domain.ContextPack, _ llm.DecodingOptions) (domain.TestArtifact, domain.LLMMetadata, error) {
	return domain.TestArtifact{Text: a.validText, Framework: current.Framework}, domain.LLMMetadata{Model: "fake"}, nil
}

// timeoutOnCall returns validText on every call except callIndex (0 = the
// draft call, 1 = the first refine, 2 = the second refine, ...), where it
// returns an UpstreamTimeout error (scenario S4).
type timeoutOnCall struct {
	validText string
	callIndex int
	calls     int
}

func (a *timeoutOnCall) next() error {
	idx := a.calls
	a.calls++
	if idx == a.callIndex {
		return fmt.Errorf("%w: simulated model timeout", questerr.ErrUpstreamTimeout)
	}
	return nil
}

func (a *timeoutOnCall) Draft(_ context.Context, _ domain.ContextPack, _, _, _ string, framework domain.FrameworkHint, _ llm.DecodingOptions) (domain.TestArtifact, domain.LLMMetadata, error) {
	if err := a.next(); err != nil {
		return domain.TestArtifact{}, domain.LLMMetadata{}, err
	}
	return domain.TestArtifact{Text: a.validText, Framework: framework}, domain.LLMMetadata{Model: "fake"}, nil
}

func (a *timeoutOnCall) Refine(_ context.Context, current domain.TestArtifact, _ domain.Critique, _ domain.ContextPack, _ llm.DecodingOptions) (domain.TestArtifact, domain.LLMMetadata, error) {
	if err := a.next(); err != nil {
		return domain.TestArtifact{}, domain.LLMMetadata{}, err
	}
	return domain.TestArtifact{Text: a.validText, Framework: current.Framework}, domain.LLMMetadata{Model: "fake"}, nil
}

// scriptedRunner implements runner.Client, returning each scripted
// response in order and repeating the last one once exhausted.
type scriptedRunner struct {
	responses []domain.RunnerResponse
	calls     int
}

func (r *scriptedRunner) Execute(context.Context, runner.Request) (domain.RunnerResponse, error) {
	if len(r.responses) == 0 {
		return domain.RunnerResponse{}, nil
	}
	idx := r.calls
	if idx >= len(r.responses) {
		idx = len(r.responses) - 1
	}
	r.calls++
	return r.responses[idx], nil
}

func (r *scriptedRunner) FetchCode(context.Context, runner.Request) (string, error) {
	return "", nil
}

func newBaseConfig(coverage, mutation float64, maxIterations int) config.Config {
	cfg := config.DefaultConfig()
	cfg.Targets.Coverage = coverage
	cfg.Targets.Mutation = mutation
	cfg.MaxIterations = maxIterations
	cfg.StaticAnalysis.Enable = false
	cfg.Supervisor.UseLLM = false
	return cfg
}

func newTestOrchestrator(t *testing.T, cfg config.Config, drafter agents.Drafter, refiner agents.Refiner, runnerClient runner.Client) (*Orchestrator, string) {
	t.Helper()
	baseDir := t.TempDir()
	deps := Deps{
		Miner:            contextmining.NewMiner(),
		Analyzer:         staticanalysis.NewAnalyzer(nil),
		Drafter:          drafter,
		Refiner:          refiner,
		Critic:           agents.NewRuleBasedCritic(),
		Runner:           runnerClient,
		Config:           cfg,
		ArtifactsBaseDir: baseDir,
	}
	return New(deps), baseDir
}

func readAttemptJSON(t *testing.T, baseDir, runID string, attempt int, suffix string, v any) {
	t.Helper()
	path := filepath.Join(baseDir, runID, attemptFilename(attempt, suffix))
	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("read %s: %v", path, err)
	}
	if err := json.Unmarshal(data, v); err != nil {
		t.Fatalf("unmarshal %s: %v", path, err)
	}
}

func TestOrchestrator_Run_S1_ImmediateSuccess(t *testing.T) {
	cfg := newBaseConfig(40, 30, 3)
	agent := &fixedTextAgent{text: validTestText}
	runnerClient := &scriptedRunner{responses: []domain.RunnerResponse{
		{Success: true, Coverage: 40.0, MutationScore: 30.0},
	}}
	orch, baseDir := newTestOrchestrator(t, cfg, agent, agent, runnerClient)

	state, summary, err := orch.Run(context.Background(), RunInput{RunID: "s1", CodeSrc: []byte(targetSource)})
	if err != nil {
		t.Fatalf("Run() error = %v", err)
	}
	if summary.Iterations != 1 {
		t.Errorf("Run() iterations = %d, want 1", summary.Iterations)
	}
	if summary.Reason != "targets-met" {
		t.Errorf("Run() reason = %q, want targets-met", summary.Reason)
	}
	if state.BestCoverage != 40 || state.BestMutation != 30 {
		t.Errorf("Run() state = %+v", state)
	}

	var post domain.PostReliabilityRecord
	readAttemptJSON(t, baseDir, "s1", 0, "post_reliability.json", &post)
	if post.Level != domain.ReliabilityPass {
		t.Errorf("post_reliability level = %q, want pass", post.Level)
	}
}

func TestOrchestrator_Run_S2_StagnationCutoff(t *testing.T) {
	cfg := newBaseConfig(60, 50, 10)
	agent := &fixedTextAgent{text: validTestText}
	runnerClient := &scriptedRunner{responses: []domain.RunnerResponse{
		{Success: true, Coverage: 20.0, MutationScore: 10.0},
	}}
	orch, _ := newTestOrchestrator(t, cfg, agent, agent, runnerClient)

	_, summary, err := orch.Run(context.Background(), RunInput{RunID: "s2", CodeSrc: []byte(targetSource)})
	if err != nil {
		t.Fatalf("Run() error = %v", err)
	}
	if summary.Iterations != 3 {
		t.Errorf("Run() iterations = %d, want 3 (initial + two refinements)", summary.Iterations)
	}
	if summary.Reason != "stagnation" {
		t.Errorf("Run() reason = %q, want stagnation", summary.Reason)
	}
}

// TestOrchestrator_Run_ProgressDeltaUsesPriorAttemptNotBestSoFar guards
// against regressing to a best-so-far baseline: attempt 2 dips well below
// the attempt-1 peak, then attempt 3 recovers by only one point over
// attempt 2. A best-so-far baseline would score that recovery against the
// peak (a large negative delta, no progress, stagnation accumulates); the
// prior-attempt baseline scores it against attempt 2 (a one-point gain,
// which is progress).
func TestOrchestrator_Run_ProgressDeltaUsesPriorAttemptNotBestSoFar(t *testing.T) {
	cfg := newBaseConfig(99, 0, 5)
	agent := &fixedTextAgent{text: validTestText}
	runnerClient := &scriptedRunner{responses: []domain.RunnerResponse{
		{Success: true, Coverage: 50, MutationScore: -1},
		{Success: true, Coverage: 70, MutationScore: -1},
		{Success: true, Coverage: 55, MutationScore: -1},
		{Success: true, Coverage: 56, MutationScore: -1},
	}}
	orch, baseDir := newTestOrchestrator(t, cfg, agent, agent, runnerClient)

	_, summary, err := orch.Run(context.Background(), RunInput{RunID: "prior-baseline", CodeSrc: []byte(targetSource)})
	if err != nil {
		t.Fatalf("Run() error = %v", err)
	}
	if summary.Reason != "max-iterations" {
		t.Errorf("Run() reason = %q, want max-iterations (coverage target of 99 is unreachable)", summary.Reason)
	}

	var critique3 domain.Critique
	readAttemptJSON(t, baseDir, "prior-baseline", 3, "critique.json", &critique3)
	if critique3.CoverageDelta != 1 {
		t.Errorf("attempt 3 critique.CoverageDelta = %v, want 1 (56 - prior attempt's 55, not 56 - best-so-far's 70)", critique3.CoverageDelta)
	}
	if critique3.NoProgress {
		t.Error("attempt 3 critique.NoProgress = true, want false: the one-point gain over the prior attempt is progress, so stagnation stays below the cutoff")
	}
}

func TestOrchestrator_Run_S3_CompileThenRecover(t *testing.T) {
	cfg := newBaseConfig(60, 50, 5)
	agent := &sequencedAgent{invalidText: "def broken(:\n pass", validText: validTestText}
	runnerClient := &scriptedRunner{responses: []domain.RunnerResponse{
		{Success: false},
		{Success: true, Coverage: 65, MutationScore: 55},
	}}
	orch, baseDir := newTestOrchestrator(t, cfg, agent, agent, runnerClient)

	_, summary, err := orch.Run(context.Background(), RunInput{RunID: "s3", CodeSrc: []byte(targetSource)})
	if err != nil {
		t.Fatalf("Run() error = %v", err)
	}
	if summary.Reason != "targets-met" || summary.Iterations != 2 {
		t.Errorf("Run() reason=%q iterations=%d, want targets-met / 2", summary.Reason, summary.Iterations)
	}

	var pre domain.PreReliabilityRecord
	readAttemptJSON(t, baseDir, "s3", 0, "pre_reliability.json", &pre)
	if pre.Level != domain.ReliabilityLow {
		t.Errorf("attempt 0 pre_reliability level = %q, want low (forced by syntax_ok=false)", pre.Level)
	}

	var critique domain.Critique
	readAttemptJSON(t, baseDir, "s3", 0, "critique.json", &critique)
	if len(critique.Instructions) == 0 || !containsSubstring(critique.Instructions[0], "syntax error") {
		t.Errorf("attempt 0 critique.Instructions[0] = %v, want the syntax error to lead", critique.Instructions)
	}
}

func TestOrchestrator_Run_S4_ModelTimeoutMidRun(t *testing.T) {
	cfg := newBaseConfig(60, 50, 10)
	agent := &timeoutOnCall{validText: validTestText, callIndex: 2}
	runnerClient := &scriptedRunner{responses: []domain.RunnerResponse{
		{Success: true, Coverage: 10, MutationScore: 10},
	}}
	orch, _ := newTestOrchestrator(t, cfg, agent, agent, runnerClient)

	_, summary, err := orch.Run(context.Background(), RunInput{RunID: "s4", CodeSrc: []byte(targetSource)})
	if err != nil {
		t.Fatalf("Run() error = %v, want a graceful nil-error finish", err)
	}
	if summary.Reason != "upstream-timeout" {
		t.Errorf("Run() reason = %q, want upstream-timeout", summary.Reason)
	}
	if summary.Iterations != 2 {
		t.Errorf("Run() iterations = %d, want 2 (attempts 0 and 1 completed)", summary.Iterations)
	}
}

func TestOrchestrator_Run_S5_MissingLinterDoesNotBlockOrDowngrade(t *testing.T) {
	cfg := newBaseConfig(10, 0, 1)
	cfg.StaticAnalysis.Enable = true
	tools := []config.StaticToolConfig{{Name: "ruff", Binary: "quest-nonexistent-linter-binary"}}
	cfg.StaticAnalysis.Tools = tools
	linters := staticanalysis.NewLinterRunner()
	linters.DetectAvailable(tools)

	agent := &fixedTextAgent{text: validTestText}
	runnerClient := &scriptedRunner{responses: []domain.RunnerResponse{
		{Success: true, Coverage: 100, MutationScore: 0},
	}}
	baseDir := t.TempDir()
	orch := New(Deps{
		Miner:            contextmining.NewMiner(),
		Analyzer:         staticanalysis.NewAnalyzer(linters),
		Drafter:          agent,
		Refiner:          agent,
		Critic:           agents.NewRuleBasedCritic(),
		Runner:           runnerClient,
		Config:           cfg,
		ArtifactsBaseDir: baseDir,
	})

	_, _, err := orch.Run(context.Background(), RunInput{RunID: "s5", CodeSrc: []byte(targetSource)})
	if err != nil {
		t.Fatalf("Run() error = %v", err)
	}

	var static domain.StaticReport
	readAttemptJSON(t, baseDir, "s5", 0, "static.json", &static)
	if static.LintIssueCount != 0 {
		t.Errorf("static.LintIssueCount = %d, want 0 for a missing linter", static.LintIssueCount)
	}

	var critique domain.Critique
	readAttemptJSON(t, baseDir, "s5", 0, "critique.json", &critique)
	for _, instr := range critique.Instructions {
		if containsSubstring(instr, "lint") {
			t.Errorf("critique.Instructions contains a lint instruction with no linter available: %v", critique.Instructions)
		}
	}
}

func TestOrchestrator_Run_S6_CoverageMetMutationMissed(t *testing.T) {
	cfg := newBaseConfig(60, 50, 5)
	agent := &fixedTextAgent{text: validTestText}
	runnerClient := &scriptedRunner{responses: []domain.RunnerResponse{
		{Success: true, Coverage: 70, MutationScore: 20},
	}}
	orch, baseDir := newTestOrchestrator(t, cfg, agent, agent, runnerClient)

	_, _, err := orch.Run(context.Background(), RunInput{RunID: "s6", CodeSrc: []byte(targetSource)})
	if err != nil {
		t.Fatalf("Run() error = %v", err)
	}

	var critique domain.Critique
	readAttemptJSON(t, baseDir, "s6", 0, "critique.json", &critique)
	if critique.LowCoverage {
		t.Error("critique.LowCoverage = true, want false: coverage target was met")
	}
	if !critique.LowMutation {
		t.Error("critique.LowMutation = false, want true: mutation target was missed")
	}
	foundMutationInstr, foundMissingLinesInstr := false, false
	for _, instr := range critique.Instructions {
		if containsSubstring(instr, "mutation kill rate") {
			foundMutationInstr = true
		}
		if containsSubstring(instr, "unexercised lines") {
			foundMissingLinesInstr = true
		}
	}
	if !foundMutationInstr {
		t.Errorf("critique.Instructions = %v, want a mutation-improvement instruction", critique.Instructions)
	}
	if foundMissingLinesInstr {
		t.Errorf("critique.Instructions = %v, want no missing-lines instruction when coverage is met", critique.Instructions)
	}
}

func containsSubstring(s, substr string) bool {
	return len(s) >= len(substr) && indexOf(s, substr) >= 0
}

func indexOf(s, substr string) int {
	for i := 0; i+len(substr) <= len(s); i++ {
		if s[i:i+len(substr)] == substr {
			return i
		}
	}
	return -1
}
