// Copyright (C) 2025 QUEST Contributors
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

// Package domain holds the concrete record types of spec.md §3. Every
// payload that crosses a component boundary is one of these structs —
// no map[string]interface{} — so every collaborator agrees on a schema
// without needing to see each other's internal types.
package domain

// FrameworkHint enumerates the test-framework tags the Context Miner and
// the three agents key their prompts and guardrails on (spec.md §3, §4.5).
type FrameworkHint string

const (
	FrameworkUnittestDjango FrameworkHint = "unittest-django"
	FrameworkUnittestPlain  FrameworkHint = "unittest-plain"
	FrameworkPytest         FrameworkHint = "pytest"
)

// ContextPack is the Context Miner's (C2) output, computed once per run.
type ContextPack struct {
	Summary         string          `json:"summary"`
	Symbols         []string        `json:"symbols"`
	Docstrings      []string        `json:"docstrings"`
	FrameworkHints  []FrameworkHint `json:"framework_hints"`
	CodeSrc         string          `json:"code_src"`
	ParseFailed     bool            `json:"parse_failed"`
	Truncated       bool            `json:"truncated"`
}

// TestArtifact is a candidate test module produced by the Drafter or
// Refiner (C5/C7).
type TestArtifact struct {
	Text      string        `json:"text"`
	Framework FrameworkHint `json:"framework"`
	ParsedOK  bool          `json:"parsed_ok"`
}

// LLMMetadata describes one model call's cost and uncertainty signals
// (spec.md §3, §4.1).
type LLMMetadata struct {
	AvgLogprob    *float64 `json:"avg_logprob,omitempty"`
	Entropy       *float64 `json:"entropy,omitempty"`
	InputTokens   int      `json:"input_tokens"`
	OutputTokens  int      `json:"output_tokens"`
	EstimatedCost *float64 `json:"estimated_cost,omitempty"`
	DurationMS    int64    `json:"duration_ms"`
	Model         string   `json:"model"`
	Dry           bool     `json:"dry"`
}

// LintRecord is one optional linter/type-checker's result (spec.md §3
// StaticReport "per-linter records").
type LintRecord struct {
	Tool           string `json:"tool"`
	Available      bool   `json:"available"`
	IssueCount     int    `json:"issue_count"`
	ExitCode       int    `json:"exit_code"`
	OutputExcerpt  string `json:"output_excerpt,omitempty"`
}

// StaticReport is the Static Analyzer's (C3) output for one test artifact.
type StaticReport struct {
	SyntaxOK             bool         `json:"syntax_ok"`
	SyntaxError          string       `json:"syntax_error,omitempty"`
	LineCount            int          `json:"line_count"`
	FunctionCount        int          `json:"function_count"`
	ClassCount           int          `json:"class_count"`
	MaxFunctionLength    int          `json:"max_function_length"`
	AvgFunctionLength    float64      `json:"avg_function_length"`
	CyclomaticComplexity int          `json:"cyclomatic_complexity"`
	TodoCount            int          `json:"todo_count"`
	Lints                []LintRecord `json:"lints"`
	LintIssueCount       int          `json:"lint_issue_count"`
}

// CoverageDetails is the subset of a RunnerResponse describing what lines
// were not exercised.
type CoverageDetails struct {
	MissingLines []int `json:"missing_lines"`
}

// RunnerResponse is the sandboxed execution collaborator's reply
// (spec.md §3, §6).
type RunnerResponse struct {
	Success            bool            `json:"success"`
	ExitCode           int             `json:"exit_code"`
	Coverage           float64         `json:"coverage"`
	CoverageDetails    CoverageDetails `json:"coverage_details"`
	MutationScore      float64         `json:"mutation_score"`
	MutationNum        int             `json:"mutation_num"`
	MutationUncertainty float64        `json:"mutation_uncertainty"`
	TestError          string          `json:"test_error,omitempty"`
	Stdout             string          `json:"stdout"`
	Stderr             string          `json:"stderr"`
	ExecutionTimeMS    int64           `json:"execution_time_ms"`
}

// ReliabilityLevelPre is the pre-execution categorical judgment.
type ReliabilityLevelPre string

const (
	ReliabilityHigh    ReliabilityLevelPre = "high"
	ReliabilityMedium  ReliabilityLevelPre = "medium"
	ReliabilityLow     ReliabilityLevelPre = "low"
	ReliabilityUnknown ReliabilityLevelPre = "unknown"
)

// ReliabilityLevelPost is the post-execution categorical judgment.
type ReliabilityLevelPost string

const (
	ReliabilityTrusted     ReliabilityLevelPost = "trusted"
	ReliabilityNeedsReview ReliabilityLevelPost = "needs_review"
	ReliabilityDiscard     ReliabilityLevelPost = "discard"
	ReliabilityPass        ReliabilityLevelPost = "pass"
)

// PreReliabilityRecord is the Reliability Predictor's (C4) pre-execution
// output.
type PreReliabilityRecord struct {
	Level        ReliabilityLevelPre `json:"level"`
	Entropy      *float64            `json:"entropy,omitempty"`
	AvgLogprob   *float64            `json:"avg_logprob,omitempty"`
	TokenCount   int                 `json:"token_count"`
	Rationale    string              `json:"rationale"`
	Static       StaticReport        `json:"static"`
	LintSummary  int                 `json:"lint_summary"`
}

// PostReliabilityRecord is the Reliability Predictor's (C4) post-execution
// output.
type PostReliabilityRecord struct {
	PreLevel        ReliabilityLevelPre  `json:"pre_level"`
	Level           ReliabilityLevelPost `json:"level"`
	Reasons         []string             `json:"reasons"`
	Coverage        float64              `json:"coverage"`
	TargetCoverage  float64              `json:"target_coverage"`
	MutationScore   float64              `json:"mutation_score"`
	TargetMutation  float64              `json:"target_mutation"`
	Success         bool                 `json:"success"`
	LintSummary     int                  `json:"lint_summary"`
}

// LLMSuggestions is the optional model-assisted critique payload
// (spec.md §3 Critique.llm_suggestions).
type LLMSuggestions struct {
	PriorityIssues           []string `json:"priority_issues,omitempty"`
	CoverageSuggestions      []string `json:"coverage_suggestions,omitempty"`
	MutationSuggestions      []string `json:"mutation_suggestions,omitempty"`
	CodeQualitySuggestions   []string `json:"code_quality_suggestions,omitempty"`
	TestStrategySuggestions  []string `json:"test_strategy_suggestions,omitempty"`
	NextSteps                []string `json:"next_steps,omitempty"`
}

// Critique is the Critic's (C6) structured output.
type Critique struct {
	CompileError  bool    `json:"compile_error"`
	NoTests       bool    `json:"no_tests"`
	LowCoverage   bool    `json:"low_coverage"`
	LowMutation   bool    `json:"low_mutation"`
	NoProgress    bool    `json:"no_progress"`

	MutationScore  float64 `json:"mutation_score"`
	CoverageDelta  float64 `json:"coverage_delta"`
	MutationDelta  float64 `json:"mutation_delta"`
	LintIssueCount int     `json:"lint_issue_count"`

	// LintMissingTools lists the configured static-analysis tools that
	// were not available on this attempt's host (StaticReport's
	// per-linter Available=false), surfaced so the Refiner's caller
	// knows which lint signals to distrust rather than treat as clean.
	LintMissingTools []string `json:"lint_missing_tools,omitempty"`

	MissingLines []int    `json:"missing_lines"`
	Instructions []string `json:"instructions"`

	LLMSuggestions        *LLMSuggestions `json:"llm_suggestions,omitempty"`
	LLMSupervisorMetadata *LLMMetadata    `json:"llm_supervisor_metadata,omitempty"`
}

// RunState is the per-run mutable accounting record (spec.md §3). It is
// the only state that survives across attempts; every other record is
// write-once per attempt.
type RunState struct {
	RunID            string         `json:"run_id"`
	AttemptIndex     int            `json:"attempt_index"`
	BestCoverage     float64        `json:"best_coverage"`
	BestMutation     float64        `json:"best_mutation"`
	// LastCoverage/LastMutation are the immediately preceding attempt's
	// values, unconditionally overwritten every attempt; the Critic uses
	// these (not BestCoverage/BestMutation) as its progress-delta
	// baseline. The Has* flags are false until the first attempt that
	// set the corresponding value, so that attempt's delta is computed
	// against itself (zero) instead of against zero.
	LastCoverage     float64        `json:"last_coverage"`
	HasLastCoverage  bool           `json:"has_last_coverage"`
	LastMutation     float64        `json:"last_mutation"`
	HasLastMutation  bool           `json:"has_last_mutation"`
	StagnationCount  int            `json:"stagnation_count"`
	AccumulatedCost  float64        `json:"accumulated_cost"`
	AccumulatedWallMS int64         `json:"accumulated_wall_ms"`
	History          []CovMutPoint  `json:"history"`
	TargetCoverage   float64        `json:"target_coverage"`
	TargetMutation   float64        `json:"target_mutation"`
	MaxIterations    int            `json:"max_iterations"`
	MaxTotalCost     float64        `json:"max_total_cost"`
}

// CovMutPoint is one (coverage, mutation) history entry.
type CovMutPoint struct {
	Coverage float64 `json:"coverage"`
	Mutation float64 `json:"mutation"`
}

// RouterDecision is the Router's (C10) totality-preserving output.
type RouterDecision string

const (
	DecisionRefine RouterDecision = "REFINE"
	DecisionFinish RouterDecision = "FINISH"
)
