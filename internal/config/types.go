// Copyright (C) 2025 QUEST Contributors
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

// Package config defines QUEST's single keyed configuration object and its
// defaults, loader, and validation — the recognized options enumerated in
// spec.md §6.
package config

import "time"

// Config is the root configuration object. Every field here corresponds to
// one of the recognized options in spec.md §6.
type Config struct {
	RunnerURL            string `yaml:"runner_url" validate:"required,eq=dry|url"`
	RunnerCodeURL        string `yaml:"runner_code_url,omitempty" validate:"omitempty,url"`
	RunnerTimeoutSeconds int    `yaml:"runner_timeout_seconds" validate:"gt=0"`

	LLM LLMConfig `yaml:"llm"`

	Targets TargetsConfig `yaml:"targets"`

	MaxIterations        int     `yaml:"max_iterations" validate:"gt=0"`
	MaxTotalCost         float64 `yaml:"max_total_cost" validate:"gte=0"`
	MaxTotalWallSeconds  int     `yaml:"max_total_wall_seconds" validate:"gte=0"`

	StaticAnalysis StaticAnalysisConfig `yaml:"static_analysis"`

	Supervisor SupervisorConfig `yaml:"supervisor"`

	Runner RunnerOptionsConfig `yaml:"runner"`

	Reliability ReliabilityConfig `yaml:"reliability"`

	Observability ObservabilityConfig `yaml:"observability"`
}

// LLMConfig configures the Model Gateway.
type LLMConfig struct {
	Provider          string        `yaml:"provider" validate:"oneof=anthropic openai dry"`
	Model             string        `yaml:"model"`
	Decoding          DecodingConfig `yaml:"decoding"`
	TimeoutSeconds    int           `yaml:"timeout_seconds" validate:"gt=0"`
	CollectLogprobs   bool          `yaml:"collect_logprobs"`
	Dry               bool          `yaml:"dry"`
}

// DecodingConfig holds sampling controls passed through to the provider.
type DecodingConfig struct {
	Temperature float32 `yaml:"temperature"`
	TopP        float32 `yaml:"top_p"`
	MaxTokens   int     `yaml:"max_tokens" validate:"gt=0"`
}

// TargetsConfig holds the coverage/mutation thresholds a run is trying to
// satisfy. MutationEnabled is derived: mutation gating only applies when
// Mutation > 0 (spec.md §4.6: "target_mutation > 0 and (...)").
type TargetsConfig struct {
	Coverage float64 `yaml:"coverage" validate:"gte=0,lte=100"`
	Mutation float64 `yaml:"mutation" validate:"gte=0,lte=100"`
}

// MutationEnabled reports whether mutation-score gating applies to this run.
func (t TargetsConfig) MutationEnabled() bool { return t.Mutation > 0 }

// StaticAnalysisConfig controls the static analyzer (C3).
type StaticAnalysisConfig struct {
	Enable         bool              `yaml:"enable"`
	TimeoutSeconds int               `yaml:"timeout_seconds" validate:"gte=0"`
	Tools          []StaticToolConfig `yaml:"tools"`
}

// StaticToolConfig names one optional subprocess-based linter/type checker.
type StaticToolConfig struct {
	Name     string `yaml:"name"`
	Binary   string `yaml:"binary"`
	Language string `yaml:"language"`
}

// SupervisorConfig controls the optional model-assisted critique.
type SupervisorConfig struct {
	UseLLM bool `yaml:"use_llm"`
}

// RunnerOptionsConfig holds informational flags the runner honors.
type RunnerOptionsConfig struct {
	SkipMutation bool `yaml:"skip_mutation"`
	// EnableValidation turns on struct-tag validation of the Runner
	// Client's outgoing request before it is sent, mirroring the
	// original system's ENABLE_VALIDATION env flag gating a pydantic
	// schema check on the same payload.
	EnableValidation bool `yaml:"enable_validation"`
}

// ReliabilityConfig holds the Reliability Predictor's configurable
// thresholds (spec.md §4.4 / §9: "not invariants, configuration").
type ReliabilityConfig struct {
	EntropyHigh           float64 `yaml:"entropy_high" validate:"gte=0"`
	EntropyMedium         float64 `yaml:"entropy_medium" validate:"gte=0"`
	LintDowngradeThreshold int    `yaml:"lint_downgrade_threshold" validate:"gte=0"`
	ComplexityCeiling      int    `yaml:"complexity_ceiling" validate:"gte=0"`
}

// ObservabilityConfig controls the optional metrics endpoint ([EXPANSION],
// SPEC_FULL.md §6).
type ObservabilityConfig struct {
	Enable         bool   `yaml:"enable"`
	PrometheusPort int    `yaml:"prometheus_port"`
	ServiceName    string `yaml:"service_name"`
}

// DefaultConfig returns QUEST's out-of-the-box configuration: dry LLM, dry
// runner, conservative budgets. Mirrors the teacher's DefaultConfig()
// shape (cmd/aleutian/config/types.go).
func DefaultConfig() Config {
	return Config{
		RunnerURL:            "dry",
		RunnerTimeoutSeconds: 300,
		LLM: LLMConfig{
			Provider: "dry",
			Model:    "dry-model",
			Decoding: DecodingConfig{
				Temperature: 0.2,
				TopP:        0.95,
				MaxTokens:   2048,
			},
			TimeoutSeconds:  60,
			CollectLogprobs: true,
			Dry:             true,
		},
		Targets: TargetsConfig{
			Coverage: 60,
			Mutation: 50,
		},
		MaxIterations:       5,
		MaxTotalCost:        1.0,
		MaxTotalWallSeconds: 1800,
		StaticAnalysis: StaticAnalysisConfig{
			Enable:         true,
			TimeoutSeconds: 15,
			Tools:          nil,
		},
		Supervisor: SupervisorConfig{UseLLM: false},
		Runner:     RunnerOptionsConfig{SkipMutation: false},
		Reliability: ReliabilityConfig{
			EntropyHigh:            0.15,
			EntropyMedium:          0.45,
			LintDowngradeThreshold: 5,
			ComplexityCeiling:      15,
		},
		Observability: ObservabilityConfig{
			Enable:         false,
			PrometheusPort: 9464,
			ServiceName:    "quest",
		},
	}
}

// ModelTimeout returns the Model Gateway timeout as a time.Duration.
func (c Config) ModelTimeout() time.Duration {
	return time.Duration(c.LLM.TimeoutSeconds) * time.Second
}

// RunnerTimeout returns the Runner Client timeout as a time.Duration.
func (c Config) RunnerTimeout() time.Duration {
	return time.Duration(c.RunnerTimeoutSeconds) * time.Second
}

// StaticToolTimeout returns static_analysis.timeout_seconds as a
// time.Duration. LinterRunner.Run does not read it: each tool subprocess
// runs under a fixed 15-second timeout.
func (c Config) StaticToolTimeout() time.Duration {
	return time.Duration(c.StaticAnalysis.TimeoutSeconds) * time.Second
}
