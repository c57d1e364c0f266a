// Copyright (C) 2025 QUEST Contributors
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

// Package llm implements the Model Gateway (C1): a narrow abstract
// capability over a text-completion provider, plus the entropy/cost
// derivation and code-fence stripping the Gateway performs on every
// response. Grounded on the teacher's services/llm package — an
// LLMClient interface with one Generate-shaped method per provider.
package llm

import "context"

// DecodingOptions are the sampling controls spec.md §4.1 passes through to
// the provider on every completion.
type DecodingOptions struct {
	Model          string
	Temperature    float32
	TopP           float32
	MaxTokens      int
	TimeoutSeconds int
}

// TokenLogprob is one returned content token's log-probability, used to
// derive entropy and avg_logprob (spec.md §4.1).
type TokenLogprob struct {
	Token   string
	Logprob float64
}

// CompletionResult is a provider's raw reply, before Gateway-level
// cleanup (fence stripping) and metric derivation.
type CompletionResult struct {
	Text         string
	Logprobs     []TokenLogprob
	InputTokens  int
	OutputTokens int
}

// Client is the narrowest operation set a model provider must satisfy.
// Any provider — Anthropic, OpenAI, a local model, or the deterministic
// dry stub — implements this single method.
type Client interface {
	Complete(ctx context.Context, prompt string, opts DecodingOptions, collectLogprobs bool) (CompletionResult, error)
}
