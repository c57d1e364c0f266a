// Copyright (C) 2025 QUEST Contributors
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

package llm

import (
	"context"
	"time"

	"github.com/deepaksaipendyala/QUEST/internal/domain"
)

// Gateway is the Model Gateway (C1): it wraps a single Client and turns a
// raw CompletionResult into the (text, domain.LLMMetadata) pair every
// caller in the system consumes, performing the three things spec.md
// §4.1 asks of the Gateway on every call — code-fence stripping, entropy
// derivation from logprobs, and cost estimation.
type Gateway struct {
	client Client
	model  string
	dry    bool
}

// NewGateway builds a Gateway over client. dry should be true only when
// client is a DryClient, so domain.LLMMetadata.Dry is reported honestly.
func NewGateway(client Client, model string, dry bool) *Gateway {
	return &Gateway{client: client, model: model, dry: dry}
}

// Complete performs one model call and returns the fence-stripped text
// alongside its derived metadata. collectLogprobs is forwarded to the
// underlying Client; when the provider cannot supply logprobs (Anthropic,
// or dry mode), AvgLogprob and Entropy remain nil, which downstream
// Reliability Prediction (C4) treats as "unknown" (spec.md §4.1, §4.4).
func (g *Gateway) Complete(ctx context.Context, prompt string, opts DecodingOptions, collectLogprobs bool) (string, domain.LLMMetadata, error) {
	if opts.Model == "" {
		opts.Model = g.model
	}

	start := time.Now()
	result, err := g.client.Complete(ctx, prompt, opts, collectLogprobs)
	elapsed := time.Since(start)
	if err != nil {
		return "", domain.LLMMetadata{}, err
	}

	text := StripCodeFences(result.Text)

	meta := domain.LLMMetadata{
		InputTokens:  result.InputTokens,
		OutputTokens: result.OutputTokens,
		DurationMS:   elapsed.Milliseconds(),
		Model:        opts.Model,
		Dry:          g.dry,
	}

	if avg, entropy := deriveUncertainty(result.Logprobs); avg != nil {
		meta.AvgLogprob = avg
		meta.Entropy = entropy
	}

	meta.EstimatedCost = EstimateCost(opts.Model, result.InputTokens, result.OutputTokens)

	return text, meta, nil
}

// deriveUncertainty computes the mean logprob and the Shannon-style
// entropy proxy used across the system: the negative mean logprob,
// scaled so a confident, low-entropy completion (logprobs near 0) yields
// an entropy near 0 and an uncertain one yields a larger positive value.
// Returns (nil, nil) when logprobs is empty, which callers must treat as
// "unknown" rather than as zero (spec.md §4.1).
func deriveUncertainty(logprobs []TokenLogprob) (avgLogprob, entropy *float64) {
	if len(logprobs) == 0 {
		return nil, nil
	}

	var sum float64
	for _, tok := range logprobs {
		sum += tok.Logprob
	}
	avg := sum / float64(len(logprobs))
	ent := -avg
	if ent < 0 {
		ent = 0
	}
	return &avg, &ent
}
