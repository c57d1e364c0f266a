// Copyright (C) 2025 QUEST Contributors
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

package agents

import (
	"context"
	"fmt"

	"github.com/deepaksaipendyala/QUEST/internal/domain"
	"github.com/deepaksaipendyala/QUEST/internal/llm"
)

// Refiner is the Refiner collaborator (C7): rewrites the current test
// module against the Critic's priority-ordered instructions, preserving
// the framework in force (spec.md §4.7).
type Refiner interface {
	Refine(ctx context.Context, current domain.TestArtifact, critique domain.Critique, pack domain.ContextPack, opts llm.DecodingOptions) (domain.TestArtifact, domain.LLMMetadata, error)
}

// LLMRefiner refines by completing a rewrite prompt through the Model
// Gateway.
type LLMRefiner struct {
	gateway *llm.Gateway
}

// NewLLMRefiner builds a Refiner over gateway.
func NewLLMRefiner(gateway *llm.Gateway) *LLMRefiner {
	return &LLMRefiner{gateway: gateway}
}

// Refine implements Refiner.
func (r *LLMRefiner) Refine(ctx context.Context, current domain.TestArtifact, critique domain.Critique, pack domain.ContextPack, opts llm.DecodingOptions) (domain.TestArtifact, domain.LLMMetadata, error) {
	prompt := buildRefinePrompt(current.Text, critique.Instructions, pack, current.Framework)

	text, meta, err := r.gateway.Complete(ctx, prompt, opts, true)
	if err != nil {
		return domain.TestArtifact{}, domain.LLMMetadata{}, fmt.Errorf("refine: %w", err)
	}

	return domain.TestArtifact{Text: text, Framework: current.Framework}, meta, nil
}
