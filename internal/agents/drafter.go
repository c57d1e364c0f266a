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

// Drafter is the Drafter collaborator (C5): produces attempt 0's test
// module from the Context Miner's output, with no prior test or critique
// to react to.
type Drafter interface {
	Draft(ctx context.Context, pack domain.ContextPack, repo, version, targetFile string, framework domain.FrameworkHint, opts llm.DecodingOptions) (domain.TestArtifact, domain.LLMMetadata, error)
}

// LLMDrafter drafts by completing a framework-guarded prompt through the
// Model Gateway (spec.md §4.5).
type LLMDrafter struct {
	gateway *llm.Gateway
}

// NewLLMDrafter builds a Drafter over gateway.
func NewLLMDrafter(gateway *llm.Gateway) *LLMDrafter {
	return &LLMDrafter{gateway: gateway}
}

// Draft implements Drafter.
func (d *LLMDrafter) Draft(ctx context.Context, pack domain.ContextPack, repo, version, targetFile string, framework domain.FrameworkHint, opts llm.DecodingOptions) (domain.TestArtifact, domain.LLMMetadata, error) {
	prompt := buildDraftPrompt(pack, repo, version, targetFile, framework)

	text, meta, err := d.gateway.Complete(ctx, prompt, opts, true)
	if err != nil {
		return domain.TestArtifact{}, domain.LLMMetadata{}, fmt.Errorf("draft: %w", err)
	}

	return domain.TestArtifact{Text: text, Framework: framework}, meta, nil
}
