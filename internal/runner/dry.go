// Copyright (C) 2025 QUEST Contributors
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

package runner

import (
	"context"

	"github.com/deepaksaipendyala/QUEST/internal/domain"
)

// DryClient is the deterministic runner stub spec.md §4.8 requires for
// dry mode: no sandbox is contacted, and the response is a pure function
// of the configured targets, so repeated runs of the same scenario
// produce byte-identical artifacts.
type DryClient struct {
	TargetCoverage float64
	TargetMutation float64
}

// NewDryClient returns a DryClient reporting half of each target, the
// exact fixed point spec.md §4.8 specifies.
func NewDryClient(targetCoverage, targetMutation float64) *DryClient {
	return &DryClient{TargetCoverage: targetCoverage, TargetMutation: targetMutation}
}

// Execute implements Client.
func (d *DryClient) Execute(_ context.Context, _ Request) (domain.RunnerResponse, error) {
	return domain.RunnerResponse{
		Success:       true,
		ExitCode:      0,
		Coverage:      d.TargetCoverage / 2,
		MutationScore: d.TargetMutation / 2,
		MutationNum:   0,
	}, nil
}

// FetchCode implements Client. Dry mode never needs a remote code
// endpoint; the orchestrator already holds the target source locally
// when running dry.
func (d *DryClient) FetchCode(_ context.Context, _ Request) (string, error) {
	return "", nil
}
