// Copyright (C) 2025 QUEST Contributors
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

package llm

import (
	"context"
	"crypto/sha1"
	"encoding/hex"
	"fmt"
)

// DryClient is the deterministic stub provider spec.md §4.1 requires for
// "dry mode": no network call is made, the same prompt always yields the
// same text, and logprobs are never populated so entropy is reported as
// unknown downstream. Grounded on the teacher's pattern of keeping a
// no-op/fake implementation of every external collaborator interface
// (see services/code_buddy/agent/mcts/orchestrator.go's Noop doubles).
type DryClient struct{}

// NewDryClient returns a DryClient. It takes no configuration because it
// makes no outbound calls.
func NewDryClient() *DryClient { return &DryClient{} }

// Complete never fails and never blocks on I/O. The returned text is a
// deterministic function of the prompt so repeated runs of the same
// scenario produce byte-identical artifacts.
func (c *DryClient) Complete(_ context.Context, prompt string, opts DecodingOptions, _ bool) (CompletionResult, error) {
	sum := sha1.Sum([]byte(prompt))
	digest := hex.EncodeToString(sum[:])[:8]

	text := fmt.Sprintf(
		"import unittest\n\n\nclass DryGeneratedTest(unittest.TestCase):\n    def test_dry_%s(self):\n        self.assertTrue(True)\n",
		digest,
	)

	return CompletionResult{
		Text:         text,
		InputTokens:  len(prompt) / 4,
		OutputTokens: len(text) / 4,
	}, nil
}
