// Copyright (C) 2025 QUEST Contributors
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

package agents

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/deepaksaipendyala/QUEST/internal/domain"
	"github.com/deepaksaipendyala/QUEST/internal/llm"
)

var errUnreachable = errors.New("unreachable")

type stubLLMClient struct {
	result llm.CompletionResult
	err    error
	gotPrompt string
}

func (s *stubLLMClient) Complete(_ context.Context, prompt string, _ llm.DecodingOptions, _ bool) (llm.CompletionResult, error) {
	s.gotPrompt = prompt
	return s.result, s.err
}

func TestLLMDrafter_Draft_BuildsFrameworkGuardedPrompt(t *testing.T) {
	stub := &stubLLMClient{result: llm.CompletionResult{Text: "import unittest\nclass T(unittest.TestCase): pass"}}
	gw := llm.NewGateway(stub, "dry-model", true)
	drafter := NewLLMDrafter(gw)

	pack := domain.ContextPack{
		Symbols:    []string{"OrderCalculator.total"},
		Docstrings: []string{"Computes order totals."},
		CodeSrc:    "class OrderCalculator:\n    def total(self): ...\n",
	}

	artifact, meta, err := drafter.Draft(context.Background(), pack, "acme/orders", "v1", "orders.py", domain.FrameworkUnittestDjango, llm.DecodingOptions{})
	if err != nil {
		t.Fatalf("Draft() error = %v", err)
	}
	if artifact.Framework != domain.FrameworkUnittestDjango {
		t.Errorf("Draft() framework = %v, want unittest-django", artifact.Framework)
	}
	if !meta.Dry {
		t.Error("Draft() metadata.Dry = false, want true")
	}
	if !strings.Contains(stub.gotPrompt, "django.test.TestCase") {
		t.Error("Draft() prompt missing the django.test.TestCase guardrail")
	}
	if !strings.Contains(stub.gotPrompt, "OrderCalculator.total") {
		t.Error("Draft() prompt missing extracted symbols")
	}
}

func TestLLMDrafter_Draft_PropagatesGatewayError(t *testing.T) {
	stub := &stubLLMClient{err: errUnreachable}
	gw := llm.NewGateway(stub, "m", false)
	drafter := NewLLMDrafter(gw)

	_, _, err := drafter.Draft(context.Background(), domain.ContextPack{}, "r", "v", "f.py", domain.FrameworkPytest, llm.DecodingOptions{})
	if err == nil {
		t.Fatal("Draft() error = nil, want a propagated gateway error")
	}
}
