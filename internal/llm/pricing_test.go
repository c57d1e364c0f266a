// Copyright (C) 2025 QUEST Contributors
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

package llm

import "testing"

func TestEstimateCost_KnownModel(t *testing.T) {
	cost := EstimateCost("gpt-4o-mini", 1_000_000, 1_000_000)
	if cost == nil {
		t.Fatal("EstimateCost returned nil for a known model")
	}
	want := 0.15 + 0.6
	if *cost != want {
		t.Errorf("EstimateCost() = %v, want %v", *cost, want)
	}
}

func TestEstimateCost_UnknownModel(t *testing.T) {
	if cost := EstimateCost("some-future-model", 100, 100); cost != nil {
		t.Errorf("EstimateCost() = %v, want nil for unknown model", *cost)
	}
}
