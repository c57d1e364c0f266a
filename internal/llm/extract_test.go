// Copyright (C) 2025 QUEST Contributors
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

package llm

import "testing"

func TestStripCodeFences(t *testing.T) {
	cases := []struct {
		name string
		in   string
		want string
	}{
		{
			name: "fenced with language tag",
			in:   "Here you go:\n```python\nimport unittest\n```\n",
			want: "import unittest\n",
		},
		{
			name: "fenced with no language tag",
			in:   "```\ndef test_x():\n    pass\n```",
			want: "def test_x():\n    pass\n",
		},
		{
			name: "unfenced raw code fallback",
			in:   "import unittest\n\nclass T(unittest.TestCase):\n    pass",
			want: "import unittest\n\nclass T(unittest.TestCase):\n    pass\n",
		},
		{
			name: "neither fenced nor recognizable keyword returns unchanged",
			in:   "I cannot write this test because the function is ambiguous.",
			want: "I cannot write this test because the function is ambiguous.",
		},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			got := StripCodeFences(tc.in)
			if got != tc.want {
				t.Errorf("StripCodeFences(%q) = %q, want %q", tc.in, got, tc.want)
			}
		})
	}
}
