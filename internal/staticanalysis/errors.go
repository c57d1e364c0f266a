// Copyright (C) 2025 QUEST Contributors
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

package staticanalysis

import "errors"

// Sentinel errors for the staticanalysis package, grounded on
// services/code_buddy/lint.ErrLinterNotInstalled et al. — the Static
// Analyzer treats every one of these as non-fatal: a missing or
// misbehaving linter degrades that LintRecord rather than failing the
// attempt (spec.md §4.3, §7 ToolUnavailable).
var (
	ErrLinterNotInstalled = errors.New("linter not installed")
	ErrLinterTimeout      = errors.New("linter timeout")
	ErrLinterFailed       = errors.New("linter execution failed")
)
