// Copyright (C) 2025 QUEST Contributors
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

package llm

import (
	"regexp"
	"strings"
)

// fencedBlock matches a fenced code block with an optional language tag
// that may or may not be separated from the backticks by whitespace:
// ```python, ``` python, or a bare ```.
var fencedBlock = regexp.MustCompile("(?s)```[ \\t]*([A-Za-z0-9_+-]*)[ \\t]*\\r?\\n(.*?)```")

// leadingKeywords are raw-code fallback markers: when a model ignores the
// "no fences" instruction and also forgets the fences entirely, the reply
// usually still starts with one of these tokens.
var leadingKeywords = []string{
	"import ", "from ", "class ", "def ", "#!", "@", "async def ",
}

// StripCodeFences extracts generated source from a raw model reply.
//
// It accepts, in order of preference:
//  1. A fenced block tagged with a language (```python ... ```).
//  2. A fenced block with no language tag (``` ... ```).
//  3. A raw-code fallback: if the trimmed text itself begins with a
//     recognizable language keyword, it is returned unchanged on the
//     assumption the model simply omitted the fences.
//
// If none of these match, the original text is returned unchanged so
// callers never silently discard content.
func StripCodeFences(text string) string {
	if m := fencedBlock.FindStringSubmatch(text); len(m) == 3 {
		return strings.TrimRight(m[2], "\n") + "\n"
	}

	trimmed := strings.TrimSpace(text)
	for _, kw := range leadingKeywords {
		if strings.HasPrefix(trimmed, kw) {
			return trimmed + "\n"
		}
	}

	return text
}
