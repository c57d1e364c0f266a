// Copyright (C) 2025 QUEST Contributors
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

// Package contextmining implements the Context Miner (C2): a one-shot,
// per-run extraction of the symbols, docstrings, and framework hints the
// Drafter needs to write a first test draft, grounded on the teacher's
// services/code_buddy/ast.PythonParser — the same tree-sitter grammar,
// the same child-walk extraction style, and the same error-tolerant
// "return partial results rather than fail the run" posture.
package contextmining

import (
	"context"
	"fmt"
	"strings"
	"unicode/utf8"

	sitter "github.com/smacker/go-tree-sitter"
	"github.com/smacker/go-tree-sitter/python"

	"github.com/deepaksaipendyala/QUEST/internal/domain"
)

// maxCodeSrcBytes bounds how much of the source module is embedded
// verbatim in the ContextPack's prompt payload (spec.md §4.2: "code_src
// is truncated for very large modules").
const maxCodeSrcBytes = 12_000

// maxSymbols bounds how many symbol names are retained; beyond this the
// pack still reports a parse, just a truncated symbol list.
const maxSymbols = 200

// Miner extracts a domain.ContextPack from Python source using
// tree-sitter. A Miner holds no per-call state and is safe for
// concurrent use; each Mine call builds its own tree-sitter parser, the
// same "new instance per call" choice the teacher makes in PythonParser.
type Miner struct{}

// NewMiner returns a Miner.
func NewMiner() *Miner { return &Miner{} }

// Mine parses source and returns the ContextPack the Drafter's prompt is
// built from. It never returns an error for malformed Python: a syntax
// error sets ParseFailed and the pack degrades to whatever partial
// extraction tree-sitter's error recovery could still produce, matching
// spec.md §4.2's "the Context Miner must not block the run on a parse
// failure".
func (m *Miner) Mine(ctx context.Context, source []byte, modulePath string) (domain.ContextPack, error) {
	if !utf8.Valid(source) {
		return domain.ContextPack{}, fmt.Errorf("context mining: %s is not valid UTF-8", modulePath)
	}

	parser := sitter.NewParser()
	parser.SetLanguage(python.GetLanguage())

	tree, err := parser.ParseCtx(ctx, nil, source)
	if err != nil {
		return domain.ContextPack{}, fmt.Errorf("context mining: tree-sitter parse failed: %w", err)
	}
	defer tree.Close()

	root := tree.RootNode()
	pack := domain.ContextPack{
		CodeSrc: truncateSource(source),
	}
	pack.Truncated = len(source) > maxCodeSrcBytes

	if root == nil {
		pack.ParseFailed = true
		pack.Summary = "unparseable module"
		return pack, nil
	}
	pack.ParseFailed = root.HasError()

	ext := &extractor{content: source}
	ext.walkModuleDocstring(root, &pack)
	ext.walkImports(root, &pack)
	ext.walkClasses(root, &pack)
	ext.walkFunctions(root, &pack)

	if len(pack.FrameworkHints) == 0 {
		pack.FrameworkHints = []domain.FrameworkHint{domain.FrameworkUnittestPlain}
	}
	if len(pack.Symbols) > maxSymbols {
		pack.Symbols = pack.Symbols[:maxSymbols]
	}
	pack.Summary = summarize(pack)

	return pack, nil
}

func truncateSource(source []byte) string {
	if len(source) <= maxCodeSrcBytes {
		return string(source)
	}
	return string(source[:maxCodeSrcBytes])
}

func summarize(pack domain.ContextPack) string {
	classCount, funcCount := 0, 0
	for _, s := range pack.Symbols {
		if strings.Contains(s, ".") {
			funcCount++
		} else {
			classCount++
		}
	}
	hints := make([]string, 0, len(pack.FrameworkHints))
	for _, h := range pack.FrameworkHints {
		hints = append(hints, string(h))
	}
	return fmt.Sprintf("module with %d top-level symbols (framework hints: %s)", len(pack.Symbols), strings.Join(hints, ","))
}

// extractor carries the source bytes across the module/class/function
// walk, mirroring PythonParser's "pass content through every helper"
// shape without repeating the argument on every call.
type extractor struct {
	content []byte
}

func (e *extractor) text(n *sitter.Node) string {
	return string(e.content[n.StartByte():n.EndByte()])
}

func (e *extractor) walkModuleDocstring(root *sitter.Node, pack *domain.ContextPack) {
	for i := 0; i < int(root.ChildCount()); i++ {
		child := root.Child(i)
		if child.Type() == "expression_statement" && child.ChildCount() > 0 {
			if str := child.Child(0); str.Type() == "string" {
				pack.Docstrings = append(pack.Docstrings, e.cleanDocstring(e.text(str)))
				return
			}
		}
		if child.Type() != "comment" && child.Type() != "import_statement" && child.Type() != "import_from_statement" {
			return
		}
	}
}

func (e *extractor) walkImports(root *sitter.Node, pack *domain.ContextPack) {
	for i := 0; i < int(root.ChildCount()); i++ {
		child := root.Child(i)
		if child.Type() != "import_statement" && child.Type() != "import_from_statement" {
			continue
		}
		path := e.text(child)
		switch {
		case strings.Contains(path, "django"):
			addHint(pack, domain.FrameworkUnittestDjango)
		case strings.Contains(path, "pytest"):
			addHint(pack, domain.FrameworkPytest)
		}
	}
}

func (e *extractor) walkClasses(root *sitter.Node, pack *domain.ContextPack) {
	for i := 0; i < int(root.ChildCount()); i++ {
		child := root.Child(i)
		if child.Type() != "class_definition" {
			continue
		}
		var name string
		var bodyNode *sitter.Node
		for j := 0; j < int(child.ChildCount()); j++ {
			gc := child.Child(j)
			switch gc.Type() {
			case "identifier":
				if name == "" {
					name = e.text(gc)
				}
			case "argument_list":
				if strings.Contains(e.text(gc), "TestCase") {
					addHint(pack, domain.FrameworkUnittestPlain)
				}
			case "block":
				bodyNode = gc
			}
		}
		if name == "" {
			continue
		}
		pack.Symbols = append(pack.Symbols, name)
		if bodyNode != nil {
			if doc := e.firstDocstring(bodyNode); doc != "" {
				pack.Docstrings = append(pack.Docstrings, doc)
			}
			e.walkMethods(bodyNode, name, pack)
		}
	}
}

func (e *extractor) walkMethods(body *sitter.Node, className string, pack *domain.ContextPack) {
	for i := 0; i < int(body.ChildCount()); i++ {
		child := body.Child(i)
		if child.Type() != "function_definition" {
			continue
		}
		name := e.functionName(child)
		if name == "" {
			continue
		}
		pack.Symbols = append(pack.Symbols, className+"."+name)
	}
}

func (e *extractor) walkFunctions(root *sitter.Node, pack *domain.ContextPack) {
	for i := 0; i < int(root.ChildCount()); i++ {
		child := root.Child(i)
		if child.Type() != "function_definition" {
			continue
		}
		name := e.functionName(child)
		if name == "" {
			continue
		}
		pack.Symbols = append(pack.Symbols, name)
		if doc := e.functionDocstring(child); doc != "" {
			pack.Docstrings = append(pack.Docstrings, doc)
		}
	}
}

func (e *extractor) functionName(fn *sitter.Node) string {
	for i := 0; i < int(fn.ChildCount()); i++ {
		if c := fn.Child(i); c.Type() == "identifier" {
			return e.text(c)
		}
	}
	return ""
}

func (e *extractor) functionDocstring(fn *sitter.Node) string {
	for i := 0; i < int(fn.ChildCount()); i++ {
		if c := fn.Child(i); c.Type() == "block" {
			return e.firstDocstring(c)
		}
	}
	return ""
}

func (e *extractor) firstDocstring(block *sitter.Node) string {
	if block.ChildCount() == 0 {
		return ""
	}
	stmt := block.Child(0)
	if stmt.Type() != "expression_statement" || stmt.ChildCount() == 0 {
		return ""
	}
	str := stmt.Child(0)
	if str.Type() != "string" {
		return ""
	}
	return e.cleanDocstring(e.text(str))
}

func (e *extractor) cleanDocstring(raw string) string {
	s := strings.TrimSpace(raw)
	s = strings.Trim(s, `"'`)
	s = strings.TrimPrefix(s, `""`)
	s = strings.TrimSuffix(s, `""`)
	return strings.TrimSpace(s)
}

func addHint(pack *domain.ContextPack, hint domain.FrameworkHint) {
	for _, h := range pack.FrameworkHints {
		if h == hint {
			return
		}
	}
	pack.FrameworkHints = append(pack.FrameworkHints, hint)
}

// PrimaryFramework picks the single framework the Drafter and Critic
// should key their guardrails on when a ContextPack reports more than
// one hint: Django's unittest subclass takes precedence over plain
// unittest, which takes precedence over pytest, because a Django model
// or view under test requires TestCase's database-transaction wrapping
// regardless of whether pytest is also importable in the project
// (spec.md §4.5).
func PrimaryFramework(pack domain.ContextPack) domain.FrameworkHint {
	has := func(want domain.FrameworkHint) bool {
		for _, h := range pack.FrameworkHints {
			if h == want {
				return true
			}
		}
		return false
	}
	switch {
	case has(domain.FrameworkUnittestDjango):
		return domain.FrameworkUnittestDjango
	case has(domain.FrameworkUnittestPlain):
		return domain.FrameworkUnittestPlain
	case has(domain.FrameworkPytest):
		return domain.FrameworkPytest
	default:
		return domain.FrameworkUnittestPlain
	}
}
