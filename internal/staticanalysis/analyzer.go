// Copyright (C) 2025 QUEST Contributors
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

// Package staticanalysis implements the Static Analyzer (C3): syntax and
// complexity checks over a generated test module via tree-sitter, plus
// optional external linter aggregation. Grounded on the teacher's
// services/code_buddy/ast package for the tree-sitter walk and
// services/code_buddy/lint for the linter-subprocess and parser-registry
// idiom.
package staticanalysis

import (
	"context"
	"fmt"
	"strings"

	sitter "github.com/smacker/go-tree-sitter"
	"github.com/smacker/go-tree-sitter/python"

	"github.com/deepaksaipendyala/QUEST/internal/config"
	"github.com/deepaksaipendyala/QUEST/internal/domain"
)

// Analyzer computes a domain.StaticReport for one test artifact. It
// holds a LinterRunner for the optional external-tool pass; a zero-value
// Analyzer (nil LinterRunner) still performs the syntax/complexity pass.
type Analyzer struct {
	linters *LinterRunner
}

// NewAnalyzer builds an Analyzer. linters may be nil to skip the
// external-linter pass entirely (spec.md §4.3: "static analysis tools
// are optional enrichments, never hard requirements").
func NewAnalyzer(linters *LinterRunner) *Analyzer {
	return &Analyzer{linters: linters}
}

// Analyze parses artifact text with tree-sitter to derive syntax
// validity, structural counts, and a cyclomatic-complexity proxy, then —
// if linters is configured and cfg.StaticAnalysis.Enable is true — runs
// the configured external tools and folds their issue counts in.
func (a *Analyzer) Analyze(ctx context.Context, artifact domain.TestArtifact, cfg config.StaticAnalysisConfig) (domain.StaticReport, error) {
	report := analyzeSyntax([]byte(artifact.Text))

	if !report.SyntaxOK || !cfg.Enable || a.linters == nil {
		return report, nil
	}

	for _, tool := range cfg.Tools {
		record := a.linters.Run(ctx, tool, artifact.Text)
		report.Lints = append(report.Lints, record)
		report.LintIssueCount += record.IssueCount
	}

	return report, nil
}

func analyzeSyntax(content []byte) domain.StaticReport {
	parser := sitter.NewParser()
	parser.SetLanguage(python.GetLanguage())

	tree, err := parser.ParseCtx(context.Background(), nil, content)
	if err != nil {
		return domain.StaticReport{SyntaxOK: false, SyntaxError: fmt.Sprintf("tree-sitter parse failed: %v", err)}
	}
	defer tree.Close()

	root := tree.RootNode()
	if root == nil {
		return domain.StaticReport{SyntaxOK: false, SyntaxError: "tree-sitter returned no root node"}
	}
	if root.HasError() {
		return domain.StaticReport{SyntaxOK: false, SyntaxError: "source contains syntax errors"}
	}

	walker := &complexityWalker{content: content}
	walker.walk(root)

	avg := 0.0
	if walker.functionCount > 0 {
		avg = float64(walker.totalFunctionLines) / float64(walker.functionCount)
	}

	return domain.StaticReport{
		SyntaxOK:             true,
		LineCount:            countLines(content),
		FunctionCount:        walker.functionCount,
		ClassCount:           walker.classCount,
		MaxFunctionLength:    walker.maxFunctionLines,
		AvgFunctionLength:    avg,
		CyclomaticComplexity: walker.complexity,
		TodoCount:            countTodos(content),
	}
}

// countTodos counts case-insensitive occurrences of "todo" in the
// artifact text, a cheap visibility signal for leftover placeholder
// work in a generated test module.
func countTodos(content []byte) int {
	lower := strings.ToLower(string(content))
	return strings.Count(lower, "todo")
}

func countLines(content []byte) int {
	if len(content) == 0 {
		return 0
	}
	count := 1
	for _, b := range content {
		if b == '\n' {
			count++
		}
	}
	return count
}

// decisionNodeTypes are the tree-sitter node kinds that add one branch to
// the cyclomatic-complexity proxy (spec.md §4.3: "decision points", not a
// full McCabe computation — if/elif/for/while/except/boolean operators/
// conditional expressions, base complexity 1 per function).
var decisionNodeTypes = map[string]bool{
	"if_statement":      true,
	"elif_clause":       true,
	"for_statement":     true,
	"while_statement":   true,
	"except_clause":     true,
	"boolean_operator":  true,
	"conditional_expression": true,
}

type complexityWalker struct {
	content            []byte
	functionCount      int
	classCount         int
	maxFunctionLines   int
	totalFunctionLines int
	complexity         int
}

func (w *complexityWalker) walk(n *sitter.Node) {
	switch n.Type() {
	case "function_definition":
		w.functionCount++
		w.complexity++
		lines := int(n.EndPoint().Row-n.StartPoint().Row) + 1
		w.totalFunctionLines += lines
		if lines > w.maxFunctionLines {
			w.maxFunctionLines = lines
		}
	case "class_definition":
		w.classCount++
	}
	if decisionNodeTypes[n.Type()] {
		w.complexity++
	}
	for i := 0; i < int(n.ChildCount()); i++ {
		w.walk(n.Child(i))
	}
}
