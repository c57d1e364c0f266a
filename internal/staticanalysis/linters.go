// Copyright (C) 2025 QUEST Contributors
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

package staticanalysis

import (
	"bytes"
	"context"
	"encoding/json"
	"os"
	"os/exec"
	"path/filepath"
	"sync"
	"time"

	"github.com/deepaksaipendyala/QUEST/internal/config"
	"github.com/deepaksaipendyala/QUEST/internal/domain"
	"github.com/deepaksaipendyala/QUEST/pkg/logging"
)

// ParserFunc parses one linter's raw output into an issue count,
// mirroring the teacher's lint.ParserFunc/parserRegistry pair.
type ParserFunc func(data []byte) (issueCount int, err error)

var parserRegistry = map[string]ParserFunc{
	"ruff":    parseRuffOutput,
	"mypy":    parseMypyOutput,
	"pyflakes": parsePyflakesOutput,
}

// LinterRunner detects installed linter binaries and executes them
// against a candidate test module, grounded on
// services/trace/lint.LintRunner's "detect once, run many times" shape.
type LinterRunner struct {
	availMu   sync.RWMutex
	available map[string]bool
}

// NewLinterRunner returns a LinterRunner with nothing yet probed.
func NewLinterRunner() *LinterRunner {
	return &LinterRunner{available: make(map[string]bool)}
}

// DetectAvailable probes PATH for every tool's binary and caches the
// result, exactly like DetectAvailableLinters — called once at
// orchestrator startup, not on every attempt.
func (r *LinterRunner) DetectAvailable(tools []config.StaticToolConfig) {
	r.availMu.Lock()
	defer r.availMu.Unlock()
	for _, tool := range tools {
		_, err := exec.LookPath(tool.Binary)
		r.available[tool.Name] = err == nil
		if err != nil {
			logging.Default().Warn("static analysis tool not installed", "tool", tool.Name, "binary", tool.Binary)
		}
	}
}

// Run executes one configured tool against source and returns its
// LintRecord. A missing binary or a timeout is reported as
// Available=false rather than propagated as an error, per spec.md §4.3
// and §7's ToolUnavailable kind — the Static Analyzer must never block a
// run on a linter's absence.
func (r *LinterRunner) Run(ctx context.Context, tool config.StaticToolConfig, source string) domain.LintRecord {
	r.availMu.RLock()
	available := r.available[tool.Name]
	r.availMu.RUnlock()

	record := domain.LintRecord{Tool: tool.Name, Available: available}
	if !available {
		return record
	}

	tmpFile, err := os.CreateTemp("", "quest-static-*.py")
	if err != nil {
		logging.Default().Warn("static analysis temp file failed", "tool", tool.Name, "error", err)
		record.Available = false
		return record
	}
	defer os.Remove(tmpFile.Name())
	if _, err := tmpFile.WriteString(source); err != nil {
		tmpFile.Close()
		logging.Default().Warn("static analysis temp file write failed", "tool", tool.Name, "error", err)
		record.Available = false
		return record
	}
	tmpFile.Close()

	args := toolArgs(tool.Name, tmpFile.Name())

	cmdCtx, cancel := context.WithTimeout(ctx, 15*time.Second)
	defer cancel()

	cmd := exec.CommandContext(cmdCtx, tool.Binary, args...)
	cmd.Dir = filepath.Dir(tmpFile.Name())

	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	runErr := cmd.Run()
	record.ExitCode = cmd.ProcessState.ExitCode()

	if cmdCtx.Err() == context.DeadlineExceeded {
		logging.Default().Warn("static analysis tool timed out", "tool", tool.Name)
		record.Available = false
		return record
	}

	parse, ok := parserRegistry[tool.Name]
	if !ok {
		record.OutputExcerpt = excerpt(stdout.String())
		return record
	}

	count, parseErr := parse(stdout.Bytes())
	if parseErr != nil {
		logging.Default().Warn("static analysis output parse failed", "tool", tool.Name, "error", parseErr)
		record.OutputExcerpt = excerpt(stderr.String())
		return record
	}
	record.IssueCount = count
	record.OutputExcerpt = excerpt(stdout.String())

	_ = runErr // non-zero exit is expected when a linter finds issues
	return record
}

func toolArgs(name, path string) []string {
	switch name {
	case "ruff":
		return []string{"check", "--output-format=json", path}
	case "mypy":
		return []string{"--no-error-summary", path}
	case "pyflakes":
		return []string{path}
	default:
		return []string{path}
	}
}

func excerpt(s string) string {
	const maxLen = 2000
	if len(s) <= maxLen {
		return s
	}
	return s[:maxLen]
}

type ruffIssue struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

func parseRuffOutput(data []byte) (int, error) {
	if len(bytes.TrimSpace(data)) == 0 {
		return 0, nil
	}
	var issues []ruffIssue
	if err := json.Unmarshal(data, &issues); err != nil {
		return 0, err
	}
	return len(issues), nil
}

func parseMypyOutput(data []byte) (int, error) {
	count := 0
	for _, line := range bytes.Split(data, []byte("\n")) {
		if bytes.Contains(line, []byte(": error:")) {
			count++
		}
	}
	return count, nil
}

func parsePyflakesOutput(data []byte) (int, error) {
	trimmed := bytes.TrimSpace(data)
	if len(trimmed) == 0 {
		return 0, nil
	}
	return len(bytes.Split(trimmed, []byte("\n"))), nil
}
