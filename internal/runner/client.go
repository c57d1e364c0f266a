// Copyright (C) 2025 QUEST Contributors
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

// Package runner implements the Runner Client (C8): the HTTP
// collaborator for sandboxed test execution, plus the dry-mode stub.
// Grounded on the teacher's
// services/trace/explore.EmbeddingClient — a *http.Client with an
// explicit timeout, http.NewRequestWithContext, and an explicit
// status-code check before decoding JSON.
package runner

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/go-playground/validator/v10"

	"github.com/deepaksaipendyala/QUEST/internal/domain"
	"github.com/deepaksaipendyala/QUEST/internal/questerr"
)

// Client is the sandboxed-execution collaborator's narrow operation set.
type Client interface {
	Execute(ctx context.Context, req Request) (domain.RunnerResponse, error)
	// FetchCode retrieves the target module's source via POST /code, for
	// use when the repository is not locally mounted (spec.md §6). The
	// orchestrator does not call it; it takes the source from
	// RunInput.CodeSrc. Returns questerr.ErrRunner if the endpoint is
	// absent or unreachable.
	FetchCode(ctx context.Context, req Request) (string, error)
}

// Request is the body shared by /runner and /code (spec.md §6).
type Request struct {
	Repo     string `json:"repo" validate:"required"`
	Version  string `json:"version" validate:"required"`
	CodeFile string `json:"code_file" validate:"required"`
	TestSrc  string `json:"test_src,omitempty"`
}

var requestValidator = validator.New()

// HTTPClient calls an external sandboxed execution service.
type HTTPClient struct {
	runnerURL  string
	codeURL    string
	httpClient *http.Client
	// validate gates an optional struct-tag validation pass over the
	// outgoing request, mirroring the original system's env-gated
	// pydantic RunnerRequestModel check ahead of the same POST.
	validate bool
}

// NewHTTPClient builds a Client against runnerURL (/runner) and, if set,
// codeURL (/code). timeout bounds every request this client issues
// (spec.md §5: "300s runner" default suspension point).
func NewHTTPClient(runnerURL, codeURL string, timeout time.Duration) *HTTPClient {
	return &HTTPClient{
		runnerURL: runnerURL,
		codeURL:   codeURL,
		httpClient: &http.Client{
			Timeout: timeout,
		},
	}
}

// WithValidation turns on the optional request-validation pass and
// returns c for chaining.
func (c *HTTPClient) WithValidation(enable bool) *HTTPClient {
	c.validate = enable
	return c
}

// rawResponse mirrors the wire shape before missing-field substitution.
// Every numeric field is a pointer so json.Unmarshal can tell "absent"
// from "zero" — the distinction Execute needs to apply spec.md §4.8's
// "substitute -1 for missing numeric fields" rule.
type rawResponse struct {
	Success             bool     `json:"success"`
	ExitCode            *int     `json:"exit_code"`
	Coverage            *float64 `json:"coverage"`
	MissingLines        []int    `json:"missing_lines"`
	MutationScore       *float64 `json:"mutation_score"`
	MutationNum         *int     `json:"mutation_num"`
	MutationUncertainty *float64 `json:"mutation_uncertainty"`
	TestError           string   `json:"test_error,omitempty"`
	Stdout              string   `json:"stdout"`
	Stderr              string   `json:"stderr"`
	ExecutionTimeMS     *int64   `json:"execution_time_ms"`
}

// Execute implements Client.
func (c *HTTPClient) Execute(ctx context.Context, req Request) (domain.RunnerResponse, error) {
	if c.validate {
		if err := requestValidator.Struct(req); err != nil {
			return domain.RunnerResponse{}, fmt.Errorf("%w: runner request: %v", questerr.ErrValidationFailure, err)
		}
	}

	body, err := json.Marshal(req)
	if err != nil {
		return domain.RunnerResponse{}, fmt.Errorf("%w: marshal runner request: %v", questerr.ErrRunner, err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.runnerURL, bytes.NewReader(body))
	if err != nil {
		return domain.RunnerResponse{}, fmt.Errorf("%w: build runner request: %v", questerr.ErrRunner, err)
	}
	httpReq.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		if ctx.Err() != nil || isTimeout(err) {
			return syntheticTimeoutResponse(), nil
		}
		return domain.RunnerResponse{}, fmt.Errorf("%w: %v", questerr.ErrRunner, err)
	}
	defer resp.Body.Close()

	respBody, _ := io.ReadAll(resp.Body)
	if resp.StatusCode != http.StatusOK {
		return domain.RunnerResponse{}, fmt.Errorf("%w: runner status %d: %s", questerr.ErrRunner, resp.StatusCode, respBody)
	}

	var raw rawResponse
	if err := json.Unmarshal(respBody, &raw); err != nil {
		return domain.RunnerResponse{}, fmt.Errorf("%w: decode runner response: %v", questerr.ErrRunner, err)
	}

	return raw.toRunnerResponse(), nil
}

// isTimeout reports whether err is a client-level request timeout, the
// case spec.md §5's "runner timeout" cancellation rule covers.
func isTimeout(err error) bool {
	e, ok := err.(interface{ Timeout() bool })
	return ok && e.Timeout()
}

// FetchCode implements Client.
func (c *HTTPClient) FetchCode(ctx context.Context, req Request) (string, error) {
	if c.codeURL == "" {
		return "", fmt.Errorf("%w: no code endpoint configured", questerr.ErrRunner)
	}

	body, err := json.Marshal(req)
	if err != nil {
		return "", fmt.Errorf("%w: marshal code request: %v", questerr.ErrRunner, err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.codeURL, bytes.NewReader(body))
	if err != nil {
		return "", fmt.Errorf("%w: build code request: %v", questerr.ErrRunner, err)
	}
	httpReq.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		return "", fmt.Errorf("%w: %v", questerr.ErrRunner, err)
	}
	defer resp.Body.Close()

	respBody, _ := io.ReadAll(resp.Body)
	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("%w: code endpoint status %d: %s", questerr.ErrRunner, resp.StatusCode, respBody)
	}

	var decoded struct {
		CodeSrc string `json:"code_src"`
	}
	if err := json.Unmarshal(respBody, &decoded); err != nil {
		return "", fmt.Errorf("%w: decode code response: %v", questerr.ErrRunner, err)
	}
	return decoded.CodeSrc, nil
}

func (raw rawResponse) toRunnerResponse() domain.RunnerResponse {
	return domain.RunnerResponse{
		Success:             raw.Success,
		ExitCode:            intOr(raw.ExitCode, -1),
		Coverage:            floatOr(raw.Coverage, -1),
		CoverageDetails:     domain.CoverageDetails{MissingLines: raw.MissingLines},
		MutationScore:       floatOr(raw.MutationScore, -1),
		MutationNum:         intOr(raw.MutationNum, -1),
		MutationUncertainty: floatOr(raw.MutationUncertainty, -1),
		TestError:           raw.TestError,
		Stdout:              raw.Stdout,
		Stderr:              raw.Stderr,
		ExecutionTimeMS:     int64Or(raw.ExecutionTimeMS, -1),
	}
}

func intOr(p *int, fallback int) int {
	if p == nil {
		return fallback
	}
	return *p
}

func floatOr(p *float64, fallback float64) float64 {
	if p == nil {
		return fallback
	}
	return *p
}

func int64Or(p *int64, fallback int64) int64 {
	if p == nil {
		return fallback
	}
	return *p
}

// syntheticTimeoutResponse is what Execute returns when the runner
// request itself times out, per spec.md §5's cancellation rule: "the
// orchestrator treats a runner timeout as a failed attempt".
func syntheticTimeoutResponse() domain.RunnerResponse {
	return domain.RunnerResponse{
		Success:       false,
		ExitCode:      -1,
		Coverage:      -1,
		MutationScore: -1,
		MutationNum:   -1,
		TestError:     "timeout",
	}
}
