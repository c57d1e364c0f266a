// Copyright (C) 2025 QUEST Contributors
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

package llm

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"os"
	"strings"
	"time"

	"github.com/deepaksaipendyala/QUEST/pkg/logging"
)

const (
	anthropicAPIVersion  = "2023-06-01"
	anthropicDefaultURL  = "https://api.anthropic.com/v1/messages"
)

type anthropicRequest struct {
	Model       string             `json:"model"`
	Messages    []anthropicMessage `json:"messages"`
	System      []anthropicSystem  `json:"system,omitempty"`
	MaxTokens   int                `json:"max_tokens"`
	Temperature *float32           `json:"temperature,omitempty"`
	TopP        *float32           `json:"top_p,omitempty"`
}

type anthropicMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type anthropicSystem struct {
	Type string `json:"type"`
	Text string `json:"text"`
}

type anthropicResponse struct {
	Content []anthropicContent `json:"content"`
	Usage   anthropicUsage     `json:"usage"`
	Error   *anthropicError    `json:"error,omitempty"`
}

type anthropicContent struct {
	Type string `json:"type"`
	Text string `json:"text"`
}

type anthropicUsage struct {
	InputTokens  int `json:"input_tokens"`
	OutputTokens int `json:"output_tokens"`
}

type anthropicError struct {
	Type    string `json:"type"`
	Message string `json:"message"`
}

// AnthropicClient is a hand-rolled REST client against the Messages API,
// grounded on services/llm/anthropic_llm.go. The teacher does not use an
// SDK for Anthropic either — this matches that choice rather than adding
// one.
//
// Note: the public Messages API does not return per-token logprobs, so
// AnthropicClient never populates CompletionResult.Logprobs regardless of
// collectLogprobs; downstream treats this as entropy=unknown per
// spec.md §4.1.
type AnthropicClient struct {
	httpClient *http.Client
	apiKey     string
	baseURL    string
}

// NewAnthropicClient builds a client from ANTHROPIC_API_KEY (or the
// /run/secrets/anthropic_api_key file, matching the teacher's Podman
// secrets fallback). Returns questerr.ErrConfigurationMissing if no key
// can be found.
func NewAnthropicClient() (*AnthropicClient, error) {
	apiKey := os.Getenv("ANTHROPIC_API_KEY")
	if apiKey == "" {
		if content, err := os.ReadFile("/run/secrets/anthropic_api_key"); err == nil {
			apiKey = strings.TrimSpace(string(content))
			logging.Default().Info("read Anthropic API key from mounted secret")
		}
	}
	if apiKey == "" {
		return nil, newConfigError("anthropic", fmt.Errorf("ANTHROPIC_API_KEY is not set"))
	}
	return &AnthropicClient{
		httpClient: &http.Client{},
		apiKey:     apiKey,
		baseURL:    anthropicDefaultURL,
	}, nil
}

// Complete implements Client.
func (c *AnthropicClient) Complete(ctx context.Context, prompt string, opts DecodingOptions, _ bool) (CompletionResult, error) {
	timeout := time.Duration(opts.TimeoutSeconds) * time.Second
	if timeout <= 0 {
		timeout = 60 * time.Second
	}
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	temp := opts.Temperature
	topP := opts.TopP
	reqPayload := anthropicRequest{
		Model:       opts.Model,
		Messages:    []anthropicMessage{{Role: "user", Content: prompt}},
		MaxTokens:   opts.MaxTokens,
		Temperature: &temp,
		TopP:        &topP,
	}

	body, err := json.Marshal(reqPayload)
	if err != nil {
		return CompletionResult{}, fmt.Errorf("marshal anthropic request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL, bytes.NewReader(body))
	if err != nil {
		return CompletionResult{}, fmt.Errorf("build anthropic request: %w", err)
	}
	req.Header.Set("x-api-key", c.apiKey)
	req.Header.Set("anthropic-version", anthropicAPIVersion)
	req.Header.Set("content-type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		if ctx.Err() != nil {
			return CompletionResult{}, newTimeoutError("anthropic", err)
		}
		return CompletionResult{}, newUpstreamError("anthropic", err)
	}
	defer resp.Body.Close()

	respBody, _ := io.ReadAll(resp.Body)
	if resp.StatusCode != http.StatusOK {
		return CompletionResult{}, newUpstreamError("anthropic", fmt.Errorf("status %d: %s", resp.StatusCode, respBody))
	}

	var apiResp anthropicResponse
	if err := json.Unmarshal(respBody, &apiResp); err != nil {
		return CompletionResult{}, newUpstreamError("anthropic", fmt.Errorf("decode response: %w", err))
	}
	if apiResp.Error != nil {
		return CompletionResult{}, newUpstreamError("anthropic", fmt.Errorf("%s: %s", apiResp.Error.Type, apiResp.Error.Message))
	}

	var text strings.Builder
	for _, block := range apiResp.Content {
		if block.Type == "text" {
			text.WriteString(block.Text)
		}
	}

	return CompletionResult{
		Text:         text.String(),
		InputTokens:  apiResp.Usage.InputTokens,
		OutputTokens: apiResp.Usage.OutputTokens,
	}, nil
}
