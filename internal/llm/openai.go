// Copyright (C) 2025 QUEST Contributors
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

package llm

import (
	"context"
	"errors"
	"fmt"
	"os"
	"strings"

	openai "github.com/sashabaranov/go-openai"

	"github.com/deepaksaipendyala/QUEST/pkg/logging"
)

// OpenAIClient wraps github.com/sashabaranov/go-openai, the exact
// dependency the teacher's services/llm/openai_llm.go imports.
type OpenAIClient struct {
	client *openai.Client
}

// NewOpenAIClient builds a client from OPENAI_API_KEY (or the mounted
// secret file, matching the teacher's fallback).
func NewOpenAIClient() (*OpenAIClient, error) {
	apiKey := os.Getenv("OPENAI_API_KEY")
	if apiKey == "" {
		if content, err := os.ReadFile("/run/secrets/openai_api_key"); err == nil {
			apiKey = strings.TrimSpace(string(content))
			logging.Default().Info("read OpenAI API key from mounted secret")
		}
	}
	if apiKey == "" {
		return nil, newConfigError("openai", fmt.Errorf("OPENAI_API_KEY is not set"))
	}
	return &OpenAIClient{client: openai.NewClient(apiKey)}, nil
}

// Complete implements Client. When collectLogprobs is true, it requests
// per-token logprobs via the chat-completions LogProbs option and maps
// them onto TokenLogprob so the Gateway can derive entropy (spec.md §4.1).
func (c *OpenAIClient) Complete(ctx context.Context, prompt string, opts DecodingOptions, collectLogprobs bool) (CompletionResult, error) {
	req := openai.ChatCompletionRequest{
		Model: opts.Model,
		Messages: []openai.ChatCompletionMessage{
			{Role: openai.ChatMessageRoleUser, Content: prompt},
		},
		Temperature: opts.Temperature,
		TopP:        opts.TopP,
		MaxTokens:   opts.MaxTokens,
	}
	if collectLogprobs {
		req.LogProbs = true
		req.TopLogProbs = 1
	}

	resp, err := c.client.CreateChatCompletion(ctx, req)
	if err != nil {
		if errors.Is(ctx.Err(), context.DeadlineExceeded) {
			return CompletionResult{}, newTimeoutError("openai", err)
		}
		return CompletionResult{}, newUpstreamError("openai", err)
	}
	if len(resp.Choices) == 0 {
		return CompletionResult{}, newUpstreamError("openai", fmt.Errorf("no choices returned"))
	}

	choice := resp.Choices[0]
	result := CompletionResult{
		Text:         choice.Message.Content,
		InputTokens:  resp.Usage.PromptTokens,
		OutputTokens: resp.Usage.CompletionTokens,
	}

	if collectLogprobs && choice.LogProbs != nil {
		for _, tok := range choice.LogProbs.Content {
			result.Logprobs = append(result.Logprobs, TokenLogprob{
				Token:   tok.Token,
				Logprob: tok.LogProb,
			})
		}
	}

	return result, nil
}
