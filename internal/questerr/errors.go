// Copyright (C) 2025 QUEST Contributors
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

// Package questerr defines the error kinds shared across QUEST's
// components. Components wrap one of these sentinels with context via
// fmt.Errorf("...: %w", ...) rather than defining their own ad-hoc error
// types, so callers can classify a failure with errors.Is regardless of
// which component produced it.
package questerr

import "errors"

var (
	// ErrConfigurationMissing indicates a required credential, config value,
	// or provider library is absent. Fatal on attempt 0 of the Model Gateway.
	ErrConfigurationMissing = errors.New("configuration missing")

	// ErrUpstreamTimeout indicates a collaborator (model provider, runner)
	// exceeded its configured wall-clock timeout.
	ErrUpstreamTimeout = errors.New("upstream timeout")

	// ErrUpstreamError indicates a collaborator returned a non-retryable
	// error response.
	ErrUpstreamError = errors.New("upstream error")

	// ErrRunner indicates the sandboxed execution collaborator was
	// unreachable or returned a malformed response.
	ErrRunner = errors.New("runner error")

	// ErrToolUnavailable indicates an optional static-analysis tool
	// (linter, type checker) could not be located. Never fatal.
	ErrToolUnavailable = errors.New("tool unavailable")

	// ErrParseFailure indicates source text (context or generated test)
	// could not be parsed. Recovered by the caller in all cases.
	ErrParseFailure = errors.New("parse failure")

	// ErrValidationFailure indicates a schema or configuration value
	// mismatch detected by runtime validation.
	ErrValidationFailure = errors.New("validation failure")
)
