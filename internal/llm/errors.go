// Copyright (C) 2025 QUEST Contributors
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

package llm

import (
	"errors"
	"fmt"

	"github.com/deepaksaipendyala/QUEST/internal/questerr"
)

// ProviderError wraps a failure from a specific model provider, carrying
// enough context for the orchestrator to decide whether the failure is
// fatal (spec.md §7: ConfigurationMissing on attempt 0 is fatal;
// UpstreamTimeout/UpstreamError are fatal on attempt 0 only).
type ProviderError struct {
	Provider string
	Err      error
}

func (e *ProviderError) Error() string {
	return fmt.Sprintf("%s: %v", e.Provider, e.Err)
}

func (e *ProviderError) Unwrap() error { return e.Err }

func newConfigError(provider string, cause error) error {
	return &ProviderError{Provider: provider, Err: fmt.Errorf("%w: %v", questerr.ErrConfigurationMissing, cause)}
}

func newTimeoutError(provider string, cause error) error {
	return &ProviderError{Provider: provider, Err: fmt.Errorf("%w: %v", questerr.ErrUpstreamTimeout, cause)}
}

func newUpstreamError(provider string, cause error) error {
	return &ProviderError{Provider: provider, Err: fmt.Errorf("%w: %v", questerr.ErrUpstreamError, cause)}
}

// IsConfigurationMissing reports whether err ultimately wraps
// questerr.ErrConfigurationMissing.
func IsConfigurationMissing(err error) bool { return errors.Is(err, questerr.ErrConfigurationMissing) }

// IsUpstreamTimeout reports whether err ultimately wraps
// questerr.ErrUpstreamTimeout.
func IsUpstreamTimeout(err error) bool { return errors.Is(err, questerr.ErrUpstreamTimeout) }

// IsUpstreamError reports whether err ultimately wraps
// questerr.ErrUpstreamError.
func IsUpstreamError(err error) bool { return errors.Is(err, questerr.ErrUpstreamError) }
