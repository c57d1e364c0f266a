// Copyright (C) 2025 QUEST Contributors
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/go-playground/validator/v10"
	"gopkg.in/yaml.v3"

	"github.com/deepaksaipendyala/QUEST/internal/questerr"
)

var (
	// Global is the process-wide configuration singleton, populated by Load.
	Global Config
	once   sync.Once
	loadErr error
)

// Load reads the config file at path (creating a default one if it does
// not exist, mirroring cmd/aleutian/config.Load's first-run behavior),
// unmarshals it into Global, and validates it. Safe to call more than
// once; only the first call does any work.
func Load(path string) error {
	once.Do(func() {
		loadErr = loadInternal(path)
	})
	return loadErr
}

func loadInternal(path string) error {
	path = expandPath(path)

	if _, err := os.Stat(path); os.IsNotExist(err) {
		if err := createDefault(path); err != nil {
			return fmt.Errorf("%w: creating default config at %s: %v", questerr.ErrConfigurationMissing, path, err)
		}
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("%w: reading config file %s: %v", questerr.ErrConfigurationMissing, path, err)
	}

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return fmt.Errorf("%w: parsing config file %s: %v", questerr.ErrValidationFailure, path, err)
	}

	if err := Validate(cfg); err != nil {
		return err
	}

	Global = cfg
	return nil
}

// Validate runs struct-tag validation over cfg and applies the
// cross-field rules spec.md §7 assigns to ValidationFailure: static
// analysis enabled with no tools configured is allowed (tools are
// optional per §4.3), but malformed thresholds are not.
func Validate(cfg Config) error {
	v := validator.New()
	if err := v.Struct(cfg); err != nil {
		return fmt.Errorf("%w: %v", questerr.ErrValidationFailure, err)
	}
	if cfg.Reliability.EntropyMedium < cfg.Reliability.EntropyHigh {
		return fmt.Errorf("%w: reliability.entropy_medium must be >= reliability.entropy_high", questerr.ErrValidationFailure)
	}
	return nil
}

func createDefault(path string) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("creating config directory %s: %w", dir, err)
	}
	data, err := yaml.Marshal(DefaultConfig())
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0644)
}

func expandPath(path string) string {
	if strings.HasPrefix(path, "~") {
		if home, err := os.UserHomeDir(); err == nil {
			return filepath.Join(home, strings.TrimPrefix(path, "~"))
		}
	}
	return path
}

// reset is a test-only helper that clears the Load singleton so multiple
// test cases can exercise Load independently.
func reset() {
	once = sync.Once{}
	loadErr = nil
	Global = Config{}
}
