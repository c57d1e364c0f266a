// Copyright (C) 2025 QUEST Contributors
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

package main

import (
	"bytes"
	"context"
	"errors"
	"strings"
	"testing"
	"time"
)

func TestDefaultSpinnerConfig(t *testing.T) {
	config := defaultSpinnerConfig()

	if config.Message == "" {
		t.Error("Message should have a default value")
	}
	if config.Interval <= 0 {
		t.Error("Interval should be positive")
	}
	if len(config.Frames) == 0 {
		t.Error("Frames should have default values")
	}
	if config.Writer == nil {
		t.Error("Writer should not be nil")
	}
}

func TestNewSpinner_ZeroValueDefaults(t *testing.T) {
	sp := newSpinner(spinnerConfig{})
	if sp.IsRunningForTest() {
		t.Error("new spinner should not be running")
	}
	if len(sp.config.Frames) == 0 {
		t.Error("zero-value config should get default frames")
	}
	if sp.config.Writer == nil {
		t.Error("zero-value config should get a default writer")
	}
}

func TestSpinner_StartStop(t *testing.T) {
	buf := &bytes.Buffer{}
	sp := newSpinner(spinnerConfig{
		Message:  "working",
		Interval: 10 * time.Millisecond,
		Writer:   buf,
	})

	sp.Start()
	if !sp.IsRunningForTest() {
		t.Error("spinner should be running after Start()")
	}

	time.Sleep(50 * time.Millisecond)
	sp.StopSuccess("")

	if sp.IsRunningForTest() {
		t.Error("spinner should not be running after stop")
	}
	if buf.Len() == 0 {
		t.Error("spinner should have written output")
	}
}

func TestSpinner_DoubleStart(t *testing.T) {
	buf := &bytes.Buffer{}
	sp := newSpinner(spinnerConfig{Message: "working", Interval: 10 * time.Millisecond, Writer: buf})

	sp.Start()
	sp.Start() // no-op

	if !sp.IsRunningForTest() {
		t.Error("spinner should be running")
	}
	sp.StopSuccess("")
}

func TestSpinner_SetMessage(t *testing.T) {
	buf := &bytes.Buffer{}
	sp := newSpinner(spinnerConfig{Message: "initial", Interval: 10 * time.Millisecond, Writer: buf})

	sp.Start()
	time.Sleep(30 * time.Millisecond)
	sp.SetMessage("updated")
	time.Sleep(30 * time.Millisecond)
	sp.StopSuccess("")

	output := buf.String()
	if !strings.Contains(output, "initial") {
		t.Error("output should contain the initial message")
	}
	if !strings.Contains(output, "updated") {
		t.Error("output should contain the updated message")
	}
}

func TestSpinner_StopSuccessAndFailure(t *testing.T) {
	buf := &bytes.Buffer{}
	sp := newSpinner(spinnerConfig{Message: "working", Interval: 10 * time.Millisecond, Writer: buf})
	sp.Start()
	time.Sleep(20 * time.Millisecond)
	sp.StopSuccess("all good")

	if !strings.Contains(buf.String(), "✓") || !strings.Contains(buf.String(), "all good") {
		t.Error("StopSuccess should print a checkmark and the message")
	}

	buf.Reset()
	sp = newSpinner(spinnerConfig{Message: "working", Interval: 10 * time.Millisecond, Writer: buf})
	sp.Start()
	time.Sleep(20 * time.Millisecond)
	sp.StopFailure("broke")

	if !strings.Contains(buf.String(), "✗") || !strings.Contains(buf.String(), "broke") {
		t.Error("StopFailure should print a cross and the message")
	}
}

func TestSpinWhileContext_Success(t *testing.T) {
	err := spinWhileContext(context.Background(), "doing work", func() error {
		time.Sleep(20 * time.Millisecond)
		return nil
	})
	if err != nil {
		t.Errorf("spinWhileContext() error = %v, want nil", err)
	}
}

func TestSpinWhileContext_FnError(t *testing.T) {
	want := errors.New("boom")
	err := spinWhileContext(context.Background(), "doing work", func() error {
		return want
	})
	if err != want {
		t.Errorf("spinWhileContext() error = %v, want %v", err, want)
	}
}

func TestSpinWhileContext_CancelledBeforeDone(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	err := spinWhileContext(ctx, "doing work", func() error {
		time.Sleep(100 * time.Millisecond)
		return nil
	})
	if !errors.Is(err, context.Canceled) {
		t.Errorf("spinWhileContext() error = %v, want context.Canceled", err)
	}
}

// IsRunningForTest exposes the spinner's running state without adding a
// public IsRunning method the CLI itself never calls.
func (s *spinner) IsRunningForTest() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.running
}
