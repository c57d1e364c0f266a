// Copyright (C) 2025 QUEST Contributors
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"sync"
	"time"
)

// spinnerConfig controls a spinner's appearance and output destination.
type spinnerConfig struct {
	Message     string
	Interval    time.Duration
	Frames      []string
	Writer      io.Writer
	ClearOnStop bool
}

func defaultSpinnerConfig() spinnerConfig {
	return spinnerConfig{
		Message:     "running...",
		Interval:    120 * time.Millisecond,
		Frames:      []string{"⠋", "⠙", "⠹", "⠸", "⠼", "⠴", "⠦", "⠧", "⠇", "⠏"},
		Writer:      os.Stderr,
		ClearOnStop: true,
	}
}

// spinner gives terminal feedback while a run's DRAFT/ANALYZE/EXECUTE
// loop is in flight, so a multi-iteration run doesn't look hung.
type spinner struct {
	config  spinnerConfig
	frame   int
	running bool
	stopCh  chan struct{}
	doneCh  chan struct{}
	mu      sync.Mutex
}

func newSpinner(config spinnerConfig) *spinner {
	if config.Interval <= 0 {
		config.Interval = 120 * time.Millisecond
	}
	if len(config.Frames) == 0 {
		config.Frames = defaultSpinnerConfig().Frames
	}
	if config.Writer == nil {
		config.Writer = os.Stderr
	}
	return &spinner{config: config}
}

func (s *spinner) Start() {
	s.mu.Lock()
	if s.running {
		s.mu.Unlock()
		return
	}
	s.running = true
	s.stopCh = make(chan struct{})
	s.doneCh = make(chan struct{})
	s.mu.Unlock()

	go s.spin()
}

func (s *spinner) stopWith(prefix, message string) {
	s.mu.Lock()
	if !s.running {
		s.mu.Unlock()
		return
	}
	s.running = false
	close(s.stopCh)
	s.mu.Unlock()

	<-s.doneCh
	s.clearLine()
	fmt.Fprintf(s.config.Writer, "\r%s %s\n", prefix, message)
}

func (s *spinner) StopSuccess(message string) {
	if message == "" {
		message = "done"
	}
	s.stopWith("✓", message)
}

func (s *spinner) StopFailure(message string) {
	if message == "" {
		message = "failed"
	}
	s.stopWith("✗", message)
}

func (s *spinner) SetMessage(message string) {
	s.mu.Lock()
	s.config.Message = message
	s.mu.Unlock()
}

func (s *spinner) spin() {
	defer close(s.doneCh)
	ticker := time.NewTicker(s.config.Interval)
	defer ticker.Stop()
	for {
		select {
		case <-ticker.C:
			s.render()
		case <-s.stopCh:
			return
		}
	}
}

func (s *spinner) render() {
	s.mu.Lock()
	frame := s.config.Frames[s.frame%len(s.config.Frames)]
	message := s.config.Message
	s.frame++
	s.mu.Unlock()
	fmt.Fprintf(s.config.Writer, "\r%s %s", frame, message)
}

func (s *spinner) clearLine() {
	fmt.Fprint(s.config.Writer, "\r\033[K")
}

// spinWhileContext runs fn with a spinner, stopping early if ctx is
// cancelled before fn returns.
func spinWhileContext(ctx context.Context, message string, fn func() error) error {
	sp := newSpinner(spinnerConfig{Message: message})
	sp.Start()

	done := make(chan error, 1)
	go func() { done <- fn() }()

	select {
	case err := <-done:
		if err != nil {
			sp.StopFailure(err.Error())
		} else {
			sp.StopSuccess("")
		}
		return err
	case <-ctx.Done():
		sp.StopFailure("cancelled")
		return ctx.Err()
	}
}
