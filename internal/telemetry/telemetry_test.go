// Copyright (C) 2025 QUEST Contributors
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

package telemetry

import (
	"context"
	"testing"

	"go.opentelemetry.io/otel/metric/noop"
)

func TestDefaultConfig(t *testing.T) {
	cfg := DefaultConfig()

	if cfg.ServiceName != "questctl" {
		t.Errorf("ServiceName = %q, want %q", cfg.ServiceName, "questctl")
	}
	if cfg.MetricExporter != "prometheus" {
		t.Errorf("MetricExporter = %q, want %q", cfg.MetricExporter, "prometheus")
	}
	if cfg.PrometheusPort != 9464 {
		t.Errorf("PrometheusPort = %d, want 9464", cfg.PrometheusPort)
	}
}

func TestInit_NilContext(t *testing.T) {
	_, err := Init(nil, DefaultConfig())
	if err != ErrNilContext {
		t.Errorf("Init(nil, cfg) error = %v, want %v", err, ErrNilContext)
	}
}

func TestInit_NoopExporter(t *testing.T) {
	cfg := DefaultConfig()
	cfg.MetricExporter = "none"

	shutdown, err := Init(context.Background(), cfg)
	if err != nil {
		t.Fatalf("Init() error = %v", err)
	}
	if err := shutdown(context.Background()); err != nil {
		t.Errorf("shutdown() error = %v", err)
	}
	if MetricsHandler() != nil {
		t.Error("MetricsHandler() should be nil when the metric exporter is none")
	}
}

func TestInit_UnknownExporter(t *testing.T) {
	cfg := DefaultConfig()
	cfg.MetricExporter = "made-up-exporter"

	_, err := Init(context.Background(), cfg)
	if err == nil {
		t.Fatal("Init() error = nil, want ErrUnknownExporter")
	}
}

func TestInit_StdoutExporter(t *testing.T) {
	cfg := DefaultConfig()
	cfg.MetricExporter = "stdout"

	shutdown, err := Init(context.Background(), cfg)
	if err != nil {
		t.Fatalf("Init() error = %v", err)
	}
	defer shutdown(context.Background())
}

func TestNewMetrics_CreatesEveryInstrument(t *testing.T) {
	m, err := NewMetrics(noop.NewMeterProvider().Meter("test"))
	if err != nil {
		t.Fatalf("NewMetrics() error = %v", err)
	}
	if m.AttemptsTotal == nil || m.AttemptDuration == nil || m.RunsTotal == nil {
		t.Error("NewMetrics() left an orchestrator-level instrument nil")
	}
	if m.DraftDuration == nil || m.RefineDuration == nil || m.AgentCallsTotal == nil {
		t.Error("NewMetrics() left an agent-level instrument nil")
	}
	if m.Coverage == nil || m.MutationScore == nil || m.RunnerCallsTotal == nil {
		t.Error("NewMetrics() left a runner-level instrument nil")
	}
	if m.ReliabilityPreLevelTotal == nil || m.ReliabilityPostLevelTotal == nil {
		t.Error("NewMetrics() left a reliability instrument nil")
	}
}
