package ecs

import (
	"bytes"
	"encoding/json"
	"errors"
	"strings"
	"testing"
	"time"
)

func TestPrometheusStageCollectorWritesMetrics(t *testing.T) {
	collector := NewPrometheusStageCollector(&PrometheusCollectorOptions{
		DurationBuckets: []time.Duration{time.Millisecond, 10 * time.Millisecond},
	})
	cimpl, ok := collector.(*PrometheusStageCollector)
	if !ok {
		t.Fatalf("expected PrometheusStageCollector implementation")
	}

	summary := StageSummary{
		Stage:           0,
		Tick:            42,
		Duration:        5 * time.Millisecond,
		SystemsTotal:    2,
		SystemsExecuted: 2,
	}
	collector.ObserveStage(summary)
	collector.ObserveStage(StageSummary{
		Stage:    -1,
		Async:    true,
		Tick:     42,
		Duration: time.Millisecond,
		Error:    errors.New("boom"),
	})

	var buf bytes.Buffer
	if err := cimpl.WriteMetrics(&buf); err != nil {
		t.Fatalf("write metrics: %v", err)
	}
	metrics := buf.String()
	if !strings.Contains(metrics, "ecs_stage_duration_seconds_sum") {
		t.Fatalf("expected duration metric in %q", metrics)
	}
	if !strings.Contains(metrics, "ecs_stage_systems_executed_total") {
		t.Fatalf("expected executed metric in %q", metrics)
	}
	if !strings.Contains(metrics, `stage="-1",async="true"`) {
		t.Fatalf("expected async stage labels in %q", metrics)
	}
	if !strings.Contains(metrics, "ecs_stage_errors_total") {
		t.Fatalf("expected error metric in %q", metrics)
	}
	if !strings.Contains(metrics, `le="0.001000"`) {
		t.Fatalf("expected histogram bucket in %q", metrics)
	}
}

func TestSigNozSpanExporterWritesJSON(t *testing.T) {
	var buf bytes.Buffer
	exporter := NewSigNozSpanExporter(&SigNozOptions{Writer: &buf, ServiceName: "ecs-test"})

	summary := StageSummary{
		Stage:           -1,
		Async:           true,
		Tick:            13,
		Duration:        10 * time.Millisecond,
		SystemsTotal:    1,
		SystemsExecuted: 1,
		ResourceReads:   []string{"clock"},
	}
	exporter.ExportStage(summary)

	if buf.Len() == 0 {
		t.Fatalf("expected exporter to write output")
	}
	var payload map[string]any
	if err := json.Unmarshal(buf.Bytes(), &payload); err != nil {
		t.Fatalf("invalid json: %v", err)
	}
	if payload["service_name"] != "ecs-test" {
		t.Fatalf("unexpected service name: %v", payload["service_name"])
	}
	if payload["name"] != "stage:async" {
		t.Fatalf("unexpected span name: %v", payload["name"])
	}
	attrs, ok := payload["attributes"].(map[string]any)
	if !ok {
		t.Fatalf("attributes missing in payload: %v", payload)
	}
	if attrs["tick"] != float64(13) {
		t.Fatalf("unexpected tick attribute: %v", attrs["tick"])
	}
}

type captureLogger struct {
	entries *[]string
}

func (l captureLogger) With(string, any) Logger { return l }

func (l captureLogger) Info(msg string, _ ...any) {
	*l.entries = append(*l.entries, msg)
}

func (l captureLogger) Error(msg string, _ ...any) {
	*l.entries = append(*l.entries, msg)
}

func TestLoggingObserverEmitsJSON(t *testing.T) {
	entries := make([]string, 0)
	observer := newLoggingObserver(captureLogger{entries: &entries}, ObservationLogFormatJSON)

	observer.StageCompleted(StageSummary{Stage: 1, Tick: 7, SystemsTotal: 1, SystemsExecuted: 1})
	observer.TickCompleted(TickSummary{Tick: 7, Stages: 2, SystemsExecuted: 3, CommandsApplied: 1})

	if len(entries) != 2 {
		t.Fatalf("expected 2 log entries, got %d", len(entries))
	}
	var stage map[string]any
	if err := json.Unmarshal([]byte(entries[0]), &stage); err != nil {
		t.Fatalf("stage entry not json: %v", err)
	}
	if stage["stage"] != float64(1) || stage["tick"] != float64(7) {
		t.Fatalf("unexpected stage payload: %v", stage)
	}
	var tick map[string]any
	if err := json.Unmarshal([]byte(entries[1]), &tick); err != nil {
		t.Fatalf("tick entry not json: %v", err)
	}
	if tick["commands_applied"] != float64(1) {
		t.Fatalf("unexpected tick payload: %v", tick)
	}
}

func TestBuildObserverChainComposes(t *testing.T) {
	entries := make([]string, 0)
	var promBuf bytes.Buffer
	chain := buildObserverChain(captureLogger{entries: &entries}, InstrumentationConfig{
		Observation: ObservationSettings{
			EnableStructuredLogging: true,
			EnablePrometheus:        true,
			PrometheusOptions:       &PrometheusCollectorOptions{Writer: &promBuf},
		},
	})

	chain.StageCompleted(StageSummary{Stage: 0, SystemsTotal: 1, SystemsExecuted: 1})
	chain.TickCompleted(TickSummary{Tick: 0, Stages: 1, SystemsExecuted: 1})

	if len(entries) != 2 {
		t.Fatalf("expected logging observer to emit 2 entries, got %d", len(entries))
	}
	if !strings.Contains(promBuf.String(), "ecs_stage_duration_seconds_sum") {
		t.Fatalf("expected prometheus metrics to be written, got %q", promBuf.String())
	}
}

func TestBuildObserverChainEmpty(t *testing.T) {
	chain := buildObserverChain(noopLogger{}, InstrumentationConfig{})
	if _, ok := chain.(noopObserver); !ok {
		t.Fatalf("expected noop observer for empty config, got %T", chain)
	}
}
