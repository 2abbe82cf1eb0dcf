package ecs_test

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/simforge/ecs"
)

func TestDefaultConfig(t *testing.T) {
	cfg := ecs.DefaultConfig()
	if cfg.World.EntityCapacity != 1024 {
		t.Fatalf("unexpected entity capacity: %d", cfg.World.EntityCapacity)
	}
	if cfg.Scheduler.FixedTimestep.Duration != 16*time.Millisecond {
		t.Fatalf("unexpected timestep: %v", cfg.Scheduler.FixedTimestep.Duration)
	}
	if cfg.Logging.Level != "info" || cfg.Logging.Format != "json" {
		t.Fatalf("unexpected logging defaults: %+v", cfg.Logging)
	}
}

func TestLoadConfigOverridesDefaults(t *testing.T) {
	path := filepath.Join(t.TempDir(), "ecs.toml")
	content := `
[world]
entity_capacity = 4096

[scheduler]
workers = 4
fixed_timestep = "8ms"

[logging]
level = "debug"
format = "console"

[telemetry]
structured_logging = true
log_format = "keyvalue"
prometheus = true
service_name = "sim-test"
`
	if err := os.WriteFile(path, []byte(content), 0o600); err != nil {
		t.Fatalf("write config: %v", err)
	}

	cfg, err := ecs.LoadConfig(path)
	if err != nil {
		t.Fatalf("load config: %v", err)
	}
	if cfg.World.EntityCapacity != 4096 {
		t.Fatalf("entity capacity not applied: %d", cfg.World.EntityCapacity)
	}
	if cfg.Scheduler.Workers != 4 {
		t.Fatalf("workers not applied: %d", cfg.Scheduler.Workers)
	}
	if cfg.Scheduler.FixedTimestep.Duration != 8*time.Millisecond {
		t.Fatalf("timestep not applied: %v", cfg.Scheduler.FixedTimestep.Duration)
	}
	if cfg.Logging.Level != "debug" || cfg.Logging.Format != "console" {
		t.Fatalf("logging not applied: %+v", cfg.Logging)
	}
	if !cfg.Telemetry.StructuredLogging || !cfg.Telemetry.Prometheus {
		t.Fatalf("telemetry not applied: %+v", cfg.Telemetry)
	}
	// Sections absent from the file keep their defaults.
	if cfg.Telemetry.Spans {
		t.Fatalf("spans should default to off")
	}
}

func TestLoadConfigPartialFileKeepsDefaults(t *testing.T) {
	path := filepath.Join(t.TempDir(), "ecs.toml")
	if err := os.WriteFile(path, []byte("[scheduler]\nworkers = 2\n"), 0o600); err != nil {
		t.Fatalf("write config: %v", err)
	}
	cfg, err := ecs.LoadConfig(path)
	if err != nil {
		t.Fatalf("load config: %v", err)
	}
	if cfg.Scheduler.Workers != 2 {
		t.Fatalf("workers not applied: %d", cfg.Scheduler.Workers)
	}
	if cfg.World.EntityCapacity != 1024 {
		t.Fatalf("defaults lost: %d", cfg.World.EntityCapacity)
	}
}

func TestLoadConfigMissingFile(t *testing.T) {
	if _, err := ecs.LoadConfig(filepath.Join(t.TempDir(), "absent.toml")); err == nil {
		t.Fatalf("expected error for missing file")
	}
}

func TestLoadConfigBadDuration(t *testing.T) {
	path := filepath.Join(t.TempDir(), "ecs.toml")
	if err := os.WriteFile(path, []byte("[scheduler]\nfixed_timestep = \"fast\"\n"), 0o600); err != nil {
		t.Fatalf("write config: %v", err)
	}
	if _, err := ecs.LoadConfig(path); err == nil {
		t.Fatalf("expected error for bad duration")
	}
}

func TestConfigInstrumentation(t *testing.T) {
	cfg := ecs.DefaultConfig()
	cfg.Telemetry.StructuredLogging = true
	cfg.Telemetry.LogFormat = "keyvalue"
	cfg.Telemetry.Spans = true

	inst := cfg.Instrumentation(nil)
	if !inst.Observation.EnableStructuredLogging {
		t.Fatalf("structured logging not enabled")
	}
	if inst.Observation.LoggingFormat != ecs.ObservationLogFormatKeyValue {
		t.Fatalf("log format not applied")
	}
	if !inst.Observation.EnableSigNoz {
		t.Fatalf("span export not enabled")
	}
	if inst.Observation.SigNozOptions == nil || inst.Observation.SigNozOptions.ServiceName != "simforge-ecs" {
		t.Fatalf("service name not propagated: %+v", inst.Observation.SigNozOptions)
	}
}
