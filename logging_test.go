package ecs_test

import (
	"testing"

	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"

	"github.com/simforge/ecs"
)

func TestNewLoggerFormats(t *testing.T) {
	for _, format := range []string{"", "json", "console", "text"} {
		if _, err := ecs.NewLogger(ecs.LoggingConfig{Format: format}); err != nil {
			t.Fatalf("format %q: %v", format, err)
		}
	}
	if _, err := ecs.NewLogger(ecs.LoggingConfig{Format: "xml"}); err == nil {
		t.Fatalf("expected error for unknown format")
	}
	if _, err := ecs.NewLogger(ecs.LoggingConfig{Level: "verbose"}); err == nil {
		t.Fatalf("expected error for unknown level")
	}
}

func TestZapLoggerForwardsFields(t *testing.T) {
	core, logs := observer.New(zap.InfoLevel)
	logger := ecs.NewZapLogger(zap.New(core))

	logger.With("system", "movement").Info("system executed", "tick", 3)
	logger.Error("system error", "err", "boom")

	entries := logs.All()
	if len(entries) != 2 {
		t.Fatalf("expected 2 entries, got %d", len(entries))
	}
	info := entries[0]
	if info.Message != "system executed" {
		t.Fatalf("unexpected message: %q", info.Message)
	}
	fields := info.ContextMap()
	if fields["system"] != "movement" {
		t.Fatalf("With field missing: %v", fields)
	}
	if fields["tick"] != int64(3) {
		t.Fatalf("pair field missing: %v", fields)
	}
	if entries[1].Level != zap.ErrorLevel {
		t.Fatalf("expected error level, got %v", entries[1].Level)
	}
}

func TestWorldUsesConfiguredLogger(t *testing.T) {
	core, logs := observer.New(zap.InfoLevel)
	world := ecs.NewWorld(ecs.WithLogger(ecs.NewZapLogger(zap.New(core))))

	if world.Logger() == nil {
		t.Fatalf("expected logger to be installed")
	}
	world.Logger().Info("hello", "k", "v")
	if logs.Len() != 1 {
		t.Fatalf("expected log entry, got %d", logs.Len())
	}
}
