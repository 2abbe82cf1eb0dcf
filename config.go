package ecs

import (
	"fmt"
	"os"
	"time"

	"github.com/BurntSushi/toml"
)

// Config carries tunables for world construction, scheduling, logging, and
// telemetry. Fields absent from a loaded file keep their defaults.
type Config struct {
	World     WorldConfig     `toml:"world"`
	Scheduler SchedulerConfig `toml:"scheduler"`
	Logging   LoggingConfig   `toml:"logging"`
	Telemetry TelemetryConfig `toml:"telemetry"`
}

type WorldConfig struct {
	EntityCapacity int `toml:"entity_capacity"`
}

type SchedulerConfig struct {
	// Workers caps per-stage parallelism and sizes the async pool.
	// Zero means one worker per CPU.
	Workers       int      `toml:"workers"`
	FixedTimestep Duration `toml:"fixed_timestep"`
}

type LoggingConfig struct {
	Level  string `toml:"level"`
	Format string `toml:"format"`
}

type TelemetryConfig struct {
	StructuredLogging bool   `toml:"structured_logging"`
	LogFormat         string `toml:"log_format"`
	Prometheus        bool   `toml:"prometheus"`
	Spans             bool   `toml:"spans"`
	ServiceName       string `toml:"service_name"`
}

// Duration decodes TOML strings like "16ms" into a time.Duration.
type Duration struct {
	time.Duration
}

func (d *Duration) UnmarshalText(text []byte) error {
	parsed, err := time.ParseDuration(string(text))
	if err != nil {
		return err
	}
	d.Duration = parsed
	return nil
}

// DefaultConfig returns the configuration used when nothing is loaded.
func DefaultConfig() *Config {
	return &Config{
		World: WorldConfig{
			EntityCapacity: 1024,
		},
		Scheduler: SchedulerConfig{
			FixedTimestep: Duration{Duration: 16 * time.Millisecond},
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "json",
		},
		Telemetry: TelemetryConfig{
			ServiceName: "simforge-ecs",
		},
	}
}

// LoadConfig reads a TOML file over the defaults.
func LoadConfig(path string) (*Config, error) {
	cfg := DefaultConfig()
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config: %w", err)
	}
	if err := toml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parse config %s: %w", path, err)
	}
	if cfg.World.EntityCapacity < 0 {
		cfg.World.EntityCapacity = 0
	}
	if cfg.Scheduler.Workers < 0 {
		cfg.Scheduler.Workers = 0
	}
	return cfg, nil
}

// Instrumentation derives scheduler instrumentation from the telemetry
// section, attaching the given logger to the structured logging observer.
func (c *Config) Instrumentation(logger Logger) InstrumentationConfig {
	obs := ObservationSettings{
		EnablePrometheus: c.Telemetry.Prometheus,
		EnableSigNoz:     c.Telemetry.Spans,
	}
	if c.Telemetry.StructuredLogging {
		obs.EnableStructuredLogging = true
		obs.StructuredLogger = logger
		if c.Telemetry.LogFormat == "keyvalue" {
			obs.LoggingFormat = ObservationLogFormatKeyValue
		}
	}
	if c.Telemetry.Spans && c.Telemetry.ServiceName != "" {
		obs.SigNozOptions = &SigNozOptions{ServiceName: c.Telemetry.ServiceName}
	}
	return InstrumentationConfig{Observation: obs}
}
