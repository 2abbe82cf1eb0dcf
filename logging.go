package ecs

import (
	"fmt"

	"go.uber.org/zap"
)

// NewLogger builds a zap-backed Logger from the logging configuration.
// Format "json" selects the production encoder, "console" the development
// encoder. Level accepts the usual zap level names.
func NewLogger(cfg LoggingConfig) (Logger, error) {
	var zapCfg zap.Config
	switch cfg.Format {
	case "", "json":
		zapCfg = zap.NewProductionConfig()
	case "console", "text":
		zapCfg = zap.NewDevelopmentConfig()
	default:
		return nil, fmt.Errorf("ecs: unknown log format %q", cfg.Format)
	}
	if cfg.Level != "" {
		level, err := zap.ParseAtomicLevel(cfg.Level)
		if err != nil {
			return nil, fmt.Errorf("ecs: parse log level: %w", err)
		}
		zapCfg.Level = level
	}
	base, err := zapCfg.Build()
	if err != nil {
		return nil, err
	}
	return NewZapLogger(base), nil
}

// NewZapLogger adapts a zap logger to the Logger interface. Key-value pairs
// passed to Info and Error are forwarded as sugared fields.
func NewZapLogger(base *zap.Logger) Logger {
	return zapLogger{sugar: base.Sugar()}
}

type zapLogger struct {
	sugar *zap.SugaredLogger
}

func (l zapLogger) With(key string, value any) Logger {
	return zapLogger{sugar: l.sugar.With(key, value)}
}

func (l zapLogger) Info(msg string, args ...any) {
	l.sugar.Infow(msg, args...)
}

func (l zapLogger) Error(msg string, args ...any) {
	l.sugar.Errorw(msg, args...)
}

var _ Logger = zapLogger{}
