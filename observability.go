package ecs

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"sort"
	"strings"
	"sync"
	"time"
)

type compositeObserver struct {
	observers []SchedulerObserver
}

func (c compositeObserver) StageCompleted(summary StageSummary) {
	for _, observer := range c.observers {
		observer.StageCompleted(summary)
	}
}

func (c compositeObserver) TickCompleted(summary TickSummary) {
	for _, observer := range c.observers {
		observer.TickCompleted(summary)
	}
}

type loggingObserver struct {
	logger Logger
	format ObservationLogFormat
}

func newLoggingObserver(logger Logger, format ObservationLogFormat) SchedulerObserver {
	if logger == nil {
		return noopObserver{}
	}
	if format != ObservationLogFormatKeyValue {
		format = ObservationLogFormatJSON
	}
	return loggingObserver{logger: logger, format: format}
}

func (o loggingObserver) StageCompleted(summary StageSummary) {
	switch o.format {
	case ObservationLogFormatKeyValue:
		o.logStageKeyValue(summary)
	default:
		o.logStageJSON(summary)
	}
}

func (o loggingObserver) TickCompleted(summary TickSummary) {
	switch o.format {
	case ObservationLogFormatKeyValue:
		o.logTickKeyValue(summary)
	default:
		o.logTickJSON(summary)
	}
}

func (o loggingObserver) logStageJSON(summary StageSummary) {
	payload := map[string]any{
		"stage":            summary.Stage,
		"async":            summary.Async,
		"tick":             summary.Tick,
		"duration_ms":      float64(summary.Duration) / float64(time.Millisecond),
		"systems_total":    summary.SystemsTotal,
		"systems_executed": summary.SystemsExecuted,
		"systems_skipped":  summary.SystemsSkipped,
		"component_reads":  summary.ComponentReads,
		"component_writes": summary.ComponentWrites,
		"resource_reads":   summary.ResourceReads,
		"resource_writes":  summary.ResourceWrites,
	}
	if summary.Error != nil {
		payload["error"] = summary.Error.Error()
	}
	data, err := json.Marshal(payload)
	if err != nil {
		o.logger.With("stage", summary.Stage).Error("stage summary marshal error", "err", err)
		return
	}
	o.logger.Info(string(data))
}

func (o loggingObserver) logStageKeyValue(summary StageSummary) {
	builder := o.logger.With("stage", summary.Stage)
	args := []any{
		"async", summary.Async,
		"tick", summary.Tick,
		"duration", summary.Duration,
		"systems_total", summary.SystemsTotal,
		"systems_executed", summary.SystemsExecuted,
		"systems_skipped", summary.SystemsSkipped,
		"component_reads", strings.Join(summary.ComponentReads, ","),
		"component_writes", strings.Join(summary.ComponentWrites, ","),
		"resource_reads", strings.Join(summary.ResourceReads, ","),
		"resource_writes", strings.Join(summary.ResourceWrites, ","),
	}
	if summary.Error != nil {
		args = append(args, "error", summary.Error.Error())
	}
	builder.Info("stage summary", args...)
}

func (o loggingObserver) logTickJSON(summary TickSummary) {
	payload := map[string]any{
		"tick":             summary.Tick,
		"duration_ms":      float64(summary.Duration) / float64(time.Millisecond),
		"stages":           summary.Stages,
		"systems_executed": summary.SystemsExecuted,
		"systems_skipped":  summary.SystemsSkipped,
		"commands_applied": summary.CommandsApplied,
		"commands_failed":  summary.CommandsFailed,
	}
	if summary.Error != nil {
		payload["error"] = summary.Error.Error()
	}
	data, err := json.Marshal(payload)
	if err != nil {
		o.logger.With("tick", summary.Tick).Error("tick summary marshal error", "err", err)
		return
	}
	o.logger.Info(string(data))
}

func (o loggingObserver) logTickKeyValue(summary TickSummary) {
	args := []any{
		"duration", summary.Duration,
		"stages", summary.Stages,
		"systems_executed", summary.SystemsExecuted,
		"systems_skipped", summary.SystemsSkipped,
		"commands_applied", summary.CommandsApplied,
		"commands_failed", summary.CommandsFailed,
	}
	if summary.Error != nil {
		args = append(args, "error", summary.Error.Error())
	}
	o.logger.With("tick", summary.Tick).Info("tick summary", args...)
}

type prometheusObserver struct {
	collector PrometheusCollector
}

func newPrometheusObserver(collector PrometheusCollector) SchedulerObserver {
	if collector == nil {
		return noopObserver{}
	}
	return prometheusObserver{collector: collector}
}

func (o prometheusObserver) StageCompleted(summary StageSummary) {
	o.collector.ObserveStage(summary)
}

func (o prometheusObserver) TickCompleted(TickSummary) {}

type sigNozObserver struct {
	exporter SigNozExporter
}

func newSigNozObserver(exporter SigNozExporter) SchedulerObserver {
	if exporter == nil {
		return noopObserver{}
	}
	return sigNozObserver{exporter: exporter}
}

func (o sigNozObserver) StageCompleted(summary StageSummary) {
	o.exporter.ExportStage(summary)
}

func (o sigNozObserver) TickCompleted(TickSummary) {}

func buildObserverChain(logger Logger, cfg InstrumentationConfig) SchedulerObserver {
	var observers []SchedulerObserver

	if cfg.Observer != nil {
		observers = append(observers, cfg.Observer)
	}

	obs := cfg.Observation

	if obs.EnableStructuredLogging {
		structuredLogger := obs.StructuredLogger
		if structuredLogger == nil {
			structuredLogger = logger
		}
		observers = append(observers, newLoggingObserver(structuredLogger, obs.LoggingFormat))
	}

	if obs.EnablePrometheus {
		collector := obs.PrometheusCollector
		if collector == nil {
			collector = NewPrometheusStageCollector(obs.PrometheusOptions)
		}
		if collector != nil {
			observers = append(observers, newPrometheusObserver(collector))
		}
	}

	if obs.EnableSigNoz {
		exporter := obs.SigNozExporter
		if exporter == nil {
			exporter = NewSigNozSpanExporter(obs.SigNozOptions)
		}
		if exporter != nil {
			observers = append(observers, newSigNozObserver(exporter))
		}
	}

	if len(observers) == 0 {
		return noopObserver{}
	}
	if len(observers) == 1 {
		return observers[0]
	}
	return compositeObserver{observers: observers}
}

// PrometheusStageCollector accumulates per-stage samples and renders them in
// the Prometheus text exposition format.
type PrometheusStageCollector struct {
	options *PrometheusCollectorOptions
	mu      sync.Mutex
	samples map[prometheusKey]*prometheusSample
}

type prometheusKey struct {
	Stage int
	Async bool
}

type prometheusSample struct {
	durationSum   float64
	durationCount float64
	buckets       []float64
	executed      float64
	skipped       float64
	errors        float64
}

func NewPrometheusStageCollector(opts *PrometheusCollectorOptions) PrometheusCollector {
	if opts == nil {
		opts = &PrometheusCollectorOptions{}
	}
	return &PrometheusStageCollector{
		options: opts,
		samples: make(map[prometheusKey]*prometheusSample),
	}
}

func (c *PrometheusStageCollector) ObserveStage(summary StageSummary) {
	c.mu.Lock()
	defer c.mu.Unlock()

	key := prometheusKey{Stage: summary.Stage, Async: summary.Async}
	sample, ok := c.samples[key]
	if !ok {
		sample = &prometheusSample{}
		if buckets := c.options.DurationBuckets; len(buckets) > 0 {
			sample.buckets = make([]float64, len(buckets))
		}
		c.samples[key] = sample
	}
	durSeconds := summary.Duration.Seconds()
	sample.durationSum += durSeconds
	sample.durationCount++
	for i := range sample.buckets {
		if durSeconds <= c.options.DurationBuckets[i].Seconds() {
			sample.buckets[i]++
		}
	}
	sample.executed += float64(summary.SystemsExecuted)
	sample.skipped += float64(summary.SystemsSkipped)
	if summary.Error != nil {
		sample.errors++
	}

	if writer := c.options.Writer; writer != nil {
		_ = c.writeMetricsLocked(writer)
	}
}

func (c *PrometheusStageCollector) WriteMetrics(w io.Writer) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.writeMetricsLocked(w)
}

func (c *PrometheusStageCollector) writeMetricsLocked(w io.Writer) error {
	if w == nil {
		return nil
	}
	var buf bytes.Buffer
	buf.WriteString("# HELP ecs_stage_duration_seconds Stage execution duration.\n")
	buf.WriteString("# TYPE ecs_stage_duration_seconds summary\n")
	keys := make([]prometheusKey, 0, len(c.samples))
	for key := range c.samples {
		keys = append(keys, key)
	}
	sort.Slice(keys, func(i, j int) bool {
		if keys[i].Stage == keys[j].Stage {
			return !keys[i].Async && keys[j].Async
		}
		return keys[i].Stage < keys[j].Stage
	})

	for _, key := range keys {
		sample := c.samples[key]
		labels := fmt.Sprintf("stage=\"%d\",async=\"%t\"", key.Stage, key.Async)
		buf.WriteString(fmt.Sprintf("ecs_stage_duration_seconds_sum{%s} %f\n", labels, sample.durationSum))
		buf.WriteString(fmt.Sprintf("ecs_stage_duration_seconds_count{%s} %f\n", labels, sample.durationCount))
		if len(sample.buckets) > 0 {
			for i, bucket := range sample.buckets {
				le := c.options.DurationBuckets[i].Seconds()
				buf.WriteString(fmt.Sprintf("ecs_stage_duration_seconds_bucket{%s,le=\"%.6f\"} %f\n", labels, le, bucket))
			}
		}
	}

	buf.WriteString("# HELP ecs_stage_systems_executed_total Systems executed per stage.\n")
	buf.WriteString("# TYPE ecs_stage_systems_executed_total counter\n")
	for _, key := range keys {
		sample := c.samples[key]
		labels := fmt.Sprintf("stage=\"%d\",async=\"%t\"", key.Stage, key.Async)
		buf.WriteString(fmt.Sprintf("ecs_stage_systems_executed_total{%s} %f\n", labels, sample.executed))
	}

	buf.WriteString("# HELP ecs_stage_systems_skipped_total Systems skipped per stage.\n")
	buf.WriteString("# TYPE ecs_stage_systems_skipped_total counter\n")
	for _, key := range keys {
		sample := c.samples[key]
		labels := fmt.Sprintf("stage=\"%d\",async=\"%t\"", key.Stage, key.Async)
		buf.WriteString(fmt.Sprintf("ecs_stage_systems_skipped_total{%s} %f\n", labels, sample.skipped))
	}

	buf.WriteString("# HELP ecs_stage_errors_total Stage error count.\n")
	buf.WriteString("# TYPE ecs_stage_errors_total counter\n")
	for _, key := range keys {
		sample := c.samples[key]
		labels := fmt.Sprintf("stage=\"%d\",async=\"%t\"", key.Stage, key.Async)
		buf.WriteString(fmt.Sprintf("ecs_stage_errors_total{%s} %f\n", labels, sample.errors))
	}

	_, err := w.Write(buf.Bytes())
	return err
}

// SigNozSpanExporter renders stage summaries as JSON span lines for
// ingestion into SigNoz-compatible pipelines.
type SigNozSpanExporter struct {
	opts *SigNozOptions
	mu   sync.Mutex
}

func NewSigNozSpanExporter(opts *SigNozOptions) SigNozExporter {
	if opts == nil {
		opts = &SigNozOptions{}
	}
	if opts.ServiceName == "" {
		opts.ServiceName = "ecs-scheduler"
	}
	return &SigNozSpanExporter{opts: opts}
}

func (e *SigNozSpanExporter) ExportStage(summary StageSummary) {
	if e.opts.Writer == nil {
		return
	}
	name := fmt.Sprintf("stage:%d", summary.Stage)
	if summary.Async {
		name = "stage:async"
	}
	span := map[string]any{
		"service_name": e.opts.ServiceName,
		"name":         name,
		"timestamp":    time.Now().UnixNano(),
		"duration_ms":  float64(summary.Duration) / float64(time.Millisecond),
		"attributes": map[string]any{
			"stage":            summary.Stage,
			"async":            summary.Async,
			"tick":             summary.Tick,
			"systems_total":    summary.SystemsTotal,
			"systems_executed": summary.SystemsExecuted,
			"systems_skipped":  summary.SystemsSkipped,
			"component_reads":  summary.ComponentReads,
			"component_writes": summary.ComponentWrites,
			"resource_reads":   summary.ResourceReads,
			"resource_writes":  summary.ResourceWrites,
		},
	}
	if summary.Error != nil {
		span["error"] = summary.Error.Error()
	}
	payload, err := json.Marshal(span)
	if err != nil {
		return
	}
	e.mu.Lock()
	defer e.mu.Unlock()
	_, _ = e.opts.Writer.Write(append(payload, '\n'))
}
