package ecs

import (
	"context"
	"io"
	"time"
)

// Scheduler derives a conflict-free execution plan from registered systems
// and drives it each tick.
type Scheduler interface {
	Tick(ctx context.Context, dt time.Duration) error
	Run(ctx context.Context, steps int, dt time.Duration) error
	RunWithTrace(ctx context.Context, w io.Writer, fn func() error) error
	RegisterSystem(sys System) (SystemHandle, error)
	Schedule() (SchedulePlan, error)
	Builder() SchedulerBuilder
}

// SchedulerBuilder configures scheduler options prior to construction.
type SchedulerBuilder interface {
	WithWorkers(count int) SchedulerBuilder
	WithErrorPolicy(system string, policy ErrorPolicy) SchedulerBuilder
	WithInstrumentation(cfg InstrumentationConfig) SchedulerBuilder
	WithLogger(logger Logger) SchedulerBuilder
	Build(world *World) (Scheduler, error)
}

// SchedulePlan is the cached execution plan for the current system set.
// Stages run in order with a barrier between them; systems within one stage
// have disjoint write sets and may run concurrently. Async systems run
// alongside the whole tick.
type SchedulePlan struct {
	Stages []ScheduleStage
	Async  []string
}

// ScheduleStage lists the systems sharing one parallel group, in
// registration order.
type ScheduleStage struct {
	Systems []string
}

// SystemHandle references a registered system.
type SystemHandle interface {
	Name() string
}

// TickInterval controls how frequently a system runs.
type TickInterval struct {
	Every  uint32
	Offset uint32
}

// ErrorPolicy defines how the scheduler responds to system failures.
type ErrorPolicy uint8

const (
	ErrorPolicyAbort ErrorPolicy = iota
	ErrorPolicyContinue
	ErrorPolicyRetry
)

// InstrumentationConfig configures logging, tracing, and metrics sinks.
type InstrumentationConfig struct {
	EnableTrace   bool
	EnableMetrics bool
	Observer      SchedulerObserver
	Observation   ObservationSettings
}

// ObservationSettings toggles built-in observer integrations.
type ObservationSettings struct {
	EnableStructuredLogging bool
	LoggingFormat           ObservationLogFormat
	StructuredLogger        Logger
	EnablePrometheus        bool
	PrometheusCollector     PrometheusCollector
	PrometheusOptions       *PrometheusCollectorOptions
	EnableSigNoz            bool
	SigNozExporter          SigNozExporter
	SigNozOptions           *SigNozOptions
}

// ObservationLogFormat controls structured logging encoding.
type ObservationLogFormat uint8

const (
	ObservationLogFormatJSON ObservationLogFormat = iota
	ObservationLogFormatKeyValue
)

// SchedulerObserver receives summaries as stages and ticks complete.
type SchedulerObserver interface {
	StageCompleted(summary StageSummary)
	TickCompleted(summary TickSummary)
}

// PrometheusCollector handles stage summaries for Prometheus-style metrics.
type PrometheusCollector interface {
	ObserveStage(summary StageSummary)
}

type PrometheusCollectorOptions struct {
	Writer          io.Writer
	DurationBuckets []time.Duration
}

// SigNozExporter handles stage summaries for SigNoz platforms.
type SigNozExporter interface {
	ExportStage(summary StageSummary)
}

type SigNozOptions struct {
	Writer      io.Writer
	ServiceName string
}

// StageSummary captures execution metadata for one schedule stage. Async
// system completions are reported with Stage set to -1.
type StageSummary struct {
	Stage           int
	Async           bool
	Tick            uint64
	Duration        time.Duration
	SystemsTotal    int
	SystemsExecuted int
	SystemsSkipped  int
	Error           error
	ComponentReads  []string
	ComponentWrites []string
	ResourceReads   []string
	ResourceWrites  []string
}

// TickSummary captures execution metadata for a whole tick, including the
// deferred command batch applied at its end.
type TickSummary struct {
	Tick            uint64
	Duration        time.Duration
	Stages          int
	SystemsExecuted int
	SystemsSkipped  int
	CommandsApplied int
	CommandsFailed  int
	Error           error
}

// System represents executable logic scheduled against the world.
type System interface {
	Descriptor() SystemDescriptor
	Run(ctx context.Context, exec ExecutionContext) SystemResult
}

// SystemDescriptor declares a system's identity, data access, and scheduling
// preferences. The scheduler trusts the declared read and write sets when it
// builds the conflict graph, so they must cover everything the system
// touches.
type SystemDescriptor struct {
	Name      string
	Reads     []ComponentTypeID
	Writes    []ComponentTypeID
	Resources []ResourceAccess
	Tags      []string
	// Structural marks systems that mutate entity structure directly
	// through the World instead of deferring commands. They are scheduled
	// exclusively.
	Structural bool
	// RunAfter and RunBefore order this system against others by name.
	RunAfter  []string
	RunBefore []string
	RunEvery  TickInterval
	// Async systems run on the worker pool alongside the scheduled stages
	// and must not declare writes.
	Async  bool
	Policy ErrorPolicy
}

// SystemResult indicates how a system behaved during execution.
type SystemResult struct {
	Skipped bool
	Err     error
}

// ExecutionContext supplies a system with scoped access to the world.
type ExecutionContext interface {
	World() *World
	TimeDelta() time.Duration
	TickIndex() uint64
	Logger() Logger
	Defer(cmd Command)
}

// ResourceAccess declares mutable or immutable access to a resource.
type ResourceAccess struct {
	Name string
	Mode AccessMode
}

// AccessMode indicates read or write intent when using a resource.
type AccessMode uint8

const (
	AccessModeRead AccessMode = iota
	AccessModeWrite
)

// Command represents a deferred structural mutation applied at the tick's
// sync point.
type Command interface {
	Apply(world *World) error
}

// Logger captures structured log output from systems.
type Logger interface {
	With(key string, value any) Logger
	Info(msg string, args ...any)
	Error(msg string, args ...any)
}

// ResourceContainer holds shared resources accessible to systems.
type ResourceContainer interface {
	Get(name string) (any, bool)
	Set(name string, value any)
	Delete(name string)
	Range(func(string, any) bool)
}

// Tracer coordinates tracing spans for observability tooling.
type Tracer interface {
	Start(ctx context.Context, name string) (context.Context, TraceSpan)
}

// TraceSpan represents an active tracing region.
type TraceSpan interface {
	End()
}
