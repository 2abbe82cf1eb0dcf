package ecs

import (
	"context"
	"fmt"
	"io"
	"runtime"
	"runtime/trace"
	"sort"
	"strings"
	"sync"
	"time"

	"go.uber.org/multierr"
	"golang.org/x/sync/errgroup"
)

// NewScheduler constructs a scheduler bound to the provided world.
func NewScheduler(world *World) (Scheduler, error) {
	if world == nil {
		world = NewWorld()
	}
	s := &stagedScheduler{
		world:         world,
		systems:       make(map[string]*systemState),
		pool:          NewCommandBufferPool(),
		logger:        noopLogger{},
		tracer:        noopTracer{},
		errorPolicies: make(map[string]ErrorPolicy),
		observer:      noopObserver{},
		workers:       defaultWorkers(),
	}
	s.applyInstrumentation(InstrumentationConfig{})
	return s, nil
}

func defaultWorkers() int {
	workers := runtime.NumCPU()
	if workers <= 0 {
		workers = 1
	}
	return workers
}

// stagedScheduler derives its execution plan from the declared access sets
// of registered systems: systems whose reads and writes cannot overlap run
// concurrently within a stage, and stages run in sequence with a barrier
// between them. The plan is rebuilt lazily whenever the system set changes.
type stagedScheduler struct {
	mu              sync.RWMutex
	world           *World
	systems         map[string]*systemState
	order           []*systemState
	plan            *schedulePlan
	pool            *CommandBufferPool
	asyncPool       *workerPool
	logger          Logger
	tracer          Tracer
	instrumentation InstrumentationConfig
	observer        SchedulerObserver
	errorPolicies   map[string]ErrorPolicy
	tickIndex       uint64
	workers         int
}

type systemState struct {
	sys        System
	desc       SystemDescriptor
	name       string
	order      int
	reads      componentMask
	writes     componentMask
	resReads   map[string]struct{}
	resWrites  map[string]struct{}
	structural bool
	async      bool
	policy     ErrorPolicy
	readNames  []string
	writeNames []string
	resRNames  []string
	resWNames  []string
}

type schedulePlan struct {
	stages []*planStage
	async  []*systemState
}

type planStage struct {
	index      int
	systems    []*systemState
	structural bool
	compReads  []string
	compWrites []string
	resReads   []string
	resWrites  []string
}

type systemHandle struct {
	name string
}

func (h systemHandle) Name() string { return h.name }

type schedulerBuilder struct {
	scheduler *stagedScheduler
}

// Builder returns a builder that can mutate the scheduler configuration.
func (s *stagedScheduler) Builder() SchedulerBuilder {
	return &schedulerBuilder{scheduler: s}
}

func (b *schedulerBuilder) WithWorkers(count int) SchedulerBuilder {
	if count <= 0 {
		count = defaultWorkers()
	}
	b.scheduler.mu.Lock()
	b.scheduler.workers = count
	if b.scheduler.asyncPool != nil {
		b.scheduler.asyncPool.Close()
		b.scheduler.asyncPool = newWorkerPool(count)
	}
	b.scheduler.mu.Unlock()
	return b
}

func (b *schedulerBuilder) WithErrorPolicy(system string, policy ErrorPolicy) SchedulerBuilder {
	b.scheduler.mu.Lock()
	if policy != 0 {
		b.scheduler.errorPolicies[system] = policy
	} else {
		delete(b.scheduler.errorPolicies, system)
	}
	if state, ok := b.scheduler.systems[system]; ok {
		state.policy = b.scheduler.resolvePolicy(system, state.desc.Policy)
	}
	b.scheduler.mu.Unlock()
	return b
}

func (b *schedulerBuilder) WithInstrumentation(cfg InstrumentationConfig) SchedulerBuilder {
	b.scheduler.mu.Lock()
	b.scheduler.applyInstrumentation(cfg)
	b.scheduler.mu.Unlock()
	return b
}

func (b *schedulerBuilder) WithLogger(logger Logger) SchedulerBuilder {
	if logger == nil {
		logger = noopLogger{}
	}
	b.scheduler.mu.Lock()
	b.scheduler.logger = logger
	b.scheduler.applyInstrumentation(b.scheduler.instrumentation)
	b.scheduler.mu.Unlock()
	return b
}

// Build finalizes the configuration and validates the current system set,
// surfacing ordering problems such as ErrScheduleCycle before the first tick.
func (b *schedulerBuilder) Build(world *World) (Scheduler, error) {
	s := b.scheduler
	s.mu.Lock()
	defer s.mu.Unlock()
	if world != nil {
		s.world = world
	} else if s.world == nil {
		s.world = NewWorld()
	}
	if _, err := s.ensurePlanLocked(); err != nil {
		return nil, err
	}
	return s, nil
}

func (s *stagedScheduler) applyInstrumentation(cfg InstrumentationConfig) {
	s.instrumentation = cfg
	if !cfg.EnableTrace {
		s.tracer = noopTracer{}
	}
	s.observer = buildObserverChain(s.logger, cfg)
}

// RegisterSystem adds a system to the schedule. The declared access sets are
// captured here; the execution plan is recomputed on the next tick.
func (s *stagedScheduler) RegisterSystem(sys System) (SystemHandle, error) {
	if sys == nil {
		return nil, fmt.Errorf("ecs: register nil system")
	}
	desc := sys.Descriptor()
	if desc.Name == "" {
		return nil, fmt.Errorf("ecs: system requires non-empty name")
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.systems[desc.Name]; exists {
		return nil, fmt.Errorf("%w: %s", ErrSystemAlreadyRegistered, desc.Name)
	}

	if desc.Async {
		if desc.Structural {
			return nil, fmt.Errorf("%w: %s is structural", ErrAsyncWritesNotSupported, desc.Name)
		}
		if len(desc.Writes) > 0 {
			return nil, fmt.Errorf("%w: %s writes components", ErrAsyncWritesNotSupported, desc.Name)
		}
		for _, res := range desc.Resources {
			if res.Mode == AccessModeWrite {
				return nil, fmt.Errorf("%w: %s writes resource %s", ErrAsyncResourceWritesNotSupported, desc.Name, res.Name)
			}
		}
		if s.asyncPool == nil {
			s.asyncPool = newWorkerPool(s.workers)
		}
	}

	state := &systemState{
		sys:        sys,
		desc:       desc,
		name:       desc.Name,
		order:      len(s.order),
		reads:      maskOf(desc.Reads...),
		writes:     maskOf(desc.Writes...),
		resReads:   make(map[string]struct{}),
		resWrites:  make(map[string]struct{}),
		structural: desc.Structural,
		async:      desc.Async,
		policy:     s.resolvePolicy(desc.Name, desc.Policy),
	}
	for _, res := range desc.Resources {
		if res.Name == "" {
			continue
		}
		if res.Mode == AccessModeWrite {
			state.resWrites[res.Name] = struct{}{}
		} else {
			state.resReads[res.Name] = struct{}{}
		}
	}
	state.readNames = s.componentNames(desc.Reads)
	state.writeNames = s.componentNames(desc.Writes)
	state.resRNames = stringSetToSlice(state.resReads)
	state.resWNames = stringSetToSlice(state.resWrites)

	s.systems[desc.Name] = state
	s.order = append(s.order, state)
	s.plan = nil

	return systemHandle{name: desc.Name}, nil
}

func (s *stagedScheduler) componentNames(ids []ComponentTypeID) []string {
	if len(ids) == 0 {
		return nil
	}
	out := make([]string, 0, len(ids))
	seen := make(map[string]struct{}, len(ids))
	for _, id := range ids {
		name := s.world.registry.typeName(id)
		if _, ok := seen[name]; ok {
			continue
		}
		seen[name] = struct{}{}
		out = append(out, name)
	}
	sort.Strings(out)
	return out
}

func (s *stagedScheduler) resolvePolicy(name string, supplied ErrorPolicy) ErrorPolicy {
	if policy, ok := s.errorPolicies[name]; ok {
		return policy
	}
	if supplied != 0 {
		return supplied
	}
	return ErrorPolicyAbort
}

// Schedule returns the cached execution plan, rebuilding it first if the
// system set changed since the last tick.
func (s *stagedScheduler) Schedule() (SchedulePlan, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	plan, err := s.ensurePlanLocked()
	if err != nil {
		return SchedulePlan{}, err
	}
	out := SchedulePlan{Stages: make([]ScheduleStage, len(plan.stages))}
	for i, stage := range plan.stages {
		names := make([]string, len(stage.systems))
		for j, st := range stage.systems {
			names[j] = st.name
		}
		out.Stages[i] = ScheduleStage{Systems: names}
	}
	for _, st := range plan.async {
		out.Async = append(out.Async, st.name)
	}
	return out, nil
}

func (s *stagedScheduler) ensurePlanLocked() (*schedulePlan, error) {
	if s.plan != nil {
		return s.plan, nil
	}
	plan, err := s.buildPlanLocked()
	if err != nil {
		return nil, err
	}
	s.plan = plan
	return plan, nil
}

// buildPlanLocked turns the registered systems into stages. Explicit RunAfter
// and RunBefore edges are honored first; within those constraints, systems
// are placed greedily in registration order, sharing a stage whenever their
// access sets do not conflict. The same system set always yields the same
// plan.
func (s *stagedScheduler) buildPlanLocked() (*schedulePlan, error) {
	staged := make([]*systemState, 0, len(s.order))
	async := make([]*systemState, 0)
	for _, st := range s.order {
		if st.async {
			async = append(async, st)
		} else {
			staged = append(staged, st)
		}
	}

	preds, err := s.explicitEdges(staged)
	if err != nil {
		return nil, err
	}

	topo, err := topoSort(staged, preds)
	if err != nil {
		return nil, err
	}

	stageOf := make(map[*systemState]int, len(staged))
	maxStage := -1
	for _, st := range topo {
		stage := 0
		for pred := range preds[st] {
			if prev, ok := stageOf[pred]; ok && prev+1 > stage {
				stage = prev + 1
			}
		}
		for placed, prev := range stageOf {
			if prev+1 > stage && systemsConflict(st, placed) {
				stage = prev + 1
			}
		}
		stageOf[st] = stage
		if stage > maxStage {
			maxStage = stage
		}
	}

	plan := &schedulePlan{async: async}
	for i := 0; i <= maxStage; i++ {
		plan.stages = append(plan.stages, &planStage{index: i})
	}
	for _, st := range staged {
		stage := plan.stages[stageOf[st]]
		stage.systems = append(stage.systems, st)
		if st.structural {
			stage.structural = true
		}
	}
	for _, stage := range plan.stages {
		sort.Slice(stage.systems, func(i, j int) bool {
			return stage.systems[i].order < stage.systems[j].order
		})
		stage.compReads = unionNames(stage.systems, func(st *systemState) []string { return st.readNames })
		stage.compWrites = unionNames(stage.systems, func(st *systemState) []string { return st.writeNames })
		stage.resReads = unionNames(stage.systems, func(st *systemState) []string { return st.resRNames })
		stage.resWrites = unionNames(stage.systems, func(st *systemState) []string { return st.resWNames })
	}

	if err := s.validateAsync(async, staged); err != nil {
		return nil, err
	}
	return plan, nil
}

func (s *stagedScheduler) explicitEdges(staged []*systemState) (map[*systemState]map[*systemState]struct{}, error) {
	preds := make(map[*systemState]map[*systemState]struct{}, len(staged))
	addEdge := func(before, after *systemState) {
		if preds[after] == nil {
			preds[after] = make(map[*systemState]struct{})
		}
		preds[after][before] = struct{}{}
	}
	resolve := func(owner *systemState, name, relation string) (*systemState, error) {
		other, ok := s.systems[name]
		if !ok {
			return nil, fmt.Errorf("%w: %s %s %q", ErrUnknownSystem, owner.name, relation, name)
		}
		if other.async {
			return nil, fmt.Errorf("%w: %s cannot be ordered against async system %q", ErrUnknownSystem, owner.name, name)
		}
		return other, nil
	}
	for _, st := range staged {
		for _, name := range st.desc.RunAfter {
			other, err := resolve(st, name, "runs after")
			if err != nil {
				return nil, err
			}
			addEdge(other, st)
		}
		for _, name := range st.desc.RunBefore {
			other, err := resolve(st, name, "runs before")
			if err != nil {
				return nil, err
			}
			addEdge(st, other)
		}
	}
	return preds, nil
}

// topoSort orders systems respecting explicit edges, breaking ties by
// registration order so the result is deterministic. A cycle reports every
// system stuck in it.
func topoSort(staged []*systemState, preds map[*systemState]map[*systemState]struct{}) ([]*systemState, error) {
	indeg := make(map[*systemState]int, len(staged))
	succs := make(map[*systemState][]*systemState, len(staged))
	for _, st := range staged {
		indeg[st] = len(preds[st])
		for pred := range preds[st] {
			succs[pred] = append(succs[pred], st)
		}
	}

	topo := make([]*systemState, 0, len(staged))
	remaining := append([]*systemState(nil), staged...)
	for len(topo) < len(staged) {
		next := -1
		for i, st := range remaining {
			if st == nil || indeg[st] != 0 {
				continue
			}
			if next == -1 || st.order < remaining[next].order {
				next = i
			}
		}
		if next == -1 {
			names := make([]string, 0)
			for _, st := range remaining {
				if st != nil {
					names = append(names, st.name)
				}
			}
			sort.Strings(names)
			return nil, fmt.Errorf("%w: %s", ErrScheduleCycle, strings.Join(names, ", "))
		}
		st := remaining[next]
		remaining[next] = nil
		topo = append(topo, st)
		for _, succ := range succs[st] {
			indeg[succ]--
		}
	}
	return topo, nil
}

// systemsConflict reports whether two systems may not share a stage. Two
// readers never conflict; any write overlap does. Structural systems mutate
// entity layout directly, so they never share a stage with anything.
func systemsConflict(a, b *systemState) bool {
	if a.structural || b.structural {
		return true
	}
	if a.writes.intersects(b.writes) {
		return true
	}
	if a.writes.intersects(b.reads) || b.writes.intersects(a.reads) {
		return true
	}
	for res := range a.resWrites {
		if _, ok := b.resWrites[res]; ok {
			return true
		}
		if _, ok := b.resReads[res]; ok {
			return true
		}
	}
	for res := range b.resWrites {
		if _, ok := a.resReads[res]; ok {
			return true
		}
	}
	return false
}

// validateAsync rejects async systems whose reads could race against a
// scheduled writer. Structural stages are excluded because the tick joins
// async work before they run.
func (s *stagedScheduler) validateAsync(async, staged []*systemState) error {
	for _, a := range async {
		for _, st := range staged {
			if st.structural {
				continue
			}
			if st.writes.intersects(a.reads) {
				return fmt.Errorf("%w: %s reads components written by %s", ErrAsyncAccessConflict, a.name, st.name)
			}
			for res := range st.resWrites {
				if _, ok := a.resReads[res]; ok {
					return fmt.Errorf("%w: %s reads resource %s written by %s", ErrAsyncAccessConflict, a.name, res, st.name)
				}
			}
		}
	}
	return nil
}

func unionNames(systems []*systemState, pick func(*systemState) []string) []string {
	seen := make(map[string]struct{})
	for _, st := range systems {
		for _, name := range pick(st) {
			seen[name] = struct{}{}
		}
	}
	return stringSetToSlice(seen)
}

// Tick executes one frame: async systems are dispatched, stages run in order
// with a barrier between them, and the deferred command batch is applied at
// the end. Commands merge in schedule order (then async registration order),
// so a tick's structural outcome does not depend on goroutine timing.
func (s *stagedScheduler) Tick(ctx context.Context, dt time.Duration) error {
	s.mu.Lock()
	plan, err := s.ensurePlanLocked()
	if err != nil {
		s.mu.Unlock()
		return err
	}
	world := s.world
	logger := s.logger
	tracer := s.tracer
	tick := s.tickIndex
	workers := s.workers
	asyncPool := s.asyncPool
	s.mu.Unlock()

	world.advanceTick()
	tickStart := time.Now()

	var summary TickSummary
	summary.Tick = tick
	summary.Stages = len(plan.stages)

	asyncHandles := make([]*jobHandle, 0, len(plan.async))
	asyncStates := make([]*systemState, 0, len(plan.async))
	for _, st := range plan.async {
		if !shouldRunTick(tick, st.desc.RunEvery) {
			summary.SystemsSkipped++
			continue
		}
		asyncHandles = append(asyncHandles, s.dispatchAsync(ctx, st, world, dt, tick, logger, tracer, asyncPool))
		asyncStates = append(asyncStates, st)
	}

	var asyncCommands []Command
	asyncJoined := false
	var tickErr error
	joinAsync := func() {
		if asyncJoined {
			return
		}
		asyncJoined = true
		for idx, handle := range asyncHandles {
			res := handle.Wait()
			if stage := res.Summary(); stage != nil {
				s.publishStage(*stage)
			}
			if err := res.Err(); err != nil {
				st := asyncStates[idx]
				if st.policy == ErrorPolicyContinue {
					logger.Error("async system error", "system", st.name, "err", err)
					continue
				}
				if tickErr == nil {
					tickErr = err
				}
				continue
			}
			summary.SystemsExecuted++
			asyncCommands = append(asyncCommands, res.Commands()...)
		}
	}

	buffers := make([]*CommandBuffer, 0, len(plan.stages))
	for _, stage := range plan.stages {
		if tickErr != nil {
			break
		}
		if err := ctx.Err(); err != nil {
			tickErr = err
			break
		}
		if stage.structural {
			// Direct structural mutation must not overlap async readers.
			joinAsync()
			if tickErr != nil {
				break
			}
		}
		stageSummary, stageBuffers, err := s.runStage(ctx, stage, world, dt, tick, workers, logger, tracer)
		buffers = append(buffers, stageBuffers...)
		summary.SystemsExecuted += stageSummary.SystemsExecuted
		summary.SystemsSkipped += stageSummary.SystemsSkipped
		s.publishStage(stageSummary)
		if err != nil {
			tickErr = err
		}
	}
	joinAsync()

	if tickErr == nil {
		commands := make([]Command, 0)
		for _, buf := range buffers {
			commands = append(commands, buf.Drain()...)
		}
		commands = append(commands, asyncCommands...)
		if len(commands) > 0 {
			applied, err := world.applyCommandBatch(commands)
			summary.CommandsApplied = applied
			summary.CommandsFailed = len(commands) - applied
			if err != nil {
				logger.Error("deferred commands failed", "failed", summary.CommandsFailed, "err", err)
			}
		}
	}
	for _, buf := range buffers {
		s.pool.Put(buf)
	}

	s.mu.Lock()
	s.tickIndex++
	s.mu.Unlock()

	summary.Duration = time.Since(tickStart)
	summary.Error = tickErr
	s.publishTick(summary)
	return tickErr
}

type systemRunOutcome struct {
	buf      *CommandBuffer
	executed bool
	skipped  bool
	err      error
}

// runStage runs every due system of a stage concurrently and gathers their
// command buffers back in stage order. A failing system under the abort
// policy cancels the stage context and surfaces its error; under the
// continue policy the failure lands in the stage summary only, with the
// failed system's recording discarded.
func (s *stagedScheduler) runStage(ctx context.Context, stage *planStage, world *World, dt time.Duration, tick uint64, workers int, logger Logger, tracer Tracer) (StageSummary, []*CommandBuffer, error) {
	summary := StageSummary{
		Stage:           stage.index,
		Tick:            tick,
		SystemsTotal:    len(stage.systems),
		ComponentReads:  stage.compReads,
		ComponentWrites: stage.compWrites,
		ResourceReads:   stage.resReads,
		ResourceWrites:  stage.resWrites,
	}

	start := time.Now()
	outcomes := make([]systemRunOutcome, len(stage.systems))
	g, runCtx := errgroup.WithContext(ctx)
	g.SetLimit(workers)
	for i, st := range stage.systems {
		if !shouldRunTick(tick, st.desc.RunEvery) {
			outcomes[i].skipped = true
			continue
		}
		i, st := i, st
		g.Go(func() error {
			buf := s.pool.Get()
			executed, err := s.runSystem(runCtx, st, world, dt, tick, buf, logger, tracer)
			if err != nil {
				s.pool.Put(buf)
				outcomes[i].err = err
				if st.policy == ErrorPolicyContinue {
					logger.Error("system error", "system", st.name, "err", err)
					return nil
				}
				return err
			}
			outcomes[i].buf = buf
			outcomes[i].executed = executed
			outcomes[i].skipped = !executed
			return nil
		})
	}
	stageErr := g.Wait()

	buffers := make([]*CommandBuffer, 0, len(stage.systems))
	var continueErrs error
	for _, outcome := range outcomes {
		if outcome.executed {
			summary.SystemsExecuted++
		}
		if outcome.skipped {
			summary.SystemsSkipped++
		}
		if outcome.err != nil && stageErr == nil {
			continueErrs = multierr.Append(continueErrs, outcome.err)
		}
		if outcome.buf != nil {
			buffers = append(buffers, outcome.buf)
		}
	}

	summary.Duration = time.Since(start)
	if stageErr != nil {
		summary.Error = stageErr
	} else {
		summary.Error = continueErrs
	}
	return summary, buffers, stageErr
}

// runSystem executes one system against a fresh command buffer. The retry
// policy reruns a failed system once from a clean recording; any remaining
// failure leaves the buffer restored to its snapshot.
func (s *stagedScheduler) runSystem(ctx context.Context, st *systemState, world *World, dt time.Duration, tick uint64, buf *CommandBuffer, logger Logger, tracer Tracer) (bool, error) {
	if err := ctx.Err(); err != nil {
		return false, err
	}
	systemLogger := logger.With("system", st.name)
	execCtx := &systemExecutionContext{
		world:    world,
		dt:       dt,
		tick:     tick,
		logger:   systemLogger,
		tracer:   tracer,
		commands: buf,
	}

	snapshot := buf.Snapshot()
	result := st.sys.Run(ctx, execCtx)
	if result.Err != nil && st.policy == ErrorPolicyRetry {
		systemLogger.Error("system failed, retrying", "err", result.Err)
		buf.Restore(snapshot)
		result = st.sys.Run(ctx, execCtx)
		if result.Err == nil {
			systemLogger.Info("system retry succeeded")
		}
	}
	if result.Err != nil {
		buf.Restore(snapshot)
		return false, fmt.Errorf("ecs: system %s failed: %w", st.name, result.Err)
	}
	if result.Skipped {
		return false, nil
	}
	systemLogger.Info("system executed")
	return true, nil
}

func (s *stagedScheduler) dispatchAsync(ctx context.Context, st *systemState, world *World, dt time.Duration, tick uint64, logger Logger, tracer Tracer, pool *workerPool) *jobHandle {
	run := func(jobCtx context.Context) jobResult {
		buf := s.pool.Get()
		start := time.Now()
		executed, err := s.runSystem(jobCtx, st, world, dt, tick, buf, logger, tracer)
		stage := &StageSummary{
			Stage:          -1,
			Async:          true,
			Tick:           tick,
			SystemsTotal:   1,
			ComponentReads: st.readNames,
			ResourceReads:  st.resRNames,
		}
		if executed {
			stage.SystemsExecuted = 1
		} else if err == nil {
			stage.SystemsSkipped = 1
		}
		stage.Duration = time.Since(start)
		if err != nil {
			stage.Error = err
			s.pool.Put(buf)
			return jobResult{err: err, summary: stage}
		}
		commands := buf.Drain()
		s.pool.Put(buf)
		return jobResult{commands: commands, summary: stage}
	}
	if pool == nil {
		ch := make(chan jobResult, 1)
		ch <- run(ctx)
		close(ch)
		return &jobHandle{result: ch}
	}
	return pool.Submit(ctx, run)
}

func (s *stagedScheduler) publishStage(summary StageSummary) {
	if s.observer == nil {
		return
	}
	s.observer.StageCompleted(summary)
}

func (s *stagedScheduler) publishTick(summary TickSummary) {
	if s.observer == nil {
		return
	}
	s.observer.TickCompleted(summary)
}

func stringSetToSlice(set map[string]struct{}) []string {
	if len(set) == 0 {
		return nil
	}
	out := make([]string, 0, len(set))
	for val := range set {
		out = append(out, val)
	}
	sort.Strings(out)
	return out
}

func shouldRunTick(tick uint64, interval TickInterval) bool {
	every := uint64(interval.Every)
	if every == 0 {
		return true
	}
	offset := uint64(interval.Offset % interval.Every)
	return (tick+offset)%every == 0
}

// Run advances the scheduler a fixed number of ticks.
func (s *stagedScheduler) Run(ctx context.Context, steps int, dt time.Duration) error {
	for i := 0; i < steps; i++ {
		if err := s.Tick(ctx, dt); err != nil {
			return err
		}
	}
	return nil
}

// RunWithTrace wraps fn in a runtime execution trace when tracing is enabled.
func (s *stagedScheduler) RunWithTrace(ctx context.Context, w io.Writer, fn func() error) error {
	if s.instrumentation.EnableTrace && w != nil {
		if err := trace.Start(w); err != nil {
			return err
		}
		defer trace.Stop()
	}
	return fn()
}

// TickIndex returns the number of completed ticks.
func (s *stagedScheduler) TickIndex() uint64 {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.tickIndex
}

// Internal execution context used during system runs.
type systemExecutionContext struct {
	world    *World
	dt       time.Duration
	tick     uint64
	logger   Logger
	tracer   Tracer
	commands *CommandBuffer
}

func (c *systemExecutionContext) World() *World { return c.world }

func (c *systemExecutionContext) TimeDelta() time.Duration { return c.dt }

func (c *systemExecutionContext) TickIndex() uint64 { return c.tick }

func (c *systemExecutionContext) Logger() Logger { return c.logger }

func (c *systemExecutionContext) Tracer() Tracer { return c.tracer }

func (c *systemExecutionContext) Defer(cmd Command) { c.commands.Push(cmd) }

// noopLogger is used until a real logger is supplied.
type noopLogger struct{}

func (noopLogger) With(string, any) Logger { return noopLogger{} }
func (noopLogger) Info(string, ...any)     {}
func (noopLogger) Error(string, ...any)    {}

type noopTracer struct{}

func (noopTracer) Start(ctx context.Context, name string) (context.Context, TraceSpan) {
	return ctx, noopSpan{}
}

type noopSpan struct{}

func (noopSpan) End() {}

type noopObserver struct{}

func (noopObserver) StageCompleted(StageSummary) {}
func (noopObserver) TickCompleted(TickSummary)   {}
