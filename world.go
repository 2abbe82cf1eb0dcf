package ecs

import (
	"context"
	"fmt"
	"reflect"
	"sync/atomic"
	"time"

	"go.uber.org/multierr"
)

// World owns entity allocation, archetype storage, shared resources, and the
// scheduler driving systems over them.
//
// Component reads and query iteration may happen concurrently; the scheduler
// keeps writers in exclusive stages. Structural mutations such as Spawn,
// Despawn, AddComponent, and RemoveComponent must not overlap running
// systems. Systems defer structural work through ExecutionContext.Defer and
// the scheduler applies it at the tick's sync point.
type World struct {
	entities   *EntityRegistry
	registry   *componentRegistry
	archetypes *archetypeTable
	resources  ResourceContainer
	scheduler  Scheduler
	logger     Logger
	cfg        *Config
	changeTick atomic.Uint64
}

type WorldOption func(*World)

// NewWorld constructs a world with default registries and containers.
func NewWorld(opts ...WorldOption) *World {
	w := &World{
		registry:  newComponentRegistry(),
		resources: newResourceContainer(),
		logger:    noopLogger{},
		cfg:       DefaultConfig(),
	}
	for _, opt := range opts {
		opt(w)
	}
	if w.entities == nil {
		w.entities = NewEntityRegistryWithCapacity(w.cfg.World.EntityCapacity)
	}
	w.archetypes = newArchetypeTable(w.registry)
	return w
}

// NewWorldFromConfig builds a world wired per the loaded configuration,
// including its logger.
func NewWorldFromConfig(cfg *Config) (*World, error) {
	if cfg == nil {
		cfg = DefaultConfig()
	}
	logger, err := NewLogger(cfg.Logging)
	if err != nil {
		return nil, err
	}
	return NewWorld(WithConfig(cfg), WithLogger(logger)), nil
}

// WithEntityRegistry overrides the default entity registry.
func WithEntityRegistry(registry *EntityRegistry) WorldOption {
	return func(w *World) {
		if registry != nil {
			w.entities = registry
		}
	}
}

// WithResourceContainer overrides the default resource container.
func WithResourceContainer(container ResourceContainer) WorldOption {
	return func(w *World) {
		if container != nil {
			w.resources = container
		}
	}
}

// WithLogger installs the structured logger used by the world and its
// scheduler.
func WithLogger(logger Logger) WorldOption {
	return func(w *World) {
		if logger != nil {
			w.logger = logger
		}
	}
}

// WithConfig applies a loaded configuration.
func WithConfig(cfg *Config) WorldOption {
	return func(w *World) {
		if cfg != nil {
			w.cfg = cfg
		}
	}
}

// Entities exposes the backing entity registry.
func (w *World) Entities() *EntityRegistry {
	return w.entities
}

// Resources exposes the resource container.
func (w *World) Resources() ResourceContainer {
	return w.resources
}

// Logger returns the world's structured logger.
func (w *World) Logger() Logger {
	return w.logger
}

// Config returns the configuration the world was built with.
func (w *World) Config() *Config {
	return w.cfg
}

// Spawn creates an entity carrying the given component values and places it
// in the archetype for that exact component set. Unregistered component
// types are registered on the fly.
func (w *World) Spawn(components ...any) (EntityID, error) {
	values, mask, err := w.resolveComponents(components)
	if err != nil {
		return EntityID{}, err
	}
	arch := w.archetypes.getOrCreate(mask)
	id := w.entities.Create()
	row := arch.insertRow(id, values)
	if err := w.entities.SetLocation(id, Location{Archetype: arch.id, Row: row}); err != nil {
		return EntityID{}, err
	}
	w.touchArchetype(arch, w.bumpTick())
	return id, nil
}

// SpawnN creates n entities sharing the same component values. The values
// are copied per entity.
func (w *World) SpawnN(n int, components ...any) ([]EntityID, error) {
	if n <= 0 {
		return nil, nil
	}
	values, mask, err := w.resolveComponents(components)
	if err != nil {
		return nil, err
	}
	arch := w.archetypes.getOrCreate(mask)
	ids := make([]EntityID, n)
	for i := 0; i < n; i++ {
		id := w.entities.Create()
		row := arch.insertRow(id, values)
		if err := w.entities.SetLocation(id, Location{Archetype: arch.id, Row: row}); err != nil {
			return nil, err
		}
		ids[i] = id
	}
	w.touchArchetype(arch, w.bumpTick())
	return ids, nil
}

// Despawn removes an entity and destroys its component row. Stale handles
// report ErrEntityNotFound.
func (w *World) Despawn(id EntityID) error {
	loc, err := w.entities.Destroy(id)
	if err != nil {
		return err
	}
	if loc.valid() {
		arch := w.archetypes.byID(loc.Archetype)
		if swapped, didSwap := arch.removeRow(loc.Row, true); didSwap {
			if err := w.entities.SetLocation(swapped, Location{Archetype: arch.id, Row: loc.Row}); err != nil {
				return err
			}
		}
	}
	w.bumpTick()
	return nil
}

// IsAlive reports whether the handle refers to a live entity.
func (w *World) IsAlive(id EntityID) bool {
	return w.entities.IsAlive(id)
}

// EntityCount returns the number of live entities.
func (w *World) EntityCount() int {
	return w.entities.Count()
}

// AddComponent attaches a component value to an entity, taking the type from
// the value's dynamic type. If the entity already carries the type, the
// value is replaced in place (dropping the prior value); otherwise the
// entity's row moves to the archetype extended by the type.
func (w *World) AddComponent(id EntityID, value any) error {
	if value == nil {
		return fmt.Errorf("ecs: nil component value for %s", id)
	}
	rv := reflect.ValueOf(value)
	cid, err := w.registry.register(rv.Type(), dropForType(rv.Type()), false)
	if err != nil {
		return err
	}
	return w.addComponentValue(id, cid, rv)
}

func (w *World) addComponentValue(id EntityID, cid ComponentTypeID, rv reflect.Value) error {
	loc, ok := w.entities.Locate(id)
	if !ok {
		return fmt.Errorf("%w: %s", ErrEntityNotFound, id)
	}
	arch := w.archetypes.byID(loc.Archetype)
	tick := w.bumpTick()
	if col := arch.column(cid); col != nil {
		col.Set(loc.Row, rv, true)
		col.Touch(tick)
		return nil
	}
	trans := w.archetypes.addTransition(arch, cid)
	newRow, swapped, didSwap := arch.moveRow(loc.Row, trans, []componentValue{{id: cid, val: rv}})
	if err := w.entities.SetLocation(id, Location{Archetype: trans.target.id, Row: newRow}); err != nil {
		return err
	}
	if didSwap {
		if err := w.entities.SetLocation(swapped, Location{Archetype: arch.id, Row: loc.Row}); err != nil {
			return err
		}
	}
	trans.target.column(cid).Touch(tick)
	return nil
}

// RemoveComponent detaches a component type from an entity, running the
// type's destructor on the removed value. Removing a type the entity does
// not carry reports ErrMissingComponent.
func (w *World) RemoveComponent(id EntityID, cid ComponentTypeID) error {
	loc, ok := w.entities.Locate(id)
	if !ok {
		return fmt.Errorf("%w: %s", ErrEntityNotFound, id)
	}
	arch := w.archetypes.byID(loc.Archetype)
	if arch.column(cid) == nil {
		return fmt.Errorf("%w: %s on %s", ErrMissingComponent, w.registry.typeName(cid), id)
	}
	trans := w.archetypes.removeTransition(arch, cid)
	newRow, swapped, didSwap := arch.moveRow(loc.Row, trans, nil)
	if err := w.entities.SetLocation(id, Location{Archetype: trans.target.id, Row: newRow}); err != nil {
		return err
	}
	if didSwap {
		if err := w.entities.SetLocation(swapped, Location{Archetype: arch.id, Row: loc.Row}); err != nil {
			return err
		}
	}
	w.bumpTick()
	return nil
}

// DescribeComponent returns the descriptor recorded for a registered
// component type ID.
func (w *World) DescribeComponent(cid ComponentTypeID) (TypeDescriptor, bool) {
	if int(cid) >= w.registry.count() {
		return TypeDescriptor{}, false
	}
	return w.registry.descriptor(cid), true
}

// Contains reports whether the entity carries the given component type.
func (w *World) Contains(id EntityID, cid ComponentTypeID) bool {
	loc, ok := w.entities.Locate(id)
	if !ok {
		return false
	}
	return w.archetypes.byID(loc.Archetype).Has(cid)
}

// ComponentValue returns a copy of the entity's component of the given type.
func (w *World) ComponentValue(id EntityID, cid ComponentTypeID) (any, error) {
	loc, ok := w.entities.Locate(id)
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrEntityNotFound, id)
	}
	arch := w.archetypes.byID(loc.Archetype)
	col := arch.column(cid)
	if col == nil {
		return nil, fmt.Errorf("%w: %s on %s", ErrMissingComponent, w.registry.typeName(cid), id)
	}
	return col.ValueAt(loc.Row).Interface(), nil
}

func (w *World) resolveComponents(components []any) ([]componentValue, componentMask, error) {
	var mask componentMask
	values := make([]componentValue, 0, len(components))
	for _, c := range components {
		if c == nil {
			return nil, mask, fmt.Errorf("ecs: nil component value in bundle")
		}
		rv := reflect.ValueOf(c)
		cid, err := w.registry.register(rv.Type(), dropForType(rv.Type()), false)
		if err != nil {
			return nil, mask, err
		}
		if mask.has(cid) {
			return nil, mask, fmt.Errorf("%w: %s", ErrDuplicateComponent, rv.Type())
		}
		mask.set(cid)
		values = append(values, componentValue{id: cid, val: rv})
	}
	return values, mask, nil
}

func (w *World) touchArchetype(arch *Archetype, tick uint64) {
	for _, col := range arch.cols {
		col.Touch(tick)
	}
}

// Get returns a pointer to the entity's component of type T. The pointer
// stays valid until the next structural change touching the entity's
// archetype.
func Get[T any](w *World, id EntityID) (*T, error) {
	loc, ok := w.entities.Locate(id)
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrEntityNotFound, id)
	}
	t := reflect.TypeOf((*T)(nil)).Elem()
	cid, registered := w.registry.lookup(t)
	if !registered {
		return nil, fmt.Errorf("%w: %s", ErrComponentNotRegistered, t)
	}
	arch := w.archetypes.byID(loc.Archetype)
	col := arch.column(cid)
	if col == nil {
		return nil, fmt.Errorf("%w: %s on %s", ErrMissingComponent, t, id)
	}
	return (*T)(col.PtrAt(loc.Row)), nil
}

// Set writes the entity's component of type T, attaching it first if absent.
func Set[T any](w *World, id EntityID, value T) error {
	cid, err := Register[T](w)
	if err != nil {
		return err
	}
	return w.addComponentValue(id, cid, reflect.ValueOf(value))
}

// Remove detaches the component of type T from the entity.
func Remove[T any](w *World, id EntityID) error {
	t := reflect.TypeOf((*T)(nil)).Elem()
	cid, registered := w.registry.lookup(t)
	if !registered {
		return fmt.Errorf("%w: %s", ErrComponentNotRegistered, t)
	}
	return w.RemoveComponent(id, cid)
}

// Has reports whether the entity carries a component of type T.
func Has[T any](w *World, id EntityID) bool {
	t := reflect.TypeOf((*T)(nil)).Elem()
	cid, registered := w.registry.lookup(t)
	if !registered {
		return false
	}
	return w.Contains(id, cid)
}

// ApplyCommands executes deferred commands in recording order. A failing
// command is skipped and the batch continues; the combined error carries
// every individual failure.
func (w *World) ApplyCommands(commands []Command) error {
	_, err := w.applyCommandBatch(commands)
	return err
}

func (w *World) applyCommandBatch(commands []Command) (int, error) {
	applied := 0
	var errs error
	for _, cmd := range commands {
		if cmd == nil {
			continue
		}
		if err := cmd.Apply(w); err != nil {
			errs = multierr.Append(errs, err)
			continue
		}
		applied++
	}
	return applied, errs
}

func (w *World) ensureScheduler() (Scheduler, error) {
	if w.scheduler != nil {
		return w.scheduler, nil
	}
	sched, err := NewScheduler(w)
	if err != nil {
		return nil, err
	}
	builder := sched.Builder().WithLogger(w.logger)
	if w.cfg != nil && w.cfg.Scheduler.Workers > 0 {
		builder = builder.WithWorkers(w.cfg.Scheduler.Workers)
	}
	sched, err = builder.Build(w)
	if err != nil {
		return nil, err
	}
	w.scheduler = sched
	return sched, nil
}

// Scheduler returns the world's scheduler, constructing it on first use.
func (w *World) Scheduler() (Scheduler, error) {
	return w.ensureScheduler()
}

// RegisterSystem adds a system to the world's schedule.
func (w *World) RegisterSystem(sys System) (SystemHandle, error) {
	sched, err := w.ensureScheduler()
	if err != nil {
		return nil, err
	}
	return sched.RegisterSystem(sys)
}

// RunTick advances the world by one tick.
func (w *World) RunTick(ctx context.Context, dt time.Duration) error {
	sched, err := w.ensureScheduler()
	if err != nil {
		return err
	}
	return sched.Tick(ctx, dt)
}

// Run advances the world by a fixed number of ticks.
func (w *World) Run(ctx context.Context, steps int, dt time.Duration) error {
	sched, err := w.ensureScheduler()
	if err != nil {
		return err
	}
	return sched.Run(ctx, steps, dt)
}

// Step advances the world by one tick using the configured fixed timestep.
func (w *World) Step(ctx context.Context) error {
	return w.RunTick(ctx, w.cfg.Scheduler.FixedTimestep.Duration)
}

func (w *World) currentTick() uint64 {
	return w.changeTick.Load()
}

func (w *World) bumpTick() uint64 {
	return w.changeTick.Add(1)
}

func (w *World) advanceTick() {
	w.bumpTick()
}

// WorldStats summarizes storage occupancy for diagnostics.
type WorldStats struct {
	Entities       int
	ComponentTypes int
	Archetypes     int
	ArchetypeStats []ArchetypeStats
}

// ArchetypeStats describes one archetype's component set and row count.
type ArchetypeStats struct {
	ID         ArchetypeID
	Components []string
	Entities   int
}

// Stats reports per-archetype occupancy, ordered by archetype ID.
func (w *World) Stats() WorldStats {
	stats := WorldStats{
		Entities:       w.entities.Count(),
		ComponentTypes: w.registry.count(),
		Archetypes:     len(w.archetypes.list),
	}
	for _, a := range w.archetypes.list {
		names := make([]string, len(a.types))
		for i, id := range a.types {
			names[i] = w.registry.typeName(id)
		}
		stats.ArchetypeStats = append(stats.ArchetypeStats, ArchetypeStats{
			ID:         a.id,
			Components: names,
			Entities:   a.Len(),
		})
	}
	return stats
}
