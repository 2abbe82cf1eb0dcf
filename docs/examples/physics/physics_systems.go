package physics

import (
	"context"
	"math"
	"sync/atomic"

	"github.com/simforge/ecs"
)

// ForceSystem converts the forces accumulated during the previous tick into
// acceleration using a = F/m, then clears the accumulators so the next tick
// starts from zero.
type ForceSystem struct {
	view *ecs.View3[Force, Mass, Acceleration]
	desc ecs.SystemDescriptor
}

func NewForceSystem(world *ecs.World) *ForceSystem {
	forceID := ecs.MustRegister[Force](world)
	massID := ecs.MustRegister[Mass](world)
	accelID := ecs.MustRegister[Acceleration](world)
	return &ForceSystem{
		view: ecs.NewView3[Force, Mass, Acceleration](world).Mut(forceID, accelID),
		desc: ecs.SystemDescriptor{
			Name:   "forces",
			Reads:  []ecs.ComponentTypeID{massID},
			Writes: []ecs.ComponentTypeID{forceID, accelID},
		},
	}
}

func (s *ForceSystem) Descriptor() ecs.SystemDescriptor { return s.desc }

func (s *ForceSystem) Run(ctx context.Context, exec ecs.ExecutionContext) ecs.SystemResult {
	s.view.Reset()
	for s.view.Next() {
		force, mass, accel := s.view.Get()
		if mass.Kilograms > 0 {
			accel.X = force.X / mass.Kilograms
			accel.Y = force.Y / mass.Kilograms
		} else {
			accel.X, accel.Y = 0, 0
		}
		force.X, force.Y = 0, 0
	}
	return ecs.SystemResult{}
}

// IntegrationSystem advances velocity by acceleration and position by
// velocity using semi-implicit Euler integration.
type IntegrationSystem struct {
	view *ecs.View3[Position, Velocity, Acceleration]
	desc ecs.SystemDescriptor
}

func NewIntegrationSystem(world *ecs.World) *IntegrationSystem {
	posID := ecs.MustRegister[Position](world)
	velID := ecs.MustRegister[Velocity](world)
	accelID := ecs.MustRegister[Acceleration](world)
	return &IntegrationSystem{
		view: ecs.NewView3[Position, Velocity, Acceleration](world).Mut(posID, velID),
		desc: ecs.SystemDescriptor{
			Name:     "integration",
			Reads:    []ecs.ComponentTypeID{accelID},
			Writes:   []ecs.ComponentTypeID{posID, velID},
			RunAfter: []string{"forces"},
		},
	}
}

func (s *IntegrationSystem) Descriptor() ecs.SystemDescriptor { return s.desc }

func (s *IntegrationSystem) Run(ctx context.Context, exec ecs.ExecutionContext) ecs.SystemResult {
	dt := exec.TimeDelta().Seconds()
	s.view.Reset()
	for s.view.Next() {
		pos, vel, accel := s.view.Get()
		vel.X += accel.X * dt
		vel.Y += accel.Y * dt
		pos.X += vel.X * dt
		pos.Y += vel.Y * dt
	}
	return ecs.SystemResult{}
}

// LifetimeSystem counts down per-entity lifetimes and defers a despawn once
// an entity's remaining time runs out.
type LifetimeSystem struct {
	view *ecs.View1[Lifetime]
	desc ecs.SystemDescriptor
}

func NewLifetimeSystem(world *ecs.World) *LifetimeSystem {
	lifeID := ecs.MustRegister[Lifetime](world)
	return &LifetimeSystem{
		view: ecs.NewView1[Lifetime](world).Mut(lifeID),
		desc: ecs.SystemDescriptor{
			Name:   "lifetime",
			Writes: []ecs.ComponentTypeID{lifeID},
		},
	}
}

func (s *LifetimeSystem) Descriptor() ecs.SystemDescriptor { return s.desc }

func (s *LifetimeSystem) Run(ctx context.Context, exec ecs.ExecutionContext) ecs.SystemResult {
	dt := exec.TimeDelta().Seconds()
	s.view.Reset()
	for s.view.Next() {
		life := s.view.Get()
		life.Remaining -= dt
		if life.Remaining <= 0 {
			exec.Defer(ecs.NewDespawnCommand(s.view.Entity()))
		}
	}
	return ecs.SystemResult{}
}

// BoundsSystem despawns entities whose collider has left the simulation box.
// The despawns are deferred commands, so iteration stays safe and the
// removals land at the tick's sync point.
type BoundsSystem struct {
	view *ecs.View2[Position, Collider]
	desc ecs.SystemDescriptor

	MinX, MaxX float64
	MinY, MaxY float64
}

func NewBoundsSystem(world *ecs.World, minX, maxX, minY, maxY float64) *BoundsSystem {
	posID := ecs.MustRegister[Position](world)
	colliderID := ecs.MustRegister[Collider](world)
	return &BoundsSystem{
		view: ecs.NewView2[Position, Collider](world),
		desc: ecs.SystemDescriptor{
			Name:     "bounds",
			Reads:    []ecs.ComponentTypeID{posID, colliderID},
			RunAfter: []string{"integration"},
		},
		MinX: minX, MaxX: maxX,
		MinY: minY, MaxY: maxY,
	}
}

func (s *BoundsSystem) Descriptor() ecs.SystemDescriptor { return s.desc }

func (s *BoundsSystem) Run(ctx context.Context, exec ecs.ExecutionContext) ecs.SystemResult {
	s.view.Reset()
	for s.view.Next() {
		pos, col := s.view.Get()
		if pos.X+col.HalfWidth < s.MinX || pos.X-col.HalfWidth > s.MaxX ||
			pos.Y+col.HalfHeight < s.MinY || pos.Y-col.HalfHeight > s.MaxY {
			id := s.view.Entity()
			exec.Defer(ecs.NewDespawnCommand(id))
			exec.Logger().Info("entity left bounds", "entity", id, "x", pos.X, "y", pos.Y)
		}
	}
	return ecs.SystemResult{}
}

// DampingSystem bleeds off velocity at a fixed interval instead of every
// tick, standing in for drag without a per-tick cost.
type DampingSystem struct {
	view   *ecs.View1[Velocity]
	desc   ecs.SystemDescriptor
	Factor float64
}

func NewDampingSystem(world *ecs.World, every uint32, factor float64) *DampingSystem {
	velID := ecs.MustRegister[Velocity](world)
	return &DampingSystem{
		view: ecs.NewView1[Velocity](world).Mut(velID),
		desc: ecs.SystemDescriptor{
			Name:     "damping",
			Writes:   []ecs.ComponentTypeID{velID},
			RunAfter: []string{"integration"},
			RunEvery: ecs.TickInterval{Every: every},
		},
		Factor: factor,
	}
}

func (s *DampingSystem) Descriptor() ecs.SystemDescriptor { return s.desc }

func (s *DampingSystem) Run(ctx context.Context, exec ecs.ExecutionContext) ecs.SystemResult {
	s.view.Reset()
	for s.view.Next() {
		vel := s.view.Get()
		vel.X *= s.Factor
		vel.Y *= s.Factor
	}
	return ecs.SystemResult{}
}

// TelemetrySystem samples body count and total mass on the async lane while
// the staged systems run. It only reads Mass, which no staged system writes,
// so the scheduler accepts it as a concurrent reader.
type TelemetrySystem struct {
	view  *ecs.View1[Mass]
	desc  ecs.SystemDescriptor
	count atomic.Int64
	mass  atomic.Uint64
}

func NewTelemetrySystem(world *ecs.World) *TelemetrySystem {
	massID := ecs.MustRegister[Mass](world)
	return &TelemetrySystem{
		view: ecs.NewView1[Mass](world),
		desc: ecs.SystemDescriptor{
			Name:  "telemetry",
			Reads: []ecs.ComponentTypeID{massID},
			Async: true,
		},
	}
}

func (s *TelemetrySystem) Descriptor() ecs.SystemDescriptor { return s.desc }

func (s *TelemetrySystem) Run(ctx context.Context, exec ecs.ExecutionContext) ecs.SystemResult {
	bodies := 0
	total := 0.0
	s.view.Reset()
	for s.view.Next() {
		total += s.view.Get().Kilograms
		bodies++
	}
	s.count.Store(int64(bodies))
	s.mass.Store(math.Float64bits(total))
	exec.Logger().Info("telemetry sample", "tick", exec.TickIndex(), "bodies", bodies, "total_mass", total)
	return ecs.SystemResult{}
}

// Bodies reports the entity count seen by the most recent sample.
func (s *TelemetrySystem) Bodies() int { return int(s.count.Load()) }

// TotalMass reports the summed mass seen by the most recent sample.
func (s *TelemetrySystem) TotalMass() float64 { return math.Float64frombits(s.mass.Load()) }
