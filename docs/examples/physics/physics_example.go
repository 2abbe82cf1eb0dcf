package physics

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/simforge/ecs"
)

// ExampleProjectileFlight runs the full pipeline on a volley of projectiles:
// forces turn into acceleration, integration advances motion, the bounds
// system despawns anything that leaves the box, and an async telemetry
// system samples the world while the stages run.
func ExampleProjectileFlight() {
	world := ecs.NewWorld()

	forces := NewForceSystem(world)
	integration := NewIntegrationSystem(world)
	lifetime := NewLifetimeSystem(world)
	bounds := NewBoundsSystem(world, -100, 100, -100, 100)
	damping := NewDampingSystem(world, 4, 0.98)
	telemetry := NewTelemetrySystem(world)

	for _, sys := range []ecs.System{forces, integration, lifetime, bounds, damping, telemetry} {
		if _, err := world.RegisterSystem(sys); err != nil {
			panic(err)
		}
	}

	scheduler, err := world.Scheduler()
	if err != nil {
		panic(err)
	}

	plan, err := scheduler.Schedule()
	if err != nil {
		panic(err)
	}
	fmt.Println("Execution plan:")
	for i, stage := range plan.Stages {
		fmt.Printf("  stage %d: %s\n", i, strings.Join(stage.Systems, ", "))
	}
	fmt.Printf("  async:   %s\n", strings.Join(plan.Async, ", "))

	// A volley of identical projectiles, then a per-entity velocity so each
	// one flies its own arc.
	fmt.Println("Launching 64 projectiles...")
	ids, err := world.SpawnN(64,
		Position{},
		Velocity{},
		Acceleration{},
		Force{},
		ProjectileMass,
		Collider{HalfWidth: 0.1, HalfHeight: 0.1},
		Lifetime{Remaining: 10},
	)
	if err != nil {
		panic(err)
	}
	for i, id := range ids {
		spread := float64(i) / 64
		if err := ecs.Set(world, id, Velocity{X: 30 * (0.5 + spread), Y: 40 * (1 - spread)}); err != nil {
			panic(err)
		}
	}

	// Gravity is applied as a force each tick by writing into the Force
	// accumulator before the scheduler runs.
	forceID := ecs.MustRegister[Force](world)
	gravityView := ecs.NewView2[Force, Mass](world).Mut(forceID)
	applyGravity := func() {
		gravityView.Reset()
		for gravityView.Next() {
			f, m := gravityView.Get()
			ApplyGravity(f, *m, 9.81)
		}
	}

	ctx := context.Background()
	for tick := 0; tick < 8; tick++ {
		applyGravity()
		if err := scheduler.Tick(ctx, 16*time.Millisecond); err != nil {
			panic(err)
		}
	}

	fmt.Printf("After 8 ticks: %d entities alive\n", world.EntityCount())
	fmt.Printf("Telemetry saw %d bodies, %.1f kg total\n", telemetry.Bodies(), telemetry.TotalMass())

	// Queries work outside systems too. Sum the kinetic energy left in the
	// volley directly.
	energy := 0.0
	view := ecs.NewView2[Mass, Velocity](world)
	view.Reset()
	for view.Next() {
		m, v := view.Get()
		energy += KineticEnergy(*m, *v)
	}
	fmt.Printf("Remaining kinetic energy: %.1f J\n", energy)
}

// ExampleDebrisField shows interval scheduling and structured stats. Debris
// carries a short lifetime; damping only runs every fourth tick, and the
// world stats show how archetypes empty out as lifetimes expire.
func ExampleDebrisField() {
	world := ecs.NewWorld()

	forces := NewForceSystem(world)
	integration := NewIntegrationSystem(world)
	lifetime := NewLifetimeSystem(world)
	damping := NewDampingSystem(world, 4, 0.90)

	for _, sys := range []ecs.System{forces, integration, lifetime, damping} {
		if _, err := world.RegisterSystem(sys); err != nil {
			panic(err)
		}
	}

	// Short-lived debris in one archetype, a long-lived crate in another.
	fmt.Println("Scattering 32 debris fragments...")
	if _, err := world.SpawnN(32,
		Position{},
		Velocity{X: 5, Y: 5},
		Acceleration{},
		Force{},
		DebrisMass,
		Lifetime{Remaining: 0.05},
	); err != nil {
		panic(err)
	}
	crate, err := world.Spawn(Position{X: 10}, Velocity{}, Acceleration{}, Force{}, CrateMass)
	if err != nil {
		panic(err)
	}

	ctx := context.Background()
	if err := world.Run(ctx, 8, 16*time.Millisecond); err != nil {
		panic(err)
	}

	stats := world.Stats()
	fmt.Printf("Entities: %d across %d archetypes\n", stats.Entities, stats.Archetypes)
	for _, arch := range stats.ArchetypeStats {
		if arch.Entities == 0 {
			continue
		}
		fmt.Printf("  [%s] x%d\n", strings.Join(arch.Components, " "), arch.Entities)
	}

	if world.IsAlive(crate) {
		fmt.Println("The crate outlived the debris.")
	}
}
