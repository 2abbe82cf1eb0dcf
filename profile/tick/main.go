// Profiling:
// go build ./profile/tick
// go tool pprof -http=":8000" -nodefraction=0.001 ./tick mem.pprof

package main

import (
	"context"
	"time"

	"github.com/pkg/profile"
	"github.com/simforge/ecs"
)

type position struct {
	X, Y float64
}

type velocity struct {
	X, Y float64
}

type mover struct {
	view *ecs.View2[position, velocity]
	desc ecs.SystemDescriptor
}

func newMover(world *ecs.World) *mover {
	posID := ecs.MustRegister[position](world)
	velID := ecs.MustRegister[velocity](world)
	return &mover{
		view: ecs.NewView2[position, velocity](world).Mut(posID),
		desc: ecs.SystemDescriptor{
			Name:   "mover",
			Reads:  []ecs.ComponentTypeID{velID},
			Writes: []ecs.ComponentTypeID{posID},
		},
	}
}

func (m *mover) Descriptor() ecs.SystemDescriptor { return m.desc }

func (m *mover) Run(ctx context.Context, exec ecs.ExecutionContext) ecs.SystemResult {
	dt := exec.TimeDelta().Seconds()
	m.view.Reset()
	for m.view.Next() {
		pos, vel := m.view.Get()
		pos.X += vel.X * dt
		pos.Y += vel.Y * dt
	}
	return ecs.SystemResult{}
}

func main() {
	rounds := 50
	ticks := 1000
	entities := 1000
	p := profile.Start(profile.MemProfileAllocs, profile.ProfilePath("."), profile.NoShutdownHook)
	run(rounds, ticks, entities)
	p.Stop()
}

func run(rounds, ticks, numEntities int) {
	ctx := context.Background()
	for range rounds {
		world := ecs.NewWorld()
		if _, err := world.RegisterSystem(newMover(world)); err != nil {
			panic(err)
		}
		if _, err := world.SpawnN(numEntities, position{}, velocity{X: 1, Y: 2}); err != nil {
			panic(err)
		}
		if err := world.Run(ctx, ticks, 16*time.Millisecond); err != nil {
			panic(err)
		}
	}
}
