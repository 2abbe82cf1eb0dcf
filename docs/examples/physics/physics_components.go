package physics

import "math"

// Position is the entity's location in world space.
type Position struct {
	X, Y float64
}

// Velocity is the entity's rate of positional change per second.
type Velocity struct {
	X, Y float64
}

// Acceleration is the entity's rate of velocity change per second, usually
// derived from accumulated forces each tick.
type Acceleration struct {
	X, Y float64
}

// Mass holds the entity's mass in kilograms. Entities without Mass are not
// affected by forces.
type Mass struct {
	Kilograms float64
}

// Force accumulates the forces applied to an entity during a tick. Systems
// add into it; the force integration system consumes and clears it.
type Force struct {
	X, Y float64
}

// Collider is an axis-aligned bounding half-extent used by the bounds system.
type Collider struct {
	HalfWidth, HalfHeight float64
}

// Lifetime despawns an entity once its remaining seconds reach zero.
type Lifetime struct {
	Remaining float64
}

// Speed returns the magnitude of the velocity vector.
func (v Velocity) Speed() float64 {
	return math.Hypot(v.X, v.Y)
}

// KineticEnergy computes 1/2 m v^2 for an entity.
func KineticEnergy(m Mass, v Velocity) float64 {
	speed := v.Speed()
	return 0.5 * m.Kilograms * speed * speed
}

// ApplyGravity adds a gravitational pull scaled by mass into the force
// accumulator.
func ApplyGravity(f *Force, m Mass, gravity float64) {
	f.Y -= m.Kilograms * gravity
}

// Common prototypes used by the examples.
var (
	ProjectileMass = Mass{Kilograms: 0.2}
	CrateMass      = Mass{Kilograms: 25}
	DebrisMass     = Mass{Kilograms: 1.5}
)
