package ecs_test

import (
	"errors"
	"testing"

	"github.com/simforge/ecs"
)

func TestEntityRegistryCreateAndDestroy(t *testing.T) {
	reg := ecs.NewEntityRegistry()
	a := reg.Create()
	b := reg.Create()

	if a == b {
		t.Fatalf("expected unique entities, got same: %v", a)
	}
	if reg.Count() != 2 {
		t.Fatalf("expected 2 live entities, got %d", reg.Count())
	}
	if !reg.IsAlive(a) || !reg.IsAlive(b) {
		t.Fatalf("expected entities to be alive")
	}

	if _, err := reg.Destroy(a); err != nil {
		t.Fatalf("expected destroy to succeed, got %v", err)
	}
	if reg.IsAlive(a) {
		t.Fatalf("entity should be destroyed")
	}
	if reg.Count() != 1 {
		t.Fatalf("expected 1 live entity, got %d", reg.Count())
	}

	// Recycled entity should have the next generation for the slot.
	c := reg.Create()
	if c.Index() != a.Index() {
		t.Fatalf("expected recycled index %d, got %d", a.Index(), c.Index())
	}
	if c.Generation() != a.Generation()+1 {
		t.Fatalf("expected generation %d on recycle, got %d", a.Generation()+1, c.Generation())
	}
}

func TestEntityRegistryRejectsStaleID(t *testing.T) {
	reg := ecs.NewEntityRegistry()
	id := reg.Create()
	if _, err := reg.Destroy(id); err != nil {
		t.Fatalf("destroy failed: %v", err)
	}

	if _, err := reg.Destroy(id); !errors.Is(err, ecs.ErrEntityNotFound) {
		t.Fatalf("expected ErrEntityNotFound for stale id, got %v", err)
	}
	if reg.IsAlive(id) {
		t.Fatalf("stale id should not be alive")
	}
	if _, ok := reg.Locate(id); ok {
		t.Fatalf("stale id should not locate")
	}
	if err := reg.SetLocation(id, ecs.Location{Archetype: 0, Row: 0}); !errors.Is(err, ecs.ErrEntityNotFound) {
		t.Fatalf("expected ErrEntityNotFound from SetLocation, got %v", err)
	}
}

func TestEntityRegistryZeroIDNeverAlive(t *testing.T) {
	reg := ecs.NewEntityRegistry()
	var zero ecs.EntityID
	if !zero.IsZero() {
		t.Fatalf("zero value should report IsZero")
	}
	if reg.IsAlive(zero) {
		t.Fatalf("zero id must never be alive")
	}

	// Fresh entities start at generation 1, so the zero handle can never
	// collide with a live slot.
	first := reg.Create()
	if first.Generation() == 0 {
		t.Fatalf("fresh entity should not carry generation 0")
	}
	if reg.IsAlive(zero) {
		t.Fatalf("zero id must stay dead after creates")
	}
}

func TestEntityRegistryLocations(t *testing.T) {
	reg := ecs.NewEntityRegistry()
	id := reg.Create()

	if _, ok := reg.Locate(id); ok {
		t.Fatalf("fresh entity should have no location until placed")
	}

	loc := ecs.Location{Archetype: 3, Row: 7}
	if err := reg.SetLocation(id, loc); err != nil {
		t.Fatalf("set location failed: %v", err)
	}
	got, ok := reg.Locate(id)
	if !ok {
		t.Fatalf("expected location after SetLocation")
	}
	if got != loc {
		t.Fatalf("expected location %+v, got %+v", loc, got)
	}

	prior, err := reg.Destroy(id)
	if err != nil {
		t.Fatalf("destroy failed: %v", err)
	}
	if prior != loc {
		t.Fatalf("destroy should return the prior location, got %+v", prior)
	}
}

func TestEntityRegistryChurnReusesSlots(t *testing.T) {
	reg := ecs.NewEntityRegistry()

	live := make([]ecs.EntityID, 0, 64)
	for i := 0; i < 64; i++ {
		live = append(live, reg.Create())
	}

	dead := make([]ecs.EntityID, 0, 64*8)
	for round := 0; round < 8; round++ {
		for i, id := range live {
			if _, err := reg.Destroy(id); err != nil {
				t.Fatalf("round %d destroy failed: %v", round, err)
			}
			dead = append(dead, id)
			live[i] = reg.Create()
		}
	}

	if reg.Count() != 64 {
		t.Fatalf("expected 64 live entities after churn, got %d", reg.Count())
	}
	// Slots recycle, so the index space must not grow past the high-water mark.
	for _, id := range live {
		if id.Index() >= 64 {
			t.Fatalf("index %d exceeds high-water mark", id.Index())
		}
		if !reg.IsAlive(id) {
			t.Fatalf("live handle %v reported dead", id)
		}
	}
	for _, id := range dead {
		if reg.IsAlive(id) {
			t.Fatalf("stale handle %v reported alive", id)
		}
	}
}

func TestEntityIDString(t *testing.T) {
	id := ecs.EntityIDFromParts(5, 2)
	if id.Index() != 5 || id.Generation() != 2 {
		t.Fatalf("unexpected parts: %v", id)
	}
	if id.String() == "" {
		t.Fatalf("expected non-empty string form")
	}
}
