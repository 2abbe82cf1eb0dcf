package ecs_test

import (
	"errors"
	"testing"

	"github.com/simforge/ecs"
)

func TestSpawnCommand(t *testing.T) {
	world := ecs.NewWorld()
	var id ecs.EntityID
	cmd := ecs.NewSpawnCommand(&id, Position{X: 1, Y: 2})
	if err := cmd.Apply(world); err != nil {
		t.Fatalf("apply: %v", err)
	}
	if id.IsZero() {
		t.Fatalf("expected id to be populated")
	}
	if !world.IsAlive(id) {
		t.Fatalf("expected entity to exist")
	}
	pos, err := ecs.Get[Position](world, id)
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if pos.X != 1 || pos.Y != 2 {
		t.Fatalf("unexpected component state: %+v", *pos)
	}
}

func TestDespawnCommand(t *testing.T) {
	world := ecs.NewWorld()
	id, err := world.Spawn()
	if err != nil {
		t.Fatalf("spawn: %v", err)
	}
	cmd := ecs.NewDespawnCommand(id)
	if err := cmd.Apply(world); err != nil {
		t.Fatalf("apply: %v", err)
	}
	if world.IsAlive(id) {
		t.Fatalf("expected entity destroyed")
	}
}

func TestAddRemoveComponentCommands(t *testing.T) {
	world := ecs.NewWorld()
	id, err := world.Spawn(Position{X: 1, Y: 1})
	if err != nil {
		t.Fatalf("spawn: %v", err)
	}

	add := ecs.NewAddComponentCommand(id, Health{HP: 99})
	if err := add.Apply(world); err != nil {
		t.Fatalf("apply add: %v", err)
	}
	hp, err := ecs.Get[Health](world, id)
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if hp.HP != 99 {
		t.Fatalf("unexpected health: %+v", *hp)
	}

	healthID, err := ecs.Register[Health](world)
	if err != nil {
		t.Fatalf("register: %v", err)
	}
	remove := ecs.NewRemoveComponentCommand(id, healthID)
	if err := remove.Apply(world); err != nil {
		t.Fatalf("apply remove: %v", err)
	}
	if ecs.Has[Health](world, id) {
		t.Fatalf("component should be removed")
	}
	if !ecs.Has[Position](world, id) {
		t.Fatalf("other components should survive removal")
	}
}

func TestCommandBatchOrderMatters(t *testing.T) {
	// Add then despawn leaves the entity dead; the add itself succeeds.
	world := ecs.NewWorld()
	id, err := world.Spawn(Position{})
	if err != nil {
		t.Fatalf("spawn: %v", err)
	}
	batch := []ecs.Command{
		ecs.NewAddComponentCommand(id, Health{HP: 10}),
		ecs.NewDespawnCommand(id),
	}
	if err := world.ApplyCommands(batch); err != nil {
		t.Fatalf("batch: %v", err)
	}
	if world.IsAlive(id) {
		t.Fatalf("entity should be despawned")
	}

	// Despawn then add fails the add against the now-dead handle.
	id2, err := world.Spawn(Position{})
	if err != nil {
		t.Fatalf("spawn: %v", err)
	}
	batch = []ecs.Command{
		ecs.NewDespawnCommand(id2),
		ecs.NewAddComponentCommand(id2, Health{HP: 10}),
	}
	err = world.ApplyCommands(batch)
	if !errors.Is(err, ecs.ErrEntityNotFound) {
		t.Fatalf("expected ErrEntityNotFound, got %v", err)
	}
	if world.IsAlive(id2) {
		t.Fatalf("despawn should still have applied")
	}
}

func TestCommandBatchContinuesPastFailures(t *testing.T) {
	world := ecs.NewWorld()
	dead, err := world.Spawn()
	if err != nil {
		t.Fatalf("spawn: %v", err)
	}
	if err := world.Despawn(dead); err != nil {
		t.Fatalf("despawn: %v", err)
	}

	var spawned ecs.EntityID
	batch := []ecs.Command{
		ecs.NewDespawnCommand(dead),
		ecs.NewSpawnCommand(&spawned, Position{X: 4}),
		ecs.NewAddComponentCommand(dead, Health{HP: 1}),
	}
	err = world.ApplyCommands(batch)
	if err == nil {
		t.Fatalf("expected aggregated error")
	}
	if !errors.Is(err, ecs.ErrEntityNotFound) {
		t.Fatalf("expected ErrEntityNotFound in aggregate, got %v", err)
	}
	// The failing commands must not block the rest of the batch.
	if spawned.IsZero() || !world.IsAlive(spawned) {
		t.Fatalf("spawn in the middle of a failing batch should apply")
	}
}
