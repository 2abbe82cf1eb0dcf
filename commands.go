package ecs

import "fmt"

// NewSpawnCommand enqueues creation of an entity with the given component
// values. If target is non-nil it receives the allocated ID when the command
// applies.
func NewSpawnCommand(target *EntityID, components ...any) Command {
	return spawnCommand{target: target, components: components}
}

// NewDespawnCommand enqueues an entity despawn.
func NewDespawnCommand(id EntityID) Command {
	return despawnCommand{entity: id}
}

// NewAddComponentCommand enqueues a component addition. The component type is
// taken from the value's dynamic type; if the entity already carries it the
// value is replaced in place.
func NewAddComponentCommand(id EntityID, value any) Command {
	return addComponentCommand{entity: id, value: value}
}

// NewRemoveComponentCommand enqueues removal of a component type from an
// entity.
func NewRemoveComponentCommand(id EntityID, component ComponentTypeID) Command {
	return removeComponentCommand{entity: id, component: component}
}

type spawnCommand struct {
	target     *EntityID
	components []any
}

type despawnCommand struct {
	entity EntityID
}

type addComponentCommand struct {
	entity EntityID
	value  any
}

type removeComponentCommand struct {
	entity    EntityID
	component ComponentTypeID
}

func (c spawnCommand) Apply(world *World) error {
	id, err := world.Spawn(c.components...)
	if err != nil {
		return err
	}
	if c.target != nil {
		*c.target = id
	}
	return nil
}

func (c despawnCommand) Apply(world *World) error {
	return world.Despawn(c.entity)
}

func (c addComponentCommand) Apply(world *World) error {
	if c.value == nil {
		return fmt.Errorf("ecs: add nil component to %s", c.entity)
	}
	return world.AddComponent(c.entity, c.value)
}

func (c removeComponentCommand) Apply(world *World) error {
	return world.RemoveComponent(c.entity, c.component)
}

var (
	_ Command = spawnCommand{}
	_ Command = despawnCommand{}
	_ Command = addComponentCommand{}
	_ Command = removeComponentCommand{}
)
