package ecs

import (
	"fmt"
	"sync"
)

// EntityID identifies an entity and encodes a generation for stale-handle detection.
type EntityID struct {
	index      uint32
	generation uint32
}

// Index returns the backing index of the entity.
func (id EntityID) Index() uint32 {
	return id.index
}

// Generation returns the generation counter associated with the entity.
func (id EntityID) Generation() uint32 {
	return id.generation
}

// IsZero reports whether the identifier is the zero value. Generations start
// at one, so the zero value never refers to a live entity.
func (id EntityID) IsZero() bool {
	return id.index == 0 && id.generation == 0
}

// String renders the entity identifier for debugging purposes.
func (id EntityID) String() string {
	if id.IsZero() {
		return "EntityID(0:0)"
	}
	return fmt.Sprintf("EntityID(%d:%d)", id.index, id.generation)
}

// EntityIDFromParts constructs an identifier from raw components.
func EntityIDFromParts(index, generation uint32) EntityID {
	return EntityID{index: index, generation: generation}
}

// Location addresses the archetype row currently holding an entity's
// component data. It is only meaningful while the entity is alive.
type Location struct {
	Archetype ArchetypeID
	Row       int
}

var invalidLocation = Location{Archetype: invalidArchetype}

func (l Location) valid() bool {
	return l.Archetype != invalidArchetype
}

// NewEntityRegistry constructs an empty registry.
func NewEntityRegistry() *EntityRegistry {
	return NewEntityRegistryWithCapacity(0)
}

// NewEntityRegistryWithCapacity constructs a registry with slot storage
// preallocated for the given number of entities.
func NewEntityRegistryWithCapacity(capacity int) *EntityRegistry {
	if capacity < 0 {
		capacity = 0
	}
	return &EntityRegistry{
		generations: make([]uint32, 0, capacity),
		locations:   make([]Location, 0, capacity),
	}
}

// EntityRegistry coordinates entity allocation, recycling, and the mapping
// from live entities to their storage locations.
type EntityRegistry struct {
	mu          sync.Mutex
	generations []uint32
	locations   []Location
	free        []uint32
	alive       uint32
}

// Create issues a new entity identifier, recycling slots when possible.
// A recycled slot reuses the generation bumped at destruction, so stale
// handles from the previous occupant never match.
func (r *EntityRegistry) Create() EntityID {
	r.mu.Lock()
	defer r.mu.Unlock()

	var index uint32
	if n := len(r.free); n > 0 {
		index = r.free[n-1]
		r.free = r.free[:n-1]
	} else {
		index = uint32(len(r.generations))
		r.generations = append(r.generations, 1)
		r.locations = append(r.locations, invalidLocation)
	}

	r.locations[index] = invalidLocation
	r.alive++
	return EntityID{index: index, generation: r.generations[index]}
}

// Destroy releases the entity identifier and returns the storage location it
// occupied so the caller can clear the backing row. The slot's generation is
// bumped before it joins the free list.
func (r *EntityRegistry) Destroy(id EntityID) (Location, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if !r.isAliveLocked(id) {
		return invalidLocation, fmt.Errorf("%w: %s", ErrEntityNotFound, id)
	}

	loc := r.locations[id.index]
	r.locations[id.index] = invalidLocation
	r.generations[id.index]++
	r.free = append(r.free, id.index)
	r.alive--
	return loc, nil
}

// IsAlive reports whether the identifier refers to a currently allocated entity.
func (r *EntityRegistry) IsAlive(id EntityID) bool {
	if id.IsZero() {
		return false
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	return r.isAliveLocked(id)
}

// Locate returns the storage location of a live entity. The second return
// value is false for stale handles and for entities not yet placed in storage.
func (r *EntityRegistry) Locate(id EntityID) (Location, bool) {
	if id.IsZero() {
		return invalidLocation, false
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	if !r.isAliveLocked(id) {
		return invalidLocation, false
	}
	loc := r.locations[id.index]
	return loc, loc.valid()
}

// SetLocation records where the entity's component row currently lives.
func (r *EntityRegistry) SetLocation(id EntityID, loc Location) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if !r.isAliveLocked(id) {
		return fmt.Errorf("%w: %s", ErrEntityNotFound, id)
	}
	r.locations[id.index] = loc
	return nil
}

// Count returns the number of live entities.
func (r *EntityRegistry) Count() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return int(r.alive)
}

func (r *EntityRegistry) isAliveLocked(id EntityID) bool {
	idx := id.index
	if idx >= uint32(len(r.generations)) {
		return false
	}
	return r.generations[idx] == id.generation && id.generation != 0
}
