package ecs

import (
	"fmt"
	"reflect"

	"github.com/simforge/ecs/storage"
)

// ArchetypeID indexes an archetype within its world's archetype table.
type ArchetypeID int32

const invalidArchetype ArchetypeID = -1

// componentValue pairs a component type with a concrete value destined for a
// storage row.
type componentValue struct {
	id  ComponentTypeID
	val reflect.Value
}

type copyOp struct {
	from int
	to   int
}

// archetypeTransition caches the column copy plan for moving a row between a
// pair of archetypes that differ by one component type.
type archetypeTransition struct {
	target *Archetype
	copies []copyOp
}

// Archetype stores the entities sharing one exact component set, one column
// per component type. Row r of every column and of the entity list belong to
// the same entity.
type Archetype struct {
	id          ArchetypeID
	mask        componentMask
	types       []ComponentTypeID
	cols        []*storage.Column
	slots       [MaxComponentTypes]int16
	entities    []EntityID
	addEdges    map[ComponentTypeID]*archetypeTransition
	removeEdges map[ComponentTypeID]*archetypeTransition
}

func newArchetype(id ArchetypeID, mask componentMask, reg *componentRegistry) *Archetype {
	a := &Archetype{
		id:    id,
		mask:  mask,
		types: mask.ids(nil),
	}
	for i := range a.slots {
		a.slots[i] = -1
	}
	a.cols = make([]*storage.Column, len(a.types))
	for i, tid := range a.types {
		d := reg.descriptor(tid)
		a.cols[i] = storage.NewColumn(d.Type, d.Drop, 0)
		a.slots[tid] = int16(i)
	}
	return a
}

// ID returns the archetype's table index.
func (a *Archetype) ID() ArchetypeID {
	return a.id
}

// Len returns the number of rows currently stored.
func (a *Archetype) Len() int {
	return len(a.entities)
}

// Types returns the component types of this archetype in ascending ID order.
func (a *Archetype) Types() []ComponentTypeID {
	out := make([]ComponentTypeID, len(a.types))
	copy(out, a.types)
	return out
}

// Has reports whether the archetype stores the given component type.
func (a *Archetype) Has(id ComponentTypeID) bool {
	return a.slots[id] >= 0
}

// EntityAt returns the entity occupying the given row.
func (a *Archetype) EntityAt(row int) EntityID {
	return a.entities[row]
}

func (a *Archetype) column(id ComponentTypeID) *storage.Column {
	slot := a.slots[id]
	if slot < 0 {
		return nil
	}
	return a.cols[slot]
}

// insertRow appends a fresh row for the entity. Columns without a provided
// value receive the zero value of their type.
func (a *Archetype) insertRow(e EntityID, values []componentValue) int {
	row := len(a.entities)
	for i, tid := range a.types {
		appended := false
		for _, cv := range values {
			if cv.id == tid {
				a.cols[i].AppendValue(cv.val)
				appended = true
				break
			}
		}
		if !appended {
			a.cols[i].Append()
		}
	}
	a.entities = append(a.entities, e)
	return row
}

// removeRow discards a row, moving the final row into its place. When destroy
// is true each column runs its destructor on the discarded values. Returns
// the entity that was relocated into the vacated row, if any.
func (a *Archetype) removeRow(row int, destroy bool) (swapped EntityID, didSwap bool) {
	for _, col := range a.cols {
		col.SwapRemove(row, destroy)
	}
	last := len(a.entities) - 1
	if row != last {
		a.entities[row] = a.entities[last]
		swapped = a.entities[row]
		didSwap = true
	}
	a.entities = a.entities[:last]
	return swapped, didSwap
}

// moveRow transfers a row to the transition's target archetype. Shared
// columns are copied and their source slots vacated without running
// destructors, since ownership moves with the value. Columns absent from the
// target are destroyed. Values for component types new to the target are
// taken from added.
func (a *Archetype) moveRow(row int, trans *archetypeTransition, added []componentValue) (newRow int, swapped EntityID, didSwap bool) {
	target := trans.target
	for _, op := range trans.copies {
		target.cols[op.to].AppendFrom(a.cols[op.from], row)
	}
	for _, cv := range added {
		target.cols[target.slots[cv.id]].AppendValue(cv.val)
	}
	newRow = len(target.entities)
	target.entities = append(target.entities, a.entities[row])

	for i, col := range a.cols {
		retained := target.slots[a.types[i]] >= 0
		col.SwapRemove(row, !retained)
	}
	last := len(a.entities) - 1
	if row != last {
		a.entities[row] = a.entities[last]
		swapped = a.entities[row]
		didSwap = true
	}
	a.entities = a.entities[:last]
	return newRow, swapped, didSwap
}

func newArchetypeTable(reg *componentRegistry) *archetypeTable {
	t := &archetypeTable{
		registry: reg,
		byMask:   make(map[componentMask]*Archetype),
	}
	// Seed the empty archetype so component-less entities have a home.
	t.getOrCreate(componentMask{})
	return t
}

// archetypeTable owns every archetype of a world, keyed by component mask.
// It is guarded by the world's structural discipline rather than a lock:
// archetypes are only created or mutated while no systems are running.
type archetypeTable struct {
	registry *componentRegistry
	byMask   map[componentMask]*Archetype
	list     []*Archetype
	version  uint64
}

// getOrCreate returns the archetype for the exact component set described by
// mask, creating it on first use.
func (t *archetypeTable) getOrCreate(mask componentMask) *Archetype {
	if a, ok := t.byMask[mask]; ok {
		return a
	}
	a := newArchetype(ArchetypeID(len(t.list)), mask, t.registry)
	t.insert(a)
	return a
}

// insert registers a freshly built archetype. Two archetypes under one key
// would corrupt row bookkeeping, so a duplicate is treated as an internal
// defect rather than a recoverable error.
func (t *archetypeTable) insert(a *Archetype) {
	if _, ok := t.byMask[a.mask]; ok {
		panic(fmt.Sprintf("ecs: duplicate archetype key for component set %v", a.types))
	}
	t.byMask[a.mask] = a
	t.list = append(t.list, a)
	t.version++
}

func (t *archetypeTable) byID(id ArchetypeID) *Archetype {
	return t.list[id]
}

// addTransition resolves (and caches) the move plan from a to the archetype
// that additionally stores the given component type.
func (t *archetypeTable) addTransition(a *Archetype, id ComponentTypeID) *archetypeTransition {
	if trans, ok := a.addEdges[id]; ok {
		return trans
	}
	mask := a.mask
	mask.set(id)
	trans := t.buildTransition(a, t.getOrCreate(mask))
	if a.addEdges == nil {
		a.addEdges = make(map[ComponentTypeID]*archetypeTransition)
	}
	a.addEdges[id] = trans
	return trans
}

// removeTransition resolves (and caches) the move plan from a to the
// archetype lacking the given component type.
func (t *archetypeTable) removeTransition(a *Archetype, id ComponentTypeID) *archetypeTransition {
	if trans, ok := a.removeEdges[id]; ok {
		return trans
	}
	mask := a.mask
	mask.clear(id)
	trans := t.buildTransition(a, t.getOrCreate(mask))
	if a.removeEdges == nil {
		a.removeEdges = make(map[ComponentTypeID]*archetypeTransition)
	}
	a.removeEdges[id] = trans
	return trans
}

func (t *archetypeTable) buildTransition(from, to *Archetype) *archetypeTransition {
	trans := &archetypeTransition{target: to}
	for i, tid := range from.types {
		if slot := to.slots[tid]; slot >= 0 {
			trans.copies = append(trans.copies, copyOp{from: i, to: int(slot)})
		}
	}
	return trans
}
