package ecs

import (
	"fmt"
	"reflect"

	"github.com/simforge/ecs/storage"
)

// NewQuery starts an empty query over the world. Filters are added with
// With, Mut, Without, and Changed before iteration begins.
func (w *World) NewQuery() *Query {
	return &Query{world: w}
}

// Query iterates the entities whose archetypes satisfy a set of component
// filters. The matching archetype list is cached and re-resolved only when
// the world has grown new archetypes, so repeated iteration carries no
// lookup or locking cost.
//
// A query is a single-pass cursor: Next advances it until exhaustion and
// Reset rewinds it. Queries are not safe for concurrent use; each system
// iterates its own.
type Query struct {
	world      *World
	include    componentMask
	exclude    componentMask
	mutIDs     []ComponentTypeID
	changedIDs []ComponentTypeID

	matches []*Archetype
	version uint64
	built   bool

	// changedSince is the tick threshold for Changed filters, captured
	// from the previous Reset so a persistent query observes exactly the
	// writes that happened since it last ran.
	changedSince uint64
	lastReset    uint64

	archPos int
	row     int
	arch    *Archetype
}

// With restricts the query to entities carrying every listed component type.
func (q *Query) With(ids ...ComponentTypeID) *Query {
	for _, id := range ids {
		q.include.set(id)
	}
	q.built = false
	return q
}

// Mut declares that the query writes the listed component types while
// iterating. Matched columns have their change tick bumped, which is what
// Changed filters on other queries observe. The listed types are implicitly
// included, and must be covered by the owning system's declared write set.
func (q *Query) Mut(ids ...ComponentTypeID) *Query {
	for _, id := range ids {
		q.include.set(id)
		q.mutIDs = append(q.mutIDs, id)
	}
	q.built = false
	return q
}

// Without excludes entities carrying any of the listed component types.
func (q *Query) Without(ids ...ComponentTypeID) *Query {
	for _, id := range ids {
		q.exclude.set(id)
	}
	q.built = false
	return q
}

// Changed restricts the query to archetypes whose columns for the listed
// types were written since this query's previous Reset. A freshly built
// query has observed nothing, so its first pass sees every match.
func (q *Query) Changed(ids ...ComponentTypeID) *Query {
	for _, id := range ids {
		q.include.set(id)
		q.changedIDs = append(q.changedIDs, id)
	}
	q.built = false
	return q
}

// Reset rewinds the cursor and advances the change-observation point to the
// present. A query with Mut declarations opens a fresh change window so the
// writes of this pass are observable by other queries.
func (q *Query) Reset() {
	t := q.world.archetypes
	if !q.built || q.version != t.version {
		q.rebuild(t)
	}
	q.changedSince = q.lastReset
	if len(q.mutIDs) > 0 {
		q.world.bumpTick()
	}
	q.lastReset = q.world.currentTick()
	q.archPos = 0
	q.arch = nil
}

// Next advances to the next matching entity, returning false when the query
// is exhausted.
func (q *Query) Next() bool {
	if !q.built {
		q.Reset()
	}
	if q.arch != nil {
		q.row++
		if q.row < q.arch.Len() {
			return true
		}
	}
	for q.archPos < len(q.matches) {
		a := q.matches[q.archPos]
		q.archPos++
		if a.Len() == 0 {
			continue
		}
		if len(q.changedIDs) > 0 && !q.archetypeChanged(a) {
			continue
		}
		q.enterArchetype(a)
		q.arch = a
		q.row = 0
		return true
	}
	q.arch = nil
	return false
}

// Entity returns the entity at the cursor.
func (q *Query) Entity() EntityID {
	return q.arch.entities[q.row]
}

// Value returns a copy of the cursor entity's component of the given type.
func (q *Query) Value(id ComponentTypeID) (any, bool) {
	col := q.arch.column(id)
	if col == nil {
		return nil, false
	}
	return col.ValueAt(q.row).Interface(), true
}

// SetValue overwrites the cursor entity's component of the given type,
// dropping the previous value if the type carries a destructor.
func (q *Query) SetValue(id ComponentTypeID, value any) error {
	col := q.arch.column(id)
	if col == nil {
		return fmt.Errorf("%w: %s", ErrMissingComponent, q.world.registry.typeName(id))
	}
	v := reflect.ValueOf(value)
	if v.Type() != col.Type() {
		return fmt.Errorf("ecs: value type %s does not match column type %s", v.Type(), col.Type())
	}
	col.Set(q.row, v, true)
	col.Touch(q.world.currentTick())
	return nil
}

// Count returns the number of entities the query would visit, without
// disturbing the cursor.
func (q *Query) Count() int {
	t := q.world.archetypes
	if !q.built || q.version != t.version {
		q.rebuild(t)
	}
	n := 0
	for _, a := range q.matches {
		if len(q.changedIDs) > 0 && !q.archetypeChanged(a) {
			continue
		}
		n += a.Len()
	}
	return n
}

func (q *Query) rebuild(t *archetypeTable) {
	q.matches = q.matches[:0]
	for _, a := range t.list {
		if !a.mask.containsAll(q.include) {
			continue
		}
		if a.mask.intersects(q.exclude) {
			continue
		}
		q.matches = append(q.matches, a)
	}
	q.version = t.version
	q.built = true
}

func (q *Query) archetypeChanged(a *Archetype) bool {
	for _, id := range q.changedIDs {
		if col := a.column(id); col != nil && col.Tick() > q.changedSince {
			return true
		}
	}
	return false
}

func (q *Query) enterArchetype(a *Archetype) {
	if len(q.mutIDs) == 0 {
		return
	}
	tick := q.world.currentTick()
	for _, id := range q.mutIDs {
		if col := a.column(id); col != nil {
			col.Touch(tick)
		}
	}
}

// View1 is a typed cursor over entities carrying component A.
type View1[A any] struct {
	q        *Query
	idA      ComponentTypeID
	colA     *storage.Column
	lastArch *Archetype
}

// NewView1 builds a typed view, registering A on first use.
func NewView1[A any](w *World) *View1[A] {
	idA := MustRegister[A](w)
	return &View1[A]{q: w.NewQuery().With(idA), idA: idA}
}

// Without excludes entities carrying any of the listed component types.
func (v *View1[A]) Without(ids ...ComponentTypeID) *View1[A] {
	v.q.Without(ids...)
	return v
}

// Mut declares which of the view's component types the caller writes.
func (v *View1[A]) Mut(ids ...ComponentTypeID) *View1[A] {
	v.q.Mut(ids...)
	return v
}

// Changed restricts the view to rows whose listed columns were written since
// the previous Reset.
func (v *View1[A]) Changed(ids ...ComponentTypeID) *View1[A] {
	v.q.Changed(ids...)
	return v
}

// Reset rewinds the view for a fresh pass.
func (v *View1[A]) Reset() {
	v.q.Reset()
	v.lastArch = nil
}

// Next advances to the next matching entity.
func (v *View1[A]) Next() bool {
	if !v.q.Next() {
		return false
	}
	if v.q.arch != v.lastArch {
		v.lastArch = v.q.arch
		v.colA = v.q.arch.column(v.idA)
	}
	return true
}

// Entity returns the entity at the cursor.
func (v *View1[A]) Entity() EntityID {
	return v.q.Entity()
}

// Get returns a pointer to the cursor entity's component. The pointer is
// valid until the next structural change.
func (v *View1[A]) Get() *A {
	return (*A)(v.colA.PtrAt(v.q.row))
}

// Count returns the number of entities the view would visit.
func (v *View1[A]) Count() int {
	return v.q.Count()
}

// View2 is a typed cursor over entities carrying components A and B.
type View2[A, B any] struct {
	q          *Query
	idA, idB   ComponentTypeID
	colA, colB *storage.Column
	lastArch   *Archetype
}

// NewView2 builds a typed view, registering A and B on first use.
func NewView2[A, B any](w *World) *View2[A, B] {
	idA := MustRegister[A](w)
	idB := MustRegister[B](w)
	return &View2[A, B]{q: w.NewQuery().With(idA, idB), idA: idA, idB: idB}
}

// Without excludes entities carrying any of the listed component types.
func (v *View2[A, B]) Without(ids ...ComponentTypeID) *View2[A, B] {
	v.q.Without(ids...)
	return v
}

// Mut declares which of the view's component types the caller writes.
func (v *View2[A, B]) Mut(ids ...ComponentTypeID) *View2[A, B] {
	v.q.Mut(ids...)
	return v
}

// Changed restricts the view to rows whose listed columns were written since
// the previous Reset.
func (v *View2[A, B]) Changed(ids ...ComponentTypeID) *View2[A, B] {
	v.q.Changed(ids...)
	return v
}

// Reset rewinds the view for a fresh pass.
func (v *View2[A, B]) Reset() {
	v.q.Reset()
	v.lastArch = nil
}

// Next advances to the next matching entity.
func (v *View2[A, B]) Next() bool {
	if !v.q.Next() {
		return false
	}
	if v.q.arch != v.lastArch {
		v.lastArch = v.q.arch
		v.colA = v.q.arch.column(v.idA)
		v.colB = v.q.arch.column(v.idB)
	}
	return true
}

// Entity returns the entity at the cursor.
func (v *View2[A, B]) Entity() EntityID {
	return v.q.Entity()
}

// Get returns pointers to the cursor entity's components.
func (v *View2[A, B]) Get() (*A, *B) {
	row := v.q.row
	return (*A)(v.colA.PtrAt(row)), (*B)(v.colB.PtrAt(row))
}

// Count returns the number of entities the view would visit.
func (v *View2[A, B]) Count() int {
	return v.q.Count()
}

// View3 is a typed cursor over entities carrying components A, B, and C.
type View3[A, B, C any] struct {
	q                *Query
	idA, idB, idC    ComponentTypeID
	colA, colB, colC *storage.Column
	lastArch         *Archetype
}

// NewView3 builds a typed view, registering A, B, and C on first use.
func NewView3[A, B, C any](w *World) *View3[A, B, C] {
	idA := MustRegister[A](w)
	idB := MustRegister[B](w)
	idC := MustRegister[C](w)
	return &View3[A, B, C]{q: w.NewQuery().With(idA, idB, idC), idA: idA, idB: idB, idC: idC}
}

// Without excludes entities carrying any of the listed component types.
func (v *View3[A, B, C]) Without(ids ...ComponentTypeID) *View3[A, B, C] {
	v.q.Without(ids...)
	return v
}

// Mut declares which of the view's component types the caller writes.
func (v *View3[A, B, C]) Mut(ids ...ComponentTypeID) *View3[A, B, C] {
	v.q.Mut(ids...)
	return v
}

// Changed restricts the view to rows whose listed columns were written since
// the previous Reset.
func (v *View3[A, B, C]) Changed(ids ...ComponentTypeID) *View3[A, B, C] {
	v.q.Changed(ids...)
	return v
}

// Reset rewinds the view for a fresh pass.
func (v *View3[A, B, C]) Reset() {
	v.q.Reset()
	v.lastArch = nil
}

// Next advances to the next matching entity.
func (v *View3[A, B, C]) Next() bool {
	if !v.q.Next() {
		return false
	}
	if v.q.arch != v.lastArch {
		v.lastArch = v.q.arch
		v.colA = v.q.arch.column(v.idA)
		v.colB = v.q.arch.column(v.idB)
		v.colC = v.q.arch.column(v.idC)
	}
	return true
}

// Entity returns the entity at the cursor.
func (v *View3[A, B, C]) Entity() EntityID {
	return v.q.Entity()
}

// Get returns pointers to the cursor entity's components.
func (v *View3[A, B, C]) Get() (*A, *B, *C) {
	row := v.q.row
	return (*A)(v.colA.PtrAt(row)), (*B)(v.colB.PtrAt(row)), (*C)(v.colC.PtrAt(row))
}

// Count returns the number of entities the view would visit.
func (v *View3[A, B, C]) Count() int {
	return v.q.Count()
}
