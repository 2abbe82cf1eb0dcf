package ecs

import (
	"fmt"
	"reflect"
	"sync"
	"unsafe"
)

// MaxComponentTypes bounds how many distinct component types a single world
// can register. The limit keeps archetype keys at a fixed size.
const MaxComponentTypes = 256

// ComponentTypeID is the dense identifier assigned to a component type at
// registration. IDs are world-scoped and stable for the world's lifetime.
type ComponentTypeID uint8

// Disposer is implemented by component types that own external state. The
// registry wires Dispose up as the component's destructor, invoked when a
// value is removed from storage or its entity is despawned.
type Disposer interface {
	Dispose()
}

// TypeDescriptor captures the storage-relevant facts about a component type.
type TypeDescriptor struct {
	Type  reflect.Type
	Size  uintptr
	Align uintptr
	// Drop is invoked on a value's storage slot before the value is
	// discarded. Nil for plain data components.
	Drop func(unsafe.Pointer)
}

var disposerType = reflect.TypeOf((*Disposer)(nil)).Elem()

func dropForType(t reflect.Type) func(unsafe.Pointer) {
	if !reflect.PointerTo(t).Implements(disposerType) {
		return nil
	}
	return func(p unsafe.Pointer) {
		reflect.NewAt(t, p).Interface().(Disposer).Dispose()
	}
}

func newComponentRegistry() *componentRegistry {
	return &componentRegistry{
		byType: make(map[reflect.Type]ComponentTypeID),
	}
}

// componentRegistry assigns dense IDs to component types and retains their
// descriptors for column construction.
type componentRegistry struct {
	mu     sync.RWMutex
	byType map[reflect.Type]ComponentTypeID
	descs  []TypeDescriptor
}

// register resolves or assigns the ID for a component type. Re-registration
// is idempotent; an explicit registration whose destructor shape differs from
// the recorded descriptor reports ErrTypeConflict.
func (r *componentRegistry) register(t reflect.Type, drop func(unsafe.Pointer), explicit bool) (ComponentTypeID, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if id, ok := r.byType[t]; ok {
		if explicit && (r.descs[id].Drop != nil) != (drop != nil) {
			return 0, fmt.Errorf("%w: %s destructor mismatch", ErrTypeConflict, t)
		}
		return id, nil
	}

	if len(r.descs) >= MaxComponentTypes {
		return 0, fmt.Errorf("%w: limit %d reached registering %s", ErrTooManyComponentTypes, MaxComponentTypes, t)
	}

	id := ComponentTypeID(len(r.descs))
	r.byType[t] = id
	r.descs = append(r.descs, TypeDescriptor{
		Type:  t,
		Size:  t.Size(),
		Align: uintptr(t.Align()),
		Drop:  drop,
	})
	return id, nil
}

// lookup returns the ID for an already-registered type.
func (r *componentRegistry) lookup(t reflect.Type) (ComponentTypeID, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	id, ok := r.byType[t]
	return id, ok
}

// descriptor returns the stored descriptor for a registered ID. The caller
// must hold a valid ID; out-of-range access is a programming error.
func (r *componentRegistry) descriptor(id ComponentTypeID) TypeDescriptor {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.descs[id]
}

// typeName renders the Go type behind an ID for diagnostics.
func (r *componentRegistry) typeName(id ComponentTypeID) string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	if int(id) >= len(r.descs) {
		return fmt.Sprintf("ComponentTypeID(%d)", id)
	}
	return r.descs[id].Type.String()
}

// count returns how many component types have been registered.
func (r *componentRegistry) count() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.descs)
}

// Register ensures the component type T is registered with the world and
// returns its ID. Types whose pointer receiver implements Disposer get that
// method installed as their destructor. Registration is idempotent.
func Register[T any](w *World) (ComponentTypeID, error) {
	t := reflect.TypeOf((*T)(nil)).Elem()
	return w.registry.register(t, dropForType(t), false)
}

// MustRegister is Register for world set-up code, where a registration
// failure is a programming error.
func MustRegister[T any](w *World) ComponentTypeID {
	id, err := Register[T](w)
	if err != nil {
		panic(err)
	}
	return id
}

// RegisterWithDrop registers T with an explicit destructor, overriding the
// Disposer detection. Passing a destructor for a type previously registered
// without one (or vice versa) reports ErrTypeConflict.
func RegisterWithDrop[T any](w *World, drop func(*T)) (ComponentTypeID, error) {
	t := reflect.TypeOf((*T)(nil)).Elem()
	var fn func(unsafe.Pointer)
	if drop != nil {
		fn = func(p unsafe.Pointer) {
			drop((*T)(p))
		}
	}
	return w.registry.register(t, fn, true)
}
