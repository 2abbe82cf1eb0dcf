package ecs

import "errors"

var (
	// ErrEntityNotFound signals an operation against a despawned or never-issued entity handle.
	ErrEntityNotFound = errors.New("ecs: entity not found")
	// ErrTypeConflict indicates a component type was re-registered with a mismatched descriptor.
	ErrTypeConflict = errors.New("ecs: component type descriptor conflict")
	// ErrComponentNotRegistered signals lookup on an unknown component type.
	ErrComponentNotRegistered = errors.New("ecs: component not registered")
	// ErrTooManyComponentTypes indicates the fixed component type capacity is exhausted.
	ErrTooManyComponentTypes = errors.New("ecs: component type capacity exhausted")
	// ErrMissingComponent signals access to a component the entity does not carry.
	ErrMissingComponent = errors.New("ecs: entity does not have component")
	// ErrDuplicateComponent indicates the same component type appeared twice in one spawn or bundle.
	ErrDuplicateComponent = errors.New("ecs: duplicate component type in bundle")
	// ErrScheduleCycle indicates the declared system ordering constraints form a cycle.
	ErrScheduleCycle = errors.New("ecs: system dependency cycle")
	// ErrUnknownSystem signals an ordering constraint that names an unregistered system.
	ErrUnknownSystem = errors.New("ecs: unknown system in ordering constraint")
	// ErrSystemAlreadyRegistered indicates an attempt to register two systems under one name.
	ErrSystemAlreadyRegistered = errors.New("ecs: system already registered")
	// ErrWorkerPoolClosed indicates jobs cannot be submitted because the pool closed.
	ErrWorkerPoolClosed = errors.New("ecs: worker pool closed")
	// ErrAsyncWritesNotSupported indicates an async system declared component writes.
	ErrAsyncWritesNotSupported = errors.New("ecs: async system cannot perform component writes")
	// ErrAsyncResourceWritesNotSupported indicates an async system declared resource writes.
	ErrAsyncResourceWritesNotSupported = errors.New("ecs: async system cannot perform resource writes")
	// ErrAsyncAccessConflict indicates an async system reads state some scheduled system writes.
	ErrAsyncAccessConflict = errors.New("ecs: async system access conflicts with a writing system")
)
