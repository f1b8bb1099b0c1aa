package dio

import (
	"errors"
)

var (
	// ErrVariantRegistered is returned when a factory is registered twice
	// for the same (key, environment, scope) combination.
	ErrVariantRegistered = errors.New("variant already registered")

	// ErrInvalidFactory is returned when a factory function does not match
	// one of the supported signatures.
	ErrInvalidFactory = errors.New("invalid factory")

	// ErrVariantNotFound is returned when no registered variant matches the
	// requested key under the injector's environment and visible scopes.
	ErrVariantNotFound = errors.New("no variant registered")

	// ErrDependencyCycle is returned when a key's construction recursively
	// depends on itself.
	ErrDependencyCycle = errors.New("dependency cycle detected")

	// ErrInjectorClosed is returned when an injector is used after it has
	// been closed.
	ErrInjectorClosed = errors.New("injector closed")
)
