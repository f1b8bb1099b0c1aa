package dio

import (
	"context"

	"github.com/tkaspar/dio/internal/errors"
)

// Resolver resolves keys to instances. It is implemented by [*Injector] and
// by the [Request] handed to factories.
type Resolver interface {
	// Inject resolves the given key to an instance.
	Inject(ctx context.Context, key any) (any, error)
}

// Inject resolves the given key from the [Resolver] and asserts the instance
// to type T.
func Inject[T any](ctx context.Context, r Resolver, key any) (T, error) {
	var val T

	anyVal, err := r.Inject(ctx, key)
	if err != nil {
		return val, err
	}

	val, ok := anyVal.(T)
	if !ok {
		return val, errors.Errorf("dio: inject %s: instance of type %T is not %T",
			formatKey(key), anyVal, val)
	}

	return val, nil
}

// MustInject resolves the given key from the [Resolver] and asserts the
// instance to type T.
//
// If the key cannot be resolved, this function will panic.
func MustInject[T any](ctx context.Context, r Resolver, key any) T {
	val, err := Inject[T](ctx, r, key)
	if err != nil {
		panic(err)
	}
	return val
}
