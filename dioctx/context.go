package dioctx

import (
	"context"

	"github.com/tkaspar/dio"
	"github.com/tkaspar/dio/internal/errors"
)

type injectorContextKey struct{}

// WithInjector returns a new [context.Context] that carries the provided
// [*dio.Injector].
func WithInjector(ctx context.Context, inj *dio.Injector) context.Context {
	return context.WithValue(ctx, injectorContextKey{}, inj)
}

// Injector returns the [*dio.Injector] stored on the [context.Context], if
// present.
func Injector(ctx context.Context) *dio.Injector {
	if inj, ok := ctx.Value(injectorContextKey{}).(*dio.Injector); ok {
		return inj
	}
	return nil
}

// Inject resolves the given key from the [*dio.Injector] stored on the
// [context.Context] and asserts the instance to type T.
func Inject[T any](ctx context.Context, key any) (T, error) {
	var val T

	inj := Injector(ctx)
	if inj == nil {
		return val, errors.New("inject from context: injector not found on context")
	}

	val, err := dio.Inject[T](ctx, inj, key)
	return val, errors.Wrap(err, "inject from context")
}

// MustInject resolves the given key from the [*dio.Injector] stored on the
// [context.Context].
//
// If the key cannot be resolved, this function will panic.
func MustInject[T any](ctx context.Context, key any) T {
	val, err := Inject[T](ctx, key)
	if err != nil {
		panic(err)
	}
	return val
}
