package dio

import (
	"context"
	"reflect"

	"github.com/tkaspar/dio/internal/errors"
)

// Closer is used to close an instance when the owning [Injector] is closed.
//
// An instance produced by a registration with [WithCloser] is closed if it
// implements Closer or one of the other compatible Close method signatures:
//
//	Close(context.Context) error
//	Close(context.Context)
//	Close() error
//	Close()
//
// See related options:
//   - [WithCloser]
//   - [IgnoreCloser]
//   - [WithCloseFunc]
type Closer interface {
	Close(ctx context.Context) error
}

// WithCloser registers a cleanup obligation for instances produced by this
// registration, if they implement [Closer] or one of the other compatible
// Close method signatures.
//
// By default instances are not closed by the injector; a factory that needs
// cleanup is expected to return a [Cleanup]. WithCloser is the shortcut for
// instances that already carry their own Close method.
func WithCloser() RegisterOption {
	return registerOption(func(v *variant) error {
		v.closerFactory = getCloser
		return nil
	})
}

// IgnoreCloser clears any closer configured for this registration, so the
// instance's lifecycle is managed outside the injector.
func IgnoreCloser() RegisterOption {
	return registerOption(func(v *variant) error {
		v.closerFactory = nil
		return nil
	})
}

type closerFactory func(val any) Closer

// WithCloseFunc sets a custom function to call for an instance when the
// owning [Injector] is closed.
//
// This is useful if an instance has a method called Shutdown or Stop instead
// of Close:
//
//	dio.WithCloseFunc(func(ctx context.Context, s *http.Server) error {
//		return s.Shutdown(ctx)
//	})
//
// Instances that are not of type T are left unclosed.
func WithCloseFunc[T any](f func(context.Context, T) error) RegisterOption {
	return registerOption(func(v *variant) error {
		if f == nil {
			return errors.New("with close func: f is nil")
		}

		v.closerFactory = func(val any) Closer {
			t, ok := val.(T)
			if !ok {
				return nil
			}
			return closeFunc(func(ctx context.Context) error {
				return f(ctx, t)
			})
		}
		return nil
	})
}

// getCloser returns the Closer interface if the given value implements it,
// or any of the compatible Close method signatures.
func getCloser(val any) Closer {
	if isNil(val) {
		return nil
	}

	switch c := val.(type) {
	case Closer:
		return c
	case closerWithContextNoError:
		return closerWithContextNoErrorWrapper{c}
	case closerNoContextWithError:
		return closerNoContextWithErrorWrapper{c}
	case closerNoContextNoError:
		return closerNoContextNoErrorWrapper{c}

	default:
		return nil
	}
}

func isNil(v any) bool {
	if v == nil {
		return true
	}

	rv := reflect.ValueOf(v)
	switch rv.Kind() {
	case reflect.Ptr, reflect.Interface, reflect.Map, reflect.Slice, reflect.Chan, reflect.Func:
		return rv.IsNil()
	default:
		return false
	}
}

type closerWithContextNoError interface {
	Close(ctx context.Context)
}

type closerNoContextWithError interface {
	Close() error
}

type closerNoContextNoError interface {
	Close()
}

type closerNoContextNoErrorWrapper struct {
	c closerNoContextNoError
}

func (w closerNoContextNoErrorWrapper) Close(context.Context) error {
	w.c.Close()
	return nil
}

type closerWithContextNoErrorWrapper struct {
	c closerWithContextNoError
}

func (w closerWithContextNoErrorWrapper) Close(ctx context.Context) error {
	w.c.Close(ctx)
	return nil
}

type closerNoContextWithErrorWrapper struct {
	c closerNoContextWithError
}

func (w closerNoContextWithErrorWrapper) Close(context.Context) error {
	return w.c.Close()
}

type closeFunc func(context.Context) error

func (f closeFunc) Close(ctx context.Context) error {
	return f(ctx)
}
