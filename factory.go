package dio

import (
	"context"
	"reflect"

	"github.com/tkaspar/dio/internal/errors"
)

// Cleanup is the second phase of a scoped-resource factory.
//
// A factory that returns a Cleanup alongside its instance hands the injector
// a cleanup obligation. The injector invokes the Cleanup when it is closed,
// in reverse construction order.
//
// cause is nil when the injector closed normally. A non-nil cause means the
// injector was closed because an error occurred while it was in use (see
// [Injector.CloseWithError] and [Injector.RunScoped]), letting the factory
// decide between committing and rolling back a held resource:
//
//	p.Register("tx", func(ctx context.Context, req dio.Request) (*sql.Tx, dio.Cleanup, error) {
//		tx, err := db.BeginTx(ctx, nil)
//		if err != nil {
//			return nil, nil, err
//		}
//		return tx, func(ctx context.Context, cause error) error {
//			if cause != nil {
//				return tx.Rollback()
//			}
//			return tx.Commit()
//		}, nil
//	})
type Cleanup func(ctx context.Context, cause error) error

// Request is the capability record handed to a factory while it runs.
//
// It exposes the requesting injector for nested [Request.Inject] calls, the
// key being constructed, and the active environment. A factory declares the
// record as a parameter only if it needs it.
type Request struct {
	inj  *Injector
	key  any
	path *resolvePath
}

// Key returns the key the factory is being invoked for. Generic factories
// registered under several keys use this to tell them apart.
func (r Request) Key() any {
	return r.key
}

// Env returns the environment of the requesting injector. Empty if the
// injector has no environment set.
func (r Request) Env() string {
	return r.inj.env
}

// Inject resolves a dependency from the requesting injector.
//
// Calls made through the Request participate in cycle detection: if the
// resolution path reaches a key that is already under construction, Inject
// fails with [ErrDependencyCycle] instead of recursing.
func (r Request) Inject(ctx context.Context, key any) (any, error) {
	val, err := r.inj.injectPath(ctx, key, r.path)
	if err != nil {
		return nil, errors.Wrapf(err, "dependency %s", formatKey(key))
	}

	return val, nil
}

var _ Resolver = Request{}

type factoryParam uint8

const (
	paramContext factoryParam = iota
	paramRequest
)

type returnShape uint8

const (
	returnInstance       returnShape = iota // T
	returnInstanceErr                       // (T, error)
	returnCleanup                           // (T, Cleanup)
	returnCleanupErr                        // (T, Cleanup, error)
)

// factory wraps a user factory function after its signature has been
// validated at registration time.
type factory struct {
	fn     reflect.Value
	params []factoryParam
	shape  returnShape
}

// newFactory validates fn against the supported signatures and returns the
// invocation plan. Parameters may be any subset of {context.Context,
// dio.Request}, in any order. The function must return the instance,
// optionally followed by a [Cleanup], optionally followed by an error.
func newFactory(fn any) (*factory, error) {
	if fn == nil {
		return nil, errors.Wrap(ErrInvalidFactory, "factory is nil")
	}

	fnType := reflect.TypeOf(fn)
	if fnType.Kind() != reflect.Func {
		return nil, errors.Wrapf(ErrInvalidFactory, "%T is not a function", fn)
	}
	if fnType.IsVariadic() {
		return nil, errors.Wrap(ErrInvalidFactory, "variadic factories are not supported")
	}

	params, err := factoryParams(fnType)
	if err != nil {
		return nil, err
	}

	shape, err := factoryShape(fnType)
	if err != nil {
		return nil, err
	}

	return &factory{
		fn:     reflect.ValueOf(fn),
		params: params,
		shape:  shape,
	}, nil
}

func factoryParams(fnType reflect.Type) ([]factoryParam, error) {
	var params []factoryParam
	var seen [2]bool

	for i := 0; i < fnType.NumIn(); i++ {
		var p factoryParam

		switch fnType.In(i) {
		case typeContext:
			p = paramContext
		case typeRequest:
			p = paramRequest
		default:
			return nil, errors.Wrapf(ErrInvalidFactory,
				"unsupported parameter %s: factories accept context.Context and dio.Request only",
				fnType.In(i))
		}

		if seen[p] {
			return nil, errors.Wrapf(ErrInvalidFactory, "duplicate parameter %s", fnType.In(i))
		}
		seen[p] = true
		params = append(params, p)
	}

	return params, nil
}

func factoryShape(fnType reflect.Type) (returnShape, error) {
	badInstance := func(t reflect.Type) bool {
		return t == typeError || t == typeCleanup || t == typeContext || t == typeRequest
	}

	switch fnType.NumOut() {
	case 1:
		if badInstance(fnType.Out(0)) {
			break
		}
		return returnInstance, nil

	case 2:
		if badInstance(fnType.Out(0)) {
			break
		}
		if fnType.Out(1) == typeError {
			return returnInstanceErr, nil
		}
		if fnType.Out(1) == typeCleanup {
			return returnCleanup, nil
		}

	case 3:
		if badInstance(fnType.Out(0)) {
			break
		}
		if fnType.Out(1) == typeCleanup && fnType.Out(2) == typeError {
			return returnCleanupErr, nil
		}
	}

	return 0, errors.Wrap(ErrInvalidFactory,
		"factory must return T, (T, error), (T, dio.Cleanup), or (T, dio.Cleanup, error)")
}

// call invokes the factory, supplying exactly the declared capability
// subset, and unpacks the result according to the validated return shape.
func (f *factory) call(ctx context.Context, req Request) (any, Cleanup, error) {
	args := make([]reflect.Value, len(f.params))
	for i, p := range f.params {
		switch p {
		case paramContext:
			args[i] = reflect.ValueOf(ctx)
		case paramRequest:
			args[i] = reflect.ValueOf(req)
		}
	}

	out := f.fn.Call(args)

	val := out[0].Interface()

	var cleanup Cleanup
	var err error

	switch f.shape {
	case returnInstanceErr:
		err = asError(out[1])
	case returnCleanup:
		cleanup = asCleanup(out[1])
	case returnCleanupErr:
		cleanup = asCleanup(out[1])
		err = asError(out[2])
	}

	return val, cleanup, err
}

func asError(v reflect.Value) error {
	if v.IsNil() {
		return nil
	}
	return v.Interface().(error)
}

func asCleanup(v reflect.Value) Cleanup {
	if v.IsNil() {
		return nil
	}
	return v.Interface().(Cleanup)
}
