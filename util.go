package dio

import (
	"context"
	"reflect"

	"github.com/tkaspar/dio/internal/errors"
)

// These are commonly used types.
var (
	typeError   = reflect.TypeFor[error]()
	typeContext = reflect.TypeFor[context.Context]()
	typeRequest = reflect.TypeFor[Request]()
	typeCleanup = reflect.TypeFor[Cleanup]()
)

// Apply functional options and join any errors together.
func applyOptions[O any](opts []O, f func(O) error) error {
	var errs errors.MultiError

	for _, o := range opts {
		errs = errs.Append(f(o))
	}

	return errs.Join()
}
