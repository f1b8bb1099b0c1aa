package dio

import (
	"context"

	"github.com/tkaspar/dio/internal/errors"
)

// obligation is one registered cleanup tied to one constructed instance.
type obligation struct {
	key     any
	cleanup Cleanup
}

func (i *Injector) addObligation(key any, c Cleanup) {
	i.mu.Lock()
	i.obligations = append(i.obligations, obligation{key: key, cleanup: c})
	i.mu.Unlock()
}

// teardown runs the injector's cleanup obligations in reverse construction
// order. Every cleanup is attempted even after a failure; failures are
// joined into a single error.
func (i *Injector) teardown(ctx context.Context, cause error) error {
	var errs errors.MultiError

	for n := len(i.obligations) - 1; n >= 0; n-- {
		ob := i.obligations[n]
		err := ob.cleanup(ctx, cause)
		errs = errs.Append(errors.Wrapf(err, "close %s", formatKey(ob.key)))
	}
	i.obligations = nil

	return errs.Join()
}

// closerCleanup adapts a [Closer] to a [Cleanup]. Closers have no use for
// the teardown cause.
func closerCleanup(c Closer) Cleanup {
	return func(ctx context.Context, _ error) error {
		return c.Close(ctx)
	}
}
