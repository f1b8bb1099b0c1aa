package dio

import (
	"context"
)

// instanceFuture represents the result of a construction that may still be
// in flight. A second caller racing for the same (key, env) awaits the first
// caller's result instead of invoking the factory twice.
type instanceFuture struct {
	val  any
	err  error
	done chan struct{}
}

func newInstanceFuture() *instanceFuture {
	return &instanceFuture{
		done: make(chan struct{}),
	}
}

func completedFuture(val any) *instanceFuture {
	f := newInstanceFuture()
	f.set(val, nil)
	return f
}

func (f *instanceFuture) set(val any, err error) {
	f.val = val
	f.err = err
	close(f.done)
}

func (f *instanceFuture) await(ctx context.Context) (any, error) {
	select {
	case <-f.done:
		return f.val, f.err
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}
