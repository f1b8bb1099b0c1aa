package dio_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tkaspar/dio"
	"github.com/tkaspar/dio/internal/errors"
	"github.com/tkaspar/dio/internal/testutils"
)

// recordCleanup returns a factory producing key's name and a cleanup that
// appends the key to log when it runs.
func recordCleanup(log *[]string, fail error) func(req dio.Request) (string, dio.Cleanup) {
	return func(req dio.Request) (string, dio.Cleanup) {
		key := req.Key().(string)
		return key, func(ctx context.Context, cause error) error {
			*log = append(*log, key)
			return fail
		}
	}
}

func Test_Injector_Close(t *testing.T) {
	ctx := context.Background()

	t.Run("reverse construction order", func(t *testing.T) {
		var log []string

		p := dio.NewProvider()
		for _, key := range []string{"a", "b", "c"} {
			require.NoError(t, p.Register(key, recordCleanup(&log, nil)))
		}

		inj := dio.New(p)
		for _, key := range []string{"a", "b", "c"} {
			_, err := inj.Inject(ctx, key)
			require.NoError(t, err)
		}

		require.NoError(t, inj.Close(ctx))
		assert.Equal(t, []string{"c", "b", "a"}, log)
	})

	t.Run("idempotent", func(t *testing.T) {
		var log []string

		p := dio.NewProvider()
		require.NoError(t, p.Register("a", recordCleanup(&log, nil)))

		inj := dio.New(p)
		_, err := inj.Inject(ctx, "a")
		require.NoError(t, err)

		assert.NoError(t, inj.Close(ctx))
		assert.NoError(t, inj.Close(ctx))
		assert.Equal(t, []string{"a"}, log)
	})

	t.Run("aggregates failures and keeps going", func(t *testing.T) {
		var log []string
		errA := errors.New("a failed")
		errB := errors.New("b failed")

		p := dio.NewProvider()
		require.NoError(t, p.Register("a", recordCleanup(&log, errA)))
		require.NoError(t, p.Register("b", recordCleanup(&log, errB)))

		inj := dio.New(p)
		for _, key := range []string{"a", "b"} {
			_, err := inj.Inject(ctx, key)
			require.NoError(t, err)
		}

		err := inj.Close(ctx)
		testutils.LogError(t, err)

		assert.ErrorIs(t, err, errA)
		assert.ErrorIs(t, err, errB)
		assert.EqualError(t, err, "dio.Injector.Close: close \"b\": b failed\nclose \"a\": a failed")

		// Both cleanups ran despite the first failure.
		assert.Equal(t, []string{"b", "a"}, log)

		// A second close does not re-run or re-report anything.
		assert.NoError(t, inj.Close(ctx))
	})

	t.Run("direct factories leave no obligation", func(t *testing.T) {
		p := dio.NewProvider()
		require.NoError(t, p.Register("plain", func() string { return "x" }))

		inj := dio.New(p)
		_, err := inj.Inject(ctx, "plain")
		require.NoError(t, err)

		assert.NoError(t, inj.Close(ctx))
	})

	t.Run("child close does not touch parent", func(t *testing.T) {
		var log []string

		p := dio.NewProvider()
		require.NoError(t, p.Register("a", recordCleanup(&log, nil)))

		root := dio.New(p)
		_, err := root.Inject(ctx, "a")
		require.NoError(t, err)

		child, err := root.Scoped("request")
		require.NoError(t, err)
		_, err = child.Inject(ctx, "a")
		require.NoError(t, err)

		require.NoError(t, child.Close(ctx))
		assert.Equal(t, []string{"a"}, log) // only the child's instance

		require.NoError(t, root.Close(ctx))
		assert.Equal(t, []string{"a", "a"}, log)
	})
}

func Test_Injector_CloseWithError(t *testing.T) {
	ctx := context.Background()

	t.Run("cause reaches cleanups", func(t *testing.T) {
		var got []error

		p := dio.NewProvider()
		require.NoError(t, p.Register("tx", func() (string, dio.Cleanup) {
			return "tx", func(ctx context.Context, cause error) error {
				got = append(got, cause)
				return nil
			}
		}))

		inj := dio.New(p)
		_, err := inj.Inject(ctx, "tx")
		require.NoError(t, err)

		require.NoError(t, inj.CloseWithError(ctx, assert.AnError))
		require.Len(t, got, 1)
		assert.ErrorIs(t, got[0], assert.AnError)
	})

	t.Run("nil cause on normal close", func(t *testing.T) {
		var got []error

		p := dio.NewProvider()
		require.NoError(t, p.Register("tx", func() (string, dio.Cleanup) {
			return "tx", func(ctx context.Context, cause error) error {
				got = append(got, cause)
				return nil
			}
		}))

		inj := dio.New(p)
		_, err := inj.Inject(ctx, "tx")
		require.NoError(t, err)

		require.NoError(t, inj.Close(ctx))
		require.Len(t, got, 1)
		assert.NoError(t, got[0])
	})
}

func Test_Injector_RunScoped(t *testing.T) {
	ctx := context.Background()

	// A transaction-shaped factory: commits on normal close, rolls back when
	// the scope is closed because of an error.
	newTxProvider := func(state *string) *dio.Provider {
		p := dio.NewProvider()
		err := p.Register("tx", func() (string, dio.Cleanup) {
			*state = "open"
			return "tx", func(ctx context.Context, cause error) error {
				if cause != nil {
					*state = "rolled back"
				} else {
					*state = "committed"
				}
				return nil
			}
		}, dio.InScope("unit-of-work"))
		if err != nil {
			panic(err)
		}
		return p
	}

	t.Run("commits on success", func(t *testing.T) {
		var state string
		root := dio.New(newTxProvider(&state))
		defer closeInjector(t, root)

		err := root.RunScoped(ctx, "unit-of-work", func(scope *dio.Injector) error {
			_, err := scope.Inject(ctx, "tx")
			require.NoError(t, err)
			assert.Equal(t, "open", state)
			return nil
		})

		assert.NoError(t, err)
		assert.Equal(t, "committed", state)
	})

	t.Run("rolls back on error", func(t *testing.T) {
		var state string
		root := dio.New(newTxProvider(&state))
		defer closeInjector(t, root)

		err := root.RunScoped(ctx, "unit-of-work", func(scope *dio.Injector) error {
			_, injErr := scope.Inject(ctx, "tx")
			require.NoError(t, injErr)
			return assert.AnError
		})

		assert.ErrorIs(t, err, assert.AnError)
		assert.Equal(t, "rolled back", state)
	})

	t.Run("closes scope on every path", func(t *testing.T) {
		p := dio.NewProvider()
		root := dio.New(p)
		defer closeInjector(t, root)

		var scope *dio.Injector
		err := root.RunScoped(ctx, "request", func(s *dio.Injector) error {
			scope = s
			return nil
		})
		require.NoError(t, err)

		_, err = scope.Inject(ctx, "anything")
		assert.ErrorIs(t, err, dio.ErrInjectorClosed)
	})

	t.Run("closed parent", func(t *testing.T) {
		p := dio.NewProvider()
		root := dio.New(p)
		require.NoError(t, root.Close(ctx))

		err := root.RunScoped(ctx, "request", func(*dio.Injector) error { return nil })
		testutils.LogError(t, err)

		assert.ErrorIs(t, err, dio.ErrInjectorClosed)
	})
}

type ctxErrCloser struct {
	closed *[]string
}

func (c *ctxErrCloser) Close(context.Context) error {
	*c.closed = append(*c.closed, "ctx-err")
	return nil
}

type bareCloser struct {
	closed *[]string
}

func (c *bareCloser) Close() {
	*c.closed = append(*c.closed, "bare")
}

type shutdowner struct {
	closed *[]string
}

func (s *shutdowner) Shutdown(context.Context) error {
	*s.closed = append(*s.closed, "shutdown")
	return nil
}

func Test_CloserOptions(t *testing.T) {
	ctx := context.Background()

	t.Run("with closer detects Close methods", func(t *testing.T) {
		var closed []string

		p := dio.NewProvider()
		require.NoError(t, p.Register("a", func() *ctxErrCloser {
			return &ctxErrCloser{closed: &closed}
		}, dio.WithCloser()))
		require.NoError(t, p.Register("b", func() *bareCloser {
			return &bareCloser{closed: &closed}
		}, dio.WithCloser()))

		inj := dio.New(p)
		for _, key := range []string{"a", "b"} {
			_, err := inj.Inject(ctx, key)
			require.NoError(t, err)
		}

		require.NoError(t, inj.Close(ctx))
		assert.Equal(t, []string{"bare", "ctx-err"}, closed)
	})

	t.Run("without option instances are not closed", func(t *testing.T) {
		var closed []string

		p := dio.NewProvider()
		require.NoError(t, p.Register("a", func() *ctxErrCloser {
			return &ctxErrCloser{closed: &closed}
		}))

		inj := dio.New(p)
		_, err := inj.Inject(ctx, "a")
		require.NoError(t, err)

		require.NoError(t, inj.Close(ctx))
		assert.Empty(t, closed)
	})

	t.Run("ignore closer", func(t *testing.T) {
		var closed []string

		p := dio.NewProvider()
		require.NoError(t, p.Register("a", func() *ctxErrCloser {
			return &ctxErrCloser{closed: &closed}
		}, dio.WithCloser(), dio.IgnoreCloser()))

		inj := dio.New(p)
		_, err := inj.Inject(ctx, "a")
		require.NoError(t, err)

		require.NoError(t, inj.Close(ctx))
		assert.Empty(t, closed)
	})

	t.Run("with close func", func(t *testing.T) {
		var closed []string

		p := dio.NewProvider()
		require.NoError(t, p.Register("srv", func() *shutdowner {
			return &shutdowner{closed: &closed}
		}, dio.WithCloseFunc(func(ctx context.Context, s *shutdowner) error {
			return s.Shutdown(ctx)
		})))

		inj := dio.New(p)
		_, err := inj.Inject(ctx, "srv")
		require.NoError(t, err)

		require.NoError(t, inj.Close(ctx))
		assert.Equal(t, []string{"shutdown"}, closed)
	})

	t.Run("with closer on value registration", func(t *testing.T) {
		var closed []string

		p := dio.NewProvider()
		require.NoError(t, p.RegisterValue("a", &ctxErrCloser{closed: &closed}, dio.WithCloser()))

		inj := dio.New(p)
		_, err := inj.Inject(ctx, "a")
		require.NoError(t, err)

		require.NoError(t, inj.Close(ctx))
		assert.Equal(t, []string{"ctx-err"}, closed)
	})
}
