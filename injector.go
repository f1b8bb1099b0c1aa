package dio

import (
	"context"
	"strings"
	"sync"

	"github.com/puzpuzpuz/xsync/v3"

	"github.com/tkaspar/dio/internal/errors"
)

// Injector resolves keys to instances.
//
// An Injector is bound to one [Provider], one environment, and one position
// in a scope chain. Within one Injector a (key, environment) pair resolves
// to exactly one instance for the Injector's lifetime; the matching factory
// is invoked at most once, even under concurrent callers.
//
// Injectors form a tree: [Injector.Scoped] creates a child one scope label
// deeper. Each Injector owns its own cache and cleanup bookkeeping; closing
// an Injector tears down the instances it constructed, never a parent's or
// child's.
type Injector struct {
	provider *Provider
	env      string
	parent   *Injector
	label    string   // own scope label, empty for a root injector
	chain    []string // scope labels from root to self

	cache *xsync.MapOf[cacheKey, *instanceFuture]

	mu          sync.Mutex // guards closed and obligations
	building    sync.WaitGroup
	obligations []obligation
	closed      bool
}

type cacheKey struct {
	key any
	env string
}

var _ Resolver = (*Injector)(nil)

// New creates a root [Injector] bound to the given provider.
//
// Available options:
//   - [WithEnv] binds the injector to an environment.
//   - [WithValue] seeds the cache with a pre-built instance.
func New(p *Provider, opts ...InjectorOption) *Injector {
	cfg := injectorConfig{}
	for _, opt := range opts {
		opt.applyInjector(&cfg)
	}

	i := &Injector{
		provider: p,
		env:      cfg.env,
		cache:    xsync.NewMapOf[cacheKey, *instanceFuture](),
	}
	i.seed(cfg.seeds)

	return i
}

// InjectorOption configures a new [Injector] when calling [New] or
// [Injector.Scoped].
type InjectorOption interface {
	applyInjector(*injectorConfig)
}

type injectorConfig struct {
	env   string
	seeds []seed
}

type seed struct {
	key any
	val any
}

type injectorOption func(*injectorConfig)

func (o injectorOption) applyInjector(cfg *injectorConfig) {
	o(cfg)
}

// WithEnv binds the injector to the given environment. On
// [Injector.Scoped] it overrides the environment inherited from the parent.
func WithEnv(env string) InjectorOption {
	return injectorOption(func(cfg *injectorConfig) {
		cfg.env = env
	})
}

// WithValue seeds the injector's cache with a pre-built instance for the
// given key, as if the key had already been resolved. The instance is not
// closed by the injector.
//
// This is how per-injector values (for example the current *http.Request in
// a request scope) are made available without touching the shared Provider.
func WithValue(key any, val any) InjectorOption {
	return injectorOption(func(cfg *injectorConfig) {
		cfg.seeds = append(cfg.seeds, seed{key: key, val: val})
	})
}

func (i *Injector) seed(seeds []seed) {
	for _, s := range seeds {
		i.cache.Store(cacheKey{key: s.key, env: i.env}, completedFuture(s.val))
	}
}

// Env returns the environment the injector is bound to. Empty if none.
func (i *Injector) Env() string {
	return i.env
}

// Contains reports whether a variant for the given key is visible from this
// injector's environment and scope chain.
func (i *Injector) Contains(key any) bool {
	return i.provider.contains(key, i.env, i.chain)
}

// Inject resolves the given key to an instance.
//
// The first call invokes the matching factory variant and memoizes the
// result (errors included); later calls return the memoized result without
// re-invoking the factory. Inject fails with an error wrapping
// [ErrInjectorClosed] after the injector has been closed,
// [ErrVariantNotFound] when no variant matches, and [ErrDependencyCycle]
// when the key's construction recursively requires itself.
func (i *Injector) Inject(ctx context.Context, key any) (any, error) {
	val, err := i.injectPath(ctx, key, nil)
	if err != nil {
		return nil, errors.Wrapf(err, "dio.Injector.Inject %s", formatKey(key))
	}

	return val, nil
}

func (i *Injector) injectPath(ctx context.Context, key any, path *resolvePath) (any, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	if path.contains(key) {
		return nil, errors.Wrapf(ErrDependencyCycle, "%s", path.describe(key))
	}

	i.mu.Lock()
	if i.closed {
		i.mu.Unlock()
		return nil, ErrInjectorClosed
	}
	i.building.Add(1)
	i.mu.Unlock()
	defer i.building.Done()

	ck := cacheKey{key: key, env: i.env}
	if fut, ok := i.cache.Load(ck); ok {
		return fut.await(ctx)
	}

	v, err := i.provider.resolve(key, i.env, i.chain)
	if err != nil {
		return nil, err
	}

	if v.scope != "" && v.scope != i.label {
		// The variant belongs to an ancestor scope tier. Construct it there
		// so the instance lives, and is torn down, with its scope. The owner
		// re-resolves under its own environment.
		owner := i.parent
		for owner != nil && owner.label != v.scope {
			owner = owner.parent
		}
		if owner == nil {
			return nil, errors.Wrapf(ErrVariantNotFound, "key %s (env %q)", formatKey(key), i.env)
		}
		return owner.injectPath(ctx, key, path)
	}

	fut := newInstanceFuture()
	if existing, loaded := i.cache.LoadOrStore(ck, fut); loaded {
		// Another caller is constructing this key; reuse its result.
		return existing.await(ctx)
	}

	req := Request{inj: i, key: key, path: path.push(key)}
	val, cleanup, err := i.construct(ctx, v, req)

	if err == nil && cleanup != nil {
		i.addObligation(key, cleanup)
	}

	fut.set(val, err)
	return val, err
}

// construct invokes the variant's factory and resolves its cleanup
// obligation. A panicking factory is converted into an error result so the
// memoized future always completes; otherwise later callers would await a
// construction that never finishes, and Close would wait on it forever.
func (i *Injector) construct(ctx context.Context, v *variant, req Request) (val any, cleanup Cleanup, err error) {
	defer func() {
		if r := recover(); r != nil {
			val, cleanup = nil, nil
			err = errors.Errorf("factory panicked: %v", r)
		}
	}()

	val, cleanup, err = v.call(ctx, req)

	if err == nil && cleanup == nil && v.closerFactory != nil {
		if c := v.closerFactory(val); c != nil {
			cleanup = closerCleanup(c)
		}
	}

	return val, cleanup, err
}

// Scoped creates a child injector whose scope chain is this injector's
// chain plus the given label.
//
// The child inherits the parent's environment unless overridden with
// [WithEnv]. It is independent for caching and lifecycle purposes and must
// be closed by its owner; closing the parent does not close the child.
func (i *Injector) Scoped(label string, opts ...InjectorOption) (*Injector, error) {
	if label == "" {
		return nil, errors.New("dio.Injector.Scoped: label is empty")
	}

	// Hold the lock across child construction so a concurrent Close cannot
	// slip between the closed check and the child being handed out.
	i.mu.Lock()
	defer i.mu.Unlock()

	if i.closed {
		return nil, errors.Wrap(ErrInjectorClosed, "dio.Injector.Scoped")
	}

	cfg := injectorConfig{env: i.env}
	for _, opt := range opts {
		opt.applyInjector(&cfg)
	}

	chain := make([]string, len(i.chain)+1)
	copy(chain, i.chain)
	chain[len(i.chain)] = label

	child := &Injector{
		provider: i.provider,
		env:      cfg.env,
		parent:   i,
		label:    label,
		chain:    chain,
		cache:    xsync.NewMapOf[cacheKey, *instanceFuture](),
	}
	child.seed(cfg.seeds)

	return child, nil
}

// RunScoped runs fn with a fresh child injector and closes the child on
// every path.
//
// If fn returns an error, it is forwarded to the child's cleanup obligations
// as the teardown cause (see [Cleanup]) and joined with any teardown error.
func (i *Injector) RunScoped(ctx context.Context, label string, fn func(*Injector) error) error {
	child, err := i.Scoped(label)
	if err != nil {
		return errors.Wrap(err, "dio.Injector.RunScoped")
	}

	fnErr := fn(child)
	closeErr := child.CloseWithError(ctx, fnErr)

	var errs errors.MultiError
	return errs.Append(fnErr).Append(closeErr).Join()
}

// Close closes the injector and tears down the instances it constructed, in
// reverse construction order.
//
// Close is idempotent: a second call is a no-op. Every cleanup obligation is
// attempted even if an earlier one fails; failures are joined into the
// returned error. Close waits for in-flight constructions to complete
// before tearing down, so it must not be called from inside a factory of
// the same injector.
func (i *Injector) Close(ctx context.Context) error {
	return i.CloseWithError(ctx, nil)
}

// CloseWithError closes the injector like [Close], passing cause to every
// cleanup obligation to signal that the injector is being closed because an
// error occurred during its usage.
func (i *Injector) CloseWithError(ctx context.Context, cause error) error {
	i.mu.Lock()
	if i.closed {
		i.mu.Unlock()
		return nil
	}
	i.closed = true
	i.mu.Unlock()

	// Let in-flight factory invocations finish; their obligations are
	// included in this teardown.
	i.building.Wait()

	return errors.Wrap(i.teardown(ctx, cause), "dio.Injector.Close")
}

// resolvePath tracks the chain of keys under construction within one
// resolution call. It is threaded through nested [Request.Inject] calls and
// is the engine's only cycle defense.
type resolvePath struct {
	key  any
	prev *resolvePath
}

func (p *resolvePath) push(key any) *resolvePath {
	return &resolvePath{key: key, prev: p}
}

func (p *resolvePath) contains(key any) bool {
	for n := p; n != nil; n = n.prev {
		if n.key == key {
			return true
		}
	}
	return false
}

// describe renders the cycle from the outermost key to the repeated one.
func (p *resolvePath) describe(key any) string {
	var keys []any
	for n := p; n != nil; n = n.prev {
		keys = append(keys, n.key)
	}

	var b strings.Builder
	for n := len(keys) - 1; n >= 0; n-- {
		b.WriteString(formatKey(keys[n]))
		b.WriteString(" -> ")
	}
	b.WriteString(formatKey(key))

	return b.String()
}
