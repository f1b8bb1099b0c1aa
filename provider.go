package dio

import (
	"context"
	"fmt"
	"sync"

	"github.com/tkaspar/dio/internal/errors"
)

// Provider is the registry of keyed factory variants.
//
// A key may be registered several times as long as each registration names a
// distinct (environment, scope) pair. Injectors bound to the Provider select
// among the variants of a key by environment and scope visibility.
//
// Complete registrations before sharing the Provider across goroutines.
// Registration is safe to interleave with resolution, but the usual
// discipline is a read-only Provider once the first Injector is running.
type Provider struct {
	mu       sync.RWMutex
	variants map[any][]*variant
}

// NewProvider creates an empty [Provider].
func NewProvider() *Provider {
	return &Provider{
		variants: make(map[any][]*variant),
	}
}

// variant is one registered factory, tagged with its key, an optional
// environment, and an optional scope label.
type variant struct {
	key           any
	env           string
	scope         string
	fac           *factory
	val           any // value variants, fac == nil
	closerFactory closerFactory
}

func (v *variant) String() string {
	return fmt.Sprintf("%s (env %q, scope %q)", formatKey(v.key), v.env, v.scope)
}

func (v *variant) call(ctx context.Context, req Request) (any, Cleanup, error) {
	if v.fac == nil {
		return v.val, nil, nil
	}
	return v.fac.call(ctx, req)
}

// RegisterOption configures a registration when calling [Provider.Register]
// or [Provider.RegisterValue].
//
// Available options:
//   - [InEnv] restricts the variant to one environment.
//   - [InScope] restricts the variant to injectors within a scope.
//   - [WithCloser], [IgnoreCloser], [WithCloseFunc] control instance cleanup.
type RegisterOption interface {
	applyVariant(*variant) error
}

type registerOption func(*variant) error

func (o registerOption) applyVariant(v *variant) error {
	return o(v)
}

// InEnv restricts a variant to the given environment. An injector bound to
// that environment prefers this variant over an environment-agnostic one for
// the same key.
func InEnv(env string) RegisterOption {
	return registerOption(func(v *variant) error {
		if env == "" {
			return errors.New("in env: env is empty")
		}
		v.env = env
		return nil
	})
}

// InScope restricts a variant to injectors whose scope chain contains the
// given label. The instance is constructed and cached by the nearest
// enclosing injector carrying that label.
func InScope(scope string) RegisterOption {
	return registerOption(func(v *variant) error {
		if scope == "" {
			return errors.New("in scope: scope is empty")
		}
		v.scope = scope
		return nil
	})
}

// Register adds a factory variant for the given key.
//
// The key must be a comparable value. The factory must match one of the
// supported signatures (see [Request] and [Cleanup]); an unsupported
// signature fails immediately with an error wrapping [ErrInvalidFactory].
// Registering a second variant with the same (key, environment, scope)
// fails with an error wrapping [ErrVariantRegistered].
func (p *Provider) Register(key any, factoryFn any, opts ...RegisterOption) error {
	fac, err := newFactory(factoryFn)
	if err != nil {
		return errors.Wrapf(err, "dio.Provider.Register %s", formatKey(key))
	}

	v := &variant{key: key, fac: fac}
	if err := applyOptions(opts, v.applyOption); err != nil {
		return errors.Wrapf(err, "dio.Provider.Register %s", formatKey(key))
	}

	if err := p.add(v); err != nil {
		return errors.Wrap(err, "dio.Provider.Register")
	}

	return nil
}

// RegisterValue adds a constant instance for the given key.
//
// The value is returned as-is on every resolution and is never closed by the
// injector unless the registration opts in with [WithCloser] or
// [WithCloseFunc].
func (p *Provider) RegisterValue(key any, val any, opts ...RegisterOption) error {
	v := &variant{key: key, val: val}
	if err := applyOptions(opts, v.applyOption); err != nil {
		return errors.Wrapf(err, "dio.Provider.RegisterValue %s", formatKey(key))
	}

	if err := p.add(v); err != nil {
		return errors.Wrap(err, "dio.Provider.RegisterValue")
	}

	return nil
}

func (v *variant) applyOption(opt RegisterOption) error {
	return opt.applyVariant(v)
}

func (p *Provider) add(v *variant) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.variants == nil {
		p.variants = make(map[any][]*variant)
	}

	for _, existing := range p.variants[v.key] {
		if existing.env == v.env && existing.scope == v.scope {
			return errors.Wrapf(ErrVariantRegistered, "%s", v)
		}
	}

	p.variants[v.key] = append(p.variants[v.key], v)
	return nil
}

// Attach merges the variants registered with another Provider into this one.
//
// Use this to split registrations across packages. Merging preserves the
// per-(key, environment, scope) uniqueness invariant and fails the same way
// as a duplicate in-place registration.
func (p *Provider) Attach(other *Provider) error {
	if other == nil || other == p {
		return errors.New("dio.Provider.Attach: invalid provider")
	}

	other.mu.RLock()
	var snapshot []*variant
	for _, vs := range other.variants {
		snapshot = append(snapshot, vs...)
	}
	other.mu.RUnlock()

	var errs errors.MultiError
	for _, v := range snapshot {
		errs = errs.Append(p.add(v))
	}

	return errs.Wrap("dio.Provider.Attach")
}

// A Module is a reusable group of registrations.
//
// Example:
//
//	var StorageModule dio.Module = func(p *dio.Provider) error {
//		if err := p.Register("db", NewDB); err != nil {
//			return err
//		}
//		return p.Register("store", NewStore)
//	}
type Module func(*Provider) error

// Apply runs the given modules against this Provider, joining any errors.
func (p *Provider) Apply(mods ...Module) error {
	var errs errors.MultiError
	for _, m := range mods {
		errs = errs.Append(m(p))
	}

	return errs.Wrap("dio.Provider.Apply")
}

// resolve returns the single best-matching variant for the requested key, as
// seen from an injector with the given environment and scope chain.
//
// Candidates are filtered to visible scopes, then an environment-exact
// variant beats an environment-agnostic one, then the deepest visible scope
// wins. Remaining ties keep the earliest registration; the uniqueness
// invariant makes such ties unreachable.
func (p *Provider) resolve(key any, env string, chain []string) (*variant, error) {
	p.mu.RLock()
	defer p.mu.RUnlock()

	var best *variant
	bestExact := false
	bestDepth := -1

	for _, v := range p.variants[key] {
		depth, visible := scopeDepth(v.scope, chain)
		if !visible {
			continue
		}

		exact := v.env != "" && v.env == env
		if v.env != "" && !exact {
			// Environment-specific variant for a different environment.
			continue
		}

		switch {
		case best == nil,
			exact && !bestExact,
			exact == bestExact && depth > bestDepth:
			best, bestExact, bestDepth = v, exact, depth
		}
	}

	if best == nil {
		return nil, errors.Wrapf(ErrVariantNotFound, "key %s (env %q)", formatKey(key), env)
	}

	return best, nil
}

// contains reports whether any variant for the key is visible from the given
// environment and scope chain.
func (p *Provider) contains(key any, env string, chain []string) bool {
	_, err := p.resolve(key, env, chain)
	return err == nil
}

// scopeDepth returns the visibility and depth of a variant's scope label
// relative to a scope chain. Unscoped variants are visible everywhere at
// depth 0; a labeled variant is visible when its label appears in the chain,
// ranked one past the deepest position of that label.
func scopeDepth(scope string, chain []string) (int, bool) {
	if scope == "" {
		return 0, true
	}

	for i := len(chain) - 1; i >= 0; i-- {
		if chain[i] == scope {
			return i + 1, true
		}
	}

	return 0, false
}
