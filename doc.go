/*
Package dio is a keyed dependency-resolution and object-lifecycle engine.

Factories are registered with a [Provider] under arbitrary comparable keys,
optionally qualified by an environment and a scope label. An [Injector]
bound to the Provider resolves a key to an instance, memoizes the instance
for its lifetime, and tears down everything it constructed, in reverse
construction order, when it is closed.

Basic usage:

	p := dio.NewProvider()
	_ = p.Register("greet", func() string {
		return "Hello, world!"
	})

	inj := dio.New(p)
	defer inj.Close(context.Background())

	greeting, err := dio.Inject[string](ctx, inj, "greet")

A factory can depend on other keys by declaring a [Request] parameter, can
select per environment via [InEnv], and can hand the injector a cleanup
obligation by returning a [Cleanup]:

	p.Register("db", func(ctx context.Context, req dio.Request) (*DB, dio.Cleanup, error) {
		dsn, err := dio.Inject[string](ctx, req, "dsn")
		if err != nil {
			return nil, nil, err
		}
		db, err := Open(ctx, dsn)
		if err != nil {
			return nil, nil, err
		}
		return db, func(ctx context.Context, cause error) error {
			return db.Close()
		}, nil
	})

Scopes tier lifetimes: [Injector.Scoped] creates a child injector one label
deeper, and variants registered with [InScope] are constructed and cached by
the nearest injector carrying their label. [Injector.RunScoped] bounds a
child injector's lifetime to a function call.
*/
package dio
