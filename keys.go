package dio

import (
	"fmt"
	"reflect"
)

// Keys identify dependency slots. Any comparable value can be used as a key:
// a string, an integer, or one of the helpers below. Two equal keys address
// the same slot.

// TypeKey returns a key that identifies the type T.
//
// Use this to key a registration by the Go type it produces rather than by
// a name:
//
//	p.Register(dio.TypeKey[*sql.DB](), NewDB)
//	db, err := dio.Inject[*sql.DB](ctx, inj, dio.TypeKey[*sql.DB]())
func TypeKey[T any]() any {
	return typeKey{reflect.TypeFor[T]()}
}

type typeKey struct {
	t reflect.Type
}

func (k typeKey) String() string {
	return k.t.String()
}

// Qualified is a key that reuses another key with an extra qualifier
// attached. It allows the same base key to be registered or resolved with
// different parameters, which a generic factory can read back through
// [Request.Key]:
//
//	p.Register(dio.Qualified{Key: "db", Qualifier: "primary"}, NewPrimaryDB)
//	p.Register(dio.Qualified{Key: "db", Qualifier: "replica"}, NewReplicaDB)
//
// Both fields must be comparable values.
type Qualified struct {
	Key       any
	Qualifier any
}

func (q Qualified) String() string {
	return fmt.Sprintf("%v (qualifier %v)", q.Key, q.Qualifier)
}

// formatKey renders a key for error messages. Strings are quoted so that
// "db" and a hypothetical db type are distinguishable in output.
func formatKey(key any) string {
	if s, ok := key.(string); ok {
		return fmt.Sprintf("%q", s)
	}
	return fmt.Sprintf("%v", key)
}
