package dio_test

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/tkaspar/dio"
)

type widget struct{}

func Test_TypeKey(t *testing.T) {
	t.Run("equal for same type", func(t *testing.T) {
		assert.Equal(t, dio.TypeKey[*widget](), dio.TypeKey[*widget]())
	})

	t.Run("distinct for different types", func(t *testing.T) {
		assert.NotEqual(t, dio.TypeKey[widget](), dio.TypeKey[*widget]())
		assert.NotEqual(t, dio.TypeKey[string](), dio.TypeKey[int]())
	})

	t.Run("string", func(t *testing.T) {
		assert.Equal(t, "string", dio.TypeKey[string]().(interface{ String() string }).String())
	})
}

func Test_Qualified(t *testing.T) {
	t.Run("equality includes qualifier", func(t *testing.T) {
		a := dio.Qualified{Key: "db", Qualifier: "primary"}
		b := dio.Qualified{Key: "db", Qualifier: "primary"}
		c := dio.Qualified{Key: "db", Qualifier: "replica"}

		assert.Equal(t, a, b)
		assert.NotEqual(t, a, c)
	})

	t.Run("string", func(t *testing.T) {
		q := dio.Qualified{Key: "db", Qualifier: "primary"}
		assert.Equal(t, "db (qualifier primary)", q.String())
	})
}
