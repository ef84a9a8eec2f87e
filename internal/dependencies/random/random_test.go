package random

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestInt64nStaysInRange(t *testing.T) {
	r := New()
	for i := 0; i < 1000; i++ {
		v, err := r.Int64n(7)
		require.NoError(t, err)
		assert.GreaterOrEqual(t, v, int64(0))
		assert.Less(t, v, int64(7))
	}
}

func TestInt64nNonPositiveBound(t *testing.T) {
	r := New()
	v, err := r.Int64n(0)
	require.NoError(t, err)
	assert.Equal(t, int64(0), v)
}
