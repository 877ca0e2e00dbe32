package jshell

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRequireHandleType(t *testing.T) {
	type counter struct{ n int }
	c := &counter{n: 1}
	h := NewTypedHandle("Counter", c, nil)

	native, err := RequireHandleType(h, "Counter")
	require.NoError(t, err)
	assert.Same(t, c, native)

	native, err = RequireHandleType(*h, "Counter")
	require.NoError(t, err)
	assert.Same(t, c, native)

	_, err = RequireHandleType(h, "File")
	require.ErrorIs(t, err, ErrTypeMismatch)
	assert.EqualError(t, err, "File expected")

	for _, v := range []interface{}{nil, 1.0, "Counter", c, map[string]interface{}{}} {
		_, err := RequireHandleType(v, "Counter")
		assert.EqualError(t, err, "Counter expected", "value %#v", v)
	}
}

func TestRequireNonNegative(t *testing.T) {
	v, err := RequireNonNegative(int64(0))
	require.NoError(t, err)
	assert.Equal(t, int64(0), v)

	f, err := RequireNonNegative(2.5)
	require.NoError(t, err)
	assert.Equal(t, 2.5, f)

	_, err = RequireNonNegative(-5)
	require.ErrorIs(t, err, ErrNonNegativeExpected)
	assert.EqualError(t, err, "Non negative number expected: -5")

	_, err = RequireNonNegative(-0.5)
	assert.ErrorIs(t, err, ErrNonNegativeExpected)
}

func TestRequireArray(t *testing.T) {
	elems, err := RequireArray([]interface{}{1, "a"})
	require.NoError(t, err)
	assert.Equal(t, []interface{}{1, "a"}, elems)

	elems, err = RequireArray([]int64{1, 2, 3})
	require.NoError(t, err)
	assert.Equal(t, []interface{}{int64(1), int64(2), int64(3)}, elems)

	elems, err = RequireArray([2]string{"x", "y"})
	require.NoError(t, err)
	assert.Len(t, elems, 2)

	for _, v := range []interface{}{nil, 3, "abc", map[string]interface{}{"0": 1}} {
		_, err := RequireArray(v)
		assert.ErrorIs(t, err, ErrArrayExpected, "value %#v", v)
	}
}

func TestRequireIndex(t *testing.T) {
	i, err := RequireIndex(2, 3)
	require.NoError(t, err)
	assert.Equal(t, 2, i)

	_, err = RequireIndex(3, 3)
	assert.EqualError(t, err, "Index out of bound (3)")

	_, err = RequireIndex(-1, 3)
	assert.ErrorIs(t, err, ErrIndexOutOfBounds)

	_, err = RequireIndex(0, 0)
	assert.ErrorIs(t, err, ErrIndexOutOfBounds)
}
