package orderedmap

import (
	"cmp"
	"testing"

	"gotest.tools/v3/assert"
)

func TestSetGetDelete(t *testing.T) {
	m := New[string, int](cmp.Less[string])

	_, ok := m.Get("a")
	assert.Equal(t, ok, false)

	m.Set("a", 1)
	v, ok := m.Get("a")
	assert.Equal(t, ok, true)
	assert.Equal(t, v, 1)

	m.Delete("a")
	_, ok = m.Get("a")
	assert.Equal(t, ok, false)
	assert.Equal(t, m.Len(), 0)
}

func TestKeysAreOrdered(t *testing.T) {
	m := New[int, string](cmp.Less[int])
	m.Set(3, "c")
	m.Set(1, "a")
	m.Set(2, "b")

	assert.DeepEqual(t, m.Keys(), []int{1, 2, 3})

	m.Delete(2)
	assert.DeepEqual(t, m.Keys(), []int{1, 3})
}

func TestDeleteAbsentKeyIsNoOp(t *testing.T) {
	m := New[string, int](cmp.Less[string])
	m.Set("a", 1)
	m.Delete("missing")
	assert.Equal(t, m.Len(), 1)
}

func TestClear(t *testing.T) {
	m := New[string, int](cmp.Less[string])
	m.Set("a", 1)
	m.Set("b", 2)
	m.Clear()
	assert.Equal(t, m.Len(), 0)
	assert.DeepEqual(t, m.Keys(), []string{})
}
