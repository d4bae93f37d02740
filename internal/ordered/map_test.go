package ordered

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestMapKeepsInsertionOrder(t *testing.T) {
	m := New[string, int]()
	m.Put("b", 1)
	m.Put("a", 2)
	m.Put("c", 3)

	assert.Equal(t, []string{"b", "a", "c"}, m.Keys())

	// Replacing keeps the slot.
	m.Put("a", 20)
	assert.Equal(t, []string{"b", "a", "c"}, m.Keys())
	v, ok := m.Get("a")
	assert.True(t, ok)
	assert.Equal(t, 20, v)
}

func TestMapRemoveReindexes(t *testing.T) {
	var m Map[string, int]
	m.Put("x", 1)
	m.Put("y", 2)
	m.Put("z", 3)

	m.Remove("x")
	m.Remove("missing")

	assert.Equal(t, 2, m.Len())
	assert.Equal(t, []string{"y", "z"}, m.Keys())
	v, ok := m.Get("z")
	assert.True(t, ok)
	assert.Equal(t, 3, v)

	m.Put("x", 4)
	assert.Equal(t, []string{"y", "z", "x"}, m.Keys())
}

func TestMapSnapshotIsDetached(t *testing.T) {
	m := New[int, string]()
	m.Put(1, "one")
	m.Put(2, "two")

	snap := m.Snapshot()
	m.Remove(1)
	m.Put(3, "three")

	assert.Len(t, snap, 2)
	assert.Equal(t, 1, snap[0].Key)
	assert.Equal(t, "two", snap[1].Value)
}

func TestMapAllStopsEarly(t *testing.T) {
	m := New[int, int]()
	for i := range 5 {
		m.Put(i, i*i)
	}
	var seen []int
	for k := range m.All() {
		seen = append(seen, k)
		if k == 2 {
			break
		}
	}
	assert.Equal(t, []int{0, 1, 2}, seen)
}

func TestNilMapReads(t *testing.T) {
	var m *Map[string, int]
	assert.Equal(t, 0, m.Len())
	assert.False(t, m.Has("a"))
	assert.Nil(t, m.Keys())
	m.Remove("a")
}
