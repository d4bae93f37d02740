// Package ordered provides an insertion-ordered map used for child lists and
// subscriber tables, where iteration order must be stable.
package ordered

import "iter"

// Map is a map that remembers insertion order. Replacing the value of an
// existing key keeps its position. The zero value is ready to use.
type Map[K comparable, V any] struct {
	keys  []K
	index map[K]int
	vals  []V
}

// New returns an empty Map.
func New[K comparable, V any]() *Map[K, V] {
	return &Map[K, V]{}
}

// Len returns the number of entries.
func (m *Map[K, V]) Len() int {
	if m == nil {
		return 0
	}
	return len(m.keys)
}

// Get returns the value stored under k.
func (m *Map[K, V]) Get(k K) (V, bool) {
	if m == nil || m.index == nil {
		var zero V
		return zero, false
	}
	i, ok := m.index[k]
	if !ok {
		var zero V
		return zero, false
	}
	return m.vals[i], true
}

// Has reports whether k is present.
func (m *Map[K, V]) Has(k K) bool {
	_, ok := m.Get(k)
	return ok
}

// Put inserts or replaces the value for k.
func (m *Map[K, V]) Put(k K, v V) {
	if m.index == nil {
		m.index = make(map[K]int)
	}
	if i, ok := m.index[k]; ok {
		m.vals[i] = v
		return
	}
	m.index[k] = len(m.keys)
	m.keys = append(m.keys, k)
	m.vals = append(m.vals, v)
}

// Remove deletes k. Absent keys are ignored.
func (m *Map[K, V]) Remove(k K) {
	if m == nil || m.index == nil {
		return
	}
	i, ok := m.index[k]
	if !ok {
		return
	}
	delete(m.index, k)
	m.keys = append(m.keys[:i], m.keys[i+1:]...)
	m.vals = append(m.vals[:i], m.vals[i+1:]...)
	for j := i; j < len(m.keys); j++ {
		m.index[m.keys[j]] = j
	}
}

// Clear removes every entry.
func (m *Map[K, V]) Clear() {
	m.keys = nil
	m.vals = nil
	m.index = nil
}

// Keys returns a copy of the keys in insertion order.
func (m *Map[K, V]) Keys() []K {
	if m == nil {
		return nil
	}
	out := make([]K, len(m.keys))
	copy(out, m.keys)
	return out
}

// All iterates entries in insertion order. The map must not be mutated
// during iteration; take a Snapshot first if it may be.
func (m *Map[K, V]) All() iter.Seq2[K, V] {
	return func(yield func(K, V) bool) {
		if m == nil {
			return
		}
		for i, k := range m.keys {
			if !yield(k, m.vals[i]) {
				return
			}
		}
	}
}

// Entry is one key/value pair of a Snapshot.
type Entry[K comparable, V any] struct {
	Key   K
	Value V
}

// Snapshot copies the current entries in insertion order.
func (m *Map[K, V]) Snapshot() []Entry[K, V] {
	if m == nil {
		return nil
	}
	out := make([]Entry[K, V], len(m.keys))
	for i, k := range m.keys {
		out[i] = Entry[K, V]{Key: k, Value: m.vals[i]}
	}
	return out
}
