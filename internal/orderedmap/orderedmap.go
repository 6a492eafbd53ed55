// Package orderedmap is a small ordered mapping from comparable keys to
// arbitrary values: the in-memory representation of the store's dataset.
// Lookups are O(1) via a Go map; iteration in key order is provided for
// checkpointing, with the sorted key slice rebuilt lazily on demand.
package orderedmap

import "sort"

// Map is a key-ordered mapping from K to V.
type Map[K comparable, V any] struct {
	less   func(a, b K) bool
	values map[K]V
	keys   []K
	sorted bool
}

// New creates an empty Map ordered by less.
func New[K comparable, V any](less func(a, b K) bool) *Map[K, V] {
	return &Map[K, V]{
		less:   less,
		values: make(map[K]V),
		sorted: true,
	}
}

// Get returns the value stored for key and whether it was present.
func (m *Map[K, V]) Get(key K) (V, bool) {
	v, ok := m.values[key]
	return v, ok
}

// Set inserts or overwrites the value stored for key.
func (m *Map[K, V]) Set(key K, value V) {
	if _, exists := m.values[key]; !exists {
		m.keys = append(m.keys, key)
		m.sorted = false
	}
	m.values[key] = value
}

// Delete removes key if present; a delete of an absent key is a no-op.
func (m *Map[K, V]) Delete(key K) {
	if _, exists := m.values[key]; !exists {
		return
	}
	delete(m.values, key)
	for i, k := range m.keys {
		if k == key {
			m.keys = append(m.keys[:i], m.keys[i+1:]...)
			break
		}
	}
}

// Len returns the number of entries currently stored.
func (m *Map[K, V]) Len() int {
	return len(m.values)
}

// Keys returns all keys in ascending order (per the Map's comparator).
func (m *Map[K, V]) Keys() []K {
	if !m.sorted {
		sort.Slice(m.keys, func(i, j int) bool { return m.less(m.keys[i], m.keys[j]) })
		m.sorted = true
	}
	out := make([]K, len(m.keys))
	copy(out, m.keys)
	return out
}

// Clear empties the map in place.
func (m *Map[K, V]) Clear() {
	m.values = make(map[K]V)
	m.keys = nil
	m.sorted = true
}
