// Package codec is the external collaborator the store depends on but
// never implements internally: a serialization function for keys and
// values, and a total order on keys. The store's core logic is written
// against these interfaces so it works for any K, V the caller can encode,
// decode, and order.
package codec

import (
	"cmp"
	"encoding/json"
	"fmt"
)

// Codec is a two-way serializer for a single type. Encode must be total on
// values of T the caller actually constructs; Decode must invert Encode
// modulo equivalent encodings.
type Codec[T any] interface {
	Encode(v T) ([]byte, error)
	Decode(b []byte) (T, error)
}

// JSONCodec is the default Codec, matching the textual JSON encoding used
// for WAL record bodies and checkpoint images.
type JSONCodec[T any] struct{}

func (JSONCodec[T]) Encode(v T) ([]byte, error) {
	b, err := json.Marshal(v)
	if err != nil {
		return nil, fmt.Errorf("codec: encode %T: %w", v, err)
	}
	return b, nil
}

func (JSONCodec[T]) Decode(b []byte) (T, error) {
	var v T
	if err := json.Unmarshal(b, &v); err != nil {
		return v, fmt.Errorf("codec: decode into %T: %w", v, err)
	}
	return v, nil
}

// Ordered is a total order on K, required only of key types (values need
// no ordering).
type Ordered[K any] interface {
	Less(a, b K) bool
}

// orderedFunc adapts a bare comparison function to the Ordered interface.
type orderedFunc[K any] func(a, b K) bool

func (f orderedFunc[K]) Less(a, b K) bool { return f(a, b) }

// OrderBy builds an Ordered[K] from a Less function, for key types with no
// natural <.
func OrderBy[K any](less func(a, b K) bool) Ordered[K] {
	return orderedFunc[K](less)
}

// natural is the default Ordered for any cmp.Ordered key type (numbers,
// strings).
type natural[K cmp.Ordered] struct{}

func (natural[K]) Less(a, b K) bool { return cmp.Less(a, b) }

// NaturalOrder returns the Ordered built from Go's built-in < for key
// types that support it directly.
func NaturalOrder[K cmp.Ordered]() Ordered[K] {
	return natural[K]{}
}
