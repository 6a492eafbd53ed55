package kvstore

import (
	"log/slog"

	"github.com/leengari/kvstore/internal/kvstore/codec"
)

// Option customizes a DB constructed by Open.
type Option[K comparable, V any] func(*DB[K, V])

// WithLogger overrides the default slog logger (slog.Default()).
func WithLogger[K comparable, V any](logger *slog.Logger) Option[K, V] {
	return func(db *DB[K, V]) { db.logger = logger }
}

// WithKeyCodec overrides the default JSON key codec.
func WithKeyCodec[K comparable, V any](c codec.Codec[K]) Option[K, V] {
	return func(db *DB[K, V]) { db.keyCodec = c }
}

// WithValueCodec overrides the default JSON value codec.
func WithValueCodec[K comparable, V any](c codec.Codec[V]) Option[K, V] {
	return func(db *DB[K, V]) { db.valCodec = c }
}
