// Package kvstore implements the transactional engine: a single-writer,
// ordered key/value dataset whose mutations are durable through a
// write-ahead log and periodic full-image checkpoints (internal/wal,
// internal/recovery).
package kvstore

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"sync"

	"github.com/leengari/kvstore/internal/kvstore/codec"
	"github.com/leengari/kvstore/internal/orderedmap"
	"github.com/leengari/kvstore/internal/recovery"
	"github.com/leengari/kvstore/internal/wal"
)

// DB is the authoritative in-memory dataset plus its durability machinery.
// The zero value is not usable; construct with Open.
type DB[K comparable, V any] struct {
	// mu is held for the entire lifetime of a live transaction, giving
	// Begin its exclusive-borrow semantics: a second Begin blocks until
	// the first transaction resolves.
	mu sync.Mutex

	log      *wal.WAL
	datapath string
	data     *orderedmap.Map[K, V]

	keyCodec codec.Codec[K]
	valCodec codec.Codec[V]
	order    codec.Ordered[K]

	logger *slog.Logger
}

// Open constructs the Log Manager over logpath, loads the checkpoint image
// from datapath (or starts empty if it does not exist), runs crash
// recovery over the log, then rewrites the checkpoint and clears the log
// so a subsequent Open sees an empty log over an up-to-date image.
func Open[K comparable, V any](logpath, datapath string, order codec.Ordered[K], opts ...Option[K, V]) (*DB[K, V], error) {
	db := &DB[K, V]{
		datapath: datapath,
		keyCodec: codec.JSONCodec[K]{},
		valCodec: codec.JSONCodec[V]{},
		order:    order,
		logger:   slog.Default(),
	}
	for _, opt := range opts {
		opt(db)
	}

	logFile, err := wal.Open(logpath)
	if err != nil {
		return nil, fmt.Errorf("kvstore: open log: %w", err)
	}
	db.log = logFile

	dataset, err := loadCheckpoint(datapath, db.keyCodec, db.valCodec, db.order)
	if err != nil {
		logFile.Close()
		return nil, fmt.Errorf("kvstore: load checkpoint: %w", err)
	}
	db.data = dataset

	if err := db.recoverAndCheckpoint(); err != nil {
		logFile.Close()
		return nil, err
	}
	return db, nil
}

// recoverAndCheckpoint replays the log into the in-memory dataset, then
// folds it back into a fresh checkpoint and clears the log so the next
// Open starts from an up-to-date image over an empty log.
func (db *DB[K, V]) recoverAndCheckpoint() error {
	records, err := db.log.ReadAll()
	if err != nil {
		if !errors.Is(err, wal.ErrInvalidLog) {
			return fmt.Errorf("kvstore: read log: %w", err)
		}
		// A frame beyond the returned prefix failed its hash check or
		// decode; tolerated the same way a torn tail is, just logged
		// louder since this is a corruption signal rather than an
		// ordinary crash mid-append.
		db.logger.Warn("log has a corrupt frame, replaying only the valid prefix", "error", err)
	}

	applier := &byteApplier[K, V]{db: db}
	recovery.Replay(records, applier)
	db.logger.Debug("replayed write-ahead log", "records", len(records), "keys", db.data.Len())

	return db.checkpoint()
}

// checkpoint rewrites the checkpoint image and clears the log, in that
// mandatory order: clearing first would let a crash between the two steps
// lose committed data that only the log, not yet the image, held.
func (db *DB[K, V]) checkpoint() error {
	if err := writeCheckpoint(db.datapath, db.data, db.keyCodec, db.valCodec); err != nil {
		return fmt.Errorf("kvstore: write checkpoint: %w", err)
	}
	if err := db.log.Clear(); err != nil {
		return fmt.Errorf("kvstore: clear log: %w", err)
	}
	db.logger.Debug("checkpoint complete", "keys", db.data.Len())
	return nil
}

// Close performs an orderly shutdown: a final checkpoint, then releases
// the log file handle. On a disorderly shutdown (the process dies without
// calling Close) the next Open reconstructs state from whatever image and
// log are on disk.
func (db *DB[K, V]) Close() error {
	db.mu.Lock()
	defer db.mu.Unlock()

	if err := db.checkpoint(); err != nil {
		return err
	}
	return db.log.Close()
}

// Clear destroys all on-disk and in-memory state. Intended for test
// harnesses that need a fresh store without reopening at a new path.
func (db *DB[K, V]) Clear() error {
	db.mu.Lock()
	defer db.mu.Unlock()

	if err := db.log.Clear(); err != nil {
		return fmt.Errorf("kvstore: clear log: %w", err)
	}
	db.data.Clear()
	if err := os.Remove(db.datapath); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("kvstore: remove checkpoint file: %w", err)
	}
	return nil
}

// byteApplier adapts the generic dataset to recovery.Applier by decoding
// the raw key/value bytes recovery hands it with the configured codecs.
type byteApplier[K comparable, V any] struct {
	db *DB[K, V]
}

func (a *byteApplier[K, V]) Set(key, value []byte) {
	k, err := a.db.keyCodec.Decode(key)
	if err != nil {
		a.db.logger.Warn("discarding log record with undecodable key", "error", err)
		return
	}
	v, err := a.db.valCodec.Decode(value)
	if err != nil {
		a.db.logger.Warn("discarding log record with undecodable value", "error", err)
		return
	}
	a.db.data.Set(k, v)
}

func (a *byteApplier[K, V]) Delete(key []byte) {
	k, err := a.db.keyCodec.Decode(key)
	if err != nil {
		a.db.logger.Warn("discarding log record with undecodable key", "error", err)
		return
	}
	a.db.data.Delete(k)
}
