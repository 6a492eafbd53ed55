package kvstore

import (
	"fmt"

	"github.com/leengari/kvstore/internal/kvstore/errs"
	"github.com/leengari/kvstore/internal/kvstore/txid"
	"github.com/leengari/kvstore/internal/wal"
)

// tombstone is this store's Option<V>: present=false models an explicit
// deletion staged in a transaction's writeset, shadowing whatever the
// dataset holds for that key until the transaction resolves.
type tombstone[V any] struct {
	present bool
	value   V
}

// Transaction is the handle returned by DB.Begin. At most one Transaction
// is ever live per DB: Begin holds db.mu until Commit, Abort, or Close
// resolves this handle. A Transaction that is released without an
// explicit Commit or Abort — via Close, a deferred Close, or a recovered
// panic — is treated as aborted; this is the sole mechanism preventing
// mutations already written to the log from being replayed on the next
// Open.
type Transaction[K comparable, V any] struct {
	db       *DB[K, V]
	id       txid.ID
	writeset map[K]tombstone[V]
	resolved bool
}

// Begin obtains the database's single transaction slot. It blocks until
// any previously issued transaction has committed, aborted, or been
// closed.
func (db *DB[K, V]) Begin() *Transaction[K, V] {
	db.mu.Lock()
	tx := &Transaction[K, V]{
		db:       db,
		id:       txid.New(),
		writeset: make(map[K]tombstone[V]),
	}
	db.logger.Debug("transaction begin", "tx", tx.id)
	return tx
}

// WithTransaction runs fn against a fresh transaction and guarantees the
// transaction is resolved on every exit path, including a panic: if fn
// returns nil without having committed or aborted, the transaction is
// committed; if fn returns an error or panics, it is aborted (unless fn
// already resolved it). Go has no destructors, so
// without this a caller that forgets Close on an error path would leave
// the transaction slot locked forever. A panic inside fn is recovered just
// long enough to close the transaction, then re-raised.
func (db *DB[K, V]) WithTransaction(fn func(*Transaction[K, V]) error) (err error) {
	tx := db.Begin()
	defer func() {
		if r := recover(); r != nil {
			_ = tx.Close()
			panic(r)
		}
	}()
	defer func() {
		if cerr := tx.Close(); err == nil {
			err = cerr
		}
	}()
	if err = fn(tx); err == nil && !tx.resolved {
		err = tx.Commit()
	}
	return err
}

// visible returns the value a read would see for key: the writeset first
// (including an explicit tombstone), the dataset otherwise.
func (tx *Transaction[K, V]) visible(key K) (V, bool) {
	if ts, ok := tx.writeset[key]; ok {
		return ts.value, ts.present
	}
	return tx.db.data.Get(key)
}

// Create stages an insertion. key must not already be visible.
func (tx *Transaction[K, V]) Create(key K, value V) error {
	if tx.resolved {
		return errs.ErrTxnClosed
	}
	if _, ok := tx.visible(key); ok {
		return errs.ErrKeyDuplication
	}
	if err := tx.appendMutation(wal.KindCreate, key, &value); err != nil {
		return err
	}
	tx.writeset[key] = tombstone[V]{present: true, value: value}
	return nil
}

// Read returns the visible value for key, or ErrKeyNotFound.
func (tx *Transaction[K, V]) Read(key K) (V, error) {
	var zero V
	if tx.resolved {
		return zero, errs.ErrTxnClosed
	}
	value, ok := tx.visible(key)
	if !ok {
		return zero, errs.ErrKeyNotFound
	}
	if err := tx.appendRead(key); err != nil {
		return zero, err
	}
	return value, nil
}

// Update stages an overwrite. key must already be visible.
func (tx *Transaction[K, V]) Update(key K, value V) error {
	if tx.resolved {
		return errs.ErrTxnClosed
	}
	if _, ok := tx.visible(key); !ok {
		return errs.ErrKeyNotFound
	}
	if err := tx.appendMutation(wal.KindUpdate, key, &value); err != nil {
		return err
	}
	tx.writeset[key] = tombstone[V]{present: true, value: value}
	return nil
}

// Delete stages a removal. key must already be visible.
func (tx *Transaction[K, V]) Delete(key K) error {
	if tx.resolved {
		return errs.ErrTxnClosed
	}
	if _, ok := tx.visible(key); !ok {
		return errs.ErrKeyNotFound
	}
	if err := tx.appendMutation(wal.KindDelete, key, nil); err != nil {
		return err
	}
	var zero V
	tx.writeset[key] = tombstone[V]{present: false, value: zero}
	return nil
}

// Commit appends a Commit record with sync=true; only once that fsync
// succeeds does it merge the writeset into the dataset. If the append or
// its sync fails, the dataset is left untouched, the transaction resolves
// as aborted and the caller sees the error. No Abort record is appended in
// that case: if the Commit frame nonetheless reached the file intact, the
// next Open replays these mutations; otherwise it discards them.
func (tx *Transaction[K, V]) Commit() error {
	if tx.resolved {
		return errs.ErrTxnClosed
	}
	if err := tx.db.log.Append(wal.CommitRecord{}, true); err != nil {
		tx.resolved = true
		tx.db.mu.Unlock()
		return fmt.Errorf("kvstore: commit tx %s: %w", tx.id, err)
	}

	for k, ts := range tx.writeset {
		if ts.present {
			tx.db.data.Set(k, ts.value)
		} else {
			tx.db.data.Delete(k)
		}
	}
	tx.resolved = true
	tx.db.logger.Debug("transaction commit", "tx", tx.id, "writes", len(tx.writeset))
	tx.db.mu.Unlock()
	return nil
}

// Abort appends an Abort record with sync=true and discards the writeset.
// The dataset is left untouched.
func (tx *Transaction[K, V]) Abort() error {
	if tx.resolved {
		return errs.ErrTxnClosed
	}
	err := tx.db.log.Append(wal.AbortRecord{}, true)
	tx.resolved = true
	tx.db.logger.Debug("transaction abort", "tx", tx.id)
	tx.db.mu.Unlock()
	if err != nil {
		return fmt.Errorf("kvstore: abort tx %s: %w", tx.id, err)
	}
	return nil
}

// Close implements the implicit-abort-on-release requirement: if the
// transaction has not already resolved via Commit or Abort, Close aborts
// it. Close is idempotent and safe to call (e.g. via defer) regardless of
// whether Commit or Abort already ran.
func (tx *Transaction[K, V]) Close() error {
	if tx.resolved {
		return nil
	}
	return tx.Abort()
}

func (tx *Transaction[K, V]) appendMutation(kind wal.RecordKind, key K, value *V) error {
	keyBytes, err := tx.db.keyCodec.Encode(key)
	if err != nil {
		return fmt.Errorf("kvstore: encode key: %w", err)
	}

	var rec wal.Record
	switch kind {
	case wal.KindCreate:
		valBytes, err := tx.db.valCodec.Encode(*value)
		if err != nil {
			return fmt.Errorf("kvstore: encode value: %w", err)
		}
		rec = wal.CreateRecord{Key: keyBytes, Value: valBytes}
	case wal.KindUpdate:
		valBytes, err := tx.db.valCodec.Encode(*value)
		if err != nil {
			return fmt.Errorf("kvstore: encode value: %w", err)
		}
		rec = wal.UpdateRecord{Key: keyBytes, Value: valBytes}
	case wal.KindDelete:
		rec = wal.DeleteRecord{Key: keyBytes}
	default:
		return fmt.Errorf("kvstore: unsupported mutation kind %s", kind)
	}

	if err := tx.db.log.Append(rec, false); err != nil {
		return fmt.Errorf("kvstore: log %s: %w", kind, err)
	}
	return nil
}

func (tx *Transaction[K, V]) appendRead(key K) error {
	keyBytes, err := tx.db.keyCodec.Encode(key)
	if err != nil {
		return fmt.Errorf("kvstore: encode key: %w", err)
	}
	if err := tx.db.log.Append(wal.ReadRecord{Key: keyBytes}, false); err != nil {
		return fmt.Errorf("kvstore: log read: %w", err)
	}
	return nil
}
