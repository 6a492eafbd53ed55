// Package recovery implements the crash-recovery rule: replaying a decoded
// WAL record stream into a byte-oriented target, applying only the
// mutations bracketed by a Commit boundary.
//
// The algorithm is kept independent of the store's generic key/value types
// so it can be exercised and tested directly against raw wal.Record values;
// internal/kvstore supplies the Applier that decodes keys/values with the
// configured codec before touching the in-memory dataset.
package recovery

import "github.com/leengari/kvstore/internal/wal"

// Applier receives the mutations recovery decides are durable. Keys and
// values are the raw bytes a codec.Codec produced; the caller owns
// decoding them into the store's K/V types.
type Applier interface {
	Set(key, value []byte)
	Delete(key []byte)
}

// Replay walks records in file order, keeping a pending queue of mutation
// records (Create/Update/Delete). On Commit the queue is drained onto
// target in order; on Abort it is discarded. Read records never touch the
// queue. Any mutations still pending at end-of-stream — a transaction
// never followed by a boundary — are discarded without being applied: no
// partial transaction is ever made visible.
//
// Replay is idempotent: Create/Update are overwrite-idempotent per key, and
// deleting an already-absent key at replay time is a no-op, so calling
// Replay twice over the same records yields the same end state.
func Replay(records []wal.Record, target Applier) {
	var pending []wal.Record

	for _, rec := range records {
		switch rec.(type) {
		case wal.CommitRecord:
			for _, p := range pending {
				applyOne(p, target)
			}
			pending = pending[:0]
		case wal.AbortRecord:
			pending = pending[:0]
		case wal.ReadRecord:
			// Informational only; recorded for audit, inert at recovery.
		default:
			pending = append(pending, rec)
		}
	}
	// pending left over here belongs to a transaction with no trailing
	// boundary and is intentionally dropped.
}

func applyOne(rec wal.Record, target Applier) {
	switch r := rec.(type) {
	case wal.CreateRecord:
		target.Set(r.Key, r.Value)
	case wal.UpdateRecord:
		target.Set(r.Key, r.Value)
	case wal.DeleteRecord:
		target.Delete(r.Key)
	}
}
