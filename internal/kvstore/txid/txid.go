// Package txid assigns identifiers to transactions for logging and audit
// purposes. The store itself never branches on these: at most one
// transaction is ever live per database (internal/kvstore's Begin blocks
// until the previous one resolves), so no disambiguation is required for
// correctness — the identifiers exist purely so log lines about a
// transaction's lifecycle can be correlated by a human or by Seq.
package txid

import (
	"sync/atomic"
	"time"

	"github.com/google/uuid"
)

// counter is an atomic, process-wide sequence stored in each ID alongside
// the UUID. String, and therefore a logged ID, shows only the UUID.
var counter uint64

// ID identifies one transaction's lifetime.
type ID struct {
	UUID      string
	Seq       uint64
	StartedAt time.Time
}

// New mints a transaction identifier.
func New() ID {
	return ID{
		UUID:      uuid.New().String(),
		Seq:       atomic.AddUint64(&counter, 1),
		StartedAt: time.Now(),
	}
}

func (id ID) String() string {
	return id.UUID
}
