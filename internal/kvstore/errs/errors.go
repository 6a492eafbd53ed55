// Package errs holds the sentinel errors the store surfaces to callers.
// Wrapped I/O and codec failures carry these via fmt.Errorf's %w so callers
// can still use errors.Is against the underlying cause.
package errs

import (
	"errors"

	"github.com/leengari/kvstore/internal/wal"
)

var (
	// ErrKeyNotFound is returned by Read/Update/Delete when the key is not
	// visible to the transaction.
	ErrKeyNotFound = errors.New("kvstore: key not found")

	// ErrKeyDuplication is returned by Create when the key is already
	// visible to the transaction.
	ErrKeyDuplication = errors.New("kvstore: key already exists")

	// ErrInvalidLog is wal.ErrInvalidLog, re-exported here so callers can
	// errors.Is against it without reaching into internal/wal directly.
	// ReadAll returns it to Open's recovery step when it finds a frame
	// that read in full but failed its hash check or decode; Open logs
	// this at Warn, does not return it, and starts from the valid prefix
	// read before it, the same way a torn tail is tolerated.
	ErrInvalidLog = wal.ErrInvalidLog

	// ErrTxnClosed is returned by any transaction operation issued after
	// the transaction has already committed or aborted.
	ErrTxnClosed = errors.New("kvstore: transaction already resolved")
)
