package wal

import (
	"errors"
	"fmt"
)

// ErrInvalidLog marks a frame that read in full but failed its content-hash
// check or failed to decode: the bytes on disk are complete but not what
// Append wrote. ReadAll wraps this with the frame's byte offset; it never
// marks a short read at the tail, which is the torn-write case ReadAll
// tolerates silently rather than reporting.
var ErrInvalidLog = errors.New("wal: invalid log record")

func recordTypeError(rec Record) error {
	return fmt.Errorf("wal: unrecognized record type %T", rec)
}

func envelopeKindError(kind string) error {
	return fmt.Errorf("wal: unrecognized record kind %q", kind)
}
