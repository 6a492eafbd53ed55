package wal

import (
	"crypto/sha256"
	"encoding/binary"
	"fmt"
)

// Append serializes rec, frames it as SHA-256(body) || len(body) (u64 LE) ||
// body, and writes the frame to the log. When sync is true the file and its
// metadata are forced to stable storage before Append returns, making the
// record recoverable across a crash; an unsynced record may be lost, but
// only together with every record appended after it (append-only FIFO
// durability).
func (w *WAL) Append(rec Record, sync bool) error {
	w.mu.Lock()
	defer w.mu.Unlock()

	if w.file == nil {
		return fmt.Errorf("wal: append %s record: log is closed", rec.Kind())
	}

	body, err := encodeBody(rec)
	if err != nil {
		return fmt.Errorf("wal: encode %s record: %w", rec.Kind(), err)
	}

	sum := sha256.Sum256(body)
	frame := make([]byte, hashSize+lengthSize+len(body))
	copy(frame, sum[:])
	binary.LittleEndian.PutUint64(frame[hashSize:hashSize+lengthSize], uint64(len(body)))
	copy(frame[hashSize+lengthSize:], body)

	if _, err := w.file.Write(frame); err != nil {
		return fmt.Errorf("wal: append %s record: %w", rec.Kind(), err)
	}

	if sync {
		if err := w.file.Sync(); err != nil {
			return fmt.Errorf("wal: fsync after %s record: %w", rec.Kind(), err)
		}
	}
	return nil
}
