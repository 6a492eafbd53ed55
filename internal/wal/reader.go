package wal

import (
	"crypto/sha256"
	"encoding/binary"
	"fmt"
	"io"
)

// ReadAll reads frames sequentially from the start of the log. For each
// frame it reads the 32-byte expected hash, the 8-byte length, and that
// many bytes of body, then recomputes SHA-256 over the body and compares.
//
// A short read of the header or body — the file simply ends mid-frame —
// is not an error: it is the torn tail a crash mid-append leaves behind,
// and reading stops there with every record read up to that point
// returned. A frame that reads in full but fails its hash check or fails
// to decode is a different situation: the bytes on disk are complete but
// not what was written. That is reported as ErrInvalidLog, wrapping the
// byte offset of the bad frame, alongside the valid prefix read so far.
func (w *WAL) ReadAll() ([]Record, error) {
	w.mu.Lock()
	defer w.mu.Unlock()

	if w.file == nil {
		return nil, fmt.Errorf("wal: read log: log is closed")
	}
	if _, err := w.file.Seek(0, io.SeekStart); err != nil {
		return nil, fmt.Errorf("wal: seek to start: %w", err)
	}

	var records []Record
	var readErr error
	header := make([]byte, hashSize+lengthSize)
	offset := int64(0)

	for {
		if _, err := io.ReadFull(w.file, header); err != nil {
			// EOF or a short header: the valid prefix ends here.
			break
		}

		var expectedHash [sha256.Size]byte
		copy(expectedHash[:], header[:hashSize])
		length := binary.LittleEndian.Uint64(header[hashSize:])
		if length > maxRecordSize {
			// A length this large can only be a torn or corrupted frame;
			// there is no full frame here to call genuinely invalid.
			break
		}

		body := make([]byte, length)
		if _, err := io.ReadFull(w.file, body); err != nil {
			break
		}

		actualHash := sha256.Sum256(body)
		if actualHash != expectedHash {
			readErr = fmt.Errorf("wal: frame at offset %d: %w", offset, ErrInvalidLog)
			break
		}

		rec, err := decodeBody(body)
		if err != nil {
			readErr = fmt.Errorf("wal: frame at offset %d: %w: %v", offset, ErrInvalidLog, err)
			break
		}
		records = append(records, rec)
		offset += int64(hashSize+lengthSize) + int64(length)
	}

	if _, err := w.file.Seek(0, io.SeekEnd); err != nil {
		return records, fmt.Errorf("wal: seek to end: %w", err)
	}
	return records, readErr
}

// Clear truncates the log to zero length and syncs. This is best-effort
// atomic: a crash mid-clear leaves an arbitrary prefix of the old log on
// disk, which recovery tolerates because replay is idempotent.
func (w *WAL) Clear() error {
	w.mu.Lock()
	defer w.mu.Unlock()

	if w.file == nil {
		return fmt.Errorf("wal: clear log: log is closed")
	}
	if err := w.file.Truncate(0); err != nil {
		return fmt.Errorf("wal: truncate: %w", err)
	}
	if _, err := w.file.Seek(0, io.SeekStart); err != nil {
		return fmt.Errorf("wal: seek to start after truncate: %w", err)
	}
	if err := w.file.Sync(); err != nil {
		return fmt.Errorf("wal: sync after clear: %w", err)
	}
	return nil
}
