package wal

import (
	"fmt"
	"io"
	"os"
	"sync"
)

// sizes of the fixed portion of every frame: SHA-256 digest + u64 LE length.
const (
	hashSize   = 32
	lengthSize = 8

	// maxRecordSize bounds a single frame's body length so a corrupted
	// length field during recovery cannot trigger an unbounded allocation.
	maxRecordSize = 4 * 1024 * 1024
)

// WAL is the append-only log file: the sole writer of logpath, exclusively
// owned by the database instance that opened it.
type WAL struct {
	mu   sync.Mutex
	file *os.File
	path string
}

// Open creates or opens the log file at path, positioned for appending.
func Open(path string) (*WAL, error) {
	file, err := os.OpenFile(path, os.O_CREATE|os.O_RDWR, 0o644)
	if err != nil {
		return nil, fmt.Errorf("wal: open %s: %w", path, err)
	}
	if _, err := file.Seek(0, io.SeekEnd); err != nil {
		file.Close()
		return nil, fmt.Errorf("wal: seek %s: %w", path, err)
	}
	return &WAL{file: file, path: path}, nil
}

// Path returns the path this log was opened with.
func (w *WAL) Path() string {
	return w.path
}

// Close releases the underlying file handle without touching its contents.
func (w *WAL) Close() error {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.file == nil {
		return nil
	}
	err := w.file.Close()
	w.file = nil
	if err != nil {
		return fmt.Errorf("wal: close %s: %w", w.path, err)
	}
	return nil
}
