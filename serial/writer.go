package serial

import (
	"encoding/binary"
	"fmt"
	"os"
	"path/filepath"
)

// Writer serializes typed values sequentially into an in-memory buffer.
//
// Contract:
// - Concurrency: a Writer is not safe for concurrent use.
// - Errors: write methods never fail; all validation happens on read.
// - Rollback: Snapshot/Rollback undo every write made after the snapshot.
type Writer struct {
	buf []byte
}

// Mark is a resumable position in a Writer, taken with Snapshot.
type Mark int

// NewWriter creates an empty Writer.
func NewWriter() *Writer {
	return &Writer{}
}

// Snapshot records the current position so a later Rollback can discard
// everything written after it.
func (w *Writer) Snapshot() Mark {
	return Mark(len(w.buf))
}

// Rollback truncates the buffer back to a previously taken snapshot.
func (w *Writer) Rollback(m Mark) error {
	if m < 0 || int(m) > len(w.buf) {
		return fmt.Errorf("%w: mark %d, length %d", ErrInvalidMark, m, len(w.buf))
	}
	w.buf = w.buf[:m]
	return nil
}

// WriteUvarint appends an unsigned varint.
func (w *Writer) WriteUvarint(v uint64) {
	w.buf = binary.AppendUvarint(w.buf, v)
}

// WriteInt64 appends a fixed-width little-endian int64.
func (w *Writer) WriteInt64(v int64) {
	w.buf = binary.LittleEndian.AppendUint64(w.buf, uint64(v))
}

// WriteBool appends a single boolean byte.
func (w *Writer) WriteBool(v bool) {
	b := byte(0)
	if v {
		b = 1
	}
	w.buf = append(w.buf, b)
}

// WriteString appends a length-prefixed string.
func (w *Writer) WriteString(s string) {
	w.WriteUvarint(uint64(len(s)))
	w.buf = append(w.buf, s...)
}

// WriteBytes appends a length-prefixed byte slice.
func (w *Writer) WriteBytes(b []byte) {
	w.WriteUvarint(uint64(len(b)))
	w.buf = append(w.buf, b...)
}

// Len returns the number of bytes written so far.
func (w *Writer) Len() int {
	return len(w.buf)
}

// Bytes returns the serialized contents. The slice aliases the Writer's
// internal buffer and is invalidated by further writes.
func (w *Writer) Bytes() []byte {
	return w.buf
}

// WriteFile persists the buffer to path atomically: the contents are written
// to a temporary file in the destination directory and renamed into place, so
// a crash mid-write never leaves a truncated archive behind. Parent
// directories are created as needed.
func (w *Writer) WriteFile(path string) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("serial: create archive directory: %w", err)
	}

	tmp, err := os.CreateTemp(dir, ".pack-*")
	if err != nil {
		return fmt.Errorf("serial: create temp archive: %w", err)
	}
	tmpName := tmp.Name()

	_, writeErr := tmp.Write(w.buf)
	closeErr := tmp.Close()
	if writeErr == nil {
		writeErr = closeErr
	}
	if writeErr != nil {
		os.Remove(tmpName)
		return fmt.Errorf("serial: write archive: %w", writeErr)
	}

	if err := os.Rename(tmpName, path); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("serial: commit archive: %w", err)
	}
	return nil
}
