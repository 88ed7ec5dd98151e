package serial

import (
	"encoding/binary"
	"fmt"
	"io"
	"os"
)

// Reader deserializes typed values sequentially from a byte buffer, mirroring
// the order they were written by a Writer.
//
// Contract:
// - Concurrency: a Reader is not safe for concurrent use.
// - Errors: truncated or oversized input returns an error wrapping ErrCorrupt;
//   a Reader never panics on malformed input.
type Reader struct {
	buf []byte
	off int
}

// NewReader creates a Reader over the given serialized bytes.
func NewReader(data []byte) *Reader {
	return &Reader{buf: data}
}

// OpenFile reads a whole archive file into a Reader.
func OpenFile(path string) (*Reader, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	return NewReader(data), nil
}

// ReadUvarint reads an unsigned varint.
func (r *Reader) ReadUvarint() (uint64, error) {
	v, n := binary.Uvarint(r.buf[r.off:])
	if n <= 0 {
		return 0, fmt.Errorf("%w: truncated varint at offset %d: %v", ErrCorrupt, r.off, io.ErrUnexpectedEOF)
	}
	r.off += n
	return v, nil
}

// ReadInt64 reads a fixed-width little-endian int64.
func (r *Reader) ReadInt64() (int64, error) {
	if r.off+8 > len(r.buf) {
		return 0, fmt.Errorf("%w: truncated int64 at offset %d: %v", ErrCorrupt, r.off, io.ErrUnexpectedEOF)
	}
	v := binary.LittleEndian.Uint64(r.buf[r.off:])
	r.off += 8
	return int64(v), nil
}

// ReadBool reads a single boolean byte.
func (r *Reader) ReadBool() (bool, error) {
	if r.off >= len(r.buf) {
		return false, fmt.Errorf("%w: truncated bool at offset %d: %v", ErrCorrupt, r.off, io.ErrUnexpectedEOF)
	}
	b := r.buf[r.off]
	r.off++
	return b != 0, nil
}

// ReadString reads a length-prefixed string.
func (r *Reader) ReadString() (string, error) {
	b, err := r.ReadBytes()
	if err != nil {
		return "", err
	}
	return string(b), nil
}

// ReadBytes reads a length-prefixed byte slice. The returned slice is a copy
// and remains valid after further reads.
func (r *Reader) ReadBytes() ([]byte, error) {
	n, err := r.ReadUvarint()
	if err != nil {
		return nil, err
	}
	if n > MaxStringLength {
		return nil, fmt.Errorf("%w: length %d exceeds maximum at offset %d", ErrCorrupt, n, r.off)
	}
	if r.off+int(n) > len(r.buf) {
		return nil, fmt.Errorf("%w: truncated payload at offset %d: %v", ErrCorrupt, r.off, io.ErrUnexpectedEOF)
	}
	out := make([]byte, n)
	copy(out, r.buf[r.off:r.off+int(n)])
	r.off += int(n)
	return out, nil
}

// Remaining returns the number of unread bytes.
func (r *Reader) Remaining() int {
	return len(r.buf) - r.off
}
