package pack

import (
	"errors"
	"strings"
	"sync"

	"github.com/jonwraymond/packcache/serial"
)

// MaxIdentifierLength is the maximum allowed length for a cache identifier.
const MaxIdentifierLength = 1024

// Sentinel errors for entry operations.
var (
	ErrInvalidIdentifier = errors.New("pack: identifier is invalid")
	ErrIdentifierTooLong = errors.New("pack: identifier exceeds max length")
	ErrNilProducer       = errors.New("pack: entry has neither data nor producer")
)

// NoETag is the sentinel etag meaning "no fingerprint": such entries are
// stale-checked by identifier and version only.
const NoETag = ""

// Producer lazily yields an entry's payload. It is invoked at most once; the
// result is memoized. Returning an error that wraps serial.ErrNotSerializable
// marks the value as intentionally unserializable.
type Producer func() ([]byte, error)

// Entry is one cached result.
type Entry struct {
	Identifier string
	ETag       string
	Version    string

	mu       sync.Mutex
	data     []byte
	producer Producer
	resolved bool
	err      error
}

// NewEntry creates an entry with a materialized payload.
func NewEntry(identifier, etag, version string, data []byte) *Entry {
	return &Entry{
		Identifier: identifier,
		ETag:       etag,
		Version:    version,
		data:       data,
		resolved:   true,
	}
}

// NewLazyEntry creates an entry whose payload is produced on demand, deferring
// serialization cost until the entry is actually persisted or consumed.
func NewLazyEntry(identifier, etag, version string, producer Producer) *Entry {
	return &Entry{
		Identifier: identifier,
		ETag:       etag,
		Version:    version,
		producer:   producer,
	}
}

// Data resolves and returns the payload. The producer runs at most once; its
// result (or error) is memoized for every later call.
func (e *Entry) Data() ([]byte, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	if e.resolved {
		return e.data, e.err
	}
	e.resolved = true
	if e.producer == nil {
		e.err = ErrNilProducer
		return nil, e.err
	}
	e.data, e.err = e.producer()
	e.producer = nil
	return e.data, e.err
}

// Matches reports whether the entry satisfies a query. Identifier and version
// must always match; the etag must match unless the entry carries no
// fingerprint, in which case staleness is checked by identifier alone.
func (e *Entry) Matches(identifier, etag, version string) bool {
	if e.Identifier != identifier || e.Version != version {
		return false
	}
	if e.ETag == NoETag {
		return true
	}
	return e.ETag == etag
}

// writeTo serializes the entry payload fields (etag, version, data). The
// identifier is written separately by the caller so archive readers can stop
// at the sentinel without parsing a whole entry.
func (e *Entry) writeTo(w *serial.Writer) error {
	data, err := e.Data()
	if err != nil {
		return err
	}
	w.WriteString(e.ETag)
	w.WriteString(e.Version)
	w.WriteBytes(data)
	return nil
}

// readEntry deserializes entry payload fields written by writeTo.
func readEntry(r *serial.Reader, identifier string) (*Entry, error) {
	etag, err := r.ReadString()
	if err != nil {
		return nil, err
	}
	version, err := r.ReadString()
	if err != nil {
		return nil, err
	}
	data, err := r.ReadBytes()
	if err != nil {
		return nil, err
	}
	return NewEntry(identifier, etag, version, data), nil
}

// WriteEntry serializes a whole entry, identifier included, as stored in
// per-file mode: one file holds exactly one entry.
func WriteEntry(w *serial.Writer, e *Entry) error {
	w.WriteString(e.Identifier)
	return e.writeTo(w)
}

// ReadEntry deserializes an entry written by WriteEntry.
func ReadEntry(r *serial.Reader) (*Entry, error) {
	identifier, err := r.ReadString()
	if err != nil {
		return nil, err
	}
	return readEntry(r, identifier)
}

// ValidateIdentifier checks if an identifier is valid for caching. The empty
// string is reserved as the archive's entry-stream terminator.
func ValidateIdentifier(identifier string) error {
	if identifier == "" || strings.TrimSpace(identifier) == "" {
		return ErrInvalidIdentifier
	}
	if len(identifier) > MaxIdentifierLength {
		return ErrIdentifierTooLong
	}
	return nil
}
