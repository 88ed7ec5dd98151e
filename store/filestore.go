package store

import (
	"context"
	"errors"
	"io/fs"
	"path/filepath"

	"golang.org/x/sync/singleflight"

	"github.com/jonwraymond/packcache/pack"
	"github.com/jonwraymond/packcache/serial"
)

// FileExtension is the suffix for per-file cache entries.
const FileExtension = ".data"

// ErrNotFound indicates no entry file exists for an identifier.
var ErrNotFound = errors.New("store: entry not found")

// FileStore persists one serialized entry per file on a hashed shard path:
// <root>/<first 2 hex chars>/<remaining hex chars>.data.
//
// Contract:
// - Concurrency: safe for concurrent use; concurrent reads for the same
//   identifier are collapsed into one disk read.
// - Errors: Read returns ErrNotFound for absent files; writes are atomic,
//   a crash never leaves a truncated entry behind.
type FileStore struct {
	root  string
	hash  Hasher
	group singleflight.Group
}

// NewFileStore creates a file store rooted at root.
func NewFileStore(root string, hash Hasher) *FileStore {
	return &FileStore{root: root, hash: hash}
}

// Path returns the shard path for an identifier.
func (s *FileStore) Path(identifier string) string {
	digest := s.hash(identifier)
	return filepath.Join(s.root, digest[:2], digest[2:]+FileExtension)
}

// Write persists one entry to its shard path.
func (s *FileStore) Write(ctx context.Context, entry *pack.Entry) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	w := serial.NewWriter()
	if err := pack.WriteEntry(w, entry); err != nil {
		return err
	}
	return w.WriteFile(s.Path(entry.Identifier))
}

// Read loads the entry for an identifier. Concurrent reads for the same
// identifier share one disk read.
func (s *FileStore) Read(ctx context.Context, identifier string) (*pack.Entry, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	v, err, _ := s.group.Do(identifier, func() (any, error) {
		r, err := serial.OpenFile(s.Path(identifier))
		if err != nil {
			if errors.Is(err, fs.ErrNotExist) {
				return nil, ErrNotFound
			}
			return nil, err
		}
		return pack.ReadEntry(r)
	})
	if err != nil {
		return nil, err
	}
	return v.(*pack.Entry), nil
}
