package store

import (
	"crypto/md5"
	"crypto/sha256"
	"encoding/hex"
	"fmt"

	"github.com/cespare/xxhash/v2"
)

// Hasher digests an identifier into the hex string used for per-file shard
// paths.
type Hasher func(identifier string) string

// NewHasher returns the Hasher for a configured algorithm name. The default
// is xxh64, a fast non-cryptographic hash; collisions only cost a false
// cache overwrite, never correctness, because files embed their identifier.
func NewHasher(algorithm string) (Hasher, error) {
	switch algorithm {
	case "xxh64", "":
		return func(identifier string) string {
			sum := xxhash.Sum64String(identifier)
			var buf [8]byte
			for i := 0; i < 8; i++ {
				buf[i] = byte(sum >> (56 - 8*i))
			}
			return hex.EncodeToString(buf[:])
		}, nil
	case "sha256":
		return func(identifier string) string {
			sum := sha256.Sum256([]byte(identifier))
			return hex.EncodeToString(sum[:])
		}, nil
	case "md5":
		return func(identifier string) string {
			sum := md5.Sum([]byte(identifier))
			return hex.EncodeToString(sum[:])
		}, nil
	default:
		return nil, fmt.Errorf("store: unknown hash algorithm %q", algorithm)
	}
}
