// Package serial provides sequential typed binary serialization for cache
// archives.
//
// It provides a Writer with snapshot/rollback semantics so a single failing
// value can be undone without corrupting the rest of an archive, a mirror
// Reader, and atomic whole-archive file persistence.
package serial
