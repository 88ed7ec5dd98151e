// Package pack provides the in-memory cache container persisted as a single
// archive between runs of a build tool.
//
// A Pack maps opaque identifiers to cache entries, tracks per-entry access
// times lazily through a "used" set, quarantines entries whose payloads fail
// to serialize, and garbage-collects entries not accessed within a configured
// window. Serialization is transactional per entry: one bad value is rolled
// back and quarantined without poisoning the rest of the archive.
package pack
