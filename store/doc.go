// Package store dispatches cache reads and writes according to the
// configured storage strategy.
//
// Four modes exist. Pack batches every entry into one archive written at
// idle or shutdown. Idle writes one file per entry, deferred into a pending
// queue drained at idle. Background starts the per-entry file write
// immediately but records its completion in the pending queue so shutdown
// still waits for it. Instant writes synchronously. The pending queue
// de-duplicates by identifier: only the latest value queued for an
// identifier is ever persisted.
package store
