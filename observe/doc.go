// Package observe provides diagnostics for the cache engine.
//
// It provides a leveled structured Logger matching the engine's
// debug|verbose|info|warning verbosity ladder, OpenTelemetry metrics for
// cache operations, and tracing spans around lookup/store/persist work.
// Every component is optional: the zero configuration yields no-op
// implementations, so a cache embedded in a build tool stays silent unless
// the host asks for diagnostics.
package observe
