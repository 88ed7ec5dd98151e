// Package engine exposes the cache to the host build tool.
//
// The host calls the Engine's lifecycle methods directly (dependency
// inversion, no registration bus): Lookup and Store around each cacheable
// computation, BeginIdle/EndIdle around idle periods, and Shutdown once at
// exit. Cache failures never abort a build; every one degrades to a miss or
// no-op surfaced only through the configured diagnostics.
package engine
