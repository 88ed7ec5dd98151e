// Package idle schedules deferred cache persistence during host-signaled
// idle periods.
//
// The scheduler is a small state machine: begin-idle arms a timer, end-idle
// before the timer fires cancels it, and a fired timer drains the pending
// queue in bounded slices so the host process can exit between passes.
// Shutdown runs everything still pending synchronously and never cancels a
// drain already underway. The timer source is an interface so tests drive
// every transition deterministically.
package idle
