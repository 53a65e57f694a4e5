// Package stream owns periodic data production.
//
// Ownership boundary:
// - the bounded table of named streams
//
// - due-time evaluation on each engine tick
//
// - producer invocation and retry on failure
//
// A stream is removed only by an explicit stop or a reset; the scheduler
// never deactivates a stream itself. A failing producer keeps its stream
// active and is retried on the next qualifying tick, with no back-off.
package stream
