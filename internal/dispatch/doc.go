// Package dispatch owns command routing.
//
// Ownership boundary:
// - name -> handler registry
//
// - exactly one correlated response per accepted command envelope
//
// - the fault boundary around handler execution
//
// Handlers run strictly in arrival order on the engine loop. A handler
// must be bounded-time: there is no preemption and no execution timeout,
// so a stalled handler stalls command processing and stream ticks alike.
//
// Handlers report domain warnings inside their own response body. The
// dispatcher itself only ever emits SUCCESS, INVALID_COMMAND, or
// EXECUTION_ERROR.
package dispatch
