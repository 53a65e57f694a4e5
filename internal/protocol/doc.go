// Package protocol owns the wire boundary.
//
// Ownership boundary:
// - line framing over the byte transport
//
// - envelope decode for inbound command lines
//
// - envelope encode for responses, data messages, and event messages
//
// Protocol owns no business logic: a line either becomes a command envelope
// or is dropped, and outbound envelopes are serialized exactly as given.
//
// Wire format: newline-terminated UTF-8 JSON in both directions. Carriage
// returns are ignored. A line that is not valid JSON, or that parses to an
// object without the "cmd" marker, produces no reply.
package protocol
