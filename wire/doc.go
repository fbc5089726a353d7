// Package wire defines the messages exchanged with a Vellum ledger node
// and the CBOR codec that carries them over gRPC.
//
// Messages mirror the node's schema field for field: scalar fields are
// plain values, nested messages are pointers, repeated fields are slices.
// A wire-level oneof is a struct whose pointer fields are mutually
// exclusive; exactly one is non-nil in a well-formed message. Decoding is
// strict: unknown fields fail the RPC instead of being dropped, so schema
// drift between client and node surfaces immediately.
//
// The package carries no domain semantics. Translation to and from the
// domain model lives in package convert.
package wire
