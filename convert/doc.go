// Package convert translates between the domain model in package ledger
// and the wire messages in package wire.
//
// Translation is deterministic and total over well-formed input, and it
// never panics on malformed input. Decoding is strict: a wire oneof with
// no recognized branch becomes an UnsupportedVariantError instead of
// being coerced or dropped. Every error names the path of the offending
// field, in wire field names, so a failure deep inside a nested record is
// diagnosable from the message alone.
package convert
