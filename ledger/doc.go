// Package ledger defines the domain model for the Vellum ledger API: the
// recursive value algebra shared by command arguments and event payloads,
// template identifiers, the command variants, and the Commands submission
// envelope with its deduplication identity.
//
// Values form a closed union. Every constructible value is semantically
// valid; constructors that can fail (Numeric, the Commands builder) return
// errors instead of truncating or panicking. Structural equality is provided
// by Equal.
package ledger
