package wire

// Selector scopes snapshot and update streams to parties and, optionally,
// templates. An empty template list means all templates visible to the
// parties.
type Selector struct {
	Parties   []string     `cbor:"parties"`
	Templates []Identifier `cbor:"templates,omitempty"`
}

// ActiveContractsRequest asks for a snapshot of currently active
// contracts matching the selector.
type ActiveContractsRequest struct {
	Filter *Selector `cbor:"filter"`
}

// ActiveContractsResponse is one snapshot stream element: a batch of
// active contracts or the end marker. Exactly one field is set. The end
// marker closes the snapshot and carries the offset the incremental
// stream must resume after.
type ActiveContractsResponse struct {
	Batch *ActiveContractBatch `cbor:"batch,omitempty"`
	End   *SnapshotEnd         `cbor:"end,omitempty"`
}

// ActiveContractBatch delivers a slice of the snapshot as creation
// events.
type ActiveContractBatch struct {
	Created []CreatedEvent `cbor:"created"`
}

// SnapshotEnd terminates a snapshot stream.
type SnapshotEnd struct {
	Offset string `cbor:"offset"`
}

// LedgerEndRequest asks for the node's current stream end.
type LedgerEndRequest struct{}

// LedgerEndResponse carries the offset of the most recent update.
type LedgerEndResponse struct {
	Offset string `cbor:"offset"`
}
