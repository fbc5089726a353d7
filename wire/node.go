package wire

// NodeIdentityRequest asks a node who it is.
type NodeIdentityRequest struct{}

// NodeIdentityResponse carries the node's stable identity. Offsets minted
// by a node are only meaningful against the same identity.
type NodeIdentityResponse struct {
	NodeID string `cbor:"node_id"`
}

// VersionRequest asks for the node's version and feature set.
type VersionRequest struct{}

// VersionResponse describes what the node supports.
type VersionResponse struct {
	Version  string              `cbor:"version"`
	Features *FeaturesDescriptor `cbor:"features,omitempty"`
}

// FeaturesDescriptor advertises optional envelope extensions. Clients
// must not send a gated field to a node that does not advertise it.
type FeaturesDescriptor struct {
	MinLedgerTime         bool `cbor:"min_ledger_time,omitempty"`
	DomainRouting         bool `cbor:"domain_routing,omitempty"`
	OffsetDeduplication   bool `cbor:"offset_deduplication,omitempty"`
	CompletionCheckpoints bool `cbor:"completion_checkpoints,omitempty"`
}

// PreferredPackageRequest asks which package the node prefers for a
// logical package name, optionally restricted to packages every listed
// party has vetted.
type PreferredPackageRequest struct {
	PackageName string   `cbor:"package_name"`
	Parties     []string `cbor:"parties,omitempty"`
}

// PreferredPackageResponse carries the chosen package ID.
type PreferredPackageResponse struct {
	PackageID string `cbor:"package_id"`
}
