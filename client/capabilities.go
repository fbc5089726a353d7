package client

import (
	"github.com/vellumledger/go-vellum/ledger"
	"github.com/vellumledger/go-vellum/wire"
)

// Features reports which optional envelope fields the connected node
// accepts. Fields a node does not advertise are refused client-side
// before any network call.
type Features struct {
	// MinLedgerTime gates minLedgerTimeAbs and minLedgerTimeRel.
	MinLedgerTime bool
	// DomainRouting gates the domainId routing hint.
	DomainRouting bool
	// OffsetDeduplication gates offset-based deduplication periods.
	OffsetDeduplication bool
	// CompletionCheckpoints reports whether the completion stream
	// interleaves checkpoints for cheap resumption.
	CompletionCheckpoints bool
}

func featuresFromWire(fd *wire.FeaturesDescriptor) Features {
	if fd == nil {
		return Features{}
	}
	return Features{
		MinLedgerTime:         fd.MinLedgerTime,
		DomainRouting:         fd.DomainRouting,
		OffsetDeduplication:   fd.OffsetDeduplication,
		CompletionCheckpoints: fd.CompletionCheckpoints,
	}
}

// gateCommands refuses envelope fields the node does not support.
func gateCommands(f Features, cmds *ledger.Commands) error {
	if !f.MinLedgerTime && (cmds.MinLedgerTimeAbs != nil || cmds.MinLedgerTimeRel != nil) {
		return &UnsupportedFeatureError{Feature: "min_ledger_time"}
	}
	if !f.DomainRouting && cmds.DomainID != "" {
		return &UnsupportedFeatureError{Feature: "domain_routing"}
	}
	if !f.OffsetDeduplication {
		if _, ok := cmds.Deduplication.(ledger.DeduplicationOffset); ok {
			return &UnsupportedFeatureError{Feature: "offset_deduplication"}
		}
	}
	return nil
}
