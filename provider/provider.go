// Package provider defines the collaborator interfaces a domain service
// consults before building a submission. The protocol layer never calls
// these itself; they exist so services built on top of it share one
// contract for the checks and quotes that happen upstream of a command.
package provider

import (
	"context"
	"fmt"

	"github.com/vellumledger/go-vellum/ledger"
)

// Intent is a command a service is about to place in an envelope,
// together with the parties that would submit it.
type Intent struct {
	ActAs   []ledger.Party
	Command ledger.Command
}

// Decision is a compliance verdict. A denied intent carries at least one
// reason; an allowed one carries none.
type Decision struct {
	Allowed bool
	Reasons []string
}

// Compliance validates an intent before it becomes a command. The check
// runs upstream of envelope building: a denial means the command is never
// constructed, not that the node rejected it.
type Compliance interface {
	Validate(ctx context.Context, intent Intent) (Decision, error)
}

// Oracle quotes the current price of a symbol as an exact decimal.
type Oracle interface {
	Price(ctx context.Context, symbol string) (ledger.Numeric, error)
}

// AllowAll approves every intent. The zero value is usable.
type AllowAll struct{}

// Validate always allows.
func (AllowAll) Validate(context.Context, Intent) (Decision, error) {
	return Decision{Allowed: true}, nil
}

// PartyDenyList denies any intent acting as a listed party and allows
// the rest. Suited to tests and local development; production rules live
// in an external compliance service implementing the same interface.
type PartyDenyList struct {
	denied map[ledger.Party]string
}

// NewPartyDenyList builds a deny list from party to reason entries.
func NewPartyDenyList(entries map[ledger.Party]string) *PartyDenyList {
	denied := make(map[ledger.Party]string, len(entries))
	for party, reason := range entries {
		denied[party] = reason
	}
	return &PartyDenyList{denied: denied}
}

// Validate denies when any acting party is listed, collecting one reason
// per listed party in ActAs order.
func (l *PartyDenyList) Validate(_ context.Context, intent Intent) (Decision, error) {
	var reasons []string
	for _, party := range intent.ActAs {
		if reason, ok := l.denied[party]; ok {
			reasons = append(reasons, fmt.Sprintf("party %s: %s", party, reason))
		}
	}
	if len(reasons) > 0 {
		return Decision{Reasons: reasons}, nil
	}
	return Decision{Allowed: true}, nil
}

// UnknownSymbolError reports a quote request for a symbol the oracle
// carries no price for.
type UnknownSymbolError struct {
	Symbol string
}

func (e *UnknownSymbolError) Error() string {
	return fmt.Sprintf("no price for symbol %q", e.Symbol)
}

// StaticOracle serves prices from a fixed table.
type StaticOracle struct {
	prices map[string]ledger.Numeric
}

// NewStaticOracle parses a symbol to decimal-string table. Fails on the
// first malformed price.
func NewStaticOracle(prices map[string]string) (*StaticOracle, error) {
	table := make(map[string]ledger.Numeric, len(prices))
	for symbol, raw := range prices {
		n, err := ledger.ParseNumeric(raw)
		if err != nil {
			return nil, fmt.Errorf("price for %s: %w", symbol, err)
		}
		table[symbol] = n
	}
	return &StaticOracle{prices: table}, nil
}

// Price returns the table entry or an UnknownSymbolError.
func (o *StaticOracle) Price(_ context.Context, symbol string) (ledger.Numeric, error) {
	n, ok := o.prices[symbol]
	if !ok {
		return ledger.Numeric{}, &UnknownSymbolError{Symbol: symbol}
	}
	return n, nil
}
