package provider

import (
	"context"
	"errors"
	"testing"

	"github.com/vellumledger/go-vellum/ledger"
)

var (
	_ Compliance = AllowAll{}
	_ Compliance = (*PartyDenyList)(nil)
	_ Oracle     = (*StaticOracle)(nil)
)

func TestAllowAllApproves(t *testing.T) {
	decision, err := AllowAll{}.Validate(context.Background(), Intent{
		ActAs: []ledger.Party{"alice"},
		Command: ledger.CreateCommand{
			Template: ledger.NewIdentifier("pkg-1", "Token", "Issue"),
		},
	})
	if err != nil {
		t.Fatalf("Validate returned error: %v", err)
	}
	if !decision.Allowed || len(decision.Reasons) != 0 {
		t.Fatalf("decision = %+v, want allowed with no reasons", decision)
	}
}

func TestPartyDenyList(t *testing.T) {
	list := NewPartyDenyList(map[ledger.Party]string{
		"mallory": "sanctioned",
		"oscar":   "pending review",
	})

	t.Run("denies listed party with reason", func(t *testing.T) {
		decision, err := list.Validate(context.Background(), Intent{
			ActAs: []ledger.Party{"mallory"},
		})
		if err != nil {
			t.Fatalf("Validate returned error: %v", err)
		}
		if decision.Allowed {
			t.Fatal("listed party was allowed")
		}
		if len(decision.Reasons) != 1 || decision.Reasons[0] != "party mallory: sanctioned" {
			t.Fatalf("reasons = %v", decision.Reasons)
		}
	})

	t.Run("collects one reason per listed actor", func(t *testing.T) {
		decision, err := list.Validate(context.Background(), Intent{
			ActAs: []ledger.Party{"oscar", "alice", "mallory"},
		})
		if err != nil {
			t.Fatalf("Validate returned error: %v", err)
		}
		want := []string{"party oscar: pending review", "party mallory: sanctioned"}
		if len(decision.Reasons) != len(want) {
			t.Fatalf("reasons = %v, want %v", decision.Reasons, want)
		}
		for i := range want {
			if decision.Reasons[i] != want[i] {
				t.Errorf("reasons[%d] = %q, want %q", i, decision.Reasons[i], want[i])
			}
		}
	})

	t.Run("allows unlisted parties", func(t *testing.T) {
		decision, err := list.Validate(context.Background(), Intent{
			ActAs: []ledger.Party{"alice", "bob"},
		})
		if err != nil {
			t.Fatalf("Validate returned error: %v", err)
		}
		if !decision.Allowed {
			t.Fatalf("decision = %+v, want allowed", decision)
		}
	})
}

func TestStaticOracleQuotes(t *testing.T) {
	oracle, err := NewStaticOracle(map[string]string{
		"VLM/USD": "103.25",
		"GOLD":    "2412.80",
	})
	if err != nil {
		t.Fatalf("NewStaticOracle: %v", err)
	}

	price, err := oracle.Price(context.Background(), "VLM/USD")
	if err != nil {
		t.Fatalf("Price returned error: %v", err)
	}
	want, _ := ledger.ParseNumeric("103.25")
	if !price.Equal(want) {
		t.Fatalf("price = %s, want %s", price, want)
	}

	_, err = oracle.Price(context.Background(), "TULIP")
	var unknown *UnknownSymbolError
	if !errors.As(err, &unknown) {
		t.Fatalf("err = %v, want *UnknownSymbolError", err)
	}
	if unknown.Symbol != "TULIP" {
		t.Fatalf("Symbol = %q", unknown.Symbol)
	}
}

func TestNewStaticOracleRejectsMalformedPrice(t *testing.T) {
	_, err := NewStaticOracle(map[string]string{"BAD": "not-a-number"})
	if err == nil {
		t.Fatal("malformed price accepted")
	}
	var numErr *ledger.NumericError
	if !errors.As(err, &numErr) {
		t.Fatalf("err = %v, want a wrapped *ledger.NumericError", err)
	}
}
