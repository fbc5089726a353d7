package ledger

import (
	"errors"
	"strings"
	"testing"
	"time"
)

func testTemplate() Identifier {
	return NewIdentifier("pkg-1", "Iou", "Iou")
}

func TestCommandsBuilderBuild(t *testing.T) {
	args := NewRecord(Field("issuer", Party("bank")), Field("amount", MustParseNumeric("10.00")))
	cmds, err := NewCommandsBuilder().
		ApplicationID("treasury").
		CommandID("cmd-1").
		Party("alice").
		ReadAs("auditor").
		Create(testTemplate(), args).
		Exercise("c-9", "Accept", Unit{}).
		DeduplicationDuration(30 * time.Second).
		Build()
	if err != nil {
		t.Fatalf("Build returned error: %v", err)
	}

	if cmds.ApplicationID != "treasury" || cmds.CommandID != "cmd-1" {
		t.Fatalf("ids = %q/%q, want treasury/cmd-1", cmds.ApplicationID, cmds.CommandID)
	}
	if len(cmds.Commands) != 2 {
		t.Fatalf("commands = %d, want 2", len(cmds.Commands))
	}
	if cmds.SubmissionID == "" {
		t.Fatal("submission id not generated")
	}
	dedup, ok := cmds.Deduplication.(DeduplicationDuration)
	if !ok || dedup.Duration != 30*time.Second {
		t.Fatalf("deduplication = %#v, want 30s duration", cmds.Deduplication)
	}
}

func TestCommandsBuilderKeepsExplicitSubmissionID(t *testing.T) {
	cmds, err := NewCommandsBuilder().
		ApplicationID("app").
		CommandID("cmd-1").
		SubmissionID("sub-7").
		Party("alice").
		Exercise("c-1", "Accept", Unit{}).
		Build()
	if err != nil {
		t.Fatalf("Build returned error: %v", err)
	}
	if cmds.SubmissionID != "sub-7" {
		t.Fatalf("submission id = %q, want sub-7", cmds.SubmissionID)
	}
}

func TestCommandsBuilderCollectsAllViolations(t *testing.T) {
	_, err := NewCommandsBuilder().Build()
	if err == nil {
		t.Fatal("Build succeeded on empty builder")
	}
	var buildErr *BuildError
	if !errors.As(err, &buildErr) {
		t.Fatalf("error type = %T, want *BuildError", err)
	}
	for _, want := range []string{
		"application id required",
		"command id required",
		"at least one acting party required",
		"at least one command required",
	} {
		found := false
		for _, v := range buildErr.Violations {
			if v == want {
				found = true
				break
			}
		}
		if !found {
			t.Errorf("violations %v missing %q", buildErr.Violations, want)
		}
	}
}

func TestCommandsBuilderRejectsBothMinLedgerTimes(t *testing.T) {
	_, err := NewCommandsBuilder().
		ApplicationID("app").
		CommandID("cmd-1").
		Party("alice").
		Exercise("c-1", "Accept", Unit{}).
		MinLedgerTimeAbs(time.Now()).
		MinLedgerTimeRel(time.Second).
		Build()
	if err == nil {
		t.Fatal("Build succeeded with both min ledger time bounds")
	}
	if !strings.Contains(err.Error(), "mutually exclusive") {
		t.Fatalf("error = %q, want mention of mutual exclusion", err)
	}
}

func TestCommandsBuilderRejectsNegativeDedupDuration(t *testing.T) {
	_, err := NewCommandsBuilder().
		ApplicationID("app").
		CommandID("cmd-1").
		Party("alice").
		Exercise("c-1", "Accept", Unit{}).
		DeduplicationDuration(-time.Second).
		Build()
	if err == nil {
		t.Fatal("Build succeeded with negative deduplication duration")
	}
}

func TestCommandsBuilderValidatesCommands(t *testing.T) {
	tests := []struct {
		name string
		cmd  Command
		want string
	}{
		{"create without template", CreateCommand{}, "package id or alias required"},
		{"exercise without contract", ExerciseCommand{Choice: "Accept"}, "contract id required"},
		{"exercise without choice", ExerciseCommand{ContractID: "c-1"}, "choice name required"},
		{"exercise by key without key", ExerciseByKeyCommand{Template: testTemplate(), Choice: "Accept"}, "contract key required"},
		{"create and exercise without choice", CreateAndExerciseCommand{Template: testTemplate()}, "choice name required"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := NewCommandsBuilder().
				ApplicationID("app").
				CommandID("cmd-1").
				Party("alice").
				Command(tt.cmd).
				Build()
			if err == nil {
				t.Fatal("Build succeeded, want violation")
			}
			if !strings.Contains(err.Error(), tt.want) {
				t.Fatalf("error = %q, want mention of %q", err, tt.want)
			}
			if !strings.Contains(err.Error(), "command 0") {
				t.Fatalf("error = %q, want offending command index", err)
			}
		})
	}
}

func TestCommandsBuilderCopiesSlices(t *testing.T) {
	b := NewCommandsBuilder().
		ApplicationID("app").
		CommandID("cmd-1").
		Party("alice").
		ActAs("bob").
		Exercise("c-1", "Accept", Unit{})
	cmds, err := b.Build()
	if err != nil {
		t.Fatalf("Build returned error: %v", err)
	}

	b.ActAs("mallory").Exercise("c-2", "Decline", Unit{})
	if len(cmds.ActAs) != 1 || cmds.ActAs[0] != "bob" {
		t.Fatalf("ActAs = %v, want [bob]", cmds.ActAs)
	}
	if len(cmds.Commands) != 1 {
		t.Fatalf("commands = %d, want 1", len(cmds.Commands))
	}
}

func TestActingParties(t *testing.T) {
	cmds := Commands{Party: "carol", ActAs: []Party{"alice", "carol", "bob", "alice"}}
	got := cmds.ActingParties()
	want := []Party{"alice", "bob", "carol"}
	if len(got) != len(want) {
		t.Fatalf("ActingParties() = %v, want %v", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("ActingParties() = %v, want %v", got, want)
		}
	}
}

func TestChangeIDIgnoresPartyOrder(t *testing.T) {
	a := Commands{ApplicationID: "app", CommandID: "cmd-1", Party: "alice", ActAs: []Party{"bob"}}
	b := Commands{ApplicationID: "app", CommandID: "cmd-1", Party: "bob", ActAs: []Party{"alice"}}
	if a.ChangeID().String() != b.ChangeID().String() {
		t.Fatalf("change ids differ: %q vs %q", a.ChangeID().String(), b.ChangeID().String())
	}
}

func TestChangeIDDistinguishesCommandID(t *testing.T) {
	a := Commands{ApplicationID: "app", CommandID: "cmd-1", Party: "alice"}
	b := Commands{ApplicationID: "app", CommandID: "cmd-2", Party: "alice"}
	if a.ChangeID().String() == b.ChangeID().String() {
		t.Fatal("distinct command ids produced equal change ids")
	}
}
