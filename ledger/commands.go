package ledger

import (
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"
)

// DeduplicationPeriod bounds the window within which the node rejects a
// resubmission carrying the same change ID. Exactly one of the two forms is
// used per envelope.
type DeduplicationPeriod interface {
	isDeduplicationPeriod()
}

// DeduplicationDuration deduplicates against submissions accepted within
// the trailing wall-clock window.
type DeduplicationDuration struct {
	Duration time.Duration
}

// DeduplicationOffset deduplicates against submissions recorded at or after
// the given ledger offset.
type DeduplicationOffset struct {
	Offset Offset
}

func (DeduplicationDuration) isDeduplicationPeriod() {}
func (DeduplicationOffset) isDeduplicationPeriod()   {}

// Commands is a finalized submission envelope. Build it with
// CommandsBuilder; envelopes assembled by hand bypass validation and the
// node will reject what the builder would have caught.
type Commands struct {
	LedgerID      string
	ApplicationID string
	CommandID     string
	SubmissionID  string
	Party         Party
	ActAs         []Party
	ReadAs        []Party
	Commands      []Command

	Deduplication    DeduplicationPeriod
	MinLedgerTimeAbs *time.Time
	MinLedgerTimeRel *time.Duration
	DomainID         string
}

// ActingParties returns the deduplicated union of Party and ActAs, sorted.
// This is the authorization set of the envelope and one third of its change
// ID.
func (c Commands) ActingParties() []Party {
	seen := make(map[Party]struct{}, len(c.ActAs)+1)
	var parties []Party
	add := func(p Party) {
		if p == "" {
			return
		}
		if _, ok := seen[p]; ok {
			return
		}
		seen[p] = struct{}{}
		parties = append(parties, p)
	}
	add(c.Party)
	for _, p := range c.ActAs {
		add(p)
	}
	sort.Slice(parties, func(i, j int) bool { return parties[i] < parties[j] })
	return parties
}

// ChangeID is the node-side deduplication identity of an envelope. Two
// submissions with equal change IDs are the same logical change regardless
// of submission ID.
type ChangeID struct {
	ActAs         []Party
	ApplicationID string
	CommandID     string
}

// ChangeID returns the envelope's deduplication identity. The acting
// parties are sorted, so equal authorization sets yield equal IDs whatever
// order they were declared in.
func (c Commands) ChangeID() ChangeID {
	return ChangeID{
		ActAs:         c.ActingParties(),
		ApplicationID: c.ApplicationID,
		CommandID:     c.CommandID,
	}
}

// String renders the change ID as actAs|applicationID|commandID, usable as
// a map key.
func (id ChangeID) String() string {
	parts := make([]string, 0, len(id.ActAs)+2)
	for _, p := range id.ActAs {
		parts = append(parts, string(p))
	}
	parts = append(parts, id.ApplicationID, id.CommandID)
	return strings.Join(parts, "|")
}

// BuildError is the accumulated result of a failed Build. Every violation
// found is reported, not just the first.
type BuildError struct {
	Violations []string
}

func (e *BuildError) Error() string {
	return "invalid commands: " + strings.Join(e.Violations, "; ")
}

// CommandsBuilder assembles a Commands envelope step by step. Methods
// return the builder for chaining and never fail; all validation happens
// atomically in Build. The builder is not safe for concurrent use.
type CommandsBuilder struct {
	cmds       Commands
	minTimeSet int
}

// NewCommandsBuilder returns an empty builder.
func NewCommandsBuilder() *CommandsBuilder {
	return &CommandsBuilder{}
}

// LedgerID targets a specific ledger. Optional; most nodes host one ledger
// and infer it.
func (b *CommandsBuilder) LedgerID(id string) *CommandsBuilder {
	b.cmds.LedgerID = id
	return b
}

// ApplicationID names the submitting application. Required.
func (b *CommandsBuilder) ApplicationID(id string) *CommandsBuilder {
	b.cmds.ApplicationID = id
	return b
}

// CommandID sets the caller-chosen command identifier. Required; it anchors
// deduplication and completion correlation.
func (b *CommandsBuilder) CommandID(id string) *CommandsBuilder {
	b.cmds.CommandID = id
	return b
}

// SubmissionID distinguishes retries of the same change. Optional; Build
// generates one when absent.
func (b *CommandsBuilder) SubmissionID(id string) *CommandsBuilder {
	b.cmds.SubmissionID = id
	return b
}

// Party sets the primary acting party.
func (b *CommandsBuilder) Party(p Party) *CommandsBuilder {
	b.cmds.Party = p
	return b
}

// ActAs adds acting parties beyond the primary one.
func (b *CommandsBuilder) ActAs(parties ...Party) *CommandsBuilder {
	b.cmds.ActAs = append(b.cmds.ActAs, parties...)
	return b
}

// ReadAs adds parties whose visibility the submission may use without
// acting on their behalf.
func (b *CommandsBuilder) ReadAs(parties ...Party) *CommandsBuilder {
	b.cmds.ReadAs = append(b.cmds.ReadAs, parties...)
	return b
}

// Command appends an already-constructed command.
func (b *CommandsBuilder) Command(cmd Command) *CommandsBuilder {
	b.cmds.Commands = append(b.cmds.Commands, cmd)
	return b
}

// Create appends a create command.
func (b *CommandsBuilder) Create(template Identifier, arguments Record) *CommandsBuilder {
	return b.Command(CreateCommand{Template: template, Arguments: arguments})
}

// Exercise appends an exercise command on a known contract.
func (b *CommandsBuilder) Exercise(contract ContractID, choice string, argument Value) *CommandsBuilder {
	return b.Command(ExerciseCommand{ContractID: contract, Choice: choice, Argument: argument})
}

// ExerciseByKey appends an exercise command addressed by contract key.
func (b *CommandsBuilder) ExerciseByKey(template Identifier, key Value, choice string, argument Value) *CommandsBuilder {
	return b.Command(ExerciseByKeyCommand{Template: template, Key: key, Choice: choice, Argument: argument})
}

// CreateAndExercise appends an atomic create-then-exercise command.
func (b *CommandsBuilder) CreateAndExercise(template Identifier, arguments Record, choice string, argument Value) *CommandsBuilder {
	return b.Command(CreateAndExerciseCommand{Template: template, Arguments: arguments, Choice: choice, Argument: argument})
}

// DeduplicationDuration sets a trailing-window deduplication period.
func (b *CommandsBuilder) DeduplicationDuration(d time.Duration) *CommandsBuilder {
	b.cmds.Deduplication = DeduplicationDuration{Duration: d}
	return b
}

// DeduplicationOffset sets an offset-anchored deduplication period.
func (b *CommandsBuilder) DeduplicationOffset(off Offset) *CommandsBuilder {
	b.cmds.Deduplication = DeduplicationOffset{Offset: off}
	return b
}

// MinLedgerTimeAbs requires the ledger time of the resulting transaction to
// be at or after the given instant. Mutually exclusive with
// MinLedgerTimeRel.
func (b *CommandsBuilder) MinLedgerTimeAbs(t time.Time) *CommandsBuilder {
	u := t.UTC()
	b.cmds.MinLedgerTimeAbs = &u
	b.minTimeSet++
	return b
}

// MinLedgerTimeRel requires the ledger time of the resulting transaction to
// be at least the given duration past submission. Mutually exclusive with
// MinLedgerTimeAbs.
func (b *CommandsBuilder) MinLedgerTimeRel(d time.Duration) *CommandsBuilder {
	b.cmds.MinLedgerTimeRel = &d
	b.minTimeSet++
	return b
}

// DomainID routes the submission to a synchronization domain on nodes that
// span several.
func (b *CommandsBuilder) DomainID(id string) *CommandsBuilder {
	b.cmds.DomainID = id
	return b
}

// Build validates the assembled envelope and returns it. All violations are
// collected into one BuildError; nothing is truncated or defaulted except
// the submission ID, which is generated when absent. The returned envelope
// holds copies of the builder's slices, so reusing the builder afterwards
// cannot mutate it.
func (b *CommandsBuilder) Build() (Commands, error) {
	var violations []string

	if b.cmds.ApplicationID == "" {
		violations = append(violations, "application id required")
	}
	if b.cmds.CommandID == "" {
		violations = append(violations, "command id required")
	}
	if b.cmds.Party == "" && len(b.cmds.ActAs) == 0 {
		violations = append(violations, "at least one acting party required")
	}
	if len(b.cmds.Commands) == 0 {
		violations = append(violations, "at least one command required")
	}
	if b.minTimeSet > 1 || (b.cmds.MinLedgerTimeAbs != nil && b.cmds.MinLedgerTimeRel != nil) {
		violations = append(violations, "min ledger time: absolute and relative bounds are mutually exclusive")
	}
	if d, ok := b.cmds.Deduplication.(DeduplicationDuration); ok && d.Duration < 0 {
		violations = append(violations, "deduplication duration must not be negative")
	}
	for i, cmd := range b.cmds.Commands {
		for _, v := range validateCommand(cmd) {
			violations = append(violations, fmt.Sprintf("command %d: %s", i, v))
		}
	}

	if len(violations) > 0 {
		return Commands{}, &BuildError{Violations: violations}
	}

	out := b.cmds
	out.ActAs = append([]Party(nil), b.cmds.ActAs...)
	out.ReadAs = append([]Party(nil), b.cmds.ReadAs...)
	out.Commands = append([]Command(nil), b.cmds.Commands...)
	if out.SubmissionID == "" {
		out.SubmissionID = uuid.NewString()
	}
	return out, nil
}

func validateCommand(cmd Command) []string {
	var violations []string
	switch c := cmd.(type) {
	case CreateCommand:
		if err := c.Template.Validate(); err != nil {
			violations = append(violations, err.Error())
		}
	case ExerciseCommand:
		if c.ContractID == "" {
			violations = append(violations, "contract id required")
		}
		if c.Choice == "" {
			violations = append(violations, "choice name required")
		}
	case ExerciseByKeyCommand:
		if err := c.Template.Validate(); err != nil {
			violations = append(violations, err.Error())
		}
		if c.Key == nil {
			violations = append(violations, "contract key required")
		}
		if c.Choice == "" {
			violations = append(violations, "choice name required")
		}
	case CreateAndExerciseCommand:
		if err := c.Template.Validate(); err != nil {
			violations = append(violations, err.Error())
		}
		if c.Choice == "" {
			violations = append(violations, "choice name required")
		}
	default:
		violations = append(violations, fmt.Sprintf("unsupported command type %T", cmd))
	}
	return violations
}
