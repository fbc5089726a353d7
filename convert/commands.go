package convert

import (
	"time"

	"github.com/vellumledger/go-vellum/ledger"
	"github.com/vellumledger/go-vellum/wire"
)

// CommandsToWire encodes a finalized submission envelope. Every template
// identifier inside must already be resolved; resolution is the caller's
// step, not conversion's.
func CommandsToWire(cmds ledger.Commands) (*wire.Commands, error) {
	path := "commands"
	out := &wire.Commands{
		LedgerID:      cmds.LedgerID,
		ApplicationID: cmds.ApplicationID,
		CommandID:     cmds.CommandID,
		Party:         string(cmds.Party),
		ActAs:         partiesToWire(cmds.ActAs),
		ReadAs:        partiesToWire(cmds.ReadAs),
		SubmissionID:  cmds.SubmissionID,
		DomainID:      cmds.DomainID,
	}
	if len(cmds.Commands) > 0 {
		out.Commands = make([]wire.Command, len(cmds.Commands))
	}
	for i, cmd := range cmds.Commands {
		enc, err := commandToWire(cmd, index(path, "commands", i))
		if err != nil {
			return nil, err
		}
		out.Commands[i] = *enc
	}
	switch dedup := cmds.Deduplication.(type) {
	case nil:
	case ledger.DeduplicationDuration:
		us := dedup.Duration.Microseconds()
		out.Deduplication = &wire.DeduplicationPeriod{DurationMicros: &us}
	case ledger.DeduplicationOffset:
		off := string(dedup.Offset)
		out.Deduplication = &wire.DeduplicationPeriod{Offset: &off}
	default:
		return nil, errAt(child(path, "deduplication_period"), "unsupported period type %T", cmds.Deduplication)
	}
	if cmds.MinLedgerTimeAbs != nil {
		us := cmds.MinLedgerTimeAbs.UTC().UnixMicro()
		out.MinLedgerTimeAbs = &us
	}
	if cmds.MinLedgerTimeRel != nil {
		us := cmds.MinLedgerTimeRel.Microseconds()
		out.MinLedgerTimeRel = &us
	}
	return out, nil
}

// CommandToWire encodes one command.
func CommandToWire(cmd ledger.Command) (*wire.Command, error) {
	return commandToWire(cmd, "command")
}

func commandToWire(cmd ledger.Command, path string) (*wire.Command, error) {
	switch c := cmd.(type) {
	case nil:
		return nil, errAt(path, "command required")
	case ledger.CreateCommand:
		template, err := identifierToWire(c.Template, child(path, "create.template_id"))
		if err != nil {
			return nil, err
		}
		arguments, err := recordToWire(c.Arguments, child(path, "create.create_arguments"))
		if err != nil {
			return nil, err
		}
		return &wire.Command{Create: &wire.CreateCommand{TemplateID: template, CreateArguments: arguments}}, nil
	case ledger.ExerciseCommand:
		argument, err := valueToWire(argumentOrUnit(c.Argument), child(path, "exercise.choice_argument"))
		if err != nil {
			return nil, err
		}
		return &wire.Command{Exercise: &wire.ExerciseCommand{
			ContractID:     string(c.ContractID),
			Choice:         c.Choice,
			ChoiceArgument: argument,
		}}, nil
	case ledger.ExerciseByKeyCommand:
		template, err := identifierToWire(c.Template, child(path, "exercise_by_key.template_id"))
		if err != nil {
			return nil, err
		}
		key, err := valueToWire(c.Key, child(path, "exercise_by_key.contract_key"))
		if err != nil {
			return nil, err
		}
		argument, err := valueToWire(argumentOrUnit(c.Argument), child(path, "exercise_by_key.choice_argument"))
		if err != nil {
			return nil, err
		}
		return &wire.Command{ExerciseByKey: &wire.ExerciseByKeyCommand{
			TemplateID:     template,
			ContractKey:    key,
			Choice:         c.Choice,
			ChoiceArgument: argument,
		}}, nil
	case ledger.CreateAndExerciseCommand:
		template, err := identifierToWire(c.Template, child(path, "create_and_exercise.template_id"))
		if err != nil {
			return nil, err
		}
		arguments, err := recordToWire(c.Arguments, child(path, "create_and_exercise.create_arguments"))
		if err != nil {
			return nil, err
		}
		argument, err := valueToWire(argumentOrUnit(c.Argument), child(path, "create_and_exercise.choice_argument"))
		if err != nil {
			return nil, err
		}
		return &wire.Command{CreateAndExercise: &wire.CreateAndExerciseCommand{
			TemplateID:      template,
			CreateArguments: arguments,
			Choice:          c.Choice,
			ChoiceArgument:  argument,
		}}, nil
	default:
		return nil, errAt(path, "unsupported command type %T", cmd)
	}
}

// CommandsFromWire decodes a submission envelope.
func CommandsFromWire(in *wire.Commands) (ledger.Commands, error) {
	path := "commands"
	if in == nil {
		return ledger.Commands{}, errAt(path, "commands required")
	}
	out := ledger.Commands{
		LedgerID:      in.LedgerID,
		ApplicationID: in.ApplicationID,
		CommandID:     in.CommandID,
		SubmissionID:  in.SubmissionID,
		Party:         ledger.Party(in.Party),
		ActAs:         partiesFromWire(in.ActAs),
		ReadAs:        partiesFromWire(in.ReadAs),
		DomainID:      in.DomainID,
	}
	if len(in.Commands) > 0 {
		out.Commands = make([]ledger.Command, len(in.Commands))
	}
	for i := range in.Commands {
		dec, err := commandFromWire(&in.Commands[i], index(path, "commands", i))
		if err != nil {
			return ledger.Commands{}, err
		}
		out.Commands[i] = dec
	}
	if in.Deduplication != nil {
		dedupPath := child(path, "deduplication_period")
		switch {
		case in.Deduplication.DurationMicros != nil && in.Deduplication.Offset != nil:
			return ledger.Commands{}, errAt(dedupPath, "2 oneof branches set, want exactly one")
		case in.Deduplication.DurationMicros != nil:
			out.Deduplication = ledger.DeduplicationDuration{Duration: microsToDuration(*in.Deduplication.DurationMicros)}
		case in.Deduplication.Offset != nil:
			out.Deduplication = ledger.DeduplicationOffset{Offset: ledger.Offset(*in.Deduplication.Offset)}
		default:
			return ledger.Commands{}, &UnsupportedVariantError{Path: dedupPath}
		}
	}
	if in.MinLedgerTimeAbs != nil {
		t := ledger.TimestampFromMicros(*in.MinLedgerTimeAbs).Time()
		out.MinLedgerTimeAbs = &t
	}
	if in.MinLedgerTimeRel != nil {
		d := microsToDuration(*in.MinLedgerTimeRel)
		out.MinLedgerTimeRel = &d
	}
	return out, nil
}

// CommandFromWire decodes one command, strictly.
func CommandFromWire(cmd *wire.Command) (ledger.Command, error) {
	return commandFromWire(cmd, "command")
}

func commandFromWire(cmd *wire.Command, path string) (ledger.Command, error) {
	if cmd == nil {
		return nil, errAt(path, "command required")
	}
	set := 0
	for _, branch := range []bool{cmd.Create != nil, cmd.Exercise != nil, cmd.ExerciseByKey != nil, cmd.CreateAndExercise != nil} {
		if branch {
			set++
		}
	}
	if set > 1 {
		return nil, errAt(path, "%d oneof branches set, want exactly one", set)
	}
	switch {
	case cmd.Create != nil:
		template, err := identifierFromWire(cmd.Create.TemplateID, child(path, "create.template_id"))
		if err != nil {
			return nil, err
		}
		arguments, err := recordFromWire(cmd.Create.CreateArguments, child(path, "create.create_arguments"))
		if err != nil {
			return nil, err
		}
		return ledger.CreateCommand{Template: template, Arguments: arguments}, nil
	case cmd.Exercise != nil:
		argument, err := valueFromWire(cmd.Exercise.ChoiceArgument, child(path, "exercise.choice_argument"))
		if err != nil {
			return nil, err
		}
		return ledger.ExerciseCommand{
			ContractID: ledger.ContractID(cmd.Exercise.ContractID),
			Choice:     cmd.Exercise.Choice,
			Argument:   argument,
		}, nil
	case cmd.ExerciseByKey != nil:
		template, err := identifierFromWire(cmd.ExerciseByKey.TemplateID, child(path, "exercise_by_key.template_id"))
		if err != nil {
			return nil, err
		}
		key, err := valueFromWire(cmd.ExerciseByKey.ContractKey, child(path, "exercise_by_key.contract_key"))
		if err != nil {
			return nil, err
		}
		argument, err := valueFromWire(cmd.ExerciseByKey.ChoiceArgument, child(path, "exercise_by_key.choice_argument"))
		if err != nil {
			return nil, err
		}
		return ledger.ExerciseByKeyCommand{Template: template, Key: key, Choice: cmd.ExerciseByKey.Choice, Argument: argument}, nil
	case cmd.CreateAndExercise != nil:
		template, err := identifierFromWire(cmd.CreateAndExercise.TemplateID, child(path, "create_and_exercise.template_id"))
		if err != nil {
			return nil, err
		}
		arguments, err := recordFromWire(cmd.CreateAndExercise.CreateArguments, child(path, "create_and_exercise.create_arguments"))
		if err != nil {
			return nil, err
		}
		argument, err := valueFromWire(cmd.CreateAndExercise.ChoiceArgument, child(path, "create_and_exercise.choice_argument"))
		if err != nil {
			return nil, err
		}
		return ledger.CreateAndExerciseCommand{
			Template:  template,
			Arguments: arguments,
			Choice:    cmd.CreateAndExercise.Choice,
			Argument:  argument,
		}, nil
	default:
		return nil, &UnsupportedVariantError{Path: path}
	}
}

// SelectorToWire builds the stream selector for the given parties and
// optional template restriction. Templates must be resolved.
func SelectorToWire(parties []ledger.Party, templates []ledger.Identifier) (*wire.Selector, error) {
	sel := &wire.Selector{Parties: partiesToWire(parties)}
	if len(templates) > 0 {
		sel.Templates = make([]wire.Identifier, len(templates))
	}
	for i, template := range templates {
		id, err := identifierToWire(template, index("filter", "templates", i))
		if err != nil {
			return nil, err
		}
		sel.Templates[i] = *id
	}
	return sel, nil
}

func argumentOrUnit(v ledger.Value) ledger.Value {
	if v == nil {
		return ledger.Unit{}
	}
	return v
}

func partiesToWire(parties []ledger.Party) []string {
	if len(parties) == 0 {
		return nil
	}
	out := make([]string, len(parties))
	for i, p := range parties {
		out[i] = string(p)
	}
	return out
}

func partiesFromWire(parties []string) []ledger.Party {
	if len(parties) == 0 {
		return nil
	}
	out := make([]ledger.Party, len(parties))
	for i, p := range parties {
		out[i] = ledger.Party(p)
	}
	return out
}

func microsToDuration(us int64) time.Duration {
	return time.Duration(us) * time.Microsecond
}
