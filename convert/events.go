package convert

import (
	"github.com/vellumledger/go-vellum/ledger"
	"github.com/vellumledger/go-vellum/wire"
)

// TransactionFromWire decodes one committed transaction and its events.
func TransactionFromWire(tx *wire.Transaction) (ledger.Transaction, error) {
	path := "transaction"
	if tx == nil {
		return ledger.Transaction{}, errAt(path, "transaction required")
	}
	if tx.Offset == "" {
		return ledger.Transaction{}, errAt(child(path, "offset"), "offset required")
	}
	out := ledger.Transaction{
		UpdateID:    tx.UpdateID,
		CommandID:   tx.CommandID,
		WorkflowID:  tx.WorkflowID,
		Offset:      ledger.Offset(tx.Offset),
		EffectiveAt: ledger.TimestampFromMicros(tx.EffectiveAtMicros),
	}
	if len(tx.Events) > 0 {
		out.Events = make([]ledger.Event, len(tx.Events))
	}
	for i := range tx.Events {
		ev, err := eventFromWire(&tx.Events[i], index(path, "events", i))
		if err != nil {
			return ledger.Transaction{}, err
		}
		out.Events[i] = ev
	}
	return out, nil
}

// EventFromWire decodes one event, strictly: an empty or unrecognized
// oneof is UnsupportedVariantError, never a silent skip.
func EventFromWire(ev *wire.Event) (ledger.Event, error) {
	return eventFromWire(ev, "event")
}

func eventFromWire(ev *wire.Event, path string) (ledger.Event, error) {
	if ev == nil {
		return nil, errAt(path, "event required")
	}
	set := 0
	for _, branch := range []bool{ev.Created != nil, ev.Archived != nil, ev.Exercised != nil} {
		if branch {
			set++
		}
	}
	if set > 1 {
		return nil, errAt(path, "%d oneof branches set, want exactly one", set)
	}
	switch {
	case ev.Created != nil:
		return createdFromWire(ev.Created, child(path, "created"))
	case ev.Archived != nil:
		return archivedFromWire(ev.Archived, child(path, "archived"))
	case ev.Exercised != nil:
		return exercisedFromWire(ev.Exercised, child(path, "exercised"))
	default:
		return nil, &UnsupportedVariantError{Path: path}
	}
}

// CreatedFromWire decodes one creation event outside a transaction, as
// delivered in snapshot batches.
func CreatedFromWire(ev *wire.CreatedEvent) (ledger.CreatedEvent, error) {
	return createdFromWire(ev, "created")
}

func createdFromWire(ev *wire.CreatedEvent, path string) (ledger.CreatedEvent, error) {
	if ev == nil {
		return ledger.CreatedEvent{}, errAt(path, "created event required")
	}
	if ev.ContractID == "" {
		return ledger.CreatedEvent{}, errAt(child(path, "contract_id"), "contract id required")
	}
	template, err := identifierFromWire(ev.TemplateID, child(path, "template_id"))
	if err != nil {
		return ledger.CreatedEvent{}, err
	}
	arguments, err := recordFromWire(ev.CreateArguments, child(path, "create_arguments"))
	if err != nil {
		return ledger.CreatedEvent{}, err
	}
	out := ledger.CreatedEvent{
		EventID:     ev.EventID,
		ContractID:  ledger.ContractID(ev.ContractID),
		Template:    template,
		Arguments:   arguments,
		Signatories: partiesFromWire(ev.Signatories),
		Observers:   partiesFromWire(ev.Observers),
		Witnesses:   partiesFromWire(ev.Witnesses),
		CreatedAt:   ledger.TimestampFromMicros(ev.CreatedAtMicros),
	}
	if ev.ContractKey != nil {
		key, err := valueFromWire(ev.ContractKey, child(path, "contract_key"))
		if err != nil {
			return ledger.CreatedEvent{}, err
		}
		out.Key = key
	}
	return out, nil
}

func archivedFromWire(ev *wire.ArchivedEvent, path string) (ledger.ArchivedEvent, error) {
	if ev == nil {
		return ledger.ArchivedEvent{}, errAt(path, "archived event required")
	}
	if ev.ContractID == "" {
		return ledger.ArchivedEvent{}, errAt(child(path, "contract_id"), "contract id required")
	}
	template, err := identifierFromWire(ev.TemplateID, child(path, "template_id"))
	if err != nil {
		return ledger.ArchivedEvent{}, err
	}
	return ledger.ArchivedEvent{
		EventID:    ev.EventID,
		ContractID: ledger.ContractID(ev.ContractID),
		Template:   template,
		Witnesses:  partiesFromWire(ev.Witnesses),
	}, nil
}

func exercisedFromWire(ev *wire.ExercisedEvent, path string) (ledger.ExercisedEvent, error) {
	if ev == nil {
		return ledger.ExercisedEvent{}, errAt(path, "exercised event required")
	}
	if ev.ContractID == "" {
		return ledger.ExercisedEvent{}, errAt(child(path, "contract_id"), "contract id required")
	}
	if ev.Choice == "" {
		return ledger.ExercisedEvent{}, errAt(child(path, "choice"), "choice required")
	}
	template, err := identifierFromWire(ev.TemplateID, child(path, "template_id"))
	if err != nil {
		return ledger.ExercisedEvent{}, err
	}
	argument, err := valueFromWire(ev.ChoiceArgument, child(path, "choice_argument"))
	if err != nil {
		return ledger.ExercisedEvent{}, err
	}
	out := ledger.ExercisedEvent{
		EventID:       ev.EventID,
		ContractID:    ledger.ContractID(ev.ContractID),
		Template:      template,
		Choice:        ev.Choice,
		Argument:      argument,
		Consuming:     ev.Consuming,
		ActingParties: partiesFromWire(ev.ActingParties),
		Witnesses:     partiesFromWire(ev.Witnesses),
		ChildEventIDs: append([]string(nil), ev.ChildEventIDs...),
	}
	if ev.ExerciseResult != nil {
		result, err := valueFromWire(ev.ExerciseResult, child(path, "exercise_result"))
		if err != nil {
			return ledger.ExercisedEvent{}, err
		}
		out.Result = result
	}
	return out, nil
}

// CompletionFromWire decodes one completion. A zero status code means the
// change committed; anything else is a definitive rejection.
func CompletionFromWire(c *wire.Completion) (ledger.Completion, error) {
	path := "completion"
	if c == nil {
		return ledger.Completion{}, errAt(path, "completion required")
	}
	if c.CommandID == "" {
		return ledger.Completion{}, errAt(child(path, "command_id"), "command id required")
	}
	if c.Status == nil {
		return ledger.Completion{}, errAt(child(path, "status"), "status required")
	}
	out := ledger.Completion{
		CommandID:    c.CommandID,
		SubmissionID: c.SubmissionID,
		ActAs:        partiesFromWire(c.ActAs),
		Code:         c.Status.Code,
		Message:      c.Status.Message,
		UpdateID:     c.UpdateID,
		Offset:       ledger.Offset(c.Offset),
	}
	if c.Status.Code == 0 {
		out.Status = ledger.CompletionSucceeded
	} else {
		out.Status = ledger.CompletionFailed
	}
	return out, nil
}

// CreatedToWire encodes a creation event. Snapshot-serving test fakes and
// recorders need the encode direction; live clients only decode.
func CreatedToWire(ev ledger.CreatedEvent) (*wire.CreatedEvent, error) {
	path := "created"
	template, err := identifierToWire(ev.Template, child(path, "template_id"))
	if err != nil {
		return nil, err
	}
	arguments, err := recordToWire(ev.Arguments, child(path, "create_arguments"))
	if err != nil {
		return nil, err
	}
	out := &wire.CreatedEvent{
		EventID:         ev.EventID,
		ContractID:      string(ev.ContractID),
		TemplateID:      template,
		CreateArguments: arguments,
		Signatories:     partiesToWire(ev.Signatories),
		Observers:       partiesToWire(ev.Observers),
		Witnesses:       partiesToWire(ev.Witnesses),
		CreatedAtMicros: ev.CreatedAt.Micros(),
	}
	if ev.Key != nil {
		key, err := valueToWire(ev.Key, child(path, "contract_key"))
		if err != nil {
			return nil, err
		}
		out.ContractKey = key
	}
	return out, nil
}
