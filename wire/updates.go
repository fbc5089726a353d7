package wire

// UpdatesRequest subscribes to the incremental stream strictly after
// BeginExclusive.
type UpdatesRequest struct {
	BeginExclusive string    `cbor:"begin_exclusive"`
	Filter         *Selector `cbor:"filter,omitempty"`
}

// UpdatesResponse is one update stream element. Exactly one field is
// set: a committed transaction, or a checkpoint the node emits during
// quiet periods so clients can advance their resumption offset.
type UpdatesResponse struct {
	Transaction *Transaction `cbor:"transaction,omitempty"`
	Checkpoint  *Checkpoint  `cbor:"checkpoint,omitempty"`
}

// Transaction is one committed change and its events, in execution order.
type Transaction struct {
	UpdateID          string  `cbor:"update_id"`
	CommandID         string  `cbor:"command_id,omitempty"`
	WorkflowID        string  `cbor:"workflow_id,omitempty"`
	Offset            string  `cbor:"offset"`
	EffectiveAtMicros int64   `cbor:"effective_at"`
	Events            []Event `cbor:"events,omitempty"`
}

// Event is the event oneof. Exactly one field is set.
type Event struct {
	Created   *CreatedEvent   `cbor:"created,omitempty"`
	Archived  *ArchivedEvent  `cbor:"archived,omitempty"`
	Exercised *ExercisedEvent `cbor:"exercised,omitempty"`
}

// CreatedEvent reports a contract entering the active set.
type CreatedEvent struct {
	EventID         string      `cbor:"event_id"`
	ContractID      string      `cbor:"contract_id"`
	TemplateID      *Identifier `cbor:"template_id"`
	CreateArguments *Record     `cbor:"create_arguments"`
	ContractKey     *Value      `cbor:"contract_key,omitempty"`
	Signatories     []string    `cbor:"signatories,omitempty"`
	Observers       []string    `cbor:"observers,omitempty"`
	Witnesses       []string    `cbor:"witnesses,omitempty"`
	CreatedAtMicros int64       `cbor:"created_at,omitempty"`
}

// ArchivedEvent reports a contract leaving the active set.
type ArchivedEvent struct {
	EventID    string      `cbor:"event_id"`
	ContractID string      `cbor:"contract_id"`
	TemplateID *Identifier `cbor:"template_id"`
	Witnesses  []string    `cbor:"witnesses,omitempty"`
}

// ExercisedEvent reports a choice exercised on a contract.
type ExercisedEvent struct {
	EventID        string      `cbor:"event_id"`
	ContractID     string      `cbor:"contract_id"`
	TemplateID     *Identifier `cbor:"template_id"`
	Choice         string      `cbor:"choice"`
	ChoiceArgument *Value      `cbor:"choice_argument"`
	Consuming      bool        `cbor:"consuming,omitempty"`
	ActingParties  []string    `cbor:"acting_parties,omitempty"`
	Witnesses      []string    `cbor:"witnesses,omitempty"`
	ExerciseResult *Value      `cbor:"exercise_result,omitempty"`
	ChildEventIDs  []string    `cbor:"child_event_ids,omitempty"`
}
