package wire

// Commands is the submission envelope.
type Commands struct {
	LedgerID         string               `cbor:"ledger_id,omitempty"`
	ApplicationID    string               `cbor:"application_id"`
	CommandID        string               `cbor:"command_id"`
	Party            string               `cbor:"party,omitempty"`
	ActAs            []string             `cbor:"act_as,omitempty"`
	ReadAs           []string             `cbor:"read_as,omitempty"`
	Commands         []Command            `cbor:"commands"`
	Deduplication    *DeduplicationPeriod `cbor:"deduplication_period,omitempty"`
	MinLedgerTimeAbs *int64               `cbor:"min_ledger_time_abs,omitempty"`
	MinLedgerTimeRel *int64               `cbor:"min_ledger_time_rel,omitempty"`
	SubmissionID     string               `cbor:"submission_id,omitempty"`
	DomainID         string               `cbor:"domain_id,omitempty"`
}

// Command is the command oneof. Exactly one field is set.
type Command struct {
	Create            *CreateCommand            `cbor:"create,omitempty"`
	Exercise          *ExerciseCommand          `cbor:"exercise,omitempty"`
	ExerciseByKey     *ExerciseByKeyCommand     `cbor:"exercise_by_key,omitempty"`
	CreateAndExercise *CreateAndExerciseCommand `cbor:"create_and_exercise,omitempty"`
}

// CreateCommand instantiates a template.
type CreateCommand struct {
	TemplateID      *Identifier `cbor:"template_id"`
	CreateArguments *Record     `cbor:"create_arguments"`
}

// ExerciseCommand exercises a choice on a contract.
type ExerciseCommand struct {
	ContractID     string `cbor:"contract_id"`
	Choice         string `cbor:"choice"`
	ChoiceArgument *Value `cbor:"choice_argument"`
}

// ExerciseByKeyCommand exercises a choice on a contract addressed by key.
type ExerciseByKeyCommand struct {
	TemplateID     *Identifier `cbor:"template_id"`
	ContractKey    *Value      `cbor:"contract_key"`
	Choice         string      `cbor:"choice"`
	ChoiceArgument *Value      `cbor:"choice_argument"`
}

// CreateAndExerciseCommand creates a contract and exercises a choice on it
// in one transaction.
type CreateAndExerciseCommand struct {
	TemplateID      *Identifier `cbor:"template_id"`
	CreateArguments *Record     `cbor:"create_arguments"`
	Choice          string      `cbor:"choice"`
	ChoiceArgument  *Value      `cbor:"choice_argument"`
}

// DeduplicationPeriod is the deduplication oneof: a trailing window in
// microseconds or an anchoring offset. Exactly one field is set.
type DeduplicationPeriod struct {
	DurationMicros *int64  `cbor:"duration,omitempty"`
	Offset         *string `cbor:"offset,omitempty"`
}

// SubmitRequest asks the ingress to accept an envelope for processing.
type SubmitRequest struct {
	Commands *Commands `cbor:"commands"`
}

// SubmitResponse acknowledges structural acceptance. Empty: acceptance
// carries no data and implies nothing about execution.
type SubmitResponse struct{}
