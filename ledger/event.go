package ledger

// Offset is a node-local position in the event stream. Offsets are opaque:
// they order and resume streams against the node that minted them and mean
// nothing anywhere else.
type Offset string

// CreatedEvent reports a contract coming into existence.
type CreatedEvent struct {
	EventID     string
	ContractID  ContractID
	Template    Identifier
	Arguments   Record
	Key         Value
	Signatories []Party
	Observers   []Party
	Witnesses   []Party
	CreatedAt   Timestamp
}

// ArchivedEvent reports a contract leaving the active set.
type ArchivedEvent struct {
	EventID    string
	ContractID ContractID
	Template   Identifier
	Witnesses  []Party
}

// ExercisedEvent reports a choice exercised on a contract. Consuming
// exercises also archive the contract.
type ExercisedEvent struct {
	EventID       string
	ContractID    ContractID
	Template      Identifier
	Choice        string
	Argument      Value
	Consuming     bool
	ActingParties []Party
	Witnesses     []Party
	Result        Value
	ChildEventIDs []string
}

// Event is one entry of a transaction's event list.
type Event interface {
	isEvent()
}

func (CreatedEvent) isEvent()   {}
func (ArchivedEvent) isEvent()  {}
func (ExercisedEvent) isEvent() {}

// Transaction is one committed change to the ledger, as visible to the
// subscribing parties.
type Transaction struct {
	UpdateID    string
	CommandID   string
	WorkflowID  string
	Offset      Offset
	EffectiveAt Timestamp
	Events      []Event
}

// CompletionStatus classifies the outcome of a tracked submission. The
// node reports Succeeded and Failed on the completion stream; the client
// synthesizes AbortedDueToShutdown and MaxRetriesReached locally.
type CompletionStatus int

const (
	// CompletionUnspecified is the zero value, never a reported outcome.
	CompletionUnspecified CompletionStatus = iota
	// CompletionSucceeded means the change was committed.
	CompletionSucceeded
	// CompletionFailed means the node executed the submission and rejected
	// it. The outcome is definitive for this command ID; a genuinely new
	// attempt needs a new one.
	CompletionFailed
	// CompletionAbortedDueToShutdown means the client shut down while the
	// submission was still pending. The change may still commit.
	CompletionAbortedDueToShutdown
	// CompletionMaxRetriesReached means the retrying submitter gave up
	// before the node accepted the envelope.
	CompletionMaxRetriesReached
)

// String returns the lowercase status name.
func (s CompletionStatus) String() string {
	switch s {
	case CompletionSucceeded:
		return "succeeded"
	case CompletionFailed:
		return "failed"
	case CompletionAbortedDueToShutdown:
		return "aborted_due_to_shutdown"
	case CompletionMaxRetriesReached:
		return "max_retries_reached"
	default:
		return "unspecified"
	}
}

// Decided reports whether the node itself pronounced the outcome. An
// undecided status leaves the change's fate unknown: it may still commit.
func (s CompletionStatus) Decided() bool {
	return s == CompletionSucceeded || s == CompletionFailed
}

// Completion is the node's verdict on one submission, delivered on the
// completion stream.
type Completion struct {
	CommandID    string
	SubmissionID string
	ActAs        []Party
	Status       CompletionStatus
	Code         uint32
	Message      string
	UpdateID     string
	Offset       Offset
}
