package wire

// CompletionStreamRequest subscribes to completions for one application.
// The node filters server-side by the given acting parties. BeginExclusive
// resumes strictly after the given offset; empty starts at the node's
// current end.
type CompletionStreamRequest struct {
	ApplicationID  string   `cbor:"application_id"`
	Parties        []string `cbor:"parties"`
	BeginExclusive string   `cbor:"begin_exclusive,omitempty"`
}

// CompletionStreamResponse is one stream element: a completion or a
// checkpoint. Exactly one field is set.
type CompletionStreamResponse struct {
	Completion *Completion `cbor:"completion,omitempty"`
	Checkpoint *Checkpoint `cbor:"checkpoint,omitempty"`
}

// Completion reports the execution outcome of one submission.
type Completion struct {
	CommandID    string            `cbor:"command_id"`
	SubmissionID string            `cbor:"submission_id,omitempty"`
	ActAs        []string          `cbor:"act_as,omitempty"`
	Status       *CompletionStatus `cbor:"status"`
	UpdateID     string            `cbor:"update_id,omitempty"`
	Offset       string            `cbor:"offset,omitempty"`
}

// CompletionStatus carries the node's verdict. Code zero means the change
// committed; any other code is a rejection in the node's code space.
type CompletionStatus struct {
	Code    uint32 `cbor:"code"`
	Message string `cbor:"message,omitempty"`
}

// Checkpoint marks stream progress so consumers can persist a resumption
// point even through completion-free stretches.
type Checkpoint struct {
	Offset           string `cbor:"offset"`
	RecordTimeMicros int64  `cbor:"record_time,omitempty"`
}
