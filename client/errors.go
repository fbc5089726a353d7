package client

import (
	"errors"
	"fmt"

	"google.golang.org/grpc/codes"

	"github.com/vellumledger/go-vellum/ledger"
)

// ErrClosed reports an operation on a closed client.
var ErrClosed = errors.New("client is closed")

// ErrAlreadyPending reports a second concurrent wait for a command id
// that already has a pending waiter. Retrying a command id is safe once
// the first wait has resolved or been abandoned.
var ErrAlreadyPending = errors.New("a submission with this command id is already pending")

// ConfigError reports an invalid client configuration field.
type ConfigError struct {
	Field  string
	Reason string
}

func (e *ConfigError) Error() string {
	return fmt.Sprintf("config %s: %s", e.Field, e.Reason)
}

// ConnectStage describes where establishing a connection failed.
type ConnectStage string

const (
	// ConnectStageDial indicates the transport connection failed.
	ConnectStageDial ConnectStage = "dial"
	// ConnectStageHealth indicates the health check never served.
	ConnectStageHealth ConnectStage = "health"
	// ConnectStageIdentity indicates the node identity or version
	// handshake failed after the connection was up.
	ConnectStageIdentity ConnectStage = "identity"
)

// ConnectError wraps connection establishment failures with a stage
// indicator.
type ConnectError struct {
	Stage ConnectStage
	Err   error
}

func (e *ConnectError) Error() string {
	if e == nil {
		return "connect error"
	}
	return fmt.Sprintf("connect %s: %v", e.Stage, e.Err)
}

func (e *ConnectError) Unwrap() error {
	if e == nil {
		return nil
	}
	return e.Err
}

// SubmitErrorKind separates structural rejections from transport
// failures. Only transport failures are safely retryable with the same
// command id.
type SubmitErrorKind int

const (
	// SubmitRejected means the node evaluated the submission and turned
	// it down. Resubmitting the same envelope cannot succeed.
	SubmitRejected SubmitErrorKind = iota
	// SubmitTransport means the submission may or may not have reached
	// the node. Retrying with the same command id is safe: the dedup
	// window guarantees at most one execution.
	SubmitTransport
)

func (k SubmitErrorKind) String() string {
	switch k {
	case SubmitRejected:
		return "rejected"
	case SubmitTransport:
		return "transport"
	default:
		return fmt.Sprintf("submit_error_kind(%d)", int(k))
	}
}

// SubmitError reports a failed submit call.
type SubmitError struct {
	Kind    SubmitErrorKind
	Code    codes.Code
	Message string
	Err     error
}

func (e *SubmitError) Error() string {
	if e == nil {
		return "submit error"
	}
	if e.Message != "" {
		return fmt.Sprintf("submit %s (%s): %s", e.Kind, e.Code, e.Message)
	}
	return fmt.Sprintf("submit %s (%s): %v", e.Kind, e.Code, e.Err)
}

func (e *SubmitError) Unwrap() error {
	if e == nil {
		return nil
	}
	return e.Err
}

// Retryable reports whether retrying the same envelope can succeed.
func (e *SubmitError) Retryable() bool {
	return e != nil && e.Kind == SubmitTransport
}

// WaitErrorKind describes why a wait ended without a completion.
type WaitErrorKind int

const (
	// WaitTimeout means the deadline passed first. The submission may
	// still execute; only the local waiter was abandoned.
	WaitTimeout WaitErrorKind = iota
	// WaitCancelled means the caller's context was cancelled. The
	// submission is unaffected.
	WaitCancelled
)

func (k WaitErrorKind) String() string {
	switch k {
	case WaitTimeout:
		return "timeout"
	case WaitCancelled:
		return "cancelled"
	default:
		return fmt.Sprintf("wait_error_kind(%d)", int(k))
	}
}

// WaitError reports an abandoned completion wait.
type WaitError struct {
	Kind      WaitErrorKind
	CommandID string
	Err       error
}

func (e *WaitError) Error() string {
	if e == nil {
		return "wait error"
	}
	return fmt.Sprintf("wait %s for command %q: %v", e.Kind, e.CommandID, e.Err)
}

func (e *WaitError) Unwrap() error {
	if e == nil {
		return nil
	}
	return e.Err
}

// CompletionError reports a completion whose status is not success.
type CompletionError struct {
	CommandID string
	Status    ledger.CompletionStatus
	Code      uint32
	Message   string
}

func (e *CompletionError) Error() string {
	if e == nil {
		return "completion error"
	}
	if e.Message != "" {
		return fmt.Sprintf("command %q %s: %s", e.CommandID, e.Status, e.Message)
	}
	return fmt.Sprintf("command %q %s", e.CommandID, e.Status)
}

// UnknownTemplateError reports a template identifier whose package
// alias could not be resolved against the package directory.
type UnknownTemplateError struct {
	Template ledger.Identifier
	Err      error
}

func (e *UnknownTemplateError) Error() string {
	if e == nil {
		return "unknown template"
	}
	return fmt.Sprintf("unknown template %s: %v", e.Template, e.Err)
}

func (e *UnknownTemplateError) Unwrap() error {
	if e == nil {
		return nil
	}
	return e.Err
}

// OffsetMismatchError reports a stored checkpoint that belongs to a
// different node than the one this client is connected to. Offsets are
// node-local; the only safe path forward is an explicit checkpoint
// reset followed by a fresh bootstrap.
type OffsetMismatchError struct {
	StoredNodeID    string
	ConnectedNodeID string
}

func (e *OffsetMismatchError) Error() string {
	if e == nil {
		return "offset mismatch"
	}
	return fmt.Sprintf("checkpoint belongs to node %q but the connected node is %q",
		e.StoredNodeID, e.ConnectedNodeID)
}

// UnsupportedFeatureError reports an envelope field the connected node
// does not advertise support for. Sending it anyway would fail on the
// node side; the client refuses locally instead.
type UnsupportedFeatureError struct {
	Feature string
}

func (e *UnsupportedFeatureError) Error() string {
	if e == nil {
		return "unsupported feature"
	}
	return fmt.Sprintf("node does not support %s", e.Feature)
}
