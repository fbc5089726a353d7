package client

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/cenkalti/backoff/v5"
	"google.golang.org/genproto/googleapis/rpc/errdetails"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"

	"github.com/vellumledger/go-vellum/convert"
	"github.com/vellumledger/go-vellum/ledger"
	"github.com/vellumledger/go-vellum/telemetry"
	"github.com/vellumledger/go-vellum/wire"
)

// Submit sends one envelope to the node. Success means the node
// accepted the submission for processing, not that it executed; the
// outcome arrives as a completion. Exactly one network call is made.
func (c *Client) Submit(ctx context.Context, cmds ledger.Commands) error {
	if c.closed.Load() {
		return ErrClosed
	}
	if err := gateCommands(c.features, &cmds); err != nil {
		return err
	}
	resolved, err := c.resolveCommands(ctx, cmds)
	if err != nil {
		return err
	}
	envelope, err := convert.CommandsToWire(resolved)
	if err != nil {
		return err
	}
	if c.limiter != nil {
		if err := c.limiter.Wait(ctx); err != nil {
			return &SubmitError{Kind: SubmitTransport, Code: codes.Canceled, Err: err}
		}
	}
	if _, err := c.t.Submit(ctx, &wire.SubmitRequest{Commands: envelope}); err != nil {
		return mapSubmitError(err)
	}
	return nil
}

// SubmitWithRetry submits with exponential backoff across transport
// failures. The command id never changes between attempts, so the
// node's deduplication window guarantees at most one execution no
// matter how many attempts went out. Structural rejections end the
// retry immediately.
func (c *Client) SubmitWithRetry(ctx context.Context, cmds ledger.Commands) error {
	bo := newRetryBackOff(c.cfg.RetryInitialInterval, c.cfg.RetryMaxInterval)
	operation := func() (struct{}, error) {
		err := c.Submit(ctx, cmds)
		if err == nil {
			return struct{}{}, nil
		}
		var se *SubmitError
		if errors.As(err, &se) && se.Retryable() {
			if delay, ok := retryDelay(se.Err); ok {
				bo.setOverride(delay)
			}
			return struct{}{}, err
		}
		return struct{}{}, backoff.Permanent(err)
	}
	_, err := backoff.Retry(ctx, operation,
		backoff.WithBackOff(bo),
		backoff.WithMaxTries(uint(c.cfg.SubmitAttempts)),
		backoff.WithNotify(func(err error, next time.Duration) {
			if traceID := telemetry.TraceID(ctx); traceID != "" {
				c.logf("submit retry in %s (trace %s): %v", next, traceID, err)
				return
			}
			c.logf("submit retry in %s: %v", next, err)
		}),
	)
	return err
}

// SubmitAndWait submits and blocks until the completion for the
// envelope's command id arrives, the context ends, or the client shuts
// down. The returned error is nil exactly when the completion reports
// success.
func (c *Client) SubmitAndWait(ctx context.Context, cmds ledger.Commands) (ledger.Completion, error) {
	ch, err := c.corr.register(cmds.CommandID)
	if err != nil {
		return ledger.Completion{}, err
	}
	if err := c.Submit(ctx, cmds); err != nil {
		if alreadyAccepted(err) {
			// A submission with this change id is already in the dedup
			// window: the original owns the outcome, wait for it.
			return c.await(ctx, cmds.CommandID, ch)
		}
		c.corr.abandon(cmds.CommandID)
		return ledger.Completion{}, err
	}
	return c.await(ctx, cmds.CommandID, ch)
}

// SubmitAndWaitWithRetry combines SubmitWithRetry and the completion
// wait. When every attempt failed on transport errors the outcome is
// Completion{Status: MaxRetriesReached}: the last attempt may still
// have reached the node, so the caller must treat the intent as
// undecided, not failed.
func (c *Client) SubmitAndWaitWithRetry(ctx context.Context, cmds ledger.Commands) (ledger.Completion, error) {
	ch, err := c.corr.register(cmds.CommandID)
	if err != nil {
		return ledger.Completion{}, err
	}
	if err := c.SubmitWithRetry(ctx, cmds); err != nil {
		if alreadyAccepted(err) {
			return c.await(ctx, cmds.CommandID, ch)
		}
		c.corr.abandon(cmds.CommandID)
		var se *SubmitError
		if errors.As(err, &se) && se.Retryable() {
			comp := ledger.Completion{
				CommandID: cmds.CommandID,
				Status:    ledger.CompletionMaxRetriesReached,
				Message:   se.Error(),
			}
			return comp, &CompletionError{
				CommandID: cmds.CommandID,
				Status:    ledger.CompletionMaxRetriesReached,
				Message:   se.Error(),
			}
		}
		return ledger.Completion{}, err
	}
	return c.await(ctx, cmds.CommandID, ch)
}

// await blocks on the registered waiter channel.
func (c *Client) await(ctx context.Context, commandID string, ch chan ledger.Completion) (ledger.Completion, error) {
	select {
	case comp := <-ch:
		return comp, completionOutcome(comp)
	case <-ctx.Done():
		c.corr.abandon(commandID)
		// The completion may have been delivered between the context
		// firing and the abandon; prefer it over the timeout.
		select {
		case comp := <-ch:
			return comp, completionOutcome(comp)
		default:
		}
		kind := WaitCancelled
		if errors.Is(ctx.Err(), context.DeadlineExceeded) {
			kind = WaitTimeout
		}
		return ledger.Completion{}, &WaitError{Kind: kind, CommandID: commandID, Err: ctx.Err()}
	}
}

// completionOutcome maps a completion to the caller-facing error: nil
// on success, CompletionError otherwise.
func completionOutcome(comp ledger.Completion) error {
	if comp.Status == ledger.CompletionSucceeded {
		return nil
	}
	return &CompletionError{
		CommandID: comp.CommandID,
		Status:    comp.Status,
		Code:      comp.Code,
		Message:   comp.Message,
	}
}

// resolveCommands returns a copy of the envelope with every package
// alias resolved through the directory. Unresolvable aliases fail with
// UnknownTemplateError before any network submission.
func (c *Client) resolveCommands(ctx context.Context, cmds ledger.Commands) (ledger.Commands, error) {
	out := cmds
	out.Commands = make([]ledger.Command, len(cmds.Commands))
	for i, cmd := range cmds.Commands {
		resolved, err := c.resolveCommand(ctx, cmd)
		if err != nil {
			return ledger.Commands{}, fmt.Errorf("command %d: %w", i, err)
		}
		out.Commands[i] = resolved
	}
	return out, nil
}

func (c *Client) resolveCommand(ctx context.Context, cmd ledger.Command) (ledger.Command, error) {
	switch v := cmd.(type) {
	case ledger.CreateCommand:
		template, err := c.resolveIdentifier(ctx, v.Template)
		if err != nil {
			return nil, err
		}
		arguments, err := c.resolveRecord(ctx, v.Arguments)
		if err != nil {
			return nil, err
		}
		v.Template = template
		v.Arguments = arguments
		return v, nil
	case ledger.ExerciseCommand:
		argument, err := c.resolveValue(ctx, v.Argument)
		if err != nil {
			return nil, err
		}
		v.Argument = argument
		return v, nil
	case ledger.ExerciseByKeyCommand:
		template, err := c.resolveIdentifier(ctx, v.Template)
		if err != nil {
			return nil, err
		}
		key, err := c.resolveValue(ctx, v.Key)
		if err != nil {
			return nil, err
		}
		argument, err := c.resolveValue(ctx, v.Argument)
		if err != nil {
			return nil, err
		}
		v.Template = template
		v.Key = key
		v.Argument = argument
		return v, nil
	case ledger.CreateAndExerciseCommand:
		template, err := c.resolveIdentifier(ctx, v.Template)
		if err != nil {
			return nil, err
		}
		arguments, err := c.resolveRecord(ctx, v.Arguments)
		if err != nil {
			return nil, err
		}
		argument, err := c.resolveValue(ctx, v.Argument)
		if err != nil {
			return nil, err
		}
		v.Template = template
		v.Arguments = arguments
		v.Argument = argument
		return v, nil
	default:
		return cmd, nil
	}
}

func (c *Client) resolveIdentifier(ctx context.Context, id ledger.Identifier) (ledger.Identifier, error) {
	resolved, err := id.Resolve(ctx, c.directory)
	if err != nil {
		return ledger.Identifier{}, &UnknownTemplateError{Template: id, Err: err}
	}
	return resolved, nil
}

// resolveValue walks the value and resolves identifiers embedded in
// records, variants, and enums.
func (c *Client) resolveValue(ctx context.Context, v ledger.Value) (ledger.Value, error) {
	switch t := v.(type) {
	case ledger.Record:
		return c.resolveRecord(ctx, t)
	case ledger.Variant:
		if t.ID != nil {
			id, err := c.resolveIdentifier(ctx, *t.ID)
			if err != nil {
				return nil, err
			}
			t.ID = &id
		}
		inner, err := c.resolveValue(ctx, t.Value)
		if err != nil {
			return nil, err
		}
		t.Value = inner
		return t, nil
	case ledger.Enum:
		if t.ID != nil {
			id, err := c.resolveIdentifier(ctx, *t.ID)
			if err != nil {
				return nil, err
			}
			t.ID = &id
		}
		return t, nil
	case ledger.List:
		out := make(ledger.List, len(t))
		for i, elem := range t {
			resolved, err := c.resolveValue(ctx, elem)
			if err != nil {
				return nil, err
			}
			out[i] = resolved
		}
		return out, nil
	case ledger.Optional:
		if t.Value == nil {
			return t, nil
		}
		inner, err := c.resolveValue(ctx, t.Value)
		if err != nil {
			return nil, err
		}
		t.Value = inner
		return t, nil
	case ledger.TextMap:
		out := make(ledger.TextMap, len(t))
		for i, entry := range t {
			resolved, err := c.resolveValue(ctx, entry.Value)
			if err != nil {
				return nil, err
			}
			entry.Value = resolved
			out[i] = entry
		}
		return out, nil
	case ledger.GenMap:
		out := make(ledger.GenMap, len(t))
		for i, entry := range t {
			key, err := c.resolveValue(ctx, entry.Key)
			if err != nil {
				return nil, err
			}
			value, err := c.resolveValue(ctx, entry.Value)
			if err != nil {
				return nil, err
			}
			entry.Key = key
			entry.Value = value
			out[i] = entry
		}
		return out, nil
	default:
		return v, nil
	}
}

func (c *Client) resolveRecord(ctx context.Context, r ledger.Record) (ledger.Record, error) {
	if r.ID != nil {
		id, err := c.resolveIdentifier(ctx, *r.ID)
		if err != nil {
			return ledger.Record{}, err
		}
		r.ID = &id
	}
	fields := make([]ledger.RecordField, len(r.Fields))
	for i, f := range r.Fields {
		value, err := c.resolveValue(ctx, f.Value)
		if err != nil {
			return ledger.Record{}, err
		}
		f.Value = value
		fields[i] = f
	}
	r.Fields = fields
	return r, nil
}

// mapSubmitError classifies a failed submit RPC. Codes that indicate
// the node evaluated and refused the envelope are rejections; codes
// that leave the submission's fate unknown are transport errors.
func mapSubmitError(err error) *SubmitError {
	st, _ := status.FromError(err)
	kind := SubmitRejected
	switch st.Code() {
	case codes.Unavailable, codes.DeadlineExceeded, codes.ResourceExhausted,
		codes.Aborted, codes.Canceled, codes.Unknown:
		kind = SubmitTransport
	}
	return &SubmitError{Kind: kind, Code: st.Code(), Message: st.Message(), Err: err}
}

// alreadyAccepted reports a rejection that means an identical change id
// is already inside the deduplication window. The original submission
// owns the outcome; waiting for its completion is the correct response.
func alreadyAccepted(err error) bool {
	var se *SubmitError
	return errors.As(err, &se) && se.Kind == SubmitRejected && se.Code == codes.AlreadyExists
}

// retryDelay extracts a server-directed retry delay from status
// details, when present.
func retryDelay(err error) (time.Duration, bool) {
	st, ok := status.FromError(err)
	if !ok || st == nil {
		return 0, false
	}
	for _, detail := range st.Details() {
		if info, ok := detail.(*errdetails.RetryInfo); ok {
			if d := info.GetRetryDelay(); d != nil {
				return d.AsDuration(), true
			}
		}
	}
	return 0, false
}

// retryBackOff is an exponential backoff that a server-directed delay
// can override for the next interval only.
type retryBackOff struct {
	exp *backoff.ExponentialBackOff

	mu       sync.Mutex
	override *time.Duration
}

func newRetryBackOff(initial, maxInterval time.Duration) *retryBackOff {
	exp := backoff.NewExponentialBackOff()
	exp.InitialInterval = initial
	exp.MaxInterval = maxInterval
	return &retryBackOff{exp: exp}
}

func (b *retryBackOff) NextBackOff() time.Duration {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.override != nil {
		d := *b.override
		b.override = nil
		return d
	}
	return b.exp.NextBackOff()
}

func (b *retryBackOff) Reset() {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.override = nil
	b.exp.Reset()
}

func (b *retryBackOff) setOverride(d time.Duration) {
	b.mu.Lock()
	b.override = &d
	b.mu.Unlock()
}
