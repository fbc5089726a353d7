package client

import (
	"context"
	"errors"
	"io"
	"strings"
	"sync"
	"testing"
	"time"

	"google.golang.org/genproto/googleapis/rpc/errdetails"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
	"google.golang.org/protobuf/types/known/durationpb"

	"github.com/vellumledger/go-vellum/checkpoint"
	"github.com/vellumledger/go-vellum/ledger"
	"github.com/vellumledger/go-vellum/wire"
)

// fakeTransport scripts node behavior without a network. Submit errors
// are consumed as a queue, one per call; an exhausted queue accepts.
type fakeTransport struct {
	mu sync.Mutex

	nodeID   string
	version  string
	features wire.FeaturesDescriptor
	end      string

	submitErrs []error
	submits    []*wire.SubmitRequest

	snapshot      []*wire.ActiveContractsResponse
	snapshotCalls int
	updateReqs    []*wire.UpdatesRequest

	completionCh chan *wire.CompletionStreamResponse
	updateCh     chan *wire.UpdatesResponse
}

func newFakeTransport() *fakeTransport {
	return &fakeTransport{
		nodeID:  "node-test",
		version: "0.0.0-test",
		features: wire.FeaturesDescriptor{
			MinLedgerTime:         true,
			DomainRouting:         true,
			OffsetDeduplication:   true,
			CompletionCheckpoints: true,
		},
		end:          "0",
		completionCh: make(chan *wire.CompletionStreamResponse, 16),
		updateCh:     make(chan *wire.UpdatesResponse, 16),
	}
}

func (f *fakeTransport) scriptSubmit(errs ...error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.submitErrs = append(f.submitErrs, errs...)
}

func (f *fakeTransport) submissions() []*wire.SubmitRequest {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]*wire.SubmitRequest(nil), f.submits...)
}

func (f *fakeTransport) emitCompletion(c *wire.Completion) {
	f.completionCh <- &wire.CompletionStreamResponse{Completion: c}
}

func (f *fakeTransport) Submit(_ context.Context, req *wire.SubmitRequest) (*wire.SubmitResponse, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.submits = append(f.submits, req)
	if len(f.submitErrs) > 0 {
		err := f.submitErrs[0]
		f.submitErrs = f.submitErrs[1:]
		if err != nil {
			return nil, err
		}
	}
	return &wire.SubmitResponse{}, nil
}

func (f *fakeTransport) CompletionStream(ctx context.Context, _ *wire.CompletionStreamRequest) (stream[wire.CompletionStreamResponse], error) {
	return &chanStream[wire.CompletionStreamResponse]{ctx: ctx, ch: f.completionCh}, nil
}

func (f *fakeTransport) ActiveContracts(_ context.Context, _ *wire.ActiveContractsRequest) (stream[wire.ActiveContractsResponse], error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.snapshotCalls++
	return &sliceStream[wire.ActiveContractsResponse]{msgs: append([]*wire.ActiveContractsResponse(nil), f.snapshot...)}, nil
}

func (f *fakeTransport) Updates(ctx context.Context, req *wire.UpdatesRequest) (stream[wire.UpdatesResponse], error) {
	f.mu.Lock()
	f.updateReqs = append(f.updateReqs, req)
	f.mu.Unlock()
	return &chanStream[wire.UpdatesResponse]{ctx: ctx, ch: f.updateCh}, nil
}

func (f *fakeTransport) LedgerEnd(context.Context, *wire.LedgerEndRequest) (*wire.LedgerEndResponse, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return &wire.LedgerEndResponse{Offset: f.end}, nil
}

func (f *fakeTransport) NodeIdentity(context.Context, *wire.NodeIdentityRequest) (*wire.NodeIdentityResponse, error) {
	return &wire.NodeIdentityResponse{NodeID: f.nodeID}, nil
}

func (f *fakeTransport) Version(context.Context, *wire.VersionRequest) (*wire.VersionResponse, error) {
	features := f.features
	return &wire.VersionResponse{Version: f.version, Features: &features}, nil
}

func (f *fakeTransport) PreferredPackage(context.Context, *wire.PreferredPackageRequest) (*wire.PreferredPackageResponse, error) {
	return nil, status.Error(codes.Unimplemented, "not scripted")
}

var _ transport = (*fakeTransport)(nil)

type chanStream[T any] struct {
	ctx context.Context
	ch  <-chan *T
}

func (s *chanStream[T]) Recv() (*T, error) {
	select {
	case msg, ok := <-s.ch:
		if !ok {
			return nil, io.EOF
		}
		return msg, nil
	case <-s.ctx.Done():
		return nil, s.ctx.Err()
	}
}

type sliceStream[T any] struct {
	mu   sync.Mutex
	msgs []*T
}

func (s *sliceStream[T]) Recv() (*T, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if len(s.msgs) == 0 {
		return nil, io.EOF
	}
	msg := s.msgs[0]
	s.msgs = s.msgs[1:]
	return msg, nil
}

// newTestClient builds a client over the fake with fast retry timings
// and an in-memory checkpoint store.
func newTestClient(t *testing.T, fake *fakeTransport, mutate func(*Config)) *Client {
	t.Helper()
	cfg := validConfig()
	cfg.RetryInitialInterval = time.Millisecond
	cfg.RetryMaxInterval = 5 * time.Millisecond
	if mutate != nil {
		mutate(&cfg)
	}
	c, err := newWithTransport(context.Background(), cfg, fake, nil, Options{
		Directory:   ledger.StaticDirectory{"token": "pkg-1"},
		Checkpoints: checkpoint.NewMemoryStore(),
	})
	if err != nil {
		t.Fatalf("new client: %v", err)
	}
	t.Cleanup(func() { _ = c.Close() })
	return c
}

func buildCommands(t *testing.T, commandID string, template ledger.Identifier) ledger.Commands {
	t.Helper()
	cmds, err := ledger.NewCommandsBuilder().
		ApplicationID("app-test").
		CommandID(commandID).
		ActAs("alice").
		Create(template, ledger.Record{Fields: []ledger.RecordField{
			{Label: "amount", Value: ledger.Int64(5)},
		}}).
		Build()
	if err != nil {
		t.Fatalf("build commands: %v", err)
	}
	return cmds
}

func testCommands(t *testing.T, commandID string) ledger.Commands {
	t.Helper()
	return buildCommands(t, commandID, ledger.NewIdentifier("pkg-1", "Token", "Issue"))
}

func waitUntil(t *testing.T, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(5 * time.Second)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatal("condition not met in time")
}

func TestSubmitMakesExactlyOneCall(t *testing.T) {
	fake := newFakeTransport()
	c := newTestClient(t, fake, nil)

	if err := c.Submit(context.Background(), testCommands(t, "cmd-1")); err != nil {
		t.Fatalf("Submit: %v", err)
	}
	if got := len(fake.submissions()); got != 1 {
		t.Fatalf("submissions = %d, want exactly 1", got)
	}
}

func TestSubmitResolvesAliasBeforeSending(t *testing.T) {
	fake := newFakeTransport()
	c := newTestClient(t, fake, nil)

	cmds := buildCommands(t, "cmd-1", ledger.NewAliasedIdentifier("token", "Token", "Issue"))
	if err := c.Submit(context.Background(), cmds); err != nil {
		t.Fatalf("Submit: %v", err)
	}

	subs := fake.submissions()
	if len(subs) != 1 {
		t.Fatalf("submissions = %d", len(subs))
	}
	sent := subs[0].Commands.Commands[0].Create.TemplateID
	if sent.PackageID != "pkg-1" {
		t.Fatalf("sent package id = %q, want the resolved pkg-1", sent.PackageID)
	}
}

func TestSubmitUnknownTemplateAlias(t *testing.T) {
	fake := newFakeTransport()
	c := newTestClient(t, fake, nil)

	cmds := buildCommands(t, "cmd-1", ledger.NewAliasedIdentifier("unregistered", "Token", "Issue"))
	err := c.Submit(context.Background(), cmds)

	var unknown *UnknownTemplateError
	if !errors.As(err, &unknown) {
		t.Fatalf("err = %v, want *UnknownTemplateError", err)
	}
	var pkgErr *ledger.UnknownPackageError
	if !errors.As(err, &pkgErr) || pkgErr.Alias != "unregistered" {
		t.Fatalf("cause = %v, want UnknownPackageError for the alias", err)
	}
	if got := len(fake.submissions()); got != 0 {
		t.Fatalf("submissions = %d, want none before resolution succeeds", got)
	}
}

func TestSubmitMapsNodeRejection(t *testing.T) {
	fake := newFakeTransport()
	fake.scriptSubmit(status.Error(codes.InvalidArgument, "unknown template Token:Issue"))
	c := newTestClient(t, fake, nil)

	err := c.Submit(context.Background(), testCommands(t, "cmd-1"))

	var se *SubmitError
	if !errors.As(err, &se) {
		t.Fatalf("err = %v, want *SubmitError", err)
	}
	if se.Kind != SubmitRejected {
		t.Fatalf("kind = %v, want SubmitRejected", se.Kind)
	}
	if se.Code != codes.InvalidArgument {
		t.Fatalf("code = %v", se.Code)
	}
	if !strings.Contains(se.Message, "unknown template") {
		t.Fatalf("message = %q", se.Message)
	}
	if got := len(fake.submissions()); got != 1 {
		t.Fatalf("submissions = %d, want exactly 1 even on failure", got)
	}
}

func TestMapSubmitErrorClassification(t *testing.T) {
	tests := []struct {
		code codes.Code
		kind SubmitErrorKind
	}{
		{codes.InvalidArgument, SubmitRejected},
		{codes.NotFound, SubmitRejected},
		{codes.PermissionDenied, SubmitRejected},
		{codes.FailedPrecondition, SubmitRejected},
		{codes.AlreadyExists, SubmitRejected},
		{codes.Unauthenticated, SubmitRejected},
		{codes.Unavailable, SubmitTransport},
		{codes.DeadlineExceeded, SubmitTransport},
		{codes.ResourceExhausted, SubmitTransport},
		{codes.Aborted, SubmitTransport},
		{codes.Canceled, SubmitTransport},
		{codes.Unknown, SubmitTransport},
	}
	for _, tc := range tests {
		t.Run(tc.code.String(), func(t *testing.T) {
			se := mapSubmitError(status.Error(tc.code, "x"))
			if se.Kind != tc.kind {
				t.Fatalf("kind for %v = %v, want %v", tc.code, se.Kind, tc.kind)
			}
			if se.Retryable() != (tc.kind == SubmitTransport) {
				t.Fatalf("Retryable() inconsistent with kind for %v", tc.code)
			}
		})
	}
}

func TestSubmitGatesUnadvertisedFeatures(t *testing.T) {
	fake := newFakeTransport()
	fake.features = wire.FeaturesDescriptor{}
	c := newTestClient(t, fake, nil)

	base := testCommands(t, "cmd-1")

	withMinTime := base
	rel := 5 * time.Second
	withMinTime.MinLedgerTimeRel = &rel

	withDomain := base
	withDomain.DomainID = "domain-a"

	withOffsetDedup := base
	withOffsetDedup.Deduplication = ledger.DeduplicationOffset{Offset: "10"}

	tests := []struct {
		name    string
		cmds    ledger.Commands
		feature string
	}{
		{"min ledger time", withMinTime, "min_ledger_time"},
		{"domain routing", withDomain, "domain_routing"},
		{"offset deduplication", withOffsetDedup, "offset_deduplication"},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			err := c.Submit(context.Background(), tc.cmds)
			var unsupported *UnsupportedFeatureError
			if !errors.As(err, &unsupported) {
				t.Fatalf("err = %v, want *UnsupportedFeatureError", err)
			}
			if unsupported.Feature != tc.feature {
				t.Fatalf("feature = %q, want %q", unsupported.Feature, tc.feature)
			}
		})
	}
	if got := len(fake.submissions()); got != 0 {
		t.Fatalf("submissions = %d, want none for gated envelopes", got)
	}

	// Duration-based deduplication is always available.
	withDuration := base
	withDuration.Deduplication = ledger.DeduplicationDuration{Duration: time.Minute}
	if err := c.Submit(context.Background(), withDuration); err != nil {
		t.Fatalf("duration dedup refused: %v", err)
	}
}

func TestSubmitWithRetryRecoversFromTransportErrors(t *testing.T) {
	fake := newFakeTransport()
	fake.scriptSubmit(
		status.Error(codes.Unavailable, "draining"),
		status.Error(codes.Unavailable, "draining"),
	)
	c := newTestClient(t, fake, nil)

	if err := c.SubmitWithRetry(context.Background(), testCommands(t, "cmd-1")); err != nil {
		t.Fatalf("SubmitWithRetry: %v", err)
	}

	subs := fake.submissions()
	if len(subs) != 3 {
		t.Fatalf("submissions = %d, want 3", len(subs))
	}
	for i, req := range subs {
		if req.Commands.CommandID != "cmd-1" {
			t.Fatalf("attempt %d changed the command id to %q", i, req.Commands.CommandID)
		}
	}
}

func TestSubmitWithRetryStopsOnRejection(t *testing.T) {
	fake := newFakeTransport()
	fake.scriptSubmit(status.Error(codes.InvalidArgument, "malformed"))
	c := newTestClient(t, fake, nil)

	err := c.SubmitWithRetry(context.Background(), testCommands(t, "cmd-1"))

	var se *SubmitError
	if !errors.As(err, &se) || se.Kind != SubmitRejected {
		t.Fatalf("err = %v, want a rejection", err)
	}
	if got := len(fake.submissions()); got != 1 {
		t.Fatalf("submissions = %d, a rejection must not be retried", got)
	}
}

func TestSubmitWithRetryExhaustsAttempts(t *testing.T) {
	fake := newFakeTransport()
	fake.scriptSubmit(
		status.Error(codes.Unavailable, "down"),
		status.Error(codes.Unavailable, "down"),
		status.Error(codes.Unavailable, "down"),
		status.Error(codes.Unavailable, "down"),
	)
	c := newTestClient(t, fake, func(cfg *Config) { cfg.SubmitAttempts = 3 })

	err := c.SubmitWithRetry(context.Background(), testCommands(t, "cmd-1"))

	var se *SubmitError
	if !errors.As(err, &se) || se.Kind != SubmitTransport {
		t.Fatalf("err = %v, want a transport error", err)
	}
	if got := len(fake.submissions()); got != 3 {
		t.Fatalf("submissions = %d, want exactly SubmitAttempts", got)
	}
}

func TestSubmitWithRetryHonorsServerDelay(t *testing.T) {
	st, err := status.New(codes.Unavailable, "busy").WithDetails(&errdetails.RetryInfo{
		RetryDelay: durationpb.New(time.Millisecond),
	})
	if err != nil {
		t.Fatalf("build status: %v", err)
	}

	fake := newFakeTransport()
	fake.scriptSubmit(st.Err())
	c := newTestClient(t, fake, func(cfg *Config) {
		// Without the server-directed delay the first wait would be
		// around 400ms.
		cfg.RetryInitialInterval = 400 * time.Millisecond
		cfg.RetryMaxInterval = time.Second
	})

	start := time.Now()
	if err := c.SubmitWithRetry(context.Background(), testCommands(t, "cmd-1")); err != nil {
		t.Fatalf("SubmitWithRetry: %v", err)
	}
	if elapsed := time.Since(start); elapsed > 200*time.Millisecond {
		t.Fatalf("retry took %s, server-directed delay was not honored", elapsed)
	}
}

func TestSubmitAndWaitSuccess(t *testing.T) {
	fake := newFakeTransport()
	c := newTestClient(t, fake, nil)

	type result struct {
		comp ledger.Completion
		err  error
	}
	done := make(chan result, 1)
	go func() {
		comp, err := c.SubmitAndWait(context.Background(), testCommands(t, "cmd-1"))
		done <- result{comp, err}
	}()

	waitUntil(t, func() bool { return len(fake.submissions()) == 1 })
	fake.emitCompletion(&wire.Completion{
		CommandID: "cmd-1",
		Status:    &wire.CompletionStatus{Code: 0},
		UpdateID:  "upd-1",
		Offset:    "5",
	})

	res := <-done
	if res.err != nil {
		t.Fatalf("SubmitAndWait: %v", res.err)
	}
	if res.comp.Status != ledger.CompletionSucceeded || res.comp.Offset != "5" {
		t.Fatalf("completion = %+v", res.comp)
	}
	if got := c.corr.pending(); got != 0 {
		t.Fatalf("pending waiters = %d after completion", got)
	}
}

func TestSubmitAndWaitFailedCompletion(t *testing.T) {
	fake := newFakeTransport()
	c := newTestClient(t, fake, nil)

	done := make(chan error, 1)
	go func() {
		_, err := c.SubmitAndWait(context.Background(), testCommands(t, "cmd-1"))
		done <- err
	}()

	waitUntil(t, func() bool { return len(fake.submissions()) == 1 })
	fake.emitCompletion(&wire.Completion{
		CommandID: "cmd-1",
		Status:    &wire.CompletionStatus{Code: 9, Message: "contract key contention"},
	})

	err := <-done
	var ce *CompletionError
	if !errors.As(err, &ce) {
		t.Fatalf("err = %v, want *CompletionError", err)
	}
	if ce.Status != ledger.CompletionFailed || ce.Code != 9 {
		t.Fatalf("completion error = %+v", ce)
	}
}

func TestSubmitAndWaitRejectsDuplicatePending(t *testing.T) {
	fake := newFakeTransport()
	c := newTestClient(t, fake, nil)

	if _, err := c.corr.register("cmd-1"); err != nil {
		t.Fatalf("register: %v", err)
	}

	_, err := c.SubmitAndWait(context.Background(), testCommands(t, "cmd-1"))
	if !errors.Is(err, ErrAlreadyPending) {
		t.Fatalf("err = %v, want ErrAlreadyPending", err)
	}
	if got := len(fake.submissions()); got != 0 {
		t.Fatalf("submissions = %d, want none", got)
	}
}

func TestSubmitAndWaitAbandonsWaiterOnRejection(t *testing.T) {
	fake := newFakeTransport()
	fake.scriptSubmit(status.Error(codes.InvalidArgument, "bad"))
	c := newTestClient(t, fake, nil)

	if _, err := c.SubmitAndWait(context.Background(), testCommands(t, "cmd-1")); err == nil {
		t.Fatal("rejected submission reported success")
	}
	if got := c.corr.pending(); got != 0 {
		t.Fatalf("pending waiters = %d, rejection must clear the waiter", got)
	}
}

func TestSubmitAndWaitTimeout(t *testing.T) {
	if testing.Short() {
		t.Skip("waits out a 2s deadline")
	}
	fake := newFakeTransport()
	c := newTestClient(t, fake, nil)

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()

	start := time.Now()
	_, err := c.SubmitAndWait(ctx, testCommands(t, "cmd-1"))
	elapsed := time.Since(start)

	var we *WaitError
	if !errors.As(err, &we) {
		t.Fatalf("err = %v, want *WaitError", err)
	}
	if we.Kind != WaitTimeout {
		t.Fatalf("kind = %v, want WaitTimeout", we.Kind)
	}
	if elapsed < 1900*time.Millisecond || elapsed > 3*time.Second {
		t.Fatalf("timed out after %s, want about the 2s deadline", elapsed)
	}
	if got := c.corr.pending(); got != 0 {
		t.Fatalf("pending waiters = %d, timeout must clear the waiter", got)
	}
}

func TestSubmitAndWaitCancelled(t *testing.T) {
	fake := newFakeTransport()
	c := newTestClient(t, fake, nil)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() {
		_, err := c.SubmitAndWait(ctx, testCommands(t, "cmd-1"))
		done <- err
	}()

	waitUntil(t, func() bool { return len(fake.submissions()) == 1 })
	cancel()

	err := <-done
	var we *WaitError
	if !errors.As(err, &we) || we.Kind != WaitCancelled {
		t.Fatalf("err = %v, want WaitCancelled", err)
	}
}

func TestSubmitAndWaitAbortedByClose(t *testing.T) {
	fake := newFakeTransport()
	c := newTestClient(t, fake, nil)

	type result struct {
		comp ledger.Completion
		err  error
	}
	done := make(chan result, 1)
	go func() {
		comp, err := c.SubmitAndWait(context.Background(), testCommands(t, "cmd-1"))
		done <- result{comp, err}
	}()

	waitUntil(t, func() bool { return len(fake.submissions()) == 1 })
	if err := c.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}

	res := <-done
	if res.comp.Status != ledger.CompletionAbortedDueToShutdown {
		t.Fatalf("completion status = %v, want AbortedDueToShutdown", res.comp.Status)
	}
	var ce *CompletionError
	if !errors.As(res.err, &ce) || ce.Status != ledger.CompletionAbortedDueToShutdown {
		t.Fatalf("err = %v, want CompletionError with AbortedDueToShutdown", res.err)
	}
}

func TestSubmitAndWaitAlreadyAcceptedAwaitsOriginal(t *testing.T) {
	fake := newFakeTransport()
	fake.scriptSubmit(status.Error(codes.AlreadyExists, "change id already accepted"))
	c := newTestClient(t, fake, nil)

	done := make(chan error, 1)
	go func() {
		_, err := c.SubmitAndWait(context.Background(), testCommands(t, "cmd-1"))
		done <- err
	}()

	waitUntil(t, func() bool { return len(fake.submissions()) == 1 })
	fake.emitCompletion(&wire.Completion{
		CommandID: "cmd-1",
		Status:    &wire.CompletionStatus{Code: 0},
	})

	if err := <-done; err != nil {
		t.Fatalf("SubmitAndWait after AlreadyExists: %v", err)
	}
}

func TestSubmitAndWaitWithRetryDeliversOneCompletion(t *testing.T) {
	fake := newFakeTransport()
	// The first attempt reaches the node but its response is lost; the
	// retry is refused because the change id is already in the dedup
	// window.
	fake.scriptSubmit(
		status.Error(codes.Unavailable, "response lost"),
		status.Error(codes.AlreadyExists, "change id already accepted"),
	)
	c := newTestClient(t, fake, nil)

	type result struct {
		comp ledger.Completion
		err  error
	}
	done := make(chan result, 1)
	go func() {
		comp, err := c.SubmitAndWaitWithRetry(context.Background(), testCommands(t, "cmd-1"))
		done <- result{comp, err}
	}()

	waitUntil(t, func() bool { return len(fake.submissions()) == 2 })
	fake.emitCompletion(&wire.Completion{
		CommandID: "cmd-1",
		Status:    &wire.CompletionStatus{Code: 0},
		Offset:    "9",
	})

	res := <-done
	if res.err != nil {
		t.Fatalf("SubmitAndWaitWithRetry: %v", res.err)
	}
	if res.comp.Offset != "9" {
		t.Fatalf("completion = %+v, want the original submission's outcome", res.comp)
	}

	subs := fake.submissions()
	if len(subs) != 2 {
		t.Fatalf("submissions = %d, want 2 attempts", len(subs))
	}
	if subs[0].Commands.CommandID != subs[1].Commands.CommandID {
		t.Fatal("retry changed the command id")
	}
	if got := c.corr.pending(); got != 0 {
		t.Fatalf("pending waiters = %d, want none", got)
	}

	// A duplicate of the same completion is ignored, not delivered
	// anywhere.
	fake.emitCompletion(&wire.Completion{
		CommandID: "cmd-1",
		Status:    &wire.CompletionStatus{Code: 0},
		Offset:    "9",
	})
	time.Sleep(20 * time.Millisecond)
	if got := c.corr.pending(); got != 0 {
		t.Fatalf("pending waiters = %d after duplicate", got)
	}
}

func TestSubmitAndWaitWithRetryExhaustionIsUndecided(t *testing.T) {
	fake := newFakeTransport()
	fake.scriptSubmit(
		status.Error(codes.Unavailable, "down"),
		status.Error(codes.Unavailable, "down"),
	)
	c := newTestClient(t, fake, func(cfg *Config) { cfg.SubmitAttempts = 2 })

	comp, err := c.SubmitAndWaitWithRetry(context.Background(), testCommands(t, "cmd-1"))

	if comp.Status != ledger.CompletionMaxRetriesReached {
		t.Fatalf("status = %v, want MaxRetriesReached", comp.Status)
	}
	var ce *CompletionError
	if !errors.As(err, &ce) || ce.Status != ledger.CompletionMaxRetriesReached {
		t.Fatalf("err = %v, want CompletionError with MaxRetriesReached", err)
	}
	if got := len(fake.submissions()); got != 2 {
		t.Fatalf("submissions = %d", got)
	}
	if got := c.corr.pending(); got != 0 {
		t.Fatalf("pending waiters = %d, want none after exhaustion", got)
	}
}
