package client

import (
	"context"
	"errors"
	"fmt"
	"io"
	"sync"
	"sync/atomic"
	"time"

	"github.com/vellumledger/go-vellum/checkpoint"
	"github.com/vellumledger/go-vellum/convert"
	"github.com/vellumledger/go-vellum/ledger"
	"github.com/vellumledger/go-vellum/wire"
)

// BootstrapState is where a bootstrap is in its lifecycle.
type BootstrapState int32

const (
	// StateUninitialized means no snapshot has completed and no usable
	// checkpoint exists.
	StateUninitialized BootstrapState = iota
	// StateSnapshotting means the active-contract snapshot is being
	// consumed.
	StateSnapshotting
	// StateStreaming means the update stream is live.
	StateStreaming
	// StateResuming means the stream is being re-established from the
	// last durable checkpoint.
	StateResuming
)

func (s BootstrapState) String() string {
	switch s {
	case StateUninitialized:
		return "uninitialized"
	case StateSnapshotting:
		return "snapshotting"
	case StateStreaming:
		return "streaming"
	case StateResuming:
		return "resuming"
	default:
		return fmt.Sprintf("bootstrap_state(%d)", int32(s))
	}
}

// Selector restricts snapshots and update streams to the given parties
// and, optionally, templates.
type Selector struct {
	Parties   []string
	Templates []ledger.Identifier
}

// Bootstrap is a live view of the ledger for one selector: the active
// set as of the snapshot plus an ordered stream of every transaction
// after it. Offsets are checkpointed durably as the stream advances so
// a restart resumes without a fresh snapshot.
type Bootstrap struct {
	client *Client
	filter *wire.Selector

	state   atomic.Int32
	set     *ledger.ActiveSet
	updates chan ledger.Transaction
	cancel  context.CancelFunc

	mu     sync.Mutex
	offset ledger.Offset
	err    error
}

// Bootstrap establishes the snapshot-then-stream view for the selector.
//
// With no stored checkpoint it consumes the full snapshot, durably
// saves the snapshot's end offset together with the node identity, and
// only then subscribes to updates; a crash between those steps replays
// the snapshot instead of skipping events. With a stored checkpoint
// from the same node it skips the snapshot and resumes the stream
// strictly after the checkpoint; the returned ActiveSet is then empty,
// because the caller's own projection already holds the state it built
// before the restart. A checkpoint from a different node is refused
// with OffsetMismatchError: offsets are node-local, and the only way
// forward is ResetCheckpoint followed by a fresh Bootstrap.
func (c *Client) Bootstrap(ctx context.Context, sel Selector) (*Bootstrap, error) {
	if c.closed.Load() {
		return nil, ErrClosed
	}
	templates := make([]ledger.Identifier, len(sel.Templates))
	for i, id := range sel.Templates {
		resolved, err := c.resolveIdentifier(ctx, id)
		if err != nil {
			return nil, err
		}
		templates[i] = resolved
	}
	filter, err := convert.SelectorToWire(toParties(sel.Parties), templates)
	if err != nil {
		return nil, err
	}

	b := &Bootstrap{
		client:  c,
		filter:  filter,
		set:     ledger.NewActiveSet(),
		updates: make(chan ledger.Transaction, c.cfg.UpdateBuffer),
	}

	begin, err := b.establish(ctx)
	if err != nil {
		return nil, err
	}

	streamCtx, cancel := context.WithCancel(c.streamCtx)
	b.cancel = cancel

	// Re-check under startMu: Close may have started while establish was
	// snapshotting, and the wait group must not grow once it drains.
	c.startMu.Lock()
	if c.closed.Load() {
		c.startMu.Unlock()
		cancel()
		return nil, ErrClosed
	}
	c.wg.Add(1)
	c.startMu.Unlock()

	if b.State() == StateSnapshotting {
		// A fresh snapshot becomes durable only once the stream owner is
		// registered, and always before the subscription starts: a crash
		// in between replays the snapshot, never skips events.
		save := checkpoint.Checkpoint{NodeID: c.nodeID, Offset: begin, SavedAt: time.Now().UTC()}
		if err := c.checkpoints.Save(ctx, save); err != nil {
			b.state.Store(int32(StateUninitialized))
			cancel()
			c.wg.Done()
			return nil, fmt.Errorf("save snapshot checkpoint: %w", err)
		}
		b.setOffset(begin)
	}
	go b.run(streamCtx, begin)
	return b, nil
}

// establish decides between resuming and snapshotting, and returns the
// offset the update stream begins strictly after. On the snapshot path
// the returned offset is not yet durable; Bootstrap persists it before
// subscribing.
func (b *Bootstrap) establish(ctx context.Context) (ledger.Offset, error) {
	c := b.client

	cp, err := c.checkpoints.Load(ctx)
	switch {
	case err == nil:
		if cp.NodeID != c.nodeID {
			return "", &OffsetMismatchError{StoredNodeID: cp.NodeID, ConnectedNodeID: c.nodeID}
		}
		b.state.Store(int32(StateResuming))
		b.setOffset(cp.Offset)
		c.logf("resuming update stream after offset %s", cp.Offset)
		return cp.Offset, nil
	case errors.Is(err, checkpoint.ErrNotFound):
		// fall through to a fresh snapshot
	default:
		return "", fmt.Errorf("load checkpoint: %w", err)
	}

	b.state.Store(int32(StateSnapshotting))
	end, err := b.snapshot(ctx)
	if err != nil {
		b.state.Store(int32(StateUninitialized))
		return "", err
	}
	c.logf("snapshot complete: %d contracts, offset %s", b.set.Len(), end)
	return end, nil
}

// snapshot consumes the active-contract stream into the set and returns
// the end-marker offset.
func (b *Bootstrap) snapshot(ctx context.Context) (ledger.Offset, error) {
	c := b.client

	st, err := c.t.ActiveContracts(ctx, &wire.ActiveContractsRequest{Filter: b.filter})
	if err != nil {
		return "", fmt.Errorf("open snapshot stream: %w", err)
	}
	for {
		msg, err := st.Recv()
		if errors.Is(err, io.EOF) {
			return "", errors.New("snapshot stream ended without an end marker")
		}
		if err != nil {
			return "", fmt.Errorf("snapshot stream: %w", err)
		}
		switch {
		case msg.Batch != nil:
			for i := range msg.Batch.Created {
				ev, err := convert.CreatedFromWire(&msg.Batch.Created[i])
				if err != nil {
					return "", err
				}
				b.set.Apply(ev)
			}
		case msg.End != nil:
			if msg.End.Offset == "" {
				return "", errors.New("snapshot end marker is missing its offset")
			}
			return ledger.Offset(msg.End.Offset), nil
		}
	}
}

// run owns the update stream, reconnecting from the last checkpoint
// after transient failures. Conversion failures are terminal: they mean
// the node speaks a schema this client does not, and silence would
// corrupt the caller's projection.
func (b *Bootstrap) run(ctx context.Context, begin ledger.Offset) {
	c := b.client
	defer c.wg.Done()
	defer close(b.updates)

	backoff := 500 * time.Millisecond
	for {
		if ctx.Err() != nil {
			return
		}
		st, err := c.t.Updates(ctx, &wire.UpdatesRequest{
			BeginExclusive: string(begin),
			Filter:         b.filter,
		})
		if err != nil {
			if ctx.Err() != nil {
				return
			}
			b.state.Store(int32(StateResuming))
			c.logf("update stream connect: %v", err)
			select {
			case <-ctx.Done():
				return
			case <-time.After(backoff):
			}
			if backoff < 5*time.Second {
				backoff *= 2
			}
			continue
		}
		backoff = 500 * time.Millisecond
		b.state.Store(int32(StateStreaming))

		next, fatal := b.readUpdates(ctx, st, begin)
		if fatal != nil {
			b.fail(fatal)
			return
		}
		begin = next
		b.state.Store(int32(StateResuming))
	}
}

// readUpdates drains one update stream. It returns the offset to resume
// after on transient failure, or a fatal error that ends the bootstrap.
func (b *Bootstrap) readUpdates(ctx context.Context, st stream[wire.UpdatesResponse], begin ledger.Offset) (ledger.Offset, error) {
	c := b.client
	for {
		msg, err := st.Recv()
		if err != nil {
			if ctx.Err() == nil {
				c.logf("update stream: %v", err)
			}
			return begin, nil
		}
		switch {
		case msg.Transaction != nil:
			tx, err := convert.TransactionFromWire(msg.Transaction)
			if err != nil {
				return begin, err
			}
			select {
			case b.updates <- tx:
			case <-ctx.Done():
				return begin, nil
			}
			b.checkpointAfter(ctx, tx.Offset)
			begin = tx.Offset
		case msg.Checkpoint != nil:
			off := ledger.Offset(msg.Checkpoint.Offset)
			if off == "" {
				continue
			}
			b.checkpointAfter(ctx, off)
			begin = off
		}
	}
}

// checkpointAfter persists stream progress. A failed write is logged
// and not fatal: the worst case on restart is replaying transactions
// the consumer has already seen, which the at-least-once contract
// permits.
func (b *Bootstrap) checkpointAfter(ctx context.Context, off ledger.Offset) {
	c := b.client
	save := checkpoint.Checkpoint{NodeID: c.nodeID, Offset: off, SavedAt: time.Now().UTC()}
	if err := c.checkpoints.Save(ctx, save); err != nil {
		if ctx.Err() == nil {
			c.logf("save checkpoint at %s: %v", off, err)
		}
		return
	}
	b.setOffset(off)
}

// ActiveSet returns the contracts live as of the snapshot end. Empty
// when the bootstrap resumed from a checkpoint. The set is not updated
// after the snapshot; fold Updates into it to track current state.
func (b *Bootstrap) ActiveSet() *ledger.ActiveSet {
	return b.set
}

// Updates delivers committed transactions strictly after the snapshot
// offset, in order. The channel closes when the bootstrap stops; check
// Err afterwards.
func (b *Bootstrap) Updates() <-chan ledger.Transaction {
	return b.updates
}

// State reports the current lifecycle state.
func (b *Bootstrap) State() BootstrapState {
	return BootstrapState(b.state.Load())
}

// Offset returns the last durably checkpointed offset.
func (b *Bootstrap) Offset() ledger.Offset {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.offset
}

// Err returns the terminal error, if the update stream ended because of
// one.
func (b *Bootstrap) Err() error {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.err
}

// Stop ends the update stream. The Updates channel closes once the
// stream owner exits.
func (b *Bootstrap) Stop() {
	if b.cancel != nil {
		b.cancel()
	}
}

func (b *Bootstrap) setOffset(off ledger.Offset) {
	b.mu.Lock()
	b.offset = off
	b.mu.Unlock()
}

func (b *Bootstrap) fail(err error) {
	b.mu.Lock()
	b.err = err
	b.mu.Unlock()
	b.client.logf("update stream stopped: %v", err)
}

func toParties(parties []string) []ledger.Party {
	out := make([]ledger.Party, len(parties))
	for i, p := range parties {
		out[i] = ledger.Party(p)
	}
	return out
}
