package client

import (
	"context"
	"sync"
	"time"

	"github.com/vellumledger/go-vellum/convert"
	"github.com/vellumledger/go-vellum/ledger"
	"github.com/vellumledger/go-vellum/wire"
)

// correlator routes completions from the single multiplexed stream to
// per-command waiters. Waiters register before their submission goes
// out so a fast completion cannot slip past; the first matching
// completion wins and later ones for the same command id are dropped.
type correlator struct {
	mu      sync.Mutex
	waiters map[string]chan ledger.Completion
	offset  ledger.Offset
	closed  bool
}

func newCorrelator() *correlator {
	return &correlator{waiters: make(map[string]chan ledger.Completion)}
}

// register adds a waiter for commandID. A second registration while the
// first is still pending fails with ErrAlreadyPending; retrying a
// command id is safe once the earlier wait resolved or was abandoned.
func (c *correlator) register(commandID string) (chan ledger.Completion, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return nil, ErrClosed
	}
	if _, pending := c.waiters[commandID]; pending {
		return nil, ErrAlreadyPending
	}
	ch := make(chan ledger.Completion, 1)
	c.waiters[commandID] = ch
	return ch, nil
}

// abandon drops the waiter for commandID. A completion arriving later
// is ignored like any other unmatched completion.
func (c *correlator) abandon(commandID string) {
	c.mu.Lock()
	delete(c.waiters, commandID)
	c.mu.Unlock()
}

// resolve delivers a completion to its waiter. Returns false when no
// waiter matches: a duplicate after the first match, or a submission
// this process never made.
func (c *correlator) resolve(comp ledger.Completion) bool {
	c.mu.Lock()
	ch, ok := c.waiters[comp.CommandID]
	if ok {
		delete(c.waiters, comp.CommandID)
	}
	c.mu.Unlock()
	if !ok {
		return false
	}
	// Buffered one deep and each waiter channel has a single producer,
	// so this never blocks the stream owner.
	ch <- comp
	return true
}

// noteCheckpoint advances the reconnect cursor.
func (c *correlator) noteCheckpoint(off ledger.Offset) {
	if off == "" {
		return
	}
	c.mu.Lock()
	c.offset = off
	c.mu.Unlock()
}

// checkpoint returns the offset the stream should resume strictly
// after.
func (c *correlator) checkpoint() ledger.Offset {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.offset
}

// pending reports how many waiters are outstanding.
func (c *correlator) pending() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.waiters)
}

// shutdown resolves every pending waiter with AbortedDueToShutdown and
// refuses new registrations.
func (c *correlator) shutdown() {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return
	}
	c.closed = true
	for id, ch := range c.waiters {
		ch <- ledger.Completion{CommandID: id, Status: ledger.CompletionAbortedDueToShutdown}
		delete(c.waiters, id)
	}
}

// runCompletions owns the completion stream for the client's lifetime,
// reconnecting from the last checkpoint after transient failures.
func (c *Client) runCompletions(ctx context.Context) {
	defer c.wg.Done()

	backoff := 500 * time.Millisecond
	for {
		if ctx.Err() != nil {
			return
		}
		req := &wire.CompletionStreamRequest{
			ApplicationID:  c.cfg.ApplicationID,
			Parties:        c.parties,
			BeginExclusive: string(c.corr.checkpoint()),
		}
		st, err := c.t.CompletionStream(ctx, req)
		if err != nil {
			if ctx.Err() != nil {
				return
			}
			c.logf("completion stream connect: %v", err)
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
		c.readCompletions(ctx, st)
	}
}

// readCompletions drains one completion stream until it fails or ends.
func (c *Client) readCompletions(ctx context.Context, st stream[wire.CompletionStreamResponse]) {
	for {
		msg, err := st.Recv()
		if err != nil {
			if ctx.Err() == nil {
				c.logf("completion stream: %v", err)
			}
			return
		}
		switch {
		case msg.Completion != nil:
			comp, err := convert.CompletionFromWire(msg.Completion)
			if err != nil {
				c.logf("drop malformed completion: %v", err)
				continue
			}
			c.corr.resolve(comp)
			c.corr.noteCheckpoint(comp.Offset)
		case msg.Checkpoint != nil:
			c.corr.noteCheckpoint(ledger.Offset(msg.Checkpoint.Offset))
		}
	}
}
