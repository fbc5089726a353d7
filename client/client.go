// Package client is a session against one ledger node: authenticated
// submission with completion tracking, and snapshot-then-stream reads
// with durable offset checkpoints.
//
// A Client owns two long-lived stream readers. The completion reader
// starts with New and serves every SubmitAndWait; update readers start
// per Bootstrap. Both reconnect from their last known offset after
// transient failures and stop when the client closes.
package client

import (
	"context"
	"errors"
	"fmt"
	"io"
	"sync"
	"sync/atomic"

	"golang.org/x/time/rate"

	"github.com/vellumledger/go-vellum/checkpoint"
	"github.com/vellumledger/go-vellum/ledger"
	"github.com/vellumledger/go-vellum/wire"
)

// Client is a connected session against one ledger node.
//
// Methods are safe for concurrent use. A closed client fails every
// operation with ErrClosed.
type Client struct {
	cfg  Config
	t    transport
	conn io.Closer

	nodeID   string
	version  string
	features Features

	corr      *correlator
	limiter   *rate.Limiter
	directory ledger.PackageDirectory

	checkpoints checkpoint.Store
	ownsStore   bool

	parties []string

	closed    atomic.Bool
	streamCtx context.Context
	cancel    context.CancelFunc
	// startMu serializes stream-reader registration against Close, so a
	// Bootstrap racing a Close can never add to a drained wait group.
	startMu sync.Mutex
	wg      sync.WaitGroup

	log func(string, ...any)
}

// Options adjusts construction beyond what Config carries. The zero
// value is usable; every field is optional.
type Options struct {
	// Logf receives diagnostic lines. Nil keeps the client silent.
	Logf func(string, ...any)
	// TokenSource overrides the bearer-token handling Config implies.
	TokenSource TokenSource
	// Directory overrides the node-backed package directory.
	Directory ledger.PackageDirectory
	// Checkpoints overrides the store Config would open.
	Checkpoints checkpoint.Store
	// Dialer overrides the network dial, for in-process tests.
	Dialer Dialer
}

// New dials the node, waits for its health check, verifies its
// identity, and starts the completion reader. The returned client must
// be closed.
func New(ctx context.Context, cfg Config, opts Options) (*Client, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	source, err := tokenSource(cfg, opts)
	if err != nil {
		return nil, err
	}
	dialOpts := defaultDialOptions(nil)
	if source != nil {
		dialOpts = defaultDialOptions(bearerCredentials{source: source})
	}

	conn, err := dialWithHealth(ctx, opts.Dialer, cfg.Address, cfg.DialTimeout, opts.Logf, dialOpts...)
	if err != nil {
		return nil, err
	}

	c, err := newWithTransport(ctx, cfg, &grpcTransport{conn: conn}, conn, opts)
	if err != nil {
		_ = conn.Close()
		return nil, err
	}
	return c, nil
}

// newWithTransport finishes construction on an established transport.
// Tests call it directly with in-memory fakes.
func newWithTransport(ctx context.Context, cfg Config, t transport, conn io.Closer, opts Options) (*Client, error) {
	c := &Client{
		cfg:     cfg,
		t:       t,
		conn:    conn,
		corr:    newCorrelator(),
		parties: append([]string(nil), cfg.ActAs...),
		log:     opts.Logf,
	}
	if cfg.SubmitRate > 0 {
		c.limiter = rate.NewLimiter(rate.Limit(cfg.SubmitRate), cfg.SubmitBurst)
	}

	rpcCtx := ctx
	if cfg.RPCTimeout > 0 {
		var cancel context.CancelFunc
		rpcCtx, cancel = context.WithTimeout(ctx, cfg.RPCTimeout)
		defer cancel()
	}

	identity, err := t.NodeIdentity(rpcCtx, &wire.NodeIdentityRequest{})
	if err != nil {
		return nil, &ConnectError{Stage: ConnectStageIdentity, Err: err}
	}
	if identity.NodeID == "" {
		return nil, &ConnectError{Stage: ConnectStageIdentity, Err: errors.New("node reported an empty identity")}
	}
	if cfg.LedgerID != "" && identity.NodeID != cfg.LedgerID {
		return nil, &ConnectError{
			Stage: ConnectStageIdentity,
			Err:   fmt.Errorf("connected to node %q, want %q", identity.NodeID, cfg.LedgerID),
		}
	}
	c.nodeID = identity.NodeID

	version, err := t.Version(rpcCtx, &wire.VersionRequest{})
	if err != nil {
		return nil, &ConnectError{Stage: ConnectStageIdentity, Err: err}
	}
	c.version = version.Version
	c.features = featuresFromWire(version.Features)

	// Seed the completion subscription at the node's current end so a
	// fresh client does not replay historic completions it never
	// submitted.
	end, err := t.LedgerEnd(rpcCtx, &wire.LedgerEndRequest{})
	if err != nil {
		return nil, &ConnectError{Stage: ConnectStageIdentity, Err: err}
	}
	c.corr.noteCheckpoint(ledger.Offset(end.Offset))

	if opts.Checkpoints != nil {
		c.checkpoints = opts.Checkpoints
	} else {
		store, err := cfg.OpenCheckpointStore()
		if err != nil {
			return nil, err
		}
		c.checkpoints = store
		c.ownsStore = true
	}

	if opts.Directory != nil {
		c.directory = opts.Directory
	} else {
		c.directory = ledger.NewCachingDirectory(&remoteDirectory{
			t:       t,
			parties: vettingParties(cfg),
			timeout: func(ctx context.Context) (context.Context, context.CancelFunc) {
				return context.WithTimeout(ctx, cfg.RPCTimeout)
			},
		})
	}

	c.streamCtx, c.cancel = context.WithCancel(context.Background())
	c.wg.Add(1)
	go c.runCompletions(c.streamCtx)

	c.logf("connected to node %s (version %s)", c.nodeID, c.version)
	return c, nil
}

// tokenSource picks the bearer-token strategy: an explicit Options
// source wins, then a static Config token, then local minting from a
// signing key. All absent means anonymous calls.
func tokenSource(cfg Config, opts Options) (TokenSource, error) {
	if opts.TokenSource != nil {
		return opts.TokenSource, nil
	}
	if cfg.AccessToken != "" {
		return StaticToken(cfg.AccessToken), nil
	}
	if cfg.TokenSigningKey == "" {
		return nil, nil
	}
	key, err := DecodeSigningKey(cfg.TokenSigningKey)
	if err != nil {
		return nil, &ConfigError{Field: "TokenSigningKey", Reason: err.Error()}
	}
	return NewMintingSource(MintingConfig{
		Issuer:        cfg.TokenIssuer,
		Audience:      cfg.TokenAudience,
		ApplicationID: cfg.ApplicationID,
		ActAs:         cfg.ActAs,
		ReadAs:        cfg.ReadAs,
		TTL:           cfg.TokenTTL,
		Key:           key,
	})
}

// vettingParties is the party set package resolution is restricted to.
func vettingParties(cfg Config) []string {
	seen := make(map[string]bool, len(cfg.ActAs)+len(cfg.ReadAs))
	var out []string
	for _, p := range cfg.ActAs {
		if !seen[p] {
			seen[p] = true
			out = append(out, p)
		}
	}
	for _, p := range cfg.ReadAs {
		if !seen[p] {
			seen[p] = true
			out = append(out, p)
		}
	}
	return out
}

// NodeID returns the connected node's stable identity.
func (c *Client) NodeID() string {
	return c.nodeID
}

// Version returns the node's reported version.
func (c *Client) Version() string {
	return c.version
}

// Features returns the envelope extensions the node advertises.
func (c *Client) Features() Features {
	return c.features
}

// Directory returns the package directory submissions resolve aliases
// against.
func (c *Client) Directory() ledger.PackageDirectory {
	return c.directory
}

// ResetCheckpoint discards the stored bootstrap checkpoint. Required
// before bootstrapping against a different node, since offsets from the
// old node are meaningless on the new one.
func (c *Client) ResetCheckpoint(ctx context.Context) error {
	if c.closed.Load() {
		return ErrClosed
	}
	return c.checkpoints.Clear(ctx)
}

// Close stops the stream readers, resolves every pending wait with
// AbortedDueToShutdown, and releases the connection. Safe to call more
// than once.
func (c *Client) Close() error {
	if !c.closed.CompareAndSwap(false, true) {
		return nil
	}
	c.cancel()
	c.corr.shutdown()
	c.startMu.Lock()
	c.wg.Wait()
	c.startMu.Unlock()

	var errs []error
	if c.conn != nil {
		if err := c.conn.Close(); err != nil {
			errs = append(errs, fmt.Errorf("close connection: %w", err))
		}
	}
	if c.ownsStore {
		if closer, ok := c.checkpoints.(io.Closer); ok {
			if err := closer.Close(); err != nil {
				errs = append(errs, fmt.Errorf("close checkpoint store: %w", err))
			}
		}
	}
	return errors.Join(errs...)
}

func (c *Client) logf(format string, args ...any) {
	if c.log != nil {
		c.log(format, args...)
	}
}
