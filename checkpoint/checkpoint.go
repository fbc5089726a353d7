// Package checkpoint persists stream resumption points. A checkpoint
// binds an opaque offset to the identity of the node that minted it;
// stores only record and return the pair, the client decides whether a
// loaded checkpoint is usable against the current connection.
package checkpoint

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/vellumledger/go-vellum/ledger"
)

// ErrNotFound reports that no checkpoint has been saved yet.
var ErrNotFound = errors.New("checkpoint not found")

// DefaultScope names the checkpoint slot used when the caller does not
// partition checkpoints by stream.
const DefaultScope = "bootstrap"

// Checkpoint is one durable resumption point.
type Checkpoint struct {
	// NodeID is the identity of the node the offset belongs to. Offsets
	// are meaningless against any other node.
	NodeID string `json:"node_id"`
	// Offset is the opaque stream position, resumable strictly after.
	Offset ledger.Offset `json:"offset"`
	// SavedAt records when the checkpoint was taken.
	SavedAt time.Time `json:"saved_at"`
}

// Store persists a single checkpoint. Implementations must be safe for
// concurrent use.
type Store interface {
	// Save durably records the checkpoint, replacing any previous one.
	Save(ctx context.Context, cp Checkpoint) error
	// Load returns the recorded checkpoint, or ErrNotFound.
	Load(ctx context.Context) (Checkpoint, error)
	// Clear removes the recorded checkpoint. Clearing an empty store is
	// not an error.
	Clear(ctx context.Context) error
}

// Encode renders a checkpoint as an opaque token.
func Encode(cp Checkpoint) (string, error) {
	if cp.NodeID == "" {
		return "", fmt.Errorf("encode checkpoint: node id is required")
	}
	if cp.Offset == "" {
		return "", fmt.Errorf("encode checkpoint: offset is required")
	}
	data, err := json.Marshal(cp)
	if err != nil {
		return "", fmt.Errorf("marshal checkpoint: %w", err)
	}
	return base64.URLEncoding.EncodeToString(data), nil
}

// Decode parses a token produced by Encode. Returns an error if the
// token is malformed or missing its node identity.
func Decode(token string) (Checkpoint, error) {
	if token == "" {
		return Checkpoint{}, fmt.Errorf("empty checkpoint token")
	}
	data, err := base64.URLEncoding.DecodeString(token)
	if err != nil {
		return Checkpoint{}, fmt.Errorf("decode base64: %w", err)
	}
	var cp Checkpoint
	if err := json.Unmarshal(data, &cp); err != nil {
		return Checkpoint{}, fmt.Errorf("unmarshal checkpoint: %w", err)
	}
	if cp.NodeID == "" {
		return Checkpoint{}, fmt.Errorf("checkpoint token missing node id")
	}
	if cp.Offset == "" {
		return Checkpoint{}, fmt.Errorf("checkpoint token missing offset")
	}
	return cp, nil
}

// MemoryStore keeps the checkpoint in process memory. Useful for tests
// and for callers that accept a fresh bootstrap on every start.
type MemoryStore struct {
	mu    sync.Mutex
	cp    Checkpoint
	saved bool
}

// NewMemoryStore returns an empty in-memory store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{}
}

// Save records the checkpoint.
func (s *MemoryStore) Save(ctx context.Context, cp Checkpoint) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if cp.NodeID == "" {
		return fmt.Errorf("save checkpoint: node id is required")
	}
	if cp.Offset == "" {
		return fmt.Errorf("save checkpoint: offset is required")
	}
	s.mu.Lock()
	s.cp = cp
	s.saved = true
	s.mu.Unlock()
	return nil
}

// Load returns the recorded checkpoint, or ErrNotFound.
func (s *MemoryStore) Load(ctx context.Context) (Checkpoint, error) {
	if err := ctx.Err(); err != nil {
		return Checkpoint{}, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.saved {
		return Checkpoint{}, ErrNotFound
	}
	return s.cp, nil
}

// Clear removes the recorded checkpoint.
func (s *MemoryStore) Clear(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	s.mu.Lock()
	s.cp = Checkpoint{}
	s.saved = false
	s.mu.Unlock()
	return nil
}

var _ Store = (*MemoryStore)(nil)
