// Package sqlite provides a SQLite-backed checkpoint store.
package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"path/filepath"
	"strings"
	"time"

	"github.com/vellumledger/go-vellum/checkpoint"
	"github.com/vellumledger/go-vellum/checkpoint/sqlite/migrations"
	sqlitemigrate "github.com/vellumledger/go-vellum/internal/platform/storage/sqlitemigrate"
	"github.com/vellumledger/go-vellum/ledger"
	_ "modernc.org/sqlite"
)

// DefaultScope mirrors checkpoint.DefaultScope for callers of Open.
const DefaultScope = checkpoint.DefaultScope

// Store persists one checkpoint per scope in SQLite.
type Store struct {
	sqlDB *sql.DB
	scope string
}

func toMillis(value time.Time) int64 {
	return value.UTC().UnixMilli()
}

func fromMillis(value int64) time.Time {
	return time.UnixMilli(value).UTC()
}

// Open opens a SQLite checkpoint store and applies embedded migrations.
// The scope selects which checkpoint row this store reads and writes;
// pass DefaultScope unless the process tracks several streams in one
// database file.
func Open(path, scope string) (*Store, error) {
	if strings.TrimSpace(path) == "" {
		return nil, fmt.Errorf("storage path is required")
	}
	if strings.TrimSpace(scope) == "" {
		return nil, fmt.Errorf("checkpoint scope is required")
	}
	cleanPath := filepath.Clean(path)
	dsn := cleanPath + "?_journal_mode=WAL&_foreign_keys=ON&_busy_timeout=5000&_synchronous=NORMAL"
	sqlDB, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("open sqlite db: %w", err)
	}
	if err := sqlDB.Ping(); err != nil {
		_ = sqlDB.Close()
		return nil, fmt.Errorf("ping sqlite db: %w", err)
	}
	if err := sqlitemigrate.Apply(sqlDB, migrations.FS, ""); err != nil {
		_ = sqlDB.Close()
		return nil, fmt.Errorf("run migrations: %w", err)
	}
	return &Store{sqlDB: sqlDB, scope: scope}, nil
}

// Close closes the SQLite handle.
func (s *Store) Close() error {
	if s == nil || s.sqlDB == nil {
		return nil
	}
	return s.sqlDB.Close()
}

// Save upserts the checkpoint for this store's scope.
func (s *Store) Save(ctx context.Context, cp checkpoint.Checkpoint) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if s == nil || s.sqlDB == nil {
		return fmt.Errorf("storage is not configured")
	}
	if strings.TrimSpace(cp.NodeID) == "" {
		return fmt.Errorf("node id is required")
	}
	if cp.Offset == "" {
		return fmt.Errorf("offset is required")
	}
	savedAt := cp.SavedAt
	if savedAt.IsZero() {
		savedAt = time.Now().UTC()
	}

	_, err := s.sqlDB.ExecContext(
		ctx,
		`INSERT INTO checkpoints (scope, node_id, position, saved_at)
		 VALUES (?, ?, ?, ?)
		 ON CONFLICT(scope) DO UPDATE SET
		   node_id = excluded.node_id,
		   position = excluded.position,
		   saved_at = excluded.saved_at`,
		s.scope,
		cp.NodeID,
		string(cp.Offset),
		toMillis(savedAt),
	)
	if err != nil {
		return fmt.Errorf("save checkpoint: %w", err)
	}
	return nil
}

// Load returns the checkpoint for this store's scope.
func (s *Store) Load(ctx context.Context) (checkpoint.Checkpoint, error) {
	if err := ctx.Err(); err != nil {
		return checkpoint.Checkpoint{}, err
	}
	if s == nil || s.sqlDB == nil {
		return checkpoint.Checkpoint{}, fmt.Errorf("storage is not configured")
	}

	row := s.sqlDB.QueryRowContext(
		ctx,
		`SELECT node_id, position, saved_at
		   FROM checkpoints
		  WHERE scope = ?`,
		s.scope,
	)

	var cp checkpoint.Checkpoint
	var position string
	var savedAt int64
	if err := row.Scan(&cp.NodeID, &position, &savedAt); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return checkpoint.Checkpoint{}, checkpoint.ErrNotFound
		}
		return checkpoint.Checkpoint{}, fmt.Errorf("load checkpoint: %w", err)
	}
	cp.Offset = ledger.Offset(position)
	cp.SavedAt = fromMillis(savedAt)
	return cp, nil
}

// Clear removes the checkpoint for this store's scope.
func (s *Store) Clear(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if s == nil || s.sqlDB == nil {
		return fmt.Errorf("storage is not configured")
	}

	if _, err := s.sqlDB.ExecContext(ctx, `DELETE FROM checkpoints WHERE scope = ?`, s.scope); err != nil {
		return fmt.Errorf("clear checkpoint: %w", err)
	}
	return nil
}

var _ checkpoint.Store = (*Store)(nil)
