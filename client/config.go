package client

import (
	"fmt"
	"strings"
	"time"

	"github.com/caarlos0/env/v11"

	"github.com/vellumledger/go-vellum/checkpoint"
	checkpointredis "github.com/vellumledger/go-vellum/checkpoint/redis"
	checkpointsqlite "github.com/vellumledger/go-vellum/checkpoint/sqlite"
)

// Checkpoint store backends selectable via VELLUM_CHECKPOINT_BACKEND.
const (
	BackendMemory = "memory"
	BackendSQLite = "sqlite"
	BackendRedis  = "redis"
)

// Config controls how the client connects, submits, and resumes.
//
// Values are read from VELLUM_* environment variables by FromEnv;
// callers may also fill the struct directly. Validate runs in New, so
// hand-built configs get the same checks as env-loaded ones.
type Config struct {
	// Address is the node's gRPC endpoint.
	Address string `env:"VELLUM_NODE_ADDRESS" envDefault:"localhost:7401"`
	// LedgerID optionally pins envelopes to one ledger.
	LedgerID string `env:"VELLUM_LEDGER_ID"`
	// ApplicationID identifies this application in envelopes and in the
	// completion subscription.
	ApplicationID string `env:"VELLUM_APPLICATION_ID"`
	// ActAs lists the parties this client submits on behalf of. Used as
	// the completion subscription filter and as builder defaults.
	ActAs []string `env:"VELLUM_ACT_AS" envSeparator:","`
	// ReadAs lists additional read-only parties for builder defaults.
	ReadAs []string `env:"VELLUM_READ_AS" envSeparator:","`

	// AccessToken is a ready-made bearer token. Mutually exclusive with
	// TokenSigningKey.
	AccessToken string `env:"VELLUM_ACCESS_TOKEN"`
	// TokenSigningKey is a base64 Ed25519 seed or private key used to
	// mint short-lived bearer tokens locally.
	TokenSigningKey string `env:"VELLUM_TOKEN_SIGNING_KEY"`
	// TokenIssuer and TokenAudience fill the minted token claims.
	TokenIssuer   string `env:"VELLUM_TOKEN_ISSUER"`
	TokenAudience string `env:"VELLUM_TOKEN_AUDIENCE"`
	// TokenTTL bounds the lifetime of minted tokens.
	TokenTTL time.Duration `env:"VELLUM_TOKEN_TTL" envDefault:"5m"`

	// DialTimeout bounds connection establishment including the health
	// gate and the identity handshake.
	DialTimeout time.Duration `env:"VELLUM_DIAL_TIMEOUT" envDefault:"10s"`
	// RPCTimeout bounds individual unary calls made on the caller's
	// behalf (identity, version, package resolution).
	RPCTimeout time.Duration `env:"VELLUM_RPC_TIMEOUT" envDefault:"30s"`

	// UpdateBuffer sizes the bounded channel between the update stream
	// owner and the consumer. A full buffer stops the stream read,
	// pushing backpressure to the node.
	UpdateBuffer int `env:"VELLUM_UPDATE_BUFFER" envDefault:"256"`

	// SubmitAttempts caps retry-wrapped submission attempts.
	SubmitAttempts int `env:"VELLUM_SUBMIT_ATTEMPTS" envDefault:"5"`
	// RetryInitialInterval and RetryMaxInterval shape the exponential
	// backoff between attempts.
	RetryInitialInterval time.Duration `env:"VELLUM_RETRY_INITIAL_INTERVAL" envDefault:"200ms"`
	RetryMaxInterval     time.Duration `env:"VELLUM_RETRY_MAX_INTERVAL" envDefault:"5s"`

	// SubmitRate throttles submissions per second; zero disables the
	// limiter. SubmitBurst is the limiter burst size.
	SubmitRate  float64 `env:"VELLUM_SUBMIT_RATE" envDefault:"0"`
	SubmitBurst int     `env:"VELLUM_SUBMIT_BURST" envDefault:"1"`

	// CheckpointBackend selects where bootstrap offsets are persisted:
	// memory, sqlite, or redis.
	CheckpointBackend string `env:"VELLUM_CHECKPOINT_BACKEND" envDefault:"memory"`
	// CheckpointPath is the SQLite database file for the sqlite backend.
	CheckpointPath string `env:"VELLUM_CHECKPOINT_PATH"`
	// CheckpointScope partitions checkpoints when several streams share
	// one store.
	CheckpointScope string `env:"VELLUM_CHECKPOINT_SCOPE" envDefault:"bootstrap"`
	// Redis connection settings for the redis backend.
	RedisAddress  string `env:"VELLUM_REDIS_ADDRESS"`
	RedisPassword string `env:"VELLUM_REDIS_PASSWORD"`
	RedisDB       int    `env:"VELLUM_REDIS_DB" envDefault:"0"`
}

// FromEnv loads configuration from VELLUM_* environment variables and
// validates it.
func FromEnv() (Config, error) {
	var cfg Config
	if err := env.Parse(&cfg); err != nil {
		return Config{}, fmt.Errorf("parse env: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// Validate checks cross-field consistency. Each violation is reported
// as a ConfigError naming the offending field.
func (c Config) Validate() error {
	if strings.TrimSpace(c.Address) == "" {
		return &ConfigError{Field: "Address", Reason: "node address is required"}
	}
	if strings.TrimSpace(c.ApplicationID) == "" {
		return &ConfigError{Field: "ApplicationID", Reason: "application id is required"}
	}
	if c.AccessToken != "" && c.TokenSigningKey != "" {
		return &ConfigError{Field: "AccessToken", Reason: "access token and signing key are mutually exclusive"}
	}
	if c.TokenSigningKey != "" {
		if strings.TrimSpace(c.TokenIssuer) == "" {
			return &ConfigError{Field: "TokenIssuer", Reason: "required when minting tokens"}
		}
		if strings.TrimSpace(c.TokenAudience) == "" {
			return &ConfigError{Field: "TokenAudience", Reason: "required when minting tokens"}
		}
		if c.TokenTTL <= 0 {
			return &ConfigError{Field: "TokenTTL", Reason: "must be positive"}
		}
	}
	if c.DialTimeout <= 0 {
		return &ConfigError{Field: "DialTimeout", Reason: "must be positive"}
	}
	if c.RPCTimeout <= 0 {
		return &ConfigError{Field: "RPCTimeout", Reason: "must be positive"}
	}
	if c.UpdateBuffer <= 0 {
		return &ConfigError{Field: "UpdateBuffer", Reason: "must be positive"}
	}
	if c.SubmitAttempts < 1 {
		return &ConfigError{Field: "SubmitAttempts", Reason: "must be at least 1"}
	}
	if c.RetryInitialInterval <= 0 {
		return &ConfigError{Field: "RetryInitialInterval", Reason: "must be positive"}
	}
	if c.RetryMaxInterval < c.RetryInitialInterval {
		return &ConfigError{Field: "RetryMaxInterval", Reason: "must be at least the initial interval"}
	}
	if c.SubmitRate < 0 {
		return &ConfigError{Field: "SubmitRate", Reason: "must not be negative"}
	}
	if c.SubmitRate > 0 && c.SubmitBurst < 1 {
		return &ConfigError{Field: "SubmitBurst", Reason: "must be at least 1 when a rate is set"}
	}

	switch c.CheckpointBackend {
	case BackendMemory:
	case BackendSQLite:
		if strings.TrimSpace(c.CheckpointPath) == "" {
			return &ConfigError{Field: "CheckpointPath", Reason: "required for the sqlite backend"}
		}
	case BackendRedis:
		if strings.TrimSpace(c.RedisAddress) == "" {
			return &ConfigError{Field: "RedisAddress", Reason: "required for the redis backend"}
		}
	default:
		return &ConfigError{Field: "CheckpointBackend", Reason: fmt.Sprintf("unknown backend %q", c.CheckpointBackend)}
	}
	if strings.TrimSpace(c.CheckpointScope) == "" {
		return &ConfigError{Field: "CheckpointScope", Reason: "must not be blank"}
	}
	return nil
}

// OpenCheckpointStore builds the checkpoint store this configuration
// selects. The caller owns the store; sqlite and redis stores should be
// closed when done.
func (c Config) OpenCheckpointStore() (checkpoint.Store, error) {
	switch c.CheckpointBackend {
	case BackendMemory:
		return checkpoint.NewMemoryStore(), nil
	case BackendSQLite:
		store, err := checkpointsqlite.Open(c.CheckpointPath, c.CheckpointScope)
		if err != nil {
			return nil, fmt.Errorf("open sqlite checkpoint store: %w", err)
		}
		return store, nil
	case BackendRedis:
		store, err := checkpointredis.New(c.RedisAddress, c.RedisPassword, c.RedisDB, c.CheckpointScope)
		if err != nil {
			return nil, fmt.Errorf("open redis checkpoint store: %w", err)
		}
		return store, nil
	default:
		return nil, &ConfigError{Field: "CheckpointBackend", Reason: fmt.Sprintf("unknown backend %q", c.CheckpointBackend)}
	}
}
