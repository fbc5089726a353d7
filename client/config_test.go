package client

import (
	"errors"
	"path/filepath"
	"testing"
	"time"

	"github.com/vellumledger/go-vellum/checkpoint"
)

func validConfig() Config {
	return Config{
		Address:              "localhost:7401",
		ApplicationID:        "app-test",
		ActAs:                []string{"alice"},
		TokenTTL:             5 * time.Minute,
		DialTimeout:          10 * time.Second,
		RPCTimeout:           30 * time.Second,
		UpdateBuffer:         16,
		SubmitAttempts:       3,
		RetryInitialInterval: 10 * time.Millisecond,
		RetryMaxInterval:     100 * time.Millisecond,
		SubmitBurst:          1,
		CheckpointBackend:    BackendMemory,
		CheckpointScope:      "bootstrap",
	}
}

func TestValidateAcceptsWorkingConfig(t *testing.T) {
	if err := validConfig().Validate(); err != nil {
		t.Fatalf("valid config rejected: %v", err)
	}
}

func TestValidateRejections(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Config)
		field  string
	}{
		{"missing address", func(c *Config) { c.Address = " " }, "Address"},
		{"missing application id", func(c *Config) { c.ApplicationID = "" }, "ApplicationID"},
		{"token and signing key together", func(c *Config) {
			c.AccessToken = "tok"
			c.TokenSigningKey = "key"
		}, "AccessToken"},
		{"signing key without issuer", func(c *Config) {
			c.TokenSigningKey = "key"
			c.TokenAudience = "aud"
		}, "TokenIssuer"},
		{"signing key without audience", func(c *Config) {
			c.TokenSigningKey = "key"
			c.TokenIssuer = "iss"
		}, "TokenAudience"},
		{"zero token ttl", func(c *Config) {
			c.TokenSigningKey = "key"
			c.TokenIssuer = "iss"
			c.TokenAudience = "aud"
			c.TokenTTL = 0
		}, "TokenTTL"},
		{"zero dial timeout", func(c *Config) { c.DialTimeout = 0 }, "DialTimeout"},
		{"zero rpc timeout", func(c *Config) { c.RPCTimeout = 0 }, "RPCTimeout"},
		{"zero update buffer", func(c *Config) { c.UpdateBuffer = 0 }, "UpdateBuffer"},
		{"zero submit attempts", func(c *Config) { c.SubmitAttempts = 0 }, "SubmitAttempts"},
		{"zero retry interval", func(c *Config) { c.RetryInitialInterval = 0 }, "RetryInitialInterval"},
		{"max interval below initial", func(c *Config) {
			c.RetryMaxInterval = c.RetryInitialInterval / 2
		}, "RetryMaxInterval"},
		{"negative submit rate", func(c *Config) { c.SubmitRate = -1 }, "SubmitRate"},
		{"zero burst with rate", func(c *Config) {
			c.SubmitRate = 10
			c.SubmitBurst = 0
		}, "SubmitBurst"},
		{"sqlite without path", func(c *Config) { c.CheckpointBackend = BackendSQLite }, "CheckpointPath"},
		{"redis without address", func(c *Config) { c.CheckpointBackend = BackendRedis }, "RedisAddress"},
		{"unknown backend", func(c *Config) { c.CheckpointBackend = "etcd" }, "CheckpointBackend"},
		{"blank scope", func(c *Config) { c.CheckpointScope = " " }, "CheckpointScope"},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			cfg := validConfig()
			tc.mutate(&cfg)

			err := cfg.Validate()
			var cfgErr *ConfigError
			if !errors.As(err, &cfgErr) {
				t.Fatalf("Validate() = %v, want *ConfigError", err)
			}
			if cfgErr.Field != tc.field {
				t.Fatalf("field = %q, want %q", cfgErr.Field, tc.field)
			}
		})
	}
}

func TestFromEnv(t *testing.T) {
	t.Setenv("VELLUM_NODE_ADDRESS", "ledger.internal:7500")
	t.Setenv("VELLUM_APPLICATION_ID", "settlement")
	t.Setenv("VELLUM_ACT_AS", "alice,bob")
	t.Setenv("VELLUM_SUBMIT_ATTEMPTS", "7")
	t.Setenv("VELLUM_RETRY_INITIAL_INTERVAL", "50ms")

	cfg, err := FromEnv()
	if err != nil {
		t.Fatalf("FromEnv: %v", err)
	}

	if cfg.Address != "ledger.internal:7500" {
		t.Errorf("Address = %q", cfg.Address)
	}
	if cfg.ApplicationID != "settlement" {
		t.Errorf("ApplicationID = %q", cfg.ApplicationID)
	}
	if len(cfg.ActAs) != 2 || cfg.ActAs[0] != "alice" || cfg.ActAs[1] != "bob" {
		t.Errorf("ActAs = %v", cfg.ActAs)
	}
	if cfg.SubmitAttempts != 7 {
		t.Errorf("SubmitAttempts = %d", cfg.SubmitAttempts)
	}
	if cfg.RetryInitialInterval != 50*time.Millisecond {
		t.Errorf("RetryInitialInterval = %s", cfg.RetryInitialInterval)
	}
	// Defaults fill what the environment leaves unset.
	if cfg.TokenTTL != 5*time.Minute {
		t.Errorf("TokenTTL = %s, want default 5m", cfg.TokenTTL)
	}
	if cfg.CheckpointBackend != BackendMemory {
		t.Errorf("CheckpointBackend = %q, want memory default", cfg.CheckpointBackend)
	}
}

func TestFromEnvRequiresApplicationID(t *testing.T) {
	t.Setenv("VELLUM_NODE_ADDRESS", "localhost:7401")
	t.Setenv("VELLUM_APPLICATION_ID", "")

	if _, err := FromEnv(); err == nil {
		t.Fatal("FromEnv accepted a config without an application id")
	}
}

func TestOpenCheckpointStoreMemory(t *testing.T) {
	store, err := validConfig().OpenCheckpointStore()
	if err != nil {
		t.Fatalf("open store: %v", err)
	}
	if _, ok := store.(*checkpoint.MemoryStore); !ok {
		t.Fatalf("store = %T, want *checkpoint.MemoryStore", store)
	}
}

func TestOpenCheckpointStoreSQLite(t *testing.T) {
	cfg := validConfig()
	cfg.CheckpointBackend = BackendSQLite
	cfg.CheckpointPath = filepath.Join(t.TempDir(), "checkpoints.db")

	store, err := cfg.OpenCheckpointStore()
	if err != nil {
		t.Fatalf("open store: %v", err)
	}
	t.Cleanup(func() {
		if closer, ok := store.(interface{ Close() error }); ok {
			_ = closer.Close()
		}
	})

	ctx := t.Context()
	if _, err := store.Load(ctx); !errors.Is(err, checkpoint.ErrNotFound) {
		t.Fatalf("Load on fresh store = %v, want ErrNotFound", err)
	}
}
