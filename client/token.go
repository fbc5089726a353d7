package client

import (
	"context"
	"crypto/ed25519"
	"encoding/base64"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

// TokenSource supplies the bearer token attached to every RPC.
type TokenSource interface {
	Token(ctx context.Context) (string, error)
}

// StaticToken is a fixed bearer token.
type StaticToken string

// Token returns the token unchanged.
func (t StaticToken) Token(context.Context) (string, error) {
	return string(t), nil
}

// Claims are the envelope-relevant fields of an access token. The
// client parses tokens without verifying signatures; the node is the
// verifier.
type Claims struct {
	ApplicationID string
	ActAs         []string
	ReadAs        []string
	ExpiresAt     time.Time
}

// accessClaims is the JWT claims shape shared by parsing and minting.
type accessClaims struct {
	jwt.RegisteredClaims
	ApplicationID string   `json:"application_id,omitempty"`
	ActAs         []string `json:"act_as,omitempty"`
	ReadAs        []string `json:"read_as,omitempty"`
}

// ParseClaims extracts envelope defaults from a bearer token without
// verifying its signature.
func ParseClaims(token string) (Claims, error) {
	token = strings.TrimSpace(token)
	if token == "" {
		return Claims{}, errors.New("access token is empty")
	}
	var parsed accessClaims
	if _, _, err := jwt.NewParser().ParseUnverified(token, &parsed); err != nil {
		return Claims{}, fmt.Errorf("parse access token: %w", err)
	}
	claims := Claims{
		ApplicationID: parsed.ApplicationID,
		ActAs:         parsed.ActAs,
		ReadAs:        parsed.ReadAs,
	}
	if parsed.ExpiresAt != nil {
		claims.ExpiresAt = parsed.ExpiresAt.Time.UTC()
	}
	return claims, nil
}

// MintingConfig controls locally minted bearer tokens.
type MintingConfig struct {
	Issuer        string
	Audience      string
	ApplicationID string
	ActAs         []string
	ReadAs        []string
	TTL           time.Duration
	Key           ed25519.PrivateKey
	Now           func() time.Time
}

// MintingSource mints short-lived Ed25519-signed bearer tokens and
// reuses each token until it nears expiry.
type MintingSource struct {
	cfg MintingConfig

	mu        sync.Mutex
	token     string
	refreshAt time.Time
}

// NewMintingSource validates the signing configuration.
func NewMintingSource(cfg MintingConfig) (*MintingSource, error) {
	if strings.TrimSpace(cfg.Issuer) == "" {
		return nil, errors.New("token issuer is required")
	}
	if strings.TrimSpace(cfg.Audience) == "" {
		return nil, errors.New("token audience is required")
	}
	if len(cfg.Key) != ed25519.PrivateKeySize {
		return nil, fmt.Errorf("signing key must be %d bytes", ed25519.PrivateKeySize)
	}
	if cfg.TTL <= 0 {
		return nil, errors.New("token ttl must be positive")
	}
	if cfg.Now == nil {
		cfg.Now = time.Now
	}
	return &MintingSource{cfg: cfg}, nil
}

// Token returns a valid bearer token, minting a fresh one when the
// cached token is within a quarter of its TTL from expiry.
func (s *MintingSource) Token(context.Context) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := s.cfg.Now().UTC()
	if s.token != "" && now.Before(s.refreshAt) {
		return s.token, nil
	}

	expires := now.Add(s.cfg.TTL)
	claims := accessClaims{
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    s.cfg.Issuer,
			Subject:   s.cfg.ApplicationID,
			Audience:  jwt.ClaimStrings{s.cfg.Audience},
			ExpiresAt: jwt.NewNumericDate(expires),
			IssuedAt:  jwt.NewNumericDate(now),
			ID:        uuid.NewString(),
		},
		ApplicationID: s.cfg.ApplicationID,
		ActAs:         s.cfg.ActAs,
		ReadAs:        s.cfg.ReadAs,
	}
	token, err := jwt.NewWithClaims(jwt.SigningMethodEdDSA, claims).SignedString(s.cfg.Key)
	if err != nil {
		return "", fmt.Errorf("sign access token: %w", err)
	}
	s.token = token
	s.refreshAt = expires.Add(-s.cfg.TTL / 4)
	return token, nil
}

// DecodeSigningKey parses a base64 Ed25519 seed or private key.
func DecodeSigningKey(value string) (ed25519.PrivateKey, error) {
	raw, err := decodeBase64(strings.TrimSpace(value))
	if err != nil {
		return nil, fmt.Errorf("decode signing key: %w", err)
	}
	switch len(raw) {
	case ed25519.SeedSize:
		return ed25519.NewKeyFromSeed(raw), nil
	case ed25519.PrivateKeySize:
		return ed25519.PrivateKey(raw), nil
	default:
		return nil, fmt.Errorf("signing key must be %d or %d bytes, got %d",
			ed25519.SeedSize, ed25519.PrivateKeySize, len(raw))
	}
}

func decodeBase64(value string) ([]byte, error) {
	if value == "" {
		return nil, errors.New("empty base64 value")
	}
	decoded, err := base64.RawStdEncoding.DecodeString(value)
	if err == nil {
		return decoded, nil
	}
	return base64.StdEncoding.DecodeString(value)
}

// bearerCredentials attaches the token source's token as gRPC request
// metadata.
type bearerCredentials struct {
	source TokenSource
}

func (c bearerCredentials) GetRequestMetadata(ctx context.Context, _ ...string) (map[string]string, error) {
	token, err := c.source.Token(ctx)
	if err != nil {
		return nil, err
	}
	if token == "" {
		return nil, nil
	}
	return map[string]string{"authorization": "Bearer " + token}, nil
}

// RequireTransportSecurity is false: local deployments run plaintext
// and the node accepts bearer metadata either way.
func (c bearerCredentials) RequireTransportSecurity() bool {
	return false
}
