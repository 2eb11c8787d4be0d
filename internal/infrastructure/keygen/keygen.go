// Package keygen creates and parses API keys of the form
// {type}-{service}-{version}-{short}-{long}, e.g. sk-focus-v1-a3f5d8c2b4e6-<43 chars>.
//
// The short token is a lookup handle derived from the long secret; only a
// BLAKE2b-256 digest of the long secret is ever stored.
package keygen

import (
	"crypto/rand"
	"encoding/base64"
	"encoding/hex"
	"fmt"
	"strings"

	"golang.org/x/crypto/blake2b"

	"github.com/rezkam/focusflow/internal/domain"
)

const (
	secretBytes     = 32 // 43 chars of base64url
	shortTokenBytes = 6  // 12 hex chars
	keyParts        = 5
)

// APIKeyParts represents the components of an API key.
type APIKeyParts struct {
	KeyType    string
	Service    string
	Version    string
	ShortToken string
	LongSecret string
	FullKey    string
}

// GenerateAPIKey creates a fresh key for the given prefix parts. None of them may
// contain a hyphen, since the hyphen separates the parts.
func GenerateAPIKey(keyType, service, version string) (*APIKeyParts, error) {
	for _, p := range []string{keyType, service, version} {
		if p == "" || strings.Contains(p, "-") {
			return nil, fmt.Errorf("%w: prefix part %q", domain.ErrInvalidAPIKeyFormat, p)
		}
	}

	raw := make([]byte, secretBytes)
	if _, err := rand.Read(raw); err != nil {
		return nil, fmt.Errorf("failed to generate random bytes: %w", err)
	}
	secret := base64.RawURLEncoding.EncodeToString(raw)

	digest := blake2b.Sum256([]byte(secret))
	short := hex.EncodeToString(digest[:shortTokenBytes])

	return &APIKeyParts{
		KeyType:    keyType,
		Service:    service,
		Version:    version,
		ShortToken: short,
		LongSecret: secret,
		FullKey:    strings.Join([]string{keyType, service, version, short, secret}, "-"),
	}, nil
}

// ParseAPIKey splits a key into its parts. The long secret is base64url and may
// itself contain hyphens, so only the first four separators count.
func ParseAPIKey(apiKey string) (*APIKeyParts, error) {
	parts := strings.SplitN(apiKey, "-", keyParts)
	if len(parts) != keyParts {
		return nil, fmt.Errorf("%w: expected %d parts, got %d", domain.ErrInvalidAPIKeyFormat, keyParts, len(parts))
	}
	for i, p := range parts {
		if p == "" {
			return nil, fmt.Errorf("%w: part %d is empty", domain.ErrInvalidAPIKeyFormat, i)
		}
	}

	return &APIKeyParts{
		KeyType:    parts[0],
		Service:    parts[1],
		Version:    parts[2],
		ShortToken: parts[3],
		LongSecret: parts[4],
		FullKey:    apiKey,
	}, nil
}

// DisplayKey returns the key with its secret hidden, e.g. "sk-focus-v1-a3f5d8c2b4e6-****".
func (k *APIKeyParts) DisplayKey() string {
	return strings.Join([]string{k.KeyType, k.Service, k.Version, k.ShortToken, "****"}, "-")
}

// HashSecret returns the hex BLAKE2b-256 digest of secret.
func HashSecret(secret string) string {
	digest := blake2b.Sum256([]byte(secret))
	return hex.EncodeToString(digest[:])
}

// MaskAPIKey returns a loggable form of a key that reveals only its type.
func MaskAPIKey(apiKey string) string {
	parts, err := ParseAPIKey(apiKey)
	if err != nil {
		return "***"
	}
	return parts.KeyType + "-***"
}
