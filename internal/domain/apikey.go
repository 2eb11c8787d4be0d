package domain

import "time"

// APIKey authenticates a client and binds it to the user whose schedule it may touch.
//
// Key format: {type}-{service}-{version}-{short}-{long}. Only the short token is
// stored in clear for lookup; the long secret is stored as a BLAKE2b-256 hash and
// the full key is shown once at creation.
type APIKey struct {
	ID             string
	UserID         string // opaque owner id, scopes every request made with this key
	KeyType        string // "sk" = secret key
	Service        string // e.g. "focus"
	Version        string // e.g. "v1"
	ShortToken     string
	LongSecretHash string
	Name           string
	IsActive       bool
	CreatedAt      time.Time
	LastUsedAt     *time.Time
	ExpiresAt      *time.Time
}
