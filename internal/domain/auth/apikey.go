package auth

import (
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"crypto/subtle"
	"encoding/hex"
	"slices"

	"github.com/go-faster/errors"
)

// ScopePreview grants access to the coupon preview surface.
const ScopePreview = "offers:preview"

// ErrUnauthorized is returned when an API key is unknown or lacks a scope.
var ErrUnauthorized = errors.New("unauthorized")

// ErrKeyNotFound is returned by a Repository when no active key matches.
var ErrKeyNotFound = errors.New("api key not found")

// APIKeyInfo holds the identity and permission data for a validated API key.
type APIKeyInfo struct {
	ID      string
	KeyHash string
	Name    string
	Scopes  []string
}

// HasScope reports whether the key was granted scope.
func (i *APIKeyInfo) HasScope(scope string) bool {
	return slices.Contains(i.Scopes, scope)
}

// Repository provides lookup of API keys by their HMAC hash. FindByHash
// returns ErrKeyNotFound for unknown hashes.
type Repository interface {
	FindByHash(ctx context.Context, hash string) (*APIKeyInfo, error)
}

// Authenticator resolves raw API keys to their stored identity.
type Authenticator struct {
	keys   Repository
	pepper []byte
}

// NewAuthenticator creates an Authenticator hashing keys with pepper.
func NewAuthenticator(keys Repository, pepper []byte) *Authenticator {
	return &Authenticator{keys: keys, pepper: pepper}
}

// Hash returns the hex HMAC-SHA256 of key under pepper, as stored.
func Hash(pepper []byte, key string) string {
	mac := hmac.New(sha256.New, pepper)
	mac.Write([]byte(key))
	return hex.EncodeToString(mac.Sum(nil))
}

// Authenticate looks up key and requires it to carry scope. Unknown keys
// yield ErrUnauthorized; store failures are returned wrapped.
func (a *Authenticator) Authenticate(ctx context.Context, key, scope string) (*APIKeyInfo, error) {
	if key == "" {
		return nil, ErrUnauthorized
	}
	hash := Hash(a.pepper, key)

	info, err := a.keys.FindByHash(ctx, hash)
	if errors.Is(err, ErrKeyNotFound) {
		return nil, ErrUnauthorized
	}
	if err != nil {
		return nil, errors.Wrap(err, "find api key")
	}

	// The lookup matched on hash; compare again in constant time in case the
	// store returned a different row.
	if subtle.ConstantTimeCompare([]byte(hash), []byte(info.KeyHash)) != 1 {
		return nil, ErrUnauthorized
	}
	if !info.HasScope(scope) {
		return nil, ErrUnauthorized
	}
	return info, nil
}
