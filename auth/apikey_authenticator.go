package auth

import (
	"context"
	"crypto/sha256"
	"crypto/subtle"
	"strings"

	"github.com/ebogdum/drivefs/config"
)

type keyDigest [sha256.Size]byte

// APIKeyAuthenticator implements authentication using static API keys.
// Keys are stored as SHA-256 digests and compared in constant time.
type APIKeyAuthenticator struct {
	users map[keyDigest]string
}

// NewAPIKeyAuthenticator creates a new API key authenticator
func NewAPIKeyAuthenticator(keys []config.APIKey) *APIKeyAuthenticator {
	users := make(map[keyDigest]string, len(keys))
	for _, key := range keys {
		if key.Key == "" || key.UserID == "" {
			continue
		}
		users[sha256.Sum256([]byte(key.Key))] = key.UserID
	}

	return &APIKeyAuthenticator{
		users: users,
	}
}

// Authenticate validates a token and returns the associated user ID
func (a *APIKeyAuthenticator) Authenticate(ctx context.Context, token string) (string, error) {
	// Remove "Bearer " prefix if present
	token = strings.TrimPrefix(token, "Bearer ")
	token = strings.TrimSpace(token)

	if token == "" {
		return "", ErrAuthenticationFailed
	}

	digest := keyDigest(sha256.Sum256([]byte(token)))
	for candidate, userID := range a.users {
		if subtle.ConstantTimeCompare(candidate[:], digest[:]) == 1 {
			return userID, nil
		}
	}

	return "", ErrAuthenticationFailed
}
