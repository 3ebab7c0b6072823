package domain

import (
	"time"

	"github.com/google/uuid"
)

// expirySkew treats tokens expiring within this window as already expired so a
// request never starts with a token that dies mid-flight.
const expirySkew = 5 * time.Minute

// CredentialRecord holds a user's delegated mailbox credential. It is created
// on first successful authorization, mutated in place on every refresh, and
// deleted when a refresh fails irrecoverably.
type CredentialRecord struct {
	UserID        uuid.UUID `json:"user_id"`
	AccessToken   string    `json:"-"`
	RefreshToken  string    `json:"-"`
	TokenEndpoint string    `json:"token_endpoint"`
	ClientID      string    `json:"client_id"`
	Scopes        []string  `json:"scopes"`
	ExpiresAt     time.Time `json:"expires_at"`
	CreatedAt     time.Time `json:"created_at"`
	UpdatedAt     time.Time `json:"updated_at"`
}

// Valid reports whether the access token can be used as-is.
func (r *CredentialRecord) Valid() bool {
	if r.AccessToken == "" {
		return false
	}
	if r.ExpiresAt.IsZero() {
		return true
	}
	return time.Until(r.ExpiresAt) > expirySkew
}

// Refreshable reports whether an expired record can still be refreshed.
// A record with a refresh token but no valid access token is refreshable,
// not invalid.
func (r *CredentialRecord) Refreshable() bool {
	return r.RefreshToken != ""
}

// Dead reports whether the record is unusable and must be discarded, forcing
// re-authorization.
func (r *CredentialRecord) Dead() bool {
	return !r.Valid() && !r.Refreshable()
}
