package domain

import "time"

// TokenPair holds the current refresh/access token pair. QuickBooks rotates
// the refresh token on every exchange; Rotated is true exactly when the
// provider returned a refresh token different from the one that was sent,
// which signals that persisted state must be updated.
type TokenPair struct {
	RefreshToken string
	AccessToken  string
	Rotated      bool
}

// Grant is the OAuth authorization grant the connector was configured with.
type Grant struct {
	RefreshToken string
	CreatedAt    time.Time
}

// PersistedToken is the refresh token saved by a previous run, with the
// timestamp recorded at that run's start.
type PersistedToken struct {
	RefreshToken string
	SavedAt      time.Time
}

// TokenSource tells where the authoritative refresh token came from.
type TokenSource int

const (
	// TokenFromGrant means the grant's token won the timestamp comparison.
	TokenFromGrant TokenSource = iota
	// TokenFromState means a previous run rotated the token and its
	// persisted copy is newer than the grant.
	TokenFromState
	// TokenFromGrantNoState means no persisted timestamp exists (first run
	// or state lost); callers should log a warning.
	TokenFromGrantNoState
)

// ResolveRefreshToken picks the authoritative refresh token by comparing the
// grant's creation time with the persisted state's save time. The newer
// credential wins: a rotation performed by this connector on a previous run
// invalidates the grant's original token.
func ResolveRefreshToken(grant Grant, persisted *PersistedToken) (string, TokenSource) {
	if persisted == nil || persisted.SavedAt.IsZero() {
		return grant.RefreshToken, TokenFromGrantNoState
	}
	if persisted.SavedAt.After(grant.CreatedAt) {
		return persisted.RefreshToken, TokenFromState
	}
	return grant.RefreshToken, TokenFromGrant
}
