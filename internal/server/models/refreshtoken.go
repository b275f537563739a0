package models

import "time"

// RefreshToken is the server-side record backing one issued refresh token.
// ID is embedded in the signed token as its jti; records are never updated,
// only created and deleted.
type RefreshToken struct {
	ID        string
	UserID    string
	ExpiresAt time.Time
	CreatedAt time.Time
}

// Expired reports whether the record is no longer usable at now.
func (t *RefreshToken) Expired(now time.Time) bool {
	return !now.Before(t.ExpiresAt)
}
