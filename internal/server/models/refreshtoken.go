package models

import "time"

// RefreshToken stores only the digest of a refresh token handed to a
// client; the raw value never reaches the database. A row disappears on
// rotation, logout, or any password change.
type RefreshToken struct {
	ID          int64
	UserID      string
	HashedToken string
	ExpiresAt   time.Time
	CreatedAt   time.Time
}

// IsExpired reports whether the token lifetime has passed.
func (t *RefreshToken) IsExpired() bool {
	return time.Now().After(t.ExpiresAt)
}
