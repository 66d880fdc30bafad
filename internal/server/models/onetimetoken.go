package models

import "time"

// OneTimeToken is a single-use secret mailed to a user: either an email
// verification token or a password reset token, depending on which table
// the row lives in. UsedAt is monotonic — once set it is never cleared, so
// a consumed token can never validate again.
type OneTimeToken struct {
	ID        int64
	Token     string
	UserID    string
	ExpiresAt time.Time
	UsedAt    *time.Time
	CreatedAt time.Time
}

// IsUsed reports whether the token has already been consumed.
func (t *OneTimeToken) IsUsed() bool {
	return t.UsedAt != nil
}

// IsExpired reports whether the token lifetime has passed. Expiry is a
// derived check, not a stored state, so a sweep racing a validation can
// never make a live token vanish mid-check.
func (t *OneTimeToken) IsExpired() bool {
	return time.Now().After(t.ExpiresAt)
}

// IsActive reports whether the token can still be consumed.
func (t *OneTimeToken) IsActive() bool {
	return !t.IsUsed() && !t.IsExpired()
}
