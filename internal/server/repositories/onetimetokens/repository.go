// Package onetimetokens provides persistence for single-use tokens.
// Email verification and password reset tokens share the row shape but
// live in separate tables, so a token of one kind can never satisfy a
// lookup of the other.
package onetimetokens

import (
	"context"
	"time"

	"github.com/msavelyev/authkeeper/internal/server/models"
)

// Kind selects which single-use token table a repository operates on.
type Kind string

const (
	KindVerification Kind = "verification"
	KindReset        Kind = "reset"
)

// Repository defines operations on one category of single-use tokens.
type Repository interface {
	// Create inserts a new token row for userID.
	Create(ctx context.Context, userID, token string, expiresAt time.Time) (*models.OneTimeToken, error)

	// FindByToken returns the row holding the raw token, or
	// common.ErrorNotFound. Used/expired rows are still returned so the
	// caller can distinguish the failure reason.
	FindByToken(ctx context.Context, token string) (*models.OneTimeToken, error)

	// InvalidateActiveForUser marks every unused token of the user as used
	// and returns how many rows were touched.
	InvalidateActiveForUser(ctx context.Context, userID string, now time.Time) (int64, error)

	// MarkUsed sets used_at on a token that has not been used yet.
	// Returns common.ErrorNotFound when the row is gone or already used,
	// so used_at stays monotonic even under concurrent consumption.
	MarkUsed(ctx context.Context, id int64, usedAt time.Time) error

	// DeleteExpired removes rows past their expiry and returns the count.
	DeleteExpired(ctx context.Context, now time.Time) (int64, error)
}
