// Package refreshtokens declares the repository contract for refresh-token
// digests in persistent storage.
package refreshtokens

import (
	"context"
	"time"

	"github.com/msavelyev/authkeeper/internal/server/models"
)

// Repository defines operations for issuing, retrieving, and revoking
// refresh tokens. Only digests are stored; a raw token never reaches the
// implementation.
type Repository interface {
	// Create stores a digest for userID with an expiry of now+validity.
	Create(ctx context.Context, userID, hashedToken string, validity time.Duration) error

	// FindByUserAndHash looks up the digest row for (userID, hashedToken).
	// Implementations return common.ErrorNotFound when absent.
	FindByUserAndHash(ctx context.Context, userID, hashedToken string) (*models.RefreshToken, error)

	// DeleteByUserAndHash removes the digest row and returns how many rows
	// were deleted. A zero count under a transaction means another caller
	// already consumed the token.
	DeleteByUserAndHash(ctx context.Context, userID, hashedToken string) (int64, error)

	// DeleteAllForUser revokes every refresh token of a user.
	DeleteAllForUser(ctx context.Context, userID string) error

	// DeleteExpired removes rows whose expiry is before now and returns
	// the number deleted.
	DeleteExpired(ctx context.Context, now time.Time) (int64, error)
}
