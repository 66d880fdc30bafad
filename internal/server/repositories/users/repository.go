// Package users declares the repository contract for account persistence.
package users

import (
	"context"

	"github.com/msavelyev/authkeeper/internal/server/models"
)

// Repository defines persistence operations for users.
type Repository interface {
	// Create inserts a new user. The caller supplies the id and the
	// password digest; email uniqueness is enforced by the store.
	Create(ctx context.Context, user *models.User) (*models.User, error)

	// GetByEmail returns the user with the given email (case-insensitive).
	// Returns common.ErrorNotFound when absent.
	GetByEmail(ctx context.Context, email string) (*models.User, error)

	// GetByID returns the user with the given id, or common.ErrorNotFound.
	GetByID(ctx context.Context, id string) (*models.User, error)

	// ExistsByEmailOrUsername reports whether any user matches the email
	// or the username, compared case-insensitively.
	ExistsByEmailOrUsername(ctx context.Context, email, username string) (bool, error)

	// UpdatePassword replaces the stored password digest.
	UpdatePassword(ctx context.Context, id, hashedPassword string) error

	// MarkEmailVerified flips email_verified to true.
	MarkEmailVerified(ctx context.Context, id string) error
}
