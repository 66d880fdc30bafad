package services

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/msavelyev/authkeeper/internal/common"
	"github.com/msavelyev/authkeeper/internal/dbx"
	"github.com/msavelyev/authkeeper/internal/logging"
	"github.com/msavelyev/authkeeper/internal/server/auth"
	"github.com/msavelyev/authkeeper/internal/server/events"
	"github.com/msavelyev/authkeeper/internal/server/repositories/repomanager"
)

// PasswordResetService manages token-based password resets and
// authenticated password changes. Both paths revoke every refresh token
// of the user before the new password takes effect.
type PasswordResetService struct {
	db            *sql.DB
	repomanager   repomanager.RepositoryManager
	hasher        auth.PasswordHasher
	publisher     events.Publisher
	logger        logging.Logger
	tokenValidity time.Duration
}

// NewPasswordResetService constructs a PasswordResetService.
func NewPasswordResetService(
	db *sql.DB,
	m repomanager.RepositoryManager,
	hasher auth.PasswordHasher,
	publisher events.Publisher,
	logger logging.Logger,
	tokenValidity time.Duration,
) *PasswordResetService {
	return &PasswordResetService{
		db:            db,
		repomanager:   m,
		hasher:        hasher,
		publisher:     publisher,
		logger:        logger,
		tokenValidity: tokenValidity,
	}
}

// RequestPasswordReset issues a reset token for the account with the
// given email and publishes a ResetPasswordRequested event. An unknown
// email is a silent no-op so the endpoint does not reveal whether an
// account exists.
func (s *PasswordResetService) RequestPasswordReset(ctx context.Context, email string) error {
	user, err := s.repomanager.Users(s.db).GetByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, common.ErrorNotFound) {
			return nil
		}
		return common.ErrorInternal
	}

	token, err := common.MakeRandHexString(32)
	if err != nil {
		return common.ErrorInternal
	}

	if err := dbx.WithTx(ctx, s.db, nil, func(ctx context.Context, tx dbx.DBTX) error {
		repo := s.repomanager.ResetTokens(tx)
		if _, err := repo.InvalidateActiveForUser(ctx, user.ID, time.Now()); err != nil {
			return err
		}
		_, err := repo.Create(ctx, user.ID, token, time.Now().Add(s.tokenValidity))
		return err
	}); err != nil {
		s.logger.Error(ctx, "error creating reset token", "error", err)
		return common.ErrorInternal
	}

	s.publisher.Publish(ctx, events.ResetPasswordRequested{
		UserID:     user.ID,
		Email:      user.Email,
		Username:   user.Username,
		ResetToken: token,
	})

	return nil
}

// ResetPassword consumes a reset token and replaces the user's password.
// The token is marked used, every refresh token of the user is revoked,
// and the password digest is swapped, all in one transaction. Reusing the
// current password yields common.ErrorSamePassword; unknown, used, and
// expired tokens yield an error matching common.ErrInvalidToken.
func (s *PasswordResetService) ResetPassword(ctx context.Context, token, newPassword string) error {
	row, err := findRedeemableToken(ctx, s.repomanager.ResetTokens(s.db), token)
	if err != nil {
		return err
	}

	user, err := s.repomanager.Users(s.db).GetByID(ctx, row.UserID)
	if err != nil {
		if errors.Is(err, common.ErrorNotFound) {
			return fmt.Errorf("%w: unknown token", common.ErrInvalidToken)
		}
		return common.ErrorInternal
	}

	if s.hasher.Verify(newPassword, user.HashedPassword) {
		return common.ErrorSamePassword
	}

	hashed, err := s.hasher.Hash(newPassword)
	if err != nil {
		return fmt.Errorf("error hashing password: %w", err)
	}

	if err := dbx.WithTx(ctx, s.db, nil, func(ctx context.Context, tx dbx.DBTX) error {
		if err := s.repomanager.ResetTokens(tx).MarkUsed(ctx, row.ID, time.Now()); err != nil {
			if errors.Is(err, common.ErrorNotFound) {
				return fmt.Errorf("%w: already used", common.ErrInvalidToken)
			}
			return err
		}
		if err := s.repomanager.RefreshTokens(tx).DeleteAllForUser(ctx, user.ID); err != nil {
			return err
		}
		return s.repomanager.Users(tx).UpdatePassword(ctx, user.ID, hashed)
	}); err != nil {
		if errors.Is(err, common.ErrInvalidToken) {
			return err
		}
		s.logger.Error(ctx, "error resetting password", "error", err)
		return common.ErrorInternal
	}

	return nil
}

// ChangePassword replaces the password of an authenticated user after
// checking the old one. All sessions are revoked before the new digest is
// written, so a stolen refresh token dies with the old password.
func (s *PasswordResetService) ChangePassword(ctx context.Context, userID, oldPassword, newPassword string) error {
	user, err := s.repomanager.Users(s.db).GetByID(ctx, userID)
	if err != nil {
		if errors.Is(err, common.ErrorNotFound) {
			return common.ErrorUserNotFound
		}
		return common.ErrorInternal
	}

	if !s.hasher.Verify(oldPassword, user.HashedPassword) {
		return common.ErrorInvalidCredentials
	}
	if oldPassword == newPassword {
		return common.ErrorSamePassword
	}

	hashed, err := s.hasher.Hash(newPassword)
	if err != nil {
		return fmt.Errorf("error hashing password: %w", err)
	}

	if err := dbx.WithTx(ctx, s.db, nil, func(ctx context.Context, tx dbx.DBTX) error {
		if err := s.repomanager.RefreshTokens(tx).DeleteAllForUser(ctx, user.ID); err != nil {
			return err
		}
		return s.repomanager.Users(tx).UpdatePassword(ctx, user.ID, hashed)
	}); err != nil {
		s.logger.Error(ctx, "error changing password", "error", err)
		return common.ErrorInternal
	}

	return nil
}

// CleanupExpiredTokens removes reset tokens past their expiry.
func (s *PasswordResetService) CleanupExpiredTokens(ctx context.Context) (int64, error) {
	return s.repomanager.ResetTokens(s.db).DeleteExpired(ctx, time.Now())
}
