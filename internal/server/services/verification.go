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
	"github.com/msavelyev/authkeeper/internal/server/events"
	"github.com/msavelyev/authkeeper/internal/server/models"
	"github.com/msavelyev/authkeeper/internal/server/repositories/repomanager"
)

// EmailVerificationService manages the lifecycle of email verification
// tokens: issuing, resending, and consuming them.
type EmailVerificationService struct {
	db            *sql.DB
	repomanager   repomanager.RepositoryManager
	publisher     events.Publisher
	logger        logging.Logger
	tokenValidity time.Duration
}

// NewEmailVerificationService constructs an EmailVerificationService.
func NewEmailVerificationService(
	db *sql.DB,
	m repomanager.RepositoryManager,
	publisher events.Publisher,
	logger logging.Logger,
	tokenValidity time.Duration,
) *EmailVerificationService {
	return &EmailVerificationService{
		db:            db,
		repomanager:   m,
		publisher:     publisher,
		logger:        logger,
		tokenValidity: tokenValidity,
	}
}

// CreateVerificationToken invalidates any active verification tokens of
// the user with the given email and issues a fresh one, so at most one
// token is redeemable at a time. Returns the raw token, or
// common.ErrorUserNotFound for an unmatched email.
func (s *EmailVerificationService) CreateVerificationToken(ctx context.Context, email string) (string, error) {
	user, err := s.repomanager.Users(s.db).GetByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, common.ErrorNotFound) {
			return "", common.ErrorUserNotFound
		}
		return "", common.ErrorInternal
	}
	return s.issueForUser(ctx, user.ID)
}

func (s *EmailVerificationService) issueForUser(ctx context.Context, userID string) (string, error) {
	token, err := common.MakeRandHexString(32)
	if err != nil {
		return "", common.ErrorInternal
	}

	if err := dbx.WithTx(ctx, s.db, nil, func(ctx context.Context, tx dbx.DBTX) error {
		repo := s.repomanager.VerificationTokens(tx)
		if _, err := repo.InvalidateActiveForUser(ctx, userID, time.Now()); err != nil {
			return err
		}
		_, err := repo.Create(ctx, userID, token, time.Now().Add(s.tokenValidity))
		return err
	}); err != nil {
		s.logger.Error(ctx, "error creating verification token", "error", err)
		return "", common.ErrorInternal
	}

	return token, nil
}

// ResendVerificationEmail issues a new verification token for the user
// with the given email and publishes a ResendVerificationRequested event.
// An already verified user still gets a fresh token persisted, but no
// event is published for them; an unknown email yields
// common.ErrorUserNotFound.
func (s *EmailVerificationService) ResendVerificationEmail(ctx context.Context, email string) error {
	user, err := s.repomanager.Users(s.db).GetByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, common.ErrorNotFound) {
			return common.ErrorUserNotFound
		}
		return common.ErrorInternal
	}

	token, err := s.issueForUser(ctx, user.ID)
	if err != nil {
		return err
	}

	if user.EmailVerified {
		return nil
	}

	s.publisher.Publish(ctx, events.ResendVerificationRequested{
		UserID:            user.ID,
		Email:             user.Email,
		Username:          user.Username,
		VerificationToken: token,
	})

	return nil
}

// VerifyEmail consumes a verification token and marks the user's email as
// verified, both in one transaction. Unknown, already used, and expired
// tokens all yield an error matching common.ErrInvalidToken.
func (s *EmailVerificationService) VerifyEmail(ctx context.Context, token string) error {
	row, err := findRedeemableToken(ctx, s.repomanager.VerificationTokens(s.db), token)
	if err != nil {
		return err
	}

	if err := dbx.WithTx(ctx, s.db, nil, func(ctx context.Context, tx dbx.DBTX) error {
		if err := s.repomanager.VerificationTokens(tx).MarkUsed(ctx, row.ID, time.Now()); err != nil {
			if errors.Is(err, common.ErrorNotFound) {
				return fmt.Errorf("%w: already used", common.ErrInvalidToken)
			}
			return err
		}
		return s.repomanager.Users(tx).MarkEmailVerified(ctx, row.UserID)
	}); err != nil {
		if errors.Is(err, common.ErrInvalidToken) {
			return err
		}
		s.logger.Error(ctx, "error verifying email", "error", err)
		return common.ErrorInternal
	}

	return nil
}

// CleanupExpiredTokens removes verification tokens past their expiry.
func (s *EmailVerificationService) CleanupExpiredTokens(ctx context.Context) (int64, error) {
	return s.repomanager.VerificationTokens(s.db).DeleteExpired(ctx, time.Now())
}

// findRedeemableToken resolves a raw single-use token to its row and
// rejects used and expired ones with a reason wrapped around
// ErrInvalidToken.
func findRedeemableToken(ctx context.Context, repo onetimetokenFinder, token string) (*models.OneTimeToken, error) {
	row, err := repo.FindByToken(ctx, token)
	if err != nil {
		if errors.Is(err, common.ErrorNotFound) {
			return nil, fmt.Errorf("%w: unknown token", common.ErrInvalidToken)
		}
		return nil, common.ErrorInternal
	}
	if row.IsUsed() {
		return nil, fmt.Errorf("%w: already used", common.ErrInvalidToken)
	}
	if row.IsExpired() {
		return nil, fmt.Errorf("%w: expired", common.ErrInvalidToken)
	}
	return row, nil
}

// onetimetokenFinder is the lookup slice of the one-time-token repository.
type onetimetokenFinder interface {
	FindByToken(ctx context.Context, token string) (*models.OneTimeToken, error)
}
