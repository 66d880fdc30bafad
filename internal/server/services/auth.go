// Package services contains server-side business logic. This file
// implements AuthService, which handles registration, login, refresh-token
// rotation, and logout.
package services

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/msavelyev/authkeeper/internal/common"
	"github.com/msavelyev/authkeeper/internal/dbx"
	"github.com/msavelyev/authkeeper/internal/logging"
	"github.com/msavelyev/authkeeper/internal/server/auth"
	"github.com/msavelyev/authkeeper/internal/server/events"
	"github.com/msavelyev/authkeeper/internal/server/models"
	"github.com/msavelyev/authkeeper/internal/server/repositories/repomanager"
)

// TokenPair bundles a short-lived access token and a long-lived refresh token.
type TokenPair struct {
	AccessToken  string
	RefreshToken string
}

// AuthenticatedUser is the result of a successful login or refresh: the
// account plus a fresh token pair. It is never persisted.
type AuthenticatedUser struct {
	User         *models.User
	AccessToken  string
	RefreshToken string
}

// AuthService provides credential-related operations:
// - Register: create users and their initial verification token
// - Login: verify credentials and mint tokens
// - Refresh: rotate refresh tokens and mint new access tokens
// - Logout: revoke one refresh token
type AuthService struct {
	db                        *sql.DB
	repomanager               repomanager.RepositoryManager
	tokens                    *auth.TokenService
	hasher                    auth.PasswordHasher
	publisher                 events.Publisher
	logger                    logging.Logger
	verificationTokenValidity time.Duration
}

// NewAuthService constructs an AuthService from its collaborators.
func NewAuthService(
	db *sql.DB,
	m repomanager.RepositoryManager,
	tokens *auth.TokenService,
	hasher auth.PasswordHasher,
	publisher events.Publisher,
	logger logging.Logger,
	verificationTokenValidity time.Duration,
) *AuthService {
	return &AuthService{
		db:                        db,
		repomanager:               m,
		tokens:                    tokens,
		hasher:                    hasher,
		publisher:                 publisher,
		logger:                    logger,
		verificationTokenValidity: verificationTokenValidity,
	}
}

// Register creates a new user with an unverified email and stores the
// initial verification token in the same transaction. The UserCreated
// event is published only after the transaction commits.
// Returns common.ErrorAlreadyExists when the email or username is taken.
func (s *AuthService) Register(ctx context.Context, email, username, password string) (*models.User, error) {
	email = strings.TrimSpace(email)
	username = strings.TrimSpace(username)

	exists, err := s.repomanager.Users(s.db).ExistsByEmailOrUsername(ctx, email, username)
	if err != nil {
		s.logger.Error(ctx, "error checking existing credentials", "error", err)
		return nil, common.ErrorInternal
	}
	if exists {
		return nil, common.ErrorAlreadyExists
	}

	hashed, err := s.hasher.Hash(password)
	if err != nil {
		return nil, fmt.Errorf("error hashing password: %w", err)
	}

	user := &models.User{
		ID:             uuid.NewString(),
		Email:          email,
		Username:       username,
		HashedPassword: hashed,
	}

	if err := dbx.WithTx(ctx, s.db, nil, func(ctx context.Context, tx dbx.DBTX) error {
		created, err := s.repomanager.Users(tx).Create(ctx, user)
		if err != nil {
			return err
		}
		user = created

		token, err := common.MakeRandHexString(32)
		if err != nil {
			return fmt.Errorf("error generating verification token: %w", err)
		}
		_, err = s.repomanager.VerificationTokens(tx).Create(ctx, user.ID, token, time.Now().Add(s.verificationTokenValidity))
		return err
	}); err != nil {
		// The existence check above races with concurrent registrations;
		// the unique indexes are the authority.
		if errors.Is(err, common.ErrorAlreadyExists) {
			return nil, common.ErrorAlreadyExists
		}
		s.logger.Error(ctx, "registration failed", "error", err)
		return nil, common.ErrorInternal
	}

	s.publisher.Publish(ctx, events.UserCreated{
		UserID:   user.ID,
		Email:    user.Email,
		Username: user.Username,
	})

	return user, nil
}

// Login verifies the email/password pair and, on success, returns the
// user with a new token pair. An unknown email and a wrong password both
// yield common.ErrorInvalidCredentials; an unverified email yields
// common.ErrorEmailNotVerified.
func (s *AuthService) Login(ctx context.Context, email, password string) (*AuthenticatedUser, error) {
	user, err := s.repomanager.Users(s.db).GetByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, common.ErrorNotFound) {
			return nil, common.ErrorInvalidCredentials
		}
		return nil, common.ErrorInternal
	}

	if !s.hasher.Verify(password, user.HashedPassword) {
		return nil, common.ErrorInvalidCredentials
	}

	if !user.EmailVerified {
		return nil, common.ErrorEmailNotVerified
	}

	pair, err := s.generateTokenPair(ctx, user.ID, s.db)
	if err != nil {
		return nil, err
	}

	return &AuthenticatedUser{
		User:         user,
		AccessToken:  pair.AccessToken,
		RefreshToken: pair.RefreshToken,
	}, nil
}

// Refresh validates a refresh token, rotates it transactionally, and
// returns the user with a fresh token pair. All failure modes of the
// presented token (bad signature, expired, unknown digest, already
// rotated) yield common.ErrInvalidToken.
func (s *AuthService) Refresh(ctx context.Context, refreshToken string) (*AuthenticatedUser, error) {
	if !s.tokens.ValidateRefreshToken(refreshToken) {
		return nil, common.ErrInvalidToken
	}
	userID, err := s.tokens.GetUserIDFromToken(refreshToken)
	if err != nil {
		return nil, common.ErrInvalidToken
	}

	user, err := s.repomanager.Users(s.db).GetByID(ctx, userID)
	if err != nil {
		if errors.Is(err, common.ErrorNotFound) {
			return nil, common.ErrInvalidToken
		}
		return nil, common.ErrorInternal
	}

	hashed := auth.HashToken(refreshToken)

	var pair *TokenPair
	if err := dbx.WithTx(ctx, s.db, nil, func(ctx context.Context, tx dbx.DBTX) error {
		deleted, err := s.repomanager.RefreshTokens(tx).DeleteByUserAndHash(ctx, userID, hashed)
		if err != nil {
			return err
		}
		if deleted == 0 {
			// Unknown digest, or a concurrent refresh with the same token
			// already rotated it. Either way the presented token is spent.
			return common.ErrInvalidToken
		}
		var genErr error
		pair, genErr = s.generateTokenPair(ctx, userID, tx)
		return genErr
	}); err != nil {
		if errors.Is(err, common.ErrInvalidToken) {
			return nil, common.ErrInvalidToken
		}
		return nil, common.ErrorInternal
	}

	return &AuthenticatedUser{
		User:         user,
		AccessToken:  pair.AccessToken,
		RefreshToken: pair.RefreshToken,
	}, nil
}

// Logout revokes the presented refresh token. It is idempotent: an
// unknown, expired, or malformed token is not an error.
func (s *AuthService) Logout(ctx context.Context, refreshToken string) error {
	userID, err := s.tokens.GetUserIDFromToken(refreshToken)
	if err != nil {
		return nil
	}

	if _, err := s.repomanager.RefreshTokens(s.db).DeleteByUserAndHash(ctx, userID, auth.HashToken(refreshToken)); err != nil {
		s.logger.Warn(ctx, "logout: error deleting refresh token", "error", err)
	}
	return nil
}

// CleanupExpiredRefreshTokens removes refresh-token rows past their expiry.
func (s *AuthService) CleanupExpiredRefreshTokens(ctx context.Context) (int64, error) {
	return s.repomanager.RefreshTokens(s.db).DeleteExpired(ctx, time.Now())
}

func (s *AuthService) generateTokenPair(ctx context.Context, userID string, tx dbx.DBTX) (*TokenPair, error) {
	access, err := s.tokens.GenerateAccessToken(userID)
	if err != nil {
		return nil, common.ErrorInternal
	}
	refresh, err := s.tokens.GenerateRefreshToken(userID)
	if err != nil {
		return nil, common.ErrorInternal
	}
	if err := s.repomanager.RefreshTokens(tx).Create(ctx, userID, auth.HashToken(refresh), s.tokens.RefreshValidity()); err != nil {
		return nil, common.ErrorInternal
	}
	return &TokenPair{AccessToken: access, RefreshToken: refresh}, nil
}
