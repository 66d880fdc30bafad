// Package auth provides the signing and hashing primitives of the server:
// JWT access/refresh tokens, refresh-token digests, and password hashing.
package auth

import (
	"errors"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"

	"github.com/msavelyev/authkeeper/internal/common"
)

// Token types carried in the "typ" claim. An access token must never pass
// a refresh check and vice versa.
const (
	TokenTypeAccess  = "access"
	TokenTypeRefresh = "refresh"
)

// Claims extends the registered claim set with the token type. The user id
// travels in the standard subject claim.
type Claims struct {
	jwt.RegisteredClaims
	TokenType string `json:"typ"`
}

// TokenService issues and validates signed, time-bounded tokens (HS256).
// Services treat it as an opaque signing oracle and additionally check
// refresh tokens against the stored digest.
type TokenService struct {
	secret          []byte
	accessValidity  time.Duration
	refreshValidity time.Duration
}

// NewTokenService constructs a TokenService with the given HMAC secret and
// token lifetimes.
func NewTokenService(secret []byte, accessValidity, refreshValidity time.Duration) *TokenService {
	return &TokenService{
		secret:          secret,
		accessValidity:  accessValidity,
		refreshValidity: refreshValidity,
	}
}

// RefreshValidity returns the configured refresh token lifetime, used to
// set the expiry of the stored digest row.
func (s *TokenService) RefreshValidity() time.Duration {
	return s.refreshValidity
}

// GenerateAccessToken mints a short-lived access token for userID.
func (s *TokenService) GenerateAccessToken(userID string) (string, error) {
	return s.generate(userID, TokenTypeAccess, s.accessValidity)
}

// GenerateRefreshToken mints a long-lived refresh token for userID.
func (s *TokenService) GenerateRefreshToken(userID string) (string, error) {
	return s.generate(userID, TokenTypeRefresh, s.refreshValidity)
}

func (s *TokenService) generate(userID, tokenType string, validity time.Duration) (string, error) {
	now := time.Now()
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, Claims{
		RegisteredClaims: jwt.RegisteredClaims{
			// Timestamps have second granularity, so the jti is what keeps
			// two tokens minted in the same second from being identical.
			ID:        uuid.NewString(),
			Subject:   userID,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(validity)),
		},
		TokenType: tokenType,
	})

	return token.SignedString(s.secret)
}

// ValidateAccessToken verifies signature, expiry and type of an access token.
func (s *TokenService) ValidateAccessToken(tokenString string) bool {
	_, err := s.parse(tokenString, TokenTypeAccess)
	return err == nil
}

// ValidateRefreshToken verifies signature, expiry and type of a refresh token.
func (s *TokenService) ValidateRefreshToken(tokenString string) bool {
	_, err := s.parse(tokenString, TokenTypeRefresh)
	return err == nil
}

// GetUserIDFromToken extracts the subject from any structurally valid,
// unexpired token signed with the service secret.
func (s *TokenService) GetUserIDFromToken(tokenString string) (string, error) {
	claims := &Claims{}

	token, err := jwt.ParseWithClaims(tokenString, claims, func(t *jwt.Token) (interface{}, error) {
		return s.secret, nil
	})
	if err != nil {
		return "", common.ErrInvalidToken
	}
	if !token.Valid || claims.Subject == "" {
		return "", common.ErrInvalidToken
	}

	return claims.Subject, nil
}

func (s *TokenService) parse(tokenString, wantType string) (*Claims, error) {
	claims := &Claims{}

	token, err := jwt.ParseWithClaims(tokenString, claims, func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, errors.New("unexpected signing method")
		}
		return s.secret, nil
	})
	if err != nil {
		return nil, common.ErrInvalidToken
	}
	if !token.Valid || claims.TokenType != wantType {
		return nil, common.ErrInvalidToken
	}

	return claims, nil
}
