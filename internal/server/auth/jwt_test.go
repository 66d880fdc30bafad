package auth

import (
	"testing"
	"time"

	"github.com/msavelyev/authkeeper/internal/common"
)

func newTestService() *TokenService {
	return NewTokenService([]byte("super-secret"), time.Hour, 24*time.Hour)
}

func TestGenerateAndParse_Success(t *testing.T) {
	t.Parallel()

	s := newTestService()
	userID := "user-123"

	tok, err := s.GenerateAccessToken(userID)
	if err != nil {
		t.Fatalf("GenerateAccessToken error: %v", err)
	}

	gotUserID, err := s.GetUserIDFromToken(tok)
	if err != nil {
		t.Fatalf("GetUserIDFromToken error: %v", err)
	}
	if gotUserID != userID {
		t.Fatalf("userID mismatch: got %q want %q", gotUserID, userID)
	}
}

func TestValidateRefreshToken_TypeMismatch(t *testing.T) {
	t.Parallel()

	s := newTestService()

	access, err := s.GenerateAccessToken("u1")
	if err != nil {
		t.Fatalf("GenerateAccessToken error: %v", err)
	}
	refresh, err := s.GenerateRefreshToken("u1")
	if err != nil {
		t.Fatalf("GenerateRefreshToken error: %v", err)
	}

	if s.ValidateRefreshToken(access) {
		t.Fatalf("access token must not validate as refresh token")
	}
	if !s.ValidateRefreshToken(refresh) {
		t.Fatalf("refresh token must validate as refresh token")
	}
	if s.ValidateAccessToken(refresh) {
		t.Fatalf("refresh token must not validate as access token")
	}
}

func TestGenerate_TokensAreUnique(t *testing.T) {
	t.Parallel()

	s := newTestService()

	// Tokens minted back to back land in the same second, so without the
	// jti claim they would be byte-identical signed strings.
	seen := make(map[string]bool)
	for i := 0; i < 10; i++ {
		tok, err := s.GenerateRefreshToken("u1")
		if err != nil {
			t.Fatalf("GenerateRefreshToken error: %v", err)
		}
		if seen[tok] {
			t.Fatalf("duplicate token minted: %q", tok)
		}
		seen[tok] = true
	}
}

func TestGetUserIDFromToken_Expired(t *testing.T) {
	t.Parallel()

	s := NewTokenService([]byte("secret"), -1*time.Second, -1*time.Second)

	tok, err := s.GenerateAccessToken("u1")
	if err != nil {
		t.Fatalf("GenerateAccessToken error: %v", err)
	}

	if _, err = s.GetUserIDFromToken(tok); err != common.ErrInvalidToken {
		t.Fatalf("expected common.ErrInvalidToken, got %v", err)
	}
}

func TestGetUserIDFromToken_WrongSecret(t *testing.T) {
	t.Parallel()

	tok, err := newTestService().GenerateRefreshToken("u2")
	if err != nil {
		t.Fatalf("GenerateRefreshToken error: %v", err)
	}

	other := NewTokenService([]byte("wrong-secret"), time.Hour, time.Hour)
	if _, err = other.GetUserIDFromToken(tok); err == nil {
		t.Fatalf("expected error for invalid signature, got nil")
	}
	if other.ValidateRefreshToken(tok) {
		t.Fatalf("token signed with another secret must not validate")
	}
}

func TestGetUserIDFromToken_MalformedString(t *testing.T) {
	t.Parallel()

	if _, err := newTestService().GetUserIDFromToken("not.a.jwt"); err == nil {
		t.Fatalf("expected error for malformed token, got nil")
	}
}
