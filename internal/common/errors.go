// Package common defines shared constants and sentinel errors used across
// the AuthKeeper server layers. Callers should use errors.Is to match
// these values.
package common

import "errors"

var (
	// Repository-level errors.
	ErrorNotFound = errors.New("not found")

	// Service-level errors (generic/internal flow control).
	ErrorInternal    = errors.New("internal error")
	ErrorRateLimited = errors.New("too many requests")

	// Registration / account errors.
	ErrorAlreadyExists    = errors.New("user already exists")
	ErrorUserNotFound     = errors.New("user not found")
	ErrorEmailNotVerified = errors.New("email not verified")

	// Credential errors. ErrorInvalidCredentials covers both an unknown
	// email and a wrong password so callers cannot tell which half failed.
	ErrorInvalidCredentials = errors.New("invalid credentials")
	ErrorSamePassword       = errors.New("new password must differ from the current password")

	// Token lifecycle errors. ErrInvalidToken is the single programmatic
	// kind for not-found/used/expired; services wrap it with a
	// human-readable sub-reason.
	ErrInvalidToken = errors.New("invalid token")
)
