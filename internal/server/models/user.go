// Package models contains the persistent entities of the auth server.
package models

import "time"

// User is the account entity. HashedPassword holds a bcrypt digest and is
// never exposed through the API; EmailVerified flips to true exactly once
// when a verification token is consumed.
type User struct {
	ID             string
	Email          string
	Username       string
	HashedPassword string
	EmailVerified  bool
	CreatedAt      time.Time
}
