// Package events defines the domain events emitted by the auth server and
// the publisher contract used to hand them to the message bus.
package events

// UserEvent is the closed set of events emitted for downstream consumers
// (notification service etc.). The server only constructs values; it never
// branches on them.
type UserEvent interface {
	// Key returns the routing key for the event.
	Key() string
}

// UserCreated is emitted after a registration commits.
type UserCreated struct {
	UserID   string `json:"userId"`
	Email    string `json:"email"`
	Username string `json:"username"`
}

func (UserCreated) Key() string { return "user.created" }

// ResendVerificationRequested is emitted when an unverified user asks for
// a new verification mail. VerificationToken is the raw single-use token.
type ResendVerificationRequested struct {
	UserID            string `json:"userId"`
	Email             string `json:"email"`
	Username          string `json:"username"`
	VerificationToken string `json:"verificationToken"`
}

func (ResendVerificationRequested) Key() string { return "user.resend-verification" }

// ResetPasswordRequested is emitted when a known user asks for a password
// reset. ResetToken is the raw single-use token.
type ResetPasswordRequested struct {
	UserID     string `json:"userId"`
	Email      string `json:"email"`
	Username   string `json:"username"`
	ResetToken string `json:"resetToken"`
}

func (ResetPasswordRequested) Key() string { return "user.reset-password" }
