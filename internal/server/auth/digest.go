package auth

import (
	"crypto/sha256"
	"crypto/subtle"
	"encoding/base64"
)

// HashToken returns the base64-encoded SHA-256 digest of a raw token.
// Only the digest is persisted, so a leaked database never yields a token
// that can be replayed.
func HashToken(token string) string {
	sum := sha256.Sum256([]byte(token))
	return base64.StdEncoding.EncodeToString(sum[:])
}

// TokenDigestEqual compares a raw token against a stored digest in
// constant time.
func TokenDigestEqual(token, digest string) bool {
	if token == "" || digest == "" {
		return false
	}
	return subtle.ConstantTimeCompare([]byte(HashToken(token)), []byte(digest)) == 1
}
