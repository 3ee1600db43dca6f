package utils

import (
	"crypto/rand"
	"encoding/base64"
)

// GenerateToken returns a 32-byte random token, base64url encoded. Used for
// session tokens, email verification and password reset links.
func GenerateToken() (string, error) {
	b := make([]byte, 32)
	if _, err := rand.Read(b); err != nil {
		return "", err
	}
	return base64.URLEncoding.EncodeToString(b), nil
}
