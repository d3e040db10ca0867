package auth

import (
	"crypto/rand"
	"encoding/hex"
)

// generateOpaqueToken returns a random 256-bit token, hex-encoded. Unlike a
// JWT it carries no claims of its own — every request round-trips through
// store.TokenStore so revocation takes effect immediately.
func generateOpaqueToken() (string, error) {
	buf := make([]byte, 32)
	if _, err := rand.Read(buf); err != nil {
		return "", err
	}
	return hex.EncodeToString(buf), nil
}
