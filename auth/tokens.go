package auth

import (
	"crypto/rand"
	"crypto/sha256"
	"encoding/hex"
)

// generateRefreshToken returns 32 random bytes, hex encoded.
func generateRefreshToken() (string, error) {
	tokenBytes := make([]byte, 32)
	if _, err := rand.Read(tokenBytes); err != nil {
		return "", err
	}
	return hex.EncodeToString(tokenBytes), nil
}

// hashToken is what the user record stores in place of the refresh token.
func hashToken(token string) string {
	sum := sha256.Sum256([]byte(token))
	return hex.EncodeToString(sum[:])
}
