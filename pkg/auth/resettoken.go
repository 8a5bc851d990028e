package auth

import (
	"crypto/rand"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"time"
)

// ResetTokenTTL is how long a password reset link stays valid
const ResetTokenTTL = time.Hour

// resetTokenLength is the number of random bytes per token (256 bits)
const resetTokenLength = 32

// GenerateResetToken creates a single-use password reset token. The plaintext
// token goes into the reset link; only its SHA-256 hash is stored, so a
// database leak does not expose live reset links.
func GenerateResetToken() (token string, tokenHash string, err error) {
	buf := make([]byte, resetTokenLength)
	if _, err := rand.Read(buf); err != nil {
		return "", "", fmt.Errorf("failed to generate reset token: %w", err)
	}

	token = hex.EncodeToString(buf)
	return token, HashResetToken(token), nil
}

// HashResetToken computes the storage hash of a reset token for lookup
func HashResetToken(token string) string {
	sum := sha256.Sum256([]byte(token))
	return hex.EncodeToString(sum[:])
}
