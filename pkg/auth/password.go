// Package auth covers credential handling: password hashing, password reset
// tokens, and the middleware that resolves a session cookie to a caller
// identity.
package auth

import (
	"errors"
	"fmt"

	"golang.org/x/crypto/bcrypt"
)

// MinPasswordLength applies to registration and reset alike
const MinPasswordLength = 6

// bcryptCost matches the work factor the account base was created with
const bcryptCost = 10

// ErrPasswordTooShort is returned for passwords under MinPasswordLength
var ErrPasswordTooShort = errors.New("password must be at least 6 characters")

// HashPassword derives a bcrypt hash for storage
func HashPassword(password string) (string, error) {
	if len(password) < MinPasswordLength {
		return "", ErrPasswordTooShort
	}
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcryptCost)
	if err != nil {
		return "", fmt.Errorf("failed to hash password: %w", err)
	}
	return string(hash), nil
}

// CheckPassword compares a candidate password against a stored hash. An empty
// stored hash (OAuth-provisioned account) never matches.
func CheckPassword(hash, password string) bool {
	if hash == "" {
		return false
	}
	return bcrypt.CompareHashAndPassword([]byte(hash), []byte(password)) == nil
}
