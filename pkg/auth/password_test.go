package auth

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestHashAndCheckPassword(t *testing.T) {
	hash, err := HashPassword("secret123")
	require.NoError(t, err)
	assert.NotEqual(t, "secret123", hash)

	assert.True(t, CheckPassword(hash, "secret123"))
	assert.False(t, CheckPassword(hash, "wrong"))
}

func TestHashPasswordTooShort(t *testing.T) {
	_, err := HashPassword("short")
	assert.ErrorIs(t, err, ErrPasswordTooShort)

	_, err = HashPassword("")
	assert.ErrorIs(t, err, ErrPasswordTooShort)
}

// OAuth-provisioned accounts store no hash; they must never pass a password
// check, or local login would bypass the provider.
func TestCheckPasswordEmptyHash(t *testing.T) {
	assert.False(t, CheckPassword("", "anything"))
	assert.False(t, CheckPassword("", ""))
}
