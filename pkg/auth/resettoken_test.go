package auth

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGenerateResetToken(t *testing.T) {
	token, hash, err := GenerateResetToken()
	require.NoError(t, err)

	// 32 random bytes hex encoded
	assert.Len(t, token, 64)
	assert.NotEqual(t, token, hash)
	assert.Equal(t, HashResetToken(token), hash)
}

func TestGenerateResetTokenUnique(t *testing.T) {
	a, _, err := GenerateResetToken()
	require.NoError(t, err)
	b, _, err := GenerateResetToken()
	require.NoError(t, err)
	assert.NotEqual(t, a, b)
}

func TestHashResetTokenDeterministic(t *testing.T) {
	assert.Equal(t, HashResetToken("abc"), HashResetToken("abc"))
	assert.NotEqual(t, HashResetToken("abc"), HashResetToken("abd"))
}
