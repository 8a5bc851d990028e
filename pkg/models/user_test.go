package models

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestProviderValid(t *testing.T) {
	assert.True(t, ProviderGoogle.Valid())
	assert.True(t, ProviderLinkedIn.Valid())
	assert.True(t, ProviderLocal.Valid())
	assert.False(t, Provider("github").Valid())
	assert.False(t, Provider("").Valid())
}

// Credential and token material must never appear in serialized users
func TestUserJSONHidesSecrets(t *testing.T) {
	now := time.Now()
	u := User{
		ID:                "user-1",
		Name:              "Alice",
		Email:             "alice@example.com",
		PasswordHash:      "bcrypt-hash",
		Provider:          ProviderLocal,
		ProviderID:        "ext-1",
		ResetTokenHash:    "token-hash",
		ResetTokenExpires: &now,
	}

	raw, err := json.Marshal(u)
	require.NoError(t, err)

	var decoded map[string]interface{}
	require.NoError(t, json.Unmarshal(raw, &decoded))

	assert.NotContains(t, string(raw), "bcrypt-hash")
	assert.NotContains(t, string(raw), "token-hash")
	assert.NotContains(t, string(raw), "ext-1")
	assert.Equal(t, "alice@example.com", decoded["email"])
	assert.Contains(t, decoded, "hasVoted")
	assert.Contains(t, decoded, "profilePicture")
}

func TestVoterProjection(t *testing.T) {
	now := time.Now()
	u := User{
		ID:           "user-1",
		Name:         "Alice",
		Email:        "alice@example.com",
		PasswordHash: "hash",
		AvatarURL:    "https://img/a.png",
		LinkedInURL:  "https://linkedin.com/in/alice",
		HasVoted:     true,
		VotedAt:      &now,
	}

	v := u.PublicVoter()
	raw, err := json.Marshal(v)
	require.NoError(t, err)

	assert.NotContains(t, string(raw), "email")
	assert.NotContains(t, string(raw), "hash")
	assert.Contains(t, string(raw), "linkedin")
	assert.Contains(t, string(raw), "profilePicture")
}

func TestIsLocal(t *testing.T) {
	assert.True(t, (&User{Provider: ProviderLocal}).IsLocal())
	assert.False(t, (&User{Provider: ProviderGoogle}).IsLocal())
}
