package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func setRequiredEnv(t *testing.T) {
	t.Helper()
	t.Setenv("EBALLOT_POSTGRES_URL", "postgres://localhost/eballot_test")
	t.Setenv("EBALLOT_SESSION_SECRET", "test-secret")
}

func TestLoadConfigDefaults(t *testing.T) {
	setRequiredEnv(t)

	cfg, err := LoadConfig()
	require.NoError(t, err)

	assert.Equal(t, "8080", cfg.Server.Port)
	assert.Equal(t, "9090", cfg.Server.HealthPort)
	assert.Equal(t, 24*time.Hour, cfg.Session.TTL)
	assert.Equal(t, "eballot_session", cfg.Session.CookieName)
	assert.True(t, cfg.Session.SecureCookies)
	assert.Equal(t, "http://localhost:3000", cfg.ClientURL)
	assert.Equal(t, "localhost:6379", cfg.Storage.RedisURL)
}

func TestLoadConfigOverrides(t *testing.T) {
	setRequiredEnv(t)
	t.Setenv("EBALLOT_PORT", "9000")
	t.Setenv("EBALLOT_SESSION_TTL", "1h")
	t.Setenv("EBALLOT_SECURE_COOKIES", "false")
	t.Setenv("EBALLOT_LOG_LEVEL", "debug")

	cfg, err := LoadConfig()
	require.NoError(t, err)

	assert.Equal(t, "9000", cfg.Server.Port)
	assert.Equal(t, time.Hour, cfg.Session.TTL)
	assert.False(t, cfg.Session.SecureCookies)
}

func TestLoadConfigMissingPostgres(t *testing.T) {
	t.Setenv("EBALLOT_POSTGRES_URL", "")
	t.Setenv("EBALLOT_SESSION_SECRET", "test-secret")

	_, err := LoadConfig()
	assert.Error(t, err)
}

func TestValidatePortsMustDiffer(t *testing.T) {
	setRequiredEnv(t)
	t.Setenv("EBALLOT_PORT", "8080")
	t.Setenv("EBALLOT_HEALTH_PORT", "8080")

	_, err := LoadConfig()
	assert.Error(t, err)
}

func TestMailFromDefaultsToUsername(t *testing.T) {
	setRequiredEnv(t)
	t.Setenv("EBALLOT_EMAIL_USER", "mailer@example.com")

	cfg, err := LoadConfig()
	require.NoError(t, err)
	assert.Equal(t, "mailer@example.com", cfg.Mail.From)
}

func TestProviderCredentialsConfigured(t *testing.T) {
	assert.False(t, ProviderCredentials{}.Configured())
	assert.False(t, ProviderCredentials{ClientID: "id"}.Configured())
	assert.True(t, ProviderCredentials{ClientID: "id", ClientSecret: "secret"}.Configured())
}

func TestMailConfigured(t *testing.T) {
	assert.False(t, MailConfig{}.Configured())
	assert.True(t, MailConfig{Username: "u", Password: "p"}.Configured())
}
