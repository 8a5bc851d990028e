// Package config loads application configuration from environment variables.
package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/whitematrix/eballot/pkg/observability"
)

// Config holds all application configuration
type Config struct {
	Server  ServerConfig
	Storage StorageConfig
	Session SessionConfig
	OAuth   OAuthConfig
	Mail    MailConfig

	// ClientURL is the browser origin the API serves; used for CORS and
	// post-auth redirects.
	ClientURL string

	// LogLevel for the structured logger
	LogLevel observability.LogLevel
}

// ServerConfig holds HTTP server configuration
type ServerConfig struct {
	Host            string
	Port            string
	ReadTimeout     time.Duration
	WriteTimeout    time.Duration
	IdleTimeout     time.Duration
	ShutdownTimeout time.Duration

	// Health/metrics server (separate port for k8s probes)
	HealthPort string
}

// StorageConfig holds persistence configuration
type StorageConfig struct {
	PostgresURL string
	MaxConns    int
	MinConns    int
	Timeout     time.Duration

	RedisURL      string
	RedisPassword string
	RedisDB       int
}

// SessionConfig holds session cookie and TTL configuration
type SessionConfig struct {
	// Secret keys the session cookie signature; must be set in production
	Secret string
	// TTL is the sliding session lifetime
	TTL time.Duration
	// CookieName is the session cookie name
	CookieName string
	// SecureCookies disables the Secure attribute for local development
	SecureCookies bool
}

// OAuthConfig holds per-provider OAuth settings
type OAuthConfig struct {
	Google   ProviderCredentials
	LinkedIn ProviderCredentials
}

// ProviderCredentials holds one provider's client credentials
type ProviderCredentials struct {
	ClientID     string
	ClientSecret string
	CallbackURL  string
}

// Configured reports whether the provider has usable credentials
func (p ProviderCredentials) Configured() bool {
	return p.ClientID != "" && p.ClientSecret != ""
}

// MailConfig holds outbound SMTP settings
type MailConfig struct {
	Host     string
	Port     int
	Username string
	Password string
	From     string
	// SendTimeout bounds how long a request waits on the mail provider
	SendTimeout time.Duration
}

// Configured reports whether outbound mail can be attempted
func (m MailConfig) Configured() bool {
	return m.Username != "" && m.Password != ""
}

// LoadConfig loads configuration from environment variables
func LoadConfig() (*Config, error) {
	cfg := &Config{
		Server: ServerConfig{
			Host:            getEnv("EBALLOT_HOST", "0.0.0.0"),
			Port:            getEnv("EBALLOT_PORT", "8080"),
			ReadTimeout:     getEnvDuration("EBALLOT_READ_TIMEOUT", 15*time.Second),
			WriteTimeout:    getEnvDuration("EBALLOT_WRITE_TIMEOUT", 15*time.Second),
			IdleTimeout:     getEnvDuration("EBALLOT_IDLE_TIMEOUT", 60*time.Second),
			ShutdownTimeout: getEnvDuration("EBALLOT_SHUTDOWN_TIMEOUT", 30*time.Second),
			HealthPort:      getEnv("EBALLOT_HEALTH_PORT", "9090"),
		},
		Storage: StorageConfig{
			PostgresURL: getEnv("EBALLOT_POSTGRES_URL", ""),
			MaxConns:    getEnvInt("EBALLOT_POSTGRES_MAX_CONNS", 20),
			MinConns:    getEnvInt("EBALLOT_POSTGRES_MIN_CONNS", 2),
			Timeout:     getEnvDuration("EBALLOT_POSTGRES_TIMEOUT", 5*time.Second),

			RedisURL:      getEnv("EBALLOT_REDIS_URL", "localhost:6379"),
			RedisPassword: getEnv("EBALLOT_REDIS_PASSWORD", ""),
			RedisDB:       getEnvInt("EBALLOT_REDIS_DB", 0),
		},
		Session: SessionConfig{
			Secret:        getEnv("EBALLOT_SESSION_SECRET", ""),
			TTL:           getEnvDuration("EBALLOT_SESSION_TTL", 24*time.Hour),
			CookieName:    getEnv("EBALLOT_SESSION_COOKIE", "eballot_session"),
			SecureCookies: getEnvBool("EBALLOT_SECURE_COOKIES", true),
		},
		OAuth: OAuthConfig{
			Google: ProviderCredentials{
				ClientID:     getEnv("EBALLOT_GOOGLE_CLIENT_ID", ""),
				ClientSecret: getEnv("EBALLOT_GOOGLE_CLIENT_SECRET", ""),
				CallbackURL:  getEnv("EBALLOT_GOOGLE_CALLBACK_URL", ""),
			},
			LinkedIn: ProviderCredentials{
				ClientID:     getEnv("EBALLOT_LINKEDIN_CLIENT_ID", ""),
				ClientSecret: getEnv("EBALLOT_LINKEDIN_CLIENT_SECRET", ""),
				CallbackURL:  getEnv("EBALLOT_LINKEDIN_CALLBACK_URL", ""),
			},
		},
		Mail: MailConfig{
			Host:        getEnv("EBALLOT_EMAIL_HOST", "smtp.gmail.com"),
			Port:        getEnvInt("EBALLOT_EMAIL_PORT", 587),
			Username:    getEnv("EBALLOT_EMAIL_USER", ""),
			Password:    getEnv("EBALLOT_EMAIL_PASSWORD", ""),
			From:        getEnv("EBALLOT_EMAIL_FROM", ""),
			SendTimeout: getEnvDuration("EBALLOT_EMAIL_TIMEOUT", 10*time.Second),
		},
		ClientURL: getEnv("EBALLOT_CLIENT_URL", "http://localhost:3000"),
		LogLevel:  parseLogLevel(getEnv("EBALLOT_LOG_LEVEL", "info")),
	}

	if cfg.Mail.From == "" {
		cfg.Mail.From = cfg.Mail.Username
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("configuration validation failed: %w", err)
	}

	return cfg, nil
}

// Validate checks if the configuration is valid
func (c *Config) Validate() error {
	if c.Server.Port == "" {
		return fmt.Errorf("server port is required")
	}
	if c.Server.HealthPort == "" {
		return fmt.Errorf("health port is required")
	}
	if c.Server.Port == c.Server.HealthPort {
		return fmt.Errorf("server port and health port must be different")
	}
	if c.Storage.PostgresURL == "" {
		return fmt.Errorf("postgres URL is required")
	}
	if c.Session.Secret == "" {
		return fmt.Errorf("session secret is required")
	}
	if c.Session.TTL <= 0 {
		return fmt.Errorf("session TTL must be positive")
	}
	if c.ClientURL == "" {
		return fmt.Errorf("client URL is required")
	}
	return nil
}

// parseLogLevel parses a log level string
func parseLogLevel(level string) observability.LogLevel {
	switch strings.ToLower(level) {
	case "debug":
		return observability.DebugLevel
	case "info":
		return observability.InfoLevel
	case "warn", "warning":
		return observability.WarnLevel
	case "error":
		return observability.ErrorLevel
	default:
		return observability.InfoLevel
	}
}

// getEnv returns an environment variable value or a default
func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

// getEnvBool returns a boolean environment variable or a default
func getEnvBool(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		return strings.ToLower(value) == "true" || value == "1"
	}
	return defaultValue
}

// getEnvInt returns an integer environment variable or a default
func getEnvInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intVal, err := strconv.Atoi(value); err == nil {
			return intVal
		}
	}
	return defaultValue
}

// getEnvDuration returns a duration environment variable or a default
func getEnvDuration(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if duration, err := time.ParseDuration(value); err == nil {
			return duration
		}
	}
	return defaultValue
}
