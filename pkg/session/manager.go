// Package session implements the server-side session store.
//
// Sessions live in Redis under an opaque identifier carried by an HTTP-only
// cookie. The stored value is a minimal serialized identity, not the full
// user record; handlers that need authoritative state re-read the database.
package session

import (
	"context"
	"crypto/rand"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/go-redis/redis/v8"
)

// ErrNotFound is returned when a session does not exist or has expired
var ErrNotFound = errors.New("session not found")

const keyPrefix = "session:"

// Identity is the minimal caller identity serialized into the session store
type Identity struct {
	UserID    string `json:"userId"`
	Name      string `json:"name"`
	Email     string `json:"email"`
	Provider  string `json:"provider"`
	AvatarURL string `json:"profilePicture"`
}

// Manager owns session lifecycle against Redis
type Manager struct {
	redis      *redis.Client
	ttl        time.Duration
	cookieName string
	secure     bool
}

// NewManager creates a session manager with a sliding TTL
func NewManager(redisClient *redis.Client, ttl time.Duration, cookieName string, secureCookies bool) *Manager {
	if ttl <= 0 {
		ttl = 24 * time.Hour
	}
	if cookieName == "" {
		cookieName = "eballot_session"
	}
	return &Manager{
		redis:      redisClient,
		ttl:        ttl,
		cookieName: cookieName,
		secure:     secureCookies,
	}
}

// CookieName returns the configured session cookie name
func (m *Manager) CookieName() string {
	return m.cookieName
}

// TTL returns the configured session lifetime
func (m *Manager) TTL() time.Duration {
	return m.ttl
}

// newSessionID generates an opaque, unguessable session identifier
func newSessionID() (string, error) {
	buf := make([]byte, 32)
	if _, err := rand.Read(buf); err != nil {
		return "", fmt.Errorf("failed to generate session id: %w", err)
	}
	return base64.RawURLEncoding.EncodeToString(buf), nil
}

// Create stores a new session and returns its identifier
func (m *Manager) Create(ctx context.Context, ident Identity) (string, error) {
	id, err := newSessionID()
	if err != nil {
		return "", err
	}

	payload, err := json.Marshal(ident)
	if err != nil {
		return "", fmt.Errorf("failed to serialize session identity: %w", err)
	}

	if err := m.redis.Set(ctx, keyPrefix+id, payload, m.ttl).Err(); err != nil {
		return "", fmt.Errorf("failed to store session: %w", err)
	}

	return id, nil
}

// Get resolves a session identifier to its identity and refreshes the TTL
// (sliding expiry).
func (m *Manager) Get(ctx context.Context, id string) (*Identity, error) {
	if id == "" {
		return nil, ErrNotFound
	}

	payload, err := m.redis.Get(ctx, keyPrefix+id).Bytes()
	if err == redis.Nil {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read session: %w", err)
	}

	var ident Identity
	if err := json.Unmarshal(payload, &ident); err != nil {
		return nil, fmt.Errorf("failed to decode session identity: %w", err)
	}

	// Refresh on activity; expiry failure is not fatal to the request
	m.redis.Expire(ctx, keyPrefix+id, m.ttl)

	return &ident, nil
}

// Update rewrites the identity stored under an existing session
func (m *Manager) Update(ctx context.Context, id string, ident Identity) error {
	payload, err := json.Marshal(ident)
	if err != nil {
		return fmt.Errorf("failed to serialize session identity: %w", err)
	}
	if err := m.redis.Set(ctx, keyPrefix+id, payload, m.ttl).Err(); err != nil {
		return fmt.Errorf("failed to update session: %w", err)
	}
	return nil
}

// Delete invalidates a session server-side
func (m *Manager) Delete(ctx context.Context, id string) error {
	if err := m.redis.Del(ctx, keyPrefix+id).Err(); err != nil {
		return fmt.Errorf("failed to delete session: %w", err)
	}
	return nil
}

// sameSite picks the cross-site attribute. SameSite=None requires Secure, so
// insecure (local development) cookies fall back to Lax.
func (m *Manager) sameSite() http.SameSite {
	if m.secure {
		return http.SameSiteNoneMode
	}
	return http.SameSiteLaxMode
}

// SetCookie attaches the session cookie to the response
func (m *Manager) SetCookie(w http.ResponseWriter, sessionID string) {
	http.SetCookie(w, &http.Cookie{
		Name:     m.cookieName,
		Value:    sessionID,
		Path:     "/",
		HttpOnly: true,
		Secure:   m.secure,
		SameSite: m.sameSite(),
		MaxAge:   int(m.ttl / time.Second),
	})
}

// ClearCookie expires the session cookie on the client
func (m *Manager) ClearCookie(w http.ResponseWriter) {
	http.SetCookie(w, &http.Cookie{
		Name:     m.cookieName,
		Value:    "",
		Path:     "/",
		HttpOnly: true,
		Secure:   m.secure,
		SameSite: m.sameSite(),
		MaxAge:   -1,
	})
}

// FromRequest extracts the session id from the request cookie, if any
func (m *Manager) FromRequest(r *http.Request) string {
	cookie, err := r.Cookie(m.cookieName)
	if err != nil {
		return ""
	}
	return cookie.Value
}
