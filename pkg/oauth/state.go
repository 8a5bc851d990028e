package oauth

import (
	"crypto/rand"
	"crypto/subtle"
	"encoding/base64"
	"fmt"
	"net/http"
	"time"
)

const stateCookieName = "eballot_oauth_state"

// stateTTL bounds how long a pending consent-screen round trip stays valid
const stateTTL = 10 * time.Minute

// NewState generates an unguessable CSRF state token for the OAuth round trip
func NewState() (string, error) {
	buf := make([]byte, 16)
	if _, err := rand.Read(buf); err != nil {
		return "", fmt.Errorf("failed to generate oauth state: %w", err)
	}
	return base64.RawURLEncoding.EncodeToString(buf), nil
}

// SetStateCookie stores the pending state on the client for callback checking
func SetStateCookie(w http.ResponseWriter, state string, secure bool) {
	http.SetCookie(w, &http.Cookie{
		Name:     stateCookieName,
		Value:    state,
		Path:     "/",
		HttpOnly: true,
		Secure:   secure,
		SameSite: http.SameSiteLaxMode,
		MaxAge:   int(stateTTL / time.Second),
	})
}

// ClearStateCookie removes the state cookie once the round trip completes
func ClearStateCookie(w http.ResponseWriter, secure bool) {
	http.SetCookie(w, &http.Cookie{
		Name:     stateCookieName,
		Value:    "",
		Path:     "/",
		HttpOnly: true,
		Secure:   secure,
		SameSite: http.SameSiteLaxMode,
		MaxAge:   -1,
	})
}

// VerifyState checks the callback's state parameter against the cookie set
// when the flow started.
func VerifyState(r *http.Request) error {
	cookie, err := r.Cookie(stateCookieName)
	if err != nil || cookie.Value == "" {
		return fmt.Errorf("missing oauth state cookie")
	}
	param := r.URL.Query().Get("state")
	if param == "" {
		return fmt.Errorf("missing oauth state parameter")
	}
	if subtle.ConstantTimeCompare([]byte(cookie.Value), []byte(param)) != 1 {
		return fmt.Errorf("oauth state mismatch")
	}
	return nil
}
