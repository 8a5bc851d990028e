package auth

import (
	"net/http"

	"github.com/whitematrix/eballot/pkg/contextkeys"
	"github.com/whitematrix/eballot/pkg/httputil"
	"github.com/whitematrix/eballot/pkg/session"
)

// Identity is the resolved caller attached to the request context. It mirrors
// the denormalized session payload; handlers needing authoritative state
// (e.g. the vote path's profile-URL gate) re-read the user record instead.
type Identity struct {
	UserID    string
	Name      string
	Email     string
	Provider  string
	AvatarURL string
}

// SessionMiddleware resolves the session cookie to an Identity and passes it
// to handlers through the request context. No global state: everything the
// handler learns about the caller travels on the context.
type SessionMiddleware struct {
	sessions *session.Manager
	optional bool // if true, unauthenticated requests pass through
}

// NewSessionMiddleware creates session-resolving middleware. With optional
// set, requests without a valid session continue anonymously; otherwise they
// are rejected with 401.
func NewSessionMiddleware(sessions *session.Manager, optional bool) *SessionMiddleware {
	return &SessionMiddleware{sessions: sessions, optional: optional}
}

// Handler wraps an HTTP handler with session resolution
func (m *SessionMiddleware) Handler(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		sessionID := m.sessions.FromRequest(r)
		if sessionID == "" {
			m.pass(w, r, next)
			return
		}

		ident, err := m.sessions.Get(r.Context(), sessionID)
		if err != nil {
			m.pass(w, r, next)
			return
		}

		ctx := contextkeys.WithIdentity(r.Context(), &Identity{
			UserID:    ident.UserID,
			Name:      ident.Name,
			Email:     ident.Email,
			Provider:  ident.Provider,
			AvatarURL: ident.AvatarURL,
		})
		ctx = contextkeys.WithSessionID(ctx, sessionID)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// pass handles the unauthenticated case per the optional flag
func (m *SessionMiddleware) pass(w http.ResponseWriter, r *http.Request, next http.Handler) {
	if m.optional {
		next.ServeHTTP(w, r)
		return
	}
	httputil.WriteUnauthorized(w, "Please login to continue")
}

// GetIdentity extracts the authenticated caller from the request, or nil
func GetIdentity(r *http.Request) *Identity {
	v := r.Context().Value(contextkeys.IdentityKey)
	if v == nil {
		return nil
	}
	ident, ok := v.(*Identity)
	if !ok {
		return nil
	}
	return ident
}
