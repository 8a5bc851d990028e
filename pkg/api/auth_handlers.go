package api

import (
	"errors"
	"net/http"

	"github.com/gorilla/mux"

	"github.com/whitematrix/eballot/pkg/auth"
	"github.com/whitematrix/eballot/pkg/contextkeys"
	"github.com/whitematrix/eballot/pkg/httputil"
	"github.com/whitematrix/eballot/pkg/models"
	"github.com/whitematrix/eballot/pkg/oauth"
	"github.com/whitematrix/eballot/pkg/session"
	"github.com/whitematrix/eballot/pkg/store"
)

// invalidCredentials is the single message for every local login failure.
// Unknown email, OAuth-only account, and wrong password are indistinguishable
// so the endpoint cannot be used to enumerate accounts.
const invalidCredentials = "Invalid email or password"

// forgotPasswordAck is returned whether or not the email maps to an account
const forgotPasswordAck = "If an account exists for that email, a reset link has been sent"

type registerRequest struct {
	Name     string `json:"name"`
	Email    string `json:"email"`
	Password string `json:"password"`
}

type loginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type forgotPasswordRequest struct {
	Email string `json:"email"`
}

type resetPasswordRequest struct {
	Token    string `json:"token"`
	Password string `json:"password"`
}

// establishSession stores a session for the user and sets the cookie
func (s *Server) establishSession(w http.ResponseWriter, r *http.Request, u *models.User) error {
	sessionID, err := s.sessions.Create(r.Context(), session.Identity{
		UserID:    u.ID,
		Name:      u.Name,
		Email:     u.Email,
		Provider:  string(u.Provider),
		AvatarURL: u.AvatarURL,
	})
	if err != nil {
		return err
	}

	s.sessions.SetCookie(w, sessionID)
	s.metrics.SessionsCreatedTotal.Inc()
	s.metrics.LoginsTotal.WithLabelValues(string(u.Provider)).Inc()
	return nil
}

// handleRegister creates a local email/password account
func (s *Server) handleRegister(w http.ResponseWriter, r *http.Request) {
	var req registerRequest
	if !httputil.ParseJSONOrError(w, r, &req) {
		return
	}
	if !httputil.RequireNonEmpty(w, req.Name, "name") ||
		!httputil.RequireNonEmpty(w, req.Email, "email") ||
		!httputil.RequireNonEmpty(w, req.Password, "password") {
		return
	}

	hash, err := auth.HashPassword(req.Password)
	if err != nil {
		if errors.Is(err, auth.ErrPasswordTooShort) {
			httputil.WriteBadRequest(w, err.Error())
			return
		}
		s.logger.WithError(err).Error("failed to hash password")
		httputil.WriteInternalError(w)
		return
	}

	u, err := s.users.Create(r.Context(), &models.User{
		Name:         req.Name,
		Email:        req.Email,
		PasswordHash: hash,
		Provider:     models.ProviderLocal,
	})
	if err != nil {
		if errors.Is(err, store.ErrDuplicateEmail) {
			httputil.WriteConflict(w, "An account with that email already exists")
			return
		}
		s.logger.WithError(err).Error("failed to create user")
		httputil.WriteInternalError(w)
		return
	}

	if err := s.establishSession(w, r, u); err != nil {
		s.logger.WithError(err).Error("failed to create session after registration")
		httputil.WriteInternalError(w)
		return
	}

	s.metrics.RegistrationsTotal.Inc()
	httputil.WriteCreated(w, map[string]interface{}{"user": u})
}

// handleLogin authenticates a local account
func (s *Server) handleLogin(w http.ResponseWriter, r *http.Request) {
	var req loginRequest
	if !httputil.ParseJSONOrError(w, r, &req) {
		return
	}
	if !httputil.RequireNonEmpty(w, req.Email, "email") ||
		!httputil.RequireNonEmpty(w, req.Password, "password") {
		return
	}

	u, err := s.users.GetByEmail(r.Context(), req.Email)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			httputil.WriteUnauthorized(w, invalidCredentials)
			return
		}
		s.logger.WithError(err).Error("failed to look up user for login")
		httputil.WriteInternalError(w)
		return
	}

	// OAuth-provisioned accounts have no password hash and never match
	if !auth.CheckPassword(u.PasswordHash, req.Password) {
		httputil.WriteUnauthorized(w, invalidCredentials)
		return
	}

	if err := s.establishSession(w, r, u); err != nil {
		s.logger.WithError(err).Error("failed to create session after login")
		httputil.WriteInternalError(w)
		return
	}

	httputil.WriteSuccess(w, map[string]interface{}{"user": u})
}

// handleForgotPassword dispatches a reset link. The response never reveals
// whether the email maps to an account; the only distinguishable case is an
// OAuth account, where a reset would be meaningless and the caller already
// proved knowledge of the email's provider by owning it.
func (s *Server) handleForgotPassword(w http.ResponseWriter, r *http.Request) {
	var req forgotPasswordRequest
	if !httputil.ParseJSONOrError(w, r, &req) {
		return
	}
	if !httputil.RequireNonEmpty(w, req.Email, "email") {
		return
	}

	u, err := s.users.GetByEmail(r.Context(), req.Email)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			s.metrics.ResetEmailsTotal.WithLabelValues("unknown_email").Inc()
			httputil.WriteSuccess(w, map[string]interface{}{"message": forgotPasswordAck})
			return
		}
		s.logger.WithError(err).Error("failed to look up user for password reset")
		httputil.WriteInternalError(w)
		return
	}

	if !u.IsLocal() {
		s.metrics.ResetEmailsTotal.WithLabelValues("oauth_account").Inc()
		httputil.WriteBadRequest(w,
			"This account signs in with "+string(u.Provider)+" and has no password to reset")
		return
	}

	token, tokenHash, err := auth.GenerateResetToken()
	if err != nil {
		s.logger.WithError(err).Error("failed to generate reset token")
		httputil.WriteInternalError(w)
		return
	}

	expires := timeNow().Add(auth.ResetTokenTTL)
	if err := s.users.SetResetToken(r.Context(), u.ID, tokenHash, expires); err != nil {
		s.logger.WithError(err).Error("failed to store reset token")
		httputil.WriteInternalError(w)
		return
	}

	resetURL := s.cfg.ClientURL + "/reset-password?token=" + token
	if err := s.mailer.SendPasswordReset(r.Context(), u.Email, u.Name, resetURL); err != nil {
		// Delivery failure must look identical to success from outside; the
		// link is logged so an operator can hand it over out of band.
		s.logger.WithError(err).WithField("user_id", u.ID).
			WithField("reset_url", resetURL).
			Error("failed to send reset email, link logged")
		s.metrics.ResetEmailsTotal.WithLabelValues("send_failed").Inc()
	} else {
		s.metrics.ResetEmailsTotal.WithLabelValues("sent").Inc()
	}

	httputil.WriteSuccess(w, map[string]interface{}{"message": forgotPasswordAck})
}

// handleResetPassword consumes a reset token and sets a new password
func (s *Server) handleResetPassword(w http.ResponseWriter, r *http.Request) {
	var req resetPasswordRequest
	if !httputil.ParseJSONOrError(w, r, &req) {
		return
	}
	if !httputil.RequireNonEmpty(w, req.Token, "token") ||
		!httputil.RequireNonEmpty(w, req.Password, "password") {
		return
	}

	hash, err := auth.HashPassword(req.Password)
	if err != nil {
		if errors.Is(err, auth.ErrPasswordTooShort) {
			httputil.WriteBadRequest(w, err.Error())
			return
		}
		s.logger.WithError(err).Error("failed to hash password")
		httputil.WriteInternalError(w)
		return
	}

	tokenHash := auth.HashResetToken(req.Token)
	u, err := s.users.GetByResetToken(r.Context(), tokenHash)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			httputil.WriteBadRequest(w, "Invalid or expired reset token")
			return
		}
		s.logger.WithError(err).Error("failed to look up reset token")
		httputil.WriteInternalError(w)
		return
	}

	// The update is conditioned on the token hash and clears it in the same
	// statement; a concurrent request that read the same token loses the race
	// here and gets the invalid-token response.
	if err := s.users.ResetPassword(r.Context(), u.ID, hash, tokenHash); err != nil {
		if errors.Is(err, store.ErrNotFound) {
			httputil.WriteBadRequest(w, "Invalid or expired reset token")
			return
		}
		s.logger.WithError(err).Error("failed to reset password")
		httputil.WriteInternalError(w)
		return
	}

	httputil.WriteSuccess(w, map[string]interface{}{
		"success": true,
		"message": "Password has been reset, you can now log in",
	})
}

// handleLoginSuccess is the client's session probe
func (s *Server) handleLoginSuccess(w http.ResponseWriter, r *http.Request) {
	ident := auth.GetIdentity(r)
	if ident == nil {
		httputil.WriteJSON(w, http.StatusUnauthorized, map[string]interface{}{
			"success": false,
			"message": "Not authenticated",
		})
		return
	}

	// Re-read the record so hasVoted and the profile URL are authoritative
	u, err := s.users.Get(r.Context(), ident.UserID)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			httputil.WriteJSON(w, http.StatusUnauthorized, map[string]interface{}{
				"success": false,
				"message": "Not authenticated",
			})
			return
		}
		s.logger.WithError(err).Error("failed to load user for session probe")
		httputil.WriteInternalError(w)
		return
	}

	httputil.WriteSuccess(w, map[string]interface{}{
		"success": true,
		"user":    u,
	})
}

// handleLogout invalidates the session server-side and clears the cookie
func (s *Server) handleLogout(w http.ResponseWriter, r *http.Request) {
	if sessionID := contextkeys.GetSessionID(r.Context()); sessionID != "" {
		if err := s.sessions.Delete(r.Context(), sessionID); err != nil {
			s.logger.WithError(err).Warn("failed to delete session on logout")
		}
	}
	s.sessions.ClearCookie(w)
	http.Redirect(w, r, s.cfg.ClientURL, http.StatusFound)
}

// handleOAuthLogin starts the consent-screen round trip for a provider
func (s *Server) handleOAuthLogin(w http.ResponseWriter, r *http.Request) {
	provider, err := s.providers.Get(mux.Vars(r)["provider"])
	if err != nil {
		httputil.WriteNotFoundError(w, "Unknown login provider")
		return
	}

	state, err := oauth.NewState()
	if err != nil {
		s.logger.WithError(err).Error("failed to generate oauth state")
		httputil.WriteInternalError(w)
		return
	}

	oauth.SetStateCookie(w, state, s.cfg.Session.SecureCookies)
	http.Redirect(w, r, provider.AuthCodeURL(state), http.StatusFound)
}

// handleOAuthCallback finishes the provider round trip: verify state,
// exchange the code, resolve the account, establish a session. Failures
// redirect to the client login page rather than render JSON, since the
// browser is mid-navigation.
func (s *Server) handleOAuthCallback(w http.ResponseWriter, r *http.Request) {
	loginURL := s.cfg.ClientURL + "/login"

	provider, err := s.providers.Get(mux.Vars(r)["provider"])
	if err != nil {
		httputil.WriteNotFoundError(w, "Unknown login provider")
		return
	}

	if err := oauth.VerifyState(r); err != nil {
		s.logger.WithError(err).Warn("oauth state verification failed")
		oauth.ClearStateCookie(w, s.cfg.Session.SecureCookies)
		http.Redirect(w, r, loginURL, http.StatusFound)
		return
	}
	oauth.ClearStateCookie(w, s.cfg.Session.SecureCookies)

	profile, err := provider.Exchange(r.Context(), r)
	if err != nil {
		s.logger.WithError(err).WithField("provider", string(provider.Name())).
			Warn("oauth exchange failed")
		http.Redirect(w, r, loginURL, http.StatusFound)
		return
	}

	u, err := s.resolveOAuthUser(r, profile)
	if err != nil {
		s.logger.WithError(err).WithField("provider", string(provider.Name())).
			Error("failed to resolve oauth account")
		http.Redirect(w, r, loginURL, http.StatusFound)
		return
	}

	if err := s.establishSession(w, r, u); err != nil {
		s.logger.WithError(err).Error("failed to create session after oauth login")
		http.Redirect(w, r, loginURL, http.StatusFound)
		return
	}

	http.Redirect(w, r, s.cfg.ClientURL+"/dashboard", http.StatusFound)
}

// resolveOAuthUser maps a provider profile to a user record. Precedence:
// exact provider identity, then account linking by email, then a fresh
// account. Linking keeps email globally unique across providers.
func (s *Server) resolveOAuthUser(r *http.Request, profile *oauth.Profile) (*models.User, error) {
	ctx := r.Context()

	u, err := s.users.GetByProviderIdentity(ctx, profile.Provider, profile.ExternalID)
	if err == nil {
		return u, nil
	}
	if !errors.Is(err, store.ErrNotFound) {
		return nil, err
	}

	existing, err := s.users.GetByEmail(ctx, profile.Email)
	if err == nil {
		return s.users.LinkProvider(ctx, existing.ID, profile.Provider,
			profile.ExternalID, profile.AvatarURL, profile.ProfileURL)
	}
	if !errors.Is(err, store.ErrNotFound) {
		return nil, err
	}

	return s.users.Create(ctx, &models.User{
		Name:        profile.Name,
		Email:       profile.Email,
		Provider:    profile.Provider,
		ProviderID:  profile.ExternalID,
		AvatarURL:   profile.AvatarURL,
		LinkedInURL: profile.ProfileURL,
	})
}
