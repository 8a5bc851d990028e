package oauth

import (
	"context"
	"fmt"
	"net/http"

	"github.com/coreos/go-oidc/v3/oidc"
	"golang.org/x/oauth2"

	"github.com/whitematrix/eballot/pkg/models"
)

const googleIssuer = "https://accounts.google.com"

// GoogleProvider authenticates callers through Google's OIDC endpoints. The
// ID token is verified against the discovered JWKS rather than trusting the
// token response blindly.
type GoogleProvider struct {
	oauth2Config *oauth2.Config
	verifier     *oidc.IDTokenVerifier
}

// googleClaims is the subset of ID token claims the application consumes
type googleClaims struct {
	Sub           string `json:"sub"`
	Name          string `json:"name"`
	Email         string `json:"email"`
	EmailVerified bool   `json:"email_verified"`
	Picture       string `json:"picture"`
}

// NewGoogleProvider discovers Google's OIDC configuration and builds the
// provider. Discovery hits the network, so callers pass a bounded context.
func NewGoogleProvider(ctx context.Context, clientID, clientSecret, redirectURL string) (*GoogleProvider, error) {
	provider, err := oidc.NewProvider(ctx, googleIssuer)
	if err != nil {
		return nil, fmt.Errorf("failed to discover google oidc configuration: %w", err)
	}

	return &GoogleProvider{
		oauth2Config: &oauth2.Config{
			ClientID:     clientID,
			ClientSecret: clientSecret,
			RedirectURL:  redirectURL,
			Endpoint:     provider.Endpoint(),
			Scopes:       []string{oidc.ScopeOpenID, "profile", "email"},
		},
		verifier: provider.Verifier(&oidc.Config{ClientID: clientID}),
	}, nil
}

// Name implements Provider
func (p *GoogleProvider) Name() models.Provider {
	return models.ProviderGoogle
}

// AuthCodeURL implements Provider
func (p *GoogleProvider) AuthCodeURL(state string) string {
	return p.oauth2Config.AuthCodeURL(state)
}

// Exchange trades the authorization code for a verified ID token and extracts
// the caller's profile from its claims.
func (p *GoogleProvider) Exchange(ctx context.Context, r *http.Request) (*Profile, error) {
	code, err := authCode(r)
	if err != nil {
		return nil, err
	}

	token, err := p.oauth2Config.Exchange(ctx, code)
	if err != nil {
		return nil, fmt.Errorf("failed to exchange authorization code: %w", err)
	}

	rawIDToken, ok := token.Extra("id_token").(string)
	if !ok {
		return nil, fmt.Errorf("token response missing id_token")
	}

	idToken, err := p.verifier.Verify(ctx, rawIDToken)
	if err != nil {
		return nil, fmt.Errorf("failed to verify id token: %w", err)
	}

	var claims googleClaims
	if err := idToken.Claims(&claims); err != nil {
		return nil, fmt.Errorf("failed to parse id token claims: %w", err)
	}
	if claims.Email == "" {
		return nil, fmt.Errorf("id token missing email claim")
	}

	return &Profile{
		Provider:   models.ProviderGoogle,
		ExternalID: claims.Sub,
		Name:       claims.Name,
		Email:      claims.Email,
		AvatarURL:  claims.Picture,
		// Google accounts carry no professional profile link
		ProfileURL: "",
	}, nil
}
