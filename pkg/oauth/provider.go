// Package oauth implements the external login providers. Each provider
// exchanges an authorization callback for a normalized Profile; account
// resolution and session establishment happen in the API layer.
package oauth

import (
	"context"
	"fmt"
	"net/http"

	"github.com/whitematrix/eballot/pkg/models"
)

// Profile is the normalized identity returned by a provider callback
type Profile struct {
	Provider   models.Provider
	ExternalID string
	Name       string
	Email      string
	AvatarURL  string
	// ProfileURL is the best-effort professional profile link. Providers with
	// inconsistent APIs may leave it blank; the user supplies it manually.
	ProfileURL string
}

// Provider is one external login integration
type Provider interface {
	// Name returns the provider identifier used in routes and user records
	Name() models.Provider

	// AuthCodeURL builds the consent-screen redirect target for a state token
	AuthCodeURL(state string) string

	// Exchange trades the callback request for a normalized profile
	Exchange(ctx context.Context, r *http.Request) (*Profile, error)
}

// Registry holds the configured providers keyed by name
type Registry struct {
	providers map[models.Provider]Provider
}

// NewRegistry creates an empty provider registry
func NewRegistry() *Registry {
	return &Registry{providers: make(map[models.Provider]Provider)}
}

// Register adds a provider
func (r *Registry) Register(p Provider) {
	r.providers[p.Name()] = p
}

// Get looks up a provider by name
func (r *Registry) Get(name string) (Provider, error) {
	p, ok := r.providers[models.Provider(name)]
	if !ok {
		return nil, fmt.Errorf("unknown provider %q", name)
	}
	return p, nil
}

// Names lists the registered provider names
func (r *Registry) Names() []string {
	names := make([]string, 0, len(r.providers))
	for name := range r.providers {
		names = append(names, string(name))
	}
	return names
}

// authCode extracts the authorization code from a callback request
func authCode(r *http.Request) (string, error) {
	code := r.URL.Query().Get("code")
	if code == "" {
		return "", fmt.Errorf("missing authorization code")
	}
	return code, nil
}
