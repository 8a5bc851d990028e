package oauth

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"golang.org/x/oauth2"

	"github.com/whitematrix/eballot/pkg/models"
)

const linkedinUserInfoURL = "https://api.linkedin.com/v2/userinfo"

// linkedinEndpoint is LinkedIn's OAuth2 endpoint pair. LinkedIn publishes an
// OIDC discovery document but its token responses have historically been
// inconsistent, so the plain OAuth2 flow plus the userinfo endpoint is used.
var linkedinEndpoint = oauth2.Endpoint{
	AuthURL:  "https://www.linkedin.com/oauth/v2/authorization",
	TokenURL: "https://www.linkedin.com/oauth/v2/accessToken",
}

// LinkedInProvider authenticates callers through LinkedIn OAuth2
type LinkedInProvider struct {
	oauth2Config *oauth2.Config
	userInfoURL  string
	httpClient   *http.Client
}

// linkedinUserInfo is the userinfo response shape. VanityName and
// PublicProfileURL come from older API versions and are usually absent; when
// present they feed the profile URL heuristic.
type linkedinUserInfo struct {
	Sub              string `json:"sub"`
	Name             string `json:"name"`
	GivenName        string `json:"given_name"`
	FamilyName       string `json:"family_name"`
	Email            string `json:"email"`
	Picture          string `json:"picture"`
	Profile          string `json:"profile"`
	VanityName       string `json:"vanityName"`
	PublicProfileURL string `json:"publicProfileUrl"`
}

// NewLinkedInProvider builds the LinkedIn provider
func NewLinkedInProvider(clientID, clientSecret, redirectURL string) *LinkedInProvider {
	return &LinkedInProvider{
		oauth2Config: &oauth2.Config{
			ClientID:     clientID,
			ClientSecret: clientSecret,
			RedirectURL:  redirectURL,
			Endpoint:     linkedinEndpoint,
			Scopes:       []string{"openid", "profile", "email"},
		},
		userInfoURL: linkedinUserInfoURL,
		httpClient:  &http.Client{Timeout: 10 * time.Second},
	}
}

// Name implements Provider
func (p *LinkedInProvider) Name() models.Provider {
	return models.ProviderLinkedIn
}

// AuthCodeURL implements Provider
func (p *LinkedInProvider) AuthCodeURL(state string) string {
	return p.oauth2Config.AuthCodeURL(state)
}

// Exchange trades the authorization code for an access token and resolves the
// caller's profile from the userinfo endpoint.
func (p *LinkedInProvider) Exchange(ctx context.Context, r *http.Request) (*Profile, error) {
	code, err := authCode(r)
	if err != nil {
		return nil, err
	}

	ctx = context.WithValue(ctx, oauth2.HTTPClient, p.httpClient)
	token, err := p.oauth2Config.Exchange(ctx, code)
	if err != nil {
		return nil, fmt.Errorf("failed to exchange authorization code: %w", err)
	}

	info, err := p.fetchUserInfo(ctx, token.AccessToken)
	if err != nil {
		return nil, err
	}
	if info.Email == "" {
		return nil, fmt.Errorf("userinfo response missing email")
	}

	name := info.Name
	if name == "" {
		name = info.GivenName + " " + info.FamilyName
	}

	return &Profile{
		Provider:   models.ProviderLinkedIn,
		ExternalID: info.Sub,
		Name:       name,
		Email:      info.Email,
		AvatarURL:  info.Picture,
		ProfileURL: profileURL(info),
	}, nil
}

// fetchUserInfo calls the userinfo endpoint with the bearer token
func (p *LinkedInProvider) fetchUserInfo(ctx context.Context, accessToken string) (*linkedinUserInfo, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, p.userInfoURL, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to build userinfo request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+accessToken)

	resp, err := p.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch userinfo: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("userinfo request returned status %d", resp.StatusCode)
	}

	var info linkedinUserInfo
	if err := json.NewDecoder(resp.Body).Decode(&info); err != nil {
		return nil, fmt.Errorf("failed to decode userinfo response: %w", err)
	}
	return &info, nil
}

// profileURL derives the public profile link from whatever the API version in
// play exposes, preferring explicit URLs over the vanity-name reconstruction.
// All fields absent means blank; the user fills it in before voting.
func profileURL(info *linkedinUserInfo) string {
	switch {
	case info.Profile != "":
		return info.Profile
	case info.PublicProfileURL != "":
		return info.PublicProfileURL
	case info.VanityName != "":
		return "https://linkedin.com/in/" + info.VanityName
	default:
		return ""
	}
}
