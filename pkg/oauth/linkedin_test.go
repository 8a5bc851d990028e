package oauth

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/whitematrix/eballot/pkg/models"
)

func TestProfileURLHeuristic(t *testing.T) {
	tests := []struct {
		name string
		info linkedinUserInfo
		want string
	}{
		{
			name: "explicit profile field wins",
			info: linkedinUserInfo{
				Profile:          "https://linkedin.com/in/explicit",
				PublicProfileURL: "https://linkedin.com/in/public",
				VanityName:       "vanity",
			},
			want: "https://linkedin.com/in/explicit",
		},
		{
			name: "legacy public profile url",
			info: linkedinUserInfo{
				PublicProfileURL: "https://linkedin.com/in/public",
				VanityName:       "vanity",
			},
			want: "https://linkedin.com/in/public",
		},
		{
			name: "vanity name reconstruction",
			info: linkedinUserInfo{VanityName: "alice-smith"},
			want: "https://linkedin.com/in/alice-smith",
		},
		{
			name: "nothing available means blank",
			info: linkedinUserInfo{Sub: "x", Name: "Alice"},
			want: "",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, profileURL(&tt.info))
		})
	}
}

func TestLinkedInFetchUserInfo(t *testing.T) {
	var gotAuth string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotAuth = r.Header.Get("Authorization")
		json.NewEncoder(w).Encode(linkedinUserInfo{
			Sub:        "ext-1",
			Name:       "Alice Smith",
			Email:      "alice@example.com",
			Picture:    "https://img/a.png",
			VanityName: "alice-smith",
		})
	}))
	defer srv.Close()

	p := NewLinkedInProvider("client-id", "client-secret", "http://localhost/callback")
	p.userInfoURL = srv.URL

	info, err := p.fetchUserInfo(context.Background(), "token-123")
	require.NoError(t, err)

	assert.Equal(t, "Bearer token-123", gotAuth)
	assert.Equal(t, "ext-1", info.Sub)
	assert.Equal(t, "alice@example.com", info.Email)
	assert.Equal(t, "https://linkedin.com/in/alice-smith", profileURL(info))
}

func TestLinkedInFetchUserInfoErrorStatus(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
	}))
	defer srv.Close()

	p := NewLinkedInProvider("client-id", "client-secret", "http://localhost/callback")
	p.userInfoURL = srv.URL

	_, err := p.fetchUserInfo(context.Background(), "bad-token")
	assert.Error(t, err)
}

func TestLinkedInAuthCodeURL(t *testing.T) {
	p := NewLinkedInProvider("client-id", "client-secret", "http://localhost/callback")

	u := p.AuthCodeURL("state-token")
	assert.Contains(t, u, "linkedin.com/oauth/v2/authorization")
	assert.Contains(t, u, "state=state-token")
	assert.Contains(t, u, "client_id=client-id")
}

func TestRegistry(t *testing.T) {
	r := NewRegistry()
	r.Register(NewLinkedInProvider("id", "secret", "http://localhost/callback"))

	p, err := r.Get("linkedin")
	require.NoError(t, err)
	assert.Equal(t, models.ProviderLinkedIn, p.Name())

	_, err = r.Get("github")
	assert.Error(t, err)

	assert.Equal(t, []string{"linkedin"}, r.Names())
}
