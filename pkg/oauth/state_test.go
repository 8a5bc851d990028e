package oauth

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestStateRoundTrip(t *testing.T) {
	state, err := NewState()
	require.NoError(t, err)
	assert.NotEmpty(t, state)

	rec := httptest.NewRecorder()
	SetStateCookie(rec, state, false)
	cookies := rec.Result().Cookies()
	require.Len(t, cookies, 1)
	assert.True(t, cookies[0].HttpOnly)

	req := httptest.NewRequest(http.MethodGet, "/auth/google/callback?state="+state, nil)
	req.AddCookie(cookies[0])
	assert.NoError(t, VerifyState(req))
}

func TestVerifyStateFailures(t *testing.T) {
	state, err := NewState()
	require.NoError(t, err)

	rec := httptest.NewRecorder()
	SetStateCookie(rec, state, false)
	cookie := rec.Result().Cookies()[0]

	t.Run("missing cookie", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/cb?state="+state, nil)
		assert.Error(t, VerifyState(req))
	})

	t.Run("missing parameter", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/cb", nil)
		req.AddCookie(cookie)
		assert.Error(t, VerifyState(req))
	})

	t.Run("mismatch", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/cb?state=forged", nil)
		req.AddCookie(cookie)
		assert.Error(t, VerifyState(req))
	})
}

func TestNewStateUnique(t *testing.T) {
	a, err := NewState()
	require.NoError(t, err)
	b, err := NewState()
	require.NoError(t, err)
	assert.NotEqual(t, a, b)
}
