package api

import (
	"context"
	"io"
	"net/http"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/alicebob/miniredis/v2"
	"github.com/go-redis/redis/v8"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/require"

	"github.com/whitematrix/eballot/pkg/config"
	"github.com/whitematrix/eballot/pkg/oauth"
	"github.com/whitematrix/eballot/pkg/observability"
	"github.com/whitematrix/eballot/pkg/session"
	"github.com/whitematrix/eballot/pkg/store"
)

// recordingMailer captures reset emails instead of sending them
type recordingMailer struct {
	sent []sentMail
	err  error
}

type sentMail struct {
	to       string
	name     string
	resetURL string
}

func (m *recordingMailer) SendPasswordReset(_ context.Context, to, name, resetURL string) error {
	if m.err != nil {
		return m.err
	}
	m.sent = append(m.sent, sentMail{to: to, name: name, resetURL: resetURL})
	return nil
}

// testServer bundles the server with its fakes
type testServer struct {
	server   *Server
	handler  http.Handler
	dbMock   sqlmock.Sqlmock
	sessions *session.Manager
	mailer   *recordingMailer
}

func newTestServer(t *testing.T) *testServer {
	t.Helper()

	db, dbMock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })

	mr := miniredis.RunT(t)
	redisClient := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { redisClient.Close() })

	sessions := session.NewManager(redisClient, 24*time.Hour, "eballot_session", false)
	mailer := &recordingMailer{}

	cfg := &config.Config{
		ClientURL: "http://localhost:3000",
		Session: config.SessionConfig{
			TTL:        24 * time.Hour,
			CookieName: "eballot_session",
		},
	}

	logger := observability.NewLogger(observability.ErrorLevel, io.Discard)
	metrics := observability.NewMetrics(prometheus.NewRegistry())

	server := NewServer(cfg, logger, metrics,
		store.NewUserStore(db), store.NewCandidateStore(db),
		sessions, oauth.NewRegistry(), mailer)

	return &testServer{
		server:   server,
		handler:  server.Router(),
		dbMock:   dbMock,
		sessions: sessions,
		mailer:   mailer,
	}
}

// loginAs creates a session for the given user id and returns the cookie
func (ts *testServer) loginAs(t *testing.T, userID, name, email string) *http.Cookie {
	t.Helper()
	id, err := ts.sessions.Create(context.Background(), session.Identity{
		UserID:   userID,
		Name:     name,
		Email:    email,
		Provider: "local",
	})
	require.NoError(t, err)
	return &http.Cookie{Name: ts.sessions.CookieName(), Value: id}
}

// userRows builds a sqlmock row set matching the users select column order
func userRows() *sqlmock.Rows {
	return sqlmock.NewRows([]string{
		"id", "name", "email", "password_hash", "provider", "provider_id",
		"avatar_url", "linkedin_url", "has_voted", "voted_at", "voted_for",
		"reset_token_hash", "reset_token_expires", "created_at", "updated_at",
	})
}

// candidateTallyRows builds a row set for the tally query
func candidateTallyRows() *sqlmock.Rows {
	return sqlmock.NewRows([]string{
		"id", "name", "linkedin_url", "party", "team", "image_url",
		"created_at", "votes",
	})
}

// voterRows builds a row set for the roster query
func voterRows() *sqlmock.Rows {
	return sqlmock.NewRows([]string{"id", "name", "avatar_url", "voted_at", "linkedin_url"})
}
