// Package api wires the HTTP surface: local and OAuth authentication, the
// ballot endpoints, and the embedded browser client.
package api

import (
	"net/http"
	"strconv"
	"time"

	"github.com/gorilla/mux"

	"github.com/whitematrix/eballot/pkg/auth"
	"github.com/whitematrix/eballot/pkg/config"
	"github.com/whitematrix/eballot/pkg/httputil"
	"github.com/whitematrix/eballot/pkg/mail"
	"github.com/whitematrix/eballot/pkg/oauth"
	"github.com/whitematrix/eballot/pkg/observability"
	"github.com/whitematrix/eballot/pkg/session"
	"github.com/whitematrix/eballot/pkg/store"
	"github.com/whitematrix/eballot/web"
)

// maxBodyBytes bounds JSON request bodies; no endpoint accepts uploads
const maxBodyBytes = 1 << 20

// timeNow is swapped in tests
var timeNow = time.Now

// Server holds the handler dependencies
type Server struct {
	cfg        *config.Config
	logger     *observability.Logger
	metrics    *observability.Metrics
	users      *store.UserStore
	candidates *store.CandidateStore
	sessions   *session.Manager
	providers  *oauth.Registry
	mailer     mail.Mailer
}

// NewServer creates the API server
func NewServer(
	cfg *config.Config,
	logger *observability.Logger,
	metrics *observability.Metrics,
	users *store.UserStore,
	candidates *store.CandidateStore,
	sessions *session.Manager,
	providers *oauth.Registry,
	mailer mail.Mailer,
) *Server {
	return &Server{
		cfg:        cfg,
		logger:     logger,
		metrics:    metrics,
		users:      users,
		candidates: candidates,
		sessions:   sessions,
		providers:  providers,
		mailer:     mailer,
	}
}

// Router builds the full route table with middleware applied
func (s *Server) Router() http.Handler {
	r := mux.NewRouter()
	r.Use(s.instrument)

	requireAuth := auth.NewSessionMiddleware(s.sessions, false)
	optionalAuth := auth.NewSessionMiddleware(s.sessions, true)

	ar := r.PathPrefix("/auth").Subrouter()
	ar.HandleFunc("/register", s.handleRegister).Methods(http.MethodPost)
	ar.HandleFunc("/login", s.handleLogin).Methods(http.MethodPost)
	ar.HandleFunc("/forgot-password", s.handleForgotPassword).Methods(http.MethodPost)
	ar.HandleFunc("/reset-password", s.handleResetPassword).Methods(http.MethodPost)
	ar.Handle("/login/success", optionalAuth.Handler(http.HandlerFunc(s.handleLoginSuccess))).Methods(http.MethodGet)
	ar.Handle("/logout", optionalAuth.Handler(http.HandlerFunc(s.handleLogout))).Methods(http.MethodGet)
	ar.HandleFunc("/{provider}", s.handleOAuthLogin).Methods(http.MethodGet)
	ar.HandleFunc("/{provider}/callback", s.handleOAuthCallback).Methods(http.MethodGet)

	api := r.PathPrefix("/api").Subrouter()
	api.HandleFunc("/candidates", s.handleCandidates).Methods(http.MethodGet)
	api.HandleFunc("/voters", s.handleVoters).Methods(http.MethodGet)
	api.HandleFunc("/linkedin/{userId}", s.handleLinkedInRedirect).Methods(http.MethodGet)
	api.Handle("/update-linkedin", requireAuth.Handler(http.HandlerFunc(s.handleUpdateLinkedIn))).Methods(http.MethodPost)
	api.Handle("/vote/{candidateId}", requireAuth.Handler(http.HandlerFunc(s.handleVote))).Methods(http.MethodPost)

	// Embedded browser client; everything unmatched falls through to it
	r.PathPrefix("/").Handler(web.Handler())

	chain := httputil.Chain(
		httputil.RequestIDMiddleware,
		httputil.RecoveryMiddleware(s.logger),
		httputil.LoggingMiddleware(s.logger),
		httputil.SecurityHeadersMiddleware,
		httputil.CORSMiddleware(s.cfg.ClientURL),
		httputil.MaxBytesMiddleware(maxBodyBytes),
	)
	return chain(r)
}

// HTTPServer builds the http.Server around the router
func (s *Server) HTTPServer() *http.Server {
	return &http.Server{
		Addr:         s.cfg.Server.Host + ":" + s.cfg.Server.Port,
		Handler:      s.Router(),
		ReadTimeout:  s.cfg.Server.ReadTimeout,
		WriteTimeout: s.cfg.Server.WriteTimeout,
		IdleTimeout:  s.cfg.Server.IdleTimeout,
	}
}

// instrument records request metrics keyed by route template, not raw path,
// to keep label cardinality bounded.
func (s *Server) instrument(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		path := "unmatched"
		if route := mux.CurrentRoute(r); route != nil {
			if tmpl, err := route.GetPathTemplate(); err == nil {
				path = tmpl
			}
		}

		start := time.Now()
		rw := &statusWriter{ResponseWriter: w, status: http.StatusOK}
		next.ServeHTTP(rw, r)

		s.metrics.HTTPRequestsTotal.WithLabelValues(r.Method, path, strconv.Itoa(rw.status)).Inc()
		s.metrics.HTTPRequestDuration.WithLabelValues(r.Method, path).Observe(time.Since(start).Seconds())
	})
}

// statusWriter captures the response status for metrics
type statusWriter struct {
	http.ResponseWriter
	status int
}

func (w *statusWriter) WriteHeader(code int) {
	w.status = code
	w.ResponseWriter.WriteHeader(code)
}
