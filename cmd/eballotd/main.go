// Command eballotd runs the voting platform: the API server with the embedded
// browser client, plus a health/metrics server on a separate port.
package main

import (
	"context"
	"database/sql"
	"net/http"
	"os"
	"time"

	"github.com/go-redis/redis/v8"
	"github.com/gorilla/mux"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/robfig/cron/v3"
	"golang.org/x/sync/errgroup"

	"github.com/whitematrix/eballot/pkg/api"
	"github.com/whitematrix/eballot/pkg/config"
	"github.com/whitematrix/eballot/pkg/mail"
	"github.com/whitematrix/eballot/pkg/oauth"
	"github.com/whitematrix/eballot/pkg/observability"
	"github.com/whitematrix/eballot/pkg/session"
	"github.com/whitematrix/eballot/pkg/store"
)

func main() {
	cfg, err := config.LoadConfig()
	if err != nil {
		observability.NewLogger(observability.ErrorLevel, os.Stderr).
			WithError(err).Error("failed to load configuration")
		os.Exit(1)
	}

	logger := observability.NewLogger(cfg.LogLevel, os.Stdout)
	logger.Info("starting eballotd")

	if err := run(cfg, logger); err != nil {
		logger.WithError(err).Error("server exited with error")
		os.Exit(1)
	}
}

func run(cfg *config.Config, logger *observability.Logger) error {
	db, err := store.Connect(store.ConnectionConfig{
		URL:      cfg.Storage.PostgresURL,
		MaxConns: cfg.Storage.MaxConns,
		MinConns: cfg.Storage.MinConns,
		Timeout:  cfg.Storage.Timeout,
	})
	if err != nil {
		return err
	}
	defer db.Close()

	migrateCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	if err := store.RunMigrations(migrateCtx, db); err != nil {
		return err
	}
	logger.Info("database migrations applied")

	redisClient := redis.NewClient(&redis.Options{
		Addr:     cfg.Storage.RedisURL,
		Password: cfg.Storage.RedisPassword,
		DB:       cfg.Storage.RedisDB,
	})
	defer redisClient.Close()

	pingCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := redisClient.Ping(pingCtx).Err(); err != nil {
		return err
	}

	users := store.NewUserStore(db)
	candidates := store.NewCandidateStore(db)
	sessions := session.NewManager(redisClient, cfg.Session.TTL,
		cfg.Session.CookieName, cfg.Session.SecureCookies)

	providers := oauth.NewRegistry()
	if cfg.OAuth.Google.Configured() {
		discoverCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		google, err := oauth.NewGoogleProvider(discoverCtx,
			cfg.OAuth.Google.ClientID, cfg.OAuth.Google.ClientSecret,
			cfg.OAuth.Google.CallbackURL)
		cancel()
		if err != nil {
			return err
		}
		providers.Register(google)
	} else {
		logger.Warn("google login disabled, credentials not configured")
	}
	if cfg.OAuth.LinkedIn.Configured() {
		providers.Register(oauth.NewLinkedInProvider(
			cfg.OAuth.LinkedIn.ClientID, cfg.OAuth.LinkedIn.ClientSecret,
			cfg.OAuth.LinkedIn.CallbackURL))
	} else {
		logger.Warn("linkedin login disabled, credentials not configured")
	}

	mailer := mail.NewSMTPMailer(cfg.Mail, logger)
	if !cfg.Mail.Configured() {
		logger.Warn("mail transport not configured, reset links will be logged")
	}

	metrics := observability.NewMetrics(prometheus.NewRegistry())

	server := api.NewServer(cfg, logger, metrics, users, candidates,
		sessions, providers, mailer)
	apiServer := server.HTTPServer()

	healthServer := newHealthServer(cfg, db, redisClient, metrics)

	scheduler := startMaintenance(logger, users, candidates)

	shutdown := observability.NewShutdownManager(logger,
		cfg.Server.ShutdownTimeout, apiServer, healthServer)
	shutdown.RegisterShutdownFunc(func(ctx context.Context) error {
		stopCtx := scheduler.Stop()
		select {
		case <-stopCtx.Done():
		case <-ctx.Done():
			return ctx.Err()
		}
		return nil
	})

	g, _ := errgroup.WithContext(context.Background())
	g.Go(func() error {
		logger.Infof("API server listening on %s", apiServer.Addr)
		if err := apiServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			return err
		}
		return nil
	})
	g.Go(func() error {
		logger.Infof("health server listening on %s", healthServer.Addr)
		if err := healthServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			return err
		}
		return nil
	})
	g.Go(shutdown.WaitForShutdown)

	return g.Wait()
}

// newHealthServer serves probes and metrics on a port separate from traffic
func newHealthServer(cfg *config.Config, db *sql.DB, redisClient *redis.Client, metrics *observability.Metrics) *http.Server {
	checker := observability.NewHealthChecker(db, redisClient)

	r := mux.NewRouter()
	r.HandleFunc("/healthz", checker.Liveness).Methods(http.MethodGet)
	r.HandleFunc("/readyz", checker.Readiness).Methods(http.MethodGet)
	r.Handle("/metrics", metrics.Handler()).Methods(http.MethodGet)

	return &http.Server{
		Addr:         cfg.Server.Host + ":" + cfg.Server.HealthPort,
		Handler:      r,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
	}
}

// startMaintenance schedules the hourly reset-token sweep and the nightly
// counter reconciliation. Both are operator aids; no read path depends on
// them.
func startMaintenance(logger *observability.Logger, users *store.UserStore, candidates *store.CandidateStore) *cron.Cron {
	scheduler := cron.New()

	scheduler.AddFunc("@hourly", func() {
		ctx, cancel := context.WithTimeout(context.Background(), time.Minute)
		defer cancel()
		cleared, err := users.ClearExpiredResetTokens(ctx)
		if err != nil {
			logger.WithError(err).Error("reset token sweep failed")
			return
		}
		if cleared > 0 {
			logger.WithField("cleared", cleared).Info("expired reset tokens cleared")
		}
	})

	scheduler.AddFunc("@midnight", func() {
		ctx, cancel := context.WithTimeout(context.Background(), time.Minute)
		defer cancel()
		fixed, err := candidates.ReconcileVoteCounts(ctx)
		if err != nil {
			logger.WithError(err).Error("vote counter reconciliation failed")
			return
		}
		if fixed > 0 {
			logger.WithField("reconciled", fixed).Warn("vote counters drifted and were reconciled")
		}
	})

	scheduler.Start()
	return scheduler
}
