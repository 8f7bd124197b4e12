// Package app wires the CareerQuest server runtime: config, logging, stores, broker, and HTTP routes.
package app

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"careerquest/cmd/identity"
	authapi "careerquest/cmd/internal/auth/api"
	"careerquest/cmd/internal/auth/ratelimit"
	"careerquest/cmd/internal/auth/reset"
	"careerquest/cmd/internal/auth/session"
	"careerquest/cmd/internal/auth/tokenstore"
	"careerquest/cmd/internal/broker"
	"careerquest/cmd/internal/metrics"
	"careerquest/cmd/internal/migrate"
	"careerquest/cmd/security/password"

	"github.com/jackc/pgx/v5/pgxpool"
)

// App is the CareerQuest server runtime. It owns the HTTP handler and the
// lifecycle of the database pool and broker connection.
type App struct {
	cfg Config
	log Logger

	dbPool *pgxpool.Pool
	bus    *broker.NATS

	metrics *metrics.Metrics
	auth    *authapi.Handler
	handler http.Handler
}

// New constructs a fully wired App instance from config and logger.
// Without CQ_DATABASE_URL every store is in memory.
func New(ctx context.Context, cfg Config, log Logger) (*App, error) {
	if log == nil {
		log = NewLogger(cfg.LogLevel, cfg.LogFormat)
	}

	if err := ValidateSecurityConfig(cfg); err != nil {
		return nil, err
	}
	pwCfg, err := password.FromEnv()
	if err != nil {
		return nil, fmt.Errorf("password config: %w", err)
	}
	sessCfg, err := session.LoadConfigFromEnv()
	if err != nil {
		return nil, fmt.Errorf("session config (CQ_JWT_SECRET must be at least %d bytes): %w", session.MinSecretBytes, err)
	}
	authCfg := authapi.LoadConfigFromEnv()

	a := &App{cfg: cfg, log: log, metrics: metrics.New()}

	st, err := a.openStores(ctx, authCfg)
	if err != nil {
		return nil, err
	}

	creds, err := identity.NewCredentials(st.users, pwCfg)
	if err != nil {
		a.closeResources()
		return nil, err
	}
	tokens, err := session.NewAccessTokenManager(sessCfg)
	if err != nil {
		a.closeResources()
		return nil, err
	}
	resets, err := reset.NewService(st.tokens, reset.WithTTL(authCfg.ResetTTL))
	if err != nil {
		a.closeResources()
		return nil, err
	}

	var publisher broker.Publisher = broker.Noop{}
	if cfg.NATSURL != "" {
		bus, err := broker.Connect(broker.Config{
			URL:           cfg.NATSURL,
			SubjectPrefix: cfg.NATSSubjectPrefix,
			Timeout:       cfg.NATSTimeout,
		}, log)
		if err != nil {
			log.Warn("broker.connect.fail", "err", err)
		} else {
			a.bus = bus
			publisher = bus
			log.Info("broker.enabled", "prefix", cfg.NATSSubjectPrefix)
		}
	}

	auditors := authapi.MultiAuditor{
		authapi.LogAuditor{Log: log},
		authapi.MetricsAuditor{Metrics: a.metrics},
	}
	if st.auditor != nil {
		auditors = append(auditors, st.auditor)
	}
	var notifier authapi.ResetNotifier = authapi.NoopResetNotifier{}
	if a.bus != nil {
		auditors = append(auditors, authapi.BrokerAuditor{Log: log, Publisher: publisher, Metrics: a.metrics})
		notifier = authapi.BrokerResetNotifier{Publisher: publisher}
	}

	a.auth, err = authapi.NewHandler(log, authCfg, authapi.Services{
		Credentials: creds,
		Sessions:    session.NewService(sessCfg, st.tokens, tokens),
		Resets:      resets,
		Limiter:     st.limiter,
		Registry:    session.NewRegistry(sessCfg.IdleTimeout),
	}, authapi.WithAuditor(auditors), authapi.WithResetNotifier(notifier))
	if err != nil {
		a.closeResources()
		return nil, err
	}

	mux := http.NewServeMux()
	var bus brokerStatus
	if a.bus != nil {
		bus = a.bus
	}
	registerHTTP(mux, log, cfg, a.dbPool, bus, a.metrics, a.auth)

	// Outermost first: ids and logging see every response, including recovered panics.
	var h http.Handler = WithMetrics(mux, a.metrics)
	h = WithCORS(h, cfg, log)
	h = WithSecurityHeaders(h)
	h = WithRecover(h, log)
	h = WithRequestLogging(h, log)
	a.handler = WithRequestID(h)

	log.Info("app.ready",
		"db_enabled", a.dbPool != nil,
		"broker_enabled", a.bus != nil,
		"token_format", string(sessCfg.Format),
		"password_algorithm", string(pwCfg.Algorithm),
		"session_idle_timeout", sessCfg.IdleTimeout.String(),
	)
	return a, nil
}

type stores struct {
	users   identity.Store
	tokens  tokenstore.Store
	limiter ratelimit.Limiter
	auditor authapi.Auditor
}

// openStores decides between Postgres-backed persistence and in-memory stores.
func (a *App) openStores(ctx context.Context, authCfg authapi.Config) (stores, error) {
	policy := ratelimit.Policy{Threshold: authCfg.LoginMaxAttempts, Window: authCfg.LoginWindow}

	if a.cfg.DatabaseURL == "" {
		a.log.Info("db.disabled.inmemory_store")
		return stores{
			users:   identity.NewMemoryStore(),
			tokens:  tokenstore.NewMemoryStore(),
			limiter: ratelimit.NewMemory(policy),
		}, nil
	}

	pool, err := NewDBPool(ctx, a.cfg)
	if err != nil {
		return stores{}, fmt.Errorf("db: %w", err)
	}
	a.dbPool = pool

	if a.cfg.DBMigrate {
		v, err := migrate.UpWithVersion(ctx, pool)
		if err != nil {
			pool.Close()
			return stores{}, fmt.Errorf("db migrate: %w", err)
		}
		a.log.Info("db.migrate.ok", "version", v)
	}

	users, err := identity.NewPostgresStore(pool)
	if err != nil {
		pool.Close()
		return stores{}, err
	}
	tokens, err := tokenstore.NewPostgresStore(pool, "")
	if err != nil {
		pool.Close()
		return stores{}, err
	}
	limiter, err := ratelimit.NewPostgres(pool, "", policy)
	if err != nil {
		pool.Close()
		return stores{}, err
	}
	auditor, err := authapi.NewPostgresAuditor(a.log, pool, "")
	if err != nil {
		pool.Close()
		return stores{}, err
	}

	a.log.Info("db.enabled.postgres_store")
	return stores{users: users, tokens: tokens, limiter: limiter, auditor: auditor}, nil
}

// Handler returns the fully wrapped HTTP handler.
func (a *App) Handler() http.Handler { return a.handler }

// Run starts the HTTP server and blocks until context cancellation or fatal server error.
func (a *App) Run(ctx context.Context) error {
	srv := &http.Server{
		Addr:              a.cfg.HTTPAddr,
		Handler:           a.handler,
		ReadHeaderTimeout: nonZeroDuration(a.cfg.ReadHeaderTimeout, 5*time.Second),
		ReadTimeout:       nonZeroDuration(a.cfg.ReadTimeout, 15*time.Second),
		WriteTimeout:      nonZeroDuration(a.cfg.WriteTimeout, 15*time.Second),
		IdleTimeout:       nonZeroDuration(a.cfg.IdleTimeout, 60*time.Second),
		MaxHeaderBytes:    nonZeroInt(a.cfg.MaxHeaderBytes, 1<<20),
	}

	a.log.Info("server.start", "addr", a.cfg.HTTPAddr, "db_enabled", a.dbPool != nil)

	errCh := make(chan error, 1)
	go func() {
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	select {
	case <-ctx.Done():
		a.log.Info("server.stop", "reason", "context_done")
	case err := <-errCh:
		a.log.Error("server.fail", "err", err)
		a.closeResources()
		return err
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), nonZeroDuration(a.cfg.ShutdownTimeout, 10*time.Second))
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		a.log.Error("server.shutdown.fail", "err", err)
		a.closeResources()
		return err
	}

	a.closeResources()
	a.log.Info("server.stopped")
	return nil
}

// closeResources drains the broker and closes the pool. Safe to call twice.
func (a *App) closeResources() {
	if a.bus != nil {
		a.bus.Close()
		a.bus = nil
	}
	if a.dbPool != nil {
		a.dbPool.Close()
		a.dbPool = nil
	}
}

func nonZeroDuration(v, def time.Duration) time.Duration {
	if v <= 0 {
		return def
	}
	return v
}

func nonZeroInt(v, def int) int {
	if v <= 0 {
		return def
	}
	return v
}
