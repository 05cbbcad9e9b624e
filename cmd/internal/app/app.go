// Package app wires the authcore server runtime: config, logging, storage
// backends, metrics and HTTP routes.
package app

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"sync"
	"time"

	"authcore/cmd/identity"
	authapi "authcore/cmd/internal/auth/api"
	"authcore/cmd/internal/auth/session"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/redis/go-redis/v9"
	"go.opentelemetry.io/otel"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
)

// App is the authcore server runtime. It owns the DB pool, the Redis client
// and the tracer provider and releases them on shutdown.
type App struct {
	cfg Config
	log Logger

	pool *pgxpool.Pool
	rdb  *redis.Client

	registry *prometheus.Registry
	tracer   *sdktrace.TracerProvider
	sessions session.Store
	reaper   *session.Reaper
	handler  http.Handler
}

// New constructs a fully wired App from config and logger.
func New(ctx context.Context, cfg Config, log Logger) (_ *App, err error) {
	if log == nil {
		log = NewLogger(cfg.LogLevel, cfg.LogFormat)
	}

	sessCfg, err := cfg.SessionConfig()
	if err != nil {
		return nil, err
	}
	pwCfg, err := cfg.PasswordConfig()
	if err != nil {
		return nil, err
	}

	a := &App{cfg: cfg, log: log, registry: newRegistry()}
	defer func() {
		if err != nil {
			a.closeResources()
		}
	}()

	a.tracer, err = NewTracerProvider(ctx, cfg)
	if err != nil {
		return nil, err
	}
	otel.SetTracerProvider(a.tracer)

	if cfg.DatabaseURL != "" {
		a.pool, err = NewDBPool(ctx, cfg)
		if err != nil {
			return nil, fmt.Errorf("db: %w", err)
		}
	}
	if cfg.RedisURL != "" {
		a.rdb, err = NewRedisClient(ctx, cfg.RedisURL)
		if err != nil {
			return nil, fmt.Errorf("redis: %w", err)
		}
	}

	users, err := a.newPrincipalStore()
	if err != nil {
		return nil, err
	}
	a.sessions, err = a.newSessionStore()
	if err != nil {
		return nil, err
	}

	svc, err := session.NewService(sessCfg, a.sessions, authapi.Principals(users),
		session.WithLogger(log),
		session.WithMetrics(session.NewMetrics(a.registry)),
		session.WithTracerProvider(a.tracer),
	)
	if err != nil {
		return nil, err
	}
	a.reaper = session.NewReaper(a.sessions, sessCfg.ReapInterval, sessCfg.StoreTimeout, log)

	auth, err := authapi.NewHandler(log, users, svc, pwCfg, cfg.APIConfig())
	if err != nil {
		return nil, err
	}

	rt := routes{log: log, cfg: cfg, pool: a.pool, gatherer: a.registry, auth: auth}
	if a.rdb != nil {
		rt.rdb = a.rdb
	}
	a.handler = newHTTPHandler(rt, newHTTPMetrics(a.registry))

	log.Info("app.ready",
		"env", cfg.Env,
		"session_store", cfg.SessionStore,
		"db_enabled", a.pool != nil,
		"redis_enabled", a.rdb != nil,
		"otlp_enabled", cfg.OTLPEndpoint != "",
	)
	return a, nil
}

func (a *App) newPrincipalStore() (identity.Store, error) {
	if a.pool == nil {
		a.log.Info("identity.store.memory")
		return identity.NewMemoryStore(), nil
	}
	return identity.NewPostgresStore(a.pool, identity.WithSchema(a.cfg.DBSchema))
}

func (a *App) newSessionStore() (session.Store, error) {
	switch a.cfg.SessionStore {
	case StorePostgres:
		if a.pool == nil {
			return nil, errors.New("session store postgres: no database")
		}
		return session.NewPostgresStore(a.pool, session.WithSchema(a.cfg.DBSchema))
	case StoreRedis:
		if a.rdb == nil {
			return nil, errors.New("session store redis: no client")
		}
		return session.NewRedisStore(a.rdb, a.cfg.RedisPrefix), nil
	default:
		a.log.Info("session.store.memory")
		return session.NewMemoryStore(), nil
	}
}

// Handler is the fully wrapped HTTP handler.
func (a *App) Handler() http.Handler { return a.handler }

// Run starts the HTTP server and the session reaper and blocks until ctx
// is cancelled or the server fails.
func (a *App) Run(ctx context.Context) error {
	srv := &http.Server{
		Addr:              a.cfg.Addr(),
		Handler:           a.handler,
		ReadHeaderTimeout: nonZeroDuration(a.cfg.ReadHeaderTimeout, 5*time.Second),
		ReadTimeout:       nonZeroDuration(a.cfg.ReadTimeout, 15*time.Second),
		WriteTimeout:      nonZeroDuration(a.cfg.WriteTimeout, 15*time.Second),
		IdleTimeout:       nonZeroDuration(a.cfg.IdleTimeout, 60*time.Second),
		MaxHeaderBytes:    nonZeroInt(a.cfg.MaxHeaderBytes, 1<<20),
	}

	reapCtx, stopReaper := context.WithCancel(ctx)
	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		a.reaper.Run(reapCtx)
	}()
	defer func() {
		stopReaper()
		wg.Wait()
		a.closeResources()
	}()

	a.log.Info("server.start", "addr", srv.Addr, "api_prefix", a.cfg.APIPrefix())

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
		return err
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), nonZeroDuration(a.cfg.ShutdownTimeout, 10*time.Second))
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		a.log.Error("server.shutdown.fail", "err", err)
		return err
	}

	a.log.Info("server.stopped")
	return nil
}

func (a *App) closeResources() {
	if a.rdb != nil {
		if err := a.rdb.Close(); err != nil {
			a.log.Error("redis.close.fail", "err", err)
		}
		a.rdb = nil
	}
	if a.pool != nil {
		a.pool.Close()
		a.pool = nil
	}
	if a.tracer != nil {
		ctx, cancel := context.WithTimeout(context.Background(), nonZeroDuration(a.cfg.ShutdownTimeout, 10*time.Second))
		defer cancel()
		if err := a.tracer.Shutdown(ctx); err != nil {
			a.log.Error("otel.shutdown.fail", "err", err)
		}
		a.tracer = nil
	}
}

// Close releases storage and tracing resources without running the server.
func (a *App) Close() { a.closeResources() }

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
