package app

import (
	"log/slog"
	"net/http"
	"time"

	authapi "authcore/cmd/internal/auth/api"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/redis/go-redis/v9"
)

type routes struct {
	log      *slog.Logger
	cfg      Config
	pool     *pgxpool.Pool
	rdb      redis.UniversalClient
	gatherer prometheus.Gatherer
	auth     *authapi.Handler
}

func registerHTTP(mux *http.ServeMux, rt routes) {
	mux.HandleFunc("GET /healthz", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok\n"))
	})

	mux.HandleFunc("GET /readyz", func(w http.ResponseWriter, r *http.Request) {
		if rt.cfg.ReadinessRequireDB && rt.pool == nil {
			http.Error(w, "db not configured", http.StatusServiceUnavailable)
			return
		}
		if rt.pool != nil {
			if err := PingDB(r.Context(), rt.pool, 2*time.Second); err != nil {
				rt.log.Info("readyz.db.not_ready", "err", err)
				http.Error(w, "db not ready", http.StatusServiceUnavailable)
				return
			}
		}
		if rt.rdb != nil {
			if err := PingRedis(r.Context(), rt.rdb, 2*time.Second); err != nil {
				rt.log.Info("readyz.redis.not_ready", "err", err)
				http.Error(w, "redis not ready", http.StatusServiceUnavailable)
				return
			}
		}
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ready\n"))
	})

	if rt.gatherer != nil {
		mux.Handle("GET /metrics", promhttp.HandlerFor(rt.gatherer, promhttp.HandlerOpts{}))
	}

	prefix := rt.cfg.APIPrefix()
	authapi.RegisterFeatures(mux, prefix)
	if rt.auth != nil {
		rt.auth.Register(mux, prefix)
	}
}

// newHTTPHandler builds the mux and wraps it with the middleware stack.
func newHTTPHandler(rt routes, m *httpMetrics) http.Handler {
	mux := http.NewServeMux()
	registerHTTP(mux, rt)

	return Chain(mux,
		func(h http.Handler) http.Handler { return WithRequestLogging(h, rt.log) },
		func(h http.Handler) http.Handler { return WithHTTPMetrics(h, m) },
		func(h http.Handler) http.Handler { return WithRecover(h, rt.log) },
		WithSecurityHeaders,
		func(h http.Handler) http.Handler { return WithCORS(h, rt.cfg, rt.log) },
	)
}
