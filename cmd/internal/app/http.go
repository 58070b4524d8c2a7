package app

import (
	"net/http"
	"time"

	authapi "coldeye/cmd/internal/auth/api"
	"coldeye/cmd/internal/company"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/redis/go-redis/v9"
)

// routes is everything registerHTTP mounts. Nil members are skipped.
type routes struct {
	dbPool   *pgxpool.Pool
	redis    redis.UniversalClient
	registry *prometheus.Registry

	auth      *authapi.Handler
	companies *company.Handler
}

func registerHTTP(mux *http.ServeMux, log Logger, cfg Config, rt routes) {
	mux.HandleFunc("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok\n"))
	})

	mux.HandleFunc("/readyz", func(w http.ResponseWriter, r *http.Request) {
		if cfg.ReadinessRequireDB && rt.dbPool == nil {
			http.Error(w, "db not configured", http.StatusServiceUnavailable)
			return
		}

		if rt.dbPool != nil {
			if err := PingDB(r.Context(), rt.dbPool, 2*time.Second); err != nil {
				http.Error(w, "db not ready", http.StatusServiceUnavailable)
				log.Info("readyz.db.not_ready", "err", err)
				return
			}
		}

		if rt.redis != nil {
			if err := PingRedis(r.Context(), rt.redis, time.Second); err != nil {
				http.Error(w, "redis not ready", http.StatusServiceUnavailable)
				log.Info("readyz.redis.not_ready", "err", err)
				return
			}
		}

		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ready\n"))
	})

	if rt.registry != nil {
		mux.Handle("GET /metrics", metricsHandler(rt.registry))
	}

	if rt.auth != nil {
		rt.auth.Register(mux)
		if rt.companies != nil {
			rt.companies.Register(mux, rt.auth.RequireSession)
		}
	}
}
