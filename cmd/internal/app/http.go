package app

import (
	"encoding/json"
	"net/http"
	"time"

	authapi "careerquest/cmd/internal/auth/api"
	"careerquest/cmd/internal/metrics"

	"github.com/jackc/pgx/v5/pgxpool"
)

// brokerStatus is satisfied by *broker.NATS.
type brokerStatus interface {
	Ready() bool
}

type readinessResponse struct {
	Status string `json:"status"`
	DB     string `json:"db"`
	Broker string `json:"broker"`
}

func registerHTTP(
	mux *http.ServeMux,
	log Logger,
	cfg Config,
	dbPool *pgxpool.Pool,
	bus brokerStatus,
	m *metrics.Metrics,
	auth *authapi.Handler,
) {
	mux.HandleFunc("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "text/plain; charset=utf-8")
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok\n"))
	})

	mux.HandleFunc("/readyz", func(w http.ResponseWriter, r *http.Request) {
		resp := readinessResponse{Status: "ready", DB: "disabled", Broker: "disabled"}
		code := http.StatusOK

		switch {
		case dbPool != nil:
			if err := PingDB(r.Context(), dbPool, 2*time.Second); err != nil {
				log.Info("readyz.db.not_ready", "err", err)
				resp.DB = "down"
				code = http.StatusServiceUnavailable
			} else {
				resp.DB = "ok"
			}
		case cfg.ReadinessRequireDB:
			resp.DB = "not_configured"
			code = http.StatusServiceUnavailable
		}

		// Broker outages degrade audit fan-out only; they never fail readiness.
		if bus != nil {
			if bus.Ready() {
				resp.Broker = "ok"
			} else {
				resp.Broker = "down"
			}
		}

		if code != http.StatusOK {
			resp.Status = "not_ready"
		}
		w.Header().Set("Content-Type", "application/json; charset=utf-8")
		w.Header().Set("Cache-Control", "no-store")
		w.WriteHeader(code)
		_ = json.NewEncoder(w).Encode(resp)
	})

	if m != nil {
		mux.Handle("/metrics", m.Handler())
	}

	if auth != nil {
		auth.Register(mux)
	}
}
