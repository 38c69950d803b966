package server

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"

	"github.com/gorilla/mux"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/SedlarDavid/sqltools-mcp/internal/db"
)

// Pinger checks that the database is reachable. *db.Provider implements it.
type Pinger interface {
	Ping(ctx context.Context) error
}

// OpsRouter serves /metrics and /healthz for the metrics listener.
func OpsRouter(m *Metrics, p Pinger, log *slog.Logger) *mux.Router {
	r := mux.NewRouter()
	if m != nil {
		r.Handle("/metrics", promhttp.HandlerFor(m.Registry, promhttp.HandlerOpts{})).Methods(http.MethodGet)
	}
	r.HandleFunc("/healthz", func(w http.ResponseWriter, req *http.Request) {
		w.Header().Set("Content-Type", "text/plain; charset=utf-8")
		if p == nil {
			fmt.Fprintln(w, "ok")
			return
		}
		if err := p.Ping(req.Context()); err != nil {
			log.Warn("health check failed", slog.Any("error", err))
			w.WriteHeader(http.StatusServiceUnavailable)
			fmt.Fprintln(w, db.KindOf(err))
			return
		}
		fmt.Fprintln(w, "ok")
	}).Methods(http.MethodGet)
	return r
}
