// Package adminhttp is the small ops surface that rides alongside the
// reactor: health, Prometheus metrics, and a read-only view of the
// worker's aggregation totals. It is a conventional net/http service,
// deliberately separate from the hand-rolled reactor in internal/
// gateway and internal/worker, which own the client-facing sockets.
package adminhttp

import (
	"encoding/json"
	"net/http"

	"github.com/gorilla/mux"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"github.com/lucas-de-lima/rinha-reactor-2025/internal/store"
)

// NewRouter builds the admin mux.Router. st may be nil (the gateway
// role has no store); the summary endpoint reports zeroed totals in
// that case.
func NewRouter(registry *prometheus.Registry, st *store.Store, log *zap.Logger) *mux.Router {
	router := mux.NewRouter()

	router.HandleFunc("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte(`{"status":"healthy"}`))
	}).Methods("GET")

	router.Handle("/metrics", promhttp.HandlerFor(registry, promhttp.HandlerOpts{})).Methods("GET")

	router.HandleFunc("/totals", func(w http.ResponseWriter, r *http.Request) {
		if st == nil {
			writeTotals(w, store.Totals{})
			return
		}
		totals, err := st.GetSummary()
		if err != nil {
			log.Error("adminhttp: read totals failed", zap.Error(err))
			w.WriteHeader(http.StatusInternalServerError)
			return
		}
		writeTotals(w, totals)
	}).Methods("GET")

	return router
}

func writeTotals(w http.ResponseWriter, t store.Totals) {
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(t)
}
