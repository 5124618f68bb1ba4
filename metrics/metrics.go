// Package metrics exposes name registry counters in Prometheus text format.
package metrics

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/VictoriaMetrics/metrics"
	"github.com/go-chi/chi/v5"
)

// Namespace prefixes every metric name.
const Namespace = "namereg"

// MetricsServer serves /metrics on a dedicated listener.
type MetricsServer struct {
	srv *http.Server
}

// New creates a metrics server that will listen on addr once
// ListenAndServe is called.
func New(namespace, addr string) (*MetricsServer, error) {
	if namespace == "" {
		return nil, fmt.Errorf("metrics namespace must not be empty")
	}

	r := chi.NewRouter()
	r.Get("/metrics", Handler)

	return &MetricsServer{
		srv: &http.Server{
			Addr:              addr,
			Handler:           r,
			ReadHeaderTimeout: 5 * time.Second,
		},
	}, nil
}

// ListenAndServe blocks serving metrics until Shutdown is called.
func (m *MetricsServer) ListenAndServe() error {
	return m.srv.ListenAndServe()
}

// Shutdown stops the metrics server.
func (m *MetricsServer) Shutdown(ctx context.Context) error {
	return m.srv.Shutdown(ctx)
}

// Handler writes all registered metrics, including process metrics.
func Handler(w http.ResponseWriter, _ *http.Request) {
	w.Header().Set("Content-Type", "text/plain; version=0.0.4")
	metrics.WritePrometheus(w, true)
}

// UpdateAccepted counts an update that passed validation.
func UpdateAccepted() {
	metrics.GetOrCreateCounter(Namespace + "_updates_accepted_total").Inc()
}

// UpdateRejected counts a rejected update by validation kind, or
// "malformed_body" for requests that could not be decoded.
func UpdateRejected(kind string) {
	metrics.GetOrCreateCounter(fmt.Sprintf(`%s_updates_rejected_total{kind=%q}`, Namespace, kind)).Inc()
}

// UserRegistered counts a key registration.
func UserRegistered(generated bool) {
	metrics.GetOrCreateCounter(fmt.Sprintf(`%s_users_registered_total{generated="%t"}`, Namespace, generated)).Inc()
}

// Lookup counts a read of the key or name table.
func Lookup(table string, found bool) {
	metrics.GetOrCreateCounter(fmt.Sprintf(`%s_lookups_total{table=%q,found="%t"}`, Namespace, table, found)).Inc()
}
