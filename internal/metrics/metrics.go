// Package metrics exposes Prometheus counters and gauges for the MITM
// proxy: active sessions, bytes relayed per direction, and recorder
// flush counts, served on a /metrics HTTP endpoint.
package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Registry bundles the proxy's metric collectors so a session or the
// recorder can update them without importing prometheus directly.
type Registry struct {
	ActiveSessions   prometheus.Gauge
	BytesRelayed     *prometheus.CounterVec
	RecorderFlushes  prometheus.Counter
	SessionsStarted  prometheus.Counter
	SessionsFailed   prometheus.Counter
}

// Direction labels the BytesRelayed counter vector.
const (
	DirectionClientToServer = "client_to_server"
	DirectionServerToClient = "server_to_client"
)

// New builds and registers the proxy's metric collectors against reg.
func New(reg prometheus.Registerer) *Registry {
	m := &Registry{
		ActiveSessions: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: "rdp_mitm",
			Name:      "active_sessions",
			Help:      "Number of RDP MITM sessions currently relaying.",
		}),
		BytesRelayed: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "rdp_mitm",
			Name:      "bytes_relayed_total",
			Help:      "Total bytes relayed between client and server.",
		}, []string{"direction"}),
		RecorderFlushes: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "rdp_mitm",
			Name:      "recorder_flushes_total",
			Help:      "Total number of times a recorder sink crossed its flush threshold and opened its output.",
		}),
		SessionsStarted: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "rdp_mitm",
			Name:      "sessions_started_total",
			Help:      "Total number of MITM sessions accepted.",
		}),
		SessionsFailed: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "rdp_mitm",
			Name:      "sessions_failed_total",
			Help:      "Total number of MITM sessions that tore down on a fatal error.",
		}),
	}

	reg.MustRegister(m.ActiveSessions, m.BytesRelayed, m.RecorderFlushes, m.SessionsStarted, m.SessionsFailed)
	return m
}

// Handler returns the /metrics HTTP handler for reg.
func Handler(gatherer prometheus.Gatherer) http.Handler {
	return promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{})
}
