package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics holds the relay's collectors, registered once at startup and
// shared by the session manager and transports.
type Metrics struct {
	ConnectionsTotal prometheus.Counter
	OpenConnections  prometheus.Gauge
	Rooms            prometheus.Gauge
	ForwardedTotal   prometheus.Counter
	ProtocolErrors   prometheus.Counter
}

// New registers the relay collectors against reg.
func New(reg prometheus.Registerer) *Metrics {
	f := promauto.With(reg)
	return &Metrics{
		ConnectionsTotal: f.NewCounter(prometheus.CounterOpts{
			Name: "relay_connections_total",
			Help: "Accepted peer connections since start.",
		}),
		OpenConnections: f.NewGauge(prometheus.GaugeOpts{
			Name: "relay_open_connections",
			Help: "Currently connected peers.",
		}),
		Rooms: f.NewGauge(prometheus.GaugeOpts{
			Name: "relay_rooms",
			Help: "Rooms currently in the registry.",
		}),
		ForwardedTotal: f.NewCounter(prometheus.CounterOpts{
			Name: "relay_messages_forwarded_total",
			Help: "Payload envelopes relayed between room peers.",
		}),
		ProtocolErrors: f.NewCounter(prometheus.CounterOpts{
			Name: "relay_protocol_errors_total",
			Help: "Error replies sent for protocol violations.",
		}),
	}
}

// Handler exposes Prometheus metrics at /metrics
func Handler() http.Handler {
	return promhttp.Handler()
}
