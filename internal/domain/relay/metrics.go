package relay

import (
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics counts relayed requests and times the upstream round trip.
type Metrics struct {
	requests *prometheus.CounterVec
	upstream *prometheus.HistogramVec
}

// NewMetrics registers the relay collectors on reg. A nil reg leaves the
// collectors unregistered.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	factory := promauto.With(reg)
	return &Metrics{
		requests: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: "venue",
			Subsystem: "relay",
			Name:      "requests_total",
			Help:      "Relay requests by method and response status.",
		}, []string{"method", "status"}),
		upstream: factory.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "venue",
			Subsystem: "relay",
			Name:      "upstream_duration_seconds",
			Help:      "Latency of the forwarded request.",
			Buckets:   prometheus.DefBuckets,
		}, []string{"method"}),
	}
}

func (m *Metrics) observe(method string, status int) {
	if m == nil {
		return
	}
	m.requests.WithLabelValues(method, strconv.Itoa(status)).Inc()
}

func (m *Metrics) timeUpstream(method string, started time.Time) {
	if m == nil {
		return
	}
	m.upstream.WithLabelValues(method).Observe(time.Since(started).Seconds())
}
