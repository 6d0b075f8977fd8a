package netsync

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const namespace = "gravsim"

// Metrics are the Prometheus collectors of a Hub.
type Metrics struct {
	StepDuration prometheus.Histogram
	Bodies       prometheus.Gauge
	Merges       prometheus.Counter
	Energy       prometheus.Gauge
	Clients      prometheus.Gauge
	Commands     *prometheus.CounterVec
}

// NewMetrics registers the hub collectors with reg.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	f := promauto.With(reg)
	return &Metrics{
		StepDuration: f.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "step_duration_seconds",
			Help:      "Wall time of one simulation step.",
			Buckets:   prometheus.ExponentialBuckets(1e-5, 4, 10),
		}),
		Bodies: f.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "bodies",
			Help:      "Live bodies after the last step.",
		}),
		Merges: f.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "merges_total",
			Help:      "Bodies absorbed by inelastic merges.",
		}),
		Energy: f.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "energy_total",
			Help:      "Total mechanical energy after the last step.",
		}),
		Clients: f.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "clients",
			Help:      "Connected websocket clients.",
		}),
		Commands: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "commands_total",
			Help:      "Client commands by type and result code.",
		}, []string{"type", "code"}),
	}
}
