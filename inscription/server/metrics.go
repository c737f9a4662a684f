package server

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const metricsNamespace = "zins"

const (
	cycleResultOk      = "ok"
	cycleResultError   = "error"
	cycleResultSkipped = "skipped"
)

// Metrics are the scan loop gauges and counters.
type Metrics struct {
	cycles        *prometheus.CounterVec
	cycleDuration prometheus.Histogram
	lastSuccess   prometheus.Gauge
	running       prometheus.Gauge
}

// NewMetrics registers the scan loop metrics on reg. A nil reg keeps them
// unregistered.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	factory := promauto.With(reg)
	return &Metrics{
		cycles: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: metricsNamespace,
			Name:      "scan_cycles_total",
			Help:      "Scan cycles by result",
		}, []string{"result"}),
		cycleDuration: factory.NewHistogram(prometheus.HistogramOpts{
			Namespace: metricsNamespace,
			Name:      "scan_cycle_duration_seconds",
			Help:      "Duration of completed scan cycles",
			Buckets:   prometheus.ExponentialBuckets(0.5, 2, 12),
		}),
		lastSuccess: factory.NewGauge(prometheus.GaugeOpts{
			Namespace: metricsNamespace,
			Name:      "scan_last_success_timestamp_seconds",
			Help:      "Unix time of the last successful scan cycle",
		}),
		running: factory.NewGauge(prometheus.GaugeOpts{
			Namespace: metricsNamespace,
			Name:      "scan_cycle_running",
			Help:      "1 while a scan cycle is running",
		}),
	}
}
