package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

const prefix = "huff_"

// Metrics collects per-command counters for the node_exporter textfile collector.
type Metrics struct {
	registry *prometheus.Registry

	TotalOperations    *prometheus.CounterVec
	TotalBytes         *prometheus.CounterVec
	OperationDurations *prometheus.HistogramVec
}

func New() *Metrics {
	m := &Metrics{
		registry: prometheus.NewRegistry(),

		TotalOperations: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: prefix + "total_operations",
				Help: "Total number of codec operations run",
			},
			[]string{"op", "result"},
		),
		TotalBytes: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: prefix + "total_bytes",
				Help: "Total number of bytes read and written by codec operations",
			},
			[]string{"op", "direction"},
		),
		OperationDurations: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    prefix + "operation_durations",
				Help:    "Total seconds of durations for codec operations",
				Buckets: []float64{0.001, 0.005, 0.01, 0.05, 0.1, 0.25, 0.5, 1, 2, 5, 10, 30},
			},
			[]string{"op"},
		),
	}
	m.registry.MustRegister(m.TotalOperations, m.TotalBytes, m.OperationDurations)
	return m
}

// Observe records one finished operation. A non-nil err counts as a failure
// and its byte counts are ignored.
func (m *Metrics) Observe(op string, in, out int64, elapsed time.Duration, err error) {
	m.OperationDurations.WithLabelValues(op).Observe(elapsed.Seconds())
	if err != nil {
		m.TotalOperations.WithLabelValues(op, "error").Inc()
		return
	}
	m.TotalOperations.WithLabelValues(op, "ok").Inc()
	m.TotalBytes.WithLabelValues(op, "in").Add(float64(in))
	m.TotalBytes.WithLabelValues(op, "out").Add(float64(out))
}

func (m *Metrics) Registry() *prometheus.Registry {
	return m.registry
}

// WriteTextfile atomically replaces path with the current registry contents.
func (m *Metrics) WriteTextfile(path string) error {
	return prometheus.WriteToTextfile(path, m.registry)
}
