// Package metrics provides Prometheus metric definitions and a metrics HTTP
// server for the lock broker.
//
// Usage:
//
//	m := metrics.NewBrokerMetrics()
//	go m.Serve(":9651")
package metrics

import (
	"log"
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// BrokerMetrics holds all Prometheus metrics for the lock broker.
type BrokerMetrics struct {
	// gRPC – Acquire RPC
	AcquireRequestsTotal *prometheus.CounterVec
	AcquireWaitSeconds   prometheus.Histogram

	// gRPC – Release RPC
	ReleaseRequestsTotal *prometheus.CounterVec

	// Lock table state
	HeldLocks     prometheus.Gauge
	QueuedWaiters prometheus.Gauge

	registry *prometheus.Registry
}

// NewBrokerMetrics registers and returns a new BrokerMetrics instance backed
// by its own Prometheus registry. All metrics use the "lockbox_broker"
// namespace.
func NewBrokerMetrics() *BrokerMetrics {
	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)

	m := &BrokerMetrics{
		registry: reg,

		AcquireRequestsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "lockbox",
			Subsystem: "broker",
			Name:      "acquire_requests_total",
			Help:      "Total number of Acquire gRPC requests received by the broker.",
		}, []string{"status"}), // status: "granted" | "contended" | "timeout" | "error"

		AcquireWaitSeconds: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: "lockbox",
			Subsystem: "broker",
			Name:      "acquire_wait_seconds",
			Help:      "Time callers spent waiting for a lock grant, in seconds.",
			Buckets:   prometheus.DefBuckets,
		}),

		ReleaseRequestsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "lockbox",
			Subsystem: "broker",
			Name:      "release_requests_total",
			Help:      "Total number of Release gRPC requests received by the broker.",
		}, []string{"status"}), // status: "released" | "stale" | "error"

		HeldLocks: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: "lockbox",
			Subsystem: "broker",
			Name:      "held_locks",
			Help:      "Current number of named locks with an active holder.",
		}),

		QueuedWaiters: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: "lockbox",
			Subsystem: "broker",
			Name:      "queued_waiters",
			Help:      "Current number of callers queued behind a lock holder.",
		}),
	}

	reg.MustRegister(
		m.AcquireRequestsTotal,
		m.AcquireWaitSeconds,
		m.ReleaseRequestsTotal,
		m.HeldLocks,
		m.QueuedWaiters,
	)

	return m
}

// Serve starts an HTTP server exposing the /metrics endpoint on addr.
// It blocks until the server exits and logs any error.
func (m *BrokerMetrics) Serve(addr string) {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{}))
	log.Printf("Lock broker Prometheus metrics server listening on %s/metrics", addr)
	if err := http.ListenAndServe(addr, mux); err != nil {
		log.Printf("Lock broker metrics server error: %v", err)
	}
}
