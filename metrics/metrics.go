// Package metrics provides the Prometheus instrumentation shared by the
// config store, download engine, and transaction engine. ResolveDuration
// is registered but no component records into it. The core
// never hosts an HTTP server (spec non-goal); it only exposes a Registry
// and a Handler() factory for an embedding host to mount.
package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Registry owns one isolated Prometheus registry so importing this
// package never mutates prometheus.DefaultRegisterer.
type Registry struct {
	reg *prometheus.Registry

	ConfigWritesTotal    *prometheus.CounterVec
	DownloadsTotal       *prometheus.CounterVec
	DownloadBytesTotal   prometheus.Counter
	ResolveDuration      *prometheus.HistogramVec
	TransactionsTotal    *prometheus.CounterVec
	TransactionStepTime  *prometheus.HistogramVec
}

// New constructs a Registry with every metric registered.
func New() *Registry {
	reg := prometheus.NewRegistry()
	factory := promauto.With(reg)

	return &Registry{
		reg: reg,

		ConfigWritesTotal: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: "pahkat",
			Subsystem: "config",
			Name:      "writes_total",
			Help:      "Total successful config document writes, by mutator.",
		}, []string{"mutator"}),

		DownloadsTotal: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: "pahkat",
			Subsystem: "download",
			Name:      "downloads_total",
			Help:      "Total download attempts by terminal status.",
		}, []string{"status"}),

		DownloadBytesTotal: factory.NewCounter(prometheus.CounterOpts{
			Namespace: "pahkat",
			Subsystem: "download",
			Name:      "bytes_total",
			Help:      "Total bytes written to disk across all downloads.",
		}),

		ResolveDuration: factory.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "pahkat",
			Subsystem: "resolve",
			Name:      "duration_seconds",
			Help:      "Dependency resolution wall-clock duration.",
			Buckets:   []float64{0.001, 0.005, 0.01, 0.05, 0.1, 0.5, 1, 5},
		}, []string{"action"}),

		TransactionsTotal: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: "pahkat",
			Subsystem: "transaction",
			Name:      "transactions_total",
			Help:      "Total transactions run, by terminal status.",
		}, []string{"status"}),

		TransactionStepTime: factory.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "pahkat",
			Subsystem: "transaction",
			Name:      "step_duration_seconds",
			Help:      "Whole-transaction duration (action=\"transaction\"), by terminal status.",
			Buckets:   []float64{0.01, 0.05, 0.1, 0.5, 1, 5, 30, 120},
		}, []string{"action", "status"}),
	}
}

// Handler returns an http.Handler exposing this registry in the
// Prometheus exposition format, for an embedding host to mount at
// whatever path it chooses. The core itself never listens on a socket.
func (r *Registry) Handler() http.Handler {
	return promhttp.HandlerFor(r.reg, promhttp.HandlerOpts{})
}
