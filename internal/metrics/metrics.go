// Package metrics exposes reconciliation counters on a private Prometheus
// registry.
package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/roach88/recon/internal/engine"
)

// Run outcomes recorded by ObserveRun.
const (
	OutcomeOK    = "ok"
	OutcomeError = "error"
)

// Metrics owns the registry and the recon collectors.
type Metrics struct {
	registry *prometheus.Registry

	RunsTotal     *prometheus.CounterVec   // outcome
	RunDuration   prometheus.Histogram     // seconds per engine run
	BreaksTotal   *prometheus.CounterVec   // bucket
	WarningsTotal *prometheus.CounterVec   // code
	CacheLookups  *prometheus.CounterVec   // result: hit|miss
	HTTPRequests  *prometheus.CounterVec   // method, path, status
	HTTPDuration  *prometheus.HistogramVec // method, path
}

// New creates a registry with the Go runtime and process collectors plus
// the recon collectors. Break buckets are pre-initialized so every label
// is exported from the first scrape.
func New() *Metrics {
	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector())
	reg.MustRegister(collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))

	m := &Metrics{registry: reg}

	m.RunsTotal = m.newCounterVec(prometheus.CounterOpts{
		Name: "recon_runs_total",
		Help: "Reconciliation runs by outcome",
	}, []string{"outcome"})

	m.RunDuration = prometheus.NewHistogram(prometheus.HistogramOpts{
		Name:    "recon_run_duration_seconds",
		Help:    "Wall time of a reconciliation run",
		Buckets: prometheus.DefBuckets,
	})
	reg.MustRegister(m.RunDuration)

	m.BreaksTotal = m.newCounterVec(prometheus.CounterOpts{
		Name: "recon_breaks_total",
		Help: "Breaks counted into each difference bucket",
	}, []string{"bucket"})
	for _, label := range engine.BucketLabels {
		m.BreaksTotal.WithLabelValues(label)
	}

	m.WarningsTotal = m.newCounterVec(prometheus.CounterOpts{
		Name: "recon_warnings_total",
		Help: "Non-fatal warnings by code",
	}, []string{"code"})

	m.CacheLookups = m.newCounterVec(prometheus.CounterOpts{
		Name: "recon_cache_lookups_total",
		Help: "Report cache lookups by result",
	}, []string{"result"})

	m.HTTPRequests = m.newCounterVec(prometheus.CounterOpts{
		Name: "recon_http_requests_total",
		Help: "HTTP requests served",
	}, []string{"method", "path", "status"})

	m.HTTPDuration = prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "recon_http_request_duration_seconds",
		Help:    "HTTP request latency in seconds",
		Buckets: prometheus.DefBuckets,
	}, []string{"method", "path"})
	reg.MustRegister(m.HTTPDuration)

	return m
}

func (m *Metrics) newCounterVec(opts prometheus.CounterOpts, labels []string) *prometheus.CounterVec {
	cv := prometheus.NewCounterVec(opts, labels)
	m.registry.MustRegister(cv)
	return cv
}

// ObserveRun records one engine run. res is nil when err is non-nil.
func (m *Metrics) ObserveRun(res *engine.Result, elapsed time.Duration, err error) {
	m.RunDuration.Observe(elapsed.Seconds())
	if err != nil {
		m.RunsTotal.WithLabelValues(OutcomeError).Inc()
		return
	}
	m.RunsTotal.WithLabelValues(OutcomeOK).Inc()
	for _, c := range res.Summary {
		if c.Count > 0 {
			m.BreaksTotal.WithLabelValues(c.Label).Add(float64(c.Count))
		}
	}
	for _, w := range res.Warnings {
		m.WarningsTotal.WithLabelValues(string(w.Code)).Inc()
	}
}

// ObserveCache records a cache lookup.
func (m *Metrics) ObserveCache(hit bool) {
	if hit {
		m.CacheLookups.WithLabelValues("hit").Inc()
		return
	}
	m.CacheLookups.WithLabelValues("miss").Inc()
}

// Registry returns the underlying registry, mainly for tests.
func (m *Metrics) Registry() *prometheus.Registry {
	return m.registry
}

// Handler serves the registry in the Prometheus exposition format.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}
