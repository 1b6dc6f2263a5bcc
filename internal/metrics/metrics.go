// Package metrics exposes store operation and HTTP counters on a private
// prometheus registry.
package metrics

import (
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/Joseda-hg/lazyplan/internal/store"
)

const namespace = "lazyplan"

type Metrics struct {
	registry *prometheus.Registry

	ops      *prometheus.CounterVec
	requests *prometheus.CounterVec
	latency  *prometheus.HistogramVec
	items    *prometheus.GaugeVec
}

func New() *Metrics {
	m := &Metrics{
		registry: prometheus.NewRegistry(),
		ops: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "operations_total",
			Help:      "Store operations by name and outcome.",
		}, []string{"op", "result"}),
		requests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "http_requests_total",
			Help:      "HTTP requests by method, route and status code.",
		}, []string{"method", "route", "code"}),
		latency: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "http_request_duration_seconds",
			Help:      "HTTP request latency.",
			Buckets:   prometheus.DefBuckets,
		}, []string{"method", "route"}),
		items: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "items",
			Help:      "Items currently held, by kind.",
		}, []string{"kind"}),
	}
	m.registry.MustRegister(
		m.ops,
		m.requests,
		m.latency,
		m.items,
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	return m
}

// ObserveOp counts one store operation. Conflicts and reference failures are
// labelled separately from other errors.
func (m *Metrics) ObserveOp(op string, err error) {
	m.ops.WithLabelValues(op, result(err)).Inc()
}

func result(err error) string {
	switch {
	case err == nil:
		return "ok"
	case errors.Is(err, store.ErrConflict):
		return "conflict"
	case errors.Is(err, store.ErrReference):
		return "reference"
	case errors.Is(err, store.ErrInvalid):
		return "invalid"
	default:
		return "error"
	}
}

func (m *Metrics) ObserveRequest(method, route string, code int, elapsed time.Duration) {
	m.requests.WithLabelValues(method, route, strconv.Itoa(code)).Inc()
	m.latency.WithLabelValues(method, route).Observe(elapsed.Seconds())
}

func (m *Metrics) SetCounts(counts store.Counts) {
	m.items.WithLabelValues("plain").Set(float64(counts.Plain))
	m.items.WithLabelValues("group").Set(float64(counts.Groups))
	m.items.WithLabelValues("member").Set(float64(counts.Members))
	m.items.WithLabelValues("scheduled").Set(float64(counts.Scheduled))
	m.items.WithLabelValues("history").Set(float64(counts.History))
}

func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{Registry: m.registry})
}
