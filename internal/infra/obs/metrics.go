package obs

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics collects bus, HTTP and outbox metrics on its own registry.
type Metrics struct {
	registry *prometheus.Registry

	messages   *prometheus.CounterVec
	latency    *prometheus.HistogramVec
	httpTotal  *prometheus.CounterVec
	httpTiming *prometheus.HistogramVec
	published  *prometheus.CounterVec
}

func NewMetrics() *Metrics {
	m := &Metrics{
		registry: prometheus.NewRegistry(),
		messages: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "depositrent",
			Name:      "bus_messages_total",
			Help:      "Commands and queries handled, by outcome.",
		}, []string{"kind", "key", "outcome"}),
		latency: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "depositrent",
			Name:      "bus_message_duration_seconds",
			Help:      "Time spent handling commands and queries.",
			Buckets:   prometheus.DefBuckets,
		}, []string{"kind", "key"}),
		httpTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "depositrent",
			Name:      "http_requests_total",
			Help:      "HTTP requests served.",
		}, []string{"method", "route", "status"}),
		httpTiming: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "depositrent",
			Name:      "http_request_duration_seconds",
			Help:      "HTTP request latency.",
			Buckets:   prometheus.DefBuckets,
		}, []string{"method", "route"}),
		published: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "depositrent",
			Name:      "outbox_events_total",
			Help:      "Outbox events relayed to the broker, by outcome.",
		}, []string{"outcome"}),
	}
	m.registry.MustRegister(
		m.messages,
		m.latency,
		m.httpTotal,
		m.httpTiming,
		m.published,
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	return m
}

func (m *Metrics) ObserveCommand(key string, took time.Duration, err error) {
	m.observe("command", key, took, err)
}

func (m *Metrics) ObserveQuery(key string, took time.Duration, err error) {
	m.observe("query", key, took, err)
}

func (m *Metrics) observe(kind, key string, took time.Duration, err error) {
	outcome := "ok"
	if err != nil {
		outcome = "error"
	}
	m.messages.WithLabelValues(kind, key, outcome).Inc()
	m.latency.WithLabelValues(kind, key).Observe(took.Seconds())
}

func (m *Metrics) ObserveHTTP(method, route, status string, took time.Duration) {
	m.httpTotal.WithLabelValues(method, route, status).Inc()
	m.httpTiming.WithLabelValues(method, route).Observe(took.Seconds())
}

// ObservePublish counts relayed outbox events.
func (m *Metrics) ObservePublish(err error) {
	if err != nil {
		m.published.WithLabelValues("error").Inc()
		return
	}
	m.published.WithLabelValues("ok").Inc()
}

func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{Registry: m.registry})
}

func (m *Metrics) Registry() *prometheus.Registry {
	return m.registry
}
