package metric

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/yndnr/shadowhome-go/internal/core/domain"
	"github.com/yndnr/shadowhome-go/internal/core/service"
)

const namespace = "shadowhome"

// Registry holds all application metrics on a private prometheus registry.
type Registry struct {
	registry *prometheus.Registry

	// Wallet session
	Transitions       *prometheus.CounterVec
	Operations        *prometheus.CounterVec
	OperationDuration *prometheus.HistogramVec
	ProviderEvents    *prometheus.CounterVec

	// HTTP
	RequestsTotal   *prometheus.CounterVec
	RequestDuration *prometheus.HistogramVec
	StreamClients   prometheus.Gauge
}

var _ service.Observer = (*Registry)(nil)

// NewRegistry creates a registry with Go runtime and process collectors.
func NewRegistry() *Registry {
	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)

	r := &Registry{
		registry: reg,
		Transitions: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "wallet",
			Name:      "transitions_total",
			Help:      "Wallet session state transitions",
		}, []string{"from", "to"}),
		Operations: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "wallet",
			Name:      "operations_total",
			Help:      "Wallet operations by outcome",
		}, []string{"op", "result"}),
		OperationDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "wallet",
			Name:      "operation_duration_seconds",
			Help:      "Wallet operation latency, including user prompts",
			Buckets:   []float64{.01, .05, .1, .5, 1, 2.5, 5, 10, 30, 60, 120},
		}, []string{"op"}),
		ProviderEvents: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "wallet",
			Name:      "provider_events_total",
			Help:      "Accepted wallet provider events",
		}, []string{"kind"}),
		RequestsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "requests_total",
			Help:      "HTTP requests by route and status",
		}, []string{"method", "route", "status"}),
		RequestDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "request_duration_seconds",
			Help:      "HTTP request latency",
			Buckets:   prometheus.DefBuckets,
		}, []string{"method", "route"}),
		StreamClients: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "wallet",
			Name:      "stream_clients",
			Help:      "Open snapshot stream connections",
		}),
	}

	reg.MustRegister(
		r.Transitions,
		r.Operations,
		r.OperationDuration,
		r.ProviderEvents,
		r.RequestsTotal,
		r.RequestDuration,
		r.StreamClients,
	)
	return r
}

// Handler returns an HTTP handler exposing r.
func (r *Registry) Handler() http.Handler {
	return promhttp.HandlerFor(r.registry, promhttp.HandlerOpts{Registry: r.registry})
}

// Registerer returns the underlying registerer for additional collectors.
func (r *Registry) Registerer() prometheus.Registerer {
	return r.registry
}

// Gatherer returns the underlying gatherer.
func (r *Registry) Gatherer() prometheus.Gatherer {
	return r.registry
}

// OnTransition implements service.Observer.
func (r *Registry) OnTransition(t service.Transition) {
	r.Transitions.WithLabelValues(t.From.String(), t.To.String()).Inc()
}

// OnOperation implements service.Observer.
func (r *Registry) OnOperation(op service.Operation, err error, elapsed time.Duration) {
	result := "ok"
	if err != nil {
		result = string(domain.KindOf(err))
	}
	r.Operations.WithLabelValues(string(op), result).Inc()
	r.OperationDuration.WithLabelValues(string(op)).Observe(elapsed.Seconds())
}

// OnProviderEvent implements service.Observer.
func (r *Registry) OnProviderEvent(ev domain.ProviderEvent) {
	r.ProviderEvents.WithLabelValues(ev.Kind.String()).Inc()
}

// RecordRequest counts one HTTP request.
func (r *Registry) RecordRequest(method, route string, status int) {
	r.RequestsTotal.WithLabelValues(method, route, strconv.Itoa(status)).Inc()
}

// ObserveRequestDuration records HTTP request latency.
func (r *Registry) ObserveRequestDuration(method, route string, d time.Duration) {
	r.RequestDuration.WithLabelValues(method, route).Observe(d.Seconds())
}
