// Package metrics exposes Prometheus collectors for the HTTP surface, the
// checkout flow and the remote API circuit breaker.
package metrics

import (
	"context"
	"net/http"
	"strconv"
	"time"

	"github.com/fjod/go_travel/internal/checkout"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

type Metrics struct {
	registry *prometheus.Registry

	httpInFlight prometheus.Gauge
	httpRequests *prometheus.CounterVec
	httpDuration *prometheus.HistogramVec

	checkoutEvents *prometheus.CounterVec
	checkoutStages *prometheus.CounterVec
	breakerState   *prometheus.GaugeVec
}

func New(namespace string) *Metrics {
	m := &Metrics{
		registry: prometheus.NewRegistry(),
		httpInFlight: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "http",
			Name:      "inflight_requests",
			Help:      "Current number of in-flight HTTP requests.",
		}),
		httpRequests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "http",
			Name:      "requests_total",
			Help:      "Total number of HTTP requests handled.",
		}, []string{"method", "route", "status"}),
		httpDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "http",
			Name:      "request_duration_seconds",
			Help:      "Duration of HTTP requests.",
			Buckets:   prometheus.ExponentialBuckets(0.005, 2, 12),
		}, []string{"method", "route"}),
		checkoutEvents: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "checkout",
			Name:      "events_total",
			Help:      "Checkout events by kind.",
		}, []string{"kind"}),
		checkoutStages: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "checkout",
			Name:      "stage_results_total",
			Help:      "Forward checkout actions by stage and outcome.",
		}, []string{"stage", "outcome"}),
		breakerState: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "remote",
			Name:      "circuit_breaker_open",
			Help:      "1 while the remote API circuit breaker is open.",
		}, []string{"name"}),
	}

	m.registry.MustRegister(
		m.httpInFlight,
		m.httpRequests,
		m.httpDuration,
		m.checkoutEvents,
		m.checkoutStages,
		m.breakerState,
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
		collectors.NewGoCollector(),
	)
	return m
}

func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

// Middleware records request count and latency labelled by chi route pattern.
func (m *Metrics) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		start := time.Now()

		m.httpInFlight.Inc()
		defer m.httpInFlight.Dec()

		next.ServeHTTP(ww, r)

		route := "unmatched"
		if rctx := chi.RouteContext(r.Context()); rctx != nil && rctx.RoutePattern() != "" {
			route = rctx.RoutePattern()
		}
		status := ww.Status()
		if status == 0 {
			status = http.StatusOK
		}

		m.httpRequests.WithLabelValues(r.Method, route, strconv.Itoa(status)).Inc()
		m.httpDuration.WithLabelValues(r.Method, route).Observe(time.Since(start).Seconds())
	})
}

// Observe implements checkout.Observer.
func (m *Metrics) Observe(_ context.Context, e checkout.Event) {
	m.checkoutEvents.WithLabelValues(string(e.Kind)).Inc()

	switch e.Kind {
	case checkout.EventTransactionCreated, checkout.EventTransactionReused:
		m.checkoutStages.WithLabelValues(checkout.StagePaymentMethod.String(), "success").Inc()
	case checkout.EventPaymentConfirmed:
		m.checkoutStages.WithLabelValues(checkout.StageUploadProof.String(), "success").Inc()
	case checkout.EventStageFailed:
		m.checkoutStages.WithLabelValues(e.Stage.String(), e.ErrorKind).Inc()
	}
}

// BreakerStateChanged matches circuitbreaker.Config.OnStateChange.
func (m *Metrics) BreakerStateChanged(name, _, to string) {
	v := 0.0
	if to == "open" {
		v = 1
	}
	m.breakerState.WithLabelValues(name).Set(v)
}
