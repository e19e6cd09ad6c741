package observability

import (
	"bufio"
	"errors"
	"net"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics collects the Prometheus metrics of the live admin server.
type Metrics struct {
	registry        *prometheus.Registry
	handler         http.Handler
	requestsTotal   *prometheus.CounterVec
	requestDuration *prometheus.HistogramVec
	checksTotal     *prometheus.CounterVec
	fetchesTotal    *prometheus.CounterVec
	fetchDuration   *prometheus.HistogramVec
	liveSessions    *prometheus.GaugeVec
}

// NewMetrics initialises the registry and its collectors.
func NewMetrics() *Metrics {
	registry := prometheus.NewRegistry()
	requests := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "decoaromas_http_requests_total",
		Help: "HTTP requests by route and status code.",
	}, []string{"route", "code"})
	duration := prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "decoaromas_http_request_duration_seconds",
		Help:    "HTTP request duration by route.",
		Buckets: prometheus.DefBuckets,
	}, []string{"route"})
	checks := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "decoaromas_availability_checks_total",
		Help: "Settled availability checks by entity and outcome.",
	}, []string{"entity", "outcome"})
	fetches := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "decoaromas_report_fetch_total",
		Help: "Report slice fetches by slice and status.",
	}, []string{"slice", "status"})
	fetchDuration := prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "decoaromas_report_fetch_duration_seconds",
		Help:    "Report slice fetch duration.",
		Buckets: prometheus.DefBuckets,
	}, []string{"slice"})
	sessions := prometheus.NewGaugeVec(prometheus.GaugeOpts{
		Name: "decoaromas_live_sessions",
		Help: "Open websocket sessions by kind.",
	}, []string{"kind"})
	registry.MustRegister(requests, duration, checks, fetches, fetchDuration, sessions)
	return &Metrics{
		registry:        registry,
		handler:         promhttp.HandlerFor(registry, promhttp.HandlerOpts{}),
		requestsTotal:   requests,
		requestDuration: duration,
		checksTotal:     checks,
		fetchesTotal:    fetches,
		fetchDuration:   fetchDuration,
		liveSessions:    sessions,
	}
}

// Handler returns the /metrics handler.
func (m *Metrics) Handler() http.Handler {
	if m == nil {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			http.Error(w, http.StatusText(http.StatusServiceUnavailable), http.StatusServiceUnavailable)
		})
	}
	return m.handler
}

// Middleware records request metrics.
func (m *Metrics) Middleware(next http.Handler) http.Handler {
	if m == nil {
		return next
	}
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		recorder := statusRecorder{ResponseWriter: w, status: http.StatusOK}
		next.ServeHTTP(&recorder, r)
		route := routePattern(r)
		m.requestsTotal.WithLabelValues(route, strconv.Itoa(recorder.status)).Inc()
		m.requestDuration.WithLabelValues(route).Observe(time.Since(start).Seconds())
	})
}

// ObserveCheck counts one settled availability check.
func (m *Metrics) ObserveCheck(entity, outcome string) {
	if m == nil {
		return
	}
	m.checksTotal.WithLabelValues(entity, outcome).Inc()
}

// ObserveFetch records one settled report slice fetch.
func (m *Metrics) ObserveFetch(slice string, err error, took time.Duration) {
	if m == nil {
		return
	}
	status := "success"
	if err != nil {
		status = "failure"
	}
	m.fetchesTotal.WithLabelValues(slice, status).Inc()
	m.fetchDuration.WithLabelValues(slice).Observe(took.Seconds())
}

// SessionOpened increments the open session gauge; the returned func decrements it.
func (m *Metrics) SessionOpened(kind string) func() {
	if m == nil {
		return func() {}
	}
	g := m.liveSessions.WithLabelValues(kind)
	g.Inc()
	return g.Dec
}

// Registerer exposes the registry for custom collectors.
func (m *Metrics) Registerer() prometheus.Registerer {
	if m == nil {
		return prometheus.DefaultRegisterer
	}
	return m.registry
}

type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (r *statusRecorder) WriteHeader(status int) {
	r.status = status
	r.ResponseWriter.WriteHeader(status)
}

// Hijack lets websocket upgrades pass through the recorder.
func (r *statusRecorder) Hijack() (net.Conn, *bufio.ReadWriter, error) {
	hj, ok := r.ResponseWriter.(http.Hijacker)
	if !ok {
		return nil, nil, errors.New("observability: response writer does not support hijacking")
	}
	r.status = http.StatusSwitchingProtocols
	return hj.Hijack()
}

func routePattern(r *http.Request) string {
	if routeCtx := chi.RouteContext(r.Context()); routeCtx != nil {
		if pattern := routeCtx.RoutePattern(); pattern != "" {
			return pattern
		}
	}
	return "unknown"
}
