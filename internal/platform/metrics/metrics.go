package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics holds Prometheus counters and gauges for the multiview controller.
type Metrics struct {
	registry         *prometheus.Registry
	requestsTotal    prometheus.Counter
	errorsTotal      prometheus.Counter
	rejectedTotal    *prometheus.CounterVec
	actionsTotal     *prometheus.CounterVec
	correctionsTotal *prometheus.CounterVec
	proxyFailures    *prometheus.CounterVec
	drift            prometheus.Gauge
	behindLive       *prometheus.GaugeVec
	connectedClients prometheus.Gauge
}

// New creates and registers Prometheus metrics for the controller.
func New() *Metrics {
	registry := prometheus.NewRegistry()

	requestsTotal := prometheus.NewCounter(prometheus.CounterOpts{
		Name: "multiview_requests_total",
		Help: "Total number of HTTP requests received",
	})
	errorsTotal := prometheus.NewCounter(prometheus.CounterOpts{
		Name: "multiview_errors_total",
		Help: "Total number of HTTP responses with error status (4xx or 5xx)",
	})
	rejectedTotal := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "multiview_rejected_requests_total",
		Help: "Control requests refused by the controller, by reason",
	}, []string{"reason"})
	actionsTotal := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "multiview_actions_total",
		Help: "Key actions dispatched, by action id",
	}, []string{"action"})
	correctionsTotal := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "multiview_sync_corrections_total",
		Help: "Sync-now seeks issued, by moved slot",
	}, []string{"slot"})
	proxyFailures := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "multiview_proxy_failures_total",
		Help: "Player proxy calls that failed or panicked, by slot and operation",
	}, []string{"slot", "op"})
	drift := prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "multiview_drift_seconds",
		Help: "Last sampled position difference t(s1) - t(s2)",
	})
	behindLive := prometheus.NewGaugeVec(prometheus.GaugeOpts{
		Name: "multiview_behind_live_seconds",
		Help: "Last sampled distance behind the observed live head, by slot",
	}, []string{"slot"})
	connectedClients := prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "multiview_connected_clients",
		Help: "Number of connected websocket clients",
	})

	registry.MustRegister(
		requestsTotal,
		errorsTotal,
		rejectedTotal,
		actionsTotal,
		correctionsTotal,
		proxyFailures,
		drift,
		behindLive,
		connectedClients,
	)

	return &Metrics{
		registry:         registry,
		requestsTotal:    requestsTotal,
		errorsTotal:      errorsTotal,
		rejectedTotal:    rejectedTotal,
		actionsTotal:     actionsTotal,
		correctionsTotal: correctionsTotal,
		proxyFailures:    proxyFailures,
		drift:            drift,
		behindLive:       behindLive,
		connectedClients: connectedClients,
	}
}

// IncRequests increments the total request counter.
func (m *Metrics) IncRequests() {
	m.requestsTotal.Inc()
}

// IncErrors increments the errors counter.
func (m *Metrics) IncErrors() {
	m.errorsTotal.Inc()
}

// IncRejected counts one refused control request.
func (m *Metrics) IncRejected(reason string) {
	m.rejectedTotal.WithLabelValues(reason).Inc()
}

// IncActions counts one dispatched action.
func (m *Metrics) IncActions(action string) {
	m.actionsTotal.WithLabelValues(action).Inc()
}

// IncSyncCorrections counts one sync-now seek of slot.
func (m *Metrics) IncSyncCorrections(slot string) {
	m.correctionsTotal.WithLabelValues(slot).Inc()
}

// IncProxyFailures counts one failed player call.
func (m *Metrics) IncProxyFailures(slot, op string) {
	m.proxyFailures.WithLabelValues(slot, op).Inc()
}

// SetDrift sets the drift gauge.
func (m *Metrics) SetDrift(seconds float64) {
	m.drift.Set(seconds)
}

// SetBehindLive sets the behind-live gauge for slot.
func (m *Metrics) SetBehindLive(slot string, seconds float64) {
	m.behindLive.WithLabelValues(slot).Set(seconds)
}

// SetConnectedClients sets the connected clients gauge.
func (m *Metrics) SetConnectedClients(n int) {
	m.connectedClients.Set(float64(n))
}

// Handler returns an http.Handler that serves Prometheus metrics.
// updateGauges is called before each scrape to refresh gauge values.
func (m *Metrics) Handler(updateGauges func()) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if updateGauges != nil {
			updateGauges()
		}
		promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{}).ServeHTTP(w, r)
	})
}
