package metrics

import (
	"net/http"
	"time"

	"wallet-pos-bridge/internal/core/ports"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "wallet_bridge"

// Metrics implements ports.MetricsRecorder on its own registry so several
// instances can coexist in tests.
type Metrics struct {
	registry        *prometheus.Registry
	remoteCalls     *prometheus.CounterVec
	remoteDuration  *prometheus.HistogramVec
	webhookEvents   *prometheus.CounterVec
	syncAttempts    *prometheus.CounterVec
	syncLastRunUnix prometheus.Gauge
}

var _ ports.MetricsRecorder = (*Metrics)(nil)

// New registers the bridge collectors plus the Go and process collectors.
func New() *Metrics {
	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	factory := promauto.With(reg)

	return &Metrics{
		registry: reg,
		remoteCalls: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Subsystem: "pos_client",
				Name:      "calls_total",
				Help:      "Remote ledger calls partitioned by operation and outcome.",
			},
			[]string{"op", "outcome"},
		),
		remoteDuration: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Subsystem: "pos_client",
				Name:      "call_duration_seconds",
				Help:      "Latency of remote ledger calls.",
				Buckets:   []float64{.05, .1, .25, .5, 1, 2.5, 5, 10},
			},
			[]string{"op"},
		),
		webhookEvents: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Subsystem: "webhook",
				Name:      "events_total",
				Help:      "Inbound POS webhook events by event type and outcome.",
			},
			[]string{"event", "outcome"},
		),
		syncAttempts: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Subsystem: "sync",
				Name:      "attempts_total",
				Help:      "Outbound sync attempts by result.",
			},
			[]string{"result"},
		),
		syncLastRunUnix: factory.NewGauge(
			prometheus.GaugeOpts{
				Namespace: namespace,
				Subsystem: "sync",
				Name:      "last_attempt_unix",
				Help:      "Unix time of the most recent sync attempt.",
			},
		),
	}
}

func (m *Metrics) RemoteCall(op, outcome string, elapsed time.Duration) {
	if m == nil {
		return
	}
	m.remoteCalls.WithLabelValues(op, outcome).Inc()
	m.remoteDuration.WithLabelValues(op).Observe(elapsed.Seconds())
}

func (m *Metrics) WebhookEvent(event, outcome string) {
	if m == nil {
		return
	}
	m.webhookEvents.WithLabelValues(event, outcome).Inc()
}

func (m *Metrics) SyncAttempt(outcome string) {
	if m == nil {
		return
	}
	m.syncLastRunUnix.Set(float64(time.Now().UTC().Unix()))
	m.syncAttempts.WithLabelValues(outcome).Inc()
}

// Handler serves the registry in the Prometheus exposition format.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{Registry: m.registry})
}

// Gatherer exposes the registry for inspection.
func (m *Metrics) Gatherer() prometheus.Gatherer {
	return m.registry
}

// Noop discards everything. Used by the CLI and by tests that do not care.
type Noop struct{}

func (Noop) RemoteCall(string, string, time.Duration) {}
func (Noop) WebhookEvent(string, string)              {}
func (Noop) SyncAttempt(string)                       {}
