package metrics

import (
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	dto "github.com/prometheus/client_model/go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func metricValue(t *testing.T, m *Metrics, name string, labels map[string]string) float64 {
	t.Helper()
	families, err := m.Gatherer().Gather()
	require.NoError(t, err)
	for _, fam := range families {
		if fam.GetName() != name {
			continue
		}
		for _, metric := range fam.GetMetric() {
			if !labelsMatch(metric, labels) {
				continue
			}
			switch {
			case metric.GetCounter() != nil:
				return metric.GetCounter().GetValue()
			case metric.GetGauge() != nil:
				return metric.GetGauge().GetValue()
			case metric.GetHistogram() != nil:
				return float64(metric.GetHistogram().GetSampleCount())
			}
		}
	}
	return 0
}

func labelsMatch(metric *dto.Metric, expected map[string]string) bool {
	actual := make(map[string]string, len(metric.GetLabel()))
	for _, lp := range metric.GetLabel() {
		actual[lp.GetName()] = lp.GetValue()
	}
	for k, v := range expected {
		if actual[k] != v {
			return false
		}
	}
	return true
}

func TestMetrics_RemoteCall(t *testing.T) {
	m := New()

	m.RemoteCall("debit", "ok", 120*time.Millisecond)
	m.RemoteCall("debit", "ok", 80*time.Millisecond)
	m.RemoteCall("debit", "transport_error", time.Second)

	assert.Equal(t, 2.0, metricValue(t, m, "wallet_bridge_pos_client_calls_total", map[string]string{"op": "debit", "outcome": "ok"}))
	assert.Equal(t, 1.0, metricValue(t, m, "wallet_bridge_pos_client_calls_total", map[string]string{"op": "debit", "outcome": "transport_error"}))
	assert.Equal(t, 3.0, metricValue(t, m, "wallet_bridge_pos_client_call_duration_seconds", map[string]string{"op": "debit"}))
}

func TestMetrics_WebhookAndSync(t *testing.T) {
	m := New()

	m.WebhookEvent("wallet.credit", "ok")
	m.WebhookEvent("wallet.credit", "duplicate")
	m.SyncAttempt("retry")
	m.SyncAttempt("success")

	assert.Equal(t, 1.0, metricValue(t, m, "wallet_bridge_webhook_events_total", map[string]string{"event": "wallet.credit", "outcome": "duplicate"}))
	assert.Equal(t, 1.0, metricValue(t, m, "wallet_bridge_sync_attempts_total", map[string]string{"result": "success"}))
	assert.Greater(t, metricValue(t, m, "wallet_bridge_sync_last_attempt_unix", nil), 0.0)
}

func TestMetrics_NilSafe(t *testing.T) {
	var m *Metrics
	assert.NotPanics(t, func() {
		m.RemoteCall("ping", "ok", time.Millisecond)
		m.WebhookEvent("ping", "ok")
		m.SyncAttempt("failed")
	})
}

func TestMetrics_Handler(t *testing.T) {
	m := New()
	m.WebhookEvent("ping", "ok")

	srv := httptest.NewServer(m.Handler())
	defer srv.Close()

	resp, err := http.Get(srv.URL)
	require.NoError(t, err)
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Contains(t, string(body), `wallet_bridge_webhook_events_total{event="ping",outcome="ok"} 1`)
	assert.Contains(t, string(body), "go_goroutines")
}
