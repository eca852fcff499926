package metrics_test

import (
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/rpggio/curator/internal/metrics"
	"github.com/stretchr/testify/require"
)

func counterValue(t *testing.T, reg *prometheus.Registry, name string, labels map[string]string) float64 {
	t.Helper()
	families, err := reg.Gather()
	require.NoError(t, err)
	for _, fam := range families {
		if fam.GetName() != name {
			continue
		}
		for _, m := range fam.GetMetric() {
			match := true
			for _, lp := range m.GetLabel() {
				if want, ok := labels[lp.GetName()]; ok && want != lp.GetValue() {
					match = false
				}
			}
			if match {
				return m.GetCounter().GetValue()
			}
		}
	}
	return 0
}

func TestMetrics_Counters(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := metrics.New(reg)

	m.ObserveTransition("draft", "aip_submitted", "ok")
	m.ObserveTransition("draft", "aip_submitted", "ok")
	m.ObserveTransition("draft", "implementing", "invalid")
	m.ObserveNotification("blocker", "critical")
	m.ObserveSweep("ok", 20*time.Millisecond)

	require.Equal(t, 2.0, counterValue(t, reg, "curator_collection_transitions_total",
		map[string]string{"from": "draft", "to": "aip_submitted", "result": "ok"}))
	require.Equal(t, 1.0, counterValue(t, reg, "curator_collection_transitions_total",
		map[string]string{"result": "invalid"}))
	require.Equal(t, 1.0, counterValue(t, reg, "curator_notifications_emitted_total",
		map[string]string{"type": "blocker", "priority": "critical"}))
	require.Equal(t, 1.0, counterValue(t, reg, "curator_sla_sweep_runs_total",
		map[string]string{"result": "ok"}))
}

func TestMetrics_ReusesRegisteredCollectors(t *testing.T) {
	reg := prometheus.NewRegistry()
	first := metrics.New(reg)
	second := metrics.New(reg)

	first.ObserveNotification("mention", "high")
	second.ObserveNotification("mention", "high")

	require.Equal(t, 2.0, counterValue(t, reg, "curator_notifications_emitted_total",
		map[string]string{"type": "mention", "priority": "high"}))
}

func TestMetrics_NilSafe(t *testing.T) {
	var m *metrics.Metrics
	m.ObserveTransition("a", "b", "ok")
	m.ObserveNotification("update", "medium")
	m.ObserveSweep("ok", time.Second)
	m.ObserveRequest("GET", "/", 200, time.Millisecond)
}

func TestHandler(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := metrics.New(reg)
	m.ObserveRequest(http.MethodPost, "/mcp", http.StatusOK, 5*time.Millisecond)

	rec := httptest.NewRecorder()
	metrics.Handler(reg).ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	require.Equal(t, http.StatusOK, rec.Code)

	body, err := io.ReadAll(rec.Body)
	require.NoError(t, err)
	require.Contains(t, string(body), `curator_http_requests_total{method="POST",route="/mcp",status="200"} 1`)
}
