package metrics

import (
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func counterValue(t *testing.T, m *Metrics, name string, labels map[string]string) float64 {
	t.Helper()

	families, err := m.Registry.Gather()
	require.NoError(t, err)
	for _, mf := range families {
		if mf.GetName() != name {
			continue
		}
	metric:
		for _, metric := range mf.GetMetric() {
			for _, pair := range metric.GetLabel() {
				if labels[pair.GetName()] != pair.GetValue() {
					continue metric
				}
			}
			return metric.GetCounter().GetValue()
		}
	}
	return 0
}

func TestObserveChecker(t *testing.T) {
	m := New()

	m.ObserveChecker("check", OutcomeOK, 20*time.Millisecond)
	m.ObserveChecker("check", OutcomeOK, 30*time.Millisecond)
	m.ObserveChecker("symbols", OutcomeFailed, time.Millisecond)

	assert.Equal(t, 2.0, counterValue(t, m, "mplxls_checker_runs_total", map[string]string{"mode": "check", "outcome": OutcomeOK}))
	assert.Equal(t, 1.0, counterValue(t, m, "mplxls_checker_runs_total", map[string]string{"mode": "symbols", "outcome": OutcomeFailed}))
}

func TestDiagnosticsCounters(t *testing.T) {
	m := New()
	m.Published()
	m.Published()
	m.Dropped()

	assert.Equal(t, 2.0, counterValue(t, m, "mplxls_diagnostics_published_total", nil))
	assert.Equal(t, 1.0, counterValue(t, m, "mplxls_diagnostics_dropped_total", nil))
}

func TestNilMetricsIsNoop(t *testing.T) {
	var m *Metrics
	assert.NotPanics(t, func() {
		m.ObserveChecker("check", OutcomeOK, time.Second)
		m.ObserveRequest("textDocument/hover")
		m.Published()
		m.Dropped()
	})
}

func TestHandler(t *testing.T) {
	m := New()
	m.ObserveRequest("textDocument/hover")

	ts := httptest.NewServer(m.Handler())
	defer ts.Close()

	resp, err := http.Get(ts.URL)
	require.NoError(t, err)
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Contains(t, string(body), `mplxls_requests_total{method="textDocument/hover"} 1`)
}
