package jobmetrics

import (
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/stretchr/testify/assert"
)

func scrape(t *testing.T, registry *prometheus.Registry) string {
	t.Helper()
	rec := httptest.NewRecorder()
	promhttp.HandlerFor(registry, promhttp.HandlerOpts{}).ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	return rec.Body.String()
}

func TestTrackerRecordsOutcome(t *testing.T) {
	registry := prometheus.NewRegistry()
	m := NewMetrics(registry)

	assert.NoError(t, m.Track("auth_audit").End(nil))
	boom := errors.New("boom")
	assert.ErrorIs(t, m.Track("auth_audit").End(boom), boom)

	body := scrape(t, registry)
	assert.Contains(t, body, `steward_jobs_total{job="auth_audit",status="success"} 1`)
	assert.Contains(t, body, `steward_jobs_total{job="auth_audit",status="failure"} 1`)
	assert.Contains(t, body, `steward_jobs_failures_total{job="auth_audit"} 1`)
}

func TestNilMetricsAreInert(t *testing.T) {
	var m *Metrics
	m.AddAudited("session.login")
	assert.NoError(t, m.Track("x").End(nil))
}

func TestAddAudited(t *testing.T) {
	registry := prometheus.NewRegistry()
	m := NewMetrics(registry)
	m.AddAudited("session.login")
	m.AddAudited("session.login")
	m.AddAudited("")

	assert.Contains(t, scrape(t, registry), `steward_audit_events_written_total{kind="session.login"} 2`)
}
