package telemetry_test

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jonesrussell/north-cloud/event-sync/internal/telemetry"
)

func TestProvider_ExposesMetrics(t *testing.T) {
	t.Helper()

	p := telemetry.NewNopProvider()
	p.Metrics.CyclesTotal.WithLabelValues(telemetry.StatusSuccess).Inc()
	p.Metrics.RecordsProcessed.WithLabelValues("inserted").Add(3)

	assert.InDelta(t, 3, testutil.ToFloat64(p.Metrics.RecordsProcessed.WithLabelValues("inserted")), 0.001)

	rec := httptest.NewRecorder()
	p.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", http.NoBody))

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `event_sync_cycles_total{status="success"} 1`)
}

func TestNewNopProvider_Independent(t *testing.T) {
	t.Helper()

	assert.NotPanics(t, func() {
		telemetry.NewNopProvider()
		telemetry.NewNopProvider()
	})
}
