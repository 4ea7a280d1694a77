package server

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	apperrors "github.com/courierbot/courier/internal/errors"
	"github.com/courierbot/courier/internal/metrics"
	"github.com/courierbot/courier/internal/observability"
)

func initMetrics(t *testing.T) {
	t.Helper()
	require.NoError(t, observability.InitMetrics("courier-test", 0))
	t.Cleanup(func() { observability.PrometheusExporter.Clear() })
}

func TestMetricsHandlerServesSnapshot(t *testing.T) {
	initMetrics(t)

	metrics.RecordCall("get_chan", "ok", 5*time.Millisecond)
	metrics.RecordCall("get_chan", "ok", 7*time.Millisecond)

	rec := httptest.NewRecorder()
	MetricsHandler(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	require.Equal(t, http.StatusOK, rec.Code)

	var resp MetricsResponse
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&resp))

	labels := map[string]string{"category": "get_chan", "outcome": "ok"}
	calls, ok := metrics.Find(resp.Metrics, metrics.CallsTotal, labels)
	require.True(t, ok, "expected rest_calls_total sample")
	assert.Equal(t, 2.0, calls.Value)

	duration, ok := metrics.Find(resp.Metrics, metrics.CallDurationMs, labels)
	require.True(t, ok)
	assert.Equal(t, int64(2), duration.Count)
	assert.Equal(t, 12.0, duration.Value)
}

func TestMetricsHandlerWithoutExporter(t *testing.T) {
	original := observability.PrometheusExporter
	observability.PrometheusExporter = nil
	t.Cleanup(func() { observability.PrometheusExporter = original })

	rec := httptest.NewRecorder()
	MetricsHandler(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	require.Equal(t, http.StatusServiceUnavailable, rec.Code)

	var body apperrors.HTTPErrorResponse
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&body))
	assert.Equal(t, "SERVICE_UNAVAILABLE", body.Error.Code)
	assert.Equal(t, "/metrics", body.Error.Path)
}
