package errors

import (
	"context"
	"encoding/json"
	stderrors "errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/fulmenhq/gofulmen/errors"
	"github.com/fulmenhq/gofulmen/telemetry"
	telemetrytesting "github.com/fulmenhq/gofulmen/telemetry/testing"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/courierbot/courier/internal/metrics"
	"github.com/courierbot/courier/internal/observability"
	"github.com/courierbot/courier/internal/server/middleware"
)

func TestEnsureEnvelope(t *testing.T) {
	original := NewNotFoundError("gone")
	assert.Same(t, original, EnsureEnvelope(original))

	plain := EnsureEnvelope(stderrors.New("boom"))
	assert.Equal(t, "INTERNAL_ERROR", plain.Code)
	assert.Equal(t, errors.SeverityHigh, plain.Severity)
	assert.Equal(t, "boom", plain.Context["wrapped_error"])
	assert.Equal(t, "boom", plain.Original)

	assert.Same(t, original, EnsureEnvelope(fmt.Errorf("outer: %w", original)))

	assert.Equal(t, errors.SeverityCritical, EnsureEnvelope(nil).Severity)
}

func TestWrapKeepsCauseAndContext(t *testing.T) {
	cause := stderrors.New("redis down")
	env := WrapExternalService(context.Background(), cause, "rate limit table unavailable")

	assert.Equal(t, "EXTERNAL_SERVICE_ERROR", env.Code)
	assert.Equal(t, errors.SeverityMedium, env.Severity)
	assert.Equal(t, "redis down", env.Original)
	assert.Equal(t, "redis down", env.Context["wrapped_error"])
	assert.NotEmpty(t, env.CorrelationID)
	assert.Equal(t, http.StatusBadGateway, HTTPStatusFromCode(env.Code))
	assert.Contains(t, env.Error(), "[EXTERNAL_SERVICE_ERROR]")
}

func TestWrapMergesExistingContext(t *testing.T) {
	env, err := NewInvalidInputError("bad").WithContext(map[string]interface{}{"field": "prefix"})
	require.NoError(t, err)

	env = withWrappedError(env, stderrors.New("empty"))
	assert.Equal(t, "prefix", env.Context["field"])
	assert.Equal(t, "empty", env.Context["wrapped_error"])
}

func TestEnsureCorrelationIDFallback(t *testing.T) {
	env := EnsureCorrelationID(NewNotFoundError("x"), context.Background())
	assert.Contains(t, env.CorrelationID, "fallback-")

	keep := NewNotFoundError("y").WithCorrelationID("fixed")
	assert.Equal(t, "fixed", EnsureCorrelationID(keep, context.Background()).CorrelationID)
	assert.Nil(t, EnsureCorrelationID(nil, nil))
}

func TestResponseDetailsMergesDetailsAndContext(t *testing.T) {
	env := NewServiceUnavailableError("down").
		WithDetails(map[string]interface{}{"checks": map[string]string{"redis": "unhealthy"}, "status": "details-wins"})
	env, err := env.WithContext(map[string]interface{}{"status": "unhealthy", "check": "ready"})
	require.NoError(t, err)

	details := ResponseDetails(env)
	assert.Equal(t, "details-wins", details["status"])
	assert.Equal(t, "ready", details["check"])
	assert.Contains(t, details, "checks")

	assert.Nil(t, ResponseDetails(NewNotFoundError("none")))
}

func TestRespondWithErrorUsesRequestID(t *testing.T) {
	collector := telemetrytesting.NewFakeCollector()
	sys, err := telemetry.NewSystem(&telemetry.Config{Enabled: true, Emitter: collector})
	require.NoError(t, err)
	original := observability.TelemetrySystem
	observability.TelemetrySystem = sys
	t.Cleanup(func() { observability.TelemetrySystem = original })

	handler := middleware.RequestID(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		RespondWithError(w, r, NewInvalidInputError("bad query"))
	}))

	req := httptest.NewRequest(http.MethodGet, "/ratelimits", nil)
	req.Header.Set(middleware.RequestIDHeader, "req-123")
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	require.Equal(t, http.StatusBadRequest, rec.Code)
	require.Equal(t, "application/json", rec.Header().Get("Content-Type"))

	var body HTTPErrorResponse
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&body))
	assert.Equal(t, "INVALID_INPUT", body.Error.Code)
	assert.Equal(t, "bad query", body.Error.Message)
	assert.Equal(t, "req-123", body.Error.RequestID)

	recorded := collector.GetMetricsByName(metrics.ErrorsTotalName)
	require.Len(t, recorded, 1)
	assert.Equal(t, "400", recorded[0].Tags["http_status"])
	assert.Equal(t, 1, collector.CountMetricsByName(metrics.ErrorsByEndpointName))
}

func TestRespondWithNilEnvelope(t *testing.T) {
	rec := httptest.NewRecorder()
	RespondWithEnvelope(rec, nil, nil)
	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	assert.Contains(t, rec.Body.String(), "unexpected nil error")
}

func TestHTTPStatusFromCode(t *testing.T) {
	assert.Equal(t, http.StatusNotFound, HTTPStatusFromCode("NOT_FOUND"))
	assert.Equal(t, http.StatusMethodNotAllowed, HTTPStatusFromCode("METHOD_NOT_ALLOWED"))
	assert.Equal(t, http.StatusServiceUnavailable, HTTPStatusFromCode("SERVICE_UNAVAILABLE"))
	assert.Equal(t, http.StatusInternalServerError, HTTPStatusFromCode("CONFIG_INVALID"))
	assert.Equal(t, http.StatusInternalServerError, HTTPStatusFromCode("WHATEVER"))
}
