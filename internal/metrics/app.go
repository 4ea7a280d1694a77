package metrics

import (
	"strconv"
	"time"

	"github.com/courierbot/courier/internal/observability"
)

// Dispatcher metrics
const (
	CallsTotal            = "rest_calls_total"
	CallDurationMs        = "rest_call_duration_ms"
	RateLimitWaitsTotal   = "rest_ratelimit_waits_total"
	RateLimitWaitMs       = "rest_ratelimit_wait_ms"
	BucketsExhaustedTotal = "rest_buckets_exhausted_total"
)

// HTTP server metrics
const (
	HTTPRequestsTotal   = "http_requests_total"
	HTTPRequestDuration = "http_request_duration_ms"
	HTTPErrorsTotal     = "http_errors_total"
)

// RecordCall records one dispatcher call by bucket category and outcome.
func RecordCall(category string, outcome string, duration time.Duration) {
	if observability.TelemetrySystem == nil {
		return
	}
	tags := map[string]string{"category": category, "outcome": outcome}
	_ = observability.TelemetrySystem.Counter(CallsTotal, 1, tags)
	_ = observability.TelemetrySystem.Histogram(CallDurationMs, duration, tags)
}

// RecordRateLimitWait records a caller parked on an exhausted bucket.
func RecordRateLimitWait(category string, wait time.Duration) {
	if observability.TelemetrySystem == nil {
		return
	}
	tags := map[string]string{"category": category}
	_ = observability.TelemetrySystem.Counter(RateLimitWaitsTotal, 1, tags)
	_ = observability.TelemetrySystem.Histogram(RateLimitWaitMs, wait, tags)
}

// RecordBucketExhausted records a bucket written to the table.
func RecordBucketExhausted(category string) {
	if observability.TelemetrySystem != nil {
		_ = observability.TelemetrySystem.Counter(
			BucketsExhaustedTotal,
			1,
			map[string]string{"category": category},
		)
	}
}

// RecordHTTPRequest records one request served by the status server.
func RecordHTTPRequest(method, endpoint string, status int, duration time.Duration) {
	if observability.TelemetrySystem == nil {
		return
	}

	tags := map[string]string{
		"method":   method,
		"endpoint": endpoint,
		"status":   strconv.Itoa(status),
	}
	_ = observability.TelemetrySystem.Counter(HTTPRequestsTotal, 1, tags)
	_ = observability.TelemetrySystem.Histogram(HTTPRequestDuration, duration, map[string]string{
		"method":   method,
		"endpoint": endpoint,
	})

	if status >= 400 {
		errorType := "client_error"
		if status >= 500 {
			errorType = "server_error"
		}
		_ = observability.TelemetrySystem.Counter(HTTPErrorsTotal, 1, map[string]string{
			"method":     method,
			"endpoint":   endpoint,
			"error_type": errorType,
		})
	}
}
