package integration

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net"
	"net/http"
	"net/http/httptest"
	"os"
	"strconv"
	"strings"
	"syscall"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/courierbot/courier/internal/core"
	"github.com/courierbot/courier/internal/core/ratelimit"
	"github.com/courierbot/courier/internal/metrics"
	"github.com/courierbot/courier/internal/observability"
	"github.com/courierbot/courier/internal/rest"
	"github.com/courierbot/courier/internal/server"
	"github.com/courierbot/courier/internal/server/handlers"
)

// isPermissionError normalizes OS-specific permission errors (macOS/Linux/BSD)
// so we can gracefully skip when loopback sockets are blocked.
func isPermissionError(err error) bool {
	if err == nil {
		return false
	}

	if errors.Is(err, os.ErrPermission) || errors.Is(err, syscall.EACCES) {
		return true
	}

	msg := strings.ToLower(err.Error())
	for _, fragment := range []string{"permission denied", "operation not permitted", "not permitted"} {
		if strings.Contains(msg, fragment) {
			return true
		}
	}

	return false
}

// newLoopbackServer binds to IPv4 loopback explicitly (avoiding IPv6-only
// defaults) and skips when the sandbox refuses to open sockets.
func newLoopbackServer(t *testing.T, handler http.Handler) *httptest.Server {
	t.Helper()

	listener, err := net.Listen("tcp4", "127.0.0.1:0")
	if err != nil {
		if isPermissionError(err) {
			t.Skipf("skipping server setup: %v", err)
		}
		require.NoError(t, err)
	}

	ts := &httptest.Server{
		Listener: listener,
		Config:   &http.Server{Handler: handler},
	}
	ts.Start()
	t.Cleanup(ts.Close)
	return ts
}

// fakeAPI answers message creation with an exhausted bucket.
func fakeAPI(t *testing.T, resetAt int64) *httptest.Server {
	return newLoopbackServer(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.Header().Set("X-RateLimit-Remaining", "0")
		w.Header().Set("X-RateLimit-Reset", strconv.FormatInt(resetAt, 10))
		_, _ = w.Write([]byte(`{"id":"7","channel_id":"42","content":"hi"}`))
	}))
}

func getJSON(t *testing.T, client *http.Client, url string, out any) {
	t.Helper()
	resp, err := client.Get(url)
	require.NoError(t, err)
	body, readErr := io.ReadAll(resp.Body)
	require.NoError(t, resp.Body.Close())
	require.NoError(t, readErr)
	require.Equal(t, http.StatusOK, resp.StatusCode, string(body))
	require.NoError(t, json.Unmarshal(body, out))
}

func TestExhaustedBucketVisibleThroughServer(t *testing.T) {
	observability.InitServerLogger("test", "error")
	require.NoError(t, observability.InitMetrics("courier-test", 0))
	t.Cleanup(func() { observability.PrometheusExporter.Clear() })

	now := time.Now().UTC()
	resetAt := now.Add(time.Minute).Unix()
	api := fakeAPI(t, resetAt)

	table := ratelimit.NewMemoryTable(4)
	d := &rest.Dispatcher{
		Token:   "secret",
		BaseURL: api.URL + "/api/v10",
		Client:  api.Client(),
		Table:   table,
	}

	msg, err := rest.Call[core.Message](context.Background(), d, rest.CreateMessage{ChannelID: 42, Content: "hi"})
	require.NoError(t, err)
	assert.Equal(t, "hi", msg.Content)

	srv := server.New(server.Options{Host: "127.0.0.1", Version: "test", Table: table})
	status := newLoopbackServer(t, srv.Handler())
	client := status.Client()

	var listed handlers.RateLimitsResponse
	getJSON(t, client, status.URL+"/ratelimits", &listed)
	require.Equal(t, 1, listed.Count)
	assert.Equal(t, "msg:42", listed.Entries[0].Bucket)
	assert.Equal(t, resetAt, listed.Entries[0].ResetAt.Unix())

	var body server.MetricsResponse
	getJSON(t, client, status.URL+"/metrics", &body)
	names := make(map[string]float64)
	for _, s := range body.Metrics {
		names[s.Name] += s.Value
	}
	assert.Equal(t, 1.0, names[metrics.BucketsExhaustedTotal])
	assert.Equal(t, 1.0, names[metrics.CallsTotal])

	req, err := http.NewRequest(http.MethodDelete, status.URL+"/ratelimits?key=msg:42", nil)
	require.NoError(t, err)
	resp, err := client.Do(req)
	require.NoError(t, err)
	var reset handlers.ResetResponse
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&reset))
	require.NoError(t, resp.Body.Close())
	assert.Equal(t, int64(1), reset.Removed)

	getJSON(t, client, status.URL+"/ratelimits", &listed)
	assert.Equal(t, 0, listed.Count)
}

func TestHealthReportsFailingChecker(t *testing.T) {
	observability.InitServerLogger("test", "error")

	srv := server.New(server.Options{
		Host:    "127.0.0.1",
		Version: "test",
		Table:   ratelimit.NewMemoryTable(1),
		HealthCheckers: map[string]handlers.HealthChecker{
			"ratelimit_redis": handlers.HealthCheckFunc(func(context.Context) error {
				return errors.New("connection refused")
			}),
		},
	})
	status := newLoopbackServer(t, srv.Handler())

	resp, err := status.Client().Get(status.URL + "/health/ready")
	require.NoError(t, err)
	require.NoError(t, resp.Body.Close())
	assert.Equal(t, http.StatusServiceUnavailable, resp.StatusCode)

	resp, err = status.Client().Get(status.URL + "/health/live")
	require.NoError(t, err)
	require.NoError(t, resp.Body.Close())
	assert.Equal(t, http.StatusOK, resp.StatusCode)
}
