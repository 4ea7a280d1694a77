package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/courierbot/courier/internal/core/bucket"
	"github.com/courierbot/courier/internal/core/ratelimit"
)

func seededHandler(t *testing.T) (*RateLimitHandler, *ratelimit.MemoryTable) {
	t.Helper()
	table := ratelimit.NewMemoryTable(4)
	ctx := context.Background()
	require.NoError(t, table.RecordExhausted(ctx, bucket.New(bucket.CreateMessage, 7), 1000))
	require.NoError(t, table.RecordExhausted(ctx, bucket.New(bucket.CreateMessage, 8), 1010))
	require.NoError(t, table.RecordExhausted(ctx, bucket.New(bucket.GetChannel, 42), 1005))

	return &RateLimitHandler{
		Table: table,
		Clock: func() time.Time { return time.Unix(995, 0) },
	}, table
}

func TestRateLimitListReturnsLiveEntries(t *testing.T) {
	h, _ := seededHandler(t)

	rec := httptest.NewRecorder()
	h.List(rec, httptest.NewRequest(http.MethodGet, "/ratelimits", nil))
	require.Equal(t, http.StatusOK, rec.Code)

	var resp RateLimitsResponse
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&resp))
	require.Equal(t, 3, resp.Count)
	buckets := []string{resp.Entries[0].Bucket, resp.Entries[1].Bucket, resp.Entries[2].Bucket}
	assert.ElementsMatch(t, []string{"msg:7", "msg:8", "get_chan:42"}, buckets)
}

func TestRateLimitListPrefix(t *testing.T) {
	h, _ := seededHandler(t)

	rec := httptest.NewRecorder()
	h.List(rec, httptest.NewRequest(http.MethodGet, "/ratelimits?prefix=msg:", nil))
	require.Equal(t, http.StatusOK, rec.Code)

	var resp RateLimitsResponse
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&resp))
	assert.Equal(t, 2, resp.Count)
}

func TestRateLimitResetByKey(t *testing.T) {
	h, table := seededHandler(t)

	rec := httptest.NewRecorder()
	h.Reset(rec, httptest.NewRequest(http.MethodDelete, "/ratelimits?key=msg:7", nil))
	require.Equal(t, http.StatusOK, rec.Code)

	var resp ResetResponse
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&resp))
	assert.EqualValues(t, 1, resp.Removed)
	assert.Equal(t, 2, table.Len())
}

func TestRateLimitResetAll(t *testing.T) {
	h, table := seededHandler(t)

	rec := httptest.NewRecorder()
	h.Reset(rec, httptest.NewRequest(http.MethodDelete, "/ratelimits?all=true", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, 0, table.Len())
}

func TestRateLimitResetRequiresSelector(t *testing.T) {
	h, table := seededHandler(t)

	rec := httptest.NewRecorder()
	h.Reset(rec, httptest.NewRequest(http.MethodDelete, "/ratelimits", nil))
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = httptest.NewRecorder()
	h.Reset(rec, httptest.NewRequest(http.MethodDelete, "/ratelimits?all=maybe", nil))
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	assert.Equal(t, 3, table.Len())
}

type failingAdmin struct{}

func (failingAdmin) Snapshot(context.Context, time.Time) ([]ratelimit.Entry, error) {
	return nil, errors.New("connection refused")
}

func (failingAdmin) Reset(context.Context, ratelimit.Query) (int64, error) {
	return 0, errors.New("connection refused")
}

func TestRateLimitTableFailureIsBadGateway(t *testing.T) {
	h := &RateLimitHandler{Table: failingAdmin{}}

	rec := httptest.NewRecorder()
	h.List(rec, httptest.NewRequest(http.MethodGet, "/ratelimits", nil))
	assert.Equal(t, http.StatusBadGateway, rec.Code)

	rec = httptest.NewRecorder()
	h.Reset(rec, httptest.NewRequest(http.MethodDelete, "/ratelimits?all=1", nil))
	assert.Equal(t, http.StatusBadGateway, rec.Code)
}
