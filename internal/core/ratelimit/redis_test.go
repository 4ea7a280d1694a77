package ratelimit

import (
	"context"
	"os"
	"testing"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/require"

	"github.com/courierbot/courier/internal/core/bucket"
)

func newTestRedisTable(t *testing.T) *RedisTable {
	t.Helper()

	addr := os.Getenv("COURIER_TEST_REDIS_ADDR")
	if addr == "" {
		t.Skip("COURIER_TEST_REDIS_ADDR must be set")
	}

	rdb := redis.NewClient(&redis.Options{Addr: addr})
	t.Cleanup(func() { _ = rdb.Close() })

	table := NewRedisTable(rdb, WithRedisPrefix("courier:test:"+t.Name()))
	require.NoError(t, table.Ping(context.Background()))
	t.Cleanup(func() { _, _ = table.Reset(context.Background(), Query{All: true}) })
	return table
}

func TestRedisTableCheckAndRecord(t *testing.T) {
	ctx := context.Background()
	table := newTestRedisTable(t)
	key := bucket.New(bucket.CreateMessage, 7)
	now := time.Now()
	reset := now.Add(30 * time.Second).Unix()

	_, limited, err := table.CheckLimit(ctx, key, now)
	require.NoError(t, err)
	require.False(t, limited)

	require.NoError(t, table.RecordExhausted(ctx, key, reset))

	wait, limited, err := table.CheckLimit(ctx, key, now)
	require.NoError(t, err)
	require.True(t, limited)
	require.Equal(t, time.Unix(reset, 0).Sub(now), wait)

	_, limited, err = table.CheckLimit(ctx, key, time.Unix(reset, 0))
	require.NoError(t, err)
	require.False(t, limited)

	entries, err := table.Snapshot(ctx, now)
	require.NoError(t, err)
	require.Empty(t, entries)
}

func TestRedisTableReset(t *testing.T) {
	ctx := context.Background()
	table := newTestRedisTable(t)
	reset := time.Now().Add(time.Minute).Unix()

	require.NoError(t, table.RecordExhausted(ctx, bucket.New(bucket.CreateMessage, 1), reset))
	require.NoError(t, table.RecordExhausted(ctx, bucket.New(bucket.CreateMessage, 2), reset))
	require.NoError(t, table.RecordExhausted(ctx, bucket.New(bucket.GetChannel, 1), reset))

	entries, err := table.Snapshot(ctx, time.Now())
	require.NoError(t, err)
	require.Len(t, entries, 3)

	removed, err := table.Reset(ctx, Query{Prefix: "msg:"})
	require.NoError(t, err)
	require.EqualValues(t, 2, removed)

	removed, err = table.Reset(ctx, Query{Key: "get_chan:1"})
	require.NoError(t, err)
	require.EqualValues(t, 1, removed)
}
