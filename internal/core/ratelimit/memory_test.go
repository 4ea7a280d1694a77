package ratelimit

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/courierbot/courier/internal/core/bucket"
)

func TestCheckLimitWithoutEntry(t *testing.T) {
	table := NewMemoryTable(4)

	wait, limited, err := table.CheckLimit(context.Background(), bucket.New(bucket.GetChannel, 42), time.Unix(995, 0))
	require.NoError(t, err)
	require.False(t, limited)
	require.Zero(t, wait)
}

func TestCheckLimitReturnsTimeUntilReset(t *testing.T) {
	ctx := context.Background()
	table := NewMemoryTable(4)
	key := bucket.New(bucket.CreateMessage, 7)
	now := time.Unix(996, 0)

	require.NoError(t, table.RecordExhausted(ctx, key, 1000))

	wait, limited, err := table.CheckLimit(ctx, key, now)
	require.NoError(t, err)
	require.True(t, limited)
	require.Equal(t, 4*time.Second, wait)
	require.Equal(t, time.Unix(1000, 0), now.Add(wait))
	require.Equal(t, 1, table.Len())
}

func TestCheckLimitSubSecondNow(t *testing.T) {
	ctx := context.Background()
	table := NewMemoryTable(1)
	key := bucket.New(bucket.CreateMessage, 7)

	require.NoError(t, table.RecordExhausted(ctx, key, 1000))

	wait, limited, err := table.CheckLimit(ctx, key, time.Unix(999, int64(250*time.Millisecond)))
	require.NoError(t, err)
	require.True(t, limited)
	require.Equal(t, 750*time.Millisecond, wait)
}

func TestCheckLimitEvictsExpired(t *testing.T) {
	ctx := context.Background()
	table := NewMemoryTable(4)
	key := bucket.New(bucket.CreateMessage, 7)

	require.NoError(t, table.RecordExhausted(ctx, key, 1000))

	for _, now := range []time.Time{time.Unix(1000, 0), time.Unix(1001, 0)} {
		wait, limited, err := table.CheckLimit(ctx, key, now)
		require.NoError(t, err)
		require.False(t, limited)
		require.Zero(t, wait)
		require.Zero(t, table.Len())
	}
}

func TestRecordExhaustedOverwrites(t *testing.T) {
	ctx := context.Background()
	table := NewMemoryTable(4)
	key := bucket.New(bucket.CreateMessage, 7)

	require.NoError(t, table.RecordExhausted(ctx, key, 2000))
	require.NoError(t, table.RecordExhausted(ctx, key, 1000))

	wait, limited, err := table.CheckLimit(ctx, key, time.Unix(999, 0))
	require.NoError(t, err)
	require.True(t, limited)
	require.Equal(t, time.Second, wait)
}

func TestBucketsAreIndependent(t *testing.T) {
	ctx := context.Background()
	table := NewMemoryTable(4)

	require.NoError(t, table.RecordExhausted(ctx, bucket.New(bucket.CreateMessage, 7), 1000))

	_, limited, err := table.CheckLimit(ctx, bucket.New(bucket.CreateMessage, 8), time.Unix(995, 0))
	require.NoError(t, err)
	require.False(t, limited)

	_, limited, err = table.CheckLimit(ctx, bucket.New(bucket.EditMessage, 7), time.Unix(995, 0))
	require.NoError(t, err)
	require.False(t, limited)
}

func TestSnapshotAndReset(t *testing.T) {
	ctx := context.Background()
	table := NewMemoryTable(4)
	now := time.Unix(995, 0)

	require.NoError(t, table.RecordExhausted(ctx, bucket.New(bucket.CreateMessage, 7), 1000))
	require.NoError(t, table.RecordExhausted(ctx, bucket.New(bucket.CreateMessage, 8), 1010))
	require.NoError(t, table.RecordExhausted(ctx, bucket.New(bucket.GetChannel, 7), 1005))
	require.NoError(t, table.RecordExhausted(ctx, bucket.New(bucket.GetMessage, 1), 900))

	entries, err := table.Snapshot(ctx, now)
	require.NoError(t, err)
	require.Len(t, entries, 3)
	require.Equal(t, "get_chan:7", entries[0].Bucket)
	require.Equal(t, "msg:7", entries[1].Bucket)
	require.Equal(t, 5*time.Second, entries[1].Wait)

	_, err = table.Reset(ctx, Query{})
	require.Error(t, err)

	removed, err := table.Reset(ctx, Query{Key: "msg:8"})
	require.NoError(t, err)
	require.EqualValues(t, 1, removed)

	removed, err = table.Reset(ctx, Query{Prefix: "msg:"})
	require.NoError(t, err)
	require.EqualValues(t, 1, removed)

	removed, err = table.Reset(ctx, Query{All: true})
	require.NoError(t, err)
	require.EqualValues(t, 2, removed)
	require.Zero(t, table.Len())
}

func TestConcurrentAccess(t *testing.T) {
	ctx := context.Background()
	table := NewMemoryTable(DefaultShards)
	now := time.Unix(500, 0)

	var wg sync.WaitGroup
	for i := 0; i < 32; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			key := bucket.New(bucket.CreateMessage, 0)
			for j := 0; j < 200; j++ {
				if j%2 == 0 {
					_ = table.RecordExhausted(ctx, key, int64(1000+i))
					continue
				}
				wait, limited, err := table.CheckLimit(ctx, key, now)
				if err != nil || !limited {
					t.Errorf("expected limited bucket, got limited=%v err=%v", limited, err)
					return
				}
				if wait < 500*time.Second || wait > 531*time.Second {
					t.Errorf("unexpected wait %s", wait)
					return
				}
			}
		}(i)
	}
	wg.Wait()
}

func TestSharedIsSingleton(t *testing.T) {
	require.Same(t, Shared(), Shared())
}
