package ratelimit

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/courierbot/courier/internal/core/bucket"
)

// checkScript reads a reset second and deletes it when it is not after
// ARGV[1]. Returns -1 when the bucket is free.
var checkScript = redis.NewScript(`
local reset = redis.call('GET', KEYS[1])
if not reset then
	return -1
end
if tonumber(reset) <= tonumber(ARGV[1]) then
	redis.call('DEL', KEYS[1])
	return -1
end
return tonumber(reset)
`)

// RedisTable shares the reset table between processes running the same bot.
// Entries carry an expiry at their reset second, so nothing outlives its bucket.
type RedisTable struct {
	rdb    redis.UniversalClient
	prefix string
	grace  time.Duration
}

// RedisOption configures a RedisTable.
type RedisOption func(*RedisTable)

// WithRedisPrefix sets the key namespace.
func WithRedisPrefix(prefix string) RedisOption {
	return func(t *RedisTable) { t.prefix = strings.Trim(prefix, ":") }
}

// WithRedisGrace keeps keys around for d after their reset.
func WithRedisGrace(d time.Duration) RedisOption {
	return func(t *RedisTable) { t.grace = d }
}

// NewRedisTable wraps a connected client.
func NewRedisTable(rdb redis.UniversalClient, opts ...RedisOption) *RedisTable {
	t := &RedisTable{
		rdb:    rdb,
		prefix: "courier:ratelimit",
		grace:  time.Second,
	}
	for _, opt := range opts {
		opt(t)
	}
	return t
}

func (t *RedisTable) redisKey(key bucket.Key) string {
	return t.prefix + ":" + key.String()
}

// CheckLimit implements Table.
func (t *RedisTable) CheckLimit(ctx context.Context, key bucket.Key, now time.Time) (time.Duration, bool, error) {
	if t == nil || t.rdb == nil {
		return 0, false, errors.New("redis table is not initialized")
	}

	nowArg := strconv.FormatFloat(float64(now.UnixNano())/float64(time.Second), 'f', 3, 64)
	resetAt, err := checkScript.Run(ctx, t.rdb, []string{t.redisKey(key)}, nowArg).Int64()
	if err != nil {
		return 0, false, fmt.Errorf("check rate limit: %w", err)
	}
	if resetAt < 0 {
		return 0, false, nil
	}
	wait, limited := waitUntil(resetAt, now)
	return wait, limited, nil
}

// RecordExhausted implements Table.
func (t *RedisTable) RecordExhausted(ctx context.Context, key bucket.Key, resetAt int64) error {
	if t == nil || t.rdb == nil {
		return errors.New("redis table is not initialized")
	}

	k := t.redisKey(key)
	_, err := t.rdb.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.Set(ctx, k, resetAt, 0)
		pipe.ExpireAt(ctx, k, time.Unix(resetAt, 0).Add(t.grace))
		return nil
	})
	if err != nil {
		return fmt.Errorf("store rate limit: %w", err)
	}
	return nil
}

// Snapshot lists entries whose reset is still ahead of now.
func (t *RedisTable) Snapshot(ctx context.Context, now time.Time) ([]Entry, error) {
	keys, err := t.scan(ctx, t.prefix+":*")
	if err != nil {
		return nil, err
	}

	entries := []Entry{}
	for _, k := range keys {
		key, err := bucket.Parse(strings.TrimPrefix(k, t.prefix+":"))
		if err != nil {
			continue
		}
		resetAt, err := t.rdb.Get(ctx, k).Int64()
		if errors.Is(err, redis.Nil) {
			continue
		}
		if err != nil {
			return nil, fmt.Errorf("fetch rate limit: %w", err)
		}
		if _, limited := waitUntil(resetAt, now); limited {
			entries = append(entries, newEntry(key, resetAt, now))
		}
	}

	sort.Slice(entries, func(i, j int) bool { return entries[i].Bucket < entries[j].Bucket })
	return entries, nil
}

// Reset removes matching entries.
func (t *RedisTable) Reset(ctx context.Context, q Query) (int64, error) {
	if err := q.Validate(); err != nil {
		return 0, err
	}

	if k := strings.TrimSpace(q.Key); k != "" && !q.All {
		key, err := bucket.Parse(k)
		if err != nil {
			return 0, err
		}
		removed, err := t.rdb.Del(ctx, t.redisKey(key)).Result()
		if err != nil {
			return 0, fmt.Errorf("reset rate limits: %w", err)
		}
		return removed, nil
	}

	pattern := t.prefix + ":*"
	if !q.All {
		pattern = t.prefix + ":" + strings.TrimSpace(q.Prefix) + "*"
	}
	keys, err := t.scan(ctx, pattern)
	if err != nil {
		return 0, err
	}
	if len(keys) == 0 {
		return 0, nil
	}

	removed, err := t.rdb.Del(ctx, keys...).Result()
	if err != nil {
		return 0, fmt.Errorf("reset rate limits: %w", err)
	}
	return removed, nil
}

func (t *RedisTable) scan(ctx context.Context, pattern string) ([]string, error) {
	if t == nil || t.rdb == nil {
		return nil, errors.New("redis table is not initialized")
	}

	var keys []string
	iter := t.rdb.Scan(ctx, 0, pattern, 100).Iterator()
	for iter.Next(ctx) {
		keys = append(keys, iter.Val())
	}
	if err := iter.Err(); err != nil {
		return nil, fmt.Errorf("scan rate limits: %w", err)
	}
	return keys, nil
}

// Ping verifies connectivity.
func (t *RedisTable) Ping(ctx context.Context) error {
	if t == nil || t.rdb == nil {
		return errors.New("redis table is not initialized")
	}
	return t.rdb.Ping(ctx).Err()
}
