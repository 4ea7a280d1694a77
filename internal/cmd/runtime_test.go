package cmd

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/courierbot/courier/internal/config"
	"github.com/courierbot/courier/internal/core/ratelimit"
)

func testConfig() *config.Config {
	return &config.Config{
		Token: " secret ",
		REST: config.RESTConfig{
			BaseURL:     "https://example.test/api/v10",
			Timeout:     5 * time.Second,
			GlobalBurst: 1,
		},
		RateLimit: config.RateLimitConfig{Backend: "memory", Shards: ratelimit.DefaultShards},
	}
}

func TestNewDispatcher(t *testing.T) {
	cfg := testConfig()
	table := ratelimit.NewMemoryTable(1)

	d := newDispatcher(cfg, table, zap.NewNop())
	assert.Equal(t, "secret", d.Token)
	assert.Equal(t, cfg.REST.BaseURL, d.BaseURL)
	assert.Equal(t, 5*time.Second, d.Client.Timeout)
	assert.Same(t, table, d.Table)
	assert.Nil(t, d.Global)
	assert.Contains(t, d.UserAgent, "DiscordBot")
}

func TestNewDispatcherGlobalLimiter(t *testing.T) {
	cfg := testConfig()
	cfg.REST.GlobalRPS = 50
	cfg.REST.GlobalBurst = 0

	d := newDispatcher(cfg, ratelimit.NewMemoryTable(1), zap.NewNop())
	require.NotNil(t, d.Global)
	assert.Equal(t, 1, d.Global.Burst())
	assert.InDelta(t, 50, float64(d.Global.Limit()), 0.001)
}

func TestOpenTableMemory(t *testing.T) {
	cfg := testConfig()

	handle, err := openTable(context.Background(), cfg)
	require.NoError(t, err)
	assert.Equal(t, "memory", handle.backend)
	assert.Same(t, ratelimit.Shared(), handle.table)
	require.NoError(t, handle.ping(context.Background()))
	require.NoError(t, handle.close())

	cfg.RateLimit.Shards = 2
	handle, err = openTable(context.Background(), cfg)
	require.NoError(t, err)
	assert.NotSame(t, ratelimit.Shared(), handle.table)
}

func TestOpenTableRedisUnreachable(t *testing.T) {
	cfg := testConfig()
	cfg.RateLimit.Backend = "redis"
	cfg.Redis.Addr = "127.0.0.1:1"

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()

	_, err := openTable(ctx, cfg)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "connect redis")
}
