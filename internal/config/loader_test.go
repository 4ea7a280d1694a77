package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func isolate(t *testing.T) {
	t.Helper()
	t.Setenv("XDG_CONFIG_HOME", t.TempDir())
	t.Setenv("HOME", t.TempDir())
}

func TestLoad(t *testing.T) {
	t.Run("LoadDefaults", func(t *testing.T) {
		isolate(t)

		v, err := NewViper("")
		require.NoError(t, err)

		cfg, err := Load(v)
		require.NoError(t, err)
		require.NotNil(t, cfg)

		assert.Equal(t, "", cfg.Token)

		assert.Equal(t, "https://discord.com/api/v10", cfg.REST.BaseURL)
		assert.Equal(t, "https://github.com/courierbot/courier", cfg.REST.UserAgentURL)
		assert.Equal(t, 30*time.Second, cfg.REST.Timeout)
		assert.Zero(t, cfg.REST.GlobalRPS)
		assert.Equal(t, 1, cfg.REST.GlobalBurst)

		assert.Equal(t, "memory", cfg.RateLimit.Backend)
		assert.Equal(t, 16, cfg.RateLimit.Shards)
		assert.Equal(t, "localhost:6379", cfg.Redis.Addr)
		assert.Equal(t, "courier:ratelimit", cfg.Redis.Prefix)

		assert.Equal(t, 10, cfg.Gateway.Version)

		assert.Equal(t, "localhost", cfg.Server.Host)
		assert.Equal(t, 8080, cfg.Server.Port)
		assert.Equal(t, 30*time.Second, cfg.Server.ReadTimeout)
		assert.Equal(t, 30*time.Second, cfg.Server.WriteTimeout)
		assert.Equal(t, 120*time.Second, cfg.Server.IdleTimeout)
		assert.Equal(t, 10*time.Second, cfg.Server.ShutdownTimeout)

		assert.Equal(t, "info", cfg.Logging.Level)
		assert.Zero(t, cfg.Metrics.Port)
		assert.Equal(t, 4, cfg.Workers)

		assert.Same(t, cfg, GetConfig())
	})

	t.Run("EnvironmentOverrides", func(t *testing.T) {
		isolate(t)
		t.Setenv("COURIER_TOKEN", "abc.def")
		t.Setenv("COURIER_REST_TIMEOUT", "5s")
		t.Setenv("COURIER_REST_GLOBAL_RPS", "2.5")
		t.Setenv("COURIER_RATELIMIT_BACKEND", "redis")
		t.Setenv("COURIER_REDIS_ADDR", "redis.internal:6380")
		t.Setenv("COURIER_SERVER_PORT", "9999")
		t.Setenv("COURIER_LOGGING_LEVEL", "debug")

		v, err := NewViper("")
		require.NoError(t, err)
		cfg, err := Load(v)
		require.NoError(t, err)

		assert.Equal(t, "abc.def", cfg.Token)
		assert.Equal(t, 5*time.Second, cfg.REST.Timeout)
		assert.InDelta(t, 2.5, cfg.REST.GlobalRPS, 0.0001)
		assert.Equal(t, "redis", cfg.RateLimit.Backend)
		assert.Equal(t, "redis.internal:6380", cfg.Redis.Addr)
		assert.Equal(t, 9999, cfg.Server.Port)
		assert.Equal(t, "debug", cfg.Logging.Level)
	})

	t.Run("ConfigFile", func(t *testing.T) {
		isolate(t)

		path := filepath.Join(t.TempDir(), "courier.yaml")
		content := []byte(`token: file-token
rest:
  base_url: http://127.0.0.1:9000/api
  global_burst: 5
ratelimit:
  shards: 4
gateway:
  version: 9
`)
		require.NoError(t, os.WriteFile(path, content, 0o600))

		v, err := NewViper(path)
		require.NoError(t, err)
		cfg, err := Load(v)
		require.NoError(t, err)

		assert.Equal(t, "file-token", cfg.Token)
		assert.Equal(t, "http://127.0.0.1:9000/api", cfg.REST.BaseURL)
		assert.Equal(t, 5, cfg.REST.GlobalBurst)
		assert.Equal(t, 4, cfg.RateLimit.Shards)
		assert.Equal(t, 9, cfg.Gateway.Version)
		// untouched keys keep their defaults
		assert.Equal(t, 30*time.Second, cfg.REST.Timeout)
	})

	t.Run("EnvironmentBeatsFile", func(t *testing.T) {
		isolate(t)

		path := filepath.Join(t.TempDir(), "courier.yaml")
		require.NoError(t, os.WriteFile(path, []byte("token: file-token\n"), 0o600))
		t.Setenv("COURIER_TOKEN", "env-token")

		v, err := NewViper(path)
		require.NoError(t, err)
		cfg, err := Load(v)
		require.NoError(t, err)
		assert.Equal(t, "env-token", cfg.Token)
	})

	t.Run("MissingExplicitFile", func(t *testing.T) {
		isolate(t)

		_, err := NewViper(filepath.Join(t.TempDir(), "absent.yaml"))
		require.Error(t, err)
	})

	t.Run("UnknownBackend", func(t *testing.T) {
		isolate(t)
		t.Setenv("COURIER_RATELIMIT_BACKEND", "etcd")

		v, err := NewViper("")
		require.NoError(t, err)
		_, err = Load(v)
		require.Error(t, err)
		assert.Contains(t, err.Error(), "etcd")
	})
}

func TestValidate(t *testing.T) {
	cfg := &Config{RateLimit: RateLimitConfig{Backend: "  Memory "}}
	require.NoError(t, cfg.Validate())
	assert.Equal(t, "memory", cfg.RateLimit.Backend)

	cfg = &Config{RateLimit: RateLimitConfig{Backend: "redis"}}
	require.Error(t, cfg.Validate())

	cfg = &Config{REST: RESTConfig{GlobalRPS: -1}}
	require.Error(t, cfg.Validate())

	cfg = &Config{Workers: -2}
	require.Error(t, cfg.Validate())
}

func TestDefaultConfigPath(t *testing.T) {
	dir := t.TempDir()
	t.Setenv("XDG_CONFIG_HOME", dir)
	assert.Equal(t, filepath.Join(dir, "courier", "config.yaml"), DefaultConfigPath())
}

func TestLoadNilViper(t *testing.T) {
	_, err := Load(nil)
	require.Error(t, err)
}
