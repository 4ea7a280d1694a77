// Package config provides centralized configuration management for courier.
// Defaults are registered on a viper instance, overlaid by an optional YAML
// file and COURIER_* environment variables, then decoded into Config.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/go-viper/mapstructure/v2"
	"github.com/spf13/viper"
)

const (
	// AppName names the config directory and the binary.
	AppName = "courier"

	// EnvPrefix is prepended to every environment override.
	EnvPrefix = "COURIER"
)

var (
	// appConfig holds the current application configuration
	appConfig *Config
	configMu  sync.RWMutex
)

// SetDefaults registers every known key on v.
func SetDefaults(v *viper.Viper) {
	v.SetDefault("token", "")

	// REST defaults
	v.SetDefault("rest.base_url", "https://discord.com/api/v10")
	v.SetDefault("rest.user_agent_url", "https://github.com/courierbot/courier")
	v.SetDefault("rest.timeout", "30s")
	v.SetDefault("rest.global_rps", 0)
	v.SetDefault("rest.global_burst", 1)

	// Rate limit table defaults
	v.SetDefault("ratelimit.backend", "memory")
	v.SetDefault("ratelimit.shards", 16)

	v.SetDefault("redis.addr", "localhost:6379")
	v.SetDefault("redis.password", "")
	v.SetDefault("redis.db", 0)
	v.SetDefault("redis.prefix", "courier:ratelimit")

	v.SetDefault("gateway.version", 10)

	// Server defaults
	v.SetDefault("server.host", "localhost")
	v.SetDefault("server.port", 8080)
	v.SetDefault("server.read_timeout", "30s")
	v.SetDefault("server.write_timeout", "30s")
	v.SetDefault("server.idle_timeout", "120s")
	v.SetDefault("server.shutdown_timeout", "10s")

	v.SetDefault("logging.level", "info")
	v.SetDefault("metrics.port", 0)

	v.SetDefault("workers", 4)
}

// NewViper builds a viper instance with defaults, environment binding and
// the config file search path. cfgFile, when set, overrides the search path.
// A missing config file is not an error.
func NewViper(cfgFile string) (*viper.Viper, error) {
	v := viper.New()
	if err := Prepare(v, cfgFile); err != nil {
		return nil, err
	}
	return v, nil
}

// Prepare applies defaults, env binding and file discovery to v.
func Prepare(v *viper.Viper, cfgFile string) error {
	SetDefaults(v)

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if cfgFile != "" {
		v.SetConfigFile(cfgFile)
	} else {
		if dir := DefaultConfigDir(); dir != "" {
			v.AddConfigPath(dir)
		}
		v.AddConfigPath("./config")
		v.SetConfigName("config")
		v.SetConfigType("yaml")
	}

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if errors.As(err, &notFound) && cfgFile == "" {
			return nil
		}
		return fmt.Errorf("failed to read config file: %w", err)
	}
	return nil
}

// Load decodes the settings held by v into a Config and stores it as the
// current configuration.
func Load(v *viper.Viper) (*Config, error) {
	if v == nil {
		return nil, errors.New("config: nil viper instance")
	}

	cfg := &Config{}
	decoder, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		Result:           cfg,
		WeaklyTypedInput: true,
		DecodeHook: mapstructure.ComposeDecodeHookFunc(
			mapstructure.StringToTimeDurationHookFunc(),
			mapstructure.StringToSliceHookFunc(","),
			mapstructure.StringToFloat64HookFunc(),
		),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create decoder: %w", err)
	}

	if err := decoder.Decode(v.AllSettings()); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	setConfig(cfg)
	return cfg, nil
}

// Validate rejects settings the runtime cannot act on.
func (c *Config) Validate() error {
	switch strings.ToLower(strings.TrimSpace(c.RateLimit.Backend)) {
	case "", "memory":
		c.RateLimit.Backend = "memory"
	case "redis":
		c.RateLimit.Backend = "redis"
		if strings.TrimSpace(c.Redis.Addr) == "" {
			return errors.New("config: redis.addr is required for the redis rate limit backend")
		}
	default:
		return fmt.Errorf("config: unknown ratelimit.backend %q (want memory or redis)", c.RateLimit.Backend)
	}

	if c.RateLimit.Shards < 0 {
		return fmt.Errorf("config: ratelimit.shards must not be negative")
	}
	if c.REST.GlobalRPS < 0 {
		return fmt.Errorf("config: rest.global_rps must not be negative")
	}
	if c.REST.Timeout < 0 {
		return fmt.Errorf("config: rest.timeout must not be negative")
	}
	if c.Workers < 0 {
		return fmt.Errorf("config: workers must not be negative")
	}
	return nil
}

// GetConfig returns the current application configuration (thread-safe)
func GetConfig() *Config {
	configMu.RLock()
	defer configMu.RUnlock()
	return appConfig
}

// setConfig updates the current configuration (thread-safe)
func setConfig(cfg *Config) {
	configMu.Lock()
	defer configMu.Unlock()
	appConfig = cfg
}

// DefaultConfigDir returns the per-user config directory, or "" when the
// platform has none.
func DefaultConfigDir() string {
	base, err := os.UserConfigDir()
	if err != nil || strings.TrimSpace(base) == "" {
		return ""
	}
	return filepath.Join(base, AppName)
}

// DefaultConfigPath returns the per-user config file path.
func DefaultConfigPath() string {
	dir := DefaultConfigDir()
	if dir == "" {
		return ""
	}
	return filepath.Join(dir, "config.yaml")
}
