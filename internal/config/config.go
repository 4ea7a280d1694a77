package config

import (
	"time"
)

// Config represents the complete application configuration.
// Values come from defaults, an optional YAML file, and COURIER_* environment
// variables, in increasing order of precedence.
type Config struct {
	Token     string          `mapstructure:"token"`
	REST      RESTConfig      `mapstructure:"rest"`
	RateLimit RateLimitConfig `mapstructure:"ratelimit"`
	Redis     RedisConfig     `mapstructure:"redis"`
	Gateway   GatewayConfig   `mapstructure:"gateway"`
	Server    ServerConfig    `mapstructure:"server"`
	Logging   LoggingConfig   `mapstructure:"logging"`
	Metrics   MetricsConfig   `mapstructure:"metrics"`
	Workers   int             `mapstructure:"workers"`
}

// RESTConfig contains REST dispatcher configuration
type RESTConfig struct {
	BaseURL      string        `mapstructure:"base_url"`
	UserAgentURL string        `mapstructure:"user_agent_url"`
	Timeout      time.Duration `mapstructure:"timeout"`

	// GlobalRPS enables a process-wide token bucket in front of every call.
	// Zero disables it.
	GlobalRPS   float64 `mapstructure:"global_rps"`
	GlobalBurst int     `mapstructure:"global_burst"`
}

// RateLimitConfig selects the rate limit table backend.
type RateLimitConfig struct {
	// Backend is "memory" or "redis".
	Backend string `mapstructure:"backend"`
	Shards  int    `mapstructure:"shards"`
}

// RedisConfig contains connection settings for the shared rate limit table.
type RedisConfig struct {
	Addr     string `mapstructure:"addr"`
	Password string `mapstructure:"password"`
	DB       int    `mapstructure:"db"`
	Prefix   string `mapstructure:"prefix"`
}

// GatewayConfig contains event stream settings
type GatewayConfig struct {
	Version int `mapstructure:"version"`
}

// ServerConfig contains HTTP server configuration
type ServerConfig struct {
	Host            string        `mapstructure:"host"`
	Port            int           `mapstructure:"port"`
	ReadTimeout     time.Duration `mapstructure:"read_timeout"`
	WriteTimeout    time.Duration `mapstructure:"write_timeout"`
	IdleTimeout     time.Duration `mapstructure:"idle_timeout"`
	ShutdownTimeout time.Duration `mapstructure:"shutdown_timeout"`
}

// MetricsConfig controls the telemetry exporter.
type MetricsConfig struct {
	// Port starts a standalone Prometheus scrape listener when positive.
	Port int `mapstructure:"port"`
}

// LoggingConfig contains logging configuration
type LoggingConfig struct {
	// Level controls the minimum log level
	// Valid values: debug, info, warn, error
	Level string `mapstructure:"level"`
}
