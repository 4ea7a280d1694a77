package cmd

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/redis/go-redis/v9"
	"github.com/spf13/viper"
	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"github.com/courierbot/courier/internal/config"
	"github.com/courierbot/courier/internal/core/ratelimit"
	"github.com/courierbot/courier/internal/observability"
	"github.com/courierbot/courier/internal/rest"
)

// rateTable is what the CLI needs from a rate limit backend.
type rateTable interface {
	ratelimit.Table
	ratelimit.Admin
}

// tableHandle bundles a backend with its lifecycle hooks.
type tableHandle struct {
	table   rateTable
	backend string
	ping    func(ctx context.Context) error
	close   func() error
}

func loadConfig() (*config.Config, error) {
	cfg, err := config.Load(viper.GetViper())
	if err != nil {
		return nil, fmt.Errorf("load config: %w", err)
	}
	return cfg, nil
}

// openTable selects the configured rate limit backend.
func openTable(ctx context.Context, cfg *config.Config) (*tableHandle, error) {
	switch cfg.RateLimit.Backend {
	case "redis":
		rdb := redis.NewClient(&redis.Options{
			Addr:     cfg.Redis.Addr,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
		})
		table := ratelimit.NewRedisTable(rdb, ratelimit.WithRedisPrefix(cfg.Redis.Prefix))
		if err := table.Ping(ctx); err != nil {
			_ = rdb.Close()
			return nil, fmt.Errorf("connect redis %s: %w", cfg.Redis.Addr, err)
		}
		return &tableHandle{table: table, backend: "redis", ping: table.Ping, close: rdb.Close}, nil
	default:
		var table *ratelimit.MemoryTable
		if cfg.RateLimit.Shards > 0 && cfg.RateLimit.Shards != ratelimit.DefaultShards {
			table = ratelimit.NewMemoryTable(cfg.RateLimit.Shards)
		} else {
			table = ratelimit.Shared()
		}
		return &tableHandle{
			table:   table,
			backend: "memory",
			ping:    func(context.Context) error { return nil },
			close:   func() error { return nil },
		}, nil
	}
}

// newDispatcher builds a dispatcher from cfg over table.
func newDispatcher(cfg *config.Config, table ratelimit.Table, logger *zap.Logger) *rest.Dispatcher {
	d := &rest.Dispatcher{
		Token:     strings.TrimSpace(cfg.Token),
		BaseURL:   cfg.REST.BaseURL,
		UserAgent: rest.UserAgent(cfg.REST.UserAgentURL, rest.Version),
		Client:    &http.Client{Timeout: cfg.REST.Timeout},
		Table:     table,
		Logger:    logger,
	}
	if cfg.REST.GlobalRPS > 0 {
		burst := cfg.REST.GlobalBurst
		if burst < 1 {
			burst = 1
		}
		d.Global = rate.NewLimiter(rate.Limit(cfg.REST.GlobalRPS), burst)
	}
	return d
}

var errNoToken = errors.New("a bot token is required (use --token or COURIER_TOKEN)")

// setupClient loads config and returns a ready dispatcher plus a cleanup.
func setupClient(ctx context.Context, requireToken bool) (*rest.Dispatcher, *tableHandle, error) {
	cfg, err := loadConfig()
	if err != nil {
		return nil, nil, err
	}
	if requireToken && strings.TrimSpace(cfg.Token) == "" {
		return nil, nil, errNoToken
	}

	handle, err := openTable(ctx, cfg)
	if err != nil {
		return nil, nil, err
	}

	logger := observability.CLILogger.Named("rest")
	logger.Debug("Dispatcher configured",
		zap.String("base_url", cfg.REST.BaseURL),
		zap.String("ratelimit_backend", handle.backend),
		zap.Float64("global_rps", cfg.REST.GlobalRPS),
	)
	return newDispatcher(cfg, handle.table, logger), handle, nil
}
