package cmd

import (
	"context"
	"time"

	"github.com/fulmenhq/gofulmen/foundry"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	errwrap "github.com/courierbot/courier/internal/errors"
	"github.com/courierbot/courier/internal/observability"
)

var healthCmd = &cobra.Command{
	Use:   "health",
	Short: "Run self-health check",
	Long:  "Run a self-health check: version metadata, configuration and the rate limit backend.",
	Run: func(cmd *cobra.Command, args []string) {
		logger := observability.CLILogger
		logger.Info("Running health check...")

		if versionInfo.Version == "" {
			ExitWithCode(logger, foundry.ExitConfigInvalid, "Version information missing", errwrap.NewInternalError("version information missing"))
			return
		}
		logger.Info("Version information available", zap.String("version", versionInfo.Version))

		cfg, err := loadConfig()
		if err != nil {
			ExitWithCode(logger, foundry.ExitConfigInvalid, "Configuration invalid", err)
			return
		}
		logger.Info("Configuration loaded", zap.String("base_url", cfg.REST.BaseURL))

		ctx, cancel := context.WithTimeout(cmd.Context(), 5*time.Second)
		defer cancel()
		handle, err := openTable(ctx, cfg)
		if err != nil {
			ExitWithCode(logger, foundry.ExitExternalServiceUnavailable, "Rate limit backend unavailable", err)
			return
		}
		defer handle.close() // nolint:errcheck // best-effort cleanup
		if err := handle.ping(ctx); err != nil {
			ExitWithCode(logger, foundry.ExitExternalServiceUnavailable, "Rate limit backend unavailable", err)
			return
		}
		logger.Info("Rate limit backend reachable", zap.String("backend", handle.backend))

		logger.Info("All health checks passed")
	},
}

func init() {
	rootCmd.AddCommand(healthCmd)
}
