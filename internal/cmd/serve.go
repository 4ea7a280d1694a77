package cmd

import (
	"context"
	"errors"
	"net/http"
	"os"
	"syscall"
	"time"

	"github.com/fulmenhq/gofulmen/foundry"
	"github.com/fulmenhq/gofulmen/signals"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"go.uber.org/zap"

	"github.com/courierbot/courier/internal/config"
	errwrap "github.com/courierbot/courier/internal/errors"
	"github.com/courierbot/courier/internal/observability"
	"github.com/courierbot/courier/internal/server"
	"github.com/courierbot/courier/internal/server/handlers"
)

var (
	serverPort int
	serverHost string
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the status HTTP server",
	Long: `Start the status HTTP server with graceful shutdown support.

The server exposes health probes, counters and the shared rate limit table.

Signal Handling:
  Ctrl+C (SIGINT) or SIGTERM: graceful shutdown
  Ctrl+C twice within 2s: force quit

Shutdown stops the HTTP server, closes the metrics exporter and flushes logs.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig()
		if err != nil {
			return err
		}

		observability.InitServerLogger(config.AppName, cfg.Logging.Level)
		logger := observability.ServerLogger

		handle, err := openTable(cmd.Context(), cfg)
		if err != nil {
			return errwrap.WrapExternalService(cmd.Context(), err, "rate limit backend unavailable")
		}
		defer handle.close() // nolint:errcheck // best-effort cleanup

		logger.Info("Initializing server",
			zap.String("service", config.AppName),
			zap.String("version", versionInfo.Version),
			zap.String("ratelimit_backend", handle.backend),
			zap.String("host", cfg.Server.Host),
			zap.Int("port", cfg.Server.Port))

		if err := observability.InitMetrics(config.AppName, cfg.Metrics.Port); err != nil {
			return errwrap.WrapInternal(cmd.Context(), err, "metrics initialization failed")
		}
		if port := observability.GetMetricsPort(); port > 0 {
			logger.Info("Prometheus exporter listening", zap.Int("metrics_port", port))
		}

		srv := server.New(server.Options{
			Host:         cfg.Server.Host,
			Port:         cfg.Server.Port,
			ReadTimeout:  cfg.Server.ReadTimeout,
			WriteTimeout: cfg.Server.WriteTimeout,
			IdleTimeout:  cfg.Server.IdleTimeout,
			Version:      versionInfo.Version,
			Table:        handle.table,
			HealthCheckers: map[string]handlers.HealthChecker{
				"ratelimit_" + handle.backend: handlers.HealthCheckFunc(handle.ping),
			},
		})

		// Shutdown handlers run LIFO: stop the server first, flush logs last.
		shutdown := func(ctx context.Context) error {
			logger.Info("Shutting down HTTP server...")
			shutdownCtx, cancel := context.WithTimeout(ctx, cfg.Server.ShutdownTimeout)
			defer cancel()
			if err := srv.Shutdown(shutdownCtx); err != nil {
				return errwrap.WrapInternal(ctx, err, "server shutdown failed")
			}
			logger.Info("HTTP server stopped gracefully")
			return nil
		}

		mgr := signals.NewManager()
		defer mgr.Stop()
		for _, sig := range []os.Signal{syscall.SIGINT, syscall.SIGTERM} {
			if _, err := mgr.Handle(sig, func(_ context.Context, sig os.Signal) error {
				logger.Info("Shutdown signal received", zap.String("signal", sig.String()))
				return nil
			}); err != nil {
				logger.Warn("Failed to register signal handler", zap.String("signal", sig.String()), zap.Error(err))
			}
		}
		mgr.OnShutdown(func(ctx context.Context) error {
			if err := logger.Sync(); err != nil {
				logger.Debug("Logger sync returned error (may be benign)", zap.Error(err))
			}
			return nil
		})
		mgr.OnShutdown(func(ctx context.Context) error {
			if err := observability.StopMetrics(); err != nil {
				logger.Warn("Failed to stop metrics exporter", zap.Error(err))
			}
			return nil
		})
		mgr.OnShutdown(shutdown)

		if err := mgr.EnableDoubleTap(signals.DoubleTapConfig{
			Window:   2 * time.Second,
			Message:  "Press Ctrl+C again within 2 seconds to force quit",
			ExitCode: foundry.ExitSignalInt,
		}); err != nil {
			logger.Warn("Failed to enable double-tap force quit", zap.Error(err))
		}

		errChan := make(chan error, 1)
		go func() {
			if err := srv.Start(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				errChan <- err
			}
			close(errChan)
		}()

		listenDone := make(chan error, 1)
		go func() {
			listenDone <- mgr.Listen(cmd.Context())
		}()

		select {
		case err := <-errChan:
			if err != nil {
				return errwrap.WrapInternal(cmd.Context(), err, "server error")
			}
			// Closed by the shutdown handler; let the remaining handlers finish.
			return listenResult(cmd.Context(), <-listenDone, shutdown)
		case err := <-listenDone:
			return listenResult(cmd.Context(), err, shutdown)
		}
	},
}

// listenResult maps the signal listener's return to the command result. A
// parent context that ends without a signal still runs the shutdown path.
func listenResult(ctx context.Context, err error, shutdown func(context.Context) error) error {
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return shutdown(context.WithoutCancel(ctx))
	}
	if err != nil {
		return errwrap.WrapInternal(ctx, err, "signal handler error")
	}
	return nil
}

func init() {
	rootCmd.AddCommand(serveCmd)

	serveCmd.Flags().StringVar(&serverHost, "host", "localhost", "server host")
	serveCmd.Flags().IntVarP(&serverPort, "port", "p", 8080, "server port")

	_ = viper.BindPFlag("server.host", serveCmd.Flags().Lookup("host"))
	_ = viper.BindPFlag("server.port", serveCmd.Flags().Lookup("port"))
}
