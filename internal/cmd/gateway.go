package cmd

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/courierbot/courier/internal/gateway"
	"github.com/courierbot/courier/internal/observability"
	"github.com/courierbot/courier/internal/output"
)

var (
	gatewayConnect bool
	gatewayEvents  int
	gatewayWait    time.Duration
)

var gatewayCmd = &cobra.Command{
	Use:   "gateway",
	Short: "Discover the event stream endpoint",
	Long: `Discover the event stream endpoint. With --connect the command also opens
the connection and prints the first raw frames it receives.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		format, err := resolveOutputFormat(cmd)
		if err != nil {
			return err
		}

		d, handle, err := setupClient(cmd.Context(), false)
		if err != nil {
			return err
		}
		defer handle.close() // nolint:errcheck // best-effort cleanup

		url, err := gateway.Discover(cmd.Context(), d)
		if err != nil {
			return err
		}

		out := cmd.OutOrStdout()
		if !gatewayConnect {
			rendered, err := output.NewFormatter(format).FormatGateway(url)
			if err != nil {
				return err
			}
			_, err = fmt.Fprintln(out, rendered)
			return err
		}

		cfg, err := loadConfig()
		if err != nil {
			return err
		}

		conn, err := gateway.Dial(cmd.Context(), url, gateway.Options{
			Version: cfg.Gateway.Version,
			Logger:  observability.CLILogger.Named("gateway"),
		})
		if err != nil {
			return err
		}
		defer conn.Close() // nolint:errcheck // best-effort cleanup

		timeout := time.NewTimer(gatewayWait)
		defer timeout.Stop()

		for received := 0; received < gatewayEvents; {
			select {
			case ev, ok := <-conn.Events():
				if !ok {
					return conn.Err()
				}
				received++
				line, err := json.Marshal(ev)
				if err != nil {
					return err
				}
				fmt.Fprintln(out, string(line))
			case <-timeout.C:
				observability.CLILogger.Warn("Timed out waiting for gateway events",
					zap.Int("received", received),
					zap.Duration("wait", gatewayWait))
				return nil
			case <-cmd.Context().Done():
				return cmd.Context().Err()
			}
		}
		return nil
	},
}

func init() {
	gatewayCmd.Flags().BoolVar(&gatewayConnect, "connect", false, "Open the connection and print received frames")
	gatewayCmd.Flags().IntVar(&gatewayEvents, "events", 1, "Number of frames to print with --connect")
	gatewayCmd.Flags().DurationVar(&gatewayWait, "wait", 10*time.Second, "Maximum time to wait for frames")
	rootCmd.AddCommand(gatewayCmd)
}
