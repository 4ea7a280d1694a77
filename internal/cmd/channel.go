package cmd

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"go.uber.org/zap"

	"github.com/courierbot/courier/internal/core"
	"github.com/courierbot/courier/internal/observability"
	"github.com/courierbot/courier/internal/output"
	"github.com/courierbot/courier/internal/rest"
)

var channelWorkers int

var channelCmd = &cobra.Command{
	Use:   "channel",
	Short: "Inspect channels",
}

var channelGetCmd = &cobra.Command{
	Use:   "get <channel-id> [channel-id...]",
	Short: "Fetch one or more channels",
	Long: `Fetch channels by ID. Several IDs are fetched concurrently; calls against the
same channel share a rate limit bucket.`,
	Args: cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		format, err := resolveOutputFormat(cmd)
		if err != nil {
			return err
		}

		reqs := make([]rest.Request[core.Channel], 0, len(args))
		for _, arg := range args {
			id, err := core.ParseSnowflake(arg)
			if err != nil {
				return err
			}
			reqs = append(reqs, rest.GetChannel{ChannelID: id})
		}

		d, handle, err := setupClient(cmd.Context(), true)
		if err != nil {
			return err
		}
		defer handle.close() // nolint:errcheck // best-effort cleanup

		channels, err := rest.CallAll[core.Channel](cmd.Context(), d, viper.GetInt("workers"), reqs...)
		if err != nil {
			return err
		}

		observability.CLILogger.Debug("Fetched channels", zap.Int("count", len(channels)))

		formatter := output.NewFormatter(format)
		rendered := make([]string, 0, len(channels))
		for i := range channels {
			value, err := formatter.FormatChannel(&channels[i])
			if err != nil {
				return err
			}
			rendered = append(rendered, value)
		}
		_, err = fmt.Fprintln(cmd.OutOrStdout(), strings.Join(rendered, "\n\n"))
		return err
	},
}

var channelTypingCmd = &cobra.Command{
	Use:   "typing <channel-id>",
	Short: "Show the typing indicator in a channel",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		id, err := core.ParseSnowflake(args[0])
		if err != nil {
			return err
		}

		d, handle, err := setupClient(cmd.Context(), true)
		if err != nil {
			return err
		}
		defer handle.close() // nolint:errcheck // best-effort cleanup

		if _, err := rest.Call[core.Empty](cmd.Context(), d, rest.TriggerTypingIndicator{ChannelID: id}); err != nil {
			return err
		}
		_, err = fmt.Fprintf(cmd.OutOrStdout(), "Typing indicator sent to %s\n", id)
		return err
	},
}

func init() {
	channelGetCmd.Flags().IntVar(&channelWorkers, "workers", rest.DefaultBatchWorkers, "Maximum concurrent requests")
	_ = viper.BindPFlag("workers", channelGetCmd.Flags().Lookup("workers"))

	channelCmd.AddCommand(channelGetCmd)
	channelCmd.AddCommand(channelTypingCmd)
	rootCmd.AddCommand(channelCmd)
}
