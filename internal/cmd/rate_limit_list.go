package cmd

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/courierbot/courier/internal/core/ratelimit"
	"github.com/courierbot/courier/internal/output"
)

var (
	rateLimitListServer string
	rateLimitListOut    string
	rateLimitListOutDir string
	rateLimitListPrefix string
)

var rateLimitListCmd = &cobra.Command{
	Use:   "list",
	Short: "List exhausted rate limit buckets",
	RunE: func(cmd *cobra.Command, args []string) error {
		format, err := resolveOutputFormat(cmd)
		if err != nil {
			return err
		}

		admin, closeAdmin, err := openAdmin(cmd.Context(), rateLimitListServer)
		if err != nil {
			return err
		}
		defer closeAdmin() // nolint:errcheck // best-effort cleanup

		entries, err := admin.Snapshot(cmd.Context(), time.Now().UTC())
		if err != nil {
			return err
		}
		entries = filterEntries(entries, rateLimitListPrefix)

		outPath, err := resolveOutPath(rateLimitListOut, rateLimitListOutDir, "rate-limit.list", format)
		if err != nil {
			return err
		}
		sink, err := openSink(outPath, cmd.OutOrStdout())
		if err != nil {
			return err
		}
		defer func() { _ = sink.close() }()

		rendered, err := output.NewFormatter(format).FormatEntries(entries)
		if err != nil {
			return err
		}
		_, err = fmt.Fprintln(sink.writer, rendered)
		return err
	},
}

func filterEntries(entries []ratelimit.Entry, prefix string) []ratelimit.Entry {
	prefix = strings.TrimSpace(prefix)
	if prefix == "" {
		return entries
	}
	var out []ratelimit.Entry
	for _, e := range entries {
		if strings.HasPrefix(e.Bucket, prefix) {
			out = append(out, e)
		}
	}
	return out
}

func init() {
	rateLimitListCmd.Flags().StringVar(&rateLimitListServer, "server", "", "Query a running server (e.g. http://localhost:8080)")
	rateLimitListCmd.Flags().StringVar(&rateLimitListOut, "out", "", "Write output to a file (default stdout)")
	rateLimitListCmd.Flags().StringVar(&rateLimitListOutDir, "out-dir", "", "Write output to a directory")
	rateLimitListCmd.Flags().StringVar(&rateLimitListPrefix, "prefix", "", "List buckets with matching prefix")
}
