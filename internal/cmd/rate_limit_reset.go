package cmd

import (
	"errors"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/courierbot/courier/internal/core/ratelimit"
	"github.com/courierbot/courier/internal/output"
)

var (
	rateLimitResetAll    bool
	rateLimitResetKey    string
	rateLimitResetPrefix string
	rateLimitResetYes    bool
	rateLimitResetDryRun bool
	rateLimitResetServer string
	rateLimitResetOut    string
	rateLimitResetOutDir string
)

type resetResult struct {
	Matched int   `json:"matched" yaml:"matched"`
	Deleted int64 `json:"deleted" yaml:"deleted"`
	DryRun  bool  `json:"dry_run" yaml:"dry_run"`
}

var rateLimitResetCmd = &cobra.Command{
	Use:   "reset",
	Short: "Forget exhausted rate limit buckets",
	RunE: func(cmd *cobra.Command, args []string) error {
		format, err := resolveOutputFormat(cmd)
		if err != nil {
			return err
		}

		query := ratelimit.Query{
			All:    rateLimitResetAll,
			Key:    strings.TrimSpace(rateLimitResetKey),
			Prefix: strings.TrimSpace(rateLimitResetPrefix),
		}
		if err := query.Validate(); err != nil {
			return err
		}
		if query.All && !rateLimitResetYes && !rateLimitResetDryRun {
			return errors.New("--all requires --yes (or use --dry-run)")
		}

		admin, closeAdmin, err := openAdmin(cmd.Context(), rateLimitResetServer)
		if err != nil {
			return err
		}
		defer closeAdmin() // nolint:errcheck // best-effort cleanup

		entries, err := admin.Snapshot(cmd.Context(), time.Now().UTC())
		if err != nil {
			return err
		}
		result := resetResult{Matched: countMatches(entries, query), DryRun: rateLimitResetDryRun}

		if !rateLimitResetDryRun {
			result.Deleted, err = admin.Reset(cmd.Context(), query)
			if err != nil {
				return err
			}
		}

		outPath, err := resolveOutPath(rateLimitResetOut, rateLimitResetOutDir, "rate-limit.reset", format)
		if err != nil {
			return err
		}
		sink, err := openSink(outPath, cmd.OutOrStdout())
		if err != nil {
			return err
		}
		defer func() { _ = sink.close() }()

		return writeResetResult(format, sink.writer, result)
	},
}

// countMatches counts live entries selected by q.
func countMatches(entries []ratelimit.Entry, q ratelimit.Query) int {
	n := 0
	for _, e := range entries {
		if q.Matches(e.Bucket) {
			n++
		}
	}
	return n
}

func writeResetResult(format output.Format, w io.Writer, result resetResult) error {
	switch format {
	case output.FormatJSON, output.FormatYAML:
		rendered, err := output.Marshal(format, result)
		if err != nil {
			return err
		}
		_, err = fmt.Fprintln(w, rendered)
		return err
	}

	if result.DryRun {
		_, err := fmt.Fprintf(w, "Would delete %d rate limit entr(ies)\n", result.Matched)
		return err
	}
	_, err := fmt.Fprintf(w, "Deleted %d/%d rate limit entr(ies)\n", result.Deleted, result.Matched)
	return err
}

func init() {
	rateLimitResetCmd.Flags().BoolVar(&rateLimitResetAll, "all", false, "Reset all buckets")
	rateLimitResetCmd.Flags().StringVar(&rateLimitResetKey, "key", "", "Reset a single bucket (exact match, e.g. create_message:123)")
	rateLimitResetCmd.Flags().StringVar(&rateLimitResetPrefix, "prefix", "", "Reset buckets with matching prefix")
	rateLimitResetCmd.Flags().BoolVar(&rateLimitResetYes, "yes", false, "Confirm destructive reset")
	rateLimitResetCmd.Flags().BoolVar(&rateLimitResetDryRun, "dry-run", false, "Show what would be deleted")
	rateLimitResetCmd.Flags().StringVar(&rateLimitResetServer, "server", "", "Reset on a running server (e.g. http://localhost:8080)")
	rateLimitResetCmd.Flags().StringVar(&rateLimitResetOut, "out", "", "Write output to a file (default stdout)")
	rateLimitResetCmd.Flags().StringVar(&rateLimitResetOutDir, "out-dir", "", "Write output to a directory")
}
