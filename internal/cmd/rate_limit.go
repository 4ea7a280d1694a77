package cmd

import "github.com/spf13/cobra"

var rateLimitCmd = &cobra.Command{
	Use:   "rate-limit",
	Short: "Inspect and reset exhausted rate limit buckets",
	Long: `Inspect and reset exhausted rate limit buckets.

The memory backend only holds state for the current process; use the redis
backend, or --server to query a running "courier serve", to see shared state.`,
}

func init() {
	rateLimitCmd.AddCommand(rateLimitListCmd)
	rateLimitCmd.AddCommand(rateLimitResetCmd)
	rootCmd.AddCommand(rateLimitCmd)
}
