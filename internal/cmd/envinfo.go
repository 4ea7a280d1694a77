package cmd

import (
	"fmt"
	"runtime"
	"strings"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/courierbot/courier/internal/config"
	"github.com/courierbot/courier/internal/rest"
)

var envInfoCmd = &cobra.Command{
	Use:   "envinfo",
	Short: "Display environment information",
	Long:  "Display environment, configuration, and version information. The token is never printed.",
	RunE: func(cmd *cobra.Command, args []string) error {
		out := cmd.OutOrStdout()

		fmt.Fprintln(out, "Application:")
		fmt.Fprintf(out, "  Name:       %s\n", config.AppName)
		fmt.Fprintf(out, "  Version:    %s\n", versionInfo.Version)
		fmt.Fprintf(out, "  Commit:     %s\n", versionInfo.Commit)
		fmt.Fprintf(out, "  Built:      %s\n", versionInfo.BuildDate)
		fmt.Fprintln(out)

		fmt.Fprintln(out, "Runtime:")
		fmt.Fprintf(out, "  Go Version: %s\n", runtime.Version())
		fmt.Fprintf(out, "  GOOS:       %s\n", runtime.GOOS)
		fmt.Fprintf(out, "  GOARCH:     %s\n", runtime.GOARCH)
		fmt.Fprintf(out, "  NumCPU:     %d\n", runtime.NumCPU())
		fmt.Fprintln(out)

		cfg, err := loadConfig()
		if err != nil {
			return err
		}

		configFile := viper.ConfigFileUsed()
		if configFile == "" {
			configFile = "(none, default " + config.DefaultConfigPath() + ")"
		}
		token := "(not set)"
		if strings.TrimSpace(cfg.Token) != "" {
			token = "(set)"
		}

		fmt.Fprintln(out, "Configuration:")
		fmt.Fprintf(out, "  Config File:    %s\n", configFile)
		fmt.Fprintf(out, "  Token:          %s\n", token)
		fmt.Fprintf(out, "  Base URL:       %s\n", cfg.REST.BaseURL)
		fmt.Fprintf(out, "  User-Agent:     %s\n", rest.UserAgent(cfg.REST.UserAgentURL, rest.Version))
		fmt.Fprintf(out, "  Timeout:        %s\n", cfg.REST.Timeout)
		fmt.Fprintf(out, "  Global RPS:     %g (burst %d)\n", cfg.REST.GlobalRPS, cfg.REST.GlobalBurst)
		fmt.Fprintf(out, "  Rate Limits:    %s\n", cfg.RateLimit.Backend)
		if cfg.RateLimit.Backend == "redis" {
			fmt.Fprintf(out, "  Redis:          %s db=%d prefix=%s\n", cfg.Redis.Addr, cfg.Redis.DB, cfg.Redis.Prefix)
		} else {
			fmt.Fprintf(out, "  Shards:         %d\n", cfg.RateLimit.Shards)
		}
		fmt.Fprintf(out, "  Gateway:        v%d\n", cfg.Gateway.Version)
		fmt.Fprintf(out, "  Server:         %s:%d\n", cfg.Server.Host, cfg.Server.Port)
		fmt.Fprintf(out, "  Log Level:      %s\n", cfg.Logging.Level)
		fmt.Fprintf(out, "  Workers:        %d\n", cfg.Workers)
		return nil
	},
}

func init() {
	rootCmd.AddCommand(envInfoCmd)
}
