package cmd

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/courierbot/courier/internal/rest"
)

func runRoot(t *testing.T, args ...string) string {
	t.Helper()
	t.Setenv("HOME", t.TempDir())
	t.Setenv("XDG_CONFIG_HOME", t.TempDir())

	var out bytes.Buffer
	rootCmd.SetOut(&out)
	rootCmd.SetErr(&out)
	rootCmd.SetArgs(args)
	t.Cleanup(func() {
		rootCmd.SetArgs(nil)
		rootCmd.SetOut(nil)
		rootCmd.SetErr(nil)
	})

	require.NoError(t, rootCmd.Execute())
	return out.String()
}

func TestVersionCommand(t *testing.T) {
	SetVersionInfo("1.2.3", "abc123", "2026-10-17")
	t.Cleanup(func() { SetVersionInfo("dev", "unknown", "unknown") })

	assert.Equal(t, "courier 1.2.3\n", runRoot(t, "version"))
	assert.Equal(t, "1.2.3", rest.Version)

	extendedOut := runRoot(t, "version", "--extended")
	extended = false
	assert.Contains(t, extendedOut, "Commit: abc123")
	assert.Contains(t, extendedOut, "User-Agent: DiscordBot (https://github.com/courierbot/courier, 1.2.3)")
}

func TestRateLimitListEmptyMemoryTable(t *testing.T) {
	t.Setenv("COURIER_RATELIMIT_BACKEND", "memory")
	t.Setenv("COURIER_RATELIMIT_SHARDS", "3")

	out := runRoot(t, "rate-limit", "list", "--output-format", "json")
	assert.Equal(t, "[]\n", out)
}
