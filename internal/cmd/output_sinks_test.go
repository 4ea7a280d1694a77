package cmd

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"
	"testing"

	"github.com/spf13/cobra"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/courierbot/courier/internal/output"
)

func TestOpenSinkFallback(t *testing.T) {
	var buf bytes.Buffer
	sink, err := openSink(" - ", &buf)
	require.NoError(t, err)
	assert.Equal(t, "-", sink.path)

	fmt.Fprint(sink.writer, "hello")
	require.NoError(t, sink.close())
	assert.Equal(t, "hello", buf.String())
}

func TestOpenSinkFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "out.json")
	sink, err := openSink(path, nil)
	require.NoError(t, err)

	fmt.Fprint(sink.writer, "[]")
	require.NoError(t, sink.close())

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, "[]", string(data))
}

func TestResolveOutPath(t *testing.T) {
	_, err := resolveOutPath("a.json", "dir", "x", output.FormatJSON)
	require.Error(t, err)

	path, err := resolveOutPath(" a.json ", "", "x", output.FormatJSON)
	require.NoError(t, err)
	assert.Equal(t, "a.json", path)

	dir := filepath.Join(t.TempDir(), "reports")
	path, err = resolveOutPath("", dir, "rate-limit.list", output.FormatYAML)
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(dir, "rate-limit.list.yaml"), path)
	assert.DirExists(t, dir)
}

func TestOutputExtension(t *testing.T) {
	assert.Equal(t, "json", outputExtension(output.FormatJSON))
	assert.Equal(t, "yaml", outputExtension(output.FormatYAML))
	assert.Equal(t, "md", outputExtension(output.FormatMarkdown))
	assert.Equal(t, "txt", outputExtension(output.FormatTable))
}

func TestResolveOutputFormat(t *testing.T) {
	cmd := &cobra.Command{}
	cmd.Flags().String("output-format", "table", "")

	format, err := resolveOutputFormat(cmd)
	require.NoError(t, err)
	assert.Equal(t, output.FormatTable, format)

	require.NoError(t, cmd.Flags().Set("output-format", "yml"))
	format, err = resolveOutputFormat(cmd)
	require.NoError(t, err)
	assert.Equal(t, output.FormatYAML, format)

	require.NoError(t, cmd.Flags().Set("output-format", "xml"))
	_, err = resolveOutputFormat(cmd)
	require.Error(t, err)
}
