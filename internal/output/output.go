package output

import (
	"fmt"
	"strings"
	"time"

	"github.com/courierbot/courier/internal/core"
	"github.com/courierbot/courier/internal/core/ratelimit"
)

// Format represents an output format.
type Format string

const (
	FormatTable    Format = "table"
	FormatJSON     Format = "json"
	FormatYAML     Format = "yaml"
	FormatMarkdown Format = "markdown"
)

// Formatter renders command results.
type Formatter interface {
	FormatEntries(entries []ratelimit.Entry) (string, error)
	FormatChannel(channel *core.Channel) (string, error)
	FormatMessage(message *core.Message) (string, error)
	FormatGateway(url string) (string, error)
}

// ParseFormat validates and normalizes a format string.
func ParseFormat(value string) (Format, error) {
	normalized := strings.ToLower(strings.TrimSpace(value))
	switch normalized {
	case "", string(FormatTable):
		return FormatTable, nil
	case string(FormatJSON):
		return FormatJSON, nil
	case string(FormatYAML), "yml":
		return FormatYAML, nil
	case string(FormatMarkdown), "md":
		return FormatMarkdown, nil
	default:
		return "", fmt.Errorf("unsupported output format: %s", value)
	}
}

// NewFormatter returns a formatter for the requested format.
func NewFormatter(format Format) Formatter {
	switch format {
	case FormatJSON:
		return &JSONFormatter{Indent: true}
	case FormatYAML:
		return &YAMLFormatter{}
	case FormatMarkdown:
		return &MarkdownFormatter{}
	default:
		return &TableFormatter{}
	}
}

func formatTime(t time.Time) string {
	if t.IsZero() {
		return "-"
	}
	return t.UTC().Format(time.RFC3339)
}

func truncate(value string, max int) string {
	value = strings.ReplaceAll(strings.TrimSpace(value), "\n", " ")
	if max <= 0 || len([]rune(value)) <= max {
		return value
	}
	runes := []rune(value)
	return string(runes[:max-1]) + "…"
}

// Marshal renders an arbitrary value as indented JSON or block YAML.
func Marshal(format Format, v any) (string, error) {
	switch format {
	case FormatJSON:
		return (&JSONFormatter{Indent: true}).marshal(v)
	case FormatYAML:
		return marshalYAMLViaJSON(v)
	default:
		return "", fmt.Errorf("format %s cannot render structured data", format)
	}
}
