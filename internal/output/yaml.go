package output

import (
	"encoding/json"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/courierbot/courier/internal/core"
	"github.com/courierbot/courier/internal/core/ratelimit"
)

// YAMLFormatter renders results as YAML.
type YAMLFormatter struct{}

// FormatEntries renders live rate limit entries.
func (f *YAMLFormatter) FormatEntries(entries []ratelimit.Entry) (string, error) {
	if entries == nil {
		entries = []ratelimit.Entry{}
	}
	return marshalYAML(entries)
}

// FormatChannel renders a channel.
func (f *YAMLFormatter) FormatChannel(channel *core.Channel) (string, error) {
	if channel == nil {
		return "", nil
	}
	return marshalYAMLViaJSON(channel)
}

// FormatMessage renders a message.
func (f *YAMLFormatter) FormatMessage(message *core.Message) (string, error) {
	if message == nil {
		return "", nil
	}
	return marshalYAMLViaJSON(message)
}

// FormatGateway renders the discovered gateway URL.
func (f *YAMLFormatter) FormatGateway(url string) (string, error) {
	return marshalYAML(map[string]string{"url": url})
}

func marshalYAML(v any) (string, error) {
	data, err := yaml.Marshal(v)
	if err != nil {
		return "", err
	}
	return strings.TrimRight(string(data), "\n"), nil
}

// marshalYAMLViaJSON renders platform types with their wire field names and
// field order. JSON is valid YAML, so the encoded document is parsed into a
// node tree and re-emitted in block style.
func marshalYAMLViaJSON(v any) (string, error) {
	data, err := json.Marshal(v)
	if err != nil {
		return "", err
	}
	var node yaml.Node
	if err := yaml.Unmarshal(data, &node); err != nil {
		return "", err
	}
	plain(&node)
	return marshalYAML(&node)
}

func plain(n *yaml.Node) {
	n.Style = 0
	for _, child := range n.Content {
		plain(child)
	}
}
