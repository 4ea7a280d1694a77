package output

import (
	"github.com/courierbot/courier/internal/core"
	"github.com/courierbot/courier/internal/core/ratelimit"
)

// MarkdownFormatter renders results as markdown tables.
type MarkdownFormatter struct{}

// FormatEntries renders live rate limit entries.
func (f *MarkdownFormatter) FormatEntries(entries []ratelimit.Entry) (string, error) {
	if len(entries) == 0 {
		return "_No rate-limited buckets._", nil
	}
	return entryWriter(entries).RenderMarkdown(), nil
}

// FormatChannel renders a channel.
func (f *MarkdownFormatter) FormatChannel(channel *core.Channel) (string, error) {
	if channel == nil {
		return "", nil
	}
	return channelWriter(channel).RenderMarkdown(), nil
}

// FormatMessage renders a message.
func (f *MarkdownFormatter) FormatMessage(message *core.Message) (string, error) {
	if message == nil {
		return "", nil
	}
	return messageWriter(message).RenderMarkdown(), nil
}

// FormatGateway renders the discovered gateway URL.
func (f *MarkdownFormatter) FormatGateway(url string) (string, error) {
	return gatewayWriter(url).RenderMarkdown(), nil
}
