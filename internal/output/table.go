package output

import (
	"github.com/jedib0t/go-pretty/v6/table"

	"github.com/courierbot/courier/internal/core"
	"github.com/courierbot/courier/internal/core/ratelimit"
)

// TableFormatter renders results as an ASCII table.
type TableFormatter struct{}

// FormatEntries renders live rate limit entries.
func (f *TableFormatter) FormatEntries(entries []ratelimit.Entry) (string, error) {
	if len(entries) == 0 {
		return "No rate-limited buckets.", nil
	}
	return render(entryWriter(entries)), nil
}

// FormatChannel renders a channel as field/value rows.
func (f *TableFormatter) FormatChannel(channel *core.Channel) (string, error) {
	if channel == nil {
		return "", nil
	}
	return render(channelWriter(channel)), nil
}

// FormatMessage renders a message as field/value rows.
func (f *TableFormatter) FormatMessage(message *core.Message) (string, error) {
	if message == nil {
		return "", nil
	}
	return render(messageWriter(message)), nil
}

// FormatGateway renders the discovered gateway URL.
func (f *TableFormatter) FormatGateway(url string) (string, error) {
	return render(gatewayWriter(url)), nil
}

func render(t table.Writer) string {
	t.SetStyle(table.StyleRounded)
	return t.Render()
}
