package output

import (
	"encoding/json"

	"github.com/courierbot/courier/internal/core"
	"github.com/courierbot/courier/internal/core/ratelimit"
)

// JSONFormatter renders results as JSON.
type JSONFormatter struct {
	Indent bool
}

// FormatEntries renders live rate limit entries.
func (f *JSONFormatter) FormatEntries(entries []ratelimit.Entry) (string, error) {
	if entries == nil {
		entries = []ratelimit.Entry{}
	}
	return f.marshal(entries)
}

// FormatChannel renders a channel.
func (f *JSONFormatter) FormatChannel(channel *core.Channel) (string, error) {
	if channel == nil {
		return "", nil
	}
	return f.marshal(channel)
}

// FormatMessage renders a message.
func (f *JSONFormatter) FormatMessage(message *core.Message) (string, error) {
	if message == nil {
		return "", nil
	}
	return f.marshal(message)
}

// FormatGateway renders the discovered gateway URL.
func (f *JSONFormatter) FormatGateway(url string) (string, error) {
	return f.marshal(core.GatewayInfo{URL: url})
}

func (f *JSONFormatter) marshal(v any) (string, error) {
	var (
		data []byte
		err  error
	)

	if f.Indent {
		data, err = json.MarshalIndent(v, "", "  ")
	} else {
		data, err = json.Marshal(v)
	}
	if err != nil {
		return "", err
	}

	return string(data), nil
}
