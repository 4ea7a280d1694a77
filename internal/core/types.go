package core

import (
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"
)

// Snowflake is a platform object ID. The wire encoding is a decimal string.
type Snowflake uint64

// ParseSnowflake parses a decimal ID.
func ParseSnowflake(value string) (Snowflake, error) {
	value = strings.TrimSpace(value)
	if value == "" {
		return 0, fmt.Errorf("snowflake is required")
	}
	id, err := strconv.ParseUint(value, 10, 64)
	if err != nil {
		return 0, fmt.Errorf("invalid snowflake %q: %w", value, err)
	}
	return Snowflake(id), nil
}

// String returns the decimal form of the ID.
func (s Snowflake) String() string {
	return strconv.FormatUint(uint64(s), 10)
}

// MarshalJSON encodes the ID as a JSON string.
func (s Snowflake) MarshalJSON() ([]byte, error) {
	return []byte(strconv.Quote(s.String())), nil
}

// UnmarshalJSON accepts both string and numeric encodings.
func (s *Snowflake) UnmarshalJSON(data []byte) error {
	raw := strings.TrimSpace(string(data))
	if raw == "null" {
		*s = 0
		return nil
	}
	if unquoted, err := strconv.Unquote(raw); err == nil {
		raw = unquoted
	}
	id, err := strconv.ParseUint(raw, 10, 64)
	if err != nil {
		return fmt.Errorf("invalid snowflake %s: %w", string(data), err)
	}
	*s = Snowflake(id)
	return nil
}

// MarshalYAML renders the ID as a string scalar.
func (s Snowflake) MarshalYAML() (any, error) {
	return s.String(), nil
}

// ChannelType identifies the kind of channel.
type ChannelType int

const (
	ChannelTypeGuildText  ChannelType = 0
	ChannelTypeDM         ChannelType = 1
	ChannelTypeGuildVoice ChannelType = 2
	ChannelTypeGroupDM    ChannelType = 3
)

// String names the channel type.
func (t ChannelType) String() string {
	switch t {
	case ChannelTypeGuildText:
		return "text"
	case ChannelTypeDM:
		return "dm"
	case ChannelTypeGuildVoice:
		return "voice"
	case ChannelTypeGroupDM:
		return "group_dm"
	default:
		return fmt.Sprintf("type_%d", int(t))
	}
}

// Channel is a guild or direct-message channel.
type Channel struct {
	ID                   Snowflake   `json:"id"`
	Type                 ChannelType `json:"type"`
	GuildID              Snowflake   `json:"guild_id,omitempty"`
	Name                 string      `json:"name,omitempty"`
	Topic                string      `json:"topic,omitempty"`
	Position             int         `json:"position,omitempty"`
	NSFW                 bool        `json:"nsfw,omitempty"`
	LastMessageID        Snowflake   `json:"last_message_id,omitempty"`
	Bitrate              int         `json:"bitrate,omitempty"`
	UserLimit            int         `json:"user_limit,omitempty"`
	PermissionOverwrites []Overwrite `json:"permission_overwrites,omitempty"`
	Recipients           []User      `json:"recipients,omitempty"`
}

// Overwrite is an explicit permission overwrite for a role or member.
type Overwrite struct {
	ID    Snowflake `json:"id"`
	Type  string    `json:"type"`
	Allow int64     `json:"allow"`
	Deny  int64     `json:"deny"`
}

// User is a platform account.
type User struct {
	ID            Snowflake `json:"id"`
	Username      string    `json:"username"`
	Discriminator string    `json:"discriminator,omitempty"`
	Avatar        string    `json:"avatar,omitempty"`
	Bot           bool      `json:"bot,omitempty"`
}

// Attachment is a file attached to a message.
type Attachment struct {
	ID       Snowflake `json:"id"`
	Filename string    `json:"filename"`
	Size     int       `json:"size"`
	URL      string    `json:"url"`
	ProxyURL string    `json:"proxy_url,omitempty"`
}

// Embed is rich message content.
type Embed struct {
	Title       string `json:"title,omitempty"`
	Type        string `json:"type,omitempty"`
	Description string `json:"description,omitempty"`
	URL         string `json:"url,omitempty"`
	Color       int    `json:"color,omitempty"`
}

// Message is a channel message.
type Message struct {
	ID              Snowflake    `json:"id"`
	ChannelID       Snowflake    `json:"channel_id"`
	Author          User         `json:"author"`
	Content         string       `json:"content"`
	Timestamp       time.Time    `json:"timestamp"`
	EditedTimestamp *time.Time   `json:"edited_timestamp,omitempty"`
	TTS             bool         `json:"tts,omitempty"`
	MentionEveryone bool         `json:"mention_everyone,omitempty"`
	Mentions        []User       `json:"mentions,omitempty"`
	Attachments     []Attachment `json:"attachments,omitempty"`
	Embeds          []Embed      `json:"embeds,omitempty"`
	Nonce           string       `json:"nonce,omitempty"`
	Pinned          bool         `json:"pinned,omitempty"`
}

// Invite is a channel invite.
type Invite struct {
	Code      string    `json:"code"`
	Channel   *Channel  `json:"channel,omitempty"`
	Inviter   *User     `json:"inviter,omitempty"`
	Uses      int       `json:"uses,omitempty"`
	MaxUses   int       `json:"max_uses,omitempty"`
	MaxAge    int       `json:"max_age,omitempty"`
	Temporary bool      `json:"temporary,omitempty"`
	CreatedAt time.Time `json:"created_at,omitempty"`
}

// GatewayInfo is the body returned by gateway discovery.
type GatewayInfo struct {
	URL string `json:"url"`
}

// Validator is implemented by results that can tell a real object from a body
// of the wrong shape.
type Validator interface {
	Validate() error
}

// ErrMissingField reports a decoded result lacking its identifying field.
var ErrMissingField = errors.New("missing required field")

func missing(field string) error {
	return fmt.Errorf("%w: %s", ErrMissingField, field)
}

// Validate reports whether c carries an id.
func (c Channel) Validate() error {
	if c.ID == 0 {
		return missing("id")
	}
	return nil
}

// Validate reports whether u carries an id.
func (u User) Validate() error {
	if u.ID == 0 {
		return missing("id")
	}
	return nil
}

// Validate reports whether m carries an id.
func (m Message) Validate() error {
	if m.ID == 0 {
		return missing("id")
	}
	return nil
}

// Validate reports whether i carries a code.
func (i Invite) Validate() error {
	if i.Code == "" {
		return missing("code")
	}
	return nil
}

func (g GatewayInfo) Validate() error {
	if g.URL == "" {
		return missing("url")
	}
	return nil
}

// Empty is the result of endpoints that reply with no content.
type Empty struct{}

// UnmarshalJSON accepts any well-formed JSON value.
func (e *Empty) UnmarshalJSON(data []byte) error {
	if !json.Valid(data) {
		return fmt.Errorf("invalid JSON for empty result")
	}
	return nil
}
