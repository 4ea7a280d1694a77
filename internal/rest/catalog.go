package rest

import (
	"net/http"
	"net/url"
	"strconv"

	"github.com/courierbot/courier/internal/core"
	"github.com/courierbot/courier/internal/core/bucket"
)

func channelPath(id core.Snowflake, parts ...string) string {
	path := "/channels/" + id.String()
	for _, part := range parts {
		path += "/" + part
	}
	return path
}

// GetChannel fetches a channel by ID.
type GetChannel struct {
	ChannelID core.Snowflake
}

func (r GetChannel) Bucket() bucket.Key { return bucket.New(bucket.GetChannel, r.ChannelID) }
func (r GetChannel) route() route       { return get(channelPath(r.ChannelID)) }
func (GetChannel) result(*core.Channel) {}

// ModifyChannelParams holds the mutable channel fields. Zero values are omitted.
type ModifyChannelParams struct {
	Name      string `json:"name,omitempty"`
	Position  int    `json:"position,omitempty"`
	Topic     string `json:"topic,omitempty"`
	NSFW      *bool  `json:"nsfw,omitempty"`
	Bitrate   int    `json:"bitrate,omitempty"`
	UserLimit int    `json:"user_limit,omitempty"`
}

// ModifyChannel updates a channel's settings.
type ModifyChannel struct {
	ChannelID core.Snowflake
	Params    ModifyChannelParams
}

func (r ModifyChannel) Bucket() bucket.Key { return bucket.New(bucket.ModifyChannel, r.ChannelID) }
func (r ModifyChannel) route() route {
	return withJSON(http.MethodPatch, channelPath(r.ChannelID), r.Params)
}
func (ModifyChannel) result(*core.Channel) {}

// DeleteChannel deletes a channel and returns it.
type DeleteChannel struct {
	ChannelID core.Snowflake
}

func (r DeleteChannel) Bucket() bucket.Key { return bucket.New(bucket.DeleteChannel, r.ChannelID) }
func (r DeleteChannel) route() route {
	return route{method: http.MethodDelete, path: channelPath(r.ChannelID)}
}
func (DeleteChannel) result(*core.Channel) {}

// MessageQuery pages through channel history. At most one of Around, Before
// and After should be set.
type MessageQuery struct {
	Around core.Snowflake
	Before core.Snowflake
	After  core.Snowflake
	Limit  int
}

func (q MessageQuery) values() url.Values {
	values := url.Values{}
	switch {
	case q.Around != 0:
		values.Set("around", q.Around.String())
	case q.Before != 0:
		values.Set("before", q.Before.String())
	case q.After != 0:
		values.Set("after", q.After.String())
	}
	if q.Limit > 0 {
		values.Set("limit", strconv.Itoa(q.Limit))
	}
	return values
}

// GetChannelMessages lists messages in a channel.
type GetChannelMessages struct {
	ChannelID core.Snowflake
	Query     MessageQuery
}

func (r GetChannelMessages) Bucket() bucket.Key {
	return bucket.New(bucket.ChannelMessages, r.ChannelID)
}
func (r GetChannelMessages) route() route {
	rt := get(channelPath(r.ChannelID, "messages"))
	rt.query = r.Query.values()
	return rt
}
func (GetChannelMessages) result(*[]core.Message) {}

// GetChannelMessage fetches a single message.
type GetChannelMessage struct {
	ChannelID core.Snowflake
	MessageID core.Snowflake
}

func (r GetChannelMessage) Bucket() bucket.Key { return bucket.New(bucket.GetMessage, r.ChannelID) }
func (r GetChannelMessage) route() route {
	return get(channelPath(r.ChannelID, "messages", r.MessageID.String()))
}
func (GetChannelMessage) result(*core.Message) {}

// CreateMessage posts a message to a channel.
type CreateMessage struct {
	ChannelID core.Snowflake
	Content   string
	TTS       bool
	Nonce     string
	Embed     *core.Embed
}

type messageBody struct {
	Content string      `json:"content,omitempty"`
	TTS     bool        `json:"tts,omitempty"`
	Nonce   string      `json:"nonce,omitempty"`
	Embed   *core.Embed `json:"embed,omitempty"`
}

func (r CreateMessage) Bucket() bucket.Key { return bucket.New(bucket.CreateMessage, r.ChannelID) }
func (r CreateMessage) route() route {
	return withJSON(http.MethodPost, channelPath(r.ChannelID, "messages"), messageBody{
		Content: r.Content,
		TTS:     r.TTS,
		Nonce:   r.Nonce,
		Embed:   r.Embed,
	})
}
func (CreateMessage) result(*core.Message) {}

// UploadFile posts a message with a file attachment using multipart encoding.
type UploadFile struct {
	ChannelID core.Snowflake
	Filename  string
	Content   []byte
	Message   string
}

func (r UploadFile) Bucket() bucket.Key { return bucket.New(bucket.UploadFile, r.ChannelID) }
func (r UploadFile) route() route {
	var fields any
	if r.Message != "" {
		fields = messageBody{Content: r.Message}
	}
	return route{
		method: http.MethodPost,
		path:   channelPath(r.ChannelID, "messages"),
		body:   filePayload{filename: r.Filename, content: r.Content, fields: fields},
	}
}
func (UploadFile) result(*core.Message) {}

// EditMessage replaces the content of a message.
type EditMessage struct {
	ChannelID core.Snowflake
	MessageID core.Snowflake
	Content   string
	Embed     *core.Embed
}

func (r EditMessage) Bucket() bucket.Key { return bucket.New(bucket.EditMessage, r.ChannelID) }
func (r EditMessage) route() route {
	return withJSON(http.MethodPatch, channelPath(r.ChannelID, "messages", r.MessageID.String()), messageBody{
		Content: r.Content,
		Embed:   r.Embed,
	})
}
func (EditMessage) result(*core.Message) {}

// DeleteMessage deletes a message.
type DeleteMessage struct {
	ChannelID core.Snowflake
	MessageID core.Snowflake
}

func (r DeleteMessage) Bucket() bucket.Key { return bucket.New(bucket.DeleteMessage, r.ChannelID) }
func (r DeleteMessage) route() route {
	return route{method: http.MethodDelete, path: channelPath(r.ChannelID, "messages", r.MessageID.String())}
}
func (DeleteMessage) result(*core.Empty) {}

// BulkDeleteMessages deletes several messages in one call.
type BulkDeleteMessages struct {
	ChannelID  core.Snowflake
	MessageIDs []core.Snowflake
}

func (r BulkDeleteMessages) Bucket() bucket.Key { return bucket.New(bucket.BulkDelete, r.ChannelID) }
func (r BulkDeleteMessages) route() route {
	return withJSON(http.MethodPost, channelPath(r.ChannelID, "messages", "bulk-delete"), struct {
		Messages []core.Snowflake `json:"messages"`
	}{Messages: r.MessageIDs})
}
func (BulkDeleteMessages) result(*core.Empty) {}

// EditChannelPermissions sets a permission overwrite on a channel.
type EditChannelPermissions struct {
	ChannelID   core.Snowflake
	OverwriteID core.Snowflake
	Type        string
	Allow       int64
	Deny        int64
}

func (r EditChannelPermissions) Bucket() bucket.Key {
	return bucket.New(bucket.EditPermissions, r.ChannelID)
}
func (r EditChannelPermissions) route() route {
	return withJSON(http.MethodPut, channelPath(r.ChannelID, "permissions", r.OverwriteID.String()), struct {
		Allow int64  `json:"allow"`
		Deny  int64  `json:"deny"`
		Type  string `json:"type"`
	}{Allow: r.Allow, Deny: r.Deny, Type: r.Type})
}
func (EditChannelPermissions) result(*core.Empty) {}

// GetChannelInvites lists a channel's invites.
type GetChannelInvites struct {
	ChannelID core.Snowflake
}

func (r GetChannelInvites) Bucket() bucket.Key {
	return bucket.New(bucket.ChannelInvites, r.ChannelID)
}
func (r GetChannelInvites) route() route        { return get(channelPath(r.ChannelID, "invites")) }
func (GetChannelInvites) result(*[]core.Invite) {}

// CreateChannelInvite creates an invite for a channel.
type CreateChannelInvite struct {
	ChannelID core.Snowflake
	MaxAge    int
	MaxUses   int
	Temporary bool
	Unique    bool
}

func (r CreateChannelInvite) Bucket() bucket.Key {
	return bucket.New(bucket.CreateInvite, r.ChannelID)
}
func (r CreateChannelInvite) route() route {
	return withJSON(http.MethodPost, channelPath(r.ChannelID, "invites"), struct {
		MaxAge    int  `json:"max_age"`
		MaxUses   int  `json:"max_uses"`
		Temporary bool `json:"temporary"`
		Unique    bool `json:"unique"`
	}{MaxAge: r.MaxAge, MaxUses: r.MaxUses, Temporary: r.Temporary, Unique: r.Unique})
}
func (CreateChannelInvite) result(*core.Invite) {}

// DeleteChannelPermission removes a permission overwrite.
type DeleteChannelPermission struct {
	ChannelID   core.Snowflake
	OverwriteID core.Snowflake
}

func (r DeleteChannelPermission) Bucket() bucket.Key {
	return bucket.New(bucket.DeletePermission, r.ChannelID)
}
func (r DeleteChannelPermission) route() route {
	return route{method: http.MethodDelete, path: channelPath(r.ChannelID, "permissions", r.OverwriteID.String())}
}
func (DeleteChannelPermission) result(*core.Empty) {}

// TriggerTypingIndicator shows the bot as typing in a channel.
type TriggerTypingIndicator struct {
	ChannelID core.Snowflake
}

func (r TriggerTypingIndicator) Bucket() bucket.Key {
	return bucket.New(bucket.TriggerTyping, r.ChannelID)
}
func (r TriggerTypingIndicator) route() route {
	return route{method: http.MethodPost, path: channelPath(r.ChannelID, "typing")}
}
func (TriggerTypingIndicator) result(*core.Empty) {}

// GetPinnedMessages lists pinned messages in a channel.
type GetPinnedMessages struct {
	ChannelID core.Snowflake
}

func (r GetPinnedMessages) Bucket() bucket.Key {
	return bucket.New(bucket.PinnedMessages, r.ChannelID)
}
func (r GetPinnedMessages) route() route         { return get(channelPath(r.ChannelID, "pins")) }
func (GetPinnedMessages) result(*[]core.Message) {}

// AddPinnedMessage pins a message.
type AddPinnedMessage struct {
	ChannelID core.Snowflake
	MessageID core.Snowflake
}

func (r AddPinnedMessage) Bucket() bucket.Key {
	return bucket.New(bucket.AddPinnedMessage, r.ChannelID)
}
func (r AddPinnedMessage) route() route {
	return route{method: http.MethodPut, path: channelPath(r.ChannelID, "pins", r.MessageID.String())}
}
func (AddPinnedMessage) result(*core.Empty) {}

// DeletePinnedMessage unpins a message.
type DeletePinnedMessage struct {
	ChannelID core.Snowflake
	MessageID core.Snowflake
}

func (r DeletePinnedMessage) Bucket() bucket.Key {
	return bucket.New(bucket.DeletePinnedMessage, r.ChannelID)
}
func (r DeletePinnedMessage) route() route {
	return route{method: http.MethodDelete, path: channelPath(r.ChannelID, "pins", r.MessageID.String())}
}
func (DeletePinnedMessage) result(*core.Empty) {}

// GetGateway discovers the event-stream URL.
type GetGateway struct{}

func (GetGateway) Bucket() bucket.Key { return bucket.New(bucket.Gateway, 0) }
func (GetGateway) route() route {
	rt := get("/gateway")
	rt.unlimited = true
	return rt
}
func (GetGateway) result(*core.GatewayInfo) {}

// GetCurrentUser fetches the bot's own account.
type GetCurrentUser struct{}

func (GetCurrentUser) Bucket() bucket.Key { return bucket.New(bucket.CurrentUser, 0) }
func (GetCurrentUser) route() route       { return get("/users/@me") }
func (GetCurrentUser) result(*core.User)  {}
