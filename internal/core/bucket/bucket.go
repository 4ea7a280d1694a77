// Package bucket derives the rate-limit bucket key for a request.
//
// A key is built from a request category and the resource the request targets.
// Payloads never take part in derivation, so two edits of different messages in
// the same channel share a bucket. The key doubles as request equality.
package bucket

import (
	"strings"

	"github.com/cespare/xxhash/v2"

	"github.com/courierbot/courier/internal/core"
)

// Category names a rate-limit group.
type Category string

const (
	GetChannel          Category = "get_chan"
	ModifyChannel       Category = "mod_chan"
	DeleteChannel       Category = "del_chan"
	ChannelMessages     Category = "msgs"
	GetMessage          Category = "get_msg"
	CreateMessage       Category = "msg"
	UploadFile          Category = "file"
	EditMessage         Category = "edit_msg"
	DeleteMessage       Category = "del_msg"
	BulkDelete          Category = "bulk_del"
	EditPermissions     Category = "perms"
	ChannelInvites      Category = "invites"
	CreateInvite        Category = "new_invite"
	DeletePermission    Category = "del_perm"
	TriggerTyping       Category = "typing"
	PinnedMessages      Category = "pins"
	AddPinnedMessage    Category = "pin"
	DeletePinnedMessage Category = "unpin"
	Gateway             Category = "gateway"
	CurrentUser         Category = "user"
)

// Key identifies a bucket. Keys are comparable and usable as map keys.
type Key struct {
	Category Category
	Resource core.Snowflake
}

// New derives a key from a category and target resource.
func New(category Category, resource core.Snowflake) Key {
	return Key{Category: category, Resource: resource}
}

// String renders the key as "category:resource".
func (k Key) String() string {
	var b strings.Builder
	b.Grow(len(k.Category) + 21)
	b.WriteString(string(k.Category))
	b.WriteByte(':')
	b.WriteString(k.Resource.String())
	return b.String()
}

// Hash returns a 64-bit digest of the key. Collisions are possible and only
// ever make callers share a shard or wait longer than needed.
func (k Key) Hash() uint64 {
	return xxhash.Sum64String(k.String())
}

// Parse reverses String.
func Parse(value string) (Key, error) {
	category, resource, ok := strings.Cut(strings.TrimSpace(value), ":")
	if !ok || category == "" {
		return Key{}, &ParseError{Value: value}
	}
	id, err := core.ParseSnowflake(resource)
	if err != nil {
		return Key{}, &ParseError{Value: value, Err: err}
	}
	return New(Category(category), id), nil
}

// ParseError reports a malformed rendered key.
type ParseError struct {
	Value string
	Err   error
}

func (e *ParseError) Error() string {
	if e.Err != nil {
		return "invalid bucket key " + `"` + e.Value + `": ` + e.Err.Error()
	}
	return "invalid bucket key " + `"` + e.Value + `"`
}

func (e *ParseError) Unwrap() error { return e.Err }
