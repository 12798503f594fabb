package models

import "github.com/jmoiron/sqlx/types"

// ChannelKind discriminates public channels from private groups.
type ChannelKind string

const (
	ChannelKindChannel ChannelKind = "channel"
	ChannelKindGroup   ChannelKind = "group"
)

// Conversation exposes the behaviour that differs between channel kinds.
type Conversation interface {
	Kind() ChannelKind
	// Public reports whether stars and reactions on the conversation are archived.
	Public() bool
	// ListTypes is the conversations.list type filter that returns this kind.
	ListTypes() string
}

func (k ChannelKind) Kind() ChannelKind { return k }

func (k ChannelKind) Public() bool { return k == ChannelKindChannel }

func (k ChannelKind) ListTypes() string {
	if k == ChannelKindGroup {
		return "private_channel"
	}
	return "public_channel"
}

// ChannelKindForListType maps a conversations.list type back to a kind.
func ChannelKindForListType(listType string) (ChannelKind, bool) {
	switch listType {
	case "public_channel":
		return ChannelKindChannel, true
	case "private_channel":
		return ChannelKindGroup, true
	default:
		return "", false
	}
}

// Channel is a channel or private group. Message count is not stored.
type Channel struct {
	ID        string             `db:"id" json:"id" validate:"required"`
	Kind      ChannelKind        `db:"kind" json:"kind" validate:"oneof=channel group"`
	Name      string             `db:"name" json:"name"`
	Created   int64              `db:"created" json:"created"`
	CreatorID *string            `db:"creator_id" json:"creator_id,omitempty"`
	Archived  bool               `db:"archived" json:"archived"`
	Topic     types.NullJSONText `db:"topic" json:"topic"`
	Purpose   types.NullJSONText `db:"purpose" json:"purpose"`
	Raw       types.JSONText     `db:"raw" json:"raw"`
}

// Conversation returns the kind-specific behaviour of the channel.
func (c Channel) Conversation() Conversation { return c.Kind }

// ChannelUser links a channel to one of its members.
type ChannelUser struct {
	ChannelID string `db:"channel_id" json:"channel_id" validate:"required"`
	UserID    string `db:"user_id" json:"user_id" validate:"required"`
}

// ChannelSummary is a channel with its computed message count.
type ChannelSummary struct {
	Channel
	MessageCount int `db:"message_count" json:"message_count"`
}
