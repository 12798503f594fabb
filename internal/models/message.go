package models

import (
	"time"

	"github.com/jmoiron/sqlx/types"
)

// Message is one archived message, unique per (channel, ts). TS is kept as
// received; TSSort holds the same instant in microseconds for ordering.
type Message struct {
	ID           string             `db:"id" json:"id"`
	ChannelID    string             `db:"channel_id" json:"channel_id" validate:"required"`
	TS           string             `db:"ts" json:"ts" validate:"required"`
	TSSort       int64              `db:"ts_sort" json:"ts_sort"`
	Subtype      *string            `db:"subtype" json:"subtype,omitempty"`
	Text         string             `db:"text" json:"text"`
	UserID       *string            `db:"user_id" json:"user_id,omitempty"`
	FileID       *string            `db:"file_id" json:"file_id,omitempty"`
	AttachmentID *string            `db:"attachment_id" json:"attachment_id,omitempty"`
	Edit         types.NullJSONText `db:"edit" json:"edit"`
	Raw          types.JSONText     `db:"raw" json:"raw"`
	UpdatedAt    time.Time          `db:"updated_at" json:"updated_at"`
}

// MessageColumnCount is the number of columns bound per message row.
const MessageColumnCount = 12

// EditMarker returns the canonical form of the edit marker, "" when never edited.
func (m Message) EditMarker() string {
	if !m.Edit.Valid {
		return ""
	}
	return canonicalJSON(m.Edit.JSONText)
}

// MessageFilter narrows transcript queries.
type MessageFilter struct {
	ChannelID string
	Since     int64
	Until     int64
	Limit     int
	Offset    int
}

// Message subtypes that carry an embedded file.
const (
	SubtypeFileShare   = "file_share"
	SubtypeFileComment = "file_comment"
)
