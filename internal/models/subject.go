package models

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
)

// SubjectKind identifies what a reaction or star points at.
type SubjectKind string

const (
	SubjectChannel     SubjectKind = "channel"
	SubjectMessage     SubjectKind = "message"
	SubjectFile        SubjectKind = "file"
	SubjectFileComment SubjectKind = "file_comment"
)

// ErrPrivateSubject is returned for direct messages and private groups.
var ErrPrivateSubject = errors.New("private subject")

// ParseSubjectKind resolves a remote item type string.
func ParseSubjectKind(raw string) (SubjectKind, error) {
	switch SubjectKind(raw) {
	case SubjectChannel, SubjectMessage, SubjectFile, SubjectFileComment:
		return SubjectKind(raw), nil
	}
	switch raw {
	case "im", "mpim", "group":
		return "", fmt.Errorf("%w: %s", ErrPrivateSubject, raw)
	}
	return "", fmt.Errorf("unknown subject type %q", raw)
}

// Subject is the polymorphic target of a reaction. ChannelID is only set for
// messages, whose ts is unique per channel.
type Subject struct {
	Kind      SubjectKind
	ID        string
	ChannelID string
}

// Reaction is one user's emoji reaction on a subject.
type Reaction struct {
	ItemType  SubjectKind `db:"item_type" json:"item_type" validate:"required"`
	ItemID    string      `db:"item_id" json:"item_id" validate:"required"`
	ChannelID string      `db:"channel_id" json:"channel_id"`
	UserID    string      `db:"user_id" json:"user_id" validate:"required"`
	Reaction  string      `db:"reaction" json:"reaction" validate:"required"`
}

// Star is an item bookmarked by a user.
type Star struct {
	UserID    string      `db:"user_id" json:"user_id" validate:"required"`
	ItemType  SubjectKind `db:"item_type" json:"item_type" validate:"required"`
	ItemID    string      `db:"item_id" json:"item_id" validate:"required"`
	Permalink string      `db:"permalink" json:"permalink"`
}

// Emoji is a custom emoji; URL may be an "alias:" reference.
type Emoji struct {
	Name string `db:"name" json:"name" validate:"required"`
	URL  string `db:"url" json:"url"`
}

func canonicalJSON(raw []byte) string {
	if len(bytes.TrimSpace(raw)) == 0 {
		return ""
	}
	var v any
	dec := json.NewDecoder(bytes.NewReader(raw))
	dec.UseNumber()
	if err := dec.Decode(&v); err != nil {
		return string(raw)
	}
	out, err := json.Marshal(v)
	if err != nil {
		return string(raw)
	}
	return string(out)
}
