package transform

import (
	"github.com/noah-isme/slack-archv/internal/models"
	"github.com/noah-isme/slack-archv/pkg/slack"
)

// Keys normalized into message columns or satellite rows.
var messageKeys = []string{"type", "ts", "subtype", "text", "user", "edited", "file", "comment", "reactions", "attachments"}

// Message normalizes a history record of channelID. Embedded file, comment,
// attachment and reactions are not resolved here. Attachments after the
// first stay in Raw.
func Message(raw slack.Record, channelID string) (models.Message, error) {
	ts := raw.String("ts")
	if ts == "" {
		return models.Message{}, malformed("message", channelID+"/?", "missing ts")
	}
	key, err := slack.SortKey(ts)
	if err != nil {
		return models.Message{}, malformed("message", channelID+"/"+ts, err.Error())
	}

	subtype := raw.String("subtype")
	userID := raw.String("user")
	if subtype == models.SubtypeFileComment {
		comment, ok := raw.Map("comment")
		if !ok {
			return models.Message{}, malformed("message", channelID+"/"+ts, "file_comment without comment")
		}
		userID = comment.String("user")
	}

	msg := models.Message{
		ChannelID: channelID,
		TS:        ts,
		TSSort:    key,
		Subtype:   optional(subtype),
		Text:      raw.String("text"),
		UserID:    optional(userID),
	}

	edited, ok := raw.Map("edited")
	if msg.Edit, err = toNullJSON(edited, ok); err != nil {
		return models.Message{}, err
	}

	rest := without(raw, messageKeys...)
	if attachments := raw.List("attachments"); len(attachments) > 1 {
		rest["attachments"] = attachments[1:]
	}
	if msg.Raw, err = toJSON(rest); err != nil {
		return models.Message{}, err
	}

	return msg, check("message", channelID+"/"+ts, msg)
}

// EditMarker returns the canonical edit marker of a raw record, "" when the
// record was never edited.
func EditMarker(raw slack.Record) (string, error) {
	edited, ok := raw.Map("edited")
	marker, err := toNullJSON(edited, ok)
	if err != nil || !marker.Valid {
		return "", err
	}
	return models.Message{Edit: marker}.EditMarker(), nil
}
