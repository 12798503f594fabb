package transform

import (
	"github.com/noah-isme/slack-archv/internal/models"
	"github.com/noah-isme/slack-archv/pkg/slack"
)

var channelKeys = []string{"id", "name", "created", "creator", "is_archived", "topic", "purpose", "members"}

// Channel normalizes a conversations.list entry. Private conversations become groups.
func Channel(raw slack.Record) (models.Channel, error) {
	id := raw.String("id")
	if id == "" {
		return models.Channel{}, malformed("channel", "", "missing id")
	}

	kind := models.ChannelKindChannel
	if raw.Bool("is_private") || raw.Bool("is_group") {
		kind = models.ChannelKindGroup
	}

	channel := models.Channel{
		ID:        id,
		Kind:      kind,
		Name:      raw.String("name"),
		Created:   raw.Int64("created"),
		CreatorID: optional(raw.String("creator")),
		Archived:  raw.Bool("is_archived"),
	}

	var err error
	topic, ok := raw.Map("topic")
	if channel.Topic, err = toNullJSON(topic, ok); err != nil {
		return models.Channel{}, err
	}
	purpose, ok := raw.Map("purpose")
	if channel.Purpose, err = toNullJSON(purpose, ok); err != nil {
		return models.Channel{}, err
	}
	if channel.Raw, err = toJSON(without(raw, channelKeys...)); err != nil {
		return models.Channel{}, err
	}

	return channel, check("channel", id, channel)
}

// ChannelMembers builds membership rows, dropping duplicates and blanks.
func ChannelMembers(channelID string, userIDs []string) []models.ChannelUser {
	seen := make(map[string]struct{}, len(userIDs))
	out := make([]models.ChannelUser, 0, len(userIDs))
	for _, userID := range userIDs {
		if userID == "" {
			continue
		}
		if _, dup := seen[userID]; dup {
			continue
		}
		seen[userID] = struct{}{}
		out = append(out, models.ChannelUser{ChannelID: channelID, UserID: userID})
	}
	return out
}
