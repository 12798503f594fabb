package transform

import (
	"sort"

	"github.com/noah-isme/slack-archv/internal/models"
	"github.com/noah-isme/slack-archv/pkg/slack"
)

// Star normalizes a stars.list item of userID. Private items fail with
// models.ErrPrivateSubject.
func Star(raw slack.Record, userID string) (models.Star, error) {
	kind, err := models.ParseSubjectKind(raw.String("type"))
	if err != nil {
		return models.Star{}, err
	}

	star := models.Star{UserID: userID, ItemType: kind}

	switch kind {
	case models.SubjectChannel:
		star.ItemID = raw.String("channel")
	case models.SubjectMessage:
		msg, ok := raw.Map("message")
		if !ok {
			return models.Star{}, malformed("star", userID, "message star without message")
		}
		channel := raw.String("channel")
		if channel == "" || msg.String("ts") == "" {
			return models.Star{}, malformed("star", userID, "message star without channel or ts")
		}
		star.ItemID = channel + "/" + msg.String("ts")
		star.Permalink = msg.String("permalink")
	case models.SubjectFile:
		file, ok := raw.Map("file")
		if !ok {
			return models.Star{}, malformed("star", userID, "file star without file")
		}
		star.ItemID = file.String("id")
		star.Permalink = file.String("permalink")
	case models.SubjectFileComment:
		comment, ok := raw.Map("comment")
		if !ok {
			return models.Star{}, malformed("star", userID, "file_comment star without comment")
		}
		star.ItemID = comment.String("id")
	}

	return star, check("star", userID, star)
}

// Emoji converts the emoji.list map into rows ordered by name.
func Emoji(list map[string]string) []models.Emoji {
	out := make([]models.Emoji, 0, len(list))
	for name, url := range list {
		if name == "" {
			continue
		}
		out = append(out, models.Emoji{Name: name, URL: url})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out
}
