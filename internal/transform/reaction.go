package transform

import (
	"github.com/noah-isme/slack-archv/internal/models"
	"github.com/noah-isme/slack-archv/pkg/slack"
)

// ReactionSet is the complete set of reactions currently on one subject.
type ReactionSet struct {
	Subject models.Subject
	Rows    []models.Reaction
	// Incomplete names reactions whose count exceeds the users returned.
	Incomplete []string
}

// Reactions flattens the reactions list of a message, file or comment.
func Reactions(list []slack.Record, subject models.Subject) (ReactionSet, error) {
	set := ReactionSet{Subject: subject}
	seen := make(map[[2]string]struct{})

	for _, r := range list {
		name := r.String("name")
		if name == "" {
			return ReactionSet{}, malformed("reaction", subject.ID, "missing name")
		}
		users := r.Strings("users")
		for _, userID := range users {
			k := [2]string{name, userID}
			if _, dup := seen[k]; dup {
				continue
			}
			seen[k] = struct{}{}
			set.Rows = append(set.Rows, models.Reaction{
				ItemType:  subject.Kind,
				ItemID:    subject.ID,
				ChannelID: subject.ChannelID,
				UserID:    userID,
				Reaction:  name,
			})
		}
		if r.Int64("count") > int64(len(users)) {
			set.Incomplete = append(set.Incomplete, name)
		}
	}

	return set, nil
}
