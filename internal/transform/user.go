package transform

import (
	"strconv"
	"strings"

	"github.com/noah-isme/slack-archv/internal/models"
	"github.com/noah-isme/slack-archv/pkg/slack"
)

var (
	userKeys        = []string{"id", "name", "real_name", "tz", "deleted", "is_admin", "is_owner", "is_bot", "profile"}
	profileKeys     = []string{"email", "skype", "phone", "title", "display_name"}
	profileNameKeys = []string{"first_name", "last_name", "real_name", "real_name_normalized", "display_name_normalized"}
)

// User flattens a users.list member. Profile keys outside the allow-list stay
// in Raw under "profile".
func User(raw slack.Record) (models.User, error) {
	id := raw.String("id")
	if id == "" {
		return models.User{}, malformed("user", "", "missing id")
	}
	profile, ok := raw.Map("profile")
	if !ok {
		return models.User{}, malformed("user", id, "missing profile")
	}

	nameData := make(map[string]any, len(profileNameKeys))
	for _, key := range profileNameKeys {
		nameData[key] = profile[key]
	}
	avatarData := make(map[string]any)
	for key, val := range profile {
		if strings.HasPrefix(key, "image_") {
			avatarData[key] = val
		}
	}

	realName := raw.String("real_name")
	if realName == "" {
		realName = profile.String("real_name")
	}

	user := models.User{
		ID:          id,
		Name:        raw.String("name"),
		RealName:    realName,
		DisplayName: profile.String("display_name"),
		IsAdmin:     raw.Bool("is_admin"),
		IsOwner:     raw.Bool("is_owner"),
		IsBot:       raw.Bool("is_bot"),
		Avatar:      Avatar(profile),
		Timezone:    raw.String("tz"),
		Email:       profile.String("email"),
		Skype:       profile.String("skype"),
		Phone:       profile.String("phone"),
		Title:       profile.String("title"),
		Deleted:     raw.Bool("deleted"),
	}

	var err error
	if user.NameData, err = toJSON(nameData); err != nil {
		return models.User{}, err
	}
	if user.AvatarData, err = toJSON(avatarData); err != nil {
		return models.User{}, err
	}

	rest := without(raw, userKeys...)
	leftover := without(profile, append(profileKeys, profileNameKeys...)...)
	for key := range avatarData {
		delete(leftover, key)
	}
	if len(leftover) > 0 {
		rest["profile"] = leftover
	}
	if user.Raw, err = toJSON(rest); err != nil {
		return models.User{}, err
	}

	return user, check("user", id, user)
}

// Avatar picks image_original, otherwise the largest image_N variant.
func Avatar(profile slack.Record) string {
	if original := profile.String("image_original"); original != "" {
		return original
	}

	best, bestSize := "", -1
	for key := range profile {
		size, err := strconv.Atoi(strings.TrimPrefix(key, "image_"))
		if err != nil || !strings.HasPrefix(key, "image_") {
			continue
		}
		if url := profile.String(key); url != "" && size > bestSize {
			best, bestSize = url, size
		}
	}
	return best
}
