package transform

import (
	"github.com/noah-isme/slack-archv/internal/models"
	"github.com/noah-isme/slack-archv/pkg/slack"
)

var (
	fileKeys = []string{
		"id", "user", "name", "title", "mimetype", "filetype", "pretty_type", "size", "created",
		"url_private", "url_private_download", "permalink", "permalink_public",
		"initial_comment", "reactions",
	}
	commentKeys    = []string{"id", "user", "comment", "created", "timestamp", "reactions"}
	attachmentKeys = []string{"fallback", "title", "title_link", "text", "from_url", "service_name", "image_url"}
)

// File normalizes a file object. Link fields lose their workspace host.
func File(raw slack.Record) (models.File, error) {
	id := raw.String("id")
	if id == "" {
		return models.File{}, malformed("file", "", "missing id")
	}

	file := models.File{
		ID:                 id,
		UserID:             optional(raw.String("user")),
		Name:               raw.String("name"),
		Title:              raw.String("title"),
		Mimetype:           raw.String("mimetype"),
		Filetype:           raw.String("filetype"),
		PrettyType:         raw.String("pretty_type"),
		Size:               raw.Int64("size"),
		Created:            raw.Int64("created"),
		URLPrivate:         StripDomain(raw.String("url_private")),
		URLPrivateDownload: StripDomain(raw.String("url_private_download")),
		Permalink:          StripDomain(raw.String("permalink")),
		PermalinkPublic:    StripDomain(raw.String("permalink_public")),
	}
	if initial, ok := raw.Map("initial_comment"); ok {
		file.InitialCommentID = optional(initial.String("id"))
	}

	var err error
	if file.Raw, err = toJSON(without(raw, fileKeys...)); err != nil {
		return models.File{}, err
	}

	return file, check("file", id, file)
}

// FileComment normalizes a comment on fileID.
func FileComment(raw slack.Record, fileID string) (models.FileComment, error) {
	id := raw.String("id")
	if id == "" {
		return models.FileComment{}, malformed("file_comment", "", "missing id")
	}

	created := raw.Int64("created")
	if created == 0 {
		created = raw.Int64("timestamp")
	}

	comment := models.FileComment{
		ID:      id,
		FileID:  fileID,
		UserID:  optional(raw.String("user")),
		Comment: raw.String("comment"),
		Created: created,
	}

	var err error
	if comment.Raw, err = toJSON(without(raw, commentKeys...)); err != nil {
		return models.FileComment{}, err
	}

	return comment, check("file_comment", id, comment)
}

// Attachment normalizes an unfurl. The id is assigned when it is persisted.
func Attachment(raw slack.Record) (models.Attachment, error) {
	att := models.Attachment{
		Fallback:    raw.String("fallback"),
		Title:       raw.String("title"),
		TitleLink:   raw.String("title_link"),
		Text:        raw.String("text"),
		FromURL:     raw.String("from_url"),
		ServiceName: raw.String("service_name"),
		ImageURL:    raw.String("image_url"),
	}

	var err error
	if att.Content, err = toJSON(without(raw, attachmentKeys...)); err != nil {
		return models.Attachment{}, err
	}
	return att, nil
}
