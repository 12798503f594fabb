package models

import "github.com/jmoiron/sqlx/types"

// File is a shared file. URL fields are stored without the workspace host.
type File struct {
	ID                 string         `db:"id" json:"id" validate:"required"`
	UserID             *string        `db:"user_id" json:"user_id,omitempty"`
	Name               string         `db:"name" json:"name"`
	Title              string         `db:"title" json:"title"`
	Mimetype           string         `db:"mimetype" json:"mimetype"`
	Filetype           string         `db:"filetype" json:"filetype"`
	PrettyType         string         `db:"pretty_type" json:"pretty_type"`
	Size               int64          `db:"size" json:"size"`
	Created            int64          `db:"created" json:"created"`
	URLPrivate         string         `db:"url_private" json:"url_private"`
	URLPrivateDownload string         `db:"url_private_download" json:"url_private_download"`
	Permalink          string         `db:"permalink" json:"permalink"`
	PermalinkPublic    string         `db:"permalink_public" json:"permalink_public"`
	InitialCommentID   *string        `db:"initial_comment_id" json:"initial_comment_id,omitempty"`
	Raw                types.JSONText `db:"raw" json:"raw"`
}

// FileComment is a comment attached to a file.
type FileComment struct {
	ID      string         `db:"id" json:"id" validate:"required"`
	FileID  string         `db:"file_id" json:"file_id" validate:"required"`
	UserID  *string        `db:"user_id" json:"user_id,omitempty"`
	Comment string         `db:"comment" json:"comment"`
	Created int64          `db:"created" json:"created"`
	Raw     types.JSONText `db:"raw" json:"raw"`
}

// Attachment is a link unfurl owned by exactly one message.
type Attachment struct {
	ID          string         `db:"id" json:"id"`
	Fallback    string         `db:"fallback" json:"fallback"`
	Title       string         `db:"title" json:"title"`
	TitleLink   string         `db:"title_link" json:"title_link"`
	Text        string         `db:"text" json:"text"`
	FromURL     string         `db:"from_url" json:"from_url"`
	ServiceName string         `db:"service_name" json:"service_name"`
	ImageURL    string         `db:"image_url" json:"image_url"`
	Content     types.JSONText `db:"content" json:"content"`
}
