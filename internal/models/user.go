package models

import "github.com/jmoiron/sqlx/types"

// User is a workspace member flattened from the users.list payload.
type User struct {
	ID          string         `db:"id" json:"id" validate:"required"`
	Name        string         `db:"name" json:"name"`
	RealName    string         `db:"realname" json:"realname"`
	DisplayName string         `db:"display_name" json:"display_name"`
	NameData    types.JSONText `db:"name_data" json:"name_data"`
	IsAdmin     bool           `db:"is_admin" json:"is_admin"`
	IsOwner     bool           `db:"is_owner" json:"is_owner"`
	IsBot       bool           `db:"is_bot" json:"is_bot"`
	Avatar      string         `db:"avatar" json:"avatar"`
	AvatarData  types.JSONText `db:"avatar_data" json:"avatar_data"`
	Timezone    string         `db:"timezone" json:"timezone"`
	Email       string         `db:"email" json:"email"`
	Skype       string         `db:"skype" json:"skype"`
	Phone       string         `db:"phone" json:"phone"`
	Title       string         `db:"title" json:"title"`
	Deleted     bool           `db:"deleted" json:"deleted"`
	Raw         types.JSONText `db:"raw" json:"raw"`
}

// UserFilter captures filtering criteria for listing users.
type UserFilter struct {
	IncludeDeleted bool
	IncludeBots    bool
	Page           int
	PageSize       int
}

// Pagination contains pagination metadata returned in list responses.
type Pagination struct {
	Page       int `json:"page"`
	PageSize   int `json:"page_size"`
	TotalCount int `json:"total_count"`
}
