package repository

import (
	"context"
	"fmt"

	"github.com/jmoiron/sqlx"
)

// schemaStatements create every table idempotently. The DDL is shared by
// SQLite and PostgreSQL. Users and channels are rebuilt on every run, so no
// foreign keys point at them.
var schemaStatements = []string{
	`CREATE TABLE IF NOT EXISTS information (
	key TEXT PRIMARY KEY,
	value TEXT
)`,
	`CREATE TABLE IF NOT EXISTS users (
	id TEXT PRIMARY KEY,
	name TEXT,
	realname TEXT,
	display_name TEXT,
	name_data TEXT,
	is_admin BOOLEAN NOT NULL DEFAULT FALSE,
	is_owner BOOLEAN NOT NULL DEFAULT FALSE,
	is_bot BOOLEAN NOT NULL DEFAULT FALSE,
	avatar TEXT,
	avatar_data TEXT,
	timezone TEXT,
	email TEXT,
	skype TEXT,
	phone TEXT,
	title TEXT,
	deleted BOOLEAN NOT NULL DEFAULT FALSE,
	raw TEXT
)`,
	`CREATE TABLE IF NOT EXISTS channels (
	id TEXT PRIMARY KEY,
	kind TEXT NOT NULL,
	name TEXT,
	created BIGINT,
	creator_id TEXT,
	archived BOOLEAN NOT NULL DEFAULT FALSE,
	topic TEXT,
	purpose TEXT,
	raw TEXT
)`,
	`CREATE TABLE IF NOT EXISTS channel_users (
	channel_id TEXT NOT NULL,
	user_id TEXT NOT NULL,
	UNIQUE (channel_id, user_id)
)`,
	`CREATE TABLE IF NOT EXISTS files (
	id TEXT PRIMARY KEY,
	user_id TEXT,
	name TEXT,
	title TEXT,
	mimetype TEXT,
	filetype TEXT,
	pretty_type TEXT,
	size BIGINT,
	created BIGINT,
	url_private TEXT,
	url_private_download TEXT,
	permalink TEXT,
	permalink_public TEXT,
	initial_comment_id TEXT,
	raw TEXT
)`,
	`CREATE TABLE IF NOT EXISTS file_comments (
	id TEXT PRIMARY KEY,
	file_id TEXT NOT NULL REFERENCES files (id),
	user_id TEXT,
	comment TEXT,
	created BIGINT,
	raw TEXT
)`,
	`CREATE TABLE IF NOT EXISTS attachments (
	id TEXT PRIMARY KEY,
	fallback TEXT,
	title TEXT,
	title_link TEXT,
	text TEXT,
	from_url TEXT,
	service_name TEXT,
	image_url TEXT,
	content TEXT
)`,
	`CREATE TABLE IF NOT EXISTS messages (
	id TEXT PRIMARY KEY,
	channel_id TEXT NOT NULL,
	ts TEXT NOT NULL,
	ts_sort BIGINT NOT NULL,
	subtype TEXT,
	text TEXT,
	user_id TEXT,
	file_id TEXT REFERENCES files (id),
	attachment_id TEXT REFERENCES attachments (id),
	edit TEXT,
	raw TEXT,
	updated_at TIMESTAMP NOT NULL,
	UNIQUE (channel_id, ts)
)`,
	`CREATE INDEX IF NOT EXISTS idx_messages_channel_ts_sort ON messages (channel_id, ts_sort)`,
	`CREATE TABLE IF NOT EXISTS reactions (
	item_type TEXT NOT NULL,
	item_id TEXT NOT NULL,
	channel_id TEXT NOT NULL DEFAULT '',
	user_id TEXT NOT NULL,
	reaction TEXT NOT NULL,
	UNIQUE (item_type, item_id, channel_id, user_id, reaction)
)`,
	`CREATE TABLE IF NOT EXISTS stars (
	user_id TEXT NOT NULL,
	item_type TEXT NOT NULL,
	item_id TEXT NOT NULL,
	permalink TEXT,
	UNIQUE (user_id, item_type, item_id)
)`,
	`CREATE TABLE IF NOT EXISTS emoji (
	name TEXT PRIMARY KEY,
	url TEXT
)`,
}

// Schema creates the archive tables.
type Schema struct {
	db *sqlx.DB
}

// NewSchema builds Schema.
func NewSchema(db *sqlx.DB) *Schema {
	return &Schema{db: db}
}

// Ensure creates missing tables and indexes in one transaction.
func (s *Schema) Ensure(ctx context.Context) (err error) {
	tx, err := s.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin schema tx: %w", err)
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback()
		}
	}()

	for _, stmt := range schemaStatements {
		if _, err = tx.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("ensure schema: %w", err)
		}
	}

	if err = tx.Commit(); err != nil {
		return fmt.Errorf("commit schema tx: %w", err)
	}
	return nil
}
