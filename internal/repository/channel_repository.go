package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"github.com/jmoiron/sqlx"

	"github.com/noah-isme/slack-archv/internal/models"

	appErrors "github.com/noah-isme/slack-archv/pkg/errors"
)

const channelColumns = "id, kind, name, created, creator_id, archived, topic, purpose, raw"

var (
	channelInsert = InsertStatement{
		Table:   "channels",
		Columns: []string{"id", "kind", "name", "created", "creator_id", "archived", "topic", "purpose", "raw"},
		Suffix:  "ON CONFLICT DO NOTHING",
	}
	channelUserInsert = InsertStatement{
		Table:   "channel_users",
		Columns: []string{"channel_id", "user_id"},
		Suffix:  "ON CONFLICT DO NOTHING",
	}
)

// ChannelRepository persists channels, groups and their membership.
type ChannelRepository struct {
	db        *sqlx.DB
	maxParams int
}

// NewChannelRepository builds repository.
func NewChannelRepository(db *sqlx.DB, maxParams int) *ChannelRepository {
	return &ChannelRepository{db: db, maxParams: maxParamsOr(maxParams)}
}

// DeleteAll removes every channel together with membership links.
func (r *ChannelRepository) DeleteAll(ctx context.Context, exec sqlx.ExtContext) (int64, error) {
	target := execOr(exec, r.db)
	if _, err := deleteAll(ctx, target, "channel_users"); err != nil {
		return 0, err
	}
	return deleteAll(ctx, target, "channels")
}

func (r *ChannelRepository) BulkInsert(ctx context.Context, exec sqlx.ExtContext, channels []models.Channel) (int64, error) {
	return BulkInsert(ctx, execOr(exec, r.db), channelInsert, channels, r.maxParams)
}

func (r *ChannelRepository) BulkInsertMembers(ctx context.Context, exec sqlx.ExtContext, members []models.ChannelUser) (int64, error) {
	return BulkInsert(ctx, execOr(exec, r.db), channelUserInsert, members, r.maxParams)
}

// List returns all channels ordered by name.
func (r *ChannelRepository) List(ctx context.Context) ([]models.Channel, error) {
	query := fmt.Sprintf("SELECT %s FROM channels ORDER BY name ASC", channelColumns)
	var channels []models.Channel
	if err := r.db.SelectContext(ctx, &channels, query); err != nil {
		return nil, fmt.Errorf("list channels: %w", err)
	}
	return channels, nil
}

// ListSummaries returns channels with their message counts computed on demand.
func (r *ChannelRepository) ListSummaries(ctx context.Context) ([]models.ChannelSummary, error) {
	const query = `SELECT c.id, c.kind, c.name, c.created, c.creator_id, c.archived, c.topic, c.purpose, c.raw,
	(SELECT COUNT(*) FROM messages m WHERE m.channel_id = c.id) AS message_count
FROM channels c ORDER BY c.name ASC`
	var summaries []models.ChannelSummary
	if err := r.db.SelectContext(ctx, &summaries, query); err != nil {
		return nil, fmt.Errorf("list channel summaries: %w", err)
	}
	return summaries, nil
}

// FindByID returns one channel.
func (r *ChannelRepository) FindByID(ctx context.Context, id string) (*models.Channel, error) {
	query := r.db.Rebind(fmt.Sprintf("SELECT %s FROM channels WHERE id = ?", channelColumns))
	var channel models.Channel
	if err := r.db.GetContext(ctx, &channel, query, id); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "channel not found")
		}
		return nil, fmt.Errorf("find channel: %w", err)
	}
	return &channel, nil
}

// FindByName returns the channel with the given name; a leading '#' is ignored.
func (r *ChannelRepository) FindByName(ctx context.Context, name string) (*models.Channel, error) {
	query := r.db.Rebind(fmt.Sprintf("SELECT %s FROM channels WHERE name = ? ORDER BY archived ASC LIMIT 1", channelColumns))
	var channel models.Channel
	if err := r.db.GetContext(ctx, &channel, query, strings.TrimPrefix(name, "#")); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "channel not found")
		}
		return nil, fmt.Errorf("find channel by name: %w", err)
	}
	return &channel, nil
}

// Members returns the user ids linked to a channel.
func (r *ChannelRepository) Members(ctx context.Context, channelID string) ([]string, error) {
	query := r.db.Rebind(`SELECT user_id FROM channel_users WHERE channel_id = ? ORDER BY user_id`)
	var ids []string
	if err := r.db.SelectContext(ctx, &ids, query, channelID); err != nil {
		return nil, fmt.Errorf("list channel members: %w", err)
	}
	return ids, nil
}
