package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/jmoiron/sqlx"

	"github.com/noah-isme/slack-archv/internal/models"
)

const messageColumns = "id, channel_id, ts, ts_sort, subtype, text, user_id, file_id, attachment_id, edit, raw, updated_at"

// messageInsert has no conflict clause: a duplicate (channel_id, ts) is an error.
var messageInsert = InsertStatement{
	Table: "messages",
	Columns: []string{
		"id", "channel_id", "ts", "ts_sort", "subtype", "text", "user_id",
		"file_id", "attachment_id", "edit", "raw", "updated_at",
	},
}

// MessageRepository persists archived messages.
type MessageRepository struct {
	db        *sqlx.DB
	maxParams int
}

// NewMessageRepository builds repository.
func NewMessageRepository(db *sqlx.DB, maxParams int) *MessageRepository {
	return &MessageRepository{db: db, maxParams: maxParamsOr(maxParams)}
}

// LatestTimestamp returns the newest stored ts of a channel.
func (r *MessageRepository) LatestTimestamp(ctx context.Context, channelID string) (string, bool, error) {
	query := r.db.Rebind(`SELECT ts FROM messages WHERE channel_id = ? ORDER BY ts_sort DESC LIMIT 1`)
	var ts string
	if err := r.db.GetContext(ctx, &ts, query, channelID); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return "", false, nil
		}
		return "", false, fmt.Errorf("latest message timestamp: %w", err)
	}
	return ts, true, nil
}

// FindByTimestamps returns stored messages of a channel keyed by ts.
func (r *MessageRepository) FindByTimestamps(ctx context.Context, channelID string, timestamps []string) (map[string]models.Message, error) {
	found := make(map[string]models.Message, len(timestamps))
	if len(timestamps) == 0 {
		return found, nil
	}

	base := fmt.Sprintf("SELECT %s FROM messages WHERE channel_id = ? AND ts IN (?)", messageColumns)
	for _, chunk := range Chunk(timestamps, BatchSize(1, r.maxParams-1)) {
		query, args, err := sqlx.In(base, channelID, chunk)
		if err != nil {
			return nil, fmt.Errorf("build message lookup: %w", err)
		}
		var rows []models.Message
		if err := r.db.SelectContext(ctx, &rows, r.db.Rebind(query), args...); err != nil {
			return nil, fmt.Errorf("find messages by ts: %w", err)
		}
		for _, row := range rows {
			found[row.TS] = row
		}
	}
	return found, nil
}

// BulkInsert inserts new messages. A duplicate (channel_id, ts) fails the batch.
func (r *MessageRepository) BulkInsert(ctx context.Context, exec sqlx.ExtContext, messages []models.Message) (int64, error) {
	return BulkInsert(ctx, execOr(exec, r.db), messageInsert, messages, r.maxParams)
}

// Update overwrites a stored message by id; channel and ts never change.
func (r *MessageRepository) Update(ctx context.Context, exec sqlx.ExtContext, msg models.Message) error {
	const query = `UPDATE messages SET subtype = :subtype, text = :text, user_id = :user_id, file_id = :file_id,
	attachment_id = :attachment_id, edit = :edit, raw = :raw, updated_at = :updated_at
WHERE id = :id`
	res, err := sqlx.NamedExecContext(ctx, execOr(exec, r.db), query, msg)
	if err != nil {
		return fmt.Errorf("update message: %w", err)
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return fmt.Errorf("update message %s: %w", msg.ID, sql.ErrNoRows)
	}
	return nil
}

// ListByChannel returns a channel transcript in chronological order.
func (r *MessageRepository) ListByChannel(ctx context.Context, filter models.MessageFilter) ([]models.Message, error) {
	query := fmt.Sprintf("SELECT %s FROM messages WHERE channel_id = ?", messageColumns)
	args := []interface{}{filter.ChannelID}
	if filter.Since > 0 {
		query += " AND ts_sort >= ?"
		args = append(args, filter.Since)
	}
	if filter.Until > 0 {
		query += " AND ts_sort < ?"
		args = append(args, filter.Until)
	}
	query += " ORDER BY ts_sort ASC"
	if filter.Limit > 0 {
		query += " LIMIT ? OFFSET ?"
		args = append(args, filter.Limit, filter.Offset)
	}

	var messages []models.Message
	if err := r.db.SelectContext(ctx, &messages, r.db.Rebind(query), args...); err != nil {
		return nil, fmt.Errorf("list messages: %w", err)
	}
	return messages, nil
}

// CountByChannel returns the number of stored messages of a channel.
func (r *MessageRepository) CountByChannel(ctx context.Context, channelID string) (int, error) {
	var total int
	if err := r.db.GetContext(ctx, &total, r.db.Rebind(`SELECT COUNT(*) FROM messages WHERE channel_id = ?`), channelID); err != nil {
		return 0, fmt.Errorf("count messages: %w", err)
	}
	return total, nil
}
