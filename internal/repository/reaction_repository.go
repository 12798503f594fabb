package repository

import (
	"context"
	"fmt"

	"github.com/jmoiron/sqlx"

	"github.com/noah-isme/slack-archv/internal/models"
)

var (
	reactionInsert = InsertStatement{
		Table:   "reactions",
		Columns: []string{"item_type", "item_id", "channel_id", "user_id", "reaction"},
		Suffix:  "ON CONFLICT DO NOTHING",
	}
	starInsert = InsertStatement{
		Table:   "stars",
		Columns: []string{"user_id", "item_type", "item_id", "permalink"},
		Suffix:  "ON CONFLICT DO NOTHING",
	}
	emojiInsert = InsertStatement{
		Table:   "emoji",
		Columns: []string{"name", "url"},
		Suffix:  "ON CONFLICT DO NOTHING",
	}
)

// ReactionRepository persists reactions on messages, files and comments.
type ReactionRepository struct {
	db        *sqlx.DB
	maxParams int
}

// NewReactionRepository builds repository.
func NewReactionRepository(db *sqlx.DB, maxParams int) *ReactionRepository {
	return &ReactionRepository{db: db, maxParams: maxParamsOr(maxParams)}
}

// Replace swaps the reactions of one subject for rows.
func (r *ReactionRepository) Replace(ctx context.Context, exec sqlx.ExtContext, subject models.Subject, rows []models.Reaction) (int64, error) {
	target := execOr(exec, r.db)
	query := target.Rebind(`DELETE FROM reactions WHERE item_type = ? AND item_id = ? AND channel_id = ?`)
	if _, err := target.ExecContext(ctx, query, subject.Kind, subject.ID, subject.ChannelID); err != nil {
		return 0, fmt.Errorf("delete reactions: %w", err)
	}
	return BulkInsert(ctx, target, reactionInsert, rows, r.maxParams)
}

// ListBySubject returns the stored reactions of a subject.
func (r *ReactionRepository) ListBySubject(ctx context.Context, subject models.Subject) ([]models.Reaction, error) {
	query := r.db.Rebind(`SELECT item_type, item_id, channel_id, user_id, reaction FROM reactions
WHERE item_type = ? AND item_id = ? AND channel_id = ? ORDER BY reaction, user_id`)
	var rows []models.Reaction
	if err := r.db.SelectContext(ctx, &rows, query, subject.Kind, subject.ID, subject.ChannelID); err != nil {
		return nil, fmt.Errorf("list reactions: %w", err)
	}
	return rows, nil
}

// StarRepository persists users' starred items.
type StarRepository struct {
	db        *sqlx.DB
	maxParams int
}

// NewStarRepository builds repository.
func NewStarRepository(db *sqlx.DB, maxParams int) *StarRepository {
	return &StarRepository{db: db, maxParams: maxParamsOr(maxParams)}
}

// ReplaceForUser swaps a user's stars and returns how many were removed and stored.
func (r *StarRepository) ReplaceForUser(ctx context.Context, exec sqlx.ExtContext, userID string, stars []models.Star) (removed, stored int64, err error) {
	target := execOr(exec, r.db)
	res, err := target.ExecContext(ctx, target.Rebind(`DELETE FROM stars WHERE user_id = ?`), userID)
	if err != nil {
		return 0, 0, fmt.Errorf("delete stars: %w", err)
	}
	removed, _ = res.RowsAffected()
	stored, err = BulkInsert(ctx, target, starInsert, stars, r.maxParams)
	return removed, stored, err
}

// EmojiRepository persists custom emoji.
type EmojiRepository struct {
	db        *sqlx.DB
	maxParams int
}

// NewEmojiRepository builds repository.
func NewEmojiRepository(db *sqlx.DB, maxParams int) *EmojiRepository {
	return &EmojiRepository{db: db, maxParams: maxParamsOr(maxParams)}
}

func (r *EmojiRepository) DeleteAll(ctx context.Context, exec sqlx.ExtContext) (int64, error) {
	return deleteAll(ctx, execOr(exec, r.db), "emoji")
}

func (r *EmojiRepository) BulkInsert(ctx context.Context, exec sqlx.ExtContext, emoji []models.Emoji) (int64, error) {
	return BulkInsert(ctx, execOr(exec, r.db), emojiInsert, emoji, r.maxParams)
}

// Count returns the number of stored emoji.
func (r *EmojiRepository) Count(ctx context.Context) (int, error) {
	var total int
	if err := r.db.GetContext(ctx, &total, `SELECT COUNT(*) FROM emoji`); err != nil {
		return 0, fmt.Errorf("count emoji: %w", err)
	}
	return total, nil
}
