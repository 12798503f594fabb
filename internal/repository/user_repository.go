package repository

import (
	"context"
	"fmt"

	"github.com/jmoiron/sqlx"

	"github.com/noah-isme/slack-archv/internal/models"
)

const userColumns = "id, name, realname, display_name, name_data, is_admin, is_owner, is_bot, avatar, avatar_data, timezone, email, skype, phone, title, deleted, raw"

var userInsert = InsertStatement{
	Table: "users",
	Columns: []string{
		"id", "name", "realname", "display_name", "name_data", "is_admin", "is_owner", "is_bot",
		"avatar", "avatar_data", "timezone", "email", "skype", "phone", "title", "deleted", "raw",
	},
	Suffix: "ON CONFLICT DO NOTHING",
}

// UserRepository handles persistence for workspace members.
type UserRepository struct {
	db        *sqlx.DB
	maxParams int
}

// NewUserRepository creates a new UserRepository.
func NewUserRepository(db *sqlx.DB, maxParams int) *UserRepository {
	return &UserRepository{db: db, maxParams: maxParamsOr(maxParams)}
}

// DeleteAll removes every user.
func (r *UserRepository) DeleteAll(ctx context.Context, exec sqlx.ExtContext) (int64, error) {
	return deleteAll(ctx, execOr(exec, r.db), "users")
}

// BulkInsert inserts users, ignoring duplicates.
func (r *UserRepository) BulkInsert(ctx context.Context, exec sqlx.ExtContext, users []models.User) (int64, error) {
	return BulkInsert(ctx, execOr(exec, r.db), userInsert, users, r.maxParams)
}

// List returns users matching the filter with the total count.
func (r *UserRepository) List(ctx context.Context, filter models.UserFilter) ([]models.User, int, error) {
	where := "WHERE 1=1"
	if !filter.IncludeDeleted {
		where += " AND deleted = FALSE"
	}
	if !filter.IncludeBots {
		where += " AND is_bot = FALSE"
	}

	var total int
	if err := r.db.GetContext(ctx, &total, "SELECT COUNT(*) FROM users "+where); err != nil {
		return nil, 0, fmt.Errorf("count users: %w", err)
	}

	page := filter.Page
	if page < 1 {
		page = 1
	}
	size := filter.PageSize
	if size <= 0 {
		size = 50
	}

	query := r.db.Rebind(fmt.Sprintf("SELECT %s FROM users %s ORDER BY name ASC LIMIT ? OFFSET ?", userColumns, where))
	var users []models.User
	if err := r.db.SelectContext(ctx, &users, query, size, (page-1)*size); err != nil {
		return nil, 0, fmt.Errorf("list users: %w", err)
	}
	return users, total, nil
}

// ListHumans returns users that are not bots.
func (r *UserRepository) ListHumans(ctx context.Context) ([]models.User, error) {
	query := fmt.Sprintf("SELECT %s FROM users WHERE is_bot = FALSE ORDER BY name ASC", userColumns)
	var users []models.User
	if err := r.db.SelectContext(ctx, &users, query); err != nil {
		return nil, fmt.Errorf("list human users: %w", err)
	}
	return users, nil
}

// DisplayNames maps every user id to the best available human readable name.
func (r *UserRepository) DisplayNames(ctx context.Context) (map[string]string, error) {
	var rows []struct {
		ID          string `db:"id"`
		Name        string `db:"name"`
		DisplayName string `db:"display_name"`
	}
	if err := r.db.SelectContext(ctx, &rows, "SELECT id, name, display_name FROM users"); err != nil {
		return nil, fmt.Errorf("list user names: %w", err)
	}
	names := make(map[string]string, len(rows))
	for _, row := range rows {
		switch {
		case row.DisplayName != "":
			names[row.ID] = row.DisplayName
		case row.Name != "":
			names[row.ID] = row.Name
		default:
			names[row.ID] = row.ID
		}
	}
	return names, nil
}

// Count returns the number of stored users.
func (r *UserRepository) Count(ctx context.Context) (int, error) {
	var total int
	if err := r.db.GetContext(ctx, &total, "SELECT COUNT(*) FROM users"); err != nil {
		return 0, fmt.Errorf("count users: %w", err)
	}
	return total, nil
}
