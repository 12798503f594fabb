package repository

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/noah-isme/slack-archv/internal/models"
)

var fileCommentInsert = InsertStatement{
	Table:   "file_comments",
	Columns: []string{"id", "file_id", "user_id", "comment", "created", "raw"},
	Suffix:  "ON CONFLICT DO NOTHING",
}

// FileRepository persists files, their comments and message attachments.
type FileRepository struct {
	db        *sqlx.DB
	maxParams int
}

// NewFileRepository builds repository.
func NewFileRepository(db *sqlx.DB, maxParams int) *FileRepository {
	return &FileRepository{db: db, maxParams: maxParamsOr(maxParams)}
}

// Upsert inserts a file or refreshes the stored copy.
func (r *FileRepository) Upsert(ctx context.Context, exec sqlx.ExtContext, file models.File) error {
	const query = `INSERT INTO files (id, user_id, name, title, mimetype, filetype, pretty_type, size, created,
	url_private, url_private_download, permalink, permalink_public, initial_comment_id, raw)
VALUES (:id, :user_id, :name, :title, :mimetype, :filetype, :pretty_type, :size, :created,
	:url_private, :url_private_download, :permalink, :permalink_public, :initial_comment_id, :raw)
ON CONFLICT (id) DO UPDATE SET
	user_id = EXCLUDED.user_id,
	name = EXCLUDED.name,
	title = EXCLUDED.title,
	mimetype = EXCLUDED.mimetype,
	filetype = EXCLUDED.filetype,
	pretty_type = EXCLUDED.pretty_type,
	size = EXCLUDED.size,
	created = EXCLUDED.created,
	url_private = EXCLUDED.url_private,
	url_private_download = EXCLUDED.url_private_download,
	permalink = EXCLUDED.permalink,
	permalink_public = EXCLUDED.permalink_public,
	initial_comment_id = COALESCE(EXCLUDED.initial_comment_id, files.initial_comment_id),
	raw = EXCLUDED.raw`
	if _, err := sqlx.NamedExecContext(ctx, execOr(exec, r.db), query, file); err != nil {
		return fmt.Errorf("upsert file: %w", err)
	}
	return nil
}

// ListIDs returns every stored file id.
func (r *FileRepository) ListIDs(ctx context.Context) ([]string, error) {
	var ids []string
	if err := r.db.SelectContext(ctx, &ids, `SELECT id FROM files ORDER BY id`); err != nil {
		return nil, fmt.Errorf("list file ids: %w", err)
	}
	return ids, nil
}

// UpsertComment inserts a comment or refreshes the stored copy. The file must exist.
func (r *FileRepository) UpsertComment(ctx context.Context, exec sqlx.ExtContext, comment models.FileComment) error {
	const query = `INSERT INTO file_comments (id, file_id, user_id, comment, created, raw)
VALUES (:id, :file_id, :user_id, :comment, :created, :raw)
ON CONFLICT (id) DO UPDATE SET
	file_id = EXCLUDED.file_id,
	user_id = EXCLUDED.user_id,
	comment = EXCLUDED.comment,
	created = EXCLUDED.created,
	raw = EXCLUDED.raw`
	if _, err := sqlx.NamedExecContext(ctx, execOr(exec, r.db), query, comment); err != nil {
		return fmt.Errorf("upsert file comment: %w", err)
	}
	return nil
}

// ReplaceComments swaps the comments of one file for the given set.
func (r *FileRepository) ReplaceComments(ctx context.Context, exec sqlx.ExtContext, fileID string, comments []models.FileComment) (int64, error) {
	target := execOr(exec, r.db)
	if _, err := target.ExecContext(ctx, target.Rebind(`DELETE FROM file_comments WHERE file_id = ?`), fileID); err != nil {
		return 0, fmt.Errorf("delete file comments: %w", err)
	}
	return BulkInsert(ctx, target, fileCommentInsert, comments, r.maxParams)
}

// CreateAttachment stores att under a fresh id and returns that id.
func (r *FileRepository) CreateAttachment(ctx context.Context, exec sqlx.ExtContext, att models.Attachment) (string, error) {
	if att.ID == "" {
		att.ID = uuid.NewString()
	}
	const query = `INSERT INTO attachments (id, fallback, title, title_link, text, from_url, service_name, image_url, content)
VALUES (:id, :fallback, :title, :title_link, :text, :from_url, :service_name, :image_url, :content)`
	if _, err := sqlx.NamedExecContext(ctx, execOr(exec, r.db), query, att); err != nil {
		return "", fmt.Errorf("create attachment: %w", err)
	}
	return att.ID, nil
}

// DeleteAttachment removes an attachment no message references any more.
func (r *FileRepository) DeleteAttachment(ctx context.Context, exec sqlx.ExtContext, id string) error {
	target := execOr(exec, r.db)
	if _, err := target.ExecContext(ctx, target.Rebind(`DELETE FROM attachments WHERE id = ?`), id); err != nil {
		return fmt.Errorf("delete attachment: %w", err)
	}
	return nil
}

// Count returns the number of stored files.
func (r *FileRepository) Count(ctx context.Context) (int, error) {
	var total int
	if err := r.db.GetContext(ctx, &total, `SELECT COUNT(*) FROM files`); err != nil {
		return 0, fmt.Errorf("count files: %w", err)
	}
	return total, nil
}
