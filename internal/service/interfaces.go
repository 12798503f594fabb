package service

import (
	"context"
	"database/sql"

	"github.com/jmoiron/sqlx"

	"github.com/noah-isme/slack-archv/internal/models"
	"github.com/noah-isme/slack-archv/pkg/slack"
)

type txProvider interface {
	BeginTxx(ctx context.Context, opts *sql.TxOptions) (*sqlx.Tx, error)
}

// txExec is what repositories accept for writes; an open *sqlx.Tx in practice.
type txExec = sqlx.ExtContext

type identityFetcher interface {
	AuthTest(ctx context.Context) (slack.Record, error)
}

type directoryFetcher interface {
	ListUsers(ctx context.Context) ([]slack.Record, error)
	ListChannels(ctx context.Context, types string) ([]slack.Record, error)
	ChannelMembers(ctx context.Context, channelID string) ([]string, error)
	ListEmoji(ctx context.Context) (map[string]string, error)
}

type historyFetcher interface {
	ChannelHistory(ctx context.Context, req slack.HistoryRequest) (*slack.HistoryPage, error)
}

type starFetcher interface {
	ListStars(ctx context.Context, userID string, page, count int) (*slack.StarPage, error)
}

type fileInfoFetcher interface {
	FileInfo(ctx context.Context, fileID string) (*slack.FileInfo, error)
}

type informationRepository interface {
	Get(ctx context.Context, key string) (string, bool, error)
	CreateIfAbsent(ctx context.Context, exec sqlx.ExtContext, key, value string) error
	Upsert(ctx context.Context, exec sqlx.ExtContext, key, value string) error
}

type userRepository interface {
	DeleteAll(ctx context.Context, exec sqlx.ExtContext) (int64, error)
	BulkInsert(ctx context.Context, exec sqlx.ExtContext, users []models.User) (int64, error)
	ListHumans(ctx context.Context) ([]models.User, error)
}

type channelRepository interface {
	DeleteAll(ctx context.Context, exec sqlx.ExtContext) (int64, error)
	BulkInsert(ctx context.Context, exec sqlx.ExtContext, channels []models.Channel) (int64, error)
	BulkInsertMembers(ctx context.Context, exec sqlx.ExtContext, members []models.ChannelUser) (int64, error)
}

type emojiRepository interface {
	DeleteAll(ctx context.Context, exec sqlx.ExtContext) (int64, error)
	BulkInsert(ctx context.Context, exec sqlx.ExtContext, emoji []models.Emoji) (int64, error)
}

type messageRepository interface {
	LatestTimestamp(ctx context.Context, channelID string) (string, bool, error)
	CountByChannel(ctx context.Context, channelID string) (int, error)
	FindByTimestamps(ctx context.Context, channelID string, timestamps []string) (map[string]models.Message, error)
	BulkInsert(ctx context.Context, exec sqlx.ExtContext, messages []models.Message) (int64, error)
	Update(ctx context.Context, exec sqlx.ExtContext, msg models.Message) error
}

type fileRepository interface {
	Upsert(ctx context.Context, exec sqlx.ExtContext, file models.File) error
	UpsertComment(ctx context.Context, exec sqlx.ExtContext, comment models.FileComment) error
	ReplaceComments(ctx context.Context, exec sqlx.ExtContext, fileID string, comments []models.FileComment) (int64, error)
	CreateAttachment(ctx context.Context, exec sqlx.ExtContext, att models.Attachment) (string, error)
	DeleteAttachment(ctx context.Context, exec sqlx.ExtContext, id string) error
	ListIDs(ctx context.Context) ([]string, error)
}

type reactionRepository interface {
	Replace(ctx context.Context, exec sqlx.ExtContext, subject models.Subject, rows []models.Reaction) (int64, error)
}

type starRepository interface {
	ReplaceForUser(ctx context.Context, exec sqlx.ExtContext, userID string, stars []models.Star) (removed, stored int64, err error)
}
