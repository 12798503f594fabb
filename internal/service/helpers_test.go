package service

import (
	"context"
	"database/sql"
	"fmt"
	"sort"
	"sync"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/jmoiron/sqlx"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/slack-archv/internal/repository"
	"github.com/noah-isme/slack-archv/pkg/config"
	"github.com/noah-isme/slack-archv/pkg/database"
	"github.com/noah-isme/slack-archv/pkg/slack"
)

type txProviderMock struct {
	db   *sqlx.DB
	mock sqlmock.Sqlmock
}

func newTxProviderMock(t *testing.T) (txProvider, sqlmock.Sqlmock) {
	db, mock, err := sqlmock.New(sqlmock.QueryMatcherOption(sqlmock.QueryMatcherRegexp))
	require.NoError(t, err)
	sqlxdb := sqlx.NewDb(db, "sqlmock")
	t.Cleanup(func() { db.Close() })
	return &txProviderMock{db: sqlxdb, mock: mock}, mock
}

func (t *txProviderMock) BeginTxx(ctx context.Context, opts *sql.TxOptions) (*sqlx.Tx, error) {
	return t.db.BeginTxx(ctx, opts)
}

// archive bundles an in-memory database with real repositories.
type archive struct {
	db        *sqlx.DB
	info      *repository.InformationRepository
	users     *repository.UserRepository
	channels  *repository.ChannelRepository
	messages  *repository.MessageRepository
	files     *repository.FileRepository
	reactions *repository.ReactionRepository
	stars     *repository.StarRepository
	emoji     *repository.EmojiRepository
}

func newArchive(t *testing.T) *archive {
	t.Helper()
	db, err := database.NewSQLite(config.DatabaseConfig{Path: database.MemoryPath})
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	require.NoError(t, repository.NewSchema(db).Ensure(context.Background()))

	// A small parameter budget forces multi-statement batches.
	const maxParams = 60
	return &archive{
		db:        db,
		info:      repository.NewInformationRepository(db),
		users:     repository.NewUserRepository(db, maxParams),
		channels:  repository.NewChannelRepository(db, maxParams),
		messages:  repository.NewMessageRepository(db, maxParams),
		files:     repository.NewFileRepository(db, maxParams),
		reactions: repository.NewReactionRepository(db, maxParams),
		stars:     repository.NewStarRepository(db, maxParams),
		emoji:     repository.NewEmojiRepository(db, maxParams),
	}
}

func (a *archive) resolver() *ReferenceResolver {
	return NewReferenceResolver(a.files, a.reactions, nil)
}

func (a *archive) count(t *testing.T, query string, args ...any) int {
	t.Helper()
	var n int
	require.NoError(t, a.db.Get(&n, a.db.Rebind(query), args...))
	return n
}

// fakeSlack serves canned workspace data with the paging behaviour of the
// Web API: history newest first, oldest and latest exclusive.
type fakeSlack struct {
	mu sync.Mutex

	identity slack.Record
	authErr  error
	users    []slack.Record
	channels map[string][]slack.Record
	members  map[string][]string
	emoji    map[string]string
	history  map[string][]slack.Record
	stars    map[string][]slack.Record
	files    map[string]*slack.FileInfo

	// inclusiveOldest makes history return the record equal to oldest.
	inclusiveOldest bool
	historyErr      map[string]error
	historyCalls    []slack.HistoryRequest
}

func newFakeSlack() *fakeSlack {
	return &fakeSlack{
		identity:   slack.Record{"team_id": "T1", "team": "Acme", "user": "archiver", "user_id": "U0", "url": "https://acme.slack.com/"},
		channels:   map[string][]slack.Record{},
		members:    map[string][]string{},
		emoji:      map[string]string{},
		history:    map[string][]slack.Record{},
		stars:      map[string][]slack.Record{},
		files:      map[string]*slack.FileInfo{},
		historyErr: map[string]error{},
	}
}

func (f *fakeSlack) AuthTest(ctx context.Context) (slack.Record, error) {
	if f.authErr != nil {
		return nil, f.authErr
	}
	return f.identity.Clone(), nil
}

func (f *fakeSlack) ListUsers(ctx context.Context) ([]slack.Record, error) {
	return f.users, nil
}

func (f *fakeSlack) ListChannels(ctx context.Context, types string) ([]slack.Record, error) {
	return f.channels[types], nil
}

func (f *fakeSlack) ChannelMembers(ctx context.Context, channelID string) ([]string, error) {
	ids, ok := f.members[channelID]
	if !ok {
		return nil, &slack.APIError{Method: "conversations.members", Code: "channel_not_found"}
	}
	return ids, nil
}

func (f *fakeSlack) ListEmoji(ctx context.Context) (map[string]string, error) {
	return f.emoji, nil
}

// post adds a message to a channel's history.
func (f *fakeSlack) post(channelID string, msg slack.Record) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.history[channelID] = append(f.history[channelID], msg)
	sort.SliceStable(f.history[channelID], func(i, j int) bool {
		a, _ := slack.SortKey(f.history[channelID][i].String("ts"))
		b, _ := slack.SortKey(f.history[channelID][j].String("ts"))
		return a > b
	})
}

// edit replaces the stored record with the same ts.
func (f *fakeSlack) edit(channelID, ts string, fn func(slack.Record)) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, msg := range f.history[channelID] {
		if msg.String("ts") == ts {
			fn(msg)
		}
	}
}

func (f *fakeSlack) ChannelHistory(ctx context.Context, req slack.HistoryRequest) (*slack.HistoryPage, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.historyCalls = append(f.historyCalls, req)
	if err := f.historyErr[req.Channel]; err != nil {
		return nil, err
	}

	var oldest, latest int64 = -1, 0
	if req.Oldest != "" {
		oldest, _ = slack.SortKey(req.Oldest)
		if f.inclusiveOldest {
			oldest--
		}
	}
	if req.Latest != "" {
		latest, _ = slack.SortKey(req.Latest)
	}
	limit := req.Limit
	if limit <= 0 {
		limit = 100
	}

	var matched []slack.Record
	for _, msg := range f.history[req.Channel] {
		key, err := slack.SortKey(msg.String("ts"))
		if err != nil {
			matched = append(matched, msg.Clone())
			continue
		}
		if key <= oldest || (latest > 0 && key >= latest) {
			continue
		}
		matched = append(matched, msg.Clone())
	}

	page := &slack.HistoryPage{Records: matched}
	if len(matched) > limit {
		page.Records = matched[:limit]
		page.HasMore = true
	}
	return page, nil
}

func (f *fakeSlack) ListStars(ctx context.Context, userID string, page, count int) (*slack.StarPage, error) {
	items, ok := f.stars[userID]
	if !ok {
		return nil, &slack.APIError{Method: "stars.list", Code: "user_not_found"}
	}
	if count <= 0 {
		count = 100
	}
	pages := (len(items) + count - 1) / count
	if pages == 0 {
		pages = 1
	}
	start := (page - 1) * count
	if start > len(items) {
		start = len(items)
	}
	end := start + count
	if end > len(items) {
		end = len(items)
	}
	return &slack.StarPage{Items: items[start:end], Pages: pages}, nil
}

func (f *fakeSlack) FileInfo(ctx context.Context, fileID string) (*slack.FileInfo, error) {
	info, ok := f.files[fileID]
	if !ok {
		return nil, &slack.APIError{Method: "files.info", Code: "file_not_found"}
	}
	return info, nil
}

func message(ts, user, text string) slack.Record {
	return slack.Record{"type": "message", "ts": ts, "user": user, "text": text}
}

func seq(base int64, i int) string {
	return fmt.Sprintf("%d.%06d", base+int64(i), 0)
}
