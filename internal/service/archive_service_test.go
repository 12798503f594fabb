package service

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/slack-archv/internal/models"
	"github.com/noah-isme/slack-archv/pkg/slack"

	appErrors "github.com/noah-isme/slack-archv/pkg/errors"
)

// recorder collects the order in which run steps are invoked.
type recorder struct {
	steps []string
	fail  map[string]error
}

func (r *recorder) step(name string) error {
	r.steps = append(r.steps, name)
	return r.fail[name]
}

func (r *recorder) Ensure(ctx context.Context) error { return r.step("schema") }

func (r *recorder) Reconcile(ctx context.Context, identity slack.Record, override bool) error {
	return r.step("workspace")
}

func (r *recorder) SyncUsers(ctx context.Context) (*models.CollectionReport, error) {
	return &models.CollectionReport{Name: "users"}, r.step("users")
}

func (r *recorder) SyncChannels(ctx context.Context) (*models.CollectionReport, []models.Channel, error) {
	channels := []models.Channel{{ID: "C1", Name: "general"}, {ID: "C2", Name: "random"}}
	return &models.CollectionReport{Name: "channels"}, channels, r.step("channels")
}

func (r *recorder) SyncEmoji(ctx context.Context) (*models.CollectionReport, error) {
	return &models.CollectionReport{Name: "emoji"}, r.step("emoji")
}

func (r *recorder) SyncChannel(ctx context.Context, channel models.Channel) (*models.ChannelReport, error) {
	if err := r.step("messages:" + channel.ID); err != nil {
		return nil, err
	}
	return &models.ChannelReport{ChannelID: channel.ID, Name: channel.Name, Added: 2, Modified: 1}, nil
}

type collectionStep struct {
	r    *recorder
	name string
}

func (c collectionStep) Sync(ctx context.Context) (*models.CollectionReport, error) {
	return &models.CollectionReport{Name: c.name}, c.r.step(c.name)
}

func newRecordedArchive(r *recorder, remote *fakeSlack, opts ArchiveOptions) *ArchiveService {
	return NewArchiveService(remote, r, r, r, r, collectionStep{r, "file_comments"}, collectionStep{r, "stars"}, NewMetricsService(), opts, nil)
}

func TestArchiveRunOrder(t *testing.T) {
	r := &recorder{}
	textfile := filepath.Join(t.TempDir(), "archv.prom")
	svc := newRecordedArchive(r, newFakeSlack(), ArchiveOptions{FileComments: true, Stars: true, MetricsTextfile: textfile})

	report, err := svc.Run(context.Background())
	require.NoError(t, err)
	assert.Equal(t, []string{
		"schema", "workspace", "users", "channels", "emoji",
		"messages:C1", "messages:C2", "file_comments", "stars",
	}, r.steps)

	assert.Equal(t, "T1", report.WorkspaceID)
	assert.Len(t, report.Channels, 2)
	assert.Len(t, report.Collections, 5)
	added, modified, _ := report.Totals()
	assert.Equal(t, 4, added)
	assert.Equal(t, 2, modified)

	data, err := os.ReadFile(textfile)
	require.NoError(t, err)
	assert.Contains(t, string(data), "archive_last_run_timestamp_seconds")
}

func TestArchiveRunSkipsOptionalSteps(t *testing.T) {
	r := &recorder{}
	_, err := newRecordedArchive(r, newFakeSlack(), ArchiveOptions{}).Run(context.Background())
	require.NoError(t, err)
	assert.NotContains(t, r.steps, "stars")
	assert.NotContains(t, r.steps, "file_comments")
}

func TestArchiveRunAbortsOnAuthFailure(t *testing.T) {
	r := &recorder{}
	remote := newFakeSlack()
	remote.authErr = &slack.APIError{Method: "auth.test", Code: "invalid_auth"}

	report, err := newRecordedArchive(r, remote, ArchiveOptions{}).Run(context.Background())
	require.Error(t, err)
	assert.Nil(t, report)
	assert.True(t, errors.Is(err, appErrors.ErrAuthFailed))
	assert.Empty(t, r.steps)
}

func TestArchiveRunRemoteAuthErrorIsNotAuthFailure(t *testing.T) {
	remote := newFakeSlack()
	remote.authErr = &slack.StatusError{Method: "auth.test", StatusCode: 503}

	_, err := newRecordedArchive(&recorder{}, remote, ArchiveOptions{}).Run(context.Background())
	require.Error(t, err)
	assert.False(t, errors.Is(err, appErrors.ErrAuthFailed))
	assert.True(t, errors.Is(err, appErrors.ErrRemote))
}

func TestArchiveRunStopsAtWorkspaceMismatch(t *testing.T) {
	r := &recorder{fail: map[string]error{"workspace": appErrors.ErrWorkspaceMismatch}}

	_, err := newRecordedArchive(r, newFakeSlack(), ArchiveOptions{}).Run(context.Background())
	require.Error(t, err)
	assert.True(t, errors.Is(err, appErrors.ErrWorkspaceMismatch))
	assert.Equal(t, []string{"schema", "workspace"}, r.steps)
}

func TestArchiveRunStopsAtFailingChannel(t *testing.T) {
	r := &recorder{fail: map[string]error{"messages:C1": errors.New("history unavailable")}}

	report, err := newRecordedArchive(r, newFakeSlack(), ArchiveOptions{Stars: true}).Run(context.Background())
	require.Error(t, err)
	require.NotNil(t, report)
	require.Len(t, report.Failures, 1)
	assert.Equal(t, "C1", report.Failures[0].ChannelID)
	assert.NotContains(t, r.steps, "messages:C2")
	assert.NotContains(t, r.steps, "stars")
}

func TestArchiveRunEndToEnd(t *testing.T) {
	a := newArchive(t)
	remote := newFakeSlack()
	remote.users = []slack.Record{userRecord("U1", "alice", false)}
	remote.channels["public_channel"] = []slack.Record{{"id": "C1", "name": "general", "members": []any{"U1"}}}
	remote.emoji = map[string]string{"party": "https://emoji/party.gif"}
	remote.stars["U1"] = []slack.Record{{"type": "channel", "channel": "C1"}}
	for i := 0; i < 3; i++ {
		remote.post("C1", message(seq(1700000000, i), "U1", "hi"))
	}

	run := func() *models.RunReport {
		metrics := NewMetricsService()
		resolver := a.resolver()
		directory := NewDirectoryService(a.db, remote, a.users, a.channels, a.emoji, metrics, nil, nil)
		messages := NewMessageSyncService(a.db, remote, a.messages, a.files, resolver, metrics, MessageSyncConfig{PageSize: 2}, nil)
		stars := NewStarSyncService(a.db, remote, a.users, a.channels, a.stars, metrics, nil)
		comments := NewFileCommentService(a.db, remote, a.files, metrics, nil)
		svc := NewArchiveService(remote, noopSchema{}, NewWorkspaceService(a.db, a.info, nil), directory, messages, comments, stars, metrics,
			ArchiveOptions{Stars: true, FileComments: true}, nil)
		report, err := svc.Run(context.Background())
		require.NoError(t, err)
		return report
	}

	first := run()
	added, _, _ := first.Totals()
	assert.Equal(t, 3, added)

	second := run()
	added, modified, _ := second.Totals()
	assert.Equal(t, 0, added)
	assert.Equal(t, 0, modified)
	assert.Equal(t, 3, second.Channels[0].Existing)

	assert.Equal(t, 1, a.count(t, `SELECT COUNT(*) FROM stars`))
	assert.Equal(t, 1, a.count(t, `SELECT COUNT(*) FROM emoji`))
}

type noopSchema struct{}

func (noopSchema) Ensure(ctx context.Context) error { return nil }
