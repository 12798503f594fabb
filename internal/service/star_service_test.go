package service

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/slack-archv/internal/models"
	"github.com/noah-isme/slack-archv/pkg/slack"
)

func seedUsers(t *testing.T, a *archive, remote *fakeSlack) {
	t.Helper()
	_, err := newDirectory(a, remote).SyncUsers(context.Background())
	require.NoError(t, err)
}

func TestStarSyncReplacesPublicStars(t *testing.T) {
	a := newArchive(t)
	remote := newFakeSlack()
	remote.users = []slack.Record{userRecord("U1", "alice", false), userRecord("U2", "bob", false), userRecord("B1", "bot", true)}
	seedUsers(t, a, remote)

	remote.stars["U1"] = []slack.Record{
		{"type": "channel", "channel": "C1"},
		{"type": "message", "channel": "C1", "message": map[string]any{"ts": "1700000000.000001", "permalink": "https://acme.slack.com/p1"}},
		{"type": "file", "file": map[string]any{"id": "F1"}},
		{"type": "im", "channel": "D1"},
		{"type": "message", "channel": "C1"},
	}
	// U2 has no stars endpoint data: best effort, the run continues.

	svc := NewStarSyncService(a.db, remote, a.users, a.channels, a.stars, nil, nil)
	report, err := svc.Sync(context.Background())
	require.NoError(t, err)
	assert.Equal(t, int64(3), report.Stored)
	assert.Equal(t, 1, report.Skipped)
	assert.Equal(t, 5, report.Fetched)

	assert.Equal(t, 1, a.count(t, `SELECT COUNT(*) FROM stars WHERE item_type = ? AND item_id = ?`, models.SubjectMessage, "C1/1700000000.000001"))
	assert.Equal(t, 0, a.count(t, `SELECT COUNT(*) FROM stars WHERE user_id = ?`, "B1"))

	remote.stars["U1"] = []slack.Record{{"type": "file", "file": map[string]any{"id": "F2"}}}
	report, err = svc.Sync(context.Background())
	require.NoError(t, err)
	assert.Equal(t, int64(3), report.Removed)
	assert.Equal(t, 1, a.count(t, `SELECT COUNT(*) FROM stars`))
}

func TestStarSyncDropsStarsOnPrivateConversations(t *testing.T) {
	a := newArchive(t)
	remote := newFakeSlack()
	remote.users = []slack.Record{userRecord("U1", "alice", false)}
	seedUsers(t, a, remote)
	storeChannel(t, a, general)
	storeChannel(t, a, models.Channel{ID: "C9", Kind: models.ChannelKindGroup, Name: "secret"})

	remote.stars["U1"] = []slack.Record{
		{"type": "channel", "channel": "C1"},
		{"type": "channel", "channel": "C9"},
		{"type": "message", "channel": "C9", "message": map[string]any{"ts": "1700000000.000001"}},
		{"type": "message", "channel": "C1", "message": map[string]any{"ts": "1700000000.000002"}},
	}

	report, err := NewStarSyncService(a.db, remote, a.users, a.channels, a.stars, nil, nil).Sync(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 4, report.Fetched)
	assert.Equal(t, int64(2), report.Stored)
	assert.Equal(t, 0, report.Skipped)
	assert.Equal(t, 0, a.count(t, `SELECT COUNT(*) FROM stars WHERE item_id LIKE ?`, "C9%"))
}
