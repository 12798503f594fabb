package service

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/slack-archv/internal/models"
	"github.com/noah-isme/slack-archv/pkg/slack"
)

func userRecord(id, name string, bot bool) slack.Record {
	return slack.Record{
		"id":      id,
		"name":    name,
		"is_bot":  bot,
		"profile": map[string]any{"real_name": name, "image_72": "https://avatars/" + id + "_72.png"},
	}
}

func newDirectory(a *archive, remote *fakeSlack) *DirectoryService {
	return NewDirectoryService(a.db, remote, a.users, a.channels, a.emoji, nil, nil, nil)
}

func TestSyncUsersFullReplace(t *testing.T) {
	a := newArchive(t)
	remote := newFakeSlack()
	ctx := context.Background()
	svc := newDirectory(a, remote)

	remote.users = []slack.Record{userRecord("U1", "alice", false), userRecord("U2", "bob", false), {"name": "no id"}}
	report, err := svc.SyncUsers(ctx)
	require.NoError(t, err)
	assert.Equal(t, 3, report.Fetched)
	assert.Equal(t, int64(2), report.Stored)
	assert.Equal(t, 1, report.Skipped)

	remote.users = []slack.Record{userRecord("U2", "bob", false), userRecord("U3", "carol", true)}
	report, err = svc.SyncUsers(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(2), report.Removed)
	assert.Equal(t, int64(2), report.Stored)

	assert.Equal(t, 0, a.count(t, `SELECT COUNT(*) FROM users WHERE id = ?`, "U1"))
	assert.Equal(t, 2, a.count(t, `SELECT COUNT(*) FROM users`))
}

func TestSyncChannelsStoresMembership(t *testing.T) {
	a := newArchive(t)
	remote := newFakeSlack()
	remote.channels["public_channel"] = []slack.Record{
		{"id": "C1", "name": "general", "created": 1600000000, "members": []any{"U1", "U2", "U1"}},
		{"id": "C2", "name": "random", "created": 1600000001},
	}
	remote.channels["private_channel"] = []slack.Record{
		{"id": "G1", "name": "secret", "is_private": true, "created": 1600000002},
	}
	remote.members["C2"] = []string{"U3"}

	report, channels, err := newDirectory(a, remote).SyncChannels(context.Background())
	require.NoError(t, err)
	assert.Equal(t, int64(3), report.Stored)
	require.Len(t, channels, 3)

	assert.Equal(t, 2, a.count(t, `SELECT COUNT(*) FROM channel_users WHERE channel_id = ?`, "C1"))
	assert.Equal(t, 1, a.count(t, `SELECT COUNT(*) FROM channel_users WHERE channel_id = ?`, "C2"))
	// G1 members are unavailable; the channel is still stored.
	assert.Equal(t, 0, a.count(t, `SELECT COUNT(*) FROM channel_users WHERE channel_id = ?`, "G1"))
	assert.Equal(t, 1, a.count(t, `SELECT COUNT(*) FROM channels WHERE id = ? AND kind = 'group'`, "G1"))
}

func TestSyncChannelsKindFollowsListType(t *testing.T) {
	a := newArchive(t)
	remote := newFakeSlack()
	// No is_private flag: the listing type decides.
	remote.channels["private_channel"] = []slack.Record{{"id": "C7", "name": "ops", "members": []any{}}}

	svc := NewDirectoryService(a.db, remote, a.users, a.channels, a.emoji, nil, []string{"private_channel"}, nil)
	_, channels, err := svc.SyncChannels(context.Background())
	require.NoError(t, err)
	require.Len(t, channels, 1)
	assert.Equal(t, models.ChannelKindGroup, channels[0].Kind)
	assert.False(t, channels[0].Conversation().Public())

	bad := NewDirectoryService(a.db, remote, a.users, a.channels, a.emoji, nil, []string{"im"}, nil)
	_, _, err = bad.SyncChannels(context.Background())
	require.Error(t, err)
	assert.Equal(t, 1, a.count(t, `SELECT COUNT(*) FROM channels`))
}

func TestSyncEmojiReplacesList(t *testing.T) {
	a := newArchive(t)
	remote := newFakeSlack()
	svc := newDirectory(a, remote)
	ctx := context.Background()

	remote.emoji = map[string]string{"party": "https://emoji/party.gif", "yay": "alias:party"}
	_, err := svc.SyncEmoji(ctx)
	require.NoError(t, err)

	remote.emoji = map[string]string{"shipit": "https://emoji/shipit.png"}
	report, err := svc.SyncEmoji(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(2), report.Removed)
	assert.Equal(t, int64(1), report.Stored)
	assert.Equal(t, 1, a.count(t, `SELECT COUNT(*) FROM emoji`))
}
