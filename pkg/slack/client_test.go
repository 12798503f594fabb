package slack

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestClient(t *testing.T, handler http.HandlerFunc) *Client {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)
	return NewClient("xoxb-test", ClientOptions{
		BaseURL:       srv.URL,
		RetryAttempts: 3,
		RetryDelay:    time.Millisecond,
	})
}

func writeJSON(w http.ResponseWriter, body any) {
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(body)
}

func TestAuthTestStripsEnvelope(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/auth.test", r.URL.Path)
		assert.Equal(t, "Bearer xoxb-test", r.Header.Get("Authorization"))
		writeJSON(w, map[string]any{"ok": true, "team_id": "T1", "team": "Acme", "url": "https://acme.slack.com/"})
	})

	info, err := client.AuthTest(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "T1", info.String("team_id"))
	assert.False(t, info.Has("ok"))
}

func TestAuthFailureIsNotRetried(t *testing.T) {
	var calls int32
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&calls, 1)
		writeJSON(w, map[string]any{"ok": false, "error": "invalid_auth"})
	})

	_, err := client.AuthTest(context.Background())
	require.Error(t, err)
	assert.True(t, IsAuthError(err))
	assert.Equal(t, int32(1), atomic.LoadInt32(&calls))
}

func TestServerErrorsAreRetried(t *testing.T) {
	var calls int32
	var observed int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if atomic.AddInt32(&calls, 1) < 3 {
			w.WriteHeader(http.StatusBadGateway)
			return
		}
		writeJSON(w, map[string]any{"ok": true, "emoji": map[string]any{"party": "https://emoji/party.gif"}})
	}))
	defer srv.Close()

	client := NewClient("xoxb-test", ClientOptions{
		BaseURL:       srv.URL,
		RetryAttempts: 3,
		RetryDelay:    time.Millisecond,
		OnRequest:     func(string, error) { atomic.AddInt32(&observed, 1) },
	})

	emoji, err := client.ListEmoji(context.Background())
	require.NoError(t, err)
	assert.Equal(t, map[string]string{"party": "https://emoji/party.gif"}, emoji)
	assert.Equal(t, int32(3), atomic.LoadInt32(&calls))
	assert.Equal(t, int32(3), atomic.LoadInt32(&observed))
}

func TestListUsersFollowsCursor(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Query().Get("cursor") {
		case "":
			writeJSON(w, map[string]any{
				"ok":                true,
				"members":           []any{map[string]any{"id": "U1"}},
				"response_metadata": map[string]any{"next_cursor": "page2"},
			})
		case "page2":
			writeJSON(w, map[string]any{
				"ok":                true,
				"members":           []any{map[string]any{"id": "U2"}},
				"response_metadata": map[string]any{"next_cursor": ""},
			})
		}
	})

	users, err := client.ListUsers(context.Background())
	require.NoError(t, err)
	require.Len(t, users, 2)
	assert.Equal(t, "U1", users[0].String("id"))
	assert.Equal(t, "U2", users[1].String("id"))
}

func TestChannelHistoryPassesBoundsAndKeepsPrecision(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		q := r.URL.Query()
		assert.Equal(t, "C1", q.Get("channel"))
		assert.Equal(t, "1503435956.000247", q.Get("oldest"))
		assert.Equal(t, "", q.Get("latest"))
		assert.Equal(t, "100", q.Get("limit"))
		_, _ = w.Write([]byte(`{"ok":true,"has_more":true,"messages":[{"ts":"1503435957.000100","reply_count":12345678901234}]}`))
	})

	page, err := client.ChannelHistory(context.Background(), HistoryRequest{Channel: "C1", Oldest: "1503435956.000247", Limit: 100})
	require.NoError(t, err)
	assert.True(t, page.HasMore)
	require.Len(t, page.Records, 1)
	assert.Equal(t, "1503435957.000100", page.Records[0].String("ts"))
	assert.Equal(t, int64(12345678901234), page.Records[0].Int64("reply_count"))
}

func TestListStarsReadsPaging(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "2", r.URL.Query().Get("page"))
		writeJSON(w, map[string]any{
			"ok":     true,
			"items":  []any{map[string]any{"type": "channel", "channel": "C1"}},
			"paging": map[string]any{"pages": 3},
		})
	})

	page, err := client.ListStars(context.Background(), "U1", 2, 100)
	require.NoError(t, err)
	assert.Equal(t, 3, page.Pages)
	assert.Len(t, page.Items, 1)
}

func TestFileInfoReturnsComments(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, map[string]any{
			"ok":       true,
			"file":     map[string]any{"id": "F1"},
			"comments": []any{map[string]any{"id": "Fc1", "comment": "nice"}},
		})
	})

	info, err := client.FileInfo(context.Background(), "F1")
	require.NoError(t, err)
	assert.Equal(t, "F1", info.File.String("id"))
	require.Len(t, info.Comments, 1)
	assert.Equal(t, "nice", info.Comments[0].String("comment"))
}
