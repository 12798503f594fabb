package handler

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/slack-archv/internal/models"
	"github.com/noah-isme/slack-archv/internal/service"
	appErrors "github.com/noah-isme/slack-archv/pkg/errors"
	"github.com/noah-isme/slack-archv/pkg/middleware/requestid"
)

type browseServiceMock struct {
	stats       *models.ArchiveStats
	channels    []models.ChannelSummary
	detail      *service.ChannelDetail
	messages    []models.Message
	users       []models.User
	reactions   []models.Reaction
	err         error
	lastMessage models.MessageFilter
	lastUser    models.UserFilter
}

func (m *browseServiceMock) Stats(ctx context.Context) (*models.ArchiveStats, error) {
	return m.stats, m.err
}

func (m *browseServiceMock) Channels(ctx context.Context) ([]models.ChannelSummary, error) {
	return m.channels, m.err
}

func (m *browseServiceMock) Channel(ctx context.Context, id string) (*service.ChannelDetail, error) {
	if m.err != nil {
		return nil, m.err
	}
	return m.detail, nil
}

func (m *browseServiceMock) Messages(ctx context.Context, filter models.MessageFilter) ([]models.Message, error) {
	m.lastMessage = filter
	return m.messages, m.err
}

func (m *browseServiceMock) Reactions(ctx context.Context, channelID, ts string) ([]models.Reaction, error) {
	if m.err != nil {
		return nil, m.err
	}
	var out []models.Reaction
	for _, r := range m.reactions {
		if r.ChannelID == channelID && r.ItemID == ts {
			out = append(out, r)
		}
	}
	return out, nil
}

func (m *browseServiceMock) Users(ctx context.Context, filter models.UserFilter) ([]models.User, *models.Pagination, error) {
	m.lastUser = filter
	if m.err != nil {
		return nil, nil, m.err
	}
	return m.users, &models.Pagination{Page: filter.Page, PageSize: filter.PageSize, TotalCount: len(m.users)}, nil
}

func newBrowseContext(method, target string) (*gin.Context, *httptest.ResponseRecorder) {
	gin.SetMode(gin.TestMode)
	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	c.Request = httptest.NewRequest(method, target, nil)
	return c, w
}

type envelope struct {
	Data       json.RawMessage        `json:"data"`
	Error      *appErrors.Error       `json:"error"`
	Pagination *models.Pagination     `json:"pagination"`
	Meta       map[string]interface{} `json:"meta"`
}

func decode(t *testing.T, w *httptest.ResponseRecorder) envelope {
	t.Helper()
	var env envelope
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &env))
	return env
}

func TestBrowseHandlerStats(t *testing.T) {
	svc := &browseServiceMock{stats: &models.ArchiveStats{WorkspaceID: "T1", Version: "1", Users: 3}}
	c, w := newBrowseContext(http.MethodGet, "/stats")

	NewBrowseHandler(svc).Stats(c)

	require.Equal(t, http.StatusOK, w.Code)
	var stats models.ArchiveStats
	require.NoError(t, json.Unmarshal(decode(t, w).Data, &stats))
	assert.Equal(t, "T1", stats.WorkspaceID)
	assert.Equal(t, 3, stats.Users)
	assert.Equal(t, "no-store", w.Header().Get("Cache-Control"))
}

func TestBrowseHandlerChannelNotFound(t *testing.T) {
	svc := &browseServiceMock{err: appErrors.Clone(appErrors.ErrNotFound, "channel not found")}
	c, w := newBrowseContext(http.MethodGet, "/channels/C404")
	c.Params = gin.Params{{Key: "id", Value: "C404"}}
	c.Set("request_id", "req-1")

	NewBrowseHandler(svc).GetChannel(c)

	require.Equal(t, http.StatusNotFound, w.Code)
	env := decode(t, w)
	require.NotNil(t, env.Error)
	assert.Equal(t, appErrors.ErrNotFound.Code, env.Error.Code)
	assert.Equal(t, "req-1", env.Meta["request_id"])
	assert.Equal(t, "req-1", requestid.Value(c))
}

func TestBrowseHandlerListMessagesParsesBounds(t *testing.T) {
	svc := &browseServiceMock{messages: []models.Message{{ID: "m1", ChannelID: "C1", TS: "1700000000.000100"}}}
	c, w := newBrowseContext(http.MethodGet, "/channels/C1/messages?since=1700000000.5&until=2023-11-15T00:00:00Z&limit=10&offset=20")
	c.Params = gin.Params{{Key: "id", Value: "C1"}}

	NewBrowseHandler(svc).ListMessages(c)

	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "C1", svc.lastMessage.ChannelID)
	assert.Equal(t, int64(1700000000500000), svc.lastMessage.Since)
	assert.Equal(t, time.Date(2023, 11, 15, 0, 0, 0, 0, time.UTC).UnixMicro(), svc.lastMessage.Until)
	assert.Equal(t, 10, svc.lastMessage.Limit)
	assert.Equal(t, 20, svc.lastMessage.Offset)
	assert.EqualValues(t, 1, decode(t, w).Meta["count"])
}

func TestBrowseHandlerListMessagesRejectsBadBound(t *testing.T) {
	svc := &browseServiceMock{}
	c, w := newBrowseContext(http.MethodGet, "/channels/C1/messages?since=yesterday")
	c.Params = gin.Params{{Key: "id", Value: "C1"}}

	NewBrowseHandler(svc).ListMessages(c)

	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Empty(t, svc.lastMessage.ChannelID)
}

func TestBrowseHandlerListMessagesIgnoresNegativeOffset(t *testing.T) {
	svc := &browseServiceMock{}
	c, w := newBrowseContext(http.MethodGet, "/channels/C1/messages?offset=-5")
	c.Params = gin.Params{{Key: "id", Value: "C1"}}

	NewBrowseHandler(svc).ListMessages(c)

	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, 0, svc.lastMessage.Offset)
}

func TestBrowseHandlerListReactions(t *testing.T) {
	svc := &browseServiceMock{reactions: []models.Reaction{
		{ItemType: models.SubjectMessage, ItemID: "1700000000.000100", ChannelID: "C1", UserID: "U1", Reaction: "tada"},
		{ItemType: models.SubjectMessage, ItemID: "1700000000.000200", ChannelID: "C1", UserID: "U2", Reaction: "eyes"},
	}}
	c, w := newBrowseContext(http.MethodGet, "/channels/C1/messages/1700000000.000100/reactions")
	c.Params = gin.Params{{Key: "id", Value: "C1"}, {Key: "ts", Value: "1700000000.000100"}}

	NewBrowseHandler(svc).ListReactions(c)

	require.Equal(t, http.StatusOK, w.Code)
	var rows []models.Reaction
	require.NoError(t, json.Unmarshal(decode(t, w).Data, &rows))
	require.Len(t, rows, 1)
	assert.Equal(t, "tada", rows[0].Reaction)

	svc.err = appErrors.Clone(appErrors.ErrNotFound, "message not found")
	c, w = newBrowseContext(http.MethodGet, "/channels/C1/messages/1/reactions")
	NewBrowseHandler(svc).ListReactions(c)
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestBrowseHandlerListUsers(t *testing.T) {
	svc := &browseServiceMock{users: []models.User{{ID: "U1", Name: "ada"}}}
	c, w := newBrowseContext(http.MethodGet, "/users?page=2&page_size=5&include_bots=true")

	NewBrowseHandler(svc).ListUsers(c)

	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, 2, svc.lastUser.Page)
	assert.Equal(t, 5, svc.lastUser.PageSize)
	assert.True(t, svc.lastUser.IncludeBots)
	assert.False(t, svc.lastUser.IncludeDeleted)
	env := decode(t, w)
	require.NotNil(t, env.Pagination)
	assert.Equal(t, 2, env.Pagination.Page)
}
