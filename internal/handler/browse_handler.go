package handler

import (
	"context"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/slack-archv/internal/models"
	"github.com/noah-isme/slack-archv/internal/service"
	appErrors "github.com/noah-isme/slack-archv/pkg/errors"
	"github.com/noah-isme/slack-archv/pkg/response"
	"github.com/noah-isme/slack-archv/pkg/slack"
)

type browseService interface {
	Stats(ctx context.Context) (*models.ArchiveStats, error)
	Channels(ctx context.Context) ([]models.ChannelSummary, error)
	Channel(ctx context.Context, id string) (*service.ChannelDetail, error)
	Messages(ctx context.Context, filter models.MessageFilter) ([]models.Message, error)
	Reactions(ctx context.Context, channelID, ts string) ([]models.Reaction, error)
	Users(ctx context.Context, filter models.UserFilter) ([]models.User, *models.Pagination, error)
}

// BrowseHandler serves read-only views of the archive.
type BrowseHandler struct {
	service browseService
}

// NewBrowseHandler creates a browse handler.
func NewBrowseHandler(svc browseService) *BrowseHandler {
	return &BrowseHandler{service: svc}
}

// Stats godoc
// @Summary Archive statistics
// @Description Workspace metadata, collection sizes and per-channel message counts
// @Tags Archive
// @Produce json
// @Success 200 {object} response.Envelope
// @Router /stats [get]
func (h *BrowseHandler) Stats(c *gin.Context) {
	stats, err := h.service.Stats(c.Request.Context())
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, stats, nil)
}

// ListChannels godoc
// @Summary List channels
// @Tags Channels
// @Produce json
// @Success 200 {object} response.Envelope
// @Router /channels [get]
func (h *BrowseHandler) ListChannels(c *gin.Context) {
	channels, err := h.service.Channels(c.Request.Context())
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, channels, nil)
}

// GetChannel godoc
// @Summary Get channel
// @Tags Channels
// @Produce json
// @Param id path string true "Channel ID"
// @Success 200 {object} response.Envelope
// @Failure 404 {object} response.Envelope
// @Router /channels/{id} [get]
func (h *BrowseHandler) GetChannel(c *gin.Context) {
	detail, err := h.service.Channel(c.Request.Context(), c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, detail, nil)
}

// ListMessages godoc
// @Summary Channel transcript
// @Description Messages oldest first. since and until take a message ts or an RFC 3339 time.
// @Tags Channels
// @Produce json
// @Param id path string true "Channel ID"
// @Param since query string false "Lower bound, inclusive"
// @Param until query string false "Upper bound, exclusive"
// @Param limit query int false "Page size"
// @Param offset query int false "Offset"
// @Success 200 {object} response.Envelope
// @Failure 400 {object} response.Envelope
// @Failure 404 {object} response.Envelope
// @Router /channels/{id}/messages [get]
func (h *BrowseHandler) ListMessages(c *gin.Context) {
	filter := models.MessageFilter{ChannelID: c.Param("id")}

	var err error
	if filter.Since, err = parseBound(c.Query("since")); err != nil {
		response.Error(c, appErrors.Clone(appErrors.ErrValidation, "invalid since"))
		return
	}
	if filter.Until, err = parseBound(c.Query("until")); err != nil {
		response.Error(c, appErrors.Clone(appErrors.ErrValidation, "invalid until"))
		return
	}
	if limit, err := strconv.Atoi(c.Query("limit")); err == nil {
		filter.Limit = limit
	}
	if offset, err := strconv.Atoi(c.Query("offset")); err == nil && offset > 0 {
		filter.Offset = offset
	}

	messages, err := h.service.Messages(c.Request.Context(), filter)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, messages, nil, map[string]interface{}{"count": len(messages)})
}

// ListReactions godoc
// @Summary Message reactions
// @Tags Channels
// @Produce json
// @Param id path string true "Channel ID"
// @Param ts path string true "Message ts"
// @Success 200 {object} response.Envelope
// @Failure 404 {object} response.Envelope
// @Router /channels/{id}/messages/{ts}/reactions [get]
func (h *BrowseHandler) ListReactions(c *gin.Context) {
	reactions, err := h.service.Reactions(c.Request.Context(), c.Param("id"), c.Param("ts"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, reactions, nil)
}

// ListUsers godoc
// @Summary List users
// @Tags Users
// @Produce json
// @Param page query int false "Page number"
// @Param page_size query int false "Page size"
// @Param include_deleted query bool false "Include deactivated users"
// @Param include_bots query bool false "Include bots"
// @Success 200 {object} response.Envelope
// @Router /users [get]
func (h *BrowseHandler) ListUsers(c *gin.Context) {
	var filter models.UserFilter

	if page, err := strconv.Atoi(c.DefaultQuery("page", "1")); err == nil {
		filter.Page = page
	}
	if size, err := strconv.Atoi(c.DefaultQuery("page_size", "50")); err == nil {
		filter.PageSize = size
	}
	if val, err := strconv.ParseBool(c.Query("include_deleted")); err == nil {
		filter.IncludeDeleted = val
	}
	if val, err := strconv.ParseBool(c.Query("include_bots")); err == nil {
		filter.IncludeBots = val
	}

	users, pagination, err := h.service.Users(c.Request.Context(), filter)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, users, pagination)
}

// parseBound converts a message ts or RFC 3339 time into a sort key. Empty
// input means unbounded.
func parseBound(raw string) (int64, error) {
	if raw == "" {
		return 0, nil
	}
	if key, err := slack.SortKey(raw); err == nil {
		return key, nil
	}
	t, err := time.Parse(time.RFC3339, raw)
	if err != nil {
		return 0, err
	}
	return t.UnixMicro(), nil
}
