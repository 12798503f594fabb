package service

import (
	"context"

	"github.com/noah-isme/slack-archv/internal/models"

	appErrors "github.com/noah-isme/slack-archv/pkg/errors"
)

type browseInformation interface {
	Get(ctx context.Context, key string) (string, bool, error)
}

type browseChannels interface {
	ListSummaries(ctx context.Context) ([]models.ChannelSummary, error)
	FindByID(ctx context.Context, id string) (*models.Channel, error)
	Members(ctx context.Context, channelID string) ([]string, error)
}

type browseMessages interface {
	ListByChannel(ctx context.Context, filter models.MessageFilter) ([]models.Message, error)
	CountByChannel(ctx context.Context, channelID string) (int, error)
	FindByTimestamps(ctx context.Context, channelID string, timestamps []string) (map[string]models.Message, error)
}

type browseReactions interface {
	ListBySubject(ctx context.Context, subject models.Subject) ([]models.Reaction, error)
}

type browseUsers interface {
	List(ctx context.Context, filter models.UserFilter) ([]models.User, int, error)
	Count(ctx context.Context) (int, error)
}

type counter interface {
	Count(ctx context.Context) (int, error)
}

const (
	defaultMessagePage = 100
	maxMessagePage     = 1000
)

// ChannelDetail is a channel with its members and message count.
type ChannelDetail struct {
	models.Channel
	Members      []string `json:"members"`
	MessageCount int      `json:"message_count"`
}

// BrowseService answers read-only queries against the archive.
type BrowseService struct {
	info      browseInformation
	channels  browseChannels
	messages  browseMessages
	users     browseUsers
	emoji     counter
	files     counter
	reactions browseReactions
}

// NewBrowseService constructs BrowseService.
func NewBrowseService(info browseInformation, channels browseChannels, messages browseMessages, users browseUsers, emoji, files counter, reactions browseReactions) *BrowseService {
	return &BrowseService{info: info, channels: channels, messages: messages, users: users, emoji: emoji, files: files, reactions: reactions}
}

// Stats summarizes the archive: metadata, collection sizes and per-channel
// message counts computed on demand.
func (s *BrowseService) Stats(ctx context.Context) (*models.ArchiveStats, error) {
	stats := &models.ArchiveStats{}
	var err error

	if stats.WorkspaceID, _, err = s.info.Get(ctx, models.InfoKeyWorkspaceID); err != nil {
		return nil, err
	}
	if stats.Version, _, err = s.info.Get(ctx, models.InfoKeyVersion); err != nil {
		return nil, err
	}
	if stats.Users, err = s.users.Count(ctx); err != nil {
		return nil, err
	}
	if stats.Emoji, err = s.emoji.Count(ctx); err != nil {
		return nil, err
	}
	if stats.Files, err = s.files.Count(ctx); err != nil {
		return nil, err
	}
	if stats.Channels, err = s.channels.ListSummaries(ctx); err != nil {
		return nil, err
	}
	return stats, nil
}

// Channels lists every channel with its message count.
func (s *BrowseService) Channels(ctx context.Context) ([]models.ChannelSummary, error) {
	return s.channels.ListSummaries(ctx)
}

// Channel returns one channel with its members.
func (s *BrowseService) Channel(ctx context.Context, id string) (*ChannelDetail, error) {
	channel, err := s.channels.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}
	members, err := s.channels.Members(ctx, id)
	if err != nil {
		return nil, err
	}
	count, err := s.messages.CountByChannel(ctx, id)
	if err != nil {
		return nil, err
	}
	return &ChannelDetail{Channel: *channel, Members: members, MessageCount: count}, nil
}

// Messages returns a page of a channel transcript, oldest first.
func (s *BrowseService) Messages(ctx context.Context, filter models.MessageFilter) ([]models.Message, error) {
	if _, err := s.channels.FindByID(ctx, filter.ChannelID); err != nil {
		return nil, err
	}
	if filter.Limit <= 0 {
		filter.Limit = defaultMessagePage
	}
	if filter.Limit > maxMessagePage {
		filter.Limit = maxMessagePage
	}
	if filter.Offset < 0 {
		filter.Offset = 0
	}
	return s.messages.ListByChannel(ctx, filter)
}

// Reactions returns the stored reactions on one message of a channel.
func (s *BrowseService) Reactions(ctx context.Context, channelID, ts string) ([]models.Reaction, error) {
	if _, err := s.channels.FindByID(ctx, channelID); err != nil {
		return nil, err
	}
	stored, err := s.messages.FindByTimestamps(ctx, channelID, []string{ts})
	if err != nil {
		return nil, err
	}
	if _, ok := stored[ts]; !ok {
		return nil, appErrors.Clone(appErrors.ErrNotFound, "message not found")
	}

	rows, err := s.reactions.ListBySubject(ctx, models.Subject{Kind: models.SubjectMessage, ID: ts, ChannelID: channelID})
	if err != nil {
		return nil, err
	}
	if rows == nil {
		rows = []models.Reaction{}
	}
	return rows, nil
}

// Users lists users with pagination metadata.
func (s *BrowseService) Users(ctx context.Context, filter models.UserFilter) ([]models.User, *models.Pagination, error) {
	if filter.Page < 1 {
		filter.Page = 1
	}
	if filter.PageSize <= 0 {
		filter.PageSize = 50
	}
	users, total, err := s.users.List(ctx, filter)
	if err != nil {
		return nil, nil, err
	}
	return users, &models.Pagination{Page: filter.Page, PageSize: filter.PageSize, TotalCount: total}, nil
}
