package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/noah-isme/slack-archv/internal/models"
	"github.com/noah-isme/slack-archv/internal/transform"
	"github.com/noah-isme/slack-archv/pkg/slack"
)

// DirectoryService mirrors the workspace directory: users, channels with
// their members, and custom emoji. Each collection is fully replaced.
type DirectoryService struct {
	tx           txProvider
	fetcher      directoryFetcher
	users        userRepository
	channels     channelRepository
	emoji        emojiRepository
	metrics      *MetricsService
	channelTypes []string
	logger       *zap.Logger
}

// NewDirectoryService constructs the directory syncer. channelTypes are
// conversations.list types; empty means public and private channels.
func NewDirectoryService(
	tx txProvider,
	fetcher directoryFetcher,
	users userRepository,
	channels channelRepository,
	emoji emojiRepository,
	metrics *MetricsService,
	channelTypes []string,
	logger *zap.Logger,
) *DirectoryService {
	if logger == nil {
		logger = zap.NewNop()
	}
	if len(channelTypes) == 0 {
		channelTypes = []string{models.ChannelKindChannel.ListTypes(), models.ChannelKindGroup.ListTypes()}
	}
	return &DirectoryService{
		tx:           tx,
		fetcher:      fetcher,
		users:        users,
		channels:     channels,
		emoji:        emoji,
		metrics:      metrics,
		channelTypes: channelTypes,
		logger:       logger,
	}
}

// SyncUsers replaces the stored users with the remote directory.
func (s *DirectoryService) SyncUsers(ctx context.Context) (*models.CollectionReport, error) {
	start := time.Now()
	raw, err := s.fetcher.ListUsers(ctx)
	if err != nil {
		return nil, fmt.Errorf("list users: %w", err)
	}

	report := &models.CollectionReport{Name: "users", Fetched: len(raw)}
	users := make([]models.User, 0, len(raw))
	for _, rec := range raw {
		user, err := transform.User(rec)
		if err != nil {
			s.skip(report, rec, err)
			continue
		}
		users = append(users, user)
	}

	err = s.replace(ctx, report, func(ctx context.Context, tx txExec) (int64, int64, error) {
		removed, err := s.users.DeleteAll(ctx, tx)
		if err != nil {
			return 0, 0, err
		}
		stored, err := s.users.BulkInsert(ctx, tx, users)
		return removed, stored, err
	})
	if err != nil {
		return nil, err
	}

	s.finish(report, start)
	return report, nil
}

// SyncChannels replaces stored channels and membership and returns the
// channels that were stored.
func (s *DirectoryService) SyncChannels(ctx context.Context) (*models.CollectionReport, []models.Channel, error) {
	start := time.Now()

	type listed struct {
		rec  slack.Record
		kind models.ChannelKind
	}
	var raw []listed
	for _, listType := range s.channelTypes {
		kind, ok := models.ChannelKindForListType(listType)
		if !ok {
			return nil, nil, fmt.Errorf("unsupported channel type %q", listType)
		}
		records, err := s.fetcher.ListChannels(ctx, kind.ListTypes())
		if err != nil {
			return nil, nil, fmt.Errorf("list %s: %w", listType, err)
		}
		for _, rec := range records {
			raw = append(raw, listed{rec: rec, kind: kind})
		}
	}

	report := &models.CollectionReport{Name: "channels", Fetched: len(raw)}
	channels := make([]models.Channel, 0, len(raw))
	var members []models.ChannelUser
	seen := make(map[string]struct{}, len(raw))
	for _, item := range raw {
		rec := item.rec
		channel, err := transform.Channel(rec)
		if err != nil {
			s.skip(report, rec, err)
			continue
		}
		// A private listing only returns private conversations.
		if !item.kind.Public() {
			channel.Kind = item.kind
		}
		if _, dup := seen[channel.ID]; dup {
			continue
		}
		seen[channel.ID] = struct{}{}

		ids, err := s.memberIDs(ctx, rec, channel)
		if err != nil {
			return nil, nil, err
		}
		channels = append(channels, channel)
		members = append(members, transform.ChannelMembers(channel.ID, ids)...)
	}

	err := s.replace(ctx, report, func(ctx context.Context, tx txExec) (int64, int64, error) {
		removed, err := s.channels.DeleteAll(ctx, tx)
		if err != nil {
			return 0, 0, err
		}
		stored, err := s.channels.BulkInsert(ctx, tx, channels)
		if err != nil {
			return 0, 0, err
		}
		if _, err := s.channels.BulkInsertMembers(ctx, tx, members); err != nil {
			return 0, 0, err
		}
		return removed, stored, nil
	})
	if err != nil {
		return nil, nil, err
	}

	s.finish(report, start)
	return report, channels, nil
}

// memberIDs prefers the member list embedded in the listing and falls back to
// conversations.members. A channel the token cannot read is stored without
// members.
func (s *DirectoryService) memberIDs(ctx context.Context, rec slack.Record, channel models.Channel) ([]string, error) {
	if rec.Has("members") {
		return rec.Strings("members"), nil
	}
	ids, err := s.fetcher.ChannelMembers(ctx, channel.ID)
	if err != nil {
		var apiErr *slack.APIError
		if errors.As(err, &apiErr) {
			s.logger.Warn("channel members unavailable",
				zap.String("channel_id", channel.ID), zap.String("code", apiErr.Code))
			return nil, nil
		}
		return nil, fmt.Errorf("list members of %s: %w", channel.ID, err)
	}
	return ids, nil
}

// SyncEmoji replaces the custom emoji list.
func (s *DirectoryService) SyncEmoji(ctx context.Context) (*models.CollectionReport, error) {
	start := time.Now()
	list, err := s.fetcher.ListEmoji(ctx)
	if err != nil {
		return nil, fmt.Errorf("list emoji: %w", err)
	}

	emoji := transform.Emoji(list)
	report := &models.CollectionReport{Name: "emoji", Fetched: len(list), Skipped: len(list) - len(emoji)}

	err = s.replace(ctx, report, func(ctx context.Context, tx txExec) (int64, int64, error) {
		removed, err := s.emoji.DeleteAll(ctx, tx)
		if err != nil {
			return 0, 0, err
		}
		stored, err := s.emoji.BulkInsert(ctx, tx, emoji)
		return removed, stored, err
	})
	if err != nil {
		return nil, err
	}

	s.finish(report, start)
	return report, nil
}

func (s *DirectoryService) replace(ctx context.Context, report *models.CollectionReport, fn func(context.Context, txExec) (int64, int64, error)) (err error) {
	tx, err := s.tx.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin %s: %w", report.Name, err)
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback()
		}
	}()

	removed, stored, err := fn(ctx, tx)
	if err != nil {
		return fmt.Errorf("replace %s: %w", report.Name, err)
	}
	if err = tx.Commit(); err != nil {
		return fmt.Errorf("commit %s: %w", report.Name, err)
	}

	report.Removed = removed
	report.Stored = stored
	return nil
}

func (s *DirectoryService) skip(report *models.CollectionReport, rec slack.Record, err error) {
	report.Skipped++
	s.logger.Warn("skipping malformed record",
		zap.String("collection", report.Name),
		zap.String("id", rec.String("id")),
		zap.Error(err))
}

func (s *DirectoryService) finish(report *models.CollectionReport, start time.Time) {
	s.metrics.ObserveSync(report.Name, time.Since(start))
	s.metrics.RecordSkipped(report.Name, report.Skipped)
	s.logger.Info("collection synced",
		zap.String("collection", report.Name),
		zap.Int("fetched", report.Fetched),
		zap.Int64("stored", report.Stored),
		zap.Int64("removed", report.Removed),
		zap.Int("skipped", report.Skipped))
}
