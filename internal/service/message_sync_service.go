package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/noah-isme/slack-archv/internal/models"
	"github.com/noah-isme/slack-archv/internal/transform"
	"github.com/noah-isme/slack-archv/pkg/database"
	"github.com/noah-isme/slack-archv/pkg/slack"

	appErrors "github.com/noah-isme/slack-archv/pkg/errors"
)

// MessageSyncConfig tunes history paging.
type MessageSyncConfig struct {
	PageSize int
	// DiffLookbackPages bounds the edit pass; 0 walks the whole history.
	DiffLookbackPages int
}

// MessageSyncService brings one channel's stored history up to date.
type MessageSyncService struct {
	tx       txProvider
	fetcher  historyFetcher
	messages messageRepository
	files    fileRepository
	resolver *ReferenceResolver
	metrics  *MetricsService
	cfg      MessageSyncConfig
	logger   *zap.Logger
	now      func() time.Time
}

// NewMessageSyncService constructs the channel syncer.
func NewMessageSyncService(
	tx txProvider,
	fetcher historyFetcher,
	messages messageRepository,
	files fileRepository,
	resolver *ReferenceResolver,
	metrics *MetricsService,
	cfg MessageSyncConfig,
	logger *zap.Logger,
) *MessageSyncService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &MessageSyncService{
		tx:       tx,
		fetcher:  fetcher,
		messages: messages,
		files:    files,
		resolver: resolver,
		metrics:  metrics,
		cfg:      cfg,
		logger:   logger,
		now:      time.Now,
	}
}

type modification struct {
	resolved       *ResolvedMessage
	prevAttachment *string
}

// SyncChannel appends messages newer than the stored boundary, then
// overwrites stored messages whose edit marker changed. Remote reads happen
// before the write transaction is opened.
func (s *MessageSyncService) SyncChannel(ctx context.Context, channel models.Channel) (*models.ChannelReport, error) {
	start := s.now()
	report := &models.ChannelReport{ChannelID: channel.ID, Name: channel.Name}
	log := s.logger.With(zap.String("channel_id", channel.ID), zap.String("channel", channel.Name))

	existing, err := s.messages.CountByChannel(ctx, channel.ID)
	if err != nil {
		return nil, err
	}
	report.Existing = existing

	boundary, hasBoundary, err := s.messages.LatestTimestamp(ctx, channel.ID)
	if err != nil {
		return nil, err
	}
	var boundaryKey int64
	if hasBoundary {
		if boundaryKey, err = slack.SortKey(boundary); err != nil {
			return nil, fmt.Errorf("parse stored boundary %q of %s: %w", boundary, channel.ID, err)
		}
	}

	inserts, err := s.collectNew(ctx, channel, boundary, boundaryKey, hasBoundary, report, log)
	if err != nil {
		return nil, err
	}

	var updates []modification
	if hasBoundary {
		if updates, err = s.collectEdits(ctx, channel, boundaryKey, report, log); err != nil {
			return nil, err
		}
	}

	if len(inserts) > 0 || len(updates) > 0 {
		if err := s.write(ctx, channel, inserts, updates, report); err != nil {
			return nil, err
		}
	}

	report.Duration = s.now().Sub(start)
	s.metrics.ObserveSync("messages", report.Duration)
	s.metrics.RecordMessages(report.Added, report.Modified)
	s.metrics.RecordSkipped("messages", report.Skipped)
	s.metrics.RecordIncompleteReactions(report.IncompleteReactions)

	return report, nil
}

// collectNew walks from the newest message back to the boundary. Every record
// at or before the boundary is discarded, even if the remote returned it.
func (s *MessageSyncService) collectNew(ctx context.Context, channel models.Channel, boundary string, boundaryKey int64, hasBoundary bool, report *models.ChannelReport, log *zap.Logger) ([]*ResolvedMessage, error) {
	req := slack.HistoryRequest{Channel: channel.ID, Oldest: boundary, Limit: s.cfg.PageSize}
	walker := NewHistoryWalker(s.fetcher, req, 0)

	var out []*ResolvedMessage
	seen := make(map[int64]struct{})
	for walker.Next(ctx) {
		for _, raw := range walker.Page() {
			key, err := slack.SortKey(raw.String("ts"))
			if err != nil {
				s.skip(report, log, raw, err)
				continue
			}
			if hasBoundary && key <= boundaryKey {
				continue
			}
			if _, dup := seen[key]; dup {
				continue
			}
			seen[key] = struct{}{}

			resolved, err := s.resolver.Resolve(raw, channel.ID)
			if err != nil {
				if errors.Is(err, appErrors.ErrMalformedRecord) {
					s.skip(report, log, raw, err)
					continue
				}
				return nil, err
			}
			out = append(out, resolved)
		}
	}
	if err := walker.Err(); err != nil {
		return nil, err
	}
	return out, nil
}

// collectEdits walks the stored range and returns records whose edit marker
// differs from the stored row.
func (s *MessageSyncService) collectEdits(ctx context.Context, channel models.Channel, boundaryKey int64, report *models.ChannelReport, log *zap.Logger) ([]modification, error) {
	// latest is exclusive, so step one microsecond past the boundary.
	req := slack.HistoryRequest{Channel: channel.ID, Latest: slack.FormatSortKey(boundaryKey + 1), Limit: s.cfg.PageSize}
	walker := NewHistoryWalker(s.fetcher, req, s.cfg.DiffLookbackPages)

	var out []modification
	for walker.Next(ctx) {
		page := walker.Page()
		stamps := make([]string, 0, len(page))
		for _, raw := range page {
			if ts := raw.String("ts"); ts != "" {
				stamps = append(stamps, ts)
			}
		}
		stored, err := s.messages.FindByTimestamps(ctx, channel.ID, stamps)
		if err != nil {
			return nil, err
		}

		for _, raw := range page {
			current, ok := stored[raw.String("ts")]
			if !ok {
				continue
			}
			marker, err := transform.EditMarker(raw)
			if err != nil {
				s.skip(report, log, raw, err)
				continue
			}
			if marker == current.EditMarker() {
				continue
			}

			resolved, err := s.resolver.Resolve(raw, channel.ID)
			if err != nil {
				if errors.Is(err, appErrors.ErrMalformedRecord) {
					s.skip(report, log, raw, err)
					continue
				}
				return nil, err
			}
			resolved.Message.ID = current.ID
			out = append(out, modification{resolved: resolved, prevAttachment: current.AttachmentID})
		}
	}
	if err := walker.Err(); err != nil {
		return nil, err
	}

	report.DiffTruncated = walker.Truncated()
	if report.DiffTruncated {
		log.Info("edit pass stopped at lookback bound", zap.Int("pages", walker.Pages()))
	}
	return out, nil
}

func (s *MessageSyncService) write(ctx context.Context, channel models.Channel, inserts []*ResolvedMessage, updates []modification, report *models.ChannelReport) (err error) {
	tx, err := s.tx.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin channel %s: %w", channel.ID, err)
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback()
		}
	}()

	now := s.now().UTC()
	rows := make([]models.Message, 0, len(inserts))
	for _, resolved := range inserts {
		var msg models.Message
		if msg, err = s.resolver.Persist(ctx, tx, resolved); err != nil {
			return err
		}
		msg.ID = uuid.NewString()
		msg.UpdatedAt = now
		rows = append(rows, msg)
	}

	if _, err = s.messages.BulkInsert(ctx, tx, rows); err != nil {
		if database.IsUniqueViolation(err) {
			err = appErrors.Wrap(err, appErrors.ErrDuplicateMessage.Code, appErrors.ErrDuplicateMessage.Status,
				fmt.Sprintf("duplicate message in channel %s", channel.ID))
		}
		return err
	}

	for _, mod := range updates {
		var msg models.Message
		if msg, err = s.resolver.Persist(ctx, tx, mod.resolved); err != nil {
			return err
		}
		msg.UpdatedAt = now
		if err = s.messages.Update(ctx, tx, msg); err != nil {
			return fmt.Errorf("overwrite message %s: %w", msg.TS, err)
		}
		if mod.prevAttachment != nil {
			if err = s.files.DeleteAttachment(ctx, tx, *mod.prevAttachment); err != nil {
				return err
			}
		}
	}

	incomplete := 0
	for _, resolved := range inserts {
		var n int
		if n, err = s.resolver.PersistReactions(ctx, tx, resolved); err != nil {
			return err
		}
		incomplete += n
	}
	for _, mod := range updates {
		var n int
		if n, err = s.resolver.PersistReactions(ctx, tx, mod.resolved); err != nil {
			return err
		}
		incomplete += n
	}

	if err = tx.Commit(); err != nil {
		return fmt.Errorf("commit channel %s: %w", channel.ID, err)
	}

	report.Added = len(rows)
	report.Modified = len(updates)
	report.IncompleteReactions = incomplete
	return nil
}

func (s *MessageSyncService) skip(report *models.ChannelReport, log *zap.Logger, raw slack.Record, err error) {
	report.Skipped++
	log.Warn("skipping malformed message", zap.String("ts", raw.String("ts")), zap.Error(err))
}
