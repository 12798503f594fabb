package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/noah-isme/slack-archv/internal/models"
	"github.com/noah-isme/slack-archv/internal/transform"
)

const starPageSize = 100

type conversationLister interface {
	List(ctx context.Context) ([]models.Channel, error)
}

// StarSyncService mirrors every human user's public stars.
type StarSyncService struct {
	tx       txProvider
	fetcher  starFetcher
	users    userRepository
	channels conversationLister
	stars    starRepository
	metrics *MetricsService
	logger  *zap.Logger
}

// NewStarSyncService constructs the star syncer.
func NewStarSyncService(tx txProvider, fetcher starFetcher, users userRepository, channels conversationLister, stars starRepository, metrics *MetricsService, logger *zap.Logger) *StarSyncService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &StarSyncService{tx: tx, fetcher: fetcher, users: users, channels: channels, stars: stars, metrics: metrics, logger: logger}
}

// Sync replaces each user's stars. A user whose stars cannot be fetched keeps
// the stored set and the run continues. Stars on stored conversations that
// are not public are dropped.
func (s *StarSyncService) Sync(ctx context.Context) (*models.CollectionReport, error) {
	start := time.Now()
	users, err := s.users.ListHumans(ctx)
	if err != nil {
		return nil, err
	}
	conversations, err := s.conversations(ctx)
	if err != nil {
		return nil, err
	}

	report := &models.CollectionReport{Name: "stars"}
	for _, user := range users {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		stars, fetched, skipped, err := s.fetch(ctx, user.ID, conversations)
		report.Fetched += fetched
		report.Skipped += skipped
		if err != nil {
			s.logger.Warn("stars unavailable", zap.String("user_id", user.ID), zap.Error(err))
			continue
		}

		removed, stored, err := s.replace(ctx, user.ID, stars)
		if err != nil {
			return nil, err
		}
		report.Removed += removed
		report.Stored += stored
	}

	s.metrics.ObserveSync(report.Name, time.Since(start))
	s.metrics.RecordSkipped(report.Name, report.Skipped)
	s.logger.Info("collection synced",
		zap.String("collection", report.Name),
		zap.Int("users", len(users)),
		zap.Int64("stored", report.Stored),
		zap.Int("skipped", report.Skipped))
	return report, nil
}

func (s *StarSyncService) conversations(ctx context.Context) (map[string]models.Conversation, error) {
	out := make(map[string]models.Conversation)
	if s.channels == nil {
		return out, nil
	}
	channels, err := s.channels.List(ctx)
	if err != nil {
		return nil, fmt.Errorf("list conversations: %w", err)
	}
	for _, channel := range channels {
		out[channel.ID] = channel.Conversation()
	}
	return out, nil
}

// starConversation returns the channel a channel or message star lives in.
func starConversation(star models.Star) string {
	switch star.ItemType {
	case models.SubjectChannel:
		return star.ItemID
	case models.SubjectMessage:
		id, _, _ := strings.Cut(star.ItemID, "/")
		return id
	}
	return ""
}

func (s *StarSyncService) fetch(ctx context.Context, userID string, conversations map[string]models.Conversation) ([]models.Star, int, int, error) {
	var (
		out     []models.Star
		fetched int
		skipped int
	)
	walker := NewStarWalker(s.fetcher, userID, starPageSize)
	for walker.Next(ctx) {
		for _, item := range walker.Items() {
			fetched++
			star, err := transform.Star(item, userID)
			if err != nil {
				if !errors.Is(err, models.ErrPrivateSubject) {
					skipped++
					s.logger.Warn("skipping malformed star", zap.String("user_id", userID), zap.Error(err))
				}
				continue
			}
			if conv, ok := conversations[starConversation(star)]; ok && !conv.Public() {
				continue
			}
			out = append(out, star)
		}
	}
	return out, fetched, skipped, walker.Err()
}

func (s *StarSyncService) replace(ctx context.Context, userID string, stars []models.Star) (removed, stored int64, err error) {
	tx, err := s.tx.BeginTxx(ctx, nil)
	if err != nil {
		return 0, 0, fmt.Errorf("begin stars of %s: %w", userID, err)
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback()
		}
	}()

	if removed, stored, err = s.stars.ReplaceForUser(ctx, tx, userID, stars); err != nil {
		return 0, 0, err
	}
	if err = tx.Commit(); err != nil {
		return 0, 0, fmt.Errorf("commit stars of %s: %w", userID, err)
	}
	return removed, stored, nil
}
