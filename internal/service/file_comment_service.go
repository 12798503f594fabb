package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/noah-isme/slack-archv/internal/models"
	"github.com/noah-isme/slack-archv/internal/transform"

	appErrors "github.com/noah-isme/slack-archv/pkg/errors"
)

// FileCommentService refreshes every stored file and replaces its comments.
type FileCommentService struct {
	tx      txProvider
	fetcher fileInfoFetcher
	files   fileRepository
	metrics *MetricsService
	logger  *zap.Logger
}

// NewFileCommentService constructs the comment syncer.
func NewFileCommentService(tx txProvider, fetcher fileInfoFetcher, files fileRepository, metrics *MetricsService, logger *zap.Logger) *FileCommentService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &FileCommentService{tx: tx, fetcher: fetcher, files: files, metrics: metrics, logger: logger}
}

// Sync fetches files.info for each stored file. Files that can no longer be
// fetched keep their stored comments.
func (s *FileCommentService) Sync(ctx context.Context) (*models.CollectionReport, error) {
	start := time.Now()
	ids, err := s.files.ListIDs(ctx)
	if err != nil {
		return nil, err
	}

	report := &models.CollectionReport{Name: "file_comments"}
	for _, id := range ids {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		info, err := s.fetcher.FileInfo(ctx, id)
		if err != nil {
			s.logger.Warn("file info unavailable", zap.String("file_id", id), zap.Error(err))
			continue
		}
		report.Fetched += len(info.Comments)

		file, err := transform.File(info.File)
		if err != nil || file.ID != id {
			report.Skipped++
			s.logger.Warn("skipping malformed file", zap.String("file_id", id), zap.Error(err))
			continue
		}

		comments := make([]models.FileComment, 0, len(info.Comments))
		for _, raw := range info.Comments {
			comment, err := transform.FileComment(raw, id)
			if err != nil {
				if !errors.Is(err, appErrors.ErrMalformedRecord) {
					return nil, err
				}
				report.Skipped++
				s.logger.Warn("skipping malformed comment", zap.String("file_id", id), zap.Error(err))
				continue
			}
			comments = append(comments, comment)
		}

		stored, err := s.replace(ctx, file, comments)
		if err != nil {
			return nil, err
		}
		report.Stored += stored
	}

	s.metrics.ObserveSync(report.Name, time.Since(start))
	s.metrics.RecordSkipped(report.Name, report.Skipped)
	s.logger.Info("collection synced",
		zap.String("collection", report.Name),
		zap.Int("files", len(ids)),
		zap.Int64("stored", report.Stored),
		zap.Int("skipped", report.Skipped))
	return report, nil
}

func (s *FileCommentService) replace(ctx context.Context, file models.File, comments []models.FileComment) (stored int64, err error) {
	tx, err := s.tx.BeginTxx(ctx, nil)
	if err != nil {
		return 0, fmt.Errorf("begin comments of %s: %w", file.ID, err)
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback()
		}
	}()

	if err = s.files.Upsert(ctx, tx, file); err != nil {
		return 0, err
	}
	if stored, err = s.files.ReplaceComments(ctx, tx, file.ID, comments); err != nil {
		return 0, err
	}
	if err = tx.Commit(); err != nil {
		return 0, fmt.Errorf("commit comments of %s: %w", file.ID, err)
	}
	return stored, nil
}
