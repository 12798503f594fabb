package service

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/noah-isme/slack-archv/internal/models"
	"github.com/noah-isme/slack-archv/pkg/slack"

	appErrors "github.com/noah-isme/slack-archv/pkg/errors"
)

type schemaEnsurer interface {
	Ensure(ctx context.Context) error
}

type workspaceReconciler interface {
	Reconcile(ctx context.Context, identity slack.Record, override bool) error
}

type directorySyncer interface {
	SyncUsers(ctx context.Context) (*models.CollectionReport, error)
	SyncChannels(ctx context.Context) (*models.CollectionReport, []models.Channel, error)
	SyncEmoji(ctx context.Context) (*models.CollectionReport, error)
}

type channelSyncer interface {
	SyncChannel(ctx context.Context, channel models.Channel) (*models.ChannelReport, error)
}

type collectionSyncer interface {
	Sync(ctx context.Context) (*models.CollectionReport, error)
}

// ArchiveOptions toggles optional steps of a run.
type ArchiveOptions struct {
	AllowWorkspaceOverride bool
	FileComments           bool
	Stars                  bool
	MetricsTextfile        string
}

// ArchiveService runs one complete archive pass.
type ArchiveService struct {
	identity     identityFetcher
	schema       schemaEnsurer
	workspace    workspaceReconciler
	directory    directorySyncer
	messages     channelSyncer
	fileComments collectionSyncer
	stars        collectionSyncer
	metrics      *MetricsService
	opts         ArchiveOptions
	logger       *zap.Logger
	now          func() time.Time
}

// NewArchiveService wires the run steps. fileComments and stars may be nil
// when the matching option is off.
func NewArchiveService(
	identity identityFetcher,
	schema schemaEnsurer,
	workspace workspaceReconciler,
	directory directorySyncer,
	messages channelSyncer,
	fileComments collectionSyncer,
	stars collectionSyncer,
	metrics *MetricsService,
	opts ArchiveOptions,
	logger *zap.Logger,
) *ArchiveService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &ArchiveService{
		identity:     identity,
		schema:       schema,
		workspace:    workspace,
		directory:    directory,
		messages:     messages,
		fileComments: fileComments,
		stars:        stars,
		metrics:      metrics,
		opts:         opts,
		logger:       logger,
		now:          time.Now,
	}
}

// Run authenticates, ensures the schema, reconciles metadata, then syncs the
// directory, every channel and the optional collections in that order. The
// first failing step stops the run; the report covers what completed.
func (s *ArchiveService) Run(ctx context.Context) (*models.RunReport, error) {
	report := &models.RunReport{StartedAt: s.now().UTC()}

	identity, err := s.identity.AuthTest(ctx)
	if err != nil {
		if slack.IsAuthError(err) {
			return nil, appErrors.Wrap(err, appErrors.ErrAuthFailed.Code, appErrors.ErrAuthFailed.Status, appErrors.ErrAuthFailed.Message)
		}
		return nil, appErrors.Wrap(err, appErrors.ErrRemote.Code, appErrors.ErrRemote.Status, "auth.test failed")
	}
	report.WorkspaceID = identity.String(models.InfoKeyWorkspaceID)
	report.Team = identity.String("team")
	s.logger.Info("authenticated",
		zap.String("team", report.Team),
		zap.String("team_id", report.WorkspaceID),
		zap.String("user", identity.String("user")))

	if err := s.schema.Ensure(ctx); err != nil {
		return nil, err
	}
	if err := s.workspace.Reconcile(ctx, identity, s.opts.AllowWorkspaceOverride); err != nil {
		return nil, err
	}

	users, err := s.directory.SyncUsers(ctx)
	if err != nil {
		return report, err
	}
	report.Collections = append(report.Collections, *users)

	channelReport, channels, err := s.directory.SyncChannels(ctx)
	if err != nil {
		return report, err
	}
	report.Collections = append(report.Collections, *channelReport)

	emoji, err := s.directory.SyncEmoji(ctx)
	if err != nil {
		return report, err
	}
	report.Collections = append(report.Collections, *emoji)

	for _, channel := range channels {
		chReport, err := s.messages.SyncChannel(ctx, channel)
		if err != nil {
			s.logger.Error("channel sync failed",
				zap.String("channel_id", channel.ID),
				zap.String("channel", channel.Name),
				zap.Error(err))
			report.Failures = append(report.Failures, models.ChannelFailure{ChannelID: channel.ID, Name: channel.Name, Error: err.Error()})
			s.finish(report)
			return report, fmt.Errorf("sync channel %s: %w", channel.Name, err)
		}
		report.Channels = append(report.Channels, *chReport)
		s.logger.Info("channel synced",
			zap.String("channel_id", chReport.ChannelID),
			zap.String("channel", chReport.Name),
			zap.Int("existing", chReport.Existing),
			zap.Int("added", chReport.Added),
			zap.Int("modified", chReport.Modified),
			zap.Int("skipped", chReport.Skipped),
			zap.Bool("diff_truncated", chReport.DiffTruncated),
			zap.Duration("duration", chReport.Duration))
	}

	if s.opts.FileComments && s.fileComments != nil {
		comments, err := s.fileComments.Sync(ctx)
		if err != nil {
			return report, err
		}
		report.Collections = append(report.Collections, *comments)
	}

	if s.opts.Stars && s.stars != nil {
		stars, err := s.stars.Sync(ctx)
		if err != nil {
			return report, err
		}
		report.Collections = append(report.Collections, *stars)
	}

	s.finish(report)
	return report, nil
}

func (s *ArchiveService) finish(report *models.RunReport) {
	report.FinishedAt = s.now().UTC()
	added, modified, skipped := report.Totals()
	s.logger.Info("archive run finished",
		zap.Int("channels", len(report.Channels)),
		zap.Int("added", added),
		zap.Int("modified", modified),
		zap.Int("skipped", skipped),
		zap.Int("failed", len(report.Failures)),
		zap.Duration("duration", report.FinishedAt.Sub(report.StartedAt)))

	s.metrics.MarkRunFinished(report.FinishedAt)
	if err := s.metrics.WriteTextfile(s.opts.MetricsTextfile); err != nil {
		s.logger.Warn("metrics textfile not written", zap.Error(err))
	}
}
