package main

import (
	"fmt"

	"github.com/jmoiron/sqlx"
	"go.uber.org/zap"

	"github.com/noah-isme/slack-archv/internal/repository"
	"github.com/noah-isme/slack-archv/internal/service"
	"github.com/noah-isme/slack-archv/pkg/config"
	"github.com/noah-isme/slack-archv/pkg/database"
	"github.com/noah-isme/slack-archv/pkg/logger"
	"github.com/noah-isme/slack-archv/pkg/slack"
	"github.com/noah-isme/slack-archv/pkg/storage"
)

// app holds the collaborators shared by every command.
type app struct {
	cfg     *config.Config
	logger  *zap.Logger
	db      *sqlx.DB
	metrics *service.MetricsService

	schema    *repository.Schema
	info      *repository.InformationRepository
	users     *repository.UserRepository
	channels  *repository.ChannelRepository
	messages  *repository.MessageRepository
	files     *repository.FileRepository
	reactions *repository.ReactionRepository
	stars     *repository.StarRepository
	emoji     *repository.EmojiRepository
}

func newApp(path string) (*app, error) {
	cfg, err := config.Load(path)
	if err != nil {
		return nil, fmt.Errorf("load config: %w", err)
	}

	logr, err := logger.New(cfg)
	if err != nil {
		return nil, fmt.Errorf("init logger: %w", err)
	}

	db, err := database.Open(cfg.Database)
	if err != nil {
		_ = logr.Sync()
		return nil, err
	}

	maxParams := cfg.Database.MaxParams
	return &app{
		cfg:       cfg,
		logger:    logr,
		db:        db,
		metrics:   service.NewMetricsService(),
		schema:    repository.NewSchema(db),
		info:      repository.NewInformationRepository(db),
		users:     repository.NewUserRepository(db, maxParams),
		channels:  repository.NewChannelRepository(db, maxParams),
		messages:  repository.NewMessageRepository(db, maxParams),
		files:     repository.NewFileRepository(db, maxParams),
		reactions: repository.NewReactionRepository(db, maxParams),
		stars:     repository.NewStarRepository(db, maxParams),
		emoji:     repository.NewEmojiRepository(db, maxParams),
	}, nil
}

func (a *app) Close() {
	if err := a.db.Close(); err != nil {
		a.logger.Warn("close database", zap.Error(err))
	}
	_ = a.logger.Sync()
}

func (a *app) slackClient() *slack.Client {
	return slack.NewClient(a.cfg.Slack.Token, slack.ClientOptions{
		BaseURL:       a.cfg.Slack.BaseURL,
		Timeout:       a.cfg.Slack.Timeout,
		RetryAttempts: a.cfg.Slack.RetryAttempts,
		RetryDelay:    a.cfg.Slack.RetryDelay,
		Logger:        a.logger.Named("slack"),
		OnRequest:     a.metrics.ObserveAPIRequest,
	})
}

func (a *app) archiver() (*service.ArchiveService, error) {
	if err := a.cfg.RequireToken(); err != nil {
		return nil, err
	}
	client := a.slackClient()
	log := a.logger.Named("sync")

	resolver := service.NewReferenceResolver(a.files, a.reactions, log)
	workspace := service.NewWorkspaceService(a.db, a.info, log)
	directory := service.NewDirectoryService(a.db, client, a.users, a.channels, a.emoji, a.metrics, a.cfg.Slack.ChannelTypes, log)
	messages := service.NewMessageSyncService(a.db, client, a.messages, a.files, resolver, a.metrics, service.MessageSyncConfig{
		PageSize:          a.cfg.Slack.PageSize,
		DiffLookbackPages: a.cfg.Sync.DiffLookbackPages,
	}, log)
	comments := service.NewFileCommentService(a.db, client, a.files, a.metrics, log)
	stars := service.NewStarSyncService(a.db, client, a.users, a.channels, a.stars, a.metrics, log)

	return service.NewArchiveService(client, a.schema, workspace, directory, messages, comments, stars, a.metrics, service.ArchiveOptions{
		AllowWorkspaceOverride: a.cfg.Sync.AllowWorkspaceOverride,
		FileComments:           a.cfg.Sync.FileComments,
		Stars:                  a.cfg.Sync.Stars,
		MetricsTextfile:        a.cfg.Metrics.Textfile,
	}, log), nil
}

func (a *app) browser() *service.BrowseService {
	return service.NewBrowseService(a.info, a.channels, a.messages, a.users, a.emoji, a.files, a.reactions)
}

func (a *app) exporter() (*service.ExportService, *storage.LocalStorage, error) {
	store, err := storage.NewLocalStorage(a.cfg.Export.Dir)
	if err != nil {
		return nil, nil, err
	}
	return service.NewExportService(a.channels, a.messages, a.users, store, a.logger.Named("export"), nil, nil), store, nil
}
