package service

import (
	"context"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/noah-isme/slack-archv/internal/models"
	"github.com/noah-isme/slack-archv/pkg/export"
	"github.com/noah-isme/slack-archv/pkg/slack"

	appErrors "github.com/noah-isme/slack-archv/pkg/errors"
)

type transcriptChannels interface {
	FindByID(ctx context.Context, id string) (*models.Channel, error)
	FindByName(ctx context.Context, name string) (*models.Channel, error)
}

type transcriptMessages interface {
	ListByChannel(ctx context.Context, filter models.MessageFilter) ([]models.Message, error)
}

type userNames interface {
	DisplayNames(ctx context.Context) (map[string]string, error)
}

type fileStorage interface {
	Save(filename string, data []byte) (string, error)
	CleanupOlderThan(ttl time.Duration) ([]string, error)
}

type csvRenderer interface {
	Render(data export.Dataset) ([]byte, error)
}

type pdfRenderer interface {
	Render(data export.Dataset, title string) ([]byte, error)
}

// ExportRequest selects a channel transcript. Channel is an id or a name.
type ExportRequest struct {
	Channel string
	Format  models.ExportFormat
	Since   time.Time
	Until   time.Time
}

// ExportResult captures successful generation metadata.
type ExportResult struct {
	RelativePath string
	Format       models.ExportFormat
	Messages     int
}

var transcriptHeaders = []string{"Time", "User", "Type", "Text", "File"}

// ExportService renders stored channel transcripts.
type ExportService struct {
	channels transcriptChannels
	messages transcriptMessages
	users    userNames
	storage  fileStorage
	csv      csvRenderer
	pdf      pdfRenderer
	logger   *zap.Logger
	now      func() time.Time
}

// NewExportService constructs an ExportService.
func NewExportService(channels transcriptChannels, messages transcriptMessages, users userNames, storage fileStorage, logger *zap.Logger, csv csvRenderer, pdf pdfRenderer) *ExportService {
	if logger == nil {
		logger = zap.NewNop()
	}
	if csv == nil {
		csv = export.NewCSVExporter()
	}
	if pdf == nil {
		pdf = export.NewPDFExporter()
	}
	return &ExportService{
		channels: channels,
		messages: messages,
		users:    users,
		storage:  storage,
		csv:      csv,
		pdf:      pdf,
		logger:   logger,
		now:      time.Now,
	}
}

// Generate renders the requested transcript and stores it.
func (s *ExportService) Generate(ctx context.Context, req ExportRequest) (*ExportResult, error) {
	channel, err := s.findChannel(ctx, req.Channel)
	if err != nil {
		return nil, err
	}

	filter := models.MessageFilter{ChannelID: channel.ID}
	if !req.Since.IsZero() {
		filter.Since = req.Since.UnixMicro()
	}
	if !req.Until.IsZero() {
		filter.Until = req.Until.UnixMicro()
	}
	messages, err := s.messages.ListByChannel(ctx, filter)
	if err != nil {
		return nil, err
	}
	names, err := s.users.DisplayNames(ctx)
	if err != nil {
		return nil, err
	}

	dataset := buildTranscript(messages, names)
	title := fmt.Sprintf("#%s transcript", channel.Name)

	var payload []byte
	switch req.Format {
	case models.ExportFormatCSV:
		payload, err = s.csv.Render(dataset)
	case models.ExportFormatPDF:
		payload, err = s.pdf.Render(dataset, title)
	default:
		return nil, appErrors.Clone(appErrors.ErrValidation, fmt.Sprintf("unsupported format %q", req.Format))
	}
	if err != nil {
		return nil, err
	}

	relPath, err := s.storage.Save(s.buildFilename(channel, req.Format), payload)
	if err != nil {
		return nil, err
	}

	s.logger.Info("transcript exported",
		zap.String("channel_id", channel.ID),
		zap.String("path", relPath),
		zap.Int("messages", len(messages)))

	return &ExportResult{RelativePath: relPath, Format: req.Format, Messages: len(messages)}, nil
}

// Cleanup removes stored exports older than ttl.
func (s *ExportService) Cleanup(ttl time.Duration) ([]string, error) {
	if ttl <= 0 {
		return nil, nil
	}
	return s.storage.CleanupOlderThan(ttl)
}

func (s *ExportService) findChannel(ctx context.Context, ref string) (*models.Channel, error) {
	ref = strings.TrimSpace(ref)
	if ref == "" {
		return nil, appErrors.Clone(appErrors.ErrValidation, "channel is required")
	}
	if strings.HasPrefix(ref, "#") {
		return s.channels.FindByName(ctx, ref)
	}
	channel, err := s.channels.FindByID(ctx, ref)
	if err == nil {
		return channel, nil
	}
	if appErr := appErrors.FromError(err); appErr.Code != appErrors.ErrNotFound.Code {
		return nil, err
	}
	return s.channels.FindByName(ctx, ref)
}

func (s *ExportService) buildFilename(channel *models.Channel, format models.ExportFormat) string {
	timestamp := s.now().UTC().Format("20060102_150405")
	return fmt.Sprintf("%s_%s.%s", sanitizeFilename(channel.Name), timestamp, format)
}

func sanitizeFilename(raw string) string {
	if raw == "" {
		return "channel"
	}
	replacer := strings.NewReplacer(" ", "_", "/", "-", "\\", "-", ":", "-", "..", ".", "#", "")
	result := replacer.Replace(raw)
	if len(result) > 100 {
		return result[:100]
	}
	return result
}

func buildTranscript(messages []models.Message, names map[string]string) export.Dataset {
	rows := make([]map[string]string, 0, len(messages))
	for _, msg := range messages {
		user := deref(msg.UserID)
		if name, ok := names[user]; ok {
			user = name
		}
		rows = append(rows, map[string]string{
			"Time": formatTranscriptTime(msg.TS),
			"User": user,
			"Type": deref(msg.Subtype),
			"Text": msg.Text,
			"File": deref(msg.FileID),
		})
	}
	return export.Dataset{
		Headers: transcriptHeaders,
		Rows:    rows,
		Weights: []float64{1.3, 1, 0.8, 5, 0.9},
	}
}

func formatTranscriptTime(ts string) string {
	t, err := slack.ParseTimestamp(ts)
	if err != nil {
		return ts
	}
	return t.UTC().Format(time.RFC3339)
}

func deref(ptr *string) string {
	if ptr == nil {
		return ""
	}
	return *ptr
}
