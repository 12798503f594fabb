package service

import (
	"context"
	"errors"
	"os"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/noah-isme/slack-archv/internal/models"
	"github.com/noah-isme/slack-archv/pkg/export"
	"github.com/noah-isme/slack-archv/pkg/slack"
	"github.com/noah-isme/slack-archv/pkg/storage"

	appErrors "github.com/noah-isme/slack-archv/pkg/errors"
)

func newExportServiceForTest(t *testing.T) (*ExportService, *archive, *storage.LocalStorage) {
	t.Helper()
	a := newArchive(t)
	store, err := storage.NewLocalStorage(t.TempDir())
	require.NoError(t, err)
	svc := NewExportService(a.channels, a.messages, a.users, store, zap.NewNop(), export.NewCSVExporter(), export.NewPDFExporter())
	svc.now = func() time.Time { return time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC) }
	return svc, a, store
}

func seedTranscript(t *testing.T, a *archive) {
	t.Helper()
	remote := newFakeSlack()
	remote.users = []slack.Record{userRecord("U1", "alice", false)}
	remote.channels["public_channel"] = []slack.Record{{"id": "C1", "name": "general", "members": []any{"U1"}}}
	remote.post("C1", message("1700000000.000001", "U1", "first"))
	remote.post("C1", message("1700000060.000001", "U1", "second, with a comma"))
	remote.post("C1", message("1700000120.000001", "U9", "from a stranger"))

	directory := newDirectory(a, remote)
	_, err := directory.SyncUsers(context.Background())
	require.NoError(t, err)
	_, channels, err := directory.SyncChannels(context.Background())
	require.NoError(t, err)
	_, err = newMessageSync(a, remote, MessageSyncConfig{}).SyncChannel(context.Background(), channels[0])
	require.NoError(t, err)
}

func TestExportServiceGenerateCSV(t *testing.T) {
	svc, a, store := newExportServiceForTest(t)
	seedTranscript(t, a)

	result, err := svc.Generate(context.Background(), ExportRequest{Channel: "#general", Format: models.ExportFormatCSV})
	require.NoError(t, err)
	assert.Equal(t, 3, result.Messages)
	assert.Equal(t, "general_20240501_120000.csv", result.RelativePath)

	data, err := os.ReadFile(store.Path(result.RelativePath))
	require.NoError(t, err)
	lines := strings.Split(strings.TrimSpace(string(data)), "\n")
	require.Len(t, lines, 4)
	assert.Equal(t, "Time,User,Type,Text,File", lines[0])
	assert.Contains(t, lines[1], "alice,,first")
	assert.Contains(t, lines[2], `"second, with a comma"`)
	assert.Contains(t, lines[3], "U9")
}

func TestExportServiceGeneratePDFWithWindow(t *testing.T) {
	svc, a, store := newExportServiceForTest(t)
	seedTranscript(t, a)

	result, err := svc.Generate(context.Background(), ExportRequest{
		Channel: "C1",
		Format:  models.ExportFormatPDF,
		Since:   time.Unix(1700000030, 0),
	})
	require.NoError(t, err)
	assert.Equal(t, 2, result.Messages)

	info, err := os.Stat(store.Path(result.RelativePath))
	require.NoError(t, err)
	assert.Greater(t, info.Size(), int64(0))
}

func TestExportServiceUnknownChannel(t *testing.T) {
	svc, _, _ := newExportServiceForTest(t)

	_, err := svc.Generate(context.Background(), ExportRequest{Channel: "nope", Format: models.ExportFormatCSV})
	require.Error(t, err)
	assert.True(t, errors.Is(err, appErrors.ErrNotFound))
}

func TestExportServiceRejectsFormat(t *testing.T) {
	svc, a, _ := newExportServiceForTest(t)
	seedTranscript(t, a)

	_, err := svc.Generate(context.Background(), ExportRequest{Channel: "C1", Format: "xlsx"})
	require.Error(t, err)
	assert.True(t, errors.Is(err, appErrors.ErrValidation))
}
