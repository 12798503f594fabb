package service

import (
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMetricsServiceSnapshot(t *testing.T) {
	m := NewMetricsService()
	m.ObserveAPIRequest("conversations.history", nil)
	m.ObserveAPIRequest("conversations.history", errors.New("ratelimited"))
	m.RecordMessages(5, 2)
	m.RecordSkipped("users", 1)
	m.RecordSkipped("users", 0)
	m.RecordIncompleteReactions(3)
	m.ObserveHTTPRequest("GET", "/stats", 200, 20*time.Millisecond)
	m.ObserveHTTPRequest("GET", "/stats", 200, 40*time.Millisecond)

	snap := m.Snapshot()
	assert.EqualValues(t, 2, snap.APIRequests)
	assert.EqualValues(t, 1, snap.APIErrors)
	assert.EqualValues(t, 5, snap.MessagesAdded)
	assert.EqualValues(t, 2, snap.MessagesModified)
	assert.EqualValues(t, 1, snap.RecordsSkipped)
	assert.EqualValues(t, 3, snap.IncompleteReactions)
	assert.EqualValues(t, 2, snap.RequestsTotal)
	assert.InDelta(t, 30, snap.AverageRequestDurationMs, 0.001)
}

func TestMetricsServiceWriteTextfile(t *testing.T) {
	m := NewMetricsService()
	m.RecordMessages(1, 0)
	m.MarkRunFinished(time.Unix(1700000000, 0))

	path := filepath.Join(t.TempDir(), "archv.prom")
	require.NoError(t, m.WriteTextfile(path))

	body, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Contains(t, string(body), `archive_messages_total{change="added"} 1`)
	assert.Contains(t, string(body), "archive_last_run_timestamp_seconds 1.7e+09")

	assert.NoError(t, m.WriteTextfile(""))
}

func TestMetricsServiceNilIsSafe(t *testing.T) {
	var m *MetricsService
	m.ObserveAPIRequest("auth.test", nil)
	m.RecordMessages(1, 1)
	m.MarkRunFinished(time.Now())
	assert.NoError(t, m.WriteTextfile("/nonexistent/archv.prom"))
	assert.Zero(t, m.Snapshot().APIRequests)
}
