package models

import "time"

// CollectionReport summarizes a full-replace sync of one collection.
type CollectionReport struct {
	Name    string `json:"name"`
	Fetched int    `json:"fetched"`
	Stored  int64  `json:"stored"`
	Skipped int    `json:"skipped"`
	Removed int64  `json:"removed"`
}

// ChannelReport summarizes the incremental sync of one channel.
type ChannelReport struct {
	ChannelID           string        `json:"channel_id"`
	Name                string        `json:"name"`
	Existing            int           `json:"existing"`
	Added               int           `json:"added"`
	Modified            int           `json:"modified"`
	Skipped             int           `json:"skipped"`
	IncompleteReactions int           `json:"incomplete_reactions"`
	DiffTruncated       bool          `json:"diff_truncated"`
	Duration            time.Duration `json:"duration"`
}

// ChannelFailure records a channel whose sync was rolled back.
type ChannelFailure struct {
	ChannelID string `json:"channel_id"`
	Name      string `json:"name"`
	Error     string `json:"error"`
}

// RunReport is the outcome of one archive run.
type RunReport struct {
	WorkspaceID string             `json:"workspace_id"`
	Team        string             `json:"team"`
	StartedAt   time.Time          `json:"started_at"`
	FinishedAt  time.Time          `json:"finished_at"`
	Collections []CollectionReport `json:"collections"`
	Channels    []ChannelReport    `json:"channels"`
	Failures    []ChannelFailure   `json:"failures,omitempty"`
}

// Totals sums the per-channel message counters.
func (r *RunReport) Totals() (added, modified, skipped int) {
	for _, ch := range r.Channels {
		added += ch.Added
		modified += ch.Modified
		skipped += ch.Skipped
	}
	return added, modified, skipped
}

// SyncMetrics is a point-in-time view of the process counters.
type SyncMetrics struct {
	APIRequests              uint64    `json:"api_requests"`
	APIErrors                uint64    `json:"api_errors"`
	MessagesAdded            uint64    `json:"messages_added"`
	MessagesModified         uint64    `json:"messages_modified"`
	RecordsSkipped           uint64    `json:"records_skipped"`
	IncompleteReactions      uint64    `json:"incomplete_reactions"`
	RequestsTotal            uint64    `json:"requests_total"`
	AverageRequestDurationMs float64   `json:"average_request_duration_ms"`
	Goroutines               int       `json:"goroutines"`
	GeneratedAt              time.Time `json:"generated_at"`
}

// ArchiveStats describes the archive contents.
type ArchiveStats struct {
	WorkspaceID string           `json:"workspace_id"`
	Version     string           `json:"version"`
	Users       int              `json:"users"`
	Emoji       int              `json:"emoji"`
	Files       int              `json:"files"`
	Channels    []ChannelSummary `json:"channels"`
}

// ExportFormat selects how a transcript is rendered.
type ExportFormat string

const (
	ExportFormatCSV ExportFormat = "csv"
	ExportFormatPDF ExportFormat = "pdf"
)
