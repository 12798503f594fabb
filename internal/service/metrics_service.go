package service

import (
	"fmt"
	"net/http"
	"runtime"
	"sync/atomic"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/noah-isme/slack-archv/internal/models"
)

// MetricsService encapsulates Prometheus instrumentation for sync runs and the browse API.
type MetricsService struct {
	registry            *prometheus.Registry
	handler             http.Handler
	requestDuration     *prometheus.HistogramVec
	requestTotal        *prometheus.CounterVec
	apiRequests         *prometheus.CounterVec
	syncDuration        *prometheus.HistogramVec
	messages            *prometheus.CounterVec
	skipped             *prometheus.CounterVec
	incompleteReactions prometheus.Counter
	lastRun             prometheus.Gauge

	apiRequestCount   uint64
	apiErrorCount     uint64
	addedCount        uint64
	modifiedCount     uint64
	skippedCount      uint64
	incompleteCount   uint64
	requestCount      uint64
	requestDurationNs uint64
}

// NewMetricsService registers core Prometheus collectors.
func NewMetricsService() *MetricsService {
	registry := prometheus.NewRegistry()

	requestDuration := prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "http_request_duration_seconds",
		Help:    "Duration of HTTP requests in seconds",
		Buckets: prometheus.DefBuckets,
	}, []string{"method", "path", "status"})

	requestTotal := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "http_requests_total",
		Help: "Total number of HTTP requests",
	}, []string{"method", "path", "status"})

	apiRequests := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "slack_api_requests_total",
		Help: "Web API requests by method and outcome",
	}, []string{"method", "outcome"})

	syncDuration := prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "archive_sync_duration_seconds",
		Help:    "Duration of one collection or channel sync",
		Buckets: prometheus.ExponentialBuckets(0.05, 2, 12),
	}, []string{"collection"})

	messages := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "archive_messages_total",
		Help: "Messages written by kind of change",
	}, []string{"change"})

	skipped := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "archive_records_skipped_total",
		Help: "Malformed records skipped by collection",
	}, []string{"collection"})

	incompleteReactions := prometheus.NewCounter(prometheus.CounterOpts{
		Name: "archive_incomplete_reactions_total",
		Help: "Reactions stored with fewer users than their count",
	})

	lastRun := prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "archive_last_run_timestamp_seconds",
		Help: "Unix time the last sync run finished",
	})

	goroutines := prometheus.NewGaugeFunc(prometheus.GaugeOpts{
		Name: "goroutines_total",
		Help: "Total number of goroutines",
	}, func() float64 {
		return float64(runtime.NumGoroutine())
	})

	registry.MustRegister(requestDuration, requestTotal, apiRequests, syncDuration, messages, skipped, incompleteReactions, lastRun, goroutines)

	handler := promhttp.HandlerFor(registry, promhttp.HandlerOpts{})

	return &MetricsService{
		registry:            registry,
		handler:             handler,
		requestDuration:     requestDuration,
		requestTotal:        requestTotal,
		apiRequests:         apiRequests,
		syncDuration:        syncDuration,
		messages:            messages,
		skipped:             skipped,
		incompleteReactions: incompleteReactions,
		lastRun:             lastRun,
	}
}

// Handler exposes the Prometheus HTTP handler.
func (m *MetricsService) Handler() http.Handler {
	if m == nil {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusServiceUnavailable)
		})
	}
	return m.handler
}

// ObserveHTTPRequest records browse API request metrics.
func (m *MetricsService) ObserveHTTPRequest(method, path string, status int, duration time.Duration) {
	if m == nil {
		return
	}
	labelStatus := fmt.Sprintf("%d", status)
	m.requestDuration.WithLabelValues(method, path, labelStatus).Observe(duration.Seconds())
	m.requestTotal.WithLabelValues(method, path, labelStatus).Inc()
	atomic.AddUint64(&m.requestCount, 1)
	atomic.AddUint64(&m.requestDurationNs, uint64(duration.Nanoseconds()))
}

// ObserveAPIRequest counts one Web API attempt. It matches the client's
// OnRequest hook.
func (m *MetricsService) ObserveAPIRequest(method string, err error) {
	if m == nil {
		return
	}
	outcome := "ok"
	if err != nil {
		outcome = "error"
		atomic.AddUint64(&m.apiErrorCount, 1)
	}
	m.apiRequests.WithLabelValues(method, outcome).Inc()
	atomic.AddUint64(&m.apiRequestCount, 1)
}

// ObserveSync records how long a collection took.
func (m *MetricsService) ObserveSync(collection string, duration time.Duration) {
	if m == nil {
		return
	}
	m.syncDuration.WithLabelValues(collection).Observe(duration.Seconds())
}

// RecordMessages counts inserted and overwritten messages.
func (m *MetricsService) RecordMessages(added, modified int) {
	if m == nil {
		return
	}
	m.messages.WithLabelValues("added").Add(float64(added))
	m.messages.WithLabelValues("modified").Add(float64(modified))
	atomic.AddUint64(&m.addedCount, uint64(added))
	atomic.AddUint64(&m.modifiedCount, uint64(modified))
}

// RecordSkipped counts malformed records dropped from a collection.
func (m *MetricsService) RecordSkipped(collection string, n int) {
	if m == nil || n <= 0 {
		return
	}
	m.skipped.WithLabelValues(collection).Add(float64(n))
	atomic.AddUint64(&m.skippedCount, uint64(n))
}

func (m *MetricsService) RecordIncompleteReactions(n int) {
	if m == nil || n <= 0 {
		return
	}
	m.incompleteReactions.Add(float64(n))
	atomic.AddUint64(&m.incompleteCount, uint64(n))
}

// MarkRunFinished stamps the completion time of a run.
func (m *MetricsService) MarkRunFinished(at time.Time) {
	if m == nil {
		return
	}
	m.lastRun.Set(float64(at.Unix()))
}

// WriteTextfile dumps the registry in the node exporter textfile format.
func (m *MetricsService) WriteTextfile(path string) error {
	if m == nil || path == "" {
		return nil
	}
	if err := prometheus.WriteToTextfile(path, m.registry); err != nil {
		return fmt.Errorf("write metrics textfile: %w", err)
	}
	return nil
}

// Snapshot returns aggregated counters for the stats command and browse API.
func (m *MetricsService) Snapshot() models.SyncMetrics {
	if m == nil {
		return models.SyncMetrics{}
	}
	requests := atomic.LoadUint64(&m.requestCount)
	duration := atomic.LoadUint64(&m.requestDurationNs)

	var avgRequestMs float64
	if requests > 0 {
		avgRequestMs = float64(duration) / float64(requests) / float64(time.Millisecond)
	}

	return models.SyncMetrics{
		APIRequests:              atomic.LoadUint64(&m.apiRequestCount),
		APIErrors:                atomic.LoadUint64(&m.apiErrorCount),
		MessagesAdded:            atomic.LoadUint64(&m.addedCount),
		MessagesModified:         atomic.LoadUint64(&m.modifiedCount),
		RecordsSkipped:           atomic.LoadUint64(&m.skippedCount),
		IncompleteReactions:      atomic.LoadUint64(&m.incompleteCount),
		RequestsTotal:            requests,
		AverageRequestDurationMs: avgRequestMs,
		Goroutines:               runtime.NumGoroutine(),
		GeneratedAt:              time.Now().UTC(),
	}
}
