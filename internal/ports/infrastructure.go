package ports

import (
	"context"
	"time"
)

// CacheStore defines the interface for caching idempotent backend
// responses such as catalog listings.
// Caching is optional; a nil store disables it.
type CacheStore interface {
	// Get retrieves a cached value by key.
	// Returns the value and true if found, or nil and false if not found.
	Get(ctx context.Context, key string) (any, bool, error)

	// Set stores a value in the cache with an expiration time.
	// A zero duration means the store's default TTL applies.
	Set(ctx context.Context, key string, value any, expiration time.Duration) error

	// Delete removes a value from the cache.
	// Returns nil if the key doesn't exist.
	Delete(ctx context.Context, key string) error

	// Clear removes all values from the cache.
	Clear(ctx context.Context) error
}

// MetricsCollector defines the interface for collecting operational metrics.
// Implementations should integrate with observability platforms like
// Prometheus or OpenTelemetry.
type MetricsCollector interface {
	// RecordLatency records the execution time of an operation.
	// The labels map provides additional context for the metric.
	RecordLatency(operation string, duration time.Duration, labels map[string]string)

	// RecordCounter increments a counter metric.
	RecordCounter(metric string, value float64, labels map[string]string)

	// RecordGauge sets the current value of a gauge metric.
	RecordGauge(metric string, value float64, labels map[string]string)

	// RecordHistogram records a value in a histogram.
	RecordHistogram(metric string, value float64, labels map[string]string)
}

// PreferenceStore persists the single client-side preference: whether the
// dark theme is enabled.
type PreferenceStore interface {
	// DarkMode returns the stored preference, false when nothing is stored.
	DarkMode() (bool, error)

	// SetDarkMode stores the preference. It is called on every toggle.
	SetDarkMode(enabled bool) error
}

// Logger is the structured logger used across the client.
// module names the emitting component; details carries structured fields.
type Logger interface {
	Debug(module, message string, details map[string]any)
	Info(module, message string, details map[string]any)
	Warn(module, message string, details map[string]any)
	Error(module, message string, details map[string]any)
	Sync() error
}

// NopLogger discards all log entries.
type NopLogger struct{}

func (NopLogger) Debug(string, string, map[string]any) {}
func (NopLogger) Info(string, string, map[string]any)  {}
func (NopLogger) Warn(string, string, map[string]any)  {}
func (NopLogger) Error(string, string, map[string]any) {}
func (NopLogger) Sync() error                          { return nil }

var _ Logger = NopLogger{}

// Metric names recorded by the session core. Collectors may give them
// dedicated series.
const (
	// MetricSessionEvents counts session lifecycle events, labeled by
	// event and outcome.
	MetricSessionEvents = "session_events_total"

	// MetricSessionDuration is the latency operation name prefix for chat
	// and comparison round trips.
	MetricSessionDuration = "session_request_duration_seconds"

	// MetricComparisonModels records the candidate count per comparison.
	MetricComparisonModels = "comparison_models"
)
