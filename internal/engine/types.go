// Package engine provides the context and pattern-learning core: a
// non-blocking enrichment pipeline that turns raw entry text into
// structured signals, plus the pattern store logic that accumulates,
// decays, and queries correlation statistics to feed context back into
// extraction.
package engine

import (
	"fmt"
	"time"
)

// EnrichmentJob represents a job for async entry enrichment.
// Jobs are queued when entries are created and processed by worker goroutines.
type EnrichmentJob struct {
	// EntryID is the unique identifier of the entry to enrich.
	EntryID string

	// Content is the entry text to process.
	Content string

	// ObservedAt is the entry's creation time, used for temporal bucketing.
	ObservedAt time.Time

	// Queued is when the job entered the queue.
	Queued time.Time

	// Attempt tracks retry attempts for this job.
	Attempt int
}

// Config holds configuration for the engine.
type Config struct {
	// NumWorkers is the number of enrichment worker goroutines (default: 2).
	NumWorkers int

	// QueueSize is the size of the enrichment job queue buffer (default: 256).
	QueueSize int

	// TaskTimeout bounds each of the four extractor calls (default: 15s).
	TaskTimeout time.Duration

	// ShutdownTimeout is the maximum time to wait for workers to drain on shutdown (default: 30s).
	ShutdownTimeout time.Duration

	// MaxRetries is the maximum number of enrichment retry attempts (default: 3).
	MaxRetries int

	// RecoveryBatchSize is the number of pending entries to recover per batch (default: 500).
	RecoveryBatchSize int
}

// DefaultConfig returns a Config with sensible defaults.
func DefaultConfig() Config {
	return Config{
		NumWorkers:        2,
		QueueSize:         256,
		TaskTimeout:       15 * time.Second,
		ShutdownTimeout:   30 * time.Second,
		MaxRetries:        3,
		RecoveryBatchSize: 500,
	}
}

// Validate checks if the config is valid.
func (c *Config) Validate() error {
	if c.NumWorkers < 1 {
		return fmt.Errorf("NumWorkers must be >= 1, got %d", c.NumWorkers)
	}

	if c.QueueSize < 1 {
		return fmt.Errorf("QueueSize must be >= 1, got %d", c.QueueSize)
	}

	if c.TaskTimeout <= 0 {
		return fmt.Errorf("TaskTimeout must be > 0, got %v", c.TaskTimeout)
	}

	if c.ShutdownTimeout < 0 {
		return fmt.Errorf("ShutdownTimeout must be >= 0, got %v", c.ShutdownTimeout)
	}

	if c.MaxRetries < 0 {
		return fmt.Errorf("MaxRetries must be >= 0, got %d", c.MaxRetries)
	}

	if c.RecoveryBatchSize < 1 {
		return fmt.Errorf("RecoveryBatchSize must be >= 1, got %d", c.RecoveryBatchSize)
	}

	return nil
}
