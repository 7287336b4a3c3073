package engine

import (
	"context"
	"log"
	"time"

	"github.com/quietlog/loom/pkg/types"
)

// enqueueJob attempts to queue an enrichment job.
// Returns true if the job was queued, false if the queue is full or closed.
func (e *Engine) enqueueJob(job *EnrichmentJob) bool {
	// Check if worker context is cancelled (shutdown in progress)
	if e.workerCtx != nil && e.workerCtx.Err() != nil {
		return false
	}

	// Try to queue (non-blocking)
	select {
	case e.jobQueue <- job:
		return true
	default:
		// Queue is full or closed
		log.Printf("WARNING: enrichment queue full (size=%d), dropping job for entry %s",
			e.config.QueueSize, job.EntryID)
		return false
	}
}

// newJob creates an enrichment job for an entry. ObservedAt carries the
// entry's creation time so recovered jobs land in the right time buckets.
func (e *Engine) newJob(entry *types.Entry, attempt int) *EnrichmentJob {
	return &EnrichmentJob{
		EntryID:    entry.ID,
		Content:    entry.Content,
		ObservedAt: entry.CreatedAt,
		Queued:     time.Now(),
		Attempt:    attempt,
	}
}

// requeueJob attempts to requeue a failed enrichment job.
// Returns true if the job was requeued, false if max retries exceeded or
// the queue stayed full.
func (e *Engine) requeueJob(ctx context.Context, job *EnrichmentJob) bool {
	// Check if worker context is cancelled (shutdown in progress)
	if e.workerCtx != nil && e.workerCtx.Err() != nil {
		log.Printf("WARNING: failed to requeue job for entry %s, shutdown in progress", job.EntryID)
		return false
	}

	if job.Attempt >= e.config.MaxRetries {
		log.Printf("max retries (%d) exceeded for entry %s, giving up",
			e.config.MaxRetries, job.EntryID)
		return false
	}

	job.Attempt++

	// Try to requeue (non-blocking to avoid panic on closed channel)
	select {
	case e.jobQueue <- job:
		log.Printf("requeued enrichment job for entry %s (attempt %d/%d)",
			job.EntryID, job.Attempt, e.config.MaxRetries)
		return true
	case <-time.After(10 * time.Millisecond):
		log.Printf("WARNING: failed to requeue job for entry %s, queue timeout", job.EntryID)
		return false
	}
}

// queueDepth returns the current number of jobs in the queue.
func (e *Engine) queueDepth() int {
	return len(e.jobQueue)
}
