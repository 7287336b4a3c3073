package engine

import (
	"context"
	"log"
	"time"

	"github.com/quietlog/loom/internal/storage"
	"github.com/quietlog/loom/pkg/types"
)

// enrichmentWorker processes enrichment jobs until the queue is closed.
func (e *Engine) enrichmentWorker(ctx context.Context, workerID int) {
	defer e.workerWaitGroup.Done()

	log.Printf("enrichment worker %d started", workerID)

	for job := range e.jobQueue {
		e.processJob(ctx, workerID, job)
	}

	log.Printf("enrichment worker %d stopped", workerID)
}

// processJob runs one entry through the full enrichment cycle: context
// build, four-task extraction, write-back, pattern observation, event.
// Extraction itself cannot fail (every task has a fallback); the only
// failure modes here are storage writes, which requeue the job.
func (e *Engine) processJob(ctx context.Context, workerID int, job *EnrichmentJob) {
	log.Printf("worker %d processing entry %s (attempt %d)", workerID, job.EntryID, job.Attempt)

	// Database writes use a background context so an in-flight job can
	// finish persisting during shutdown.
	dbCtx := context.Background()

	// Quadratic backoff on retries to reduce write contention
	if job.Attempt > 0 {
		backoff := time.Duration(job.Attempt*job.Attempt) * 100 * time.Millisecond // 100ms, 400ms, 900ms...
		log.Printf("worker %d: waiting %v before retry (attempt %d)", workerID, backoff, job.Attempt)
		time.Sleep(backoff)
	}

	if err := e.store.UpdateEntryStatus(dbCtx, job.EntryID, types.EntryProcessing); err != nil {
		log.Printf("ERROR: worker %d failed to mark entry %s processing: %v", workerID, job.EntryID, err)
		if !e.requeueJob(ctx, job) {
			e.markFailed(dbCtx, job, err.Error())
		}
		return
	}

	contextText, knownNames := e.buildExtractionContext(ctx, job.Content)

	result := e.pipeline.Extract(ctx, job.Content, contextText, knownNames)

	now := time.Now()
	update := storage.EnrichmentUpdate{
		Tags:       result.Tags,
		Mood:       result.Mood,
		Emotion:    result.Emotion,
		Actions:    result.Actions,
		Themes:     result.Themes,
		People:     result.People,
		Urgency:    result.Urgency,
		Status:     types.EntryCompleted,
		Attempts:   job.Attempt + 1,
		EnrichedAt: &now,
	}
	if err := e.store.UpdateEnrichment(dbCtx, job.EntryID, update); err != nil {
		log.Printf("ERROR: worker %d failed to persist enrichment for %s: %v", workerID, job.EntryID, err)
		if !e.requeueJob(ctx, job) {
			e.markFailed(dbCtx, job, err.Error())
		}
		return
	}

	// Pattern learning is advisory: a failure here never un-completes the
	// entry, it just means this observation taught nothing.
	if err := e.patterns.RecordObservation(dbCtx, result, job.ObservedAt); err != nil {
		log.Printf("WARNING: worker %d pattern observation failed for %s: %v", workerID, job.EntryID, err)
	}

	log.Printf("worker %d completed enrichment for entry %s", workerID, job.EntryID)

	e.notifyEnrichment(job.EntryID, types.EntryCompleted)
}

// buildExtractionContext assembles the context string and known-name list
// for one entry. Lookup failures degrade to less context, never to a
// failed job.
func (e *Engine) buildExtractionContext(ctx context.Context, content string) (string, []string) {
	facts, err := e.facts.ActiveFacts(ctx)
	if err != nil {
		log.Printf("WARNING: context facts unavailable: %v", err)
		facts = nil
	}

	patterns, err := e.patterns.RelevantPatterns(ctx, content, time.Now())
	if err != nil {
		log.Printf("WARNING: context patterns unavailable: %v", err)
		patterns = ""
	}

	knownNames := namesFromFacts(facts)
	if learned, err := e.patterns.KnownNames(ctx); err == nil {
		for _, name := range learned {
			knownNames = appendIfAbsent(knownNames, name)
		}
	} else {
		log.Printf("WARNING: learned names unavailable: %v", err)
	}

	return BuildContext(facts, patterns), knownNames
}

// markFailed records a terminal enrichment failure on the entry.
func (e *Engine) markFailed(ctx context.Context, job *EnrichmentJob, message string) {
	update := storage.EnrichmentUpdate{
		Status:      types.EntryFailed,
		Attempts:    job.Attempt + 1,
		EnrichError: message,
	}
	if err := e.store.UpdateEnrichment(ctx, job.EntryID, update); err != nil {
		log.Printf("ERROR: failed to mark entry %s failed: %v", job.EntryID, err)
	}
	e.notifyEnrichment(job.EntryID, types.EntryFailed)
}

// notifyEnrichment fires the enrichment callback if one is set. The read
// skips the state lock: callbacks are registered before Start, and workers
// fire this while Shutdown holds the lock to drain them.
func (e *Engine) notifyEnrichment(entryID string, status types.EntryStatus) {
	if e.onEnrichmentComplete != nil {
		e.onEnrichmentComplete(entryID, status)
	}
}

// startWorkerPool starts the worker goroutines.
func (e *Engine) startWorkerPool(ctx context.Context) {
	for i := 0; i < e.config.NumWorkers; i++ {
		e.workerWaitGroup.Add(1)
		go e.enrichmentWorker(ctx, i)
	}

	log.Printf("started %d enrichment workers", e.config.NumWorkers)
}

// stopWorkerPool stops the worker goroutines gracefully.
func (e *Engine) stopWorkerPool(ctx context.Context) error {
	// Close the queue (no more jobs)
	close(e.jobQueue)

	// Wait for workers to drain (with timeout)
	done := make(chan struct{})
	go func() {
		e.workerWaitGroup.Wait()
		close(done)
	}()

	select {
	case <-done:
		log.Println("all enrichment workers finished gracefully")
		return nil
	case <-time.After(e.config.ShutdownTimeout):
		log.Printf("WARNING: shutdown timeout reached, %d enrichment jobs may be dropped", e.queueDepth())
		return nil
	case <-ctx.Done():
		log.Printf("WARNING: context cancelled, %d enrichment jobs may be dropped", e.queueDepth())
		return ctx.Err()
	}
}
