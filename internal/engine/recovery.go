package engine

import (
	"context"
	"log"

	"github.com/quietlog/loom/internal/storage"
	"github.com/quietlog/loom/pkg/types"
)

// RecoverPendingEnrichments re-queues entries left pending by a previous
// run, oldest first. Called automatically during Start so no entry stays
// un-enriched just because the process restarted. If the queue fills up
// mid-recovery the rest stay pending for the next start.
func (e *Engine) RecoverPendingEnrichments(ctx context.Context) error {
	log.Println("starting enrichment recovery for pending entries...")

	totalQueued := 0

	for page := 1; ; page++ {
		opts := storage.ListOptions{
			Status:    types.EntryPending,
			Limit:     e.config.RecoveryBatchSize,
			Page:      page,
			SortBy:    "created_at",
			SortOrder: "asc",
		}

		result, err := e.store.ListEntries(ctx, opts)
		if err != nil {
			log.Printf("ERROR: failed to list pending entries for recovery: %v", err)
			return err
		}

		if len(result.Items) == 0 {
			break
		}

		for i := range result.Items {
			entry := &result.Items[i]
			if !e.enqueueJob(e.newJob(entry, 0)) {
				log.Printf("recovery paused with queue full, %d entries still pending", result.Total-totalQueued)
				return nil
			}
			totalQueued++
		}

		if !result.HasMore {
			break
		}
	}

	log.Printf("recovery complete: queued %d pending enrichments", totalQueued)
	return nil
}
