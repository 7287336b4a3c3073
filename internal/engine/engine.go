package engine

import (
	"context"
	"fmt"
	"log"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/quietlog/loom/internal/llm"
	"github.com/quietlog/loom/internal/storage"
	"github.com/quietlog/loom/pkg/types"
)

// insightCacheTTL is how long cached insights stay fresh between the
// scheduled refreshes.
const insightCacheTTL = 24 * time.Hour

// Engine is the core orchestrator for journal storage and enrichment.
// Entry writes return in milliseconds; extraction, validation, and pattern
// learning happen asynchronously on a worker pool fed by a bounded queue.
type Engine struct {
	// Configuration
	config Config

	// Storage layer
	store storage.Store

	// Intelligence layer
	patterns *PatternService
	facts    *FactService
	insights *InsightGenerator
	pipeline *ExtractionPipeline

	// Enrichment pipeline
	jobQueue        chan *EnrichmentJob
	workerWaitGroup sync.WaitGroup
	workerCtx       context.Context
	workerCancel    context.CancelFunc

	// Insight cache, refreshed on schedule or on demand
	insightMu      sync.Mutex
	cachedInsights []string
	insightsAt     time.Time

	// State management
	started      bool
	shuttingDown bool
	mu           sync.RWMutex

	// Callbacks
	onEntryCreated       func(entryID string)
	onEnrichmentComplete func(entryID string, status types.EntryStatus)
}

// NewEngine creates an engine over the given store and text generator.
// Use DefaultConfig() for sensible defaults.
func NewEngine(store storage.Store, generator llm.TextGenerator, engineConfig Config) (*Engine, error) {
	if store == nil {
		return nil, fmt.Errorf("store is required")
	}
	if generator == nil {
		return nil, fmt.Errorf("text generator is required")
	}
	if err := engineConfig.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}

	return &Engine{
		config:   engineConfig,
		store:    store,
		patterns: NewPatternService(store),
		facts:    NewFactService(store),
		insights: NewInsightGenerator(store),
		pipeline: NewExtractionPipeline(generator, engineConfig.TaskTimeout),
		jobQueue: make(chan *EnrichmentJob, engineConfig.QueueSize),
	}, nil
}

// SetOnEntryCreated sets a callback fired when a new entry is stored,
// before enrichment. Register callbacks before Start.
func (e *Engine) SetOnEntryCreated(callback func(entryID string)) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.onEntryCreated = callback
}

// SetOnEnrichmentComplete sets a callback fired when enrichment finishes
// for an entry, with its final status. Useful for WebSocket broadcasts.
// Register callbacks before Start; workers read this without the state lock.
func (e *Engine) SetOnEnrichmentComplete(callback func(entryID string, status types.EntryStatus)) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.onEnrichmentComplete = callback
}

// Start launches the worker pool and kicks off recovery of entries left
// pending by a previous run. Must be called before CreateEntry.
func (e *Engine) Start(ctx context.Context) error {
	e.mu.Lock()
	defer e.mu.Unlock()

	if e.started {
		return fmt.Errorf("engine already started")
	}

	log.Println("starting engine...")

	e.workerCtx, e.workerCancel = context.WithCancel(ctx)
	e.startWorkerPool(e.workerCtx)

	// Recovery runs in the background so Start returns quickly
	go func() {
		if err := e.RecoverPendingEnrichments(ctx); err != nil {
			log.Printf("ERROR: enrichment recovery failed: %v", err)
		}
	}()

	e.started = true
	log.Println("engine started")

	return nil
}

// CreateEntry stores a new entry and queues it for enrichment. The write
// is synchronous and fast; enrichment is asynchronous and its failures are
// never surfaced here. If the queue is full the entry simply stays pending
// until recovery picks it up.
func (e *Engine) CreateEntry(ctx context.Context, content string) (*types.Entry, error) {
	e.mu.RLock()
	if !e.started {
		e.mu.RUnlock()
		return nil, fmt.Errorf("engine not started")
	}
	e.mu.RUnlock()

	if strings.TrimSpace(content) == "" {
		return nil, fmt.Errorf("entry content is empty: %w", storage.ErrInvalidInput)
	}

	entry := &types.Entry{
		ID:        uuid.NewString(),
		Content:   content,
		CreatedAt: time.Now(),
		Status:    types.EntryPending,
	}

	if err := e.store.CreateEntry(ctx, entry); err != nil {
		return nil, fmt.Errorf("store entry: %w", err)
	}

	e.mu.RLock()
	created := e.onEntryCreated
	e.mu.RUnlock()
	if created != nil {
		created(entry.ID)
	}

	// Best effort: a dropped job leaves the entry pending, not failed
	e.enqueueJob(e.newJob(entry, 0))

	return entry, nil
}

// GetEntry retrieves an entry by ID.
func (e *Engine) GetEntry(ctx context.Context, id string) (*types.Entry, error) {
	return e.store.GetEntry(ctx, id)
}

// ListEntries retrieves entries with pagination and filtering.
func (e *Engine) ListEntries(ctx context.Context, opts storage.ListOptions) (*storage.PaginatedResult[types.Entry], error) {
	return e.store.ListEntries(ctx, opts)
}

// DeleteEntry permanently removes an entry. Patterns already learned from
// it are left alone; decay handles stale knowledge.
func (e *Engine) DeleteEntry(ctx context.Context, id string) error {
	return e.store.DeleteEntry(ctx, id)
}

// AddFact validates, categorizes, and stores a user fact.
func (e *Engine) AddFact(ctx context.Context, text string) (*types.UserFact, error) {
	return e.facts.AddFact(ctx, text)
}

// ActiveFacts returns all active user facts.
func (e *Engine) ActiveFacts(ctx context.Context) ([]types.UserFact, error) {
	return e.facts.ActiveFacts(ctx)
}

// RemoveFact soft-deletes a fact.
func (e *Engine) RemoveFact(ctx context.Context, id string) error {
	return e.facts.RemoveFact(ctx, id)
}

// ContextPreview builds the extraction context that would accompany the
// given text right now. Read-only; nothing is learned from previewing.
func (e *Engine) ContextPreview(ctx context.Context, text string) (string, error) {
	facts, err := e.facts.ActiveFacts(ctx)
	if err != nil {
		return "", err
	}
	patterns, err := e.patterns.RelevantPatterns(ctx, text, time.Now())
	if err != nil {
		return "", err
	}
	return BuildContext(facts, patterns), nil
}

// PatternReport renders the learned-patterns report.
func (e *Engine) PatternReport(ctx context.Context) (string, error) {
	entities, err := e.patterns.TopEntities(ctx, reportMinMentions, 0)
	if err != nil {
		return "", fmt.Errorf("report entities: %w", err)
	}
	buckets, err := e.patterns.AllBuckets(ctx)
	if err != nil {
		return "", fmt.Errorf("report buckets: %w", err)
	}

	insights, err := e.Insights(ctx)
	if err != nil {
		log.Printf("WARNING: insights unavailable for report: %v", err)
		insights = nil
	}

	return BuildPatternReport(entities, buckets, insights), nil
}

// Insights returns the cached insight list, refreshing it when empty or
// stale. Generation is deterministic, so serving a cached copy between
// refreshes changes nothing but latency.
func (e *Engine) Insights(ctx context.Context) ([]string, error) {
	e.insightMu.Lock()
	fresh := !e.insightsAt.IsZero() && time.Since(e.insightsAt) < insightCacheTTL
	cached := e.cachedInsights
	e.insightMu.Unlock()

	if fresh {
		return cached, nil
	}
	return e.RefreshInsights(ctx)
}

// RefreshInsights regenerates the insight cache now.
func (e *Engine) RefreshInsights(ctx context.Context) ([]string, error) {
	insights, err := e.insights.Generate(ctx, time.Now())
	if err != nil {
		return nil, err
	}

	e.insightMu.Lock()
	e.cachedInsights = insights
	e.insightsAt = time.Now()
	e.insightMu.Unlock()

	return insights, nil
}

// PurgePatterns removes entity patterns matching the needle and, when
// includeTemporal is set, all temporal buckets. Returns both counts.
func (e *Engine) PurgePatterns(ctx context.Context, needle string, includeTemporal bool) (int, int, error) {
	entities, err := e.patterns.PurgeEntityPatterns(ctx, needle)
	if err != nil {
		return 0, 0, err
	}

	var buckets int
	if includeTemporal {
		buckets, err = e.patterns.PurgeTemporalPatterns(ctx)
		if err != nil {
			return entities, 0, err
		}
	}
	return entities, buckets, nil
}

// QueueDepth returns the current number of queued enrichment jobs.
func (e *Engine) QueueDepth() int {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return e.queueDepth()
}

// Ping verifies the storage backend is reachable.
func (e *Engine) Ping(ctx context.Context) error {
	return e.store.Ping(ctx)
}

// Shutdown gracefully stops the engine: the queue is closed, workers drain
// remaining jobs up to the shutdown timeout.
func (e *Engine) Shutdown(ctx context.Context) error {
	e.mu.Lock()
	defer e.mu.Unlock()

	if !e.started {
		return fmt.Errorf("engine not started")
	}

	log.Println("shutting down engine...")

	// Prevents requeueing while workers drain
	e.shuttingDown = true

	if e.workerCancel != nil {
		e.workerCancel()
	}

	if err := e.stopWorkerPool(ctx); err != nil {
		log.Printf("WARNING: worker pool shutdown had errors: %v", err)
	}

	e.started = false
	e.shuttingDown = false
	log.Println("engine shut down")

	return nil
}
