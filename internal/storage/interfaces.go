// Package storage provides composable storage interfaces for the Loom system.
//
// The storage layer is designed with small, focused interfaces that can be
// implemented independently and composed as needed. Both backends (sqlite and
// postgres) implement the combined Store interface.
package storage

import (
	"context"
	"time"

	"github.com/quietlog/loom/pkg/types"
)

// EntryStore provides CRUD operations and pagination for journal entries.
type EntryStore interface {
	// CreateEntry inserts a new entry. The entry must carry an ID, content,
	// and a creation timestamp; enrichment fields start empty with status
	// pending. Returns ErrInvalidInput on missing required fields.
	CreateEntry(ctx context.Context, entry *types.Entry) error

	// GetEntry retrieves an entry by ID.
	// Returns ErrNotFound if the entry doesn't exist.
	GetEntry(ctx context.Context, id string) (*types.Entry, error)

	// ListEntries retrieves entries with pagination and filtering.
	ListEntries(ctx context.Context, opts ListOptions) (*PaginatedResult[types.Entry], error)

	// EntriesSince returns all entries created at or after the given time,
	// oldest first, without pagination. Used by the insight generator, which
	// scans a bounded window (30 days of a personal journal stays small).
	EntriesSince(ctx context.Context, since time.Time) ([]types.Entry, error)

	// UpdateEntryStatus updates the enrichment status of an entry.
	// Returns ErrNotFound if the entry doesn't exist.
	UpdateEntryStatus(ctx context.Context, id string, status types.EntryStatus) error

	// UpdateEnrichment writes the extraction results and final status back to
	// an entry. Returns ErrNotFound if the entry doesn't exist.
	UpdateEnrichment(ctx context.Context, id string, update EnrichmentUpdate) error

	// DeleteEntry permanently removes an entry.
	// Returns ErrNotFound if the entry doesn't exist.
	DeleteEntry(ctx context.Context, id string) error

	// CountEntries returns the total number of stored entries.
	CountEntries(ctx context.Context) (int, error)

	// EntryCountsByDay returns entry counts keyed by calendar day
	// ("2006-01-02", local time of the stored timestamp). Used for streak
	// and frequency stats.
	EntryCountsByDay(ctx context.Context) (map[string]int, error)
}

// FactStore manages user-declared facts. Facts are soft-deleted only.
type FactStore interface {
	// CreateFact inserts a new fact. Returns ErrInvalidInput if the text is
	// empty, longer than types.MaxFactLength, or the category is unknown.
	CreateFact(ctx context.Context, fact *types.UserFact) error

	// ListFacts returns facts ordered by creation time ascending.
	// When activeOnly is true, deactivated facts are excluded.
	ListFacts(ctx context.Context, activeOnly bool) ([]types.UserFact, error)

	// DeactivateFact soft-deletes a fact by clearing its active flag.
	// Returns ErrNotFound if the fact doesn't exist or is already inactive.
	DeactivateFact(ctx context.Context, id string) error
}

// PatternStore persists learned entity and temporal patterns.
//
// Correlation maps and theme/emotion lists are stored as JSON text columns.
// Reads must tolerate corrupt stored JSON by skipping the bad record, never
// by returning a parse error to the caller: pattern data is advisory and a
// single bad row must not take down context building.
type PatternStore interface {
	// GetEntityPattern retrieves the pattern for a name (case-insensitive).
	// Returns ErrNotFound if no pattern exists for the name.
	GetEntityPattern(ctx context.Context, name string) (*types.EntityPattern, error)

	// UpsertEntityPattern creates or replaces the pattern row for
	// pattern.Name (upsert semantics keyed on the lowercased name).
	UpsertEntityPattern(ctx context.Context, pattern *types.EntityPattern) error

	// ListEntityPatterns returns patterns with mention_count >= minMentions,
	// ordered by mention_count descending. A limit <= 0 means no limit.
	ListEntityPatterns(ctx context.Context, minMentions, limit int) ([]types.EntityPattern, error)

	// DeleteEntityPatternsMatching removes entity patterns whose name
	// contains the needle (case-insensitive). Returns the number removed.
	// Deleting with a needle that matches nothing is not an error.
	DeleteEntityPatternsMatching(ctx context.Context, needle string) (int, error)

	// GetTemporalPattern retrieves one (time block, weekday) bucket.
	// Returns ErrNotFound if the bucket has never been observed.
	GetTemporalPattern(ctx context.Context, timeBlock, weekday string) (*types.TemporalPattern, error)

	// UpsertTemporalPattern creates or replaces one bucket row.
	UpsertTemporalPattern(ctx context.Context, pattern *types.TemporalPattern) error

	// ListTemporalPatterns returns all buckets ordered by sample_count
	// descending.
	ListTemporalPatterns(ctx context.Context) ([]types.TemporalPattern, error)

	// DeleteTemporalPatterns removes all temporal buckets and returns the
	// number removed.
	DeleteTemporalPatterns(ctx context.Context) (int, error)
}

// Store is the combined persistence interface both backends implement.
type Store interface {
	EntryStore
	FactStore
	PatternStore

	// Ping verifies the underlying database connection.
	Ping(ctx context.Context) error

	// Close releases any resources held by the store.
	Close() error
}

// EnrichmentUpdate contains the extraction results written back to an entry
// once the pipeline finishes. Slices are stored as JSON arrays; nil and
// empty both clear the column.
type EnrichmentUpdate struct {
	// Extraction results
	Tags    []string
	Mood    string
	Emotion string
	Actions []string
	Themes  []string
	People  []string
	Urgency string

	// Status is the final enrichment status (completed or failed).
	Status types.EntryStatus

	// Attempts is the total number of enrichment attempts made.
	Attempts int

	// EnrichError stores the last enrichment error message, if any.
	EnrichError string

	// EnrichedAt is the timestamp when enrichment completed.
	EnrichedAt *time.Time
}
