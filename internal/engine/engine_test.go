package engine

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/quietlog/loom/internal/llm"
	"github.com/quietlog/loom/internal/storage"
	"github.com/quietlog/loom/internal/storage/sqlite"
	"github.com/quietlog/loom/pkg/types"
)

// newTestEngine creates an Engine over an in-memory store. Not started.
func newTestEngine(t *testing.T, generator llm.TextGenerator, cfg Config) (*Engine, *sqlite.Store) {
	t.Helper()
	store := newTestStore(t)
	eng, err := NewEngine(store, generator, cfg)
	require.NoError(t, err)
	return eng, store
}

// happyGenerator returns a stub with well-formed responses for all four
// extractor tasks.
func happyGenerator() *stubGenerator {
	return &stubGenerator{
		analysis: `{"mood":"negative","emotion":"stressed","tags":["work"],"actions":["send the deck"]}`,
		themes:   `{"themes":["work"]}`,
		people:   `{"people":["Sarah"]}`,
		urgency:  `{"urgency":"medium"}`,
	}
}

// gatedGenerator blocks every completion until the gate closes, and signals
// on entered when a worker first reaches it.
type gatedGenerator struct {
	inner   *stubGenerator
	gate    chan struct{}
	entered chan struct{}
}

func (g *gatedGenerator) Complete(ctx context.Context, prompt string) (string, error) {
	select {
	case g.entered <- struct{}{}:
	default:
	}
	select {
	case <-g.gate:
	case <-ctx.Done():
		return "", ctx.Err()
	}
	return g.inner.Complete(ctx, prompt)
}

func (g *gatedGenerator) GetModel() string { return g.inner.GetModel() }

// waitForStatus polls until the entry reaches the wanted status.
func waitForStatus(t *testing.T, store *sqlite.Store, entryID string, want types.EntryStatus) *types.Entry {
	t.Helper()
	deadline := time.Now().Add(5 * time.Second)
	for time.Now().Before(deadline) {
		entry, err := store.GetEntry(context.Background(), entryID)
		require.NoError(t, err)
		if entry.Status == want {
			return entry
		}
		time.Sleep(10 * time.Millisecond)
	}
	t.Fatalf("entry %s never reached status %s", entryID, want)
	return nil
}

func TestNewEngineValidation(t *testing.T) {
	store := newTestStore(t)
	gen := happyGenerator()

	_, err := NewEngine(nil, gen, DefaultConfig())
	require.Error(t, err)

	_, err = NewEngine(store, nil, DefaultConfig())
	require.Error(t, err)

	bad := DefaultConfig()
	bad.NumWorkers = 0
	_, err = NewEngine(store, gen, bad)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "invalid config")
}

func TestStartTwice(t *testing.T) {
	eng, _ := newTestEngine(t, happyGenerator(), DefaultConfig())
	ctx := context.Background()

	require.NoError(t, eng.Start(ctx))
	defer func() { _ = eng.Shutdown(ctx) }()

	err := eng.Start(ctx)
	require.Error(t, err)
	assert.Equal(t, "engine already started", err.Error())
}

func TestCreateEntryBeforeStart(t *testing.T) {
	eng, _ := newTestEngine(t, happyGenerator(), DefaultConfig())

	_, err := eng.CreateEntry(context.Background(), "too early")
	require.Error(t, err)
	assert.Equal(t, "engine not started", err.Error())
}

func TestShutdownBeforeStart(t *testing.T) {
	eng, _ := newTestEngine(t, happyGenerator(), DefaultConfig())

	err := eng.Shutdown(context.Background())
	require.Error(t, err)
	assert.Equal(t, "engine not started", err.Error())
}

func TestCreateEntryRejectsBlankContent(t *testing.T) {
	eng, _ := newTestEngine(t, happyGenerator(), DefaultConfig())
	ctx := context.Background()

	require.NoError(t, eng.Start(ctx))
	defer func() { _ = eng.Shutdown(ctx) }()

	_, err := eng.CreateEntry(ctx, "   \n ")
	assert.ErrorIs(t, err, storage.ErrInvalidInput)
}

func TestEnrichmentHappyPath(t *testing.T) {
	cfg := DefaultConfig()
	cfg.NumWorkers = 1
	eng, store := newTestEngine(t, happyGenerator(), cfg)

	created := make(chan string, 1)
	done := make(chan types.EntryStatus, 1)
	eng.SetOnEntryCreated(func(entryID string) { created <- entryID })
	eng.SetOnEnrichmentComplete(func(entryID string, status types.EntryStatus) { done <- status })

	ctx := context.Background()
	require.NoError(t, eng.Start(ctx))
	defer func() { _ = eng.Shutdown(ctx) }()

	// Let the startup recovery finish its empty scan before writing.
	time.Sleep(50 * time.Millisecond)

	entry, err := eng.CreateEntry(ctx, "Busy day at the office with Sarah. I need to send the deck. #work")
	require.NoError(t, err)
	require.NotNil(t, entry)
	assert.Equal(t, types.EntryPending, entry.Status)

	select {
	case entryID := <-created:
		assert.Equal(t, entry.ID, entryID)
	case <-time.After(2 * time.Second):
		t.Fatal("timeout: entry-created callback never fired")
	}

	select {
	case status := <-done:
		assert.Equal(t, types.EntryCompleted, status)
	case <-time.After(5 * time.Second):
		t.Fatal("timeout: enrichment-complete callback never fired")
	}

	stored, err := eng.GetEntry(ctx, entry.ID)
	require.NoError(t, err)
	assert.Equal(t, types.EntryCompleted, stored.Status)
	assert.Equal(t, "negative", stored.Mood)
	assert.Equal(t, "stressed", stored.Emotion)
	assert.Equal(t, []string{"work"}, stored.Tags)
	assert.Equal(t, []string{"send the deck"}, stored.Actions)
	assert.Equal(t, []string{"work"}, stored.Themes)
	assert.Equal(t, []string{"Sarah"}, stored.People)
	assert.Equal(t, "medium", stored.Urgency)
	assert.Equal(t, 1, stored.EnrichAttempts)
	require.NotNil(t, stored.EnrichedAt)

	// The observation landed: Sarah is learned, the time bucket counted.
	pattern, err := store.GetEntityPattern(ctx, "Sarah")
	require.NoError(t, err)
	assert.Equal(t, 1, pattern.MentionCount)
	assert.Equal(t, 0.3, pattern.Confidence)

	bucket, err := store.GetTemporalPattern(ctx, types.TimeBlockAll, DayTypeOf(stored.CreatedAt))
	require.NoError(t, err)
	assert.Equal(t, 1, bucket.SampleCount)
}

func TestShutdownDrainsQueue(t *testing.T) {
	gen := happyGenerator()
	gen.delay = 5 * time.Millisecond
	cfg := DefaultConfig()
	cfg.NumWorkers = 2
	eng, store := newTestEngine(t, gen, cfg)

	ctx := context.Background()
	require.NoError(t, eng.Start(ctx))

	var entryIDs []string
	for i := 0; i < 6; i++ {
		entry, err := eng.CreateEntry(ctx, fmt.Sprintf("draft note %d for the backlog", i))
		require.NoError(t, err)
		entryIDs = append(entryIDs, entry.ID)
	}

	require.NoError(t, eng.Shutdown(ctx))

	// Shutdown returns only after workers drained the queue; every entry
	// must have reached a terminal state.
	for _, entryID := range entryIDs {
		entry, err := store.GetEntry(ctx, entryID)
		require.NoError(t, err)
		assert.Equal(t, types.EntryCompleted, entry.Status, "entry %s", entryID)
	}
}

func TestQueueFullLeavesEntryPending(t *testing.T) {
	gen := &gatedGenerator{
		inner:   happyGenerator(),
		gate:    make(chan struct{}),
		entered: make(chan struct{}, 1),
	}
	cfg := DefaultConfig()
	cfg.NumWorkers = 1
	cfg.QueueSize = 1
	eng, store := newTestEngine(t, gen, cfg)

	ctx := context.Background()
	require.NoError(t, eng.Start(ctx))
	defer func() { _ = eng.Shutdown(ctx) }()

	first, err := eng.CreateEntry(ctx, "first note taking a while")
	require.NoError(t, err)

	select {
	case <-gen.entered:
	case <-time.After(2 * time.Second):
		t.Fatal("timeout: worker never began extraction")
	}

	second, err := eng.CreateEntry(ctx, "second note waiting in queue")
	require.NoError(t, err)
	assert.Equal(t, 1, eng.QueueDepth())

	third, err := eng.CreateEntry(ctx, "third note finding the queue full")
	require.NoError(t, err, "a full queue must not fail the write")

	stored, err := store.GetEntry(ctx, third.ID)
	require.NoError(t, err)
	assert.Equal(t, types.EntryPending, stored.Status)

	close(gen.gate)

	waitForStatus(t, store, first.ID, types.EntryCompleted)
	waitForStatus(t, store, second.ID, types.EntryCompleted)

	stored, err = store.GetEntry(ctx, third.ID)
	require.NoError(t, err)
	assert.Equal(t, types.EntryPending, stored.Status, "dropped job leaves the entry pending, not failed")
}

func TestRecoverPendingEnrichments(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	// Entries left pending by a previous run, all on a Monday morning.
	monday := time.Date(2025, 10, 13, 9, 0, 0, 0, time.UTC)
	var entryIDs []string
	for i := 0; i < 3; i++ {
		entry := &types.Entry{
			ID:        uuid.NewString(),
			Content:   fmt.Sprintf("note %d with Sarah from before the restart", i),
			CreatedAt: monday.Add(time.Duration(i) * time.Minute),
			Status:    types.EntryPending,
		}
		require.NoError(t, store.CreateEntry(ctx, entry))
		entryIDs = append(entryIDs, entry.ID)
	}

	eng, err := NewEngine(store, happyGenerator(), DefaultConfig())
	require.NoError(t, err)

	done := make(chan struct{}, 8)
	eng.SetOnEnrichmentComplete(func(string, types.EntryStatus) { done <- struct{}{} })

	require.NoError(t, eng.Start(ctx))
	defer func() { _ = eng.Shutdown(ctx) }()

	for i := 0; i < len(entryIDs); i++ {
		select {
		case <-done:
		case <-time.After(5 * time.Second):
			t.Fatal("timeout: recovery never enriched all pending entries")
		}
	}

	for _, entryID := range entryIDs {
		entry, err := store.GetEntry(ctx, entryID)
		require.NoError(t, err)
		assert.Equal(t, types.EntryCompleted, entry.Status)
	}

	// Observations used the original creation times, not the recovery time.
	bucket, err := store.GetTemporalPattern(ctx, types.TimeBlockMorning, "monday")
	require.NoError(t, err)
	assert.Equal(t, 3, bucket.SampleCount)

	pattern, err := store.GetEntityPattern(ctx, "Sarah")
	require.NoError(t, err)
	assert.Equal(t, 3, pattern.MentionCount)
}

func TestInsightCacheServesUntilRefresh(t *testing.T) {
	store := newTestStore(t)
	eng, err := NewEngine(store, happyGenerator(), DefaultConfig())
	require.NoError(t, err)
	ctx := context.Background()

	insights, err := eng.Insights(ctx)
	require.NoError(t, err)
	assert.Empty(t, insights)

	now := time.Now()
	for i := 0; i < 30; i++ {
		at := now.AddDate(0, 0, -(i%25)-1).Add(time.Duration(i) * time.Minute)
		seedEnrichedEntry(t, store, at, "happy", []string{"Sarah"})
	}

	cached, err := eng.Insights(ctx)
	require.NoError(t, err)
	assert.Empty(t, cached, "cache serves until the next refresh")

	refreshed, err := eng.RefreshInsights(ctx)
	require.NoError(t, err)
	assert.Contains(t, refreshed, "When you mention Sarah, you're usually happy")

	again, err := eng.Insights(ctx)
	require.NoError(t, err)
	assert.Equal(t, refreshed, again)
}

func TestPurgePatterns(t *testing.T) {
	store := newTestStore(t)
	eng, err := NewEngine(store, happyGenerator(), DefaultConfig())
	require.NoError(t, err)
	ctx := context.Background()
	now := time.Now()

	for _, name := range []string{"Slack", "Sarah"} {
		p := &types.EntityPattern{Name: name, MentionCount: 8, Confidence: 0.6, FirstSeen: now, LastSeen: now}
		require.NoError(t, store.UpsertEntityPattern(ctx, p))
	}
	for _, weekday := range []string{"monday", "tuesday"} {
		p := &types.TemporalPattern{TimeBlock: types.TimeBlockMorning, Weekday: weekday, SampleCount: 3, Confidence: 0.4, UpdatedAt: now}
		require.NoError(t, store.UpsertTemporalPattern(ctx, p))
	}

	entities, buckets, err := eng.PurgePatterns(ctx, "slack", true)
	require.NoError(t, err)
	assert.Equal(t, 1, entities)
	assert.Equal(t, 2, buckets)

	_, err = store.GetEntityPattern(ctx, "Sarah")
	assert.NoError(t, err, "unmatched entities survive")

	remaining, err := store.ListTemporalPatterns(ctx)
	require.NoError(t, err)
	assert.Empty(t, remaining)

	entities, buckets, err = eng.PurgePatterns(ctx, "sarah", false)
	require.NoError(t, err)
	assert.Equal(t, 1, entities)
	assert.Equal(t, 0, buckets)
}

func TestContextPreview(t *testing.T) {
	store := newTestStore(t)
	eng, err := NewEngine(store, happyGenerator(), DefaultConfig())
	require.NoError(t, err)
	ctx := context.Background()
	now := time.Now()

	_, err = eng.AddFact(ctx, "I work at Acme")
	require.NoError(t, err)

	pattern := &types.EntityPattern{
		Name:              "Sarah",
		MentionCount:      12,
		Confidence:        0.8,
		ThemeCorrelations: map[string]int{"work": 12},
		FirstSeen:         now.AddDate(0, 0, -30),
		LastSeen:          now,
	}
	require.NoError(t, store.UpsertEntityPattern(ctx, pattern))

	preview, err := eng.ContextPreview(ctx, "Planning the week with Sarah")
	require.NoError(t, err)
	assert.Contains(t, preview, "User facts: I work at Acme")
	assert.Contains(t, preview, "Sarah: 12 mentions [work 100%]")
}

func TestEngineStats(t *testing.T) {
	store := newTestStore(t)
	eng, err := NewEngine(store, happyGenerator(), DefaultConfig())
	require.NoError(t, err)
	ctx := context.Background()

	stats, err := eng.Stats(ctx)
	require.NoError(t, err)
	assert.Equal(t, 0, stats.TotalEntries)
	assert.Equal(t, 0, stats.CurrentStreak)
	assert.Equal(t, 0, stats.LongestStreak)
	assert.Equal(t, 0, stats.QueueDepth)

	now := time.Now()
	seedEnrichedEntry(t, store, now, "calm", nil)
	seedEnrichedEntry(t, store, now.Add(-24*time.Hour), "calm", nil)

	stats, err = eng.Stats(ctx)
	require.NoError(t, err)
	assert.Equal(t, 2, stats.TotalEntries)
	assert.Equal(t, 2, stats.CurrentStreak)
	assert.Equal(t, 2, stats.LongestStreak)
}

func TestStreaks(t *testing.T) {
	now := time.Date(2025, 10, 15, 20, 0, 0, 0, time.UTC)

	current, longest := streaks(map[string]int{
		"2025-10-15": 2, "2025-10-14": 1, "2025-10-13": 1,
	}, now)
	assert.Equal(t, 3, current)
	assert.Equal(t, 3, longest)

	// A quiet today does not break yesterday's run.
	current, longest = streaks(map[string]int{
		"2025-10-14": 1, "2025-10-13": 1,
	}, now)
	assert.Equal(t, 2, current)
	assert.Equal(t, 2, longest)

	// A gap ends the current run but not the record.
	current, longest = streaks(map[string]int{
		"2025-10-15": 1, "2025-10-12": 1, "2025-10-11": 1, "2025-10-10": 1,
	}, now)
	assert.Equal(t, 1, current)
	assert.Equal(t, 3, longest)

	current, longest = streaks(map[string]int{}, now)
	assert.Equal(t, 0, current)
	assert.Equal(t, 0, longest)
}

func TestInsightSchedulerValidatesSchedule(t *testing.T) {
	store := newTestStore(t)
	eng, err := NewEngine(store, happyGenerator(), DefaultConfig())
	require.NoError(t, err)

	_, err = NewInsightScheduler(eng, "not a schedule")
	require.Error(t, err)

	sched, err := NewInsightScheduler(eng, "17 3 * * *")
	require.NoError(t, err)
	require.NoError(t, sched.Start())
	sched.Stop()
}
