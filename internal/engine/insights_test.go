package engine

import (
	"context"
	"fmt"
	"reflect"
	"testing"
	"time"

	"github.com/google/uuid"

	"github.com/quietlog/loom/internal/storage/sqlite"
	"github.com/quietlog/loom/pkg/types"
)

// seedEnrichedEntry inserts a completed entry with the given timestamp,
// emotion, and people.
func seedEnrichedEntry(t *testing.T, store *sqlite.Store, at time.Time, emotion string, people []string) {
	t.Helper()
	entry := &types.Entry{
		ID:        uuid.NewString(),
		Content:   fmt.Sprintf("entry at %s", at.Format(time.RFC3339)),
		CreatedAt: at,
		Status:    types.EntryCompleted,
		Emotion:   emotion,
		People:    people,
	}
	if err := store.CreateEntry(context.Background(), entry); err != nil {
		t.Fatalf("seed entry: %v", err)
	}
}

func TestGenerateBelowFloorReturnsNothing(t *testing.T) {
	store := newTestStore(t)
	gen := NewInsightGenerator(store)
	now := time.Date(2025, 10, 31, 12, 0, 0, 0, time.UTC)

	for i := 0; i < 19; i++ {
		seedEnrichedEntry(t, store, now.AddDate(0, 0, -i-1), "happy", nil)
	}

	insights, err := gen.Generate(context.Background(), now)
	if err != nil {
		t.Fatalf("generate: %v", err)
	}
	if insights != nil {
		t.Errorf("insights below floor = %v, want none", insights)
	}
}

func TestGenerateFrequencyInsight(t *testing.T) {
	store := newTestStore(t)
	gen := NewInsightGenerator(store)
	now := time.Date(2025, 10, 31, 12, 0, 0, 0, time.UTC) // Friday

	// Twenty weekday entries spread over one work week, ten weekend ones.
	monday := time.Date(2025, 10, 6, 10, 0, 0, 0, time.UTC)
	for i := 0; i < 20; i++ {
		seedEnrichedEntry(t, store, monday.AddDate(0, 0, i%5), "calm", nil)
	}
	saturday := time.Date(2025, 10, 11, 10, 0, 0, 0, time.UTC)
	for i := 0; i < 10; i++ {
		seedEnrichedEntry(t, store, saturday.AddDate(0, 0, i%2), "calm", nil)
	}

	insights, err := gen.Generate(context.Background(), now)
	if err != nil {
		t.Fatalf("generate: %v", err)
	}
	if !reflect.DeepEqual(insights, []string{"You write 2.0x more on weekdays"}) {
		t.Errorf("insights = %v", insights)
	}
}

func TestGenerateWeekdayEmotionInsight(t *testing.T) {
	store := newTestStore(t)
	gen := NewInsightGenerator(store)
	now := time.Date(2025, 10, 31, 12, 0, 0, 0, time.UTC)

	// Ten Monday entries, 80% anxious.
	mondays := []time.Time{
		time.Date(2025, 10, 6, 9, 0, 0, 0, time.UTC),
		time.Date(2025, 10, 13, 9, 0, 0, 0, time.UTC),
		time.Date(2025, 10, 20, 9, 0, 0, 0, time.UTC),
		time.Date(2025, 10, 27, 9, 0, 0, 0, time.UTC),
	}
	for i := 0; i < 10; i++ {
		emotion := "anxious"
		if i >= 8 {
			emotion = "calm"
		}
		seedEnrichedEntry(t, store, mondays[i%4].Add(time.Duration(i)*time.Minute), emotion, nil)
	}

	// Ten Tuesday entries with no dominant emotion.
	tuesday := time.Date(2025, 10, 7, 9, 0, 0, 0, time.UTC)
	for i := 0; i < 10; i++ {
		emotion := "happy"
		if i%2 == 0 {
			emotion = "sad"
		}
		seedEnrichedEntry(t, store, tuesday.AddDate(0, 0, 7*(i%4)).Add(time.Duration(i)*time.Minute), emotion, nil)
	}

	insights, err := gen.Generate(context.Background(), now)
	if err != nil {
		t.Fatalf("generate: %v", err)
	}
	if !reflect.DeepEqual(insights, []string{"Mondays are usually anxious"}) {
		t.Errorf("insights = %v", insights)
	}
}

func TestGeneratePersonEmotionInsight(t *testing.T) {
	store := newTestStore(t)
	gen := NewInsightGenerator(store)
	now := time.Date(2025, 10, 31, 12, 0, 0, 0, time.UTC)

	// Ten Sarah entries, 90% stressed, two per weekday so no single day
	// reaches the weekday-insight floor.
	monday := time.Date(2025, 10, 6, 9, 0, 0, 0, time.UTC)
	for i := 0; i < 10; i++ {
		emotion := "stressed"
		if i == 9 {
			emotion = "happy"
		}
		at := monday.AddDate(0, 0, i%5)
		if i >= 5 {
			at = at.AddDate(0, 0, 7)
		}
		seedEnrichedEntry(t, store, at, emotion, []string{"Sarah"})
	}

	// Ten filler entries, no people, no dominant emotion per weekday.
	for i := 0; i < 10; i++ {
		emotion := "calm"
		if i%2 == 0 {
			emotion = "tired"
		}
		at := monday.AddDate(0, 0, i%5).Add(2 * time.Hour)
		if i >= 5 {
			at = at.AddDate(0, 0, 14)
		}
		seedEnrichedEntry(t, store, at, emotion, nil)
	}

	insights, err := gen.Generate(context.Background(), now)
	if err != nil {
		t.Fatalf("generate: %v", err)
	}
	if !reflect.DeepEqual(insights, []string{"When you mention Sarah, you're usually stressed"}) {
		t.Errorf("insights = %v", insights)
	}
}

func TestGenerateOrderedInsights(t *testing.T) {
	store := newTestStore(t)
	gen := NewInsightGenerator(store)
	now := time.Date(2025, 10, 31, 12, 0, 0, 0, time.UTC)

	mondays := time.Date(2025, 10, 6, 9, 0, 0, 0, time.UTC)
	tuesdays := time.Date(2025, 10, 7, 9, 0, 0, 0, time.UTC)
	wednesdays := time.Date(2025, 10, 8, 9, 0, 0, 0, time.UTC)
	for i := 0; i < 10; i++ {
		week := 7 * (i % 4)
		seedEnrichedEntry(t, store, mondays.AddDate(0, 0, week).Add(time.Duration(i)*time.Minute), "anxious", nil)
		seedEnrichedEntry(t, store, tuesdays.AddDate(0, 0, week).Add(time.Duration(i)*time.Minute), "tired", nil)
		seedEnrichedEntry(t, store, wednesdays.AddDate(0, 0, week).Add(time.Duration(i)*time.Minute), "happy", []string{"Sarah"})
	}

	// Fifteen weekend entries, no dominance on either day.
	saturday := time.Date(2025, 10, 11, 10, 0, 0, 0, time.UTC)
	for i := 0; i < 15; i++ {
		emotion := "calm"
		if i%2 == 0 {
			emotion = "happy"
		}
		at := saturday.AddDate(0, 0, (i%2)+7*(i%3)).Add(time.Duration(i) * time.Minute)
		seedEnrichedEntry(t, store, at, emotion, nil)
	}

	want := []string{
		"You write 2.0x more on weekdays",
		"Mondays are usually anxious",
		"Tuesdays are usually tired",
		"Wednesdays are usually happy",
		"When you mention Sarah, you're usually happy",
	}

	insights, err := gen.Generate(context.Background(), now)
	if err != nil {
		t.Fatalf("generate: %v", err)
	}
	if !reflect.DeepEqual(insights, want) {
		t.Errorf("insights = %v\nwant %v", insights, want)
	}

	// Deterministic: the same window yields the same report.
	again, err := gen.Generate(context.Background(), now)
	if err != nil {
		t.Fatalf("second generate: %v", err)
	}
	if !reflect.DeepEqual(again, insights) {
		t.Errorf("repeat run differs: %v vs %v", again, insights)
	}
}

func TestGenerateWindowExcludesOldEntries(t *testing.T) {
	store := newTestStore(t)
	gen := NewInsightGenerator(store)
	now := time.Date(2025, 10, 31, 12, 0, 0, 0, time.UTC)

	for i := 0; i < 25; i++ {
		seedEnrichedEntry(t, store, now.AddDate(0, 0, -40-i), "anxious", nil)
	}
	for i := 0; i < 5; i++ {
		seedEnrichedEntry(t, store, now.AddDate(0, 0, -i-1), "anxious", nil)
	}

	insights, err := gen.Generate(context.Background(), now)
	if err != nil {
		t.Fatalf("generate: %v", err)
	}
	if insights != nil {
		t.Errorf("stale entries leaked into window: %v", insights)
	}
}

func TestDominantEmotion(t *testing.T) {
	many := func(emotion string, n int) []string {
		out := make([]string, n)
		for i := range out {
			out[i] = emotion
		}
		return out
	}

	if _, ok := dominantEmotion(many("happy", 9)); ok {
		t.Error("nine samples should be below the floor")
	}

	// Exactly 70% qualifies.
	sample := append(many("anxious", 7), many("calm", 3)...)
	if emotion, ok := dominantEmotion(sample); !ok || emotion != "anxious" {
		t.Errorf("dominantEmotion(7/10) = %q, %v", emotion, ok)
	}

	sample = append(many("anxious", 6), many("calm", 4)...)
	if _, ok := dominantEmotion(sample); ok {
		t.Error("60% share should not dominate")
	}

	// Neutral is an emotion like any other here.
	if emotion, ok := dominantEmotion(many("neutral", 10)); !ok || emotion != "neutral" {
		t.Errorf("dominantEmotion(neutral) = %q, %v", emotion, ok)
	}
}
