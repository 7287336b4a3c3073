package engine

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/quietlog/loom/internal/storage"
	"github.com/quietlog/loom/pkg/types"
)

// Insight generation thresholds.
const (
	// insightWindow is how far back insights look.
	insightWindow = 30 * 24 * time.Hour

	// minEntriesForInsights is the floor below which no insights are
	// generated; small samples produce noise, not discoveries.
	minEntriesForInsights = 20

	// maxInsights caps how many insights one run reports.
	maxInsights = 5

	// dominantShare is the share a top emotion needs to count as dominant.
	dominantShare = 0.7

	// minEmotionSamples is the per-group floor for emotion dominance.
	minEmotionSamples = 10

	// frequencyRatio is the weekday/weekend ratio worth reporting.
	frequencyRatio = 2.0
)

// weekdayOrder fixes the iteration order for day-specific insights.
var weekdayOrder = []string{
	"monday", "tuesday", "wednesday", "thursday", "friday", "saturday", "sunday",
}

// InsightGenerator derives plain-language observations from recent entries.
// The same entries always produce the same insights in the same order, so
// repeated runs are safe to cache and compare.
type InsightGenerator struct {
	entries storage.EntryStore
}

// NewInsightGenerator creates an insight generator over the entry store.
func NewInsightGenerator(entries storage.EntryStore) *InsightGenerator {
	return &InsightGenerator{entries: entries}
}

// Generate inspects the last 30 days of entries and reports up to five
// insights: writing frequency by day type first, then dominant emotions by
// weekday (Monday through Sunday), then dominant emotions by person
// (alphabetical). Fewer than 20 entries in the window yields none.
func (g *InsightGenerator) Generate(ctx context.Context, now time.Time) ([]string, error) {
	entries, err := g.entries.EntriesSince(ctx, now.Add(-insightWindow))
	if err != nil {
		return nil, fmt.Errorf("insight window: %w", err)
	}
	if len(entries) < minEntriesForInsights {
		return nil, nil
	}

	var insights []string
	insights = append(insights, frequencyInsights(entries)...)
	insights = append(insights, weekdayEmotionInsights(entries)...)
	insights = append(insights, personEmotionInsights(entries)...)

	if len(insights) > maxInsights {
		insights = insights[:maxInsights]
	}
	return insights, nil
}

// frequencyInsights compares weekday and weekend writing volume.
func frequencyInsights(entries []types.Entry) []string {
	var weekday, weekend int
	for _, e := range entries {
		if DayTypeOf(e.CreatedAt) == types.DayWeekend {
			weekend++
		} else {
			weekday++
		}
	}
	if weekday == 0 || weekend == 0 {
		return nil
	}

	ratio := float64(weekday) / float64(weekend)
	if ratio < frequencyRatio {
		return nil
	}
	return []string{fmt.Sprintf("You write %.1fx more on weekdays", ratio)}
}

// weekdayEmotionInsights reports days with a dominant emotion.
func weekdayEmotionInsights(entries []types.Entry) []string {
	byDay := make(map[string][]string)
	for _, e := range entries {
		if e.Emotion == "" {
			continue
		}
		day := WeekdayKey(e.CreatedAt)
		byDay[day] = append(byDay[day], e.Emotion)
	}

	var insights []string
	for _, day := range weekdayOrder {
		if emotion, ok := dominantEmotion(byDay[day]); ok {
			insights = append(insights, fmt.Sprintf("%ss are usually %s", titleWord(day), emotion))
		}
	}
	return insights
}

// personEmotionInsights reports people associated with a dominant emotion.
func personEmotionInsights(entries []types.Entry) []string {
	byPerson := make(map[string][]string)
	for _, e := range entries {
		if e.Emotion == "" {
			continue
		}
		for _, person := range e.People {
			byPerson[person] = append(byPerson[person], e.Emotion)
		}
	}

	people := make([]string, 0, len(byPerson))
	for person := range byPerson {
		people = append(people, person)
	}
	sort.Strings(people)

	var insights []string
	for _, person := range people {
		if emotion, ok := dominantEmotion(byPerson[person]); ok {
			insights = append(insights, fmt.Sprintf("When you mention %s, you're usually %s", person, emotion))
		}
	}
	return insights
}

// dominantEmotion reports the emotion covering at least 70% of a sample of
// 10 or more. Ties resolve to the alphabetically first emotion.
func dominantEmotion(emotions []string) (string, bool) {
	if len(emotions) < minEmotionSamples {
		return "", false
	}

	counts := make(map[string]int)
	for _, e := range emotions {
		counts[e]++
	}

	var top string
	var topCount int
	for emotion, count := range counts {
		if count > topCount || (count == topCount && emotion < top) {
			top = emotion
			topCount = count
		}
	}

	if float64(topCount)/float64(len(emotions)) < dominantShare {
		return "", false
	}
	return top, true
}

// titleWord uppercases the first letter of a word.
func titleWord(word string) string {
	if word == "" {
		return word
	}
	return strings.ToUpper(word[:1]) + word[1:]
}
