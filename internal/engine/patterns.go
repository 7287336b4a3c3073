package engine

import (
	"context"
	"errors"
	"fmt"
	"math"
	"sort"
	"strconv"
	"strings"
	"sync"
	"time"
	"unicode"

	"github.com/quietlog/loom/internal/storage"
	"github.com/quietlog/loom/pkg/types"
)

// Display and query thresholds for learned patterns.
const (
	// minMentionsForContext is the mention floor for an entity to appear in
	// extraction context.
	minMentionsForContext = 5

	// minScoreForContext is the floor for confidence x decay.
	minScoreForContext = 0.5

	// maxContextEntities caps how many entities one context mentions.
	maxContextEntities = 3

	// contextWordLimit bounds the relevant-patterns string.
	contextWordLimit = 200

	// freshBucketConfidence is the confidence a temporal bucket holds
	// before its first recompute.
	freshBucketConfidence = 0.05
)

// PatternService owns all pattern read-modify-write cycles. A single
// mutex serializes writers so concurrent observations for the same entity
// or bucket can never lose updates; readers go straight to the store and
// may see pre- or post-update state, which is fine for advisory data.
type PatternService struct {
	store storage.PatternStore
	mu    sync.Mutex
}

// NewPatternService creates a pattern service over the given store.
func NewPatternService(store storage.PatternStore) *PatternService {
	return &PatternService{store: store}
}

// RecordObservation folds one extraction bundle into the learned patterns.
// Each mentioned person's entity pattern is created or updated, then the
// observation lands in exactly three temporal buckets derived from
// observedAt: (block, weekday), (block, "all"), and ("all", day-type).
// The temporal half runs even when no people were mentioned.
func (s *PatternService) RecordObservation(ctx context.Context, bundle *types.ExtractionResult, observedAt time.Time) error {
	if bundle == nil {
		return nil
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	for _, person := range bundle.People {
		if err := s.observeEntity(ctx, person, bundle, observedAt); err != nil {
			return fmt.Errorf("entity observation for %q: %w", person, err)
		}
	}

	block := TimeBlockFor(observedAt)
	weekday := WeekdayKey(observedAt)
	buckets := [3][2]string{
		{block, weekday},
		{block, types.DayAll},
		{types.TimeBlockAll, DayTypeOf(observedAt)},
	}
	for _, b := range buckets {
		if err := s.observeBucket(ctx, b[0], b[1], bundle.Themes, bundle.Emotion, observedAt); err != nil {
			return fmt.Errorf("temporal observation (%s,%s): %w", b[0], b[1], err)
		}
	}

	return nil
}

// observeEntity applies one mention to a single entity pattern.
// Corrupt stored records surface as ErrNotFound and are rebuilt from
// scratch by the upsert.
func (s *PatternService) observeEntity(ctx context.Context, name string, bundle *types.ExtractionResult, observedAt time.Time) error {
	pattern, err := s.store.GetEntityPattern(ctx, name)
	if errors.Is(err, storage.ErrNotFound) {
		pattern = &types.EntityPattern{
			Name:      name,
			FirstSeen: observedAt,
		}
	} else if err != nil {
		return err
	}

	pattern.MentionCount++
	pattern.ThemeCorrelations = incrementAll(pattern.ThemeCorrelations, bundle.Themes)
	pattern.EmotionCorrelations = incrementOne(pattern.EmotionCorrelations, bundle.Emotion)
	pattern.UrgencyCorrelations = incrementOne(pattern.UrgencyCorrelations, bundle.Urgency)

	pattern.TimePatterns = incrementOne(pattern.TimePatterns, strconv.Itoa(observedAt.Hour()))
	pattern.TimePatterns = incrementOne(pattern.TimePatterns, WeekdayKey(observedAt))

	pattern.LastSeen = observedAt
	pattern.Confidence = EntityConfidence(pattern.MentionCount)

	return s.store.UpsertEntityPattern(ctx, pattern)
}

// observeBucket applies one observation to a single temporal bucket.
// All three buckets of an observation flow through here so their
// accounting can never drift apart.
func (s *PatternService) observeBucket(ctx context.Context, block, weekday string, themes []string, emotion string, observedAt time.Time) error {
	pattern, err := s.store.GetTemporalPattern(ctx, block, weekday)
	if errors.Is(err, storage.ErrNotFound) {
		pattern = &types.TemporalPattern{
			TimeBlock:  block,
			Weekday:    weekday,
			Confidence: freshBucketConfidence,
		}
	} else if err != nil {
		return err
	}

	pattern.SampleCount++
	for _, theme := range themes {
		pattern.CommonThemes = appendIfAbsent(pattern.CommonThemes, theme)
	}
	if emotion != "" {
		pattern.CommonEmotions = appendIfAbsent(pattern.CommonEmotions, emotion)
	}
	pattern.Confidence = TemporalConfidence(pattern.SampleCount)
	pattern.UpdatedAt = observedAt

	return s.store.UpsertTemporalPattern(ctx, pattern)
}

// RelevantPatterns builds the pattern half of extraction context: what is
// known about entities the text mentions, plus the best-established
// temporal bucket for now. Returns "" when nothing qualifies.
func (s *PatternService) RelevantPatterns(ctx context.Context, text string, now time.Time) (string, error) {
	var segments []string

	entities, err := s.relevantEntities(ctx, text, now)
	if err != nil {
		return "", err
	}
	segments = append(segments, entities...)

	temporal, err := s.relevantTemporal(ctx, now)
	if err != nil {
		return "", err
	}
	if temporal != "" {
		segments = append(segments, temporal)
	}

	if len(segments) == 0 {
		return "", nil
	}
	return truncateWords(strings.Join(segments, "; "), contextWordLimit), nil
}

// relevantEntities resolves candidate names from the text against stored
// entity patterns and formats the qualifying ones.
func (s *PatternService) relevantEntities(ctx context.Context, text string, now time.Time) ([]string, error) {
	var qualifying []*types.EntityPattern

	for _, name := range candidateNames(text) {
		pattern, err := s.store.GetEntityPattern(ctx, name)
		if errors.Is(err, storage.ErrNotFound) {
			continue
		}
		if err != nil {
			return nil, err
		}

		if pattern.MentionCount < minMentionsForContext {
			continue
		}
		decay := DecayWeight(now.Sub(pattern.LastSeen))
		if pattern.Confidence*decay <= minScoreForContext {
			continue
		}
		qualifying = append(qualifying, pattern)
	}

	sort.Slice(qualifying, func(i, j int) bool {
		if qualifying[i].MentionCount != qualifying[j].MentionCount {
			return qualifying[i].MentionCount > qualifying[j].MentionCount
		}
		return qualifying[i].Name < qualifying[j].Name
	})
	if len(qualifying) > maxContextEntities {
		qualifying = qualifying[:maxContextEntities]
	}

	formatted := make([]string, 0, len(qualifying))
	for _, p := range qualifying {
		formatted = append(formatted, formatEntityPattern(p))
	}
	return formatted, nil
}

// formatEntityPattern renders "<name>: N mentions [theme P%] [emotion P%]";
// brackets for empty correlation maps are omitted.
func formatEntityPattern(p *types.EntityPattern) string {
	var b strings.Builder
	fmt.Fprintf(&b, "%s: %d mentions", p.Name, p.MentionCount)

	if theme, share := p.DominantTheme(); theme != "" {
		fmt.Fprintf(&b, " [%s %d%%]", theme, int(math.Round(share*100)))
	}
	if emotion, share := p.DominantEmotion(); emotion != "" {
		fmt.Fprintf(&b, " [%s %d%%]", emotion, int(math.Round(share*100)))
	}
	return b.String()
}

// relevantTemporal resolves one temporal bucket via the ordered fallback:
// the exact (block, weekday) bucket, then the (block, "all") aggregate,
// then the ("all", day-type) aggregate. Later tiers need more samples.
func (s *PatternService) relevantTemporal(ctx context.Context, now time.Time) (string, error) {
	block := TimeBlockFor(now)

	lookups := []struct {
		block      string
		weekday    string
		minSamples int
		minConf    float64
	}{
		{block, WeekdayKey(now), 5, 0.4},
		{block, types.DayAll, 10, 0.5},
		{types.TimeBlockAll, DayTypeOf(now), 10, 0.5},
	}

	for _, l := range lookups {
		pattern, err := s.store.GetTemporalPattern(ctx, l.block, l.weekday)
		if errors.Is(err, storage.ErrNotFound) {
			continue
		}
		if err != nil {
			return "", err
		}
		if pattern.SampleCount >= l.minSamples && pattern.Confidence > l.minConf {
			return formatTemporalPattern(pattern), nil
		}
	}

	return "", nil
}

// formatTemporalPattern renders one bucket as a sentence naming at most
// two themes, two emotions, and the sample count.
func formatTemporalPattern(p *types.TemporalPattern) string {
	var b strings.Builder
	b.WriteString(bucketDescriptor(p.TimeBlock, p.Weekday))
	b.WriteString(" you usually write")

	if themes := capList(p.CommonThemes, 2); len(themes) > 0 {
		fmt.Fprintf(&b, " about %s", strings.Join(themes, " and "))
	}
	if emotions := capList(p.CommonEmotions, 2); len(emotions) > 0 {
		fmt.Fprintf(&b, ", feeling %s", strings.Join(emotions, " and "))
	}
	fmt.Fprintf(&b, " (%d entries)", p.SampleCount)
	return b.String()
}

// bucketDescriptor names a bucket in plain words, always including the
// block or weekday so the reader can tell which rhythm is meant.
func bucketDescriptor(block, weekday string) string {
	switch {
	case block != types.TimeBlockAll && weekday != types.DayAll:
		return fmt.Sprintf("On %s %ss", weekday, block)
	case block == types.TimeBlockNight:
		return "At night"
	case block != types.TimeBlockAll:
		return fmt.Sprintf("In the %s", block)
	case weekday == types.DayWeekend:
		return "On weekends"
	default:
		return "On weekdays"
	}
}

// PurgeEntityPatterns removes entity patterns whose name contains the
// needle. Safe to repeat; the second call removes nothing.
func (s *PatternService) PurgeEntityPatterns(ctx context.Context, needle string) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.store.DeleteEntityPatternsMatching(ctx, needle)
}

// PurgeTemporalPatterns removes every temporal bucket. The next
// observation starts the rhythm statistics from scratch.
func (s *PatternService) PurgeTemporalPatterns(ctx context.Context) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.store.DeleteTemporalPatterns(ctx)
}

// TopEntities returns learned entity patterns at or above the mention
// floor, strongest first.
func (s *PatternService) TopEntities(ctx context.Context, minMentions, limit int) ([]types.EntityPattern, error) {
	return s.store.ListEntityPatterns(ctx, minMentions, limit)
}

// AllBuckets returns every temporal bucket, busiest first.
func (s *PatternService) AllBuckets(ctx context.Context) ([]types.TemporalPattern, error) {
	return s.store.ListTemporalPatterns(ctx)
}

// KnownNames returns the canonical names of all learned entities, used to
// keep people extraction spelling-stable.
func (s *PatternService) KnownNames(ctx context.Context) ([]string, error) {
	patterns, err := s.store.ListEntityPatterns(ctx, 1, 0)
	if err != nil {
		return nil, err
	}
	names := make([]string, 0, len(patterns))
	for _, p := range patterns {
		names = append(names, p.Name)
	}
	return names, nil
}

// EntityConfidence maps a mention count to a confidence score.
func EntityConfidence(mentions int) float64 {
	switch {
	case mentions < 5:
		return 0.3
	case mentions < 10:
		return 0.6
	case mentions < 20:
		return 0.8
	default:
		return 0.9
	}
}

// TemporalConfidence maps a bucket sample count to a confidence score.
func TemporalConfidence(samples int) float64 {
	switch {
	case samples < 10:
		return 0.4
	case samples < 20:
		return 0.6
	case samples < 50:
		return 0.8
	default:
		return 0.9
	}
}

// DecayWeight discounts a pattern by how long ago it was last reinforced.
func DecayWeight(sinceLastSeen time.Duration) float64 {
	days := sinceLastSeen.Hours() / 24
	switch {
	case days <= 7:
		return 1.0
	case days <= 30:
		return 0.8
	case days <= 90:
		return 0.6
	default:
		return 0.4
	}
}

// TimeBlockFor buckets a timestamp's hour into a time block.
func TimeBlockFor(t time.Time) string {
	hour := t.Hour()
	switch {
	case hour >= 5 && hour < 12:
		return types.TimeBlockMorning
	case hour >= 12 && hour < 17:
		return types.TimeBlockAfternoon
	case hour >= 17 && hour < 22:
		return types.TimeBlockEvening
	default:
		return types.TimeBlockNight
	}
}

// WeekdayKey returns the lowercase weekday name for a timestamp.
func WeekdayKey(t time.Time) string {
	return strings.ToLower(t.Weekday().String())
}

// DayTypeOf classifies a timestamp as "weekday" or "weekend".
func DayTypeOf(t time.Time) string {
	switch t.Weekday() {
	case time.Saturday, time.Sunday:
		return types.DayWeekend
	default:
		return types.DayWeekday
	}
}

// candidateNames extracts capitalized tokens from text as potential entity
// names. False positives are harmless: they simply miss on lookup.
func candidateNames(text string) []string {
	seen := make(map[string]bool)
	var names []string

	for _, token := range strings.Fields(text) {
		token = strings.TrimFunc(token, func(r rune) bool {
			return !unicode.IsLetter(r) && !unicode.IsNumber(r)
		})
		runes := []rune(token)
		if len(runes) < 2 || !unicode.IsUpper(runes[0]) {
			continue
		}
		key := strings.ToLower(token)
		if seen[key] {
			continue
		}
		seen[key] = true
		names = append(names, token)
	}
	return names
}

// incrementAll bumps the count for each label, allocating on first use.
func incrementAll(m map[string]int, labels []string) map[string]int {
	for _, label := range labels {
		m = incrementOne(m, label)
	}
	return m
}

// incrementOne bumps the count for a single label, skipping empties.
func incrementOne(m map[string]int, label string) map[string]int {
	if label == "" {
		return m
	}
	if m == nil {
		m = make(map[string]int)
	}
	m[label]++
	return m
}

// appendIfAbsent appends value unless already present, preserving order.
func appendIfAbsent(list []string, value string) []string {
	for _, v := range list {
		if v == value {
			return list
		}
	}
	return append(list, value)
}

// capList returns at most n leading items.
func capList(list []string, n int) []string {
	if len(list) <= n {
		return list
	}
	return list[:n]
}
