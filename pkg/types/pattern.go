package types

import "time"

// Time blocks partition the day for temporal pattern bucketing.
// Morning is 05:00-11:59, afternoon 12:00-16:59, evening 17:00-21:59,
// night 22:00-04:59. TimeBlockAll is the aggregate across blocks.
const (
	TimeBlockMorning   = "morning"
	TimeBlockAfternoon = "afternoon"
	TimeBlockEvening   = "evening"
	TimeBlockNight     = "night"
	TimeBlockAll       = "all"
)

// Weekday keys for temporal patterns. Beyond the seven weekday names,
// DayAll aggregates across days within a time block, and DayWeekday /
// DayWeekend aggregate across blocks by day type.
const (
	DayAll     = "all"
	DayWeekday = "weekday"
	DayWeekend = "weekend"
)

// EntityPattern accumulates correlation statistics for one person name
// mentioned across entries. Created on first mention, updated in place on
// every later mention, never auto-deleted (only an explicit maintenance
// purge removes noise entries).
type EntityPattern struct {
	Name         string `json:"name"`          // Canonical display name (unique, case-insensitive)
	MentionCount int    `json:"mention_count"` // Total mentions across entries

	// Correlation maps: label -> observation count
	ThemeCorrelations   map[string]int `json:"theme_correlations"`   // Theme label -> count
	EmotionCorrelations map[string]int `json:"emotion_correlations"` // Emotion -> count
	UrgencyCorrelations map[string]int `json:"urgency_correlations"` // Urgency level -> count

	// TimePatterns is a flat map mixing hour-of-day digits ("0".."23") and
	// lowercase weekday names, each mapped to a mention count.
	TimePatterns map[string]int `json:"time_patterns"`

	Confidence float64   `json:"confidence"` // Mention-count based score in [0,1]
	FirstSeen  time.Time `json:"first_seen"` // First mention timestamp
	LastSeen   time.Time `json:"last_seen"`  // Most recent mention timestamp
}

// DominantTheme returns the most frequent theme label and its share of all
// theme observations, or ("", 0) when no themes have been recorded.
func (p *EntityPattern) DominantTheme() (string, float64) {
	return dominantLabel(p.ThemeCorrelations)
}

// DominantEmotion returns the most frequent emotion and its share of all
// emotion observations, or ("", 0) when no emotions have been recorded.
func (p *EntityPattern) DominantEmotion() (string, float64) {
	return dominantLabel(p.EmotionCorrelations)
}

// dominantLabel picks the highest-count label from a correlation map.
// Ties break alphabetically so repeated calls give a stable answer.
func dominantLabel(m map[string]int) (string, float64) {
	total := 0
	for _, c := range m {
		total += c
	}
	if total == 0 {
		return "", 0
	}
	best := ""
	bestCount := -1
	for label, c := range m {
		if c > bestCount || (c == bestCount && label < best) {
			best = label
			bestCount = c
		}
	}
	return best, float64(bestCount) / float64(total)
}

// TemporalPattern accumulates writing-rhythm statistics for one
// (time block, weekday) bucket. Every observation lands in exactly three
// buckets: the specific (block, weekday), the (block, "all") aggregate,
// and the ("all", day-type) aggregate.
type TemporalPattern struct {
	TimeBlock string `json:"time_block"` // morning, afternoon, evening, night, all
	Weekday   string `json:"weekday"`    // monday..sunday, all, weekday, weekend

	CommonThemes   []string `json:"common_themes"`   // Unique, in first-seen order
	CommonEmotions []string `json:"common_emotions"` // Unique, in first-seen order

	SampleCount int       `json:"sample_count"` // Observations in this bucket
	Confidence  float64   `json:"confidence"`   // Sample-count based score in [0,1]
	UpdatedAt   time.Time `json:"updated_at"`   // Last observation timestamp
}
