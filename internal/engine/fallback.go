package engine

import (
	"regexp"
	"strings"

	"github.com/quietlog/loom/pkg/types"
)

// Ordered fallback tables. Every extraction field has a local, deterministic
// answer so an entry is still enriched when the model is down, times out, or
// returns junk. Tables are scanned in order and the first hit wins; all
// matching is done on a lowercased copy of the entry text.

// hashtagPattern matches literal #word tokens.
var hashtagPattern = regexp.MustCompile(`#(\w+)`)

// emotionCues maps emotions to the words that suggest them. More specific
// states come before generic ones so "overwhelmed" is not reported as
// merely "stressed".
var emotionCues = []struct {
	emotion string
	cues    []string
}{
	{"overwhelmed", []string{"overwhelmed", "overwhelming", "too much"}},
	{"stressed", []string{"stressed", "stressful", "under pressure", "burnt out", "burned out"}},
	{"anxious", []string{"anxious", "anxiety", "nervous", "uneasy", "panic"}},
	{"worried", []string{"worried", "worry", "concerned"}},
	{"frustrated", []string{"frustrated", "frustrating", "annoyed", "fed up"}},
	{"angry", []string{"angry", "furious", "mad at"}},
	{"disappointed", []string{"disappointed", "let down"}},
	{"sad", []string{"sad", "unhappy", "heartbroken", "feeling down"}},
	{"lonely", []string{"lonely", "isolated", "on my own"}},
	{"tired", []string{"tired", "exhausted", "drained", "sleepy", "fatigued"}},
	{"excited", []string{"excited", "exciting", "thrilled", "can't wait"}},
	{"grateful", []string{"grateful", "thankful", "appreciate"}},
	{"proud", []string{"proud", "accomplished"}},
	{"hopeful", []string{"hopeful", "optimistic", "looking forward"}},
	{"motivated", []string{"motivated", "energized", "determined"}},
	{"happy", []string{"happy", "delighted", "wonderful", "great day"}},
	{"relaxed", []string{"relaxed", "relaxing", "unwind"}},
	{"calm", []string{"calm", "peaceful", "serene"}},
	{"content", []string{"feeling content", "satisfied", "at ease"}},
}

// themeCues maps each taxonomy theme to its cue words, scanned in taxonomy
// order. Cues avoid short stems that hide inside unrelated words.
var themeCues = map[string][]string{
	"work":          {"work", "meeting", "project", "deadline", "office", "boss", "client", "standup"},
	"personal":      {"myself", "personal", "routine", "errand"},
	"health":        {"gym", "workout", "doctor", "sick", "sleep", "exercise", "health"},
	"relationships": {"friend", "dating", "partner", "relationship"},
	"family":        {"family", "mom", "dad", "sister", "brother", "kids", "parents"},
	"finance":       {"money", "budget", "rent", "salary", "invoice", "bills", "taxes"},
	"travel":        {"trip", "flight", "travel", "vacation", "hotel", "airport"},
	"learning":      {"learn", "course", "study", "reading", "tutorial"},
	"creativity":    {"writing", "music", "painting", "design", "drawing", "creative"},
	"leisure":       {"movie", "game", "hike", "relax", "weekend", "party"},
}

// urgencyCues holds per-level cue lists in strict priority order.
var urgencyCues = []struct {
	level string
	cues  []string
}{
	{types.UrgencyHigh, []string{"urgent", "asap", "immediately", "emergency", "critical", "right away"}},
	{types.UrgencyMedium, []string{"soon", "deadline", "tomorrow", "by the end of"}},
	{types.UrgencyLow, []string{"eventually", "someday", "at some point", "no rush"}},
}

// actionTriggers are the clause openers that mark an action item, matched
// in this fixed order.
var actionTriggers = []*regexp.Regexp{
	regexp.MustCompile(`(?i)\bneeds? to\s+`),
	regexp.MustCompile(`(?i)\bmust\s+`),
	regexp.MustCompile(`(?i)\bha(?:ve|s) to\s+`),
	regexp.MustCompile(`(?i)\btodo:\s*`),
	regexp.MustCompile(`(?i)\b(?:should|ought to)\s+`),
}

// normalizeEmotion accepts a valid remote emotion or classifies the text
// locally.
func normalizeEmotion(remote, text string) string {
	emotion := strings.ToLower(strings.TrimSpace(remote))
	if types.IsValidEmotion(emotion) {
		return emotion
	}
	return classifyEmotion(text)
}

// classifyEmotion scans the cue table and returns the first matching
// emotion, or "neutral".
func classifyEmotion(text string) string {
	lower := strings.ToLower(text)
	for _, entry := range emotionCues {
		for _, cue := range entry.cues {
			if strings.Contains(lower, cue) {
				return entry.emotion
			}
		}
	}
	return "neutral"
}

// normalizeMood accepts a valid remote mood or defaults to neutral.
func normalizeMood(remote string) string {
	mood := strings.ToLower(strings.TrimSpace(remote))
	if types.IsValidMood(mood) {
		return mood
	}
	return types.MoodNeutral
}

// verifyTags keeps only remote tags literally present as #tag in the text,
// ordered by appearance there. An empty result falls back to the text's own
// hashtags. Cap 3 either way.
func verifyTags(remote []string, text string) []string {
	present := textHashtags(text)
	if len(remote) == 0 {
		return capList(present, 3)
	}

	claimed := make(map[string]bool, len(remote))
	for _, tag := range remote {
		tag = strings.ToLower(strings.TrimSpace(strings.TrimPrefix(tag, "#")))
		if tag != "" {
			claimed[tag] = true
		}
	}

	var verified []string
	for _, tag := range present {
		if claimed[tag] {
			verified = append(verified, tag)
		}
	}
	if len(verified) == 0 {
		return capList(present, 3)
	}
	return capList(verified, 3)
}

// textHashtags extracts the text's own #tags, lowercased, deduped, in
// order of appearance.
func textHashtags(text string) []string {
	var tags []string
	seen := make(map[string]bool)
	for _, m := range hashtagPattern.FindAllStringSubmatch(text, -1) {
		tag := strings.ToLower(m[1])
		if !seen[tag] {
			seen[tag] = true
			tags = append(tags, tag)
		}
	}
	return tags
}

// filterThemes keeps remote labels that belong to the taxonomy, lowercased
// and deduped, cap 3.
func filterThemes(remote []string) []string {
	var themes []string
	seen := make(map[string]bool)
	for _, theme := range remote {
		theme = strings.ToLower(strings.TrimSpace(theme))
		if !types.IsValidTheme(theme) || seen[theme] {
			continue
		}
		seen[theme] = true
		themes = append(themes, theme)
	}
	return capList(themes, 3)
}

// fallbackThemes scans the text for theme cues in taxonomy order, cap 3.
func fallbackThemes(text string) []string {
	lower := strings.ToLower(text)
	var themes []string
	for _, theme := range types.ValidThemes {
		for _, cue := range themeCues[theme] {
			if strings.Contains(lower, cue) {
				themes = append(themes, theme)
				break
			}
		}
		if len(themes) == 3 {
			break
		}
	}
	return themes
}

// normalizeUrgency matches the remote value by substring in priority order.
// Returns "" when nothing matches so the caller can fall back.
func normalizeUrgency(remote string) string {
	lower := strings.ToLower(remote)
	for _, level := range types.ValidUrgencies {
		if strings.Contains(lower, level) {
			return level
		}
	}
	return ""
}

// fallbackUrgency classifies the text by cue lists in priority order,
// defaulting to none.
func fallbackUrgency(text string) string {
	lower := strings.ToLower(text)
	for _, entry := range urgencyCues {
		for _, cue := range entry.cues {
			if strings.Contains(lower, cue) {
				return entry.level
			}
		}
	}
	return types.UrgencyNone
}

// sanitizeActions trims a remote action list, dropping blanks, cap 5.
func sanitizeActions(remote []string) []string {
	var actions []string
	for _, a := range remote {
		a = strings.TrimSpace(a)
		if a != "" {
			actions = append(actions, a)
		}
	}
	return capList(actions, 5)
}

// fallbackActions extracts action clauses by trigger pattern: everything
// from the trigger to the next sentence boundary. Clauses under 4 chars
// are noise, duplicates keep their first occurrence, cap 5.
func fallbackActions(text string) []string {
	var actions []string
	seen := make(map[string]bool)

	for _, trigger := range actionTriggers {
		for _, loc := range trigger.FindAllStringIndex(text, -1) {
			clause := text[loc[1]:]
			if end := strings.IndexAny(clause, ".!?\n"); end >= 0 {
				clause = clause[:end]
			}
			clause = strings.TrimRight(strings.TrimSpace(clause), ",;:")
			if len(clause) < 4 || seen[clause] {
				continue
			}
			seen[clause] = true
			actions = append(actions, clause)
		}
	}
	return capList(actions, 5)
}
