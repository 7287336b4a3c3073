package types

// ValidEmotions is the fixed emotion vocabulary accepted on entries.
// Anything outside this list (plus "neutral") is replaced by the local
// keyword classifier during validation.
var ValidEmotions = []string{
	"happy",
	"sad",
	"anxious",
	"excited",
	"frustrated",
	"grateful",
	"angry",
	"calm",
	"stressed",
	"hopeful",
	"tired",
	"content",
	"overwhelmed",
	"proud",
	"lonely",
	"motivated",
	"worried",
	"relaxed",
	"disappointed",
}

// ValidThemes is the fixed theme taxonomy. Remote theme lists are filtered
// to this set and capped at three per entry.
var ValidThemes = []string{
	"work",
	"personal",
	"health",
	"relationships",
	"family",
	"finance",
	"travel",
	"learning",
	"creativity",
	"leisure",
}

// ValidUrgencies lists urgency levels from strongest to weakest, the order
// substring matching resolves conflicts in.
var ValidUrgencies = []string{
	UrgencyHigh,
	UrgencyMedium,
	UrgencyLow,
	UrgencyNone,
}

// ValidMoods lists the accepted coarse sentiment values.
var ValidMoods = []string{
	MoodPositive,
	MoodNegative,
	MoodNeutral,
	MoodMixed,
}

// IsValidEmotion reports whether emotion is in the fixed vocabulary.
// "neutral" is always accepted.
func IsValidEmotion(emotion string) bool {
	if emotion == "neutral" {
		return true
	}
	for _, e := range ValidEmotions {
		if e == emotion {
			return true
		}
	}
	return false
}

// IsValidTheme reports whether theme is in the fixed taxonomy.
func IsValidTheme(theme string) bool {
	for _, t := range ValidThemes {
		if t == theme {
			return true
		}
	}
	return false
}

// IsValidUrgency reports whether urgency is a known level.
func IsValidUrgency(urgency string) bool {
	for _, u := range ValidUrgencies {
		if u == urgency {
			return true
		}
	}
	return false
}

// IsValidMood reports whether mood is a known sentiment value.
func IsValidMood(mood string) bool {
	for _, m := range ValidMoods {
		if m == mood {
			return true
		}
	}
	return false
}
