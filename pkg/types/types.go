// Package types defines the core data structures for the Loom journaling
// system: entries, user facts, learned patterns, and the extraction result
// bundle produced by the enrichment pipeline.
package types

// EntryStatus represents the enrichment status of a journal entry.
type EntryStatus string

// Entry enrichment status constants
const (
	// EntryPending indicates the entry is newly created, awaiting enrichment
	EntryPending EntryStatus = "pending"

	// EntryProcessing indicates the entry is currently being enriched
	EntryProcessing EntryStatus = "processing"

	// EntryCompleted indicates enrichment finished (possibly via fallbacks)
	EntryCompleted EntryStatus = "completed"

	// EntryFailed indicates enrichment failed after retries
	EntryFailed EntryStatus = "failed"
)

// FactCategory classifies a user-declared fact.
type FactCategory string

// Fact category constants
const (
	FactWork     FactCategory = "work"
	FactPersonal FactCategory = "personal"
	FactPeople   FactCategory = "people"
	FactLocation FactCategory = "location"
	FactOther    FactCategory = "other"
)

// ValidFactCategories lists all accepted fact categories in display order.
var ValidFactCategories = []FactCategory{
	FactWork,
	FactPersonal,
	FactPeople,
	FactLocation,
	FactOther,
}

// IsValidFactCategory reports whether c is a known fact category.
func IsValidFactCategory(c FactCategory) bool {
	for _, v := range ValidFactCategories {
		if v == c {
			return true
		}
	}
	return false
}

// Urgency levels, ordered from weakest to strongest.
const (
	UrgencyNone   = "none"
	UrgencyLow    = "low"
	UrgencyMedium = "medium"
	UrgencyHigh   = "high"
)

// Mood values for the coarse sentiment of an entry.
const (
	MoodPositive = "positive"
	MoodNegative = "negative"
	MoodNeutral  = "neutral"
	MoodMixed    = "mixed"
)
