package types

import "time"

// Entry represents a single journal entry with its enrichment fields.
// The raw content is written synchronously at creation time; everything in
// the enrichment group is filled in later by the background pipeline.
type Entry struct {
	// Core fields
	ID        string    `json:"id"`         // Unique identifier (UUID)
	Content   string    `json:"content"`    // Raw entry text as the user wrote it
	CreatedAt time.Time `json:"created_at"` // When the entry was posted

	// Enrichment fields (populated by the extraction pipeline)
	Tags    []string `json:"tags,omitempty"`    // Verified #hashtags, max 3
	Mood    string   `json:"mood,omitempty"`    // positive, negative, neutral, mixed
	Emotion string   `json:"emotion,omitempty"` // One of the emotion vocabulary
	Actions []string `json:"actions,omitempty"` // Extracted action items, max 5
	Themes  []string `json:"themes,omitempty"`  // Taxonomy themes, max 3
	People  []string `json:"people,omitempty"`  // Mentioned people, max 5
	Urgency string   `json:"urgency,omitempty"` // none, low, medium, high

	// Enrichment tracking
	Status         EntryStatus `json:"status"`                 // pending, processing, completed, failed
	EnrichAttempts int         `json:"enrich_attempts"`        // Number of enrichment attempts
	EnrichError    string      `json:"enrich_error,omitempty"` // Last error message if enrichment failed
	EnrichedAt     *time.Time  `json:"enriched_at,omitempty"`  // When enrichment completed
}
