package types

// ExtractionResult is the bundle of signals the extraction pipeline produces
// for one entry. It is the unit persisted back to the entry and the sole
// input to pattern observation. Every field is already validated: tags are
// verified against the source text, emotion/themes/urgency are restricted to
// their vocabularies, people carry canonical spellings.
type ExtractionResult struct {
	Tags    []string `json:"tags"`    // Max 3, each literally present as #tag in the text
	Mood    string   `json:"mood"`    // positive, negative, neutral, mixed
	Emotion string   `json:"emotion"` // Emotion vocabulary or "neutral"
	Actions []string `json:"actions"` // Max 5 action items
	Themes  []string `json:"themes"`  // Max 3 taxonomy labels
	People  []string `json:"people"`  // Max 5 canonical names, first-appearance order
	Urgency string   `json:"urgency"` // none, low, medium, high
}
