package types

import "time"

// MaxFactLength is the maximum accepted length of a user fact in characters.
const MaxFactLength = 200

// UserFact is a user-declared statement about themselves ("I work at X",
// "My manager is Sarah"). Facts feed the context builder and the people
// canonicalizer. Facts are never hard-deleted, only deactivated.
type UserFact struct {
	ID        string       `json:"id"`         // Unique identifier (UUID)
	Text      string       `json:"text"`       // Fact text, max 200 chars
	Category  FactCategory `json:"category"`   // Derived category
	Active    bool         `json:"active"`     // Soft-delete flag
	CreatedAt time.Time    `json:"created_at"` // Creation timestamp
}
