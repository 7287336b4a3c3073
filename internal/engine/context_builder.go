package engine

import (
	"strings"

	"github.com/quietlog/loom/pkg/types"
)

// factWordLimit bounds the fact half of the context on its own, so a
// fact-heavy profile cannot crowd out the pattern half entirely.
const factWordLimit = 500

// combinedContextWordLimit bounds the final context string.
const combinedContextWordLimit = 500

// BuildContext assembles the prior-knowledge string handed to every
// extraction prompt: user-declared facts first, then learned patterns
// relevant to the entry text. Pure; lookups happen at the call site.
// Returns "" when neither half contributes.
func BuildContext(facts []types.UserFact, patterns string) string {
	var parts []string

	if factText := formatFacts(facts); factText != "" {
		parts = append(parts, "User facts: "+factText)
	}
	if patterns != "" {
		parts = append(parts, "Relevant patterns: "+patterns)
	}
	if len(parts) == 0 {
		return ""
	}
	return truncateWords(strings.Join(parts, "\n"), combinedContextWordLimit)
}

// formatFacts flattens facts grouped in category display order. Inactive
// facts are assumed already filtered out by the store.
func formatFacts(facts []types.UserFact) string {
	if len(facts) == 0 {
		return ""
	}

	byCategory := make(map[types.FactCategory][]string)
	for _, f := range facts {
		byCategory[f.Category] = append(byCategory[f.Category], f.Text)
	}

	var texts []string
	for _, category := range types.ValidFactCategories {
		texts = append(texts, byCategory[category]...)
	}
	return truncateWords(strings.Join(texts, "; "), factWordLimit)
}

// truncateWords caps s at limit whitespace-separated words, appending
// "..." when anything was cut.
func truncateWords(s string, limit int) string {
	words := strings.Fields(s)
	if len(words) <= limit {
		return s
	}
	return strings.Join(words[:limit], " ") + "..."
}
