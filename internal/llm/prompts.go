// Package llm provides local LLM integration for entry enrichment. It
// includes strict JSON-only prompt templates for the four extractor tasks
// (analysis bundle, themes, people, urgency) and response parsers that
// tolerate the markdown noise small local models produce.
package llm

import (
	"fmt"
	"strings"

	"github.com/quietlog/loom/pkg/types"
)

// contextSection renders the shared prompt preamble carrying what the
// system already knows about the writer. Empty context renders nothing.
func contextSection(context string) string {
	if strings.TrimSpace(context) == "" {
		return ""
	}
	return fmt.Sprintf("CONTEXT (prior knowledge about the writer, use to disambiguate):\n%s\n\n", context)
}

// AnalysisPrompt generates a strict JSON-only prompt for the analysis
// bundle: mood, emotion, tags, actions in one call.
//
// Parameters:
//   - content: The journal entry text
//   - context: Known facts and patterns about the writer (may be empty)
//
// Returns:
//   - A prompt string that will elicit JSON-only responses from the LLM
func AnalysisPrompt(content, context string) string {
	return fmt.Sprintf(`TASK: Analyze a journal entry.
OUTPUT: ONLY valid JSON. NO markdown. NO code blocks. NO explanations.

%sFIELDS (all four required):
- mood: overall sentiment, EXACTLY one of: positive|negative|neutral|mixed
- emotion: the single strongest emotion word, one of: %s|neutral
- tags: hashtag topics literally present in the text as #word, WITHOUT the # prefix, max 3
- actions: concrete things the writer says they need or intend to do, max 5, empty array if none

Example structure (EXACT FORMAT REQUIRED):
{"mood":"negative","emotion":"stressed","tags":["work"],"actions":["finish the quarterly report"]}

VALIDATION (STRICT):
1. Start with { - End with }
2. All four keys present
3. No extra fields
4. No null values
5. No trailing commas

JOURNAL ENTRY:
%s

RESPOND WITH ONLY THE JSON OBJECT (nothing else):`,
		contextSection(context), strings.Join(types.ValidEmotions, "|"), content)
}

// ThemesPrompt generates a strict JSON-only prompt for theme extraction
// against the fixed taxonomy.
func ThemesPrompt(content, context string) string {
	return fmt.Sprintf(`TASK: Classify the themes of a journal entry.
OUTPUT: ONLY valid JSON. NO markdown. NO code blocks. NO explanations.

%sTHEMES (ONLY these %d, pick up to 3 that apply):
%s

Example structure (EXACT FORMAT REQUIRED):
{"themes":["work","health"]}

RULES:
1. Use ONLY themes from the list above
2. Maximum 3 themes
3. If nothing fits, return {"themes":[]}

JOURNAL ENTRY:
%s

RESPOND WITH ONLY THE JSON OBJECT (nothing else):`,
		contextSection(context), len(types.ValidThemes), "- "+strings.Join(types.ValidThemes, "\n- "), content)
}

// PeoplePrompt generates a strict JSON-only prompt for extracting the
// names of people mentioned in the entry. Known names from context help
// the model keep spellings canonical.
func PeoplePrompt(content, context string) string {
	return fmt.Sprintf(`TASK: Extract names of people mentioned in a journal entry.
OUTPUT: ONLY valid JSON. NO markdown. NO code blocks. NO explanations.

%sRULES:
1. Only actual people (no companies, places, products)
2. First names as written are fine; prefer spellings from the context when the same person is clearly meant
3. Do NOT include the writer themselves
4. Maximum 5 names
5. If no people are mentioned, return {"people":[]}

Example structure (EXACT FORMAT REQUIRED):
{"people":["Sarah","Tom"]}

JOURNAL ENTRY:
%s

RESPOND WITH ONLY THE JSON OBJECT (nothing else):`,
		contextSection(context), content)
}

// UrgencyPrompt generates a strict JSON-only prompt for urgency
// classification.
func UrgencyPrompt(content, context string) string {
	return fmt.Sprintf(`TASK: Rate the urgency expressed in a journal entry.
OUTPUT: ONLY valid JSON. NO markdown. NO code blocks. NO explanations.

%sLEVELS (EXACTLY one):
- high: immediate pressure, deadlines today, emergencies
- medium: near-term deadlines, things due soon
- low: someday items, no time pressure mentioned but intent exists
- none: no tasks or time pressure at all

Example structure (EXACT FORMAT REQUIRED):
{"urgency":"medium"}

JOURNAL ENTRY:
%s

RESPOND WITH ONLY THE JSON OBJECT (nothing else):`,
		contextSection(context), content)
}
