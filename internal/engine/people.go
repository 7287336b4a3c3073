package engine

import (
	"strings"
	"unicode"
)

// People canonicalization. Remote people lists are checked against names the
// system already knows (declared facts, learned entities) so one person never
// splinters into several spellings; genuinely new names are accepted only
// when the text itself supports them.

const (
	// fuzzyMatchThreshold is the minimum similarity to treat a token as a
	// misspelling of a known name.
	fuzzyMatchThreshold = 0.8

	// fuzzyLengthWindow caps the length difference between tokens eligible
	// for fuzzy comparison.
	fuzzyLengthWindow = 3

	// maxPeople caps people per entry.
	maxPeople = 5
)

// peopleStoplist holds capitalized tokens that are never person names.
var peopleStoplist = map[string]bool{
	"monday": true, "tuesday": true, "wednesday": true, "thursday": true,
	"friday": true, "saturday": true, "sunday": true,
	"january": true, "february": true, "march": true, "april": true,
	"may": true, "june": true, "july": true, "august": true,
	"september": true, "october": true, "november": true, "december": true,
	"i": true, "i'm": true, "i've": true, "i'll": true, "i'd": true,
	"he": true, "she": true, "they": true, "we": true, "you": true, "it": true,
	"my": true, "the": true, "a": true, "an": true, "this": true, "that": true,
	"and": true, "but": true, "so": true, "ok": true, "okay": true,
	"today": true, "yesterday": true, "tomorrow": true, "tonight": true,
}

// textToken is one cleaned word of the entry with its sentence position.
type textToken struct {
	word            string
	sentenceInitial bool
}

// validatePeople resolves each remote name to a canonical spelling: exact
// match against a known name first, fuzzy match second, and otherwise the
// name is kept only if the text contains it as a plausible new-person
// token. First-appearance order, deduped, cap 5.
func validatePeople(remote []string, text string, knownNames []string) []string {
	tokens := tokenizeForPeople(text)

	var people []string
	seen := make(map[string]bool)
	keep := func(name string) {
		key := strings.ToLower(name)
		if !seen[key] && len(people) < maxPeople {
			seen[key] = true
			people = append(people, name)
		}
	}

	for _, name := range remote {
		name = strings.TrimSpace(name)
		if name == "" {
			continue
		}
		if canonical := resolveKnownName(name, knownNames); canonical != "" {
			keep(canonical)
			continue
		}
		if spelled := findNewNameToken(name, tokens); spelled != "" {
			keep(spelled)
		}
	}
	return people
}

// fallbackPeople extracts people from the text alone: capitalized tokens
// resolving to known names anywhere, plus new-looking capitalized tokens
// that do not open a sentence.
func fallbackPeople(text string, knownNames []string) []string {
	var people []string
	seen := make(map[string]bool)

	for _, token := range tokenizeForPeople(text) {
		runes := []rune(token.word)
		if len(runes) < 2 || !unicode.IsUpper(runes[0]) {
			continue
		}
		name := token.word
		if canonical := resolveKnownName(name, knownNames); canonical != "" {
			name = canonical
		} else if token.sentenceInitial || peopleStoplist[strings.ToLower(name)] {
			continue
		}
		key := strings.ToLower(name)
		if seen[key] {
			continue
		}
		seen[key] = true
		people = append(people, name)
		if len(people) == maxPeople {
			break
		}
	}
	return people
}

// resolveKnownName returns the canonical spelling for a name that matches a
// known name exactly (case-insensitive) or fuzzily, or "".
func resolveKnownName(name string, knownNames []string) string {
	lower := strings.ToLower(name)
	for _, known := range knownNames {
		if strings.ToLower(known) == lower {
			return known
		}
	}
	for _, known := range knownNames {
		if abs(len(name)-len(known)) > fuzzyLengthWindow {
			continue
		}
		if similarityRatio(lower, strings.ToLower(known)) >= fuzzyMatchThreshold {
			return known
		}
	}
	return ""
}

// findNewNameToken checks whether the text supports name as a new person:
// a capitalized token matching it case-insensitively that does not open a
// sentence and is not stoplisted. Returns the text's spelling.
func findNewNameToken(name string, tokens []textToken) string {
	lower := strings.ToLower(name)
	if peopleStoplist[lower] {
		return ""
	}
	for _, token := range tokens {
		if token.sentenceInitial || strings.ToLower(token.word) != lower {
			continue
		}
		runes := []rune(token.word)
		if len(runes) >= 2 && unicode.IsUpper(runes[0]) {
			return token.word
		}
	}
	return ""
}

// tokenizeForPeople splits text into cleaned tokens, marking the ones that
// open a sentence. A newline always starts a new sentence.
func tokenizeForPeople(text string) []textToken {
	var tokens []textToken
	for _, line := range strings.Split(text, "\n") {
		initial := true
		for _, raw := range strings.Fields(line) {
			endsSentence := strings.ContainsAny(raw, ".!?")
			word := strings.TrimFunc(raw, func(r rune) bool {
				return !unicode.IsLetter(r) && !unicode.IsNumber(r)
			})
			if word != "" {
				tokens = append(tokens, textToken{word: word, sentenceInitial: initial})
				initial = false
			}
			if endsSentence {
				initial = true
			}
		}
	}
	return tokens
}

// similarityRatio computes the Ratcliff/Obershelp similarity of two strings:
// twice the matched character count over the total length.
func similarityRatio(a, b string) float64 {
	total := len(a) + len(b)
	if total == 0 {
		return 1.0
	}
	return 2 * float64(matchedChars(a, b)) / float64(total)
}

// matchedChars counts characters covered by the longest common substring
// and, recursively, the pieces on either side of it.
func matchedChars(a, b string) int {
	ai, bi, size := longestCommonSubstring(a, b)
	if size == 0 {
		return 0
	}
	return size + matchedChars(a[:ai], b[:bi]) + matchedChars(a[ai+size:], b[bi+size:])
}

// longestCommonSubstring finds the longest run of bytes common to a and b,
// returning its start in each plus its length. Ties keep the earliest.
func longestCommonSubstring(a, b string) (int, int, int) {
	var bestA, bestB, bestSize int
	prev := make([]int, len(b)+1)
	cur := make([]int, len(b)+1)

	for i := 1; i <= len(a); i++ {
		for j := 1; j <= len(b); j++ {
			if a[i-1] != b[j-1] {
				cur[j] = 0
				continue
			}
			cur[j] = prev[j-1] + 1
			if cur[j] > bestSize {
				bestSize = cur[j]
				bestA = i - bestSize
				bestB = j - bestSize
			}
		}
		prev, cur = cur, prev
		for j := range cur {
			cur[j] = 0
		}
	}
	return bestA, bestB, bestSize
}

func abs(n int) int {
	if n < 0 {
		return -n
	}
	return n
}
