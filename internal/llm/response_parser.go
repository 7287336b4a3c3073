package llm

import (
	"encoding/json"
	"fmt"
	"strings"
)

// AnalysisResponse is the bundle returned by the analysis extractor task:
// coarse sentiment, a single emotion word, proposed tags, and action items.
// Fields are raw model output; vocabulary validation happens downstream.
type AnalysisResponse struct {
	Mood    string   `json:"mood"`
	Emotion string   `json:"emotion"`
	Tags    []string `json:"tags"`
	Actions []string `json:"actions"`
}

// themesResponse represents the themes extractor response
type themesResponse struct {
	Themes []string `json:"themes"`
}

// peopleResponse represents the people extractor response
type peopleResponse struct {
	People []string `json:"people"`
}

// urgencyResponse represents the urgency extractor response
type urgencyResponse struct {
	Urgency string `json:"urgency"`
}

// decodeJSON locates and unmarshals a JSON payload inside free text.
// LLMs add explanations and markdown fences despite instructions, so the
// payload is located by progressively looser strategies: the contents of
// the first fenced code block, then the first balanced object or array,
// then the whole trimmed body. The first candidate that unmarshals wins;
// if none does, the last error is returned.
func decodeJSON(text string, v interface{}) error {
	var lastErr error
	for _, candidate := range jsonCandidates(text) {
		if err := json.Unmarshal([]byte(candidate), v); err != nil {
			lastErr = err
			continue
		}
		return nil
	}
	if lastErr == nil {
		lastErr = fmt.Errorf("empty response")
	}
	return lastErr
}

// jsonCandidates returns possible JSON payloads in decreasing strictness.
func jsonCandidates(text string) []string {
	var candidates []string
	if fenced, ok := fencedBlock(text); ok {
		candidates = append(candidates, fenced)
	}
	if balanced, ok := balancedJSON(text); ok {
		candidates = append(candidates, balanced)
	}
	if trimmed := strings.TrimSpace(text); trimmed != "" {
		candidates = append(candidates, trimmed)
	}
	return candidates
}

// fencedBlock extracts the contents of the first ``` fenced code block,
// tolerating an optional language tag after the opening fence.
func fencedBlock(text string) (string, bool) {
	start := strings.Index(text, "```")
	if start == -1 {
		return "", false
	}
	rest := text[start+3:]

	// Skip the language tag line ("json", "JSON", or nothing).
	if nl := strings.IndexByte(rest, '\n'); nl != -1 {
		tag := strings.TrimSpace(rest[:nl])
		if tag == "" || strings.EqualFold(tag, "json") {
			rest = rest[nl+1:]
		}
	}

	end := strings.Index(rest, "```")
	if end == -1 {
		return "", false
	}
	return strings.TrimSpace(rest[:end]), true
}

// balancedJSON extracts the first balanced JSON object or array from text.
// Braces inside string literals are not counted; escapes are honored.
func balancedJSON(text string) (string, bool) {
	start := strings.IndexAny(text, "{[")
	if start == -1 {
		return "", false
	}

	open := text[start]
	var closing byte = '}'
	if open == '[' {
		closing = ']'
	}

	depth := 0
	inString := false
	escape := false

	for i := start; i < len(text); i++ {
		char := text[i]

		if escape {
			escape = false
			continue
		}
		if char == '\\' {
			escape = true
			continue
		}
		if char == '"' {
			inString = !inString
			continue
		}
		if inString {
			continue
		}

		switch char {
		case open:
			depth++
		case closing:
			depth--
			if depth == 0 {
				return text[start : i+1], true
			}
		}
	}

	return "", false
}

// ParseAnalysisResponse parses the analysis bundle JSON (mood, emotion,
// tags, actions). It returns an error only if no JSON can be located and
// unmarshaled; field values are returned as-is for downstream validation.
func ParseAnalysisResponse(raw string) (*AnalysisResponse, error) {
	var response AnalysisResponse
	if err := decodeJSON(raw, &response); err != nil {
		return nil, fmt.Errorf("failed to parse analysis JSON: %w", err)
	}
	response.Mood = strings.ToLower(strings.TrimSpace(response.Mood))
	response.Emotion = strings.ToLower(strings.TrimSpace(response.Emotion))
	return &response, nil
}

// ParseThemesResponse parses the themes extractor JSON. Both the object
// form {"themes":[...]} and a bare array are accepted.
func ParseThemesResponse(raw string) ([]string, error) {
	var response themesResponse
	if err := decodeJSON(raw, &response); err == nil && response.Themes != nil {
		return lowered(response.Themes), nil
	}

	var bare []string
	if err := decodeJSON(raw, &bare); err != nil {
		return nil, fmt.Errorf("failed to parse themes JSON: %w", err)
	}
	return lowered(bare), nil
}

// ParsePeopleResponse parses the people extractor JSON. Both the object
// form {"people":[...]} and a bare array are accepted. Names keep their
// original casing; matching against known names happens downstream.
func ParsePeopleResponse(raw string) ([]string, error) {
	var response peopleResponse
	if err := decodeJSON(raw, &response); err == nil && response.People != nil {
		return trimmed(response.People), nil
	}

	var bare []string
	if err := decodeJSON(raw, &bare); err != nil {
		return nil, fmt.Errorf("failed to parse people JSON: %w", err)
	}
	return trimmed(bare), nil
}

// ParseUrgencyResponse parses the urgency extractor JSON and returns the
// raw lowercased level string.
func ParseUrgencyResponse(raw string) (string, error) {
	var response urgencyResponse
	if err := decodeJSON(raw, &response); err != nil {
		return "", fmt.Errorf("failed to parse urgency JSON: %w", err)
	}
	return strings.ToLower(strings.TrimSpace(response.Urgency)), nil
}

func lowered(items []string) []string {
	out := make([]string, 0, len(items))
	for _, item := range items {
		item = strings.ToLower(strings.TrimSpace(item))
		if item != "" {
			out = append(out, item)
		}
	}
	return out
}

func trimmed(items []string) []string {
	out := make([]string, 0, len(items))
	for _, item := range items {
		item = strings.TrimSpace(item)
		if item != "" {
			out = append(out, item)
		}
	}
	return out
}
