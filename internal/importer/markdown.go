package importer

import (
	"bufio"
	"fmt"
	"regexp"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// ParsedNote represents a single Markdown file parsed into journal form.
type ParsedNote struct {
	// RelativePath is the path relative to the import root directory.
	RelativePath string

	// Content is the Markdown body with frontmatter stripped and wiki
	// links flattened to plain text.
	Content string

	// Frontmatter holds the parsed YAML frontmatter key/value pairs.
	Frontmatter map[string]interface{}

	// Tags is the merged set of tags from frontmatter and inline #tags.
	Tags []string

	// CreatedAt is from the frontmatter date field, or zero if absent.
	CreatedAt time.Time
}

// ParseMarkdownNote parses a single Markdown file's content into a note.
func ParseMarkdownNote(content []byte, relativePath string) (*ParsedNote, error) {
	fm, body, err := splitFrontmatter(string(content))
	if err != nil {
		return nil, fmt.Errorf("frontmatter parse error in %s: %w", relativePath, err)
	}

	tags := mergeTags(extractTags(fm), extractInlineTags(body))
	body = strings.TrimSpace(StripWikiLinks(body))

	return &ParsedNote{
		RelativePath: relativePath,
		Content:      body,
		Frontmatter:  fm,
		Tags:         tags,
		CreatedAt:    extractTimestamp(fm),
	}, nil
}

// splitFrontmatter separates YAML frontmatter (between --- delimiters) from
// the Markdown body. Returns empty map and full text when no frontmatter found.
func splitFrontmatter(text string) (map[string]interface{}, string, error) {
	scanner := bufio.NewScanner(strings.NewReader(text))

	var lines []string
	for scanner.Scan() {
		lines = append(lines, scanner.Text())
	}

	if len(lines) == 0 {
		return map[string]interface{}{}, text, nil
	}

	// Frontmatter must start with "---" on the first line.
	if strings.TrimSpace(lines[0]) != "---" {
		return map[string]interface{}{}, text, nil
	}

	closeIdx := -1
	for i := 1; i < len(lines); i++ {
		if strings.TrimSpace(lines[i]) == "---" {
			closeIdx = i
			break
		}
	}

	if closeIdx == -1 {
		// No closing delimiter, treat entire file as body.
		return map[string]interface{}{}, text, nil
	}

	fmText := strings.Join(lines[1:closeIdx], "\n")
	fm := make(map[string]interface{})
	if err := yaml.Unmarshal([]byte(fmText), &fm); err != nil {
		return map[string]interface{}{}, text, fmt.Errorf("invalid YAML: %w", err)
	}

	body := strings.Join(lines[closeIdx+1:], "\n")
	return fm, body, nil
}

// extractTags reads tags from frontmatter. Handles both list and string forms.
func extractTags(fm map[string]interface{}) []string {
	raw, ok := fm["tags"]
	if !ok {
		return nil
	}

	switch v := raw.(type) {
	case []interface{}:
		var tags []string
		for _, item := range v {
			if s, ok := item.(string); ok && s != "" {
				tags = append(tags, s)
			}
		}
		return tags
	case string:
		if v == "" {
			return nil
		}
		// Comma-separated tags in a single string.
		var tags []string
		for _, t := range strings.Split(v, ",") {
			if t = strings.TrimSpace(t); t != "" {
				tags = append(tags, t)
			}
		}
		return tags
	}
	return nil
}

// extractTimestamp reads a date field from frontmatter and attempts several
// common layouts. Date-only forms parse in local time so the entry lands on
// the writer's calendar day.
func extractTimestamp(fm map[string]interface{}) time.Time {
	layouts := []string{
		time.RFC3339,
		"2006-01-02T15:04:05",
		"2006-01-02 15:04:05",
		"2006-01-02 15:04",
		"2006-01-02",
		"January 2, 2006",
		"Jan 2, 2006",
	}

	for _, key := range []string{"date", "created", "created_at"} {
		raw, ok := fm[key]
		if !ok {
			continue
		}
		var s string
		switch v := raw.(type) {
		case string:
			s = v
		case time.Time:
			// yaml.v3 resolves canonical timestamps itself.
			return v
		default:
			s = fmt.Sprintf("%v", v)
		}
		for _, layout := range layouts {
			if t, err := time.ParseInLocation(layout, strings.TrimSpace(s), time.Local); err == nil {
				return t
			}
		}
	}
	return time.Time{}
}

// inlineTagRe finds #hashtag patterns in body text.
var inlineTagRe = regexp.MustCompile(`(?:^|\s)#([A-Za-z][A-Za-z0-9_/-]*)`)

// extractInlineTags finds #hashtag patterns in body text.
func extractInlineTags(body string) []string {
	matches := inlineTagRe.FindAllStringSubmatch(body, -1)
	seen := make(map[string]bool)
	var tags []string
	for _, m := range matches {
		tag := strings.TrimSpace(m[1])
		lower := strings.ToLower(tag)
		if !seen[lower] {
			seen[lower] = true
			tags = append(tags, tag)
		}
	}
	return tags
}

// mergeTags combines two tag slices deduplicating by lowercase value.
func mergeTags(a, b []string) []string {
	seen := make(map[string]bool)
	var result []string
	for _, tag := range append(a, b...) {
		lower := strings.ToLower(tag)
		if !seen[lower] {
			seen[lower] = true
			result = append(result, tag)
		}
	}
	return result
}
