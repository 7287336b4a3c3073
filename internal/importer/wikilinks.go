package importer

import (
	"regexp"
	"strings"
)

// wikilinkRe matches [[link]] and [[link|alias]] patterns.
var wikilinkRe = regexp.MustCompile(`\[\[([^\[\]|]+?)(?:\|([^\[\]]+?))?\]\]`)

// StripWikiLinks replaces [[wiki-links]] in content with plain text, so
// notes exported from Obsidian read as ordinary journal entries. If the link
// has an alias, the alias is used; otherwise the target name is used.
func StripWikiLinks(content string) string {
	return wikilinkRe.ReplaceAllStringFunc(content, func(match string) string {
		parts := wikilinkRe.FindStringSubmatch(match)
		if len(parts) < 2 {
			return match
		}
		if len(parts) >= 3 && strings.TrimSpace(parts[2]) != "" {
			return strings.TrimSpace(parts[2])
		}
		return strings.TrimSpace(parts[1])
	})
}
