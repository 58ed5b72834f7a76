package rag

import (
	"regexp"
	"strings"

	"pmcbot/internal/query"
)

var (
	// linkPattern matches a markdown link or a bare URL; markdown wins at the same position.
	linkPattern       = regexp.MustCompile(`\[([^\]]*)\]\((https?://[^\s)]+)\)|(https?://[^\s<>()\[\]]+)`)
	markdownLinkRegex = regexp.MustCompile(`\[([^\]]+)\]\(([^)\s]+)\)`)
)

const trailingURLPunct = ".,;:!?'\""

var anchorText = map[query.Language]string{
	query.English: "here",
	query.Marathi: "येथे",
}

// RemoveDuplicateLinks keeps the first occurrence of every URL and deletes
// later ones, whether written as a markdown link or bare. Surrounding text is
// left as is. Applying it twice gives the same result as once.
func RemoveDuplicateLinks(text string) string {
	matches := linkPattern.FindAllStringSubmatchIndex(text, -1)
	if len(matches) == 0 {
		return text
	}

	seen := make(map[string]struct{}, len(matches))
	var b strings.Builder
	b.Grow(len(text))
	last := 0
	for _, m := range matches {
		start, end := m[0], m[1]
		var url string
		if m[4] >= 0 {
			url = text[m[4]:m[5]]
		} else {
			url = strings.TrimRight(text[m[6]:m[7]], trailingURLPunct)
			end = m[6] + len(url)
		}

		key := strings.TrimRight(url, "/")
		if _, dup := seen[key]; !dup {
			seen[key] = struct{}{}
			continue
		}
		b.WriteString(text[last:start])
		last = end
	}
	b.WriteString(text[last:])
	return b.String()
}

// NormalizeMarkdownLinks replaces visible link text that is itself a URL
// with a short anchor word. Link targets are never changed.
func NormalizeMarkdownLinks(text string, lang query.Language) string {
	anchor, ok := anchorText[lang]
	if !ok {
		anchor = anchorText[query.English]
	}
	return markdownLinkRegex.ReplaceAllStringFunc(text, func(link string) string {
		parts := markdownLinkRegex.FindStringSubmatch(link)
		visible := strings.TrimSpace(parts[1])
		if !looksLikeURL(visible) {
			return link
		}
		return "[" + anchor + "](" + parts[2] + ")"
	})
}

func looksLikeURL(s string) bool {
	lower := strings.ToLower(s)
	return strings.HasPrefix(lower, "http://") || strings.HasPrefix(lower, "https://") || strings.HasPrefix(lower, "www.")
}

// PostProcess applies duplicate-link removal then link normalization.
func PostProcess(text string, lang query.Language) string {
	return strings.TrimSpace(NormalizeMarkdownLinks(RemoveDuplicateLinks(text), lang))
}
