package query

import (
	"regexp"
	"sort"
	"strings"
	"sync"

	"pmcbot/internal/heuristics"
)

// RecencyClassifier detects requests for the most recent matching record.
type RecencyClassifier struct {
	rules *heuristics.Provider

	mu       sync.Mutex
	compiled *heuristics.Rules
	pattern  *regexp.Regexp
}

// NewRecencyClassifier creates a classifier reading keywords from rules.
func NewRecencyClassifier(rules *heuristics.Provider) *RecencyClassifier {
	return &RecencyClassifier{rules: rules}
}

// IsRecent reports whether text contains a recency keyword anywhere, case-insensitively.
func (c *RecencyClassifier) IsRecent(text string) bool {
	re := c.regexp()
	return re != nil && re.MatchString(text)
}

// TopicClause returns the text following the first recency keyword.
// ok is false when no keyword matches.
func (c *RecencyClassifier) TopicClause(text string) (clause string, ok bool) {
	re := c.regexp()
	if re == nil {
		return "", false
	}
	loc := re.FindStringIndex(text)
	if loc == nil {
		return "", false
	}
	return strings.TrimSpace(text[loc[1]:]), true
}

// regexp returns the pattern for the current rules snapshot, rebuilding it
// after a reload.
func (c *RecencyClassifier) regexp() *regexp.Regexp {
	rules := c.rules.Rules()

	c.mu.Lock()
	defer c.mu.Unlock()
	if c.compiled != rules {
		c.pattern = compileKeywords(rules.Recency.Keywords)
		c.compiled = rules
	}
	return c.pattern
}

// compileKeywords builds one alternation, longest keyword first so
// "most recent" wins over "recent". ASCII keywords are anchored on word
// boundaries; \b is ASCII-only in RE2, so Devanagari keywords are not.
func compileKeywords(keywords []string) *regexp.Regexp {
	if len(keywords) == 0 {
		return nil
	}
	sorted := append([]string(nil), keywords...)
	sort.SliceStable(sorted, func(i, j int) bool { return len(sorted[i]) > len(sorted[j]) })

	parts := make([]string, 0, len(sorted))
	for _, kw := range sorted {
		quoted := regexp.QuoteMeta(kw)
		if isASCIIWord(kw) {
			quoted = `\b` + quoted + `\b`
		}
		parts = append(parts, quoted)
	}
	return regexp.MustCompile(`(?i)(?:` + strings.Join(parts, "|") + `)`)
}

func isASCIIWord(s string) bool {
	if s == "" {
		return false
	}
	for i := 0; i < len(s); i++ {
		if s[i] >= 0x80 {
			return false
		}
	}
	first, last := s[0], s[len(s)-1]
	return isWordByte(first) && isWordByte(last)
}

func isWordByte(b byte) bool {
	return b == '_' || (b >= '0' && b <= '9') || (b >= 'a' && b <= 'z') || (b >= 'A' && b <= 'Z')
}
