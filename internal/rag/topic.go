package rag

import (
	"strings"
	"unicode"
	"unicode/utf8"

	"pmcbot/internal/heuristics"
	"pmcbot/internal/query"
	"pmcbot/internal/records"
)

// TopicPhrases derives the noun phrases a recent record must mention from
// the clause following a recency keyword. Punctuation splits the clause into
// segments; inside a segment, stopwords, generic record nouns and recency
// keywords break phrases. An empty result disables topic narrowing.
func TopicPhrases(clause string, rules heuristics.RecencyRules) []string {
	drop := make(map[string]struct{}, len(rules.TopicStopwords)+len(rules.GenericNouns)+len(rules.Keywords))
	for _, list := range [][]string{rules.TopicStopwords, rules.GenericNouns, rules.Keywords} {
		for _, w := range list {
			if !strings.Contains(w, " ") {
				drop[w] = struct{}{}
			}
		}
	}

	var phrases []string
	seen := make(map[string]struct{})
	flush := func(run []string) {
		if len(run) == 0 {
			return
		}
		phrase := strings.Join(run, " ")
		if _, dup := seen[phrase]; !dup {
			seen[phrase] = struct{}{}
			phrases = append(phrases, phrase)
		}
	}

	for _, segment := range splitSegments(clause) {
		var run []string
		for _, token := range query.Tokenize(segment) {
			if _, skip := drop[token]; skip {
				flush(run)
				run = nil
				continue
			}
			run = append(run, token)
		}
		flush(run)
	}
	return phrases
}

// splitSegments splits on punctuation but not on whitespace, hyphens or apostrophes.
func splitSegments(text string) []string {
	return strings.FieldsFunc(text, func(r rune) bool {
		if unicode.IsLetter(r) || unicode.IsDigit(r) || unicode.IsMark(r) || unicode.IsSpace(r) {
			return false
		}
		return r != '-' && r != '\''
	})
}

// minTermRunes keeps short words split out of a phrase, like "tax" from
// "property tax", from matching on their own.
const minTermRunes = 4

// topicTerms expands topic phrases into everything a record may mention to
// count as on topic: each phrase, its contiguous sub-phrases, then its single
// words. Longer terms come first.
func topicTerms(phrases []string) []string {
	byLen := make(map[int][]string)
	longest := 0
	seen := make(map[string]struct{})
	for _, phrase := range phrases {
		words := strings.Fields(phrase)
		for n := len(words); n >= 1; n-- {
			for i := 0; i+n <= len(words); i++ {
				term := strings.Join(words[i:i+n], " ")
				if n == 1 && len(words) > 1 && utf8.RuneCountInString(term) < minTermRunes {
					continue
				}
				if _, dup := seen[term]; dup {
					continue
				}
				seen[term] = struct{}{}
				byLen[n] = append(byLen[n], term)
				longest = max(longest, n)
			}
		}
	}

	terms := make([]string, 0, len(seen))
	for n := longest; n >= 1; n-- {
		terms = append(terms, byLen[n]...)
	}
	return terms
}

// topicMatch ranks how specifically a record mentions the topic: by the word
// count of the longest term found, then by the number of single words found.
type topicMatch struct {
	longest int
	words   int
}

func (m topicMatch) less(o topicMatch) bool {
	if m.longest != o.longest {
		return m.longest < o.longest
	}
	return m.words < o.words
}

// matchTopic looks for terms at word starts in the record's title,
// description or body text, so "supply" also finds "supplying".
func matchTopic(c records.Candidate, terms []string) topicMatch {
	tokens := query.Tokenize(c.Title() + "\n" + c.Description() + "\n" + c.Text())
	if len(tokens) == 0 {
		return topicMatch{}
	}
	haystack := " " + strings.Join(tokens, " ")

	var m topicMatch
	for _, term := range terms {
		if !strings.Contains(haystack, " "+term) {
			continue
		}
		n := strings.Count(term, " ") + 1
		m.longest = max(m.longest, n)
		if n == 1 {
			m.words++
		}
	}
	return m
}
