package query

import (
	"strings"
	"unicode"
)

// Tokenize lower-cases text and splits it on anything that is not a letter,
// digit or combining mark. Marks are kept so Devanagari words stay whole.
func Tokenize(text string) []string {
	if text == "" {
		return nil
	}

	var builder strings.Builder
	builder.Grow(len(text))
	for _, r := range strings.ToLower(text) {
		if unicode.IsLetter(r) || unicode.IsDigit(r) || unicode.IsMark(r) {
			builder.WriteRune(r)
		} else {
			builder.WriteRune(' ')
		}
	}
	tokens := strings.Fields(builder.String())
	if len(tokens) == 0 {
		return nil
	}
	return tokens
}

// phraseIndex matches whole-word phrases against a token sequence.
type phraseIndex struct {
	padded string
	tokens map[string]struct{}
}

func newPhraseIndex(tokens []string) phraseIndex {
	set := make(map[string]struct{}, len(tokens))
	for _, t := range tokens {
		set[t] = struct{}{}
	}
	return phraseIndex{
		padded: " " + strings.Join(tokens, " ") + " ",
		tokens: set,
	}
}

// has reports whether phrase occurs on word boundaries.
func (p phraseIndex) has(phrase string) bool {
	words := Tokenize(phrase)
	switch len(words) {
	case 0:
		return false
	case 1:
		_, ok := p.tokens[words[0]]
		return ok
	default:
		return strings.Contains(p.padded, " "+strings.Join(words, " ")+" ")
	}
}

func (p phraseIndex) hasAny(phrases []string) bool {
	for _, phrase := range phrases {
		if p.has(phrase) {
			return true
		}
	}
	return false
}
