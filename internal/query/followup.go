package query

import (
	"strings"

	"pmcbot/internal/heuristics"
)

// FollowupClassifier decides whether an utterance depends on the previous turn.
type FollowupClassifier struct {
	rules *heuristics.Provider
}

// NewFollowupClassifier creates a classifier reading word lists from rules.
func NewFollowupClassifier(rules *heuristics.Provider) *FollowupClassifier {
	return &FollowupClassifier{rules: rules}
}

// IsFollowup applies the rules in order and stops at the first match:
// no previous query, short utterance with a pronoun, explicit reference
// pattern, then question-word checks. The result depends only on the inputs
// and the current rules snapshot.
func (c *FollowupClassifier) IsFollowup(utterance string, previous *string) bool {
	if previous == nil || strings.TrimSpace(*previous) == "" {
		return false
	}

	rules := c.rules.Rules().Followup
	tokens := Tokenize(utterance)
	if len(tokens) == 0 {
		return false
	}
	words := len(strings.Fields(utterance))
	index := newPhraseIndex(tokens)

	if words <= rules.PronounMaxWords && index.hasAny(rules.Pronouns) {
		return true
	}

	if index.hasAny(rules.ReferencePatterns) {
		return true
	}

	if startsWithAny(tokens[0], rules.QuestionWords) {
		if words <= rules.ShortQuestionMaxWords {
			return true
		}
		return index.hasAny(rules.ContextWords)
	}

	return false
}

func startsWithAny(first string, words []string) bool {
	for _, w := range words {
		if first == w {
			return true
		}
	}
	return false
}
