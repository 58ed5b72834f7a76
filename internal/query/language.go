// Package query turns a raw utterance into the text that is embedded and
// searched: language detection, follow-up detection, recency intent and
// context rewriting.
package query

import (
	"strings"

	"github.com/abadojack/whatlanggo"

	"pmcbot/internal/heuristics"
)

// Language is the resolved answer language.
type Language string

const (
	// English is the primary language and the fallback.
	English Language = "en"
	// Marathi is the secondary language.
	Marathi Language = "mr"
)

// ParseLanguage maps "en"/"mr" (and their ISO 639-3 or English names) to a Language.
func ParseLanguage(s string) (Language, bool) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "en", "eng", "english":
		return English, true
	case "mr", "mar", "marathi":
		return Marathi, true
	}
	return English, false
}

var detectOptions = whatlanggo.Options{
	Whitelist: map[whatlanggo.Lang]bool{
		whatlanggo.Eng: true,
		whatlanggo.Mar: true,
	},
}

// LanguageClassifier labels utterances as English or Marathi.
type LanguageClassifier struct {
	rules *heuristics.Provider
}

// NewLanguageClassifier creates a classifier reading thresholds from rules.
func NewLanguageClassifier(rules *heuristics.Provider) *LanguageClassifier {
	return &LanguageClassifier{rules: rules}
}

// Detect returns Marathi only when the detector is confident about it;
// empty input, detector panics and anything else resolve to English.
func (c *LanguageClassifier) Detect(text string) (lang Language) {
	if strings.TrimSpace(text) == "" {
		return English
	}
	defer func() {
		if recover() != nil {
			lang = English
		}
	}()

	info := whatlanggo.DetectWithOptions(text, detectOptions)
	if info.Lang != whatlanggo.Mar {
		return English
	}
	if c.rules != nil && info.Confidence < c.rules.Rules().Language.MinConfidence {
		return English
	}
	return Marathi
}
