// Package heuristics holds the keyword lists and thresholds that drive the
// query classifiers and the recency reranker. Rules are data: an embedded
// default can be overridden by a YAML file and hot-reloaded.
package heuristics

import (
	_ "embed"
	"fmt"
	"os"
	"strings"
	"sync/atomic"

	"gopkg.in/yaml.v3"
)

//go:embed heuristics.yaml
var defaultYAML []byte

// Rules is one immutable snapshot of classifier configuration.
type Rules struct {
	Followup FollowupRules `yaml:"followup"`
	Recency  RecencyRules  `yaml:"recency"`
	Language LanguageRules `yaml:"language"`
}

// FollowupRules configures the follow-up classifier.
type FollowupRules struct {
	// PronounMaxWords is the longest utterance for which a pronoun alone marks a follow-up.
	PronounMaxWords int `yaml:"pronoun_max_words"`
	// ShortQuestionMaxWords is the longest question-word utterance treated as a follow-up unconditionally.
	ShortQuestionMaxWords int      `yaml:"short_question_max_words"`
	Pronouns              []string `yaml:"pronouns"`
	ReferencePatterns     []string `yaml:"reference_patterns"`
	QuestionWords         []string `yaml:"question_words"`
	ContextWords          []string `yaml:"context_words"`
}

// RecencyRules configures recency-intent detection and topic narrowing.
type RecencyRules struct {
	Keywords []string `yaml:"keywords"`
	// TopicStopwords are dropped when deriving topic phrases.
	TopicStopwords []string `yaml:"topic_stopwords"`
	// GenericNouns name record kinds ("circular", "notice") rather than topics.
	GenericNouns []string `yaml:"generic_nouns"`
}

// LanguageRules configures the language classifier.
type LanguageRules struct {
	// MinConfidence below which a secondary-language guess falls back to primary.
	MinConfidence float64 `yaml:"min_confidence"`
}

// Default returns the embedded rules.
func Default() *Rules {
	rules, err := Parse(defaultYAML)
	if err != nil {
		panic(fmt.Sprintf("embedded heuristics are invalid: %v", err))
	}
	return rules
}

// Load reads rules from a YAML file. Sections missing from the file keep
// their embedded defaults.
func Load(path string) (*Rules, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read heuristics file: %w", err)
	}
	return Parse(data)
}

// Parse decodes YAML on top of the embedded defaults and validates the result.
func Parse(data []byte) (*Rules, error) {
	var rules Rules
	if len(defaultYAML) > 0 {
		if err := yaml.Unmarshal(defaultYAML, &rules); err != nil {
			return nil, fmt.Errorf("failed to parse default heuristics: %w", err)
		}
	}
	if err := yaml.Unmarshal(data, &rules); err != nil {
		return nil, fmt.Errorf("failed to parse heuristics: %w", err)
	}
	rules.normalize()
	if err := rules.Validate(); err != nil {
		return nil, err
	}
	return &rules, nil
}

// Validate checks thresholds and required lists.
func (r *Rules) Validate() error {
	if r.Followup.PronounMaxWords <= 0 {
		return fmt.Errorf("followup.pronoun_max_words must be greater than 0")
	}
	if r.Followup.ShortQuestionMaxWords <= 0 {
		return fmt.Errorf("followup.short_question_max_words must be greater than 0")
	}
	if len(r.Followup.QuestionWords) == 0 {
		return fmt.Errorf("followup.question_words must not be empty")
	}
	if len(r.Recency.Keywords) == 0 {
		return fmt.Errorf("recency.keywords must not be empty")
	}
	if r.Language.MinConfidence < 0 || r.Language.MinConfidence > 1 {
		return fmt.Errorf("language.min_confidence must be between 0 and 1")
	}
	return nil
}

func (r *Rules) normalize() {
	r.Followup.Pronouns = lowerAll(r.Followup.Pronouns)
	r.Followup.ReferencePatterns = lowerAll(r.Followup.ReferencePatterns)
	r.Followup.QuestionWords = lowerAll(r.Followup.QuestionWords)
	r.Followup.ContextWords = lowerAll(r.Followup.ContextWords)
	r.Recency.Keywords = lowerAll(r.Recency.Keywords)
	r.Recency.TopicStopwords = lowerAll(r.Recency.TopicStopwords)
	r.Recency.GenericNouns = lowerAll(r.Recency.GenericNouns)
}

func lowerAll(words []string) []string {
	out := make([]string, 0, len(words))
	seen := make(map[string]struct{}, len(words))
	for _, w := range words {
		w = strings.ToLower(strings.TrimSpace(w))
		if w == "" {
			continue
		}
		if _, dup := seen[w]; dup {
			continue
		}
		seen[w] = struct{}{}
		out = append(out, w)
	}
	return out
}

// Provider hands out the current rules snapshot. Readers never observe a
// partially updated snapshot.
type Provider struct {
	current atomic.Pointer[Rules]
}

// NewProvider creates a provider seeded with rules (Default when nil).
func NewProvider(rules *Rules) *Provider {
	if rules == nil {
		rules = Default()
	}
	p := &Provider{}
	p.current.Store(rules)
	return p
}

// Rules returns the current snapshot.
func (p *Provider) Rules() *Rules {
	return p.current.Load()
}

// Store swaps in a new snapshot.
func (p *Provider) Store(rules *Rules) {
	if rules != nil {
		p.current.Store(rules)
	}
}
