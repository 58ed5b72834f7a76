package rag

import (
	"pmcbot/internal/conversation"
	"pmcbot/internal/query"
	"pmcbot/internal/records"
)

// AnswerMode selects between the templated and generative answer paths.
type AnswerMode string

const (
	// ModeGenerative always composes a prompt and calls the generator.
	ModeGenerative AnswerMode = "generative"
	// ModeTemplated always answers from the top record's template.
	ModeTemplated AnswerMode = "templated"
	// ModeAuto templates only a clear, typed top match and generates otherwise.
	ModeAuto AnswerMode = "auto"
)

// ParseAnswerMode returns the mode named by s, or false if unknown.
func ParseAnswerMode(s string) (AnswerMode, bool) {
	switch m := AnswerMode(s); m {
	case ModeGenerative, ModeTemplated, ModeAuto:
		return m, true
	}
	return "", false
}

// ParseRecencyFallback returns the policy named by s, or false if unknown.
func ParseRecencyFallback(s string) (RecencyFallback, bool) {
	switch f := RecencyFallback(s); f {
	case FallbackRefuse, FallbackBroaden:
		return f, true
	}
	return "", false
}

// Stage is a state the orchestrator passed through during a turn.
type Stage string

const (
	StageLanguageDetected Stage = "language_detected"
	StageFollowupResolved Stage = "followup_resolved"
	StageQueryRewritten   Stage = "query_rewritten"
	StageRetrieved        Stage = "retrieved"
	StageReranked         Stage = "reranked"
	StageTemplated        Stage = "templated"
	StagePromptComposed   Stage = "prompt_composed"
	StageGenerated        Stage = "generated"
	StagePostProcessed    Stage = "post_processed"
	StageRecorded         Stage = "recorded"
)

// Outcome classifies how a turn ended.
type Outcome string

const (
	OutcomeGenerated      Outcome = "generated"
	OutcomeTemplated      Outcome = "templated"
	OutcomeNoResults      Outcome = "no_results"
	OutcomeNoRecentMatch  Outcome = "no_recent_match"
	OutcomeEmbedFailed    Outcome = "embed_failed"
	OutcomeSearchFailed   Outcome = "search_failed"
	OutcomeGenerateFailed Outcome = "generate_failed"
)

// TurnRequest is one user utterance within a session.
type TurnRequest struct {
	Utterance string
	// History is the session's turn buffer. The completed turn is appended to it.
	History *conversation.History
}

// TurnResult describes a processed turn. Answer is always set.
type TurnResult struct {
	Answer    string
	Language  query.Language
	Followup  bool
	Recent    bool
	Rewritten string
	Mode      AnswerMode
	Outcome   Outcome
	// Records is the context slice after reranking.
	Records []records.Candidate
	// Turn is the exchange appended to the history.
	Turn  conversation.Turn
	Trace []Stage
}
