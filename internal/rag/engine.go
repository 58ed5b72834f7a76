package rag

//go:generate go run go.uber.org/mock/mockgen@latest -destination=mocks/mock_engine.go -package=mocks pmcbot/internal/rag Engine,Embedder,Searcher,Generator

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"pmcbot/internal/contextutil"
	"pmcbot/internal/conversation"
	"pmcbot/internal/heuristics"
	"pmcbot/internal/query"
	"pmcbot/internal/records"
)

// Engine answers one conversational turn.
type Engine interface {
	// Turn runs the full per-turn pipeline. External failures are recovered
	// into fixed answers, so the result always carries an answer.
	Turn(ctx context.Context, req TurnRequest) TurnResult
}

// Embedder turns text into a query vector.
type Embedder interface {
	Embed(ctx context.Context, text string) ([]float32, error)
}

// Searcher returns similarity-ranked candidates for a vector.
type Searcher interface {
	Search(ctx context.Context, vector []float32, topK int) ([]records.Candidate, error)
}

// Generator produces free text from a composed prompt.
type Generator interface {
	Generate(ctx context.Context, prompt string) (string, error)
}

// Options tunes the engine. Zero values fall back to defaults.
type Options struct {
	TopK           int
	ContextResults int
	RecencyWindow  int
	AnswerMode     AnswerMode
	// AutoMinScore and AutoMinMargin gate the templated path in ModeAuto.
	AutoMinScore  float32
	AutoMinMargin float32

	RecencyFallback RecencyFallback
	// PreferLanguageRecords narrows Marathi queries to Marathi records when any exist.
	PreferLanguageRecords bool

	// Each stage gets its own deadline.
	EmbedTimeout    time.Duration
	SearchTimeout   time.Duration
	GenerateTimeout time.Duration
}

// DefaultOptions returns the production defaults.
func DefaultOptions() Options {
	return Options{
		TopK:            15,
		ContextResults:  defaultContextResults,
		RecencyWindow:   defaultRecencyWindow,
		AnswerMode:      ModeGenerative,
		AutoMinScore:    0.75,
		AutoMinMargin:   0.05,
		RecencyFallback: FallbackRefuse,
		EmbedTimeout:    10 * time.Second,
		SearchTimeout:   10 * time.Second,
		GenerateTimeout: 60 * time.Second,
	}
}

func (o Options) withDefaults() Options {
	d := DefaultOptions()
	if o.TopK <= 0 {
		o.TopK = d.TopK
	}
	if o.ContextResults <= 0 {
		o.ContextResults = d.ContextResults
	}
	if o.RecencyWindow <= 0 {
		o.RecencyWindow = d.RecencyWindow
	}
	if _, ok := ParseAnswerMode(string(o.AnswerMode)); !ok {
		o.AnswerMode = d.AnswerMode
	}
	if _, ok := ParseRecencyFallback(string(o.RecencyFallback)); !ok {
		o.RecencyFallback = d.RecencyFallback
	}
	if o.EmbedTimeout <= 0 {
		o.EmbedTimeout = d.EmbedTimeout
	}
	if o.SearchTimeout <= 0 {
		o.SearchTimeout = d.SearchTimeout
	}
	if o.GenerateTimeout <= 0 {
		o.GenerateTimeout = d.GenerateTimeout
	}
	return o
}

// Deps are the collaborators an engine is built from. They are constructed
// once per process and shared read-only across sessions.
type Deps struct {
	Embedder  Embedder
	Searcher  Searcher
	Generator Generator
	Rules     *heuristics.Provider
	Templates *TemplateSet
}

type ragEngine struct {
	embedder  Embedder
	searcher  Searcher
	generator Generator
	rules     *heuristics.Provider
	templates *TemplateSet
	opts      Options

	language *query.LanguageClassifier
	followup *query.FollowupClassifier
	recency  *query.RecencyClassifier
}

// NewEngine creates an engine. Nil rules and templates use the embedded defaults.
func NewEngine(deps Deps, opts Options) Engine {
	rules := deps.Rules
	if rules == nil {
		rules = heuristics.NewProvider(nil)
	}
	templates := deps.Templates
	if templates == nil {
		templates = DefaultTemplates()
	}
	return &ragEngine{
		embedder:  deps.Embedder,
		searcher:  deps.Searcher,
		generator: deps.Generator,
		rules:     rules,
		templates: templates,
		opts:      opts.withDefaults(),
		language:  query.NewLanguageClassifier(rules),
		followup:  query.NewFollowupClassifier(rules),
		recency:   query.NewRecencyClassifier(rules),
	}
}

// Turn implements Engine.
func (e *ragEngine) Turn(ctx context.Context, req TurnRequest) TurnResult {
	logger := contextutil.LoggerFromContext(ctx)
	history := req.History
	if history == nil {
		history = conversation.NewHistory(1)
	}

	res := TurnResult{Mode: e.opts.AnswerMode}

	res.Language = e.language.Detect(req.Utterance)
	res.Trace = append(res.Trace, StageLanguageDetected)
	logger.DebugContext(ctx, "language detected", "language", res.Language)

	prev, hasPrev := history.Last()
	var prevQuery *string
	if hasPrev {
		prevQuery = &prev.User
	}
	res.Followup = e.followup.IsFollowup(req.Utterance, prevQuery)
	res.Trace = append(res.Trace, StageFollowupResolved)

	res.Rewritten = query.Rewrite(req.Utterance, prev.User, prev.Subject, res.Followup)
	res.Trace = append(res.Trace, StageQueryRewritten)
	logger.DebugContext(ctx, "query rewritten", "followup", res.Followup, "rewritten", res.Rewritten)

	candidates, outcome := e.retrieve(ctx, res.Rewritten)
	if outcome != "" {
		return e.finish(ctx, history, req.Utterance, res, outcome, failureMessage(outcome, res.Language), "")
	}
	res.Trace = append(res.Trace, StageRetrieved)

	if e.opts.PreferLanguageRecords && res.Language == query.Marathi {
		candidates = PreferLanguage(candidates, string(query.Marathi))
	}

	res.Recent = e.recency.IsRecent(req.Utterance)
	rerankOpts := RerankOptions{
		Recent:   res.Recent,
		Window:   e.opts.RecencyWindow,
		Limit:    e.opts.ContextResults,
		Fallback: e.opts.RecencyFallback,
	}
	var topic string
	if res.Recent {
		if clause, ok := e.recency.TopicClause(res.Rewritten); ok {
			topic = clause
			rerankOpts.Topic = TopicPhrases(clause, e.rules.Rules().Recency)
		}
	}
	ranked := Rerank(candidates, rerankOpts)
	res.Records = ranked.Records
	res.Trace = append(res.Trace, StageReranked)
	logger.DebugContext(ctx, "candidates reranked",
		"recent", res.Recent,
		"topic_phrases", rerankOpts.Topic,
		"candidates", len(candidates),
		"context_records", len(res.Records),
		"no_recent_match", ranked.NoRecentMatch,
	)

	if ranked.NoRecentMatch && len(res.Records) == 0 {
		return e.finish(ctx, history, req.Utterance, res, OutcomeNoRecentMatch, noRecentMatchMessage(res.Language, topicLabel(rerankOpts.Topic, topic)), "")
	}

	subject := ""
	if len(res.Records) > 0 {
		subject = res.Records[0].Title()
	}

	if e.useTemplate(res.Records) {
		res.Mode = ModeTemplated
		if len(res.Records) == 0 {
			return e.finish(ctx, history, req.Utterance, res, OutcomeNoResults, noResultsMessage(res.Language), "")
		}
		answer := e.templates.Render(res.Records[0], res.Language)
		res.Trace = append(res.Trace, StageTemplated)
		answer = PostProcess(answer, res.Language)
		res.Trace = append(res.Trace, StagePostProcessed)
		return e.finish(ctx, history, req.Utterance, res, OutcomeTemplated, answer, subject)
	}

	res.Mode = ModeGenerative
	prompt := ComposePrompt(PromptInput{
		Query:    req.Utterance,
		Context:  FormatGrounding(res.Records),
		Language: res.Language,
		History:  history.Turns(),
	})
	res.Trace = append(res.Trace, StagePromptComposed)
	logger.DebugContext(ctx, "prompt composed", "prompt_length", len(prompt), "context_records", len(res.Records))

	raw, err := e.generate(ctx, prompt)
	if err != nil {
		logger.ErrorContext(ctx, "generation failed", "error", err)
		return e.finish(ctx, history, req.Utterance, res, OutcomeGenerateFailed, failureMessage(OutcomeGenerateFailed, res.Language), "")
	}
	res.Trace = append(res.Trace, StageGenerated)

	answer := PostProcess(raw, res.Language)
	res.Trace = append(res.Trace, StagePostProcessed)

	outcome = OutcomeGenerated
	if len(res.Records) == 0 {
		outcome = OutcomeNoResults
	}
	return e.finish(ctx, history, req.Utterance, res, outcome, answer, subject)
}

// retrieve embeds and searches. A non-empty outcome means the turn cannot continue.
func (e *ragEngine) retrieve(ctx context.Context, text string) ([]records.Candidate, Outcome) {
	logger := contextutil.LoggerFromContext(ctx)

	embedCtx, cancelEmbed := context.WithTimeout(ctx, e.opts.EmbedTimeout)
	vector, err := e.embedder.Embed(embedCtx, text)
	cancelEmbed()
	if err == nil && len(vector) == 0 {
		err = errors.New("empty embedding")
	}
	if err != nil {
		logger.ErrorContext(ctx, "embedding failed", "error", err)
		return nil, OutcomeEmbedFailed
	}

	searchCtx, cancelSearch := context.WithTimeout(ctx, e.opts.SearchTimeout)
	defer cancelSearch()

	candidates, err := e.searcher.Search(searchCtx, vector, e.opts.TopK)
	if err != nil {
		logger.ErrorContext(ctx, "vector search failed", "error", err)
		return nil, OutcomeSearchFailed
	}
	logger.InfoContext(ctx, "vector search completed", "results", len(candidates), "top_k", e.opts.TopK)
	return candidates, ""
}

func (e *ragEngine) generate(ctx context.Context, prompt string) (string, error) {
	genCtx, cancel := context.WithTimeout(ctx, e.opts.GenerateTimeout)
	defer cancel()

	answer, err := e.generator.Generate(genCtx, prompt)
	if err != nil {
		return "", err
	}
	if strings.TrimSpace(answer) == "" {
		return "", fmt.Errorf("generator returned an empty answer")
	}
	return answer, nil
}

// useTemplate applies the answer policy to the reranked records.
func (e *ragEngine) useTemplate(recs []records.Candidate) bool {
	switch e.opts.AnswerMode {
	case ModeTemplated:
		return true
	case ModeAuto:
		if len(recs) == 0 {
			return false
		}
		top := recs[0]
		if top.Type() == records.TypeOther || top.Score < e.opts.AutoMinScore {
			return false
		}
		if len(recs) > 1 && top.Score-recs[1].Score < e.opts.AutoMinMargin {
			return false
		}
		return true
	default:
		return false
	}
}

// finish records the turn in history and completes the result.
func (e *ragEngine) finish(ctx context.Context, history *conversation.History, utterance string, res TurnResult, outcome Outcome, answer, subject string) TurnResult {
	res.Outcome = outcome
	res.Answer = answer
	res.Turn = conversation.Turn{User: utterance, Bot: answer, Subject: subject}
	history.Append(res.Turn)
	res.Trace = append(res.Trace, StageRecorded)

	contextutil.LoggerFromContext(ctx).InfoContext(ctx, "turn completed",
		"outcome", outcome,
		"mode", res.Mode,
		"language", res.Language,
		"followup", res.Followup,
		"recent", res.Recent,
		"answer_length", len(answer),
	)
	return res
}

func topicLabel(phrases []string, clause string) string {
	if len(phrases) > 0 {
		return strings.Join(phrases, ", ")
	}
	return strings.TrimSpace(clause)
}
