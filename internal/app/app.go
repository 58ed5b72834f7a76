// Package app constructs the process-wide object graph once: stores,
// model clients, the turn engine and the services built on top of them.
package app

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"io"
	"log/slog"
	nethttp "net/http"
	"time"

	"github.com/openai/openai-go/v2/option"

	"pmcbot/internal/config"
	"pmcbot/internal/contextutil"
	"pmcbot/internal/conversation"
	"pmcbot/internal/heuristics"
	"pmcbot/internal/http"
	"pmcbot/internal/indexer"
	"pmcbot/internal/llm"
	"pmcbot/internal/rag"
	"pmcbot/internal/service"
	"pmcbot/internal/storage"
	"pmcbot/internal/vectorstore"
)

// App holds the shared, read-only dependencies of one process.
type App struct {
	Config    *config.Config
	DB        *sql.DB // nil when DB_PATH is empty
	Store     vectorstore.VectorStore
	Embedder  *llm.EmbeddingsClient
	Generator *llm.Client
	Rules     *heuristics.Provider
	Engine    rag.Engine
	Sessions  *conversation.Manager
	Chat      service.ChatService
	Pipeline  *indexer.Pipeline

	ingested *storage.IngestRepo
	closers  []io.Closer
}

type options struct {
	llmOptions []option.RequestOption
	store      vectorstore.VectorStore
}

// Option customizes New.
type Option func(*options)

// WithLLMOptions passes request options to both OpenAI-compatible clients.
func WithLLMOptions(opts ...option.RequestOption) Option {
	return func(o *options) { o.llmOptions = append(o.llmOptions, opts...) }
}

// WithStore uses store instead of the configured vector backend.
func WithStore(store vectorstore.VectorStore) Option {
	return func(o *options) { o.store = store }
}

// New wires every component from cfg. The heuristics file, when configured,
// is watched until ctx is cancelled.
func New(ctx context.Context, cfg *config.Config, opts ...Option) (*App, error) {
	logger := contextutil.LoggerFromContext(ctx)

	var o options
	for _, opt := range opts {
		opt(&o)
	}

	a := &App{Config: cfg}
	ok := false
	defer func() {
		if !ok {
			_ = a.Close()
		}
	}()

	var turnStore conversation.TurnStore
	var ingestStore storage.IngestStore
	if cfg.DBPath != "" {
		db, err := storage.New(cfg.DBPath)
		if err != nil {
			return nil, fmt.Errorf("failed to open database: %w", err)
		}
		a.DB = db
		a.closers = append(a.closers, db)
		if err := storage.Migrate(db); err != nil {
			return nil, fmt.Errorf("failed to run migrations: %w", err)
		}
		turnStore = storage.NewTurnRepo(db)
		a.ingested = storage.NewIngestRepo(db)
		ingestStore = a.ingested
		logger.InfoContext(ctx, "database initialized", "path", cfg.DBPath)
	}

	store := o.store
	if store == nil {
		var err error
		if store, err = openStore(cfg); err != nil {
			return nil, err
		}
		if c, isCloser := store.(io.Closer); isCloser {
			a.closers = append(a.closers, c)
		}
	}
	a.Store = store
	if err := store.EnsureCollection(ctx, cfg.QdrantCollection, cfg.VectorSize); err != nil {
		return nil, fmt.Errorf("failed to ensure collection: %w", err)
	}
	logger.InfoContext(ctx, "vector store ready", "backend", cfg.VectorBackend, "collection", cfg.QdrantCollection, "vector_size", cfg.VectorSize)

	rules := heuristics.Default()
	if cfg.HeuristicsPath != "" {
		var err error
		if rules, err = heuristics.Load(cfg.HeuristicsPath); err != nil {
			return nil, fmt.Errorf("failed to load heuristics: %w", err)
		}
	}
	a.Rules = heuristics.NewProvider(rules)
	if cfg.HeuristicsPath != "" {
		if err := heuristics.Watch(ctx, cfg.HeuristicsPath, a.Rules); err != nil {
			return nil, fmt.Errorf("failed to watch heuristics: %w", err)
		}
		logger.InfoContext(ctx, "heuristics loaded", "path", cfg.HeuristicsPath)
	}

	templates := rag.DefaultTemplates()
	if cfg.TemplatesPath != "" {
		var err error
		if templates, err = rag.LoadTemplates(cfg.TemplatesPath); err != nil {
			return nil, fmt.Errorf("failed to load templates: %w", err)
		}
	}

	a.Embedder = llm.NewEmbeddingsClient(cfg.EmbeddingBaseURL, cfg.LLMAPIKey, cfg.EmbeddingModelName, cfg.VectorSize, o.llmOptions...)
	a.Generator = llm.NewClient(cfg.LLMBaseURL, cfg.LLMAPIKey, llm.ChatParams{
		Model:        cfg.LLMModelName,
		MaxTokens:    cfg.LLMMaxTokens,
		Temperature:  cfg.LLMTemperature,
		SystemPrompt: llm.DefaultSystemPrompt,
	}, o.llmOptions...)

	engineOpts, err := EngineOptions(cfg)
	if err != nil {
		return nil, err
	}
	a.Engine = rag.NewEngine(rag.Deps{
		Embedder:  a.Embedder,
		Searcher:  rag.NewStoreSearcher(store, cfg.QdrantCollection, nil),
		Generator: a.Generator,
		Rules:     a.Rules,
		Templates: templates,
	}, engineOpts)

	a.Sessions = conversation.NewManager(cfg.MaxHistory, turnStore,
		conversation.WithMaxSessions(cfg.MaxSessions),
		conversation.WithIdleTTL(cfg.SessionIdleTTL),
	)
	if cfg.SessionIdleTTL > 0 {
		go a.Sessions.Run(ctx, max(cfg.SessionIdleTTL/4, time.Second))
	}
	a.Chat = service.NewChatService(a.Engine, a.Sessions)
	a.Pipeline = indexer.NewPipeline(a.Embedder, store, ingestStore, cfg.QdrantCollection, cfg.VectorSize, cfg.EmbeddingModelName)

	logger.InfoContext(ctx, "application initialized",
		"answer_mode", engineOpts.AnswerMode,
		"recency_fallback", engineOpts.RecencyFallback,
		"llm_model", cfg.LLMModelName,
		"embedding_model", cfg.EmbeddingModelName,
	)
	ok = true
	return a, nil
}

func openStore(cfg *config.Config) (vectorstore.VectorStore, error) {
	switch cfg.VectorBackend {
	case config.BackendChromem:
		store, err := vectorstore.NewChromemStore(cfg.ChromemPath, false)
		if err != nil {
			return nil, fmt.Errorf("failed to open chromem store: %w", err)
		}
		return store, nil
	default:
		store, err := vectorstore.NewQdrantStore(cfg.QdrantURL, cfg.QdrantAPIKey)
		if err != nil {
			return nil, fmt.Errorf("failed to create Qdrant client: %w", err)
		}
		return store, nil
	}
}

// EngineOptions maps configuration onto engine options.
func EngineOptions(cfg *config.Config) (rag.Options, error) {
	mode, ok := rag.ParseAnswerMode(cfg.AnswerMode)
	if !ok {
		return rag.Options{}, fmt.Errorf("unknown answer mode %q", cfg.AnswerMode)
	}
	fallback, ok := rag.ParseRecencyFallback(cfg.RecencyFallback)
	if !ok {
		return rag.Options{}, fmt.Errorf("unknown recency fallback %q", cfg.RecencyFallback)
	}
	return rag.Options{
		TopK:                  cfg.TopK,
		ContextResults:        cfg.ContextResults,
		RecencyWindow:         cfg.RecencyWindow,
		AnswerMode:            mode,
		AutoMinScore:          float32(cfg.AutoTemplateMinScore),
		AutoMinMargin:         float32(cfg.AutoTemplateMinMargin),
		RecencyFallback:       fallback,
		PreferLanguageRecords: cfg.PreferLanguageRecords,
		EmbedTimeout:          cfg.EmbedTimeout,
		SearchTimeout:         cfg.SearchTimeout,
		GenerateTimeout:       cfg.GenerateTimeout,
	}, nil
}

// Router returns the HTTP API for this app.
func (a *App) Router() nethttp.Handler {
	deps := &http.Deps{
		ChatService:    a.Chat,
		VectorStore:    a.Store,
		CollectionName: a.Config.QdrantCollection,
		Ingester:       a.Pipeline,
		RecordsPath:    a.Config.RecordsPath,
		Sessions:       a.Sessions,
	}
	if a.DB != nil {
		deps.DB = a.DB
		deps.Ingested = a.ingested
	}
	return http.NewRouter(deps)
}

// CheckEmbeddings embeds a probe string and checks the vector size.
func (a *App) CheckEmbeddings(ctx context.Context) error {
	vec, err := a.Embedder.Embed(ctx, "test")
	if err != nil {
		return fmt.Errorf("failed to validate embedding client: %w", err)
	}
	if len(vec) != a.Config.VectorSize {
		return fmt.Errorf("embedding vector size mismatch: expected %d, got %d", a.Config.VectorSize, len(vec))
	}
	return nil
}

// Close releases databases and connections.
func (a *App) Close() error {
	var errs []error
	for i := len(a.closers) - 1; i >= 0; i-- {
		if err := a.closers[i].Close(); err != nil {
			errs = append(errs, err)
		}
	}
	a.closers = nil
	return errors.Join(errs...)
}

// NewLogger builds the process logger from the configured level and format.
func NewLogger(w io.Writer, cfg *config.Config) *slog.Logger {
	opts := &slog.HandlerOptions{Level: cfg.LogLevel}
	if cfg.LogFormat == "json" {
		return slog.New(slog.NewJSONHandler(w, opts))
	}
	return slog.New(slog.NewTextHandler(w, opts))
}
