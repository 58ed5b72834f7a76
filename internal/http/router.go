package http

import (
	_ "embed"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"pmcbot/internal/handlers"
	"pmcbot/internal/service"
)

//go:embed static/index.html
var defaultIndexHTML string

// Deps holds dependencies for the HTTP router.
type Deps struct {
	ChatService    service.ChatService
	VectorStore    handlers.CollectionChecker
	DB             handlers.Pinger // optional
	CollectionName string
	Ingester       handlers.Ingester // optional; enables POST /api/index
	RecordsPath    string
	IndexHTML      string // overrides the embedded page when set

	// Optional health statistics.
	Sessions handlers.SessionCounter
	Ingested handlers.RecordCounter
}

// NewRouter creates a new HTTP router with the provided dependencies.
func NewRouter(deps *Deps) http.Handler {
	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(LoggerMiddleware)
	r.Use(RequestLogger)
	r.Use(middleware.Recoverer)
	r.Use(CORS)

	chatHandler := handlers.NewChatHandler(deps.ChatService)

	r.Route("/api", func(r chi.Router) {
		r.Method(http.MethodPost, "/chat", chatHandler)
		r.Delete("/chat/{session_id}", chatHandler.ServeReset)
		if deps.VectorStore != nil {
			var opts []handlers.HealthOption
			if deps.Sessions != nil {
				opts = append(opts, handlers.WithSessionCount(deps.Sessions))
			}
			if deps.Ingested != nil {
				opts = append(opts, handlers.WithRecordCount(deps.Ingested))
			}
			r.Method(http.MethodGet, "/health", handlers.NewHealthHandler(deps.VectorStore, deps.DB, deps.CollectionName, opts...))
		}
		if deps.Ingester != nil {
			r.Method(http.MethodPost, "/index", handlers.NewIndexHandler(deps.Ingester, deps.RecordsPath))
		}
	})

	indexHTML := deps.IndexHTML
	if indexHTML == "" {
		indexHTML = defaultIndexHTML
	}
	r.Get("/", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/html; charset=utf-8")
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte(indexHTML))
	})

	return r
}
