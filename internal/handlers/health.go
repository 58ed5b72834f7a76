package handlers

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"pmcbot/internal/contextutil"
)

// CollectionChecker reports whether the record collection is reachable.
type CollectionChecker interface {
	CollectionExists(ctx context.Context, collection string) (bool, error)
}

// Pinger is satisfied by *sql.DB.
type Pinger interface {
	PingContext(ctx context.Context) error
}

// SessionCounter reports how many conversations are held in memory.
type SessionCounter interface {
	Len() int
}

// RecordCounter reports how many records have been ingested into a collection.
type RecordCounter interface {
	Count(ctx context.Context, collection string) (int, error)
}

// Health states.
const (
	StatusHealthy   = "healthy"
	StatusDegraded  = "degraded"
	StatusUnhealthy = "unhealthy"
)

// HealthHandler reports whether the record index and the session database
// are usable.
type HealthHandler struct {
	records    CollectionChecker
	db         Pinger
	collection string
	timeout    time.Duration
	sessions   SessionCounter
	ingested   RecordCounter
}

// HealthOption adds optional statistics to the health report.
type HealthOption func(*HealthHandler)

// WithSessionCount reports the number of in-memory sessions.
func WithSessionCount(c SessionCounter) HealthOption {
	return func(h *HealthHandler) { h.sessions = c }
}

// WithRecordCount reports the number of ingested records.
func WithRecordCount(c RecordCounter) HealthOption {
	return func(h *HealthHandler) { h.ingested = c }
}

// NewHealthHandler creates a new HealthHandler. db may be nil when
// conversation history is not persisted.
func NewHealthHandler(records CollectionChecker, db Pinger, collection string, opts ...HealthOption) *HealthHandler {
	h := &HealthHandler{
		records:    records,
		db:         db,
		collection: collection,
		timeout:    5 * time.Second,
	}
	for _, opt := range opts {
		opt(h)
	}
	return h
}

// HealthResponse represents the health check response.
//
// swagger:model HealthResponse
type HealthResponse struct {
	// "healthy", "degraded" (answers work, history is not saved) or "unhealthy"
	Status     string            `json:"status"`
	Timestamp  string            `json:"timestamp"`
	Collection string            `json:"collection"`
	Checks     map[string]string `json:"checks"`
	Issues     []string          `json:"issues,omitempty"`

	// Present only when the corresponding counter is configured.
	ActiveSessions *int `json:"active_sessions,omitempty"`
	IndexedRecords *int `json:"indexed_records,omitempty"`
}

// ServeHTTP handles GET /api/health. An unreachable record index is fatal
// for answering and returns 503; a failing session database only degrades.
//
// swagger:route GET /api/health healthCheck
//
// ---
// produces:
// - application/json
// responses:
//
//	'200':
//	  schema:
//	    "$ref": "#/definitions/HealthResponse"
//	'503':
//	  schema:
//	    "$ref": "#/definitions/HealthResponse"
func (h *HealthHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	logger := contextutil.LoggerFromContext(ctx)

	if r.Method != http.MethodGet {
		logger.WarnContext(ctx, "method not allowed", "method", r.Method)
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}

	checkCtx, cancel := context.WithTimeout(ctx, h.timeout)
	defer cancel()

	resp := HealthResponse{
		Status:     StatusHealthy,
		Timestamp:  time.Now().UTC().Format(time.RFC3339),
		Collection: h.collection,
		Checks:     make(map[string]string, 2),
	}
	httpStatus := http.StatusOK

	if h.recordsReachable(checkCtx) {
		resp.Checks["vector_store"] = "ok"
	} else {
		resp.Checks["vector_store"] = "error"
		resp.Issues = append(resp.Issues, "vector_store_unavailable")
		resp.Status = StatusUnhealthy
		httpStatus = http.StatusServiceUnavailable
	}

	if h.db != nil {
		if err := h.db.PingContext(checkCtx); err != nil {
			logger.WarnContext(ctx, "database health check failed", "error", err)
			resp.Checks["database"] = "error"
			resp.Issues = append(resp.Issues, "database_unavailable")
			if resp.Status == StatusHealthy {
				resp.Status = StatusDegraded
			}
		} else {
			resp.Checks["database"] = "ok"
		}
	}

	if h.sessions != nil {
		n := h.sessions.Len()
		resp.ActiveSessions = &n
	}
	if h.ingested != nil && resp.Checks["database"] == "ok" {
		if n, err := h.ingested.Count(checkCtx, h.collection); err != nil {
			logger.WarnContext(ctx, "failed to count ingested records", "error", err)
		} else {
			resp.IndexedRecords = &n
		}
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(httpStatus)
	if err := json.NewEncoder(w).Encode(resp); err != nil {
		logger.ErrorContext(ctx, "failed to encode health response", "error", err)
	}
}

func (h *HealthHandler) recordsReachable(ctx context.Context) bool {
	logger := contextutil.LoggerFromContext(ctx)
	exists, err := h.records.CollectionExists(ctx, h.collection)
	if err != nil {
		logger.WarnContext(ctx, "vector store health check failed", "error", err)
		return false
	}
	if !exists {
		logger.WarnContext(ctx, "record collection does not exist", "collection", h.collection)
		return false
	}
	return true
}
