package handlers

import (
	"context"
	"encoding/json"
	"net/http"
	"sync/atomic"

	"pmcbot/internal/contextutil"
	"pmcbot/internal/indexer"
)

// Ingester loads a JSONL records file into the vector index.
type Ingester interface {
	IngestFile(ctx context.Context, path string) (*indexer.IngestStats, error)
}

// IndexHandler handles HTTP requests for triggering re-ingestion.
type IndexHandler struct {
	ingester    Ingester
	recordsPath string
	running     atomic.Bool
	done        chan struct{} // closed after each background run, for tests
}

// NewIndexHandler creates a new IndexHandler.
func NewIndexHandler(ingester Ingester, recordsPath string) *IndexHandler {
	return &IndexHandler{
		ingester:    ingester,
		recordsPath: recordsPath,
	}
}

// IndexResponse represents the response from the index endpoint.
type IndexResponse struct {
	Message string `json:"message"`
	Status  string `json:"status"`
}

// ServeHTTP handles HTTP requests for triggering re-ingestion.
func (h *IndexHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	logger := contextutil.LoggerFromContext(ctx)

	if r.Method != http.MethodPost {
		logger.WarnContext(ctx, "method not allowed", "method", r.Method)
		writeError(w, http.StatusMethodNotAllowed, "Method not allowed")
		return
	}
	if h.recordsPath == "" {
		writeError(w, http.StatusServiceUnavailable, "No records file configured")
		return
	}
	if !h.running.CompareAndSwap(false, true) {
		writeError(w, http.StatusConflict, "Ingestion already running")
		return
	}

	logger.InfoContext(ctx, "re-ingestion triggered via API", "path", h.recordsPath)

	// Background context so ingestion outlives the request
	indexCtx := contextutil.WithLogger(context.Background(), logger)
	go func() {
		defer func() {
			h.running.Store(false)
			if h.done != nil {
				close(h.done)
			}
		}()
		stats, err := h.ingester.IngestFile(indexCtx, h.recordsPath)
		if err != nil {
			logger.ErrorContext(indexCtx, "re-ingestion failed", "error", err)
			return
		}
		logger.InfoContext(indexCtx, "re-ingestion completed",
			"read", stats.RecordsRead,
			"embedded", stats.RecordsEmbedded,
			"unchanged", stats.RecordsUnchanged,
			"failed", stats.RecordsFailed,
		)
	}()

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusAccepted)
	_ = json.NewEncoder(w).Encode(IndexResponse{
		Message: "Ingestion started. Check server logs for progress.",
		Status:  "accepted",
	})
}
