package handlers

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/yuin/goldmark"

	"pmcbot/internal/contextutil"
	"pmcbot/internal/conversation"
	"pmcbot/internal/service"
)

// maxRequestBytes bounds a chat request body.
const maxRequestBytes = 1 << 20

// ChatHandler handles HTTP requests for chat.
type ChatHandler struct {
	chatService service.ChatService
	markdown    goldmark.Markdown
}

// NewChatHandler creates a new ChatHandler.
func NewChatHandler(chatService service.ChatService) *ChatHandler {
	return &ChatHandler{
		chatService: chatService,
		markdown:    goldmark.New(),
	}
}

// ChatRequest represents the HTTP request payload for chat.
//
// swagger:model ChatRequest
type ChatRequest struct {
	// The citizen's question, English or Marathi
	UserInput string `json:"user_input"`

	// Optional prior turns as [{"user": "...", "bot": "..."}]; replaces the session history
	History []any `json:"history,omitempty"`

	// Optional session to continue
	SessionID string `json:"session_id,omitempty"`
}

// ChatResponse represents the HTTP response payload for chat.
//
// swagger:model ChatResponse
type ChatResponse struct {
	Answer    string `json:"answer"`
	SessionID string `json:"session_id"`
	Language  string `json:"language,omitempty"`

	// Rendered answer, only present with ?format=html
	AnswerHTML string `json:"answer_html,omitempty"`

	// Retained turns after this one, only present with ?history=true
	History []conversation.Turn `json:"history,omitempty"`

	// Turn outcome, only present with ?debug=true
	Outcome string `json:"outcome,omitempty"`
}

// ErrorResponse represents an error response.
type ErrorResponse struct {
	Error string `json:"error"`
}

// ServeHTTP handles HTTP requests for chat.
//
// swagger:route POST /api/chat chat
//
// Answers one question within a conversation session.
//
// ---
// consumes:
// - application/json
// produces:
// - application/json
// responses:
//
//	'200':
//	  schema:
//	    "$ref": "#/definitions/ChatResponse"
//	'400':
//	  description: Invalid request
func (h *ChatHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	logger := contextutil.LoggerFromContext(ctx)

	if r.Method != http.MethodPost {
		logger.WarnContext(ctx, "method not allowed", "method", r.Method)
		h.writeError(w, http.StatusMethodNotAllowed, "Method not allowed")
		return
	}

	var req ChatRequest
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxRequestBytes)).Decode(&req); err != nil {
		logger.WarnContext(ctx, "invalid request body", "error", err)
		h.writeError(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	svcResp, err := h.chatService.Chat(ctx, service.ChatRequest{
		UserInput: req.UserInput,
		History:   req.History,
		SessionID: req.SessionID,
	})
	if err != nil {
		h.handleServiceError(w, ctx, err, "Failed to process chat request")
		return
	}

	query := r.URL.Query()
	resp := ChatResponse{
		Answer:    svcResp.Answer,
		SessionID: svcResp.SessionID,
		Language:  svcResp.Language,
	}
	if query.Get("format") == "html" {
		var buf bytes.Buffer
		if err := h.markdown.Convert([]byte(svcResp.Answer), &buf); err != nil {
			logger.WarnContext(ctx, "failed to render answer html", "error", err)
		} else {
			resp.AnswerHTML = buf.String()
		}
	}
	if query.Get("history") == "true" {
		resp.History = svcResp.History
	}
	if query.Get("debug") == "true" {
		resp.Outcome = svcResp.Outcome
	}

	h.writeJSON(ctx, w, http.StatusOK, resp)
}

// ServeReset handles DELETE /api/chat/{session_id}.
func (h *ChatHandler) ServeReset(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	if err := h.chatService.Reset(ctx, chi.URLParam(r, "session_id")); err != nil {
		h.handleServiceError(w, ctx, err, "Failed to reset session")
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// handleServiceError maps service errors to appropriate HTTP status codes and responses.
func (h *ChatHandler) handleServiceError(w http.ResponseWriter, ctx context.Context, err error, defaultMsg string) {
	logger := contextutil.LoggerFromContext(ctx)
	logger.ErrorContext(ctx, "service error", "error", err)

	var validationErr *service.ValidationError
	if errors.As(err, &validationErr) {
		h.writeError(w, http.StatusBadRequest, fmt.Sprintf("Validation error: %s", validationErr.Error()))
		return
	}

	if errors.Is(err, service.ErrInvalidInput) {
		h.writeError(w, http.StatusBadRequest, "Invalid input")
		return
	}

	if errors.Is(err, service.ErrNotFound) {
		h.writeError(w, http.StatusNotFound, "Resource not found")
		return
	}

	if errors.Is(err, service.ErrExternalService) {
		h.writeError(w, http.StatusBadGateway, "External service error")
		return
	}

	h.writeError(w, http.StatusInternalServerError, defaultMsg)
}

func (h *ChatHandler) writeJSON(ctx context.Context, w http.ResponseWriter, statusCode int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	if err := json.NewEncoder(w).Encode(body); err != nil {
		contextutil.LoggerFromContext(ctx).ErrorContext(ctx, "failed to encode response", "error", err)
	}
}

// writeError writes an error response.
func (h *ChatHandler) writeError(w http.ResponseWriter, statusCode int, message string) {
	writeError(w, statusCode, message)
}

func writeError(w http.ResponseWriter, statusCode int, message string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	_ = json.NewEncoder(w).Encode(ErrorResponse{
		Error: message,
	})
}
