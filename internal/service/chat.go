package service

//go:generate go run go.uber.org/mock/mockgen@latest -destination=mocks/mock_chat_service.go -package=mocks -mock_names=ChatService=MockChatService pmcbot/internal/service ChatService

import (
	"context"
	"strings"
	"unicode/utf8"

	"pmcbot/internal/contextutil"
	"pmcbot/internal/conversation"
	"pmcbot/internal/rag"
)

// MaxUserInputRunes bounds a single utterance.
const MaxUserInputRunes = 2000

// ChatRequest represents a chat request in the domain layer.
type ChatRequest struct {
	UserInput string `validate:"required"`
	// History, when non-nil, replaces the session's history before the turn.
	// Items are conversation.Turn values or {"user", "bot"} maps.
	History []any
	// SessionID continues an existing session; empty starts a new one.
	SessionID string
}

// ChatResponse represents a chat response in the domain layer.
type ChatResponse struct {
	Answer    string
	SessionID string
	Language  string
	Outcome   string
	// History is the session's retained turns after this one, oldest first.
	History []conversation.Turn
}

// ChatService provides conversational question answering.
type ChatService interface {
	// Chat answers one utterance within a session.
	Chat(ctx context.Context, req ChatRequest) (ChatResponse, error)
	// Reset forgets a session's history.
	Reset(ctx context.Context, sessionID string) error
}

// chatService implements ChatService.
type chatService struct {
	engine   rag.Engine
	sessions *conversation.Manager
}

// NewChatService creates a new ChatService.
func NewChatService(engine rag.Engine, sessions *conversation.Manager) ChatService {
	return &chatService{
		engine:   engine,
		sessions: sessions,
	}
}

// Chat processes a chat request. Turns within one session are serialized.
func (s *chatService) Chat(ctx context.Context, req ChatRequest) (ChatResponse, error) {
	logger := contextutil.LoggerFromContext(ctx)

	// Business validation
	utterance := strings.TrimSpace(req.UserInput)
	if utterance == "" {
		logger.WarnContext(ctx, "empty user input in chat request")
		return ChatResponse{}, newValidationError("user_input", "cannot be empty")
	}
	if utf8.RuneCountInString(utterance) > MaxUserInputRunes {
		return ChatResponse{}, newValidationError("user_input", "is too long")
	}

	var supplied []conversation.Turn
	if req.History != nil {
		turns, err := conversation.NormalizeHistory(req.History)
		if err != nil {
			logger.WarnContext(ctx, "invalid history in chat request", "error", err)
			return ChatResponse{}, newValidationError("history", err.Error())
		}
		supplied = turns
	}

	session, release := s.sessions.Acquire(ctx, strings.TrimSpace(req.SessionID))
	defer release()

	ctx = contextutil.WithSessionID(ctx, session.ID)
	logger = contextutil.LoggerFromContext(ctx)

	if req.History != nil {
		session.History.Replace(supplied)
		logger.DebugContext(ctx, "history replaced from request", "supplied", len(supplied), "retained", session.History.Len())
	}

	res := s.engine.Turn(ctx, rag.TurnRequest{Utterance: utterance, History: session.History})
	s.sessions.Persist(ctx, session.ID, res.Turn)

	logger.InfoContext(ctx, "chat request processed",
		"input_length", len(utterance),
		"answer_length", len(res.Answer),
		"outcome", res.Outcome,
	)
	return ChatResponse{
		Answer:    res.Answer,
		SessionID: session.ID,
		Language:  string(res.Language),
		Outcome:   string(res.Outcome),
		History:   session.History.Turns(),
	}, nil
}

// Reset forgets a session in memory and in durable storage.
func (s *chatService) Reset(ctx context.Context, sessionID string) error {
	sessionID = strings.TrimSpace(sessionID)
	if sessionID == "" {
		return newValidationError("session_id", "cannot be empty")
	}
	if err := s.sessions.Reset(ctx, sessionID); err != nil {
		contextutil.LoggerFromContext(ctx).ErrorContext(ctx, "failed to reset session", "session_id", sessionID, "error", err)
		return externalError("failed to reset session", err)
	}
	contextutil.LoggerFromContext(ctx).InfoContext(ctx, "session reset", "session_id", sessionID)
	return nil
}
