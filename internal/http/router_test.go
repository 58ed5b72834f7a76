package http

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"go.uber.org/mock/gomock"

	"pmcbot/internal/indexer"
	"pmcbot/internal/service"
	"pmcbot/internal/service/mocks"
)

type okCollections struct{}

func (okCollections) CollectionExists(context.Context, string) (bool, error) { return true, nil }

type noopIngester struct{}

func (noopIngester) IngestFile(context.Context, string) (*indexer.IngestStats, error) {
	return &indexer.IngestStats{}, nil
}

func TestNewRouter(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	mockChatService := mocks.NewMockChatService(ctrl)

	deps := &Deps{
		ChatService: mockChatService,
		IndexHTML:   "<html><body>Test</body></html>",
	}

	router := NewRouter(deps)

	if router == nil {
		t.Fatal("NewRouter() returned nil")
	}
}

func TestRouter_Routes(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	mockChatService := mocks.NewMockChatService(ctrl)
	mockChatService.EXPECT().Reset(gomock.Any(), "abc").Return(nil)
	mockChatService.EXPECT().
		Chat(gomock.Any(), service.ChatRequest{UserInput: "hello"}).
		Return(service.ChatResponse{Answer: "hi", SessionID: "s-1"}, nil)

	deps := &Deps{
		ChatService:    mockChatService,
		VectorStore:    okCollections{},
		CollectionName: "pmc-records",
		Ingester:       noopIngester{},
		RecordsPath:    "records.jsonl",
		IndexHTML:      "<html><body>Test</body></html>",
	}

	router := NewRouter(deps)

	tests := []struct {
		name       string
		method     string
		path       string
		body       string
		wantStatus int
	}{
		{
			name:       "GET root serves HTML",
			method:     http.MethodGet,
			path:       "/",
			wantStatus: http.StatusOK,
		},
		{
			name:       "POST /api/chat answers",
			method:     http.MethodPost,
			path:       "/api/chat",
			body:       `{"user_input": "hello"}`,
			wantStatus: http.StatusOK,
		},
		{
			name:       "POST /api/chat rejects bad body",
			method:     http.MethodPost,
			path:       "/api/chat",
			wantStatus: http.StatusBadRequest,
		},
		{
			name:       "GET /api/chat method not allowed",
			method:     http.MethodGet,
			path:       "/api/chat",
			wantStatus: http.StatusMethodNotAllowed,
		},
		{
			name:       "DELETE /api/chat/{id} resets",
			method:     http.MethodDelete,
			path:       "/api/chat/abc",
			wantStatus: http.StatusNoContent,
		},
		{
			name:       "GET /api/health",
			method:     http.MethodGet,
			path:       "/api/health",
			wantStatus: http.StatusOK,
		},
		{
			name:       "POST /api/index",
			method:     http.MethodPost,
			path:       "/api/index",
			wantStatus: http.StatusAccepted,
		},
		{
			name:       "unknown route",
			method:     http.MethodGet,
			path:       "/api/missing",
			wantStatus: http.StatusNotFound,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(tt.method, tt.path, strings.NewReader(tt.body))
			w := httptest.NewRecorder()

			router.ServeHTTP(w, req)

			if w.Code != tt.wantStatus {
				t.Errorf("Router %s %s status = %v, want %v", tt.method, tt.path, w.Code, tt.wantStatus)
			}
		})
	}
}

func TestRouter_OptionalRoutes(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	router := NewRouter(&Deps{ChatService: mocks.NewMockChatService(ctrl)})

	for _, path := range []string{"/api/health", "/api/index"} {
		method := http.MethodGet
		if path == "/api/index" {
			method = http.MethodPost
		}
		w := httptest.NewRecorder()
		router.ServeHTTP(w, httptest.NewRequest(method, path, nil))
		if w.Code != http.StatusNotFound {
			t.Errorf("%s %s status = %d, want 404 when not configured", method, path, w.Code)
		}
	}
}

func TestRouter_DefaultIndexPage(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	router := NewRouter(&Deps{ChatService: mocks.NewMockChatService(ctrl)})

	w := httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/", nil))

	if w.Code != http.StatusOK {
		t.Fatalf("status = %d", w.Code)
	}
	if !strings.Contains(w.Body.String(), "/api/chat") {
		t.Error("embedded index page should talk to /api/chat")
	}
	if got := w.Header().Get("Content-Type"); got != "text/html; charset=utf-8" {
		t.Errorf("Content-Type = %q", got)
	}
}
