package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
)

type fakeCollections struct {
	exists bool
	err    error
}

func (f fakeCollections) CollectionExists(context.Context, string) (bool, error) {
	return f.exists, f.err
}

type fakePinger struct{ err error }

func (f fakePinger) PingContext(context.Context) error { return f.err }

func TestHealthHandler_ServeHTTP(t *testing.T) {
	tests := []struct {
		name       string
		store      fakeCollections
		db         Pinger
		method     string
		wantStatus int
		wantState  string
		wantChecks map[string]string
		wantIssues int
	}{
		{
			name:       "healthy",
			store:      fakeCollections{exists: true},
			db:         fakePinger{},
			wantStatus: http.StatusOK,
			wantState:  StatusHealthy,
			wantChecks: map[string]string{"vector_store": "ok", "database": "ok"},
		},
		{
			name:       "database down degrades",
			store:      fakeCollections{exists: true},
			db:         fakePinger{err: errors.New("disk I/O error")},
			wantStatus: http.StatusOK,
			wantState:  StatusDegraded,
			wantChecks: map[string]string{"vector_store": "ok", "database": "error"},
			wantIssues: 1,
		},
		{
			name:       "healthy without database",
			store:      fakeCollections{exists: true},
			wantStatus: http.StatusOK,
			wantChecks: map[string]string{"vector_store": "ok"},
		},
		{
			name:       "missing collection",
			store:      fakeCollections{exists: false},
			db:         fakePinger{},
			wantStatus: http.StatusServiceUnavailable,
			wantState:  StatusUnhealthy,
			wantChecks: map[string]string{"vector_store": "error", "database": "ok"},
			wantIssues: 1,
		},
		{
			name:       "everything down",
			store:      fakeCollections{err: errors.New("connection refused")},
			db:         fakePinger{err: errors.New("database is locked")},
			wantStatus: http.StatusServiceUnavailable,
			wantState:  StatusUnhealthy,
			wantChecks: map[string]string{"vector_store": "error", "database": "error"},
			wantIssues: 2,
		},
		{
			name:       "method not allowed",
			store:      fakeCollections{exists: true},
			method:     http.MethodPost,
			wantStatus: http.StatusMethodNotAllowed,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			handler := NewHealthHandler(tt.store, tt.db, "pmc-records")

			method := tt.method
			if method == "" {
				method = http.MethodGet
			}
			w := httptest.NewRecorder()
			handler.ServeHTTP(w, httptest.NewRequest(method, "/api/health", nil))

			if w.Code != tt.wantStatus {
				t.Fatalf("status = %d, want %d", w.Code, tt.wantStatus)
			}
			if tt.wantChecks == nil {
				return
			}

			var resp HealthResponse
			if err := json.NewDecoder(w.Body).Decode(&resp); err != nil {
				t.Fatalf("invalid JSON: %v", err)
			}
			if tt.wantState != "" && resp.Status != tt.wantState {
				t.Errorf("status field = %q, want %q", resp.Status, tt.wantState)
			}
			if resp.Collection != "pmc-records" {
				t.Errorf("collection = %q, want pmc-records", resp.Collection)
			}
			if len(resp.Checks) != len(tt.wantChecks) {
				t.Errorf("checks = %v, want %v", resp.Checks, tt.wantChecks)
			}
			for k, v := range tt.wantChecks {
				if resp.Checks[k] != v {
					t.Errorf("checks[%s] = %q, want %q", k, resp.Checks[k], v)
				}
			}
			if len(resp.Issues) != tt.wantIssues {
				t.Errorf("issues = %v, want %d", resp.Issues, tt.wantIssues)
			}
		})
	}
}

type fakeSessions int

func (f fakeSessions) Len() int { return int(f) }

type fakeRecordCount struct {
	n   int
	err error
}

func (f fakeRecordCount) Count(context.Context, string) (int, error) { return f.n, f.err }

func TestHealthHandler_Counters(t *testing.T) {
	tests := []struct {
		name        string
		db          Pinger
		records     fakeRecordCount
		wantRecords *int
	}{
		{name: "counts reported", db: fakePinger{}, records: fakeRecordCount{n: 412}, wantRecords: intPtr(412)},
		{name: "count failure omitted", db: fakePinger{}, records: fakeRecordCount{err: errors.New("locked")}},
		{name: "database down skips count", db: fakePinger{err: errors.New("closed")}, records: fakeRecordCount{n: 3}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			handler := NewHealthHandler(fakeCollections{exists: true}, tt.db, "pmc-records",
				WithSessionCount(fakeSessions(7)),
				WithRecordCount(tt.records),
			)
			w := httptest.NewRecorder()
			handler.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/api/health", nil))

			var resp HealthResponse
			if err := json.NewDecoder(w.Body).Decode(&resp); err != nil {
				t.Fatalf("invalid JSON: %v", err)
			}
			if resp.ActiveSessions == nil || *resp.ActiveSessions != 7 {
				t.Errorf("active_sessions = %v, want 7", resp.ActiveSessions)
			}
			switch {
			case tt.wantRecords == nil && resp.IndexedRecords != nil:
				t.Errorf("indexed_records = %d, want omitted", *resp.IndexedRecords)
			case tt.wantRecords != nil && (resp.IndexedRecords == nil || *resp.IndexedRecords != *tt.wantRecords):
				t.Errorf("indexed_records = %v, want %d", resp.IndexedRecords, *tt.wantRecords)
			}
		})
	}
}

func intPtr(n int) *int { return &n }
