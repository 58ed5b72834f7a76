package conversation

//go:generate go run go.uber.org/mock/mockgen@latest -destination=mocks/mock_turn_store.go -package=mocks pmcbot/internal/conversation TurnStore

import (
	"container/list"
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"

	"pmcbot/internal/contextutil"
)

// TurnStore persists turns beyond process lifetime.
type TurnStore interface {
	// LoadTurns returns up to limit most recent turns for a session, oldest first.
	LoadTurns(ctx context.Context, sessionID string, limit int) ([]Turn, error)
	// AppendTurn stores one completed turn.
	AppendTurn(ctx context.Context, sessionID string, turn Turn) error
	// DeleteSession removes every stored turn of a session.
	DeleteSession(ctx context.Context, sessionID string) error
}

// Session is a conversation held exclusively by one caller between Acquire and release.
type Session struct {
	ID      string
	History *History
}

type sessionEntry struct {
	id string

	// guarded by Manager.mu
	holders  int
	lastUsed time.Time
	elem     *list.Element

	// guarded by mu
	mu      sync.Mutex
	history *History
	loaded  bool
}

// Manager owns per-session histories and serializes turns within a session.
// Turns of different sessions proceed independently. Idle sessions are
// evicted from memory; with a TurnStore they reload on their next turn.
type Manager struct {
	capacity    int
	store       TurnStore
	maxSessions int
	idleTTL     time.Duration
	now         func() time.Time

	mu       sync.Mutex
	sessions map[string]*sessionEntry
	order    *list.List // front is most recently used
}

// ManagerOption configures a Manager.
type ManagerOption func(*Manager)

// WithMaxSessions caps the sessions held in memory. The least recently used
// session that no turn is holding is evicted first. n <= 0 disables the cap.
func WithMaxSessions(n int) ManagerOption {
	return func(m *Manager) { m.maxSessions = n }
}

// WithIdleTTL makes EvictIdle drop sessions unused for longer than ttl.
func WithIdleTTL(ttl time.Duration) ManagerOption {
	return func(m *Manager) { m.idleTTL = ttl }
}

// WithClock replaces time.Now.
func WithClock(now func() time.Time) ManagerOption {
	return func(m *Manager) { m.now = now }
}

// NewManager creates a manager whose histories hold capacity turns.
// store may be nil for in-memory sessions only.
func NewManager(capacity int, store TurnStore, opts ...ManagerOption) *Manager {
	m := &Manager{
		capacity: capacity,
		store:    store,
		now:      time.Now,
		sessions: make(map[string]*sessionEntry),
		order:    list.New(),
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// Acquire locks the session for one turn and returns it with its release
// function. An empty id starts a new session with a generated id; a supplied
// id is used unchanged. Stored turns are loaded on first use. A failed load
// is logged and the turn continues on in-memory history; the load is retried
// on the session's next turn.
func (m *Manager) Acquire(ctx context.Context, id string) (*Session, func()) {
	fresh := id == ""
	if fresh {
		id = uuid.NewString()
	}

	entry := m.hold(id, fresh)
	entry.mu.Lock()

	if !entry.loaded && m.store != nil {
		turns, err := m.store.LoadTurns(ctx, id, entry.history.Cap())
		if err != nil {
			contextutil.LoggerFromContext(ctx).WarnContext(ctx, "failed to load session history, continuing without it",
				"session_id", id, "error", err)
		} else {
			entry.history.Replace(turns)
			entry.loaded = true
		}
	} else {
		entry.loaded = true
	}

	release := func() {
		entry.mu.Unlock()
		m.unhold(entry)
	}
	return &Session{ID: id, History: entry.history}, release
}

// hold returns the entry for id, creating it if needed, and pins it against
// eviction until unhold.
func (m *Manager) hold(id string, fresh bool) *sessionEntry {
	m.mu.Lock()
	defer m.mu.Unlock()

	entry, ok := m.sessions[id]
	if !ok {
		entry = &sessionEntry{
			id:      id,
			history: NewHistory(m.capacity),
			// a generated id has nothing stored yet
			loaded: fresh,
		}
		entry.elem = m.order.PushFront(entry)
		m.sessions[id] = entry
	} else {
		m.order.MoveToFront(entry.elem)
	}
	entry.holders++
	entry.lastUsed = m.now()

	if m.maxSessions > 0 {
		m.evictOverflowLocked()
	}
	return entry
}

func (m *Manager) unhold(entry *sessionEntry) {
	m.mu.Lock()
	entry.holders--
	entry.lastUsed = m.now()
	m.mu.Unlock()
}

// evictOverflowLocked drops unheld sessions from the cold end until the cap holds.
func (m *Manager) evictOverflowLocked() {
	for e := m.order.Back(); e != nil && len(m.sessions) > m.maxSessions; {
		prev := e.Prev()
		entry := e.Value.(*sessionEntry)
		if entry.holders == 0 {
			m.removeLocked(entry)
		}
		e = prev
	}
}

func (m *Manager) removeLocked(entry *sessionEntry) {
	if m.sessions[entry.id] == entry {
		delete(m.sessions, entry.id)
	}
	if entry.elem != nil {
		m.order.Remove(entry.elem)
		entry.elem = nil
	}
}

// EvictIdle drops sessions that no turn holds and that have been unused for
// longer than the idle TTL. It returns the number evicted.
func (m *Manager) EvictIdle() int {
	if m.idleTTL <= 0 {
		return 0
	}
	cutoff := m.now().Add(-m.idleTTL)

	m.mu.Lock()
	defer m.mu.Unlock()
	evicted := 0
	for e := m.order.Back(); e != nil; {
		prev := e.Prev()
		entry := e.Value.(*sessionEntry)
		if !entry.lastUsed.Before(cutoff) {
			// everything closer to the front was used more recently
			break
		}
		if entry.holders == 0 {
			m.removeLocked(entry)
			evicted++
		}
		e = prev
	}
	return evicted
}

// Run calls EvictIdle every interval until ctx is cancelled.
func (m *Manager) Run(ctx context.Context, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	logger := contextutil.LoggerFromContext(ctx)
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if n := m.EvictIdle(); n > 0 {
				logger.DebugContext(ctx, "evicted idle sessions", "count", n, "remaining", m.Len())
			}
		}
	}
}

// Persist stores a completed turn. It must be called while the session is
// held. Storage failures are logged and do not affect the in-memory history.
func (m *Manager) Persist(ctx context.Context, sessionID string, turn Turn) {
	if m.store == nil {
		return
	}
	if err := m.store.AppendTurn(ctx, sessionID, turn); err != nil {
		contextutil.LoggerFromContext(ctx).WarnContext(ctx, "failed to persist turn", "session_id", sessionID, "error", err)
	}
}

// Reset forgets a session in memory and in the store. A turn in flight for
// the session finishes, including its Persist, before the stored turns are
// deleted, and the session's next turn waits until the delete is done.
func (m *Manager) Reset(ctx context.Context, sessionID string) error {
	m.mu.Lock()
	entry, ok := m.sessions[sessionID]
	if ok {
		entry.holders++
	}
	m.mu.Unlock()

	if ok {
		entry.mu.Lock()
		defer m.forget(entry)
		defer entry.mu.Unlock()
		entry.history.Replace(nil)
		entry.loaded = true
	}

	if m.store != nil {
		if err := m.store.DeleteSession(ctx, sessionID); err != nil {
			return fmt.Errorf("failed to delete session: %w", err)
		}
	}
	return nil
}

// forget drops a reset session from memory unless another turn is already
// waiting for it.
func (m *Manager) forget(entry *sessionEntry) {
	m.mu.Lock()
	defer m.mu.Unlock()
	entry.holders--
	if entry.holders == 0 {
		m.removeLocked(entry)
	}
}

// Len returns the number of sessions held in memory.
func (m *Manager) Len() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.sessions)
}
