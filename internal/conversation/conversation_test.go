package conversation_test

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/mock/gomock"

	"pmcbot/internal/conversation"
	"pmcbot/internal/conversation/mocks"
)

func TestHistory_RingBufferEviction(t *testing.T) {
	h := conversation.NewHistory(3)
	_, ok := h.Last()
	assert.False(t, ok)
	assert.Equal(t, 0, h.Len())

	for i := 1; i <= 5; i++ {
		h.Append(conversation.Turn{User: fmt.Sprintf("q%d", i), Bot: fmt.Sprintf("a%d", i)})
	}

	assert.Equal(t, 3, h.Len())
	assert.Equal(t, uint64(5), h.Total())
	turns := h.Turns()
	require.Len(t, turns, 3)
	assert.Equal(t, []string{"q3", "q4", "q5"}, []string{turns[0].User, turns[1].User, turns[2].User})

	last, ok := h.Last()
	require.True(t, ok)
	assert.Equal(t, "a5", last.Bot)
}

func TestHistory_MinimumCapacity(t *testing.T) {
	h := conversation.NewHistory(0)
	assert.Equal(t, 1, h.Cap())
	h.Append(conversation.Turn{User: "a"})
	h.Append(conversation.Turn{User: "b"})
	assert.Equal(t, []conversation.Turn{{User: "b"}}, h.Turns())
}

func TestHistory_Replace(t *testing.T) {
	h := conversation.NewHistory(2)
	h.Append(conversation.Turn{User: "old"})

	h.Replace([]conversation.Turn{{User: "1"}, {User: "2"}, {User: "3"}})
	assert.Equal(t, []conversation.Turn{{User: "2"}, {User: "3"}}, h.Turns())

	h.Replace(nil)
	assert.Equal(t, 0, h.Len())
	assert.Empty(t, h.Turns())
}

func TestHistory_ConcurrentAppendAndRead(t *testing.T) {
	h := conversation.NewHistory(4)
	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(2)
		go func(i int) {
			defer wg.Done()
			h.Append(conversation.Turn{User: fmt.Sprint(i)})
		}(i)
		go func() {
			defer wg.Done()
			assert.LessOrEqual(t, len(h.Turns()), 4)
		}()
	}
	wg.Wait()
	assert.Equal(t, 4, h.Len())
	assert.Equal(t, uint64(50), h.Total())
}

func TestNormalizeHistory_TypedAndMapFormsAgree(t *testing.T) {
	typed := []any{
		conversation.Turn{User: "Tell me about Bund Garden", Bot: "Bund Garden is ..."},
		&conversation.Turn{User: "timings?", Bot: "6am to 10am"},
	}
	mapped := []any{
		map[string]any{"user": "Tell me about Bund Garden", "bot": "Bund Garden is ..."},
		map[string]string{"user": " timings? ", "bot": "6am to 10am"},
	}

	fromTyped, err := conversation.NormalizeHistory(typed)
	require.NoError(t, err)
	fromMapped, err := conversation.NormalizeHistory(mapped)
	require.NoError(t, err)
	assert.Equal(t, fromTyped, fromMapped)
}

func TestNormalizeHistory_Errors(t *testing.T) {
	_, err := conversation.NormalizeHistory([]any{map[string]any{"user": 42}})
	assert.Error(t, err)

	_, err = conversation.NormalizeHistory([]any{"just a string"})
	assert.Error(t, err)

	turns, err := conversation.NormalizeHistory([]any{nil, map[string]any{"user": "hi", "bot": nil}})
	require.NoError(t, err)
	assert.Equal(t, []conversation.Turn{{User: "hi"}}, turns)
}

func TestManager_AcquireGeneratesAndEchoesIDs(t *testing.T) {
	m := conversation.NewManager(2, nil)
	ctx := context.Background()

	sess, release := m.Acquire(ctx, "")
	assert.NotEmpty(t, sess.ID)
	sess.History.Append(conversation.Turn{User: "q", Bot: "a"})
	release()

	again, release := m.Acquire(ctx, sess.ID)
	defer release()
	assert.Equal(t, sess.ID, again.ID)
	assert.Equal(t, 1, again.History.Len())

	custom, releaseCustom := m.Acquire(ctx, "my-session")
	defer releaseCustom()
	assert.Equal(t, "my-session", custom.ID)
	assert.Equal(t, 0, custom.History.Len())
}

func TestManager_SerializesSameSession(t *testing.T) {
	m := conversation.NewManager(5, nil)
	ctx := context.Background()

	_, release := m.Acquire(ctx, "s1")

	acquired := make(chan struct{})
	go func() {
		_, r := m.Acquire(ctx, "s1")
		close(acquired)
		r()
	}()

	// a different session is not blocked
	_, releaseOther := m.Acquire(ctx, "s2")
	releaseOther()

	select {
	case <-acquired:
		t.Fatal("second acquire of the same session should block")
	case <-time.After(50 * time.Millisecond):
	}

	release()
	select {
	case <-acquired:
	case <-time.After(2 * time.Second):
		t.Fatal("second acquire did not proceed after release")
	}
}

func TestManager_LoadsFromStoreOnce(t *testing.T) {
	ctrl := gomock.NewController(t)
	store := mocks.NewMockTurnStore(ctrl)
	ctx := context.Background()

	store.EXPECT().
		LoadTurns(gomock.Any(), "s1", 3).
		Return([]conversation.Turn{{User: "stored", Bot: "answer"}}, nil).
		Times(1)

	m := conversation.NewManager(3, store)
	for i := 0; i < 2; i++ {
		sess, release := m.Acquire(ctx, "s1")
		assert.Equal(t, 1, sess.History.Len())
		release()
	}
}

func TestManager_GeneratedIDSkipsStore(t *testing.T) {
	ctrl := gomock.NewController(t)
	// no LoadTurns expectation: a generated id has nothing stored
	store := mocks.NewMockTurnStore(ctrl)

	m := conversation.NewManager(3, store)
	sess, release := m.Acquire(context.Background(), "")
	defer release()
	assert.NotEmpty(t, sess.ID)
	assert.Equal(t, 0, sess.History.Len())
}

func TestManager_LoadFailureContinuesInMemory(t *testing.T) {
	ctrl := gomock.NewController(t)
	store := mocks.NewMockTurnStore(ctrl)
	ctx := context.Background()

	store.EXPECT().LoadTurns(gomock.Any(), "s1", 2).Return(nil, errors.New("db down"))
	m := conversation.NewManager(2, store)
	sess, release := m.Acquire(ctx, "s1")
	assert.Equal(t, "s1", sess.ID)
	assert.Equal(t, 0, sess.History.Len())
	sess.History.Append(conversation.Turn{User: "live", Bot: "answer"})
	release()

	// the next turn retries the load and keeps the stored turns
	store.EXPECT().LoadTurns(gomock.Any(), "s1", 2).
		Return([]conversation.Turn{{User: "stored", Bot: "answer"}}, nil)
	sess, release = m.Acquire(ctx, "s1")
	defer release()
	require.Equal(t, 1, sess.History.Len())
	last, _ := sess.History.Last()
	assert.Equal(t, "stored", last.User)
}

func TestManager_PersistAndReset(t *testing.T) {
	ctrl := gomock.NewController(t)
	store := mocks.NewMockTurnStore(ctrl)
	ctx := context.Background()
	turn := conversation.Turn{User: "q", Bot: "a"}

	store.EXPECT().LoadTurns(gomock.Any(), "s1", 2).Return(nil, nil)
	store.EXPECT().AppendTurn(gomock.Any(), "s1", turn).Return(errors.New("disk full"))
	store.EXPECT().DeleteSession(gomock.Any(), "s1").Return(nil)

	m := conversation.NewManager(2, store)
	sess, release := m.Acquire(ctx, "s1")
	sess.History.Append(turn)
	m.Persist(ctx, sess.ID, turn)
	release()

	assert.Equal(t, 1, m.Len())
	require.NoError(t, m.Reset(ctx, "s1"))
	assert.Equal(t, 0, m.Len())
	assert.Equal(t, 0, sess.History.Len())
}

func TestManager_ResetWaitsForTurnInFlight(t *testing.T) {
	ctrl := gomock.NewController(t)
	store := mocks.NewMockTurnStore(ctrl)
	ctx := context.Background()
	turn := conversation.Turn{User: "q", Bot: "a"}

	store.EXPECT().LoadTurns(gomock.Any(), "s1", 2).Return(nil, nil)
	gomock.InOrder(
		store.EXPECT().AppendTurn(gomock.Any(), "s1", turn).Return(nil),
		store.EXPECT().DeleteSession(gomock.Any(), "s1").Return(nil),
	)

	m := conversation.NewManager(2, store)
	sess, release := m.Acquire(ctx, "s1")

	done := make(chan error, 1)
	go func() { done <- m.Reset(ctx, "s1") }()

	select {
	case <-done:
		t.Fatal("reset should wait for the turn in flight")
	case <-time.After(50 * time.Millisecond):
	}

	sess.History.Append(turn)
	m.Persist(ctx, sess.ID, turn)
	release()

	select {
	case err := <-done:
		require.NoError(t, err)
	case <-time.After(2 * time.Second):
		t.Fatal("reset did not proceed after release")
	}
	assert.Equal(t, 0, sess.History.Len())
}

func TestManager_MaxSessionsBoundsMemory(t *testing.T) {
	m := conversation.NewManager(2, nil, conversation.WithMaxSessions(100))
	ctx := context.Background()

	for i := 0; i < 10000; i++ {
		_, release := m.Acquire(ctx, "")
		release()
	}
	assert.Equal(t, 100, m.Len())
}

func TestManager_MaxSessionsKeepsHeldSessions(t *testing.T) {
	m := conversation.NewManager(2, nil, conversation.WithMaxSessions(1))
	ctx := context.Background()

	held, releaseHeld := m.Acquire(ctx, "held")
	held.History.Append(conversation.Turn{User: "q", Bot: "a"})

	// both are held while "other" is created, so neither can go
	_, release := m.Acquire(ctx, "other")
	release()
	assert.Equal(t, 2, m.Len())

	releaseHeld()
	sess, release := m.Acquire(ctx, "held")
	defer release()
	assert.Equal(t, 1, m.Len())
	assert.Equal(t, 1, sess.History.Len())
}

func TestManager_EvictIdle(t *testing.T) {
	ctrl := gomock.NewController(t)
	store := mocks.NewMockTurnStore(ctrl)
	ctx := context.Background()

	now := time.Date(2024, 6, 1, 10, 0, 0, 0, time.UTC)
	clock := func() time.Time { return now }
	m := conversation.NewManager(3, store,
		conversation.WithIdleTTL(30*time.Minute),
		conversation.WithClock(clock),
	)

	store.EXPECT().LoadTurns(gomock.Any(), "old", 3).Return(nil, nil)
	store.EXPECT().LoadTurns(gomock.Any(), "recent", 3).Return(nil, nil)

	sess, release := m.Acquire(ctx, "old")
	sess.History.Append(conversation.Turn{User: "q", Bot: "a"})
	release()

	now = now.Add(20 * time.Minute)
	_, release = m.Acquire(ctx, "recent")
	release()

	now = now.Add(15 * time.Minute)
	assert.Equal(t, 1, m.EvictIdle())
	assert.Equal(t, 1, m.Len())

	// an evicted session reloads from the store on its next turn
	store.EXPECT().LoadTurns(gomock.Any(), "old", 3).
		Return([]conversation.Turn{{User: "q", Bot: "a"}}, nil)
	sess, release = m.Acquire(ctx, "old")
	defer release()
	assert.Equal(t, 1, sess.History.Len())
}

func TestManager_EvictIdleDisabled(t *testing.T) {
	m := conversation.NewManager(2, nil)
	_, release := m.Acquire(context.Background(), "s1")
	release()
	assert.Equal(t, 0, m.EvictIdle())
	assert.Equal(t, 1, m.Len())
}

func TestManager_RunStopsWithContext(t *testing.T) {
	m := conversation.NewManager(2, nil, conversation.WithIdleTTL(time.Nanosecond))
	_, release := m.Acquire(context.Background(), "s1")
	release()

	ctx, cancel := context.WithCancel(context.Background())
	stopped := make(chan struct{})
	go func() {
		m.Run(ctx, time.Millisecond)
		close(stopped)
	}()

	assert.Eventually(t, func() bool { return m.Len() == 0 }, 2*time.Second, 5*time.Millisecond)
	cancel()
	select {
	case <-stopped:
	case <-time.After(2 * time.Second):
		t.Fatal("Run did not return after cancel")
	}
}
