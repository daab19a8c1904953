package reconcile

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/Nexora-Open-Source/briefing-backend/types"
	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeServer records SetReadStatus calls and serves a mutable item set
type fakeServer struct {
	mu        sync.Mutex
	items     map[int64]Item
	commits   []commitCall
	commitErr error
}

type commitCall struct {
	itemID int64
	read   bool
}

func newFakeServer(items ...Item) *fakeServer {
	s := &fakeServer{items: make(map[int64]Item)}
	for _, item := range items {
		s.items[item.ID] = item
	}
	return s
}

func (s *fakeServer) ListItems(ctx context.Context, ownerID int64) ([]Item, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]Item, 0, len(s.items))
	for _, item := range s.items {
		out = append(out, item)
	}
	return out, nil
}

func (s *fakeServer) GetItem(ctx context.Context, itemID int64) (Item, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	item, ok := s.items[itemID]
	if !ok {
		return Item{}, ErrItemGone
	}
	return item, nil
}

func (s *fakeServer) SetReadStatus(ctx context.Context, itemID int64, read bool) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.commitErr != nil {
		return s.commitErr
	}
	s.commits = append(s.commits, commitCall{itemID: itemID, read: read})
	if item, ok := s.items[itemID]; ok {
		item.Read = read
		s.items[itemID] = item
	}
	return nil
}

func (s *fakeServer) commitCalls() []commitCall {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]commitCall(nil), s.commits...)
}

func (s *fakeServer) setItem(item Item) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.items[item.ID] = item
}

func (s *fakeServer) removeItem(itemID int64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.items, itemID)
}

func newTestReconciler(t *testing.T, server Server) *Reconciler {
	t.Helper()
	logger := logrus.New()
	logger.SetLevel(logrus.ErrorLevel)
	r := NewReconciler(server, 10, Config{
		DebounceWindow: 20 * time.Millisecond,
		CommitTimeout:  time.Second,
	}, logger)
	require.NoError(t, r.Refresh(context.Background()))
	return r
}

func TestRapidTogglesCoalesceIntoOneCommit(t *testing.T) {
	server := newFakeServer(Item{ID: 1, Title: "a", Status: "completed", Read: false})
	r := newTestReconciler(t, server)

	// Burst of toggles ending on read=true.
	r.SetRead(1, true)
	r.SetRead(1, false)
	r.SetRead(1, true)

	// The optimistic value is visible immediately.
	item, ok := r.Item(1)
	require.True(t, ok)
	assert.True(t, item.Read)

	assert.Eventually(t, func() bool {
		return len(server.commitCalls()) == 1
	}, time.Second, 5*time.Millisecond)
	calls := server.commitCalls()
	assert.Equal(t, commitCall{itemID: 1, read: true}, calls[0])

	// No trailing second commit.
	time.Sleep(60 * time.Millisecond)
	assert.Len(t, server.commitCalls(), 1)
}

func TestToggleBurstEndingAtPriorCommitsNothing(t *testing.T) {
	server := newFakeServer(Item{ID: 1, Title: "a", Read: false})
	r := newTestReconciler(t, server)

	r.SetRead(1, true)
	r.SetRead(1, false)

	time.Sleep(80 * time.Millisecond)
	assert.Empty(t, server.commitCalls())

	item, _ := r.Item(1)
	assert.False(t, item.Read)
}

func TestFailedCommitRollsBackAndReportsError(t *testing.T) {
	server := newFakeServer(Item{ID: 1, Title: "a", Read: false})
	server.commitErr = errors.New("server unavailable")
	r := newTestReconciler(t, server)

	var (
		mu       sync.Mutex
		reported []int64
	)
	r.OnError = func(itemID int64, err error) {
		mu.Lock()
		defer mu.Unlock()
		reported = append(reported, itemID)
	}

	r.SetRead(1, true)
	item, _ := r.Item(1)
	assert.True(t, item.Read, "optimistic value shown before commit")

	assert.Eventually(t, func() bool {
		item, _ := r.Item(1)
		return !item.Read
	}, time.Second, 5*time.Millisecond)

	mu.Lock()
	defer mu.Unlock()
	require.Len(t, reported, 1)
	assert.Equal(t, int64(1), reported[0])
}

func TestToggleReadFlipsCurrentState(t *testing.T) {
	server := newFakeServer(Item{ID: 1, Read: false})
	r := newTestReconciler(t, server)

	r.ToggleRead(1)
	item, _ := r.Item(1)
	assert.True(t, item.Read)

	r.ToggleRead(1)
	item, _ = r.Item(1)
	assert.False(t, item.Read)
}

func TestDeleteCancelsPendingCommit(t *testing.T) {
	server := newFakeServer(Item{ID: 1, Read: false})
	r := newTestReconciler(t, server)

	r.SetRead(1, true)
	r.Delete(1)

	time.Sleep(80 * time.Millisecond)
	assert.Empty(t, server.commitCalls())
	_, ok := r.Item(1)
	assert.False(t, ok)
}

func TestApplyEventRefetchesSingleItem(t *testing.T) {
	server := newFakeServer(
		Item{ID: 1, Title: "old title", Status: "summarizing"},
		Item{ID: 2, Title: "other", Status: "completed"},
	)
	r := newTestReconciler(t, server)

	server.setItem(Item{ID: 1, Title: "old title", Summary: "done", Status: "completed"})

	err := r.ApplyEvent(context.Background(), types.UpdateEvent{
		EntityID:   1,
		Kind:       types.KindItem,
		Status:     types.StatusCompleted,
		UpdateType: types.UpdateCompleted,
	})
	require.NoError(t, err)

	item, ok := r.Item(1)
	require.True(t, ok)
	assert.Equal(t, "completed", item.Status)
	assert.Equal(t, "done", item.Summary)

	// The untouched item was not refetched or altered.
	other, _ := r.Item(2)
	assert.Equal(t, "other", other.Title)
}

func TestApplyEventPreservesOptimisticReadState(t *testing.T) {
	server := newFakeServer(Item{ID: 1, Status: "summarizing", Read: false})
	r := newTestReconciler(t, server)

	// Slow the commit down so the event lands while the toggle is pending.
	r.SetRead(1, true)
	server.setItem(Item{ID: 1, Status: "completed", Read: false})

	err := r.ApplyEvent(context.Background(), types.UpdateEvent{
		EntityID: 1,
		Kind:     types.KindItem,
		Status:   types.StatusCompleted,
	})
	require.NoError(t, err)

	item, _ := r.Item(1)
	assert.Equal(t, "completed", item.Status)
	assert.True(t, item.Read, "pending optimistic read survives the refetch")
}

func TestApplyEventDeletesGoneItem(t *testing.T) {
	server := newFakeServer(Item{ID: 1})
	r := newTestReconciler(t, server)

	server.removeItem(1)
	err := r.ApplyEvent(context.Background(), types.UpdateEvent{
		EntityID: 1,
		Kind:     types.KindItem,
	})
	require.NoError(t, err)

	_, ok := r.Item(1)
	assert.False(t, ok)
}

func TestResyncEventForcesFullRefresh(t *testing.T) {
	server := newFakeServer(Item{ID: 1, Title: "stale"})
	r := newTestReconciler(t, server)

	server.setItem(Item{ID: 1, Title: "fresh"})
	server.setItem(Item{ID: 2, Title: "new arrival"})

	err := r.ApplyEvent(context.Background(), types.UpdateEvent{Resync: true})
	require.NoError(t, err)

	items := r.Items()
	require.Len(t, items, 2)
	assert.Equal(t, "fresh", items[0].Title)
	assert.Equal(t, "new arrival", items[1].Title)
}

func TestOnReconnectRefreshes(t *testing.T) {
	server := newFakeServer(Item{ID: 1, Title: "before"})
	r := newTestReconciler(t, server)

	server.removeItem(1)
	server.setItem(Item{ID: 3, Title: "after"})

	require.NoError(t, r.OnReconnect(context.Background()))

	items := r.Items()
	require.Len(t, items, 1)
	assert.Equal(t, int64(3), items[0].ID)
}

func TestSetReadOnUnknownItemIsIgnored(t *testing.T) {
	server := newFakeServer()
	r := newTestReconciler(t, server)

	r.SetRead(99, true)
	time.Sleep(60 * time.Millisecond)
	assert.Empty(t, server.commitCalls())
}
