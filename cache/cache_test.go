package cache

import (
	"testing"
	"time"

	"github.com/Nexora-Open-Source/briefing-backend/types"
	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestManager() *Manager {
	logger := logrus.New()
	logger.SetLevel(logrus.ErrorLevel)
	return NewManager(NewInMemoryCache(time.Minute), logger, 20*time.Millisecond, time.Minute)
}

func TestManagerRoundTrip(t *testing.T) {
	m := newTestManager()

	job := types.Job{EntityID: 1, OwnerID: 10, Kind: types.KindItem, Status: types.StatusFetching}
	require.NoError(t, m.SetJob(job))

	cached, found := m.GetJob(types.KindItem, 1)
	require.True(t, found)
	assert.Equal(t, types.StatusFetching, cached.Status)

	// Same entity ID under a different kind is a separate key.
	_, found = m.GetJob(types.KindPodcast, 1)
	assert.False(t, found)
}

func TestManagerActiveSnapshotExpires(t *testing.T) {
	m := newTestManager()

	job := types.Job{EntityID: 1, Kind: types.KindItem, Status: types.StatusExtracting}
	require.NoError(t, m.SetJob(job))

	_, found := m.GetJob(types.KindItem, 1)
	require.True(t, found)

	assert.Eventually(t, func() bool {
		_, found := m.GetJob(types.KindItem, 1)
		return !found
	}, time.Second, 5*time.Millisecond)
}

func TestManagerTerminalSnapshotOutlivesActiveTTL(t *testing.T) {
	m := newTestManager()

	job := types.Job{EntityID: 1, Kind: types.KindItem, Status: types.StatusCompleted, ResultRef: "ref"}
	require.NoError(t, m.SetJob(job))

	// Well past the active TTL, terminal snapshots stay cached.
	time.Sleep(60 * time.Millisecond)
	cached, found := m.GetJob(types.KindItem, 1)
	require.True(t, found)
	assert.Equal(t, "ref", cached.ResultRef)
}

func TestManagerInvalidateJob(t *testing.T) {
	m := newTestManager()

	job := types.Job{EntityID: 1, Kind: types.KindItem, Status: types.StatusFetching}
	require.NoError(t, m.SetJob(job))
	require.NoError(t, m.InvalidateJob(types.KindItem, 1))

	_, found := m.GetJob(types.KindItem, 1)
	assert.False(t, found)
}

func TestManagerSetJobRejectsSnapshotFromBeforeTransition(t *testing.T) {
	m := newTestManager()

	readAt := time.Now()
	transitionAt := readAt.Add(10 * time.Millisecond)
	require.NoError(t, m.InvalidateJobAt(types.KindItem, 1, transitionAt))

	// A snapshot read before the transition arrives late; caching it would
	// serve the old status until the TTL ran out.
	stale := types.Job{EntityID: 1, Kind: types.KindItem, Status: types.StatusFetching, UpdatedAt: readAt}
	require.NoError(t, m.SetJob(stale))
	_, found := m.GetJob(types.KindItem, 1)
	assert.False(t, found)

	// The snapshot of the new state caches normally.
	fresh := types.Job{EntityID: 1, Kind: types.KindItem, Status: types.StatusExtracting, UpdatedAt: transitionAt}
	require.NoError(t, m.SetJob(fresh))
	cached, found := m.GetJob(types.KindItem, 1)
	require.True(t, found)
	assert.Equal(t, types.StatusExtracting, cached.Status)
}

func TestManagerClearAll(t *testing.T) {
	m := newTestManager()

	require.NoError(t, m.SetJob(types.Job{EntityID: 1, Kind: types.KindItem, Status: types.StatusFetching}))
	require.NoError(t, m.SetJob(types.Job{EntityID: 2, Kind: types.KindPodcast, Status: types.StatusWriting}))
	require.NoError(t, m.ClearAll())

	_, found := m.GetJob(types.KindItem, 1)
	assert.False(t, found)
	_, found = m.GetJob(types.KindPodcast, 2)
	assert.False(t, found)
}
