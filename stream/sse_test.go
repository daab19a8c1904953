package stream

import (
	"bytes"
	"context"
	"encoding/json"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/Nexora-Open-Source/briefing-backend/types"
	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEncodeItemEvent(t *testing.T) {
	name, data, err := EncodeEvent(types.UpdateEvent{
		OwnerID:    10,
		EntityID:   42,
		Kind:       types.KindItem,
		Status:     types.StatusSummarizing,
		UpdateType: types.UpdateProcessing,
	})
	require.NoError(t, err)
	assert.Equal(t, EventItemUpdate, name)

	var wire map[string]interface{}
	require.NoError(t, json.Unmarshal(data, &wire))
	assert.Equal(t, float64(42), wire["item_id"])
	assert.Equal(t, "summarizing", wire["status"])
	assert.Equal(t, "processing", wire["update_type"])
	assert.NotContains(t, wire, "audio_url")
}

func TestEncodePodcastEventIncludesAudioURLOnlyWhenCompleted(t *testing.T) {
	inProgress := types.UpdateEvent{
		OwnerID:    10,
		EntityID:   7,
		Kind:       types.KindPodcast,
		Status:     types.StatusGenerating,
		UpdateType: types.UpdateProcessing,
		ResultRef:  "https://audio.local/podcasts/early.mp3",
	}
	name, data, err := EncodeEvent(inProgress)
	require.NoError(t, err)
	assert.Equal(t, EventPodcastUpdate, name)
	assert.NotContains(t, string(data), "audio_url")

	completed := inProgress
	completed.Status = types.StatusCompleted
	completed.UpdateType = types.UpdateCompleted
	_, data, err = EncodeEvent(completed)
	require.NoError(t, err)

	var wire map[string]interface{}
	require.NoError(t, json.Unmarshal(data, &wire))
	assert.Equal(t, float64(7), wire["podcast_id"])
	assert.Equal(t, "https://audio.local/podcasts/early.mp3", wire["audio_url"])
}

func TestEncodeResyncEvent(t *testing.T) {
	name, data, err := EncodeEvent(types.UpdateEvent{OwnerID: 10, Resync: true})
	require.NoError(t, err)
	assert.Equal(t, EventResync, name)
	assert.JSONEq(t, "{}", string(data))
}

func TestEncodeUnknownKind(t *testing.T) {
	_, _, err := EncodeEvent(types.UpdateEvent{Kind: "mystery"})
	assert.Error(t, err)
}

// syncWriter is a flushable writer safe for concurrent reads during the pump
type syncWriter struct {
	mu  sync.Mutex
	buf bytes.Buffer
}

func (w *syncWriter) Write(p []byte) (int, error) {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.buf.Write(p)
}

func (w *syncWriter) Flush() {}

func (w *syncWriter) String() string {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.buf.String()
}

func TestWriteEventStream(t *testing.T) {
	logger := logrus.New()
	logger.SetLevel(logrus.ErrorLevel)
	b := NewBroadcaster(DefaultBroadcasterConfig(), logger)

	sub := b.Subscribe(10)
	b.Publish(10, types.UpdateEvent{
		OwnerID:    10,
		EntityID:   1,
		Kind:       types.KindItem,
		Status:     types.StatusCompleted,
		UpdateType: types.UpdateCompleted,
	})
	b.Publish(10, types.UpdateEvent{OwnerID: 10, Resync: true})

	out := &syncWriter{}
	ctx, cancel := context.WithCancel(context.Background())

	done := make(chan struct{})
	go func() {
		defer close(done)
		WriteEventStream(ctx, out, out, sub, time.Minute, logger)
	}()

	// Both buffered events arrive, then cancellation ends the pump.
	require.Eventually(t, func() bool {
		return strings.Contains(out.String(), EventResync)
	}, time.Second, 5*time.Millisecond)
	cancel()
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("stream writer did not stop on context cancel")
	}
	sub.Close()

	body := out.String()
	assert.True(t, strings.HasPrefix(body, ": connected\n\n"))
	assert.Contains(t, body, "id: 1\n")
	assert.Contains(t, body, "event: "+EventItemUpdate+"\n")
	assert.Contains(t, body, `"item_id":1`)
	assert.Contains(t, body, "id: 2\n")
	assert.Contains(t, body, "event: "+EventResync+"\n")
	assert.Contains(t, body, "data: {}\n\n")
}

func TestWriteEventStreamStopsWhenSubscriptionCloses(t *testing.T) {
	logger := logrus.New()
	logger.SetLevel(logrus.ErrorLevel)
	b := NewBroadcaster(DefaultBroadcasterConfig(), logger)

	sub := b.Subscribe(10)
	out := &syncWriter{}

	done := make(chan struct{})
	go func() {
		defer close(done)
		WriteEventStream(context.Background(), out, out, sub, time.Minute, logger)
	}()

	sub.Close()
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("stream writer did not stop on subscription close")
	}
}
