package stream

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/Nexora-Open-Source/briefing-backend/types"
	"github.com/sirupsen/logrus"
)

// Named SSE event types on the wire
const (
	EventItemUpdate    = "item-update"
	EventPodcastUpdate = "podcast-update"
	EventResync        = "resync-required"
)

type itemWireEvent struct {
	ItemID     int64  `json:"item_id"`
	Status     string `json:"status"`
	UpdateType string `json:"update_type"`
}

type podcastWireEvent struct {
	PodcastID  int64  `json:"podcast_id"`
	Status     string `json:"status"`
	UpdateType string `json:"update_type"`
	AudioURL   string `json:"audio_url,omitempty"`
}

// EncodeEvent maps an update event to its SSE event name and JSON payload
func EncodeEvent(event types.UpdateEvent) (string, []byte, error) {
	if event.Resync {
		return EventResync, []byte("{}"), nil
	}

	switch event.Kind {
	case types.KindItem:
		data, err := json.Marshal(itemWireEvent{
			ItemID:     event.EntityID,
			Status:     string(event.Status),
			UpdateType: string(event.UpdateType),
		})
		return EventItemUpdate, data, err
	case types.KindPodcast:
		wire := podcastWireEvent{
			PodcastID:  event.EntityID,
			Status:     string(event.Status),
			UpdateType: string(event.UpdateType),
		}
		if event.Status == types.StatusCompleted {
			wire.AudioURL = event.ResultRef
		}
		data, err := json.Marshal(wire)
		return EventPodcastUpdate, data, err
	default:
		return "", nil, fmt.Errorf("unknown event kind %q", event.Kind)
	}
}

// WriteEventStream pumps a subscription's events to w in SSE format until
// the context is cancelled or the subscription closes. Unnamed keep-alive
// comments are emitted every heartbeat interval so proxies and client
// libraries can tell a dead connection from a quiet one.
func WriteEventStream(ctx context.Context, w io.Writer, flusher http.Flusher, sub *Subscription, heartbeat time.Duration, logger *logrus.Logger) {
	if heartbeat <= 0 {
		heartbeat = 30 * time.Second
	}

	// Initial comment to establish the stream.
	fmt.Fprint(w, ": connected\n\n")
	flusher.Flush()

	ticker := time.NewTicker(heartbeat)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			fmt.Fprint(w, ": keepalive\n\n")
			flusher.Flush()
		case event, ok := <-sub.Events():
			if !ok {
				return
			}
			name, data, err := EncodeEvent(event)
			if err != nil {
				logger.WithError(err).Error("Failed to encode stream event")
				continue
			}
			fmt.Fprintf(w, "id: %d\n", sub.NextSeq())
			fmt.Fprintf(w, "event: %s\n", name)
			fmt.Fprintf(w, "data: %s\n\n", data)
			flusher.Flush()
		}
	}
}
