/*
Package stream implements the per-user event broadcaster: fan-out of status
store transitions to every live subscription for the owning user, with
bounded per-subscriber buffers, non-blocking publish, and ref-counted hub
lifecycle.

Delivery is best-effort by design. A subscriber that cannot keep up has its
oldest buffered event replaced by a single resync marker telling the client
to refetch canonical state; the publisher is never blocked or informed.
*/
package stream

import (
	"sync"
	"time"

	"github.com/Nexora-Open-Source/briefing-backend/monitoring"
	"github.com/Nexora-Open-Source/briefing-backend/types"
	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
)

// Subscription is one live client connection bound to a single owner. Its
// event channel is closed when the subscription is closed.
type Subscription struct {
	ID      string
	OwnerID int64

	events    chan types.UpdateEvent
	seq       uint64
	degraded  bool
	closed    bool
	b         *Broadcaster
	closeOnce sync.Once
}

// Events returns the receive-only event channel for this subscription
func (s *Subscription) Events() <-chan types.UpdateEvent {
	return s.events
}

// NextSeq returns the next per-connection sequence number. The counter is
// local to this subscription and used only for duplicate suppression within
// one connection's lifetime.
func (s *Subscription) NextSeq() uint64 {
	s.seq++
	return s.seq
}

// Close releases the subscription and its buffer. It is idempotent and safe
// to call from any goroutine.
func (s *Subscription) Close() {
	s.closeOnce.Do(func() {
		s.b.unsubscribe(s)
	})
}

// hub fans events out to every subscription of one owner
type hub struct {
	ownerID int64
	subs    map[string]*Subscription
	retire  *time.Timer
}

// BroadcasterConfig bounds buffering and hub teardown
type BroadcasterConfig struct {
	// BufferSize is the bounded event buffer per subscriber.
	BufferSize int
	// IdleGrace is how long an empty hub is kept alive to absorb rapid
	// reconnects before it is torn down.
	IdleGrace time.Duration
}

// DefaultBroadcasterConfig returns the broadcaster defaults
func DefaultBroadcasterConfig() BroadcasterConfig {
	return BroadcasterConfig{
		BufferSize: 16,
		IdleGrace:  30 * time.Second,
	}
}

// Broadcaster delivers each published event to every live subscription of
// the owning user without blocking the publisher on slow consumers.
type Broadcaster struct {
	mu     sync.RWMutex
	hubs   map[int64]*hub
	config BroadcasterConfig
	logger *logrus.Logger
	subs   int
}

// NewBroadcaster creates a broadcaster with the given config
func NewBroadcaster(config BroadcasterConfig, logger *logrus.Logger) *Broadcaster {
	if config.BufferSize <= 0 {
		config.BufferSize = 16
	}
	if config.IdleGrace <= 0 {
		config.IdleGrace = 30 * time.Second
	}
	return &Broadcaster{
		hubs:   make(map[int64]*hub),
		config: config,
		logger: logger,
	}
}

// Subscribe registers a new live subscription for an owner. The first
// subscription for an owner lazily creates its fan-out hub; a hub scheduled
// for teardown is revived instead of recreated.
func (b *Broadcaster) Subscribe(ownerID int64) *Subscription {
	sub := &Subscription{
		ID:      uuid.NewString(),
		OwnerID: ownerID,
		events:  make(chan types.UpdateEvent, b.config.BufferSize),
		b:       b,
	}

	b.mu.Lock()
	h, ok := b.hubs[ownerID]
	if !ok {
		h = &hub{ownerID: ownerID, subs: make(map[string]*Subscription)}
		b.hubs[ownerID] = h
	}
	if h.retire != nil {
		h.retire.Stop()
		h.retire = nil
	}
	h.subs[sub.ID] = sub
	b.subs++
	total := len(h.subs)
	b.mu.Unlock()

	monitoring.UpdateStreamSubscribers(b.SubscriberTotal())
	b.logger.WithFields(logrus.Fields{
		"owner_id":    ownerID,
		"sub_id":      sub.ID,
		"owner_total": total,
	}).Info("Stream subscription opened")

	return sub
}

// Publish enqueues an event to every live subscription for the owner. The
// call never blocks beyond a constant-time enqueue attempt per subscriber;
// subscriber health is invisible to the publisher.
func (b *Broadcaster) Publish(ownerID int64, event types.UpdateEvent) {
	b.mu.RLock()
	h, ok := b.hubs[ownerID]
	if !ok {
		b.mu.RUnlock()
		return
	}
	subs := make([]*Subscription, 0, len(h.subs))
	for _, sub := range h.subs {
		subs = append(subs, sub)
	}
	b.mu.RUnlock()

	monitoring.RecordEventPublished(string(event.Kind))
	for _, sub := range subs {
		b.offer(sub, event)
	}
}

// offer attempts one non-blocking enqueue. On overflow the oldest buffered
// event is dropped and replaced by a single resync marker; once marked, the
// subscriber receives no further events until it drains the marker, and the
// client must treat it as "refetch canonical state".
func (b *Broadcaster) offer(sub *Subscription, event types.UpdateEvent) {
	b.mu.Lock()
	defer b.mu.Unlock()

	if sub.closed {
		return
	}

	select {
	case sub.events <- event:
		sub.degraded = false
		return
	default:
	}

	monitoring.RecordEventDropped()
	if sub.degraded {
		return
	}

	// Drop the oldest buffered event to make room for the marker.
	select {
	case <-sub.events:
	default:
	}
	marker := types.UpdateEvent{OwnerID: sub.OwnerID, Resync: true}
	select {
	case sub.events <- marker:
		sub.degraded = true
		monitoring.RecordResyncMarker()
		b.logger.WithFields(logrus.Fields{
			"owner_id": sub.OwnerID,
			"sub_id":   sub.ID,
		}).Warn("Subscriber buffer overflow, resync marker queued")
	default:
	}
}

// SubscriberCount returns the number of live subscriptions for an owner
func (b *Broadcaster) SubscriberCount(ownerID int64) int {
	b.mu.RLock()
	defer b.mu.RUnlock()
	h, ok := b.hubs[ownerID]
	if !ok {
		return 0
	}
	return len(h.subs)
}

// SubscriberTotal returns the number of live subscriptions across all owners
func (b *Broadcaster) SubscriberTotal() int {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return b.subs
}

// HasHub reports whether a fan-out hub currently exists for an owner
func (b *Broadcaster) HasHub(ownerID int64) bool {
	b.mu.RLock()
	defer b.mu.RUnlock()
	_, ok := b.hubs[ownerID]
	return ok
}

func (b *Broadcaster) unsubscribe(sub *Subscription) {
	b.mu.Lock()
	h, ok := b.hubs[sub.OwnerID]
	if !ok {
		b.mu.Unlock()
		return
	}
	if _, present := h.subs[sub.ID]; !present {
		b.mu.Unlock()
		return
	}
	delete(h.subs, sub.ID)
	b.subs--
	sub.closed = true
	close(sub.events)
	remaining := len(h.subs)

	// The last unsubscribe does not tear the hub down immediately; an idle
	// grace period absorbs rapid reconnects.
	if remaining == 0 && h.retire == nil {
		h.retire = time.AfterFunc(b.config.IdleGrace, func() {
			b.retireHub(sub.OwnerID)
		})
	}
	b.mu.Unlock()

	monitoring.UpdateStreamSubscribers(b.SubscriberTotal())
	b.logger.WithFields(logrus.Fields{
		"owner_id":  sub.OwnerID,
		"sub_id":    sub.ID,
		"remaining": remaining,
	}).Info("Stream subscription closed")
}

func (b *Broadcaster) retireHub(ownerID int64) {
	b.mu.Lock()
	defer b.mu.Unlock()

	h, ok := b.hubs[ownerID]
	if !ok || len(h.subs) > 0 {
		return
	}
	delete(b.hubs, ownerID)
	b.logger.WithField("owner_id", ownerID).Debug("Idle fan-out hub retired")
}
