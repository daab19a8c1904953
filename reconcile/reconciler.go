// Package reconcile implements the client-side view of the briefing API:
// a local item snapshot kept consistent with the server through optimistic
// mutations, debounced commits, and stream-driven refetches.
package reconcile

import (
	"context"
	"errors"
	"sort"
	"sync"
	"time"

	"github.com/Nexora-Open-Source/briefing-backend/types"
	"github.com/bep/debounce"
	"github.com/sirupsen/logrus"
)

// Item is the client's view of one briefing item
type Item struct {
	ID       int64  `json:"id"`
	Title    string `json:"title"`
	Summary  string `json:"summary,omitempty"`
	Status   string `json:"status"`
	Read     bool   `json:"read"`
	Archived bool   `json:"archived"`
}

// ErrItemGone is returned by servers when a refetched item no longer exists
var ErrItemGone = errors.New("item no longer exists on the server")

// Server is the remote surface the reconciler talks to
type Server interface {
	ListItems(ctx context.Context, ownerID int64) ([]Item, error)
	GetItem(ctx context.Context, itemID int64) (Item, error)
	SetReadStatus(ctx context.Context, itemID int64, read bool) error
}

// Config controls reconciler timing
type Config struct {
	// DebounceWindow is the trailing-edge quiet period before a read
	// toggle is committed to the server.
	DebounceWindow time.Duration
	// CommitTimeout bounds each commit request.
	CommitTimeout time.Duration
}

// DefaultConfig returns the standard reconciler timing
func DefaultConfig() Config {
	return Config{
		DebounceWindow: 500 * time.Millisecond,
		CommitTimeout:  10 * time.Second,
	}
}

type pendingCommit struct {
	prior   bool // server-acknowledged state to roll back to
	desired bool // latest optimistic state, read at fire time
	deleted bool // item removed locally while the commit was pending
}

// Reconciler holds a user's local item set and keeps it consistent with
// the server. Rapid read toggles on one item coalesce into a single commit
// of the final state; a failed commit rolls the item back to its last
// server-acknowledged value.
type Reconciler struct {
	mu      sync.Mutex
	server  Server
	ownerID int64
	config  Config
	logger  *logrus.Logger

	items      map[int64]Item
	pending    map[int64]*pendingCommit
	debouncers map[int64]func(func())

	// OnError is invoked outside the lock when a commit is rolled back.
	OnError func(itemID int64, err error)
}

func NewReconciler(server Server, ownerID int64, config Config, logger *logrus.Logger) *Reconciler {
	if config.DebounceWindow <= 0 {
		config.DebounceWindow = DefaultConfig().DebounceWindow
	}
	if config.CommitTimeout <= 0 {
		config.CommitTimeout = DefaultConfig().CommitTimeout
	}
	return &Reconciler{
		server:     server,
		ownerID:    ownerID,
		config:     config,
		logger:     logger,
		items:      make(map[int64]Item),
		pending:    make(map[int64]*pendingCommit),
		debouncers: make(map[int64]func(func())),
	}
}

// Refresh replaces the local snapshot with the server's full item list
func (r *Reconciler) Refresh(ctx context.Context) error {
	items, err := r.server.ListItems(ctx, r.ownerID)
	if err != nil {
		return err
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	r.items = make(map[int64]Item, len(items))
	for _, item := range items {
		r.items[item.ID] = item
	}
	// A full refresh reasserts server state; in-flight commits still fire
	// but their rollback target is now the refreshed value.
	for id, p := range r.pending {
		if item, ok := r.items[id]; ok {
			p.prior = item.Read
			// Keep the optimistic value visible until the commit lands.
			item.Read = p.desired
			r.items[id] = item
		} else {
			p.deleted = true
		}
	}
	return nil
}

// Items returns the local snapshot ordered by ID
func (r *Reconciler) Items() []Item {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]Item, 0, len(r.items))
	for _, item := range r.items {
		out = append(out, item)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

// Item returns one item from the local snapshot
func (r *Reconciler) Item(itemID int64) (Item, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	item, ok := r.items[itemID]
	return item, ok
}

// SetRead applies a read-state change optimistically and schedules a
// debounced commit. Repeated calls within the debounce window coalesce
// into one commit of the final desired state.
func (r *Reconciler) SetRead(itemID int64, read bool) {
	r.mu.Lock()
	item, ok := r.items[itemID]
	if !ok {
		r.mu.Unlock()
		return
	}

	p, inFlight := r.pending[itemID]
	if !inFlight {
		p = &pendingCommit{prior: item.Read}
		r.pending[itemID] = p
	}
	p.desired = read

	item.Read = read
	r.items[itemID] = item

	deb, ok := r.debouncers[itemID]
	if !ok {
		deb = debounce.New(r.config.DebounceWindow)
		r.debouncers[itemID] = deb
	}
	r.mu.Unlock()

	deb(func() { r.commit(itemID) })
}

// ToggleRead flips the item's current read state
func (r *Reconciler) ToggleRead(itemID int64) {
	r.mu.Lock()
	item, ok := r.items[itemID]
	r.mu.Unlock()
	if !ok {
		return
	}
	r.SetRead(itemID, !item.Read)
}

// Delete removes an item locally and cancels its pending commit
func (r *Reconciler) Delete(itemID int64) {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.items, itemID)
	if p, ok := r.pending[itemID]; ok {
		p.deleted = true
	}
}

func (r *Reconciler) commit(itemID int64) {
	r.mu.Lock()
	p, ok := r.pending[itemID]
	if !ok {
		r.mu.Unlock()
		return
	}
	if p.deleted {
		delete(r.pending, itemID)
		r.mu.Unlock()
		return
	}
	if p.desired == p.prior {
		// The burst of toggles ended where it started.
		delete(r.pending, itemID)
		r.mu.Unlock()
		return
	}
	desired, prior := p.desired, p.prior
	r.mu.Unlock()

	ctx, cancel := context.WithTimeout(context.Background(), r.config.CommitTimeout)
	defer cancel()
	err := r.server.SetReadStatus(ctx, itemID, desired)

	r.mu.Lock()
	// A newer toggle may have re-armed the debouncer while we were on the
	// wire; only settle the pending record if it still matches what we sent.
	if cur, ok := r.pending[itemID]; ok && cur.desired == desired {
		if err != nil {
			if item, itemOK := r.items[itemID]; itemOK && !cur.deleted {
				item.Read = prior
				r.items[itemID] = item
			}
			delete(r.pending, itemID)
		} else {
			delete(r.pending, itemID)
		}
	}
	r.mu.Unlock()

	if err != nil {
		r.logger.WithFields(logrus.Fields{
			"item_id": itemID,
			"read":    desired,
		}).WithError(err).Warn("Read-status commit failed, rolled back")
		if r.OnError != nil {
			r.OnError(itemID, err)
		}
	}
}

// ApplyEvent reacts to one stream event. Entity updates invalidate and
// refetch that item only; resync markers force a full refresh because an
// unknown number of events were dropped.
func (r *Reconciler) ApplyEvent(ctx context.Context, event types.UpdateEvent) error {
	if event.Resync {
		r.logger.Info("Resync marker received, performing full refresh")
		return r.Refresh(ctx)
	}
	if event.Kind != types.KindItem {
		return nil
	}
	return r.refetchItem(ctx, event.EntityID)
}

// OnReconnect restores consistency after a dropped stream connection
func (r *Reconciler) OnReconnect(ctx context.Context) error {
	return r.Refresh(ctx)
}

func (r *Reconciler) refetchItem(ctx context.Context, itemID int64) error {
	item, err := r.server.GetItem(ctx, itemID)
	if errors.Is(err, ErrItemGone) {
		r.Delete(itemID)
		return nil
	}
	if err != nil {
		return err
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	if p, ok := r.pending[itemID]; ok && !p.deleted {
		// Keep the optimistic read state on top of the fresh server copy.
		p.prior = item.Read
		item.Read = p.desired
	}
	r.items[itemID] = item
	return nil
}
