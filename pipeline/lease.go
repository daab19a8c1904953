package pipeline

import (
	"sync"
	"time"

	"github.com/google/uuid"
)

type leaseEntry struct {
	token   string
	expires time.Time
}

// Leaser grants exclusive, short-term ownership of an entity to one worker
// invocation at a time. Acquisition fails fast instead of queuing; a hard
// TTL lets a lease be reclaimed if the holding worker dies without
// reporting, so a crashed worker cannot permanently wedge a job.
type Leaser struct {
	mu     sync.Mutex
	leases map[int64]leaseEntry
	ttl    time.Duration
}

// NewLeaser creates a leaser with the given hard expiry per lease
func NewLeaser(ttl time.Duration) *Leaser {
	if ttl <= 0 {
		ttl = 5 * time.Minute
	}
	return &Leaser{
		leases: make(map[int64]leaseEntry),
		ttl:    ttl,
	}
}

// Acquire takes the lease for an entity. It returns ErrLeaseHeld without
// blocking if another worker holds an unexpired lease. The returned release
// function is idempotent and only releases the caller's own lease, so a
// release racing with a TTL reclaim cannot drop a successor's lease.
func (l *Leaser) Acquire(entityID int64) (func(), error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	if entry, held := l.leases[entityID]; held && time.Now().Before(entry.expires) {
		return nil, ErrLeaseHeld
	}

	token := uuid.NewString()
	l.leases[entityID] = leaseEntry{
		token:   token,
		expires: time.Now().Add(l.ttl),
	}

	release := func() {
		l.mu.Lock()
		defer l.mu.Unlock()
		if entry, held := l.leases[entityID]; held && entry.token == token {
			delete(l.leases, entityID)
		}
	}
	return release, nil
}

// Held reports whether an unexpired lease exists for the entity
func (l *Leaser) Held(entityID int64) bool {
	l.mu.Lock()
	defer l.mu.Unlock()

	entry, held := l.leases[entityID]
	return held && time.Now().Before(entry.expires)
}
