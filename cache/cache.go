/*
Package cache provides caching for job status snapshots.

Status polling is far more frequent than status transitions, so snapshots
are cached in memory and invalidated whenever the pipeline publishes a
transition for the entity.
*/
package cache

import (
	"fmt"
	"sync"
	"time"

	"github.com/Nexora-Open-Source/briefing-backend/types"
	"github.com/sirupsen/logrus"
)

// CacheItem represents a cached job snapshot with expiration
type CacheItem struct {
	Job       types.Job `json:"job"`
	ExpiresAt time.Time `json:"expires_at"`
}

// IsExpired checks if the cache item has expired
func (c *CacheItem) IsExpired() bool {
	return time.Now().After(c.ExpiresAt)
}

// Cache interface defines caching operations
type Cache interface {
	Get(key string) (types.Job, bool)
	Set(key string, job types.Job, ttl time.Duration) error
	Delete(key string) error
	Clear() error
}

// InMemoryCache implements an in-memory cache with TTL support
type InMemoryCache struct {
	items map[string]*CacheItem
	mutex sync.RWMutex
	ttl   time.Duration
}

// NewInMemoryCache creates a new in-memory cache
func NewInMemoryCache(defaultTTL time.Duration) *InMemoryCache {
	cache := &InMemoryCache{
		items: make(map[string]*CacheItem),
		ttl:   defaultTTL,
	}

	// Start cleanup goroutine
	go cache.startCleanup()

	return cache
}

// Get retrieves a job snapshot from cache
func (c *InMemoryCache) Get(key string) (types.Job, bool) {
	c.mutex.RLock()
	defer c.mutex.RUnlock()

	item, exists := c.items[key]
	if !exists || item.IsExpired() {
		return types.Job{}, false
	}

	return item.Job, true
}

// Set stores a job snapshot in cache
func (c *InMemoryCache) Set(key string, job types.Job, ttl time.Duration) error {
	if ttl == 0 {
		ttl = c.ttl
	}

	c.mutex.Lock()
	defer c.mutex.Unlock()

	c.items[key] = &CacheItem{
		Job:       job,
		ExpiresAt: time.Now().Add(ttl),
	}

	return nil
}

// Delete removes an item from cache
func (c *InMemoryCache) Delete(key string) error {
	c.mutex.Lock()
	defer c.mutex.Unlock()

	delete(c.items, key)
	return nil
}

// Clear removes all items from cache
func (c *InMemoryCache) Clear() error {
	c.mutex.Lock()
	defer c.mutex.Unlock()

	c.items = make(map[string]*CacheItem)
	return nil
}

// startCleanup periodically removes expired items
func (c *InMemoryCache) startCleanup() {
	ticker := time.NewTicker(5 * time.Minute)
	defer ticker.Stop()

	for range ticker.C {
		c.cleanup()
	}
}

// cleanup removes expired items
func (c *InMemoryCache) cleanup() {
	c.mutex.Lock()
	defer c.mutex.Unlock()

	for key, item := range c.items {
		if item.IsExpired() {
			delete(c.items, key)
		}
	}
}

// Manager manages status snapshot caching. Terminal snapshots get a longer
// TTL because they can only change through deletion.
//
// Invalidations record the transition time they correspond to, and SetJob
// refuses snapshots older than the last recorded invalidation. A status
// query that read the store just before a transition can therefore never
// re-cache the pre-transition state after the invalidation ran.
type Manager struct {
	cache       Cache
	logger      *logrus.Logger
	activeTTL   time.Duration
	terminalTTL time.Duration

	staleMu     sync.Mutex
	staleBefore map[string]time.Time
}

// NewManager creates a new cache manager
func NewManager(cache Cache, logger *logrus.Logger, activeTTL, terminalTTL time.Duration) *Manager {
	return &Manager{
		cache:       cache,
		logger:      logger,
		activeTTL:   activeTTL,
		terminalTTL: terminalTTL,
		staleBefore: make(map[string]time.Time),
	}
}

func jobKey(kind types.JobKind, entityID int64) string {
	return fmt.Sprintf("job:%s:%d", kind, entityID)
}

// GetJob retrieves a cached job snapshot
func (m *Manager) GetJob(kind types.JobKind, entityID int64) (types.Job, bool) {
	key := jobKey(kind, entityID)
	job, found := m.cache.Get(key)

	if found {
		m.logger.WithFields(logrus.Fields{
			"entity_id": entityID,
			"kind":      kind,
			"status":    job.Status,
		}).Debug("Cache hit for job snapshot")
	} else {
		m.logger.WithFields(logrus.Fields{
			"entity_id": entityID,
			"kind":      kind,
		}).Debug("Cache miss for job snapshot")
	}

	return job, found
}

// SetJob caches a job snapshot with status-dependent TTL. Snapshots read
// before the entity's last invalidation are dropped instead of cached.
func (m *Manager) SetJob(job types.Job) error {
	ttl := m.activeTTL
	if job.IsTerminal() {
		ttl = m.terminalTTL
	}

	key := jobKey(job.Kind, job.EntityID)
	m.staleMu.Lock()
	if cutoff, ok := m.staleBefore[key]; ok {
		if job.UpdatedAt.Before(cutoff) {
			m.staleMu.Unlock()
			m.logger.WithFields(logrus.Fields{
				"entity_id": job.EntityID,
				"kind":      job.Kind,
				"status":    job.Status,
			}).Debug("Dropping stale job snapshot")
			return nil
		}
		delete(m.staleBefore, key)
	}
	m.staleMu.Unlock()

	err := m.cache.Set(key, job, ttl)
	if err != nil {
		m.logger.WithFields(logrus.Fields{
			"entity_id": job.EntityID,
			"kind":      job.Kind,
			"error":     err.Error(),
		}).Error("Failed to cache job snapshot")
		return err
	}

	return nil
}

// InvalidateJob drops a cached snapshot, for example when the entity is
// deleted. Any snapshot read before this call is rejected by SetJob.
func (m *Manager) InvalidateJob(kind types.JobKind, entityID int64) error {
	return m.InvalidateJobAt(kind, entityID, time.Now())
}

// InvalidateJobAt drops a cached snapshot after a status transition that
// happened at updatedAt. Snapshots read before the transition can no longer
// be cached; the snapshot of the new state still can.
func (m *Manager) InvalidateJobAt(kind types.JobKind, entityID int64, updatedAt time.Time) error {
	key := jobKey(kind, entityID)

	m.staleMu.Lock()
	if existing, ok := m.staleBefore[key]; !ok || updatedAt.After(existing) {
		m.staleBefore[key] = updatedAt
	}
	// Tombstones for deleted entities never get cleared by SetJob; prune
	// anything old enough that no in-flight reader can still hold it.
	now := time.Now()
	for k, t := range m.staleBefore {
		if now.Sub(t) > m.terminalTTL {
			delete(m.staleBefore, k)
		}
	}
	m.staleMu.Unlock()

	err := m.cache.Delete(key)
	if err != nil {
		m.logger.WithFields(logrus.Fields{
			"entity_id": entityID,
			"kind":      kind,
			"error":     err.Error(),
		}).Error("Failed to invalidate job snapshot")
		return err
	}

	m.logger.WithFields(logrus.Fields{
		"entity_id": entityID,
		"kind":      kind,
	}).Debug("Invalidated job snapshot")
	return nil
}

// ClearAll clears all cached data
func (m *Manager) ClearAll() error {
	err := m.cache.Clear()
	if err != nil {
		m.logger.WithError(err).Error("Failed to clear cache")
		return err
	}

	m.logger.Info("Cache cleared successfully")
	return nil
}
