/*
Package handlers provides HTTP handlers with dependency injection support.

This package defines the Handler struct that contains all service dependencies,
eliminating global variables and enabling better testability and separation of concerns.
*/
package handlers

import (
	"context"
	"time"

	"github.com/Nexora-Open-Source/briefing-backend/digest"
	"github.com/Nexora-Open-Source/briefing-backend/pipeline"
	"github.com/Nexora-Open-Source/briefing-backend/stream"
	"github.com/Nexora-Open-Source/briefing-backend/types"
	"github.com/Nexora-Open-Source/briefing-backend/utils"
	"github.com/sirupsen/logrus"
)

// StatusStoreInterface defines the job record operations handlers need
type StatusStoreInterface interface {
	Create(entityID, ownerID int64, kind types.JobKind) (types.Job, error)
	Get(entityID int64) (types.Job, error)
	JobsByOwner(ownerID int64, kind types.JobKind) []types.Job
	Delete(entityID int64)
}

// SchedulerInterface defines job submission and payload lifecycle
type SchedulerInterface interface {
	Submit(entityID int64, payload *pipeline.Payload) error
	DiscardPayload(entityID int64)
}

// BroadcasterInterface defines stream subscription management
type BroadcasterInterface interface {
	Subscribe(ownerID int64) *stream.Subscription
}

// CacheManagerInterface defines snapshot cache operations
type CacheManagerInterface interface {
	GetJob(kind types.JobKind, entityID int64) (types.Job, bool)
	SetJob(job types.Job) error
	InvalidateJob(kind types.JobKind, entityID int64) error
}

// ArchiveReaderInterface reads archived pipeline output for completed items
type ArchiveReaderInterface interface {
	GetArchivedItem(ctx context.Context, entityID int64) (*utils.ArchivedItem, error)
}

// DigestServiceInterface defines digest triggering
type DigestServiceInterface interface {
	TriggerUser(ctx context.Context, userID int64) (digest.Result, error)
	TriggerAll(ctx context.Context) ([]digest.Result, error)
}

// Handler contains all service dependencies for HTTP handlers
type Handler struct {
	Store           StatusStoreInterface
	Scheduler       SchedulerInterface
	Broadcaster     BroadcasterInterface
	CacheManager    CacheManagerInterface
	Archive         ArchiveReaderInterface
	Digest          DigestServiceInterface
	IDs             *utils.IDGenerator
	Logger          *logrus.Logger
	StreamHeartbeat time.Duration
}

// NewHandler creates a new handler instance with injected dependencies.
// cacheManager may be nil, in which case status reads skip the cache.
func NewHandler(
	store StatusStoreInterface,
	scheduler SchedulerInterface,
	broadcaster BroadcasterInterface,
	cacheManager CacheManagerInterface,
	digestService DigestServiceInterface,
	ids *utils.IDGenerator,
	logger *logrus.Logger,
) *Handler {
	return &Handler{
		Store:           store,
		Scheduler:       scheduler,
		Broadcaster:     broadcaster,
		CacheManager:    cacheManager,
		Digest:          digestService,
		IDs:             ids,
		Logger:          logger,
		StreamHeartbeat: 30 * time.Second,
	}
}

// getJob reads a job snapshot through the cache
func (h *Handler) getJob(kind types.JobKind, entityID int64) (types.Job, error) {
	if h.CacheManager != nil {
		if job, found := h.CacheManager.GetJob(kind, entityID); found {
			return job, nil
		}
	}

	job, err := h.Store.Get(entityID)
	if err != nil {
		return types.Job{}, err
	}
	if job.Kind != kind {
		return types.Job{}, pipeline.ErrNotFound
	}
	if h.CacheManager != nil {
		_ = h.CacheManager.SetJob(job)
	}
	return job, nil
}
