/*
Package pipeline implements the asynchronous processing core of the briefing
backend: the per-entity job state machines, the status store that is the
single source of truth for processing state, the exclusive per-entity lease,
the bounded-attempt retry envelope, and the scheduler that drives stage
workers through the pipeline.

All job mutation goes through the status store's compare-and-set entry
point; workers never write job fields directly.
*/
package pipeline

import (
	"sync"
	"time"

	"github.com/Nexora-Open-Source/briefing-backend/monitoring"
	"github.com/Nexora-Open-Source/briefing-backend/types"
	"github.com/sirupsen/logrus"
)

// Publisher receives one event per successful status transition. Publish is
// invoked synchronously before the store call returns, so a client can never
// observe a state via query before the matching event was offered to
// subscribers.
type Publisher interface {
	Publish(ownerID int64, event types.UpdateEvent)
}

// StatusStore is the single authority for processing job state. It is safe
// for concurrent use; every mutation is serialized through its lock and
// validated against the job's declared state machine.
type StatusStore struct {
	mu        sync.RWMutex
	jobs      map[int64]*types.Job
	publisher Publisher
	logger    *logrus.Logger
}

// NewStatusStore creates a status store publishing transitions to publisher
func NewStatusStore(publisher Publisher, logger *logrus.Logger) *StatusStore {
	return &StatusStore{
		jobs:      make(map[int64]*types.Job),
		publisher: publisher,
		logger:    logger,
	}
}

// Create registers a new job for an entity in its admission state and
// publishes the created event. It fails if a job already exists.
func (s *StatusStore) Create(entityID, ownerID int64, kind types.JobKind) (types.Job, error) {
	now := time.Now()
	job := &types.Job{
		EntityID:  entityID,
		OwnerID:   ownerID,
		Kind:      kind,
		Status:    InitialStatus(kind),
		CreatedAt: now,
		UpdatedAt: now,
	}

	s.mu.Lock()
	if _, exists := s.jobs[entityID]; exists {
		s.mu.Unlock()
		return types.Job{}, ErrAlreadyExists
	}
	s.jobs[entityID] = job
	snapshot := *job
	s.mu.Unlock()

	s.logger.WithFields(logrus.Fields{
		"entity_id": entityID,
		"owner_id":  ownerID,
		"kind":      kind,
	}).Info("Processing job created")

	monitoring.RecordTransition(string(kind), string(snapshot.Status))
	s.publish(snapshot)
	return snapshot, nil
}

// CompareAndTransition moves a job forward from expected to next, or into
// failed, enforcing the declared state machine. It returns ErrConflict when
// the job is no longer in expected, in which case the caller must re-read
// and decide whether to abandon its attempt. resultRef may be set only when
// next is the completed state. On success the attempt counter and last error
// are cleared for the new stage and the transition event is published before
// the call returns.
func (s *StatusStore) CompareAndTransition(entityID int64, expected, next types.JobStatus, resultRef string) error {
	if resultRef != "" && next != types.StatusCompleted {
		return ErrInvalidTransition
	}

	s.mu.Lock()
	job, exists := s.jobs[entityID]
	if !exists {
		s.mu.Unlock()
		return ErrNotFound
	}
	if job.Status != expected {
		kind := job.Kind
		s.mu.Unlock()
		monitoring.RecordTransitionConflict(string(kind))
		return ErrConflict
	}
	if !CanTransition(job.Kind, expected, next) {
		s.mu.Unlock()
		return ErrInvalidTransition
	}

	job.Status = next
	job.UpdatedAt = time.Now()
	job.LastError = ""
	job.AttemptCount = 0
	job.ResultRef = resultRef
	snapshot := *job
	s.mu.Unlock()

	monitoring.RecordTransition(string(snapshot.Kind), string(next))
	s.publish(snapshot)
	return nil
}

// Fail moves a job from expected into the terminal failed state with the
// given error message, under the same compare-and-set discipline as
// CompareAndTransition.
func (s *StatusStore) Fail(entityID int64, expected types.JobStatus, errMsg string) error {
	s.mu.Lock()
	job, exists := s.jobs[entityID]
	if !exists {
		s.mu.Unlock()
		return ErrNotFound
	}
	if job.Status != expected {
		kind := job.Kind
		s.mu.Unlock()
		monitoring.RecordTransitionConflict(string(kind))
		return ErrConflict
	}
	if !CanTransition(job.Kind, expected, types.StatusFailed) {
		s.mu.Unlock()
		return ErrInvalidTransition
	}

	job.Status = types.StatusFailed
	job.LastError = errMsg
	job.UpdatedAt = time.Now()
	snapshot := *job
	s.mu.Unlock()

	s.logger.WithFields(logrus.Fields{
		"entity_id": entityID,
		"kind":      snapshot.Kind,
		"error":     errMsg,
	}).Warn("Processing job failed")

	monitoring.RecordTransition(string(snapshot.Kind), string(types.StatusFailed))
	s.publish(snapshot)
	return nil
}

// BeginAttempt increments the job's attempt counter for its current stage
// and returns the new count. It does not transition status and publishes no
// event; the job stays in its current stage during retries and backoff.
func (s *StatusStore) BeginAttempt(entityID int64) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	job, exists := s.jobs[entityID]
	if !exists {
		return 0, ErrNotFound
	}
	job.AttemptCount++
	job.UpdatedAt = time.Now()
	return job.AttemptCount, nil
}

// RecordRetry records the failure that caused a retry without leaving the
// current stage. The error is cleared on the next successful transition.
func (s *StatusStore) RecordRetry(entityID int64, err error) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	job, exists := s.jobs[entityID]
	if !exists {
		return ErrNotFound
	}
	job.LastError = err.Error()
	job.UpdatedAt = time.Now()
	return nil
}

// Get returns a snapshot of the job for an entity
func (s *StatusStore) Get(entityID int64) (types.Job, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	job, exists := s.jobs[entityID]
	if !exists {
		return types.Job{}, ErrNotFound
	}
	return *job, nil
}

// JobsByOwner returns snapshots of all jobs owned by a user, optionally
// filtered by kind (empty kind matches all).
func (s *StatusStore) JobsByOwner(ownerID int64, kind types.JobKind) []types.Job {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var jobs []types.Job
	for _, job := range s.jobs {
		if job.OwnerID != ownerID {
			continue
		}
		if kind != "" && job.Kind != kind {
			continue
		}
		jobs = append(jobs, *job)
	}
	return jobs
}

// Delete discards the job for an entity. Invoked by the CRUD layer when the
// owning entity is deleted; in-flight jobs are never deleted by the pipeline
// itself.
func (s *StatusStore) Delete(entityID int64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.jobs, entityID)
}

func (s *StatusStore) publish(job types.Job) {
	if s.publisher == nil {
		return
	}
	s.publisher.Publish(job.OwnerID, types.UpdateEvent{
		EntityID:   job.EntityID,
		OwnerID:    job.OwnerID,
		Kind:       job.Kind,
		Status:     job.Status,
		UpdateType: UpdateTypeFor(job.Kind, job.Status),
		ResultRef:  job.ResultRef,
		UpdatedAt:  job.UpdatedAt,
	})
}
