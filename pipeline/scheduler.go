package pipeline

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/Nexora-Open-Source/briefing-backend/monitoring"
	"github.com/Nexora-Open-Source/briefing-backend/types"
	"github.com/sirupsen/logrus"
)

// SchedulerConfig bounds the scheduler's parallelism and queue behavior
type SchedulerConfig struct {
	Workers             int
	QueueSize           int
	BackpressureEnabled bool
	RejectThreshold     float64
	WaitTimeout         time.Duration
	Retry               RetryPolicy
}

// DefaultSchedulerConfig returns the scheduler defaults
func DefaultSchedulerConfig() SchedulerConfig {
	return SchedulerConfig{
		Workers:             3,
		QueueSize:           50,
		BackpressureEnabled: true,
		RejectThreshold:     0.8,
		WaitTimeout:         5 * time.Second,
		Retry:               DefaultRetryPolicy(),
	}
}

// Scheduler drives processing jobs through their stage workers. Each
// enqueued entity is picked up by one of a bounded pool of workers, which
// walks the job through its remaining stages, taking the entity lease for
// the duration of each stage execution.
type Scheduler struct {
	store  *StatusStore
	leaser *Leaser
	config SchedulerConfig
	logger *logrus.Logger

	registry map[types.JobKind]map[types.JobStatus]StageWorker

	payloadMu sync.RWMutex
	payloads  map[int64]*Payload

	jobs   chan int64
	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup
}

// NewScheduler creates a scheduler and starts its worker pool
func NewScheduler(store *StatusStore, leaser *Leaser, config SchedulerConfig, logger *logrus.Logger) *Scheduler {
	if config.Workers <= 0 {
		config.Workers = 3
	}
	if config.QueueSize <= 0 {
		config.QueueSize = 50
	}
	if config.WaitTimeout <= 0 {
		config.WaitTimeout = 5 * time.Second
	}
	if config.Retry.MaxAttempts <= 0 {
		config.Retry = DefaultRetryPolicy()
	}

	ctx, cancel := context.WithCancel(context.Background())
	s := &Scheduler{
		store:    store,
		leaser:   leaser,
		config:   config,
		logger:   logger,
		registry: make(map[types.JobKind]map[types.JobStatus]StageWorker),
		payloads: make(map[int64]*Payload),
		jobs:     make(chan int64, config.QueueSize),
		ctx:      ctx,
		cancel:   cancel,
	}

	monitoring.UpdateActiveWorkers(config.Workers)

	for i := 0; i < config.Workers; i++ {
		s.wg.Add(1)
		go s.worker(i)
	}

	return s
}

// Register installs a stage worker for a job kind. Workers must be
// registered before jobs of that kind are submitted.
func (s *Scheduler) Register(kind types.JobKind, worker StageWorker) {
	stages, ok := s.registry[kind]
	if !ok {
		stages = make(map[types.JobStatus]StageWorker)
		s.registry[kind] = stages
	}
	stages[worker.Stage()] = worker
}

// Submit enqueues an entity for pipeline processing with backpressure. The
// payload is retained for the job's lifetime and read by its stage workers.
func (s *Scheduler) Submit(entityID int64, payload *Payload) error {
	s.payloadMu.Lock()
	s.payloads[entityID] = payload
	s.payloadMu.Unlock()

	if s.config.BackpressureEnabled {
		currentLoad := float64(len(s.jobs)) / float64(s.config.QueueSize)
		if currentLoad >= s.config.RejectThreshold {
			s.logger.WithFields(logrus.Fields{
				"entity_id":        entityID,
				"current_load":     fmt.Sprintf("%.2f", currentLoad),
				"reject_threshold": fmt.Sprintf("%.2f", s.config.RejectThreshold),
				"queue_size":       len(s.jobs),
			}).Warn("Rejecting job due to backpressure - queue near capacity")
			s.DiscardPayload(entityID)
			return fmt.Errorf("pipeline queue under backpressure (load: %.2f%%)", currentLoad*100)
		}
	}

	select {
	case s.jobs <- entityID:
		monitoring.UpdateQueueSize(len(s.jobs))
		s.logger.WithFields(logrus.Fields{
			"entity_id":  entityID,
			"queue_load": fmt.Sprintf("%.2f", float64(len(s.jobs))/float64(s.config.QueueSize)),
		}).Info("Job submitted for pipeline processing")
		return nil
	case <-time.After(s.config.WaitTimeout):
		s.logger.WithFields(logrus.Fields{
			"entity_id":    entityID,
			"wait_timeout": s.config.WaitTimeout.String(),
			"queue_size":   len(s.jobs),
		}).Warn("Job submission timed out due to queue pressure")
		s.DiscardPayload(entityID)
		return fmt.Errorf("pipeline queue timeout after %v", s.config.WaitTimeout)
	}
}

// QueueLoad reports the queued fraction of the scheduler's capacity
func (s *Scheduler) QueueLoad() float64 {
	return float64(len(s.jobs)) / float64(s.config.QueueSize)
}

// Payload returns the entity payload held for a job, if any
func (s *Scheduler) Payload(entityID int64) (*Payload, bool) {
	s.payloadMu.RLock()
	defer s.payloadMu.RUnlock()
	p, ok := s.payloads[entityID]
	return p, ok
}

// DiscardPayload drops the payload for an entity. Invoked alongside
// StatusStore.Delete when the owning entity is removed.
func (s *Scheduler) DiscardPayload(entityID int64) {
	s.payloadMu.Lock()
	defer s.payloadMu.Unlock()
	delete(s.payloads, entityID)
}

// Stop gracefully shuts down the scheduler. In-flight stage executions are
// interrupted via context; jobs stay in their current stage and can be
// resubmitted on restart.
func (s *Scheduler) Stop() {
	s.logger.Info("Stopping pipeline scheduler")
	s.cancel()
	s.wg.Wait()
	s.logger.Info("Pipeline scheduler stopped")
}

func (s *Scheduler) worker(workerID int) {
	defer s.wg.Done()

	s.logger.WithField("worker_id", workerID).Info("Pipeline worker started")

	for {
		select {
		case entityID := <-s.jobs:
			monitoring.UpdateQueueSize(len(s.jobs))
			s.runJob(workerID, entityID)
		case <-s.ctx.Done():
			s.logger.WithField("worker_id", workerID).Info("Pipeline worker stopping")
			return
		}
	}
}

// runJob walks one job through its remaining stages until it reaches a
// terminal state, a conflict, or shutdown.
func (s *Scheduler) runJob(workerID int, entityID int64) {
	for {
		select {
		case <-s.ctx.Done():
			return
		default:
		}

		job, err := s.store.Get(entityID)
		if err != nil {
			s.logger.WithField("entity_id", entityID).Warn("Job vanished before processing")
			return
		}
		if job.IsTerminal() {
			s.DiscardPayload(entityID)
			return
		}

		// Admission move into the first in-progress stage.
		if job.Status == InitialStatus(job.Kind) {
			next, _ := NextStage(job.Kind, job.Status)
			if err := s.store.CompareAndTransition(entityID, job.Status, next, ""); err != nil {
				if errors.Is(err, ErrConflict) {
					continue
				}
				return
			}
			continue
		}

		worker := s.workerFor(job.Kind, job.Status)
		if worker == nil {
			s.logger.WithFields(logrus.Fields{
				"entity_id": entityID,
				"kind":      job.Kind,
				"status":    job.Status,
			}).Error("No stage worker registered for job status")
			return
		}

		release, err := s.leaser.Acquire(entityID)
		if err != nil {
			// Another worker is already processing this entity.
			s.logger.WithFields(logrus.Fields{
				"worker_id": workerID,
				"entity_id": entityID,
			}).Info("Job already in progress, skipping")
			return
		}

		proceed := s.executeStage(workerID, job, worker)
		release()
		if !proceed {
			if cur, err := s.store.Get(entityID); err == nil && cur.IsTerminal() {
				s.DiscardPayload(entityID)
			}
			return
		}
	}
}

// executeStage runs one stage under the retry envelope and commits the
// outcome through compare-and-set. It reports whether the caller should
// continue walking the pipeline.
func (s *Scheduler) executeStage(workerID int, job types.Job, worker StageWorker) bool {
	payload, _ := s.Payload(job.EntityID)

	var out Outcome
	op := func(ctx context.Context) error {
		attempt, err := s.store.BeginAttempt(job.EntityID)
		if err != nil {
			return err
		}

		start := time.Now()
		out = worker.Execute(ctx, job, payload)
		duration := time.Since(start)

		switch out.kind {
		case outcomeAdvance:
			monitoring.RecordStageExecution(string(job.Kind), string(job.Status), "advance", duration.Seconds())
			return nil
		case outcomeRetry:
			monitoring.RecordStageExecution(string(job.Kind), string(job.Status), "retry", duration.Seconds())
			s.logger.WithFields(logrus.Fields{
				"worker_id": workerID,
				"entity_id": job.EntityID,
				"stage":     job.Status,
				"attempt":   attempt,
				"error":     out.err.Error(),
			}).Warn("Stage execution failed, will retry")
			return Transient(out.err)
		default:
			monitoring.RecordStageExecution(string(job.Kind), string(job.Status), "fail", duration.Seconds())
			return out.err
		}
	}

	err := s.config.Retry.Execute(s.ctx, op, func(attempt int, retryErr error) {
		monitoring.RecordStageRetry(string(job.Kind), string(job.Status))
		if recordErr := s.store.RecordRetry(job.EntityID, retryErr); recordErr != nil {
			s.logger.WithField("entity_id", job.EntityID).WithError(recordErr).Warn("Failed to record retry")
		}
	})

	if err != nil {
		if errors.Is(err, context.Canceled) {
			// Shutdown mid-stage; leave the job where it is.
			return false
		}
		if failErr := s.store.Fail(job.EntityID, job.Status, err.Error()); failErr != nil {
			s.logger.WithFields(logrus.Fields{
				"entity_id": job.EntityID,
				"stage":     job.Status,
			}).WithError(failErr).Warn("Could not fail job, already moved by another writer")
		}
		return false
	}

	if err := s.store.CompareAndTransition(job.EntityID, job.Status, out.next, out.resultRef); err != nil {
		// Another writer moved the job while this stage ran; re-read rather
		// than retrying the commit blindly.
		s.logger.WithFields(logrus.Fields{
			"entity_id": job.EntityID,
			"expected":  job.Status,
			"next":      out.next,
		}).WithError(err).Warn("Stage outcome rejected, abandoning attempt")
		return errors.Is(err, ErrConflict)
	}

	s.logger.WithFields(logrus.Fields{
		"worker_id": workerID,
		"entity_id": job.EntityID,
		"kind":      job.Kind,
		"from":      job.Status,
		"to":        out.next,
	}).Info("Stage completed")
	return true
}

func (s *Scheduler) workerFor(kind types.JobKind, status types.JobStatus) StageWorker {
	stages, ok := s.registry[kind]
	if !ok {
		return nil
	}
	return stages[status]
}
