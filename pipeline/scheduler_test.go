package pipeline

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/Nexora-Open-Source/briefing-backend/types"
	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// stubWorker serves one stage with a configurable outcome
type stubWorker struct {
	stage types.JobStatus
	fn    func(ctx context.Context, job types.Job, payload *Payload) Outcome
}

func (w *stubWorker) Stage() types.JobStatus {
	return w.stage
}

func (w *stubWorker) Execute(ctx context.Context, job types.Job, payload *Payload) Outcome {
	return w.fn(ctx, job, payload)
}

func advanceWorker(stage, next types.JobStatus, resultRef string) *stubWorker {
	return &stubWorker{stage: stage, fn: func(ctx context.Context, job types.Job, payload *Payload) Outcome {
		return Advance(next, resultRef)
	}}
}

func testSchedulerConfig() SchedulerConfig {
	return SchedulerConfig{
		Workers:   2,
		QueueSize: 10,
		Retry:     RetryPolicy{MaxAttempts: 3, Initial: time.Millisecond, Max: 2 * time.Millisecond},
	}
}

func newTestScheduler(t *testing.T, config SchedulerConfig) (*Scheduler, *StatusStore, *recordingPublisher) {
	t.Helper()
	logger := logrus.New()
	logger.SetLevel(logrus.ErrorLevel)
	pub := &recordingPublisher{}
	store := NewStatusStore(pub, logger)
	scheduler := NewScheduler(store, NewLeaser(time.Minute), config, logger)
	t.Cleanup(scheduler.Stop)
	return scheduler, store, pub
}

func waitForTerminal(t *testing.T, store *StatusStore, entityID int64) types.Job {
	t.Helper()
	require.Eventually(t, func() bool {
		job, err := store.Get(entityID)
		return err == nil && job.IsTerminal()
	}, 5*time.Second, 5*time.Millisecond)

	job, err := store.Get(entityID)
	require.NoError(t, err)
	return job
}

func TestSchedulerHappyPath(t *testing.T) {
	scheduler, store, pub := newTestScheduler(t, testSchedulerConfig())
	scheduler.Register(types.KindItem, advanceWorker(types.StatusFetching, types.StatusExtracting, ""))
	scheduler.Register(types.KindItem, advanceWorker(types.StatusExtracting, types.StatusSummarizing, ""))
	scheduler.Register(types.KindItem, advanceWorker(types.StatusSummarizing, types.StatusCompleted, "ref-1"))

	_, err := store.Create(1, 10, types.KindItem)
	require.NoError(t, err)
	require.NoError(t, scheduler.Submit(1, &Payload{Item: &types.ItemPayload{URL: "https://example.com/a"}}))

	job := waitForTerminal(t, store, 1)
	assert.Equal(t, types.StatusCompleted, job.Status)
	assert.Equal(t, "ref-1", job.ResultRef)

	// One event per transition, in order, with per-status update types.
	events := pub.all()
	require.Len(t, events, 5)
	wantStatuses := []types.JobStatus{
		types.StatusCreated,
		types.StatusFetching,
		types.StatusExtracting,
		types.StatusSummarizing,
		types.StatusCompleted,
	}
	wantTypes := []types.UpdateType{
		types.UpdateCreated,
		types.UpdateProcessing,
		types.UpdateProcessing,
		types.UpdateProcessing,
		types.UpdateCompleted,
	}
	for i, event := range events {
		assert.Equal(t, wantStatuses[i], event.Status)
		assert.Equal(t, wantTypes[i], event.UpdateType)
	}
}

func TestSchedulerRetriesTransientThenAdvances(t *testing.T) {
	scheduler, store, _ := newTestScheduler(t, testSchedulerConfig())

	var extractCalls atomic.Int32
	scheduler.Register(types.KindItem, advanceWorker(types.StatusFetching, types.StatusExtracting, ""))
	scheduler.Register(types.KindItem, &stubWorker{stage: types.StatusExtracting, fn: func(ctx context.Context, job types.Job, payload *Payload) Outcome {
		if extractCalls.Add(1) < 3 {
			return Retry(errors.New("parser hiccup"))
		}
		return Advance(types.StatusSummarizing, "")
	}})
	scheduler.Register(types.KindItem, advanceWorker(types.StatusSummarizing, types.StatusCompleted, "ref"))

	_, err := store.Create(1, 10, types.KindItem)
	require.NoError(t, err)
	require.NoError(t, scheduler.Submit(1, &Payload{Item: &types.ItemPayload{URL: "https://example.com/a"}}))

	job := waitForTerminal(t, store, 1)
	assert.Equal(t, types.StatusCompleted, job.Status)
	// Two transient failures, then success on the third attempt.
	assert.Equal(t, int32(3), extractCalls.Load())
	// The counter was reset by the transitions after the flaky stage.
	assert.Equal(t, 0, job.AttemptCount)
}

func TestSchedulerFailsOnValidationError(t *testing.T) {
	scheduler, store, pub := newTestScheduler(t, testSchedulerConfig())

	var fetchCalls atomic.Int32
	scheduler.Register(types.KindItem, &stubWorker{stage: types.StatusFetching, fn: func(ctx context.Context, job types.Job, payload *Payload) Outcome {
		fetchCalls.Add(1)
		return Fail(Invalid(errors.New("unsupported content type")))
	}})

	_, err := store.Create(1, 10, types.KindItem)
	require.NoError(t, err)
	require.NoError(t, scheduler.Submit(1, &Payload{Item: &types.ItemPayload{URL: "https://example.com/a"}}))

	job := waitForTerminal(t, store, 1)
	assert.Equal(t, types.StatusFailed, job.Status)
	assert.Contains(t, job.LastError, "unsupported content type")
	// Validation failures are terminal on the first attempt.
	assert.Equal(t, int32(1), fetchCalls.Load())
	assert.Equal(t, 1, job.AttemptCount)

	events := pub.all()
	assert.Equal(t, types.UpdateFailed, events[len(events)-1].UpdateType)
}

func TestSchedulerExhaustedRetriesFailJob(t *testing.T) {
	scheduler, store, _ := newTestScheduler(t, testSchedulerConfig())

	var calls atomic.Int32
	scheduler.Register(types.KindItem, &stubWorker{stage: types.StatusFetching, fn: func(ctx context.Context, job types.Job, payload *Payload) Outcome {
		calls.Add(1)
		return Retry(errors.New("upstream down"))
	}})

	_, err := store.Create(1, 10, types.KindItem)
	require.NoError(t, err)
	require.NoError(t, scheduler.Submit(1, &Payload{Item: &types.ItemPayload{URL: "https://example.com/a"}}))

	job := waitForTerminal(t, store, 1)
	assert.Equal(t, types.StatusFailed, job.Status)
	assert.Equal(t, int32(3), calls.Load())
	assert.Equal(t, 3, job.AttemptCount)
}

func TestSchedulerBackpressureRejects(t *testing.T) {
	logger := logrus.New()
	logger.SetLevel(logrus.ErrorLevel)
	pub := &recordingPublisher{}
	store := NewStatusStore(pub, logger)

	// No workers: the queue fills and stays full.
	config := SchedulerConfig{
		Workers:             1,
		QueueSize:           4,
		BackpressureEnabled: true,
		RejectThreshold:     0.5,
		WaitTimeout:         50 * time.Millisecond,
		Retry:               RetryPolicy{MaxAttempts: 1, Initial: time.Millisecond, Max: time.Millisecond},
	}
	scheduler := NewScheduler(store, NewLeaser(time.Minute), config, logger)
	defer scheduler.Stop()

	// A worker with no registered stages returns immediately, so make jobs
	// that sit in the queue by blocking the single pool worker.
	blocked := make(chan struct{})
	scheduler.Register(types.KindItem, &stubWorker{stage: types.StatusFetching, fn: func(ctx context.Context, job types.Job, payload *Payload) Outcome {
		<-blocked
		return Fail(errors.New("released"))
	}})
	defer close(blocked)

	rejected := false
	for i := int64(1); i <= 8; i++ {
		_, err := store.Create(i, 10, types.KindItem)
		require.NoError(t, err)
		if err := scheduler.Submit(i, &Payload{Item: &types.ItemPayload{}}); err != nil {
			rejected = true
			break
		}
	}
	assert.True(t, rejected, "expected backpressure to reject a submission")
}

func TestSchedulerZeroValueConfigAcceptsSubmissions(t *testing.T) {
	scheduler, store, _ := newTestScheduler(t, SchedulerConfig{})

	// Every field is defaulted, so an uncontended queue must admit jobs
	// instead of tripping a zero enqueue timeout.
	for i := int64(1); i <= 5; i++ {
		_, err := store.Create(i, 10, types.KindItem)
		require.NoError(t, err)
		require.NoError(t, scheduler.Submit(i, &Payload{Item: &types.ItemPayload{URL: "https://example.com/a"}}))
	}
}

func TestSchedulerPayloadLifecycle(t *testing.T) {
	scheduler, store, _ := newTestScheduler(t, testSchedulerConfig())
	scheduler.Register(types.KindItem, advanceWorker(types.StatusFetching, types.StatusExtracting, ""))
	scheduler.Register(types.KindItem, advanceWorker(types.StatusExtracting, types.StatusSummarizing, ""))
	scheduler.Register(types.KindItem, advanceWorker(types.StatusSummarizing, types.StatusCompleted, "ref"))

	_, err := store.Create(1, 10, types.KindItem)
	require.NoError(t, err)
	require.NoError(t, scheduler.Submit(1, &Payload{Item: &types.ItemPayload{URL: "https://example.com/a"}}))

	waitForTerminal(t, store, 1)

	// Payloads of finished jobs are released.
	assert.Eventually(t, func() bool {
		_, held := scheduler.Payload(1)
		return !held
	}, time.Second, 5*time.Millisecond)
}
