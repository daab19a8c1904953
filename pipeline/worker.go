package pipeline

import (
	"context"

	"github.com/Nexora-Open-Source/briefing-backend/types"
)

// Payload is the mutable entity data a job's stage workers read and enrich
// as the job advances. Exactly one of the fields is set, matching the job
// kind. The payload is owned by the scheduler; workers only ever see it
// while holding the job's lease.
type Payload struct {
	Item    *types.ItemPayload
	Podcast *types.PodcastPayload
}

type outcomeKind int

const (
	outcomeAdvance outcomeKind = iota
	outcomeRetry
	outcomeFail
)

// Outcome is a stage worker's verdict for one execution: advance the job to
// the next declared stage, retry the current stage after backoff, or fail
// the job terminally.
type Outcome struct {
	kind      outcomeKind
	next      types.JobStatus
	resultRef string
	err       error
}

// Advance moves the job to next. resultRef may be set only when next is the
// completed state.
func Advance(next types.JobStatus, resultRef string) Outcome {
	return Outcome{kind: outcomeAdvance, next: next, resultRef: resultRef}
}

// Retry keeps the job in its current stage and asks the scheduler to try
// again after backoff.
func Retry(err error) Outcome {
	return Outcome{kind: outcomeRetry, err: err}
}

// Fail moves the job to the terminal failed state
func Fail(err error) Outcome {
	return Outcome{kind: outcomeFail, err: err}
}

// Err returns the failure carried by a retry or fail outcome
func (o Outcome) Err() error {
	return o.err
}

// Advanced reports whether the outcome moves the job forward
func (o Outcome) Advanced() bool {
	return o.kind == outcomeAdvance
}

// Retried reports whether the outcome asks for another attempt
func (o Outcome) Retried() bool {
	return o.kind == outcomeRetry
}

// Failed reports whether the outcome terminates the job
func (o Outcome) Failed() bool {
	return o.kind == outcomeFail
}

// Next returns the target status of an advance outcome
func (o Outcome) Next() types.JobStatus {
	return o.next
}

// ResultRef returns the result reference of an advance outcome
func (o Outcome) ResultRef() string {
	return o.resultRef
}

// StageWorker executes one pipeline stage. Workers are stateless with
// respect to the job: all state lives in the status store and the payload.
// The scheduler guarantees at most one active worker per job at a time.
type StageWorker interface {
	// Stage is the in-progress status this worker serves; the job is in
	// this status for the whole execution.
	Stage() types.JobStatus
	Execute(ctx context.Context, job types.Job, payload *Payload) Outcome
}
