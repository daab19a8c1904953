package pipeline

import (
	"github.com/Nexora-Open-Source/briefing-backend/types"
)

// stageOrder declares the forward path for each job kind. The terminal
// failed state is reachable from every in-progress stage and is not listed.
var stageOrder = map[types.JobKind][]types.JobStatus{
	types.KindItem: {
		types.StatusCreated,
		types.StatusFetching,
		types.StatusExtracting,
		types.StatusSummarizing,
		types.StatusCompleted,
	},
	types.KindPodcast: {
		types.StatusPending,
		types.StatusWriting,
		types.StatusGenerating,
		types.StatusCompleted,
	},
}

// InitialStatus returns the admission status for a job kind
func InitialStatus(kind types.JobKind) types.JobStatus {
	return stageOrder[kind][0]
}

// NextStage returns the stage following current in the declared pipeline,
// or false when current is terminal or unknown for the kind.
func NextStage(kind types.JobKind, current types.JobStatus) (types.JobStatus, bool) {
	order, ok := stageOrder[kind]
	if !ok {
		return "", false
	}
	for i, s := range order {
		if s == current && i+1 < len(order) {
			return order[i+1], true
		}
	}
	return "", false
}

// CanTransition reports whether moving a job of the given kind from one
// status to the next is a legal move: exactly one step forward, or sideways
// into failed from any in-progress stage. Backward moves and stage skips
// are never legal.
func CanTransition(kind types.JobKind, from, to types.JobStatus) bool {
	if from == types.StatusCompleted || from == types.StatusFailed {
		return false
	}
	if to == types.StatusFailed {
		// failed is reachable only from in-progress stages, not from the
		// admission state
		return from != InitialStatus(kind)
	}
	next, ok := NextStage(kind, from)
	return ok && next == to
}

// UpdateTypeFor maps a status to the coarse update_type clients branch on
func UpdateTypeFor(kind types.JobKind, status types.JobStatus) types.UpdateType {
	switch status {
	case InitialStatus(kind):
		return types.UpdateCreated
	case types.StatusCompleted:
		return types.UpdateCompleted
	case types.StatusFailed:
		return types.UpdateFailed
	default:
		return types.UpdateProcessing
	}
}

// Stages returns the in-progress stages for a kind, in pipeline order
// (the declared path minus the admission and terminal states).
func Stages(kind types.JobKind) []types.JobStatus {
	order := stageOrder[kind]
	return order[1 : len(order)-1]
}
