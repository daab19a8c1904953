// Package types contains shared types used across the briefing backend
package types

import (
	"time"
)

// JobKind identifies which pipeline a processing job belongs to
type JobKind string

const (
	KindItem    JobKind = "item"
	KindPodcast JobKind = "podcast"
)

// JobStatus represents the current stage of a processing job
type JobStatus string

// Item pipeline stages
const (
	StatusCreated     JobStatus = "created"
	StatusFetching    JobStatus = "fetching"
	StatusExtracting  JobStatus = "extracting"
	StatusSummarizing JobStatus = "summarizing"
)

// Podcast pipeline stages
const (
	StatusPending    JobStatus = "pending"
	StatusWriting    JobStatus = "writing"
	StatusGenerating JobStatus = "generating"
)

// Terminal stages shared by both pipelines
const (
	StatusCompleted JobStatus = "completed"
	StatusFailed    JobStatus = "failed"
)

// UpdateType is the coarse view of a status transition sent to clients
type UpdateType string

const (
	UpdateCreated    UpdateType = "created"
	UpdateProcessing UpdateType = "processing"
	UpdateCompleted  UpdateType = "completed"
	UpdateFailed     UpdateType = "failed"
)

// Job is the state-machine record tracking one entity's progress through
// its pipeline stages. It is mutated only through the status store.
type Job struct {
	EntityID     int64     `json:"entity_id"`
	OwnerID      int64     `json:"owner_id"`
	Kind         JobKind   `json:"kind"`
	Status       JobStatus `json:"status"`
	AttemptCount int       `json:"attempt_count"`
	LastError    string    `json:"last_error,omitempty"`
	ResultRef    string    `json:"result_ref,omitempty"`
	CreatedAt    time.Time `json:"created_at"`
	UpdatedAt    time.Time `json:"updated_at"`
}

// IsTerminal reports whether the job has reached a terminal state
func (j *Job) IsTerminal() bool {
	return j.Status == StatusCompleted || j.Status == StatusFailed
}

// UpdateEvent is the payload pushed to subscribers on every status transition
type UpdateEvent struct {
	EntityID   int64      `json:"entity_id"`
	OwnerID    int64      `json:"-"` // implicit from the subscription, not on the wire
	Kind       JobKind    `json:"-"`
	Status     JobStatus  `json:"status"`
	UpdateType UpdateType `json:"update_type"`
	ResultRef  string     `json:"result_ref,omitempty"`
	UpdatedAt  time.Time  `json:"-"` // transition time, used for cache invalidation
	Resync     bool       `json:"-"` // set only on synthetic resync markers
}

// ItemPayload carries the entity data produced by the item pipeline stages
type ItemPayload struct {
	URL         string   `json:"url"`
	Title       string   `json:"title"`
	RawHTML     string   `json:"-"` // intermediate fetch output, never serialized
	TextContent string   `json:"text_content,omitempty"`
	Summary     string   `json:"summary,omitempty"`
	Tags        []string `json:"tags,omitempty"`
	Authors     []string `json:"authors,omitempty"`
	Platform    string   `json:"platform,omitempty"`
}

// PodcastPayload carries the entity data produced by the podcast pipeline stages
type PodcastPayload struct {
	Title       string  `json:"title"`
	Description string  `json:"description,omitempty"`
	ItemIDs     []int64 `json:"item_ids"`
	Script      string  `json:"script,omitempty"`
	AudioURL    string  `json:"audio_url,omitempty"`
}

// ItemStatusResponse is the pull-side snapshot for item status queries
type ItemStatusResponse struct {
	ItemID        int64  `json:"item_id"`
	Status        string `json:"status"`
	IsCreated     bool   `json:"is_created"`
	IsFetching    bool   `json:"is_fetching"`
	IsExtracting  bool   `json:"is_extracting"`
	IsSummarizing bool   `json:"is_summarizing"`
	IsCompleted   bool   `json:"is_completed"`
	IsFailed      bool   `json:"is_failed"`
	AttemptCount  int    `json:"attempt_count"`
	LastError     string `json:"last_error,omitempty"`
	SummaryRef    string `json:"summary_ref,omitempty"`
}

// ItemSummaryResponse carries the archived pipeline output of a completed item
type ItemSummaryResponse struct {
	ItemID   int64    `json:"item_id"`
	URL      string   `json:"url"`
	Title    string   `json:"title"`
	Summary  string   `json:"summary"`
	Tags     []string `json:"tags,omitempty"`
	Authors  []string `json:"authors,omitempty"`
	Platform string   `json:"platform,omitempty"`
}

// PodcastStatusResponse is the pull-side snapshot for podcast status queries
type PodcastStatusResponse struct {
	PodcastID    int64  `json:"podcast_id"`
	Status       string `json:"status"`
	IsPending    bool   `json:"is_pending"`
	IsWriting    bool   `json:"is_writing"`
	IsGenerating bool   `json:"is_generating"`
	IsCompleted  bool   `json:"is_completed"`
	IsFailed     bool   `json:"is_failed"`
	AttemptCount int    `json:"attempt_count"`
	LastError    string `json:"last_error,omitempty"`
	AudioURL     string `json:"audio_url,omitempty"`
}
