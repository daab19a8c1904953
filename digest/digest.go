/*
Package digest turns a user's completed briefing items into podcast jobs.

A digest run looks at everything the pipeline finished for a user, creates
one podcast job covering those items, and submits it to the scheduler. The
podcast then moves through its own writing and generating stages like any
other job.
*/
package digest

import (
	"context"
	"fmt"
	"time"

	"github.com/Nexora-Open-Source/briefing-backend/pipeline"
	"github.com/Nexora-Open-Source/briefing-backend/types"
	"github.com/Nexora-Open-Source/briefing-backend/utils"
	"github.com/sirupsen/logrus"
)

// UserDirectory lists the users eligible for digest generation
type UserDirectory interface {
	ActiveUserIDs(ctx context.Context) ([]int64, error)
}

// StaticUserDirectory serves a fixed user list, used when no external
// user service is configured.
type StaticUserDirectory struct {
	IDs []int64
}

func (d *StaticUserDirectory) ActiveUserIDs(ctx context.Context) ([]int64, error) {
	return d.IDs, nil
}

// Result reports the outcome of one user's digest run
type Result struct {
	UserID    int64 `json:"user_id"`
	PodcastID int64 `json:"podcast_id,omitempty"`
	ItemCount int   `json:"item_count"`
	Skipped   bool  `json:"skipped"`
}

// Service creates podcast jobs from completed items
type Service struct {
	store     *pipeline.StatusStore
	scheduler *pipeline.Scheduler
	users     UserDirectory
	ids       *utils.IDGenerator
	logger    *logrus.Logger
}

func NewService(store *pipeline.StatusStore, scheduler *pipeline.Scheduler, users UserDirectory, ids *utils.IDGenerator, logger *logrus.Logger) *Service {
	return &Service{
		store:     store,
		scheduler: scheduler,
		users:     users,
		ids:       ids,
		logger:    logger,
	}
}

// TriggerUser creates one podcast job covering the user's completed items.
// Users with nothing completed are skipped rather than failed.
func (s *Service) TriggerUser(ctx context.Context, userID int64) (Result, error) {
	var itemIDs []int64
	for _, job := range s.store.JobsByOwner(userID, types.KindItem) {
		if job.Status == types.StatusCompleted {
			itemIDs = append(itemIDs, job.EntityID)
		}
	}

	if len(itemIDs) == 0 {
		s.logger.WithField("user_id", userID).Info("No completed items, skipping digest")
		return Result{UserID: userID, Skipped: true}, nil
	}

	podcastID := s.ids.Next()
	if _, err := s.store.Create(podcastID, userID, types.KindPodcast); err != nil {
		return Result{}, fmt.Errorf("failed to create podcast job for user %d: %w", userID, err)
	}

	payload := &pipeline.Payload{
		Podcast: &types.PodcastPayload{
			Title:   fmt.Sprintf("Daily Briefing %s", time.Now().Format("2006-01-02")),
			ItemIDs: itemIDs,
		},
	}
	if err := s.scheduler.Submit(podcastID, payload); err != nil {
		// The queue refused the job; remove the record so the next trigger
		// starts clean instead of orphaning a pending podcast.
		s.store.Delete(podcastID)
		return Result{}, fmt.Errorf("failed to submit podcast job %d: %w", podcastID, err)
	}

	s.logger.WithFields(logrus.Fields{
		"user_id":    userID,
		"podcast_id": podcastID,
		"item_count": len(itemIDs),
	}).Info("Digest podcast job created")

	return Result{UserID: userID, PodcastID: podcastID, ItemCount: len(itemIDs)}, nil
}

// TriggerAll runs a digest for every active user. Individual failures are
// logged and reported without stopping the run.
func (s *Service) TriggerAll(ctx context.Context) ([]Result, error) {
	userIDs, err := s.users.ActiveUserIDs(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to list active users: %w", err)
	}

	results := make([]Result, 0, len(userIDs))
	for _, userID := range userIDs {
		if ctx.Err() != nil {
			return results, ctx.Err()
		}
		result, err := s.TriggerUser(ctx, userID)
		if err != nil {
			s.logger.WithField("user_id", userID).WithError(err).Error("Digest run failed for user")
			continue
		}
		results = append(results, result)
	}

	return results, nil
}
