package handlers

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"

	"github.com/Nexora-Open-Source/briefing-backend/middleware"
	"github.com/Nexora-Open-Source/briefing-backend/pipeline"
	"github.com/Nexora-Open-Source/briefing-backend/types"
	"github.com/sirupsen/logrus"
)

// CreatePodcastRequest is the body of POST /podcasts
type CreatePodcastRequest struct {
	UserID  int64   `json:"user_id"`
	Title   string  `json:"title"`
	ItemIDs []int64 `json:"item_ids"`
}

// CreatePodcastResponse is the immediate acknowledgement for a podcast request
type CreatePodcastResponse struct {
	PodcastID int64  `json:"podcast_id"`
	Status    string `json:"status"`
	Message   string `json:"message"`
}

// @Summary Request podcast generation
// @Description Creates a podcast job covering the given completed items and queues it for script writing and audio generation.
// @Tags Podcasts
// @Accept json
// @Produce json
// @Param request body CreatePodcastRequest true "Podcast to generate"
// @Success 202 {object} CreatePodcastResponse "Podcast accepted for generation"
// @Failure 400 {object} middleware.APIError "Bad request"
// @Failure 503 {object} middleware.APIError "Queue full"
// @Router /podcasts [post]
func (h *Handler) HandleCreatePodcast(w http.ResponseWriter, r *http.Request) {
	requestID := requestIDFrom(r, w)

	var req CreatePodcastRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		middleware.RespondBadRequest(w, fmt.Errorf("invalid request body: %v", err), requestID)
		return
	}
	if req.UserID <= 0 {
		middleware.RespondValidationError(w, fmt.Errorf("user_id is required"), requestID)
		return
	}
	if len(req.ItemIDs) == 0 {
		middleware.RespondValidationError(w, fmt.Errorf("item_ids must not be empty"), requestID)
		return
	}
	// Every covered item must belong to the requester and be finished.
	for _, itemID := range req.ItemIDs {
		job, err := h.Store.Get(itemID)
		if err != nil || job.Kind != types.KindItem || job.OwnerID != req.UserID {
			middleware.RespondValidationError(w, fmt.Errorf("item %d not found for user %d", itemID, req.UserID), requestID)
			return
		}
		if job.Status != types.StatusCompleted {
			middleware.RespondValidationError(w, fmt.Errorf("item %d is not completed yet", itemID), requestID)
			return
		}
	}

	title := req.Title
	if title == "" {
		title = "Briefing Podcast"
	}

	podcastID := h.IDs.Next()
	if _, err := h.Store.Create(podcastID, req.UserID, types.KindPodcast); err != nil {
		middleware.RespondInternalError(w, err, requestID)
		return
	}

	payload := &pipeline.Payload{
		Podcast: &types.PodcastPayload{
			Title:   title,
			ItemIDs: req.ItemIDs,
		},
	}
	if err := h.Scheduler.Submit(podcastID, payload); err != nil {
		// The queue refused the job; remove the record so nothing is left
		// behind in the pending state.
		h.Store.Delete(podcastID)
		middleware.RespondQueueFull(w, err, requestID)
		return
	}

	h.Logger.WithFields(logrus.Fields{
		"podcast_id": podcastID,
		"user_id":    req.UserID,
		"item_count": len(req.ItemIDs),
		"request_id": requestID,
	}).Info("Podcast accepted for generation")

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusAccepted)
	json.NewEncoder(w).Encode(CreatePodcastResponse{
		PodcastID: podcastID,
		Status:    string(types.StatusPending),
		Message:   "Podcast accepted for generation",
	})
}

// @Summary Get podcast generation status
// @Description Returns the current pipeline status of a podcast. The audio URL is present once generation completes.
// @Tags Podcasts
// @Produce json
// @Param id path int true "Podcast ID"
// @Success 200 {object} types.PodcastStatusResponse "Current status"
// @Failure 404 {object} middleware.APIError "Podcast not found"
// @Router /podcasts/{id}/status [get]
func (h *Handler) HandlePodcastStatus(w http.ResponseWriter, r *http.Request) {
	requestID := requestIDFrom(r, w)

	podcastID, err := pathID(r, "id")
	if err != nil {
		middleware.RespondBadRequest(w, err, requestID)
		return
	}

	job, err := h.getJob(types.KindPodcast, podcastID)
	if errors.Is(err, pipeline.ErrNotFound) {
		middleware.RespondNotFound(w, fmt.Errorf("podcast %d not found", podcastID), requestID)
		return
	}
	if err != nil {
		middleware.RespondInternalError(w, err, requestID)
		return
	}

	response := types.PodcastStatusResponse{
		PodcastID:    job.EntityID,
		Status:       string(job.Status),
		IsPending:    job.Status == types.StatusPending,
		IsWriting:    job.Status == types.StatusWriting,
		IsGenerating: job.Status == types.StatusGenerating,
		IsCompleted:  job.Status == types.StatusCompleted,
		IsFailed:     job.Status == types.StatusFailed,
		AttemptCount: job.AttemptCount,
		LastError:    job.LastError,
	}
	if job.Status == types.StatusCompleted {
		response.AudioURL = job.ResultRef
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	json.NewEncoder(w).Encode(response)
}
