package handlers

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strconv"

	"github.com/Nexora-Open-Source/briefing-backend/middleware"
	"github.com/Nexora-Open-Source/briefing-backend/pipeline"
	"github.com/Nexora-Open-Source/briefing-backend/types"
	"github.com/Nexora-Open-Source/briefing-backend/utils"
	"github.com/gorilla/mux"
	"github.com/sirupsen/logrus"
)

// CreateItemRequest is the body of POST /items
type CreateItemRequest struct {
	URL    string `json:"url"`
	UserID int64  `json:"user_id"`
	Title  string `json:"title,omitempty"`
}

// CreateItemResponse is the immediate acknowledgement for a submitted item
type CreateItemResponse struct {
	ItemID  int64  `json:"item_id"`
	Status  string `json:"status"`
	Message string `json:"message"`
}

// @Summary Submit a URL for processing
// @Description Creates an item job and queues it for the fetch, extract, and summarize pipeline. Returns immediately; progress is delivered over the status stream.
// @Tags Items
// @Accept json
// @Produce json
// @Param request body CreateItemRequest true "Item to process"
// @Success 202 {object} CreateItemResponse "Item accepted for processing"
// @Failure 400 {object} middleware.APIError "Bad request"
// @Failure 503 {object} middleware.APIError "Queue full"
// @Router /items [post]
func (h *Handler) HandleCreateItem(w http.ResponseWriter, r *http.Request) {
	requestID := requestIDFrom(r, w)

	var req CreateItemRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		middleware.RespondBadRequest(w, fmt.Errorf("invalid request body: %v", err), requestID)
		return
	}
	if req.UserID <= 0 {
		middleware.RespondValidationError(w, fmt.Errorf("user_id is required"), requestID)
		return
	}
	if err := utils.ValidateItemURL(req.URL); err != nil {
		middleware.RespondValidationError(w, err, requestID)
		return
	}

	itemID := h.IDs.Next()
	if _, err := h.Store.Create(itemID, req.UserID, types.KindItem); err != nil {
		middleware.RespondInternalError(w, err, requestID)
		return
	}

	payload := &pipeline.Payload{
		Item: &types.ItemPayload{
			URL:   req.URL,
			Title: req.Title,
		},
	}
	if err := h.Scheduler.Submit(itemID, payload); err != nil {
		// The queue refused the job; remove the record so nothing is left
		// behind in the created state.
		h.Store.Delete(itemID)
		middleware.RespondQueueFull(w, err, requestID)
		return
	}

	h.Logger.WithFields(logrus.Fields{
		"item_id":    itemID,
		"user_id":    req.UserID,
		"url":        req.URL,
		"request_id": requestID,
	}).Info("Item accepted for processing")

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusAccepted)
	json.NewEncoder(w).Encode(CreateItemResponse{
		ItemID:  itemID,
		Status:  string(types.StatusCreated),
		Message: "Item accepted for processing",
	})
}

// @Summary Get item processing status
// @Description Returns the current pipeline status of an item as a snapshot with per-stage boolean flags.
// @Tags Items
// @Produce json
// @Param id path int true "Item ID"
// @Success 200 {object} types.ItemStatusResponse "Current status"
// @Failure 404 {object} middleware.APIError "Item not found"
// @Router /items/{id}/status [get]
func (h *Handler) HandleItemStatus(w http.ResponseWriter, r *http.Request) {
	requestID := requestIDFrom(r, w)

	itemID, err := pathID(r, "id")
	if err != nil {
		middleware.RespondBadRequest(w, err, requestID)
		return
	}

	job, err := h.getJob(types.KindItem, itemID)
	if errors.Is(err, pipeline.ErrNotFound) {
		middleware.RespondNotFound(w, fmt.Errorf("item %d not found", itemID), requestID)
		return
	}
	if err != nil {
		middleware.RespondInternalError(w, err, requestID)
		return
	}

	response := types.ItemStatusResponse{
		ItemID:        job.EntityID,
		Status:        string(job.Status),
		IsCreated:     job.Status == types.StatusCreated,
		IsFetching:    job.Status == types.StatusFetching,
		IsExtracting:  job.Status == types.StatusExtracting,
		IsSummarizing: job.Status == types.StatusSummarizing,
		IsCompleted:   job.Status == types.StatusCompleted,
		IsFailed:      job.Status == types.StatusFailed,
		AttemptCount:  job.AttemptCount,
		LastError:     job.LastError,
		SummaryRef:    job.ResultRef,
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	json.NewEncoder(w).Encode(response)
}

// @Summary Get an item's summary
// @Description Returns the archived summary the pipeline produced for a completed item. Available once the item status is completed.
// @Tags Items
// @Produce json
// @Param id path int true "Item ID"
// @Success 200 {object} types.ItemSummaryResponse "Archived summary"
// @Failure 404 {object} middleware.APIError "Item not found or not completed"
// @Router /items/{id}/summary [get]
func (h *Handler) HandleItemSummary(w http.ResponseWriter, r *http.Request) {
	requestID := requestIDFrom(r, w)

	itemID, err := pathID(r, "id")
	if err != nil {
		middleware.RespondBadRequest(w, err, requestID)
		return
	}

	job, err := h.Store.Get(itemID)
	if err != nil || job.Kind != types.KindItem {
		middleware.RespondNotFound(w, fmt.Errorf("item %d not found", itemID), requestID)
		return
	}
	if job.Status != types.StatusCompleted {
		middleware.RespondNotFound(w, fmt.Errorf("item %d has no summary yet", itemID), requestID)
		return
	}
	if h.Archive == nil {
		middleware.RespondInternalError(w, fmt.Errorf("archive is not configured"), requestID)
		return
	}

	archived, err := h.Archive.GetArchivedItem(r.Context(), itemID)
	if errors.Is(err, utils.ErrNotArchived) {
		middleware.RespondNotFound(w, fmt.Errorf("item %d has no archived summary", itemID), requestID)
		return
	}
	if err != nil {
		middleware.RespondInternalError(w, err, requestID)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	json.NewEncoder(w).Encode(types.ItemSummaryResponse{
		ItemID:   archived.EntityID,
		URL:      archived.URL,
		Title:    archived.Title,
		Summary:  archived.Summary,
		Tags:     archived.Tags,
		Authors:  archived.Authors,
		Platform: archived.Platform,
	})
}

// @Summary Delete an item
// @Description Removes an item's job record and any held pipeline data. Clients holding the item learn of the deletion on their next refetch.
// @Tags Items
// @Param id path int true "Item ID"
// @Success 204 "Item deleted"
// @Failure 404 {object} middleware.APIError "Item not found"
// @Router /items/{id} [delete]
func (h *Handler) HandleDeleteItem(w http.ResponseWriter, r *http.Request) {
	requestID := requestIDFrom(r, w)

	itemID, err := pathID(r, "id")
	if err != nil {
		middleware.RespondBadRequest(w, err, requestID)
		return
	}

	job, err := h.Store.Get(itemID)
	if err != nil || job.Kind != types.KindItem {
		middleware.RespondNotFound(w, fmt.Errorf("item %d not found", itemID), requestID)
		return
	}

	h.Store.Delete(itemID)
	h.Scheduler.DiscardPayload(itemID)
	if h.CacheManager != nil {
		_ = h.CacheManager.InvalidateJob(types.KindItem, itemID)
	}

	h.Logger.WithFields(logrus.Fields{
		"item_id":    itemID,
		"request_id": requestID,
	}).Info("Item deleted")

	w.WriteHeader(http.StatusNoContent)
}

func requestIDFrom(r *http.Request, w http.ResponseWriter) string {
	requestID := r.Header.Get("X-Request-ID")
	if requestID == "" {
		requestID = utils.GenerateRequestID()
		w.Header().Set("X-Request-ID", requestID)
	}
	return requestID
}

func pathID(r *http.Request, name string) (int64, error) {
	raw := mux.Vars(r)[name]
	id, err := strconv.ParseInt(raw, 10, 64)
	if err != nil || id <= 0 {
		return 0, fmt.Errorf("invalid %s %q", name, raw)
	}
	return id, nil
}
