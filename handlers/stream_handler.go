package handlers

import (
	"fmt"
	"net/http"

	"github.com/Nexora-Open-Source/briefing-backend/middleware"
	"github.com/Nexora-Open-Source/briefing-backend/stream"
	"github.com/sirupsen/logrus"
)

// @Summary Stream status updates for a user
// @Description Opens a Server-Sent Events stream delivering item-update, podcast-update, and resync-required events for everything the user owns. Clients should refetch state after reconnecting or on a resync-required event.
// @Tags Stream
// @Produce text/event-stream
// @Param userID path int true "User ID"
// @Success 200 {string} string "SSE stream"
// @Failure 400 {object} middleware.APIError "Bad request"
// @Router /items/user/{userID}/stream [get]
func (h *Handler) HandleStream(w http.ResponseWriter, r *http.Request) {
	requestID := requestIDFrom(r, w)

	userID, err := pathID(r, "userID")
	if err != nil {
		middleware.RespondBadRequest(w, err, requestID)
		return
	}

	flusher, ok := w.(http.Flusher)
	if !ok {
		middleware.RespondInternalError(w, fmt.Errorf("streaming unsupported by this connection"), requestID)
		return
	}

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.Header().Set("X-Accel-Buffering", "no")
	w.WriteHeader(http.StatusOK)

	sub := h.Broadcaster.Subscribe(userID)
	defer sub.Close()

	h.Logger.WithFields(logrus.Fields{
		"user_id":         userID,
		"subscription_id": sub.ID,
		"request_id":      requestID,
	}).Info("Status stream opened")

	stream.WriteEventStream(r.Context(), w, flusher, sub, h.StreamHeartbeat, h.Logger)

	h.Logger.WithFields(logrus.Fields{
		"user_id":         userID,
		"subscription_id": sub.ID,
	}).Info("Status stream closed")
}
