package handlers

import (
	"encoding/json"
	"net/http"

	"github.com/Nexora-Open-Source/briefing-backend/digest"
	"github.com/Nexora-Open-Source/briefing-backend/middleware"
	"github.com/sirupsen/logrus"
)

// DigestResponse reports the podcast jobs created by a digest run
type DigestResponse struct {
	Results []digest.Result `json:"results"`
}

// @Summary Trigger digest generation for all users
// @Description Creates a podcast job for every active user covering their completed items. Users with nothing completed are skipped.
// @Tags Digest
// @Produce json
// @Success 202 {object} DigestResponse "Digest run results"
// @Failure 500 {object} middleware.APIError "Internal server error"
// @Router /digest/trigger [post]
func (h *Handler) HandleTriggerDigest(w http.ResponseWriter, r *http.Request) {
	requestID := requestIDFrom(r, w)

	results, err := h.Digest.TriggerAll(r.Context())
	if err != nil {
		middleware.RespondInternalError(w, err, requestID)
		return
	}

	h.Logger.WithFields(logrus.Fields{
		"user_count": len(results),
		"request_id": requestID,
	}).Info("Digest run triggered")

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusAccepted)
	json.NewEncoder(w).Encode(DigestResponse{Results: results})
}

// @Summary Trigger digest generation for one user
// @Description Creates a podcast job covering the user's completed items.
// @Tags Digest
// @Produce json
// @Param userID path int true "User ID"
// @Success 202 {object} digest.Result "Digest result"
// @Failure 400 {object} middleware.APIError "Bad request"
// @Failure 500 {object} middleware.APIError "Internal server error"
// @Router /digest/trigger/user/{userID} [post]
func (h *Handler) HandleTriggerUserDigest(w http.ResponseWriter, r *http.Request) {
	requestID := requestIDFrom(r, w)

	userID, err := pathID(r, "userID")
	if err != nil {
		middleware.RespondBadRequest(w, err, requestID)
		return
	}

	result, err := h.Digest.TriggerUser(r.Context(), userID)
	if err != nil {
		middleware.RespondInternalError(w, err, requestID)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusAccepted)
	json.NewEncoder(w).Encode(result)
}
