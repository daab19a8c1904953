// Package health provides health check handlers for the briefing backend
package health

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"github.com/Nexora-Open-Source/briefing-backend/middleware"
	"github.com/Nexora-Open-Source/briefing-backend/utils"
	"github.com/sirupsen/logrus"
)

// HealthStatus represents the health check response structure
type HealthStatus struct {
	Status    string            `json:"status"`
	Timestamp string            `json:"timestamp"`
	Version   string            `json:"version"`
	Services  map[string]string `json:"services"`
	Uptime    string            `json:"uptime"`
}

// Check probes one dependency
type Check struct {
	Name  string
	Probe func(ctx context.Context) error
}

// Handler contains dependencies for health handlers
type Handler struct {
	Checks []Check
	Logger *logrus.Logger
}

// NewHandler creates a new health handler
func NewHandler(checks []Check, logger *logrus.Logger) *Handler {
	return &Handler{
		Checks: checks,
		Logger: logger,
	}
}

// HandleHealthCheck provides a health check endpoint for monitoring
func (h *Handler) HandleHealthCheck(w http.ResponseWriter, r *http.Request) {
	requestID := r.Header.Get("X-Request-ID")
	if requestID == "" {
		requestID = utils.GenerateRequestID()
		w.Header().Set("X-Request-ID", requestID)
	}

	health := HealthStatus{
		Status:    "healthy",
		Timestamp: time.Now().Format(time.RFC3339),
		Version:   "1.0.0",
		Services:  make(map[string]string),
		Uptime:    time.Since(startTime).String(),
	}

	for _, check := range h.Checks {
		if err := h.runCheck(check); err != nil {
			health.Status = "unhealthy"
			health.Services[check.Name] = "unhealthy: " + err.Error()
			h.Logger.WithFields(logrus.Fields{
				"service": check.Name,
				"error":   err.Error(),
			}).Error("Health check failed")
		} else {
			health.Services[check.Name] = "healthy"
		}
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	json.NewEncoder(w).Encode(health)
}

// HandleLivenessCheck provides a simple liveness probe
func (h *Handler) HandleLivenessCheck(w http.ResponseWriter, r *http.Request) {
	response := map[string]interface{}{
		"status":    "alive",
		"timestamp": time.Now().Format(time.RFC3339),
		"uptime":    time.Since(startTime).String(),
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	json.NewEncoder(w).Encode(response)
}

// HandleReadinessCheck provides a readiness probe
func (h *Handler) HandleReadinessCheck(w http.ResponseWriter, r *http.Request) {
	requestID := r.Header.Get("X-Request-ID")
	if requestID == "" {
		requestID = utils.GenerateRequestID()
	}

	services := make(map[string]string)
	for _, check := range h.Checks {
		if err := h.runCheck(check); err != nil {
			middleware.RespondServiceUnavailable(w, err, requestID)
			return
		}
		services[check.Name] = "ready"
	}

	response := map[string]interface{}{
		"status":    "ready",
		"timestamp": time.Now().Format(time.RFC3339),
		"services":  services,
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	json.NewEncoder(w).Encode(response)
}

func (h *Handler) runCheck(check Check) error {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	return check.Probe(ctx)
}

var startTime = time.Now()
