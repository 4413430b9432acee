// Package handlers exposes the failure monitor over HTTP.
package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"time"

	"github.com/pitabwire/util"

	"github.com/scenicworks/renderqa/apps/monitor/service/monitor"
	"github.com/scenicworks/renderqa/internal/events"
	"github.com/scenicworks/renderqa/internal/records"
)

const defaultHistoryDays = 7

// AlertService is the monitor surface the handlers call into.
type AlertService interface {
	GetActiveAlerts(ctx context.Context) ([]records.FailureAlert, error)
	GetAlertHistory(ctx context.Context, days int) ([]records.FailureAlert, error)
	AcknowledgeAlert(ctx context.Context, alertID, userID string) error
	HealthCheck(ctx context.Context) monitor.HealthStatus
}

// QueuePublisher manages queue publishing.
type QueuePublisher interface {
	Publish(ctx context.Context, queueName string, payload any, headers ...map[string]string) error
}

// ErrorResponse is the error response returned to API clients.
type ErrorResponse struct {
	Error   string `json:"error"`
	Message string `json:"message"`
}

func writeJSON(w http.ResponseWriter, statusCode int, response any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	_ = json.NewEncoder(w).Encode(response)
}

func writeError(w http.ResponseWriter, statusCode int, errorCode, message string) {
	writeJSON(w, statusCode, ErrorResponse{Error: errorCode, Message: message})
}

// =============================================================================
// Active Alerts Handler
// =============================================================================

// ActiveAlertsHandler lists unacknowledged alerts, newest first.
type ActiveAlertsHandler struct {
	service AlertService
}

// NewActiveAlertsHandler creates an active alerts handler.
func NewActiveAlertsHandler(service AlertService) *ActiveAlertsHandler {
	return &ActiveAlertsHandler{service: service}
}

// AlertsResponse is an alert listing.
type AlertsResponse struct {
	Alerts []records.FailureAlert `json:"alerts"`
	Count  int                    `json:"count"`
}

// ServeHTTP handles GET requests for active alerts.
func (h *ActiveAlertsHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		writeError(w, http.StatusMethodNotAllowed, "method_not_allowed", "Only GET method is allowed")
		return
	}

	alerts, err := h.service.GetActiveAlerts(r.Context())
	if err != nil {
		writeError(w, http.StatusInternalServerError, "internal_error", "Could not list active alerts")
		return
	}

	writeJSON(w, http.StatusOK, AlertsResponse{Alerts: alerts, Count: len(alerts)})
}

// =============================================================================
// Alert History Handler
// =============================================================================

// AlertHistoryHandler lists alerts over a trailing number of days,
// acknowledged or not.
type AlertHistoryHandler struct {
	service AlertService
}

// NewAlertHistoryHandler creates an alert history handler.
func NewAlertHistoryHandler(service AlertService) *AlertHistoryHandler {
	return &AlertHistoryHandler{service: service}
}

// ServeHTTP handles GET requests for the alert history.
func (h *AlertHistoryHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		writeError(w, http.StatusMethodNotAllowed, "method_not_allowed", "Only GET method is allowed")
		return
	}

	days := defaultHistoryDays
	if raw := r.URL.Query().Get("days"); raw != "" {
		parsed, err := strconv.Atoi(raw)
		if err != nil || parsed <= 0 {
			writeError(w, http.StatusBadRequest, "invalid_days", "days must be a positive integer")
			return
		}
		days = parsed
	}

	alerts, err := h.service.GetAlertHistory(r.Context(), days)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "internal_error", "Could not list alert history")
		return
	}

	writeJSON(w, http.StatusOK, AlertsResponse{Alerts: alerts, Count: len(alerts)})
}

// =============================================================================
// Acknowledge Handler
// =============================================================================

// AcknowledgeRequest is the body of an acknowledge call.
type AcknowledgeRequest struct {
	// UserID identifies who acknowledged the alert (required).
	UserID string `json:"user_id"`
}

// AcknowledgeAlertHandler marks an alert acknowledged and announces it on
// the alert queue.
type AcknowledgeAlertHandler struct {
	service   AlertService
	queueName string
	publisher QueuePublisher
	maxBody   int64
}

// NewAcknowledgeAlertHandler creates an acknowledge handler.
func NewAcknowledgeAlertHandler(
	service AlertService,
	queueName string,
	publisher QueuePublisher,
	maxBody int64,
) *AcknowledgeAlertHandler {
	return &AcknowledgeAlertHandler{
		service:   service,
		queueName: queueName,
		publisher: publisher,
		maxBody:   maxBody,
	}
}

// ServeHTTP handles POST requests acknowledging an alert.
func (h *AcknowledgeAlertHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	log := util.Log(ctx)

	if r.Method != http.MethodPost {
		writeError(w, http.StatusMethodNotAllowed, "method_not_allowed", "Only POST method is allowed")
		return
	}

	alertID := r.PathValue("id")
	if alertID == "" {
		writeError(w, http.StatusBadRequest, "missing_alert_id", "Alert ID is required in the path")
		return
	}

	body, err := io.ReadAll(http.MaxBytesReader(w, r.Body, h.maxBody))
	if err != nil {
		var maxBytesErr *http.MaxBytesError
		if errors.As(err, &maxBytesErr) {
			writeError(w, http.StatusRequestEntityTooLarge, "request_too_large",
				fmt.Sprintf("Request body exceeds maximum size of %d bytes", h.maxBody))
			return
		}
		writeError(w, http.StatusBadRequest, "invalid_request", "Failed to read request body")
		return
	}

	var request AcknowledgeRequest
	if unmarshalErr := json.Unmarshal(body, &request); unmarshalErr != nil {
		writeError(w, http.StatusBadRequest, "invalid_json", "Failed to parse JSON request body")
		return
	}
	if request.UserID == "" {
		writeError(w, http.StatusBadRequest, "validation_error", "user_id is required")
		return
	}

	if err = h.service.AcknowledgeAlert(ctx, alertID, request.UserID); err != nil {
		if errors.Is(err, records.ErrAlertNotFound) {
			writeError(w, http.StatusNotFound, "alert_not_found", "No alert with that ID")
			return
		}
		writeError(w, http.StatusInternalServerError, "internal_error", "Could not acknowledge alert")
		return
	}

	h.announce(ctx, alertID, request.UserID)

	log.Info("alert acknowledged via API", "alert_id", alertID, "user_id", request.UserID)
	writeJSON(w, http.StatusOK, map[string]string{"status": "acknowledged", "alert_id": alertID})
}

// announce publishes the acknowledgement; delivery is best-effort and never
// fails the API call.
func (h *AcknowledgeAlertHandler) announce(ctx context.Context, alertID, userID string) {
	if h.publisher == nil {
		return
	}

	parsed, err := events.ParseAlertID(alertID)
	if err != nil {
		return
	}

	err = h.publisher.Publish(ctx, h.queueName, &events.AlertAcknowledgedPayload{
		AlertID:        parsed,
		AcknowledgedBy: userID,
		AcknowledgedAt: time.Now(),
	}, map[string]string{
		"event_type": string(events.AlertAcknowledged),
	})
	if err != nil {
		util.Log(ctx).WithError(err).Warn("could not announce acknowledgement",
			"alert_id", alertID,
		)
	}
}

// =============================================================================
// Health Handler
// =============================================================================

// HealthHandler reports pipeline health from the monitor's perspective.
type HealthHandler struct {
	service AlertService
}

// NewHealthHandler creates a health handler.
func NewHealthHandler(service AlertService) *HealthHandler {
	return &HealthHandler{service: service}
}

// ServeHTTP handles GET requests for the health summary. An unhealthy
// pipeline answers 503 so load balancer probes can act on it directly.
func (h *HealthHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		writeError(w, http.StatusMethodNotAllowed, "method_not_allowed", "Only GET method is allowed")
		return
	}

	status := h.service.HealthCheck(r.Context())

	code := http.StatusOK
	if !status.Healthy {
		code = http.StatusServiceUnavailable
	}
	writeJSON(w, code, status)
}
