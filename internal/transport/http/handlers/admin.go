package handlers

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/solovyshn/Blockly-for-Dwenguino/internal/core/domain"
	"github.com/solovyshn/Blockly-for-Dwenguino/internal/core/port"
	"github.com/solovyshn/Blockly-for-Dwenguino/internal/usecase"
)

const defaultRecentEventsLimit = 100

// AdminHandler exposes the admin-only surface behind the admin guard.
type AdminHandler struct {
	sessions  *usecase.SessionService
	telemetry *usecase.TelemetryService
}

// NewAdminHandler constructs the admin handler.
func NewAdminHandler(sessions *usecase.SessionService, telemetry *usecase.TelemetryService) *AdminHandler {
	return &AdminHandler{sessions: sessions, telemetry: telemetry}
}

// ListUsers returns users, optionally filtered by status and role.
func (h *AdminHandler) ListUsers(c *gin.Context) {
	filter := port.UserFilter{
		Status: domain.UserStatus(c.Query("status")),
		Role:   domain.UserRole(c.Query("role")),
	}
	if limit, err := strconv.Atoi(c.Query("limit")); err == nil {
		filter.Limit = limit
	}
	if offset, err := strconv.Atoi(c.Query("offset")); err == nil {
		filter.Offset = offset
	}

	users, err := h.sessions.ListUsers(c.Request.Context(), filter)
	if err != nil {
		RespondWithMappedError(c, err, nil, http.StatusInternalServerError, "userListingFailed")
		return
	}

	resp := UsersResponse{Users: make([]UserResponse, 0, len(users))}
	for _, user := range users {
		resp.Users = append(resp.Users, NewUserResponse(user))
	}

	c.JSON(http.StatusOK, resp)
}

// EventStats returns total and recent telemetry counts.
func (h *AdminHandler) EventStats(c *gin.Context) {
	stats, err := h.telemetry.Stats(c.Request.Context())
	if err != nil {
		RespondWithMappedError(c, err, nil, http.StatusInternalServerError, "eventStatsFailed")
		return
	}

	c.JSON(http.StatusOK, EventStatsResponse{
		TotalEvents:  stats.Total,
		RecentEvents: stats.Recent,
	})
}

// RecentEvents returns the most recent telemetry events, newest first.
func (h *AdminHandler) RecentEvents(c *gin.Context) {
	limit := defaultRecentEventsLimit
	if parsed, err := strconv.Atoi(c.Query("limit")); err == nil && parsed > 0 {
		limit = parsed
	}

	events, err := h.telemetry.RecentEvents(c.Request.Context(), limit)
	if err != nil {
		RespondWithMappedError(c, err, nil, http.StatusInternalServerError, "eventListingFailed")
		return
	}

	resp := make([]TelemetryEventResponse, 0, len(events))
	for _, event := range events {
		resp = append(resp, TelemetryEventResponse{
			ID:         event.ID,
			UserID:     event.UserID,
			SessionID:  event.SessionID,
			ActivityID: event.ActivityID,
			EventName:  event.Name,
			Data:       event.Payload,
			Timestamp:  event.OccurredAt,
		})
	}

	c.JSON(http.StatusOK, resp)
}
