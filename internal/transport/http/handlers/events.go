package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/solovyshn/Blockly-for-Dwenguino/internal/transport/http/middleware"
	"github.com/solovyshn/Blockly-for-Dwenguino/internal/usecase"
)

// EventHandler records client telemetry events. It sits behind the soft
// guard, so the attached identity may be empty.
type EventHandler struct {
	telemetry *usecase.TelemetryService
}

// NewEventHandler constructs the event handler.
func NewEventHandler(telemetry *usecase.TelemetryService) *EventHandler {
	return &EventHandler{telemetry: telemetry}
}

// Record stores a client event with best-effort user attribution.
func (h *EventHandler) Record(c *gin.Context) {
	var req EventRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, NewErrorResponse(c, "invalidRequestBody"))
		return
	}

	identity := middleware.GetIdentity(c)

	err := h.telemetry.RecordEvent(c.Request.Context(), identity, usecase.TelemetryInput{
		SessionID:  req.SessionID,
		ActivityID: req.ActivityID,
		Name:       req.EventName,
		Payload:    req.Data,
		OccurredAt: req.Timestamp,
	})
	if err != nil {
		RespondWithMappedError(c, err, nil, http.StatusInternalServerError, "eventRecordingFailed")
		return
	}

	c.Status(http.StatusOK)
}
