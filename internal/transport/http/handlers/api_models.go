package handlers

import (
	"encoding/json"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/solovyshn/Blockly-for-Dwenguino/internal/core/domain"
	"github.com/solovyshn/Blockly-for-Dwenguino/internal/transport/http/middleware"
)

// RegisterRequest carries the registration form.
type RegisterRequest struct {
	Firstname        string `json:"firstname"`
	Email            string `json:"email"`
	Password         string `json:"password"`
	RepeatedPassword string `json:"repeated_password"`
	Role             string `json:"role"`
	AcceptConditions bool   `json:"accept_conditions"`
	AcceptResearch   bool   `json:"accept_research"`
}

// LoginRequest carries login credentials.
type LoginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

// ResendActivationRequest carries the credential check for an activation resend.
type ResendActivationRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

// PasswordResetRequest asks for a reset code by email.
type PasswordResetRequest struct {
	Email string `json:"email"`
}

// ResetPasswordRequest completes a password reset with the emailed code.
type ResetPasswordRequest struct {
	Email            string `json:"email"`
	Password         string `json:"password"`
	RepeatedPassword string `json:"repeated_password"`
	SecretCode       string `json:"secretCode"`
}

// EventRequest carries a client-reported simulator event.
type EventRequest struct {
	Timestamp  time.Time       `json:"timestamp"`
	SessionID  string          `json:"sessionId"`
	ActivityID string          `json:"activityId"`
	EventName  string          `json:"eventName"`
	Data       json.RawMessage `json:"data"`
}

// UserResponse is the client-safe projection of a user record.
type UserResponse struct {
	ID        string    `json:"id"`
	Firstname string    `json:"firstname"`
	Email     string    `json:"email"`
	Role      string    `json:"role"`
	Status    string    `json:"status"`
	CreatedAt time.Time `json:"created_at"`
}

// NewUserResponse projects a domain user onto the API shape.
func NewUserResponse(user domain.User) UserResponse {
	return UserResponse{
		ID:        user.ID,
		Firstname: user.Firstname,
		Email:     user.Email,
		Role:      string(user.Role),
		Status:    string(user.Status),
		CreatedAt: user.CreatedAt,
	}
}

// UsersResponse wraps a user listing.
type UsersResponse struct {
	Users []UserResponse `json:"users"`
}

// EventStatsResponse summarizes the telemetry volume.
type EventStatsResponse struct {
	TotalEvents  int64 `json:"totalEvents"`
	RecentEvents int64 `json:"recentEvents"`
}

// TelemetryEventResponse is the admin-facing projection of a stored event.
type TelemetryEventResponse struct {
	ID         string          `json:"id"`
	UserID     string          `json:"userId,omitempty"`
	SessionID  string          `json:"sessionId,omitempty"`
	ActivityID string          `json:"activityId,omitempty"`
	EventName  string          `json:"eventName"`
	Data       json.RawMessage `json:"data,omitempty"`
	Timestamp  time.Time       `json:"timestamp"`
}

// HealthResponse reports liveness.
type HealthResponse struct {
	Status    string    `json:"status"`
	StartedAt time.Time `json:"started_at"`
}

// ReadinessResponse reports per-dependency readiness.
type ReadinessResponse struct {
	Status string            `json:"status"`
	Checks map[string]string `json:"checks"`
}

// ErrorResponse is the uniform error body. Error holds a stable identifier
// the frontend translates; Codes carries per-field validation codes.
type ErrorResponse struct {
	Error   string   `json:"error"`
	Codes   []string `json:"codes,omitempty"`
	TraceID string   `json:"trace_id,omitempty"`
}

// NewErrorResponse creates an error response carrying the request trace ID.
func NewErrorResponse(c *gin.Context, errorMsg string) ErrorResponse {
	return ErrorResponse{
		Error:   errorMsg,
		TraceID: middleware.GetTraceID(c),
	}
}
