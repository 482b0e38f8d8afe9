package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/solovyshn/Blockly-for-Dwenguino/internal/infra/logger"
	"github.com/solovyshn/Blockly-for-Dwenguino/internal/transport/http/middleware"
	"github.com/solovyshn/Blockly-for-Dwenguino/internal/usecase"
)

// AuthHandler exposes the account and session lifecycle endpoints.
type AuthHandler struct {
	sessions    *usecase.SessionService
	cookie      *middleware.SessionCookie
	redirectURL string
}

// NewAuthHandler constructs the auth handler. redirectURL is where the
// verification endpoint always sends the browser.
func NewAuthHandler(sessions *usecase.SessionService, cookie *middleware.SessionCookie, redirectURL string) *AuthHandler {
	return &AuthHandler{sessions: sessions, cookie: cookie, redirectURL: redirectURL}
}

// Register creates a pending account and sends the verification email.
func (h *AuthHandler) Register(c *gin.Context) {
	var req RegisterRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, NewErrorResponse(c, "invalidRequestBody"))
		return
	}

	_, err := h.sessions.Register(c.Request.Context(), usecase.RegisterInput{
		Firstname:        req.Firstname,
		Email:            req.Email,
		Password:         req.Password,
		RepeatedPassword: req.RepeatedPassword,
		Role:             req.Role,
		AcceptConditions: req.AcceptConditions,
		AcceptResearch:   req.AcceptResearch,
	})
	if err != nil {
		RespondWithMappedError(c, err, []ErrorCase{
			{Err: usecase.ErrUserAlreadyExists, Status: http.StatusUnauthorized, Message: "userAlreadyExists"},
		}, http.StatusInternalServerError, "registrationFailed")
		return
	}

	c.Status(http.StatusOK)
}

// VerifyAccount consumes an emailed verification link. The browser is
// redirected to the configured landing page whatever the outcome; failures
// are observable only in the logs.
func (h *AuthHandler) VerifyAccount(c *gin.Context) {
	userID := c.Param("userId")
	code := c.Param("secretCode")

	if err := h.sessions.VerifyAccount(c.Request.Context(), userID, code); err != nil {
		logger.WithContext(c.Request.Context()).Warn("account verification failed",
			zap.String("user_id", userID),
			zap.Error(err),
		)
	}

	c.Redirect(http.StatusFound, h.redirectURL)
}

// Login authenticates credentials and sets the session cookie.
func (h *AuthHandler) Login(c *gin.Context) {
	var req LoginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, NewErrorResponse(c, "invalidRequestBody"))
		return
	}

	pair, err := h.sessions.Login(c.Request.Context(), req.Email, req.Password)
	if err != nil {
		RespondWithMappedError(c, err, []ErrorCase{
			{Err: usecase.ErrInvalidCredentials, Status: http.StatusUnauthorized, Message: "emailOrPasswordIncorrect"},
			{Err: usecase.ErrUserNotActive, Status: http.StatusUnauthorized, Message: "userNotActive"},
		}, http.StatusInternalServerError, "loginFailed")
		return
	}

	h.cookie.Write(c, pair)
	c.Status(http.StatusOK)
}

// ResendActivation reissues the activation email after a credential check.
func (h *AuthHandler) ResendActivation(c *gin.Context) {
	var req ResendActivationRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, NewErrorResponse(c, "invalidRequestBody"))
		return
	}

	err := h.sessions.ResendActivation(c.Request.Context(), req.Email, req.Password)
	if err != nil {
		RespondWithMappedError(c, err, []ErrorCase{
			{Err: usecase.ErrInvalidCredentials, Status: http.StatusUnauthorized, Message: "emailOrPasswordIncorrect"},
			{Err: usecase.ErrUserAlreadyActive, Status: http.StatusUnauthorized, Message: "userAlreadyActive"},
		}, http.StatusInternalServerError, "resendActivationFailed")
		return
	}

	c.Status(http.StatusOK)
}

// RefreshToken mints a new access token from the cookie's refresh token:
// 401 without a cookie, 403 when the token is revoked or does not verify.
func (h *AuthHandler) RefreshToken(c *gin.Context) {
	_, refreshToken, ok := h.cookie.Read(c)
	if !ok {
		c.Status(http.StatusUnauthorized)
		return
	}

	pair, err := h.sessions.RefreshAccessToken(c.Request.Context(), refreshToken)
	if err != nil {
		RespondWithMappedError(c, err, []ErrorCase{
			{Err: usecase.ErrRefreshTokenMissing, Status: http.StatusUnauthorized, Message: "refreshTokenMissing"},
			{Err: usecase.ErrRefreshTokenRevoked, Status: http.StatusForbidden, Message: "refreshTokenRevoked"},
			{Err: usecase.ErrRefreshTokenInvalid, Status: http.StatusForbidden, Message: "refreshTokenInvalid"},
		}, http.StatusInternalServerError, "refreshFailed")
		return
	}

	h.cookie.Write(c, pair)
	c.Status(http.StatusOK)
}

// RequestPasswordReset emails a reset code. The response is 200 whether or
// not the email is registered.
func (h *AuthHandler) RequestPasswordReset(c *gin.Context) {
	var req PasswordResetRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, NewErrorResponse(c, "invalidRequestBody"))
		return
	}

	if err := h.sessions.RequestPasswordReset(c.Request.Context(), req.Email); err != nil {
		RespondWithMappedError(c, err, nil, http.StatusInternalServerError, "passwordResetRequestFailed")
		return
	}

	c.Status(http.StatusOK)
}

// ResetPassword stores the new password when the emailed code matches.
func (h *AuthHandler) ResetPassword(c *gin.Context) {
	var req ResetPasswordRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, NewErrorResponse(c, "invalidRequestBody"))
		return
	}

	err := h.sessions.ResetPassword(c.Request.Context(), req.Email, req.Password, req.RepeatedPassword, req.SecretCode)
	if err != nil {
		RespondWithMappedError(c, err, []ErrorCase{
			{Err: usecase.ErrCodeInvalid, Status: http.StatusUnauthorized, Message: "invalidCode"},
			{Err: usecase.ErrUserNotFound, Status: http.StatusBadRequest, Message: "userNotFound"},
		}, http.StatusInternalServerError, "passwordResetFailed")
		return
	}

	c.Status(http.StatusOK)
}

// Logout revokes the cookie's refresh token and clears the cookie. It always
// responds 200, even for a missing or invalid session.
func (h *AuthHandler) Logout(c *gin.Context) {
	_, refreshToken, ok := h.cookie.Read(c)
	if ok {
		if err := h.sessions.Logout(c.Request.Context(), refreshToken); err != nil {
			logger.WithContext(c.Request.Context()).Warn("logout failed", zap.Error(err))
		}
	}

	h.cookie.Clear(c)
	c.Status(http.StatusOK)
}

// Me returns the authenticated user's profile.
func (h *AuthHandler) Me(c *gin.Context) {
	identity := middleware.GetIdentity(c)

	user, err := h.sessions.LoadUser(c.Request.Context(), identity.UserID)
	if err != nil {
		RespondWithMappedError(c, err, []ErrorCase{
			{Err: usecase.ErrUserNotFound, Status: http.StatusUnauthorized, Message: "userNotFound"},
		}, http.StatusInternalServerError, "profileLookupFailed")
		return
	}

	c.JSON(http.StatusOK, NewUserResponse(*user))
}
