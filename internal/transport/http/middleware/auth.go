package middleware

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/solovyshn/Blockly-for-Dwenguino/internal/core/domain"
	"github.com/solovyshn/Blockly-for-Dwenguino/internal/usecase"
)

// RequireAuth gates a request on a valid access token in the session cookie:
// 401 when the cookie is absent, 403 when the token does not verify.
func RequireAuth(cookie *SessionCookie, sessions *usecase.SessionService) gin.HandlerFunc {
	return func(c *gin.Context) {
		accessToken, _, ok := cookie.Read(c)
		if !ok {
			c.AbortWithStatus(http.StatusUnauthorized)
			return
		}

		userID, err := sessions.VerifyAccessToken(accessToken)
		if err != nil {
			c.AbortWithStatus(http.StatusForbidden)
			return
		}

		SetIdentity(c, domain.AuthContext{UserID: userID})
		c.Next()
	}
}

// RequireAdmin is RequireAuth plus a load of the decoded user and a role
// check. A missing user or a non-admin role yields 401.
func RequireAdmin(cookie *SessionCookie, sessions *usecase.SessionService) gin.HandlerFunc {
	return func(c *gin.Context) {
		accessToken, _, ok := cookie.Read(c)
		if !ok {
			c.AbortWithStatus(http.StatusUnauthorized)
			return
		}

		userID, err := sessions.VerifyAccessToken(accessToken)
		if err != nil {
			c.AbortWithStatus(http.StatusForbidden)
			return
		}

		user, err := sessions.LoadUser(c.Request.Context(), userID)
		if err != nil || !user.IsAdmin() {
			c.AbortWithStatus(http.StatusUnauthorized)
			return
		}

		SetIdentity(c, domain.AuthContext{UserID: user.ID})
		c.Next()
	}
}

// SoftAuth resolves a best-effort identity for event attribution and never
// rejects. When only the refresh token is usable, a fresh access token is
// issued and the session cookie rewritten. Downstream handlers must treat
// the attached identity as informational, never as authorization.
func SoftAuth(cookie *SessionCookie, sessions *usecase.SessionService) gin.HandlerFunc {
	return func(c *gin.Context) {
		accessToken, refreshToken, _ := cookie.Read(c)

		identity, reissued := sessions.ResolveSoftIdentity(c.Request.Context(), accessToken, refreshToken)
		if reissued != nil {
			cookie.Write(c, *reissued)
		}

		SetIdentity(c, identity)
		c.Next()
	}
}
