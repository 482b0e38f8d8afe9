package middleware

import (
	"encoding/base64"
	"encoding/json"
	"strings"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/solovyshn/Blockly-for-Dwenguino/internal/core/domain"
	"github.com/solovyshn/Blockly-for-Dwenguino/internal/infra/config"
)

const (
	defaultCookieName = "dwengo"
	defaultCookieTTL  = 3 * time.Hour
	bearerPrefix      = "Bearer "
)

// sessionCookiePayload is the JSON document stored in the session cookie.
// The access token keeps its Bearer prefix in the payload.
type sessionCookiePayload struct {
	AccessToken  string `json:"accessToken"`
	RefreshToken string `json:"refreshToken"`
}

// SessionCookie encodes and decodes the browser session cookie. Its MaxAge
// times the user out of a browser session independently of refresh token
// validity, which has no lifetime of its own.
type SessionCookie struct {
	name   string
	ttl    time.Duration
	secure bool
}

// NewSessionCookie builds the cookie codec. The Secure flag is set only in
// the production environment.
func NewSessionCookie(cfg config.CookieSettings, env string) *SessionCookie {
	name := cfg.Name
	if name == "" {
		name = defaultCookieName
	}
	ttl := cfg.TTL
	if ttl <= 0 {
		ttl = defaultCookieTTL
	}

	return &SessionCookie{
		name:   name,
		ttl:    ttl,
		secure: env == "production",
	}
}

// Write sets the session cookie carrying the token pair.
func (s *SessionCookie) Write(c *gin.Context, pair domain.TokenPair) {
	payload := sessionCookiePayload{
		AccessToken:  bearerPrefix + pair.AccessToken,
		RefreshToken: pair.RefreshToken,
	}

	raw, err := json.Marshal(payload)
	if err != nil {
		return
	}

	value := base64.RawURLEncoding.EncodeToString(raw)
	c.SetCookie(s.name, value, int(s.ttl.Seconds()), "/", "", s.secure, true)
}

// Read extracts the token pair from the session cookie. The returned access
// token has its Bearer prefix stripped. ok is false when the cookie is
// missing or undecodable.
func (s *SessionCookie) Read(c *gin.Context) (accessToken, refreshToken string, ok bool) {
	value, err := c.Cookie(s.name)
	if err != nil || value == "" {
		return "", "", false
	}

	raw, err := base64.RawURLEncoding.DecodeString(value)
	if err != nil {
		return "", "", false
	}

	var payload sessionCookiePayload
	if err := json.Unmarshal(raw, &payload); err != nil {
		return "", "", false
	}

	accessToken = strings.TrimPrefix(payload.AccessToken, bearerPrefix)
	return accessToken, payload.RefreshToken, true
}

// Clear expires the session cookie.
func (s *SessionCookie) Clear(c *gin.Context) {
	c.SetCookie(s.name, "", -1, "/", "", s.secure, true)
}
