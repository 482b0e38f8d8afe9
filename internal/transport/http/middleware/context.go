package middleware

import (
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/solovyshn/Blockly-for-Dwenguino/internal/core/domain"
)

const (
	// TraceIDHeader is the HTTP header name for trace ID
	TraceIDHeader = "X-Trace-ID"
	// TraceIDKey is the context key for trace ID
	TraceIDKey = "trace_id"
	// IdentityKey is the context key for the guard-resolved identity
	IdentityKey = "auth_context"
)

// EnrichContext adds a trace ID to each request.
func EnrichContext() gin.HandlerFunc {
	return func(c *gin.Context) {
		traceID := c.GetHeader(TraceIDHeader)
		if traceID == "" {
			traceID = uuid.NewString()
		}

		c.Set(TraceIDKey, traceID)
		c.Header(TraceIDHeader, traceID)

		c.Next()
	}
}

// GetTraceID retrieves the trace ID from the context
func GetTraceID(c *gin.Context) string {
	if traceID, exists := c.Get(TraceIDKey); exists {
		if id, ok := traceID.(string); ok {
			return id
		}
	}
	return ""
}

// SetIdentity stores the guard-resolved identity on the request.
func SetIdentity(c *gin.Context, identity domain.AuthContext) {
	c.Set(IdentityKey, identity)
}

// GetIdentity retrieves the identity a guard attached to the request. The
// zero value is returned when no guard ran or none could resolve a user.
func GetIdentity(c *gin.Context) domain.AuthContext {
	if val, exists := c.Get(IdentityKey); exists {
		if identity, ok := val.(domain.AuthContext); ok {
			return identity
		}
	}
	return domain.AuthContext{}
}
