package server

import (
	"strconv"
	"strings"

	"github.com/bwmarrin/snowflake"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/propfolio/backend/pkg/telemetry/correlation"
	"github.com/propfolio/backend/pkg/tenantctx"
)

const (
	HeaderRequestID = "X-Request-ID"
	HeaderActor     = "X-User-ID"
	HeaderAccount   = "X-Account-ID"

	contextUserIDKey = "user_id"
)

// RequestID propagates the caller's request id or mints one, and binds a
// correlation id to the request context so logs and spans line up.
func RequestID() gin.HandlerFunc {
	return func(c *gin.Context) {
		requestID := strings.TrimSpace(c.GetHeader(HeaderRequestID))
		if requestID == "" {
			requestID = uuid.NewString()
		}
		c.Header(HeaderRequestID, requestID)

		ctx, _ := correlation.EnsureCorrelationID(c.Request.Context())
		c.Request = c.Request.WithContext(ctx)
		c.Next()
	}
}

// AuthRequired resolves the acting user from the gateway-injected identity
// header and binds it to the request context. Requests without an identity
// are rejected before any handler runs.
func (s *Server) AuthRequired() gin.HandlerFunc {
	return func(c *gin.Context) {
		raw := strings.TrimSpace(c.GetHeader(HeaderActor))
		if raw == "" {
			AbortWithError(c, ErrUnauthorized)
			return
		}

		userID, err := snowflake.ParseString(raw)
		if err != nil || userID == 0 {
			AbortWithError(c, ErrUnauthorized)
			return
		}

		c.Set(contextUserIDKey, userID.String())
		c.Request = c.Request.WithContext(tenantctx.WithUserID(c.Request.Context(), userID))
		c.Next()
	}
}

// RateLimited applies the per-user request bucket. Runs after AuthRequired
// so the bucket is keyed by the authenticated user.
func (s *Server) RateLimited() gin.HandlerFunc {
	return func(c *gin.Context) {
		if !s.limiter.Enabled() {
			c.Next()
			return
		}

		userID, ok := s.userIDFromContext(c)
		if !ok {
			c.Next()
			return
		}

		res := s.limiter.AllowUser(c.Request.Context(), userID)
		if !res.Allowed {
			if res.RetryAfter > 0 {
				c.Header("Retry-After", strconv.Itoa(int(res.RetryAfter.Seconds())+1))
			}
			AbortWithError(c, ErrTooManyRequests)
			return
		}
		c.Next()
	}
}

func (s *Server) userIDFromContext(c *gin.Context) (snowflake.ID, bool) {
	return tenantctx.UserID(c.Request.Context())
}
