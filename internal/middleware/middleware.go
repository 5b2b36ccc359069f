package middleware

import (
	"net/http"

	"trademinutes-gateway/internal/config"
	"trademinutes-gateway/internal/session"
	"trademinutes-gateway/pkg/logger"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

// SessionKey is the gin context key holding the caller's session.Session.
const SessionKey = "session"

// AuthMiddleware requires a valid bearer credential and stores the session on
// both the gin context and the request context.
func AuthMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		ctx := c.Request.Context()
		secret := config.Get().JWTSecret
		if secret == "" {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Server misconfiguration"})
			c.Abort()
			return
		}
		s, err := session.FromBearer(c.GetHeader("Authorization"), secret)
		if err != nil {
			logger.Debug(ctx, "Rejected bearer credential", "error", err)
			c.JSON(http.StatusUnauthorized, gin.H{"error": "Unauthorized"})
			c.Abort()
			return
		}
		ctx = logger.With(session.NewContext(ctx, s), "user_email", s.Email)
		c.Request = c.Request.WithContext(ctx)
		c.Set(SessionKey, s)
		c.Next()
	}
}

// RequestID propagates X-Request-ID (generating one when absent) and attaches it
// to the request logger.
func RequestID() gin.HandlerFunc {
	return func(c *gin.Context) {
		id := c.GetHeader("X-Request-ID")
		if id == "" {
			id = uuid.New().String()
		}
		c.Header("X-Request-ID", id)
		c.Request = c.Request.WithContext(logger.WithRequestID(c.Request.Context(), id))
		c.Next()
	}
}

// AccessLog logs one line per request after it completes.
func AccessLog() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Next()
		ctx := c.Request.Context()
		status := c.Writer.Status()
		args := []interface{}{"method", c.Request.Method, "path", c.FullPath(), "status", status}
		if status >= http.StatusInternalServerError {
			logger.Warn(ctx, "Request completed", args...)
			return
		}
		logger.Debug(ctx, "Request completed", args...)
	}
}
