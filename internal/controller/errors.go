package controller

import (
	"errors"
	"net/http"

	"trademinutes-gateway/internal/conversation"
	"trademinutes-gateway/internal/middleware"
	"trademinutes-gateway/internal/service"
	"trademinutes-gateway/internal/session"
	"trademinutes-gateway/internal/taskform"
	"trademinutes-gateway/internal/upstream"
	"trademinutes-gateway/pkg/logger"

	"github.com/gin-gonic/gin"
)

// callerGone reports whether the client abandoned the request. Upstream
// timeouts are not caller cancellations and still get an error response.
func callerGone(c *gin.Context) bool {
	return c.Request.Context().Err() != nil
}

// currentSession returns the caller, answering 401 when the auth middleware did
// not run or rejected the request.
func currentSession(c *gin.Context) (session.Session, bool) {
	if v, ok := c.Get(middleware.SessionKey); ok {
		if s, ok := v.(session.Session); ok && s.Token != "" {
			return s, true
		}
	}
	c.JSON(http.StatusUnauthorized, gin.H{"error": "Unauthorized"})
	return session.Session{}, false
}

// pageError answers a failed page load. Upstream failures become 502 with
// message; a missing upstream record stays 404.
func pageError(c *gin.Context, err error, message string) {
	ctx := c.Request.Context()
	if callerGone(c) {
		return
	}
	switch {
	case errors.Is(err, service.ErrInvalidRole), errors.Is(err, service.ErrMissingTask):
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	if code, ok := upstream.HTTPStatusCode(err); ok && code == http.StatusNotFound {
		c.JSON(http.StatusNotFound, gin.H{"error": message})
		return
	}
	logger.Error(ctx, message, "error", err)
	c.JSON(http.StatusBadGateway, gin.H{"error": message})
}

// submitStatus maps a failed submission to an HTTP status. Upstream 4xx answers
// are forwarded; other upstream failures are 502.
func submitStatus(err error) int {
	var ve *taskform.ValidationError
	switch {
	case errors.As(err, &ve), conversation.IsValidation(err), errors.Is(err, service.ErrNotBookable):
		return http.StatusUnprocessableEntity
	case errors.Is(err, service.ErrAlreadyBooked):
		return http.StatusConflict
	case errors.Is(err, service.ErrMissingTask):
		return http.StatusBadRequest
	}
	if code, ok := upstream.HTTPStatusCode(err); ok && code >= 400 && code < 500 {
		return code
	}
	return http.StatusBadGateway
}

// submitError writes {error[, field], ...extra} for a failed submission. The
// upstream message is passed through verbatim.
func submitError(c *gin.Context, err error, extra gin.H) {
	body := gin.H{}
	for k, v := range extra {
		body[k] = v
	}
	var ve *taskform.ValidationError
	var se *conversation.StepError
	switch {
	case errors.As(err, &ve):
		body["error"] = ve.Message
		body["field"] = ve.Field
	case errors.As(err, &se):
		body["error"] = se.Error()
	default:
		body["error"] = upstream.Detail(err)
	}
	c.JSON(submitStatus(err), body)
}
