package controller

import (
	"net/http"

	"trademinutes-gateway/internal/service"
	"trademinutes-gateway/internal/session"
	"trademinutes-gateway/pkg/logger"

	"github.com/gin-gonic/gin"
)

func (h *Controller) startConversation(c *gin.Context, s session.Session, in service.MessageInput) {
	res, err := h.GW.StartConversation(c.Request.Context(), s, in)
	if err != nil {
		if callerGone(c) {
			return
		}
		submitError(c, err, gin.H{"flow": res.Flow})
		return
	}
	c.JSON(http.StatusCreated, res)
}

// MessageOwner (auth): starts a conversation with an appointment's task owner.
func (h *Controller) MessageOwner(c *gin.Context) {
	s, ok := currentSession(c)
	if !ok {
		return
	}
	var body service.MessageInput
	if err := c.ShouldBindJSON(&body); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request", "details": err.Error()})
		return
	}
	h.startConversation(c, s, body)
}

// MessageTaskOwner (auth): starts a conversation with the task's owner.
func (h *Controller) MessageTaskOwner(c *gin.Context) {
	s, ok := currentSession(c)
	if !ok {
		return
	}
	var body struct {
		Content    string `json:"content"`
		SenderName string `json:"senderName"`
	}
	if err := c.ShouldBindJSON(&body); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request", "details": err.Error()})
		return
	}
	h.startConversation(c, s, service.MessageInput{
		TaskID:     c.Param("id"),
		Content:    body.Content,
		SenderName: body.SenderName,
	})
}

// TakeHandoff (auth): pops the conversation the messaging page should open.
// 204 when there is none.
func (h *Controller) TakeHandoff(c *gin.Context) {
	s, ok := currentSession(c)
	if !ok {
		return
	}
	ctx := c.Request.Context()
	id, found, err := h.GW.TakeHandoff(ctx, s)
	if err != nil {
		logger.Error(ctx, "Handoff lookup failed", "error", err)
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "Handoff unavailable"})
		return
	}
	if !found {
		c.Status(http.StatusNoContent)
		return
	}
	c.JSON(http.StatusOK, gin.H{"conversationId": id})
}
