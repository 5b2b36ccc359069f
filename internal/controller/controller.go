package controller

import (
	"context"
	"errors"
	"net/http"
	"strconv"
	"time"

	"trademinutes-gateway/internal/cache"
	"trademinutes-gateway/internal/config"
	"trademinutes-gateway/internal/database"
	"trademinutes-gateway/internal/models"
	"trademinutes-gateway/internal/repository"
	"trademinutes-gateway/internal/service"

	"github.com/gin-gonic/gin"
)

// Controller serves the page endpoints.
type Controller struct {
	GW *service.Gateway
}

// New returns a controller over gw.
func New(gw *service.Gateway) *Controller {
	return &Controller{GW: gw}
}

// Health returns 200 if the process is alive. Used by load balancers.
func Health(c *gin.Context) {
	c.String(http.StatusOK, "OK")
}

// Ready returns 200 when the database, if one is configured, is reachable.
// Redis only backs caches and the handoff, so its state is reported without
// marking the gateway not ready.
func Ready(c *gin.Context) {
	ctx, cancel := context.WithTimeout(c.Request.Context(), 2*time.Second)
	defer cancel()
	redisState := "ok"
	if rdb := cache.Client(ctx); rdb == nil || rdb.Ping(ctx).Err() != nil {
		redisState = "unavailable"
	}
	if config.Get().DatabaseURL != "" {
		db := database.DB(ctx)
		if db == nil {
			c.JSON(http.StatusServiceUnavailable, gin.H{"status": "database unavailable", "redis": redisState})
			return
		}
		if err := db.PingContext(ctx); err != nil {
			c.JSON(http.StatusServiceUnavailable, gin.H{"status": "database ping failed", "redis": redisState})
			return
		}
	}
	c.JSON(http.StatusOK, gin.H{"status": "ok", "redis": redisState})
}

// GetAppointments (auth): the caller's bookings in ?role= (owner by default),
// enriched and split into upcoming and past.
func (h *Controller) GetAppointments(c *gin.Context) {
	s, ok := currentSession(c)
	if !ok {
		return
	}
	list, err := h.GW.Appointments(c.Request.Context(), s, c.Query("role"))
	if err != nil {
		pageError(c, err, "Failed to load appointments")
		return
	}
	c.JSON(http.StatusOK, list)
}

// GetCategories (auth): task categories for the creation form.
func (h *Controller) GetCategories(c *gin.Context) {
	s, ok := currentSession(c)
	if !ok {
		return
	}
	cats, err := h.GW.Categories(c.Request.Context(), s)
	if err != nil {
		pageError(c, err, "Failed to load categories")
		return
	}
	c.JSON(http.StatusOK, gin.H{"categories": cats})
}

// SuggestAddress (auth): address autocompletion for ?q=.
func (h *Controller) SuggestAddress(c *gin.Context) {
	if _, ok := currentSession(c); !ok {
		return
	}
	out, err := h.GW.Suggest(c.Request.Context(), c.Query("q"))
	if err != nil {
		pageError(c, err, "Failed to fetch locations")
		return
	}
	c.JSON(http.StatusOK, gin.H{"suggestions": out})
}

// CreateTask (auth): validates and submits a new task, returns 201 with its id.
func (h *Controller) CreateTask(c *gin.Context) {
	s, ok := currentSession(c)
	if !ok {
		return
	}
	var body models.TaskInput
	if err := c.ShouldBindJSON(&body); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request", "details": err.Error()})
		return
	}
	id, err := h.GW.CreateTask(c.Request.Context(), s, body)
	if err != nil {
		if callerGone(c) {
			return
		}
		if submitStatus(err) == http.StatusUnprocessableEntity {
			submitError(c, err, nil)
			return
		}
		c.JSON(http.StatusBadGateway, gin.H{"error": "Failed to create task"})
		return
	}
	c.JSON(http.StatusCreated, gin.H{"id": id, "message": "Task created"})
}

// GetTask (auth): a task with the caller's booking guard.
func (h *Controller) GetTask(c *gin.Context) {
	s, ok := currentSession(c)
	if !ok {
		return
	}
	detail, err := h.GW.TaskDetail(c.Request.Context(), s, c.Param("id"))
	if err != nil {
		pageError(c, err, "Task not found")
		return
	}
	c.JSON(http.StatusOK, detail)
}

// BookTask (auth): books the task's first availability for the caller.
func (h *Controller) BookTask(c *gin.Context) {
	s, ok := currentSession(c)
	if !ok {
		return
	}
	res, err := h.GW.Book(c.Request.Context(), s, c.Param("id"))
	if err != nil {
		if callerGone(c) {
			return
		}
		submitError(c, err, gin.H{"flow": res.Flow})
		return
	}
	c.JSON(http.StatusCreated, res)
}

// GetActivity (auth): the caller's recent actions, newest first. Supports ?limit=N.
func (h *Controller) GetActivity(c *gin.Context) {
	s, ok := currentSession(c)
	if !ok {
		return
	}
	ctx := c.Request.Context()
	limit, _ := strconv.Atoi(c.DefaultQuery("limit", "0"))
	items, err := h.GW.Activity(ctx, s, limit)
	if err != nil {
		if errors.Is(err, repository.ErrUnavailable) {
			c.JSON(http.StatusServiceUnavailable, gin.H{"error": "Activity feed unavailable"})
			return
		}
		pageError(c, err, "Failed to load activity")
		return
	}
	c.JSON(http.StatusOK, gin.H{"activity": items})
}
