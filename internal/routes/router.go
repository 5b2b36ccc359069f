package routes

import (
	"time"

	"trademinutes-gateway/internal/config"
	"trademinutes-gateway/internal/controller"
	"trademinutes-gateway/internal/middleware"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
)

func Router(h *controller.Controller) *gin.Engine {
	cfg := config.Get()
	gin.SetMode(gin.ReleaseMode)
	router := gin.New()
	router.Use(gin.Recovery(), middleware.RequestID(), middleware.AccessLog())
	router.Use(cors.New(cors.Config{
		AllowOrigins:     cfg.CORSOrigins,
		AllowMethods:     []string{"GET", "POST", "OPTIONS"},
		AllowHeaders:     []string{"Origin", "Authorization", "Content-Type", "X-Request-ID"},
		ExposeHeaders:    []string{"Content-Length", "X-Request-ID"},
		AllowCredentials: true,
		MaxAge:           12 * time.Hour,
	}))

	// Health for load balancers and K8s probes
	router.GET("/health", controller.Health)
	router.GET("/ready", controller.Ready)

	// Protected: bearer credential required
	api := router.Group("/api")
	api.Use(middleware.RateLimit(cfg.RateLimitRPS, cfg.RateLimitBurst), middleware.AuthMiddleware())
	{
		api.GET("/appointments", h.GetAppointments)
		api.POST("/appointments/message", h.MessageOwner)

		api.GET("/tasks/categories", h.GetCategories)
		api.POST("/tasks", h.CreateTask)
		api.GET("/tasks/:id", h.GetTask)
		api.POST("/tasks/:id/book", h.BookTask)
		api.POST("/tasks/:id/message", h.MessageTaskOwner)

		api.GET("/geocode/suggest", h.SuggestAddress)
		api.GET("/conversations/handoff", h.TakeHandoff)
		api.GET("/activity", h.GetActivity)
	}

	return router
}
