package main

import (
	"github.com/afterposten/backend/internal/config"
	"github.com/afterposten/backend/internal/handlers"
	"github.com/afterposten/backend/internal/middleware"
	"github.com/afterposten/backend/pkg/logger"
	"github.com/gin-gonic/gin"
)

// registerRoutes sets up all HTTP routes on the given Gin engine.
func registerRoutes(r *gin.Engine, cfg *config.Config, svc *appServices) {
	r.Use(logger.GinLogger(), logger.GinRecovery())
	r.Use(middleware.CORS(cfg.Server.CORSOrigins))

	healthHandler := handlers.NewHealthHandler(svc.db, svc.memoryQueue, svc.poller)
	r.GET("/health", healthHandler.CheckHealth)

	authHandler := handlers.NewAuthHandler(svc.auth)
	postHandler := handlers.NewPostHandler(svc.posts)
	scheduleHandler := handlers.NewScheduleHandler(svc.schedules, svc.runs)
	publisherHandler := handlers.NewPublisherHandler(svc.publishers, svc.sink)
	settingsHandler := handlers.NewSettingsHandler(svc.settings, svc.poller)
	schedulerHandler := handlers.NewSchedulerHandler(svc.ticker, svc.poller)
	memoryHandler := handlers.NewMemoryHandler(svc.memory)
	systemLogHandler := handlers.NewSystemLogHandler(svc.systemLogs, svc.settings)
	eventsHandler := handlers.NewEventsHandler(svc.events, svc.auth.Issuer(), svc.auth.Enabled())

	api := r.Group("/api")
	api.Use(middleware.AuditLog(svc.systemLogs))
	{
		// Auth routes (public)
		auth := api.Group("/auth")
		{
			auth.POST("/login", authHandler.Login)
			auth.GET("/config", authHandler.GetAuthConfig)
		}

		// SSE checks its own token so EventSource can pass it as a query param
		api.GET("/events/schedules", eventsHandler.StreamScheduleEvents)

		protected := api.Group("")
		protected.Use(middleware.AuthRequired(svc.auth.Issuer(), svc.auth.Enabled()))
		{
			// Posts
			protected.GET("/posts", postHandler.List)
			protected.POST("/posts", postHandler.Create)
			protected.GET("/posts/:id", postHandler.Get)
			protected.PUT("/posts/:id", postHandler.Update)
			protected.DELETE("/posts/:id", postHandler.Delete)
			protected.GET("/posts/:id/drafts", postHandler.ListDrafts)
			protected.POST("/posts/:id/drafts", postHandler.CreateDraft)
			protected.DELETE("/drafts/:id", postHandler.DeleteDraft)
			protected.POST("/posts/:id/assets", postHandler.CreateAsset)
			protected.PUT("/assets/:id/alt-text", postHandler.UpdateAssetAltText)
			protected.DELETE("/assets/:id", postHandler.DeleteAsset)

			// Schedules
			protected.POST("/posts/:id/schedule", scheduleHandler.Schedule)
			protected.GET("/posts/:id/schedules", scheduleHandler.ListByPost)
			protected.GET("/posts/:id/publish-runs", scheduleHandler.ListRuns)
			protected.DELETE("/schedules/:id", scheduleHandler.Cancel)

			// Publishers
			protected.GET("/publishers", publisherHandler.List)
			protected.POST("/publishers", publisherHandler.Create)
			protected.GET("/publishers/:id", publisherHandler.Get)
			protected.PUT("/publishers/:id", publisherHandler.Update)
			protected.DELETE("/publishers/:id", publisherHandler.Delete)
			protected.POST("/publishers/:id/test-ping", svc.tickLimiter.Middleware(), publisherHandler.TestPing)

			// Settings
			protected.GET("/settings", settingsHandler.Get)
			protected.PUT("/settings", settingsHandler.Update)

			// Scheduler
			protected.POST("/scheduler/tick", svc.tickLimiter.Middleware(), schedulerHandler.Tick)
			protected.GET("/scheduler/status", schedulerHandler.Status)

			// Memory
			protected.GET("/memory", memoryHandler.List)

			// System Logs
			protected.GET("/system-logs", systemLogHandler.List)
			protected.GET("/system-logs/modules", systemLogHandler.GetModules)
			protected.POST("/system-logs/cleanup", systemLogHandler.Cleanup)
		}
	}
}
