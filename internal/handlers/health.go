package handlers

import (
	"net/http"

	"github.com/afterposten/backend/internal/services"
	"github.com/gin-gonic/gin"
	"gorm.io/gorm"
)

// HealthHandler reports the state of the database, the memory queue and the poller.
type HealthHandler struct {
	db     *gorm.DB
	queue  services.MemoryQueue
	poller *services.Poller
}

func NewHealthHandler(db *gorm.DB, queue services.MemoryQueue, poller *services.Poller) *HealthHandler {
	return &HealthHandler{db: db, queue: queue, poller: poller}
}

// CheckHealth returns the health status of all subsystems.
// GET /health
func (h *HealthHandler) CheckHealth(c *gin.Context) {
	overall := "healthy"
	status := http.StatusOK

	dbStatus := "ok"
	sqlDB, err := h.db.DB()
	if err == nil {
		err = sqlDB.PingContext(c.Request.Context())
	}
	if err != nil {
		dbStatus = "error: " + err.Error()
		overall = "unhealthy"
		status = http.StatusServiceUnavailable
	}

	queueMode := "sync"
	if h.queue != nil && h.queue.IsAsync() {
		queueMode = "async (Redis)"
	}

	c.JSON(status, gin.H{
		"status":  overall,
		"service": "afterposten",
		"components": gin.H{
			"database":       dbStatus,
			"queue_mode":     queueMode,
			"poller_running": h.poller != nil && h.poller.Running(),
		},
	})
}
