package handlers

import (
	"github.com/afterposten/backend/internal/services"
	"github.com/afterposten/backend/pkg/response"
	"github.com/gin-gonic/gin"
)

type SchedulerHandler struct {
	ticker services.Ticker
	poller *services.Poller
}

func NewSchedulerHandler(ticker services.Ticker, poller *services.Poller) *SchedulerHandler {
	return &SchedulerHandler{ticker: ticker, poller: poller}
}

// Tick runs one scheduler tick right away. Safe alongside the poller since
// claims are exclusive.
// POST /api/scheduler/tick
func (h *SchedulerHandler) Tick(c *gin.Context) {
	result, err := h.ticker.Tick(c.Request.Context())
	if err != nil {
		handleError(c, err)
		return
	}
	response.Success(c, result)
}

// GET /api/scheduler/status
func (h *SchedulerHandler) Status(c *gin.Context) {
	if h.poller == nil {
		response.Success(c, services.PollerStatus{})
		return
	}
	response.Success(c, h.poller.Status())
}
