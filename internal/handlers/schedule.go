package handlers

import (
	"github.com/afterposten/backend/internal/services"
	"github.com/afterposten/backend/pkg/response"
	"github.com/gin-gonic/gin"
)

type ScheduleHandler struct {
	scheduleService *services.ScheduleService
	runService      *services.PublishRunService
}

func NewScheduleHandler(scheduleService *services.ScheduleService, runService *services.PublishRunService) *ScheduleHandler {
	return &ScheduleHandler{scheduleService: scheduleService, runService: runService}
}

// Schedule creates a schedule from a local wall-clock time
// POST /api/posts/:id/schedule
func (h *ScheduleHandler) Schedule(c *gin.Context) {
	var req services.SchedulePostRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		bindError(c, err)
		return
	}
	sched, err := h.scheduleService.SchedulePost(c.Request.Context(), c.Param("id"), &req)
	if err != nil {
		handleError(c, err)
		return
	}
	response.Created(c, sched)
}

// GET /api/posts/:id/schedules
func (h *ScheduleHandler) ListByPost(c *gin.Context) {
	schedules, err := h.scheduleService.ListByPost(c.Request.Context(), c.Param("id"))
	if err != nil {
		handleError(c, err)
		return
	}
	response.Success(c, schedules)
}

// DELETE /api/schedules/:id
func (h *ScheduleHandler) Cancel(c *gin.Context) {
	if err := h.scheduleService.Cancel(c.Request.Context(), c.Param("id")); err != nil {
		handleError(c, err)
		return
	}
	response.Success(c, nil)
}

// GET /api/posts/:id/publish-runs
func (h *ScheduleHandler) ListRuns(c *gin.Context) {
	runs, err := h.runService.ListByPost(c.Request.Context(), c.Param("id"))
	if err != nil {
		handleError(c, err)
		return
	}
	response.Success(c, runs)
}
