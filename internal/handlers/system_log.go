package handlers

import (
	"github.com/afterposten/backend/internal/services"
	"github.com/afterposten/backend/pkg/response"
	"github.com/gin-gonic/gin"
)

type SystemLogHandler struct {
	systemLogService *services.SystemLogService
	configService    *services.SystemConfigService
}

func NewSystemLogHandler(systemLogService *services.SystemLogService, configService *services.SystemConfigService) *SystemLogHandler {
	return &SystemLogHandler{systemLogService: systemLogService, configService: configService}
}

// GET /api/system-logs
func (h *SystemLogHandler) List(c *gin.Context) {
	var req services.SystemLogListRequest
	if err := c.ShouldBindQuery(&req); err != nil {
		bindError(c, err)
		return
	}

	resp, err := h.systemLogService.List(c.Request.Context(), &req)
	if err != nil {
		handleError(c, err)
		return
	}
	response.Success(c, resp)
}

// GET /api/system-logs/modules
func (h *SystemLogHandler) GetModules(c *gin.Context) {
	modules, err := h.systemLogService.GetModules(c.Request.Context())
	if err != nil {
		handleError(c, err)
		return
	}
	response.Success(c, gin.H{"modules": modules})
}

// Cleanup deletes logs older than the retention setting
// POST /api/system-logs/cleanup
func (h *SystemLogHandler) Cleanup(c *gin.Context) {
	settings, err := h.configService.GetSettings(c.Request.Context())
	if err != nil {
		handleError(c, err)
		return
	}
	deleted, err := h.systemLogService.CleanupOldLogs(c.Request.Context(), settings.LogRetentionDays)
	if err != nil {
		handleError(c, err)
		return
	}
	response.Success(c, gin.H{"deleted": deleted, "retentionDays": settings.LogRetentionDays})
}
