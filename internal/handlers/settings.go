package handlers

import (
	"time"

	"github.com/afterposten/backend/internal/services"
	"github.com/afterposten/backend/pkg/logger"
	"github.com/afterposten/backend/pkg/response"
	"github.com/gin-gonic/gin"
)

type Rescheduler interface {
	Reschedule(interval time.Duration) error
}

type SettingsHandler struct {
	configService *services.SystemConfigService
	poller        Rescheduler
}

func NewSettingsHandler(configService *services.SystemConfigService, poller Rescheduler) *SettingsHandler {
	return &SettingsHandler{configService: configService, poller: poller}
}

// GET /api/settings
func (h *SettingsHandler) Get(c *gin.Context) {
	settings, err := h.configService.GetSettings(c.Request.Context())
	if err != nil {
		handleError(c, err)
		return
	}
	response.Success(c, settings)
}

// Update applies a partial update; a new poll interval takes effect on the
// running poller immediately.
// PUT /api/settings
func (h *SettingsHandler) Update(c *gin.Context) {
	var req services.UpdateSettingsRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		bindError(c, err)
		return
	}

	settings, err := h.configService.UpdateSettings(c.Request.Context(), &req)
	if err != nil {
		handleError(c, err)
		return
	}

	if req.SchedulerPollIntervalSec != nil && h.poller != nil {
		interval := time.Duration(settings.SchedulerPollIntervalSec) * time.Second
		if err := h.poller.Reschedule(interval); err != nil {
			logger.Warn().Err(err).Msg("[Settings] Failed to reschedule poller")
		}
	}
	response.Success(c, settings)
}
