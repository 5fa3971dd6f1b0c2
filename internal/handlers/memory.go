package handlers

import (
	"strconv"

	"github.com/afterposten/backend/internal/services"
	"github.com/afterposten/backend/pkg/response"
	"github.com/gin-gonic/gin"
)

type MemoryHandler struct {
	memoryService *services.MemoryService
}

func NewMemoryHandler(memoryService *services.MemoryService) *MemoryHandler {
	return &MemoryHandler{memoryService: memoryService}
}

// GET /api/memory?limit=20
func (h *MemoryHandler) List(c *gin.Context) {
	limit, _ := strconv.Atoi(c.DefaultQuery("limit", "20"))
	posts, err := h.memoryService.ListLearned(c.Request.Context(), limit)
	if err != nil {
		handleError(c, err)
		return
	}
	response.Success(c, posts)
}
