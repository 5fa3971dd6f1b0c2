package handlers

import (
	"context"

	"github.com/afterposten/backend/internal/services"
	"github.com/afterposten/backend/pkg/response"
	"github.com/gin-gonic/gin"
)

// Pinger sends a connectivity ping to a publisher target.
type Pinger interface {
	TestPing(ctx context.Context, target *services.PublishTarget) *services.PingResult
}

type PublisherHandler struct {
	publisherService *services.PublisherService
	pinger           Pinger
}

func NewPublisherHandler(publisherService *services.PublisherService, pinger Pinger) *PublisherHandler {
	return &PublisherHandler{publisherService: publisherService, pinger: pinger}
}

// GET /api/publishers
func (h *PublisherHandler) List(c *gin.Context) {
	profiles, err := h.publisherService.List(c.Request.Context())
	if err != nil {
		handleError(c, err)
		return
	}
	response.Success(c, profiles)
}

// POST /api/publishers
func (h *PublisherHandler) Create(c *gin.Context) {
	var req services.CreatePublisherRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		bindError(c, err)
		return
	}
	profile, err := h.publisherService.Create(c.Request.Context(), &req)
	if err != nil {
		handleError(c, err)
		return
	}
	response.Created(c, profile)
}

// GET /api/publishers/:id
func (h *PublisherHandler) Get(c *gin.Context) {
	profile, err := h.publisherService.Get(c.Request.Context(), c.Param("id"))
	if err != nil {
		handleError(c, err)
		return
	}
	response.Success(c, profile)
}

// PUT /api/publishers/:id
func (h *PublisherHandler) Update(c *gin.Context) {
	var req services.UpdatePublisherRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		bindError(c, err)
		return
	}
	profile, err := h.publisherService.Update(c.Request.Context(), c.Param("id"), &req)
	if err != nil {
		handleError(c, err)
		return
	}
	response.Success(c, profile)
}

// DELETE /api/publishers/:id
func (h *PublisherHandler) Delete(c *gin.Context) {
	if err := h.publisherService.Delete(c.Request.Context(), c.Param("id")); err != nil {
		handleError(c, err)
		return
	}
	response.Success(c, nil)
}

// TestPing pings the webhook with the profile's auth
// POST /api/publishers/:id/test-ping
func (h *PublisherHandler) TestPing(c *gin.Context) {
	target, err := h.publisherService.GetTarget(c.Request.Context(), c.Param("id"))
	if err != nil {
		handleError(c, err)
		return
	}
	response.Success(c, h.pinger.TestPing(c.Request.Context(), target))
}
