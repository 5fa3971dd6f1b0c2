package handlers

import (
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"

	"github.com/afterposten/backend/internal/services"
	"github.com/afterposten/backend/internal/utils"
	"github.com/afterposten/backend/pkg/logger"
	"github.com/afterposten/backend/pkg/response"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

// EventsHandler streams schedule status changes as Server-Sent Events.
type EventsHandler struct {
	hub         *services.SSEHub
	issuer      *utils.TokenIssuer
	authEnabled bool
}

func NewEventsHandler(hub *services.SSEHub, issuer *utils.TokenIssuer, authEnabled bool) *EventsHandler {
	return &EventsHandler{hub: hub, issuer: issuer, authEnabled: authEnabled}
}

// StreamScheduleEvents accepts the token as ?token= since EventSource cannot
// send headers. ?postId= narrows the stream to one post.
// GET /api/events/schedules
func (h *EventsHandler) StreamScheduleEvents(c *gin.Context) {
	if h.authEnabled {
		token := c.Query("token")
		if token == "" {
			authHeader := c.GetHeader("Authorization")
			if strings.HasPrefix(authHeader, "Bearer ") {
				token = strings.TrimPrefix(authHeader, "Bearer ")
			}
		}
		if token == "" {
			response.Unauthorized(c, "Unauthorized")
			return
		}
		if _, err := h.issuer.Parse(token); err != nil {
			response.Unauthorized(c, "Invalid token")
			return
		}
	}

	postID := c.Query("postId")

	c.Header("Content-Type", "text/event-stream")
	c.Header("Cache-Control", "no-cache")
	c.Header("Connection", "keep-alive")
	c.Header("X-Accel-Buffering", "no")

	clientID := uuid.New().String()
	events := h.hub.Subscribe(clientID)
	defer h.hub.Unsubscribe(clientID)

	logger.Info().Str("client_id", clientID).Int("total", h.hub.ClientCount()).Msg("SSE client connected")

	// send headers now so clients see the stream open before the first event
	c.Status(http.StatusOK)
	c.Writer.Flush()

	c.Stream(func(w io.Writer) bool {
		select {
		case event, ok := <-events:
			if !ok {
				return false
			}
			if postID != "" && event.PostID != postID {
				return true
			}
			data, err := json.Marshal(event)
			if err != nil {
				logger.Error().Err(err).Msg("SSE marshal error")
				return true
			}
			fmt.Fprintf(w, "event: schedule\ndata: %s\n\n", data)
			c.Writer.Flush()
			return true
		case <-c.Request.Context().Done():
			logger.Info().Str("client_id", clientID).Msg("SSE client disconnected")
			return false
		}
	})
}
