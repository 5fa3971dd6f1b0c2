package services

import (
	"sync"
	"time"
)

const (
	ScheduleEventRunning   = "running"
	ScheduleEventPublished = "published"
	ScheduleEventRetrying  = "retrying"
	ScheduleEventFailed    = "failed"
)

// ScheduleEvent is a live status update for one schedule.
type ScheduleEvent struct {
	ScheduleID    string     `json:"scheduleId"`
	PostID        string     `json:"postId"`
	Status        string     `json:"status"`
	Attempts      int        `json:"attempts"`
	NextAttemptAt *time.Time `json:"nextAttemptAt,omitempty"`
	Error         string     `json:"error,omitempty"`
	At            time.Time  `json:"at"`
}

// SSEHub fans schedule events out to connected stream clients.
type SSEHub struct {
	clients map[string]chan ScheduleEvent
	mu      sync.RWMutex
}

func NewSSEHub() *SSEHub {
	return &SSEHub{
		clients: make(map[string]chan ScheduleEvent),
	}
}

// Subscribe registers a client and returns its event channel.
func (h *SSEHub) Subscribe(clientID string) <-chan ScheduleEvent {
	h.mu.Lock()
	defer h.mu.Unlock()

	ch := make(chan ScheduleEvent, 100)
	h.clients[clientID] = ch
	return ch
}

func (h *SSEHub) Unsubscribe(clientID string) {
	h.mu.Lock()
	defer h.mu.Unlock()

	if ch, ok := h.clients[clientID]; ok {
		close(ch)
		delete(h.clients, clientID)
	}
}

// Publish sends an event to every client. A client whose buffer is full
// misses the event. A nil hub drops everything.
func (h *SSEHub) Publish(event ScheduleEvent) {
	if h == nil {
		return
	}
	h.mu.RLock()
	defer h.mu.RUnlock()

	for _, ch := range h.clients {
		select {
		case ch <- event:
		default:
		}
	}
}

func (h *SSEHub) ClientCount() int {
	if h == nil {
		return 0
	}
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}
