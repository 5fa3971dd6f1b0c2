package handlers

import (
	"bufio"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/afterposten/backend/internal/services"
	"github.com/afterposten/backend/internal/utils"
	"github.com/gin-gonic/gin"
)

func newEventsServer(t *testing.T, hub *services.SSEHub, issuer *utils.TokenIssuer, enabled bool) *httptest.Server {
	t.Helper()
	router := gin.New()
	router.GET("/api/events/schedules", NewEventsHandler(hub, issuer, enabled).StreamScheduleEvents)
	srv := httptest.NewServer(router)
	t.Cleanup(srv.Close)
	return srv
}

func TestStreamScheduleEvents_RejectsMissingOrBadToken(t *testing.T) {
	issuer := utils.NewTokenIssuer("s", 1)
	srv := newEventsServer(t, services.NewSSEHub(), issuer, true)

	for _, query := range []string{"", "?token=garbage"} {
		resp, err := http.Get(srv.URL + "/api/events/schedules" + query)
		if err != nil {
			t.Fatal(err)
		}
		resp.Body.Close()
		if resp.StatusCode != http.StatusUnauthorized {
			t.Errorf("query %q: expected 401, got %d", query, resp.StatusCode)
		}
	}
}

func waitForClients(t *testing.T, hub *services.SSEHub, n int) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for hub.ClientCount() < n {
		if time.Now().After(deadline) {
			t.Fatalf("timed out waiting for %d SSE clients", n)
		}
		time.Sleep(10 * time.Millisecond)
	}
}

func TestStreamScheduleEvents_DeliversFilteredEvents(t *testing.T) {
	issuer := utils.NewTokenIssuer("s", 1)
	token, err := issuer.Generate("admin", "admin")
	if err != nil {
		t.Fatal(err)
	}
	hub := services.NewSSEHub()
	srv := newEventsServer(t, hub, issuer, true)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	req, _ := http.NewRequestWithContext(ctx, http.MethodGet, srv.URL+"/api/events/schedules?postId=p2&token="+token, nil)
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatal(err)
	}
	defer resp.Body.Close()
	if ct := resp.Header.Get("Content-Type"); !strings.HasPrefix(ct, "text/event-stream") {
		t.Fatalf("Content-Type = %q", ct)
	}

	waitForClients(t, hub, 1)
	hub.Publish(services.ScheduleEvent{ScheduleID: "s1", PostID: "p1", Status: services.ScheduleEventRunning})
	hub.Publish(services.ScheduleEvent{ScheduleID: "s2", PostID: "p2", Status: services.ScheduleEventPublished})

	reader := bufio.NewReader(resp.Body)
	for {
		line, err := reader.ReadString('\n')
		if err != nil {
			t.Fatalf("read stream: %v", err)
		}
		if !strings.HasPrefix(line, "data: ") {
			continue
		}
		var event services.ScheduleEvent
		if err := json.Unmarshal([]byte(strings.TrimPrefix(strings.TrimSpace(line), "data: ")), &event); err != nil {
			t.Fatalf("decode event: %v", err)
		}
		if event.ScheduleID != "s2" || event.Status != services.ScheduleEventPublished {
			t.Errorf("expected only the p2 event, got %+v", event)
		}
		return
	}
}

func TestStreamScheduleEvents_AuthDisabled(t *testing.T) {
	hub := services.NewSSEHub()
	srv := newEventsServer(t, hub, utils.NewTokenIssuer("s", 1), false)

	ctx, cancel := context.WithCancel(context.Background())
	req, _ := http.NewRequestWithContext(ctx, http.MethodGet, srv.URL+"/api/events/schedules", nil)
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatal(err)
	}
	if resp.StatusCode != http.StatusOK {
		t.Errorf("expected 200 with auth disabled, got %d", resp.StatusCode)
	}
	waitForClients(t, hub, 1)
	cancel()
	resp.Body.Close()
}
