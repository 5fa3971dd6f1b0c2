package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
)

func newLimitedRouter(rl *RateLimiter) *gin.Engine {
	router := gin.New()
	router.Use(rl.Middleware())
	router.POST("/tick", func(c *gin.Context) {
		c.JSON(200, gin.H{"status": "ok"})
	})
	return router
}

func sendFrom(router *gin.Engine, addr string) int {
	w := httptest.NewRecorder()
	req, _ := http.NewRequest("POST", "/tick", nil)
	req.RemoteAddr = addr
	router.ServeHTTP(w, req)
	return w.Code
}

func TestRateLimit_BurstThenBlock(t *testing.T) {
	rl := NewRateLimiter(1, 2)
	defer rl.Stop()
	router := newLimitedRouter(rl)

	codes := make([]int, 0, 4)
	for i := 0; i < 4; i++ {
		codes = append(codes, sendFrom(router, "10.0.0.1:12345"))
	}

	if codes[0] != http.StatusOK || codes[1] != http.StatusOK {
		t.Errorf("burst requests should pass, got %v", codes)
	}
	if codes[3] != http.StatusTooManyRequests {
		t.Errorf("expected %d after burst exceeded, got %v", http.StatusTooManyRequests, codes)
	}
}

func TestRateLimit_IndependentPerIP(t *testing.T) {
	rl := NewRateLimiter(1, 1)
	defer rl.Stop()
	router := newLimitedRouter(rl)

	if code := sendFrom(router, "10.0.0.1:12345"); code != http.StatusOK {
		t.Errorf("IP1 first request: expected %d, got %d", http.StatusOK, code)
	}
	if code := sendFrom(router, "10.0.0.1:12345"); code != http.StatusTooManyRequests {
		t.Errorf("IP1 second request: expected %d, got %d", http.StatusTooManyRequests, code)
	}
	if code := sendFrom(router, "10.0.0.2:12345"); code != http.StatusOK {
		t.Errorf("IP2 first request: expected %d, got %d", http.StatusOK, code)
	}
}

func TestRateLimiter_Evict(t *testing.T) {
	rl := NewRateLimiter(1, 1)
	defer rl.Stop()

	rl.getLimiter("10.0.0.1")
	rl.limiters["10.0.0.1"].lastSeen = time.Now().Add(-time.Hour)
	rl.getLimiter("10.0.0.2")

	rl.evict(5 * time.Minute)

	if _, ok := rl.limiters["10.0.0.1"]; ok {
		t.Error("stale IP should be evicted")
	}
	if _, ok := rl.limiters["10.0.0.2"]; !ok {
		t.Error("recent IP should be kept")
	}

	rl.Stop()
}
