package services

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"
)

type countingTicker struct {
	calls atomic.Int32
	fail  bool
}

func (c *countingTicker) Tick(ctx context.Context) (*TickResult, error) {
	c.calls.Add(1)
	if c.fail {
		return nil, errors.New("settings unavailable")
	}
	return &TickResult{}, nil
}

func waitForCalls(t *testing.T, ticker *countingTicker, n int32) {
	t.Helper()
	deadline := time.Now().Add(5 * time.Second)
	for time.Now().Before(deadline) {
		if ticker.calls.Load() >= n {
			return
		}
		time.Sleep(50 * time.Millisecond)
	}
	t.Fatalf("expected at least %d ticks, got %d", n, ticker.calls.Load())
}

func TestPoller_StartStop(t *testing.T) {
	ticker := &countingTicker{}
	p := NewPoller(ticker, time.Second)

	if !p.Start() {
		t.Fatal("first Start() should return true")
	}
	if p.Start() {
		t.Error("second Start() should return false")
	}
	if !p.Running() {
		t.Error("poller should report running")
	}

	waitForCalls(t, ticker, 2)

	p.Stop()
	if p.Running() {
		t.Error("poller should report stopped")
	}
	after := ticker.calls.Load()
	time.Sleep(1500 * time.Millisecond)
	if ticker.calls.Load() != after {
		t.Error("no ticks should run after Stop()")
	}

	p.Stop()
}

func TestPoller_KeepsRunningAfterTickError(t *testing.T) {
	ticker := &countingTicker{fail: true}
	p := NewPoller(ticker, time.Second)
	p.Start()
	defer p.Stop()

	waitForCalls(t, ticker, 2)

	status := p.Status()
	if status.LastError == "" || status.LastTickAt == nil {
		t.Errorf("status should record the failed tick, got %+v", status)
	}
}

func TestPoller_Reschedule(t *testing.T) {
	p := NewPoller(&countingTicker{}, 10*time.Second)

	if err := p.Reschedule(500 * time.Millisecond); err == nil {
		t.Error("sub-second interval should be rejected")
	}
	if err := p.Reschedule(30 * time.Second); err != nil {
		t.Fatalf("Reschedule() error = %v", err)
	}
	if p.Status().IntervalSec != 30 {
		t.Errorf("IntervalSec = %d, expected 30", p.Status().IntervalSec)
	}

	ticker := &countingTicker{}
	running := NewPoller(ticker, time.Hour)
	running.Start()
	defer running.Stop()
	if err := running.Reschedule(time.Second); err != nil {
		t.Fatalf("Reschedule() error = %v", err)
	}
	waitForCalls(t, ticker, 1)
}
