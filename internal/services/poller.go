package services

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/afterposten/backend/pkg/logger"
	"github.com/robfig/cron/v3"
)

// tickTimeout bounds a single tick; each schedule's lock is far shorter.
const tickTimeout = 10 * LockDuration

// Ticker is what the poller drives.
type Ticker interface {
	Tick(ctx context.Context) (*TickResult, error)
}

type PollerStatus struct {
	Running     bool        `json:"running"`
	IntervalSec int         `json:"intervalSec"`
	LastTickAt  *time.Time  `json:"lastTickAt"`
	LastResult  *TickResult `json:"lastResult"`
	LastError   string      `json:"lastError,omitempty"`
}

// Poller runs ticks on a fixed interval. Ticks never overlap; a tick error is
// logged and the poller keeps going.
type Poller struct {
	mu       sync.Mutex
	ticker   Ticker
	interval time.Duration
	cron     *cron.Cron
	entry    cron.EntryID
	running  bool

	lastMu     sync.Mutex
	lastTickAt *time.Time
	lastResult *TickResult
	lastErr    string
}

func NewPoller(ticker Ticker, interval time.Duration) *Poller {
	if interval <= 0 {
		interval = defaultPollIntervalSec * time.Second
	}
	return &Poller{ticker: ticker, interval: interval}
}

// Start begins polling. It returns false when the poller is already running.
func (p *Poller) Start() bool {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.running {
		logger.Infof("[Poller] Already running")
		return false
	}

	cl := logger.CronLogger()
	p.cron = cron.New(
		cron.WithLogger(cl),
		cron.WithChain(cron.Recover(cl), cron.SkipIfStillRunning(cl)),
	)
	entry, err := p.cron.AddFunc(spec(p.interval), p.runTick)
	if err != nil {
		logger.Errorf("[Poller] Invalid interval %s: %v", p.interval, err)
		return false
	}
	p.entry = entry
	p.cron.Start()
	p.running = true

	logger.Infof("[Poller] Started, interval: %s", p.interval)
	return true
}

// Stop halts polling and waits for an in-flight tick. Safe when idle.
func (p *Poller) Stop() {
	p.mu.Lock()
	if !p.running {
		p.mu.Unlock()
		return
	}
	c := p.cron
	p.cron = nil
	p.running = false
	p.mu.Unlock()

	<-c.Stop().Done()
	logger.Infof("[Poller] Stopped")
}

// Reschedule changes the interval, swapping the cron entry when running.
func (p *Poller) Reschedule(interval time.Duration) error {
	if interval < time.Second {
		return fmt.Errorf("poll interval must be at least 1s, got %s", interval)
	}

	p.mu.Lock()
	defer p.mu.Unlock()

	if interval == p.interval {
		return nil
	}
	p.interval = interval
	if !p.running {
		return nil
	}

	entry, err := p.cron.AddFunc(spec(interval), p.runTick)
	if err != nil {
		return err
	}
	p.cron.Remove(p.entry)
	p.entry = entry
	logger.Infof("[Poller] Rescheduled, interval: %s", interval)
	return nil
}

func (p *Poller) Running() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.running
}

func (p *Poller) Status() PollerStatus {
	p.mu.Lock()
	status := PollerStatus{Running: p.running, IntervalSec: int(p.interval / time.Second)}
	p.mu.Unlock()

	p.lastMu.Lock()
	defer p.lastMu.Unlock()
	status.LastTickAt = p.lastTickAt
	status.LastResult = p.lastResult
	status.LastError = p.lastErr
	return status
}

func (p *Poller) runTick() {
	ctx, cancel := context.WithTimeout(context.Background(), tickTimeout)
	defer cancel()

	result, err := p.ticker.Tick(ctx)
	now := time.Now().UTC()

	p.lastMu.Lock()
	p.lastTickAt = &now
	if err != nil {
		p.lastErr = err.Error()
	} else {
		p.lastErr = ""
		p.lastResult = result
	}
	p.lastMu.Unlock()

	if err != nil {
		logger.Error().Err(err).Msg("[Poller] Tick failed")
		return
	}
	if len(result.Errors) > 0 {
		logger.Warn().Strs("errors", result.Errors).Msg("[Poller] Tick finished with errors")
	}
}

func spec(interval time.Duration) string {
	return "@every " + interval.String()
}
