package services

import (
	"context"
	"errors"
	"time"

	"github.com/afterposten/backend/internal/config"
	"github.com/afterposten/backend/pkg/logger"
	"github.com/bsm/redislock"
	"github.com/redis/go-redis/v9"
)

const tickLockKey = "afterposten:lock:scheduler-tick"

// LockedTicker lets one instance at a time run a tick when several share a
// Redis. Claims stay exclusive without it, so a Redis error only costs the
// lock and the tick runs anyway.
type LockedTicker struct {
	inner  Ticker
	locker *redislock.Client
	ttl    time.Duration
}

func NewLockedTicker(inner Ticker, rdb redis.UniversalClient, ttl time.Duration) *LockedTicker {
	if ttl <= 0 {
		ttl = tickTimeout
	}
	return &LockedTicker{inner: inner, locker: redislock.New(rdb), ttl: ttl}
}

// NewRedisClient builds the client shared by the tick lock.
func NewRedisClient(cfg *config.RedisConfig) *redis.Client {
	return redis.NewClient(&redis.Options{
		Addr:     cfg.Addr,
		Password: cfg.Password,
		DB:       cfg.DB,
	})
}

func (t *LockedTicker) Tick(ctx context.Context) (*TickResult, error) {
	lock, err := t.locker.Obtain(ctx, tickLockKey, t.ttl, nil)
	if errors.Is(err, redislock.ErrNotObtained) {
		logger.Debug().Msg("[Scheduler] Tick lock held elsewhere, skipping")
		return &TickResult{Errors: []string{}, Skipped: true}, nil
	}
	if err != nil {
		logger.Warn().Err(err).Msg("[Scheduler] Tick lock unavailable, ticking without it")
		return t.inner.Tick(ctx)
	}
	defer func() {
		if err := lock.Release(context.WithoutCancel(ctx)); err != nil && !errors.Is(err, redislock.ErrLockNotHeld) {
			logger.Warn().Err(err).Msg("[Scheduler] Failed to release tick lock")
		}
	}()

	return t.inner.Tick(ctx)
}
