package services

import (
	"context"
	"encoding/json"
	"time"

	"github.com/afterposten/backend/internal/config"
	"github.com/afterposten/backend/pkg/logger"
	"github.com/hibiken/asynq"
)

const (
	TaskTypeMemoryIngest = "memory:ingest"

	memoryIngestTimeout = 30 * time.Second
)

// MemoryQueue hands published content to the memory service without
// blocking the caller.
type MemoryQueue interface {
	LearningHook
	// IsAsync returns true if the queue is backed by Redis
	IsAsync() bool
	Close() error
}

// NewMemoryQueue picks the Redis queue when enabled and reachable, else the
// in-process queue.
func NewMemoryQueue(cfg *config.RedisConfig, memory *MemoryService) MemoryQueue {
	if cfg.Enabled {
		queue, err := NewAsyncMemoryQueue(cfg)
		if err != nil {
			logger.Infof("[TaskQueue] Redis unavailable, falling back to sync mode: %v", err)
			return NewSyncMemoryQueue(memory)
		}
		logger.Infof("[TaskQueue] Async queue initialized with Redis at %s", cfg.Addr)
		return queue
	}
	logger.Infof("[TaskQueue] Sync queue initialized (Redis disabled)")
	return NewSyncMemoryQueue(memory)
}

func redisOpt(cfg *config.RedisConfig) asynq.RedisClientOpt {
	return asynq.RedisClientOpt{
		Addr:     cfg.Addr,
		Password: cfg.Password,
		DB:       cfg.DB,
	}
}

// AsyncMemoryQueue implements MemoryQueue using asynq (Redis-based)
type AsyncMemoryQueue struct {
	client *asynq.Client
}

func NewAsyncMemoryQueue(cfg *config.RedisConfig) (*AsyncMemoryQueue, error) {
	opt := redisOpt(cfg)
	client := asynq.NewClient(opt)

	inspector := asynq.NewInspector(opt)
	defer inspector.Close()

	if _, err := inspector.Queues(); err != nil {
		client.Close()
		return nil, err
	}

	return &AsyncMemoryQueue{client: client}, nil
}

func (q *AsyncMemoryQueue) IngestPublishedContent(ctx context.Context, content PublishedContent) bool {
	payload, err := json.Marshal(content)
	if err != nil {
		return false
	}

	info, err := q.client.EnqueueContext(ctx, asynq.NewTask(TaskTypeMemoryIngest, payload),
		asynq.Queue("default"),
		asynq.MaxRetry(3),
		asynq.Timeout(memoryIngestTimeout),
	)
	if err != nil {
		logger.Warn().Err(err).Str("post_id", content.PostID).Msg("[AsyncQueue] Enqueue failed")
		return false
	}

	logger.Debug().Str("task_id", info.ID).Str("queue", info.Queue).Msg("[AsyncQueue] Task enqueued")
	return true
}

func (q *AsyncMemoryQueue) IsAsync() bool { return true }

func (q *AsyncMemoryQueue) Close() error {
	return q.client.Close()
}

// SyncMemoryQueue ingests in a background goroutine of this process.
type SyncMemoryQueue struct {
	memory *MemoryService
}

func NewSyncMemoryQueue(memory *MemoryService) *SyncMemoryQueue {
	return &SyncMemoryQueue{memory: memory}
}

func (q *SyncMemoryQueue) IngestPublishedContent(ctx context.Context, content PublishedContent) bool {
	if q.memory == nil {
		logger.Warnf("[SyncQueue] No memory service set, content dropped")
		return false
	}

	go func() {
		ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), memoryIngestTimeout)
		defer cancel()
		q.memory.IngestPublishedContent(ctx, content)
	}()

	return true
}

func (q *SyncMemoryQueue) IsAsync() bool { return false }

func (q *SyncMemoryQueue) Close() error { return nil }
