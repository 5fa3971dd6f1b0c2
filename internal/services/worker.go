package services

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"

	"github.com/afterposten/backend/internal/config"
	"github.com/afterposten/backend/pkg/logger"
	"github.com/hibiken/asynq"
)

var errIngestRejected = errors.New("memory ingestion failed")

// Worker consumes memory:ingest tasks from Redis
type Worker struct {
	server  *asynq.Server
	mux     *asynq.ServeMux
	memory  *MemoryService
	running bool
	mu      sync.Mutex
}

// NewWorker returns nil when Redis is disabled
func NewWorker(cfg *config.RedisConfig, memory *MemoryService) *Worker {
	if !cfg.Enabled {
		return nil
	}

	server := asynq.NewServer(
		redisOpt(cfg),
		asynq.Config{
			Concurrency: 2,
			Queues: map[string]int{
				"default": 1,
			},
			Logger: newAsynqLogger(),
			ErrorHandler: asynq.ErrorHandlerFunc(func(ctx context.Context, task *asynq.Task, err error) {
				logger.Warnf("[Worker] Error processing task %s: %v", task.Type(), err)
			}),
		},
	)

	return &Worker{
		server: server,
		mux:    asynq.NewServeMux(),
		memory: memory,
	}
}

func (w *Worker) Start() error {
	w.mu.Lock()
	defer w.mu.Unlock()

	if w.running {
		return nil
	}

	w.mux.HandleFunc(TaskTypeMemoryIngest, w.handleMemoryIngest)

	if err := w.server.Start(w.mux); err != nil {
		return err
	}
	w.running = true
	logger.Infof("[Worker] Async worker started")
	return nil
}

// Stop gracefully shuts down the worker
func (w *Worker) Stop() {
	w.mu.Lock()
	defer w.mu.Unlock()

	if !w.running {
		return
	}

	logger.Infof("[Worker] Shutting down...")
	w.server.Shutdown()
	w.running = false
	logger.Infof("[Worker] Shutdown complete")
}

func (w *Worker) handleMemoryIngest(ctx context.Context, t *asynq.Task) error {
	var content PublishedContent
	if err := json.Unmarshal(t.Payload(), &content); err != nil {
		// malformed payloads are never retried
		return errors.Join(err, asynq.SkipRetry)
	}

	logger.Debug().Str("post_id", content.PostID).Msg("[Worker] Processing memory ingest task")

	if !w.memory.IngestPublishedContent(ctx, content) {
		return errIngestRejected
	}
	return nil
}

// asynqLogger routes asynq's own logs through zerolog.
type asynqLogger struct{}

func newAsynqLogger() asynqLogger { return asynqLogger{} }

func (asynqLogger) Debug(args ...interface{}) { logger.Debug().Msg("[Worker] " + fmt.Sprint(args...)) }
func (asynqLogger) Info(args ...interface{})  { logger.Info().Msg("[Worker] " + fmt.Sprint(args...)) }
func (asynqLogger) Warn(args ...interface{})  { logger.Warn().Msg("[Worker] " + fmt.Sprint(args...)) }
func (asynqLogger) Error(args ...interface{}) { logger.Error().Msg("[Worker] " + fmt.Sprint(args...)) }
func (asynqLogger) Fatal(args ...interface{}) { logger.Fatal().Msg("[Worker] " + fmt.Sprint(args...)) }
