package main

import (
	"context"
	"os"
	"path/filepath"
	"time"

	"github.com/afterposten/backend/internal/config"
	"github.com/afterposten/backend/internal/middleware"
	"github.com/afterposten/backend/internal/models"
	"github.com/afterposten/backend/internal/services"
	"github.com/afterposten/backend/internal/utils"
	"github.com/afterposten/backend/pkg/logger"
	"github.com/redis/go-redis/v9"
	"github.com/robfig/cron/v3"
	"gorm.io/gorm"
)

// appServices holds all initialized services needed by the application.
type appServices struct {
	db          *gorm.DB
	settings    *services.SystemConfigService
	systemLogs  *services.SystemLogService
	auth        *services.AuthService
	posts       *services.PostService
	publishers  *services.PublisherService
	schedules   *services.ScheduleService
	runs        *services.PublishRunService
	memory      *services.MemoryService
	memoryQueue services.MemoryQueue
	worker      *services.Worker
	sink        *services.WebhookPublisher
	scheduler   *services.Scheduler
	ticker      services.Ticker
	redis       *redis.Client
	events      *services.SSEHub
	poller      *services.Poller
	logCleanup  *cron.Cron
	tickLimiter *middleware.RateLimiter
}

// bootstrap initializes all application dependencies: database, services, schedulers.
func bootstrap(cfg *config.Config) *appServices {
	if cfg.Database.Driver == "sqlite" {
		if dir := filepath.Dir(cfg.Database.DSN); dir != "." {
			if err := os.MkdirAll(dir, 0755); err != nil {
				logger.Fatalf("Failed to create database directory: %v", err)
			}
		}
	}

	db, err := models.OpenDB(&cfg.Database, cfg.Server.Mode == "debug")
	if err != nil {
		logger.Fatalf("Failed to connect to database: %v", err)
	}
	if err := models.AutoMigrate(db); err != nil {
		logger.Fatalf("Failed to migrate database: %v", err)
	}
	if err := models.SeedDefaultData(db); err != nil {
		logger.Warn().Err(err).Msg("Failed to seed default data")
	}

	keyFile := cfg.Encryption.KeyFile
	if keyFile == "" {
		keyFile = utils.DefaultKeyFile()
	}
	key, err := utils.ResolveEncryptionKey(cfg.Encryption.Key, keyFile)
	if err != nil {
		logger.Fatalf("Failed to resolve encryption key: %v", err)
	}
	cipher, err := utils.NewCipher(key)
	if err != nil {
		logger.Fatalf("Invalid encryption key: %v", err)
	}

	auth, err := services.NewAuthService(&cfg.Auth, &cfg.JWT)
	if err != nil {
		logger.Fatalf("Failed to initialize auth: %v", err)
	}

	publicDir := cfg.Storage.PublicDir
	if abs, err := filepath.Abs(publicDir); err == nil {
		publicDir = abs
	}

	settings := services.NewSystemConfigService(db)
	systemLogs := services.NewSystemLogService(db)
	posts := services.NewPostService(db).WithAssetDir(publicDir)
	publishers := services.NewPublisherService(db, cipher)
	store := services.NewScheduleStore(db)
	runs := services.NewPublishRunService(db)
	memory := services.NewMemoryService(db)

	// Learning hook: Redis queue when available, otherwise in-process
	memoryQueue := services.NewMemoryQueue(&cfg.Redis, memory)
	var worker *services.Worker
	if memoryQueue.IsAsync() {
		worker = services.NewWorker(&cfg.Redis, memory)
		if worker != nil {
			if err := worker.Start(); err != nil {
				logger.Warn().Err(err).Msg("Failed to start async worker")
			}
		}
	}

	sink := services.NewWebhookPublisher(cipher, publicDir, time.Duration(cfg.Scheduler.HTTPTimeoutSec)*time.Second)

	events := services.NewSSEHub()
	scheduler := services.NewScheduler(services.SchedulerDeps{
		Store:    store,
		Runs:     runs,
		Settings: settings,
		Posts:    posts,
		Targets:  publishers,
		Sink:     sink,
		Learning: memoryQueue,
		SysLog:   systemLogs,
		Events:   events,
	})

	// with Redis, one instance at a time runs a tick
	var ticker services.Ticker = scheduler
	var rdb *redis.Client
	if cfg.Redis.Enabled {
		rdb = services.NewRedisClient(&cfg.Redis)
		ticker = services.NewLockedTicker(scheduler, rdb, 0)
	}

	interval := 10 * time.Second
	if current, err := settings.GetSettings(context.Background()); err == nil {
		interval = time.Duration(current.SchedulerPollIntervalSec) * time.Second
	}
	poller := services.NewPoller(ticker, interval)
	if cfg.Scheduler.Enabled {
		poller.Start()
	} else {
		logger.Infof("[Poller] Disabled by config, use POST /api/scheduler/tick to publish")
	}

	return &appServices{
		db:          db,
		settings:    settings,
		systemLogs:  systemLogs,
		auth:        auth,
		posts:       posts,
		publishers:  publishers,
		schedules:   services.NewScheduleService(db, store, settings),
		runs:        runs,
		memory:      memory,
		memoryQueue: memoryQueue,
		worker:      worker,
		sink:        sink,
		scheduler:   scheduler,
		ticker:      ticker,
		redis:       rdb,
		events:      events,
		poller:      poller,
		logCleanup:  services.StartLogCleanupScheduler(systemLogs, settings),
		tickLimiter: middleware.NewRateLimiter(0.5, 3),
	}
}

// shutdown gracefully stops all services.
func (s *appServices) shutdown() {
	s.poller.Stop()
	<-s.logCleanup.Stop().Done()
	s.tickLimiter.Stop()
	logger.Info().Msg("All schedulers stopped")

	if s.worker != nil {
		s.worker.Stop()
	}
	if s.memoryQueue != nil {
		s.memoryQueue.Close()
	}
	if s.redis != nil {
		s.redis.Close()
	}
	if sqlDB, err := s.db.DB(); err == nil {
		sqlDB.Close()
	}
}
