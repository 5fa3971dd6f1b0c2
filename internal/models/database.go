package models

import (
	"fmt"
	"time"

	"github.com/afterposten/backend/internal/config"
	"gorm.io/driver/mysql"
	"gorm.io/driver/postgres"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// OpenDB connects to the configured database. All timestamps gorm fills in
// are UTC so that stored instants compare correctly on every driver.
func OpenDB(cfg *config.DatabaseConfig, debug bool) (*gorm.DB, error) {
	var dialector gorm.Dialector

	switch cfg.Driver {
	case "sqlite":
		dialector = sqlite.Open(cfg.DSN)
	case "mysql":
		dialector = mysql.Open(cfg.DSN)
	case "postgres":
		dialector = postgres.Open(cfg.DSN)
	default:
		return nil, fmt.Errorf("unsupported database driver: %s", cfg.Driver)
	}

	logLevel := logger.Warn
	if debug {
		logLevel = logger.Info
	}

	db, err := gorm.Open(dialector, &gorm.Config{
		Logger:  logger.Default.LogMode(logLevel),
		NowFunc: func() time.Time { return time.Now().UTC() },
	})
	if err != nil {
		return nil, fmt.Errorf("failed to connect database: %w", err)
	}

	if cfg.Driver == "sqlite" {
		// single writer avoids "database is locked" under concurrent claims
		if sqlDB, err := db.DB(); err == nil {
			sqlDB.SetMaxOpenConns(1)
		}
	}

	return db, nil
}

func AutoMigrate(db *gorm.DB) error {
	return db.AutoMigrate(
		&Post{},
		&Draft{},
		&Asset{},
		&PublisherProfile{},
		&Schedule{},
		&PublishRun{},
		&LearnedPost{},
		&SystemConfig{},
		&SystemLog{},
	)
}

// SeedDefaultData creates the runtime settings rows if missing
func SeedDefaultData(db *gorm.DB) error {
	defaultConfigs := []SystemConfig{
		{Key: ConfigKeyTimezone, Value: "UTC", Type: "string", Group: "scheduler", Label: "Default Timezone"},
		{Key: ConfigKeySchedulerPollIntervalSec, Value: "10", Type: "int", Group: "scheduler", Label: "Scheduler Poll Interval (seconds)"},
		{Key: ConfigKeyMaxPublishAttempts, Value: "3", Type: "int", Group: "scheduler", Label: "Max Publish Attempts"},
		{Key: ConfigKeyDefaultPublisherProfileID, Value: "", Type: "string", Group: "scheduler", Label: "Default Publisher Profile"},
		{Key: ConfigKeyLogRetentionDays, Value: "30", Type: "int", Group: "system", Label: "System Log Retention Days"},
	}

	for _, cfg := range defaultConfigs {
		var count int64
		db.Model(&SystemConfig{}).Where("config_key = ?", cfg.Key).Count(&count)
		if count == 0 {
			if err := db.Create(&cfg).Error; err != nil {
				return err
			}
		}
	}

	return nil
}
