package services

import (
	"context"
	"errors"
	"fmt"
	"strconv"

	"github.com/afterposten/backend/internal/models"
	"github.com/afterposten/backend/internal/tz"
	"gorm.io/gorm"
)

const (
	defaultTimezone           = "UTC"
	defaultPollIntervalSec    = 10
	defaultMaxPublishAttempts = 3
	defaultLogRetentionDays   = 30
)

type SystemConfigService struct {
	db *gorm.DB
}

func NewSystemConfigService(db *gorm.DB) *SystemConfigService {
	return &SystemConfigService{db: db}
}

func (s *SystemConfigService) Get(ctx context.Context, key string) (string, error) {
	var cfg models.SystemConfig
	if err := s.db.WithContext(ctx).Where("config_key = ?", key).First(&cfg).Error; err != nil {
		return "", err
	}
	return cfg.Value, nil
}

func (s *SystemConfigService) GetWithDefault(ctx context.Context, key, defaultValue string) string {
	value, err := s.Get(ctx, key)
	if err != nil {
		return defaultValue
	}
	return value
}

func (s *SystemConfigService) Set(ctx context.Context, key, value string) error {
	db := s.db.WithContext(ctx)
	var cfg models.SystemConfig
	err := db.Where("config_key = ?", key).First(&cfg).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		cfg = models.SystemConfig{
			Key:   key,
			Value: value,
		}
		return db.Create(&cfg).Error
	}
	if err != nil {
		return err
	}
	return db.Model(&cfg).Update("value", value).Error
}

// Settings are the runtime knobs consumed by the scheduler.
type Settings struct {
	Timezone                  string  `json:"timezone"`
	SchedulerPollIntervalSec  int     `json:"schedulerPollIntervalSec"`
	MaxPublishAttempts        int     `json:"maxPublishAttempts"`
	DefaultPublisherProfileID *string `json:"defaultPublisherProfileId"`
	LogRetentionDays          int     `json:"logRetentionDays"`
}

// GetSettings loads all runtime settings in one query. Missing or malformed
// values fall back to defaults; only a failing query returns an error.
func (s *SystemConfigService) GetSettings(ctx context.Context) (*Settings, error) {
	var rows []models.SystemConfig
	err := s.db.WithContext(ctx).Where("config_key IN ?", []string{
		models.ConfigKeyTimezone,
		models.ConfigKeySchedulerPollIntervalSec,
		models.ConfigKeyMaxPublishAttempts,
		models.ConfigKeyDefaultPublisherProfileID,
		models.ConfigKeyLogRetentionDays,
	}).Find(&rows).Error
	if err != nil {
		return nil, fmt.Errorf("load settings: %w", err)
	}

	values := make(map[string]string, len(rows))
	for _, row := range rows {
		values[row.Key] = row.Value
	}

	settings := &Settings{
		Timezone:                 defaultTimezone,
		SchedulerPollIntervalSec: positiveInt(values[models.ConfigKeySchedulerPollIntervalSec], defaultPollIntervalSec),
		MaxPublishAttempts:       positiveInt(values[models.ConfigKeyMaxPublishAttempts], defaultMaxPublishAttempts),
		LogRetentionDays:         defaultLogRetentionDays,
	}
	if zone := values[models.ConfigKeyTimezone]; zone != "" && tz.ValidTimezone(zone) {
		settings.Timezone = zone
	}
	if id := values[models.ConfigKeyDefaultPublisherProfileID]; id != "" {
		settings.DefaultPublisherProfileID = &id
	}
	if v, ok := values[models.ConfigKeyLogRetentionDays]; ok {
		if days, err := strconv.Atoi(v); err == nil {
			settings.LogRetentionDays = days
		}
	}
	return settings, nil
}

// UpdateSettingsRequest is a partial update; nil fields are left alone and an
// empty DefaultPublisherProfileID clears the default.
type UpdateSettingsRequest struct {
	Timezone                  *string `json:"timezone"`
	SchedulerPollIntervalSec  *int    `json:"schedulerPollIntervalSec"`
	MaxPublishAttempts        *int    `json:"maxPublishAttempts"`
	DefaultPublisherProfileID *string `json:"defaultPublisherProfileId"`
	LogRetentionDays          *int    `json:"logRetentionDays"`
}

func (s *SystemConfigService) UpdateSettings(ctx context.Context, req *UpdateSettingsRequest) (*Settings, error) {
	if req.Timezone != nil && !tz.ValidTimezone(*req.Timezone) {
		return nil, fmt.Errorf("%w: unknown timezone %q", ErrInvalidSetting, *req.Timezone)
	}
	if req.SchedulerPollIntervalSec != nil && *req.SchedulerPollIntervalSec < 1 {
		return nil, fmt.Errorf("%w: poll interval must be at least 1 second", ErrInvalidSetting)
	}
	if req.MaxPublishAttempts != nil && *req.MaxPublishAttempts < 1 {
		return nil, fmt.Errorf("%w: max publish attempts must be at least 1", ErrInvalidSetting)
	}
	if req.LogRetentionDays != nil && *req.LogRetentionDays < 0 {
		return nil, fmt.Errorf("%w: log retention days cannot be negative", ErrInvalidSetting)
	}
	if req.DefaultPublisherProfileID != nil && *req.DefaultPublisherProfileID != "" {
		var count int64
		if err := s.db.WithContext(ctx).Model(&models.PublisherProfile{}).
			Where("id = ?", *req.DefaultPublisherProfileID).Count(&count).Error; err != nil {
			return nil, err
		}
		if count == 0 {
			return nil, ErrProfileNotFound
		}
	}

	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		txs := &SystemConfigService{db: tx}
		if req.Timezone != nil {
			if err := txs.Set(ctx, models.ConfigKeyTimezone, *req.Timezone); err != nil {
				return err
			}
		}
		if req.SchedulerPollIntervalSec != nil {
			if err := txs.Set(ctx, models.ConfigKeySchedulerPollIntervalSec, strconv.Itoa(*req.SchedulerPollIntervalSec)); err != nil {
				return err
			}
		}
		if req.MaxPublishAttempts != nil {
			if err := txs.Set(ctx, models.ConfigKeyMaxPublishAttempts, strconv.Itoa(*req.MaxPublishAttempts)); err != nil {
				return err
			}
		}
		if req.DefaultPublisherProfileID != nil {
			if err := txs.Set(ctx, models.ConfigKeyDefaultPublisherProfileID, *req.DefaultPublisherProfileID); err != nil {
				return err
			}
		}
		if req.LogRetentionDays != nil {
			if err := txs.Set(ctx, models.ConfigKeyLogRetentionDays, strconv.Itoa(*req.LogRetentionDays)); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	return s.GetSettings(ctx)
}

func positiveInt(raw string, fallback int) int {
	n, err := strconv.Atoi(raw)
	if err != nil || n < 1 {
		return fallback
	}
	return n
}
