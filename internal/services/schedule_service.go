package services

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/afterposten/backend/internal/models"
	"github.com/afterposten/backend/internal/tz"
	"gorm.io/gorm"
)

// ScheduleService creates and cancels schedules on behalf of the API.
type ScheduleService struct {
	db       *gorm.DB
	store    *ScheduleStore
	settings SettingsProvider
	now      func() time.Time
}

func NewScheduleService(db *gorm.DB, store *ScheduleStore, settings SettingsProvider) *ScheduleService {
	return &ScheduleService{db: db, store: store, settings: settings, now: time.Now}
}

type SchedulePostRequest struct {
	ScheduledAt        string  `json:"scheduledAt" binding:"required"` // local wall clock, e.g. 2024-03-15T14:30
	Timezone           string  `json:"timezone"`                       // IANA zone, defaults to the timezone setting
	PublisherProfileID *string `json:"publisherProfileId"`
}

// SchedulePost converts the local time to UTC, rejects instants that are not
// strictly in the future and moves the post to scheduled.
func (s *ScheduleService) SchedulePost(ctx context.Context, postID string, req *SchedulePostRequest) (*models.Schedule, error) {
	zone := req.Timezone
	if zone == "" {
		settings, err := s.settings.GetSettings(ctx)
		if err != nil {
			return nil, err
		}
		zone = settings.Timezone
	}

	at, err := tz.LocalToUTC(req.ScheduledAt, zone)
	if err != nil {
		return nil, err
	}
	if !at.After(s.now().UTC()) {
		return nil, ErrScheduleInPast
	}

	sched := &models.Schedule{
		PostID:         postID,
		ScheduledAtUTC: at,
		ScheduledTz:    zone,
		Status:         models.ScheduleStatusScheduled,
	}
	if req.PublisherProfileID != nil && *req.PublisherProfileID != "" {
		sched.PublisherProfileID = req.PublisherProfileID
	}

	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var post models.Post
		if err := tx.First(&post, "id = ?", postID).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return ErrPostNotFound
			}
			return err
		}
		if sched.PublisherProfileID != nil {
			var count int64
			if err := tx.Model(&models.PublisherProfile{}).Where("id = ?", *sched.PublisherProfileID).Count(&count).Error; err != nil {
				return err
			}
			if count == 0 {
				return ErrProfileNotFound
			}
		}
		if err := (&ScheduleStore{db: tx}).Create(ctx, sched); err != nil {
			return fmt.Errorf("create schedule: %w", err)
		}
		return tx.Model(&post).Update("status", models.PostStatusScheduled).Error
	})
	if err != nil {
		return nil, err
	}
	return sched, nil
}

func (s *ScheduleService) ListByPost(ctx context.Context, postID string) ([]models.Schedule, error) {
	return s.store.ListByPost(ctx, postID)
}

// Cancel deletes a schedule that is not currently being delivered.
func (s *ScheduleService) Cancel(ctx context.Context, id string) error {
	return s.store.Delete(ctx, id, s.now())
}
