package services

import (
	"context"
	"encoding/json"

	"github.com/afterposten/backend/internal/models"
	"gorm.io/gorm"
)

// PublishRunService appends delivery audit records. Runs are never updated.
type PublishRunService struct {
	db *gorm.DB
}

func NewPublishRunService(db *gorm.DB) *PublishRunService {
	return &PublishRunService{db: db}
}

// Record stores the outcome of one sink call with its sanitized metadata.
func (s *PublishRunService) Record(ctx context.Context, sched *models.Schedule, target *PublishTarget, result *PublishResult) (*models.PublishRun, error) {
	status := models.PublishRunFailed
	if result.Success {
		status = models.PublishRunSuccess
	}
	reqMeta, _ := json.Marshal(result.RequestMeta)
	respMeta, _ := json.Marshal(result.ResponseMeta)

	run := &models.PublishRun{
		PostID:             sched.PostID,
		ScheduleID:         sched.ID,
		PublisherProfileID: target.ID,
		Status:             status,
		RequestMetaJSON:    string(reqMeta),
		ResponseMetaJSON:   string(respMeta),
	}
	if err := s.db.WithContext(ctx).Create(run).Error; err != nil {
		return nil, err
	}
	return run, nil
}

func (s *PublishRunService) ListByPost(ctx context.Context, postID string) ([]models.PublishRun, error) {
	runs := []models.PublishRun{}
	err := s.db.WithContext(ctx).Where("post_id = ?", postID).Order("created_at DESC").Find(&runs).Error
	return runs, err
}
