package services

import (
	"context"
	"encoding/json"
	"time"

	"github.com/afterposten/backend/internal/models"
	"github.com/afterposten/backend/pkg/logger"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// PublishedContent is what the learning hook keeps of a published post.
type PublishedContent struct {
	PostID      string    `json:"postId"`
	Text        string    `json:"text"`
	Hashtags    []string  `json:"hashtags"`
	ImagePath   *string   `json:"imagePath,omitempty"`
	AltText     *string   `json:"altText,omitempty"`
	PublishedAt time.Time `json:"publishedAt"`
}

// MemoryService stores published posts as local style memory.
type MemoryService struct {
	db *gorm.DB
}

func NewMemoryService(db *gorm.DB) *MemoryService {
	return &MemoryService{db: db}
}

// IngestPublishedContent upserts the memory row for a post. Failures are
// logged and reported as false.
func (s *MemoryService) IngestPublishedContent(ctx context.Context, content PublishedContent) bool {
	hashtags := content.Hashtags
	if hashtags == nil {
		hashtags = []string{}
	}
	tags, _ := json.Marshal(hashtags)

	row := &models.LearnedPost{
		PostID:       content.PostID,
		Text:         content.Text,
		HashtagsJSON: string(tags),
		ImagePath:    content.ImagePath,
		AltText:      content.AltText,
		PublishedAt:  content.PublishedAt.UTC(),
	}
	err := s.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "post_id"}},
		DoUpdates: clause.AssignmentColumns([]string{"text", "hashtags_json", "image_path", "alt_text", "published_at", "updated_at"}),
	}).Create(row).Error
	if err != nil {
		logger.Warn().Err(err).Str("post_id", content.PostID).Msg("[Memory] Ingestion failed")
		return false
	}
	logger.Debug().Str("post_id", content.PostID).Msg("[Memory] Published post ingested")
	return true
}

func (s *MemoryService) ListLearned(ctx context.Context, limit int) ([]models.LearnedPost, error) {
	if limit <= 0 || limit > 100 {
		limit = 20
	}
	posts := []models.LearnedPost{}
	err := s.db.WithContext(ctx).Order("published_at DESC").Limit(limit).Find(&posts).Error
	return posts, err
}
