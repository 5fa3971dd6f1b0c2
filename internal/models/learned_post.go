package models

import "time"

// LearnedPost is the local style memory of a published post, one row per post.
type LearnedPost struct {
	ID           string    `gorm:"primaryKey;size:36" json:"id"`
	PostID       string    `gorm:"size:36;not null;uniqueIndex" json:"postId"`
	Text         string    `gorm:"type:text;not null" json:"text"`
	HashtagsJSON string    `gorm:"column:hashtags_json;type:text" json:"hashtagsJson"`
	ImagePath    *string   `gorm:"size:500" json:"imagePath"`
	AltText      *string   `gorm:"type:text" json:"altText"`
	PublishedAt  time.Time `gorm:"index" json:"publishedAt"`
	CreatedAt    time.Time `json:"createdAt"`
	UpdatedAt    time.Time `json:"updatedAt"`
}

func (LearnedPost) TableName() string { return "learned_posts" }
