package models

import "time"

const (
	PostStatusIdea      = "idea"
	PostStatusDraft     = "draft"
	PostStatusReview    = "review"
	PostStatusScheduled = "scheduled"
	PostStatusPublished = "published"
	PostStatusFailed    = "failed"
)

// ValidPostStatus reports whether s is one of the post lifecycle states.
func ValidPostStatus(s string) bool {
	switch s {
	case PostStatusIdea, PostStatusDraft, PostStatusReview,
		PostStatusScheduled, PostStatusPublished, PostStatusFailed:
		return true
	}
	return false
}

// Post is a piece of content moving from idea to published text.
type Post struct {
	ID                 string    `gorm:"primaryKey;size:36" json:"id"`
	Idea               string    `gorm:"type:text;not null" json:"idea"`
	FinalText          *string   `gorm:"type:text" json:"finalText"`
	Status             string    `gorm:"size:20;not null;default:idea;index" json:"status"`
	PublisherProfileID *string   `gorm:"size:36" json:"publisherProfileId"`
	Drafts             []Draft   `gorm:"constraint:OnDelete:CASCADE" json:"drafts,omitempty"`
	Assets             []Asset   `gorm:"constraint:OnDelete:CASCADE" json:"assets,omitempty"`
	CreatedAt          time.Time `json:"createdAt"`
	UpdatedAt          time.Time `gorm:"index" json:"updatedAt"`
}

const (
	DraftKindDraft   = "draft"
	DraftKindVariant = "variant"
)

// Draft holds one structured AI output for a post as JSON.
type Draft struct {
	ID          string    `gorm:"primaryKey;size:36" json:"id"`
	PostID      string    `gorm:"size:36;not null;index" json:"postId"`
	Kind        string    `gorm:"size:20;not null;default:draft" json:"kind"`
	ContentJSON string    `gorm:"column:content_json;type:text;not null" json:"contentJson"`
	CreatedAt   time.Time `gorm:"index" json:"createdAt"`
}

const (
	AssetTypePNG  = "image_png"
	AssetTypeJPEG = "image_jpeg"
)

// Asset is an image attached to a post. Path is relative to the public dir.
type Asset struct {
	ID        string    `gorm:"primaryKey;size:36" json:"id"`
	PostID    string    `gorm:"size:36;not null;index" json:"postId"`
	Type      string    `gorm:"size:20;not null" json:"type"`
	Path      string    `gorm:"size:500;not null" json:"path"`
	AltText   *string   `gorm:"type:text" json:"altText"`
	MetaJSON  string    `gorm:"column:meta_json;type:text" json:"metaJson"`
	CreatedAt time.Time `gorm:"index" json:"createdAt"`
}

func (Post) TableName() string  { return "posts" }
func (Draft) TableName() string { return "drafts" }
func (Asset) TableName() string { return "assets" }
