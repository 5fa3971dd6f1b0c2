package models

import "time"

const (
	AuthTypeNone   = "none"
	AuthTypeHeader = "header"
	AuthTypeBearer = "bearer"
)

const DefaultBinaryFieldName = "mediaFile"

// PublisherProfile is a webhook target. Secret fields hold ciphertext only.
type PublisherProfile struct {
	ID                 string    `gorm:"primaryKey;size:36" json:"id"`
	Name               string    `gorm:"size:100;not null;index" json:"name"`
	WebhookURL         string    `gorm:"column:webhook_url;size:1000;not null" json:"webhookUrl"`
	AuthType           string    `gorm:"size:20;not null;default:none" json:"authType"`
	AuthHeaderName     *string   `gorm:"size:100" json:"authHeaderName"`
	AuthHeaderValueEnc *string   `gorm:"type:text" json:"-"`
	BearerTokenEnc     *string   `gorm:"type:text" json:"-"`
	BinaryFieldName    string    `gorm:"size:100;not null;default:mediaFile" json:"binaryFieldName"`
	ExtraPayloadJSON   string    `gorm:"column:extra_payload_json;type:text" json:"extraPayloadJson"`
	CreatedAt          time.Time `json:"createdAt"`
	UpdatedAt          time.Time `json:"updatedAt"`
}

func (PublisherProfile) TableName() string { return "publisher_profiles" }
