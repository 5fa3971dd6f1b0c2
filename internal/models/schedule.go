package models

import "time"

const (
	ScheduleStatusScheduled = "scheduled"
	ScheduleStatusRunning   = "running"
	ScheduleStatusDone      = "done"
	ScheduleStatusFailed    = "failed"
)

// Schedule is one planned delivery of a post to a publisher profile.
// ScheduledAtUTC is always stored in UTC; ScheduledTz is kept for display.
type Schedule struct {
	ID                 string     `gorm:"primaryKey;size:36" json:"id"`
	PostID             string     `gorm:"size:36;not null;index" json:"postId"`
	PublisherProfileID *string    `gorm:"size:36" json:"publisherProfileId"`
	ScheduledAtUTC     time.Time  `gorm:"column:scheduled_at_utc;not null;index" json:"scheduledAtUtc"`
	ScheduledTz        string     `gorm:"size:64;not null" json:"scheduledTz"`
	Status             string     `gorm:"size:20;not null;default:scheduled;index" json:"status"`
	Attempts           int        `gorm:"not null;default:0" json:"attempts"`
	LockedUntil        *time.Time `json:"lockedUntil"`
	LastError          *string    `gorm:"type:text" json:"lastError"`
	CreatedAt          time.Time  `json:"createdAt"`
	UpdatedAt          time.Time  `json:"updatedAt"`
}

const (
	PublishRunSuccess = "success"
	PublishRunFailed  = "failed"
)

// PublishRun records the outcome of one delivery attempt. Rows are never updated.
type PublishRun struct {
	ID                 string    `gorm:"primaryKey;size:36" json:"id"`
	PostID             string    `gorm:"size:36;not null;index" json:"postId"`
	ScheduleID         string    `gorm:"size:36;index" json:"scheduleId"`
	PublisherProfileID string    `gorm:"size:36" json:"publisherProfileId"`
	Status             string    `gorm:"size:20;not null" json:"status"`
	RequestMetaJSON    string    `gorm:"column:request_meta_json;type:text" json:"requestMetaJson"`
	ResponseMetaJSON   string    `gorm:"column:response_meta_json;type:text" json:"responseMetaJson"`
	CreatedAt          time.Time `gorm:"index" json:"createdAt"`
}

func (Schedule) TableName() string   { return "schedules" }
func (PublishRun) TableName() string { return "publish_runs" }
