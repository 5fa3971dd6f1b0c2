package models

import "time"

// ActorSystem marks entries written by background jobs (scheduler ticks,
// log cleanup) rather than by an API request.
const ActorSystem = "system"

// SystemLog is one operation log entry. Actor is the token subject of the
// request that caused it ("admin", "local" with auth disabled, "anonymous"
// before login) or ActorSystem. IP and UserAgent are only set for audited requests.
type SystemLog struct {
	ID        uint      `gorm:"primaryKey" json:"id"`
	Level     string    `gorm:"size:20;index" json:"level"` // info, warning, error
	Module    string    `gorm:"size:100;index" json:"module"`
	Action    string    `gorm:"size:200;index" json:"action"`
	Message   string    `gorm:"type:text" json:"message"`
	Actor     string    `gorm:"size:100;index" json:"actor"`
	IP        string    `gorm:"size:50" json:"ip,omitempty"`
	UserAgent string    `gorm:"size:500" json:"user_agent,omitempty"`
	Extra     string    `gorm:"type:text" json:"extra"` // JSON, e.g. schedule_id and post_id
	CreatedAt time.Time `gorm:"index" json:"created_at"`
}

func (SystemLog) TableName() string { return "system_logs" }
