package models

import (
	"github.com/google/uuid"
	"gorm.io/gorm"
)

// assignID fills an empty string primary key with a UUIDv4.
func assignID(id *string) {
	if *id == "" {
		*id = uuid.NewString()
	}
}

func (p *Post) BeforeCreate(tx *gorm.DB) error             { assignID(&p.ID); return nil }
func (d *Draft) BeforeCreate(tx *gorm.DB) error            { assignID(&d.ID); return nil }
func (a *Asset) BeforeCreate(tx *gorm.DB) error            { assignID(&a.ID); return nil }
func (s *Schedule) BeforeCreate(tx *gorm.DB) error         { assignID(&s.ID); return nil }
func (r *PublishRun) BeforeCreate(tx *gorm.DB) error       { assignID(&r.ID); return nil }
func (p *PublisherProfile) BeforeCreate(tx *gorm.DB) error { assignID(&p.ID); return nil }
func (l *LearnedPost) BeforeCreate(tx *gorm.DB) error      { assignID(&l.ID); return nil }
