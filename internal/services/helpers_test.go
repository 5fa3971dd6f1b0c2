package services

import (
	"context"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/afterposten/backend/internal/config"
	"github.com/afterposten/backend/internal/models"
	"github.com/afterposten/backend/internal/utils"
	"gorm.io/gorm"
)

const testEncryptionKey = "00112233445566778899aabbccddeeff00112233445566778899aabbccddeeff"

var testBase = time.Date(2030, 1, 15, 12, 0, 0, 0, time.UTC)

func newTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	dsn := "file:" + filepath.Join(t.TempDir(), "test.db") + "?_busy_timeout=5000"
	db, err := models.OpenDB(&config.DatabaseConfig{Driver: "sqlite", DSN: dsn}, false)
	if err != nil {
		t.Fatalf("OpenDB() error = %v", err)
	}
	if err := models.AutoMigrate(db); err != nil {
		t.Fatalf("AutoMigrate() error = %v", err)
	}
	if err := models.SeedDefaultData(db); err != nil {
		t.Fatalf("SeedDefaultData() error = %v", err)
	}
	t.Cleanup(func() {
		if sqlDB, err := db.DB(); err == nil {
			sqlDB.Close()
		}
	})
	return db
}

func newTestCipher(t *testing.T) *utils.Cipher {
	t.Helper()
	c, err := utils.NewCipher(testEncryptionKey)
	if err != nil {
		t.Fatalf("NewCipher() error = %v", err)
	}
	return c
}

func createTestPost(t *testing.T, db *gorm.DB, idea string) *models.Post {
	t.Helper()
	post, err := NewPostService(db).Create(context.Background(), idea)
	if err != nil {
		t.Fatalf("create post: %v", err)
	}
	return post
}

func createTestSchedule(t *testing.T, db *gorm.DB, postID string, at time.Time) *models.Schedule {
	t.Helper()
	sched := &models.Schedule{PostID: postID, ScheduledAtUTC: at, ScheduledTz: "UTC"}
	if err := NewScheduleStore(db).Create(context.Background(), sched); err != nil {
		t.Fatalf("create schedule: %v", err)
	}
	return sched
}

func reloadSchedule(t *testing.T, db *gorm.DB, id string) *models.Schedule {
	t.Helper()
	sched, err := NewScheduleStore(db).Get(context.Background(), id)
	if err != nil {
		t.Fatalf("reload schedule: %v", err)
	}
	return sched
}

func reloadPost(t *testing.T, db *gorm.DB, id string) *models.Post {
	t.Helper()
	post, err := NewPostService(db).Get(context.Background(), id)
	if err != nil {
		t.Fatalf("reload post: %v", err)
	}
	return post
}

// stubSink records payloads and answers with a fixed outcome.
type stubSink struct {
	mu       sync.Mutex
	success  bool
	status   int
	payloads []*PublishPayload
	targets  []*PublishTarget
}

func (s *stubSink) Publish(ctx context.Context, target *PublishTarget, payload *PublishPayload) *PublishResult {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.payloads = append(s.payloads, payload)
	s.targets = append(s.targets, target)
	return &PublishResult{
		Success:      s.success,
		StatusCode:   s.status,
		RequestMeta:  &RequestMeta{URL: target.WebhookURL, Method: "POST"},
		ResponseMeta: &ResponseMeta{StatusCode: s.status},
	}
}

func (s *stubSink) calls() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.payloads)
}

// recordingHook captures learning hook calls.
type recordingHook struct {
	mu       sync.Mutex
	received []PublishedContent
}

func (h *recordingHook) IngestPublishedContent(ctx context.Context, content PublishedContent) bool {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.received = append(h.received, content)
	return true
}
