package models

import (
	"path/filepath"
	"testing"

	"github.com/afterposten/backend/internal/config"
)

func testDBConfig(t *testing.T) *config.DatabaseConfig {
	t.Helper()
	return &config.DatabaseConfig{
		Driver: "sqlite",
		DSN:    "file:" + filepath.Join(t.TempDir(), "test.db") + "?_busy_timeout=5000",
	}
}

func TestOpenDB_UnsupportedDriver(t *testing.T) {
	_, err := OpenDB(&config.DatabaseConfig{Driver: "oracle", DSN: "x"}, false)
	if err == nil {
		t.Fatal("expected error for unsupported driver")
	}
}

func TestSeedDefaultData_Idempotent(t *testing.T) {
	db, err := OpenDB(testDBConfig(t), false)
	if err != nil {
		t.Fatalf("OpenDB() error = %v", err)
	}
	if err := AutoMigrate(db); err != nil {
		t.Fatalf("AutoMigrate() error = %v", err)
	}

	for i := 0; i < 2; i++ {
		if err := SeedDefaultData(db); err != nil {
			t.Fatalf("SeedDefaultData() run %d error = %v", i, err)
		}
	}

	var count int64
	db.Model(&SystemConfig{}).Count(&count)
	if count != 5 {
		t.Errorf("expected 5 settings rows, got %d", count)
	}

	var tzCfg SystemConfig
	if err := db.Where("config_key = ?", ConfigKeyTimezone).First(&tzCfg).Error; err != nil {
		t.Fatalf("timezone setting missing: %v", err)
	}
	if tzCfg.Value != "UTC" {
		t.Errorf("timezone default = %q, expected UTC", tzCfg.Value)
	}
}

func TestBeforeCreate_AssignsUUID(t *testing.T) {
	db, err := OpenDB(testDBConfig(t), false)
	if err != nil {
		t.Fatalf("OpenDB() error = %v", err)
	}
	if err := AutoMigrate(db); err != nil {
		t.Fatalf("AutoMigrate() error = %v", err)
	}

	post := Post{Idea: "ship it", Status: PostStatusIdea}
	if err := db.Create(&post).Error; err != nil {
		t.Fatalf("Create() error = %v", err)
	}
	if len(post.ID) != 36 {
		t.Errorf("expected UUID id, got %q", post.ID)
	}

	kept := Post{ID: "fixed-id", Idea: "keep", Status: PostStatusIdea}
	db.Create(&kept)
	if kept.ID != "fixed-id" {
		t.Errorf("explicit id should be kept, got %q", kept.ID)
	}
}

func TestValidPostStatus(t *testing.T) {
	for _, s := range []string{"idea", "draft", "review", "scheduled", "published", "failed"} {
		if !ValidPostStatus(s) {
			t.Errorf("%q should be valid", s)
		}
	}
	if ValidPostStatus("archived") {
		t.Error("archived should be invalid")
	}
}
