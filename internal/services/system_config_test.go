package services

import (
	"context"
	"errors"
	"testing"

	"github.com/afterposten/backend/internal/models"
)

func TestGetSettings_Defaults(t *testing.T) {
	db := newTestDB(t)
	settings, err := NewSystemConfigService(db).GetSettings(context.Background())
	if err != nil {
		t.Fatalf("GetSettings() error = %v", err)
	}

	if settings.Timezone != "UTC" {
		t.Errorf("Timezone = %q, expected UTC", settings.Timezone)
	}
	if settings.SchedulerPollIntervalSec != 10 {
		t.Errorf("SchedulerPollIntervalSec = %d, expected 10", settings.SchedulerPollIntervalSec)
	}
	if settings.MaxPublishAttempts != 3 {
		t.Errorf("MaxPublishAttempts = %d, expected 3", settings.MaxPublishAttempts)
	}
	if settings.DefaultPublisherProfileID != nil {
		t.Errorf("DefaultPublisherProfileID = %v, expected nil", *settings.DefaultPublisherProfileID)
	}
	if settings.LogRetentionDays != 30 {
		t.Errorf("LogRetentionDays = %d, expected 30", settings.LogRetentionDays)
	}
}

func TestGetSettings_MalformedValuesFallBack(t *testing.T) {
	db := newTestDB(t)
	svc := NewSystemConfigService(db)
	ctx := context.Background()

	svc.Set(ctx, models.ConfigKeyMaxPublishAttempts, "lots")
	svc.Set(ctx, models.ConfigKeySchedulerPollIntervalSec, "0")
	svc.Set(ctx, models.ConfigKeyTimezone, "Mars/Base")

	settings, err := svc.GetSettings(ctx)
	if err != nil {
		t.Fatalf("GetSettings() error = %v", err)
	}
	if settings.MaxPublishAttempts != 3 || settings.SchedulerPollIntervalSec != 10 || settings.Timezone != "UTC" {
		t.Errorf("malformed values should fall back to defaults, got %+v", settings)
	}
}

func TestUpdateSettings(t *testing.T) {
	db := newTestDB(t)
	svc := NewSystemConfigService(db)
	ctx := context.Background()

	zone := "Europe/Belgrade"
	interval := 30
	updated, err := svc.UpdateSettings(ctx, &UpdateSettingsRequest{Timezone: &zone, SchedulerPollIntervalSec: &interval})
	if err != nil {
		t.Fatalf("UpdateSettings() error = %v", err)
	}
	if updated.Timezone != zone || updated.SchedulerPollIntervalSec != 30 {
		t.Errorf("unexpected settings %+v", updated)
	}
	if updated.MaxPublishAttempts != 3 {
		t.Error("fields not in the request must be left alone")
	}
}

func TestUpdateSettings_Validation(t *testing.T) {
	db := newTestDB(t)
	svc := NewSystemConfigService(db)
	ctx := context.Background()

	badZone := "Not/AZone"
	zero := 0
	negative := -1
	missingProfile := "nope"

	tests := []struct {
		name     string
		req      *UpdateSettingsRequest
		expected error
	}{
		{"bad timezone", &UpdateSettingsRequest{Timezone: &badZone}, ErrInvalidSetting},
		{"zero interval", &UpdateSettingsRequest{SchedulerPollIntervalSec: &zero}, ErrInvalidSetting},
		{"zero attempts", &UpdateSettingsRequest{MaxPublishAttempts: &zero}, ErrInvalidSetting},
		{"negative retention", &UpdateSettingsRequest{LogRetentionDays: &negative}, ErrInvalidSetting},
		{"unknown default profile", &UpdateSettingsRequest{DefaultPublisherProfileID: &missingProfile}, ErrProfileNotFound},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := svc.UpdateSettings(ctx, tt.req); !errors.Is(err, tt.expected) {
				t.Errorf("expected %v, got %v", tt.expected, err)
			}
		})
	}
}

func TestUpdateSettings_ClearDefaultProfile(t *testing.T) {
	db := newTestDB(t)
	svc := NewSystemConfigService(db)
	ctx := context.Background()

	profile, err := NewPublisherService(db, newTestCipher(t)).Create(ctx, &CreatePublisherRequest{Name: "p", WebhookURL: "https://example.com/hook"})
	if err != nil {
		t.Fatal(err)
	}

	if s, _ := svc.UpdateSettings(ctx, &UpdateSettingsRequest{DefaultPublisherProfileID: &profile.ID}); s.DefaultPublisherProfileID == nil {
		t.Fatal("default profile should be set")
	}
	empty := ""
	s, err := svc.UpdateSettings(ctx, &UpdateSettingsRequest{DefaultPublisherProfileID: &empty})
	if err != nil {
		t.Fatalf("UpdateSettings() error = %v", err)
	}
	if s.DefaultPublisherProfileID != nil {
		t.Error("empty id should clear the default profile")
	}
}
