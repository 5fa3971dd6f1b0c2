package config

import (
	"os"
	"path/filepath"
	"strconv"
	"testing"
)

func TestLoad_MissingFileUsesDefaults(t *testing.T) {
	cfg, err := Load(filepath.Join(t.TempDir(), "missing.yaml"))
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if cfg.Database.Driver != "sqlite" {
		t.Errorf("Driver = %q, expected sqlite", cfg.Database.Driver)
	}
	if !cfg.Scheduler.Enabled {
		t.Error("scheduler should be enabled by default")
	}
	if cfg.Scheduler.HTTPTimeoutSec != 30 {
		t.Errorf("HTTPTimeoutSec = %d, expected 30", cfg.Scheduler.HTTPTimeoutSec)
	}
}

func TestLoad_FileOverridesDefaults(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	content := []byte("server:\n  port: \"9090\"\nscheduler:\n  http_timeout_sec: 5\n")
	if err := os.WriteFile(path, content, 0600); err != nil {
		t.Fatal(err)
	}

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if cfg.Server.Port != "9090" {
		t.Errorf("Port = %q, expected 9090", cfg.Server.Port)
	}
	if cfg.Scheduler.HTTPTimeoutSec != 5 {
		t.Errorf("HTTPTimeoutSec = %d, expected 5", cfg.Scheduler.HTTPTimeoutSec)
	}
	// untouched sections keep defaults
	if cfg.Database.DSN != "afterposten.db" {
		t.Errorf("DSN = %q, expected default", cfg.Database.DSN)
	}
}

func TestLoad_EnvOverrides(t *testing.T) {
	t.Setenv("DB_DRIVER", "postgres")
	t.Setenv("ADMIN_PASSWORD", "hunter2")
	t.Setenv("SCHEDULER_ENABLED", "false")

	cfg, err := Load(filepath.Join(t.TempDir(), "none.yaml"))
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if cfg.Database.Driver != "postgres" {
		t.Errorf("Driver = %q, expected postgres", cfg.Database.Driver)
	}
	if !cfg.Auth.Enabled || cfg.Auth.AdminPassword != "hunter2" {
		t.Error("ADMIN_PASSWORD should enable auth")
	}
	if cfg.Scheduler.Enabled {
		t.Error("SCHEDULER_ENABLED=false should disable the scheduler")
	}
}

func TestParseRedisURL(t *testing.T) {
	tests := []struct {
		name     string
		url      string
		addr     string
		password string
		db       int
	}{
		{"plain", "redis://localhost:6379", "localhost:6379", "", 0},
		{"with password and db", "redis://:secret@redis:6380/2", "redis:6380", "secret", 2},
		{"user and password", "redis://user:pw@host:6379/1", "host:6379", "pw", 1},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := DefaultConfig()
			cfg.parseRedisURL(tt.url)
			if cfg.Redis.Addr != tt.addr {
				t.Errorf("Addr = %q, expected %q", cfg.Redis.Addr, tt.addr)
			}
			if cfg.Redis.Password != tt.password {
				t.Errorf("Password = %q, expected %q", cfg.Redis.Password, tt.password)
			}
			if cfg.Redis.DB != tt.db {
				t.Errorf("DB = %d, expected %d", cfg.Redis.DB, tt.db)
			}
		})
	}
}

func TestSave_RoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "config.yaml")
	cfg := DefaultConfig()
	cfg.Server.Port = "7000"

	if err := cfg.Save(path); err != nil {
		t.Fatalf("Save() error = %v", err)
	}

	loaded, err := Load(path)
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if loaded.Server.Port != "7000" {
		t.Errorf("Port = %q, expected 7000", loaded.Server.Port)
	}
}

func TestLoad_CORSOriginsFromEnv(t *testing.T) {
	t.Setenv("CORS_ORIGINS", "http://localhost:3000, https://app.example.com ,")

	cfg, err := Load(filepath.Join(t.TempDir(), "none.yaml"))
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if len(cfg.Server.CORSOrigins) != 2 || cfg.Server.CORSOrigins[1] != "https://app.example.com" {
		t.Errorf("CORSOrigins = %v", cfg.Server.CORSOrigins)
	}
}

func TestLoad_RejectsHTTPTimeoutPastClaimLock(t *testing.T) {
	tests := []struct {
		name    string
		timeout int
		wantErr bool
	}{
		{"default range", 30, false},
		{"just below lock", ClaimLockSec - 1, false},
		{"equal to lock", ClaimLockSec, true},
		{"above lock", 120, true},
		{"zero", 0, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			path := filepath.Join(t.TempDir(), "config.yaml")
			content := []byte("scheduler:\n  http_timeout_sec: " + strconv.Itoa(tt.timeout) + "\n")
			if err := os.WriteFile(path, content, 0600); err != nil {
				t.Fatal(err)
			}
			_, err := Load(path)
			if (err != nil) != tt.wantErr {
				t.Errorf("Load() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}
