package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"gopkg.in/yaml.v3"
)

type Config struct {
	Server     ServerConfig     `yaml:"server"`
	Database   DatabaseConfig   `yaml:"database"`
	Log        LogConfig        `yaml:"log"`
	Auth       AuthConfig       `yaml:"auth"`
	JWT        JWTConfig        `yaml:"jwt"`
	Encryption EncryptionConfig `yaml:"encryption"`
	Storage    StorageConfig    `yaml:"storage"`
	Scheduler  SchedulerConfig  `yaml:"scheduler"`
	Redis      RedisConfig      `yaml:"redis"`
}

type ServerConfig struct {
	Host string `yaml:"host"`
	Port string `yaml:"port"`
	Mode string `yaml:"mode"` // debug, release, test

	// CORSOrigins lists the browser origins allowed to call the API; "*" allows any.
	CORSOrigins []string `yaml:"cors_origins"`
}

type DatabaseConfig struct {
	Driver string `yaml:"driver"` // sqlite, mysql, postgres
	DSN    string `yaml:"dsn"`
}

type LogConfig struct {
	Level string `yaml:"level"`
}

// AuthConfig guards the API with a single admin password. Disabled by default
// since the tool normally runs on localhost for one user.
type AuthConfig struct {
	Enabled       bool   `yaml:"enabled"`
	AdminPassword string `yaml:"admin_password"`
}

type JWTConfig struct {
	Secret     string `yaml:"secret"`
	ExpireHour int    `yaml:"expire_hour"`
}

// EncryptionConfig locates the AES key used for publisher secrets.
// Key wins over KeyFile; an empty KeyFile means ~/.afterposten/encryption.key.
type EncryptionConfig struct {
	Key     string `yaml:"key"`
	KeyFile string `yaml:"key_file"`
}

type StorageConfig struct {
	PublicDir string `yaml:"public_dir"` // asset paths are relative to this dir
}

// ClaimLockSec is how long a scheduler claim holds a schedule. A delivery
// must finish inside it, so http_timeout_sec has to stay below it.
const ClaimLockSec = 60

type SchedulerConfig struct {
	Enabled        bool `yaml:"enabled"`
	HTTPTimeoutSec int  `yaml:"http_timeout_sec"`
}

// RedisConfig for the optional async memory queue
type RedisConfig struct {
	Enabled  bool   `yaml:"enabled"`
	Addr     string `yaml:"addr"`
	Password string `yaml:"password"`
	DB       int    `yaml:"db"`
}

func Load(configPath string) (*Config, error) {
	if configPath == "" {
		configPath = "config.yaml"
	}

	cfg := DefaultConfig()

	data, err := os.ReadFile(configPath)
	switch {
	case os.IsNotExist(err):
	case err != nil:
		return nil, err
	default:
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, err
		}
	}

	cfg.overrideFromEnv()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate rejects settings the scheduler cannot run safely with.
func (c *Config) Validate() error {
	if c.Scheduler.HTTPTimeoutSec <= 0 || c.Scheduler.HTTPTimeoutSec >= ClaimLockSec {
		return fmt.Errorf("scheduler.http_timeout_sec must be between 1 and %d, got %d",
			ClaimLockSec-1, c.Scheduler.HTTPTimeoutSec)
	}
	return nil
}

func DefaultConfig() *Config {
	return &Config{
		Server: ServerConfig{
			Host:        "127.0.0.1",
			Port:        "8080",
			Mode:        "debug",
			CORSOrigins: []string{"http://localhost:3000"},
		},
		Database: DatabaseConfig{
			Driver: "sqlite",
			DSN:    "afterposten.db",
		},
		Log: LogConfig{
			Level: "info",
		},
		JWT: JWTConfig{
			Secret:     "afterposten-secret-key-change-in-production",
			ExpireHour: 24,
		},
		Storage: StorageConfig{
			PublicDir: "public",
		},
		Scheduler: SchedulerConfig{
			Enabled:        true,
			HTTPTimeoutSec: 30,
		},
		Redis: RedisConfig{
			Enabled: false,
			Addr:    "localhost:6379",
			DB:      0,
		},
	}
}

func (c *Config) overrideFromEnv() {
	if host := os.Getenv("SERVER_HOST"); host != "" {
		c.Server.Host = host
	}
	if port := os.Getenv("SERVER_PORT"); port != "" {
		c.Server.Port = port
	}
	if mode := os.Getenv("SERVER_MODE"); mode != "" {
		c.Server.Mode = mode
	}
	if origins := os.Getenv("CORS_ORIGINS"); origins != "" {
		c.Server.CORSOrigins = splitAndTrim(origins)
	}
	if driver := os.Getenv("DB_DRIVER"); driver != "" {
		c.Database.Driver = driver
	}
	if dsn := os.Getenv("DB_DSN"); dsn != "" {
		c.Database.DSN = dsn
	}
	if level := os.Getenv("LOG_LEVEL"); level != "" {
		c.Log.Level = level
	}
	if secret := os.Getenv("JWT_SECRET"); secret != "" {
		c.JWT.Secret = secret
	}
	if password := os.Getenv("ADMIN_PASSWORD"); password != "" {
		c.Auth.Enabled = true
		c.Auth.AdminPassword = password
	}
	if key := os.Getenv("ENCRYPTION_KEY"); key != "" {
		c.Encryption.Key = key
	}
	if keyFile := os.Getenv("ENCRYPTION_KEY_FILE"); keyFile != "" {
		c.Encryption.KeyFile = keyFile
	}
	if dir := os.Getenv("PUBLIC_DIR"); dir != "" {
		c.Storage.PublicDir = dir
	}
	if enabled := os.Getenv("SCHEDULER_ENABLED"); enabled != "" {
		if b, err := strconv.ParseBool(enabled); err == nil {
			c.Scheduler.Enabled = b
		}
	}
	// Redis URL override (format: redis://:password@host:port/db)
	if redisURL := os.Getenv("REDIS_URL"); redisURL != "" {
		c.Redis.Enabled = true
		c.parseRedisURL(redisURL)
	}
}

// parseRedisURL parses a Redis URL and sets config values
// Format: redis://:password@host:port/db
func (c *Config) parseRedisURL(redisURL string) {
	url := strings.TrimPrefix(redisURL, "redis://")

	if atIdx := strings.Index(url, "@"); atIdx != -1 {
		authPart := url[:atIdx]
		url = url[atIdx+1:]
		if colonIdx := strings.Index(authPart, ":"); colonIdx != -1 {
			c.Redis.Password = authPart[colonIdx+1:]
		}
	}

	if slashIdx := strings.LastIndex(url, "/"); slashIdx != -1 {
		dbStr := url[slashIdx+1:]
		url = url[:slashIdx]
		if db, err := strconv.Atoi(dbStr); err == nil {
			c.Redis.DB = db
		}
	}

	c.Redis.Addr = url
}

func splitAndTrim(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}

func (c *Config) Save(configPath string) error {
	if configPath == "" {
		configPath = "config.yaml"
	}

	dir := filepath.Dir(configPath)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return err
	}

	data, err := yaml.Marshal(c)
	if err != nil {
		return err
	}

	return os.WriteFile(configPath, data, 0600)
}
