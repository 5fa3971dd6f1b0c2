package services

import (
	"context"
	"encoding/json"
	"time"

	"github.com/afterposten/backend/internal/models"
	"github.com/afterposten/backend/pkg/logger"
	"github.com/robfig/cron/v3"
	"gorm.io/gorm"
)

const (
	LogLevelInfo    = "info"
	LogLevelWarning = "warning"
	LogLevelError   = "error"
)

// SystemLogService writes and queries the operation log. A nil service is
// valid and drops every entry.
type SystemLogService struct {
	db *gorm.DB
}

func NewSystemLogService(db *gorm.DB) *SystemLogService {
	return &SystemLogService{db: db}
}

func (s *SystemLogService) LogInfo(module, action, message string, extra interface{}) {
	s.write(LogLevelInfo, module, action, message, extra)
}

func (s *SystemLogService) LogWarning(module, action, message string, extra interface{}) {
	s.write(LogLevelWarning, module, action, message, extra)
}

func (s *SystemLogService) LogError(module, action, message string, extra interface{}) {
	s.write(LogLevelError, module, action, message, extra)
}

func (s *SystemLogService) write(level, module, action, message string, extra interface{}) {
	if s == nil || s.db == nil {
		return
	}

	var extraStr string
	if extra != nil {
		if b, err := json.Marshal(extra); err == nil {
			extraStr = string(b)
		}
	}

	entry := &models.SystemLog{
		Level:   level,
		Module:  module,
		Action:  action,
		Message: message,
		Actor:   models.ActorSystem,
		Extra:   extraStr,
	}
	if err := s.db.Create(entry).Error; err != nil {
		logger.Warn().Err(err).Str("module", module).Msg("[SystemLog] Failed to write log entry")
	}
}

// Create stores a fully populated entry, used by the audit middleware.
func (s *SystemLogService) Create(entry *models.SystemLog) error {
	if s == nil || s.db == nil {
		return nil
	}
	return s.db.Create(entry).Error
}

type SystemLogListRequest struct {
	Page      int    `form:"page" binding:"omitempty,min=1"`
	PageSize  int    `form:"page_size" binding:"omitempty,min=1,max=100"`
	Level     string `form:"level"`
	Module    string `form:"module"`
	Action    string `form:"action"`
	Actor     string `form:"actor"`
	StartDate string `form:"start_date"`
	EndDate   string `form:"end_date"`
	Search    string `form:"search"`
}

type SystemLogListResponse struct {
	Total    int64              `json:"total"`
	Page     int                `json:"page"`
	PageSize int                `json:"page_size"`
	Items    []models.SystemLog `json:"items"`
}

func (s *SystemLogService) List(ctx context.Context, req *SystemLogListRequest) (*SystemLogListResponse, error) {
	if req.Page == 0 {
		req.Page = 1
	}
	if req.PageSize == 0 {
		req.PageSize = 20
	}

	var logs []models.SystemLog
	var total int64

	query := s.db.WithContext(ctx).Model(&models.SystemLog{})

	if req.Level != "" {
		query = query.Where("level = ?", req.Level)
	}
	if req.Module != "" {
		query = query.Where("module = ?", req.Module)
	}
	if req.Action != "" {
		query = query.Where("action LIKE ?", "%"+req.Action+"%")
	}
	if req.Actor != "" {
		query = query.Where("actor = ?", req.Actor)
	}
	if req.StartDate != "" {
		if start, err := time.Parse("2006-01-02", req.StartDate); err == nil {
			query = query.Where("created_at >= ?", start)
		}
	}
	if req.EndDate != "" {
		if end, err := time.Parse("2006-01-02", req.EndDate); err == nil {
			query = query.Where("created_at < ?", end.AddDate(0, 0, 1))
		}
	}
	if req.Search != "" {
		query = query.Where("message LIKE ?", "%"+req.Search+"%")
	}

	if err := query.Count(&total).Error; err != nil {
		return nil, err
	}

	offset := (req.Page - 1) * req.PageSize
	if err := query.Order("created_at DESC, id DESC").Offset(offset).Limit(req.PageSize).Find(&logs).Error; err != nil {
		return nil, err
	}

	return &SystemLogListResponse{
		Total:    total,
		Page:     req.Page,
		PageSize: req.PageSize,
		Items:    logs,
	}, nil
}

func (s *SystemLogService) GetModules(ctx context.Context) ([]string, error) {
	var modules []string
	if err := s.db.WithContext(ctx).Model(&models.SystemLog{}).Distinct("module").Pluck("module", &modules).Error; err != nil {
		return nil, err
	}
	return modules, nil
}

// CleanupOldLogs deletes logs older than the specified number of days
// Returns the number of deleted records
func (s *SystemLogService) CleanupOldLogs(ctx context.Context, retentionDays int) (int64, error) {
	if retentionDays <= 0 {
		return 0, nil
	}

	cutoffTime := time.Now().UTC().AddDate(0, 0, -retentionDays)
	result := s.db.WithContext(ctx).Where("created_at < ?", cutoffTime).Delete(&models.SystemLog{})
	if result.Error != nil {
		return 0, result.Error
	}

	return result.RowsAffected, nil
}

// StartLogCleanupScheduler runs a cleanup now and then daily. The caller
// stops the returned cron on shutdown.
func StartLogCleanupScheduler(logs *SystemLogService, settings *SystemConfigService) *cron.Cron {
	c := cron.New(cron.WithLogger(logger.CronLogger()))
	job := func() { runLogCleanup(logs, settings) }

	if _, err := c.AddFunc("@daily", job); err != nil {
		logger.Errorf("[SystemLog] Failed to register cleanup job: %v", err)
	}
	go job()
	c.Start()
	return c
}

func runLogCleanup(logs *SystemLogService, settings *SystemConfigService) {
	ctx, cancel := context.WithTimeout(context.Background(), time.Minute)
	defer cancel()

	cfg, err := settings.GetSettings(ctx)
	if err != nil {
		logger.Warnf("[SystemLog] Failed to read retention setting: %v", err)
		return
	}
	if cfg.LogRetentionDays <= 0 {
		logger.Infof("[SystemLog] Log cleanup disabled (retention_days <= 0)")
		return
	}

	deleted, err := logs.CleanupOldLogs(ctx, cfg.LogRetentionDays)
	if err != nil {
		logger.Errorf("[SystemLog] Failed to cleanup old logs: %v", err)
		return
	}

	if deleted > 0 {
		logger.Infof("[SystemLog] Cleaned up %d logs older than %d days", deleted, cfg.LogRetentionDays)
	}
}
