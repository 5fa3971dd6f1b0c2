package services

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/afterposten/backend/internal/config"
	"github.com/afterposten/backend/internal/models"
	"gorm.io/gorm"
)

// LockDuration is how long a claim hides a schedule from other claimers.
const LockDuration = config.ClaimLockSec * time.Second

// ScheduleStore persists schedules and hands out exclusive claims on due ones.
type ScheduleStore struct {
	db *gorm.DB
}

func NewScheduleStore(db *gorm.DB) *ScheduleStore {
	return &ScheduleStore{db: db}
}

func (s *ScheduleStore) Create(ctx context.Context, sched *models.Schedule) error {
	sched.ScheduledAtUTC = sched.ScheduledAtUTC.UTC()
	if sched.Status == "" {
		sched.Status = models.ScheduleStatusScheduled
	}
	return s.db.WithContext(ctx).Create(sched).Error
}

func (s *ScheduleStore) Get(ctx context.Context, id string) (*models.Schedule, error) {
	var sched models.Schedule
	err := s.db.WithContext(ctx).First(&sched, "id = ?", id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrScheduleNotFound
	}
	if err != nil {
		return nil, err
	}
	return &sched, nil
}

func (s *ScheduleStore) ListByPost(ctx context.Context, postID string) ([]models.Schedule, error) {
	schedules := []models.Schedule{}
	err := s.db.WithContext(ctx).Where("post_id = ?", postID).Order("scheduled_at_utc DESC").Find(&schedules).Error
	return schedules, err
}

// claimable matches rows a claimer may take at now: waiting schedules whose
// lock is clear or stale, and running schedules whose claimer let the lock
// expire without reporting back.
const claimable = "((status = ? AND (locked_until IS NULL OR locked_until < ?)) OR (status = ? AND locked_until < ?))"

func claimArgs(now time.Time) []interface{} {
	return []interface{}{models.ScheduleStatusScheduled, now, models.ScheduleStatusRunning, now}
}

// FindAndLockDue claims every due schedule with attempts left. Each claim is
// a conditional update guarded on the state read, so among concurrent callers
// exactly one wins a given row; losers skip it silently. The returned rows
// reflect the claim (running, attempts incremented, locked until now+LockDuration).
func (s *ScheduleStore) FindAndLockDue(ctx context.Context, now time.Time, maxAttempts int) ([]models.Schedule, error) {
	now = now.UTC()
	db := s.db.WithContext(ctx)

	var candidates []models.Schedule
	err := db.Where("scheduled_at_utc <= ? AND attempts < ?", now, maxAttempts).
		Where(claimable, claimArgs(now)...).
		Order("scheduled_at_utc ASC").
		Find(&candidates).Error
	if err != nil {
		return nil, fmt.Errorf("query due schedules: %w", err)
	}

	lockUntil := now.Add(LockDuration)
	claimed := make([]models.Schedule, 0, len(candidates))
	for _, c := range candidates {
		result := db.Model(&models.Schedule{}).
			Where("id = ? AND attempts = ?", c.ID, c.Attempts).
			Where(claimable, claimArgs(now)...).
			Updates(map[string]interface{}{
				"status":       models.ScheduleStatusRunning,
				"locked_until": lockUntil,
				"attempts":     gorm.Expr("attempts + 1"),
			})
		if result.Error != nil {
			return claimed, fmt.Errorf("claim schedule %s: %w", c.ID, result.Error)
		}
		if result.RowsAffected == 0 {
			continue
		}
		c.Status = models.ScheduleStatusRunning
		c.LockedUntil = &lockUntil
		c.Attempts++
		claimed = append(claimed, c)
	}
	return claimed, nil
}

// FailAbandoned moves running schedules whose lock expired after their last
// allowed attempt to failed. They can never be claimed again and would
// otherwise stay running forever.
func (s *ScheduleStore) FailAbandoned(ctx context.Context, now time.Time, maxAttempts int) ([]models.Schedule, error) {
	now = now.UTC()
	db := s.db.WithContext(ctx)

	var stale []models.Schedule
	err := db.Where("status = ? AND locked_until < ? AND attempts >= ?", models.ScheduleStatusRunning, now, maxAttempts).
		Find(&stale).Error
	if err != nil {
		return nil, err
	}

	failed := make([]models.Schedule, 0, len(stale))
	msg := "lock expired after final attempt"
	for _, sched := range stale {
		result := db.Model(&models.Schedule{}).
			Where("id = ? AND status = ? AND locked_until < ?", sched.ID, models.ScheduleStatusRunning, now).
			Updates(map[string]interface{}{
				"status":       models.ScheduleStatusFailed,
				"locked_until": nil,
				"last_error":   msg,
			})
		if result.Error != nil {
			return failed, result.Error
		}
		if result.RowsAffected > 0 {
			sched.Status = models.ScheduleStatusFailed
			sched.LockedUntil = nil
			sched.LastError = &msg
			failed = append(failed, sched)
		}
	}
	return failed, nil
}

// ExtendLock renews a held claim to now+LockDuration right before delivery.
// It returns ErrClaimLost once the lock has lapsed or another claimer took
// the row, and the caller must not deliver.
func (s *ScheduleStore) ExtendLock(ctx context.Context, sched *models.Schedule, now time.Time) error {
	now = now.UTC()
	lockUntil := now.Add(LockDuration)
	result := s.db.WithContext(ctx).Model(&models.Schedule{}).
		Where("id = ? AND status = ? AND attempts = ? AND locked_until >= ?",
			sched.ID, models.ScheduleStatusRunning, sched.Attempts, now).
		Update("locked_until", lockUntil)
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return ErrClaimLost
	}
	sched.LockedUntil = &lockUntil
	return nil
}

// MarkDone moves a claimed schedule from running to done.
func (s *ScheduleStore) MarkDone(ctx context.Context, sched *models.Schedule) error {
	return s.finishClaim(ctx, sched, map[string]interface{}{
		"status":       models.ScheduleStatusDone,
		"locked_until": nil,
	})
}

// MarkFailed records a failed attempt. With rescheduleAt the schedule waits
// again at that instant; without it the schedule fails for good.
func (s *ScheduleStore) MarkFailed(ctx context.Context, sched *models.Schedule, errMsg string, rescheduleAt *time.Time) error {
	updates := map[string]interface{}{
		"status":       models.ScheduleStatusFailed,
		"locked_until": nil,
		"last_error":   errMsg,
	}
	if rescheduleAt != nil {
		updates["status"] = models.ScheduleStatusScheduled
		updates["scheduled_at_utc"] = rescheduleAt.UTC()
	}
	return s.finishClaim(ctx, sched, updates)
}

// finishClaim applies the outcome only while the row is still running under
// the caller's claim. The attempts value taken at claim time is the claim
// token: a later claimer has incremented it.
func (s *ScheduleStore) finishClaim(ctx context.Context, sched *models.Schedule, updates map[string]interface{}) error {
	result := s.db.WithContext(ctx).Model(&models.Schedule{}).
		Where("id = ? AND status = ? AND attempts = ?", sched.ID, models.ScheduleStatusRunning, sched.Attempts).
		Updates(updates)
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return ErrClaimLost
	}
	return nil
}

// Delete cancels a schedule unless a claimer currently holds it.
func (s *ScheduleStore) Delete(ctx context.Context, id string, now time.Time) error {
	now = now.UTC()
	result := s.db.WithContext(ctx).
		Where("id = ?", id).
		Where("NOT (status = ? AND locked_until >= ?)", models.ScheduleStatusRunning, now).
		Delete(&models.Schedule{})
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected > 0 {
		return nil
	}
	if _, err := s.Get(ctx, id); err != nil {
		return err
	}
	return ErrScheduleRunning
}
