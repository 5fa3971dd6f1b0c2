package services

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/afterposten/backend/internal/models"
	"github.com/afterposten/backend/internal/tz"
	"github.com/afterposten/backend/pkg/logger"
)

// PostProvider supplies post content and records post status.
type PostProvider interface {
	GetPost(ctx context.Context, id string) (*PostContent, error)
	SetPostStatus(ctx context.Context, id, status string) error
}

// TargetResolver loads the secret-bearing configuration of a publisher profile.
type TargetResolver interface {
	GetTarget(ctx context.Context, id string) (*PublishTarget, error)
}

// DeliverySink performs one delivery attempt and never fails outright.
type DeliverySink interface {
	Publish(ctx context.Context, target *PublishTarget, payload *PublishPayload) *PublishResult
}

// LearningHook receives published content. Implementations must return
// quickly; the result is only logged.
type LearningHook interface {
	IngestPublishedContent(ctx context.Context, content PublishedContent) bool
}

type SettingsProvider interface {
	GetSettings(ctx context.Context) (*Settings, error)
}

type TickResult struct {
	Processed int      `json:"processed"`
	Succeeded int      `json:"succeeded"`
	Failed    int      `json:"failed"`
	Errors    []string `json:"errors"`
	// Skipped is set when another instance held the tick lock.
	Skipped bool `json:"skipped,omitempty"`
}

type SchedulerDeps struct {
	Store    *ScheduleStore
	Runs     *PublishRunService
	Settings SettingsProvider
	Posts    PostProvider
	Targets  TargetResolver
	Sink     DeliverySink
	Learning LearningHook      // optional
	SysLog   *SystemLogService // optional
	Events   *SSEHub           // optional
}

// Scheduler runs publish ticks: claim due schedules, deliver each one and
// apply the retry policy to the outcome.
type Scheduler struct {
	store    *ScheduleStore
	runs     *PublishRunService
	settings SettingsProvider
	posts    PostProvider
	targets  TargetResolver
	sink     DeliverySink
	learning LearningHook
	sysLog   *SystemLogService
	events   *SSEHub
	now      func() time.Time
}

func NewScheduler(deps SchedulerDeps) *Scheduler {
	return &Scheduler{
		store:    deps.Store,
		runs:     deps.Runs,
		settings: deps.Settings,
		posts:    deps.Posts,
		targets:  deps.Targets,
		sink:     deps.Sink,
		learning: deps.Learning,
		sysLog:   deps.SysLog,
		events:   deps.Events,
		now:      time.Now,
	}
}

// Tick processes every schedule due now. Per-schedule failures end up in the
// result; only failing to load settings or query the store returns an error.
func (s *Scheduler) Tick(ctx context.Context) (*TickResult, error) {
	log := logger.Component("scheduler")

	settings, err := s.settings.GetSettings(ctx)
	if err != nil {
		return nil, err
	}

	now := s.now().UTC()
	s.failAbandoned(ctx, now, settings.MaxPublishAttempts)

	claimed, err := s.store.FindAndLockDue(ctx, now, settings.MaxPublishAttempts)
	if err != nil {
		if len(claimed) == 0 {
			return nil, err
		}
		// rows already claimed are processed; the rest wait for the next tick
		log.Error().Err(err).Int("claimed", len(claimed)).Msg("[Scheduler] Claim interrupted")
	}

	result := &TickResult{Errors: []string{}}
	for i := range claimed {
		sched := &claimed[i]
		// deliveries run one after another, so renew the claim before each
		if err := s.store.ExtendLock(ctx, sched, s.now()); err != nil {
			log.Warn().Err(err).Str("schedule_id", sched.ID).Msg("[Scheduler] Claim lapsed before delivery, skipping")
			result.Errors = append(result.Errors, fmt.Sprintf("Schedule %s: %s", sched.ID, err.Error()))
			continue
		}
		result.Processed++
		s.emit(sched, ScheduleEventRunning, nil, "")
		if err := s.publish(ctx, sched, settings); err != nil {
			result.Failed++
			result.Errors = append(result.Errors, fmt.Sprintf("Schedule %s: %s", sched.ID, err.Error()))
			s.handleFailure(ctx, sched, settings.MaxPublishAttempts, err)
			continue
		}
		result.Succeeded++
	}

	if result.Processed > 0 {
		log.Info().
			Int("processed", result.Processed).
			Int("succeeded", result.Succeeded).
			Int("failed", result.Failed).
			Msg("[Scheduler] Tick finished")
	}
	return result, nil
}

func (s *Scheduler) publish(ctx context.Context, sched *models.Schedule, settings *Settings) error {
	post, err := s.posts.GetPost(ctx, sched.PostID)
	if errors.Is(err, ErrPostNotFound) {
		return ErrPostNotFound
	}
	if err != nil {
		return fmt.Errorf("load post: %w", err)
	}

	profileID := firstNonEmpty(sched.PublisherProfileID, post.PublisherProfileID, settings.DefaultPublisherProfileID)
	if profileID == "" {
		return ErrNoPublisherTarget
	}

	target, err := s.targets.GetTarget(ctx, profileID)
	if errors.Is(err, ErrProfileNotFound) {
		return fmt.Errorf("publisher profile %s not found", profileID)
	}
	if err != nil {
		return fmt.Errorf("load publisher profile: %w", err)
	}

	payload, err := s.buildPayload(sched, post, target, settings)
	if err != nil {
		return err
	}

	result := s.sink.Publish(ctx, target, payload)

	bookkeeping := context.WithoutCancel(ctx)
	if _, err := s.runs.Record(bookkeeping, sched, target, result); err != nil {
		logger.Error().Err(err).Str("schedule_id", sched.ID).Msg("[Scheduler] Failed to record publish run")
	}

	if !result.Success {
		if result.ResponseMeta != nil && result.ResponseMeta.Error != "" {
			return fmt.Errorf("publish failed: %s", result.ResponseMeta.Error)
		}
		return fmt.Errorf("publish failed: HTTP %d", result.StatusCode)
	}

	// delivery happened; bookkeeping errors below are logged and the lock
	// expiry is the fallback
	if err := s.store.MarkDone(bookkeeping, sched); errors.Is(err, ErrClaimLost) {
		logger.Warn().Str("schedule_id", sched.ID).Msg("[Scheduler] Claim lost before marking done, newer claimer owns the schedule")
	} else if err != nil {
		logger.Error().Err(err).Str("schedule_id", sched.ID).Msg("[Scheduler] Failed to mark schedule done")
	}
	if err := s.posts.SetPostStatus(bookkeeping, post.ID, models.PostStatusPublished); err != nil {
		logger.Error().Err(err).Str("post_id", post.ID).Msg("[Scheduler] Failed to mark post published")
	}

	s.emit(sched, ScheduleEventPublished, nil, "")
	logger.Info().
		Str("schedule_id", sched.ID).
		Str("post_id", post.ID).
		Int("attempts", sched.Attempts).
		Str("profile", target.Name).
		Msg("[Scheduler] Post published")

	if s.learning != nil {
		ok := s.learning.IngestPublishedContent(bookkeeping, PublishedContent{
			PostID:      post.ID,
			Text:        payload.Text,
			Hashtags:    payload.Hashtags,
			ImagePath:   post.PrimaryAssetPath,
			AltText:     post.PrimaryAssetAltText,
			PublishedAt: s.now().UTC(),
		})
		if !ok {
			logger.Warn().Str("post_id", post.ID).Msg("[Scheduler] Learning hook did not accept published content")
		}
	}
	return nil
}

func (s *Scheduler) buildPayload(sched *models.Schedule, post *PostContent, target *PublishTarget, settings *Settings) (*PublishPayload, error) {
	zone := sched.ScheduledTz
	if !tz.ValidTimezone(zone) {
		zone = settings.Timezone
	}
	scheduledAt, err := tz.UTCToLocal(sched.ScheduledAtUTC, zone, tz.PayloadLayout)
	if err != nil {
		return nil, fmt.Errorf("format scheduled time: %w", err)
	}

	payload := &PublishPayload{
		Text:            post.Text(),
		Hashtags:        post.LatestDraftHashtags,
		PostID:          post.ID,
		ScheduledAt:     scheduledAt,
		ProfileName:     target.Name,
		ExtraFields:     parseExtraFields(target.ExtraPayloadJSON),
		ImageFormat:     post.PrimaryAssetFormat,
		BinaryFieldName: target.BinaryFieldName,
	}
	if payload.Hashtags == nil {
		payload.Hashtags = []string{}
	}
	if post.PrimaryAssetPath != nil {
		payload.ImagePath = *post.PrimaryAssetPath
	}
	return payload, nil
}

func (s *Scheduler) handleFailure(ctx context.Context, sched *models.Schedule, maxAttempts int, cause error) {
	ctx = context.WithoutCancel(ctx)
	msg := cause.Error()
	log := logger.Component("scheduler")

	if sched.Attempts < maxAttempts {
		retryAt := s.now().UTC().Add(ComputeBackoff(sched.Attempts))
		if err := s.store.MarkFailed(ctx, sched, msg, &retryAt); errors.Is(err, ErrClaimLost) {
			log.Warn().Str("schedule_id", sched.ID).Msg("[Scheduler] Claim lost, failure not recorded")
			return
		} else if err != nil {
			log.Error().Err(err).Str("schedule_id", sched.ID).Msg("[Scheduler] Failed to reschedule")
			return
		}
		s.emit(sched, ScheduleEventRetrying, &retryAt, msg)
		log.Warn().
			Str("schedule_id", sched.ID).
			Str("post_id", sched.PostID).
			Int("attempts", sched.Attempts).
			Time("retry_at", retryAt).
			Str("error", msg).
			Msg("[Scheduler] Publish failed, rescheduled")
		s.sysLog.LogWarning("scheduler", "publish_retry", fmt.Sprintf("Schedule %s attempt %d failed: %s", sched.ID, sched.Attempts, msg),
			map[string]interface{}{"schedule_id": sched.ID, "post_id": sched.PostID, "retry_at": retryAt})
		return
	}

	if err := s.store.MarkFailed(ctx, sched, msg, nil); errors.Is(err, ErrClaimLost) {
		log.Warn().Str("schedule_id", sched.ID).Msg("[Scheduler] Claim lost, failure not recorded")
		return
	} else if err != nil {
		log.Error().Err(err).Str("schedule_id", sched.ID).Msg("[Scheduler] Failed to mark schedule failed")
	}
	s.emit(sched, ScheduleEventFailed, nil, msg)
	if err := s.posts.SetPostStatus(ctx, sched.PostID, models.PostStatusFailed); err != nil && !errors.Is(err, ErrPostNotFound) {
		log.Error().Err(err).Str("post_id", sched.PostID).Msg("[Scheduler] Failed to mark post failed")
	}
	log.Error().
		Str("schedule_id", sched.ID).
		Str("post_id", sched.PostID).
		Int("attempts", sched.Attempts).
		Str("error", msg).
		Msg("[Scheduler] Publish failed permanently")
	s.sysLog.LogError("scheduler", "publish_failed", fmt.Sprintf("Schedule %s failed after %d attempts: %s", sched.ID, sched.Attempts, msg),
		map[string]interface{}{"schedule_id": sched.ID, "post_id": sched.PostID})
}

func (s *Scheduler) failAbandoned(ctx context.Context, now time.Time, maxAttempts int) {
	failed, err := s.store.FailAbandoned(ctx, now, maxAttempts)
	if err != nil {
		logger.Warn().Err(err).Msg("[Scheduler] Failed to sweep abandoned schedules")
	}
	for _, sched := range failed {
		if err := s.posts.SetPostStatus(ctx, sched.PostID, models.PostStatusFailed); err != nil && !errors.Is(err, ErrPostNotFound) {
			logger.Error().Err(err).Str("post_id", sched.PostID).Msg("[Scheduler] Failed to mark post failed")
		}
		s.emit(&sched, ScheduleEventFailed, nil, "lock expired after final attempt")
		s.sysLog.LogError("scheduler", "publish_abandoned", fmt.Sprintf("Schedule %s lock expired after final attempt", sched.ID),
			map[string]interface{}{"schedule_id": sched.ID, "post_id": sched.PostID})
	}
}

func (s *Scheduler) emit(sched *models.Schedule, status string, nextAttemptAt *time.Time, errMsg string) {
	s.events.Publish(ScheduleEvent{
		ScheduleID:    sched.ID,
		PostID:        sched.PostID,
		Status:        status,
		Attempts:      sched.Attempts,
		NextAttemptAt: nextAttemptAt,
		Error:         errMsg,
		At:            s.now().UTC(),
	})
}

// parseExtraFields reads the profile's extra payload object. Non-string
// values are sent as their JSON text; malformed input yields no fields.
func parseExtraFields(raw string) map[string]string {
	fields := map[string]string{}
	if raw == "" {
		return fields
	}
	var obj map[string]interface{}
	if err := json.Unmarshal([]byte(raw), &obj); err != nil {
		return fields
	}
	for k, v := range obj {
		switch val := v.(type) {
		case string:
			fields[k] = val
		case nil:
			fields[k] = ""
		default:
			b, _ := json.Marshal(val)
			fields[k] = string(b)
		}
	}
	return fields
}

func firstNonEmpty(ids ...*string) string {
	for _, id := range ids {
		if id != nil && *id != "" {
			return *id
		}
	}
	return ""
}
