package services

import "errors"

var (
	ErrPostNotFound      = errors.New("post not found")
	ErrDraftNotFound     = errors.New("draft not found")
	ErrAssetNotFound     = errors.New("asset not found")
	ErrProfileNotFound   = errors.New("publisher profile not found")
	ErrScheduleNotFound  = errors.New("schedule not found")
	ErrScheduleInPast    = errors.New("scheduled time must be in the future")
	ErrScheduleRunning   = errors.New("schedule is currently running")
	ErrClaimLost         = errors.New("schedule claim lost to another claimer")
	ErrNoPublisherTarget = errors.New("no publisher target configured")
	ErrInvalidSetting    = errors.New("invalid setting")
	ErrInvalidInput      = errors.New("invalid input")

	ErrInvalidCredentials = errors.New("invalid password")
	ErrAuthDisabled       = errors.New("authentication is disabled")
)
