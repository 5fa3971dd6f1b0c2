package services

import "time"

const (
	BackoffBase    = 60 * time.Second
	BackoffCeiling = 15 * time.Minute
)

// ComputeBackoff returns the delay before the next attempt after a failure:
// BackoffBase per attempt made so far, capped at BackoffCeiling.
func ComputeBackoff(attempts int) time.Duration {
	if attempts <= 0 {
		return 0
	}
	if attempts >= int(BackoffCeiling/BackoffBase) {
		return BackoffCeiling
	}
	return BackoffBase * time.Duration(attempts)
}
