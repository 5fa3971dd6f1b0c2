package services

import (
	"testing"
	"time"
)

func TestComputeBackoff(t *testing.T) {
	tests := []struct {
		attempts int
		expected time.Duration
	}{
		{0, 0},
		{1, time.Minute},
		{2, 2 * time.Minute},
		{5, 5 * time.Minute},
		{14, 14 * time.Minute},
		{15, 15 * time.Minute},
		{16, 15 * time.Minute},
		{1000, 15 * time.Minute},
	}

	for _, tt := range tests {
		if got := ComputeBackoff(tt.attempts); got != tt.expected {
			t.Errorf("ComputeBackoff(%d) = %s, expected %s", tt.attempts, got, tt.expected)
		}
	}
}

func TestComputeBackoff_NonDecreasing(t *testing.T) {
	prev := time.Duration(0)
	for attempts := 1; attempts <= 40; attempts++ {
		d := ComputeBackoff(attempts)
		if d < prev {
			t.Fatalf("backoff decreased at attempt %d: %s < %s", attempts, d, prev)
		}
		if d > BackoffCeiling {
			t.Fatalf("backoff %s exceeds ceiling", d)
		}
		prev = d
	}
}
