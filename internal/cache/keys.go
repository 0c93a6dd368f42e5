package cache

import (
	"fmt"

	"github.com/google/uuid"
)

func JobLockKey(jobID uuid.UUID) string {
	return fmt.Sprintf("lock:job:%s", jobID)
}

// BatchLockKey guards the batch runner across processes.
func BatchLockKey() string {
	return "lock:batch"
}

func RunSummaryKey(runID string) string {
	return fmt.Sprintf("run:%s", runID)
}

func RateLimitKey(keyPrefix string) string {
	return fmt.Sprintf("ratelimit:%s", keyPrefix)
}
