package database

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"linguasync/internal/constants"
)

const retryBackoff = 100 * time.Millisecond

// withRetry runs a database operation with bounded retries on transient
// sqlite failures (lock contention, disk hiccups).
func withRetry(ctx context.Context, operationName string, operation func() error) error {
	var lastErr error
	maxAttempts := constants.DefaultDatabaseRetryAttempts

	for attempt := 1; attempt <= maxAttempts; attempt++ {
		select {
		case <-ctx.Done():
			return ctx.Err()
		default:
		}

		err := operation()
		if err == nil {
			return nil
		}
		lastErr = err

		if !isRetryableDBError(err) {
			return fmt.Errorf("%s failed: %w", operationName, err)
		}
		if attempt == maxAttempts {
			break
		}

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(time.Duration(attempt) * retryBackoff):
		}
	}

	return fmt.Errorf("%s failed after %d attempts: %w", operationName, maxAttempts, lastErr)
}

// isRetryableDBError determines if a database error is worth retrying
func isRetryableDBError(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return false
	}

	errStr := err.Error()
	if strings.Contains(errStr, "database is locked") {
		return true
	}
	if strings.Contains(errStr, "disk I/O error") {
		return true
	}
	return false
}
