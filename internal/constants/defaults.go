package constants

import "time"

// Retry queue configuration values
const (
	DefaultMaxRetryAttempts   = 3
	DefaultRetrySweepInterval = 5 * time.Minute
	RetryQueueTTL             = 7 * 24 * time.Hour
	RetryCounterTTL           = 24 * time.Hour
)

// Offline mailbox configuration values
const (
	OfflineMailboxTTL = 7 * 24 * time.Hour
)

// Sync engine configuration values
const (
	SyncItemTTL           = 7 * 24 * time.Hour
	SyncSessionTTL        = 7 * 24 * time.Hour
	SyncSessionPendingTTL = 24 * time.Hour
	DeviceSyncStateTTL    = 30 * 24 * time.Hour
	UnresolvedConflictTTL = 24 * time.Hour
	DefaultSyncStaleAfter = time.Hour
	DefaultSyncWorkers    = 4
)

// Read status configuration values
const (
	UnreadCountCacheTTL = 5 * time.Minute
	LastReadCacheTTL    = 10 * time.Minute
)

// Default server configuration values
const (
	DefaultServerPort            = 8082
	DefaultServerReadTimeoutSec  = 15
	DefaultServerWriteTimeoutSec = 15
	DefaultServerIdleTimeoutSec  = 60
	DefaultGracefulShutdownSec   = 30
	DefaultDatabaseRetryAttempts = 3
)
