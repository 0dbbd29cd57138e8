package models

import "time"

type SyncItemStatus string

const (
	SyncItemQueued    SyncItemStatus = "queued"
	SyncItemCompleted SyncItemStatus = "completed"
	SyncItemConflict  SyncItemStatus = "conflict"
	SyncItemFailed    SyncItemStatus = "failed"
)

type SyncSessionStatus string

const (
	SyncSessionQueued     SyncSessionStatus = "queued"
	SyncSessionInProgress SyncSessionStatus = "in_progress"
	SyncSessionCompleted  SyncSessionStatus = "completed"
	SyncSessionPartial    SyncSessionStatus = "partial"
	SyncSessionFailed     SyncSessionStatus = "failed"
)

// SyncItem is one message pending synchronization to a user's devices.
// Its identity within a sync batch is the composite key (MessageID, RoomID);
// two queued items sharing that key are conflict candidates, never
// independent entries in the merged stream.
type SyncItem struct {
	SyncID    string         `json:"syncId"`
	MessageID string         `json:"messageId"`
	RoomID    string         `json:"roomId"`
	SenderID  string         `json:"senderId"`
	Content   string         `json:"content"`
	Timestamp int64          `json:"timestamp"`
	Status    SyncItemStatus `json:"status"`
	Deleted   bool           `json:"deleted"`
	QueuedAt  time.Time      `json:"queuedAt"`
}

// CompositeKey identifies conflict candidates within one sync batch.
func (i *SyncItem) CompositeKey() string {
	return i.MessageID + ":" + i.RoomID
}

// SyncSession records one execution of the sync algorithm for a
// (user, device) pair, retained for history.
type SyncSession struct {
	SessionID     string            `json:"sessionId"`
	UserID        string            `json:"userId"`
	DeviceID      string            `json:"deviceId"`
	LastSyncTS    int64             `json:"lastSyncTimestamp"`
	StartedAt     time.Time         `json:"startedAt"`
	CompletedAt   time.Time         `json:"completedAt"`
	Status        SyncSessionStatus `json:"status"`
	SyncedCount   int               `json:"syncedCount"`
	ConflictCount int               `json:"conflictCount"`
	ErrorCount    int               `json:"errorCount"`
	Error         string            `json:"error,omitempty"`
}

// SyncResult is the structured outcome returned to the caller. A sync call
// always produces one, even when the session aborts internally.
type SyncResult struct {
	SessionID     string            `json:"sessionId"`
	Status        SyncSessionStatus `json:"status"`
	SyncedCount   int               `json:"syncedCount"`
	ConflictCount int               `json:"conflictCount"`
	ErrorCount    int               `json:"errorCount"`
	Error         string            `json:"error,omitempty"`
}

// DeviceSyncState is the per-(user,device) synchronization cursor. SyncVersion
// increments on every structural change so clients can detect stale local
// state without comparing the full cursor.
type DeviceSyncState struct {
	UserID              string    `json:"userId"`
	DeviceID            string    `json:"deviceId"`
	LastSyncAt          time.Time `json:"lastSyncAt"`
	LastSyncTS          int64     `json:"lastSyncTimestamp"`
	TotalSyncedMessages int64     `json:"totalSyncedMessages"`
	PendingCount        int       `json:"pendingCount"`
	SyncVersion         int64     `json:"syncVersion"`
}

// NeedsSync reports whether a device is due for a sync pass: anything is
// pending, or the last pass is older than staleAfter.
func (s *DeviceSyncState) NeedsSync(staleAfter time.Duration, now time.Time) bool {
	return s.PendingCount > 0 || now.Sub(s.LastSyncAt) > staleAfter
}
