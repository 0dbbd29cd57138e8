package models

import "time"

type ConflictType string

const (
	ConflictTimestampMismatch ConflictType = "timestamp_mismatch"
	ConflictContentDifferent  ConflictType = "content_different"
	ConflictDeletion          ConflictType = "deletion_conflict"
)

// MessageConflict tags two versions of the same (message id, room id) pair
// with the kind of disagreement observed between them. LocalVersion is the
// device-held copy, ServerVersion the copy this service holds.
type MessageConflict struct {
	ConflictID    string       `json:"conflictId"`
	Type          ConflictType `json:"type"`
	LocalVersion  *SyncItem    `json:"localVersion"`
	ServerVersion *SyncItem    `json:"serverVersion"`
	DetectedAt    time.Time    `json:"detectedAt"`
}

// ConflictRecord is the audit record of one resolution attempt. Unresolved
// records persist in the cache (24h TTL) pending manual reconciliation.
type ConflictRecord struct {
	ConflictID string       `json:"conflictId"`
	UserID     string       `json:"userId"`
	Type       ConflictType `json:"type"`
	Resolved   bool         `json:"resolved"`
	Strategy   string       `json:"strategy,omitempty"`
	WinnerID   string       `json:"winnerId,omitempty"`
	ResolvedAt time.Time    `json:"resolvedAt"`
}
