package models

import "time"

// ReadStatus is one user's read receipt for one message. At most one exists
// per (message, reader) pair and it is never updated after creation.
type ReadStatus struct {
	MessageID string    `json:"messageId" db:"message_id"`
	ReaderID  string    `json:"readerId" db:"reader_id"`
	ReadAt    time.Time `json:"readAt" db:"read_at"`
}

// UnreadSummary aggregates unread counts across every room a user
// participates in. Rooms with zero unread messages are omitted.
type UnreadSummary struct {
	UserID      string         `json:"userId"`
	Total       int            `json:"total"`
	RoomCounts  map[string]int `json:"roomCounts"`
	GeneratedAt time.Time      `json:"generatedAt"`
}
