package models

import "time"

// QueuedRetryMessage is a snapshot of a message whose send failed, parked in
// the per-(room,user) retry queue until the caller re-attempts delivery.
type QueuedRetryMessage struct {
	RoomID     string    `json:"roomId"`
	SenderID   string    `json:"senderId"`
	MessageID  string    `json:"messageId"`
	Content    string    `json:"content"`
	EnqueuedAt time.Time `json:"enqueuedAt"`
}

// OfflineMessage is a message queued for a recipient who was disconnected at
// delivery time. It is drained and cleared in one batch on reconnect.
type OfflineMessage struct {
	RecipientID string    `json:"recipientId"`
	MessageID   string    `json:"messageId"`
	SenderID    string    `json:"senderId"`
	RoomID      string    `json:"roomId"`
	Content     string    `json:"content"`
	Timestamp   int64     `json:"timestamp"`
	QueuedAt    time.Time `json:"queuedAt"`
}
