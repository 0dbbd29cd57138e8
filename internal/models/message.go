package models

import (
	"time"
)

type DeliveryStatus string

const (
	DeliveryStatusSent      DeliveryStatus = "sent"
	DeliveryStatusDelivered DeliveryStatus = "delivered"
	DeliveryStatusRead      DeliveryStatus = "read"
	DeliveryStatusFailed    DeliveryStatus = "failed"
)

// Message is the durable chat message record as the delivery subsystem sees
// it. Timestamp is the message's own logical timestamp in Unix milliseconds,
// assigned at send time; it is the ordering and conflict tie-breaking
// authority, not the wall-clock arrival time at this service.
type Message struct {
	ID        string         `json:"id" db:"id"`
	RoomID    string         `json:"roomId" db:"room_id"`
	SenderID  string         `json:"senderId" db:"sender_id"`
	Content   string         `json:"content" db:"content"`
	Timestamp int64          `json:"timestamp" db:"timestamp"`
	Status    DeliveryStatus `json:"status" db:"status"`
	Deleted   bool           `json:"deleted" db:"deleted"`
	CreatedAt time.Time      `json:"createdAt" db:"created_at"`
}

// LogicalTime returns the message's logical timestamp as a time.Time.
func (m *Message) LogicalTime() time.Time {
	return time.UnixMilli(m.Timestamp)
}
