package store

import (
	"context"
	"errors"
	"time"

	"linguasync/internal/models"
)

// ErrNotFound is returned when a requested row does not exist. Queue entries
// are allowed to reference messages that have since been hard-deleted, so
// callers treat this as drop-and-continue, not as a failure.
var ErrNotFound = errors.New("store: not found")

// MessageStore is the durable message storage this subsystem reads from.
// Ownership of writes lives with the surrounding chat service; the delivery
// subsystem only resolves ids and counts.
type MessageStore interface {
	GetMessage(ctx context.Context, messageID string) (*models.Message, error)
	// CountMessagesExcludingSender counts every message in the room not sent
	// by userID. Cold-start unread semantics are built on this.
	CountMessagesExcludingSender(ctx context.Context, roomID, userID string) (int, error)
	// CountMessagesAfter counts messages in the room newer than after, again
	// excluding the user's own messages.
	CountMessagesAfter(ctx context.Context, roomID, userID string, after time.Time) (int, error)
}

// ReadReceiptStore is the durable read-receipt storage.
type ReadReceiptStore interface {
	SaveReadStatus(ctx context.Context, status *models.ReadStatus) error
	HasReadStatus(ctx context.Context, messageID, readerID string) (bool, error)
	// LastReadTime returns the newest read-at for the pair, or ErrNotFound
	// when the user has never read anything in the room.
	LastReadTime(ctx context.Context, roomID, userID string) (time.Time, error)
	// ReaderIDs returns the distinct readers that have a receipt for the message.
	ReaderIDs(ctx context.Context, messageID string) ([]string, error)
}

// RoomStore resolves room membership.
type RoomStore interface {
	RoomsOf(ctx context.Context, userID string) ([]string, error)
	ParticipantsOf(ctx context.Context, roomID string) ([]string, error)
}

// IsNotFound reports whether err is a missing-row error.
func IsNotFound(err error) bool {
	return errors.Is(err, ErrNotFound)
}
