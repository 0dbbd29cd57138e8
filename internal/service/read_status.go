package service

import (
	"context"
	"time"

	"linguasync/internal/cache"
	"linguasync/internal/constants"
	"linguasync/internal/errors"
	"linguasync/internal/metrics"
	"linguasync/internal/models"
	"linguasync/internal/store"

	"github.com/sirupsen/logrus"
)

const (
	wireTypeUnreadCount = "unread_count"
	wireTypeLastRead    = "last_read"
)

type unreadCountPayload struct {
	Count int `json:"count"`
}

type lastReadPayload struct {
	ReadAt time.Time `json:"readAt"`
}

// ReadStatusService tracks per-message read receipts and serves cached unread
// counts. The cache is an optimization, never a correctness dependency: reads
// fall back to the durable store, and cache write failures are logged and
// swallowed because the durable write already succeeded.
type ReadStatusService interface {
	// MarkAsRead records a receipt. Self-sent messages and duplicate marks
	// are idempotent no-ops.
	MarkAsRead(ctx context.Context, messageID, readerID string) error
	GetUnreadCount(ctx context.Context, roomID, userID string) (int, error)
	GetGlobalUnreadSummary(ctx context.Context, userID string) (*models.UnreadSummary, error)
	// GetLastReadTime returns store.ErrNotFound when the user has never read
	// anything in the room.
	GetLastReadTime(ctx context.Context, roomID, userID string) (time.Time, error)
	// IsMessageFullyRead reports whether every room participant other than
	// the sender holds a receipt for the message.
	IsMessageFullyRead(ctx context.Context, messageID string) (bool, error)
}

type readStatusService struct {
	cache    cache.Store
	messages store.MessageStore
	receipts store.ReadReceiptStore
	rooms    store.RoomStore
	logger   *logrus.Logger
}

func NewReadStatusService(cacheStore cache.Store, messages store.MessageStore, receipts store.ReadReceiptStore, rooms store.RoomStore, logger *logrus.Logger) ReadStatusService {
	return &readStatusService{
		cache:    cacheStore,
		messages: messages,
		receipts: receipts,
		rooms:    rooms,
		logger:   logger,
	}
}

func (s *readStatusService) MarkAsRead(ctx context.Context, messageID, readerID string) error {
	msg, err := s.messages.GetMessage(ctx, messageID)
	if err != nil {
		if store.IsNotFound(err) {
			return errors.NewNotFoundError("message", messageID)
		}
		return errors.NewStoreError("get message", err)
	}

	// A user never accrues a receipt for their own message.
	if msg.SenderID == readerID {
		return nil
	}

	// Check-then-create without a lock: the race window between the existence
	// check and the write is accepted. Worst case is a duplicate receipt
	// attempt, which the store's uniqueness on (message, reader) absorbs.
	exists, err := s.receipts.HasReadStatus(ctx, messageID, readerID)
	if err != nil {
		return errors.NewStoreError("has read status", err)
	}
	if exists {
		return nil
	}

	status := &models.ReadStatus{
		MessageID: messageID,
		ReaderID:  readerID,
		ReadAt:    time.Now().UTC(),
	}
	if err := s.receipts.SaveReadStatus(ctx, status); err != nil {
		return errors.NewStoreError("save read status", err)
	}

	// Delete-on-write, not update-on-write: the next read recomputes from
	// source. Cache failures here are swallowed; the receipt is durable.
	countKey := cache.UnreadCountKey(msg.RoomID, readerID)
	lastKey := cache.LastReadKey(msg.RoomID, readerID)
	if err := s.cache.Delete(ctx, countKey, lastKey); err != nil {
		errors.LogRetryableError(s.logger, errors.NewCacheWriteError(countKey, err), "Failed to invalidate unread caches")
	}

	metrics.IncrementCounter("read_receipts_total", nil, "Read receipts recorded")
	return nil
}

func (s *readStatusService) GetUnreadCount(ctx context.Context, roomID, userID string) (int, error) {
	countKey := cache.UnreadCountKey(roomID, userID)
	if raw, err := s.cache.Get(ctx, countKey); err == nil {
		var payload unreadCountPayload
		if decErr := models.DecodeWire(raw, wireTypeUnreadCount, &payload); decErr == nil {
			metrics.IncrementCounter("unread_cache_hits_total", nil, "Unread count cache hits")
			return payload.Count, nil
		}
	} else if !cache.IsMiss(err) {
		// Cache trouble is not fatal; recompute from the durable store.
		errors.LogRetryableError(s.logger, errors.NewCacheReadError(countKey, err), "Unread cache read failed")
	}
	metrics.IncrementCounter("unread_cache_misses_total", nil, "Unread count cache misses")

	count, err := s.computeUnreadCount(ctx, roomID, userID)
	if err != nil {
		return 0, err
	}

	if payload, err := models.EncodeWire(wireTypeUnreadCount, unreadCountPayload{Count: count}); err == nil {
		if err := s.cache.Set(ctx, countKey, payload, constants.UnreadCountCacheTTL); err != nil {
			errors.LogRetryableError(s.logger, errors.NewCacheWriteError(countKey, err), "Failed to cache unread count")
		}
	}
	return count, nil
}

func (s *readStatusService) computeUnreadCount(ctx context.Context, roomID, userID string) (int, error) {
	lastRead, err := s.receipts.LastReadTime(ctx, roomID, userID)
	if store.IsNotFound(err) {
		// Cold start: a user who never opened the room has every message
		// not sent by them unread.
		count, err := s.messages.CountMessagesExcludingSender(ctx, roomID, userID)
		if err != nil {
			return 0, errors.NewStoreError("count messages", err)
		}
		return count, nil
	}
	if err != nil {
		return 0, errors.NewStoreError("last read time", err)
	}

	count, err := s.messages.CountMessagesAfter(ctx, roomID, userID, lastRead)
	if err != nil {
		return 0, errors.NewStoreError("count messages after", err)
	}
	return count, nil
}

func (s *readStatusService) GetGlobalUnreadSummary(ctx context.Context, userID string) (*models.UnreadSummary, error) {
	roomIDs, err := s.rooms.RoomsOf(ctx, userID)
	if err != nil {
		return nil, errors.NewStoreError("rooms of user", err)
	}

	summary := &models.UnreadSummary{
		UserID:      userID,
		RoomCounts:  make(map[string]int),
		GeneratedAt: time.Now().UTC(),
	}
	for _, roomID := range roomIDs {
		count, err := s.GetUnreadCount(ctx, roomID, userID)
		if err != nil {
			return nil, err
		}
		if count == 0 {
			continue
		}
		summary.RoomCounts[roomID] = count
		summary.Total += count
	}
	return summary, nil
}

func (s *readStatusService) GetLastReadTime(ctx context.Context, roomID, userID string) (time.Time, error) {
	lastKey := cache.LastReadKey(roomID, userID)
	if raw, err := s.cache.Get(ctx, lastKey); err == nil {
		var payload lastReadPayload
		if decErr := models.DecodeWire(raw, wireTypeLastRead, &payload); decErr == nil {
			return payload.ReadAt, nil
		}
	}

	lastRead, err := s.receipts.LastReadTime(ctx, roomID, userID)
	if store.IsNotFound(err) {
		return time.Time{}, store.ErrNotFound
	}
	if err != nil {
		return time.Time{}, errors.NewStoreError("last read time", err)
	}

	if payload, err := models.EncodeWire(wireTypeLastRead, lastReadPayload{ReadAt: lastRead}); err == nil {
		if err := s.cache.Set(ctx, lastKey, payload, constants.LastReadCacheTTL); err != nil {
			errors.LogRetryableError(s.logger, errors.NewCacheWriteError(lastKey, err), "Failed to cache last read time")
		}
	}
	return lastRead, nil
}

func (s *readStatusService) IsMessageFullyRead(ctx context.Context, messageID string) (bool, error) {
	msg, err := s.messages.GetMessage(ctx, messageID)
	if err != nil {
		if store.IsNotFound(err) {
			return false, errors.NewNotFoundError("message", messageID)
		}
		return false, errors.NewStoreError("get message", err)
	}

	participants, err := s.rooms.ParticipantsOf(ctx, msg.RoomID)
	if err != nil {
		return false, errors.NewStoreError("participants of room", err)
	}
	readers, err := s.receipts.ReaderIDs(ctx, messageID)
	if err != nil {
		return false, errors.NewStoreError("readers of message", err)
	}

	read := make(map[string]bool, len(readers))
	for _, r := range readers {
		read[r] = true
	}
	for _, p := range participants {
		if p == msg.SenderID {
			continue
		}
		if !read[p] {
			return false, nil
		}
	}
	return true, nil
}
