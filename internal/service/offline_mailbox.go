package service

import (
	"context"
	"time"

	"linguasync/internal/cache"
	"linguasync/internal/constants"
	"linguasync/internal/errors"
	"linguasync/internal/metrics"
	"linguasync/internal/models"

	"github.com/sirupsen/logrus"
)

const wireTypeOfflineMessage = "offline_message"

// OfflineMailboxService holds messages for disconnected recipients until they
// reconnect. Drain is non-destructive; the mailbox offers no partial
// acknowledgement, so callers Clear only once the whole drained batch has been
// durably handed to the client.
type OfflineMailboxService interface {
	Store(ctx context.Context, userID string, msg *models.OfflineMessage) error
	Drain(ctx context.Context, userID string) ([]*models.OfflineMessage, error)
	Clear(ctx context.Context, userID string) error
}

type offlineMailboxService struct {
	cache  cache.Store
	logger *logrus.Logger
	ttl    time.Duration
}

func NewOfflineMailboxService(cacheStore cache.Store, logger *logrus.Logger) OfflineMailboxService {
	return &offlineMailboxService{
		cache:  cacheStore,
		logger: logger,
		ttl:    constants.OfflineMailboxTTL,
	}
}

func (s *offlineMailboxService) Store(ctx context.Context, userID string, msg *models.OfflineMessage) error {
	if userID == "" || msg.MessageID == "" {
		return errors.NewValidationError("message", "offline message missing ids")
	}
	if msg.QueuedAt.IsZero() {
		msg.QueuedAt = time.Now().UTC()
	}
	msg.RecipientID = userID

	payload, err := models.EncodeWire(wireTypeOfflineMessage, msg)
	if err != nil {
		return errors.NewSerializationError("offline mailbox", err)
	}

	key := cache.OfflineMailboxKey(userID)
	if err := s.cache.ListPush(ctx, key, payload, s.ttl); err != nil {
		return errors.NewCacheWriteError(key, err)
	}

	metrics.IncrementCounter("offline_mailbox_stored_total", nil, "Messages queued for offline users")
	s.logger.WithFields(logrus.Fields{
		"recipientId": userID,
		"messageId":   msg.MessageID,
	}).Debug("Stored message in offline mailbox")
	return nil
}

func (s *offlineMailboxService) Drain(ctx context.Context, userID string) ([]*models.OfflineMessage, error) {
	key := cache.OfflineMailboxKey(userID)
	entries, err := s.cache.ListRange(ctx, key)
	if err != nil {
		return nil, errors.NewCacheReadError(key, err)
	}

	messages := make([]*models.OfflineMessage, 0, len(entries))
	for _, raw := range entries {
		var msg models.OfflineMessage
		if err := models.DecodeWire(raw, wireTypeOfflineMessage, &msg); err != nil {
			// Best-effort deserialization: one bad entry never blocks the batch.
			s.logger.WithError(err).WithField("recipientId", userID).Warn("Skipping malformed mailbox entry")
			continue
		}
		messages = append(messages, &msg)
	}
	return messages, nil
}

func (s *offlineMailboxService) Clear(ctx context.Context, userID string) error {
	key := cache.OfflineMailboxKey(userID)
	if err := s.cache.Delete(ctx, key); err != nil {
		return errors.NewCacheWriteError(key, err)
	}
	s.logger.WithField("recipientId", userID).Debug("Cleared offline mailbox")
	return nil
}
