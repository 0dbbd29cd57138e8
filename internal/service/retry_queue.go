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

const wireTypeRetryMessage = "retry_message"

// RetryQueueService parks failed sends in a per-(room,user) FIFO until the
// caller re-attempts delivery. The queue never retries on its own: callers
// re-invoke send, check the retry budget first, and only enqueue again on
// another failure.
type RetryQueueService interface {
	Enqueue(ctx context.Context, msg *models.QueuedRetryMessage) error
	// Drain pops the queue FIFO until empty, resolving each snapshot against
	// the durable message store. Snapshots whose backing message no longer
	// exists are dropped silently, never re-queued.
	Drain(ctx context.Context, roomID, userID string) ([]*models.Message, error)
	IncrementRetry(ctx context.Context, messageID string) (int64, error)
	RetryCount(ctx context.Context, messageID string) (int64, error)
	IsMaxRetryExceeded(ctx context.Context, messageID string) (bool, error)
	// ResetRetry drops the counter after a successful resend.
	ResetRetry(ctx context.Context, messageID string) error
	// Sweep rebuilds every retry queue, discarding snapshots past the queue
	// TTL or whose backing message is gone. Driven by the cleanup scheduler.
	Sweep(ctx context.Context) error
}

type retryQueueService struct {
	cache       cache.Store
	messages    store.MessageStore
	logger      *logrus.Logger
	maxAttempts int64
	queueTTL    time.Duration
	counterTTL  time.Duration
}

func NewRetryQueueService(cacheStore cache.Store, messages store.MessageStore, logger *logrus.Logger) RetryQueueService {
	return &retryQueueService{
		cache:       cacheStore,
		messages:    messages,
		logger:      logger,
		maxAttempts: constants.DefaultMaxRetryAttempts,
		queueTTL:    constants.RetryQueueTTL,
		counterTTL:  constants.RetryCounterTTL,
	}
}

func (s *retryQueueService) Enqueue(ctx context.Context, msg *models.QueuedRetryMessage) error {
	if msg.MessageID == "" || msg.RoomID == "" || msg.SenderID == "" {
		return errors.NewValidationError("message", "retry snapshot missing ids")
	}
	if msg.EnqueuedAt.IsZero() {
		msg.EnqueuedAt = time.Now().UTC()
	}

	payload, err := models.EncodeWire(wireTypeRetryMessage, msg)
	if err != nil {
		return errors.NewSerializationError("retry queue", err)
	}

	key := cache.RetryQueueKey(msg.RoomID, msg.SenderID)
	if err := s.cache.ListPush(ctx, key, payload, s.queueTTL); err != nil {
		return errors.NewCacheWriteError(key, err)
	}

	metrics.IncrementCounter("retry_queue_enqueued_total", nil, "Messages parked for retry")
	s.logger.WithFields(logrus.Fields{
		"messageId": msg.MessageID,
		"roomId":    msg.RoomID,
		"senderId":  msg.SenderID,
	}).Debug("Queued message for retry")
	return nil
}

func (s *retryQueueService) Drain(ctx context.Context, roomID, userID string) ([]*models.Message, error) {
	key := cache.RetryQueueKey(roomID, userID)
	var resolved []*models.Message

	for {
		raw, err := s.cache.ListPop(ctx, key)
		if cache.IsMiss(err) {
			break
		}
		if err != nil {
			return resolved, errors.NewCacheReadError(key, err)
		}

		var snapshot models.QueuedRetryMessage
		if err := models.DecodeWire(raw, wireTypeRetryMessage, &snapshot); err != nil {
			s.logger.WithError(err).Warn("Skipping malformed retry queue entry")
			continue
		}

		msg, err := s.messages.GetMessage(ctx, snapshot.MessageID)
		if store.IsNotFound(err) {
			// Hard-deleted since it was queued; drop the snapshot.
			s.logger.WithField("messageId", snapshot.MessageID).Debug("Dropping retry entry for deleted message")
			continue
		}
		if err != nil {
			return resolved, errors.NewStoreError("get message", err)
		}
		resolved = append(resolved, msg)
	}

	return resolved, nil
}

func (s *retryQueueService) IncrementRetry(ctx context.Context, messageID string) (int64, error) {
	key := cache.RetryCountKey(messageID)
	count, err := s.cache.Increment(ctx, key, s.counterTTL)
	if err != nil {
		return 0, errors.NewCacheWriteError(key, err)
	}
	return count, nil
}

func (s *retryQueueService) RetryCount(ctx context.Context, messageID string) (int64, error) {
	key := cache.RetryCountKey(messageID)
	count, err := s.cache.Counter(ctx, key)
	if err != nil {
		return 0, errors.NewCacheReadError(key, err)
	}
	return count, nil
}

func (s *retryQueueService) IsMaxRetryExceeded(ctx context.Context, messageID string) (bool, error) {
	count, err := s.RetryCount(ctx, messageID)
	if err != nil {
		return false, err
	}
	if count >= s.maxAttempts {
		metrics.IncrementCounter("retry_budget_exhausted_total", nil, "Messages past their retry budget")
		return true, nil
	}
	return false, nil
}

func (s *retryQueueService) ResetRetry(ctx context.Context, messageID string) error {
	key := cache.RetryCountKey(messageID)
	if err := s.cache.Delete(ctx, key); err != nil {
		return errors.NewCacheWriteError(key, err)
	}
	return nil
}

func (s *retryQueueService) Sweep(ctx context.Context) error {
	keys, err := s.cache.Scan(ctx, "message_retry:")
	if err != nil {
		return errors.NewCacheReadError("message_retry:", err)
	}

	var swept, remaining int
	cutoff := time.Now().UTC().Add(-s.queueTTL)

	for _, key := range keys {
		entries, err := s.cache.ListRange(ctx, key)
		if err != nil {
			errors.LogRetryableError(s.logger, errors.NewCacheReadError(key, err), "Sweep skipping unreadable queue")
			continue
		}

		var keep [][]byte
		for _, raw := range entries {
			var snapshot models.QueuedRetryMessage
			if err := models.DecodeWire(raw, wireTypeRetryMessage, &snapshot); err != nil {
				swept++
				continue
			}
			if snapshot.EnqueuedAt.Before(cutoff) {
				swept++
				continue
			}
			if _, err := s.messages.GetMessage(ctx, snapshot.MessageID); store.IsNotFound(err) {
				swept++
				continue
			}
			keep = append(keep, raw)
		}

		if len(keep) == len(entries) {
			remaining += len(keep)
			continue
		}

		// Rebuild the list without the stale entries. Not atomic with a
		// concurrent enqueue; a lost enqueue surfaces on the sender's next
		// failed send, so the window is tolerated.
		if err := s.cache.Delete(ctx, key); err != nil {
			errors.LogRetryableError(s.logger, errors.NewCacheWriteError(key, err), "Sweep failed to clear queue")
			continue
		}
		for _, raw := range keep {
			if err := s.cache.ListPush(ctx, key, raw, s.queueTTL); err != nil {
				errors.LogRetryableError(s.logger, errors.NewCacheWriteError(key, err), "Sweep failed to restore entry")
			}
		}
		remaining += len(keep)
	}

	metrics.SetGauge("retry_queue_swept", float64(swept), nil, "Entries discarded by the last sweep")
	metrics.SetGauge("retry_queue_depth", float64(remaining), nil, "Entries remaining across retry queues")

	s.logger.WithFields(logrus.Fields{
		"queues":    len(keys),
		"swept":     swept,
		"remaining": remaining,
	}).Info("Retry queue sweep complete")
	return nil
}
