package service

import (
	"context"
	"sort"
	"time"

	"linguasync/internal/cache"
	"linguasync/internal/constants"
	"linguasync/internal/errors"
	"linguasync/internal/metrics"
	"linguasync/internal/models"
	"linguasync/internal/store"
	"linguasync/internal/tracing"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
	"go.opentelemetry.io/otel/attribute"
)

const (
	wireTypeSyncItem    = "sync_item"
	wireTypeSyncSession = "sync_session"
	wireTypeConflict    = "conflict_record"
)

// SyncEngine orchestrates multi-device synchronization: queueing items,
// running sync sessions, keeping session history, and fanning a bulk pass
// over every device that needs one.
//
// SyncOfflineMessages never returns an error: even a session that aborts
// before touching the queue produces a structured SyncResult with status
// FAILED, so HTTP and UI layers always get an outcome instead of an
// exception.
type SyncEngine interface {
	// QueueSyncItem parks a message for later delivery to the user's devices
	// and returns the generated sync id.
	QueueSyncItem(ctx context.Context, userID string, item *models.SyncItem) (string, error)
	SyncOfflineMessages(ctx context.Context, userID, deviceID string, lastSyncTimestamp int64) *models.SyncResult
	// PerformBulkSync syncs every device of the user that NeedsSync, in
	// sequence, logging but never aborting on a single device's failure.
	PerformBulkSync(ctx context.Context, userID string) ([]*models.SyncResult, error)
	GetSyncHistory(ctx context.Context, userID string) ([]*models.SyncSession, error)
}

type syncEngine struct {
	cache      cache.Store
	messages   store.MessageStore
	devices    DeviceStateTracker
	logger     *logrus.Logger
	staleAfter time.Duration
}

func NewSyncEngine(cacheStore cache.Store, messages store.MessageStore, devices DeviceStateTracker, logger *logrus.Logger) SyncEngine {
	return &syncEngine{
		cache:      cacheStore,
		messages:   messages,
		devices:    devices,
		logger:     logger,
		staleAfter: constants.DefaultSyncStaleAfter,
	}
}

func (e *syncEngine) QueueSyncItem(ctx context.Context, userID string, item *models.SyncItem) (string, error) {
	if userID == "" || item.MessageID == "" || item.RoomID == "" {
		return "", errors.NewValidationError("item", "sync item missing ids")
	}

	item.SyncID = uuid.NewString()
	item.Status = models.SyncItemQueued
	if item.QueuedAt.IsZero() {
		item.QueuedAt = time.Now().UTC()
	}

	payload, err := models.EncodeWire(wireTypeSyncItem, item)
	if err != nil {
		return "", errors.NewSerializationError("sync queue", err)
	}
	key := cache.SyncItemKey(userID, item.SyncID)
	if err := e.cache.Set(ctx, key, payload, constants.SyncItemTTL); err != nil {
		return "", errors.NewCacheWriteError(key, err)
	}

	if err := e.devices.BumpPending(ctx, userID); err != nil {
		// Pending counts are advisory; the item itself is safely queued.
		errors.LogRetryableError(e.logger, err, "Failed to bump device pending counts")
	}

	metrics.IncrementCounter("sync_items_queued_total", nil, "Messages queued for device sync")
	return item.SyncID, nil
}

func (e *syncEngine) SyncOfflineMessages(ctx context.Context, userID, deviceID string, lastSyncTimestamp int64) *models.SyncResult {
	ctx, span := tracing.StartSpan(ctx, "sync_session",
		attribute.String("user_id", userID),
		attribute.String("device_id", deviceID),
	)
	defer span.End()

	session := &models.SyncSession{
		SessionID:  uuid.NewString(),
		UserID:     userID,
		DeviceID:   deviceID,
		LastSyncTS: lastSyncTimestamp,
		StartedAt:  time.Now().UTC(),
		Status:     models.SyncSessionInProgress,
	}
	e.saveSession(ctx, session, constants.SyncSessionPendingTTL)

	items, err := e.collectQueuedItems(ctx, userID, lastSyncTimestamp)
	if err != nil {
		// Nothing was applied; the whole session aborts as FAILED.
		tracing.RecordError(ctx, err)
		return e.finalizeSession(ctx, session, err)
	}

	resolved := e.dedupeItems(ctx, userID, items)

	// The only ordering guarantee the engine gives: items reach the device
	// in ascending logical-timestamp order.
	sort.SliceStable(resolved, func(i, j int) bool {
		return resolved[i].Timestamp < resolved[j].Timestamp
	})

	var maxApplied int64 = lastSyncTimestamp
	for _, item := range resolved {
		status := e.applyItem(ctx, userID, item)
		switch status {
		case models.SyncItemCompleted:
			session.SyncedCount++
			if item.Timestamp > maxApplied {
				maxApplied = item.Timestamp
			}
		case models.SyncItemConflict:
			session.ConflictCount++
			if item.Timestamp > maxApplied {
				maxApplied = item.Timestamp
			}
		case models.SyncItemFailed:
			session.ErrorCount++
		}
	}

	pending, err := e.countQueuedItems(ctx, userID)
	if err != nil {
		errors.LogRetryableError(e.logger, err, "Failed to count remaining sync items")
	}
	if _, err := e.devices.RecordSync(ctx, userID, deviceID, maxApplied, session.SyncedCount, pending); err != nil {
		errors.LogRetryableError(e.logger, err, "Failed to record device sync state")
	}

	return e.finalizeSession(ctx, session, nil)
}

// collectQueuedItems scans the user's sync namespace and decodes every queued
// item newer than lastSyncTimestamp. An absent filter (zero) takes all.
func (e *syncEngine) collectQueuedItems(ctx context.Context, userID string, lastSyncTimestamp int64) ([]*models.SyncItem, error) {
	prefix := cache.SyncItemPrefix(userID)
	keys, err := e.cache.Scan(ctx, prefix)
	if err != nil {
		return nil, errors.NewCacheReadError(prefix, err)
	}

	var items []*models.SyncItem
	for _, key := range keys {
		raw, err := e.cache.Get(ctx, key)
		if err != nil {
			continue
		}
		var item models.SyncItem
		if err := models.DecodeWire(raw, wireTypeSyncItem, &item); err != nil {
			// Foreign or malformed payloads in the namespace are skipped.
			continue
		}
		if lastSyncTimestamp > 0 && item.Timestamp <= lastSyncTimestamp {
			continue
		}
		items = append(items, &item)
	}
	return items, nil
}

func (e *syncEngine) countQueuedItems(ctx context.Context, userID string) (int, error) {
	items, err := e.collectQueuedItems(ctx, userID, 0)
	if err != nil {
		return 0, err
	}
	return len(items), nil
}

// dedupeItems groups the batch by composite key and collapses each group to its
// last-write-wins representative. Loser entries are deleted so they cannot
// reappear in a later session, and each collapse is recorded for audit.
func (e *syncEngine) dedupeItems(ctx context.Context, userID string, items []*models.SyncItem) []*models.SyncItem {
	groups := make(map[string][]*models.SyncItem)
	var order []string
	for _, item := range items {
		key := item.CompositeKey()
		if _, seen := groups[key]; !seen {
			order = append(order, key)
		}
		groups[key] = append(groups[key], item)
	}

	resolved := make([]*models.SyncItem, 0, len(order))
	for _, key := range order {
		group := groups[key]
		if len(group) == 1 {
			resolved = append(resolved, group[0])
			continue
		}

		winner, losers := resolveDuplicates(group)
		resolved = append(resolved, winner)

		loserKeys := make([]string, 0, len(losers))
		for _, loser := range losers {
			loserKeys = append(loserKeys, cache.SyncItemKey(userID, loser.SyncID))
		}
		if err := e.cache.Delete(ctx, loserKeys...); err != nil {
			errors.LogRetryableError(e.logger, errors.NewCacheWriteError(key, err), "Failed to delete deduplicated sync items")
		}

		e.recordConflict(ctx, &models.ConflictRecord{
			ConflictID: uuid.NewString(),
			UserID:     userID,
			Type:       models.ConflictContentDifferent,
			Resolved:   true,
			Strategy:   "last_write_wins",
			WinnerID:   winner.SyncID,
			ResolvedAt: time.Now().UTC(),
		}, constants.SyncSessionTTL)
		metrics.IncrementCounter("sync_duplicates_collapsed_total", nil, "Duplicate sync items collapsed by last-write-wins")
	}
	return resolved
}

// applyItem delivers one item: verify it against the durable store, resolve
// any disagreement between the queued copy and the server copy, then delete
// the queue entry so an applied item can never reappear (the at-least-once
// to dedup handoff).
func (e *syncEngine) applyItem(ctx context.Context, userID string, item *models.SyncItem) models.SyncItemStatus {
	itemKey := cache.SyncItemKey(userID, item.SyncID)

	msg, err := e.messages.GetMessage(ctx, item.MessageID)
	if store.IsNotFound(err) {
		// Hard-deleted since it was queued: drop silently.
		e.deleteItem(ctx, itemKey)
		item.Status = models.SyncItemCompleted
		return models.SyncItemCompleted
	}
	if err != nil {
		// Transient store failure: keep the entry for the next run.
		errors.LogRetryableError(e.logger, errors.NewStoreError("get message", err), "Sync apply failed")
		item.Status = models.SyncItemFailed
		return models.SyncItemFailed
	}

	if conflictType, ok := diffAgainstServer(item, msg); ok {
		return e.applyConflicted(ctx, userID, item, msg, conflictType)
	}

	e.deleteItem(ctx, itemKey)
	item.Status = models.SyncItemCompleted
	return models.SyncItemCompleted
}

func (e *syncEngine) applyConflicted(ctx context.Context, userID string, item *models.SyncItem, msg *models.Message, conflictType models.ConflictType) models.SyncItemStatus {
	conflict := &models.MessageConflict{
		ConflictID:    uuid.NewString(),
		Type:          conflictType,
		LocalVersion:  item,
		ServerVersion: serverItemFor(msg),
		DetectedAt:    time.Now().UTC(),
	}

	winner, strategy, err := resolveConflict(conflict)
	if err != nil {
		// No usable answer: park for manual reconciliation, keep the entry.
		e.recordConflict(ctx, &models.ConflictRecord{
			ConflictID: conflict.ConflictID,
			UserID:     userID,
			Type:       conflictType,
			Resolved:   false,
			ResolvedAt: time.Now().UTC(),
		}, constants.UnresolvedConflictTTL)
		metrics.IncrementCounter("sync_conflicts_unresolved_total", nil, "Conflicts pending manual reconciliation")
		item.Status = models.SyncItemConflict
		return models.SyncItemConflict
	}

	record := &models.ConflictRecord{
		ConflictID: conflict.ConflictID,
		UserID:     userID,
		Type:       conflictType,
		Resolved:   true,
		Strategy:   strategy,
		ResolvedAt: time.Now().UTC(),
	}
	if winner != nil {
		record.WinnerID = winner.SyncID
	}
	e.recordConflict(ctx, record, constants.SyncSessionTTL)

	e.deleteItem(ctx, cache.SyncItemKey(userID, item.SyncID))
	metrics.IncrementCounter("sync_conflicts_resolved_total", nil, "Conflicts settled by a strategy")
	item.Status = models.SyncItemConflict
	return models.SyncItemConflict
}

func (e *syncEngine) deleteItem(ctx context.Context, key string) {
	if err := e.cache.Delete(ctx, key); err != nil {
		errors.LogRetryableError(e.logger, errors.NewCacheWriteError(key, err), "Failed to delete applied sync item")
	}
}

func (e *syncEngine) recordConflict(ctx context.Context, record *models.ConflictRecord, ttl time.Duration) {
	payload, err := models.EncodeWire(wireTypeConflict, record)
	if err != nil {
		errors.LogRetryableError(e.logger, errors.NewSerializationError("conflict record", err), "Failed to encode conflict record")
		return
	}
	key := cache.ConflictKey(record.UserID, record.ConflictID)
	if err := e.cache.Set(ctx, key, payload, ttl); err != nil {
		errors.LogRetryableError(e.logger, errors.NewCacheWriteError(key, err), "Failed to store conflict record")
	}
}

func (e *syncEngine) finalizeSession(ctx context.Context, session *models.SyncSession, failure error) *models.SyncResult {
	session.CompletedAt = time.Now().UTC()
	switch {
	case failure != nil:
		session.Status = models.SyncSessionFailed
		session.Error = failure.Error()
	case session.ErrorCount > 0:
		session.Status = models.SyncSessionPartial
	default:
		session.Status = models.SyncSessionCompleted
	}

	e.saveSession(ctx, session, constants.SyncSessionTTL)

	metrics.IncrementCounter("sync_sessions_total",
		map[string]string{"status": string(session.Status)}, "Sync sessions by outcome")

	e.logger.WithFields(logrus.Fields{
		"sessionId": session.SessionID,
		"userId":    session.UserID,
		"deviceId":  session.DeviceID,
		"status":    session.Status,
		"synced":    session.SyncedCount,
		"conflicts": session.ConflictCount,
		"errors":    session.ErrorCount,
	}).Info("Sync session finished")

	return &models.SyncResult{
		SessionID:     session.SessionID,
		Status:        session.Status,
		SyncedCount:   session.SyncedCount,
		ConflictCount: session.ConflictCount,
		ErrorCount:    session.ErrorCount,
		Error:         session.Error,
	}
}

func (e *syncEngine) saveSession(ctx context.Context, session *models.SyncSession, ttl time.Duration) {
	payload, err := models.EncodeWire(wireTypeSyncSession, session)
	if err != nil {
		errors.LogRetryableError(e.logger, errors.NewSerializationError("sync session", err), "Failed to encode sync session")
		return
	}
	key := cache.SyncSessionKey(session.UserID, session.SessionID)
	if err := e.cache.Set(ctx, key, payload, ttl); err != nil {
		errors.LogRetryableError(e.logger, errors.NewCacheWriteError(key, err), "Failed to persist sync session")
	}
}

func (e *syncEngine) PerformBulkSync(ctx context.Context, userID string) ([]*models.SyncResult, error) {
	states, err := e.devices.ListDeviceStates(ctx, userID)
	if err != nil {
		return nil, err
	}

	now := time.Now().UTC()
	var results []*models.SyncResult
	for _, state := range states {
		if !state.NeedsSync(e.staleAfter, now) {
			continue
		}
		result := e.SyncOfflineMessages(ctx, userID, state.DeviceID, state.LastSyncTS)
		if result.Status == models.SyncSessionFailed {
			e.logger.WithFields(logrus.Fields{
				"userId":   userID,
				"deviceId": state.DeviceID,
				"error":    result.Error,
			}).Error("Bulk sync: device session failed")
		}
		results = append(results, result)
	}
	return results, nil
}

func (e *syncEngine) GetSyncHistory(ctx context.Context, userID string) ([]*models.SyncSession, error) {
	prefix := cache.SyncSessionPrefix(userID)
	keys, err := e.cache.Scan(ctx, prefix)
	if err != nil {
		return nil, errors.NewCacheReadError(prefix, err)
	}

	var sessions []*models.SyncSession
	for _, key := range keys {
		raw, err := e.cache.Get(ctx, key)
		if err != nil {
			continue
		}
		var session models.SyncSession
		if err := models.DecodeWire(raw, wireTypeSyncSession, &session); err != nil {
			continue
		}
		sessions = append(sessions, &session)
	}

	sort.Slice(sessions, func(i, j int) bool {
		return sessions[i].StartedAt.After(sessions[j].StartedAt)
	})
	return sessions, nil
}

// diffAgainstServer classifies the disagreement, if any, between a queued
// sync item and the server-held message. Deletion outranks the other types.
func diffAgainstServer(item *models.SyncItem, msg *models.Message) (models.ConflictType, bool) {
	switch {
	case msg.Deleted || item.Deleted:
		if msg.Deleted != item.Deleted {
			return models.ConflictDeletion, true
		}
		return "", false
	case item.Timestamp != msg.Timestamp:
		return models.ConflictTimestampMismatch, true
	case item.Content != msg.Content:
		return models.ConflictContentDifferent, true
	default:
		return "", false
	}
}

// serverItemFor projects the durable message into sync-item form so both
// conflict versions speak the same type.
func serverItemFor(msg *models.Message) *models.SyncItem {
	return &models.SyncItem{
		SyncID:    "server:" + msg.ID,
		MessageID: msg.ID,
		RoomID:    msg.RoomID,
		SenderID:  msg.SenderID,
		Content:   msg.Content,
		Timestamp: msg.Timestamp,
		Deleted:   msg.Deleted,
	}
}
