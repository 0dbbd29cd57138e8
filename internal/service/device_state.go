package service

import (
	"context"
	"time"

	"linguasync/internal/cache"
	"linguasync/internal/constants"
	"linguasync/internal/errors"
	"linguasync/internal/models"

	"github.com/sirupsen/logrus"
)

const wireTypeDeviceState = "device_sync_state"

// DeviceStateTracker keeps the per-(user,device) sync cursor. SyncVersion
// increments on every structural change, which is the client's cheap staleness
// check — two concurrent sync sessions never serialize, so session completion
// order means nothing.
type DeviceStateTracker interface {
	GetOrInit(ctx context.Context, userID, deviceID string) (*models.DeviceSyncState, error)
	// RecordSync advances the cursor after a sync pass.
	RecordSync(ctx context.Context, userID, deviceID string, lastSyncTS int64, synced, pending int) (*models.DeviceSyncState, error)
	// BumpPending marks every device of the user as having one more queued item.
	BumpPending(ctx context.Context, userID string) error
	ListDeviceStates(ctx context.Context, userID string) ([]*models.DeviceSyncState, error)
}

type deviceStateTracker struct {
	cache  cache.Store
	logger *logrus.Logger
	ttl    time.Duration
}

func NewDeviceStateTracker(cacheStore cache.Store, logger *logrus.Logger) DeviceStateTracker {
	return &deviceStateTracker{
		cache:  cacheStore,
		logger: logger,
		ttl:    constants.DeviceSyncStateTTL,
	}
}

func (t *deviceStateTracker) GetOrInit(ctx context.Context, userID, deviceID string) (*models.DeviceSyncState, error) {
	key := cache.DeviceStateKey(userID, deviceID)
	raw, err := t.cache.Get(ctx, key)
	if err == nil {
		var state models.DeviceSyncState
		if decErr := models.DecodeWire(raw, wireTypeDeviceState, &state); decErr == nil {
			return &state, nil
		}
		// A corrupt cursor is replaced rather than surfaced; the device will
		// simply resync from scratch.
		t.logger.WithField("deviceId", deviceID).Warn("Replacing malformed device sync state")
	} else if !cache.IsMiss(err) {
		return nil, errors.NewCacheReadError(key, err)
	}

	state := &models.DeviceSyncState{
		UserID:      userID,
		DeviceID:    deviceID,
		LastSyncAt:  time.Now().UTC(),
		SyncVersion: 1,
	}
	if err := t.save(ctx, state); err != nil {
		return nil, err
	}
	return state, nil
}

func (t *deviceStateTracker) RecordSync(ctx context.Context, userID, deviceID string, lastSyncTS int64, synced, pending int) (*models.DeviceSyncState, error) {
	state, err := t.GetOrInit(ctx, userID, deviceID)
	if err != nil {
		return nil, err
	}

	state.LastSyncAt = time.Now().UTC()
	if lastSyncTS > state.LastSyncTS {
		state.LastSyncTS = lastSyncTS
	}
	state.TotalSyncedMessages += int64(synced)
	state.PendingCount = pending
	state.SyncVersion++

	if err := t.save(ctx, state); err != nil {
		return nil, err
	}
	return state, nil
}

func (t *deviceStateTracker) BumpPending(ctx context.Context, userID string) error {
	states, err := t.ListDeviceStates(ctx, userID)
	if err != nil {
		return err
	}
	for _, state := range states {
		state.PendingCount++
		state.SyncVersion++
		if err := t.save(ctx, state); err != nil {
			errors.LogRetryableError(t.logger, err, "Failed to bump pending count")
		}
	}
	return nil
}

func (t *deviceStateTracker) ListDeviceStates(ctx context.Context, userID string) ([]*models.DeviceSyncState, error) {
	prefix := cache.DeviceStatePrefix(userID)
	keys, err := t.cache.Scan(ctx, prefix)
	if err != nil {
		return nil, errors.NewCacheReadError(prefix, err)
	}

	var states []*models.DeviceSyncState
	for _, key := range keys {
		raw, err := t.cache.Get(ctx, key)
		if err != nil {
			continue
		}
		var state models.DeviceSyncState
		if err := models.DecodeWire(raw, wireTypeDeviceState, &state); err != nil {
			continue
		}
		states = append(states, &state)
	}
	return states, nil
}

func (t *deviceStateTracker) save(ctx context.Context, state *models.DeviceSyncState) error {
	payload, err := models.EncodeWire(wireTypeDeviceState, state)
	if err != nil {
		return errors.NewSerializationError("device sync state", err)
	}
	key := cache.DeviceStateKey(state.UserID, state.DeviceID)
	if err := t.cache.Set(ctx, key, payload, t.ttl); err != nil {
		return errors.NewCacheWriteError(key, err)
	}
	return nil
}
