package service

import (
	"context"
	"testing"
	"time"

	"linguasync/internal/cache"
	"linguasync/internal/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDeviceState_GetOrInitCreatesCursor(t *testing.T) {
	tracker := NewDeviceStateTracker(cache.NewMemory(), testLogger())
	ctx := context.Background()

	state, err := tracker.GetOrInit(ctx, "alice", "phone")
	require.NoError(t, err)
	assert.Equal(t, "alice", state.UserID)
	assert.Equal(t, "phone", state.DeviceID)
	assert.Equal(t, int64(1), state.SyncVersion)
	assert.Zero(t, state.LastSyncTS)
	assert.Zero(t, state.PendingCount)

	// A second call returns the persisted cursor, not a fresh one.
	again, err := tracker.GetOrInit(ctx, "alice", "phone")
	require.NoError(t, err)
	assert.Equal(t, state.SyncVersion, again.SyncVersion)
}

func TestDeviceState_RecordSyncAdvancesCursor(t *testing.T) {
	tracker := NewDeviceStateTracker(cache.NewMemory(), testLogger())
	ctx := context.Background()

	state, err := tracker.RecordSync(ctx, "alice", "phone", 500, 7, 2)
	require.NoError(t, err)
	assert.Equal(t, int64(500), state.LastSyncTS)
	assert.Equal(t, int64(7), state.TotalSyncedMessages)
	assert.Equal(t, 2, state.PendingCount)
	assert.Equal(t, int64(2), state.SyncVersion)

	// Cursor timestamps only move forward.
	state, err = tracker.RecordSync(ctx, "alice", "phone", 300, 1, 0)
	require.NoError(t, err)
	assert.Equal(t, int64(500), state.LastSyncTS)
	assert.Equal(t, int64(8), state.TotalSyncedMessages)
	assert.Equal(t, int64(3), state.SyncVersion)
}

func TestDeviceState_BumpPendingTouchesAllDevices(t *testing.T) {
	tracker := NewDeviceStateTracker(cache.NewMemory(), testLogger())
	ctx := context.Background()

	_, err := tracker.GetOrInit(ctx, "alice", "phone")
	require.NoError(t, err)
	_, err = tracker.GetOrInit(ctx, "alice", "laptop")
	require.NoError(t, err)
	_, err = tracker.GetOrInit(ctx, "bob", "phone")
	require.NoError(t, err)

	require.NoError(t, tracker.BumpPending(ctx, "alice"))

	states, err := tracker.ListDeviceStates(ctx, "alice")
	require.NoError(t, err)
	require.Len(t, states, 2)
	for _, state := range states {
		assert.Equal(t, 1, state.PendingCount)
		assert.Equal(t, int64(2), state.SyncVersion)
	}

	// Other users' devices are untouched.
	bobState, err := tracker.GetOrInit(ctx, "bob", "phone")
	require.NoError(t, err)
	assert.Zero(t, bobState.PendingCount)
}

func TestDeviceState_GetOrInitReplacesCorruptCursor(t *testing.T) {
	mem := cache.NewMemory()
	tracker := NewDeviceStateTracker(mem, testLogger())
	ctx := context.Background()

	key := cache.DeviceStateKey("alice", "phone")
	require.NoError(t, mem.Set(ctx, key, []byte("garbage"), time.Hour))

	state, err := tracker.GetOrInit(ctx, "alice", "phone")
	require.NoError(t, err)
	assert.Equal(t, int64(1), state.SyncVersion)
}

func TestDeviceState_ListDeviceStatesEmpty(t *testing.T) {
	tracker := NewDeviceStateTracker(cache.NewMemory(), testLogger())

	states, err := tracker.ListDeviceStates(context.Background(), "nobody")
	require.NoError(t, err)
	assert.Empty(t, states)
}

func TestDeviceSyncState_NeedsSync(t *testing.T) {
	now := time.Now().UTC()

	tests := []struct {
		name  string
		state models.DeviceSyncState
		want  bool
	}{
		{
			name:  "pending items need sync",
			state: models.DeviceSyncState{LastSyncAt: now, PendingCount: 3},
			want:  true,
		},
		{
			name:  "stale cursor needs sync",
			state: models.DeviceSyncState{LastSyncAt: now.Add(-2 * time.Hour)},
			want:  true,
		},
		{
			name:  "fresh cursor with no pending items does not",
			state: models.DeviceSyncState{LastSyncAt: now.Add(-time.Minute)},
			want:  false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, tt.state.NeedsSync(time.Hour, now))
		})
	}
}
