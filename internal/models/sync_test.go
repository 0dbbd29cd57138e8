package models

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestSyncItem_CompositeKey(t *testing.T) {
	a := &SyncItem{SyncID: "s1", MessageID: "m1", RoomID: "room-1"}
	b := &SyncItem{SyncID: "s2", MessageID: "m1", RoomID: "room-1"}
	c := &SyncItem{SyncID: "s3", MessageID: "m1", RoomID: "room-2"}

	// Identity within a batch is (message, room), never the sync id.
	assert.Equal(t, a.CompositeKey(), b.CompositeKey())
	assert.NotEqual(t, a.CompositeKey(), c.CompositeKey())
}

func TestMessage_LogicalTime(t *testing.T) {
	msg := &Message{Timestamp: 1700000000000}
	assert.Equal(t, time.UnixMilli(1700000000000), msg.LogicalTime())
}

func TestDeviceSyncState_NeedsSyncBounds(t *testing.T) {
	now := time.Now().UTC()
	state := &DeviceSyncState{LastSyncAt: now.Add(-time.Hour)}

	// Exactly at the threshold is still fresh; strictly older is stale.
	assert.False(t, state.NeedsSync(time.Hour, now))
	assert.True(t, state.NeedsSync(time.Hour-time.Second, now))
}
