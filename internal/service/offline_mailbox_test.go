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

func offlineMessage(id, senderID string, ts int64) *models.OfflineMessage {
	return &models.OfflineMessage{
		MessageID: id,
		SenderID:  senderID,
		RoomID:    "room-1",
		Content:   "while you were away",
		Timestamp: ts,
	}
}

func TestOfflineMailbox_StoreAndDrain(t *testing.T) {
	svc := NewOfflineMailboxService(cache.NewMemory(), testLogger())
	ctx := context.Background()

	require.NoError(t, svc.Store(ctx, "bob", offlineMessage("m1", "alice", 100)))
	require.NoError(t, svc.Store(ctx, "bob", offlineMessage("m2", "alice", 200)))
	require.NoError(t, svc.Store(ctx, "bob", offlineMessage("m3", "carol", 300)))

	drained, err := svc.Drain(ctx, "bob")
	require.NoError(t, err)
	require.Len(t, drained, 3)
	assert.Equal(t, "m1", drained[0].MessageID)
	assert.Equal(t, "m3", drained[2].MessageID)
	assert.Equal(t, "bob", drained[0].RecipientID)
}

func TestOfflineMailbox_DrainIsNonDestructive(t *testing.T) {
	svc := NewOfflineMailboxService(cache.NewMemory(), testLogger())
	ctx := context.Background()

	require.NoError(t, svc.Store(ctx, "bob", offlineMessage("m1", "alice", 100)))

	first, err := svc.Drain(ctx, "bob")
	require.NoError(t, err)
	require.Len(t, first, 1)

	// Until the batch is acknowledged via Clear, a re-drain sees it again.
	second, err := svc.Drain(ctx, "bob")
	require.NoError(t, err)
	assert.Len(t, second, 1)
}

func TestOfflineMailbox_ClearAcknowledgesBatch(t *testing.T) {
	svc := NewOfflineMailboxService(cache.NewMemory(), testLogger())
	ctx := context.Background()

	require.NoError(t, svc.Store(ctx, "bob", offlineMessage("m1", "alice", 100)))
	require.NoError(t, svc.Clear(ctx, "bob"))

	drained, err := svc.Drain(ctx, "bob")
	require.NoError(t, err)
	assert.Empty(t, drained)
}

func TestOfflineMailbox_DrainEmptyMailbox(t *testing.T) {
	svc := NewOfflineMailboxService(cache.NewMemory(), testLogger())

	drained, err := svc.Drain(context.Background(), "nobody")
	require.NoError(t, err)
	assert.Empty(t, drained)
}

func TestOfflineMailbox_DrainSkipsMalformedEntries(t *testing.T) {
	mem := cache.NewMemory()
	svc := NewOfflineMailboxService(mem, testLogger())
	ctx := context.Background()

	key := cache.OfflineMailboxKey("bob")
	require.NoError(t, mem.ListPush(ctx, key, []byte("{broken"), time.Hour))
	require.NoError(t, svc.Store(ctx, "bob", offlineMessage("ok", "alice", 100)))

	drained, err := svc.Drain(ctx, "bob")
	require.NoError(t, err)
	require.Len(t, drained, 1)
	assert.Equal(t, "ok", drained[0].MessageID)
}

func TestOfflineMailbox_StoreValidation(t *testing.T) {
	svc := NewOfflineMailboxService(cache.NewMemory(), testLogger())

	err := svc.Store(context.Background(), "bob", &models.OfflineMessage{})
	assert.Error(t, err)

	err = svc.Store(context.Background(), "", offlineMessage("m1", "alice", 100))
	assert.Error(t, err)
}

func TestOfflineMailbox_MailboxesAreIsolated(t *testing.T) {
	svc := NewOfflineMailboxService(cache.NewMemory(), testLogger())
	ctx := context.Background()

	require.NoError(t, svc.Store(ctx, "bob", offlineMessage("m1", "alice", 100)))
	require.NoError(t, svc.Store(ctx, "carol", offlineMessage("m2", "alice", 200)))

	bobMessages, err := svc.Drain(ctx, "bob")
	require.NoError(t, err)
	require.Len(t, bobMessages, 1)
	assert.Equal(t, "m1", bobMessages[0].MessageID)

	require.NoError(t, svc.Clear(ctx, "bob"))

	carolMessages, err := svc.Drain(ctx, "carol")
	require.NoError(t, err)
	require.Len(t, carolMessages, 1)
	assert.Equal(t, "m2", carolMessages[0].MessageID)
}
