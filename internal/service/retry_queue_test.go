package service

import (
	"context"
	"testing"
	"time"

	"linguasync/internal/cache"
	"linguasync/internal/models"
	"linguasync/internal/store"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

func testLogger() *logrus.Logger {
	logger := logrus.New()
	logger.SetLevel(logrus.FatalLevel)
	return logger
}

func queuedMessage(id, roomID, senderID string) *models.QueuedRetryMessage {
	return &models.QueuedRetryMessage{
		RoomID:    roomID,
		SenderID:  senderID,
		MessageID: id,
		Content:   "hello",
	}
}

func TestRetryQueue_EnqueueDrainOrder(t *testing.T) {
	mem := cache.NewMemory()
	messages := &mockMessageStore{}
	svc := NewRetryQueueService(mem, messages, testLogger())
	ctx := context.Background()

	for _, id := range []string{"m1", "m2", "m3"} {
		require.NoError(t, svc.Enqueue(ctx, queuedMessage(id, "room-1", "alice")))
		messages.On("GetMessage", mock.Anything, id).Return(&models.Message{ID: id, RoomID: "room-1"}, nil).Once()
	}

	drained, err := svc.Drain(ctx, "room-1", "alice")
	require.NoError(t, err)
	require.Len(t, drained, 3)
	assert.Equal(t, "m1", drained[0].ID)
	assert.Equal(t, "m2", drained[1].ID)
	assert.Equal(t, "m3", drained[2].ID)

	// Drain empties the queue; a second drain yields nothing.
	drained, err = svc.Drain(ctx, "room-1", "alice")
	require.NoError(t, err)
	assert.Empty(t, drained)

	messages.AssertExpectations(t)
}

func TestRetryQueue_DrainDropsDeletedMessages(t *testing.T) {
	mem := cache.NewMemory()
	messages := &mockMessageStore{}
	svc := NewRetryQueueService(mem, messages, testLogger())
	ctx := context.Background()

	require.NoError(t, svc.Enqueue(ctx, queuedMessage("gone", "room-1", "alice")))
	require.NoError(t, svc.Enqueue(ctx, queuedMessage("kept", "room-1", "alice")))

	messages.On("GetMessage", mock.Anything, "gone").Return(nil, store.ErrNotFound).Once()
	messages.On("GetMessage", mock.Anything, "kept").Return(&models.Message{ID: "kept"}, nil).Once()

	drained, err := svc.Drain(ctx, "room-1", "alice")
	require.NoError(t, err)
	require.Len(t, drained, 1)
	assert.Equal(t, "kept", drained[0].ID)
	messages.AssertExpectations(t)
}

func TestRetryQueue_DrainSkipsMalformedEntries(t *testing.T) {
	mem := cache.NewMemory()
	messages := &mockMessageStore{}
	svc := NewRetryQueueService(mem, messages, testLogger())
	ctx := context.Background()

	key := cache.RetryQueueKey("room-1", "alice")
	require.NoError(t, mem.ListPush(ctx, key, []byte("not json"), time.Hour))
	require.NoError(t, svc.Enqueue(ctx, queuedMessage("ok", "room-1", "alice")))

	messages.On("GetMessage", mock.Anything, "ok").Return(&models.Message{ID: "ok"}, nil).Once()

	drained, err := svc.Drain(ctx, "room-1", "alice")
	require.NoError(t, err)
	require.Len(t, drained, 1)
	assert.Equal(t, "ok", drained[0].ID)
}

func TestRetryQueue_EnqueueValidation(t *testing.T) {
	svc := NewRetryQueueService(cache.NewMemory(), &mockMessageStore{}, testLogger())

	err := svc.Enqueue(context.Background(), &models.QueuedRetryMessage{RoomID: "room-1"})
	assert.Error(t, err)
}

func TestRetryQueue_MaxRetryBudget(t *testing.T) {
	svc := NewRetryQueueService(cache.NewMemory(), &mockMessageStore{}, testLogger())
	ctx := context.Background()

	// Two failures: still under budget.
	for i := 0; i < 2; i++ {
		_, err := svc.IncrementRetry(ctx, "msg-1")
		require.NoError(t, err)
	}
	exceeded, err := svc.IsMaxRetryExceeded(ctx, "msg-1")
	require.NoError(t, err)
	assert.False(t, exceeded)

	// Third failure exhausts the budget.
	count, err := svc.IncrementRetry(ctx, "msg-1")
	require.NoError(t, err)
	assert.Equal(t, int64(3), count)

	exceeded, err = svc.IsMaxRetryExceeded(ctx, "msg-1")
	require.NoError(t, err)
	assert.True(t, exceeded)
}

func TestRetryQueue_RetryCountUntracked(t *testing.T) {
	svc := NewRetryQueueService(cache.NewMemory(), &mockMessageStore{}, testLogger())

	count, err := svc.RetryCount(context.Background(), "never-seen")
	require.NoError(t, err)
	assert.Equal(t, int64(0), count)
}

func TestRetryQueue_ResetRetry(t *testing.T) {
	svc := NewRetryQueueService(cache.NewMemory(), &mockMessageStore{}, testLogger())
	ctx := context.Background()

	for i := 0; i < 3; i++ {
		_, err := svc.IncrementRetry(ctx, "msg-1")
		require.NoError(t, err)
	}
	require.NoError(t, svc.ResetRetry(ctx, "msg-1"))

	count, err := svc.RetryCount(ctx, "msg-1")
	require.NoError(t, err)
	assert.Equal(t, int64(0), count)

	exceeded, err := svc.IsMaxRetryExceeded(ctx, "msg-1")
	require.NoError(t, err)
	assert.False(t, exceeded)
}

func TestRetryQueue_SweepDropsDanglingEntries(t *testing.T) {
	mem := cache.NewMemory()
	messages := &mockMessageStore{}
	svc := NewRetryQueueService(mem, messages, testLogger())
	ctx := context.Background()

	require.NoError(t, svc.Enqueue(ctx, queuedMessage("gone", "room-1", "alice")))
	require.NoError(t, svc.Enqueue(ctx, queuedMessage("kept", "room-1", "alice")))

	messages.On("GetMessage", mock.Anything, "gone").Return(nil, store.ErrNotFound)
	messages.On("GetMessage", mock.Anything, "kept").Return(&models.Message{ID: "kept"}, nil)

	require.NoError(t, svc.Sweep(ctx))

	entries, err := mem.ListRange(ctx, cache.RetryQueueKey("room-1", "alice"))
	require.NoError(t, err)
	assert.Len(t, entries, 1)
}

func TestRetryQueue_SweepDropsExpiredSnapshots(t *testing.T) {
	mem := cache.NewMemory()
	messages := &mockMessageStore{}
	svc := NewRetryQueueService(mem, messages, testLogger())
	ctx := context.Background()

	stale := queuedMessage("stale", "room-1", "alice")
	stale.EnqueuedAt = time.Now().UTC().Add(-8 * 24 * time.Hour)
	require.NoError(t, svc.Enqueue(ctx, stale))

	require.NoError(t, svc.Sweep(ctx))

	entries, err := mem.ListRange(ctx, cache.RetryQueueKey("room-1", "alice"))
	require.NoError(t, err)
	assert.Empty(t, entries)
}

func TestRetryQueue_SweepKeepsHealthyQueues(t *testing.T) {
	mem := cache.NewMemory()
	messages := &mockMessageStore{}
	svc := NewRetryQueueService(mem, messages, testLogger())
	ctx := context.Background()

	require.NoError(t, svc.Enqueue(ctx, queuedMessage("m1", "room-1", "alice")))
	messages.On("GetMessage", mock.Anything, "m1").Return(&models.Message{ID: "m1"}, nil)

	require.NoError(t, svc.Sweep(ctx))

	entries, err := mem.ListRange(ctx, cache.RetryQueueKey("room-1", "alice"))
	require.NoError(t, err)
	assert.Len(t, entries, 1)
}
