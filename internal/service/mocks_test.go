package service

import (
	"context"
	"time"

	"linguasync/internal/models"

	"github.com/stretchr/testify/mock"
)

type mockMessageStore struct {
	mock.Mock
}

func (m *mockMessageStore) GetMessage(ctx context.Context, messageID string) (*models.Message, error) {
	args := m.Called(ctx, messageID)
	if msg := args.Get(0); msg != nil {
		return msg.(*models.Message), args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *mockMessageStore) CountMessagesExcludingSender(ctx context.Context, roomID, userID string) (int, error) {
	args := m.Called(ctx, roomID, userID)
	return args.Int(0), args.Error(1)
}

func (m *mockMessageStore) CountMessagesAfter(ctx context.Context, roomID, userID string, after time.Time) (int, error) {
	args := m.Called(ctx, roomID, userID, after)
	return args.Int(0), args.Error(1)
}

type mockReadReceiptStore struct {
	mock.Mock
}

func (m *mockReadReceiptStore) SaveReadStatus(ctx context.Context, status *models.ReadStatus) error {
	args := m.Called(ctx, status)
	return args.Error(0)
}

func (m *mockReadReceiptStore) HasReadStatus(ctx context.Context, messageID, readerID string) (bool, error) {
	args := m.Called(ctx, messageID, readerID)
	return args.Bool(0), args.Error(1)
}

func (m *mockReadReceiptStore) LastReadTime(ctx context.Context, roomID, userID string) (time.Time, error) {
	args := m.Called(ctx, roomID, userID)
	return args.Get(0).(time.Time), args.Error(1)
}

func (m *mockReadReceiptStore) ReaderIDs(ctx context.Context, messageID string) ([]string, error) {
	args := m.Called(ctx, messageID)
	if readers := args.Get(0); readers != nil {
		return readers.([]string), args.Error(1)
	}
	return nil, args.Error(1)
}

type mockRoomStore struct {
	mock.Mock
}

func (m *mockRoomStore) RoomsOf(ctx context.Context, userID string) ([]string, error) {
	args := m.Called(ctx, userID)
	if rooms := args.Get(0); rooms != nil {
		return rooms.([]string), args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *mockRoomStore) ParticipantsOf(ctx context.Context, roomID string) ([]string, error) {
	args := m.Called(ctx, roomID)
	if participants := args.Get(0); participants != nil {
		return participants.([]string), args.Error(1)
	}
	return nil, args.Error(1)
}

type mockDeviceStateTracker struct {
	mock.Mock
}

func (m *mockDeviceStateTracker) GetOrInit(ctx context.Context, userID, deviceID string) (*models.DeviceSyncState, error) {
	args := m.Called(ctx, userID, deviceID)
	if state := args.Get(0); state != nil {
		return state.(*models.DeviceSyncState), args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *mockDeviceStateTracker) RecordSync(ctx context.Context, userID, deviceID string, lastSyncTS int64, synced, pending int) (*models.DeviceSyncState, error) {
	args := m.Called(ctx, userID, deviceID, lastSyncTS, synced, pending)
	if state := args.Get(0); state != nil {
		return state.(*models.DeviceSyncState), args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *mockDeviceStateTracker) BumpPending(ctx context.Context, userID string) error {
	args := m.Called(ctx, userID)
	return args.Error(0)
}

func (m *mockDeviceStateTracker) ListDeviceStates(ctx context.Context, userID string) ([]*models.DeviceSyncState, error) {
	args := m.Called(ctx, userID)
	if states := args.Get(0); states != nil {
		return states.([]*models.DeviceSyncState), args.Error(1)
	}
	return nil, args.Error(1)
}
