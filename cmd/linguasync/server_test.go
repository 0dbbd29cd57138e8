package main

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"linguasync/internal/cache"
	"linguasync/internal/errors"
	"linguasync/internal/models"
	"linguasync/internal/service"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

type mockMailbox struct {
	mock.Mock
}

func (m *mockMailbox) Store(ctx context.Context, userID string, msg *models.OfflineMessage) error {
	args := m.Called(ctx, userID, msg)
	return args.Error(0)
}

func (m *mockMailbox) Drain(ctx context.Context, userID string) ([]*models.OfflineMessage, error) {
	args := m.Called(ctx, userID)
	if msgs := args.Get(0); msgs != nil {
		return msgs.([]*models.OfflineMessage), args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *mockMailbox) Clear(ctx context.Context, userID string) error {
	args := m.Called(ctx, userID)
	return args.Error(0)
}

type mockSyncEngine struct {
	mock.Mock
}

func (m *mockSyncEngine) QueueSyncItem(ctx context.Context, userID string, item *models.SyncItem) (string, error) {
	args := m.Called(ctx, userID, item)
	return args.String(0), args.Error(1)
}

func (m *mockSyncEngine) SyncOfflineMessages(ctx context.Context, userID, deviceID string, lastSyncTimestamp int64) *models.SyncResult {
	args := m.Called(ctx, userID, deviceID, lastSyncTimestamp)
	return args.Get(0).(*models.SyncResult)
}

func (m *mockSyncEngine) PerformBulkSync(ctx context.Context, userID string) ([]*models.SyncResult, error) {
	args := m.Called(ctx, userID)
	if results := args.Get(0); results != nil {
		return results.([]*models.SyncResult), args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *mockSyncEngine) GetSyncHistory(ctx context.Context, userID string) ([]*models.SyncSession, error) {
	args := m.Called(ctx, userID)
	if sessions := args.Get(0); sessions != nil {
		return sessions.([]*models.SyncSession), args.Error(1)
	}
	return nil, args.Error(1)
}

type mockDeviceStates struct {
	mock.Mock
}

func (m *mockDeviceStates) GetOrInit(ctx context.Context, userID, deviceID string) (*models.DeviceSyncState, error) {
	args := m.Called(ctx, userID, deviceID)
	if state := args.Get(0); state != nil {
		return state.(*models.DeviceSyncState), args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *mockDeviceStates) RecordSync(ctx context.Context, userID, deviceID string, lastSyncTS int64, synced, pending int) (*models.DeviceSyncState, error) {
	args := m.Called(ctx, userID, deviceID, lastSyncTS, synced, pending)
	if state := args.Get(0); state != nil {
		return state.(*models.DeviceSyncState), args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *mockDeviceStates) BumpPending(ctx context.Context, userID string) error {
	args := m.Called(ctx, userID)
	return args.Error(0)
}

func (m *mockDeviceStates) ListDeviceStates(ctx context.Context, userID string) ([]*models.DeviceSyncState, error) {
	args := m.Called(ctx, userID)
	if states := args.Get(0); states != nil {
		return states.([]*models.DeviceSyncState), args.Error(1)
	}
	return nil, args.Error(1)
}

type mockReadStatus struct {
	mock.Mock
}

func (m *mockReadStatus) MarkAsRead(ctx context.Context, messageID, readerID string) error {
	args := m.Called(ctx, messageID, readerID)
	return args.Error(0)
}

func (m *mockReadStatus) GetUnreadCount(ctx context.Context, roomID, userID string) (int, error) {
	args := m.Called(ctx, roomID, userID)
	return args.Int(0), args.Error(1)
}

func (m *mockReadStatus) GetGlobalUnreadSummary(ctx context.Context, userID string) (*models.UnreadSummary, error) {
	args := m.Called(ctx, userID)
	if summary := args.Get(0); summary != nil {
		return summary.(*models.UnreadSummary), args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *mockReadStatus) GetLastReadTime(ctx context.Context, roomID, userID string) (time.Time, error) {
	args := m.Called(ctx, roomID, userID)
	return args.Get(0).(time.Time), args.Error(1)
}

func (m *mockReadStatus) IsMessageFullyRead(ctx context.Context, messageID string) (bool, error) {
	args := m.Called(ctx, messageID)
	return args.Bool(0), args.Error(1)
}

type serverFixture struct {
	server     *Server
	mailbox    *mockMailbox
	syncEngine *mockSyncEngine
	devices    *mockDeviceStates
	readStatus *mockReadStatus
}

func newServerFixture(t *testing.T) *serverFixture {
	t.Helper()
	logger := logrus.New()
	logger.SetLevel(logrus.FatalLevel)

	workers := service.NewWorkerPool(2, logger)
	workers.Start(context.Background())
	t.Cleanup(workers.Stop)

	f := &serverFixture{
		mailbox:    &mockMailbox{},
		syncEngine: &mockSyncEngine{},
		devices:    &mockDeviceStates{},
		readStatus: &mockReadStatus{},
	}
	cfg := &models.Config{}
	f.server = NewServer(cfg, logger, Services{
		Mailbox:      f.mailbox,
		SyncEngine:   f.syncEngine,
		DeviceStates: f.devices,
		ReadStatus:   f.readStatus,
		Workers:      workers,
		Cache:        cache.NewMemory(),
	})
	return f
}

func (f *serverFixture) do(req *http.Request) *httptest.ResponseRecorder {
	rec := httptest.NewRecorder()
	f.server.router.ServeHTTP(rec, req)
	return rec
}

func TestHandleHealth(t *testing.T) {
	f := newServerFixture(t)

	rec := f.do(httptest.NewRequest(http.MethodGet, "/health", nil))
	assert.Equal(t, http.StatusOK, rec.Code)

	var body map[string]string
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, "ok", body["status"])
}

func TestHandleDeviceSync(t *testing.T) {
	f := newServerFixture(t)

	f.syncEngine.On("SyncOfflineMessages", mock.Anything, "bob", "phone", int64(1500)).
		Return(&models.SyncResult{SessionID: "s1", Status: models.SyncSessionCompleted, SyncedCount: 4}).Once()

	body := bytes.NewBufferString(`{"lastSyncTimestamp": 1500}`)
	rec := f.do(httptest.NewRequest(http.MethodPost, "/v1/sync/bob/phone", body))

	assert.Equal(t, http.StatusOK, rec.Code)
	var result models.SyncResult
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &result))
	assert.Equal(t, "s1", result.SessionID)
	assert.Equal(t, 4, result.SyncedCount)
	f.syncEngine.AssertExpectations(t)
}

func TestHandleDeviceSync_BadBody(t *testing.T) {
	f := newServerFixture(t)

	rec := f.do(httptest.NewRequest(http.MethodPost, "/v1/sync/bob/phone", bytes.NewBufferString("{")))
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestHandleBulkSync(t *testing.T) {
	f := newServerFixture(t)

	f.syncEngine.On("PerformBulkSync", mock.Anything, "bob").Return([]*models.SyncResult{
		{SessionID: "s1", Status: models.SyncSessionCompleted},
		{SessionID: "s2", Status: models.SyncSessionPartial},
	}, nil).Once()

	rec := f.do(httptest.NewRequest(http.MethodPost, "/v1/sync/bob", nil))

	assert.Equal(t, http.StatusOK, rec.Code)
	var body struct {
		Results []*models.SyncResult `json:"results"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Len(t, body.Results, 2)
	f.syncEngine.AssertExpectations(t)
}

func TestHandleBulkSync_Error(t *testing.T) {
	f := newServerFixture(t)

	f.syncEngine.On("PerformBulkSync", mock.Anything, "bob").Return(nil, assert.AnError).Once()

	rec := f.do(httptest.NewRequest(http.MethodPost, "/v1/sync/bob", nil))
	assert.Equal(t, http.StatusInternalServerError, rec.Code)
}

func TestHandleSyncHistory_FiltersByDevice(t *testing.T) {
	f := newServerFixture(t)

	f.syncEngine.On("GetSyncHistory", mock.Anything, "bob").Return([]*models.SyncSession{
		{SessionID: "s1", DeviceID: "phone"},
		{SessionID: "s2", DeviceID: "laptop"},
		{SessionID: "s3", DeviceID: "phone"},
	}, nil).Once()

	rec := f.do(httptest.NewRequest(http.MethodGet, "/v1/sync/bob/phone/history", nil))

	assert.Equal(t, http.StatusOK, rec.Code)
	var body struct {
		Sessions []*models.SyncSession `json:"sessions"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	require.Len(t, body.Sessions, 2)
	assert.Equal(t, "s1", body.Sessions[0].SessionID)
	assert.Equal(t, "s3", body.Sessions[1].SessionID)
}

func TestHandleMarkAsRead(t *testing.T) {
	f := newServerFixture(t)

	f.readStatus.On("MarkAsRead", mock.Anything, "m1", "bob").Return(nil).Once()

	body := bytes.NewBufferString(`{"readerId": "bob"}`)
	rec := f.do(httptest.NewRequest(http.MethodPost, "/v1/messages/m1/read", body))

	assert.Equal(t, http.StatusNoContent, rec.Code)
	f.readStatus.AssertExpectations(t)
}

func TestHandleMarkAsRead_MissingReader(t *testing.T) {
	f := newServerFixture(t)

	rec := f.do(httptest.NewRequest(http.MethodPost, "/v1/messages/m1/read", bytes.NewBufferString(`{}`)))
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestHandleMarkAsRead_UnknownMessage(t *testing.T) {
	f := newServerFixture(t)

	f.readStatus.On("MarkAsRead", mock.Anything, "ghost", "bob").
		Return(errors.NewNotFoundError("message", "ghost")).Once()

	body := bytes.NewBufferString(`{"readerId": "bob"}`)
	rec := f.do(httptest.NewRequest(http.MethodPost, "/v1/messages/ghost/read", body))

	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestHandleRoomUnread(t *testing.T) {
	f := newServerFixture(t)

	f.readStatus.On("GetUnreadCount", mock.Anything, "room-1", "bob").Return(7, nil).Once()

	rec := f.do(httptest.NewRequest(http.MethodGet, "/v1/rooms/room-1/unread?user=bob", nil))

	assert.Equal(t, http.StatusOK, rec.Code)
	var body map[string]interface{}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, float64(7), body["unread"])
}

func TestHandleRoomUnread_MissingUser(t *testing.T) {
	f := newServerFixture(t)

	rec := f.do(httptest.NewRequest(http.MethodGet, "/v1/rooms/room-1/unread", nil))
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestHandleGlobalUnread(t *testing.T) {
	f := newServerFixture(t)

	f.readStatus.On("GetGlobalUnreadSummary", mock.Anything, "bob").Return(&models.UnreadSummary{
		UserID:     "bob",
		Total:      9,
		RoomCounts: map[string]int{"room-1": 4, "room-2": 5},
	}, nil).Once()

	rec := f.do(httptest.NewRequest(http.MethodGet, "/v1/users/bob/unread", nil))

	assert.Equal(t, http.StatusOK, rec.Code)
	var summary models.UnreadSummary
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &summary))
	assert.Equal(t, 9, summary.Total)
}

func TestHandleDeviceStates(t *testing.T) {
	f := newServerFixture(t)

	f.devices.On("ListDeviceStates", mock.Anything, "bob").Return([]*models.DeviceSyncState{
		{UserID: "bob", DeviceID: "phone"},
	}, nil).Once()

	rec := f.do(httptest.NewRequest(http.MethodGet, "/v1/users/bob/devices", nil))
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestHandleMailboxDrain(t *testing.T) {
	f := newServerFixture(t)

	f.mailbox.On("Drain", mock.Anything, "bob").Return([]*models.OfflineMessage{
		{MessageID: "m1", RecipientID: "bob"},
		{MessageID: "m2", RecipientID: "bob"},
	}, nil).Once()

	rec := f.do(httptest.NewRequest(http.MethodGet, "/v1/users/bob/mailbox", nil))

	assert.Equal(t, http.StatusOK, rec.Code)
	var body struct {
		Messages []*models.OfflineMessage `json:"messages"`
		Count    int                      `json:"count"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, 2, body.Count)
	require.Len(t, body.Messages, 2)
}

func TestHandleMailboxClear(t *testing.T) {
	f := newServerFixture(t)

	f.mailbox.On("Clear", mock.Anything, "bob").Return(nil).Once()

	rec := f.do(httptest.NewRequest(http.MethodDelete, "/v1/users/bob/mailbox", nil))
	assert.Equal(t, http.StatusNoContent, rec.Code)
	f.mailbox.AssertExpectations(t)
}

func TestHandleMetricsEndpoint(t *testing.T) {
	f := newServerFixture(t)

	rec := f.do(httptest.NewRequest(http.MethodGet, "/metrics", nil))
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "application/json", rec.Header().Get("Content-Type"))

	var body map[string]interface{}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Contains(t, body, "counters")
}
