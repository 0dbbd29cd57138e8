package cache

import "fmt"

// Key builders for every cache namespace the delivery subsystem owns. Key
// shapes are part of the external contract and must stay stable across
// releases; payload evolution happens inside the wire envelope instead.

func RetryQueueKey(roomID, userID string) string {
	return fmt.Sprintf("message_retry:%s:%s", roomID, userID)
}

func RetryCountKey(messageID string) string {
	return fmt.Sprintf("message_retry_count:%s", messageID)
}

func OfflineMailboxKey(userID string) string {
	return fmt.Sprintf("offline_messages:%s", userID)
}

func SyncItemKey(userID, syncID string) string {
	return fmt.Sprintf("chat:sync:%s:%s", userID, syncID)
}

func SyncItemPrefix(userID string) string {
	return fmt.Sprintf("chat:sync:%s:", userID)
}

func SyncSessionKey(userID, sessionID string) string {
	return fmt.Sprintf("chat:sync:session:%s:%s", userID, sessionID)
}

func SyncSessionPrefix(userID string) string {
	return fmt.Sprintf("chat:sync:session:%s:", userID)
}

func DeviceStateKey(userID, deviceID string) string {
	return fmt.Sprintf("chat:sync:device:%s:%s", userID, deviceID)
}

func DeviceStatePrefix(userID string) string {
	return fmt.Sprintf("chat:sync:device:%s:", userID)
}

func ConflictKey(userID, conflictID string) string {
	return fmt.Sprintf("chat:sync:conflict:%s:%s", userID, conflictID)
}

func UnreadCountKey(roomID, userID string) string {
	return fmt.Sprintf("unread:count:%s:%s", roomID, userID)
}

func LastReadKey(roomID, userID string) string {
	return fmt.Sprintf("last:read:%s:%s", roomID, userID)
}
