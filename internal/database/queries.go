package database

// Message queries
const (
	insertMessageQuery = `
		INSERT OR REPLACE INTO messages (
			id, room_id, sender_id, content, timestamp, status, deleted, created_at
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?)
	`

	selectMessageQuery = `
		SELECT id, room_id, sender_id, content, timestamp, status, deleted, created_at
		FROM messages
		WHERE id = ?
	`

	countMessagesExcludingSenderQuery = `
		SELECT COUNT(*)
		FROM messages
		WHERE room_id = ? AND sender_id != ? AND deleted = 0
	`

	countMessagesAfterQuery = `
		SELECT COUNT(*)
		FROM messages
		WHERE room_id = ? AND sender_id != ? AND deleted = 0 AND timestamp > ?
	`

	markMessageDeletedQuery = `
		UPDATE messages SET deleted = 1 WHERE id = ?
	`
)

// Read status queries
const (
	// INSERT OR IGNORE backs the idempotence contract: the check-then-create
	// race collapses into the primary key on (message_id, reader_id).
	insertReadStatusQuery = `
		INSERT OR IGNORE INTO read_statuses (message_id, reader_id, read_at)
		VALUES (?, ?, ?)
	`

	hasReadStatusQuery = `
		SELECT EXISTS(SELECT 1 FROM read_statuses WHERE message_id = ? AND reader_id = ?)
	`

	lastReadTimeQuery = `
		SELECT rs.read_at
		FROM read_statuses rs
		JOIN messages m ON m.id = rs.message_id
		WHERE m.room_id = ? AND rs.reader_id = ?
		ORDER BY rs.read_at DESC
		LIMIT 1
	`

	readerIDsQuery = `
		SELECT reader_id FROM read_statuses WHERE message_id = ?
	`
)

// Room membership queries
const (
	insertParticipantQuery = `
		INSERT OR IGNORE INTO room_participants (room_id, user_id) VALUES (?, ?)
	`

	roomsOfUserQuery = `
		SELECT room_id FROM room_participants WHERE user_id = ? ORDER BY room_id
	`

	participantsOfRoomQuery = `
		SELECT user_id FROM room_participants WHERE room_id = ? ORDER BY user_id
	`
)
