package database

// Schema owned by this service. The surrounding chat platform owns the
// canonical message store; this mirror exists so delivery components can
// resolve ids and counts without a network hop per lookup.
const initialSchema = `
CREATE TABLE IF NOT EXISTS messages (
	id         TEXT PRIMARY KEY,
	room_id    TEXT NOT NULL,
	sender_id  TEXT NOT NULL,
	content    TEXT NOT NULL,
	timestamp  INTEGER NOT NULL,
	status     TEXT NOT NULL DEFAULT 'sent',
	deleted    INTEGER NOT NULL DEFAULT 0,
	created_at TIMESTAMP NOT NULL DEFAULT CURRENT_TIMESTAMP
);

CREATE INDEX IF NOT EXISTS idx_messages_room_ts ON messages(room_id, timestamp);

CREATE TABLE IF NOT EXISTS read_statuses (
	message_id TEXT NOT NULL,
	reader_id  TEXT NOT NULL,
	read_at    TIMESTAMP NOT NULL,
	PRIMARY KEY (message_id, reader_id)
);

CREATE INDEX IF NOT EXISTS idx_read_statuses_reader ON read_statuses(reader_id);

CREATE TABLE IF NOT EXISTS room_participants (
	room_id TEXT NOT NULL,
	user_id TEXT NOT NULL,
	PRIMARY KEY (room_id, user_id)
);

CREATE INDEX IF NOT EXISTS idx_room_participants_user ON room_participants(user_id);
`
