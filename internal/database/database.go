package database

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"linguasync/internal/models"
	"linguasync/internal/store"

	_ "github.com/mattn/go-sqlite3"
)

// Database implements the durable collaborator contracts (MessageStore,
// ReadReceiptStore, RoomStore) on a single sqlite file.
type Database struct {
	db        *sql.DB
	encryptor *encryptor
}

func New(dbPath string) (*Database, error) {
	if dbPath == "" {
		return nil, fmt.Errorf("invalid database path")
	}

	db, err := sql.Open("sqlite3", dbPath)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}
	if _, err := db.Exec(initialSchema); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to initialize schema: %w", err)
	}

	enc, err := newEncryptor()
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to initialize encryptor: %w", err)
	}

	return &Database{db: db, encryptor: enc}, nil
}

func (d *Database) Close() error {
	return d.db.Close()
}

// SaveMessage upserts the delivery mirror of a message.
func (d *Database) SaveMessage(ctx context.Context, msg *models.Message) error {
	content, err := d.encryptor.encrypt(msg.Content)
	if err != nil {
		return fmt.Errorf("failed to encrypt content: %w", err)
	}
	createdAt := msg.CreatedAt
	if createdAt.IsZero() {
		createdAt = time.Now().UTC()
	}

	return withRetry(ctx, "save message", func() error {
		_, err := d.db.ExecContext(ctx, insertMessageQuery,
			msg.ID, msg.RoomID, msg.SenderID, content, msg.Timestamp,
			string(msg.Status), boolToInt(msg.Deleted), createdAt)
		return err
	})
}

func (d *Database) GetMessage(ctx context.Context, messageID string) (*models.Message, error) {
	var msg models.Message
	var content, status string
	var deleted int

	err := withRetry(ctx, "get message", func() error {
		row := d.db.QueryRowContext(ctx, selectMessageQuery, messageID)
		return row.Scan(&msg.ID, &msg.RoomID, &msg.SenderID, &content,
			&msg.Timestamp, &status, &deleted, &msg.CreatedAt)
	})
	if err != nil {
		if isNoRows(err) {
			return nil, store.ErrNotFound
		}
		return nil, err
	}

	plaintext, err := d.encryptor.decrypt(content)
	if err != nil {
		return nil, fmt.Errorf("failed to decrypt content: %w", err)
	}
	msg.Content = plaintext
	msg.Status = models.DeliveryStatus(status)
	msg.Deleted = deleted != 0
	return &msg, nil
}

// MarkMessageDeleted soft-deletes a message; the row survives so conflict
// resolution can still see the deletion flag.
func (d *Database) MarkMessageDeleted(ctx context.Context, messageID string) error {
	return withRetry(ctx, "mark message deleted", func() error {
		_, err := d.db.ExecContext(ctx, markMessageDeletedQuery, messageID)
		return err
	})
}

func (d *Database) CountMessagesExcludingSender(ctx context.Context, roomID, userID string) (int, error) {
	var count int
	err := withRetry(ctx, "count messages", func() error {
		row := d.db.QueryRowContext(ctx, countMessagesExcludingSenderQuery, roomID, userID)
		return row.Scan(&count)
	})
	return count, err
}

func (d *Database) CountMessagesAfter(ctx context.Context, roomID, userID string, after time.Time) (int, error) {
	var count int
	err := withRetry(ctx, "count messages after", func() error {
		row := d.db.QueryRowContext(ctx, countMessagesAfterQuery, roomID, userID, after.UnixMilli())
		return row.Scan(&count)
	})
	return count, err
}

func (d *Database) SaveReadStatus(ctx context.Context, status *models.ReadStatus) error {
	return withRetry(ctx, "save read status", func() error {
		_, err := d.db.ExecContext(ctx, insertReadStatusQuery,
			status.MessageID, status.ReaderID, status.ReadAt)
		return err
	})
}

func (d *Database) HasReadStatus(ctx context.Context, messageID, readerID string) (bool, error) {
	var exists bool
	err := withRetry(ctx, "has read status", func() error {
		row := d.db.QueryRowContext(ctx, hasReadStatusQuery, messageID, readerID)
		return row.Scan(&exists)
	})
	return exists, err
}

func (d *Database) LastReadTime(ctx context.Context, roomID, userID string) (time.Time, error) {
	var lastRead time.Time
	err := withRetry(ctx, "last read time", func() error {
		row := d.db.QueryRowContext(ctx, lastReadTimeQuery, roomID, userID)
		return row.Scan(&lastRead)
	})
	if err != nil {
		if isNoRows(err) {
			return time.Time{}, store.ErrNotFound
		}
		return time.Time{}, err
	}
	return lastRead, nil
}

func (d *Database) ReaderIDs(ctx context.Context, messageID string) ([]string, error) {
	return d.queryStrings(ctx, "reader ids", readerIDsQuery, messageID)
}

// AddParticipant records room membership.
func (d *Database) AddParticipant(ctx context.Context, roomID, userID string) error {
	return withRetry(ctx, "add participant", func() error {
		_, err := d.db.ExecContext(ctx, insertParticipantQuery, roomID, userID)
		return err
	})
}

func (d *Database) RoomsOf(ctx context.Context, userID string) ([]string, error) {
	return d.queryStrings(ctx, "rooms of user", roomsOfUserQuery, userID)
}

func (d *Database) ParticipantsOf(ctx context.Context, roomID string) ([]string, error) {
	return d.queryStrings(ctx, "participants of room", participantsOfRoomQuery, roomID)
}

func (d *Database) queryStrings(ctx context.Context, operationName, query string, arg interface{}) ([]string, error) {
	var out []string
	err := withRetry(ctx, operationName, func() error {
		rows, err := d.db.QueryContext(ctx, query, arg)
		if err != nil {
			return err
		}
		defer rows.Close()

		out = out[:0]
		for rows.Next() {
			var s string
			if err := rows.Scan(&s); err != nil {
				return err
			}
			out = append(out, s)
		}
		return rows.Err()
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

func isNoRows(err error) bool {
	return errors.Is(err, sql.ErrNoRows)
}

func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}
