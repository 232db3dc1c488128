package store

import (
	"database/sql"
	"time"
)

// InsertMessage appends a message row. Message IDs are unique; re-inserting
// an existing ID is a conflict, not an update. Messages are immutable.
func (db *DB) InsertMessage(m *Message) error {
	_, err := db.Exec(`
		INSERT INTO messages (id, thread_id, sender_id, body, created_at)
		VALUES (?, ?, ?, ?, ?)`,
		m.ID, m.ThreadID, m.SenderID, m.Body, m.CreatedAt)
	return err
}

// ListMessages returns messages for a thread in ascending creation order
// (ties broken by ID for a stable order). beforeTS and limit select the
// newest page strictly older than beforeTS; beforeTS <= 0 means "now" and
// limit <= 0 means the full history.
func (db *DB) ListMessages(threadID string, beforeTS int64, limit int) ([]Message, error) {
	if beforeTS <= 0 {
		beforeTS = time.Now().UnixMilli() + 1
	}
	if limit <= 0 {
		limit = -1 // SQLite: no limit
	}
	rows, err := db.Query(`
		SELECT id, thread_id, sender_id, body, created_at
		FROM messages
		WHERE thread_id = ? AND created_at < ?
		ORDER BY created_at DESC, id DESC
		LIMIT ?`, threadID, beforeTS, limit)
	if err != nil {
		return nil, err
	}
	defer func() { _ = rows.Close() }()

	var msgs []Message
	for rows.Next() {
		var m Message
		if err := rows.Scan(&m.ID, &m.ThreadID, &m.SenderID, &m.Body, &m.CreatedAt); err != nil {
			return nil, err
		}
		msgs = append(msgs, m)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	// Reverse the page into ascending display order.
	for i, j := 0, len(msgs)-1; i < j; i, j = i+1, j-1 {
		msgs[i], msgs[j] = msgs[j], msgs[i]
	}
	return msgs, nil
}

// LastMessage returns the most recent message of a thread, or nil if the
// thread has no messages yet.
func (db *DB) LastMessage(threadID string) (*Message, error) {
	var m Message
	err := db.QueryRow(`
		SELECT id, thread_id, sender_id, body, created_at
		FROM messages
		WHERE thread_id = ?
		ORDER BY created_at DESC, id DESC
		LIMIT 1`, threadID).
		Scan(&m.ID, &m.ThreadID, &m.SenderID, &m.Body, &m.CreatedAt)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &m, nil
}

// MessageCount returns the total number of messages.
func (db *DB) MessageCount() (int64, error) {
	var count int64
	err := db.QueryRow(`SELECT COUNT(*) FROM messages`).Scan(&count)
	return count, err
}
