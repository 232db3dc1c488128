package store

import (
	"database/sql"
	"fmt"
)

// CreateThread inserts a thread and both participant rows in a single
// transaction. Either everything lands or nothing does; there is no
// orphaned-thread state to recover from on retry.
func (db *DB) CreateThread(t *Thread, userA, userB string) error {
	tx, err := db.Begin()
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	if _, err := tx.Exec(`
		INSERT INTO threads (id, pair_key, created_at, updated_at)
		VALUES (?, ?, ?, ?)`,
		t.ID, t.PairKey, t.CreatedAt, t.UpdatedAt); err != nil {
		return fmt.Errorf("insert thread: %w", err)
	}

	for _, userID := range []string{userA, userB} {
		if _, err := tx.Exec(`
			INSERT INTO thread_participants (thread_id, user_id, last_read_at)
			VALUES (?, ?, NULL)`,
			t.ID, userID); err != nil {
			return fmt.Errorf("insert participant %q: %w", userID, err)
		}
	}

	return tx.Commit()
}

// ThreadByPairKey returns the thread for a participant pair, or nil.
func (db *DB) ThreadByPairKey(pairKey string) (*Thread, error) {
	var t Thread
	err := db.QueryRow(`
		SELECT id, pair_key, created_at, updated_at
		FROM threads WHERE pair_key = ?`, pairKey).
		Scan(&t.ID, &t.PairKey, &t.CreatedAt, &t.UpdatedAt)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &t, nil
}

// GetThread returns a thread by ID, or nil.
func (db *DB) GetThread(id string) (*Thread, error) {
	var t Thread
	err := db.QueryRow(`
		SELECT id, pair_key, created_at, updated_at
		FROM threads WHERE id = ?`, id).
		Scan(&t.ID, &t.PairKey, &t.CreatedAt, &t.UpdatedAt)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &t, nil
}

// ThreadsForUser returns all threads the user participates in, most
// recently active first.
func (db *DB) ThreadsForUser(userID string) ([]Thread, error) {
	rows, err := db.Query(`
		SELECT t.id, t.pair_key, t.created_at, t.updated_at
		FROM threads t
		JOIN thread_participants p ON p.thread_id = t.id
		WHERE p.user_id = ?
		ORDER BY t.updated_at DESC`, userID)
	if err != nil {
		return nil, err
	}
	defer func() { _ = rows.Close() }()

	var threads []Thread
	for rows.Next() {
		var t Thread
		if err := rows.Scan(&t.ID, &t.PairKey, &t.CreatedAt, &t.UpdatedAt); err != nil {
			return nil, err
		}
		threads = append(threads, t)
	}
	return threads, rows.Err()
}

// Participants returns both participant rows of a thread.
func (db *DB) Participants(threadID string) ([]Participant, error) {
	rows, err := db.Query(`
		SELECT thread_id, user_id, last_read_at
		FROM thread_participants
		WHERE thread_id = ?`, threadID)
	if err != nil {
		return nil, err
	}
	defer func() { _ = rows.Close() }()

	var parts []Participant
	for rows.Next() {
		var p Participant
		if err := rows.Scan(&p.ThreadID, &p.UserID, &p.LastReadAt); err != nil {
			return nil, err
		}
		parts = append(parts, p)
	}
	return parts, rows.Err()
}

// GetParticipant returns the participant row for (threadID, userID), or nil.
func (db *DB) GetParticipant(threadID, userID string) (*Participant, error) {
	var p Participant
	err := db.QueryRow(`
		SELECT thread_id, user_id, last_read_at
		FROM thread_participants
		WHERE thread_id = ? AND user_id = ?`, threadID, userID).
		Scan(&p.ThreadID, &p.UserID, &p.LastReadAt)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &p, nil
}

// SetLastRead updates the caller's last-read timestamp for a thread.
// Each participant writes only their own row.
func (db *DB) SetLastRead(threadID, userID string, ts int64) error {
	res, err := db.Exec(`
		UPDATE thread_participants
		SET last_read_at = ?
		WHERE thread_id = ? AND user_id = ?`,
		ts, threadID, userID)
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return fmt.Errorf("no participant row for thread %s user %s", threadID, userID)
	}
	return nil
}

// TouchThread bumps a thread's last-activity timestamp.
func (db *DB) TouchThread(threadID string, ts int64) error {
	_, err := db.Exec(`UPDATE threads SET updated_at = ? WHERE id = ?`, ts, threadID)
	return err
}

// IsParticipant reports whether the user belongs to the thread.
func (db *DB) IsParticipant(threadID, userID string) (bool, error) {
	var one int
	err := db.QueryRow(`
		SELECT 1 FROM thread_participants
		WHERE thread_id = ? AND user_id = ?`, threadID, userID).Scan(&one)
	if err == sql.ErrNoRows {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return true, nil
}
