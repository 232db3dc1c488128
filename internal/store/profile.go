package store

import (
	"database/sql"
	"strings"
)

// CreateProfile inserts a new profile row.
func (db *DB) CreateProfile(p *Profile) error {
	_, err := db.Exec(`
		INSERT INTO profiles (id, email, password_hash, display_name, title, company, avatar_url, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		p.ID, p.Email, p.PasswordHash, p.DisplayName, p.Title, p.Company, p.AvatarURL, p.CreatedAt)
	return err
}

// GetProfile returns a profile by ID, or nil if it does not exist.
func (db *DB) GetProfile(id string) (*Profile, error) {
	return db.scanProfile(db.QueryRow(`
		SELECT id, email, password_hash, display_name, title, company, avatar_url, created_at
		FROM profiles WHERE id = ?`, id))
}

// GetProfileByEmail returns a profile by email, or nil if it does not exist.
// Emails are matched case-insensitively.
func (db *DB) GetProfileByEmail(email string) (*Profile, error) {
	return db.scanProfile(db.QueryRow(`
		SELECT id, email, password_hash, display_name, title, company, avatar_url, created_at
		FROM profiles WHERE email = ? COLLATE NOCASE`, email))
}

func (db *DB) scanProfile(row *sql.Row) (*Profile, error) {
	var p Profile
	err := row.Scan(&p.ID, &p.Email, &p.PasswordHash, &p.DisplayName, &p.Title, &p.Company, &p.AvatarURL, &p.CreatedAt)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &p, nil
}

// UpdateProfile updates the mutable fields of a profile.
func (db *DB) UpdateProfile(p *Profile) error {
	_, err := db.Exec(`
		UPDATE profiles
		SET display_name = ?, title = ?, company = ?, avatar_url = ?
		WHERE id = ?`,
		p.DisplayName, p.Title, p.Company, p.AvatarURL, p.ID)
	return err
}

// SearchProfiles returns profiles whose display name or email contains the
// query substring, ordered by display name.
func (db *DB) SearchProfiles(query string, limit int) ([]Profile, error) {
	if limit <= 0 {
		limit = 20
	}
	pattern := "%" + escapeLike(query) + "%"
	rows, err := db.Query(`
		SELECT id, email, password_hash, display_name, title, company, avatar_url, created_at
		FROM profiles
		WHERE display_name LIKE ? ESCAPE '\' COLLATE NOCASE
		   OR email LIKE ? ESCAPE '\' COLLATE NOCASE
		ORDER BY display_name
		LIMIT ?`, pattern, pattern, limit)
	if err != nil {
		return nil, err
	}
	defer func() { _ = rows.Close() }()

	var profiles []Profile
	for rows.Next() {
		var p Profile
		if err := rows.Scan(&p.ID, &p.Email, &p.PasswordHash, &p.DisplayName, &p.Title, &p.Company, &p.AvatarURL, &p.CreatedAt); err != nil {
			return nil, err
		}
		profiles = append(profiles, p)
	}
	return profiles, rows.Err()
}

// escapeLike escapes LIKE wildcards so user input matches literally.
func escapeLike(s string) string {
	r := strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)
	return r.Replace(s)
}

// ProfileCount returns the total number of profiles.
func (db *DB) ProfileCount() (int64, error) {
	var count int64
	err := db.QueryRow(`SELECT COUNT(*) FROM profiles`).Scan(&count)
	return count, err
}
