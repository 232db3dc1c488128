// Package blob stores user-uploaded files (avatars, shared decks) on local
// disk and hands out public URLs for them.
package blob

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/google/uuid"
)

// Store writes uploads under root and maps them to URLs under baseURL.
type Store struct {
	root    string
	baseURL string
}

// New creates a blob store rooted at dir. baseURL is the public prefix
// served by the HTTP layer, e.g. "http://localhost:8080".
func New(dir, baseURL string) (*Store, error) {
	if err := os.MkdirAll(dir, 0700); err != nil {
		return nil, fmt.Errorf("create upload dir: %w", err)
	}
	return &Store{root: dir, baseURL: strings.TrimRight(baseURL, "/")}, nil
}

// Root returns the directory uploads are written to.
func (s *Store) Root() string {
	return s.root
}

// Save writes the upload to disk under a per-user directory and returns its
// public URL. The stored name is randomized; only the extension of the
// client-supplied filename survives.
func (s *Store) Save(userID, filename string, r io.Reader) (string, error) {
	userDir := filepath.Join(s.root, sanitize(userID))
	if err := os.MkdirAll(userDir, 0700); err != nil {
		return "", fmt.Errorf("create user dir: %w", err)
	}

	name := uuid.NewString() + sanitizeExt(filename)
	path := filepath.Join(userDir, name)

	f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_EXCL, 0600)
	if err != nil {
		return "", fmt.Errorf("create upload file: %w", err)
	}
	_, copyErr := io.Copy(f, r)
	closeErr := f.Close()
	if copyErr != nil {
		_ = os.Remove(path)
		return "", fmt.Errorf("write upload: %w", copyErr)
	}
	if closeErr != nil {
		_ = os.Remove(path)
		return "", fmt.Errorf("close upload: %w", closeErr)
	}

	return s.baseURL + "/uploads/" + sanitize(userID) + "/" + name, nil
}

// sanitize strips path separators and dots so IDs cannot escape the root.
func sanitize(s string) string {
	return strings.Map(func(r rune) rune {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9', r == '-', r == '_':
			return r
		}
		return '_'
	}, s)
}

// sanitizeExt keeps a short, safe extension from the original filename.
func sanitizeExt(filename string) string {
	ext := strings.ToLower(filepath.Ext(filepath.Base(filename)))
	if len(ext) < 2 || len(ext) > 10 {
		return ""
	}
	for _, r := range ext[1:] {
		if (r < 'a' || r > 'z') && (r < '0' || r > '9') {
			return ""
		}
	}
	return ext
}
