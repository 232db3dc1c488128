// Package directory resolves human-entered search strings and user IDs to
// profile identities. It is the leaf the thread resolver and conversation
// list aggregator validate identities against.
package directory

import (
	"context"
	"errors"
	"fmt"

	"github.com/huddlehq/huddle/internal/store"
)

// ErrNotFound is returned when an ID does not resolve to a profile.
var ErrNotFound = errors.New("identity not found")

// Identity is the public view of a profile: everything except credentials.
type Identity struct {
	ID          string `json:"id"`
	Email       string `json:"email"`
	DisplayName string `json:"display_name"`
	Title       string `json:"title"`
	Company     string `json:"company"`
	AvatarURL   string `json:"avatar_url"`
}

// Directory looks up profile identities in the store.
type Directory struct {
	db *store.DB
}

// New creates a directory backed by the store.
func New(db *store.DB) *Directory {
	return &Directory{db: db}
}

// Lookup resolves a user ID to an identity. Returns ErrNotFound if the ID
// does not exist.
func (d *Directory) Lookup(_ context.Context, id string) (*Identity, error) {
	p, err := d.db.GetProfile(id)
	if err != nil {
		return nil, fmt.Errorf("get profile: %w", err)
	}
	if p == nil {
		return nil, fmt.Errorf("%w: %s", ErrNotFound, id)
	}
	ident := identityOf(p)
	return &ident, nil
}

// Search returns identities whose display name or email contains the query
// substring. An empty query returns no results rather than the whole
// directory.
func (d *Directory) Search(_ context.Context, query string, limit int) ([]Identity, error) {
	if query == "" {
		return nil, nil
	}
	profiles, err := d.db.SearchProfiles(query, limit)
	if err != nil {
		return nil, fmt.Errorf("search profiles: %w", err)
	}
	idents := make([]Identity, 0, len(profiles))
	for i := range profiles {
		idents = append(idents, identityOf(&profiles[i]))
	}
	return idents, nil
}

func identityOf(p *store.Profile) Identity {
	return Identity{
		ID:          p.ID,
		Email:       p.Email,
		DisplayName: p.DisplayName,
		Title:       p.Title,
		Company:     p.Company,
		AvatarURL:   p.AvatarURL,
	}
}
