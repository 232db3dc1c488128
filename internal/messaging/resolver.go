package messaging

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/huddlehq/huddle/internal/directory"
	"github.com/huddlehq/huddle/internal/store"
	"go.uber.org/zap"
)

// Resolver finds the shared thread of two participants, creating it on
// first contact. Thread creation inserts the thread row and both
// participant rows in one transaction, so retries never meet a
// half-created thread.
type Resolver struct {
	db     *store.DB
	dir    *directory.Directory
	logger *zap.Logger
}

// NewResolver creates a thread resolver. logger may be nil in tests.
func NewResolver(db *store.DB, dir *directory.Directory, logger *zap.Logger) *Resolver {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Resolver{db: db, dir: dir, logger: logger}
}

// PairKey returns the canonical key for a participant pair. The key is
// order-independent, which makes resolution symmetric.
func PairKey(a, b string) string {
	if b < a {
		a, b = b, a
	}
	return a + ":" + b
}

// ResolveOrCreate returns the ID of the thread shared by currentUser and
// otherUser, creating it if the pair has never talked. Both identities must
// resolve in the directory.
func (r *Resolver) ResolveOrCreate(ctx context.Context, currentUser, otherUser string) (string, error) {
	if currentUser == otherUser {
		return "", ErrSelfThread
	}
	if _, err := r.dir.Lookup(ctx, currentUser); err != nil {
		return "", err
	}
	if _, err := r.dir.Lookup(ctx, otherUser); err != nil {
		return "", err
	}

	key := PairKey(currentUser, otherUser)
	th, err := r.db.ThreadByPairKey(key)
	if err != nil {
		return "", fmt.Errorf("lookup thread: %w", err)
	}
	if th != nil {
		return th.ID, nil
	}

	now := time.Now().UnixMilli()
	created := &store.Thread{
		ID:        uuid.NewString(),
		PairKey:   key,
		CreatedAt: now,
		UpdatedAt: now,
	}
	if err := r.db.CreateThread(created, currentUser, otherUser); err != nil {
		// A concurrent resolve may have won the pair_key race; reuse its thread.
		if th, lookupErr := r.db.ThreadByPairKey(key); lookupErr == nil && th != nil {
			return th.ID, nil
		}
		return "", fmt.Errorf("%w: %v", ErrThreadCreationFailed, err)
	}

	r.logger.Info("thread created",
		zap.String("thread_id", created.ID),
		zap.String("pair_key", key))
	return created.ID, nil
}
