package messaging

import (
	"context"
	"fmt"
	"time"

	"github.com/huddlehq/huddle/internal/store"
)

// ReadState maintains each participant's last-read timestamp and derives
// unread counts from it.
type ReadState struct {
	db *store.DB
}

// NewReadState creates a read-state tracker backed by the store.
func NewReadState(db *store.DB) *ReadState {
	return &ReadState{db: db}
}

// MarkRead sets the caller's last-read timestamp to now. Only the caller's
// own row is touched; the counterpart's read state is never writable from
// here.
func (r *ReadState) MarkRead(_ context.Context, threadID, userID string) error {
	ok, err := r.db.IsParticipant(threadID, userID)
	if err != nil {
		return fmt.Errorf("check participant: %w", err)
	}
	if !ok {
		return ErrNotParticipant
	}
	if err := r.db.SetLastRead(threadID, userID, time.Now().UnixMilli()); err != nil {
		return fmt.Errorf("set last read: %w", err)
	}
	return nil
}

// LastReadAt returns the viewer's last-read timestamp for a thread, or nil
// if the thread was never read.
func (r *ReadState) LastReadAt(_ context.Context, threadID, userID string) (*int64, error) {
	p, err := r.db.GetParticipant(threadID, userID)
	if err != nil {
		return nil, fmt.Errorf("get participant: %w", err)
	}
	if p == nil {
		return nil, ErrNotParticipant
	}
	return p.LastReadAt, nil
}

// UnreadCount counts messages the viewer has not seen: messages from the
// counterpart created strictly after the viewer's last read. A message whose
// timestamp equals lastReadAt counts as read. A nil lastReadAt means the
// thread was never read, so every counterpart message is unread.
//
// Pure function over already-fetched data; it issues no queries.
func UnreadCount(msgs []store.Message, viewerID string, lastReadAt *int64) int {
	count := 0
	for i := range msgs {
		if msgs[i].SenderID == viewerID {
			continue
		}
		if lastReadAt == nil || msgs[i].CreatedAt > *lastReadAt {
			count++
		}
	}
	return count
}

// SeenByCounterpart reports whether the counterpart has read a message the
// viewer sent: their last-read timestamp is at or past the message's
// creation time. Drives the double-checkmark read receipt.
func SeenByCounterpart(msg *store.Message, counterpartLastReadAt *int64) bool {
	if counterpartLastReadAt == nil {
		return false
	}
	return *counterpartLastReadAt >= msg.CreatedAt
}
