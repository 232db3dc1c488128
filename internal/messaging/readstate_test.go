package messaging

import (
	"context"
	"errors"
	"testing"

	"github.com/huddlehq/huddle/internal/directory"
	"github.com/huddlehq/huddle/internal/store"
)

func msg(id, sender string, ts int64) store.Message {
	return store.Message{ID: id, ThreadID: "t1", SenderID: sender, Body: "x", CreatedAt: ts}
}

func TestUnreadCountNeverRead(t *testing.T) {
	msgs := []store.Message{
		msg("m1", "u2", 1000),
		msg("m2", "u2", 2000),
		msg("m3", "u1", 3000), // viewer's own, never unread
	}
	if got := UnreadCount(msgs, "u1", nil); got != 2 {
		t.Errorf("UnreadCount = %d, want 2 (nil last read counts all counterpart messages)", got)
	}
}

// After the viewer's last read, exactly the newer counterpart messages count.
func TestUnreadCountMonotonic(t *testing.T) {
	lastRead := int64(1500)
	msgs := []store.Message{
		msg("m1", "u2", 1000), // before last read: seen
		msg("m2", "u2", 2000),
		msg("m3", "u2", 3000),
	}
	if got := UnreadCount(msgs, "u1", &lastRead); got != 2 {
		t.Errorf("UnreadCount = %d, want 2", got)
	}

	// Mark read at the newest message: nothing left unread.
	lastRead = 3000
	if got := UnreadCount(msgs, "u1", &lastRead); got != 0 {
		t.Errorf("UnreadCount after read = %d, want 0", got)
	}
}

// A message created exactly at the last-read instant is read, not unread.
func TestUnreadCountBoundaryIsRead(t *testing.T) {
	lastRead := int64(2000)
	msgs := []store.Message{
		msg("m1", "u2", 2000),
	}
	if got := UnreadCount(msgs, "u1", &lastRead); got != 0 {
		t.Errorf("UnreadCount = %d, want 0 (timestamp collision counts as read)", got)
	}
}

func TestUnreadCountIgnoresOwnMessages(t *testing.T) {
	msgs := []store.Message{
		msg("m1", "u1", 1000),
		msg("m2", "u1", 2000),
	}
	if got := UnreadCount(msgs, "u1", nil); got != 0 {
		t.Errorf("UnreadCount = %d, want 0 (sender is never their own recipient)", got)
	}
}

func TestMarkReadUpdatesOwnRowOnly(t *testing.T) {
	db := testDB(t)
	seedProfile(t, db, "u1", "A")
	seedProfile(t, db, "u2", "B")
	r := NewResolver(db, directory.New(db), nil)
	threadID, err := r.ResolveOrCreate(context.Background(), "u1", "u2")
	if err != nil {
		t.Fatal(err)
	}

	rs := NewReadState(db)
	if err := rs.MarkRead(context.Background(), threadID, "u1"); err != nil {
		t.Fatal(err)
	}

	own, err := rs.LastReadAt(context.Background(), threadID, "u1")
	if err != nil {
		t.Fatal(err)
	}
	if own == nil {
		t.Error("LastReadAt = nil after MarkRead")
	}

	other, err := rs.LastReadAt(context.Background(), threadID, "u2")
	if err != nil {
		t.Fatal(err)
	}
	if other != nil {
		t.Errorf("counterpart LastReadAt = %v, want nil", *other)
	}
}

func TestMarkReadNonParticipant(t *testing.T) {
	db := testDB(t)
	seedProfile(t, db, "u1", "A")
	seedProfile(t, db, "u2", "B")
	seedProfile(t, db, "u3", "C")
	r := NewResolver(db, directory.New(db), nil)
	threadID, _ := r.ResolveOrCreate(context.Background(), "u1", "u2")

	rs := NewReadState(db)
	err := rs.MarkRead(context.Background(), threadID, "u3")
	if !errors.Is(err, ErrNotParticipant) {
		t.Errorf("err = %v, want ErrNotParticipant", err)
	}
}

func TestSeenByCounterpart(t *testing.T) {
	m := msg("m1", "u1", 2000)

	if SeenByCounterpart(&m, nil) {
		t.Error("nil last read should mean unseen")
	}
	before := int64(1999)
	if SeenByCounterpart(&m, &before) {
		t.Error("last read before creation should mean unseen")
	}
	exact := int64(2000)
	if !SeenByCounterpart(&m, &exact) {
		t.Error("last read at creation instant should mean seen")
	}
	after := int64(2001)
	if !SeenByCounterpart(&m, &after) {
		t.Error("last read after creation should mean seen")
	}
}
