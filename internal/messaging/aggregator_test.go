package messaging

import (
	"context"
	"testing"
	"time"

	"github.com/huddlehq/huddle/internal/directory"
)

func TestListConversationsSortsByRecency(t *testing.T) {
	db := testDB(t)
	seedProfile(t, db, "u1", "A")
	seedProfile(t, db, "u2", "B")
	seedProfile(t, db, "u3", "C")
	dir := directory.New(db)
	r := NewResolver(db, dir, nil)
	s := NewStream(db, nil, nil)

	t12, _ := r.ResolveOrCreate(context.Background(), "u1", "u2")
	t13, _ := r.ResolveOrCreate(context.Background(), "u1", "u3")

	// Older message in t12, newer in t13.
	if _, err := s.Send(context.Background(), t12, "u2", "first"); err != nil {
		t.Fatal(err)
	}
	time.Sleep(2 * time.Millisecond)
	if _, err := s.Send(context.Background(), t13, "u3", "second"); err != nil {
		t.Fatal(err)
	}

	a := NewAggregator(db, dir, nil)
	list, err := a.ListConversations(context.Background(), "u1")
	if err != nil {
		t.Fatal(err)
	}
	if len(list) != 2 {
		t.Fatalf("got %d conversations, want 2", len(list))
	}
	if list[0].ThreadID != t13 || list[1].ThreadID != t12 {
		t.Errorf("order = [%s %s], want [t13 t12]", list[0].ThreadID, list[1].ThreadID)
	}
	if list[0].Counterpart.DisplayName != "C" {
		t.Errorf("counterpart = %q, want C", list[0].Counterpart.DisplayName)
	}
	if list[0].LastMessage == nil || list[0].LastMessage.Body != "second" {
		t.Errorf("last message = %v, want 'second'", list[0].LastMessage)
	}
}

// A thread with no messages sorts by its creation time.
func TestListConversationsEmptyThreadFallback(t *testing.T) {
	db := testDB(t)
	seedProfile(t, db, "u1", "A")
	seedProfile(t, db, "u2", "B")
	dir := directory.New(db)
	r := NewResolver(db, dir, nil)

	threadID, _ := r.ResolveOrCreate(context.Background(), "u1", "u2")

	a := NewAggregator(db, dir, nil)
	list, err := a.ListConversations(context.Background(), "u1")
	if err != nil {
		t.Fatal(err)
	}
	if len(list) != 1 {
		t.Fatalf("got %d conversations, want 1", len(list))
	}
	if list[0].LastMessage != nil {
		t.Errorf("last message = %v, want nil", list[0].LastMessage)
	}
	th, _ := db.GetThread(threadID)
	if list[0].SortedAt != th.CreatedAt {
		t.Errorf("SortedAt = %d, want thread creation time %d", list[0].SortedAt, th.CreatedAt)
	}
	if list[0].UnreadCount != 0 {
		t.Errorf("UnreadCount = %d, want 0", list[0].UnreadCount)
	}
}

func TestListConversationsUnreadPerViewer(t *testing.T) {
	db := testDB(t)
	seedProfile(t, db, "u1", "A")
	seedProfile(t, db, "u2", "B")
	dir := directory.New(db)
	r := NewResolver(db, dir, nil)
	s := NewStream(db, nil, nil)

	threadID, _ := r.ResolveOrCreate(context.Background(), "u1", "u2")
	if _, err := s.Send(context.Background(), threadID, "u1", "hello"); err != nil {
		t.Fatal(err)
	}

	a := NewAggregator(db, dir, nil)

	// The recipient sees one unread.
	list, _ := a.ListConversations(context.Background(), "u2")
	if list[0].UnreadCount != 1 {
		t.Errorf("recipient unread = %d, want 1", list[0].UnreadCount)
	}

	// The sender never counts their own message as unread.
	list, _ = a.ListConversations(context.Background(), "u1")
	if list[0].UnreadCount != 0 {
		t.Errorf("sender unread = %d, want 0", list[0].UnreadCount)
	}
}
