package store

import (
	"path/filepath"
	"testing"
)

func testDB(t *testing.T) *DB {
	t.Helper()
	path := filepath.Join(t.TempDir(), "test.db")
	db, err := Open(path)
	if err != nil {
		t.Fatal(err)
	}
	if _, err := db.Migrate(); err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { _ = db.Close() })
	return db
}

func seedProfile(t *testing.T, db *DB, id, name string) {
	t.Helper()
	err := db.CreateProfile(&Profile{
		ID:           id,
		Email:        id + "@example.com",
		PasswordHash: "x",
		DisplayName:  name,
		CreatedAt:    1000,
	})
	if err != nil {
		t.Fatal(err)
	}
}

func TestMigrateIdempotent(t *testing.T) {
	db := testDB(t)

	// testDB already ran Migrate, so run it again to check idempotency.
	result, err := db.Migrate()
	if err != nil {
		t.Fatal(err)
	}
	if result.Changed {
		t.Error("second Migrate() should report Changed=false")
	}
	if result.Version != 1 {
		t.Errorf("version = %d, want 1", result.Version)
	}
}

func TestProfileCreateAndGet(t *testing.T) {
	db := testDB(t)
	seedProfile(t, db, "u1", "Ada Acme")

	p, err := db.GetProfile("u1")
	if err != nil {
		t.Fatal(err)
	}
	if p == nil || p.DisplayName != "Ada Acme" {
		t.Errorf("got %v, want Ada Acme", p)
	}

	// Non-existent.
	p, err = db.GetProfile("missing")
	if err != nil {
		t.Fatal(err)
	}
	if p != nil {
		t.Errorf("expected nil for missing profile")
	}
}

func TestProfileEmailLookupCaseInsensitive(t *testing.T) {
	db := testDB(t)
	seedProfile(t, db, "u1", "Ada")

	p, err := db.GetProfileByEmail("U1@Example.COM")
	if err != nil {
		t.Fatal(err)
	}
	if p == nil || p.ID != "u1" {
		t.Errorf("got %v, want u1", p)
	}
}

func TestProfileUpdate(t *testing.T) {
	db := testDB(t)
	seedProfile(t, db, "u1", "Ada")

	p, _ := db.GetProfile("u1")
	p.Title = "Founder"
	p.Company = "Acme Ventures"
	p.AvatarURL = "http://localhost/uploads/u1/a.png"
	if err := db.UpdateProfile(p); err != nil {
		t.Fatal(err)
	}

	got, _ := db.GetProfile("u1")
	if got.Title != "Founder" || got.Company != "Acme Ventures" {
		t.Errorf("update not applied: %+v", got)
	}
}

func TestSearchProfiles(t *testing.T) {
	db := testDB(t)
	seedProfile(t, db, "u1", "Ada Lovelace")
	seedProfile(t, db, "u2", "Grace Hopper")

	results, err := db.SearchProfiles("love", 10)
	if err != nil {
		t.Fatal(err)
	}
	if len(results) != 1 || results[0].ID != "u1" {
		t.Errorf("got %d results, want Ada only", len(results))
	}

	// Email substring matches too.
	results, err = db.SearchProfiles("u2@", 10)
	if err != nil {
		t.Fatal(err)
	}
	if len(results) != 1 || results[0].ID != "u2" {
		t.Errorf("got %d results, want Grace only", len(results))
	}
}

func TestSearchProfilesEscapesWildcards(t *testing.T) {
	db := testDB(t)
	seedProfile(t, db, "u1", "100% Legit Consulting")
	seedProfile(t, db, "u2", "Ordinary Co")

	results, err := db.SearchProfiles("100%", 10)
	if err != nil {
		t.Fatal(err)
	}
	if len(results) != 1 || results[0].ID != "u1" {
		t.Errorf("got %d results, want the literal %% match only", len(results))
	}
}

func TestCreateThreadAtomic(t *testing.T) {
	db := testDB(t)
	seedProfile(t, db, "u1", "A")
	seedProfile(t, db, "u2", "B")

	th := &Thread{ID: "t1", PairKey: "u1:u2", CreatedAt: 1000, UpdatedAt: 1000}
	if err := db.CreateThread(th, "u1", "u2"); err != nil {
		t.Fatal(err)
	}

	parts, err := db.Participants("t1")
	if err != nil {
		t.Fatal(err)
	}
	if len(parts) != 2 {
		t.Fatalf("got %d participants, want 2", len(parts))
	}
	for _, p := range parts {
		if p.LastReadAt != nil {
			t.Errorf("participant %s LastReadAt = %v, want nil (never read)", p.UserID, *p.LastReadAt)
		}
	}
}

func TestCreateThreadPairKeyUnique(t *testing.T) {
	db := testDB(t)
	seedProfile(t, db, "u1", "A")
	seedProfile(t, db, "u2", "B")

	th := &Thread{ID: "t1", PairKey: "u1:u2", CreatedAt: 1000, UpdatedAt: 1000}
	if err := db.CreateThread(th, "u1", "u2"); err != nil {
		t.Fatal(err)
	}

	dup := &Thread{ID: "t2", PairKey: "u1:u2", CreatedAt: 2000, UpdatedAt: 2000}
	if err := db.CreateThread(dup, "u1", "u2"); err == nil {
		t.Fatal("duplicate pair_key insert should fail")
	}

	// The failed create must not leave partial rows behind.
	if th2, _ := db.GetThread("t2"); th2 != nil {
		t.Error("orphaned thread row left by failed create")
	}
	parts, _ := db.Participants("t2")
	if len(parts) != 0 {
		t.Errorf("orphaned participant rows left by failed create: %d", len(parts))
	}
}

func TestThreadsForUser(t *testing.T) {
	db := testDB(t)
	seedProfile(t, db, "u1", "A")
	seedProfile(t, db, "u2", "B")
	seedProfile(t, db, "u3", "C")

	_ = db.CreateThread(&Thread{ID: "t1", PairKey: "u1:u2", CreatedAt: 1000, UpdatedAt: 1000}, "u1", "u2")
	_ = db.CreateThread(&Thread{ID: "t2", PairKey: "u1:u3", CreatedAt: 2000, UpdatedAt: 3000}, "u1", "u3")

	threads, err := db.ThreadsForUser("u1")
	if err != nil {
		t.Fatal(err)
	}
	if len(threads) != 2 {
		t.Fatalf("got %d threads, want 2", len(threads))
	}
	// Most recently active first.
	if threads[0].ID != "t2" {
		t.Errorf("first thread = %s, want t2", threads[0].ID)
	}

	threads, _ = db.ThreadsForUser("u2")
	if len(threads) != 1 || threads[0].ID != "t1" {
		t.Errorf("u2 threads = %v, want [t1]", threads)
	}
}

func TestSetLastRead(t *testing.T) {
	db := testDB(t)
	seedProfile(t, db, "u1", "A")
	seedProfile(t, db, "u2", "B")
	_ = db.CreateThread(&Thread{ID: "t1", PairKey: "u1:u2", CreatedAt: 1000, UpdatedAt: 1000}, "u1", "u2")

	if err := db.SetLastRead("t1", "u1", 5000); err != nil {
		t.Fatal(err)
	}

	p, err := db.GetParticipant("t1", "u1")
	if err != nil {
		t.Fatal(err)
	}
	if p.LastReadAt == nil || *p.LastReadAt != 5000 {
		t.Errorf("LastReadAt = %v, want 5000", p.LastReadAt)
	}

	// The other participant's row is untouched.
	p2, _ := db.GetParticipant("t1", "u2")
	if p2.LastReadAt != nil {
		t.Errorf("u2 LastReadAt = %v, want nil", *p2.LastReadAt)
	}

	// No row for a non-participant.
	if err := db.SetLastRead("t1", "u3", 5000); err == nil {
		t.Error("SetLastRead for non-participant should fail")
	}
}

func TestMessagesOrderedAscending(t *testing.T) {
	db := testDB(t)
	seedProfile(t, db, "u1", "A")
	seedProfile(t, db, "u2", "B")
	_ = db.CreateThread(&Thread{ID: "t1", PairKey: "u1:u2", CreatedAt: 1000, UpdatedAt: 1000}, "u1", "u2")

	for i, ts := range []int64{3000, 1000, 2000} {
		err := db.InsertMessage(&Message{
			ID: []string{"m3", "m1", "m2"}[i], ThreadID: "t1", SenderID: "u1",
			Body: "x", CreatedAt: ts,
		})
		if err != nil {
			t.Fatal(err)
		}
	}

	msgs, err := db.ListMessages("t1", 0, 0)
	if err != nil {
		t.Fatal(err)
	}
	if len(msgs) != 3 {
		t.Fatalf("got %d messages, want 3", len(msgs))
	}
	for i, want := range []string{"m1", "m2", "m3"} {
		if msgs[i].ID != want {
			t.Errorf("msgs[%d] = %s, want %s", i, msgs[i].ID, want)
		}
	}
}

func TestMessagesKeysetPagination(t *testing.T) {
	db := testDB(t)
	seedProfile(t, db, "u1", "A")
	seedProfile(t, db, "u2", "B")
	_ = db.CreateThread(&Thread{ID: "t1", PairKey: "u1:u2", CreatedAt: 1000, UpdatedAt: 1000}, "u1", "u2")

	for i := int64(1); i <= 5; i++ {
		_ = db.InsertMessage(&Message{
			ID: string(rune('a' + i)), ThreadID: "t1", SenderID: "u1",
			Body: "x", CreatedAt: i * 1000,
		})
	}

	// Newest page of 2.
	page, err := db.ListMessages("t1", 0, 2)
	if err != nil {
		t.Fatal(err)
	}
	if len(page) != 2 || page[0].CreatedAt != 4000 || page[1].CreatedAt != 5000 {
		t.Fatalf("newest page = %+v, want [4000 5000]", page)
	}

	// Page strictly before the oldest of the previous page.
	page, err = db.ListMessages("t1", page[0].CreatedAt, 2)
	if err != nil {
		t.Fatal(err)
	}
	if len(page) != 2 || page[0].CreatedAt != 2000 || page[1].CreatedAt != 3000 {
		t.Fatalf("second page = %+v, want [2000 3000]", page)
	}
}

func TestLastMessage(t *testing.T) {
	db := testDB(t)
	seedProfile(t, db, "u1", "A")
	seedProfile(t, db, "u2", "B")
	_ = db.CreateThread(&Thread{ID: "t1", PairKey: "u1:u2", CreatedAt: 1000, UpdatedAt: 1000}, "u1", "u2")

	// No messages yet.
	m, err := db.LastMessage("t1")
	if err != nil {
		t.Fatal(err)
	}
	if m != nil {
		t.Errorf("LastMessage = %v, want nil for empty thread", m)
	}

	_ = db.InsertMessage(&Message{ID: "m1", ThreadID: "t1", SenderID: "u1", Body: "first", CreatedAt: 1000})
	_ = db.InsertMessage(&Message{ID: "m2", ThreadID: "t1", SenderID: "u2", Body: "second", CreatedAt: 2000})

	m, err = db.LastMessage("t1")
	if err != nil {
		t.Fatal(err)
	}
	if m == nil || m.ID != "m2" {
		t.Errorf("LastMessage = %v, want m2", m)
	}
}

func TestIsParticipant(t *testing.T) {
	db := testDB(t)
	seedProfile(t, db, "u1", "A")
	seedProfile(t, db, "u2", "B")
	seedProfile(t, db, "u3", "C")
	_ = db.CreateThread(&Thread{ID: "t1", PairKey: "u1:u2", CreatedAt: 1000, UpdatedAt: 1000}, "u1", "u2")

	ok, err := db.IsParticipant("t1", "u1")
	if err != nil {
		t.Fatal(err)
	}
	if !ok {
		t.Error("u1 should be a participant")
	}
	ok, _ = db.IsParticipant("t1", "u3")
	if ok {
		t.Error("u3 should not be a participant")
	}
}
