package persist

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/zxweb/zx/internal/bus"
	"github.com/zxweb/zx/internal/call"
	"github.com/zxweb/zx/internal/chat"
	"github.com/zxweb/zx/internal/roster"
	"go.uber.org/zap"
)

func testDB(t *testing.T) *DB {
	t.Helper()
	db, err := Open(filepath.Join(t.TempDir(), "zx.db"))
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	t.Cleanup(func() { _ = db.Close() })
	if _, err := db.Migrate(); err != nil {
		t.Fatalf("migrate: %v", err)
	}
	return db
}

func testSnapshot() *Snapshot {
	user := roster.User{ID: "me", Name: "Tester"}
	peer := roster.User{ID: "sara-dev", Name: "Sara"}
	conv := chat.Conversation{
		ID:           peer.ID,
		Participants: []roster.User{user, peer},
		Messages: []chat.Message{
			{ID: "1", SenderID: peer.ID, Text: "Hi", SentAt: time.Now().Truncate(time.Millisecond), Status: chat.StatusRead},
		},
	}
	return &Snapshot{
		User:     &user,
		Contacts: []roster.User{peer},
		Chats:    map[string]chat.Conversation{conv.ID: conv},
		Theme:    "dark",
		Calls: []call.Entry{
			{ID: "c1", ContactID: peer.ID, Direction: call.Outgoing, At: time.Now().Truncate(time.Millisecond), Duration: 42 * time.Second},
		},
	}
}

func TestSaveLoadRoundTrip(t *testing.T) {
	db := testDB(t)
	want := testSnapshot()

	if err := db.Save(want); err != nil {
		t.Fatalf("save: %v", err)
	}
	got, err := db.Load()
	if err != nil {
		t.Fatalf("load: %v", err)
	}

	if got.User == nil || got.User.ID != "me" {
		t.Fatalf("user not restored: %+v", got.User)
	}
	if len(got.Contacts) != 1 || got.Contacts[0].ID != "sara-dev" {
		t.Fatalf("contacts not restored: %+v", got.Contacts)
	}
	conv, ok := got.Chats["sara-dev"]
	if !ok {
		t.Fatalf("chat missing: %+v", got.Chats)
	}
	if len(conv.Messages) != 1 || conv.Messages[0].Text != "Hi" {
		t.Fatalf("messages not restored: %+v", conv.Messages)
	}
	if got.Theme != "dark" {
		t.Fatalf("theme = %q, want dark", got.Theme)
	}
	if len(got.Calls) != 1 || got.Calls[0].Duration != 42*time.Second {
		t.Fatalf("calls not restored: %+v", got.Calls)
	}
}

func TestLoadEmptyDatabase(t *testing.T) {
	db := testDB(t)

	got, err := db.Load()
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if got.User != nil || got.Contacts != nil || got.Chats != nil || got.Theme != "" || got.Calls != nil {
		t.Fatalf("expected zero snapshot, got %+v", got)
	}
}

func TestSaveOverwritesPreviousEntry(t *testing.T) {
	db := testDB(t)
	snap := testSnapshot()
	if err := db.Save(snap); err != nil {
		t.Fatalf("save: %v", err)
	}

	snap.Theme = "light"
	if err := db.Save(snap); err != nil {
		t.Fatalf("second save: %v", err)
	}

	got, err := db.Load()
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if got.Theme != "light" {
		t.Fatalf("theme = %q, want light", got.Theme)
	}
}

// A corrupt entry must only lose its own section. The loader falls back to
// the zero value and the caller reseeds defaults for that section alone.
func TestCorruptEntryOnlyLosesItsSection(t *testing.T) {
	db := testDB(t)
	if err := db.Save(testSnapshot()); err != nil {
		t.Fatalf("save: %v", err)
	}
	if _, err := db.Exec(`UPDATE snapshots SET value = ? WHERE key = ?`, []byte("not cbor"), keyChats); err != nil {
		t.Fatalf("corrupt: %v", err)
	}

	got, err := db.Load()
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if got.Chats != nil {
		t.Fatalf("corrupt chats should decode to nil, got %+v", got.Chats)
	}
	if got.User == nil || got.Theme != "dark" {
		t.Fatalf("other sections lost: user=%+v theme=%q", got.User, got.Theme)
	}
}

func TestMemoryPortIsolatesSnapshots(t *testing.T) {
	mem := NewMemory()
	snap := testSnapshot()
	if err := mem.Save(snap); err != nil {
		t.Fatalf("save: %v", err)
	}

	// Mutating the saved snapshot must not leak into later loads.
	snap.Theme = "light"
	snap.Contacts[0].Name = "changed"

	got, err := mem.Load()
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if got.Theme != "dark" {
		t.Fatalf("theme = %q, want dark", got.Theme)
	}
	if got.Contacts[0].Name != "Sara" {
		t.Fatalf("contact name = %q, want Sara", got.Contacts[0].Name)
	}
}

func TestMemoryPortLoadBeforeSave(t *testing.T) {
	got, err := NewMemory().Load()
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if got.User != nil || got.Chats != nil {
		t.Fatalf("expected zero snapshot, got %+v", got)
	}
}

func TestAutosaverSavesAfterMutationEvent(t *testing.T) {
	b := bus.New()
	mem := NewMemory()
	saver := NewAutosaver(mem, testSnapshot, b, zap.NewNop(), 10*time.Millisecond)

	saved, unsub := b.Subscribe("store.", 8)
	defer unsub()

	saver.Start(context.Background())
	defer saver.Stop()

	b.Emit("chat.message_appended", nil)

	select {
	case evt := <-saved:
		if evt.Kind != "store.saved" {
			t.Fatalf("kind = %q, want store.saved", evt.Kind)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for store.saved")
	}

	got, err := mem.Load()
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if got.User == nil || got.User.ID != "me" {
		t.Fatalf("snapshot not saved: %+v", got)
	}
}

func TestAutosaverFinalFlushOnStop(t *testing.T) {
	b := bus.New()
	mem := NewMemory()
	// Interval far beyond the test run so only Stop can flush.
	saver := NewAutosaver(mem, testSnapshot, b, zap.NewNop(), time.Hour)

	saver.Start(context.Background())
	b.Emit("roster.contact_added", nil)

	// Give the subscriber goroutine a moment to mark dirty.
	deadline := time.Now().Add(2 * time.Second)
	for {
		saver.mu.Lock()
		dirty := saver.dirty
		saver.mu.Unlock()
		if dirty || time.Now().After(deadline) {
			break
		}
		time.Sleep(time.Millisecond)
	}

	saver.Stop()

	got, err := mem.Load()
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if got.User == nil {
		t.Fatal("final flush did not save snapshot")
	}
}

func TestAutosaverIgnoresItsOwnSavedEvents(t *testing.T) {
	b := bus.New()
	mem := NewMemory()
	saver := NewAutosaver(mem, testSnapshot, b, zap.NewNop(), 10*time.Millisecond)

	saver.Start(context.Background())
	defer saver.Stop()

	b.Emit("store.saved", nil)
	time.Sleep(50 * time.Millisecond)

	got, err := mem.Load()
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if got.User != nil {
		t.Fatal("store.* event should not trigger a save")
	}
}
