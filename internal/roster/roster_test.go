package roster

import (
	"errors"
	"testing"
	"time"

	"github.com/zxweb/zx/internal/bus"
)

func TestAddGeneratesUniqueID(t *testing.T) {
	r := New(nil)

	u1, err := r.Add("Alice", "")
	if err != nil {
		t.Fatalf("Add() error = %v", err)
	}
	u2, err := r.Add("Bob", "hi")
	if err != nil {
		t.Fatal(err)
	}

	if len(u1.ID) != 6 {
		t.Errorf("id %q, want 6 characters", u1.ID)
	}
	if u1.ID == u2.ID {
		t.Errorf("duplicate generated ids: %q", u1.ID)
	}
	if u1.About != "Available on ZX" {
		t.Errorf("About = %q, want default", u1.About)
	}

	// Newest contact first, as the sidebar displays them.
	if got := r.Contacts()[0].Name; got != "Bob" {
		t.Errorf("first contact = %q, want Bob", got)
	}
}

func TestAddEmptyNameRejected(t *testing.T) {
	r := New(nil)
	if _, err := r.Add("", ""); !errors.Is(err, ErrValidation) {
		t.Errorf("error = %v, want ErrValidation", err)
	}
	if r.Len() != 0 {
		t.Error("roster should be unchanged after rejected add")
	}
}

func TestAddUserDuplicate(t *testing.T) {
	r := New(nil)
	if err := r.AddUser(User{ID: "sara-dev", Name: "Sara"}); err != nil {
		t.Fatal(err)
	}
	err := r.AddUser(User{ID: "sara-dev", Name: "Impostor"})
	if !errors.Is(err, ErrDuplicateID) {
		t.Errorf("error = %v, want ErrDuplicateID", err)
	}
}

func TestAddUserMalformedID(t *testing.T) {
	for _, id := range []string{"", "has space", "way-too-long-for-a-contact-identifier"} {
		r := New(nil)
		if err := r.AddUser(User{ID: id, Name: "X"}); !errors.Is(err, ErrValidation) {
			t.Errorf("AddUser(%q) error = %v, want ErrValidation", id, err)
		}
	}
}

func TestSetPresence(t *testing.T) {
	b := bus.New()
	ch, unsub := b.Subscribe("roster.", 10)
	defer unsub()

	r := New(b)
	if err := r.AddUser(User{ID: "john-doe", Name: "John", Presence: Offline}); err != nil {
		t.Fatal(err)
	}
	<-ch // contact_added

	r.SetPresence("john-doe", Typing)
	evt := <-ch
	if evt.Kind != "roster.presence" {
		t.Errorf("kind = %q, want roster.presence", evt.Kind)
	}
	u, _ := r.Get("john-doe")
	if u.Presence != Typing {
		t.Errorf("presence = %q, want typing", u.Presence)
	}

	// Same presence again publishes nothing.
	r.SetPresence("john-doe", Typing)
	select {
	case evt := <-ch:
		t.Errorf("unexpected event %q for no-op presence change", evt.Kind)
	case <-time.After(50 * time.Millisecond):
	}

	// Unknown id is ignored.
	r.SetPresence("ghost", Online)
}

func TestRenameEnforcesUniqueness(t *testing.T) {
	r := New(nil)
	_ = r.AddUser(User{ID: "a1", Name: "A"})
	_ = r.AddUser(User{ID: "b2", Name: "B"})

	if err := r.Rename("a1", "b2"); !errors.Is(err, ErrDuplicateID) {
		t.Errorf("error = %v, want ErrDuplicateID", err)
	}
	if err := r.Rename("a1", "c3"); err != nil {
		t.Fatalf("Rename() error = %v", err)
	}
	if _, ok := r.Get("c3"); !ok {
		t.Error("renamed contact not found under new id")
	}
	if _, ok := r.Get("a1"); ok {
		t.Error("old id still resolves after rename")
	}
}

func TestSeedOnlyWhenEmpty(t *testing.T) {
	r := New(nil)
	r.Seed()
	if r.Len() != len(DefaultContacts()) {
		t.Fatalf("seeded %d contacts, want %d", r.Len(), len(DefaultContacts()))
	}
	if _, ok := r.Get(AssistantID); !ok {
		t.Error("seed must include the assistant contact")
	}

	// Seeding again must not duplicate.
	r.Seed()
	if r.Len() != len(DefaultContacts()) {
		t.Errorf("second Seed() changed roster size to %d", r.Len())
	}

	// A non-empty roster is never re-seeded.
	r2 := New(nil)
	_ = r2.AddUser(User{ID: "only", Name: "Only"})
	r2.Seed()
	if r2.Len() != 1 {
		t.Errorf("Seed() on populated roster changed size to %d", r2.Len())
	}
}

func TestSnapshotRestoreRoundTrip(t *testing.T) {
	r := New(nil)
	r.Seed()
	snap := r.Snapshot()

	r2 := New(nil)
	r2.Restore(snap)
	if r2.Len() != r.Len() {
		t.Fatalf("restored %d contacts, want %d", r2.Len(), r.Len())
	}
	u, ok := r2.Get("sara-dev")
	if !ok || u.Name != "Sara (Frontend)" {
		t.Errorf("restored contact = %+v", u)
	}
}
