package app

import (
	"testing"

	"github.com/zxweb/zx/internal/bus"
	"github.com/zxweb/zx/internal/call"
	"github.com/zxweb/zx/internal/chat"
	"github.com/zxweb/zx/internal/identity"
	"github.com/zxweb/zx/internal/persist"
	"github.com/zxweb/zx/internal/roster"
	"github.com/zxweb/zx/internal/tui/model"
	"go.uber.org/zap"
)

type restoreFixture struct {
	vm     *model.ViewModel
	roster *roster.Roster
	store  *chat.Store
	calls  *call.Log
	mgr    *identity.Manager
}

func newRestoreFixture(t *testing.T) *restoreFixture {
	t.Helper()
	b := bus.New()
	ros := roster.New(b)
	store := chat.NewStore(b)
	calls := call.NewLog(b)
	mgr := identity.NewManager(identity.NewClient("", "", zap.NewNop()), b, zap.NewNop())
	session := call.NewSession(call.NewMachine(b), calls)
	vm := model.NewViewModel(store, ros, mgr, nil, session, calls)
	return &restoreFixture{vm: vm, roster: ros, store: store, calls: calls, mgr: mgr}
}

func (f *restoreFixture) restore(snap *persist.Snapshot) {
	restoreSnapshot(snap, f.vm, f.roster, f.store, f.calls, f.mgr, "light", zap.NewNop())
}

// A snapshot can hold a valid user while other sections were lost (absent
// or undecodable rows decode to nil). Those sections must fall back to
// seeded defaults instead of stranding the user with an empty roster.
func TestRestoreSeedsSectionsLostFromSnapshot(t *testing.T) {
	f := newRestoreFixture(t)
	user := roster.User{ID: "acct-1", Name: "Alex"}

	f.restore(&persist.Snapshot{User: &user})

	if _, ok := f.mgr.Current(); !ok {
		t.Fatal("identity not restored")
	}
	if f.roster.Len() == 0 {
		t.Fatal("empty roster must be seeded with default contacts")
	}
	if f.store.Len() == 0 {
		t.Fatal("empty conversation map must be seeded with default conversations")
	}
	if len(f.calls.Entries()) == 0 {
		t.Fatal("empty call log must be seeded with default history")
	}
	if f.vm.Theme() != "light" {
		t.Fatalf("theme = %q, want config default", f.vm.Theme())
	}
}

func TestRestoreKeepsPopulatedSections(t *testing.T) {
	f := newRestoreFixture(t)
	user := roster.User{ID: "acct-1", Name: "Alex"}
	peer := roster.User{ID: "only-contact", Name: "Only"}

	f.restore(&persist.Snapshot{
		User:     &user,
		Contacts: []roster.User{peer},
		Chats: map[string]chat.Conversation{
			peer.ID: {ID: peer.ID, Participants: []roster.User{{ID: chat.SelfID}, peer}},
		},
		Theme: "dark",
		Calls: []call.Entry{{ID: "x1", ContactID: peer.ID, Direction: call.Outgoing}},
	})

	if f.roster.Len() != 1 {
		t.Fatalf("roster len = %d, restored state must not be reseeded", f.roster.Len())
	}
	if _, ok := f.roster.Get("only-contact"); !ok {
		t.Fatal("restored contact missing")
	}
	if f.store.Len() != 1 {
		t.Fatalf("store len = %d, restored state must not be reseeded", f.store.Len())
	}
	if got := f.calls.Entries(); len(got) != 1 || got[0].ID != "x1" {
		t.Fatalf("call log = %+v, restored state must not be reseeded", got)
	}
	if f.vm.Theme() != "dark" {
		t.Fatalf("theme = %q, want dark", f.vm.Theme())
	}
}

// Without a persisted identity nothing is seeded here; the defaults arrive
// with the first fresh sign-in instead.
func TestRestoreWithoutIdentityLeavesStateEmpty(t *testing.T) {
	f := newRestoreFixture(t)

	f.restore(&persist.Snapshot{})

	if _, ok := f.mgr.Current(); ok {
		t.Fatal("no identity should be active")
	}
	if f.roster.Len() != 0 || f.store.Len() != 0 || len(f.calls.Entries()) != 0 {
		t.Fatal("state must stay empty until a sign-in happens")
	}
}
