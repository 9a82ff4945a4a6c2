package model

import (
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/zxweb/zx/internal/assistant"
	"github.com/zxweb/zx/internal/call"
	"github.com/zxweb/zx/internal/chat"
	"github.com/zxweb/zx/internal/identity"
	"github.com/zxweb/zx/internal/roster"
)

// ContactRow is one row of the contact sidebar, a contact joined with its
// conversation summary.
type ContactRow struct {
	User    roster.User
	Preview string
	When    time.Time
	Unread  int
}

// ViewModel joins the state holders into what the views render. Unlike the
// stores it is single-owner: only the UI goroutine and bus handlers touch it.
type ViewModel struct {
	mu sync.RWMutex

	store    *chat.Store
	roster   *roster.Roster
	identity *identity.Manager
	auto     *assistant.AutoResponder
	session  *call.Session
	calls    *call.Log

	activeChatID string
	filter       string
	theme        string

	Flash Flash
}

// NewViewModel creates a view model over the application state.
func NewViewModel(store *chat.Store, r *roster.Roster, id *identity.Manager, auto *assistant.AutoResponder, session *call.Session, calls *call.Log) *ViewModel {
	return &ViewModel{
		store:    store,
		roster:   r,
		identity: id,
		auto:     auto,
		session:  session,
		calls:    calls,
		theme:    "light",
	}
}

// Identity returns the identity manager for the login flow.
func (vm *ViewModel) Identity() *identity.Manager {
	return vm.identity
}

// Session returns the call session for the overlay.
func (vm *ViewModel) Session() *call.Session {
	return vm.session
}

// CallLog returns recorded call entries, newest first.
func (vm *ViewModel) CallLog() []call.Entry {
	return vm.calls.Entries()
}

// SignedIn reports whether an identity is active.
func (vm *ViewModel) SignedIn() bool {
	_, ok := vm.identity.Current()
	return ok
}

// Self returns the signed-in profile, zero when logged out.
func (vm *ViewModel) Self() roster.User {
	u, _ := vm.identity.Current()
	return u
}

// ContactRows returns the sidebar rows, filtered and ordered by most recent
// activity, contacts without messages last in roster order.
func (vm *ViewModel) ContactRows() []ContactRow {
	vm.mu.RLock()
	filter := strings.ToLower(vm.filter)
	vm.mu.RUnlock()

	contacts := vm.roster.Contacts()
	rows := make([]ContactRow, 0, len(contacts))
	for _, u := range contacts {
		if filter != "" && !strings.Contains(strings.ToLower(u.Name), filter) {
			continue
		}
		row := ContactRow{User: u}
		md := vm.store.Metadata(u.ID)
		row.Unread = md.Unread
		if md.LastMessage != nil {
			row.Preview = previewText(md.LastMessage)
			row.When = md.LastMessage.SentAt
		}
		rows = append(rows, row)
	}
	sort.SliceStable(rows, func(i, j int) bool {
		return rows[i].When.After(rows[j].When)
	})
	return rows
}

// ContactsForDisplay returns the raw contact list for name lookups.
func (vm *ViewModel) ContactsForDisplay() []roster.User {
	return vm.roster.Contacts()
}

// SetFilter narrows the contact list by display name.
func (vm *ViewModel) SetFilter(q string) {
	vm.mu.Lock()
	vm.filter = q
	vm.mu.Unlock()
}

// OpenChat makes chatID the active conversation, creating it on first open
// and marking everything read.
func (vm *ViewModel) OpenChat(chatID string) {
	if !vm.store.Exists(chatID) {
		if peer, ok := vm.roster.Get(chatID); ok {
			self := vm.Self()
			self.ID = chat.SelfID
			_, _ = vm.store.Create(self, peer)
		}
	}
	vm.store.MarkRead(chatID)

	vm.mu.Lock()
	vm.activeChatID = chatID
	vm.mu.Unlock()
	if vm.auto != nil {
		vm.auto.SetActiveChat(chatID)
	}
}

// CloseChat leaves the active conversation.
func (vm *ViewModel) CloseChat() {
	vm.mu.Lock()
	vm.activeChatID = ""
	vm.mu.Unlock()
	if vm.auto != nil {
		vm.auto.SetActiveChat("")
	}
}

// ActiveChatID returns the id of the conversation being viewed.
func (vm *ViewModel) ActiveChatID() string {
	vm.mu.RLock()
	defer vm.mu.RUnlock()
	return vm.activeChatID
}

// ActiveContact returns the peer of the active conversation.
func (vm *ViewModel) ActiveContact() (roster.User, bool) {
	return vm.roster.Get(vm.ActiveChatID())
}

// Messages returns the active conversation's messages in send order.
func (vm *ViewModel) Messages() []chat.Message {
	return vm.store.Messages(vm.ActiveChatID())
}

// Send appends the composed input to the active conversation. Input of the
// form "/voice <ref>" becomes a voice message.
func (vm *ViewModel) Send(input string) error {
	content := chat.Content{Text: input}
	if ref, ok := strings.CutPrefix(input, "/voice "); ok {
		content = chat.Content{AudioRef: strings.TrimSpace(ref)}
	}
	_, err := vm.store.Append(vm.ActiveChatID(), chat.SelfID, content)
	return err
}

// DeleteMessage removes a message from the active conversation.
func (vm *ViewModel) DeleteMessage(msgID string, forEveryone bool) {
	vm.store.Delete(vm.ActiveChatID(), msgID, forEveryone)
}

// MarkActiveRead marks the active conversation read; called whenever new
// messages arrive while the user is looking at them.
func (vm *ViewModel) MarkActiveRead() {
	if id := vm.ActiveChatID(); id != "" {
		vm.store.MarkRead(id)
	}
}

// AddContact creates a contact and its empty conversation.
func (vm *ViewModel) AddContact(name string) error {
	u, err := vm.roster.Add(name, "")
	if err != nil {
		return err
	}
	self := vm.Self()
	self.ID = chat.SelfID
	_, err = vm.store.Create(self, u)
	return err
}

// UpdateSelf edits the signed-in profile. Changing the shareable id to one
// already used by a contact is rejected; the contact keeps it.
func (vm *ViewModel) UpdateSelf(name, id, about string) error {
	current, ok := vm.identity.Current()
	if !ok {
		return fmt.Errorf("%w: no active identity", roster.ErrValidation)
	}
	if id != current.ID {
		if _, taken := vm.roster.Get(id); taken {
			return fmt.Errorf("%w: %q", roster.ErrDuplicateID, id)
		}
	}
	_, err := vm.identity.UpdateProfile(name, id, about)
	return err
}

// Theme returns the current theme name.
func (vm *ViewModel) Theme() string {
	vm.mu.RLock()
	defer vm.mu.RUnlock()
	return vm.theme
}

// SetTheme sets the theme name.
func (vm *ViewModel) SetTheme(name string) {
	vm.mu.Lock()
	vm.theme = name
	vm.mu.Unlock()
}

// ToggleTheme flips between light and dark and returns the new name.
func (vm *ViewModel) ToggleTheme() string {
	vm.mu.Lock()
	defer vm.mu.Unlock()
	if vm.theme == "dark" {
		vm.theme = "light"
	} else {
		vm.theme = "dark"
	}
	return vm.theme
}

func previewText(m *chat.Message) string {
	switch {
	case m.Deleted:
		return "Message deleted"
	case m.AudioRef != "":
		return "Voice message"
	default:
		return m.Text
	}
}
