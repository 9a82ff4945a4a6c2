package roster

import (
	"errors"
	"fmt"
	"math/rand"
	"regexp"
	"sync"

	"github.com/zxweb/zx/internal/bus"
)

// Presence is a contact's displayed presence state.
type Presence string

const (
	Online  Presence = "online"
	Offline Presence = "offline"
	Typing  Presence = "typing"
)

// User is an identity-bearing profile. The ID doubles as the contact key and
// the conversation key.
type User struct {
	ID       string
	Name     string
	Avatar   string
	Presence Presence
	About    string
	Phone    string
	Email    string
}

var (
	ErrDuplicateID = errors.New("contact id already exists")
	// ErrValidation is returned for malformed contact input; the roster is
	// left untouched.
	ErrValidation = errors.New("invalid contact")
)

var idRegexp = regexp.MustCompile(`^[A-Za-z0-9_-]{1,32}$`)

// ValidateID checks that id conforms to the shared user-id rules. Contact
// ids and the local user's shareable id both go through it.
func ValidateID(id string) error {
	if !idRegexp.MatchString(id) {
		return fmt.Errorf("%w: malformed id %q", ErrValidation, id)
	}
	return nil
}

const idAlphabet = "ABCDEFGHIJKLMNOPQRSTUVWXYZ0123456789"

// NewID generates a short shareable contact id, six characters like "K4QZ7P".
func NewID() string {
	b := make([]byte, 6)
	for i := range b {
		b[i] = idAlphabet[rand.Intn(len(idAlphabet))]
	}
	return string(b)
}

// Roster owns the contact collection. Conversations reference contacts by id
// but are owned elsewhere; removing a contact does not remove its
// conversation.
type Roster struct {
	mu       sync.RWMutex
	bus      *bus.Bus
	contacts []User
}

// New creates an empty roster. The bus may be nil in tests.
func New(b *bus.Bus) *Roster {
	return &Roster{bus: b}
}

// Add creates a contact with a generated id and prepends it to the list.
func (r *Roster) Add(name, about string) (User, error) {
	if name == "" {
		return User{}, fmt.Errorf("%w: empty name", ErrValidation)
	}
	if about == "" {
		about = "Available on ZX"
	}

	r.mu.Lock()
	id := NewID()
	for r.indexLocked(id) >= 0 {
		id = NewID()
	}
	u := User{
		ID:       id,
		Name:     name,
		Avatar:   avatarFor(id),
		Presence: Online,
		About:    about,
	}
	r.contacts = append([]User{u}, r.contacts...)
	r.mu.Unlock()

	r.emit("roster.contact_added", u)
	return u, nil
}

// AddUser inserts a contact with a caller-chosen id.
func (r *Roster) AddUser(u User) error {
	if err := ValidateID(u.ID); err != nil {
		return err
	}
	if u.Name == "" {
		return fmt.Errorf("%w: empty name", ErrValidation)
	}

	r.mu.Lock()
	if r.indexLocked(u.ID) >= 0 {
		r.mu.Unlock()
		return fmt.Errorf("%w: %q", ErrDuplicateID, u.ID)
	}
	r.contacts = append([]User{u}, r.contacts...)
	r.mu.Unlock()

	r.emit("roster.contact_added", u)
	return nil
}

// Get returns a contact by id.
func (r *Roster) Get(id string) (User, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	if i := r.indexLocked(id); i >= 0 {
		return r.contacts[i], true
	}
	return User{}, false
}

// Contacts returns a copy of the contact list in display order.
func (r *Roster) Contacts() []User {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]User, len(r.contacts))
	copy(out, r.contacts)
	return out
}

// SetPresence updates a contact's presence. Unknown ids are ignored.
func (r *Roster) SetPresence(id string, p Presence) {
	r.mu.Lock()
	i := r.indexLocked(id)
	if i < 0 || r.contacts[i].Presence == p {
		r.mu.Unlock()
		return
	}
	r.contacts[i].Presence = p
	u := r.contacts[i]
	r.mu.Unlock()

	r.emit("roster.presence", u)
}

// Update replaces the stored profile for u.ID. Unknown ids are ignored.
func (r *Roster) Update(u User) {
	r.mu.Lock()
	i := r.indexLocked(u.ID)
	if i < 0 {
		r.mu.Unlock()
		return
	}
	r.contacts[i] = u
	r.mu.Unlock()

	r.emit("roster.profile", u)
}

// Rename changes a contact's id. Uniqueness is enforced here; conversation
// re-keying is the caller's concern.
func (r *Roster) Rename(oldID, newID string) error {
	if err := ValidateID(newID); err != nil {
		return err
	}

	r.mu.Lock()
	if r.indexLocked(newID) >= 0 {
		r.mu.Unlock()
		return fmt.Errorf("%w: %q", ErrDuplicateID, newID)
	}
	i := r.indexLocked(oldID)
	if i < 0 {
		r.mu.Unlock()
		return nil
	}
	r.contacts[i].ID = newID
	u := r.contacts[i]
	r.mu.Unlock()

	r.emit("roster.profile", u)
	return nil
}

// Snapshot returns the contact list for persistence.
func (r *Roster) Snapshot() []User {
	return r.Contacts()
}

// Restore replaces the contact list from a persisted snapshot.
func (r *Roster) Restore(contacts []User) {
	r.mu.Lock()
	r.contacts = make([]User, len(contacts))
	copy(r.contacts, contacts)
	r.mu.Unlock()
}

// Len returns the number of contacts.
func (r *Roster) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.contacts)
}

func (r *Roster) indexLocked(id string) int {
	for i := range r.contacts {
		if r.contacts[i].ID == id {
			return i
		}
	}
	return -1
}

func (r *Roster) emit(kind string, payload any) {
	if r.bus != nil {
		r.bus.Emit(kind, payload)
	}
}

func avatarFor(id string) string {
	return "https://picsum.photos/seed/" + id + "/200"
}
