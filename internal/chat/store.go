package chat

import (
	"fmt"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/zxweb/zx/internal/bus"
	"github.com/zxweb/zx/internal/roster"
)

// Store owns the chatID -> Conversation mapping and is the only writer of
// message status and deletion fields. All operations are safe for concurrent
// use; each mutation touches exactly one conversation.
//
// Operations on a missing chatID are silent no-ops rather than errors. The
// UI calls into the store from several views and a stale id (for example
// right after a contact rename) must not crash a call site; Create is the
// one operation that fails loudly.
type Store struct {
	mu     sync.RWMutex
	bus    *bus.Bus
	chats  map[string]*Conversation
	lastID int64
}

// NewStore creates an empty conversation store. The bus may be nil in tests.
func NewStore(b *bus.Bus) *Store {
	return &Store{
		bus:   b,
		chats: make(map[string]*Conversation),
	}
}

// Create adds an empty conversation keyed by the peer's id.
func (s *Store) Create(self, peer roster.User) (string, error) {
	if peer.ID == "" {
		return "", fmt.Errorf("%w: empty peer id", ErrValidation)
	}

	s.mu.Lock()
	if _, ok := s.chats[peer.ID]; ok {
		s.mu.Unlock()
		return "", fmt.Errorf("%w: %q", ErrDuplicateConversation, peer.ID)
	}
	s.chats[peer.ID] = &Conversation{
		ID:           peer.ID,
		Participants: []roster.User{self, peer},
	}
	s.mu.Unlock()

	s.emit("chat.created", peer.ID)
	return peer.ID, nil
}

// Append validates content, stamps a fresh monotonic id and appends a new
// message with status sent. It never mutates existing messages and is the
// only way messages enter a conversation. Appending to a missing chat is a
// no-op returning (nil, nil).
func (s *Store) Append(chatID, senderID string, c Content) (*Message, error) {
	text := strings.TrimSpace(c.Text)
	if text == "" && c.AudioRef == "" {
		return nil, fmt.Errorf("%w: message needs text or audio", ErrValidation)
	}
	if senderID == "" {
		return nil, fmt.Errorf("%w: empty sender id", ErrValidation)
	}

	s.mu.Lock()
	conv, ok := s.chats[chatID]
	if !ok {
		s.mu.Unlock()
		return nil, nil
	}
	m := Message{
		ID:       s.nextIDLocked(),
		SenderID: senderID,
		Text:     text,
		AudioRef: c.AudioRef,
		SentAt:   time.Now(),
		Status:   StatusSent,
	}
	conv.Messages = append(conv.Messages, m)
	if countsAsUnread(&m) {
		conv.unread++
	}
	s.mu.Unlock()

	s.emit("chat.message_appended", MessageEvent{ChatID: chatID, MessageID: m.ID})
	return &m, nil
}

// Advance moves a message's delivery status forward. Backward or sideways
// transitions, unknown ids and unknown chats are all silent no-ops. Status
// is independent of the deleted flag.
func (s *Store) Advance(chatID, msgID string, to Status) {
	s.mu.Lock()
	conv, ok := s.chats[chatID]
	if !ok {
		s.mu.Unlock()
		return
	}
	i := indexOf(conv.Messages, msgID)
	if i < 0 || !conv.Messages[i].Status.advancesTo(to) {
		s.mu.Unlock()
		return
	}
	m := &conv.Messages[i]
	wasUnread := countsAsUnread(m)
	m.Status = to
	if wasUnread && !countsAsUnread(m) {
		conv.unread--
	}
	s.mu.Unlock()

	s.emit("chat.message_status", MessageEvent{ChatID: chatID, MessageID: msgID})
}

// MarkRead marks every non-self message in the conversation as read.
// Idempotent; when nothing is unread it short-circuits without touching the
// store or publishing, so observers never see spurious updates.
func (s *Store) MarkRead(chatID string) {
	s.mu.Lock()
	conv, ok := s.chats[chatID]
	if !ok || conv.unread == 0 {
		s.mu.Unlock()
		return
	}
	for i := range conv.Messages {
		m := &conv.Messages[i]
		if m.SenderID != SelfID && m.Status != StatusRead {
			m.Status = StatusRead
		}
	}
	conv.unread = 0
	s.mu.Unlock()

	s.emit("chat.read", chatID)
}

// Delete removes a message for the local user, or clears its payload and
// permanently flags it when forEveryone is set. Unknown chat or message ids
// are tolerated as no-ops; order and status of other messages are untouched.
func (s *Store) Delete(chatID, msgID string, forEveryone bool) {
	s.mu.Lock()
	conv, ok := s.chats[chatID]
	if !ok {
		s.mu.Unlock()
		return
	}
	i := indexOf(conv.Messages, msgID)
	if i < 0 {
		s.mu.Unlock()
		return
	}
	m := &conv.Messages[i]

	if forEveryone {
		if m.Deleted {
			// Already deleted for everyone; the flag is permanent.
			s.mu.Unlock()
			return
		}
		if countsAsUnread(m) {
			conv.unread--
		}
		m.Text = ""
		m.AudioRef = ""
		m.Deleted = true
	} else {
		if countsAsUnread(m) {
			conv.unread--
		}
		conv.Messages = append(conv.Messages[:i], conv.Messages[i+1:]...)
	}
	s.mu.Unlock()

	s.emit("chat.message_deleted", MessageEvent{ChatID: chatID, MessageID: msgID})
}

// Metadata returns the derived summary for a conversation. The unread count
// is maintained inside the mutations (O(1) per mutation) rather than by
// rescanning; Restore recounts it from scratch.
func (s *Store) Metadata(chatID string) Metadata {
	s.mu.RLock()
	defer s.mu.RUnlock()
	conv, ok := s.chats[chatID]
	if !ok || len(conv.Messages) == 0 {
		var unread int
		if ok {
			unread = conv.unread
		}
		return Metadata{Unread: unread}
	}
	last := conv.Messages[len(conv.Messages)-1]
	return Metadata{LastMessage: &last, Unread: conv.unread}
}

// Messages returns a copy of a conversation's message sequence in send order.
func (s *Store) Messages(chatID string) []Message {
	s.mu.RLock()
	defer s.mu.RUnlock()
	conv, ok := s.chats[chatID]
	if !ok {
		return nil
	}
	out := make([]Message, len(conv.Messages))
	copy(out, conv.Messages)
	return out
}

// Conversation returns a copy of the conversation, if present.
func (s *Store) Conversation(chatID string) (Conversation, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	conv, ok := s.chats[chatID]
	if !ok {
		return Conversation{}, false
	}
	return conv.clone(), true
}

// Exists reports whether a conversation is keyed by chatID.
func (s *Store) Exists(chatID string) bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	_, ok := s.chats[chatID]
	return ok
}

// Len returns the number of conversations.
func (s *Store) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.chats)
}

// Snapshot returns a deep copy of all conversations for persistence.
func (s *Store) Snapshot() map[string]Conversation {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make(map[string]Conversation, len(s.chats))
	for id, conv := range s.chats {
		out[id] = conv.clone()
	}
	return out
}

// Restore replaces all conversations from a persisted snapshot. Derived
// state is never trusted: unread counts are recounted and the id counter is
// re-seeded from the highest message id seen.
func (s *Store) Restore(chats map[string]Conversation) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.chats = make(map[string]*Conversation, len(chats))
	for id, conv := range chats {
		c := conv.clone()
		c.unread = 0
		for i := range c.Messages {
			if countsAsUnread(&c.Messages[i]) {
				c.unread++
			}
			if n, err := strconv.ParseInt(c.Messages[i].ID, 10, 64); err == nil && n > s.lastID {
				s.lastID = n
			}
		}
		s.chats[id] = &c
	}
}

// nextIDLocked returns a fresh message id, monotonic by creation time even
// when two messages land in the same millisecond.
func (s *Store) nextIDLocked() string {
	now := time.Now().UnixMilli()
	if now <= s.lastID {
		now = s.lastID + 1
	}
	s.lastID = now
	return strconv.FormatInt(now, 10)
}

func (c *Conversation) clone() Conversation {
	out := Conversation{
		ID:           c.ID,
		Participants: make([]roster.User, len(c.Participants)),
		Messages:     make([]Message, len(c.Messages)),
		unread:       c.unread,
	}
	copy(out.Participants, c.Participants)
	copy(out.Messages, c.Messages)
	return out
}

func indexOf(msgs []Message, id string) int {
	for i := range msgs {
		if msgs[i].ID == id {
			return i
		}
	}
	return -1
}

func (s *Store) emit(kind string, payload any) {
	if s.bus != nil {
		s.bus.Emit(kind, payload)
	}
}
