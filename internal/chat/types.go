package chat

import (
	"errors"
	"time"

	"github.com/zxweb/zx/internal/roster"
)

// SelfID is the reserved sender id for messages written by the local user.
const SelfID = "me"

// Status is a message's delivery status. Transitions only move forward:
// sent -> delivered -> read, with sent -> read allowed as a shortcut.
type Status string

const (
	StatusSent      Status = "sent"
	StatusDelivered Status = "delivered"
	StatusRead      Status = "read"
)

var statusRank = map[Status]int{
	StatusSent:      0,
	StatusDelivered: 1,
	StatusRead:      2,
}

// advancesTo reports whether moving from s to next is a forward transition.
func (s Status) advancesTo(next Status) bool {
	from, ok := statusRank[s]
	if !ok {
		return false
	}
	to, ok := statusRank[next]
	if !ok {
		return false
	}
	return to > from
}

// Content is the payload of a new message: text, an audio reference, or both.
type Content struct {
	Text     string
	AudioRef string
}

// Message is immutable once appended, except for the two sanctioned
// transitions: delivery-status advancement and deletion.
type Message struct {
	ID       string
	SenderID string
	Text     string
	AudioRef string
	SentAt   time.Time
	Status   Status
	// Deleted marks a message deleted for everyone. Setting it clears the
	// payload and is permanent; the message keeps its slot in the sequence.
	Deleted bool
}

// FromSelf reports whether the local user sent the message.
func (m *Message) FromSelf() bool {
	return m.SenderID == SelfID
}

// Conversation is an ordered message thread between self and exactly one
// contact, keyed by that contact's id.
type Conversation struct {
	ID           string
	Participants []roster.User
	Messages     []Message

	// unread is maintained incrementally by the store's mutations and
	// recounted on restore; it is deliberately unexported so snapshots never
	// carry derived state.
	unread int
}

// Metadata is the derived per-conversation summary. It is computed from
// current state, never stored.
type Metadata struct {
	LastMessage *Message
	Unread      int
}

var (
	// ErrDuplicateConversation is returned when creating a conversation for
	// a peer that already has one.
	ErrDuplicateConversation = errors.New("conversation already exists")
	// ErrValidation is returned when input is rejected before any store
	// mutation takes place.
	ErrValidation = errors.New("invalid input")
)

// MessageEvent is the bus payload for message-level events.
type MessageEvent struct {
	ChatID    string
	MessageID string
}

// countsAsUnread reports whether m contributes to the unread count: not from
// self, not yet read, not deleted for everyone.
func countsAsUnread(m *Message) bool {
	return m.SenderID != SelfID && m.Status != StatusRead && !m.Deleted
}
