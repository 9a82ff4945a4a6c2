package chat

import (
	"strconv"
	"time"

	"github.com/zxweb/zx/internal/roster"
)

// DefaultConversations returns the conversations seeded for a fresh profile:
// one per default contact, a couple of them with a greeting already read.
func DefaultConversations(self roster.User) map[string]Conversation {
	contacts := roster.DefaultContacts()
	base := time.Now().Add(-24 * time.Hour)

	chats := make(map[string]Conversation, len(contacts))
	for i, c := range contacts {
		conv := Conversation{
			ID:           c.ID,
			Participants: []roster.User{self, c},
		}
		if text := greetingFor(c.ID); text != "" {
			conv.Messages = []Message{{
				ID:       strconv.FormatInt(base.Add(time.Duration(i)*time.Minute).UnixMilli(), 10),
				SenderID: c.ID,
				Text:     text,
				SentAt:   base.Add(time.Duration(i) * time.Minute),
				Status:   StatusRead,
			}}
		}
		chats[c.ID] = conv
	}
	return chats
}

func greetingFor(contactID string) string {
	switch contactID {
	case roster.AssistantID:
		return "Hi! Welcome to ZX. How can I help you today?"
	case "sara-dev":
		return "Hey, did you see the new update?"
	case "work-group":
		return "Deployment successful!"
	default:
		return ""
	}
}

// Seed fills an empty store with the default conversations. A populated
// store is left untouched.
func (s *Store) Seed(self roster.User) {
	s.mu.Lock()
	if len(s.chats) > 0 {
		s.mu.Unlock()
		return
	}
	s.mu.Unlock()
	s.Restore(DefaultConversations(self))
}
