// Package assistant generates replies for the built-in assistant contact.
package assistant

import (
	"context"
	"fmt"
)

// Role tags a conversation turn by who wrote it.
type Role string

const (
	RoleSelf  Role = "self"
	RoleOther Role = "other"
)

// Turn is one message of conversation history handed to the responder.
type Turn struct {
	Role Role
	Text string
}

// Responder produces a reply to the user's latest message given prior
// history. Implementations may block; callers run them off the UI loop.
type Responder interface {
	GenerateReply(ctx context.Context, prompt string, history []Turn) (string, error)
}

// FallbackText replaces the reply whenever generation fails. The failure is
// swallowed; the user sees this as a normal incoming message.
const FallbackText = "I'm having a little trouble connecting. Check your internet!"

// GenerationError is any failure to produce a reply. It never propagates
// past the auto-responder.
type GenerationError struct {
	Status  int
	Message string
}

func (e *GenerationError) Error() string {
	if e.Status != 0 {
		return fmt.Sprintf("generation failed: %s (status %d)", e.Message, e.Status)
	}
	return "generation failed: " + e.Message
}
