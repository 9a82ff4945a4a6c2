package assistant

import (
	"context"
	"sync"
	"time"

	"github.com/zxweb/zx/internal/bus"
	"github.com/zxweb/zx/internal/chat"
	"github.com/zxweb/zx/internal/roster"
	"go.uber.org/zap"
)

// AutoResponder replies to every user message in the assistant conversation.
// Generation runs off the UI loop; while it is in flight the assistant
// contact shows as typing. A newer user message supersedes an in-flight
// generation, so at most one reply lands per burst and stale replies are
// dropped.
type AutoResponder struct {
	store     *chat.Store
	roster    *roster.Roster
	responder Responder
	bus       *bus.Bus
	logger    *zap.Logger

	genTimeout time.Duration

	mu         sync.Mutex
	activeChat string
	inflight   context.CancelFunc
	cancel     context.CancelFunc
	wg         sync.WaitGroup
}

// NewAutoResponder wires the responder to the assistant conversation.
func NewAutoResponder(store *chat.Store, r *roster.Roster, responder Responder, b *bus.Bus, logger *zap.Logger) *AutoResponder {
	return &AutoResponder{
		store:      store,
		roster:     r,
		responder:  responder,
		bus:        b,
		logger:     logger,
		genTimeout: 30 * time.Second,
	}
}

// SetActiveChat records which conversation the user is viewing. Replies
// landing in the active conversation advance straight to read; elsewhere
// they stop at delivered.
func (a *AutoResponder) SetActiveChat(chatID string) {
	a.mu.Lock()
	a.activeChat = chatID
	a.mu.Unlock()
}

// Start begins watching for user messages to the assistant.
func (a *AutoResponder) Start(ctx context.Context) {
	ctx, a.cancel = context.WithCancel(ctx)
	events, unsub := a.bus.Subscribe("chat.message_appended", 64)

	a.wg.Add(1)
	go func() {
		defer a.wg.Done()
		defer unsub()
		for {
			select {
			case evt := <-events:
				me, ok := evt.Payload.(chat.MessageEvent)
				if !ok || me.ChatID != roster.AssistantID {
					continue
				}
				a.onMessage(ctx, me)
			case <-ctx.Done():
				return
			}
		}
	}()
}

// Stop cancels any in-flight generation and waits for goroutines to finish.
func (a *AutoResponder) Stop() {
	if a.cancel != nil {
		a.cancel()
	}
	a.wg.Wait()
}

func (a *AutoResponder) onMessage(ctx context.Context, me chat.MessageEvent) {
	msgs := a.store.Messages(me.ChatID)
	i := len(msgs) - 1
	for i >= 0 && msgs[i].ID != me.MessageID {
		i--
	}
	if i < 0 || !msgs[i].FromSelf() || msgs[i].Deleted {
		return
	}
	prompt := msgs[i].Text
	if prompt == "" {
		// Voice messages get no generated reply.
		return
	}
	history := buildHistory(msgs[:i])

	genCtx, cancel := context.WithTimeout(ctx, a.genTimeout)

	a.mu.Lock()
	if a.inflight != nil {
		// A newer message supersedes the pending generation.
		a.inflight()
	}
	a.inflight = cancel
	a.mu.Unlock()

	a.roster.SetPresence(roster.AssistantID, roster.Typing)

	a.wg.Add(1)
	go func() {
		defer a.wg.Done()
		a.generate(genCtx, cancel, me.ChatID, prompt, history)
	}()
}

func (a *AutoResponder) generate(ctx context.Context, cancel context.CancelFunc, chatID, prompt string, history []Turn) {
	reply, err := a.responder.GenerateReply(ctx, prompt, history)

	a.mu.Lock()
	superseded := a.inflight == nil || ctx.Err() == context.Canceled
	if !superseded {
		a.inflight = nil
	}
	active := a.activeChat
	a.mu.Unlock()
	cancel()

	if superseded {
		// A newer message took over; this reply must never land.
		return
	}

	a.roster.SetPresence(roster.AssistantID, roster.Online)

	if err != nil {
		a.logger.Warn("reply generation failed", zap.Error(err))
		reply = FallbackText
	}

	m, err := a.store.Append(chatID, roster.AssistantID, chat.Content{Text: reply})
	if err != nil || m == nil {
		return
	}
	if active == chatID {
		a.store.Advance(chatID, m.ID, chat.StatusRead)
	} else {
		a.store.Advance(chatID, m.ID, chat.StatusDelivered)
	}
}

// buildHistory converts prior messages to responder turns, skipping deleted
// and non-text entries.
func buildHistory(msgs []chat.Message) []Turn {
	turns := make([]Turn, 0, len(msgs))
	for i := range msgs {
		m := &msgs[i]
		if m.Deleted || m.Text == "" {
			continue
		}
		role := RoleOther
		if m.FromSelf() {
			role = RoleSelf
		}
		turns = append(turns, Turn{Role: role, Text: m.Text})
	}
	return turns
}
