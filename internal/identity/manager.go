package identity

import (
	"context"
	"strings"
	"sync"

	"github.com/zxweb/zx/internal/bus"
	"github.com/zxweb/zx/internal/roster"
	"go.uber.org/zap"
)

// Manager owns the current signed-in identity. It never remaps an active
// identity: once signed in, a second sign-in fails until SignOut. Identity
// changes are published as auth.signed_in / auth.signed_out with an
// explicit Fresh flag on the Change payload.
type Manager struct {
	provider Provider
	bus      *bus.Bus
	logger   *zap.Logger

	mu      sync.RWMutex
	current *roster.User
}

// NewManager creates a manager with no active identity.
func NewManager(provider Provider, b *bus.Bus, logger *zap.Logger) *Manager {
	return &Manager{provider: provider, bus: b, logger: logger}
}

// Current returns the active identity, if any.
func (m *Manager) Current() (roster.User, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if m.current == nil {
		return roster.User{}, false
	}
	return *m.current, true
}

// Restore adopts a persisted identity from the profile snapshot. The
// resulting change carries Fresh=false so consumers keep existing state
// instead of reseeding.
func (m *Manager) Restore(u roster.User) error {
	return m.adopt(u, false)
}

// SignInWithToken performs the OAuth flow and adopts the result.
func (m *Manager) SignInWithToken(ctx context.Context, idToken string) (roster.User, error) {
	if err := m.ensureSignedOut("oauth"); err != nil {
		return roster.User{}, err
	}
	u, err := m.provider.SignInWithToken(ctx, idToken)
	if err != nil {
		return roster.User{}, err
	}
	return u, m.adopt(u, true)
}

// RequestCode starts the phone flow. It does not change the identity.
func (m *Manager) RequestCode(ctx context.Context, phone string) error {
	return m.provider.RequestCode(ctx, phone)
}

// VerifyCode completes the phone flow and adopts the result.
func (m *Manager) VerifyCode(ctx context.Context, phone, code string) (roster.User, error) {
	if err := m.ensureSignedOut("otp-verify"); err != nil {
		return roster.User{}, err
	}
	u, err := m.provider.VerifyCode(ctx, phone, code)
	if err != nil {
		return roster.User{}, err
	}
	return u, m.adopt(u, true)
}

// SignInAsGuest creates a purely local identity without touching the
// provider. Guest profiles get a generated short id.
func (m *Manager) SignInAsGuest(name string) (roster.User, error) {
	if err := m.ensureSignedOut("guest"); err != nil {
		return roster.User{}, err
	}
	if name == "" {
		name = "Guest"
	}
	u := roster.User{
		ID:       "guest-" + roster.NewID(),
		Name:     name,
		Presence: roster.Online,
		About:    "Just visiting",
	}
	return u, m.adopt(u, true)
}

// UpdateProfile edits the active identity's display name, shareable id and
// about line, publishing auth.profile_updated. The id stays the user's own;
// collision checks against contacts are the caller's concern.
func (m *Manager) UpdateProfile(name, id, about string) (roster.User, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return roster.User{}, &AuthError{Op: "profile", Message: "empty name"}
	}
	id = strings.TrimSpace(id)
	if err := roster.ValidateID(id); err != nil {
		return roster.User{}, &AuthError{Op: "profile", Message: err.Error()}
	}
	if about = strings.TrimSpace(about); about == "" {
		about = "Available"
	}

	m.mu.Lock()
	if m.current == nil {
		m.mu.Unlock()
		return roster.User{}, &AuthError{Op: "profile", Message: "not signed in"}
	}
	m.current.Name = name
	m.current.ID = id
	m.current.About = about
	u := *m.current
	m.mu.Unlock()

	m.logger.Info("profile updated", zap.String("user", u.ID))
	m.bus.Emit("auth.profile_updated", Change{User: u})
	return u, nil
}

// SignOut clears the active identity and publishes auth.signed_out.
func (m *Manager) SignOut() {
	m.mu.Lock()
	if m.current == nil {
		m.mu.Unlock()
		return
	}
	u := *m.current
	m.current = nil
	m.mu.Unlock()

	m.logger.Info("signed out", zap.String("user", u.ID))
	m.bus.Emit("auth.signed_out", u)
}

func (m *Manager) adopt(u roster.User, fresh bool) error {
	m.mu.Lock()
	if m.current != nil {
		m.mu.Unlock()
		return &AuthError{Op: "adopt", Message: "already signed in as " + m.current.ID}
	}
	m.current = &u
	m.mu.Unlock()

	m.logger.Info("signed in",
		zap.String("user", u.ID),
		zap.Bool("fresh", fresh))
	m.bus.Emit("auth.signed_in", Change{User: u, Fresh: fresh})
	return nil
}

func (m *Manager) ensureSignedOut(op string) error {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if m.current != nil {
		return &AuthError{Op: op, Message: "already signed in as " + m.current.ID}
	}
	return nil
}
