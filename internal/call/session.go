package call

import (
	"sync"
	"time"

	"github.com/zxweb/zx/internal/roster"
)

// Session drives one call at a time through the stage machine and records
// the outcome in the log. Answer/HangUp arrive from UI key handlers; the
// simulated remote side answers via Connected.
type Session struct {
	mu        sync.Mutex
	machine   *Machine
	log       *Log
	contact   roster.User
	direction Direction
	startedAt time.Time
}

// NewSession creates a session over the given machine and log.
func NewSession(m *Machine, l *Log) *Session {
	return &Session{machine: m, log: l}
}

// Contact returns the peer of the current call.
func (s *Session) Contact() roster.User {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.contact
}

// Stage returns the current call stage.
func (s *Session) Stage() Stage {
	return s.machine.Current()
}

// Elapsed returns how long the current call has been active, zero before
// it is answered.
func (s *Session) Elapsed() time.Duration {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.startedAt.IsZero() {
		return 0
	}
	return time.Since(s.startedAt)
}

// Dial places an outgoing call to the contact.
func (s *Session) Dial(contact roster.User) error {
	if err := s.machine.Transition(Dialing); err != nil {
		return err
	}
	s.mu.Lock()
	s.contact = contact
	s.direction = Outgoing
	s.startedAt = time.Time{}
	s.mu.Unlock()
	return nil
}

// Ring starts an incoming call from the contact.
func (s *Session) Ring(contact roster.User) error {
	if err := s.machine.Transition(Ringing); err != nil {
		return err
	}
	s.mu.Lock()
	s.contact = contact
	s.direction = Incoming
	s.startedAt = time.Time{}
	s.mu.Unlock()
	return nil
}

// Connected marks the call as answered; the duration clock starts here.
func (s *Session) Connected() error {
	if err := s.machine.Transition(Active); err != nil {
		return err
	}
	s.mu.Lock()
	s.startedAt = time.Now()
	s.mu.Unlock()
	return nil
}

// HangUp ends the call and records a log entry. A ringing incoming call
// that was never answered is recorded as missed; an unanswered outgoing
// call is recorded with zero duration.
func (s *Session) HangUp() {
	if err := s.machine.Transition(Ended); err != nil {
		return
	}

	s.mu.Lock()
	entry := Entry{
		ContactID: s.contact.ID,
		Direction: s.direction,
		At:        time.Now(),
	}
	if s.startedAt.IsZero() {
		if s.direction == Incoming {
			entry.Direction = Missed
		}
	} else {
		entry.Duration = time.Since(s.startedAt)
	}
	s.mu.Unlock()

	if s.log != nil {
		s.log.Record(entry)
	}
	_ = s.machine.Transition(Idle)
}
