package call

import (
	"fmt"
	"slices"
	"sync"

	"github.com/zxweb/zx/internal/bus"
)

// Stage represents where the call overlay is in a call's lifecycle.
type Stage string

const (
	Idle    Stage = "IDLE"
	Dialing Stage = "DIALING"
	Ringing Stage = "RINGING"
	Active  Stage = "ACTIVE"
	Ended   Stage = "ENDED"
	Failed  Stage = "FAILED"
)

// validTransitions defines allowed stage transitions.
var validTransitions = map[Stage][]Stage{
	Idle:    {Dialing, Ringing},
	Dialing: {Active, Ended, Failed},
	Ringing: {Active, Ended, Failed},
	Active:  {Ended, Failed},
	Ended:   {Idle},
	Failed:  {Idle},
}

// Machine tracks and enforces call stage transitions. There is no real
// audio path behind it; the overlay UI and the call log are its consumers.
type Machine struct {
	mu      sync.RWMutex
	current Stage
	bus     *bus.Bus
}

// NewMachine creates a stage machine starting in Idle.
func NewMachine(b *bus.Bus) *Machine {
	return &Machine{
		current: Idle,
		bus:     b,
	}
}

// Current returns the current stage.
func (m *Machine) Current() Stage {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.current
}

// Transition attempts to move to a new stage. Returns error if the
// transition is invalid.
func (m *Machine) Transition(to Stage) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	allowed := validTransitions[m.current]
	if !slices.Contains(allowed, to) {
		return fmt.Errorf("invalid call transition from %s to %s", m.current, to)
	}
	from := m.current
	m.current = to
	if m.bus != nil {
		m.bus.Emit("call.stage_changed", StageChange{From: from, To: to})
	}
	return nil
}

// StageChange is the payload for stage change events.
type StageChange struct {
	From Stage
	To   Stage
}
