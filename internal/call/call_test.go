package call

import (
	"testing"
	"time"

	"github.com/zxweb/zx/internal/bus"
	"github.com/zxweb/zx/internal/roster"
)

func TestInitialStage(t *testing.T) {
	m := NewMachine(nil)
	if m.Current() != Idle {
		t.Errorf("initial stage = %s, want IDLE", m.Current())
	}
}

func TestValidTransitions(t *testing.T) {
	tests := []struct {
		from Stage
		to   Stage
	}{
		{Idle, Dialing},
		{Idle, Ringing},
		{Dialing, Active},
		{Dialing, Failed},
		{Ringing, Active},
		{Ringing, Ended},
		{Active, Ended},
		{Ended, Idle},
		{Failed, Idle},
	}
	for _, tt := range tests {
		t.Run(string(tt.from)+"->"+string(tt.to), func(t *testing.T) {
			m := NewMachine(nil)
			walkTo(t, m, tt.from)
			if err := m.Transition(tt.to); err != nil {
				t.Errorf("Transition(%s -> %s) error = %v", tt.from, tt.to, err)
			}
		})
	}
}

func TestInvalidTransition(t *testing.T) {
	m := NewMachine(nil)
	if err := m.Transition(Active); err == nil {
		t.Error("Transition(IDLE -> ACTIVE) should fail")
	}
	if m.Current() != Idle {
		t.Errorf("stage = %s, want IDLE (unchanged)", m.Current())
	}
}

func TestTransitionEmitsEvent(t *testing.T) {
	b := bus.New()
	ch, unsub := b.Subscribe("call.", 10)
	defer unsub()

	m := NewMachine(b)
	if err := m.Transition(Dialing); err != nil {
		t.Fatal(err)
	}

	evt := <-ch
	if evt.Kind != "call.stage_changed" {
		t.Errorf("event kind = %q, want call.stage_changed", evt.Kind)
	}
	change, ok := evt.Payload.(StageChange)
	if !ok {
		t.Fatalf("payload type = %T, want StageChange", evt.Payload)
	}
	if change.From != Idle || change.To != Dialing {
		t.Errorf("change = %v -> %v, want IDLE -> DIALING", change.From, change.To)
	}
}

func TestAnsweredCallLifecycle(t *testing.T) {
	l := NewLog(nil)
	s := NewSession(NewMachine(nil), l)
	sara := roster.User{ID: "sara-dev", Name: "Sara"}

	if err := s.Dial(sara); err != nil {
		t.Fatal(err)
	}
	if err := s.Connected(); err != nil {
		t.Fatal(err)
	}
	s.HangUp()

	if s.Stage() != Idle {
		t.Errorf("stage after hangup = %s, want IDLE", s.Stage())
	}
	entries := l.Entries()
	if len(entries) != 1 {
		t.Fatalf("log has %d entries, want 1", len(entries))
	}
	e := entries[0]
	if e.ContactID != "sara-dev" || e.Direction != Outgoing {
		t.Errorf("entry = %+v", e)
	}
	if e.ID == "" {
		t.Error("entry id should be assigned")
	}
}

func TestUnansweredIncomingIsMissed(t *testing.T) {
	l := NewLog(nil)
	s := NewSession(NewMachine(nil), l)

	if err := s.Ring(roster.User{ID: "john-doe"}); err != nil {
		t.Fatal(err)
	}
	s.HangUp()

	entries := l.Entries()
	if len(entries) != 1 {
		t.Fatalf("log has %d entries, want 1", len(entries))
	}
	if entries[0].Direction != Missed {
		t.Errorf("direction = %q, want missed", entries[0].Direction)
	}
	if entries[0].Duration != 0 {
		t.Errorf("duration = %v, want 0", entries[0].Duration)
	}
}

func TestLogNewestFirst(t *testing.T) {
	l := NewLog(nil)
	l.Record(Entry{ContactID: "a", Direction: Outgoing})
	l.Record(Entry{ContactID: "b", Direction: Incoming})

	entries := l.Entries()
	if entries[0].ContactID != "b" {
		t.Errorf("first entry = %q, want b (newest first)", entries[0].ContactID)
	}
}

func TestFormatDuration(t *testing.T) {
	tests := []struct {
		d    time.Duration
		want string
	}{
		{0, ""},
		{-time.Second, ""},
		{5*time.Minute + 12*time.Second, "5 minutes 12 seconds"},
		{time.Second, "1 second"},
	}
	for _, tt := range tests {
		if got := FormatDuration(tt.d); got != tt.want {
			t.Errorf("FormatDuration(%v) = %q, want %q", tt.d, got, tt.want)
		}
	}
}

func TestSnapshotRestore(t *testing.T) {
	l := NewLog(nil)
	l.Record(Entry{ContactID: "a", Direction: Missed})
	snap := l.Snapshot()

	l2 := NewLog(nil)
	l2.Restore(snap)
	if len(l2.Entries()) != 1 || l2.Entries()[0].ContactID != "a" {
		t.Errorf("restored entries = %+v", l2.Entries())
	}
}

func TestSeedOnlyWhenEmpty(t *testing.T) {
	l := NewLog(nil)
	l.Seed()
	entries := l.Entries()
	if len(entries) == 0 {
		t.Fatal("empty log should be seeded with default history")
	}
	var sawIncoming, sawMissed bool
	for _, e := range entries {
		switch e.Direction {
		case Incoming:
			sawIncoming = true
		case Missed:
			sawMissed = true
		}
	}
	if !sawIncoming || !sawMissed {
		t.Fatalf("default history should cover incoming and missed calls: %+v", entries)
	}

	l.Seed()
	if len(l.Entries()) != len(entries) {
		t.Error("second Seed() changed a populated log")
	}

	l2 := NewLog(nil)
	l2.Record(Entry{ContactID: "a", Direction: Outgoing})
	l2.Seed()
	if len(l2.Entries()) != 1 {
		t.Error("Seed() must not touch a populated log")
	}
}

// walkTo is a helper that transitions the machine to a target stage.
func walkTo(t *testing.T, m *Machine, target Stage) {
	t.Helper()
	paths := map[Stage][]Stage{
		Idle:    {},
		Dialing: {Dialing},
		Ringing: {Ringing},
		Active:  {Dialing, Active},
		Ended:   {Dialing, Active, Ended},
		Failed:  {Dialing, Failed},
	}
	for _, s := range paths[target] {
		if err := m.Transition(s); err != nil {
			t.Fatalf("walkTo(%s): %v", target, err)
		}
	}
}
