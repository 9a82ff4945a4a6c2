package call

import (
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/hako/durafmt"
	"github.com/zxweb/zx/internal/bus"
)

// Direction classifies a call log entry.
type Direction string

const (
	Incoming Direction = "incoming"
	Outgoing Direction = "outgoing"
	Missed   Direction = "missed"
)

// Entry is one row of the call log.
type Entry struct {
	ID        string
	ContactID string
	Direction Direction
	At        time.Time
	Duration  time.Duration
}

// FormatDuration renders a call duration for the log view, e.g. "5 minutes
// 12 seconds". Zero durations (missed calls) render empty.
func FormatDuration(d time.Duration) string {
	if d <= 0 {
		return ""
	}
	return durafmt.Parse(d.Truncate(time.Second)).LimitFirstN(2).String()
}

// Log holds call history, newest first. Entries are persisted as part of
// the profile snapshot.
type Log struct {
	mu      sync.RWMutex
	bus     *bus.Bus
	entries []Entry
}

// NewLog creates an empty call log. The bus may be nil in tests.
func NewLog(b *bus.Bus) *Log {
	return &Log{bus: b}
}

// Record prepends an entry, assigning an id when the caller left it empty.
func (l *Log) Record(e Entry) Entry {
	if e.ID == "" {
		e.ID = uuid.New().String()
	}
	if e.At.IsZero() {
		e.At = time.Now()
	}

	l.mu.Lock()
	l.entries = append([]Entry{e}, l.entries...)
	l.mu.Unlock()

	if l.bus != nil {
		l.bus.Emit("call.logged", e)
	}
	return e
}

// Entries returns a copy of the log, newest first.
func (l *Log) Entries() []Entry {
	l.mu.RLock()
	defer l.mu.RUnlock()
	out := make([]Entry, len(l.entries))
	copy(out, l.entries)
	return out
}

// Snapshot returns the entries for persistence.
func (l *Log) Snapshot() []Entry {
	return l.Entries()
}

// Restore replaces the log from a persisted snapshot.
func (l *Log) Restore(entries []Entry) {
	l.mu.Lock()
	l.entries = make([]Entry, len(entries))
	copy(l.entries, entries)
	l.mu.Unlock()
}
