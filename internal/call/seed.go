package call

import (
	"time"

	"github.com/zxweb/zx/internal/roster"
)

// DefaultEntries returns the call history seeded for a fresh profile: a
// mix of answered, outgoing and missed calls against the default contacts.
func DefaultEntries() []Entry {
	now := time.Now()
	return []Entry{
		{
			ID:        "c1",
			ContactID: "sara-dev",
			Direction: Incoming,
			At:        now.Add(-3 * time.Hour),
			Duration:  5*time.Minute + 12*time.Second,
		},
		{
			ID:        "c2",
			ContactID: "john-doe",
			Direction: Missed,
			At:        now.Add(-7 * time.Hour),
		},
		{
			ID:        "c3",
			ContactID: "sara-dev",
			Direction: Outgoing,
			At:        now.Add(-27 * time.Hour),
			Duration:  time.Minute + 30*time.Second,
		},
		{
			ID:        "c4",
			ContactID: roster.AssistantID,
			Direction: Incoming,
			At:        now.Add(-96 * time.Hour),
			Duration:  12*time.Minute + 45*time.Second,
		},
	}
}

// Seed fills an empty log with the default history. A populated log is
// left untouched.
func (l *Log) Seed() {
	l.mu.Lock()
	if len(l.entries) > 0 {
		l.mu.Unlock()
		return
	}
	l.entries = DefaultEntries()
	l.mu.Unlock()
}
