package roster

// AssistantID is the reserved contact id for the built-in AI assistant.
const AssistantID = "zx-assistant"

// DefaultContacts returns the contacts seeded into an empty roster.
func DefaultContacts() []User {
	return []User{
		{
			ID:       AssistantID,
			Name:     "ZX Assistant",
			Avatar:   avatarFor("assistant"),
			Presence: Online,
			About:    "I am your AI companion on ZX.",
		},
		{
			ID:       "sara-dev",
			Name:     "Sara (Frontend)",
			Avatar:   avatarFor("sara"),
			Presence: Online,
			About:    "React/TS Enthusiast",
		},
		{
			ID:       "john-doe",
			Name:     "John Doe",
			Avatar:   avatarFor("john"),
			Presence: Offline,
			About:    "Living life to the fullest",
		},
		{
			ID:       "work-group",
			Name:     "Development Team",
			Avatar:   avatarFor("team"),
			Presence: Online,
			About:    "Group Chat",
		},
	}
}

// Seed fills an empty roster with the default contacts. A populated roster
// is left untouched.
func (r *Roster) Seed() {
	r.mu.Lock()
	if len(r.contacts) > 0 {
		r.mu.Unlock()
		return
	}
	r.contacts = DefaultContacts()
	r.mu.Unlock()
}
