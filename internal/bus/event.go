package bus

import "time"

// Event represents a domain event published on the bus.
//
// Kinds are dot-namespaced. Namespaces used in this app:
//
//	chat.*   - conversation store mutations (created, message_appended,
//	           message_status, read, message_deleted)
//	roster.* - contact roster changes (contact_added, presence, profile)
//	auth.*   - identity changes (signed_in, signed_out)
//	call.*   - call overlay stage changes (stage_changed, logged)
//	settings.* - user preferences (theme_changed)
//	store.*  - persistence (saved)
type Event struct {
	Kind      string
	Timestamp time.Time
	Payload   any
}
