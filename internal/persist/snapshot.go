package persist

import (
	"fmt"
	"time"

	"github.com/fxamacker/cbor/v2"
	"github.com/zxweb/zx/internal/call"
	"github.com/zxweb/zx/internal/chat"
	"github.com/zxweb/zx/internal/roster"
)

// Snapshot is the full serialized application state. Each field is stored
// as an independent entry so a corrupt section only loses that section.
type Snapshot struct {
	User     *roster.User
	Contacts []roster.User
	Chats    map[string]chat.Conversation
	Theme    string
	Calls    []call.Entry
}

// Port is the injected persistence boundary: load once at startup, save at
// defined points after mutations. State holders never talk to storage
// directly.
type Port interface {
	Load() (*Snapshot, error)
	Save(*Snapshot) error
}

// Entry keys in the snapshots table.
const (
	keyUser     = "user"
	keyContacts = "contacts"
	keyChats    = "chats"
	keyTheme    = "theme"
	keyCalls    = "calls"
)

// Load reads all snapshot entries. Absent or undecodable entries leave the
// corresponding section zero; callers seed documented defaults from that.
func (db *DB) Load() (*Snapshot, error) {
	snap := &Snapshot{}
	loadEntry(db, keyUser, &snap.User)
	loadEntry(db, keyContacts, &snap.Contacts)
	loadEntry(db, keyChats, &snap.Chats)
	loadEntry(db, keyTheme, &snap.Theme)
	loadEntry(db, keyCalls, &snap.Calls)
	return snap, nil
}

// Save writes all snapshot entries in one transaction.
func (db *DB) Save(snap *Snapshot) error {
	tx, err := db.Begin()
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	now := time.Now().UnixMilli()
	entries := []struct {
		key string
		val any
	}{
		{keyUser, snap.User},
		{keyContacts, snap.Contacts},
		{keyChats, snap.Chats},
		{keyTheme, snap.Theme},
		{keyCalls, snap.Calls},
	}
	for _, e := range entries {
		blob, err := cbor.Marshal(e.val)
		if err != nil {
			return fmt.Errorf("encode %s: %w", e.key, err)
		}
		if _, err := tx.Exec(`
			INSERT INTO snapshots (key, value, updated_at)
			VALUES (?, ?, ?)
			ON CONFLICT(key) DO UPDATE SET
				value = excluded.value,
				updated_at = excluded.updated_at`,
			e.key, blob, now); err != nil {
			return fmt.Errorf("upsert %s: %w", e.key, err)
		}
	}
	return tx.Commit()
}

// loadEntry decodes one entry into out. Missing rows and decode failures
// are deliberately swallowed: the fallback-to-defaults contract beats
// failing the whole startup over one bad section.
func loadEntry(db *DB, key string, out any) {
	var blob []byte
	if err := db.QueryRow(`SELECT value FROM snapshots WHERE key = ?`, key).Scan(&blob); err != nil {
		return
	}
	_ = cbor.Unmarshal(blob, out)
}

// Memory is an in-memory Port used by tests and by guest sessions that
// should leave no trace on disk.
type Memory struct {
	snap *Snapshot
}

// NewMemory creates an empty in-memory port.
func NewMemory() *Memory {
	return &Memory{}
}

// Load returns the last saved snapshot, or an empty one.
func (m *Memory) Load() (*Snapshot, error) {
	if m.snap == nil {
		return &Snapshot{}, nil
	}
	// Round-trip through CBOR so callers get the same isolation semantics
	// as the SQLite port.
	blob, err := cbor.Marshal(m.snap)
	if err != nil {
		return nil, err
	}
	var out Snapshot
	if err := cbor.Unmarshal(blob, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// Save stores the snapshot.
func (m *Memory) Save(snap *Snapshot) error {
	blob, err := cbor.Marshal(snap)
	if err != nil {
		return err
	}
	var copied Snapshot
	if err := cbor.Unmarshal(blob, &copied); err != nil {
		return err
	}
	m.snap = &copied
	return nil
}
