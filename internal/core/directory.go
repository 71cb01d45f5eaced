package core

import (
	"sync"

	"github.com/rs/zerolog/log"

	"github.com/dchirkin/relay/internal/domain"
)

type dirEntry struct {
	conn Conn
	room domain.RoomID
}

// Directory is the authoritative "who is online and where" table: one entry
// per connected identity, holding its outbound sink and current room (empty
// until the identity creates or joins one).
type Directory struct {
	mu      sync.RWMutex
	entries map[domain.Identity]*dirEntry
}

func NewDirectory() *Directory {
	return &Directory{entries: make(map[domain.Identity]*dirEntry)}
}

// Register adds an identity with no current room. Called once per accepted
// connection.
func (d *Directory) Register(id domain.Identity, conn Conn) {
	d.mu.Lock()
	d.entries[id] = &dirEntry{conn: conn}
	d.mu.Unlock()
	log.Info().Str("module", "core.directory").Str("id", id.String()).Msg("registered")
}

// Unregister drops the identity and reports whether it was registered. The
// adapter that registered the sink keeps ownership and closes it itself.
// Safe to call for an unknown identity.
func (d *Directory) Unregister(id domain.Identity) bool {
	d.mu.Lock()
	_, ok := d.entries[id]
	delete(d.entries, id)
	d.mu.Unlock()
	if ok {
		log.Info().Str("module", "core.directory").Str("id", id.String()).Msg("unregistered")
	}
	return ok
}

// SetRoom points the identity's current-room reference at room. Reports
// false when the identity is not registered.
func (d *Directory) SetRoom(id domain.Identity, room domain.RoomID) bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	e, ok := d.entries[id]
	if !ok {
		return false
	}
	e.room = room
	return true
}

// ClearRoom resets the identity's current room to none.
func (d *Directory) ClearRoom(id domain.Identity) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if e, ok := d.entries[id]; ok {
		e.room = ""
	}
}

// RoomOf returns the identity's current room, if it has one.
func (d *Directory) RoomOf(id domain.Identity) (domain.RoomID, bool) {
	d.mu.RLock()
	defer d.mu.RUnlock()
	e, ok := d.entries[id]
	if !ok || e.room == "" {
		return "", false
	}
	return e.room, true
}

// HandleFor returns the outbound sink for id. A miss can race legitimately
// with disconnect and is a soft failure: callers skip the recipient.
func (d *Directory) HandleFor(id domain.Identity) (Conn, error) {
	d.mu.RLock()
	defer d.mu.RUnlock()
	e, ok := d.entries[id]
	if !ok {
		return nil, ErrUnknownIdentity
	}
	return e.conn, nil
}

// Online reports whether the identity is registered.
func (d *Directory) Online(id domain.Identity) bool {
	d.mu.RLock()
	defer d.mu.RUnlock()
	_, ok := d.entries[id]
	return ok
}
