// Package app wires the registry, directory and router together. The
// coordinator serializes every membership move across the two tables so
// that "identity is in room.members iff its directory entry points at that
// room" holds after each operation.
package app

import (
	"sync"

	"github.com/rs/zerolog/log"

	"github.com/dchirkin/relay/internal/core"
	"github.com/dchirkin/relay/internal/domain"
	"github.com/dchirkin/relay/internal/protocol"
)

type Coordinator struct {
	// mu guards multi-table membership moves, not single-table reads.
	mu sync.Mutex

	registry  *core.Registry
	directory *core.Directory
	router    *core.Router

	// evictEmpty garbage-collects a room once its last member leaves.
	// Off by default: rooms are retained forever, as the relay always did.
	evictEmpty bool
}

func NewCoordinator(registry *core.Registry, directory *core.Directory, router *core.Router, evictEmpty bool) *Coordinator {
	return &Coordinator{
		registry:   registry,
		directory:  directory,
		router:     router,
		evictEmpty: evictEmpty,
	}
}

// Connect registers a freshly accepted connection with no current room.
func (c *Coordinator) Connect(id domain.Identity, conn core.Conn) {
	c.directory.Register(id, conn)
}

// Disconnect tears an identity down after its connection closed: implicit
// leave of its current room, then directory removal. Safe to call twice.
func (c *Coordinator) Disconnect(id domain.Identity) {
	c.mu.Lock()
	c.leaveCurrentLocked(id)
	ok := c.directory.Unregister(id)
	c.mu.Unlock()
	if ok {
		log.Info().Str("module", "app.coordinator").Str("id", id.String()).Msg("disconnected")
	}
}

// CreateRoom creates a room owned by id and places the owner in it, leaving
// any previous room first.
func (c *Coordinator) CreateRoom(id domain.Identity, name string, capacity int, password string) (core.RoomSnapshot, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if !c.directory.Online(id) {
		return core.RoomSnapshot{}, core.ErrUnknownIdentity
	}

	room, err := c.registry.Create(id, name, capacity, password)
	if err != nil {
		return core.RoomSnapshot{}, err
	}
	c.leaveCurrentLocked(id)
	// Cannot fail: fresh room, capacity >= 1, owner holds the password.
	if err := c.registry.Join(room.ID, id, password); err != nil {
		return core.RoomSnapshot{}, err
	}
	c.directory.SetRoom(id, room.ID)

	snap, _ := c.registry.Snapshot(room.ID)
	return snap, nil
}

// Rooms lists every room with its member set.
func (c *Coordinator) Rooms() []core.RoomSnapshot {
	return c.registry.List()
}

// JoinRoom moves id into the room. Capacity and password checks are atomic
// with the move; the previous room is left only once the join succeeded, so
// a failed join changes nothing.
func (c *Coordinator) JoinRoom(id domain.Identity, roomID domain.RoomID, password string) (core.RoomSnapshot, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if !c.directory.Online(id) {
		return core.RoomSnapshot{}, core.ErrUnknownIdentity
	}
	if cur, ok := c.directory.RoomOf(id); ok && cur == roomID {
		snap, _ := c.registry.Snapshot(roomID)
		return snap, nil
	}
	if err := c.registry.Join(roomID, id, password); err != nil {
		return core.RoomSnapshot{}, err
	}
	if cur, ok := c.directory.RoomOf(id); ok {
		if err := c.registry.Leave(cur, id); err == nil {
			c.maybeEvictLocked(cur)
		}
	}
	c.directory.SetRoom(id, roomID)

	snap, _ := c.registry.Snapshot(roomID)
	return snap, nil
}

// LeaveRoom removes id from the given room and clears its directory entry
// when that room was current.
func (c *Coordinator) LeaveRoom(id domain.Identity, roomID domain.RoomID) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if err := c.registry.Leave(roomID, id); err != nil {
		return err
	}
	if cur, ok := c.directory.RoomOf(id); ok && cur == roomID {
		c.directory.ClearRoom(id)
	}
	c.maybeEvictLocked(roomID)
	return nil
}

// Send broadcasts content to the other members of id's current room.
func (c *Coordinator) Send(id domain.Identity, content string) (core.PublishResult, error) {
	roomID, ok := c.directory.RoomOf(id)
	if !ok {
		return core.PublishResult{}, core.ErrNotInRoom
	}
	msg := domain.NewMessage(id, content, roomID)
	return c.router.Broadcast(id, protocol.EncodeMessagePush(msg))
}

func (c *Coordinator) leaveCurrentLocked(id domain.Identity) {
	roomID, ok := c.directory.RoomOf(id)
	if !ok {
		return
	}
	if err := c.registry.Leave(roomID, id); err != nil {
		log.Warn().Str("module", "app.coordinator").Str("id", id.String()).Str("room", string(roomID)).Err(err).Msg("inconsistent leave")
	}
	c.directory.ClearRoom(id)
	c.maybeEvictLocked(roomID)
}

func (c *Coordinator) maybeEvictLocked(roomID domain.RoomID) {
	if c.evictEmpty && c.registry.MemberCount(roomID) == 0 {
		c.registry.Evict(roomID)
	}
}
